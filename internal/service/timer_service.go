package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/karmalog/internal/db"
	"github.com/karmalog/internal/observability"
	"gorm.io/gorm"
)

// TimerService 负责计时器状态的协调：
// 全库任意时刻至多一条活动处于计时中，启动某条计时器时
// 会在同一事务内把其他计时中的记录结算并停止。
// 对不存在的 UID 的请求是无副作用的空操作
type TimerService struct {
	db *gorm.DB
}

// NewTimerService 构造 TimerService
func NewTimerService(gdb *gorm.DB) *TimerService {
	return &TimerService{db: gdb}
}

// SetRunning 将目标活动的计时器置为期望状态。
// 整个读改写在一个事务内完成，保证单计时器不变式
func (s *TimerService) SetRunning(uid string, running bool, now time.Time) error {
	var transition string
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var target db.Activity
		if err := tx.Where("uid = ?", uid).First(&target).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// 目标不存在时不触碰任何记录
				return nil
			}
			return fmt.Errorf("find activity: %w", err)
		}

		applied, err := applyTimerTransition(tx, &target, running, now)
		if err != nil {
			return err
		}
		if applied {
			if running {
				transition = "start"
			} else {
				transition = "stop"
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if transition != "" {
		observability.RecordTimerTransition(transition)
	}
	return nil
}

// Toggle 翻转目标活动的计时器状态，目标不存在时为空操作。
// 读取当前状态与状态迁移在同一事务内完成，
// 并发翻转不会各自读到过期状态
func (s *TimerService) Toggle(uid string, now time.Time) error {
	var transition string
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var target db.Activity
		if err := tx.Where("uid = ?", uid).First(&target).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return fmt.Errorf("find activity: %w", err)
		}

		running := !target.TimerRunning
		applied, err := applyTimerTransition(tx, &target, running, now)
		if err != nil {
			return err
		}
		if applied {
			if running {
				transition = "start"
			} else {
				transition = "stop"
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if transition != "" {
		observability.RecordTimerTransition(transition)
	}
	return nil
}

// applyTimerTransition 在事务内执行一次状态迁移并返回是否实际生效。
// 已完成的活动不可重新计时：启动请求视为空操作，不触碰任何记录
func applyTimerTransition(tx *gorm.DB, target *db.Activity, running bool, now time.Time) (bool, error) {
	if running && target.Status == db.StatusCompleted {
		return false, nil
	}

	if running {
		var others []db.Activity
		if err := tx.Where("timer_running = ? AND uid <> ?", true, target.UID).
			Find(&others).Error; err != nil {
			return false, fmt.Errorf("find running activities: %w", err)
		}
		for i := range others {
			foldTimer(&others[i], now)
			if err := tx.Save(&others[i]).Error; err != nil {
				return false, fmt.Errorf("stop other timer: %w", err)
			}
		}

		// 已在计时的目标先结算当前会话再重新起点，耗时保持单调
		foldTimer(target, now)
		resume := now
		target.TimerRunning = true
		target.TimerLastResume = &resume
	} else {
		foldTimer(target, now)
	}

	if err := tx.Save(target).Error; err != nil {
		return false, fmt.Errorf("update timer: %w", err)
	}
	return true, nil
}

// Elapsed 返回目标活动在指定时刻的有效耗时（毫秒）与运行标志。
// 纯读取投影，绝不回写 accumulated
func (s *TimerService) Elapsed(uid string, now time.Time) (int64, bool, error) {
	var target db.Activity
	if err := s.db.Where("uid = ?", uid).First(&target).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, false, ErrActivityNotFound
		}
		return 0, false, fmt.Errorf("find activity: %w", err)
	}
	return target.ElapsedMs(now), target.TimerRunning, nil
}

// foldTimer 把进行中的会话结算进 accumulated 并停止计时。
// 时钟回拨导致的负增量按 0 处理，保证耗时单调不减
func foldTimer(a *db.Activity, now time.Time) {
	if a.TimerRunning && a.TimerLastResume != nil {
		delta := now.Sub(*a.TimerLastResume).Milliseconds()
		if delta > 0 {
			a.TimerAccumulatedMs += delta
		}
	}
	a.TimerRunning = false
	a.TimerLastResume = nil
}
