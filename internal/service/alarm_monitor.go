package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/karmalog/internal/db"
	"github.com/karmalog/internal/observability"
	"gorm.io/gorm"
)

// Cue 抽象闹钟的声音提示，便于测试替换与失败降级
type Cue interface {
	Start()
	Stop()
}

// AlarmState 描述当前激活的闹钟
type AlarmState struct {
	UID         string
	Date        string
	StartTime   string
	Category    string
	Description string
	TriggeredAt time.Time
}

// AlarmMonitor 按时钟节拍轮询闹钟触发条件：
// 活动日期为今天、起始时间等于当前 HH:MM、开启闹钟、
// 状态为 Pending 且计时器未运行。
// 同一节拍内多条命中时取存储顺序（主键升序）的第一条。
// 激活状态保持到显式解除或“立即开始”为止
type AlarmMonitor struct {
	db     *gorm.DB
	timers *TimerService
	cue    Cue

	mu     sync.Mutex
	active *AlarmState
}

// NewAlarmMonitor 构造 AlarmMonitor，默认使用终端响铃提示
func NewAlarmMonitor(gdb *gorm.DB, timers *TimerService) *AlarmMonitor {
	return &AlarmMonitor{
		db:     gdb,
		timers: timers,
		cue:    newBellCue(time.Second),
	}
}

// SetCue 覆盖默认声音提示，主要用于测试
func (m *AlarmMonitor) SetCue(cue Cue) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cue != nil {
		m.cue.Stop()
	}
	m.cue = cue
}

// Evaluate 以传入时刻执行一次触发判定，返回当前激活的闹钟（可能为 nil）。
// 时钟作为参数传入，使判定逻辑可以用合成时间独立测试
func (m *AlarmMonitor) Evaluate(now time.Time) (*AlarmState, error) {
	today := now.Format(db.DateFormat)
	minute := now.Format(db.ClockFormat)

	var trigger db.Activity
	err := m.db.Where(
		"date = ? AND start_time = ? AND alarm_enabled = ? AND status = ? AND timer_running = ?",
		today, minute, true, db.StatusPending, false,
	).Order("id ASC").First(&trigger).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return m.Active(), nil
		}
		return m.Active(), fmt.Errorf("evaluate alarm: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// 同一条记录不重复触发；新记录命中时替换当前闹钟
	if m.active != nil && m.active.UID == trigger.UID {
		return m.snapshotLocked(), nil
	}

	m.active = &AlarmState{
		UID:         trigger.UID,
		Date:        trigger.Date,
		StartTime:   trigger.StartTime,
		Category:    trigger.Category,
		Description: trigger.Description,
		TriggeredAt: now,
	}
	if m.cue != nil {
		m.cue.Stop()
		m.cue.Start()
	}
	observability.RecordAlarmTriggered()

	return m.snapshotLocked(), nil
}

// Active 返回当前激活闹钟的副本，未激活时返回 nil
func (m *AlarmMonitor) Active() *AlarmState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// Dismiss 解除当前闹钟并停止声音提示，返回是否有闹钟被解除
func (m *AlarmMonitor) Dismiss() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active == nil {
		return false
	}
	if m.cue != nil {
		m.cue.Stop()
	}
	m.active = nil
	return true
}

// StartActive 对当前闹钟执行“立即开始”：启动该活动的计时器并解除闹钟。
// 返回被启动活动的 UID，无激活闹钟时返回空字符串
func (m *AlarmMonitor) StartActive(now time.Time) (string, error) {
	m.mu.Lock()
	active := m.active
	m.mu.Unlock()

	if active == nil {
		return "", nil
	}

	if err := m.timers.SetRunning(active.UID, true, now); err != nil {
		return "", err
	}

	m.Dismiss()
	return active.UID, nil
}

// Run 以固定间隔驱动触发判定，直到上下文取消。
// 周期任务随视图/进程生命周期一起回收，避免泄漏
func (m *AlarmMonitor) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.mu.Lock()
			if m.cue != nil {
				m.cue.Stop()
			}
			m.mu.Unlock()
			return
		case now := <-ticker.C:
			if _, err := m.Evaluate(now); err != nil {
				log.Printf("[ALARM] evaluate: %v", err)
			}
		}
	}
}

func (m *AlarmMonitor) snapshotLocked() *AlarmState {
	if m.active == nil {
		return nil
	}
	snapshot := *m.active
	return &snapshot
}

// bellCue 通过终端响铃字符实现重复提示音。
// 写入失败只告警一次并退化为纯视觉提醒，不会中断轮询
type bellCue struct {
	interval time.Duration
	ring     func() bool

	mu   sync.Mutex
	stop chan struct{}
}

func newBellCue(interval time.Duration) *bellCue {
	return &bellCue{interval: interval, ring: ringBell}
}

func (c *bellCue) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stop != nil {
		return
	}
	stop := make(chan struct{})
	c.stop = stop

	go func() {
		// 提前退出也要释放状态，否则后续闹钟的 Start 会被吞掉
		defer func() {
			c.mu.Lock()
			if c.stop == stop {
				c.stop = nil
			}
			c.mu.Unlock()
		}()

		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()

		if !c.ring() {
			log.Printf("[ALARM] audible cue unavailable, falling back to visual state only")
			return
		}
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if !c.ring() {
					return
				}
			}
		}
	}()
}

func (c *bellCue) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stop == nil {
		return
	}
	close(c.stop)
	c.stop = nil
}

func ringBell() bool {
	if _, err := os.Stdout.Write([]byte("\a")); err != nil {
		return false
	}
	return true
}
