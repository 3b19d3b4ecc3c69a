package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/karmalog/internal/db"
	"gorm.io/gorm"
)

var (
	// ErrActivityNotFound 在指定活动不存在时返回
	ErrActivityNotFound = errors.New("activity not found")
	// ErrActivityInvalidInput 当创建/更新输入不合法时返回
	ErrActivityInvalidInput = errors.New("invalid activity input")
	// ErrActivityMoveSameDate 当改期目标与当前日期相同时返回
	ErrActivityMoveSameDate = errors.New("move target equals current date")
)

// 重复模式：none 仅创建当天一条；weekdays/weekends 在所选日期所在周
// （周一为起点）内复制到工作日或周末，所选日期本身始终包含
const (
	RepeatNone     = "none"
	RepeatWeekdays = "weekdays"
	RepeatWeekends = "weekends"
)

// ActivityService 负责活动记录的增删改查与状态迁移
// 计时器的启停归 TimerService，这里只保证
// “已完成的活动计时器必然停止”这一不变式
type ActivityService struct {
	db *gorm.DB
}

// ActivityInput 定义创建/更新活动时可配置字段
type ActivityInput struct {
	Date             string
	Category         string
	Description      string
	EstimatedMinutes int
	OvertimeMinutes  int
	StartTime        string
	AlarmEnabled     bool
	BlockID          int
	Repeat           string
}

// NewActivityService 构造 ActivityService
func NewActivityService(gdb *gorm.DB) *ActivityService {
	return &ActivityService{db: gdb}
}

// Create 新建活动，重复模式会在同一周内生成同名同类别的兄弟记录，
// 每条记录拥有独立的 UID、日期与归零的计时器
func (s *ActivityService) Create(input ActivityInput) ([]db.Activity, error) {
	normalized, baseDate, err := normalizeActivityInput(input)
	if err != nil {
		return nil, err
	}

	dates := expandRepeatDates(baseDate, normalized.Repeat)

	records := make([]db.Activity, 0, len(dates))
	for _, date := range dates {
		records = append(records, db.Activity{
			UID:              uuid.NewString(),
			Date:             date,
			Category:         normalized.Category,
			Description:      normalized.Description,
			EstimatedMinutes: normalized.EstimatedMinutes,
			OvertimeMinutes:  normalized.OvertimeMinutes,
			Status:           db.StatusPending,
			StartTime:        normalized.StartTime,
			AlarmEnabled:     normalized.AlarmEnabled,
			BlockID:          normalized.BlockID,
		})
	}

	if err := s.db.Create(&records).Error; err != nil {
		return nil, fmt.Errorf("create activities: %w", err)
	}
	return records, nil
}

// Update 更新活动可编辑字段。指定重复模式时，会同步修改同一周内
// 与原记录同名同类别的兄弟记录（日期、状态与计时器保持不变）
func (s *ActivityService) Update(uid string, input ActivityInput) ([]db.Activity, error) {
	normalized, _, err := normalizeActivityInput(input)
	if err != nil {
		return nil, err
	}

	var updated []db.Activity
	err = s.db.Transaction(func(tx *gorm.DB) error {
		var target db.Activity
		if err := tx.Where("uid = ?", uid).First(&target).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrActivityNotFound
			}
			return fmt.Errorf("find activity: %w", err)
		}

		targets := []db.Activity{target}
		if normalized.Repeat != RepeatNone {
			targetDate, err := time.ParseInLocation(db.DateFormat, target.Date, time.Local)
			if err == nil {
				dates := expandRepeatDates(targetDate, normalized.Repeat)
				var siblings []db.Activity
				if err := tx.Where("uid <> ? AND date IN ? AND description = ? AND category = ?",
					target.UID, dates, target.Description, target.Category).
					Order("id ASC").
					Find(&siblings).Error; err != nil {
					return fmt.Errorf("find sibling activities: %w", err)
				}
				targets = append(targets, siblings...)
			}
		}

		for i := range targets {
			targets[i].Category = normalized.Category
			targets[i].Description = normalized.Description
			targets[i].EstimatedMinutes = normalized.EstimatedMinutes
			targets[i].OvertimeMinutes = normalized.OvertimeMinutes
			targets[i].StartTime = normalized.StartTime
			targets[i].AlarmEnabled = normalized.AlarmEnabled
			targets[i].BlockID = normalized.BlockID
			if err := tx.Save(&targets[i]).Error; err != nil {
				return fmt.Errorf("update activity: %w", err)
			}
		}

		updated = targets
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Get 根据 UID 获取活动
func (s *ActivityService) Get(uid string) (*db.Activity, error) {
	var activity db.Activity
	if err := s.db.Where("uid = ?", uid).First(&activity).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrActivityNotFound
		}
		return nil, fmt.Errorf("get activity: %w", err)
	}
	return &activity, nil
}

// ListByDate 返回指定日期的活动，按存储顺序（主键升序）排列。
// date 为空时返回全部活动
func (s *ActivityService) ListByDate(date string) ([]db.Activity, error) {
	var activities []db.Activity

	query := s.db.Model(&db.Activity{})
	if strings.TrimSpace(date) != "" {
		query = query.Where("date = ?", date)
	}

	if err := query.Order("id ASC").Find(&activities).Error; err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	return activities, nil
}

// Delete 删除指定活动
func (s *ActivityService) Delete(uid string) error {
	result := s.db.Where("uid = ?", uid).Delete(&db.Activity{})
	if result.Error != nil {
		return fmt.Errorf("delete activity: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrActivityNotFound
	}
	return nil
}

// UpdateStatus 修改活动状态。仅接受 Pending/Completed；
// Rescheduled 只能通过 MoveToDate 产生，以保证改期元数据完整。
// 迁移到 Completed 时会先结算并停止计时器
func (s *ActivityService) UpdateStatus(uid, status string, now time.Time) (*db.Activity, error) {
	if status != db.StatusPending && status != db.StatusCompleted {
		return nil, fmt.Errorf("%w: unsupported status %s", ErrActivityInvalidInput, status)
	}

	var activity db.Activity
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("uid = ?", uid).First(&activity).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrActivityNotFound
			}
			return fmt.Errorf("find activity: %w", err)
		}

		if status == db.StatusCompleted {
			foldTimer(&activity, now)
		}
		activity.Status = status

		if err := tx.Save(&activity).Error; err != nil {
			return fmt.Errorf("update activity status: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &activity, nil
}

// MoveToDate 将活动改期到新日期，记录原日期与改期时刻，
// 状态迁移为 Rescheduled。目标日期必须与当前日期不同
func (s *ActivityService) MoveToDate(uid, newDate string, now time.Time) (*db.Activity, error) {
	if _, err := time.ParseInLocation(db.DateFormat, newDate, time.Local); err != nil {
		return nil, fmt.Errorf("%w: bad date %s", ErrActivityInvalidInput, newDate)
	}

	var activity db.Activity
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("uid = ?", uid).First(&activity).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrActivityNotFound
			}
			return fmt.Errorf("find activity: %w", err)
		}

		if activity.Date == newDate {
			return ErrActivityMoveSameDate
		}

		movedAt := now
		activity.MovedFromDate = activity.Date
		activity.MovedAt = &movedAt
		activity.Date = newDate
		activity.Status = db.StatusRescheduled

		if err := tx.Save(&activity).Error; err != nil {
			return fmt.Errorf("move activity: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &activity, nil
}

// normalizeActivityInput 校验并规整输入：描述必填、类别必须属于封闭集合、
// 负的分钟数按 0 处理、起始时间必须是合法 HH:MM
func normalizeActivityInput(input ActivityInput) (ActivityInput, time.Time, error) {
	input.Description = strings.TrimSpace(input.Description)
	if input.Description == "" {
		return input, time.Time{}, fmt.Errorf("%w: description is required", ErrActivityInvalidInput)
	}

	input.Category = strings.TrimSpace(input.Category)
	if !db.ValidCategory(input.Category) {
		return input, time.Time{}, fmt.Errorf("%w: unknown category %s", ErrActivityInvalidInput, input.Category)
	}

	baseDate, err := time.ParseInLocation(db.DateFormat, strings.TrimSpace(input.Date), time.Local)
	if err != nil {
		return input, time.Time{}, fmt.Errorf("%w: bad date %s", ErrActivityInvalidInput, input.Date)
	}
	input.Date = baseDate.Format(db.DateFormat)

	if input.EstimatedMinutes < 0 {
		input.EstimatedMinutes = 0
	}
	if input.OvertimeMinutes < 0 {
		input.OvertimeMinutes = 0
	}

	input.StartTime = strings.TrimSpace(input.StartTime)
	if input.StartTime != "" {
		if _, err := time.Parse(db.ClockFormat, input.StartTime); err != nil {
			return input, time.Time{}, fmt.Errorf("%w: bad start time %s", ErrActivityInvalidInput, input.StartTime)
		}
	}

	if input.BlockID != 0 {
		if _, ok := db.BlockByID(input.BlockID); !ok {
			return input, time.Time{}, fmt.Errorf("%w: unknown block %d", ErrActivityInvalidInput, input.BlockID)
		}
	}

	switch strings.TrimSpace(strings.ToLower(input.Repeat)) {
	case "", RepeatNone:
		input.Repeat = RepeatNone
	case RepeatWeekdays:
		input.Repeat = RepeatWeekdays
	case RepeatWeekends:
		input.Repeat = RepeatWeekends
	default:
		return input, time.Time{}, fmt.Errorf("%w: unknown repeat mode %s", ErrActivityInvalidInput, input.Repeat)
	}

	return input, baseDate, nil
}

// expandRepeatDates 计算重复模式覆盖的日期集合。
// 以所选日期所在周的周一为起点遍历七天，所选日期始终排在首位
func expandRepeatDates(selected time.Time, repeat string) []string {
	selectedStr := selected.Format(db.DateFormat)
	dates := []string{selectedStr}
	if repeat == RepeatNone {
		return dates
	}

	offset := 1 - int(selected.Weekday())
	if selected.Weekday() == time.Sunday {
		offset = -6
	}
	monday := selected.AddDate(0, 0, offset)

	for i := 0; i < 7; i++ {
		day := monday.AddDate(0, 0, i)
		dayStr := day.Format(db.DateFormat)
		if dayStr == selectedStr {
			continue
		}
		weekend := day.Weekday() == time.Saturday || day.Weekday() == time.Sunday
		if (repeat == RepeatWeekdays && !weekend) || (repeat == RepeatWeekends && weekend) {
			dates = append(dates, dayStr)
		}
	}
	return dates
}
