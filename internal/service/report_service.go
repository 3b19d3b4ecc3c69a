package service

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/karmalog/internal/db"
	"gorm.io/gorm"
)

// 分类报表的统计区间
const (
	IntervalDaily   = "Daily"
	IntervalWeekly  = "Weekly"
	IntervalMonthly = "Monthly"
	IntervalYearly  = "Yearly"
)

// 改期后的宽限窗口：第 5 天起标记紧急，第 7 天后剩余天数归零
const (
	urgencyThresholdDays = 5
	urgencyWindowDays    = 7
)

// ReportService 提供对活动集合的纯聚合读取，不做任何修改
type ReportService struct {
	db *gorm.DB
}

// BacklogStats 汇总待办/积压/已改期三个分区
// TotalHoursNeeded 为 pending 与 backlog 的预估分钟之和折算小时，保留一位小数
type BacklogStats struct {
	Pending          []db.Activity
	Backlog          []db.Activity
	Moved            []db.Activity
	TotalHoursNeeded float64
}

// NewReportService 构造 ReportService
func NewReportService(gdb *gorm.DB) *ReportService {
	return &ReportService{db: gdb}
}

// DailyView 返回指定日期的活动，按存储顺序排列
func (s *ReportService) DailyView(date string) ([]db.Activity, error) {
	var activities []db.Activity
	if err := s.db.Where("date = ?", date).Order("id ASC").Find(&activities).Error; err != nil {
		return nil, fmt.Errorf("list daily view: %w", err)
	}
	return activities, nil
}

// CompletionRate 计算指定日期的完成率（四舍五入的百分比），空列表为 0
func (s *ReportService) CompletionRate(date string) (int, error) {
	activities, err := s.DailyView(date)
	if err != nil {
		return 0, err
	}
	return CompletionRateOf(activities), nil
}

// CompletionRateOf 对给定列表计算完成率
func CompletionRateOf(activities []db.Activity) int {
	if len(activities) == 0 {
		return 0
	}
	completed := 0
	for _, a := range activities {
		if a.Status == db.StatusCompleted {
			completed++
		}
	}
	return int(math.Round(100 * float64(completed) / float64(len(activities))))
}

// BacklogStats 按传入时刻划分三个分区：
// pending = Pending 且日期为今天；backlog = Pending 且日期早于今天；
// moved = Rescheduled（不限日期）。每条 Pending 记录恰好落在前两者之一
func (s *ReportService) BacklogStats(now time.Time) (*BacklogStats, error) {
	var activities []db.Activity
	if err := s.db.Order("id ASC").Find(&activities).Error; err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}

	today := now.Format(db.DateFormat)
	stats := &BacklogStats{}
	totalMinutes := 0

	for _, a := range activities {
		switch {
		case a.Status == db.StatusPending && a.Date == today:
			stats.Pending = append(stats.Pending, a)
			totalMinutes += a.EstimatedMinutes
		case a.Status == db.StatusPending && a.Date < today:
			stats.Backlog = append(stats.Backlog, a)
			totalMinutes += a.EstimatedMinutes
		case a.Status == db.StatusRescheduled:
			stats.Moved = append(stats.Moved, a)
		}
	}

	stats.TotalHoursNeeded = math.Round(float64(totalMinutes)/60*10) / 10
	return stats, nil
}

// CategoryReport 按区间聚合各类别的耗时（预估 + 加时，单位分钟）。
// Weekly 是以锚点日期为终点回看 7 天的滑动窗口，而非日历周，
// 且不限制未来日期——这是沿用的历史行为，不要静默“修正”
func (s *ReportService) CategoryReport(interval, anchor string) (map[string]int, error) {
	interval = strings.TrimSpace(interval)
	anchorDate, err := time.ParseInLocation(db.DateFormat, strings.TrimSpace(anchor), time.Local)
	if err != nil {
		return nil, fmt.Errorf("%w: bad anchor date %s", ErrActivityInvalidInput, anchor)
	}

	var activities []db.Activity
	if err := s.db.Order("id ASC").Find(&activities).Error; err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}

	summary := make(map[string]int)
	for _, a := range activities {
		actDate, err := time.ParseInLocation(db.DateFormat, a.Date, time.Local)
		if err != nil {
			continue
		}

		var match bool
		switch interval {
		case IntervalDaily:
			match = a.Date == anchorDate.Format(db.DateFormat)
		case IntervalWeekly:
			match = anchorDate.Sub(actDate) < 7*24*time.Hour
		case IntervalMonthly:
			match = actDate.Month() == anchorDate.Month() && actDate.Year() == anchorDate.Year()
		case IntervalYearly:
			match = actDate.Year() == anchorDate.Year()
		default:
			return nil, fmt.Errorf("%w: unknown interval %s", ErrActivityInvalidInput, interval)
		}

		if match {
			summary[a.Category] += a.EstimatedMinutes + a.OvertimeMinutes
		}
	}
	return summary, nil
}

// DaysSinceMoved 返回改期至今经过的完整天数，未改期返回 0
func DaysSinceMoved(a db.Activity, now time.Time) int {
	if a.MovedAt == nil {
		return 0
	}
	days := int(math.Floor(now.Sub(*a.MovedAt).Hours() / 24))
	if days < 0 {
		return 0
	}
	return days
}

// IsUrgent 判断改期记录是否进入紧急区间（≥5 天）
func IsUrgent(a db.Activity, now time.Time) bool {
	return a.MovedAt != nil && DaysSinceMoved(a, now) >= urgencyThresholdDays
}

// DaysRemaining 返回 7 天宽限窗口内剩余的天数，窗口耗尽后保持 0
func DaysRemaining(a db.Activity, now time.Time) int {
	if a.MovedAt == nil {
		return 0
	}
	remaining := urgencyWindowDays - DaysSinceMoved(a, now)
	if remaining < 0 {
		return 0
	}
	return remaining
}
