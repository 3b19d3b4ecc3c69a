package db

import (
	"time"

	"gorm.io/gorm"
)

// 活动状态，保持封闭集合，状态迁移逻辑见 service 层
const (
	StatusPending     = "Pending"
	StatusCompleted   = "Completed"
	StatusRescheduled = "Rescheduled"
)

// 活动类别，仅用于配色与聚合统计，不参与业务分支
const (
	CategoryWork    = "Work"
	CategoryStudy   = "Study"
	CategoryHome    = "Home"
	CategorySleep   = "Sleep"
	CategoryWorkout = "Workout"
	CategoryOther   = "Other"
)

// Categories 按展示顺序列出全部类别
var Categories = []string{
	CategoryWork,
	CategoryStudy,
	CategoryHome,
	CategorySleep,
	CategoryWorkout,
	CategoryOther,
}

// DateFormat 与 ClockFormat 是活动日期与起始时间的存储格式
const (
	DateFormat  = "2006-01-02"
	ClockFormat = "15:04"
)

// Activity 定义了单条活动记录
// UID 为对外暴露的不可变标识，创建时生成
// Date 使用 YYYY-MM-DD 字符串，便于按日期做字典序比较
// StartTime 使用 HH:MM，配合 AlarmEnabled 构成闹钟触发条件
// 计时器三元组满足：TimerRunning 为 true 时 TimerLastResume 非空，
// 任意时刻有效耗时 = TimerAccumulatedMs + (运行中 ? now - TimerLastResume : 0)
type Activity struct {
	gorm.Model
	UID                string `gorm:"size:36;uniqueIndex;not null"`
	Date               string `gorm:"size:10;index;not null"`
	Category           string `gorm:"size:20;not null"`
	Description        string `gorm:"type:text;not null"`
	EstimatedMinutes   int
	OvertimeMinutes    int
	Status             string `gorm:"size:20;index;not null"`
	MovedFromDate      string `gorm:"size:10"`
	MovedAt            *time.Time
	StartTime          string `gorm:"size:5"`
	AlarmEnabled       bool
	BlockID            int
	TimerRunning       bool `gorm:"index"`
	TimerLastResume    *time.Time
	TimerAccumulatedMs int64
}

// TableName 指定活动表名
func (Activity) TableName() string {
	return "activities"
}

// ElapsedMs 返回指定时刻的有效耗时（毫秒），只读投影，不修改任何字段
func (a Activity) ElapsedMs(now time.Time) int64 {
	elapsed := a.TimerAccumulatedMs
	if a.TimerRunning && a.TimerLastResume != nil {
		elapsed += now.Sub(*a.TimerLastResume).Milliseconds()
	}
	return elapsed
}

// ValidCategory 判断类别是否属于封闭集合
func ValidCategory(category string) bool {
	for _, c := range Categories {
		if c == category {
			return true
		}
	}
	return false
}
