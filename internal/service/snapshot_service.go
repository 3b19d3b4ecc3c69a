package service

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/karmalog/internal/db"
	"gorm.io/gorm"
)

// SnapshotService 以单一 JSON 数组的形式导入/导出整个活动集合，
// 对应旧版前端落在本地存储里的快照格式（驼峰字段、毫秒时间戳）。
// 导入是整库替换；解析失败按“无活动”处理而不是报错中断
type SnapshotService struct {
	db *gorm.DB
}

// SnapshotTimer 是快照中的计时器三元组
type SnapshotTimer struct {
	IsActive      bool   `json:"isActive"`
	LastStartTime *int64 `json:"lastStartTime"`
	TotalElapsed  int64  `json:"totalElapsed"`
}

// SnapshotEntry 是快照中的单条活动
type SnapshotEntry struct {
	ID                string         `json:"id"`
	Date              string         `json:"date"`
	Type              string         `json:"type"`
	Description       string         `json:"description"`
	Timestamp         int64          `json:"timestamp"`
	EstimatedDuration int            `json:"estimatedDuration"`
	Overtime          int            `json:"overtime"`
	Status            string         `json:"status"`
	MovedFromDate     string         `json:"movedFromDate,omitempty"`
	MovedAt           *int64         `json:"movedAt,omitempty"`
	BlockID           int            `json:"blockId,omitempty"`
	Timer             *SnapshotTimer `json:"timer,omitempty"`
	StartTime         string         `json:"startTime,omitempty"`
	AlarmEnabled      bool           `json:"alarmEnabled,omitempty"`
}

// NewSnapshotService 构造 SnapshotService
func NewSnapshotService(gdb *gorm.DB) *SnapshotService {
	return &SnapshotService{db: gdb}
}

// Export 导出全部活动为快照格式，按存储顺序排列
func (s *SnapshotService) Export() ([]SnapshotEntry, error) {
	var activities []db.Activity
	if err := s.db.Order("id ASC").Find(&activities).Error; err != nil {
		return nil, fmt.Errorf("export activities: %w", err)
	}

	entries := make([]SnapshotEntry, 0, len(activities))
	for _, a := range activities {
		entry := SnapshotEntry{
			ID:                a.UID,
			Date:              a.Date,
			Type:              a.Category,
			Description:       a.Description,
			Timestamp:         a.CreatedAt.UnixMilli(),
			EstimatedDuration: a.EstimatedMinutes,
			Overtime:          a.OvertimeMinutes,
			Status:            a.Status,
			MovedFromDate:     a.MovedFromDate,
			BlockID:           a.BlockID,
			StartTime:         a.StartTime,
			AlarmEnabled:      a.AlarmEnabled,
		}
		if a.MovedAt != nil {
			movedAt := a.MovedAt.UnixMilli()
			entry.MovedAt = &movedAt
		}
		timer := SnapshotTimer{
			IsActive:     a.TimerRunning,
			TotalElapsed: a.TimerAccumulatedMs,
		}
		if a.TimerLastResume != nil {
			resume := a.TimerLastResume.UnixMilli()
			timer.LastStartTime = &resume
		}
		entry.Timer = &timer
		entries = append(entries, entry)
	}
	return entries, nil
}

// Import 用快照整体替换现有活动集合，返回导入条数。
// 格式错误的载荷不改动现有数据，只记录告警并返回 0
func (s *SnapshotService) Import(raw []byte) (int, error) {
	var entries []SnapshotEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		log.Printf("[SNAPSHOT] malformed payload ignored: %v", err)
		return 0, nil
	}

	activities := sanitizeSnapshot(entries)

	err := s.db.Transaction(func(tx *gorm.DB) error {
		// 物理删除：软删除会让历史行继续占用 uid 唯一索引，
		// 导致重新导入含相同 id 的快照失败
		if err := tx.Unscoped().Where("1 = 1").Delete(&db.Activity{}).Error; err != nil {
			return fmt.Errorf("clear activities: %w", err)
		}
		if len(activities) == 0 {
			return nil
		}
		if err := tx.Create(&activities).Error; err != nil {
			return fmt.Errorf("import activities: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(activities), nil
}

// sanitizeSnapshot 把快照条目规整为满足全部不变式的活动记录：
// 非法类别归为 Other、非法状态归为 Pending、负数归零、
// 缺失 ID 时补发 UID、全库只保留第一条计时中的记录
func sanitizeSnapshot(entries []SnapshotEntry) []db.Activity {
	activities := make([]db.Activity, 0, len(entries))
	runningSeen := false

	for _, entry := range entries {
		if strings.TrimSpace(entry.Description) == "" {
			continue
		}
		if _, err := time.ParseInLocation(db.DateFormat, entry.Date, time.Local); err != nil {
			continue
		}

		activity := db.Activity{
			UID:              strings.TrimSpace(entry.ID),
			Date:             entry.Date,
			Category:         entry.Type,
			Description:      strings.TrimSpace(entry.Description),
			EstimatedMinutes: entry.EstimatedDuration,
			OvertimeMinutes:  entry.Overtime,
			Status:           entry.Status,
			MovedFromDate:    entry.MovedFromDate,
			StartTime:        strings.TrimSpace(entry.StartTime),
			AlarmEnabled:     entry.AlarmEnabled,
			BlockID:          entry.BlockID,
		}

		if activity.UID == "" {
			activity.UID = uuid.NewString()
		}
		if !db.ValidCategory(activity.Category) {
			activity.Category = db.CategoryOther
		}
		if activity.Status != db.StatusPending &&
			activity.Status != db.StatusCompleted &&
			activity.Status != db.StatusRescheduled {
			activity.Status = db.StatusPending
		}
		if activity.EstimatedMinutes < 0 {
			activity.EstimatedMinutes = 0
		}
		if activity.OvertimeMinutes < 0 {
			activity.OvertimeMinutes = 0
		}
		if entry.MovedAt != nil {
			movedAt := time.UnixMilli(*entry.MovedAt)
			activity.MovedAt = &movedAt
		}
		if activity.Status == db.StatusRescheduled && (activity.MovedFromDate == "" || activity.MovedAt == nil) {
			activity.Status = db.StatusPending
			activity.MovedFromDate = ""
			activity.MovedAt = nil
		}

		if entry.Timer != nil {
			if entry.Timer.TotalElapsed > 0 {
				activity.TimerAccumulatedMs = entry.Timer.TotalElapsed
			}
			// 单计时器不变式：只保留第一条计时中的记录，其余视为已停止
			if entry.Timer.IsActive && entry.Timer.LastStartTime != nil &&
				activity.Status != db.StatusCompleted && !runningSeen {
				resume := time.UnixMilli(*entry.Timer.LastStartTime)
				activity.TimerRunning = true
				activity.TimerLastResume = &resume
				runningSeen = true
			}
		}

		activities = append(activities, activity)
	}
	return activities
}
