package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/karmalog/internal/db"
	"github.com/karmalog/internal/service"
)

type activityPayload struct {
	Category         string `json:"category"`
	Description      string `json:"description"`
	Date             string `json:"date"`
	EstimatedMinutes int    `json:"estimated_minutes"`
	OvertimeMinutes  int    `json:"overtime_minutes"`
	StartTime        string `json:"start_time"`
	AlarmEnabled     bool   `json:"alarm_enabled"`
	BlockID          int    `json:"block_id"`
	Repeat           string `json:"repeat"`
}

type statusPayload struct {
	Status string `json:"status"`
}

type movePayload struct {
	Date string `json:"date"`
}

// activityToJSON 序列化单条活动，计时器耗时按传入时刻投影
func activityToJSON(a db.Activity, now time.Time) gin.H {
	item := gin.H{
		"uid":               a.UID,
		"date":              a.Date,
		"category":          a.Category,
		"description":       a.Description,
		"estimated_minutes": a.EstimatedMinutes,
		"overtime_minutes":  a.OvertimeMinutes,
		"status":            a.Status,
		"start_time":        a.StartTime,
		"alarm_enabled":     a.AlarmEnabled,
		"block_id":          a.BlockID,
		"created_at":        a.CreatedAt.Format(time.RFC3339),
		"timer": gin.H{
			"running":        a.TimerRunning,
			"accumulated_ms": a.TimerAccumulatedMs,
			"elapsed_ms":     a.ElapsedMs(now),
		},
	}

	if a.MovedFromDate != "" && a.MovedAt != nil {
		item["moved_from_date"] = a.MovedFromDate
		item["moved_at"] = a.MovedAt.Format(time.RFC3339)
		item["urgent"] = service.IsUrgent(a, now)
		item["days_since_moved"] = service.DaysSinceMoved(a, now)
		item["days_remaining"] = service.DaysRemaining(a, now)
	}

	return item
}

func activitiesToJSON(activities []db.Activity, now time.Time) []gin.H {
	items := make([]gin.H, 0, len(activities))
	for _, a := range activities {
		items = append(items, activityToJSON(a, now))
	}
	return items
}

// ListActivities 返回指定日期（缺省为今天）的活动列表
func (a *API) ListActivities(c *gin.Context) {
	date := queryDate(c, "date")

	activities, err := a.activities.ListByDate(date)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取活动列表失败")
		return
	}

	now := time.Now().In(time.Local)
	c.JSON(http.StatusOK, gin.H{
		"date":            date,
		"activities":      activitiesToJSON(activities, now),
		"completion_rate": service.CompletionRateOf(activities),
	})
}

// CreateActivity 创建活动，支持 weekdays/weekends 重复模式
func (a *API) CreateActivity(c *gin.Context) {
	var payload activityPayload
	if !bindJSON(c, &payload, "无效的活动数据") {
		return
	}

	created, err := a.activities.Create(service.ActivityInput{
		Date:             payload.Date,
		Category:         payload.Category,
		Description:      payload.Description,
		EstimatedMinutes: payload.EstimatedMinutes,
		OvertimeMinutes:  payload.OvertimeMinutes,
		StartTime:        payload.StartTime,
		AlarmEnabled:     payload.AlarmEnabled,
		BlockID:          payload.BlockID,
		Repeat:           payload.Repeat,
	})
	if err != nil {
		handleActivityError(c, err)
		return
	}

	now := time.Now().In(time.Local)
	c.JSON(http.StatusOK, gin.H{"activities": activitiesToJSON(created, now)})
}

// UpdateActivity 更新活动可编辑字段，重复模式会同步兄弟记录
func (a *API) UpdateActivity(c *gin.Context) {
	uid := c.Param("uid")

	var payload activityPayload
	if !bindJSON(c, &payload, "无效的活动数据") {
		return
	}

	updated, err := a.activities.Update(uid, service.ActivityInput{
		Date:             payload.Date,
		Category:         payload.Category,
		Description:      payload.Description,
		EstimatedMinutes: payload.EstimatedMinutes,
		OvertimeMinutes:  payload.OvertimeMinutes,
		StartTime:        payload.StartTime,
		AlarmEnabled:     payload.AlarmEnabled,
		BlockID:          payload.BlockID,
		Repeat:           payload.Repeat,
	})
	if err != nil {
		handleActivityError(c, err)
		return
	}

	now := time.Now().In(time.Local)
	c.JSON(http.StatusOK, gin.H{"activities": activitiesToJSON(updated, now)})
}

// DeleteActivity 删除指定活动
func (a *API) DeleteActivity(c *gin.Context) {
	if err := a.activities.Delete(c.Param("uid")); err != nil {
		handleActivityError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// UpdateActivityStatus 修改活动状态（Pending/Completed）
func (a *API) UpdateActivityStatus(c *gin.Context) {
	var payload statusPayload
	if !bindJSON(c, &payload, "无效的状态数据") {
		return
	}

	now := time.Now().In(time.Local)
	activity, err := a.activities.UpdateStatus(c.Param("uid"), payload.Status, now)
	if err != nil {
		handleActivityError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"activity": activityToJSON(*activity, now)})
}

// MoveActivity 将活动改期到新日期并标记为 Rescheduled
func (a *API) MoveActivity(c *gin.Context) {
	var payload movePayload
	if !bindJSON(c, &payload, "无效的改期数据") {
		return
	}

	now := time.Now().In(time.Local)
	activity, err := a.activities.MoveToDate(c.Param("uid"), payload.Date, now)
	if err != nil {
		handleActivityError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"activity": activityToJSON(*activity, now)})
}

// GetBlocks 返回一天的六个固定周期
func (a *API) GetBlocks(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"blocks": db.Blocks})
}

func handleActivityError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrActivityNotFound):
		respondError(c, http.StatusNotFound, "活动不存在")
	case errors.Is(err, service.ErrActivityInvalidInput):
		respondError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrActivityMoveSameDate):
		respondError(c, http.StatusBadRequest, "改期日期不能与当前日期相同")
	default:
		respondError(c, http.StatusInternalServerError, "操作失败")
	}
}
