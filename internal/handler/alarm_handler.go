package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/karmalog/internal/service"
)

func alarmToJSON(state *service.AlarmState) gin.H {
	if state == nil {
		return gin.H{"active": false}
	}
	return gin.H{
		"active":       true,
		"uid":          state.UID,
		"date":         state.Date,
		"start_time":   state.StartTime,
		"category":     state.Category,
		"description":  state.Description,
		"triggered_at": state.TriggeredAt.Format(time.RFC3339),
	}
}

// GetAlarmState 返回当前激活的闹钟
func (a *API) GetAlarmState(c *gin.Context) {
	c.JSON(http.StatusOK, alarmToJSON(a.alarms.Active()))
}

// DismissAlarm 解除当前闹钟
func (a *API) DismissAlarm(c *gin.Context) {
	dismissed := a.alarms.Dismiss()
	c.JSON(http.StatusOK, gin.H{"dismissed": dismissed})
}

// StartAlarmActivity 对当前闹钟执行“立即开始”：
// 启动对应活动的计时器并解除闹钟
func (a *API) StartAlarmActivity(c *gin.Context) {
	now := time.Now().In(time.Local)
	uid, err := a.alarms.StartActive(now)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "启动计时器失败")
		return
	}
	if uid == "" {
		c.JSON(http.StatusOK, gin.H{"started": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"started": true, "uid": uid})
}
