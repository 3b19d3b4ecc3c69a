package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type timerPayload struct {
	Running bool `json:"running"`
}

// SetTimer 将目标活动的计时器置为期望状态。
// 目标不存在时是无副作用的空操作，依然返回 200
func (a *API) SetTimer(c *gin.Context) {
	var payload timerPayload
	if !bindJSON(c, &payload, "无效的计时器数据") {
		return
	}

	now := time.Now().In(time.Local)
	if err := a.timers.SetRunning(c.Param("uid"), payload.Running, now); err != nil {
		respondError(c, http.StatusInternalServerError, "更新计时器失败")
		return
	}

	a.respondTimerState(c, now)
}

// ToggleTimer 翻转目标活动的计时器状态
func (a *API) ToggleTimer(c *gin.Context) {
	now := time.Now().In(time.Local)
	if err := a.timers.Toggle(c.Param("uid"), now); err != nil {
		respondError(c, http.StatusInternalServerError, "切换计时器失败")
		return
	}

	a.respondTimerState(c, now)
}

// GetElapsed 返回目标活动的实时有效耗时，只读投影
func (a *API) GetElapsed(c *gin.Context) {
	now := time.Now().In(time.Local)
	a.respondTimerState(c, now)
}

func (a *API) respondTimerState(c *gin.Context, now time.Time) {
	elapsed, running, err := a.timers.Elapsed(c.Param("uid"), now)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"found": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"found":      true,
		"uid":        c.Param("uid"),
		"running":    running,
		"elapsed_ms": elapsed,
	})
}
