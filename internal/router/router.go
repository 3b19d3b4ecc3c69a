package router

import (
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/karmalog/internal/handler"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRouter 配置 Gin 引擎和路由
func SetupRouter(api *handler.API, sessionSecret string) *gin.Engine {
	r := gin.Default()

	// 配置会话中间件，保存界面偏好
	store := cookie.NewStore([]byte(sessionSecret))
	r.Use(sessions.Sessions("karmalog_session", store))

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API 路由
	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/activities", api.ListActivities)
		apiGroup.POST("/activities", api.CreateActivity)
		apiGroup.PUT("/activities/:uid", api.UpdateActivity)
		apiGroup.DELETE("/activities/:uid", api.DeleteActivity)
		apiGroup.POST("/activities/:uid/status", api.UpdateActivityStatus)
		apiGroup.POST("/activities/:uid/move", api.MoveActivity)

		apiGroup.POST("/activities/:uid/timer", api.SetTimer)
		apiGroup.POST("/activities/:uid/timer/toggle", api.ToggleTimer)
		apiGroup.GET("/activities/:uid/elapsed", api.GetElapsed)

		apiGroup.GET("/alarm", api.GetAlarmState)
		apiGroup.POST("/alarm/dismiss", api.DismissAlarm)
		apiGroup.POST("/alarm/start", api.StartAlarmActivity)

		apiGroup.GET("/reports/completion", api.GetCompletionRate)
		apiGroup.GET("/reports/backlog", api.GetBacklog)
		apiGroup.GET("/reports/categories", api.GetCategoryReport)

		apiGroup.POST("/coach/advice", api.GetCoachAdvice)

		apiGroup.GET("/preferences", api.GetPreferences)
		apiGroup.PUT("/preferences", api.UpdatePreferences)

		apiGroup.GET("/blocks", api.GetBlocks)

		apiGroup.GET("/export", api.ExportSnapshot)
		apiGroup.POST("/import", api.ImportSnapshot)

		apiGroup.GET("/settings", api.GetSystemSettings)
		apiGroup.PUT("/settings", api.UpdateSystemSettings)
	}

	return r
}
