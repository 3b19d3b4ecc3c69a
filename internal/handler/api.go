package handler

import (
	"github.com/karmalog/internal/service"
	"gorm.io/gorm"
)

// API bundles shared dependencies for HTTP handlers.
type API struct {
	db         *gorm.DB
	activities *service.ActivityService
	timers     *service.TimerService
	reports    *service.ReportService
	alarms     *service.AlarmMonitor
	coach      *service.CoachService
	snapshots  *service.SnapshotService
	system     *service.SystemSettingService
}

// NewAPI constructs a handler set with shared services.
// API Key 环境变量作为系统设置的回退值传入
func NewAPI(db *gorm.DB, openAIKey, deepSeekKey string) *API {
	systemService := service.NewSystemSettingService(db)
	systemService.SetEnvFallback(openAIKey, deepSeekKey)

	reportService := service.NewReportService(db)
	timerService := service.NewTimerService(db)

	return &API{
		db:         db,
		activities: service.NewActivityService(db),
		timers:     timerService,
		reports:    reportService,
		alarms:     service.NewAlarmMonitor(db, timerService),
		coach:      service.NewCoachService(systemService, reportService),
		snapshots:  service.NewSnapshotService(db),
		system:     systemService,
	}
}

// Alarms exposes the alarm monitor so main can drive its tick loop.
func (a *API) Alarms() *service.AlarmMonitor {
	return a.alarms
}

// Coach exposes the coach service for test configuration.
func (a *API) Coach() *service.CoachService {
	return a.coach
}
