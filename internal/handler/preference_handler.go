package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/karmalog/internal/db"
	"github.com/karmalog/internal/service"
)

// 会话中保存的界面偏好：当前选中的日期与报表区间
const (
	sessionKeySelectedDate   = "selected_date"
	sessionKeyReportInterval = "report_interval"
)

type preferencePayload struct {
	SelectedDate   string `json:"selected_date"`
	ReportInterval string `json:"report_interval"`
}

// GetPreferences 返回会话中的界面偏好，未设置时给出默认值
func (a *API) GetPreferences(c *gin.Context) {
	session := sessions.Default(c)

	selectedDate, _ := session.Get(sessionKeySelectedDate).(string)
	if selectedDate == "" {
		selectedDate = time.Now().In(time.Local).Format(db.DateFormat)
	}

	interval, _ := session.Get(sessionKeyReportInterval).(string)
	if interval == "" {
		interval = service.IntervalDaily
	}

	c.JSON(http.StatusOK, gin.H{
		"selected_date":   selectedDate,
		"report_interval": interval,
	})
}

// UpdatePreferences 更新会话中的界面偏好
func (a *API) UpdatePreferences(c *gin.Context) {
	var payload preferencePayload
	if !bindJSON(c, &payload, "无效的偏好数据") {
		return
	}

	session := sessions.Default(c)

	if date := strings.TrimSpace(payload.SelectedDate); date != "" {
		if _, err := time.ParseInLocation(db.DateFormat, date, time.Local); err != nil {
			respondError(c, http.StatusBadRequest, "无效的日期")
			return
		}
		session.Set(sessionKeySelectedDate, date)
	}

	if interval := strings.TrimSpace(payload.ReportInterval); interval != "" {
		switch interval {
		case service.IntervalDaily, service.IntervalWeekly, service.IntervalMonthly, service.IntervalYearly:
			session.Set(sessionKeyReportInterval, interval)
		default:
			respondError(c, http.StatusBadRequest, "无效的报表区间")
			return
		}
	}

	if err := session.Save(); err != nil {
		respondError(c, http.StatusInternalServerError, "保存偏好失败")
		return
	}

	a.GetPreferences(c)
}
