package handler

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/karmalog/internal/service"
)

// GetCompletionRate 返回指定日期的完成率
func (a *API) GetCompletionRate(c *gin.Context) {
	date := queryDate(c, "date")

	rate, err := a.reports.CompletionRate(date)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "计算完成率失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{"date": date, "completion_rate": rate})
}

// GetBacklog 返回待办/积压/已改期分区与所需总时长
func (a *API) GetBacklog(c *gin.Context) {
	now := time.Now().In(time.Local)

	stats, err := a.reports.BacklogStats(now)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取积压统计失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"pending":            activitiesToJSON(stats.Pending, now),
		"backlog":            activitiesToJSON(stats.Backlog, now),
		"moved":              activitiesToJSON(stats.Moved, now),
		"total_hours_needed": fmt.Sprintf("%.1f", stats.TotalHoursNeeded),
	})
}

// GetCategoryReport 返回按区间聚合的类别耗时分布
func (a *API) GetCategoryReport(c *gin.Context) {
	interval := c.DefaultQuery("interval", service.IntervalDaily)
	anchor := queryDate(c, "date")

	summary, err := a.reports.CategoryReport(interval, anchor)
	if err != nil {
		if errors.Is(err, service.ErrActivityInvalidInput) {
			respondError(c, http.StatusBadRequest, err.Error())
			return
		}
		respondError(c, http.StatusInternalServerError, "获取报表失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"interval": interval,
		"date":     anchor,
		"summary":  summary,
	})
}
