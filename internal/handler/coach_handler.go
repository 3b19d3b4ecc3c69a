package handler

import (
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var (
	coachMarkdown = goldmark.New(goldmark.WithExtensions(extension.GFM))
	coachPolicy   = bluemonday.UGCPolicy()
)

type coachPayload struct {
	Date string `json:"date"`
}

// GetCoachAdvice 请求外部教练接口分析指定日期的活动清单。
// 只尝试一次；外部失败时返回降级文案而不是错误
func (a *API) GetCoachAdvice(c *gin.Context) {
	var payload coachPayload
	if !bindJSON(c, &payload, "无效的请求数据") {
		return
	}
	date := payload.Date
	if date == "" {
		date = queryDate(c, "date")
	}

	advice := a.coach.AdviseForDate(c.Request.Context(), date)

	c.JSON(http.StatusOK, gin.H{
		"date":     date,
		"advice":   advice.Markdown,
		"html":     renderCoachMarkdown(advice.Markdown),
		"fallback": advice.Fallback,
	})
}

// renderCoachMarkdown 把教练返回的 Markdown 渲染为净化后的 HTML
func renderCoachMarkdown(markdown string) string {
	var buf bytes.Buffer
	if err := coachMarkdown.Convert([]byte(markdown), &buf); err != nil {
		return coachPolicy.Sanitize(markdown)
	}
	return coachPolicy.Sanitize(buf.String())
}
