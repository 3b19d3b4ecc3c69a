package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/karmalog/internal/db"
	"github.com/karmalog/internal/observability"
)

const (
	defaultOpenAICoachModel   = "gpt-4o-mini"
	defaultDeepSeekCoachModel = "deepseek-chat"
	defaultCoachMaxTokens     = 600
	defaultCoachTemperature   = 0.4
)

// CoachFallbackMessage 在外部接口调用失败时原样返回给调用方
const CoachFallbackMessage = "Error connecting to the productivity coach. Please try again later."

// CoachOfflineMessage 在接口成功但未返回文本时使用
const CoachOfflineMessage = "The productivity coach is currently offline."

const defaultCoachSystemPrompt = "You are a high-performance productivity philosopher and coach. " +
	"Respond in Markdown with a professional, stoic, and insightful analysis. " +
	"Keep the tone minimalist, grounded, and focused on self-mastery."

// CoachAdvice 是教练分析的结果；Fallback 标记内容是否为降级文案
type CoachAdvice struct {
	Markdown string
	Fallback bool
}

// CoachService 把一天的活动清单组装成自然语言提示词，
// 转发给外部文本生成接口并返回其文本。
// 该调用只尝试一次，任何失败（缺少 Key、网络、空响应）
// 都在本地吸收为固定降级文案，绝不向上抛出
type CoachService struct {
	client  *aiChatClient
	reports *ReportService
}

// NewCoachService 构造 CoachService
func NewCoachService(settings *SystemSettingService, reports *ReportService) *CoachService {
	return &CoachService{
		client:  newAIChatClient(settings, defaultOpenAICoachModel, defaultDeepSeekCoachModel),
		reports: reports,
	}
}

// SetHTTPClient 覆盖默认 HTTP 客户端，主要用于测试。
func (s *CoachService) SetHTTPClient(client httpDoer) {
	s.client.SetHTTPClient(client)
}

// SetOpenAIBaseURL 覆盖默认的 OpenAI API 地址。
func (s *CoachService) SetOpenAIBaseURL(base string) {
	s.client.SetOpenAIBaseURL(base)
}

// SetDeepSeekBaseURL 覆盖默认的 DeepSeek API 地址。
func (s *CoachService) SetDeepSeekBaseURL(base string) {
	s.client.SetDeepSeekBaseURL(base)
}

// SetOpenAIModel 指定 OpenAI 分析所使用的模型名称。
func (s *CoachService) SetOpenAIModel(model string) {
	s.client.SetOpenAIModel(model)
}

// SetDeepSeekModel 指定 DeepSeek 分析所使用的模型名称。
func (s *CoachService) SetDeepSeekModel(model string) {
	s.client.SetDeepSeekModel(model)
}

// AdviseForDate 对指定日期的活动清单生成一段教练分析。
// 总是返回可展示的字符串；外部接口不可用时返回降级文案
func (s *CoachService) AdviseForDate(ctx context.Context, date string) CoachAdvice {
	activities, err := s.reports.DailyView(date)
	if err != nil {
		logAIExchange("COACH", "error", err.Error())
		observability.RecordCoachRequest("error")
		return CoachAdvice{Markdown: CoachFallbackMessage, Fallback: true}
	}
	return s.Advise(ctx, activities)
}

// Advise 对给定活动列表生成教练分析
func (s *CoachService) Advise(ctx context.Context, activities []db.Activity) CoachAdvice {
	userPrompt := buildCoachPrompt(activities)
	logAIExchange("COACH", "prompt", userPrompt)

	settings, err := s.client.settings.GetSettings()
	if err != nil {
		logAIExchange("COACH", "error", err.Error())
		observability.RecordCoachRequest("error")
		return CoachAdvice{Markdown: CoachFallbackMessage, Fallback: true}
	}

	systemPrompt := strings.TrimSpace(settings.CoachPrompt)
	if systemPrompt == "" {
		systemPrompt = defaultCoachSystemPrompt
	}

	result, err := s.client.callWithSettings(ctx, settings, aiChatRequest{
		SystemPrompt: systemPrompt,
		UserPrompt:   userPrompt,
		MaxTokens:    defaultCoachMaxTokens,
		Temperature:  defaultCoachTemperature,
	})
	if err != nil {
		logAIExchange("COACH", "error", err.Error())
		observability.RecordCoachRequest("error")
		return CoachAdvice{Markdown: CoachFallbackMessage, Fallback: true}
	}

	advice := strings.TrimSpace(result.Content)
	logAIExchange("COACH", "response", advice)
	if advice == "" {
		observability.RecordCoachRequest("empty")
		return CoachAdvice{Markdown: CoachOfflineMessage, Fallback: true}
	}

	observability.RecordCoachRequest("ok")
	return CoachAdvice{Markdown: advice}
}

// buildCoachPrompt 把活动清单压成逐行摘要并嵌入固定提示词模板
func buildCoachPrompt(activities []db.Activity) string {
	lines := make([]string, 0, len(activities))
	for _, a := range activities {
		lines = append(lines, summarizeActivity(a))
	}

	summary := strings.Join(lines, "\n")
	if summary == "" {
		summary = "No activities logged today."
	}

	var builder strings.Builder
	builder.WriteString("Analyze my \"6x4\" (six 4-hour cycles) day structure:\n\n")
	builder.WriteString(summary)
	builder.WriteString("\n\nProvide the analysis in Markdown. Focus on:\n")
	builder.WriteString("1. Completion rate vs rescheduling patterns.\n")
	builder.WriteString("2. Alignment of difficult tasks (Work/Study) with prime cycles.\n")
	builder.WriteString("3. Three specific, actionable steps to optimize tomorrow.\n")
	return builder.String()
}

// summarizeActivity 将单条活动压成一行：周期、类别、描述、时长与状态符号
func summarizeActivity(a db.Activity) string {
	var builder strings.Builder
	if block, ok := db.BlockByID(a.BlockID); ok {
		builder.WriteString(fmt.Sprintf("Block %s (%s-%s): ", block.Label, block.StartTime, block.EndTime))
	}
	builder.WriteString(fmt.Sprintf("%s - %s (%dm) [%s %s]",
		a.Category, a.Description, a.EstimatedMinutes, statusGlyph(a.Status), a.Status))
	return builder.String()
}

func statusGlyph(status string) string {
	switch status {
	case db.StatusCompleted:
		return "✅"
	case db.StatusRescheduled:
		return "⏭️"
	default:
		return "⏳"
	}
}
