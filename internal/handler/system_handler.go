package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/karmalog/internal/service"
)

type systemSettingsPayload struct {
	AIProvider     string `json:"ai_provider"`
	OpenAIAPIKey   string `json:"openai_api_key"`
	DeepSeekAPIKey string `json:"deepseek_api_key"`
	CoachPrompt    string `json:"coach_prompt"`
}

// settingsToJSON 序列化系统设置，API Key 只暴露是否已配置
func settingsToJSON(settings service.SystemSettings) gin.H {
	return gin.H{
		"ai_provider":          settings.AIProvider,
		"openai_key_present":   settings.OpenAIAPIKey != "",
		"deepseek_key_present": settings.DeepSeekAPIKey != "",
		"coach_prompt":         settings.CoachPrompt,
	}
}

// GetSystemSettings 返回当前系统设置
func (a *API) GetSystemSettings(c *gin.Context) {
	settings, err := a.system.GetSettings()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "读取系统设置失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"settings": settingsToJSON(settings)})
}

// UpdateSystemSettings 更新系统设置
func (a *API) UpdateSystemSettings(c *gin.Context) {
	var payload systemSettingsPayload
	if !bindJSON(c, &payload, "无效的设置数据") {
		return
	}

	settings, err := a.system.UpdateSettings(service.SystemSettingsInput{
		AIProvider:     payload.AIProvider,
		OpenAIAPIKey:   payload.OpenAIAPIKey,
		DeepSeekAPIKey: payload.DeepSeekAPIKey,
		CoachPrompt:    payload.CoachPrompt,
	})
	if err != nil {
		respondError(c, http.StatusInternalServerError, "保存系统设置失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"settings": settingsToJSON(settings)})
}
