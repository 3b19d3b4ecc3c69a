package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/karmalog/internal/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	// AIProviderOpenAI 表示使用 OpenAI 能力。
	AIProviderOpenAI = "openai"
	// AIProviderDeepSeek 表示使用 DeepSeek 能力。
	AIProviderDeepSeek = "deepseek"
)

var supportedAIProviders = []string{AIProviderOpenAI, AIProviderDeepSeek}

// ErrAIAPIKeyMissing 表示未提供必需的 AI 平台 API Key。
var ErrAIAPIKeyMissing = errors.New("api key is required")

// SystemSettings 描述可配置的系统信息。
type SystemSettings struct {
	AIProvider     string
	OpenAIAPIKey   string
	DeepSeekAPIKey string
	CoachPrompt    string
}

// SystemSettingsInput 用于更新系统设置。
type SystemSettingsInput struct {
	AIProvider     string
	OpenAIAPIKey   string
	DeepSeekAPIKey string
	CoachPrompt    string
}

// SystemSettingService 提供系统设置的读取与更新能力。
// 数据库中未配置的 API Key 会回退到进程环境变量的值
type SystemSettingService struct {
	db                *gorm.DB
	envOpenAIAPIKey   string
	envDeepSeekAPIKey string
}

// NewSystemSettingService 构造 SystemSettingService
func NewSystemSettingService(gdb *gorm.DB) *SystemSettingService {
	return &SystemSettingService{db: gdb}
}

// SetEnvFallback 设置 API Key 的环境变量回退值
func (s *SystemSettingService) SetEnvFallback(openAIKey, deepSeekKey string) {
	s.envOpenAIAPIKey = strings.TrimSpace(openAIKey)
	s.envDeepSeekAPIKey = strings.TrimSpace(deepSeekKey)
}

var settingKeys = []string{
	db.SettingKeyAIProvider,
	db.SettingKeyOpenAIAPIKey,
	db.SettingKeyDeepSeekAPIKey,
	db.SettingKeyCoachPrompt,
}

// GetSettings 读取系统设置，如未设置将返回默认值。
func (s *SystemSettingService) GetSettings() (SystemSettings, error) {
	result := SystemSettings{
		AIProvider:     AIProviderOpenAI,
		OpenAIAPIKey:   s.envOpenAIAPIKey,
		DeepSeekAPIKey: s.envDeepSeekAPIKey,
	}

	var records []db.SystemSetting
	if err := s.db.Where("key IN ?", settingKeys).Find(&records).Error; err != nil {
		return result, fmt.Errorf("load system settings: %w", err)
	}

	for _, record := range records {
		value := strings.TrimSpace(record.Value)
		if value == "" {
			continue
		}
		switch record.Key {
		case db.SettingKeyAIProvider:
			if provider := normalizeAIProvider(value); provider != "" {
				result.AIProvider = provider
			}
		case db.SettingKeyOpenAIAPIKey:
			result.OpenAIAPIKey = value
		case db.SettingKeyDeepSeekAPIKey:
			result.DeepSeekAPIKey = value
		case db.SettingKeyCoachPrompt:
			result.CoachPrompt = value
		}
	}

	return result, nil
}

// UpdateSettings 保存系统设置，平台名不合法时回退为 openai。
func (s *SystemSettingService) UpdateSettings(input SystemSettingsInput) (SystemSettings, error) {
	provider := normalizeAIProvider(input.AIProvider)
	if provider == "" {
		provider = AIProviderOpenAI
	}

	values := map[string]string{
		db.SettingKeyAIProvider:     provider,
		db.SettingKeyOpenAIAPIKey:   strings.TrimSpace(input.OpenAIAPIKey),
		db.SettingKeyDeepSeekAPIKey: strings.TrimSpace(input.DeepSeekAPIKey),
		db.SettingKeyCoachPrompt:    strings.TrimSpace(input.CoachPrompt),
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		for key, value := range values {
			record := db.SystemSetting{Key: key, Value: value}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "key"}},
				DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
			}).Create(&record).Error; err != nil {
				return fmt.Errorf("save setting %s: %w", key, err)
			}
		}
		return nil
	})
	if err != nil {
		return SystemSettings{}, err
	}

	return s.GetSettings()
}

func normalizeAIProvider(value string) string {
	value = strings.TrimSpace(strings.ToLower(value))
	for _, provider := range supportedAIProviders {
		if value == provider {
			return provider
		}
	}
	return ""
}
