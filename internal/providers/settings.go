// Package providers seeds default settings, instructions and tools and exposes
// the narrow capability sets agents use.
package providers

import (
	"fmt"
	"log/slog"

	"swarmsettings/internal/models"
	"swarmsettings/internal/settings"
)

// Default setting keys
const (
	SettingTemperature  = "temperature"
	SettingMaxTokens    = "max_tokens"
	SettingModel        = "model"
	SettingSystemPrompt = "system_prompt"
	SettingTools        = "tools"
)

// DefaultSettings returns the settings every store is seeded with
func DefaultSettings() []*models.Setting {
	return []*models.Setting{
		{
			Key:          SettingTemperature,
			Type:         models.TypeSlider,
			Label:        "Temperature",
			Description:  "Controls how creative generation is",
			DefaultValue: 0.7,
			Validation: &models.SettingValidation{
				MinValue: models.Float(0.0),
				MaxValue: models.Float(1.0),
			},
			Metadata: models.JSONMap{"step": 0.1},
		},
		{
			Key:          SettingMaxTokens,
			Type:         models.TypeNumber,
			Label:        "Max Tokens",
			Description:  "Maximum number of tokens to generate",
			DefaultValue: 1000,
			Validation: &models.SettingValidation{
				Required: true,
				MinValue: models.Float(1),
				MaxValue: models.Float(4096),
			},
		},
		{
			Key:          SettingModel,
			Type:         models.TypeSelect,
			Label:        "Model",
			Description:  "Model used for generation",
			DefaultValue: "gpt-4",
			Options: []models.SettingOption{
				{Value: "gpt-4", Label: "GPT-4"},
				{Value: "gpt-3.5-turbo", Label: "GPT-3.5 Turbo"},
				{Value: "claude-2", Label: "Claude 2"},
			},
			Affects: models.StringSlice{SettingMaxTokens},
		},
		{
			Key:          SettingSystemPrompt,
			Type:         models.TypeMarkdown,
			Label:        "System Prompt",
			Description:  "Instruction prepended to every conversation",
			DefaultValue: "",
			Validation: &models.SettingValidation{
				MaxLength: models.Int(8000),
			},
		},
		{
			Key:          SettingTools,
			Type:         models.TypeMultiselect,
			Label:        "Tools",
			Description:  "Tools the agent may call",
			DefaultValue: []any{},
			Options: []models.SettingOption{
				{Value: "search", Label: "Search"},
				{Value: "calculator", Label: "Calculator"},
				{Value: "code", Label: "Code"},
			},
			Validation: &models.SettingValidation{
				Custom: distinctItems,
			},
		},
	}
}

// distinctItems rejects lists that name the same tool twice
func distinctItems(value any) (bool, error) {
	items, ok := value.([]any)
	if !ok {
		if strs, isStrings := value.([]string); isStrings {
			for _, s := range strs {
				items = append(items, s)
			}
		}
	}
	seen := make(map[any]bool, len(items))
	for _, item := range items {
		if seen[item] {
			return false, fmt.Errorf("%v is listed more than once", item)
		}
		seen[item] = true
	}
	return true, nil
}

// SettingsProvider exposes get/update/validate for settings backed by a Manager
type SettingsProvider struct {
	manager *settings.Manager
	log     *slog.Logger
}

// NewSettingsProvider seeds the default settings into manager. Settings that
// already exist keep their stored values.
func NewSettingsProvider(manager *settings.Manager, log *slog.Logger) (*SettingsProvider, error) {
	p := &SettingsProvider{manager: manager, log: log}
	if err := SeedSettings(manager, log, DefaultSettings()); err != nil {
		return nil, err
	}
	return p, nil
}

// SeedSettings registers each setting, ignoring ones already registered.
// Custom predicates of existing settings are re-attached.
func SeedSettings(manager *settings.Manager, log *slog.Logger, defaults []*models.Setting) error {
	for _, s := range defaults {
		err := manager.RegisterSetting(s)
		if err == nil {
			log.Debug("seeded setting", "key", s.Key)
			continue
		}
		if !settings.IsDuplicateKey(err) {
			return err
		}
		log.Debug("setting already registered", "key", s.Key)
		if s.Validation != nil && s.Validation.Custom != nil {
			if err := manager.AttachValidator(s.Key, s.Validation.Custom); err != nil {
				return err
			}
		}
	}
	return nil
}

// GetSettings returns all settings
func (p *SettingsProvider) GetSettings() map[string]*models.Setting {
	return p.manager.GetSettings()
}

// GetSetting returns one setting
func (p *SettingsProvider) GetSetting(key string) (*models.Setting, bool) {
	return p.manager.GetSetting(key)
}

// UpdateSetting validates and stores a new value
func (p *SettingsProvider) UpdateSetting(key string, value any) error {
	return p.manager.UpdateSetting(key, value)
}

// ValidateSetting reports whether value would be accepted for key.
// Unknown keys are never valid.
func (p *SettingsProvider) ValidateSetting(key string, value any) bool {
	return p.manager.ValidateValue(key, value) == nil
}
