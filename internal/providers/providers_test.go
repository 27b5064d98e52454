package providers

import (
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swarmsettings/internal/db"
	"swarmsettings/internal/models"
	"swarmsettings/internal/settings"
)

func newManager(t *testing.T, path string) *settings.Manager {
	t.Helper()
	database, err := db.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := database.DB(); err == nil {
			sqlDB.Close()
		}
	})
	m, err := settings.NewManager(database)
	require.NoError(t, err)
	return m
}

func discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestDefaultSettingsAreSelfConsistent(t *testing.T) {
	for _, s := range DefaultSettings() {
		assert.True(t, s.Type.IsValid(), s.Key)
		assert.NoError(t, s.CheckOptions(), s.Key)
		ok, msg := settings.Validate(s, s.DefaultValue)
		assert.True(t, ok, "%s: %s", s.Key, msg)
	}
}

func TestSettingsProviderSeeds(t *testing.T) {
	m := newManager(t, filepath.Join(t.TempDir(), "settings.db"))

	p, err := NewSettingsProvider(m, discard())
	require.NoError(t, err)

	all := p.GetSettings()
	assert.Len(t, all, len(DefaultSettings()))

	temp, ok := p.GetSetting(SettingTemperature)
	require.True(t, ok)
	assert.Equal(t, 0.7, temp.DefaultValue)

	tokens, _ := p.GetSetting(SettingMaxTokens)
	assert.Equal(t, float64(1000), tokens.DefaultValue)
}

func TestSettingsProviderSeedingKeepsStoredValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.db")

	first, err := NewSettingsProvider(newManager(t, path), discard())
	require.NoError(t, err)
	require.NoError(t, first.UpdateSetting(SettingTemperature, 0.2))

	second, err := NewSettingsProvider(newManager(t, path), discard())
	require.NoError(t, err)

	temp, _ := second.GetSetting(SettingTemperature)
	assert.Equal(t, 0.2, temp.DefaultValue)

	// custom predicate is attached again after reload
	assert.False(t, second.ValidateSetting(SettingTools, []string{"search", "search"}))
}

func TestValidateSetting(t *testing.T) {
	m := newManager(t, filepath.Join(t.TempDir(), "settings.db"))
	p, err := NewSettingsProvider(m, discard())
	require.NoError(t, err)

	tests := []struct {
		name  string
		key   string
		value any
		want  bool
	}{
		{"temperature in range", SettingTemperature, 0.5, true},
		{"temperature too high", SettingTemperature, 1.5, false},
		{"max tokens required", SettingMaxTokens, nil, false},
		{"max tokens too large", SettingMaxTokens, 5000, false},
		{"known model", SettingModel, "claude-2", true},
		{"unknown model", SettingModel, "gpt-5", false},
		{"system prompt", SettingSystemPrompt, "Be brief.", true},
		{"tools subset", SettingTools, []string{"search", "code"}, true},
		{"unknown tool", SettingTools, []string{"browser"}, false},
		{"repeated tool", SettingTools, []any{"code", "code"}, false},
		{"unknown key", "nope", 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.ValidateSetting(tt.key, tt.value))
		})
	}
}

func TestSettingsProviderUpdate(t *testing.T) {
	m := newManager(t, filepath.Join(t.TempDir(), "settings.db"))
	p, err := NewSettingsProvider(m, discard())
	require.NoError(t, err)

	err = p.UpdateSetting(SettingTemperature, 1.5)
	assert.True(t, settings.IsInvalidValue(err))

	require.NoError(t, p.UpdateSetting(SettingModel, "claude-2"))
	s, _ := p.GetSetting(SettingModel)
	assert.Equal(t, "claude-2", s.DefaultValue)

	assert.True(t, settings.IsNotFound(p.UpdateSetting("nope", 1)))
}

func TestInstructionProvider(t *testing.T) {
	m := newManager(t, filepath.Join(t.TempDir(), "settings.db"))

	p, err := NewInstructionProvider(m, discard())
	require.NoError(t, err)
	assert.Len(t, p.GetInstructions(), len(DefaultInstructions()))

	out, err := p.RenderInstruction(InstructionSystem, nil)
	require.NoError(t, err)
	assert.Equal(t, "You are an AI assistant specialising in content creation.", out)

	out, err = p.RenderInstruction(InstructionSystem, map[string]string{"domain": "SEO"})
	require.NoError(t, err)
	assert.Equal(t, "You are an AI assistant specialising in SEO.", out)

	// seeding again is a no-op
	_, err = NewInstructionProvider(m, discard())
	require.NoError(t, err)
}

func TestCreateAndUpdateInstruction(t *testing.T) {
	m := newManager(t, filepath.Join(t.TempDir(), "settings.db"))
	p, err := NewInstructionProvider(m, discard())
	require.NoError(t, err)

	id, err := p.CreateInstruction("Greeting", "Hi {who}, {mood}", map[string]string{"who": "there"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	tpl, ok := p.GetInstruction(id)
	require.True(t, ok)
	assert.Equal(t, "Greeting", tpl.Name)

	out, err := p.RenderInstruction(id, nil)
	require.NoError(t, err)
	assert.Equal(t, "Hi there, {mood}", out)

	require.NoError(t, p.UpdateInstruction(id, "Bye {who}", map[string]string{"who": "all"}))
	out, _ = p.RenderInstruction(id, nil)
	assert.Equal(t, "Bye all", out)

	err = p.UpdateInstruction("missing", "x", nil)
	assert.True(t, settings.IsNotFound(err))
}

func TestToolProvider(t *testing.T) {
	p := NewToolProvider()
	assert.Empty(t, p.GetTools())

	require.NoError(t, p.RegisterTool("search", map[string]any{"endpoint": "https://example.com"}))
	require.NoError(t, p.RegisterTool("calculator", "builtin"))

	tool, ok := p.GetTool("calculator")
	require.True(t, ok)
	assert.Equal(t, "builtin", tool)

	_, ok = p.GetTool("missing")
	assert.False(t, ok)

	assert.Equal(t, []string{"calculator", "search"}, p.Names())

	// registering again replaces
	require.NoError(t, p.RegisterTool("calculator", "v2"))
	tool, _ = p.GetTool("calculator")
	assert.Equal(t, "v2", tool)

	tools := p.GetTools()
	delete(tools, "search")
	assert.Len(t, p.GetTools(), 2)
	assert.True(t, p.ValidateTool("anything", nil))
}

func TestSeedSettingsPropagatesErrors(t *testing.T) {
	m := newManager(t, filepath.Join(t.TempDir(), "settings.db"))

	err := SeedSettings(m, discard(), []*models.Setting{{Type: models.TypeString}})
	assert.True(t, settings.IsInvalidValue(err))
}
