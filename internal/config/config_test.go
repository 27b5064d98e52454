package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load(New(), "")
	require.NoError(t, err)

	assert.Equal(t, "", cfg.DBPath)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.False(t, cfg.Debug)
	assert.True(t, cfg.Keyring)
	assert.True(t, cfg.SeedDefaults)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SWARM_DB_PATH", "/tmp/custom.db")
	t.Setenv("SWARM_DEBUG", "true")
	t.Setenv("SWARM_LOG_FORMAT", "json")

	cfg, err := Load(New(), "")
	require.NoError(t, err)

	assert.Equal(t, "/tmp/custom.db", cfg.DBPath)
	assert.True(t, cfg.Debug)
	assert.Equal(t, "json", cfg.LogFormat)

	path, err := cfg.ResolveDBPath()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/custom.db", path)
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	cfgFile := filepath.Join(dir, "swarm.yaml")
	content := "db_path: " + filepath.Join(dir, "s.db") + "\nkeyring: false\n"
	require.NoError(t, os.WriteFile(cfgFile, []byte(content), 0644))

	cfg, err := Load(New(), cfgFile)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "s.db"), cfg.DBPath)
	assert.False(t, cfg.Keyring)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := Load(New(), "/nonexistent/swarm.yaml")
	assert.Error(t, err)
}

func TestLoadRejectsUnknownLogFormat(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SWARM_LOG_FORMAT", "xml")

	_, err := Load(New(), "")
	assert.ErrorContains(t, err, "log_format")
}
