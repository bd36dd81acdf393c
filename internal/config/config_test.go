package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))

	cfg := Load()
	assert.Equal(t, ":5100", cfg.ListenAddr)
	assert.Equal(t, "data/error_log.db", cfg.DatabasePath)
	assert.True(t, cfg.Enabled)
	assert.True(t, cfg.LogToConsole)
	assert.Equal(t, DebugButtonErrorsOnly, cfg.DebugButton)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
error_logging:
  enabled: true
  database_path: /var/lib/tracker/errors.db
  log_to_console: false
  categories:
    test: false
  custom_categories:
    payments: Payments
`), 0o644))
	t.Setenv("APP_CONFIG_PATH", path)

	cfg := Load()
	assert.Equal(t, "/var/lib/tracker/errors.db", cfg.DatabasePath)
	assert.False(t, cfg.LogToConsole)
	assert.Equal(t, map[string]bool{"test": false}, cfg.CategoryFlags)
	assert.Equal(t, "Payments", cfg.CustomCategories["payments"])
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
error_logging:
  database_path: from_file.db
`), 0o644))
	t.Setenv("APP_CONFIG_PATH", path)
	t.Setenv("APP_DATABASE_PATH", "from_env.db")

	cfg := Load()
	assert.Equal(t, "from_env.db", cfg.DatabasePath)
}

func TestMalformedYAMLIgnored(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("error_logging: [not: valid"), 0o644))
	t.Setenv("APP_CONFIG_PATH", path)

	cfg := Load()
	assert.Equal(t, "data/error_log.db", cfg.DatabasePath)
	assert.True(t, cfg.Enabled)
}

func TestInvalidDebugButtonFallsBack(t *testing.T) {
	t.Setenv("APP_CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("APP_DEBUG_BUTTON", "sometimes")

	cfg := Load()
	assert.Equal(t, DebugButtonErrorsOnly, cfg.DebugButton)
}

func TestTrackingDisabledByEnv(t *testing.T) {
	t.Setenv("APP_CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("APP_TRACKING_ENABLED", "false")

	cfg := Load()
	assert.False(t, cfg.Enabled)
}
