package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_ExpandsEnvVars(t *testing.T) {
	t.Setenv("TEST_BOT_TOKEN", "tok-123")

	path := writeConfig(t, `
telegram:
  bot_token: ${TEST_BOT_TOKEN}
database:
  path: `+filepath.Join(t.TempDir(), "test.db")+`
managers:
  - 111
  - 222
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "tok-123", cfg.Telegram.BotToken)
	assert.Equal(t, []int64{111, 222}, cfg.Managers)
}

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Chdir(dir))

	path := writeConfig(t, "telegram:\n  bot_token: x\n")
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "data/vacation_manager.db", cfg.Database.Path)
	assert.Equal(t, time.Minute, cfg.SchedulerPollInterval())
	assert.Equal(t, time.Minute, cfg.SchedulerTolerance())
	assert.Equal(t, 10*time.Second, cfg.DispatchTimeout())
	assert.Equal(t, 5*time.Minute, cfg.RedisCacheTTL())
}

func TestLoad_SchedulerOverrides(t *testing.T) {
	path := writeConfig(t, `
database:
  path: `+filepath.Join(t.TempDir(), "test.db")+`
scheduler:
  poll_interval_seconds: 30
  tolerance_seconds: 120
  dispatch_timeout_seconds: 5
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, cfg.SchedulerPollInterval())
	assert.Equal(t, 2*time.Minute, cfg.SchedulerTolerance())
	assert.Equal(t, 5*time.Second, cfg.DispatchTimeout())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
