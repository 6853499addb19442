package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
)

var envKeys = []string{
	"STOCKDASH_API_BASE", "REQUEST_TIMEOUT", "ANALYSIS_TIMEOUT", "TOTP_SECRET",
	"STOCKDASH_STORE", "STOCKDASH_STORE_PATH", "REDIS_ADDR", "REDIS_PASSWORD", "BAR_CACHE_TTL",
	"SEARCH_DEBOUNCE", "SEARCH_LIMIT", "HTTP_ADDR", "WARMUP_CRON", "INDICATORS",
	"MARKET_HOLIDAYS", "LOG_LEVEL",
	"NOTIFY_WEBHOOK_URL", "NOTIFY_TELEGRAM_TOKEN", "NOTIFY_TELEGRAM_CHAT",
}

// clearEnv blanks every key Load reads; t.Setenv restores them afterwards.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("", filepath.Join(t.TempDir(), "missing.env"))
	assert.NoError(t, err)

	assert.Equal(t, "http://localhost:8000/api/v1", cfg.API.BaseURL)
	assert.Equal(t, 60*time.Second, cfg.API.Timeout)
	assert.Equal(t, 300*time.Second, cfg.API.AnalysisTimeout)
	assert.Equal(t, "file", cfg.Store.Kind)
	assert.Equal(t, 300*time.Millisecond, cfg.Search.Debounce)
	assert.Equal(t, 8, cfg.Search.Limit)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_YAMLThenEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	yml := filepath.Join(dir, "stockdash.yaml")
	assert.NoError(t, os.WriteFile(yml, []byte(`
api:
  base_url: https://dash.example.com/api/v1
  analysis_timeout: 10m
store:
  kind: sqlite
search:
  limit: 5
dashboard:
  holidays: ["2026-10-01", "2026-10-02"]
`), 0o600))

	t.Setenv("SEARCH_LIMIT", "12")
	t.Setenv("REQUEST_TIMEOUT", "15s")

	cfg, err := Load(yml, filepath.Join(dir, "none.env"))
	assert.NoError(t, err)
	assert.Equal(t, "https://dash.example.com/api/v1", cfg.API.BaseURL)
	assert.Equal(t, 10*time.Minute, cfg.API.AnalysisTimeout)
	assert.Equal(t, 15*time.Second, cfg.API.Timeout)
	assert.Equal(t, "sqlite", cfg.Store.Kind)
	assert.Equal(t, "data/stockdash.db", cfg.Store.Path)
	assert.Equal(t, 12, cfg.Search.Limit)
	assert.Equal(t, []string{"2026-10-01", "2026-10-02"}, cfg.Dashboard.Holidays)
}

func TestLoad_DotEnv(t *testing.T) {
	clearEnv(t)
	// godotenv does not override variables that are already set, even to "".
	os.Unsetenv("STOCKDASH_STORE")
	os.Unsetenv("LOG_LEVEL")

	envFile := filepath.Join(t.TempDir(), ".env")
	assert.NoError(t, os.WriteFile(envFile, []byte("STOCKDASH_STORE=memory\nLOG_LEVEL=debug\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("STOCKDASH_STORE")
		os.Unsetenv("LOG_LEVEL")
	})

	cfg, err := Load("", envFile)
	assert.NoError(t, err)
	assert.Equal(t, "memory", cfg.Store.Kind)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestValidate(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("", filepath.Join(t.TempDir(), "none.env"))
	assert.NoError(t, err)

	cfg.API.BaseURL = "localhost:8000"
	cfg.Store.Kind = "etcd"
	cfg.Search.Limit = -1
	err = cfg.Validate()
	assert.Error(t, err)
}

func TestLoad_BadYAML(t *testing.T) {
	clearEnv(t)
	yml := filepath.Join(t.TempDir(), "bad.yaml")
	assert.NoError(t, os.WriteFile(yml, []byte("api: [unterminated"), 0o600))
	_, err := Load(yml, filepath.Join(t.TempDir(), "none.env"))
	assert.Error(t, err)
}

func TestValidate_Notify(t *testing.T) {
	clearEnv(t)
	t.Setenv("NOTIFY_TELEGRAM_TOKEN", "123:abc")
	cfg, err := Load("", filepath.Join(t.TempDir(), "none.env"))
	assert.NoError(t, err)
	assert.Equal(t, "123:abc", cfg.Notify.TelegramToken)
	assert.Error(t, cfg.Validate())

	cfg.Notify.TelegramChat = "-100200"
	assert.NoError(t, cfg.Validate())

	cfg.Notify.WebhookURL = "hooks.example.com/x"
	assert.Error(t, cfg.Validate())
}
