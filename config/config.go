package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration. Values come from an optional
// YAML file, then from the environment (a .env file is loaded first when
// present), then from defaults.
type Config struct {
	API struct {
		BaseURL         string        `yaml:"base_url"`
		Timeout         time.Duration `yaml:"timeout"`
		AnalysisTimeout time.Duration `yaml:"analysis_timeout"`
		TOTPSecret      string        `yaml:"totp_secret"`
	} `yaml:"api"`

	Store struct {
		Kind          string        `yaml:"kind"` // file, sqlite, redis, memory
		Path          string        `yaml:"path"`
		RedisAddr     string        `yaml:"redis_addr"`
		RedisPassword string        `yaml:"redis_password"`
		BarTTL        time.Duration `yaml:"bar_ttl"`
	} `yaml:"store"`

	Search struct {
		Debounce time.Duration `yaml:"debounce"`
		Limit    int           `yaml:"limit"`
	} `yaml:"search"`

	Dashboard struct {
		HTTPAddr   string   `yaml:"http_addr"`
		WarmupCron string   `yaml:"warmup_cron"`
		Indicators string   `yaml:"indicators"` // e.g. "MA_5,MA_20,MACD"
		Holidays   []string `yaml:"holidays"`   // extra closed dates, YYYY-MM-DD
	} `yaml:"dashboard"`

	Notify struct {
		WebhookURL    string `yaml:"webhook_url"`
		TelegramToken string `yaml:"telegram_token"`
		TelegramChat  string `yaml:"telegram_chat"`
	} `yaml:"notify"`

	LogLevel string `yaml:"log_level"`
}

// Load reads envPath (default ".env") when it exists, then the YAML file at
// path when it exists, then applies environment overrides and defaults.
func Load(path, envPath string) (*Config, error) {
	if envPath == "" {
		envPath = ".env"
	}
	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			return nil, fmt.Errorf("loading .env file: %w", err)
		}
	}

	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if len(data) > 0 {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	// Environment variable overrides
	setString(&cfg.API.BaseURL, "STOCKDASH_API_BASE")
	setDuration(&cfg.API.Timeout, "REQUEST_TIMEOUT")
	setDuration(&cfg.API.AnalysisTimeout, "ANALYSIS_TIMEOUT")
	setString(&cfg.API.TOTPSecret, "TOTP_SECRET")

	setString(&cfg.Store.Kind, "STOCKDASH_STORE")
	setString(&cfg.Store.Path, "STOCKDASH_STORE_PATH")
	setString(&cfg.Store.RedisAddr, "REDIS_ADDR")
	setString(&cfg.Store.RedisPassword, "REDIS_PASSWORD")
	setDuration(&cfg.Store.BarTTL, "BAR_CACHE_TTL")

	setDuration(&cfg.Search.Debounce, "SEARCH_DEBOUNCE")
	if v := os.Getenv("SEARCH_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Search.Limit = n
		} else {
			log.Printf("[config] ignoring invalid SEARCH_LIMIT %q", v)
		}
	}

	setString(&cfg.Dashboard.HTTPAddr, "HTTP_ADDR")
	setString(&cfg.Dashboard.WarmupCron, "WARMUP_CRON")
	setString(&cfg.Dashboard.Indicators, "INDICATORS")
	if v := os.Getenv("MARKET_HOLIDAYS"); v != "" {
		cfg.Dashboard.Holidays = splitList(v)
	}
	setString(&cfg.Notify.WebhookURL, "NOTIFY_WEBHOOK_URL")
	setString(&cfg.Notify.TelegramToken, "NOTIFY_TELEGRAM_TOKEN")
	setString(&cfg.Notify.TelegramChat, "NOTIFY_TELEGRAM_CHAT")
	setString(&cfg.LogLevel, "LOG_LEVEL")

	// Defaults
	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = "http://localhost:8000/api/v1"
	}
	if cfg.API.Timeout == 0 {
		cfg.API.Timeout = 60 * time.Second
	}
	if cfg.API.AnalysisTimeout == 0 {
		cfg.API.AnalysisTimeout = 300 * time.Second
	}
	if cfg.Store.Kind == "" {
		cfg.Store.Kind = "file"
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = defaultStorePath(cfg.Store.Kind)
	}
	if cfg.Store.RedisAddr == "" {
		cfg.Store.RedisAddr = "localhost:6379"
	}
	if cfg.Store.BarTTL == 0 {
		cfg.Store.BarTTL = 10 * time.Minute
	}
	if cfg.Search.Debounce == 0 {
		cfg.Search.Debounce = 300 * time.Millisecond
	}
	if cfg.Search.Limit == 0 {
		cfg.Search.Limit = 8
	}
	if cfg.Dashboard.HTTPAddr == "" {
		cfg.Dashboard.HTTPAddr = ":8090"
	}
	if cfg.Dashboard.WarmupCron == "" {
		// Every 5 minutes on weekdays; off-session runs are skipped.
		cfg.Dashboard.WarmupCron = "0 */5 * * * 1-5"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	var errs error

	if !strings.HasPrefix(c.API.BaseURL, "http://") && !strings.HasPrefix(c.API.BaseURL, "https://") {
		errs = errors.Join(errs, fmt.Errorf("api.base_url must be an http(s) URL, got %q", c.API.BaseURL))
	}
	if c.API.Timeout < 0 || c.API.AnalysisTimeout < 0 {
		errs = errors.Join(errs, fmt.Errorf("api timeouts must be positive"))
	}
	switch c.Store.Kind {
	case "file", "sqlite":
		if c.Store.Path == "" {
			errs = errors.Join(errs, fmt.Errorf("store.path is required for the %s store", c.Store.Kind))
		}
	case "redis":
		if c.Store.RedisAddr == "" {
			errs = errors.Join(errs, fmt.Errorf("store.redis_addr is required for the redis store"))
		}
	case "memory":
	default:
		errs = errors.Join(errs, fmt.Errorf("store.kind must be file, sqlite, redis or memory, got %q", c.Store.Kind))
	}
	if c.Search.Limit < 1 {
		errs = errors.Join(errs, fmt.Errorf("search.limit must be at least 1"))
	}
	if c.Search.Debounce < 0 {
		errs = errors.Join(errs, fmt.Errorf("search.debounce cannot be negative"))
	}
	if u := c.Notify.WebhookURL; u != "" && !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		errs = errors.Join(errs, fmt.Errorf("notify.webhook_url must be an http(s) URL, got %q", u))
	}
	if (c.Notify.TelegramToken == "") != (c.Notify.TelegramChat == "") {
		errs = errors.Join(errs, fmt.Errorf("notify.telegram_token and notify.telegram_chat must be set together"))
	}

	return errs
}

func defaultStorePath(kind string) string {
	switch kind {
	case "sqlite":
		return "data/stockdash.db"
	case "file":
		if home, err := os.UserHomeDir(); err == nil {
			return home + "/.stockdash/state.json"
		}
		return "data/state.json"
	}
	return ""
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("[config] ignoring invalid %s %q", key, v)
		return
	}
	*dst = d
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
