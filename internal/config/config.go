// Package config loads go-jobs settings from a .env file, an optional YAML
// file and the environment, in that order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	APIURL            string        `yaml:"api_url"`
	RequestTimeout    time.Duration `yaml:"request_timeout"`
	RedisURL          string        `yaml:"redis_url"`
	CacheTTL          time.Duration `yaml:"cache_ttl"`
	TelegramToken     string        `yaml:"telegram_token"`
	TelegramChatID    string        `yaml:"telegram_chat_id"`
	DiscordWebhookURL string        `yaml:"discord_webhook_url"`
	ImportURL         string        `yaml:"import_url"`
	ImportConcurrency int           `yaml:"import_concurrency"`
	LogLevel          string        `yaml:"log_level"`
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		APIURL:            "http://localhost:4000",
		RequestTimeout:    10 * time.Second,
		CacheTTL:          2 * time.Minute,
		ImportURL:         "https://www.actuarylist.com",
		ImportConcurrency: 4,
		LogLevel:          "info",
	}
}

// Load builds the configuration. A missing envFile is ignored; yamlPath is
// optional, but when given the file must exist.
func Load(envFile, yamlPath string) (Config, error) {
	cfg := Default()

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return cfg, fmt.Errorf("config: loading %s: %w", envFile, err)
		}
	}

	if yamlPath != "" {
		data, err := os.ReadFile(filepath.Clean(yamlPath))
		if err != nil {
			return cfg, fmt.Errorf("config: reading %s: %w", yamlPath, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parsing %s: %w", yamlPath, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	dur := func(key string, dst *time.Duration) error {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return nil
		}
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("config: %s: %w", key, err)
		}
		*dst = d
		return nil
	}

	str("JOBS_API_URL", &c.APIURL)
	str("REDIS_URL", &c.RedisURL)
	str("TELEGRAM_TOKEN", &c.TelegramToken)
	str("TELEGRAM_CHAT_ID", &c.TelegramChatID)
	str("DISCORD_WEBHOOK_URL", &c.DiscordWebhookURL)
	str("IMPORT_URL", &c.ImportURL)
	str("LOG_LEVEL", &c.LogLevel)

	if err := dur("REQUEST_TIMEOUT", &c.RequestTimeout); err != nil {
		return err
	}
	if err := dur("CACHE_TTL", &c.CacheTTL); err != nil {
		return err
	}
	if v, ok := lookup("IMPORT_CONCURRENCY"); ok && strings.TrimSpace(v) != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("config: IMPORT_CONCURRENCY: %w", err)
		}
		c.ImportConcurrency = n
	}
	return nil
}

// Validate checks the settings that would otherwise fail on first use.
func (c Config) Validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil || !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("config: api url %q must be an absolute http(s) URL", c.APIURL)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("config: request timeout must be positive, got %s", c.RequestTimeout)
	}
	if c.RedisURL != "" && c.CacheTTL <= 0 {
		return fmt.Errorf("config: cache ttl must be positive when redis is enabled")
	}
	if (c.TelegramToken == "") != (c.TelegramChatID == "") {
		return errors.New("config: telegram needs both token and chat id")
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// TelegramEnabled reports whether the Telegram share target is configured.
func (c Config) TelegramEnabled() bool {
	return c.TelegramToken != "" && c.TelegramChatID != ""
}

// ParseLevel maps debug, info, warn and error to slog levels. Empty means info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("config: unknown log level %q", s)
	}
}
