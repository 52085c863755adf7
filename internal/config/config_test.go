package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"JOBS_API_URL", "REQUEST_TIMEOUT", "REDIS_URL", "CACHE_TTL", "TELEGRAM_TOKEN",
	"TELEGRAM_CHAT_ID", "DISCORD_WEBHOOK_URL", "IMPORT_URL", "IMPORT_CONCURRENCY", "LOG_LEVEL",
}

// clearEnv empties every key this package reads for the duration of t.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"), "")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	require.NoError(t, cfg.Validate())
}

func TestLoadPrecedence(t *testing.T) {
	clearEnv(t)

	envFile := writeFile(t, ".env", "JOBS_API_URL=http://from-dotenv:4000\nCACHE_TTL=30s\n")
	yamlFile := writeFile(t, "go-jobs.yaml", `
api_url: http://from-yaml:4000
request_timeout: 3s
redis_url: redis://localhost:6379/0
import_concurrency: 8
log_level: debug
`)
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load(envFile, yamlFile)
	require.NoError(t, err)

	// .env only fills variables that are unset, and the environment beats YAML.
	assert.Equal(t, "http://from-dotenv:4000", cfg.APIURL)
	assert.Equal(t, 30*time.Second, cfg.CacheTTL)
	assert.Equal(t, 3*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "redis://localhost:6379/0", cfg.RedisURL)
	assert.Equal(t, 8, cfg.ImportConcurrency)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestLoadErrors(t *testing.T) {
	clearEnv(t)

	_, err := Load("", filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)

	bad := writeFile(t, "bad.yaml", "api_url: [unterminated\n")
	_, err = Load("", bad)
	require.Error(t, err)

	t.Setenv("REQUEST_TIMEOUT", "soon")
	_, err = Load("", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REQUEST_TIMEOUT")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "https", mutate: func(c *Config) { c.APIURL = "https://jobs.example.com/api" }},
		{name: "relative url", mutate: func(c *Config) { c.APIURL = "/jobs" }, wantErr: true},
		{name: "ftp url", mutate: func(c *Config) { c.APIURL = "ftp://jobs.example.com" }, wantErr: true},
		{name: "zero timeout", mutate: func(c *Config) { c.RequestTimeout = 0 }, wantErr: true},
		{name: "redis without ttl", mutate: func(c *Config) { c.RedisURL = "redis://x"; c.CacheTTL = 0 }, wantErr: true},
		{name: "half telegram", mutate: func(c *Config) { c.TelegramToken = "t" }, wantErr: true},
		{name: "bad level", mutate: func(c *Config) { c.LogLevel = "loud" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			if tt.wantErr {
				assert.Error(t, cfg.Validate())
			} else {
				assert.NoError(t, cfg.Validate())
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("DEBUG")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, lvl)

	lvl, err = ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, lvl)

	_, err = ParseLevel("verbose")
	assert.Error(t, err)
}
