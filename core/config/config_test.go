package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{Telegram: TelegramConfig{Token: "t", AdminIDs: []int64{42}}}
}

func TestNormalizeDefaults(t *testing.T) {
	cfg := validConfig()
	cfg.Telegram.RunMode = " Polling "
	cfg.RateLimit.ExcludeUpdates = []string{" Callback ", ""}

	require.NoError(t, Normalize(&cfg))
	assert.Equal(t, RunModeLongpoll, cfg.Telegram.RunMode)
	assert.Equal(t, "callback", cfg.RateLimit.ExcludeUpdates[0])
}

func TestNormalizeRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing token", func(c *Config) { c.Telegram.Token = "" }},
		{"no admins", func(c *Config) { c.Telegram.AdminIDs = nil }},
		{"zero admin", func(c *Config) { c.Telegram.AdminIDs = []int64{0} }},
		{"unknown mode", func(c *Config) { c.Telegram.RunMode = "push" }},
		{"webhook without url", func(c *Config) { c.Telegram.RunMode = RunModeWebhook }},
		{"negative timeout", func(c *Config) { c.Telegram.LongPollTimeoutSeconds = -1 }},
		{"bad exclusion", func(c *Config) { c.RateLimit.ExcludeUpdates = []string{"inline_query"} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			assert.Error(t, Normalize(&cfg))
		})
	}
	assert.Error(t, Normalize(nil))
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yml := "telegram:\n  token: from-file\n  admin_ids: [1, 2]\nlogging:\n  level: debug\n"
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o600))

	t.Setenv("BOT_TOKEN", "from-env")
	t.Setenv("TELEGRAM_ADMIN_IDS", "7,8,9")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Telegram.Token)
	assert.Equal(t, []int64{7, 8, 9}, cfg.Telegram.AdminIDs)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, RunModeLongpoll, cfg.Telegram.RunMode)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
