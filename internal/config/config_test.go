package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("TG_TOKEN", "123:abc")
	t.Setenv("TG_CHAT_ID", "42")
	t.Setenv("TIMEZONE", "UTC")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "123:abc", cfg.Telegram.Token)
	assert.Equal(t, int64(42), cfg.Telegram.ChatID)
	assert.Equal(t, "/data/echo.db", cfg.Database.Path)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "gemini-3-flash-preview", cfg.Gemini.Model)
	assert.Equal(t, 20*time.Second, cfg.Gemini.Timeout)
	assert.Equal(t, 12, cfg.Gemini.RatePerMinute)
	assert.Equal(t, 5, cfg.Practice.DiscardThreshold)
	assert.Equal(t, time.Second, cfg.Practice.Tick)
	assert.False(t, cfg.AIEnabled())
}

func TestLoad_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("GEMINI_API_KEY", "key")
	t.Setenv("PRACTICE_DISCARD_THRESHOLD", "0")
	t.Setenv("PRACTICE_TICK", "250ms")
	t.Setenv("DB_PATH", "/tmp/echo.db")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.AIEnabled())
	assert.Equal(t, 0, cfg.Practice.DiscardThreshold)
	assert.Equal(t, 250*time.Millisecond, cfg.Practice.Tick)
	assert.Equal(t, "/tmp/echo.db", cfg.Database.Path)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"missing token", "TG_TOKEN", ""},
		{"bad chat id", "TG_CHAT_ID", "me"},
		{"negative threshold", "PRACTICE_DISCARD_THRESHOLD", "-1"},
		{"zero tick", "PRACTICE_TICK", "0s"},
		{"unknown zone", "TIMEZONE", "Mars/Olympus"},
		{"zero rate", "GEMINI_RATE_PER_MINUTE", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequired(t)
			t.Setenv(tt.key, tt.val)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestTimezone(t *testing.T) {
	t.Setenv("TG_TOKEN", "")
	t.Setenv("TIMEZONE", "Europe/Moscow")

	zone, err := Timezone()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Moscow", zone)

	t.Setenv("TIMEZONE", "Mars/Olympus")
	_, err = Timezone()
	assert.Error(t, err)
}
