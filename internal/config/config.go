package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Telegram struct {
		Token  string `env:"TG_TOKEN,required,notEmpty"`
		ChatID int64  `env:"TG_CHAT_ID,required,notEmpty"`
	}
	Database struct {
		Path string `env:"DB_PATH" envDefault:"/data/echo.db"`
	}
	Timezone string `env:"TIMEZONE" envDefault:"Asia/Shanghai"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	Gemini   struct {
		APIKey        string        `env:"GEMINI_API_KEY"`
		Model         string        `env:"GEMINI_MODEL" envDefault:"gemini-3-flash-preview"`
		Timeout       time.Duration `env:"GEMINI_TIMEOUT" envDefault:"20s"`
		RatePerMinute int           `env:"GEMINI_RATE_PER_MINUTE" envDefault:"12"`
	}
	Practice struct {
		DiscardThreshold int           `env:"PRACTICE_DISCARD_THRESHOLD" envDefault:"5"`
		Tick             time.Duration `env:"PRACTICE_TICK" envDefault:"1s"`
	}
}

// zoneConfig нужен командам, которым не требуется токен бота
type zoneConfig struct {
	Timezone string `env:"TIMEZONE" envDefault:"Asia/Shanghai"`
}

func loadDotEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("❌ ошибка чтения .env: %w", err)
	}
	return nil
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("❌ ошибка переменных окружения: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Practice.DiscardThreshold < 0 {
		return fmt.Errorf("❌ PRACTICE_DISCARD_THRESHOLD не может быть отрицательным: %d", c.Practice.DiscardThreshold)
	}
	if c.Practice.Tick <= 0 {
		return fmt.Errorf("❌ PRACTICE_TICK должен быть больше нуля: %s", c.Practice.Tick)
	}
	if c.Gemini.Timeout <= 0 {
		return fmt.Errorf("❌ GEMINI_TIMEOUT должен быть больше нуля: %s", c.Gemini.Timeout)
	}
	if c.Gemini.RatePerMinute <= 0 {
		return fmt.Errorf("❌ GEMINI_RATE_PER_MINUTE должен быть больше нуля: %d", c.Gemini.RatePerMinute)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("❌ неверный TIMEZONE %q: %w", c.Timezone, err)
	}
	return nil
}

// Timezone returns TIMEZONE from .env or the environment without
// requiring the rest of the bot configuration.
func Timezone() (string, error) {
	if err := loadDotEnv(); err != nil {
		return "", err
	}

	zc, err := env.ParseAs[zoneConfig]()
	if err != nil {
		return "", fmt.Errorf("❌ ошибка переменных окружения: %w", err)
	}
	if _, err := time.LoadLocation(zc.Timezone); err != nil {
		return "", fmt.Errorf("❌ неверный TIMEZONE %q: %w", zc.Timezone, err)
	}
	return zc.Timezone, nil
}

// AIEnabled reports whether a Gemini key is configured.
func (c *Config) AIEnabled() bool {
	return c.Gemini.APIKey != ""
}
