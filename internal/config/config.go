package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	BotToken   string `envconfig:"BOT_TOKEN" required:"true"`
	DBPath     string `envconfig:"DB_PATH" default:"./data/okusuri.db"`
	Timezone   string `envconfig:"TZ_NAME" default:"Asia/Tokyo"` // IANA zone used for schedule matching
	LogLevel   string `envconfig:"LOG_LEVEL" default:"info"`     // debug|info|warn|error
	HTTPAddr   string `envconfig:"HTTP_ADDR" default:":8080"`
	AppBaseURL string `envconfig:"APP_BASE_URL" default:"https://okusuri.dokkiitech.com"`

	// Notification templates and tuning.
	ReminderTitle     string        `envconfig:"REMINDER_TITLE" default:"服薬リマインダー"`
	ReminderBody      string        `envconfig:"REMINDER_BODY" default:"お薬を飲む時間です"`
	LowStockThreshold float64       `envconfig:"LOW_STOCK_THRESHOLD_DAYS" default:"10"`
	SendTimeout       time.Duration `envconfig:"SEND_TIMEOUT" default:"10s"`
}

// Load reads environment variables into Config.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, err
	}
	if cfg.LowStockThreshold <= 0 {
		return cfg, fmt.Errorf("LOW_STOCK_THRESHOLD_DAYS must be positive, got %v", cfg.LowStockThreshold)
	}
	return cfg, nil
}

// Location resolves the configured timezone. Schedule matching must never
// fall back to the host's local zone.
func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}
