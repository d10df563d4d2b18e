// Package config loads the service configuration from environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	ServerAddr string `env:"SERVER_ADDR" envDefault:":8080"`

	DatabaseDriver    string        `env:"DATABASE_DRIVER" envDefault:"postgres"`
	DatabaseURL       string        `env:"DATABASE_URL,required,notEmpty"`
	DBMaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" envDefault:"20"`
	DBMaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" envDefault:"10"`
	DBConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"1h"`
	SeedData          bool          `env:"SEED_DATA" envDefault:"false"`

	// CheckoutPeriod is how long books are lent for; due dates are truncated to a day.
	CheckoutPeriod time.Duration `env:"CHECKOUT_PERIOD" envDefault:"336h"`

	ReminderPeriod     time.Duration `env:"REMINDER_PERIOD" envDefault:"24h"`
	ReminderWindowDays int           `env:"REMINDER_WINDOW_DAYS" envDefault:"2"`

	// MailInterval is the minimum gap between two outgoing notifications.
	MailInterval time.Duration `env:"MAIL_INTERVAL" envDefault:"1s"`

	// OTLPEndpoint is the collector URL, e.g. http://collector:4318. Trace
	// export is off when empty.
	OTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
}

// Load parses the environment into a Config and checks it for consistency.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.DatabaseDriver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("unsupported DATABASE_DRIVER %q", c.DatabaseDriver)
	}
	if c.CheckoutPeriod < 24*time.Hour {
		return fmt.Errorf("CHECKOUT_PERIOD must be at least one day, got %s", c.CheckoutPeriod)
	}
	if c.ReminderPeriod <= 0 {
		return fmt.Errorf("REMINDER_PERIOD must be positive, got %s", c.ReminderPeriod)
	}
	if c.ReminderWindowDays < 1 {
		return fmt.Errorf("REMINDER_WINDOW_DAYS must be at least 1, got %d", c.ReminderWindowDays)
	}
	return nil
}
