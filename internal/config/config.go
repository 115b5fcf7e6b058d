// Package config содержит логику чтения конфигурации сервиса заказа обедов.
package config

import (
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/mmeshcher/comedor/internal/clock"
)

// Config содержит параметры конфигурации сервиса.
type Config struct {
	RunAddress            string        `env:"RUN_ADDRESS"`
	DatabaseURI           string        `env:"DATABASE_URI"`
	AuthSecret            string        `env:"AUTH_SECRET"`
	BusinessTimezone      string        `env:"BUSINESS_TIMEZONE"`
	RolloverWeekday       string        `env:"ROLLOVER_WEEKDAY"`
	RolloverCheckInterval time.Duration `env:"ROLLOVER_CHECK_INTERVAL"`
	ManualCloseFromHour   int           `env:"MANUAL_CLOSE_FROM_HOUR"`
	AdminLogin            string        `env:"ADMIN_LOGIN"`
	AdminPassword         string        `env:"ADMIN_PASSWORD"`
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
// Переменные окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	cfg := &Config{}

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.AuthSecret, "s", "", "secret for signing auth cookies")
	flag.StringVar(&cfg.BusinessTimezone, "tz", clock.DefaultZone, "IANA timezone of the cafeteria")
	flag.StringVar(&cfg.RolloverWeekday, "rollover-day", "saturday", "weekday of the automatic weekly close-out")
	flag.DurationVar(&cfg.RolloverCheckInterval, "rollover-interval", time.Minute, "how often the close-out schedule is checked")
	flag.IntVar(&cfg.ManualCloseFromHour, "close-hour", 14, "earliest local hour for a manual close-out")
	flag.StringVar(&cfg.AdminLogin, "admin-login", "", "login of the bootstrap administrator")
	flag.StringVar(&cfg.AdminPassword, "admin-password", "", "password of the bootstrap administrator")

	flag.Parse()

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}
	if cfg.BusinessTimezone == "" {
		cfg.BusinessTimezone = clock.DefaultZone
	}

	if _, err := cfg.Weekday(); err != nil {
		return nil, err
	}
	if cfg.RolloverCheckInterval <= 0 {
		return nil, fmt.Errorf("rollover check interval must be positive, got %s", cfg.RolloverCheckInterval)
	}
	if cfg.ManualCloseFromHour < 0 || cfg.ManualCloseFromHour > 23 {
		return nil, fmt.Errorf("manual close hour must be within [0, 23], got %d", cfg.ManualCloseFromHour)
	}

	return cfg, nil
}

// Weekday возвращает день недели автоматического закрытия.
func (c *Config) Weekday() (time.Weekday, error) {
	d, ok := weekdays[strings.ToLower(strings.TrimSpace(c.RolloverWeekday))]
	if !ok {
		return 0, fmt.Errorf("unknown rollover weekday %q", c.RolloverWeekday)
	}
	return d, nil
}
