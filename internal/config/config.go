package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
)

const (
	DefaultTimezone  = "America/New_York"
	DefaultResetHour = 5
)

type AppConfig struct {
	HTTPAddr string
	WSAddr   string

	RedisURL    string
	DatabaseURL string

	Timezone       string
	DailyResetHour int

	LeaderboardMaxEntries int
	DailyTTLSec           int
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		HTTPAddr:              ":8080",
		WSAddr:                ":8081",
		Timezone:              DefaultTimezone,
		DailyResetHour:        DefaultResetHour,
		LeaderboardMaxEntries: 100,
		DailyTTLSec:           172800,
	}

	if v := strings.TrimSpace(os.Getenv("HTTP_ADDR")); v != "" {
		cfg.HTTPAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("WS_ADDR")); v != "" {
		cfg.WSAddr = v
	}

	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))

	if v := strings.TrimSpace(os.Getenv("TIMEZONE")); v != "" {
		cfg.Timezone = v
	}
	if v := strings.TrimSpace(os.Getenv("DAILY_RESET_HOUR")); v != "" {
		// out-of-range values fall back to the default instead of failing startup
		if n, err := strconv.Atoi(v); err == nil && n >= 0 && n <= 23 {
			cfg.DailyResetHour = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("LB_MAX_ENTRIES")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.LeaderboardMaxEntries = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("LB_DAILY_TTL")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 172800 {
			cfg.DailyTTLSec = n
		}
	}

	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}

	return cfg, nil
}
