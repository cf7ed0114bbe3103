package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config keeps runtime settings for the server.
type Config struct {
	HTTPAddr      string
	DatabaseURL   string
	AheadDays     int
	SweepInterval time.Duration
	CORSOrigins   []string
}

// Load reads configuration from environment variables with sane defaults.
func Load() (Config, error) {
	cfg := Config{
		HTTPAddr:      strings.TrimSpace(os.Getenv("HTTP_ADDR")),
		DatabaseURL:   strings.TrimSpace(os.Getenv("DATABASE_URL")),
		AheadDays:     parsePositiveInt(strings.TrimSpace(os.Getenv("GENERATE_AHEAD_DAYS"))),
		SweepInterval: parseInterval(strings.TrimSpace(os.Getenv("SWEEP_INTERVAL_HOURS"))),
		CORSOrigins:   splitList(os.Getenv("CORS_ORIGINS")),
	}

	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = "habit_tracker.db"
	}
	if cfg.AheadDays == 0 {
		cfg.AheadDays = 7
	}

	return cfg, nil
}

func parsePositiveInt(raw string) int {
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0
	}
	return n
}

// parseInterval treats an absent or invalid value as zero, which disables
// the background sweep.
func parseInterval(raw string) time.Duration {
	if raw == "" {
		return 0
	}
	hours, err := time.ParseDuration(raw + "h")
	if err != nil || hours <= 0 {
		return 0
	}
	return hours
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
