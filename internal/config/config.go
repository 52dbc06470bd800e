package config

import (
	"os"
	"time"
)

type Config struct {
	Addr       string
	DBPath     string
	SessionTTL time.Duration
}

// Load reads configuration from the environment, falling back to
// development defaults. Callers load .env beforehand if they want one.
func Load() Config {
	cfg := Config{
		Addr:       ":8080",
		DBPath:     "./data/blog.db",
		SessionTTL: 24 * time.Hour,
	}
	if p := os.Getenv("PORT"); p != "" {
		cfg.Addr = ":" + p
	}
	if p := os.Getenv("DB_PATH"); p != "" {
		cfg.DBPath = p
	}
	if v := os.Getenv("SESSION_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.SessionTTL = d
		}
	}
	return cfg
}
