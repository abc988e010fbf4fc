package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Env holds process-level settings read from the environment.
type Env struct {
	ConfigPath         string
	DataPath           string
	LogLevel           string
	Environment        string
	ArchiveDatabaseURL string // optional; empty disables the decision archive
	CronSpecDigest     string // daily admin digest
	CronSpecFlush      string // periodic snapshot flush safety net
}

// Load reads settings from environment variables and .env file (if
// present). godotenv does not override variables already set.
func Load() (*Env, error) {
	_ = godotenv.Load()

	cfg := &Env{}

	cfg.ConfigPath = os.Getenv("CONFIG_PATH")
	if cfg.ConfigPath == "" {
		cfg.ConfigPath = "config.json"
	}

	cfg.DataPath = os.Getenv("DATA_PATH")
	if cfg.DataPath == "" {
		cfg.DataPath = "data.json"
	}

	cfg.LogLevel = strings.ToLower(os.Getenv("LOG_LEVEL"))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	cfg.Environment = strings.ToLower(os.Getenv("ENVIRONMENT"))
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	cfg.ArchiveDatabaseURL = os.Getenv("ARCHIVE_DATABASE_URL")

	cfg.CronSpecDigest = os.Getenv("CRON_SPEC_DIGEST")
	if cfg.CronSpecDigest == "" {
		cfg.CronSpecDigest = "0 9 * * *" // 9 AM daily
	}

	cfg.CronSpecFlush = os.Getenv("CRON_SPEC_FLUSH")
	if cfg.CronSpecFlush == "" {
		cfg.CronSpecFlush = "*/10 * * * *" // every 10 minutes
	}

	return cfg, nil
}
