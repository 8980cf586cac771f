package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/trialsite/trial-importer/internal/errors"
)

// Config is the top-level service configuration, loaded from the
// environment.
type Config struct {
	Port               string `validate:"required"`
	DBConnectionString string `validate:"required"`
	CronSpec           string `validate:"required"`

	Registry RegistryConfig `validate:"required"`
	Geocode  GeocodeConfig  `validate:"required"`
	Mail     MailConfig
	Import   ImportConfig `validate:"required"`
}

// Load reads configuration from the environment with defaults and
// validates it. Invalid configuration is a config error: nothing
// downstream can proceed without it.
func Load() (*Config, error) {
	cfg := &Config{
		Port:               getEnv("PORT", "8080"),
		DBConnectionString: getEnv("DB_CONNECTION_STRING", ""),
		CronSpec:           getEnv("IMPORT_CRON", "0 3 * * 0"),
		Registry:           loadRegistryConfig(),
		Geocode:            loadGeocodeConfig(),
		Mail:               loadMailConfig(),
		Import:             loadImportConfig(),
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, apperrors.NewConfigError("invalid configuration", err)
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}

// getEnvList reads a comma-separated env value into a trimmed slice.
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
