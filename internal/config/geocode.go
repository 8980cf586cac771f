package config

import "time"

// GeocodeConfig holds external geocode provider configuration.
type GeocodeConfig struct {
	BaseURL        string `validate:"required,url"`
	APIKey         string
	RequestTimeout time.Duration
}

func loadGeocodeConfig() GeocodeConfig {
	return GeocodeConfig{
		BaseURL:        getEnv("GEOCODE_BASE_URL", "https://maps.googleapis.com/maps/api/geocode/json"),
		APIKey:         getEnv("GEOCODE_API_KEY", ""),
		RequestTimeout: getEnvDuration("GEOCODE_REQUEST_TIMEOUT", 30*time.Second),
	}
}
