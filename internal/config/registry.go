package config

import "time"

// RegistryConfig holds upstream registry query configuration, including the
// operator-maintained allow/deny lists that drive both the search
// expression and the record filters.
type RegistryConfig struct {
	BaseURL  string `validate:"required,url"`
	PageSize int    `validate:"required,min=1"`

	// Allow/deny keyword and value sets. Allow-lists take precedence over
	// deny-lists when both are configured and conflict.
	AllowedConditions []string
	DeniedConditions  []string
	AllowedCountries  []string
	DeniedCountries   []string
	AllowedStatuses   []string `validate:"required,min=1"`
	LocationStatuses  []string
	Sponsor           string

	// ProtocolNames are the tokens matched against title parentheticals to
	// derive a trial's protocol name.
	ProtocolNames []string

	RequestTimeout time.Duration
	MaxRetries     int
	RetryBackoff   time.Duration
}

func loadRegistryConfig() RegistryConfig {
	return RegistryConfig{
		BaseURL:           getEnv("REGISTRY_BASE_URL", "https://clinicaltrials.gov/api/query"),
		PageSize:          getEnvInt("REGISTRY_PAGE_SIZE", 30),
		AllowedConditions: getEnvList("REGISTRY_ALLOWED_CONDITIONS", nil),
		DeniedConditions:  getEnvList("REGISTRY_DENIED_CONDITIONS", nil),
		AllowedCountries:  getEnvList("REGISTRY_ALLOWED_COUNTRIES", nil),
		DeniedCountries:   getEnvList("REGISTRY_DENIED_COUNTRIES", nil),
		AllowedStatuses:   getEnvList("REGISTRY_ALLOWED_STATUSES", []string{"Recruiting", "Active, not recruiting"}),
		LocationStatuses:  getEnvList("REGISTRY_LOCATION_STATUSES", []string{"Recruiting"}),
		Sponsor:           getEnv("REGISTRY_SPONSOR", ""),
		ProtocolNames:     getEnvList("REGISTRY_PROTOCOL_NAMES", nil),
		RequestTimeout:    getEnvDuration("REGISTRY_REQUEST_TIMEOUT", 60*time.Second),
		MaxRetries:        getEnvInt("REGISTRY_MAX_RETRIES", 5),
		RetryBackoff:      getEnvDuration("REGISTRY_RETRY_BACKOFF", time.Second),
	}
}
