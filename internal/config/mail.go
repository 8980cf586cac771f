package config

// MailConfig holds SMTP configuration for the completion report. Mail is
// optional: an empty host disables report delivery.
type MailConfig struct {
	Host       string
	Port       int
	Username   string
	Password   string
	From       string
	FromName   string
	Recipients []string
	UseTLS     bool
}

// Enabled reports whether report mail is configured.
func (m MailConfig) Enabled() bool {
	return m.Host != "" && m.From != "" && len(m.Recipients) > 0
}

func loadMailConfig() MailConfig {
	return MailConfig{
		Host:       getEnv("SMTP_HOST", ""),
		Port:       getEnvInt("SMTP_PORT", 587),
		Username:   getEnv("SMTP_USERNAME", ""),
		Password:   getEnv("SMTP_PASSWORD", ""),
		From:       getEnv("SMTP_FROM", ""),
		FromName:   getEnv("SMTP_FROM_NAME", "Trial Importer"),
		Recipients: getEnvList("REPORT_RECIPIENTS", nil),
		UseTLS:     getEnv("SMTP_USE_TLS", "true") == "true",
	}
}
