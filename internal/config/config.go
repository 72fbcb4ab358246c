package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds everything the service reads from the environment.
// godotenv.Load() runs in main before this is built.
type Config struct {
	Port        string
	DatabaseURL string

	// RabbitMQ
	RabbitUser string
	RabbitPass string
	RabbitHost string
	RabbitPort string

	// Apollo
	ApolloAPIKey     string
	ApolloSequenceID string
	ApolloBaseURL    string

	// Slack
	SlackBotToken      string
	SlackSigningSecret string
	SlackChannelID     string

	// AI providers. Provider is the primary ("anthropic" or "gemini"),
	// the other one becomes the fallback if its key is configured.
	AIProvider      string
	AnthropicAPIKey string
	GeminiAPIKey    string

	// Shared secret with RepoRadar. Empty disables signature checks (dev only).
	WebhookSecret string

	// SMTP for ops alerts
	MailHost string
	MailPort int
	MailUser string
	MailPass string
	AlertTo  string

	RegenerateCap      int
	ContactCacheExpiry time.Duration
	EnrollClaimWindow  time.Duration
}

func Load() *Config {
	return &Config{
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		RabbitUser: getEnv("RABBITMQ_USER", "guest"),
		RabbitPass: getEnv("RABBITMQ_PASS", "guest"),
		RabbitHost: getEnv("RABBITMQ_HOST", "localhost"),
		RabbitPort: getEnv("RABBITMQ_PORT", "5672"),

		ApolloAPIKey:     os.Getenv("APOLLO_API_KEY"),
		ApolloSequenceID: os.Getenv("APOLLO_SEQUENCE_ID"),
		ApolloBaseURL:    getEnv("APOLLO_BASE_URL", "https://api.apollo.io/v1"),

		SlackBotToken:      os.Getenv("SLACK_BOT_TOKEN"),
		SlackSigningSecret: os.Getenv("SLACK_SIGNING_SECRET"),
		SlackChannelID:     os.Getenv("SLACK_CHANNEL_ID"),

		AIProvider:      getEnv("AI_PROVIDER", "anthropic"),
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		GeminiAPIKey:    os.Getenv("GEMINI_API_KEY"),

		WebhookSecret: os.Getenv("WEBHOOK_SECRET"),

		MailHost: os.Getenv("MAIL_HOST"),
		MailPort: getEnvInt("MAIL_PORT", 587),
		MailUser: os.Getenv("MAIL_USER"),
		MailPass: os.Getenv("MAIL_PASS"),
		AlertTo:  os.Getenv("ALERT_EMAIL_TO"),

		RegenerateCap:      getEnvInt("REGENERATE_CAP", 3),
		ContactCacheExpiry: time.Duration(getEnvInt("CONTACT_CACHE_DAYS", 7)) * 24 * time.Hour,
		EnrollClaimWindow:  time.Duration(getEnvInt("ENROLL_CLAIM_WINDOW_MIN", 15)) * time.Minute,
	}
}

// Validate returns the list of required keys that are missing. The service
// still boots with warnings so local dev without Slack/Apollo works.
func (c *Config) Validate() []string {
	var missing []string

	if c.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if c.ApolloAPIKey == "" {
		missing = append(missing, "APOLLO_API_KEY")
	}
	if c.ApolloSequenceID == "" {
		missing = append(missing, "APOLLO_SEQUENCE_ID")
	}
	if c.SlackBotToken == "" {
		missing = append(missing, "SLACK_BOT_TOKEN")
	}
	if c.SlackSigningSecret == "" {
		missing = append(missing, "SLACK_SIGNING_SECRET")
	}
	if c.SlackChannelID == "" {
		missing = append(missing, "SLACK_CHANNEL_ID")
	}

	if c.AIProvider == "anthropic" && c.AnthropicAPIKey == "" {
		missing = append(missing, "ANTHROPIC_API_KEY")
	}
	if c.AIProvider == "gemini" && c.GeminiAPIKey == "" {
		missing = append(missing, "GEMINI_API_KEY")
	}

	return missing
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
