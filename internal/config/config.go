package config

import (
	"os"
	"strconv"
)

type Config struct {
	DBDriver      string
	DBHost        string
	DBPort        string
	DBUser        string
	DBPassword    string
	DBName        string
	RedisHost     string
	RedisPort     string
	SessionSecret string
	GinMode       string
	Port          string
	AppURL        string

	// AI collaborators
	AIProvider      string
	AIModel         string
	OpenAIAPIKey    string
	AnthropicAPIKey string
	AIRatePerMinute int
	MonitorWorkers  int

	// Email delivery
	BrevoAPIKey      string
	BrevoSenderEmail string
	BrevoSenderName  string
	NotifyWorkers    int
	NotifyQueueSize  int
}

func Load() *Config {
	return &Config{
		DBDriver:      getEnv("DB_DRIVER", "postgres"),
		DBHost:        getEnv("DB_HOST", "localhost"),
		DBPort:        getEnv("DB_PORT", "5432"),
		DBUser:        getEnv("DB_USER", "taskuser"),
		DBPassword:    getEnv("DB_PASSWORD", "taskpassword"),
		DBName:        getEnv("DB_NAME", "auratask"),
		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		SessionSecret: getEnv("SESSION_SECRET", "default-secret-key-change-me"),
		GinMode:       getEnv("GIN_MODE", "debug"),
		Port:          getEnv("PORT", "8080"),
		AppURL:        getEnv("APP_URL", "http://localhost:3000"),

		AIProvider:      getEnv("AI_PROVIDER", "openai"),
		AIModel:         getEnv("AI_MODEL", ""),
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		AIRatePerMinute: getEnvInt("AI_RATE_PER_MINUTE", 10),
		MonitorWorkers:  getEnvInt("MONITOR_CONCURRENCY", 4),

		BrevoAPIKey:      getEnv("BREVO_API_KEY", ""),
		BrevoSenderEmail: getEnv("BREVO_SENDER_EMAIL", "noreply@auratask.com"),
		BrevoSenderName:  getEnv("BREVO_SENDER_NAME", "AuraTask"),
		NotifyWorkers:    getEnvInt("NOTIFY_WORKERS", 2),
		NotifyQueueSize:  getEnvInt("NOTIFY_QUEUE_SIZE", 100),
	}
}

// AIEnabled reports whether the configured provider has credentials.
func (c *Config) AIEnabled() bool {
	switch c.AIProvider {
	case "anthropic":
		return c.AnthropicAPIKey != ""
	default:
		return c.OpenAIAPIKey != ""
	}
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
	if err != nil || n <= 0 {
		return defaultValue
	}
	return n
}
