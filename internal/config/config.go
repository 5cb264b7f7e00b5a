package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string
	// LogFormat selects the slog handler: "json" or "text".
	LogFormat string

	// Storage backends
	SessionStore  string // memory, redis, postgres, dynamodb
	LeadStore     string // memory, postgres, sqlite
	SQLitePath    string
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool
	SessionTTL    time.Duration
	SessionsTable string

	// Conversation engine
	HistoryWindow  int
	ResponderMode  string // templated, delegated
	KnowledgeFile  string
	LLMProvider    string // bedrock, gemini
	BedrockModelID string
	GeminiAPIKey   string
	GeminiModelID  string
	LLMMaxTokens   int
	LLMTemperature float64
	LLMTimeout     time.Duration

	// LLMFallbackProvider is tried when the primary provider errors.
	LLMFallbackProvider string

	// Lead notification email
	EmailProvider  string // sendgrid, ses, stub
	SendGridAPIKey string
	EmailFrom      string
	EmailFromName  string
	AdminEmail     string

	// AWS
	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	// HTTP
	CORSAllowedOrigins []string
	ChatRateLimitRPS   float64
	ChatRateLimitBurst int
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:      getEnv("PORT", "5000"),
		Env:       getEnv("ENV", "development"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: strings.ToLower(getEnv("LOG_FORMAT", "json")),

		SessionStore:  strings.ToLower(strings.TrimSpace(getEnv("SESSION_STORE", "memory"))),
		LeadStore:     strings.ToLower(strings.TrimSpace(getEnv("LEAD_STORE", "memory"))),
		SQLitePath:    getEnv("SQLITE_PATH", "data/leads.db"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),
		SessionTTL:    getEnvAsDuration("SESSION_TTL", 30*24*time.Hour),
		SessionsTable: getEnv("SESSIONS_TABLE", "chat_sessions"),

		HistoryWindow:  getEnvAsInt("HISTORY_WINDOW", 10),
		ResponderMode:  strings.ToLower(strings.TrimSpace(getEnv("RESPONDER_MODE", "delegated"))),
		KnowledgeFile:  getEnv("KNOWLEDGE_FILE", ""),
		LLMProvider:    strings.ToLower(strings.TrimSpace(getEnv("LLM_PROVIDER", "bedrock"))),
		BedrockModelID: getEnv("BEDROCK_MODEL_ID", ""),

		LLMFallbackProvider: strings.ToLower(strings.TrimSpace(getEnv("LLM_FALLBACK_PROVIDER", ""))),
		GeminiAPIKey:        getEnv("GEMINI_API_KEY", ""),
		GeminiModelID:       getEnv("GEMINI_MODEL_ID", "gemini-2.5-flash"),
		LLMMaxTokens:        getEnvAsInt("LLM_MAX_TOKENS", 400),
		LLMTemperature:      getEnvAsFloat("LLM_TEMPERATURE", 0.7),
		LLMTimeout:          getEnvAsDuration("LLM_TIMEOUT", 20*time.Second),

		EmailProvider:  strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", "stub"))),
		SendGridAPIKey: getEnv("SENDGRID_API_KEY", ""),
		EmailFrom:      getEnv("EMAIL_FROM", ""),
		EmailFromName:  getEnv("EMAIL_FROM_NAME", "UrbanHaven Chatbot"),
		AdminEmail:     getEnv("ADMIN_EMAIL", ""),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		ChatRateLimitRPS:   getEnvAsFloat("CHAT_RATE_LIMIT_RPS", 2),
		ChatRateLimitBurst: getEnvAsInt("CHAT_RATE_LIMIT_BURST", 10),
	}
}

// NotificationRecipient is where new-lead emails go. Falls back to the sender
// address when no admin address is configured.
func (c *Config) NotificationRecipient() string {
	if strings.TrimSpace(c.AdminEmail) != "" {
		return c.AdminEmail
	}
	return c.EmailFrom
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma-separated variable, dropping blank entries.
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
