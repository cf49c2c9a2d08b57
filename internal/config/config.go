package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Port    string
	DataDir string

	// Templates (keyword groups, fallback texts, schedule)
	TemplatesPath   string // optional YAML file; built-in packs when empty
	DefaultLanguage string
	Timezone        string

	// Generation backend (OpenAI-compatible). Leaving the API key empty
	// disables the generation tier; keyword and fallback tiers still work.
	GenBaseURL     string
	GenAPIKey      string
	GenModel       string
	GenTimeout     time.Duration
	GenTemperature float64
	GenRateLimit   float64 // outbound requests per second

	// Retrieval collaborator
	RetrievalURL      string // empty disables grounding
	RetrievalTimeout  time.Duration
	RetrievalCacheTTL time.Duration

	// Session store
	SessionBackend     string // "file" or "sqlite"
	SessionIdleTimeout time.Duration
	SessionMaxMessages int
	ContextWindowSize  int

	// Circuit breaker
	BreakerThreshold int
	BreakerRecovery  time.Duration

	// Error ledger
	LedgerRetentionDays int
}

// Load loads configuration from environment variables with defaults
func Load() *Config {
	return &Config{
		Port:    getEnv("PORT", "3002"),
		DataDir: getEnv("DATA_DIR", "./data"),

		TemplatesPath:   getEnv("TEMPLATES_PATH", ""),
		DefaultLanguage: getEnv("DEFAULT_LANGUAGE", "ukr"),
		Timezone:        getEnv("BUSINESS_TIMEZONE", "Europe/Kyiv"),

		GenBaseURL:     getEnv("GEN_BASE_URL", "https://api.openai.com/v1"),
		GenAPIKey:      getEnv("GEN_API_KEY", ""),
		GenModel:       getEnv("GEN_MODEL", "gpt-4o-mini"),
		GenTimeout:     getSecondsEnv("GEN_TIMEOUT_SECONDS", 30*time.Second),
		GenTemperature: getFloatEnv("GEN_TEMPERATURE", 0.3),
		GenRateLimit:   getFloatEnv("GEN_RATE_LIMIT", 2),

		RetrievalURL:      getEnv("RETRIEVAL_URL", ""),
		RetrievalTimeout:  getSecondsEnv("RETRIEVAL_TIMEOUT_SECONDS", 10*time.Second),
		RetrievalCacheTTL: getSecondsEnv("RETRIEVAL_CACHE_TTL_SECONDS", 5*time.Minute),

		SessionBackend:     getEnv("SESSION_BACKEND", "file"),
		SessionIdleTimeout: time.Duration(getIntEnv("SESSION_IDLE_HOURS", 24)) * time.Hour,
		SessionMaxMessages: getIntEnv("SESSION_MAX_MESSAGES", 100),
		ContextWindowSize:  getIntEnv("CONTEXT_WINDOW_SIZE", 6),

		BreakerThreshold: getIntEnv("BREAKER_FAILURE_THRESHOLD", 5),
		BreakerRecovery:  getSecondsEnv("BREAKER_RECOVERY_SECONDS", 60*time.Second),

		LedgerRetentionDays: getIntEnv("LEDGER_RETENTION_DAYS", 30),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseFloat(value, 64)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getSecondsEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err == nil && parsed > 0 {
			return time.Duration(parsed) * time.Second
		}
	}
	return defaultValue
}
