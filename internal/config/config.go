package config

import (
	"os"
	"strconv"
)

// Config carries all environment-derived settings. Load once in main and
// pass explicitly; nothing reads the environment after startup.
type Config struct {
	Port        string
	Environment string
	DatabaseURL string
	CORSOrigins string
	JWKSURL     string
	TablePrefix string

	// LLM configuration
	AnthropicAPIKey string
	DefaultProvider string
	LLMModel        string
	LLMTemperature  float64
	LLMMaxTokens    int
	LLMTimeoutSecs  int

	// Turn engine
	MaxToolRounds      int
	HistoryRecentTurns int
	RecentEventsCap    int
	WorldFactsCap      int
	PromptsDir         string

	// Debug flags
	Debug bool
}

func Load() *Config {
	env := getEnv("ENVIRONMENT", "dev")

	return &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: env,
		DatabaseURL: getEnv("DATABASE_URL", ""),
		CORSOrigins: getEnv("CORS_ORIGINS", "http://localhost:3000"),
		JWKSURL:     getEnv("JWKS_URL", ""),
		TablePrefix: getTablePrefix(env),

		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		DefaultProvider: getEnv("DEFAULT_PROVIDER", "anthropic"),
		LLMModel:        getEnv("LLM_MODEL", "claude-haiku-4-5-20251001"),
		LLMTemperature:  getEnvFloat("LLM_TEMPERATURE", 0.7),
		LLMMaxTokens:    getEnvInt("LLM_MAX_TOKENS", 800),
		LLMTimeoutSecs:  getEnvInt("LLM_TIMEOUT_SECONDS", 60),

		MaxToolRounds:      getEnvInt("MAX_TOOL_ROUNDS", 5),
		HistoryRecentTurns: getEnvInt("HISTORY_RECENT_TURNS", 5),
		RecentEventsCap:    getEnvInt("WORLD_RECENT_EVENTS_CAP", 12),
		WorldFactsCap:      getEnvInt("WORLD_FACTS_CAP", 50),
		PromptsDir:         getEnv("PROMPTS_DIR", ""),

		Debug: getEnv("DEBUG", getDefaultDebug(env)) == "true",
	}
}

// getDefaultDebug returns the default debug setting based on environment
func getDefaultDebug(env string) string {
	if env == "prod" {
		return "false"
	}
	return "true"
}

// getTablePrefix returns the table prefix based on environment
func getTablePrefix(env string) string {
	if prefix := os.Getenv("TABLE_PREFIX"); prefix != "" {
		return prefix
	}

	switch env {
	case "prod":
		return "prod_"
	case "test":
		return "test_"
	default:
		return "dev_"
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
