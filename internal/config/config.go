package config

import (
	"log/slog"
	"os"
	"strings"
	"time"
)

// Provider names for the story generator.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

type Config struct {
	Port        string
	Environment string
	LogLevel    slog.Level

	RedisURL   string
	DataDir    string
	SessionTTL time.Duration

	GeneratorProvider string
	ModelName         string
	GeminiAPIKey      string
	OpenAIAPIKey      string
	OpenAIBaseURL     string // empty = api.openai.com
}

func Load() *Config {
	return &Config{
		Port:              getEnv("PORT", "8080"),
		Environment:       getEnv("ENVIRONMENT", "development"),
		LogLevel:          parseLogLevel(getEnv("LOG_LEVEL", "info")),
		RedisURL:          getEnv("REDIS_URL", "localhost:6379"),
		DataDir:           getEnv("DATA_DIR", "./data"),
		SessionTTL:        parseDuration(getEnv("SESSION_TTL", "24h")),
		GeneratorProvider: getEnv("GENERATOR_PROVIDER", ProviderGemini),
		ModelName:         getEnv("MODEL_NAME", "gemini-pro"),
		GeminiAPIKey:      getEnv("GEMINI_API_KEY", ""),
		OpenAIAPIKey:      getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:     getEnv("OPENAI_BASE_URL", ""),
	}
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func parseDuration(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 24 * time.Hour
	}
	return d
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
