package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port string
	Env  string

	// Database
	DatabaseURL string
	DBMaxConns  int
	DBMinConns  int

	// Redis
	RedisURL      string
	RedisPoolSize int

	// JWT
	JWTSecret string

	// OpenRouter LLM provider
	OpenRouterAPIKey  string
	OpenRouterBaseURL string
	LLMModel          string
	LLMConcurrentReqs int

	// Context budgeting
	DefaultContextTokens int
	ContextBufferTokens  int

	// Workers
	WorkerCount int

	// Kafka (empty brokers disables the publisher)
	KafkaBrokers []string
	KafkaTopic   string

	// RabbitMQ (empty URL disables the publisher)
	RabbitMQURL   string
	RabbitMQQueue string

	// API limits
	RateLimitPerMinute int
	MaxMessageChars    int

	// Frontend
	FrontendURL string
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	cfg := &Config{
		Port:        getEnvOrDefault("PORT", "8080"),
		Env:         getEnvOrDefault("ENV", "development"),
		DatabaseURL: mustGetEnv("DATABASE_URL"),
		DBMaxConns:  getEnvAsIntOrDefault("DB_MAX_CONNS", 25),
		DBMinConns:  getEnvAsIntOrDefault("DB_MIN_CONNS", 5),

		RedisURL:      mustGetEnv("REDIS_URL"),
		RedisPoolSize: getEnvAsIntOrDefault("REDIS_POOL_SIZE", 0),

		JWTSecret: mustGetEnv("JWT_SECRET"),

		OpenRouterAPIKey:  mustGetEnv("OPENROUTER_API_KEY"),
		OpenRouterBaseURL: getEnvOrDefault("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1"),
		LLMModel:          getEnvOrDefault("LLM_MODEL", "openai/gpt-4o-mini"),
		LLMConcurrentReqs: getEnvAsIntOrDefault("LLM_CONCURRENT_REQUESTS", 5),

		DefaultContextTokens: getEnvAsIntOrDefault("DEFAULT_CONTEXT_TOKENS", 32000),
		ContextBufferTokens:  getEnvAsIntOrDefault("CONTEXT_BUFFER_TOKENS", 2048),

		WorkerCount: getEnvAsIntOrDefault("WORKER_COUNT", 5),

		KafkaBrokers: getEnvAsListOrDefault("KAFKA_BROKERS", nil),
		KafkaTopic:   getEnvOrDefault("KAFKA_TOPIC", "praxis.chat.events"),

		RabbitMQURL:   getEnvOrDefault("RABBITMQ_URL", ""),
		RabbitMQQueue: getEnvOrDefault("RABBITMQ_QUEUE", "praxis.notifications"),

		RateLimitPerMinute: getEnvAsIntOrDefault("RATE_LIMIT_PER_MINUTE", 60),
		MaxMessageChars:    getEnvAsIntOrDefault("MAX_MESSAGE_CHARS", 4000),

		FrontendURL: getEnvOrDefault("FRONTEND_URL", "http://localhost:5173"),
	}

	return cfg
}

func mustGetEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		panic(fmt.Sprintf("required environment variable %s is not set", key))
	}
	return val
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

func getEnvAsListOrDefault(key string, defaultVal []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
