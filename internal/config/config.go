package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration.
type Config struct {
	Port           string
	Env            string
	LogLevel       string
	UseMemoryQueue bool
	WorkerCount    int
	DatabaseURL    string

	// Remote LLM (OpenAI-compatible) backend
	RemoteLLMEnabled    bool
	OpenAIAPIKey        string
	OpenAIBaseURL       string
	OpenAIModel         string
	RemoteLLMTimeout    time.Duration
	RemoteLLMMaxRetries int
	RemoteLLMRetryDelay time.Duration

	// Local LLM backend (Ollama-compatible)
	LocalLLMBaseURL string
	LocalLLMModel   string
	LocalLLMTimeout time.Duration

	// Optional Bedrock fallback provider
	BedrockModelID      string
	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string
	AssistantQueueURL   string

	// Response cache
	UseRedisCache   bool
	RedisAddr       string
	RedisPassword   string
	RedisTLS        bool
	CacheRemoteTTL  time.Duration
	CacheLocalTTL   time.Duration
	CacheMaxEntries int

	// Conversation sessions
	SessionIdleTTL      time.Duration
	SessionHistoryLimit int

	// Specialty detection
	SpecialtyMinConfidence float64

	// Booking notifications
	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string

	CORSAllowedOrigins []string

	// Per-IP request rate limit on /api routes
	RateLimitRPS   float64
	RateLimitBurst int
}

// Load reads configuration from environment variables.
func Load() *Config {
	return &Config{
		Port:           getEnv("PORT", "8080"),
		Env:            getEnv("ENV", "development"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		UseMemoryQueue: getEnvAsBool("USE_MEMORY_QUEUE", true),
		WorkerCount:    getEnvAsInt("WORKER_COUNT", 4),
		DatabaseURL:    getEnv("DATABASE_URL", ""),

		RemoteLLMEnabled:    getEnvAsBool("REMOTE_LLM_ENABLED", true),
		OpenAIAPIKey:        getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:       getEnv("OPENAI_BASE_URL", ""),
		OpenAIModel:         getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		RemoteLLMTimeout:    getEnvAsDuration("REMOTE_LLM_TIMEOUT", 30*time.Second),
		RemoteLLMMaxRetries: getEnvAsInt("REMOTE_LLM_MAX_RETRIES", 2),
		RemoteLLMRetryDelay: getEnvAsDuration("REMOTE_LLM_RETRY_DELAY", 500*time.Millisecond),

		LocalLLMBaseURL: getEnv("LOCAL_LLM_BASE_URL", "http://localhost:11434"),
		LocalLLMModel:   getEnv("LOCAL_LLM_MODEL", "llama3"),
		LocalLLMTimeout: getEnvAsDuration("LOCAL_LLM_TIMEOUT", 20*time.Second),

		BedrockModelID:      getEnv("BEDROCK_MODEL_ID", ""),
		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),
		AssistantQueueURL:   getEnv("ASSISTANT_QUEUE_URL", ""),

		UseRedisCache:   getEnvAsBool("USE_REDIS_CACHE", false),
		RedisAddr:       getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		RedisTLS:        getEnvAsBool("REDIS_TLS", false),
		CacheRemoteTTL:  getEnvAsDuration("CACHE_REMOTE_TTL", 30*time.Minute),
		CacheLocalTTL:   getEnvAsDuration("CACHE_LOCAL_TTL", 5*time.Minute),
		CacheMaxEntries: getEnvAsInt("CACHE_MAX_ENTRIES", 4096),

		SessionIdleTTL:      getEnvAsDuration("SESSION_IDLE_TTL", 30*time.Minute),
		SessionHistoryLimit: getEnvAsInt("SESSION_HISTORY_LIMIT", 20),

		SpecialtyMinConfidence: getEnvAsFloat("SPECIALTY_MIN_CONFIDENCE", 0.6),

		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "Clinicware Assistant"),

		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", nil),

		RateLimitRPS:   getEnvAsFloat("RATE_LIMIT_RPS", 5),
		RateLimitBurst: getEnvAsInt("RATE_LIMIT_BURST", 10),
	}
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value.
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value.
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

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
