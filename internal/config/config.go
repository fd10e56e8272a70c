package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Ai       AIConfig
	Search   SearchConfig
	Webex    WebexConfig
	Pipeline PipelineConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	OtelEndpoint       string
	OtelServiceName    string
}

type DatabaseConfig struct {
	Connection string
}

type AIConfig struct {
	OllamaBaseURL   string
	LLMProvider     string // "ollama", "openai", etc
	LLMModel        string // answer generation
	ClassifierModel string // intent classification, temperature 0
	EmbeddingModel  string
}

type SearchConfig struct {
	TavilyAPIKey   string
	IncludeDomains []string
}

type WebexConfig struct {
	Token    string
	BotEmail string
}

type PipelineConfig struct {
	KnowledgeTopK        int
	WebTopK              int
	RetrievalTimeout     time.Duration
	PerMessageDeadline   time.Duration
	SummarizeThreshold   int
	SummarizeKeepTurns   int
	ContextCharBudget    int
	GenerationMaxRetries int
	SimilarityThreshold  float64
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
			OtelEndpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
			OtelServiceName:    getEnv("OTEL_SERVICE_NAME", "cai-webex"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Ai: AIConfig{
			OllamaBaseURL:   getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			LLMProvider:     getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:        getEnv("LLM_MODEL", "llama3.1"),
			ClassifierModel: getEnv("CLASSIFIER_MODEL", getEnv("LLM_MODEL", "llama3.1")),
			EmbeddingModel:  getEnv("OLLAMA_EMBEDDING_MODEL", "nomic-embed-text"),
		},
		Search: SearchConfig{
			TavilyAPIKey:   getEnv("TAVILY_API_KEY", ""),
			IncludeDomains: getEnvAsSlice("TAVILY_INCLUDE_DOMAINS", []string{"cisco.com", "webex.com"}),
		},
		Webex: WebexConfig{
			Token:    getEnv("WEBEX_TOKEN", ""),
			BotEmail: getEnv("WEBEX_BOT_EMAIL", ""),
		},
		Pipeline: PipelineConfig{
			KnowledgeTopK:        getEnvAsInt("KNOWLEDGE_TOP_K", 5),
			WebTopK:              getEnvAsInt("WEB_TOP_K", 2),
			RetrievalTimeout:     getEnvAsDuration("RETRIEVAL_TIMEOUT", 10*time.Second),
			PerMessageDeadline:   getEnvAsDuration("PER_MESSAGE_DEADLINE", 60*time.Second),
			SummarizeThreshold:   getEnvAsInt("SUMMARIZE_THRESHOLD", 6),
			SummarizeKeepTurns:   getEnvAsInt("SUMMARIZE_KEEP_TURNS", 2),
			ContextCharBudget:    getEnvAsInt("CONTEXT_CHAR_BUDGET", 8000),
			GenerationMaxRetries: getEnvAsInt("GENERATION_MAX_RETRIES", 2),
			SimilarityThreshold:  getEnvAsFloat("SIMILARITY_THRESHOLD", 0.35),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsSlice(key string, fallback []string) []string {
	strValue := getEnv(key, "")
	if strValue == "" {
		return fallback
	}
	parts := strings.Split(strValue, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
