package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	GinMode     string
	CORSOrigins []string

	// Gemini (LLM + embeddings)
	GeminiAPIKey          string
	GeminiTier            string
	GeminiChatModel       string
	EmbeddingsProvider    string // "google" (default), "openai"
	GoogleEmbeddingsModel string // e.g., "text-embedding-004"
	OpenAIAPIKey          string
	OpenAIEmbeddingsModel string

	// Vector store
	ChromaPersistDir string
	EmbedBatchSize   int
	DefaultTopK      int

	// Chunking
	MaxChunkSize int
	ChunkOverlap int

	// Upload handling
	MaxFileSize    int64
	FileStorageDir string

	// OCR model servers
	OCRDetectorURL   string
	OCRRecognizerURL string
	OCRTimeout       int // seconds

	// Tracing
	TracingEnabled bool
	OTLPEndpoint   string
}

func LoadConfig() (*Config, error) {
	// Load .env file if exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("error loading .env file: %v", err)
		}
	}

	cfg := &Config{
		Port:        getEnv("PORT", "8000"),
		GinMode:     getEnv("GIN_MODE", "debug"),
		CORSOrigins: strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost:3001"), ","),

		GeminiAPIKey:          getEnv("GEMINI_API_KEY", ""),
		GeminiTier:            getEnv("GEMINI_TIER", "free"),
		GeminiChatModel:       getEnv("GEMINI_CHAT_MODEL", "gemini-2.0-flash"),
		EmbeddingsProvider:    getEnv("EMBEDDINGS_PROVIDER", "google"),
		GoogleEmbeddingsModel: getEnv("GOOGLE_EMBEDDINGS_MODEL", "text-embedding-004"),
		OpenAIAPIKey:          getEnv("OPENAI_API_KEY", ""),
		OpenAIEmbeddingsModel: getEnv("OPENAI_EMBEDDINGS_MODEL", "text-embedding-3-small"),

		ChromaPersistDir: getEnv("CHROMA_PERSIST_DIR", "./ragify-backend-chroma"),
		EmbedBatchSize:   getEnvInt("EMBED_BATCH_SIZE", 50),
		DefaultTopK:      getEnvInt("DEFAULT_TOP_K", 10),

		MaxChunkSize: getEnvInt("MAX_CHUNK_SIZE", 1000),
		ChunkOverlap: getEnvInt("CHUNK_OVERLAP", 200),

		MaxFileSize:    getEnvInt64("MAX_FILE_SIZE", 104857600), // 100MB
		FileStorageDir: getEnv("FILE_STORAGE_DIR", os.TempDir()),

		OCRDetectorURL:   getEnv("OCR_DETECTOR_URL", "http://localhost:8001"),
		OCRRecognizerURL: getEnv("OCR_RECOGNIZER_URL", "http://localhost:8002"),
		OCRTimeout:       getEnvInt("OCR_TIMEOUT", 300), // 5 minutes, model inference can take time

		TracingEnabled: getEnvBool("TRACING_ENABLED", false),
		OTLPEndpoint:   getEnv("OTLP_ENDPOINT", "localhost:4317"),
	}

	// Validate required fields
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required - set it in .env file")
	}

	if cfg.ChunkOverlap >= cfg.MaxChunkSize {
		return nil, fmt.Errorf("CHUNK_OVERLAP must be smaller than MAX_CHUNK_SIZE")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
