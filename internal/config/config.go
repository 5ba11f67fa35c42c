package config

import (
	"os"
	"strconv"
)

type Config struct {
	Web       WebConfig
	Database  DatabaseConfig
	Embedding EmbeddingConfig
	Gemini    GeminiConfig
	OpenAI    OpenAIConfig
	Scan      ScanConfig
}

type WebConfig struct {
	Host          string
	Port          int
	SessionSecret string
}

type DatabaseConfig struct {
	URL           string // PostgreSQL connection URL
	MaxOpenConns  int    // Maximum open connections (default 25)
	MaxIdleConns  int    // Maximum idle connections (default 5)
	HNSWIndexPath string // Path to persist the face HNSW index (optional, rebuilt on startup if empty)
}

type EmbeddingConfig struct {
	URL string // Face embedding service base URL, defaults to http://localhost:8000
	Dim int    // Embedding dimension, defaults to 512
}

type GeminiConfig struct {
	APIKey string
}

type OpenAIConfig struct {
	Token string
}

type ScanConfig struct {
	// FaceThreshold is the maximum cosine distance for a face match.
	FaceThreshold float64
	// DefaultItemPrice is charged for detected items with no estimated price.
	DefaultItemPrice float64
	// AutoCreateItems persists unmatched detections as new catalog entries
	// instead of keeping them per-transaction only.
	AutoCreateItems bool
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable and parses it as a positive float.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func Load() *Config {
	return &Config{
		Web: WebConfig{
			Host:          envString("WEB_HOST", "0.0.0.0"),
			Port:          envInt("WEB_PORT", 8080),
			SessionSecret: os.Getenv("WEB_SESSION_SECRET"),
		},
		Database: DatabaseConfig{
			URL:           os.Getenv("DATABASE_URL"),
			MaxOpenConns:  envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:  envInt("DATABASE_MAX_IDLE_CONNS", 5),
			HNSWIndexPath: os.Getenv("HNSW_INDEX_PATH"),
		},
		Embedding: EmbeddingConfig{
			URL: envString("EMBEDDING_URL", "http://localhost:8000"),
			Dim: envInt("EMBEDDING_DIM", 512),
		},
		Gemini: GeminiConfig{
			APIKey: os.Getenv("GEMINI_API_KEY"),
		},
		OpenAI: OpenAIConfig{
			Token: os.Getenv("OPENAI_TOKEN"),
		},
		Scan: ScanConfig{
			FaceThreshold:    envFloat("SCAN_FACE_THRESHOLD", 0.3),
			DefaultItemPrice: envFloat("SCAN_DEFAULT_ITEM_PRICE", 50),
			AutoCreateItems:  os.Getenv("SCAN_AUTO_CREATE_ITEMS") == "true",
		},
	}
}
