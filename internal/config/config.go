package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	APIPort            string
	BackendAPIKey      string // API key for authenticating requests (empty = no auth, dev mode)
	CorsAllowedOrigins string // Comma-separated allowed origins (empty = *, dev mode)
	WebDir             string // Static web UI directory (empty = API only)

	// Logging
	LogLevel  string
	LogPretty bool

	// Engine: the VieNeu runtime subprocess that owns model loading and
	// device selection.
	EngineCommand string
	SampleRate    int

	// Catalog: backbone/codec/voice listings served to the UI
	CatalogPath string

	// Audio
	OutputDir     string // Final WAV files are persisted here
	FFmpegPath    string
	MaxChunkChars int
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	_ = godotenv.Load()

	cfg := &Config{
		APIPort:            getEnv("API_PORT", "8080"),
		BackendAPIKey:      getEnv("BACKEND_API_KEY", ""),
		CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", ""),
		WebDir:             getEnv("WEB_DIR", ""),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogPretty:          getEnvBool("LOG_PRETTY", false),
		EngineCommand:      getEnv("ENGINE_COMMAND", ""),
		SampleRate:         getEnvInt("SAMPLE_RATE", 24000),
		CatalogPath:        getEnv("CATALOG_PATH", "config.yaml"),
		OutputDir:          getEnv("OUTPUT_DIR", "/tmp/vieneu-tts"),
		FFmpegPath:         getEnv("FFMPEG_PATH", "ffmpeg"),
		MaxChunkChars:      getEnvInt("MAX_CHUNK_CHARS", 256),
	}

	// Validate required fields
	if cfg.EngineCommand == "" {
		return nil, fmt.Errorf("ENGINE_COMMAND is required")
	}

	if cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("SAMPLE_RATE must be positive")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		b, err := strconv.ParseBool(value)
		if err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		i, err := strconv.Atoi(value)
		if err == nil {
			return i
		}
	}
	return defaultValue
}
