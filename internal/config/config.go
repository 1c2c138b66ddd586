package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds everything the assistant needs, immutable after Load.
type AppConfig struct {
	// OpenWeatherMap API key; geocoding and three data endpoints use it.
	OpenWeatherAPIKey string

	// Ollama connection for parsing and composing.
	OllamaHost  string
	OllamaModel string

	// HTTPTimeout bounds every outbound call (providers and model).
	HTTPTimeout time.Duration

	// UsersFile is the flat JSON user database path.
	UsersFile string

	// DigestInterval controls how often the saved-cities digest runs.
	DigestInterval time.Duration

	// MaxUtteranceLen caps the request text embedded in the parser prompt.
	MaxUtteranceLen int

	Port string
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}

	cfg := &AppConfig{}

	cfg.OpenWeatherAPIKey = os.Getenv("OPENWEATHER_API_KEY")
	if cfg.OpenWeatherAPIKey == "" {
		return nil, fmt.Errorf("OPENWEATHER_API_KEY is required")
	}

	cfg.OllamaHost = getenvDefault("OLLAMA_HOST", "http://127.0.0.1:11434")
	cfg.OllamaModel = getenvDefault("OLLAMA_MODEL", "gemma:2b")

	timeoutStr := getenvDefault("HTTP_TIMEOUT", "10s")
	timeout, err := time.ParseDuration(timeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid HTTP_TIMEOUT: %w", err)
	}
	cfg.HTTPTimeout = timeout

	cfg.UsersFile = getenvDefault("USERS_FILE", "users.json")

	digestStr := getenvDefault("DIGEST_INTERVAL", "24h")
	digest, err := time.ParseDuration(digestStr)
	if err != nil {
		return nil, fmt.Errorf("invalid DIGEST_INTERVAL: %w", err)
	}
	cfg.DigestInterval = digest

	cfg.MaxUtteranceLen = getenvInt("MAX_UTTERANCE_LEN", 2000)
	cfg.Port = getenvDefault("PORT", "8080")

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}
