package config

import (
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	// Environment ("development" or "production")
	Env string

	// Remote API
	APIBaseURL  string
	HTTPTimeout time.Duration

	// Local session state (SQLite file)
	StatePath string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if present
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	config := &Config{
		Env:        getEnv("ENV", "development"),
		APIBaseURL: getEnv("API_BASE_URL", "http://localhost:8080/api"),
		StatePath:  getEnv("STATE_PATH", defaultStatePath()),
	}

	// Parse HTTP timeout
	timeoutStr := getEnv("HTTP_TIMEOUT", "15s")
	timeout, err := time.ParseDuration(timeoutStr)
	if err != nil {
		log.Printf("Warning: invalid HTTP_TIMEOUT value '%s', falling back to 15s\n", timeoutStr)
		timeout = 15 * time.Second
	}
	config.HTTPTimeout = timeout

	return config, nil
}

// defaultStatePath places the session database under the user config
// directory, falling back to the working directory when unavailable.
func defaultStatePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "financas.db"
	}
	return filepath.Join(dir, "financas", "state.db")
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
