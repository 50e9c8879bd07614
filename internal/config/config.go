package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	LogFormat    string
	LogLevel     string

	// AI extraction configuration
	GeminiAPIKey     string
	GeminiModelID    string
	GeminiTimeout    time.Duration
	GeminiMaxRetries int
	GeminiRetryDelay time.Duration

	// Persistence configuration
	StoreBackend  string // "postgres" or "file"
	StoreDir      string // base dir for the file backend
	PostgresDBURL string
}

// LoadConfig loads the application configuration from environment variables
func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found or error loading .env file. Using environment variables.")
	} else {
		log.Println("Loaded environment variables from .env file")
	}

	config := &Config{
		// Server configuration
		Port:         getEnvInt("PORT", 8080),
		ReadTimeout:  time.Duration(getEnvInt("READ_TIMEOUT", 30)) * time.Second,
		WriteTimeout: time.Duration(getEnvInt("WRITE_TIMEOUT", 120)) * time.Second,
		LogFormat:    getEnvString("LOG_FORMAT", "json"),
		LogLevel:     getEnvString("LOG_LEVEL", "info"),

		// AI extraction configuration
		GeminiAPIKey:     os.Getenv("GEMINI_API_KEY"),
		GeminiModelID:    getEnvString("GEMINI_MODEL_ID", "gemini-3-flash-preview"),
		GeminiTimeout:    time.Duration(getEnvInt("GEMINI_TIMEOUT", 60)) * time.Second,
		GeminiMaxRetries: getEnvInt("GEMINI_MAX_RETRIES", 3),
		GeminiRetryDelay: time.Duration(getEnvInt("GEMINI_RETRY_DELAY", 2)) * time.Second,

		// Persistence configuration
		StoreBackend:  strings.ToLower(getEnvString("STORE_BACKEND", "postgres")),
		StoreDir:      getEnvString("STORE_DIR", "data"),
		PostgresDBURL: os.Getenv("POSTGRES_DB_URL"),
	}

	validateConfig(config)

	return config, nil
}

// validateConfig checks if critical configuration values are set and logs warnings if they're missing
func validateConfig(config *Config) {
	if config.GeminiAPIKey == "" {
		log.Println("Warning: No Gemini API key provided. Smart scan and tax rule lookups will fail.")
	}
	if config.StoreBackend == "postgres" && config.PostgresDBURL == "" {
		log.Println("Warning: STORE_BACKEND is postgres but no POSTGRES_DB_URL provided. Startup will fail.")
	}
	if config.StoreBackend != "postgres" && config.StoreBackend != "file" {
		log.Printf("Warning: Unknown STORE_BACKEND %q, falling back to file storage.", config.StoreBackend)
		config.StoreBackend = "file"
	}
}

// getEnvInt gets an integer from an environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Invalid value for %s: %s, using default: %d", key, valueStr, defaultValue)
		return defaultValue
	}

	return value
}

// getEnvString gets a string from an environment variable with a default value
func getEnvString(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
