package common

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/logiparse/logiparse/constants"
)

// Config holds all application configuration
type Config struct {
	Server  ServerConfig
	LLM     LLMConfig
	History HistoryConfig
	Extract ExtractConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Addr            string
	ShutdownTimeout time.Duration
}

// LLMConfig holds delegated-extraction configuration
type LLMConfig struct {
	Model       string
	VisionModel string
	APIKey      string
	BaseURL     string
	Temperature float32
	Timeout     time.Duration
}

// HistoryConfig holds the extraction-history store configuration
type HistoryConfig struct {
	Path string
}

// ExtractConfig holds defaults applied by the extraction strategies
type ExtractConfig struct {
	DefaultCurrency   string
	DefaultWeightUnit string
}

// LoadDotenv loads a .env file when present. Missing files are fine;
// production deployments set real environment variables.
func LoadDotenv(logger *slog.Logger) {
	if err := godotenv.Load(); err != nil {
		if logger != nil {
			logger.Debug("config.dotenv.skipped", "error", err)
		}
	}
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            getEnv("HTTP_ADDR", ":8080"),
			ShutdownTimeout: getEnvAsDuration("HTTP_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		LLM: LLMConfig{
			Model:       getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			VisionModel: getEnv("OPENAI_VISION_MODEL", "gpt-4o"),
			APIKey:      getEnv("OPENAI_API_KEY", ""),
			BaseURL:     getEnv("OPENAI_BASE_URL", ""),
			Temperature: getEnvAsFloat32("OPENAI_TEMPERATURE", 0.0),
			Timeout:     getEnvAsDuration("OPENAI_TIMEOUT", 45*time.Second),
		},
		History: HistoryConfig{
			Path: getEnv("HISTORY_DB_PATH", "./logiparse.db"),
		},
		Extract: ExtractConfig{
			DefaultCurrency:   getEnv("DEFAULT_CURRENCY", constants.DefaultCurrency),
			DefaultWeightUnit: getEnv("DEFAULT_WEIGHT_UNIT", constants.DefaultWeightUnit),
		},
	}
}

// Validate validates the loaded configuration. The LLM API key is optional:
// without it the server runs with the deterministic strategy only.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return NewAppError("CONFIG_ERROR", "HTTP_ADDR is required", ErrInvalidInput)
	}
	if c.History.Path == "" {
		return NewAppError("CONFIG_ERROR", "HISTORY_DB_PATH is required", ErrInvalidInput)
	}
	if c.Extract.DefaultCurrency == "" {
		return NewAppError("CONFIG_ERROR", "DEFAULT_CURRENCY must not be empty", ErrInvalidInput)
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
