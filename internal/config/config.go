package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port        string
	Env         string
	LogLevel    string
	FrontendURL string

	// Store
	StoreDriver   string
	SQLitePath    string
	DatabaseURL   string
	MigrationsDir string

	// Redis
	RedisURL string

	// Gemini AI
	GeminiAPIKey         string
	GeminiModel          string
	GeminiFastModel      string
	GeminiConcurrentReqs int
	AITimeout            time.Duration

	// Extraction
	WorkerCount  int
	MaxUploadMB  int
	DefaultQuizN int
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	cfg := &Config{
		Port:                 getEnvOrDefault("PORT", "8080"),
		Env:                  getEnvOrDefault("ENV", "development"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		FrontendURL:          getEnvOrDefault("FRONTEND_URL", "http://localhost:5173"),
		StoreDriver:          getEnvOrDefault("STORE_DRIVER", "sqlite"),
		SQLitePath:           getEnvOrDefault("SQLITE_PATH", "./data/mcq.db"),
		DatabaseURL:          getEnvOrDefault("DATABASE_URL", ""),
		MigrationsDir:        getEnvOrDefault("MIGRATIONS_DIR", "migrations"),
		RedisURL:             getEnvOrDefault("REDIS_URL", ""),
		GeminiAPIKey:         mustGetEnv("GEMINI_API_KEY"),
		GeminiModel:          getEnvOrDefault("GEMINI_MODEL", "gemini-3-pro-preview"),
		GeminiFastModel:      getEnvOrDefault("GEMINI_FAST_MODEL", "gemini-3-flash-preview"),
		GeminiConcurrentReqs: getEnvAsIntOrDefault("GEMINI_CONCURRENT_REQUESTS", 5),
		AITimeout:            getEnvAsDurationOrDefault("AI_TIMEOUT", 3*time.Minute),
		WorkerCount:          getEnvAsIntOrDefault("WORKER_COUNT", 2),
		MaxUploadMB:          getEnvAsIntOrDefault("MAX_UPLOAD_MB", 20),
		DefaultQuizN:         getEnvAsIntOrDefault("DEFAULT_QUIZ_SIZE", 10),
	}

	if err := cfg.Validate(); err != nil {
		panic(err.Error())
	}

	return cfg
}

// Validate checks the combinations a single env lookup cannot.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case "sqlite", "memory":
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_DRIVER=postgres")
		}
	case "redis":
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required when STORE_DRIVER=redis")
		}
	default:
		return fmt.Errorf("unsupported STORE_DRIVER %q", c.StoreDriver)
	}
	if c.GeminiConcurrentReqs < 1 {
		c.GeminiConcurrentReqs = 1
	}
	if c.WorkerCount < 1 {
		c.WorkerCount = 1
	}
	if c.DefaultQuizN < 1 {
		c.DefaultQuizN = 10
	}
	if c.MaxUploadMB < 1 {
		c.MaxUploadMB = 20
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c *Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
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

func getEnvAsDurationOrDefault(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}
