package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config carries every runtime setting of the terminal. Values come from the
// environment, optionally seeded from a .env file in the working directory.
type Config struct {
	Port          string
	AllowedOrigin string

	APIBaseURL string
	APIKey     string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	TerminalID string

	AuthSecret     string
	AccessTokenTTL time.Duration

	SerialPort string

	NotificationTimeout time.Duration
}

// Load reads configuration from the environment. A missing .env file is not
// an error; a missing API key is, since the terminal cannot talk to the
// inventory service without one.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:          getEnv("PORT", "8088"),
		AllowedOrigin: getEnv("ALLOWED_ORIGIN", "http://localhost:5173"),
		APIBaseURL:    getEnv("API_BASE_URL", "http://localhost:3000"),
		APIKey:        os.Getenv("API_KEY"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		TerminalID:    getEnv("TERMINAL_ID", "terminal-1"),
		AuthSecret:    getEnv("AUTH_SECRET", "dev-only-secret-change-me"),
		SerialPort:    os.Getenv("SERIAL_PORT"),
	}

	cfg.AccessTokenTTL = time.Duration(getEnvInt("ACCESS_TOKEN_TTL_MINUTES", 480)) * time.Minute
	cfg.NotificationTimeout = time.Duration(getEnvInt("NOTIFICATION_TIMEOUT_SECONDS", 5)) * time.Second

	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API_KEY is required")
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
