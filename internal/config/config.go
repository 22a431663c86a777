package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL      string
	RedisURL         string
	JWTSecret        string
	ServerAddr       string
	LogLevel         slog.Level
	MinIOEndpoint    string
	MinIOAccessKey   string
	MinIOSecretKey   string
	MinIOBucket      string
	MinIOSecure      bool
	AMQPURL          string
	AMQPExchange     string
	PersistTimeout   time.Duration
	MaxContentLength int
	SendRate         float64
	SendBurst        int
}

// Load reads configuration from the environment, after merging a .env file
// from the working directory when one exists.
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		RedisURL:         envOrDefault("REDIS_URL", "redis://localhost:6379"),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		ServerAddr:       envOrDefault("SERVER_ADDR", ":8080"),
		LogLevel:         parseLogLevel(os.Getenv("LOG_LEVEL")),
		MinIOEndpoint:    os.Getenv("MINIO_ENDPOINT"),
		MinIOAccessKey:   os.Getenv("MINIO_ACCESS_KEY"),
		MinIOSecretKey:   os.Getenv("MINIO_SECRET_KEY"),
		MinIOBucket:      envOrDefault("MINIO_BUCKET", "supportline"),
		MinIOSecure:      os.Getenv("MINIO_SECURE") == "true",
		AMQPURL:          os.Getenv("AMQP_URL"),
		AMQPExchange:     envOrDefault("AMQP_EXCHANGE", "supportline.events"),
		PersistTimeout:   parseDuration(os.Getenv("PERSIST_TIMEOUT"), 5*time.Second),
		MaxContentLength: parseInt(os.Getenv("MAX_CONTENT_LENGTH"), 2000),
		SendRate:         parseFloat(os.Getenv("SEND_RATE"), 5),
		SendBurst:        parseInt(os.Getenv("SEND_BURST"), 10),
	}

	var missing []string
	if cfg.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if len(missing) > 0 {
		panic(fmt.Sprintf("required environment variables not set: %s", strings.Join(missing, ", ")))
	}

	return cfg
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(strings.TrimSpace(s)); err == nil && d > 0 {
		return d
	}
	return fallback
}

func parseInt(s string, fallback int) int {
	if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil && n > 0 {
		return n
	}
	return fallback
}

func parseFloat(s string, fallback float64) float64 {
	if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil && f > 0 {
		return f
	}
	return fallback
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
