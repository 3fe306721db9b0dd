package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config carries everything the api and worker processes read from the
// environment. Gateway URL and admin token are process-wide defaults that get
// stamped onto every instance at save time; they are never accepted from
// request payloads.
type Config struct {
	DatabaseURL string
	RedisAddr   string
	RedisDB     int
	QueueName   string

	GatewayURL        string
	GatewayAdminToken string
	WebhookBaseURL    string

	DefaultInstanceLimit int

	HTTPHost string
	HTTPPort string
}

func Load() Config {
	// Missing .env is fine; containers get plain env vars.
	_ = godotenv.Load()

	return Config{
		DatabaseURL: Env("DATABASE_URL", "postgres://wa:wa@localhost:5432/wa?sslmode=disable"),
		RedisAddr:   Env("REDIS_ADDR", "localhost:6379"),
		RedisDB:     AtoiEnv("REDIS_DB", 0),
		QueueName:   Env("JOB_QUEUE", "default"),

		GatewayURL:        Env("GATEWAY_URL", "https://gateway.uazapi.dev"),
		GatewayAdminToken: Env("GATEWAY_ADMIN_TOKEN", ""),
		WebhookBaseURL:    Env("WEBHOOK_BASE_URL", ""),

		DefaultInstanceLimit: AtoiEnv("DEFAULT_INSTANCE_LIMIT", 1),

		HTTPHost: Env("HOST", "0.0.0.0"),
		HTTPPort: Env("PORT", "8080"),
	}
}

// SetupLogging configures the process-wide logrus logger from LOG_LEVEL and
// LOG_FORMAT.
func SetupLogging() {
	if Env("LOG_FORMAT", "json") == "text" {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logrus.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	}
	lvl, err := logrus.ParseLevel(Env("LOG_LEVEL", "info"))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logrus.SetLevel(lvl)
}

func Env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func AtoiEnv(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func AtofEnv(k string, def float64) float64 {
	if v := os.Getenv(k); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func DurEnv(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return time.Duration(n) * time.Millisecond
		}
	}
	return def
}
