package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env  string
	Port int

	// upstream REST API this site renders
	BackendURL string

	DBURL string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	SessionSecret   string
	SessionTTLHours int
	CSRFEnabled     bool

	StripePublishableKey string
	StripeAPIURL         string

	EventsCacheTTLSeconds int

	OTELEndpoint     string
	WorkerHealthPort int
}

func Load() Config {
	// .env is optional; real environment always wins
	_ = godotenv.Load()

	env := getEnv("APP_ENV", "dev")

	return Config{
		Env:                   env,
		Port:                  getEnvInt("PORT", 3000),
		BackendURL:            strings.TrimRight(getEnv("BACKEND_URL", "http://localhost:5000/api"), "/"),
		DBURL:                 buildDBURL(),
		RedisAddr:             getEnv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword:         getEnv("REDIS_PASSWORD", ""),
		RedisDB:               getEnvInt("REDIS_DB", 0),
		SessionSecret:         getEnv("SESSION_SECRET", "dev-session-secret-change-me"),
		SessionTTLHours:       getEnvInt("SESSION_TTL_HOURS", 24),
		CSRFEnabled:           getEnvBool("CSRF_ENABLED", env != "dev"),
		StripePublishableKey:  getEnv("STRIPE_PUBLISHABLE_KEY", ""),
		StripeAPIURL:          strings.TrimRight(getEnv("STRIPE_API_URL", "https://api.stripe.com"), "/"),
		EventsCacheTTLSeconds: getEnvInt("EVENTS_CACHE_TTL_SECONDS", 30),
		OTELEndpoint:          getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		WorkerHealthPort:      getEnvInt("WORKER_HEALTH_PORT", 8081),
	}
}

func (c Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLHours) * time.Hour
}

func (c Config) EventsCacheTTL() time.Duration {
	return time.Duration(c.EventsCacheTTLSeconds) * time.Second
}

func buildDBURL() string {
	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "givehub")
	pass := getEnv("DB_PASSWORD", "givehub")
	name := getEnv("DB_NAME", "givehub")
	ssl := getEnv("DB_SSLMODE", "disable")

	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=" + ssl
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.Atoi(v)

		if err != nil {
			fmt.Println(err)
			return fallback
		}

		return num
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fallback
		}
		return b
	}
	return fallback
}
