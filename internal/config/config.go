package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Store backends.
const (
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendMemory   = "memory"
)

// Config is built once at startup and handed to constructors; nothing reads
// the environment after Load returns.
type Config struct {
	ServiceName string
	Port        string

	StoreBackend string
	StoreTable   string
	DatabaseURL  string
	RedisAddr    string

	KafkaBrokers string
	CreatedTopic string

	// ExposeErrorDetail controls whether 500 bodies echo store/runtime
	// diagnostics (error, code, params, stack) to the caller. Appropriate for
	// an internal tool; turn off when fronting untrusted clients.
	ExposeErrorDetail bool

	// RateLimitPerMinute enables the Redis rate limiter when > 0. Requires
	// RedisAddr.
	RateLimitPerMinute int
}

func Load() (Config, error) {
	cfg := Config{
		ServiceName:        str("SERVICE_NAME", "intake-service"),
		StoreBackend:       strings.ToLower(str("STORE_BACKEND", BackendPostgres)),
		StoreTable:         str("STORE_TABLE", "appointments"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		RedisAddr:          os.Getenv("REDIS_ADDR"),
		KafkaBrokers:       os.Getenv("KAFKA_BROKERS"),
		CreatedTopic:       str("KAFKA_CREATED_TOPIC", "intake.appointment.created.v1"),
		ExposeErrorDetail:  boolean("EXPOSE_ERROR_DETAIL", true),
		RateLimitPerMinute: integer("RATE_LIMIT_PER_MINUTE", 0),
	}

	port, err := port("PORT", "8084")
	if err != nil {
		return Config{}, err
	}
	cfg.Port = port

	switch cfg.StoreBackend {
	case BackendPostgres:
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("DATABASE_URL is required when STORE_BACKEND=%s", BackendPostgres)
		}
	case BackendRedis:
		if cfg.RedisAddr == "" {
			return Config{}, fmt.Errorf("REDIS_ADDR is required when STORE_BACKEND=%s", BackendRedis)
		}
	case BackendMemory:
	default:
		return Config{}, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	}

	if cfg.RateLimitPerMinute > 0 && cfg.RedisAddr == "" {
		return Config{}, fmt.Errorf("REDIS_ADDR is required when RATE_LIMIT_PER_MINUTE is set")
	}
	return cfg, nil
}

func str(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func boolean(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v != "false" && v != "0"
}

func integer(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func port(key, fallback string) (string, error) {
	v := str(key, fallback)
	p, err := strconv.Atoi(v)
	if err != nil || p < 1 || p > 65535 {
		return "", fmt.Errorf("%s must be a valid TCP port (got %q)", key, v)
	}
	return v, nil
}
