package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendMemory   = "memory"
)

type Config struct {
	StoreBackend   string
	DatabaseURL    string
	RedisURL       string
	RedisKeyPrefix string

	JWTSecretKey string
	ServerPort   int

	CORSAllowedOrigins []string

	SuperAdminEmail    string
	SuperAdminPassword string

	ReconcileInterval time.Duration

	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicBaseURL   string

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
}

// SMTPEnabled reports whether outgoing mail is configured.
func (c *Config) SMTPEnabled() bool {
	return c.SMTPHost != "" && c.SMTPFrom != ""
}

// Load reads configuration from the environment, loading .env first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		StoreBackend:       strings.ToLower(getEnv("STORE_BACKEND", BackendPostgres)),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		RedisURL:           os.Getenv("REDIS_URL"),
		RedisKeyPrefix:     getEnv("REDIS_KEY_PREFIX", "dg"),
		JWTSecretKey:       os.Getenv("JWT_SECRET_KEY"),
		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		SuperAdminEmail:    strings.ToLower(strings.TrimSpace(os.Getenv("SUPER_ADMIN_EMAIL"))),
		SuperAdminPassword: os.Getenv("SUPER_ADMIN_PASSWORD"),
		R2AccountID:        os.Getenv("R2_ACCOUNT_ID"),
		R2AccessKeyID:      os.Getenv("R2_ACCESS_KEY_ID"),
		R2SecretAccessKey:  os.Getenv("R2_SECRET_ACCESS_KEY"),
		R2BucketName:       os.Getenv("R2_BUCKET_NAME"),
		R2PublicBaseURL:    os.Getenv("R2_PUBLIC_BASE_URL"),
		SMTPHost:           os.Getenv("SMTP_HOST"),
		SMTPUsername:       os.Getenv("SMTP_USERNAME"),
		SMTPPassword:       os.Getenv("SMTP_PASSWORD"),
		SMTPFrom:           os.Getenv("SMTP_FROM"),
	}

	switch cfg.StoreBackend {
	case BackendPostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
		}
	case BackendRedis:
		if cfg.RedisURL == "" {
			return nil, fmt.Errorf("REDIS_URL environment variable is not set")
		}
	case BackendMemory:
	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q (want postgres, redis or memory)", cfg.StoreBackend)
	}

	if cfg.JWTSecretKey == "" {
		return nil, fmt.Errorf("JWT_SECRET_KEY environment variable is not set")
	}

	port, err := strconv.Atoi(getEnv("SERVER_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT environment variable: %w", err)
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", port)
	}
	cfg.ServerPort = port

	cfg.ReconcileInterval, err = time.ParseDuration(getEnv("RECONCILE_INTERVAL", "10m"))
	if err != nil {
		return nil, fmt.Errorf("invalid RECONCILE_INTERVAL environment variable: %w", err)
	}
	if cfg.ReconcileInterval < 0 {
		return nil, fmt.Errorf("RECONCILE_INTERVAL must not be negative, got %s", cfg.ReconcileInterval)
	}

	cfg.SMTPPort, err = strconv.Atoi(getEnv("SMTP_PORT", "587"))
	if err != nil {
		return nil, fmt.Errorf("invalid SMTP_PORT environment variable: %w", err)
	}

	if (cfg.SuperAdminEmail == "") != (cfg.SuperAdminPassword == "") {
		return nil, fmt.Errorf("SUPER_ADMIN_EMAIL and SUPER_ADMIN_PASSWORD must be set together")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
