package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config carries process configuration. All values come from environment
// variables; defaults suit local development.
type Config struct {
	Port int

	// Document store
	MongoURL       string
	PlatformDBName string

	// Audit event store
	PostgresURL string

	// Redis (sessions, rate limiting)
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Auth
	JWTSecret string
	JWKSURL   string

	// Quality sweep
	SweepInterval time.Duration
}

// Load reads configuration from the environment. MONGO_URL and DATABASE_URL
// are required; everything else falls back to a development default.
func Load() (*Config, error) {
	cfg := &Config{
		Port:           8080,
		MongoURL:       os.Getenv("MONGO_URL"),
		PlatformDBName: getEnv("PLATFORM_DB_NAME", "hops_platform"),
		PostgresURL:    os.Getenv("DATABASE_URL"),
		RedisAddr:      getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		JWKSURL:        os.Getenv("AUTH_JWKS_URL"),
		SweepInterval:  15 * time.Minute,
	}

	if cfg.MongoURL == "" {
		return nil, fmt.Errorf("MONGO_URL environment variable is required")
	}
	if cfg.PostgresURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}
	if cfg.JWTSecret == "" && cfg.JWKSURL == "" {
		return nil, fmt.Errorf("JWT_SECRET or AUTH_JWKS_URL is required")
	}

	if portStr := os.Getenv("PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT %q: %w", portStr, err)
		}
		cfg.Port = port
	}

	if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
		if db, err := strconv.Atoi(dbStr); err == nil {
			cfg.RedisDB = db
		}
	}

	if intervalStr := os.Getenv("QUALITY_SWEEP_INTERVAL"); intervalStr != "" {
		interval, err := time.ParseDuration(intervalStr)
		if err != nil {
			return nil, fmt.Errorf("invalid QUALITY_SWEEP_INTERVAL %q: %w", intervalStr, err)
		}
		cfg.SweepInterval = interval
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
