package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Events      EventsConfig
	Cache       CacheConfig
	Imports     ImportsConfig
	Jobs        JobsConfig
	Logging     LoggingConfig
	Environment string
}

type ServerConfig struct {
	Host    string
	Port    int
	BaseURL string
}

type DatabaseConfig struct {
	URL            string
	MaxConnections int
}

type EventsConfig struct {
	// URL is the NATS server address. Empty disables publishing and the
	// audit consumer.
	URL string
}

type CacheConfig struct {
	ResponseTTL         time.Duration
	VersionIdleLifetime time.Duration
}

type ImportsConfig struct {
	QueueCapacity  int
	MaxUploadBytes int64
}

type JobsConfig struct {
	StuckJobThreshold time.Duration
	AuditRetention    time.Duration
}

type LoggingConfig struct {
	Level  string
	Format string
}

func Load() (Config, error) {
	cfg := Config{
		Server: ServerConfig{
			Host:    getEnv("SERVER_HOST", "0.0.0.0"),
			Port:    getEnvInt("SERVER_PORT", 8080),
			BaseURL: getEnv("SERVER_BASE_URL", "http://localhost:8080"),
		},
		Database: DatabaseConfig{
			URL:            getEnv("DATABASE_URL", ""),
			MaxConnections: getEnvInt("DATABASE_MAX_CONNECTIONS", 25),
		},
		Events: EventsConfig{
			URL: getEnv("NATS_URL", ""),
		},
		Cache: CacheConfig{
			ResponseTTL:         getEnvDuration("CACHE_RESPONSE_TTL", 60*time.Second),
			VersionIdleLifetime: getEnvDuration("CACHE_VERSION_IDLE_LIFETIME", 6*time.Hour),
		},
		Imports: ImportsConfig{
			QueueCapacity:  getEnvInt("IMPORT_QUEUE_CAPACITY", 64),
			MaxUploadBytes: int64(getEnvInt("IMPORT_MAX_UPLOAD_BYTES", 10<<20)),
		},
		Jobs: JobsConfig{
			StuckJobThreshold: getEnvDuration("JOB_STUCK_THRESHOLD", 30*time.Minute),
			AuditRetention:    getEnvDuration("JOB_AUDIT_RETENTION", 90*24*time.Hour),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Environment: getEnv("ENVIRONMENT", "development"),
	}

	if cfg.Database.URL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.Imports.QueueCapacity < 1 {
		return Config{}, fmt.Errorf("IMPORT_QUEUE_CAPACITY must be >= 1")
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}
