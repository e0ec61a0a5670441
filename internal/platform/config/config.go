package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures process-wide configuration. FromEnv keeps main lean; every
// value, including the JWT signing key, is injected from here rather than
// read from hidden globals so tests can swap them freely.
type Config struct {
	Addr        string
	DatabaseURL string

	JWTSigningKey  string
	JWTIssuer      string
	AccessTokenTTL time.Duration

	RedisURL string

	KafkaBrokers     []string
	AuditStreamTopic string
}

// FromEnv builds a Config from environment variables with development
// defaults.
func FromEnv() Config {
	cfg := Config{
		Addr:             getEnv("LEADDESK_ADDR", ":8080"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		JWTSigningKey:    getEnv("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		JWTIssuer:        getEnv("JWT_ISSUER", "leaddesk"),
		AccessTokenTTL:   getDuration("ACCESS_TOKEN_TTL", 30*time.Minute),
		RedisURL:         os.Getenv("REDIS_URL"),
		AuditStreamTopic: getEnv("AUDIT_STREAM_TOPIC", "leaddesk.audit"),
	}

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}
	return cfg
}

// StreamEnabled reports whether the audit Kafka mirror is configured.
func (c Config) StreamEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}
