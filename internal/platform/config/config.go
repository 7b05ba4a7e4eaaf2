// Package config assembles all process configuration once at startup.
// Feature availability (payment gateway wired, Kafka wired) is decided here
// and passed into adapters explicitly; business logic never reads the
// environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// MinimumAge is the legal purchase age for nicotine products.
const MinimumAge = 21

// Config captures everything the server needs to run.
type Config struct {
	Addr          string
	DatabaseURL   string
	JWTSigningKey string

	Redis           RedisConfig
	AgeVerification AgeVerificationConfig
	Payment         PaymentConfig
	Kafka           KafkaConfig
}

// RedisConfig configures the idempotency cache client.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// AgeVerificationConfig configures the external identity provider adapter.
// Verification calls tolerate a longer timeout than payment authorization.
type AgeVerificationConfig struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	MaxRetries uint64
	MinimumAge int
}

// PaymentConfig configures the payment gateway adapter. Enabled is the
// explicit availability flag: requests carrying payment details are rejected
// up front when the gateway is not configured.
type PaymentConfig struct {
	Enabled        bool
	BaseURL        string
	APIKey         string
	Timeout        time.Duration
	IdempotencyTTL time.Duration
}

// KafkaConfig configures the audit outbox relay. When disabled, audit events
// stay in the outbox table until a relay is pointed at it.
type KafkaConfig struct {
	Enabled bool
	Brokers []string
	Topic   string
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	paymentKey := os.Getenv("PAYMENT_GATEWAY_API_KEY")
	kafkaBrokers := splitList(os.Getenv("KAFKA_BROKERS"))

	return Config{
		Addr:          envOr("ORDERGATE_ADDR", ":8080"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		JWTSigningKey: envOr("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envIntOr("REDIS_POOL_SIZE", 10),
			MinIdleConns: envIntOr("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		AgeVerification: AgeVerificationConfig{
			BaseURL:    envOr("AGE_VERIFICATION_URL", "https://verify.example.com"),
			APIKey:     os.Getenv("AGE_VERIFICATION_API_KEY"),
			Timeout:    envDurationOr("AGE_VERIFICATION_TIMEOUT", 10*time.Second),
			MaxRetries: uint64(envIntOr("AGE_VERIFICATION_MAX_RETRIES", 3)),
			MinimumAge: MinimumAge,
		},
		Payment: PaymentConfig{
			Enabled:        paymentKey != "",
			BaseURL:        envOr("PAYMENT_GATEWAY_URL", "https://gateway.example.com"),
			APIKey:         paymentKey,
			Timeout:        envDurationOr("PAYMENT_GATEWAY_TIMEOUT", 3*time.Second),
			IdempotencyTTL: envDurationOr("PAYMENT_IDEMPOTENCY_TTL", 24*time.Hour),
		},
		Kafka: KafkaConfig{
			Enabled: len(kafkaBrokers) > 0,
			Brokers: kafkaBrokers,
			Topic:   envOr("AUDIT_TOPIC", "ordergate.audit"),
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
