// Package config builds runtime configuration from the environment so main
// stays lean. A .env file is honored in development; real deployments set
// variables directly.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is everything the server needs to boot.
type Config struct {
	Addr           string
	RequestTimeout time.Duration

	JWT      JWTConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Ledger   LedgerConfig
	Detector DetectorConfig
}

// JWTConfig configures admin token signing.
type JWTConfig struct {
	SigningKey string
	Issuer     string
	Audience   string
	SessionTTL time.Duration
}

// DatabaseConfig points at PostgreSQL. Empty URL means in-memory stores.
type DatabaseConfig struct {
	URL string
}

// RedisConfig points at Redis for session storage. Empty URL means the
// in-memory session store.
type RedisConfig struct {
	URL string
}

// KafkaConfig configures the audit event sink. Empty brokers disable it.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// LedgerConfig configures the Ethereum bridge. Empty RPCURL means votes
// cannot be cast, which is a deliberate refusal rather than a silent mock.
type LedgerConfig struct {
	RPCURL         string
	PrivateKeyHex  string
	ChainID        int64
	ConfirmTimeout time.Duration
	ArtifactPath   string
}

// DetectorConfig points at the face recognition sidecar.
type DetectorConfig struct {
	URL     string
	Timeout time.Duration
}

// FromEnv reads configuration from the environment, loading .env first when
// present.
func FromEnv() Config {
	_ = godotenv.Load()

	return Config{
		Addr:           envOr("FACEVOTE_ADDR", ":8080"),
		RequestTimeout: envDuration("FACEVOTE_REQUEST_TIMEOUT", 2*time.Minute),
		JWT: JWTConfig{
			SigningKey: envOr("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
			Issuer:     envOr("JWT_ISSUER", "facevote"),
			Audience:   envOr("JWT_AUDIENCE", "facevote-admin"),
			SessionTTL: envDuration("ADMIN_SESSION_TTL", 8*time.Hour),
		},
		Database: DatabaseConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Kafka: KafkaConfig{
			Brokers: splitNonEmpty(os.Getenv("KAFKA_BROKERS")),
			Topic:   envOr("KAFKA_AUDIT_TOPIC", "facevote.audit"),
		},
		Ledger: LedgerConfig{
			RPCURL:         os.Getenv("LEDGER_RPC_URL"),
			PrivateKeyHex:  os.Getenv("LEDGER_PRIVATE_KEY"),
			ChainID:        envInt64("LEDGER_CHAIN_ID", 1337),
			ConfirmTimeout: envDuration("LEDGER_CONFIRM_TIMEOUT", 90*time.Second),
			ArtifactPath:   envOr("LEDGER_ARTIFACT_PATH", "contracts/Election.json"),
		},
		Detector: DetectorConfig{
			URL:     os.Getenv("FACE_DETECTOR_URL"),
			Timeout: envDuration("FACE_DETECTOR_TIMEOUT", 30*time.Second),
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func envInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func splitNonEmpty(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
