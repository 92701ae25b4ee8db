// Package config builds server configuration from the environment, with an
// optional TOML overlay for deployments that prefer a file.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// Defaults for the matcher thresholds. The acceptance threshold is a tuning
// parameter, not a constant: the strict value gates two-factor login, the
// monitor value is deliberately looser to cut false alarms during
// continuous checks. Both are L2 distances over 128-dimensional embeddings.
const (
	DefaultStrictTolerance  = 0.45
	DefaultMonitorTolerance = 0.5
)

// Config captures everything main needs to wire the gateway.
type Config struct {
	Addr          string `toml:"addr"`
	JWTSigningKey string `toml:"jwt_signing_key"`
	TOTPIssuer    string `toml:"totp_issuer"`

	StrictTolerance  float64 `toml:"strict_tolerance"`
	MonitorTolerance float64 `toml:"monitor_tolerance"`

	// LedgerBackend selects the audit ledger implementation:
	// "chain" (local hash chain, persisted at ChainPath when set) or
	// "postgres" (ordered event log in the relational store).
	LedgerBackend string `toml:"ledger_backend"`
	ChainPath     string `toml:"chain_path"`

	PostgresDSN string `toml:"postgres_dsn"`
	RedisURL    string `toml:"redis_url"`

	KafkaBrokers    []string `toml:"kafka_brokers"`
	KafkaAuditTopic string   `toml:"kafka_audit_topic"`

	// ExtractorURL points at the face-embedding sidecar. Empty disables the
	// HTTP extractor; main must then inject another implementation.
	ExtractorURL string `toml:"extractor_url"`
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	cfg := Config{
		Addr:             envOr("FACEGATE_ADDR", ":8080"),
		JWTSigningKey:    envOr("FACEGATE_JWT_KEY", "dev-secret-key-change-in-production"),
		TOTPIssuer:       envOr("FACEGATE_TOTP_ISSUER", "FaceGate Exam"),
		StrictTolerance:  envFloat("FACEGATE_STRICT_TOLERANCE", DefaultStrictTolerance),
		MonitorTolerance: envFloat("FACEGATE_MONITOR_TOLERANCE", DefaultMonitorTolerance),
		LedgerBackend:    envOr("FACEGATE_LEDGER_BACKEND", "chain"),
		ChainPath:        os.Getenv("FACEGATE_CHAIN_PATH"),
		PostgresDSN:      os.Getenv("FACEGATE_POSTGRES_DSN"),
		RedisURL:         os.Getenv("FACEGATE_REDIS_URL"),
		KafkaAuditTopic:  envOr("FACEGATE_KAFKA_AUDIT_TOPIC", "facegate.audit"),
		ExtractorURL:     os.Getenv("FACEGATE_EXTRACTOR_URL"),
	}
	if brokers := os.Getenv("FACEGATE_KAFKA_BROKERS"); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}
	return cfg
}

// ApplyFile overlays values from a TOML file onto cfg. Fields absent from
// the file keep their current values.
func (c *Config) ApplyFile(path string) error {
	_, err := toml.DecodeFile(path, c)
	return err
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}
