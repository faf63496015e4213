package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Prefix is the environment variable prefix, e.g. LAND_ADDR.
const Prefix = "LAND"

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Server captures process-level configuration.
type Server struct {
	Addr            string        `default:":8080"`
	ShutdownTimeout time.Duration `split_words:"true" default:"15s"`
	CORSOrigins     []string      `envconfig:"CORS_ORIGINS"`

	LogLevel  string `split_words:"true" default:"info"`
	LogFormat string `split_words:"true" default:"json"`

	JWTSigningKey string        `envconfig:"JWT_SIGNING_KEY" default:"dev-secret-key-change-in-production"`
	JWTIssuer     string        `envconfig:"JWT_ISSUER" default:"land-registry"`
	TokenTTL      time.Duration `split_words:"true" default:"1h"`

	StoreDriver string `split_words:"true" default:"memory"`
	DatabaseDSN string `envconfig:"DATABASE_DSN" default:"land-registry.db"`
	// AuditDSN enables the postgres audit outbox when set.
	AuditDSN string `envconfig:"AUDIT_DSN"`

	RedisURL     string `envconfig:"REDIS_URL"`
	RedisChannel string `split_words:"true" default:"land-registry.facts"`

	KafkaBrokers []string `split_words:"true"`
	KafkaTopic   string   `split_words:"true" default:"land-registry.facts"`

	Superadmins []string `split_words:"true"`
	SeedFile    string   `split_words:"true"`

	TracingEnabled bool `split_words:"true"`

	// Per-caller request allowances per RateLimitWindow. Zero disables a class.
	RateLimitWrites   int           `split_words:"true" default:"60"`
	RateLimitReads    int           `split_words:"true" default:"600"`
	RateLimitWindow   time.Duration `split_words:"true" default:"1m"`
	RateLimitDisabled bool          `split_words:"true"`
}

// FromEnv loads .env (if present) and then the LAND_* environment.
func FromEnv() (Server, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Server{}, fmt.Errorf("load .env: %w", err)
	}
	var cfg Server
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return Server{}, fmt.Errorf("process environment: %w", err)
	}
	return cfg, cfg.Validate()
}

func (c Server) Validate() error {
	switch c.StoreDriver {
	case DriverMemory, DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("unknown store driver %q", c.StoreDriver)
	}
	if strings.TrimSpace(c.JWTSigningKey) == "" {
		return errors.New("jwt signing key is required")
	}
	if len(c.KafkaBrokers) > 0 && c.KafkaTopic == "" {
		return errors.New("kafka topic is required when brokers are set")
	}
	return nil
}
