package infra

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/shopspring/decimal"

	"github.com/meowbet/core/internal/domain"
	"github.com/meowbet/core/internal/outcome"
)

const insecureJWTSecret = "change-me-in-production"

// Config holds all application configuration parsed from environment variables.
type Config struct {
	// Storage: "postgres" or "memory"
	StoreDriver string `env:"STORE_DRIVER" envDefault:"postgres"`

	// Database
	DatabaseURL   string `env:"DATABASE_URL"`
	PGHost        string `env:"PGHOST" envDefault:"localhost"`
	PGPort        int    `env:"PGPORT" envDefault:"5435"`
	PGUser        string `env:"PGUSER" envDefault:"meowbet"`
	PGPassword    string `env:"PGPASSWORD" envDefault:"meowbet"`
	PGDatabase    string `env:"PGDATABASE" envDefault:"meowbet"`
	DBMaxConns    int32  `env:"DB_MAX_CONNS" envDefault:"20"`
	AutoMigrate   bool   `env:"AUTO_MIGRATE" envDefault:"true"`
	MigrationsDir string `env:"MIGRATIONS_DIR"`

	// Redis; empty disables the shared projection cache and guards.
	RedisURL string `env:"REDIS_URL"`

	// JWT
	JWTSecret       string        `env:"JWT_SECRET" envDefault:"change-me-in-production"`
	JWTPlayerExpiry time.Duration `env:"JWT_PLAYER_EXPIRY" envDefault:"24h"`
	JWTAdminExpiry  time.Duration `env:"JWT_ADMIN_EXPIRY" envDefault:"8h"`

	// Server
	APIPort            int    `env:"API_PORT" envDefault:"3100"`
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*"`

	// Kafka
	KafkaBrokers string        `env:"KAFKA_BROKERS" envDefault:"localhost:9092"`
	KafkaEnabled bool          `env:"KAFKA_ENABLED" envDefault:"false"`
	OutboxPoll   time.Duration `env:"OUTBOX_POLL_INTERVAL" envDefault:"500ms"`
	// Unpublished events the memory store keeps when no relay drains it.
	MemoryOutboxLimit int `env:"MEMORY_OUTBOX_LIMIT" envDefault:"10000"`

	// Game tuning
	StartingBalance string        `env:"STARTING_BALANCE" envDefault:"1000.00"`
	JackpotFloor    string        `env:"JACKPOT_FLOOR" envDefault:"0.10000000"`
	HouseEdge       string        `env:"HOUSE_EDGE" envDefault:"0.01"`
	HiLoTiePolicy   string        `env:"HILO_TIE_POLICY" envDefault:"push"`
	BetRateLimit    int           `env:"BET_RATE_LIMIT" envDefault:"10"`
	BetRateWindow   time.Duration `env:"BET_RATE_WINDOW" envDefault:"1s"`
	IdempotencyTTL  time.Duration `env:"IDEMPOTENCY_TTL" envDefault:"24h"`

	// Dev
	AllowInsecureDefaults bool `env:"ALLOW_INSECURE_DEFAULTS" envDefault:"false"`
}

// LoadConfig parses environment variables into a Config struct.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Validate checks the game tuning and rejects insecure configuration that
// must not run in production. Set ALLOW_INSECURE_DEFAULTS=true to bypass the
// JWT checks (local dev only).
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case "postgres", "memory":
	default:
		return fmt.Errorf("STORE_DRIVER must be postgres or memory, got %q", c.StoreDriver)
	}
	if _, err := c.StartingBalanceCents(); err != nil {
		return err
	}
	if _, err := c.JackpotFloorUnits(); err != nil {
		return err
	}
	if _, err := c.Rules(); err != nil {
		return err
	}
	if c.MemoryOutboxLimit < 0 {
		return fmt.Errorf("MEMORY_OUTBOX_LIMIT must not be negative")
	}
	if c.DBMaxConns <= 0 {
		return fmt.Errorf("DB_MAX_CONNS must be positive")
	}
	if c.BetRateLimit <= 0 || c.BetRateWindow <= 0 {
		return fmt.Errorf("BET_RATE_LIMIT and BET_RATE_WINDOW must be positive")
	}

	if c.AllowInsecureDefaults {
		return nil
	}
	if c.JWTSecret == insecureJWTSecret {
		return fmt.Errorf("JWT_SECRET is set to the insecure default; set a strong secret or set ALLOW_INSECURE_DEFAULTS=true for local dev")
	}
	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET is too short (%d chars); minimum 32 characters required", len(c.JWTSecret))
	}
	return nil
}

// DSN returns the PostgreSQL connection string, preferring DATABASE_URL if set.
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.PGUser, c.PGPassword, c.PGHost, c.PGPort, c.PGDatabase)
}

// StartingBalanceCents parses STARTING_BALANCE.
func (c *Config) StartingBalanceCents() (int64, error) {
	v, err := domain.ParsePrimary(c.StartingBalance)
	if err != nil {
		return 0, fmt.Errorf("STARTING_BALANCE: %w", err)
	}
	if v < 0 {
		return 0, fmt.Errorf("STARTING_BALANCE must not be negative")
	}
	return v, nil
}

// JackpotFloorUnits parses JACKPOT_FLOOR.
func (c *Config) JackpotFloorUnits() (int64, error) {
	v, err := domain.ParseReward(c.JackpotFloor)
	if err != nil {
		return 0, fmt.Errorf("JACKPOT_FLOOR: %w", err)
	}
	if v < 0 {
		return 0, fmt.Errorf("JACKPOT_FLOOR must not be negative")
	}
	return v, nil
}

// Rules builds the payout rules from the defaults plus HOUSE_EDGE and
// HILO_TIE_POLICY.
func (c *Config) Rules() (outcome.Rules, error) {
	rules := outcome.DefaultRules()
	edge, err := decimal.NewFromString(c.HouseEdge)
	if err != nil {
		return rules, fmt.Errorf("HOUSE_EDGE: %w", err)
	}
	rules.HouseEdge = edge
	rules.TiePolicy = outcome.TiePolicy(c.HiLoTiePolicy)
	if err := rules.Validate(); err != nil {
		return rules, fmt.Errorf("game rules: %w", err)
	}
	return rules, nil
}
