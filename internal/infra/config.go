package infra

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all application configuration parsed from environment variables.
type Config struct {
	// Database
	DatabaseURL   string `env:"DATABASE_URL"`
	PGHost        string `env:"PGHOST" envDefault:"localhost"`
	PGPort        int    `env:"PGPORT" envDefault:"5435"`
	PGUser        string `env:"PGUSER" envDefault:"cyclelog"`
	PGPassword    string `env:"PGPASSWORD" envDefault:"cyclelog"`
	PGDatabase    string `env:"PGDATABASE" envDefault:"cyclelog"`
	RunMigrations bool   `env:"RUN_MIGRATIONS" envDefault:"true"`
	MigrationsDir string `env:"MIGRATIONS_DIR"` // located from the working directory when empty

	// Redis
	RedisURL     string `env:"REDIS_URL" envDefault:"redis://localhost:6380"`
	RedisEnabled bool   `env:"REDIS_ENABLED" envDefault:"false"`

	// JWT
	JWTSecret string        `env:"JWT_SECRET" envDefault:"change-me-in-production"`
	JWTExpiry time.Duration `env:"JWT_EXPIRY" envDefault:"24h"`

	// Server ports
	APIPort           int `env:"API_PORT" envDefault:"3100"`
	WorkerMetricsPort int `env:"WORKER_METRICS_PORT" envDefault:"3101"`

	// Kafka
	KafkaBrokers     string `env:"KAFKA_BROKERS" envDefault:"localhost:9092"`
	KafkaEnabled     bool   `env:"KAFKA_ENABLED" envDefault:"false"`
	KafkaCycleTopic  string `env:"KAFKA_CYCLE_TOPIC" envDefault:"cyclelog.cycles.recorded"`
	KafkaEventsTopic string `env:"KAFKA_EVENTS_TOPIC" envDefault:"cyclelog.gamification.events"`
	KafkaGroupID     string `env:"KAFKA_GROUP_ID" envDefault:"gamification-worker"`

	// Gamification
	RefreshDebounce time.Duration `env:"REFRESH_DEBOUNCE" envDefault:"2s"`
	SnapshotTTL     time.Duration `env:"SNAPSHOT_TTL" envDefault:"10m"`
	DefaultTimezone string        `env:"DEFAULT_TIMEZONE" envDefault:"America/Sao_Paulo"`
	RefreshLimit    int           `env:"REFRESH_RATE_LIMIT" envDefault:"10"`
	RefreshWindow   time.Duration `env:"REFRESH_RATE_WINDOW" envDefault:"1m"`

	// CORS
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*"`

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

// Validate checks for insecure configuration that must not run in production.
// Set ALLOW_INSECURE_DEFAULTS=true to bypass (local dev only).
func (c *Config) Validate() error {
	if _, err := time.LoadLocation(c.DefaultTimezone); err != nil {
		return fmt.Errorf("DEFAULT_TIMEZONE %q: %w", c.DefaultTimezone, err)
	}
	if c.RefreshDebounce < 0 {
		return fmt.Errorf("REFRESH_DEBOUNCE must not be negative")
	}
	if c.RefreshLimit < 1 || c.RefreshWindow <= 0 {
		return fmt.Errorf("REFRESH_RATE_LIMIT and REFRESH_RATE_WINDOW must be positive")
	}
	if c.AllowInsecureDefaults {
		return nil
	}
	if c.JWTSecret == "change-me-in-production" {
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

// Location resolves DefaultTimezone, falling back to UTC when it is unknown.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.DefaultTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
