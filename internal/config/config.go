package config

import (
	"fmt"
	"strings"
	"time"

	"go-fulfillment-ws/internal/model"

	"github.com/caarlos0/env/v11"
)

// Config holds everything cmd/api needs to wire the service.
type Config struct {
	AppEnv   string `env:"APP_ENV" envDefault:"production"`
	Port     string `env:"PORT" envDefault:"3000"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	StoreDriver string `env:"STORE_DRIVER" envDefault:"postgres"`
	DatabaseURL string `env:"DATABASE_URL"`
	DBHost      string `env:"DB_HOST" envDefault:"localhost"`
	DBUser      string `env:"DB_USER"`
	DBPassword  string `env:"DB_PASSWORD"`
	DBName      string `env:"DB_NAME"`
	DBPort      string `env:"DB_PORT" envDefault:"5432"`
	SQLitePath  string `env:"SQLITE_PATH" envDefault:"fulfillment.db"`

	JWTSecret string `env:"JWT_SECRET"`

	Picking Picking

	KafkaBrokers           []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaNotificationTopic string   `env:"KAFKA_NOTIFICATION_TOPIC"`

	OtelEndpoint string `env:"OTEL_ENDPOINT"`
}

// Picking tunes the work-queue derivation.
type Picking struct {
	SLAWindow       time.Duration `env:"PICKING_SLA_WINDOW" envDefault:"4h"`
	ReadyStatuses   []string      `env:"PICKING_READY_STATUSES" envSeparator:"," envDefault:"ordered,workstation,sold,completed"`
	OrderStatuses   []string      `env:"PICKING_ORDER_STATUSES" envSeparator:"," envDefault:"processing"`
	DefaultLocation string        `env:"PICKING_DEFAULT_LOCATION" envDefault:"B-1-4"`
}

// ReadySet parses PICKING_READY_STATUSES.
func (p Picking) ReadySet() ([]model.ProductStatus, error) {
	out := make([]model.ProductStatus, 0, len(p.ReadyStatuses))
	for _, raw := range p.ReadyStatuses {
		s, err := model.ParseProductStatus(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("config: PICKING_READY_STATUSES: %w", err)
		}
		out = append(out, s)
	}
	return out, nil
}

// PickableOrders parses PICKING_ORDER_STATUSES.
func (p Picking) PickableOrders() ([]model.OrderStatus, error) {
	out := make([]model.OrderStatus, 0, len(p.OrderStatuses))
	for _, raw := range p.OrderStatuses {
		s := model.OrderStatus(strings.TrimSpace(raw))
		if !s.Valid() {
			return nil, fmt.Errorf("config: PICKING_ORDER_STATUSES: unknown order status %q", raw)
		}
		out = append(out, s)
	}
	return out, nil
}

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load parses the environment and validates the result.
func Load() (*Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.StoreDriver {
	case DriverPostgres, DriverSQLite, DriverMemory:
	default:
		return fmt.Errorf("config: unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("config: JWT_SECRET is required")
	}
	if c.Picking.SLAWindow <= 0 {
		return fmt.Errorf("config: PICKING_SLA_WINDOW must be positive")
	}
	if len(c.Picking.ReadyStatuses) == 0 {
		return fmt.Errorf("config: PICKING_READY_STATUSES must not be empty")
	}
	if _, err := c.Picking.ReadySet(); err != nil {
		return err
	}
	if _, err := c.Picking.PickableOrders(); err != nil {
		return err
	}
	return nil
}

// Development reports whether console logging and verbose SQL are wanted.
func (c *Config) Development() bool {
	return c.AppEnv == "development"
}

// PostgresDSN prefers DATABASE_URL and falls back to the DB_* parts.
func (c *Config) PostgresDSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort,
	)
}

// KafkaEnabled is true when both brokers and a topic are configured.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0 && c.KafkaNotificationTopic != ""
}
