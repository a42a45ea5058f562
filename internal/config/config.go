package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Store drivers
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
)

// Config is the runtime configuration, read from the environment
type Config struct {
	Port                 string        `env:"PORT" envDefault:"8080"`
	LogLevel             string        `env:"LOG_LEVEL" envDefault:"info"`
	BidCost              int64         `env:"BID_COST" envDefault:"1"`
	StartingBalance      int64         `env:"STARTING_BALANCE" envDefault:"10"`
	LockTimeout          time.Duration `env:"LOCK_TIMEOUT" envDefault:"2s"`
	StoreDriver          string        `env:"STORE_DRIVER" envDefault:"memory"`
	SQLitePath           string        `env:"SQLITE_PATH" envDefault:"bidding.db"`
	SubscriberBuffer     int           `env:"SUBSCRIBER_BUFFER" envDefault:"64"`
	NotifierGapTimeout   time.Duration `env:"NOTIFIER_GAP_TIMEOUT" envDefault:"500ms"`
	NotifierCatchUp      time.Duration `env:"NOTIFIER_CATCH_UP_INTERVAL" envDefault:"2s"`
	RetryMaxTries        uint          `env:"BID_RETRY_MAX_TRIES" envDefault:"3"`
	RetryInitialInterval time.Duration `env:"BID_RETRY_INITIAL_INTERVAL" envDefault:"50ms"`
	SeedDemoData         bool          `env:"SEED_DEMO_DATA" envDefault:"true"`
	ShutdownTimeout      time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Load parses the environment and validates the result
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.StoreDriver = strings.ToLower(strings.TrimSpace(cfg.StoreDriver))
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the bidding core cannot run with
func (c Config) Validate() error {
	switch {
	case c.BidCost <= 0:
		return fmt.Errorf("config: BID_COST must be positive, got %d", c.BidCost)
	case c.StartingBalance < 0:
		return fmt.Errorf("config: STARTING_BALANCE must not be negative, got %d", c.StartingBalance)
	case c.LockTimeout <= 0:
		return fmt.Errorf("config: LOCK_TIMEOUT must be positive, got %s", c.LockTimeout)
	case c.SubscriberBuffer <= 0:
		return fmt.Errorf("config: SUBSCRIBER_BUFFER must be positive, got %d", c.SubscriberBuffer)
	case c.NotifierGapTimeout <= 0:
		return fmt.Errorf("config: NOTIFIER_GAP_TIMEOUT must be positive, got %s", c.NotifierGapTimeout)
	case c.NotifierCatchUp < 0:
		return fmt.Errorf("config: NOTIFIER_CATCH_UP_INTERVAL must not be negative, got %s", c.NotifierCatchUp)
	case c.RetryMaxTries == 0:
		return fmt.Errorf("config: BID_RETRY_MAX_TRIES must be at least 1")
	}

	switch c.StoreDriver {
	case DriverMemory:
	case DriverSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			return fmt.Errorf("config: SQLITE_PATH is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("config: unknown STORE_DRIVER %q", c.StoreDriver)
	}
	return nil
}

// Addr returns the listen address for the HTTP server
func (c Config) Addr() string {
	return ":" + strings.TrimPrefix(c.Port, ":")
}
