// Package config loads process configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/Shivanand-hulikatti/ticket-allocation/internal/database"
)

// Store drivers.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config is the full application configuration.
type Config struct {
	Port        string          `envconfig:"PORT" default:"8080"`
	StoreDriver string          `envconfig:"STORE_DRIVER" default:"postgres"`
	DB          database.Config `envconfig:"DB"`

	// LockTimeout bounds every row-lock wait.
	LockTimeout time.Duration `envconfig:"LOCK_TIMEOUT" default:"5s"`
	// TxnRetries is the number of attempts for an operation that failed
	// with a transient store error.
	TxnRetries   int           `envconfig:"TXN_RETRIES" default:"3"`
	RetryBackoff time.Duration `envconfig:"RETRY_BACKOFF" default:"50ms"`

	JWTSecret string        `envconfig:"JWT_SECRET" required:"true"`
	JWTTTL    time.Duration `envconfig:"JWT_TTL" default:"24h"`

	RabbitURL       string `envconfig:"RABBIT_URL"`
	BookingExchange string `envconfig:"BOOKING_EXCHANGE" default:"booking.exchange"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`
}

// Load reads the environment and validates the result.
func Load() (Config, error) {
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return Config{}, fmt.Errorf("process env: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks cross-field constraints envconfig cannot express.
func (c Config) Validate() error {
	switch c.StoreDriver {
	case DriverPostgres, DriverMemory:
	default:
		return fmt.Errorf("invalid config: STORE_DRIVER must be %q or %q, got %q",
			DriverPostgres, DriverMemory, c.StoreDriver)
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("invalid config: JWT_SECRET must not be empty")
	}
	if c.LockTimeout <= 0 {
		return fmt.Errorf("invalid config: LOCK_TIMEOUT must be positive")
	}
	if c.TxnRetries < 1 {
		return fmt.Errorf("invalid config: TXN_RETRIES must be at least 1")
	}
	if c.JWTTTL <= 0 {
		return fmt.Errorf("invalid config: JWT_TTL must be positive")
	}
	return nil
}
