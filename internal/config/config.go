package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config holds all environment configuration values for the application.
type Config struct {
	// Env selects log formatting and cookie security ("production" enables Secure cookies)
	Env string `env:"APP_ENV" envDefault:"development"`

	// ServerPort is the port the HTTP server listens on
	ServerPort string `env:"PORT" envDefault:"8080"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// StoreBackend is "memory" for a single process or "redis" for a shared store
	StoreBackend string `env:"STORE_BACKEND" envDefault:"memory"`
	RedisURL     string `env:"REDIS_URL"`

	// RoomTTL is the fixed lifetime of every room, measured from creation
	RoomTTL time.Duration `env:"ROOM_TTL" envDefault:"10m"`

	// RoomCapacity caps admitted tokens per room, the creator included
	RoomCapacity int `env:"ROOM_CAPACITY" envDefault:"50"`

	// Room creation is rate limited per client IP
	CreateRoomLimit  int           `env:"CREATE_ROOM_LIMIT" envDefault:"10"`
	CreateRoomWindow time.Duration `env:"CREATE_ROOM_WINDOW" envDefault:"1m"`

	CleanupInterval time.Duration `env:"CLEANUP_INTERVAL" envDefault:"15s"`

	// TrustProxyHeaders takes the client IP from X-Forwarded-For / X-Real-IP.
	// Only enable behind a proxy that overwrites those headers.
	TrustProxyHeaders bool `env:"TRUST_PROXY_HEADERS" envDefault:"false"`

	CORSOrigins  []string `env:"CORS_ORIGINS" envSeparator:","`
	MaxBodyBytes int64    `env:"MAX_BODY_BYTES" envDefault:"65536"`
}

// Load reads a .env file if present, then the environment, and validates the result.
func Load() (*Config, error) {
	// Not an error if missing: production passes real environment variables
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.RoomTTL <= 0 {
		errs = append(errs, errors.New("ROOM_TTL must be positive"))
	}
	if c.RoomCapacity <= 0 {
		errs = append(errs, errors.New("ROOM_CAPACITY must be positive"))
	}
	if c.CreateRoomLimit <= 0 || c.CreateRoomWindow <= 0 {
		errs = append(errs, errors.New("CREATE_ROOM_LIMIT and CREATE_ROOM_WINDOW must be positive"))
	}
	if c.CleanupInterval <= 0 {
		errs = append(errs, errors.New("CLEANUP_INTERVAL must be positive"))
	}
	if c.MaxBodyBytes <= 0 {
		errs = append(errs, errors.New("MAX_BODY_BYTES must be positive"))
	}
	switch c.StoreBackend {
	case BackendMemory:
	case BackendRedis:
		if c.RedisURL == "" {
			errs = append(errs, errors.New("REDIS_URL is required when STORE_BACKEND=redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend))
	}
	return errors.Join(errs...)
}

// IsProduction reports whether the server runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
