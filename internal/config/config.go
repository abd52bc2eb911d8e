package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Store backends.
const (
	BackendMongo    = "mongo"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
	BackendMemory   = "memory"
)

// Config is the license server configuration, read from the environment.
type Config struct {
	ListenAddr     string   `envconfig:"LISTEN_ADDR" default:"0.0.0.0:8000"`
	MetricsAddr    string   `envconfig:"METRICS_ADDR" default:""`
	AllowedOrigins []string `envconfig:"ALLOWED_ORIGINS" default:"*"`

	Backend string `envconfig:"STORE_BACKEND" default:"mongo"`

	MongoURI        string `envconfig:"MONGODB_URI"`
	MongoDatabase   string `envconfig:"MONGODB_DATABASE" default:"license_db"`
	MongoCollection string `envconfig:"MONGODB_COLLECTION" default:"keys"`

	PostgresDSN   string `envconfig:"POSTGRES_DSN"`
	PostgresTable string `envconfig:"POSTGRES_TABLE" default:"license_keys"`

	SQLitePath string `envconfig:"SQLITE_PATH" default:"licenses.db"`

	// SeedFile optionally preloads the memory backend.
	SeedFile string `envconfig:"SEED_FILE"`

	// Timezone names the location whose calendar date counts as "today".
	Timezone string `envconfig:"TIMEZONE" default:"Local"`

	ConnectTimeout  time.Duration `envconfig:"CONNECT_TIMEOUT" default:"10s"`
	ReadTimeout     time.Duration `envconfig:"READ_TIMEOUT" default:"60s"`
	WriteTimeout    time.Duration `envconfig:"WRITE_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
	DrainDuration   time.Duration `envconfig:"DRAIN_DURATION" default:"45s"`
}

// Load reads envFile (if it exists) into the environment, then processes
// the environment into a Config. Variables already set take precedence over
// the file.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}
	return &cfg, nil
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// ValidateStore checks that the selected backend has what it needs to
// connect. A failure here leaves the server running without a store.
func (c *Config) ValidateStore() error {
	switch c.Backend {
	case BackendMongo:
		if c.MongoURI == "" {
			return errors.New("MONGODB_URI environment variable is required for the mongo backend")
		}
	case BackendPostgres:
		if c.PostgresDSN == "" {
			return errors.New("POSTGRES_DSN environment variable is required for the postgres backend")
		}
	case BackendSQLite:
		if c.SQLitePath == "" {
			return errors.New("SQLITE_PATH environment variable is required for the sqlite backend")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.Backend)
	}
	return nil
}
