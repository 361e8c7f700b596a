package inkboard

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// StoreKind selects the persistence backend of the server.
type StoreKind string

const (
	StoreMemory   StoreKind = "memory"
	StoreSQLite   StoreKind = "sqlite"
	StorePostgres StoreKind = "postgres"
)

// Config holds the server configuration. Values come from a YAML file when
// one is given, with environment variables filling any field left empty.
type Config struct {
	// ListenAddr is the host:port the HTTP server binds to.
	ListenAddr string `yaml:"listen_addr"`

	// Store selects the backend: memory, sqlite, or postgres.
	Store StoreKind `yaml:"store"`

	// SQLitePath is the database file used when Store is sqlite.
	SQLitePath string `yaml:"sqlite_path"`

	// PostgresDSN is the connection string used when Store is postgres.
	PostgresDSN string `yaml:"postgres_dsn"`

	// LogLevel is a zerolog level name: debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
}

// DefaultConfig returns the configuration used when nothing else is set:
// a SQLite server on :8080 writing to inkboard.db.
func DefaultConfig() *Config {
	return &Config{
		ListenAddr: ":8080",
		Store:      StoreSQLite,
		SQLitePath: "inkboard.db",
		LogLevel:   "info",
	}
}

// LoadConfig builds the configuration: defaults, then the YAML file at path
// (skipped when path is empty), then INKBOARD_* environment variables for
// any field still at its default or empty.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.ListenAddr = getEnv("INKBOARD_LISTEN_ADDR", cfg.ListenAddr)
	cfg.Store = StoreKind(getEnv("INKBOARD_STORE", string(cfg.Store)))
	cfg.SQLitePath = getEnv("INKBOARD_SQLITE_PATH", cfg.SQLitePath)
	cfg.PostgresDSN = getEnv("INKBOARD_POSTGRES_DSN", cfg.PostgresDSN)
	cfg.LogLevel = getEnv("INKBOARD_LOG_LEVEL", cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for contradictions before any
// connection is attempted.
func (c *Config) Validate() error {
	switch c.Store {
	case StoreMemory:
	case StoreSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("sqlite store requires sqlite_path")
		}
	case StorePostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("postgres store requires postgres_dsn")
		}
	default:
		return fmt.Errorf("unknown store kind %q", c.Store)
	}
	if c.ListenAddr == "" {
		return fmt.Errorf("listen_addr is required")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
