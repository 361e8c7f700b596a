// Package inkboard wires the HTTP API of the board server: configuration,
// store selection, routing, and the serve loop.
//
// The server is a plain JSON-over-HTTP API. Clients poll and mutate through
// the routes in [App.Routes]; there is no push channel, so a client that
// falls out of sync reloads the board with GET requests.
package inkboard

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/inkboard/inkboard/pkg/store"
	"github.com/inkboard/inkboard/pkg/store/memory"
	"github.com/inkboard/inkboard/pkg/store/postgres"
	"github.com/inkboard/inkboard/pkg/store/sqlite"
)

// App holds the server state: the selected store and the logger.
type App struct {
	store  store.Store
	config *Config
	log    zerolog.Logger
}

// New creates an application instance, connecting to the store the
// configuration selects. The store is migrated lazily; call
// [App.Migrate] (or run `inkboard migrate`) before serving a fresh
// database.
func New(ctx context.Context, config *Config) (*App, error) {
	log := NewLogger(config.LogLevel)

	var appStore store.Store
	var err error
	switch config.Store {
	case StoreMemory:
		appStore = memory.NewMemoryStore()
		log.Info().Msg("using in-memory store")
	case StoreSQLite:
		appStore, err = sqlite.NewSQLiteStore(ctx, config.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		log.Info().Str("path", config.SQLitePath).Msg("using sqlite store")
	case StorePostgres:
		appStore, err = postgres.NewPostgresStore(config.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		log.Info().Msg("using postgres store")
	default:
		return nil, fmt.Errorf("unknown store kind %q", config.Store)
	}

	return &App{store: appStore, config: config, log: log}, nil
}

// NewWithStore creates an application over an existing store. Used by tests
// and by the export and import commands, which open the store themselves.
func NewWithStore(s store.Store, config *Config) *App {
	return &App{store: s, config: config, log: NewLogger(config.LogLevel)}
}

// Migrate brings the store schema up to date.
func (a *App) Migrate(ctx context.Context) error {
	return a.store.Migrate(ctx)
}

// Close releases the store.
func (a *App) Close() error {
	if a.store != nil {
		return a.store.Close()
	}
	return nil
}

// Store returns the underlying store. Useful for tests.
func (a *App) Store() store.Store {
	return a.store
}

// NewLogger builds the console zerolog logger at the given level name,
// falling back to info for unknown names.
func NewLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(lvl).
		With().Timestamp().Logger()
}
