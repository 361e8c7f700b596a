package inkboard_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkboard/inkboard/pkg/inkboard"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := inkboard.LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, inkboard.StoreSQLite, cfg.Store)
	assert.Equal(t, "inkboard.db", cfg.SQLitePath)
}

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"listen_addr: \":9000\"\nstore: postgres\npostgres_dsn: \"postgres://localhost/inkboard\"\nlog_level: debug\n",
	), 0o600))

	cfg, err := inkboard.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.ListenAddr)
	assert.Equal(t, inkboard.StorePostgres, cfg.Store)
	assert.Equal(t, "postgres://localhost/inkboard", cfg.PostgresDSN)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("INKBOARD_LISTEN_ADDR", ":7777")
	t.Setenv("INKBOARD_STORE", "memory")

	cfg, err := inkboard.LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, ":7777", cfg.ListenAddr)
	assert.Equal(t, inkboard.StoreMemory, cfg.Store)
}

func TestConfigValidation(t *testing.T) {
	cfg := inkboard.DefaultConfig()
	cfg.Store = "cassandra"
	assert.Error(t, cfg.Validate())

	cfg = inkboard.DefaultConfig()
	cfg.SQLitePath = ""
	assert.Error(t, cfg.Validate())

	cfg = inkboard.DefaultConfig()
	cfg.Store = inkboard.StorePostgres
	assert.Error(t, cfg.Validate(), "postgres without a DSN")

	cfg = inkboard.DefaultConfig()
	cfg.ListenAddr = ""
	assert.Error(t, cfg.Validate())
}
