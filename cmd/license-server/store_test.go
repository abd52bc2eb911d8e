package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CloudNativeWorks/hwlicense/hwlicense/recordstore"
	"github.com/CloudNativeWorks/hwlicense/internal/config"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func writeSeed(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "keys.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

const seedBody = `[
  {"key": "TRIAL-1", "hwid": "", "duration_days": 30},
  {"key": "PERM-1", "hwid": ""},
  {"key": "FREE-1", "duration_days": 7}
]`

func TestOpenStore_MemorySeeded(t *testing.T) {
	cfg := &config.Config{
		Backend:        config.BackendMemory,
		SeedFile:       writeSeed(t, seedBody),
		ConnectTimeout: time.Second,
	}

	store, err := openStore(context.Background(), cfg, discard)
	require.NoError(t, err)
	defer store.Close(context.Background())

	rec, err := store.Find(context.Background(), "TRIAL-1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, recordstore.Open(), rec.HWID)
	assert.Equal(t, 30, *rec.DurationDays)

	rec, err = store.Find(context.Background(), "FREE-1")
	require.NoError(t, err)
	assert.Equal(t, recordstore.Unrestricted(), rec.HWID)
}

func TestOpenStore_MemoryEmpty(t *testing.T) {
	cfg := &config.Config{Backend: config.BackendMemory, ConnectTimeout: time.Second}

	store, err := openStore(context.Background(), cfg, discard)
	require.NoError(t, err)

	rec, err := store.Find(context.Background(), "anything")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestOpenStore_MissingSettings(t *testing.T) {
	for _, backend := range []string{config.BackendMongo, config.BackendPostgres, "redis"} {
		cfg := &config.Config{Backend: backend, ConnectTimeout: time.Second}
		_, err := openStore(context.Background(), cfg, discard)
		assert.Error(t, err, backend)
	}
}

func TestOpenStore_SQLite(t *testing.T) {
	ctx := context.Background()
	cfg := &config.Config{
		Backend:        config.BackendSQLite,
		SQLitePath:     filepath.Join(t.TempDir(), "licenses.db"),
		ConnectTimeout: 5 * time.Second,
	}

	store, err := openStore(ctx, cfg, discard)
	require.NoError(t, err)
	defer store.Close(ctx)

	require.NoError(t, store.Ping(ctx))
	rec, err := store.Find(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, rec)
}
