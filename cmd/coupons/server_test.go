package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/artpar/coupons/internal/shell/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "127.0.0.1",
			Port:            0,
			ShutdownTimeout: time.Second,
		},
		Database: DatabaseConfig{Driver: store.DriverSQLite, DSN: ":memory:"},
	}
}

func TestNewServer_DatabaseError(t *testing.T) {
	cfg := testConfig()
	cfg.Database.Driver = "oracle"

	_, err := NewServer(cfg, zap.NewNop())
	require.Error(t, err)

	var sErr *ServerError
	require.True(t, errors.As(err, &sErr))
	assert.Equal(t, ExitDatabaseError, sErr.ExitCode)
	assert.ErrorIs(t, err, store.ErrConnectionFailed)
}

func TestServer_StartStopsOnCancel(t *testing.T) {
	server, err := NewServer(testConfig(), zap.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- server.Start(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestServer_Seed(t *testing.T) {
	server, err := NewServer(testConfig(), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(server.Close)

	path := filepath.Join(t.TempDir(), "coupons.yaml")
	expires := time.Now().Add(24 * time.Hour).UTC().Format(time.RFC3339)
	content := "coupons:\n" +
		"  - code: SEED01\n" +
		"    description: Welcome\n" +
		"    discount_value: \"7.50\"\n" +
		"    expiration_date: " + expires + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	require.NoError(t, server.Seed(context.Background(), path))

	exists, err := server.store.ExistsByCode(context.Background(), "SEED01")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestServer_SeedMissingFile(t *testing.T) {
	server, err := NewServer(testConfig(), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(server.Close)

	err = server.Seed(context.Background(), filepath.Join(t.TempDir(), "nope.yaml"))

	var sErr *ServerError
	require.True(t, errors.As(err, &sErr))
	assert.Equal(t, ExitSeedError, sErr.ExitCode)
}
