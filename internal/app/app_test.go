package app

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alexanderramin/planrollup/internal/config"
	"github.com/alexanderramin/planrollup/internal/keyring"
	"github.com/alexanderramin/planrollup/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gokeyring "github.com/zalando/go-keyring"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Backend:     config.BackendSQLite,
		SQLitePath:  filepath.Join(dir, "plans.db"),
		Timeout:     time.Second,
		Backoff:     time.Millisecond,
		BatchSize:   100,
		PageSize:    100,
		LogLevel:    "info",
		MetricsFile: filepath.Join(dir, "planrollup.prom"),
	}
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestOpen_SQLiteWritesMetricsOnClose(t *testing.T) {
	cfg := testConfig(t)
	a, err := Open(context.Background(), cfg, discard())
	require.NoError(t, err)

	_, err = a.Store.Select(context.Background(), store.TableWeeklyPlans, store.Query{})
	require.NoError(t, err)

	run, err := a.Maintenance.CleanupEmpty(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, 0, run.Cleanup.Empty)

	require.NoError(t, a.Close())

	data, err := os.ReadFile(cfg.MetricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `planrollup_store_operations_total{op="select",outcome="ok",table="weekly_plans"}`)
}

func TestOpenStore_PostgRESTNeedsKey(t *testing.T) {
	gokeyring.MockInit()
	cfg := testConfig(t)
	cfg.Backend = config.BackendPostgREST
	cfg.RestURL = "https://plans.example.com/rest/v1"

	_, _, err := OpenStore(context.Background(), cfg, nil, discard())
	assert.ErrorIs(t, err, ErrNoRestKey)

	require.NoError(t, keyring.SetRestKey("from-keyring"))
	s, closeFn, err := OpenStore(context.Background(), cfg, nil, discard())
	require.NoError(t, err)
	assert.NotNil(t, s)
	assert.NoError(t, closeFn())
}

func TestOpenStore_UnknownBackend(t *testing.T) {
	cfg := testConfig(t)
	cfg.Backend = "mysql"

	_, _, err := OpenStore(context.Background(), cfg, nil, discard())
	assert.ErrorContains(t, err, "unknown backend")
}

func TestOpen_BadReferenceFile(t *testing.T) {
	cfg := testConfig(t)
	cfg.ReferenceFile = filepath.Join(t.TempDir(), "missing.yaml")

	_, err := Open(context.Background(), cfg, discard())
	assert.Error(t, err)
}
