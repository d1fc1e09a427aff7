package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/RounakBanerji/Twinenergy-Demo/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"
)

func useTempSQLite(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "twinenergy.db")
	t.Setenv("DATABASE_DRIVER", config.DriverSQLite)
	t.Setenv("SQLITE_PATH", path)
	t.Setenv("RABBITMQ_URL", "")
	t.Setenv("REDIS_URL", "")
	t.Setenv("OPENAI_API_KEY", "")
	return path
}

func TestAppGraphIsComplete(t *testing.T) {
	useTempSQLite(t)

	require.NoError(t, fx.ValidateApp(appOptions("")))
}

func TestRootCmd_Subcommands(t *testing.T) {
	root := newRootCmd()

	names := make([]string, 0)
	for _, cmd := range root.Commands() {
		names = append(names, cmd.Name())
	}
	assert.Subset(t, names, []string{"serve", "init-schema", "audit"})
	assert.NotNil(t, root.PersistentFlags().Lookup("config"))
}

func TestInitSchemaThenAudit(t *testing.T) {
	useTempSQLite(t)

	root := newRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"init-schema"})
	require.NoError(t, root.Execute())

	var out bytes.Buffer
	root = newRootCmd()
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"audit", "--limit", "5"})
	require.NoError(t, root.Execute())

	var entries []map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &entries))
	assert.Empty(t, entries)
}

func TestStoreTarget_MasksPostgresPassword(t *testing.T) {
	target := storeTarget(config.DatabaseConfig{
		Driver: config.DriverPostgres,
		URL:    "postgres://app:secret@db:5432/twinenergy",
	})
	assert.NotContains(t, target, "secret")

	assert.Equal(t, "data/x.db", storeTarget(config.DatabaseConfig{
		Driver:     config.DriverSQLite,
		SQLitePath: "data/x.db",
	}))
}

func TestDefaultWiring_NoRateLimitEveryCallAudited(t *testing.T) {
	useTempSQLite(t)
	t.Setenv("RATE_LIMIT_RPS", "0")

	cfg, err := config.Load("")
	require.NoError(t, err)
	logger := zap.NewNop()

	lc := fxtest.NewLifecycle(t)
	store, err := ProvideStore(lc, logger, cfg)
	require.NoError(t, err)
	limiter := ProvideRateLimiter(lc, cfg)
	assert.Nil(t, limiter)

	recorder := ProvideAuditRecorder(store, logger)
	energy := ProvideEnergyService(store, recorder, ProvideValidator(), ProvideAnomalyDetector(cfg), nil, logger)
	handler := ProvideHTTPHandler(cfg, limiter, logger, energy, ProvideHealthHandler(store, nil, nil), nil, nil)

	lc.RequireStart()
	defer lc.RequireStop()

	const calls = 150
	for i := 0; i < calls; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/energy", strings.NewReader(`{"sensorId":"s1","powerOutput":1}`))
		req.RemoteAddr = "203.0.113.9:4000"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, "call %d", i)
	}

	entries, err := store.RecentAudit(context.Background(), 1000)
	require.NoError(t, err)
	assert.Len(t, entries, calls)
}

func TestProvideRateLimiter_Enabled(t *testing.T) {
	cfg := config.Default()
	cfg.RateLimit.RequestsPerSecond = 5
	cfg.RateLimit.Burst = 1

	lc := fxtest.NewLifecycle(t)
	limiter := ProvideRateLimiter(lc, cfg)
	require.NotNil(t, limiter)
	lc.RequireStart().RequireStop()
}
