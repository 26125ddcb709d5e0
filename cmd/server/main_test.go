package main

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexgen/bankledger/internal/infrastructure/config"
	"github.com/nexgen/bankledger/internal/infrastructure/metrics"
	"github.com/nexgen/bankledger/internal/infrastructure/rates"
)

func memoryConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("STORAGE_DRIVER", config.StorageMemory)
	t.Setenv("RATE_LIMIT_RPS", "0")
	cfg, err := config.Load()
	require.NoError(t, err)
	cfg.RatesAPIURL = ""
	cfg.RedisEnabled = false
	return cfg
}

func TestBuildApp_MemoryStorage(t *testing.T) {
	cfg := memoryConfig(t)

	a, err := buildApp(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(a.close)

	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/users", strings.NewReader(`{"email":"ada@example.com","name":"Ada"}`))
	a.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"iban":"DE`)
}

func TestBuildApp_WithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := memoryConfig(t)
	cfg.RedisEnabled = true
	cfg.RedisURL = "redis://" + mr.Addr()

	a, err := buildApp(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(a.close)

	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"redis":"ok"`)
}

func TestBuildApp_RedisUnavailable(t *testing.T) {
	cfg := memoryConfig(t)
	cfg.RedisEnabled = true
	cfg.RedisURL = "redis://127.0.0.1:1"

	_, err := buildApp(context.Background(), cfg, zerolog.Nop())
	assert.Error(t, err)
}

func TestNewRateProvider(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	cfg := &config.Config{RatesTimeout: time.Second, RatesCacheTTL: time.Minute}

	_, ok := newRateProvider(cfg, nil, m, zerolog.Nop()).(*rates.StaticProvider)
	assert.True(t, ok, "empty URL selects the static table")

	cfg.RatesAPIURL = "http://rates.invalid"
	_, ok = newRateProvider(cfg, nil, m, zerolog.Nop()).(*rates.HTTPProvider)
	assert.True(t, ok, "no redis means no cache")

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	_, ok = newRateProvider(cfg, client, m, zerolog.Nop()).(*rates.CachedProvider)
	assert.True(t, ok, "redis enables the rate cache")
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	cfg := memoryConfig(t)
	cfg.HTTPShutdownTimeout = 2 * time.Second

	a, err := buildApp(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(a.close)

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.serve(ctx, lis) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + lis.Addr().String() + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("serve did not return after cancel")
	}
}
