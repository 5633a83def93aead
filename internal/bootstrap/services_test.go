package bootstrap

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/mmk-jobitems/config"
	"github.com/target/mmk-jobitems/internal/domain/model"
	"github.com/target/mmk-jobitems/internal/testutil"
)

func TestErrorChannelCapacity(t *testing.T) {
	tests := []struct {
		name  string
		modes []config.ServiceMode
		want  int
	}{
		{name: "no services enabled", want: 0},
		{name: "http only", modes: []config.ServiceMode{config.ServiceModeHTTP}, want: 1},
		{
			name:  "http and sweeper",
			modes: []config.ServiceMode{config.ServiceModeHTTP, config.ServiceModeSweeper},
			want:  2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enabled := make(map[config.ServiceMode]bool, len(tt.modes))
			for _, mode := range tt.modes {
				enabled[mode] = true
			}

			if got := errorChannelCapacity(enabled); got != tt.want {
				t.Fatalf("errorChannelCapacity(%v) = %d, want %d", tt.modes, got, tt.want)
			}
			if got := errorChannelBufferSize(enabled); got != tt.want+1 {
				t.Fatalf("errorChannelBufferSize(%v) = %d, want %d", tt.modes, got, tt.want+1)
			}
		})
	}
}

func TestGetEnabledServices_StableOrder(t *testing.T) {
	cfg := &config.AppConfig{Services: "sweeper,http"}
	assert.Equal(t, []string{"http", "sweeper"}, GetEnabledServices(cfg))
	assert.Empty(t, GetEnabledServices(&config.AppConfig{Services: "nope"}))
	assert.Empty(t, GetEnabledServices(nil))

	require.NoError(t, ValidateServiceConfig(cfg))
	require.Error(t, ValidateServiceConfig(&config.AppConfig{Services: ""}))
	require.Error(t, ValidateServiceConfig(nil))
}

func TestNewLogger_Level(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, &config.AppConfig{LogLevel: "warn"})

	logger.Info("hidden")
	logger.Warn("shown", "k", "v")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "shown", line["msg"])
	assert.Equal(t, "v", line["k"])

	assert.Equal(t, slog.LevelDebug, ParseLogLevel("debug"))
	assert.Equal(t, slog.LevelInfo, ParseLogLevel("loud"))
}

func testAppConfig(services string) *config.AppConfig {
	cfg := &config.AppConfig{Services: services}
	cfg.Sanitize()
	return cfg
}

func TestNewServices_ResolvesThroughConfiguredAPI(t *testing.T) {
	api := testutil.NewFakeJobItemAPI(testutil.NewJobItem(5).WithTitle("Platform Engineer").Build())
	defer api.Close()

	cfg := testAppConfig("http")
	cfg.JobItemAPI.BaseURL = api.URL

	services, err := NewServices(&ServiceDeps{Config: cfg})
	require.NoError(t, err)
	require.NotNil(t, services.JobItems)
	require.NotNil(t, services.Cache)
	assert.Nil(t, services.Observability.MetricsSink)
	assert.False(t, services.Observability.FailureNotifier.Enabled())

	state, err := services.JobItems.Await(context.Background(), 5)
	require.NoError(t, err)
	require.NotNil(t, state.JobItem)
	assert.Equal(t, "Platform Engineer", state.JobItem.Title)

	_, err = services.JobItems.Await(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, 1, api.Hits(5))
}

func TestNewServices_RejectsBadConfig(t *testing.T) {
	_, err := NewServices(nil)
	require.Error(t, err)

	cfg := testAppConfig("http")
	cfg.JobItemAPI.BaseURL = "not-a-url"
	_, err = NewServices(&ServiceDeps{Config: cfg})
	require.Error(t, err)
}

func TestNewServices_RedisTierWithoutClientFallsBack(t *testing.T) {
	cfg := testAppConfig("http")
	cfg.QueryCache.RedisEnabled = true

	services, err := NewServices(&ServiceDeps{Config: cfg})
	require.NoError(t, err)
	assert.NoError(t, services.JobItems.Health(context.Background()))
}

func TestBuildHTTPHandler_ServesHealth(t *testing.T) {
	cfg := testAppConfig("http")
	services, err := NewServices(&ServiceDeps{Config: cfg, Fetcher: nopFetcher{}})
	require.NoError(t, err)

	h := buildHTTPHandler(httpHandlerConfig{
		Logger:   slog.Default(),
		Services: routerServices(services, cfg, slog.Default()),
		HTTP:     cfg.HTTP,
	})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLaunchBackground_SkipsDisabledModes(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	deps := &serviceStartupDeps{
		ctx:             ctx,
		logger:          slog.Default(),
		enabledServices: map[config.ServiceMode]bool{config.ServiceModeHTTP: true},
		errCh:           make(chan error, 2),
	}

	ran := make(chan struct{}, 2)
	handles := startBackgroundServices(deps, []backgroundService{
		{mode: config.ServiceModeSweeper, name: "sweeper", start: func(context.Context) error {
			ran <- struct{}{}
			return nil
		}},
		{name: "always", start: func(context.Context) error {
			ran <- struct{}{}
			return nil
		}},
	})

	require.Len(t, handles, 1)
	assert.Equal(t, "always", handles[0].name)
	select {
	case <-handles[0].done:
	case <-time.After(time.Second):
		t.Fatal("background service did not finish")
	}
	assert.Len(t, ran, 1)
}

func TestSweeperBackgroundService_StopsWithContext(t *testing.T) {
	cfg := testAppConfig("sweeper")
	services, err := NewServices(&ServiceDeps{Config: cfg, Fetcher: nopFetcher{}})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	deps := &serviceStartupDeps{
		ctx:             ctx,
		cfg:             &ServiceOrchestrationConfig{Config: cfg, Services: services},
		logger:          slog.Default(),
		enabledServices: map[config.ServiceMode]bool{config.ServiceModeSweeper: true},
		errCh:           make(chan error, 1),
	}

	handles := startBackgroundServices(deps, buildBackgroundServices(deps))
	require.Len(t, handles, 1)

	cancel()
	select {
	case <-handles[0].done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
	assert.Empty(t, deps.errCh)
}

type nopFetcher struct{}

func (nopFetcher) FetchJobItem(_ context.Context, id model.JobItemID) (*model.JobItemEnvelope, error) {
	return testutil.NewJobItem(id).Envelope(), nil
}
