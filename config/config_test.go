package config

import (
	"testing"
	"time"

	env "github.com/caarlos0/env/v11"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseServices(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expected    map[ServiceMode]bool
		expectError bool
	}{
		{
			name:     "single service - http",
			input:    "http",
			expected: map[ServiceMode]bool{ServiceModeHTTP: true},
		},
		{
			name:     "single service - sweeper",
			input:    "sweeper",
			expected: map[ServiceMode]bool{ServiceModeSweeper: true},
		},
		{
			name:  "services with spaces",
			input: " http , sweeper ",
			expected: map[ServiceMode]bool{
				ServiceModeHTTP:    true,
				ServiceModeSweeper: true,
			},
		},
		{
			name:     "duplicate services",
			input:    "http,http",
			expected: map[ServiceMode]bool{ServiceModeHTTP: true},
		},
		{
			name:        "empty string",
			input:       "",
			expectError: true,
		},
		{
			name:        "only commas",
			input:       ",,",
			expectError: true,
		},
		{
			name:        "unknown service",
			input:       "http,scheduler",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ParseServices(tt.input)
			if tt.expectError {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestConfig_ServiceEnabledMethods(t *testing.T) {
	cfg := AppConfig{Services: "http"}
	assert.True(t, cfg.IsHTTPServerEnabled())
	assert.False(t, cfg.IsSweeperEnabled())

	cfg = AppConfig{Services: "http,sweeper"}
	assert.True(t, cfg.IsHTTPServerEnabled())
	assert.True(t, cfg.IsSweeperEnabled())

	cfg = AppConfig{Services: "bogus"}
	assert.False(t, cfg.IsHTTPServerEnabled())
	assert.False(t, cfg.IsSweeperEnabled())
}

func TestValidServiceModes(t *testing.T) {
	assert.Equal(t, []ServiceMode{ServiceModeHTTP, ServiceModeSweeper}, ValidServiceModes())
}

func TestAppConfig_Defaults(t *testing.T) {
	var cfg AppConfig
	require.NoError(t, env.Parse(&cfg))
	cfg.Sanitize()

	assert.Equal(t, defaultJobItemAPIBaseURL, cfg.JobItemAPI.BaseURL)
	assert.Zero(t, cfg.JobItemAPI.Timeout)
	assert.Equal(t, time.Hour, cfg.QueryCache.StaleTime)
	assert.Equal(t, time.Hour, cfg.QueryCache.GCTime)
	assert.Equal(t, 1024, cfg.QueryCache.LocalCapacity)
	assert.Equal(t, 5*time.Minute, cfg.QueryCache.SweepInterval)
	assert.False(t, cfg.QueryCache.RedisEnabled)
	assert.Equal(t, "jobitems:", cfg.QueryCache.RedisPrefix)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, "http", cfg.Services)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestAppConfig_ParseEnv(t *testing.T) {
	t.Setenv("JOBITEM_API_BASE_URL", "https://jobs.example.com/api/data/")
	t.Setenv("JOBITEM_API_TIMEOUT", "3s")
	t.Setenv("QUERY_CACHE_STALE_TIME", "10m")
	t.Setenv("QUERY_CACHE_GC_TIME", "1m")
	t.Setenv("QUERY_CACHE_REDIS_ENABLED", "true")
	t.Setenv("REDIS_URI", "redis:6379")
	t.Setenv("REDIS_CLUSTER_NODES", "a:7000,b:7001")
	t.Setenv("SERVICES", "http,sweeper")
	t.Setenv("LOG_LEVEL", " DEBUG ")

	var cfg AppConfig
	require.NoError(t, env.Parse(&cfg))
	cfg.Sanitize()

	assert.Equal(t, "https://jobs.example.com/api/data", cfg.JobItemAPI.BaseURL)
	assert.Equal(t, 3*time.Second, cfg.JobItemAPI.Timeout)
	assert.Equal(t, 10*time.Minute, cfg.QueryCache.StaleTime)
	assert.Equal(t, 10*time.Minute, cfg.QueryCache.GCTime, "gc time is clamped to the stale time")
	assert.True(t, cfg.QueryCache.RedisEnabled)
	assert.Equal(t, "redis:6379", cfg.Redis.URI)
	assert.Equal(t, []string{"a:7000", "b:7001"}, cfg.Redis.ClusterNodes)
	assert.True(t, cfg.IsSweeperEnabled())
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestQueryCacheConfig_Sanitize(t *testing.T) {
	cfg := QueryCacheConfig{
		StaleTime:     -time.Second,
		GCTime:        0,
		LocalCapacity: -5,
		SweepInterval: time.Millisecond,
		RedisPrefix:   "  jobs: ",
	}
	cfg.Sanitize()

	assert.Equal(t, time.Hour, cfg.StaleTime)
	assert.Equal(t, time.Hour, cfg.GCTime)
	assert.Equal(t, 1024, cfg.LocalCapacity)
	assert.Equal(t, minSweepInterval, cfg.SweepInterval)
	assert.Equal(t, "jobs:", cfg.RedisPrefix)
}

func TestHTTPConfig_Sanitize(t *testing.T) {
	cfg := HTTPConfig{CompressionLevel: 42}
	cfg.Sanitize()
	assert.Equal(t, 9, cfg.CompressionLevel)
	assert.Equal(t, 30*time.Second, cfg.WaitTimeout)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)

	cfg = HTTPConfig{CompressionLevel: 0}
	cfg.Sanitize()
	assert.Equal(t, 1, cfg.CompressionLevel)
}

func TestObservabilityMetricsConfig_Sanitize(t *testing.T) {
	cfg := ObservabilityMetricsConfig{
		Enabled:       true,
		StatsdAddress: " ",
	}

	cfg.Sanitize()

	if cfg.Enabled {
		t.Fatalf("expected enabled to be false when address is empty")
	}

	cfg = ObservabilityMetricsConfig{
		Enabled:       true,
		StatsdAddress: " statsd:1234 ",
		Prefix:        ".jobitems.",
	}

	cfg.Sanitize()

	if !cfg.IsEnabled() {
		t.Fatalf("expected metrics to remain enabled")
	}
	if cfg.StatsdAddress != "statsd:1234" {
		t.Fatalf("expected address to be trimmed, got %q", cfg.StatsdAddress)
	}
	assert.Equal(t, "jobitems", cfg.Prefix)
	assert.Equal(t, time.Minute, cfg.StatsInterval)
}

func TestObservabilityNotificationsConfig_Sanitize(t *testing.T) {
	cfg := ObservabilityNotificationsConfig{
		Enabled:    true,
		Timeout:    0,
		RetryLimit: -1,
		Slack: SlackNotificationConfig{
			Enabled:    true,
			WebhookURL: " ",
			Channel:    "  ",
			Username:   "",
		},
		PagerDuty: PagerDutyNotificationConfig{
			Enabled:    true,
			RoutingKey: " ",
			Source:     "",
			Component:  "",
		},
	}

	cfg.Sanitize()

	if cfg.Timeout <= 0 {
		t.Fatalf("expected timeout to fall back to default, got %v", cfg.Timeout)
	}
	if cfg.RetryLimit < 0 {
		t.Fatalf("expected retry limit to be clamped to >= 0, got %d", cfg.RetryLimit)
	}
	if cfg.Slack.Enabled {
		t.Fatal("expected slack to be disabled without a webhook url")
	}
	if cfg.PagerDuty.Enabled {
		t.Fatal("expected pagerduty to be disabled without a routing key")
	}
	if cfg.PagerDuty.Source != "jobitems" {
		t.Fatalf("expected pagerduty source default, got %q", cfg.PagerDuty.Source)
	}
	if cfg.PagerDuty.Component != "job-item-resolver" {
		t.Fatalf("expected pagerduty component default, got %q", cfg.PagerDuty.Component)
	}

	// Disabled top-level should disable child sinks.
	cfg = ObservabilityNotificationsConfig{
		Enabled: false,
		Slack: SlackNotificationConfig{
			Enabled:    true,
			WebhookURL: "https://hooks.slack.com/services/test",
		},
		PagerDuty: PagerDutyNotificationConfig{
			Enabled:    true,
			RoutingKey: "abc",
		},
	}
	cfg.Sanitize()

	if cfg.Slack.Enabled {
		t.Fatal("expected slack to be disabled when top-level notifications disabled")
	}
	if cfg.PagerDuty.Enabled {
		t.Fatal("expected pagerduty to be disabled when top-level notifications disabled")
	}
}
