package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/target/mmk-jobitems/config"
	"github.com/target/mmk-jobitems/internal/adapters/jobitemapi"
	"github.com/target/mmk-jobitems/internal/core"
	"github.com/target/mmk-jobitems/internal/data"
	"github.com/target/mmk-jobitems/internal/observability/metrics"
	"github.com/target/mmk-jobitems/internal/observability/notify/pagerduty"
	"github.com/target/mmk-jobitems/internal/observability/notify/slack"
	"github.com/target/mmk-jobitems/internal/observability/statsd"
	"github.com/target/mmk-jobitems/internal/service"
	"github.com/target/mmk-jobitems/internal/service/failurenotifier"
	"github.com/target/mmk-jobitems/internal/service/querycache"
)

// ServiceContainer holds all application services.
type ServiceContainer struct {
	JobItems      *service.JobItemService
	Cache         *service.JobItemCache
	Observability ObservabilityContainer
}

// ObservabilityContainer groups shared observability dependencies.
type ObservabilityContainer struct {
	MetricsSink     *statsd.Client
	MetricsConfig   config.ObservabilityMetricsConfig
	CacheMetrics    *metrics.CacheRecorder
	FailureNotifier *failurenotifier.Service
	NotifierConfig  config.ObservabilityNotificationsConfig
}

// Sink returns the metrics sink as an interface, nil when metrics are disabled.
//
//nolint:ireturn // callers take the statsd.Sink port.
func (o ObservabilityContainer) Sink() statsd.Sink {
	if o.MetricsSink == nil {
		return nil
	}
	return o.MetricsSink
}

// Close releases the metrics socket.
func (o ObservabilityContainer) Close() error {
	if o.MetricsSink == nil {
		return nil
	}
	return o.MetricsSink.Close()
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config      *config.AppConfig
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
	// Fetcher overrides the HTTP fetcher built from config.
	Fetcher core.JobItemFetcher
}

// buildObservability configures metrics and notification adapters.
func buildObservability(logger *slog.Logger, cfg config.ObservabilityConfig) ObservabilityContainer {
	obsLogger := logger
	if obsLogger == nil {
		obsLogger = slog.Default()
	}

	var metricsSink *statsd.Client
	if cfg.Metrics.IsEnabled() {
		client, err := statsd.NewClient(statsd.Config{
			Enabled: true,
			Address: cfg.Metrics.StatsdAddress,
			Prefix:  cfg.Metrics.Prefix,
			Logger:  obsLogger,
		})
		if err != nil {
			obsLogger.Error("failed to initialise statsd client", "error", err)
		} else {
			metricsSink = client
		}
	}

	container := ObservabilityContainer{
		MetricsSink:    metricsSink,
		MetricsConfig:  cfg.Metrics,
		NotifierConfig: cfg.Notifications,
	}
	if sink := container.Sink(); sink != nil {
		container.CacheMetrics = metrics.NewCacheRecorder(sink)
	}
	container.FailureNotifier = buildFailureNotifier(obsLogger, cfg.Notifications, container.Sink())
	return container
}

func buildFailureNotifier(
	logger *slog.Logger,
	cfg config.ObservabilityNotificationsConfig,
	sink statsd.Sink,
) *failurenotifier.Service {
	baseLogger := logger
	if baseLogger == nil {
		baseLogger = slog.Default()
	}

	if !cfg.Enabled {
		return failurenotifier.NewService(failurenotifier.Options{
			Logger:  baseLogger.With("component", "failure_notifier"),
			Metrics: sink,
		})
	}

	sinks := make([]failurenotifier.SinkRegistration, 0, 2)

	if cfg.Slack.Enabled {
		client, err := slack.NewClient(slack.Config{
			WebhookURL:       cfg.Slack.WebhookURL,
			Channel:          cfg.Slack.Channel,
			Username:         cfg.Slack.Username,
			Timeout:          cfg.Timeout,
			RetryLimit:       cfg.RetryLimit,
			JobItemURLPrefix: cfg.Slack.JobItemURLPrefix,
		})
		if err != nil {
			baseLogger.Error("failed to initialise slack notifier", "error", err)
		} else {
			sinks = append(sinks, failurenotifier.SinkRegistration{Name: "slack", Sink: client})
		}
	}

	if cfg.PagerDuty.Enabled {
		client, err := pagerduty.NewClient(pagerduty.Config{
			RoutingKey: cfg.PagerDuty.RoutingKey,
			Source:     cfg.PagerDuty.Source,
			Component:  cfg.PagerDuty.Component,
			Timeout:    cfg.Timeout,
			RetryLimit: cfg.RetryLimit,
		})
		if err != nil {
			baseLogger.Error("failed to initialise pagerduty notifier", "error", err)
		} else {
			sinks = append(sinks, failurenotifier.SinkRegistration{Name: "pagerduty", Sink: client})
		}
	}

	return failurenotifier.NewService(failurenotifier.Options{
		Logger:  baseLogger.With("component", "failure_notifier"),
		Sinks:   sinks,
		Metrics: sink,
	})
}

func newJobItemCache(cfg config.QueryCacheConfig, redisClient redis.UniversalClient, obs ObservabilityContainer, logger *slog.Logger) *service.JobItemCache {
	opts := querycache.Options{
		Capacity: cfg.LocalCapacity,
		GCTime:   cfg.GCTime,
		Logger:   logger.With("component", "querycache"),
	}
	if obs.CacheMetrics != nil {
		opts.Metrics = obs.CacheMetrics
	}
	if cfg.RedisEnabled {
		if redisClient == nil {
			logger.Warn("query cache redis tier enabled without a redis client; using local tier only")
		} else {
			opts.Shared = data.NewRedisCacheRepo(redisClient)
			opts.SharedPrefix = cfg.RedisPrefix
		}
	}
	return service.NewJobItemCache(opts)
}

// NewServices wires the fetcher, cache and resolver.
func NewServices(deps *ServiceDeps) (ServiceContainer, error) {
	if deps == nil || deps.Config == nil {
		return ServiceContainer{}, errors.New("service deps with config are required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := deps.Config

	fetcher := deps.Fetcher
	if fetcher == nil {
		client, err := jobitemapi.NewClient(jobitemapi.Config{
			BaseURL: cfg.JobItemAPI.BaseURL,
			Timeout: cfg.JobItemAPI.Timeout,
		})
		if err != nil {
			return ServiceContainer{}, fmt.Errorf("build job item api client: %w", err)
		}
		fetcher = client
	}

	obs := buildObservability(logger, cfg.Observability)
	cache := newJobItemCache(cfg.QueryCache, deps.RedisClient, obs, logger)

	jobItems := service.NewJobItemService(service.JobItemServiceOptions{
		Fetcher: fetcher,
		Cache:   cache,
		Policy: service.JobItemQueryPolicy{
			StaleTime: cfg.QueryCache.StaleTime,
			Observer:  obs.FailureNotifier,
			Logger:    logger.With("component", "job_item_service"),
		},
	})

	return ServiceContainer{JobItems: jobItems, Cache: cache, Observability: obs}, nil
}

// ServiceOrchestrationConfig contains everything RunServicesWithShutdown needs.
type ServiceOrchestrationConfig struct {
	Config   *config.AppConfig
	Services ServiceContainer
	Logger   *slog.Logger
}

// ServiceStartupResult holds the handles of started services.
type ServiceStartupResult struct {
	HTTPServer *http.Server
	Background []backgroundServiceHandle
}

const (
	// shutdownWaitTimeout is the maximum time to wait for services to stop gracefully.
	shutdownWaitTimeout = 15 * time.Second
)

// serviceStartupDeps groups dependencies for service startup.
type serviceStartupDeps struct {
	ctx             context.Context
	cfg             *ServiceOrchestrationConfig
	logger          *slog.Logger
	enabledServices map[config.ServiceMode]bool
	errCh           chan error
}

// backgroundService describes a startable background component.
// An empty mode means the service runs whenever the process does.
type backgroundService struct {
	mode  config.ServiceMode
	name  string
	start func(context.Context) error
}

// backgroundServiceHandle tracks a running background service.
type backgroundServiceHandle struct {
	mode config.ServiceMode
	name string
	done <-chan struct{}
}

// startHTTPServerIfEnabled starts the HTTP server if enabled.
func startHTTPServerIfEnabled(deps *serviceStartupDeps) *http.Server {
	if deps == nil || deps.cfg == nil || !deps.enabledServices[config.ServiceModeHTTP] {
		return nil
	}
	return StartHTTPServer(&HTTPServerConfig{
		Config:   deps.cfg.Config,
		Services: deps.cfg.Services,
		Logger:   deps.logger,
	})
}

func launchBackground(ctx context.Context, deps *serviceStartupDeps, descriptor backgroundService) <-chan struct{} {
	if deps == nil || (descriptor.mode != "" && !deps.enabledServices[descriptor.mode]) {
		return nil
	}
	logger := deps.logger
	if logger == nil {
		logger = slog.Default()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := descriptor.start(ctx); err != nil {
			errMsg := fmt.Errorf("%s failed: %w", descriptor.name, err)
			select {
			case deps.errCh <- errMsg:
			case <-ctx.Done():
			default:
				logger.WarnContext(ctx, "dropping background service error", "service", descriptor.name, "error", errMsg)
			}
		}
	}()

	logger.InfoContext(ctx, "background service started", "service", descriptor.name, "mode", descriptor.mode)
	return done
}

func startBackgroundServices(deps *serviceStartupDeps, services []backgroundService) []backgroundServiceHandle {
	if deps == nil {
		return nil
	}
	handles := make([]backgroundServiceHandle, 0, len(services))

	for _, svc := range services {
		done := launchBackground(deps.ctx, deps, svc)
		if done == nil {
			continue
		}
		handles = append(handles, backgroundServiceHandle{mode: svc.mode, name: svc.name, done: done})
	}

	return handles
}

func newSweeperBackgroundService(deps *serviceStartupDeps) backgroundService {
	return backgroundService{
		mode: config.ServiceModeSweeper,
		name: "query cache sweeper",
		start: func(ctx context.Context) error {
			cache := deps.cfg.Services.Cache
			if cache == nil {
				return errors.New("query cache is not configured")
			}
			cache.RunSweeper(ctx, deps.cfg.Config.QueryCache.SweepInterval)
			return nil
		},
	}
}

func newCacheStatsBackgroundService(deps *serviceStartupDeps) backgroundService {
	return backgroundService{
		name: "query cache stats",
		start: func(ctx context.Context) error {
			runCacheStats(ctx, deps.cfg.Services, deps.cfg.Config.Observability.Metrics.StatsInterval)
			return nil
		},
	}
}

// runCacheStats publishes cache gauges every interval until ctx is done.
func runCacheStats(ctx context.Context, services ServiceContainer, interval time.Duration) {
	sink := services.Observability.Sink()
	if sink == nil || services.Cache == nil {
		return
	}
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			metrics.EmitCacheStats(sink, services.Cache.Stats())
		}
	}
}

func buildBackgroundServices(deps *serviceStartupDeps) []backgroundService {
	services := []backgroundService{newSweeperBackgroundService(deps)}
	if deps.cfg.Services.Observability.MetricsSink != nil {
		services = append(services, newCacheStatsBackgroundService(deps))
	}
	return services
}

func startServices(deps *serviceStartupDeps) ServiceStartupResult {
	return ServiceStartupResult{
		HTTPServer: startHTTPServerIfEnabled(deps),
		Background: startBackgroundServices(deps, buildBackgroundServices(deps)),
	}
}

// RunServicesWithShutdown starts all enabled services and manages their lifecycle.
// This function blocks until a shutdown signal is received or a service fails.
func RunServicesWithShutdown(cfg *ServiceOrchestrationConfig) error {
	if cfg == nil {
		return errors.New("service orchestration config is required")
	}
	serviceCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if cfg.Config == nil {
		return errors.New("service orchestration config missing AppConfig")
	}

	enabledServices, err := cfg.Config.GetEnabledServices()
	if err != nil {
		return fmt.Errorf("determine enabled services: %w", err)
	}
	errCh := make(chan error, errorChannelBufferSize(enabledServices))

	result := startServices(&serviceStartupDeps{
		ctx:             serviceCtx,
		cfg:             cfg,
		logger:          logger,
		enabledServices: enabledServices,
		errCh:           errCh,
	})

	return waitForShutdown(shutdownConfig{
		ctx:         serviceCtx,
		cancel:      cancel,
		errCh:       errCh,
		httpServer:  result.HTTPServer,
		cache:       cfg.Services.Cache,
		logger:      logger,
		backgrounds: result.Background,
		shutdownTTL: cfg.Config.HTTP.ShutdownTimeout,
	})
}

func errorChannelCapacity(enabled map[config.ServiceMode]bool) int {
	count := 0
	for _, mode := range config.ValidServiceModes() {
		if enabled[mode] {
			count++
		}
	}
	return count
}

func errorChannelBufferSize(enabled map[config.ServiceMode]bool) int {
	// One extra slot for mode-less services such as the stats reporter.
	return errorChannelCapacity(enabled) + 1
}

// shutdownConfig contains dependencies for graceful shutdown.
type shutdownConfig struct {
	ctx         context.Context
	cancel      context.CancelFunc
	errCh       <-chan error
	httpServer  *http.Server
	cache       *service.JobItemCache
	logger      *slog.Logger
	backgrounds []backgroundServiceHandle
	shutdownTTL time.Duration
}

// waitForShutdown waits for shutdown signal or service error.
func waitForShutdown(cfg shutdownConfig) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case <-quit:
		cfg.logger.Info("shutting down services...")
		cfg.cancel()
		return gracefulStop(cfg)
	case err := <-cfg.errCh:
		cfg.logger.Error("service error", "error", err)
		cfg.cancel()
		if stopErr := gracefulStop(cfg); stopErr != nil {
			cfg.logger.Error("graceful stop failed", "error", stopErr)
		}
		return err
	}
}

// gracefulStop stops the HTTP server, waits for background services and drains in-flight fetches.
func gracefulStop(cfg shutdownConfig) error {
	if cfg.httpServer != nil {
		// The service context is already canceled here.
		if err := ShutdownHTTPServer(ShutdownConfig{
			Context: context.WithoutCancel(cfg.ctx),
			Server:  cfg.httpServer,
			Timeout: cfg.shutdownTTL,
			Logger:  cfg.logger,
		}); err != nil {
			return err
		}
	}

	for _, svc := range cfg.backgrounds {
		waitForService(svc.done, svc.name, cfg.logger)
	}

	if cfg.cache != nil {
		drained := make(chan struct{})
		go func() {
			cfg.cache.Wait()
			close(drained)
		}()
		waitForService(drained, "in-flight job item fetches", cfg.logger)
	}

	return nil
}

// waitForService waits for a service to finish with timeout.
func waitForService(done <-chan struct{}, name string, logger *slog.Logger) {
	if done == nil {
		return
	}
	select {
	case <-done:
		logger.Info(name + " stopped")
	case <-time.After(shutdownWaitTimeout):
		logger.Warn("timeout waiting for " + name + " to stop")
	}
}
