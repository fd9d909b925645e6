package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/narrativewatch/triage/config"
	"github.com/narrativewatch/triage/internal/adapters/classifier"
	"github.com/narrativewatch/triage/internal/core"
	"github.com/narrativewatch/triage/internal/data"
	"github.com/narrativewatch/triage/internal/domain/model"
	"github.com/narrativewatch/triage/internal/observability/metrics"
	"github.com/narrativewatch/triage/internal/observability/notify/pagerduty"
	"github.com/narrativewatch/triage/internal/observability/notify/slack"
	"github.com/narrativewatch/triage/internal/observability/notify/webhook"
	"github.com/narrativewatch/triage/internal/observability/statsd"
	"github.com/narrativewatch/triage/internal/service"
	"github.com/narrativewatch/triage/internal/service/failurenotifier"
)

// ServiceContainer holds all application services.
type ServiceContainer struct {
	Pipeline      *service.PipelineService
	Retention     *service.RetentionService
	Monitor       *service.JobRunMonitor
	Cache         core.CacheRepository // nil unless claims are enabled
	Observability ObservabilityContainer
}

// ObservabilityContainer groups shared observability dependencies.
type ObservabilityContainer struct {
	MetricsSink     statsd.Sink // nil when metrics are disabled
	MetricsClient   *statsd.Client
	MetricsConfig   config.ObservabilityMetricsConfig
	FailureNotifier *failurenotifier.Service
	NotifierConfig  config.ObservabilityNotificationsConfig
}

// Close releases observability resources.
func (o ObservabilityContainer) Close() error {
	if o.MetricsClient == nil {
		return nil
	}
	return o.MetricsClient.Close()
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient // Optional: required only when pipeline claims are enabled
	Logger      *slog.Logger
}

// serviceRepositories groups data adapters backing service ports.
type serviceRepositories struct {
	Posts     *data.PostRepo
	Retention *data.RetentionRepo
	Settings  *data.SettingsRepo
	Stats     *data.StatsRepo
	JobRuns   *data.JobRunRepo
	History   *data.CleanupHistoryRepo
	Usage     *data.UsageRepo
	Cache     *data.RedisCacheRepo
}

// buildObservability configures metrics and notification adapters.
func buildObservability(logger *slog.Logger, cfg config.ObservabilityConfig) ObservabilityContainer {
	obsLogger := logger
	if obsLogger == nil {
		obsLogger = slog.Default()
	}

	out := ObservabilityContainer{
		MetricsConfig:  cfg.Metrics,
		NotifierConfig: cfg.Notifications,
	}

	if cfg.Metrics.IsEnabled() {
		client, err := statsd.NewClient(statsd.Config{
			Enabled: true,
			Address: cfg.Metrics.StatsdAddress,
			Prefix:  "triage",
			Logger:  obsLogger,
		})
		if err != nil {
			obsLogger.Error("failed to initialise statsd client", "error", err)
		} else {
			out.MetricsClient = client
			out.MetricsSink = client
		}
	}

	out.FailureNotifier = buildFailureNotifier(obsLogger, cfg.Notifications, out.MetricsSink)
	out.logState(obsLogger)
	return out
}

// logState reports which observability outputs are live after wiring.
func (o ObservabilityContainer) logState(logger *slog.Logger) {
	logger.Info("observability configured",
		"metrics_enabled", o.MetricsClient.Enabled(),
		"alerts_enabled", o.FailureNotifier.Enabled(),
	)
}

// buildRepositories builds repositories backing service ports; no business rules here.
func buildRepositories(db *sql.DB, rc redis.UniversalClient, logger *slog.Logger) *serviceRepositories {
	repos := &serviceRepositories{
		Posts:     data.NewPostRepo(db),
		Retention: data.NewRetentionRepo(db),
		Settings:  data.NewSettingsRepo(db, logger),
		Stats:     data.NewStatsRepo(db),
		JobRuns:   data.NewJobRunRepo(db, data.JobRunRepoConfig{Logger: logger}),
		History:   data.NewCleanupHistoryRepo(db, nil),
		Usage:     data.NewUsageRepo(db, nil),
	}
	if rc != nil {
		repos.Cache = data.NewRedisCacheRepo(rc)
	}
	return repos
}

func newClassifierClient(cfg config.ClassifierConfig, logger *slog.Logger) (*classifier.Client, error) {
	return classifier.NewClient(classifier.Config{
		BaseURL: cfg.BaseURL,
		APIKey:  cfg.APIKey,
		Timeout: cfg.Timeout,
		Paths: map[model.Stage]string{
			model.StageQuick:   cfg.QuickPath,
			model.StageDeep:    cfg.DeepPath,
			model.StageDeepest: cfg.DeepestPath,
		},
		RateLimit: cfg.RateLimit,
		Logger:    logger,
	})
}

// claimStore returns the cache used for per-item claims, or nil when claims are off.
//
//nolint:ireturn // nil interface disables claims in the selector.
func claimStore(cfg config.PipelineConfig, repos *serviceRepositories, logger *slog.Logger) core.CacheRepository {
	if !cfg.ClaimEnabled {
		return nil
	}
	if repos.Cache == nil {
		logger.Warn("pipeline claims enabled but redis is unavailable; running without claims")
		return nil
	}
	return repos.Cache
}

// NewServices wires repositories, adapters and services.
func NewServices(deps *ServiceDeps) (ServiceContainer, error) {
	if deps == nil || deps.Config == nil {
		return ServiceContainer{}, errors.New("service deps with config are required")
	}
	if deps.DB == nil {
		return ServiceContainer{}, errors.New("database is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := deps.Config

	obs := buildObservability(logger, cfg.Observability)
	repos := buildRepositories(deps.DB, deps.RedisClient, logger)

	monitor, err := service.NewJobRunMonitor(service.JobRunMonitorOptions{
		Repo:     repos.JobRuns,
		Notifier: obs.FailureNotifier,
		Metrics:  obs.MetricsSink,
		Logger:   logger,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("create job run monitor: %w", err)
	}

	client, err := newClassifierClient(cfg.Classifier, logger)
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("create classifier client: %w", err)
	}

	meter := service.NewUsageMeter(service.UsageMeterOptions{
		Repo: repos.Usage,
		Pricing: model.Pricing{
			InputPerMTok:  cfg.Usage.InputPricePerMTok,
			OutputPerMTok: cfg.Usage.OutputPricePerMTok,
		},
		Logger: logger,
	})

	claims := claimStore(cfg.Pipeline, repos, logger)
	selector, err := service.NewCandidateSelector(service.CandidateSelectorOptions{
		Posts:    repos.Posts,
		Claims:   claims,
		ClaimTTL: cfg.Pipeline.ClaimTTL,
		Logger:   logger,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("create candidate selector: %w", err)
	}

	executor, err := service.NewStageExecutor(service.StageExecutorOptions{
		Client:  client,
		Meter:   meter,
		Metrics: obs.MetricsSink,
		Logger:  logger,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("create stage executor: %w", err)
	}

	pipeline, err := service.NewPipelineService(service.PipelineServiceOptions{
		Settings: repos.Settings,
		Stats:    repos.Stats,
		Selector: selector,
		Executor: executor,
		Monitor:  monitor,
		Logger:   logger,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("create pipeline service: %w", err)
	}

	retention, err := service.NewRetentionService(service.RetentionServiceOptions{
		Repo:     repos.Retention,
		Settings: repos.Settings,
		History:  repos.History,
		Monitor:  monitor,
		Config:   cfg.Retention,
		Metrics:  obs.MetricsSink,
		Logger:   logger,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("create retention service: %w", err)
	}

	return ServiceContainer{
		Pipeline:      pipeline,
		Retention:     retention,
		Monitor:       monitor,
		Cache:         claims,
		Observability: obs,
	}, nil
}

// buildFailureNotifier registers every configured alert channel.
func buildFailureNotifier(
	logger *slog.Logger,
	cfg config.ObservabilityNotificationsConfig,
	sink statsd.Sink,
) *failurenotifier.Service {
	baseLogger := logger
	if baseLogger == nil {
		baseLogger = slog.Default()
	}
	notifierLogger := baseLogger.With("component", "failure_notifier")

	if !cfg.Enabled {
		return failurenotifier.NewService(failurenotifier.Options{Logger: notifierLogger})
	}

	sinks := make([]failurenotifier.SinkRegistration, 0, 2+len(cfg.Webhook.URLs))

	if cfg.Slack.Enabled {
		client, err := slack.NewClient(slack.Config{
			WebhookURL: cfg.Slack.WebhookURL,
			Channel:    cfg.Slack.Channel,
			Username:   cfg.Slack.Username,
			Timeout:    cfg.Timeout,
			RetryLimit: cfg.RetryLimit,
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

	for i, url := range cfg.Webhook.URLs {
		client, err := webhook.NewClient(webhook.Config{
			URL:          url,
			BodyJMESPath: cfg.Webhook.BodyJMESPath,
			Timeout:      cfg.Timeout,
			RetryLimit:   cfg.RetryLimit,
		})
		if err != nil {
			baseLogger.Error("failed to initialise webhook notifier", "index", i, "error", err)
			continue
		}
		sinks = append(sinks, failurenotifier.SinkRegistration{
			Name: fmt.Sprintf("webhook_%d", i),
			Sink: client,
		})
	}

	var onResult func(string, error)
	if sink != nil {
		onResult = func(name string, err error) {
			metrics.EmitAlert(sink, name, err)
		}
	}

	return failurenotifier.NewService(failurenotifier.Options{
		Logger:   notifierLogger,
		Sinks:    sinks,
		OnResult: onResult,
	})
}

// ServiceOrchestrationConfig contains configuration for service orchestration.
type ServiceOrchestrationConfig struct {
	Config   *config.AppConfig
	Services ServiceContainer
	DB       *sql.DB
	Logger   *slog.Logger
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
		DB:       deps.cfg.DB,
		Logger:   deps.logger,
		ErrCh:    deps.errCh,
	})
}

func launchBackground(ctx context.Context, deps *serviceStartupDeps, descriptor backgroundService) <-chan struct{} {
	if deps == nil || !deps.enabledServices[descriptor.mode] {
		return nil
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
				deps.logger.WarnContext(ctx, "dropping background service error",
					"service", descriptor.name,
					"error", errMsg,
				)
			}
		}
	}()

	deps.logger.InfoContext(ctx, "background service started", "service", descriptor.name, "mode", descriptor.mode)
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
		handles = append(handles, backgroundServiceHandle{
			mode: svc.mode,
			name: svc.name,
			done: done,
		})
	}

	return handles
}

func newTickerBackgroundService(deps *serviceStartupDeps) backgroundService {
	return backgroundService{
		mode: config.ServiceModeTicker,
		name: "ticker",
		start: func(ctx context.Context) error {
			if deps == nil || deps.cfg == nil {
				return nil
			}
			var tickerCfg config.TickerConfig
			if deps.cfg.Config != nil {
				tickerCfg = deps.cfg.Config.Ticker
			}
			return RunTicker(ctx, TickerConfig{
				Pipeline:  deps.cfg.Services.Pipeline,
				Retention: deps.cfg.Services.Retention,
				Config:    tickerCfg,
				Logger:    deps.logger,
			})
		},
	}
}

func buildBackgroundServices(deps *serviceStartupDeps) []backgroundService {
	if deps == nil {
		return nil
	}
	return []backgroundService{
		newTickerBackgroundService(deps),
	}
}

// ServiceStartupResult holds the results of starting all services.
type ServiceStartupResult struct {
	HTTPServer *http.Server
	Background []backgroundServiceHandle
}

// startServices starts all enabled services and returns their completion channels.
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
	if cfg.Config == nil {
		return errors.New("service orchestration config missing AppConfig")
	}

	serviceCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
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
		cancel:      cancel,
		errCh:       errCh,
		httpServer:  result.HTTPServer,
		logger:      logger,
		backgrounds: result.Background,
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
	size := errorChannelCapacity(enabled) + 1
	if size < 1 {
		return 1
	}
	return size
}

// shutdownConfig contains dependencies for graceful shutdown.
type shutdownConfig struct {
	cancel      context.CancelFunc
	errCh       <-chan error
	httpServer  *http.Server
	logger      *slog.Logger
	backgrounds []backgroundServiceHandle
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

// gracefulStop attempts to gracefully stop all services.
func gracefulStop(cfg shutdownConfig) error {
	if cfg.httpServer != nil {
		// The service context is already canceled; in-flight runs get a fresh deadline.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownWaitTimeout)
		defer cancel()

		if err := ShutdownHTTPServer(ShutdownConfig{
			Context: shutdownCtx,
			Server:  cfg.httpServer,
			Logger:  cfg.logger,
		}); err != nil {
			return err
		}
	}

	for _, svc := range cfg.backgrounds {
		waitForService(svc.done, svc.name, cfg.logger)
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
