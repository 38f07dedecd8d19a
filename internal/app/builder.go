package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/trackhouse/trackhouse-sync-server/internal/annotations"
	"github.com/trackhouse/trackhouse-sync-server/internal/api"
	"github.com/trackhouse/trackhouse-sync-server/internal/config"
	"github.com/trackhouse/trackhouse-sync-server/internal/service"
	"github.com/trackhouse/trackhouse-sync-server/internal/sources"
	"github.com/trackhouse/trackhouse-sync-server/internal/store"
	"github.com/trackhouse/trackhouse-sync-server/internal/store/factory"
	"github.com/trackhouse/trackhouse-sync-server/internal/store/postgres"
	pkgsync "github.com/trackhouse/trackhouse-sync-server/internal/sync"
	"github.com/trackhouse/trackhouse-sync-server/internal/sync/coordinator"
	"github.com/trackhouse/trackhouse-sync-server/internal/telemetry"
)

const (
	defaultHTTPAddress    = ":8080"
	defaultRequestTimeout = 10 * time.Second
	defaultReadTimeout    = 10 * time.Second
	defaultWriteTimeout   = 15 * time.Second
	defaultIdleTimeout    = 60 * time.Second
)

// SyncAppOptions is a function that configures the sync app builder
type SyncAppOptions func(*syncAppConfig) error

// syncAppConfig builds a SyncApp using the builder pattern
// It supports dependency injection for testing while providing sensible defaults for production
type syncAppConfig struct {
	config *config.Config

	// Optional component overrides (primarily for testing)
	backend       store.Backend
	sourceFactory sources.SourceFactory
	syncManager   pkgsync.Manager
	hub           annotations.Hub

	// HTTP server options
	address        string
	middlewares    []func(http.Handler) http.Handler
	requestTimeout time.Duration
	readTimeout    time.Duration
	writeTimeout   time.Duration
	idleTimeout    time.Duration

	// Telemetry components
	meterProvider  metric.MeterProvider
	tracerProvider trace.TracerProvider
}

func baseConfig(opts ...SyncAppOptions) (*syncAppConfig, error) {
	cfg := &syncAppConfig{
		address:        defaultHTTPAddress,
		requestTimeout: defaultRequestTimeout,
		readTimeout:    defaultReadTimeout,
		writeTimeout:   defaultWriteTimeout,
		idleTimeout:    defaultIdleTimeout,
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// NewSyncApp creates a new builder with the given configuration
func NewSyncApp(
	ctx context.Context,
	opts ...SyncAppOptions,
) (*SyncApp, error) {
	cfg, err := baseConfig(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build base configuration: %w", err)
	}
	if cfg.config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	// Create the store backend (single decision point for database vs memory)
	ownsBackend := false
	if cfg.backend == nil {
		var backendOpts []factory.Option
		if cfg.tracerProvider != nil {
			backendOpts = append(backendOpts, factory.WithTracer(cfg.tracerProvider.Tracer(postgres.TracerName)))
		}
		cfg.backend, err = factory.NewBackend(ctx, cfg.config, backendOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create store backend: %w", err)
		}
		ownsBackend = true
	}

	// Ensure cleanup happens on error
	var cleanupNeeded = true
	defer func() {
		if cleanupNeeded && ownsBackend {
			cfg.backend.Close()
		}
	}()

	// Build sync components: sources, manager, and the background coordinator
	syncCoordinator, err := buildSyncComponents(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build sync components: %w", err)
	}

	// Build the annotation hub and tracking service
	if cfg.hub == nil {
		cfg.hub = annotations.New()
	}
	trackingService := buildServiceComponents(cfg)

	// Build HTTP server
	httpServer, err := buildHTTPServer(cfg, trackingService)
	if err != nil {
		return nil, fmt.Errorf("failed to build HTTP server: %w", err)
	}

	// Create application context
	appCtx, cancel := context.WithCancel(ctx)

	// Cleanup is now handled by the app, not in defer
	cleanupNeeded = false

	return &SyncApp{
		config: cfg.config,
		components: &AppComponents{
			SyncCoordinator: syncCoordinator,
			TrackingService: trackingService,
			Backend:         cfg.backend,
			Hub:             cfg.hub,
		},
		ownsBackend: ownsBackend,
		httpServer:  httpServer,
		ctx:         appCtx,
		cancelFunc:  cancel,
	}, nil
}

// WithConfig sets the configuration
func WithConfig(c *config.Config) SyncAppOptions {
	return func(cfg *syncAppConfig) error {
		cfg.config = c
		return nil
	}
}

// WithAddress sets the HTTP server address
func WithAddress(addr string) SyncAppOptions {
	return func(cfg *syncAppConfig) error {
		if addr == "" {
			return fmt.Errorf("address cannot be empty")
		}

		parts := strings.SplitN(addr, ":", 2)
		if len(parts) < 2 || parts[1] == "" {
			return fmt.Errorf("address is not a valid port: %s", addr)
		}
		host := parts[0]
		port := parts[1]
		if host == "localhost" {
			host = "127.0.0.1"
		}
		if host == "" {
			host = "0.0.0.0"
		}

		if _, err := netip.ParseAddrPort(host + ":" + port); err != nil {
			return fmt.Errorf("address is not a valid port: %w", err)
		}

		cfg.address = addr
		return nil
	}
}

// WithMiddlewares sets custom HTTP middlewares
func WithMiddlewares(mw ...func(http.Handler) http.Handler) SyncAppOptions {
	return func(cfg *syncAppConfig) error {
		cfg.middlewares = mw
		return nil
	}
}

// WithBackend allows injecting a custom store backend (for testing). The app
// never closes an injected backend.
func WithBackend(b store.Backend) SyncAppOptions {
	return func(cfg *syncAppConfig) error {
		cfg.backend = b
		return nil
	}
}

// WithSourceFactory allows injecting a custom source factory (for testing)
func WithSourceFactory(f sources.SourceFactory) SyncAppOptions {
	return func(cfg *syncAppConfig) error {
		cfg.sourceFactory = f
		return nil
	}
}

// WithSyncManager allows injecting a custom sync manager (for testing)
func WithSyncManager(sm pkgsync.Manager) SyncAppOptions {
	return func(cfg *syncAppConfig) error {
		cfg.syncManager = sm
		return nil
	}
}

// WithHub allows injecting a custom annotation hub (for testing)
func WithHub(h annotations.Hub) SyncAppOptions {
	return func(cfg *syncAppConfig) error {
		cfg.hub = h
		return nil
	}
}

// WithMeterProvider sets the OpenTelemetry meter provider for HTTP and sync metrics
func WithMeterProvider(mp metric.MeterProvider) SyncAppOptions {
	return func(cfg *syncAppConfig) error {
		cfg.meterProvider = mp
		return nil
	}
}

// WithTracerProvider sets the OpenTelemetry tracer provider for HTTP and store spans
func WithTracerProvider(tp trace.TracerProvider) SyncAppOptions {
	return func(cfg *syncAppConfig) error {
		cfg.tracerProvider = tp
		return nil
	}
}

// buildSyncComponents builds the upstream sources, the sync manager, and the
// background coordinator. The returned coordinator is nil when background sync
// is disabled; manual syncs through the API keep working either way.
func buildSyncComponents(b *syncAppConfig) (coordinator.Coordinator, error) {
	slog.Info("Initializing sync components")

	if b.sourceFactory == nil {
		b.sourceFactory = sources.NewSourceFactory()
	}

	// Build sync manager over the backend and the configured sources
	if b.syncManager == nil {
		orderSource, err := b.sourceFactory.CreateOrderSource(&b.config.Sources)
		if err != nil {
			return nil, fmt.Errorf("failed to create order source: %w", err)
		}

		carrierSource, err := b.sourceFactory.CreateCarrierSource(&b.config.Sources)
		if err != nil {
			return nil, fmt.Errorf("failed to create carrier source: %w", err)
		}

		// Create manager options for metrics
		var managerOpts []pkgsync.Option

		if b.meterProvider != nil {
			syncMetrics, err := telemetry.NewSyncMetrics(b.meterProvider)
			if err != nil {
				return nil, fmt.Errorf("failed to create sync metrics: %w", err)
			}
			if syncMetrics != nil {
				managerOpts = append(managerOpts, pkgsync.WithSyncMetrics(syncMetrics))
				slog.Info("Sync metrics enabled")
			}

			trackingMetrics, err := telemetry.NewTrackingMetrics(b.meterProvider)
			if err != nil {
				return nil, fmt.Errorf("failed to create record metrics: %w", err)
			}
			if trackingMetrics != nil {
				managerOpts = append(managerOpts, pkgsync.WithTrackingMetrics(trackingMetrics))
				slog.Info("Record metrics enabled")
			}
		}

		b.syncManager = pkgsync.NewDefaultSyncManager(
			b.backend,
			orderSource,
			carrierSource,
			b.config.GetCooldown(),
			managerOpts...,
		)
	}

	if !b.config.AutoSyncEnabled() {
		slog.Info("Background sync disabled, orders sync on API request only")
		return nil, nil
	}

	syncCoordinator := coordinator.New(b.syncManager, b.config.GetAutoSyncInterval())
	slog.Info("Sync components initialized successfully")

	return syncCoordinator, nil
}

// buildServiceComponents builds the tracking service over the store backend
func buildServiceComponents(b *syncAppConfig) service.TrackingService {
	slog.Info("Initializing service components")

	svc := service.NewTrackingService(
		b.backend,
		b.hub,
		service.WithIssuesWindow(b.config.GetIssuesScanWindow()),
	)

	slog.Info("Service components initialized successfully")
	return svc
}

// buildHTTPServer builds the HTTP server with router and middleware
func buildHTTPServer(
	b *syncAppConfig,
	svc service.TrackingService,
) (*http.Server, error) {
	slog.Info("Initializing HTTP server")

	// Use default middlewares if not provided
	if b.middlewares == nil {
		b.middlewares = []func(http.Handler) http.Handler{
			middleware.RequestID,
			middleware.RealIP,
			middleware.Recoverer,
			middleware.Timeout(b.requestTimeout),
			api.LoggingMiddleware,
		}
	}

	// Tracing wraps the rest of the stack so spans cover routing and handlers
	if b.tracerProvider != nil {
		tracingMiddleware := telemetry.TracingMiddleware(b.tracerProvider)
		b.middlewares = append([]func(http.Handler) http.Handler{tracingMiddleware}, b.middlewares...)
		slog.Info("HTTP tracing middleware enabled")
	}

	// Add metrics middleware if meter provider is configured
	// This should be added early in the chain to capture all requests
	if b.meterProvider != nil {
		metricsMiddleware, err := telemetry.MetricsMiddleware(b.meterProvider)
		if err != nil {
			return nil, fmt.Errorf("failed to create metrics middleware: %w", err)
		}
		if metricsMiddleware != nil {
			// Prepend metrics middleware to capture all requests including those cut short by timeouts
			b.middlewares = append([]func(http.Handler) http.Handler{metricsMiddleware}, b.middlewares...)
			slog.Info("HTTP metrics middleware enabled")
		}
	}

	// Create router with middlewares
	router := api.NewServer(svc, b.syncManager, b.hub,
		api.WithMiddlewares(b.middlewares...),
	)

	// Create HTTP server
	server := &http.Server{
		Addr:         b.address,
		Handler:      router,
		ReadTimeout:  b.readTimeout,
		WriteTimeout: b.writeTimeout,
		IdleTimeout:  b.idleTimeout,
	}

	slog.Info("HTTP server configured", "address", b.address)
	return server, nil
}
