// Package factory selects and builds the storage backend from configuration.
// It keeps the choice between database and memory storage in one place so the
// rest of the server only sees store.Backend.
package factory

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"github.com/trackhouse/trackhouse-sync-server/internal/config"
	"github.com/trackhouse/trackhouse-sync-server/internal/db"
	"github.com/trackhouse/trackhouse-sync-server/internal/store"
	"github.com/trackhouse/trackhouse-sync-server/internal/store/memory"
	"github.com/trackhouse/trackhouse-sync-server/internal/store/postgres"
)

// Option is a functional option for configuring the backend factory.
type Option func(*options)

type options struct {
	tracer trace.Tracer
}

// WithTracer sets the OpenTelemetry tracer passed to database-backed stores.
// If not set, tracing will be disabled (no-op).
func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) {
		o.tracer = tracer
	}
}

// NewBackend creates a storage backend based on the configured storage type.
// A database backend owns the pgx connection pool it opens; closing the
// backend closes the pool.
func NewBackend(ctx context.Context, cfg *config.Config, opts ...Option) (store.Backend, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	switch cfg.GetStorageType() {
	case config.StorageTypeDatabase:
		return newDatabaseBackend(ctx, cfg, o)
	case config.StorageTypeMemory:
		slog.InfoContext(ctx, "Creating memory-backed store")
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.GetStorageType())
	}
}

func newDatabaseBackend(ctx context.Context, cfg *config.Config, o *options) (store.Backend, error) {
	if cfg.Database == nil {
		return nil, fmt.Errorf("database configuration is required for database storage type")
	}

	slog.InfoContext(ctx, "Creating database-backed store")

	pool, err := db.NewConnectionPool(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to create database connection pool: %w", err)
	}

	storeOpts := []postgres.Option{postgres.WithConnectionPool(pool)}
	if o.tracer != nil {
		storeOpts = append(storeOpts, postgres.WithTracer(o.tracer))
	}

	backend, err := postgres.New(storeOpts...)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return backend, nil
}
