package coordinator

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"

	pkgsync "github.com/trackhouse/trackhouse-sync-server/internal/sync"
)

const (
	// defaultPollingInterval is the fallback sync interval when no valid
	// interval is configured
	defaultPollingInterval = 45 * time.Minute

	// defaultPollingJitter is the maximum random offset applied to the
	// polling interval
	defaultPollingJitter = 2 * time.Minute
)

// Coordinator manages the background bulk sync loop
type Coordinator interface {
	// Start begins the background sync loop
	// Blocks until the context is cancelled or Stop is called
	Start(ctx context.Context) error

	// Stop gracefully stops the background sync loop
	Stop() error
}

// defaultCoordinator is the default implementation of Coordinator
type defaultCoordinator struct {
	manager  pkgsync.Manager
	interval time.Duration
	jitter   time.Duration

	// Lifecycle management
	cancelFunc context.CancelFunc
	done       chan struct{}
}

// Option is a function that configures the coordinator
type Option func(*defaultCoordinator)

// WithJitter overrides the polling jitter. Zero disables jitter.
func WithJitter(jitter time.Duration) Option {
	return func(c *defaultCoordinator) {
		c.jitter = jitter
	}
}

// New creates a coordinator that triggers a bulk sync on the given interval.
// The sync manager's cooldown gate decides whether each trigger actually
// reaches the upstream, so the background loop and manual syncs through the
// API never double-poll the order source.
func New(manager pkgsync.Manager, interval time.Duration, opts ...Option) Coordinator {
	c := &defaultCoordinator{
		manager:  manager,
		interval: interval,
		jitter:   defaultPollingJitter,
		done:     make(chan struct{}),
	}

	if c.interval <= 0 {
		c.interval = defaultPollingInterval
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// pollingInterval returns the configured interval with a random jitter applied
// to prevent all instances from polling the order source simultaneously. The
// effective jitter is capped at half the interval so the result stays positive
// for short intervals.
func (c *defaultCoordinator) pollingInterval() time.Duration {
	jitter := c.jitter
	if limit := c.interval / 2; jitter > limit {
		jitter = limit
	}
	if jitter <= 0 {
		return c.interval
	}
	//nolint:gosec // G404: Non-cryptographic randomness is sufficient for polling jitter
	jitterOffset := time.Duration(rand.Int64N(int64(2*jitter))) - jitter
	return c.interval + jitterOffset
}

// Start begins the background sync loop
func (c *defaultCoordinator) Start(ctx context.Context) error {
	// Create cancellable context for this coordinator
	coordCtx, cancel := context.WithCancel(ctx)
	c.cancelFunc = cancel
	defer func() {
		close(c.done)
		slog.Info("Background sync coordinator shutting down")
	}()

	pollingInterval := c.pollingInterval()
	slog.Info("Starting background sync coordinator",
		"base_interval", c.interval,
		"actual_interval", pollingInterval)

	ticker := time.NewTicker(pollingInterval)
	defer ticker.Stop()

	// Perform initial sync attempt
	c.runSyncJob(coordCtx)

	for {
		select {
		case <-ticker.C:
			c.runSyncJob(coordCtx)

			// Recalculate interval with new jitter for next iteration
			ticker.Reset(c.pollingInterval())
		case <-coordCtx.Done():
			slog.Info("Sync coordinator stopping")
			return nil
		}
	}
}

// Stop gracefully stops the coordinator
func (c *defaultCoordinator) Stop() error {
	if c.cancelFunc != nil {
		slog.Info("Stopping sync coordinator")
		c.cancelFunc()
		// Wait for the loop to finish
		<-c.done
	}
	return nil
}

// runSyncJob triggers one bulk sync attempt. Failures are logged and the loop
// carries on; the next attempt happens on the next tick.
func (c *defaultCoordinator) runSyncJob(ctx context.Context) {
	result, syncErr := c.manager.RequestBulkSync(ctx)
	if syncErr != nil {
		slog.Error("Scheduled bulk sync failed",
			"reason", syncErr.Reason,
			"error", syncErr.Message)
		return
	}

	if result.Skipped() {
		slog.Debug("Scheduled bulk sync skipped by cooldown",
			"next_sync_minutes", result.NextSyncIn)
		return
	}

	slog.Info("Scheduled bulk sync completed",
		"records_written", result.RecordsWritten)
}
