package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/trackhouse/trackhouse-sync-server/internal/clock"
	"github.com/trackhouse/trackhouse-sync-server/internal/sources"
	"github.com/trackhouse/trackhouse-sync-server/internal/store"
	"github.com/trackhouse/trackhouse-sync-server/internal/telemetry"
	"github.com/trackhouse/trackhouse-sync-server/internal/tracking"
)

// DefaultCooldown is the freshness window applied by both gates when no
// override is configured. The bulk gate and the per-record gate spend it as
// independent budgets.
const DefaultCooldown = 30 * time.Minute

// Bulk sync status values
const (
	// StatusOK means the order source was called and records were written
	StatusOK = "ok"

	// StatusSkipped means the cooldown suppressed the upstream call
	StatusSkipped = "skipped"
)

// Reasons attached to sync errors
const (
	// ReasonValidationFailed marks a rejected request, no upstream call made
	ReasonValidationFailed = "ValidationFailed"

	// ReasonFetchFailed marks an upstream source failure
	ReasonFetchFailed = "FetchFailed"

	// ReasonStorageFailed marks a record store failure
	ReasonStorageFailed = "StorageFailed"
)

// BulkResult is the outcome of one bulk sync request
type BulkResult struct {
	// Status is StatusOK or StatusSkipped
	Status string

	// RecordsWritten is the number of records upserted. Set when ok.
	RecordsWritten int

	// NextSyncIn is the whole minutes until the gate reopens. Set when skipped.
	NextSyncIn int
}

// Skipped reports whether the gate suppressed the upstream call
func (r *BulkResult) Skipped() bool {
	return r.Status == StatusSkipped
}

// Error is a structured sync error carrying a machine-readable reason for
// the API boundary to map onto a status code
type Error struct {
	Err     error
	Message string
	Reason  string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Manager owns the two cooldown gates in front of the upstream sources.
// Every order-source and carrier-source call in the system goes through it.
//
//go:generate mockgen -destination=mocks/mock_manager.go -package=mocks github.com/trackhouse/trackhouse-sync-server/internal/sync Manager
type Manager interface {
	// RequestBulkSync refreshes the full order list unless the bulk gate's
	// cooldown is still running
	RequestBulkSync(ctx context.Context) (*BulkResult, *Error)

	// RefreshTracking returns tracking state for one shipment, serving the
	// cached record when it is terminal or fresh and calling the carrier
	// source otherwise
	RefreshTracking(ctx context.Context, trackingNumber string) (*tracking.Record, *Error)
}

// defaultSyncManager is the default implementation of Manager
type defaultSyncManager struct {
	backend       store.Backend
	orderSource   sources.OrderSource
	carrierSource sources.CarrierSource
	cooldown      time.Duration
	clk           clock.Clock

	syncMetrics     *telemetry.SyncMetrics
	trackingMetrics *telemetry.TrackingMetrics
}

var _ Manager = (*defaultSyncManager)(nil)

// Option configures the sync manager
type Option func(*defaultSyncManager)

// WithClock overrides the wall clock used by the gates
func WithClock(c clock.Clock) Option {
	return func(m *defaultSyncManager) {
		m.clk = c
	}
}

// WithSyncMetrics sets the sync metrics for the manager
func WithSyncMetrics(metrics *telemetry.SyncMetrics) Option {
	return func(m *defaultSyncManager) {
		m.syncMetrics = metrics
	}
}

// WithTrackingMetrics sets the record metrics for the manager
func WithTrackingMetrics(metrics *telemetry.TrackingMetrics) Option {
	return func(m *defaultSyncManager) {
		m.trackingMetrics = metrics
	}
}

// NewDefaultSyncManager creates a sync manager over the given store backend
// and upstream sources. A non-positive cooldown falls back to DefaultCooldown.
func NewDefaultSyncManager(
	backend store.Backend,
	orderSource sources.OrderSource,
	carrierSource sources.CarrierSource,
	cooldown time.Duration,
	opts ...Option,
) Manager {
	m := &defaultSyncManager{
		backend:       backend,
		orderSource:   orderSource,
		carrierSource: carrierSource,
		cooldown:      cooldown,
		clk:           clock.Real(),
	}

	if m.cooldown <= 0 {
		m.cooldown = DefaultCooldown
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// RequestBulkSync refreshes the full order list unless the bulk gate's
// cooldown is still running. On success every returned order is merge-upserted
// and the order source's sync metadata is advanced; on failure the metadata is
// left untouched so the next request retries immediately.
func (s *defaultSyncManager) RequestBulkSync(ctx context.Context) (*BulkResult, *Error) {
	runID := uuid.NewString()
	now := s.clk.Now()

	meta, err := s.backend.SyncMeta().Get(ctx, tracking.SourceOrders)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		slog.ErrorContext(ctx, "Failed to read sync metadata", "run_id", runID, "error", err)
		return nil, &Error{
			Err:     err,
			Message: fmt.Sprintf("Failed to read sync metadata: %v", err),
			Reason:  ReasonStorageFailed,
		}
	}

	if meta != nil {
		if remaining := s.remainingCooldown(now, meta.LastSync); remaining > 0 {
			minutes := remainingMinutes(remaining)
			slog.InfoContext(ctx, "Bulk sync skipped by cooldown",
				"run_id", runID,
				"next_sync_minutes", minutes)
			s.syncMetrics.RecordGateSkip(ctx, telemetry.GateBulk)
			return &BulkResult{Status: StatusSkipped, NextSyncIn: minutes}, nil
		}
	}

	slog.InfoContext(ctx, "Starting bulk order sync", "run_id", runID)
	start := time.Now()

	orders, err := s.orderSource.FetchOrders(ctx)
	if err != nil {
		s.syncMetrics.RecordSyncDuration(ctx, tracking.SourceOrders, time.Since(start), false)
		slog.ErrorContext(ctx, "Order source fetch failed", "run_id", runID, "error", err)
		return nil, &Error{
			Err:     err,
			Message: fmt.Sprintf("Order fetch failed: %v", err),
			Reason:  ReasonFetchFailed,
		}
	}

	nowMs := now.UnixMilli()
	records := make([]tracking.Record, 0, len(orders))
	for i := range orders {
		records = append(records, orders[i].ToRecord(nowMs))
	}

	written, err := s.backend.Records().BulkUpsertOrders(ctx, records)
	if err != nil {
		s.syncMetrics.RecordSyncDuration(ctx, tracking.SourceOrders, time.Since(start), false)
		slog.ErrorContext(ctx, "Record upsert failed", "run_id", runID, "error", err)
		return nil, &Error{
			Err:     err,
			Message: fmt.Sprintf("Record upsert failed: %v", err),
			Reason:  ReasonStorageFailed,
		}
	}

	if err := s.backend.SyncMeta().Set(ctx, tracking.SyncMeta{
		Source:   tracking.SourceOrders,
		LastSync: nowMs,
	}); err != nil {
		s.syncMetrics.RecordSyncDuration(ctx, tracking.SourceOrders, time.Since(start), false)
		slog.ErrorContext(ctx, "Sync metadata update failed", "run_id", runID, "error", err)
		return nil, &Error{
			Err:     err,
			Message: fmt.Sprintf("Sync metadata update failed: %v", err),
			Reason:  ReasonStorageFailed,
		}
	}

	s.syncMetrics.RecordSyncDuration(ctx, tracking.SourceOrders, time.Since(start), true)
	s.trackingMetrics.RecordRecordsTotal(ctx, tracking.SourceOrders, int64(written))
	slog.InfoContext(ctx, "Bulk order sync completed",
		"run_id", runID,
		"records_written", written)

	return &BulkResult{Status: StatusOK, RecordsWritten: written}, nil
}

// RefreshTracking returns tracking state for one shipment. Delivered shipments
// are terminal and never trigger a carrier call; shipments updated within the
// cooldown are served from cache. Otherwise the carrier source is called and
// the result merged onto every record sharing the tracking number. An unknown
// tracking number still returns the fresh carrier data, leaving the store
// untouched.
func (s *defaultSyncManager) RefreshTracking(ctx context.Context, trackingNumber string) (*tracking.Record, *Error) {
	if trackingNumber == "" {
		return nil, &Error{
			Message: "tracking number is required",
			Reason:  ReasonValidationFailed,
		}
	}

	matches, err := s.backend.Records().ListByTrackingNumber(ctx, trackingNumber)
	if err != nil {
		return nil, &Error{
			Err:     err,
			Message: fmt.Sprintf("Record lookup failed: %v", err),
			Reason:  ReasonStorageFailed,
		}
	}

	now := s.clk.Now()

	// Delivered is terminal for the whole shipment.
	for i := range matches {
		if matches[i].IsDelivered() {
			slog.DebugContext(ctx, "Serving delivered record from cache",
				"tracking_number", trackingNumber)
			s.syncMetrics.RecordGateSkip(ctx, telemetry.GateTerminal)
			return &matches[i], nil
		}
	}

	// Records come back newest first, so the head decides freshness.
	if len(matches) > 0 && s.remainingCooldown(now, matches[0].LastUpdated) > 0 {
		slog.DebugContext(ctx, "Serving fresh record from cache",
			"tracking_number", trackingNumber)
		s.syncMetrics.RecordGateSkip(ctx, telemetry.GateFreshness)
		return &matches[0], nil
	}

	slog.InfoContext(ctx, "Fetching tracking state from carrier",
		"tracking_number", trackingNumber)
	start := time.Now()

	info, err := s.carrierSource.Track(ctx, trackingNumber)
	if err != nil {
		s.syncMetrics.RecordSyncDuration(ctx, tracking.SourceCarrier, time.Since(start), false)
		slog.ErrorContext(ctx, "Carrier lookup failed",
			"tracking_number", trackingNumber,
			"error", err)
		return nil, &Error{
			Err:     err,
			Message: fmt.Sprintf("Carrier lookup failed: %v", err),
			Reason:  ReasonFetchFailed,
		}
	}

	s.syncMetrics.RecordSyncDuration(ctx, tracking.SourceCarrier, time.Since(start), true)

	nowMs := now.UnixMilli()
	update := info.ToCarrierUpdate(nowMs)

	if len(matches) == 0 {
		// Ad-hoc lookup, nothing stored to merge into.
		fresh := info.ToRecord(nowMs)
		return &fresh, nil
	}

	if _, err := s.backend.Records().UpdateCarrierState(ctx, trackingNumber, update); err != nil {
		return nil, &Error{
			Err:     err,
			Message: fmt.Sprintf("Carrier merge failed: %v", err),
			Reason:  ReasonStorageFailed,
		}
	}

	merged := matches[0]
	merged.ApplyCarrierUpdate(update)
	return &merged, nil
}

// remainingCooldown returns how much of the cooldown window is left since the
// last write, or zero when the gate is open.
func (s *defaultSyncManager) remainingCooldown(now time.Time, lastMs int64) time.Duration {
	elapsed := now.Sub(time.UnixMilli(lastMs))
	if elapsed >= s.cooldown {
		return 0
	}
	return s.cooldown - elapsed
}

// remainingMinutes reports the whole minutes until a gate reopens, rounded up
// so a caller retrying after the reported wait never hits the gate again.
func remainingMinutes(remaining time.Duration) int {
	return int(math.Ceil(remaining.Minutes()))
}
