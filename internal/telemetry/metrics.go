// Package telemetry provides OpenTelemetry instrumentation for the sync server.
package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	// TrackingMetricsMeterName is the name used for the tracking record metrics meter
	TrackingMetricsMeterName = "github.com/trackhouse/trackhouse-sync-server/tracking"

	// SyncMetricsMeterName is the name used for the sync metrics meter
	SyncMetricsMeterName = "github.com/trackhouse/trackhouse-sync-server/sync"
)

// Gate identifiers used as metric attributes.
const (
	// GateBulk is the elapsed-time gate in front of the order source
	GateBulk = "bulk"

	// GateFreshness is the per-record gate in front of the carrier source
	GateFreshness = "freshness"

	// GateTerminal marks carrier lookups suppressed by the delivered state
	GateTerminal = "terminal"
)

// TrackingMetrics holds the OpenTelemetry instruments for record metrics
type TrackingMetrics struct {
	recordsTotal metric.Int64Gauge
}

// NewTrackingMetrics creates a new TrackingMetrics instance with the given meter provider.
// If provider is nil, it returns nil (no-op metrics).
func NewTrackingMetrics(provider metric.MeterProvider) (*TrackingMetrics, error) {
	if provider == nil {
		return nil, nil
	}

	meter := provider.Meter(TrackingMetricsMeterName)

	recordsTotal, err := meter.Int64Gauge(
		"trh_sync_srv_records_total",
		metric.WithDescription("Number of records written by the last bulk sync per source"),
		metric.WithUnit("{record}"),
	)
	if err != nil {
		return nil, err
	}

	return &TrackingMetrics{
		recordsTotal: recordsTotal,
	}, nil
}

// RecordRecordsTotal records the number of records written by a bulk sync
func (m *TrackingMetrics) RecordRecordsTotal(ctx context.Context, source string, count int64) {
	if m == nil || m.recordsTotal == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("source", source),
	}

	m.recordsTotal.Record(ctx, count, metric.WithAttributes(attrs...))
}

// SyncMetrics holds the OpenTelemetry instruments for sync operation metrics
type SyncMetrics struct {
	syncDuration metric.Float64Histogram
	gateSkips    metric.Int64Counter
}

// NewSyncMetrics creates a new SyncMetrics instance with the given meter provider.
// If provider is nil, it returns nil (no-op metrics).
func NewSyncMetrics(provider metric.MeterProvider) (*SyncMetrics, error) {
	if provider == nil {
		return nil, nil
	}

	meter := provider.Meter(SyncMetricsMeterName)

	syncDuration, err := meter.Float64Histogram(
		"trh_sync_srv_sync_duration_seconds",
		metric.WithDescription("Duration of upstream sync operations in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300),
	)
	if err != nil {
		return nil, err
	}

	gateSkips, err := meter.Int64Counter(
		"trh_sync_srv_gate_skips_total",
		metric.WithDescription("Upstream calls avoided by the cooldown and terminal-state gates"),
		metric.WithUnit("{skip}"),
	)
	if err != nil {
		return nil, err
	}

	return &SyncMetrics{
		syncDuration: syncDuration,
		gateSkips:    gateSkips,
	}, nil
}

// RecordSyncDuration records the duration of one upstream sync operation
func (m *SyncMetrics) RecordSyncDuration(ctx context.Context, source string, duration time.Duration, success bool) {
	if m == nil || m.syncDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("source", source),
		attribute.Bool("success", success),
	}

	m.syncDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordGateSkip counts an upstream call avoided by a gate
func (m *SyncMetrics) RecordGateSkip(ctx context.Context, gate string) {
	if m == nil || m.gateSkips == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("gate", gate),
	}

	m.gateSkips.Add(ctx, 1, metric.WithAttributes(attrs...))
}
