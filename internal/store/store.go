// Package store defines the persistence interfaces for order tracking records,
// operator annotations, and per-source sync metadata.
package store

import (
	"context"
	"errors"

	"github.com/trackhouse/trackhouse-sync-server/internal/tracking"
)

//go:generate mockgen -destination=mocks/mock_store.go -package=mocks -source=store.go RecordStore,AnnotationStore,SyncMetaStore,Backend

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// ListQuery narrows a record listing at the store layer. Results are always
// ordered by lastUpdated descending.
type ListQuery struct {
	// Status filters by case-insensitive substring match against the
	// effective status (carrier status when set, order status otherwise).
	// Empty matches all records.
	Status string

	// RequireTracking keeps only records with a non-empty tracking number.
	RequireTracking bool

	// FlaggedOnly keeps only records with flagged == true.
	FlaggedOnly bool

	// Limit caps how many records are returned. Zero means no limit.
	Limit int
}

// RecordStore persists order tracking records keyed by order number.
type RecordStore interface {
	// BulkUpsertOrders inserts or updates records from a bulk order sync.
	// Only order-level fields and cache bootstrap fields are written; for
	// existing records the carrier state (upsStatus, location,
	// expectedDelivery, trackingUrl, delivered) and operator state (flagged,
	// notes) are preserved. Returns the number of records written.
	BulkUpsertOrders(ctx context.Context, records []tracking.Record) (int, error)

	// UpdateCarrierState overlays fresh carrier data onto every record
	// sharing the tracking number. Returns the number of records updated;
	// zero with a nil error when no record matches.
	UpdateCarrierState(ctx context.Context, trackingNumber string, update tracking.CarrierUpdate) (int, error)

	// GetByOrderNumber fetches a single record. Returns ErrNotFound when
	// the order number is unknown.
	GetByOrderNumber(ctx context.Context, orderNumber string) (*tracking.Record, error)

	// ListByTrackingNumber fetches all records sharing a tracking number,
	// ordered by lastUpdated descending. An empty slice means no match.
	ListByTrackingNumber(ctx context.Context, trackingNumber string) ([]tracking.Record, error)

	// List fetches records matching the query, ordered by lastUpdated
	// descending.
	List(ctx context.Context, query ListQuery) ([]tracking.Record, error)

	// SetFlag updates the flagged field on a record and stamps lastUpdated.
	// Returns ErrNotFound when the order number is unknown.
	SetFlag(ctx context.Context, orderNumber string, flagged bool, lastUpdated int64) error
}

// AnnotationStore persists operator flag/notes annotations keyed by tracking
// number, independent of the record lifecycle.
type AnnotationStore interface {
	// Upsert creates or replaces the annotation for a tracking number.
	Upsert(ctx context.Context, annotation tracking.Annotation) error

	// Get fetches the annotation for a tracking number. Returns ErrNotFound
	// when none exists.
	Get(ctx context.Context, trackingNumber string) (*tracking.Annotation, error)

	// List fetches all annotations.
	List(ctx context.Context) ([]tracking.Annotation, error)
}

// SyncMetaStore persists the last-successful-sync timestamp per upstream source.
type SyncMetaStore interface {
	// Get fetches sync metadata for a source. Returns ErrNotFound when the
	// source has never synced successfully.
	Get(ctx context.Context, source string) (*tracking.SyncMeta, error)

	// Set records a successful sync for a source.
	Set(ctx context.Context, meta tracking.SyncMeta) error
}

// Backend aggregates the three stores behind one lifecycle. Implementations
// back all stores with the same medium so writes stay consistent.
type Backend interface {
	Records() RecordStore
	Annotations() AnnotationStore
	SyncMeta() SyncMetaStore

	// CheckReadiness reports whether the backend can serve requests.
	CheckReadiness(ctx context.Context) error

	// Close releases backend resources.
	Close()
}
