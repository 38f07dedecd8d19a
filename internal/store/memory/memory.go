// Package memory provides an in-memory implementation of the store interfaces.
// Intended for local development and tests; data does not survive a restart.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/trackhouse/trackhouse-sync-server/internal/store"
	"github.com/trackhouse/trackhouse-sync-server/internal/tracking"
)

// Store holds all records, annotations, and sync metadata in process memory.
type Store struct {
	mu          sync.RWMutex
	records     map[string]tracking.Record     // keyed by order number
	annotations map[string]tracking.Annotation // keyed by tracking number
	syncMeta    map[string]tracking.SyncMeta   // keyed by source
}

var _ store.Backend = (*Store)(nil)

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		records:     make(map[string]tracking.Record),
		annotations: make(map[string]tracking.Annotation),
		syncMeta:    make(map[string]tracking.SyncMeta),
	}
}

// Records returns the record store.
func (s *Store) Records() store.RecordStore { return &recordStore{s} }

// Annotations returns the annotation store.
func (s *Store) Annotations() store.AnnotationStore { return &annotationStore{s} }

// SyncMeta returns the sync metadata store.
func (s *Store) SyncMeta() store.SyncMetaStore { return &syncMetaStore{s} }

// CheckReadiness implements store.Backend. Memory storage is always ready.
func (*Store) CheckReadiness(_ context.Context) error { return nil }

// Close implements store.Backend. No resources to release.
func (*Store) Close() {}

type recordStore struct {
	s *Store
}

var _ store.RecordStore = (*recordStore)(nil)

// BulkUpsertOrders implements store.RecordStore.
func (r *recordStore) BulkUpsertOrders(_ context.Context, records []tracking.Record) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, rec := range records {
		if existing, ok := r.s.records[rec.OrderNumber]; ok {
			// Preserve carrier state and operator state on existing records;
			// the bulk sync only owns order-level fields.
			rec.UPSStatus = existing.UPSStatus
			rec.Location = existing.Location
			rec.ExpectedDelivery = existing.ExpectedDelivery
			rec.TrackingURL = existing.TrackingURL
			rec.Delivered = existing.Delivered
			rec.Flagged = existing.Flagged
			rec.Notes = existing.Notes
			if rec.LastUpdated < existing.LastUpdated {
				rec.LastUpdated = existing.LastUpdated
			}
		}
		r.s.records[rec.OrderNumber] = rec
	}
	return len(records), nil
}

// UpdateCarrierState implements store.RecordStore.
func (r *recordStore) UpdateCarrierState(_ context.Context, trackingNumber string, update tracking.CarrierUpdate) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	updated := 0
	for key, rec := range r.s.records {
		if rec.TrackingNumber != trackingNumber {
			continue
		}
		prev := rec.LastUpdated
		rec.ApplyCarrierUpdate(update)
		if rec.LastUpdated < prev {
			rec.LastUpdated = prev
		}
		r.s.records[key] = rec
		updated++
	}
	return updated, nil
}

// GetByOrderNumber implements store.RecordStore.
func (r *recordStore) GetByOrderNumber(_ context.Context, orderNumber string) (*tracking.Record, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	rec, ok := r.s.records[orderNumber]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &rec, nil
}

// ListByTrackingNumber implements store.RecordStore.
func (r *recordStore) ListByTrackingNumber(_ context.Context, trackingNumber string) ([]tracking.Record, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	matches := make([]tracking.Record, 0)
	for _, rec := range r.s.records {
		if rec.TrackingNumber == trackingNumber {
			matches = append(matches, rec)
		}
	}
	sortByRecency(matches)
	return matches, nil
}

// List implements store.RecordStore.
func (r *recordStore) List(_ context.Context, query store.ListQuery) ([]tracking.Record, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	matches := make([]tracking.Record, 0, len(r.s.records))
	for _, rec := range r.s.records {
		if query.FlaggedOnly && !rec.Flagged {
			continue
		}
		if query.RequireTracking && rec.TrackingNumber == "" {
			continue
		}
		if !rec.MatchesStatus(query.Status) {
			continue
		}
		matches = append(matches, rec)
	}
	sortByRecency(matches)

	if query.Limit > 0 && len(matches) > query.Limit {
		matches = matches[:query.Limit]
	}
	return matches, nil
}

// SetFlag implements store.RecordStore.
func (r *recordStore) SetFlag(_ context.Context, orderNumber string, flagged bool, lastUpdated int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rec, ok := r.s.records[orderNumber]
	if !ok {
		return store.ErrNotFound
	}
	rec.Flagged = flagged
	if lastUpdated > rec.LastUpdated {
		rec.LastUpdated = lastUpdated
	}
	r.s.records[orderNumber] = rec
	return nil
}

type annotationStore struct {
	s *Store
}

var _ store.AnnotationStore = (*annotationStore)(nil)

// Upsert implements store.AnnotationStore.
func (a *annotationStore) Upsert(_ context.Context, annotation tracking.Annotation) error {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()

	a.s.annotations[annotation.TrackingNumber] = annotation
	return nil
}

// Get implements store.AnnotationStore.
func (a *annotationStore) Get(_ context.Context, trackingNumber string) (*tracking.Annotation, error) {
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()

	annotation, ok := a.s.annotations[trackingNumber]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &annotation, nil
}

// List implements store.AnnotationStore.
func (a *annotationStore) List(_ context.Context) ([]tracking.Annotation, error) {
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()

	annotations := make([]tracking.Annotation, 0, len(a.s.annotations))
	for _, annotation := range a.s.annotations {
		annotations = append(annotations, annotation)
	}
	sort.Slice(annotations, func(i, j int) bool {
		return annotations[i].TrackingNumber < annotations[j].TrackingNumber
	})
	return annotations, nil
}

type syncMetaStore struct {
	s *Store
}

var _ store.SyncMetaStore = (*syncMetaStore)(nil)

// Get implements store.SyncMetaStore.
func (m *syncMetaStore) Get(_ context.Context, source string) (*tracking.SyncMeta, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()

	meta, ok := m.s.syncMeta[source]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &meta, nil
}

// Set implements store.SyncMetaStore.
func (m *syncMetaStore) Set(_ context.Context, meta tracking.SyncMeta) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	m.s.syncMeta[meta.Source] = meta
	return nil
}

// sortByRecency orders records by lastUpdated descending with order number as
// tie-break. Bulk syncs stamp many records with the same timestamp, so the
// tie-break keeps pagination deterministic across calls.
func sortByRecency(records []tracking.Record) {
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].LastUpdated != records[j].LastUpdated {
			return records[i].LastUpdated > records[j].LastUpdated
		}
		return records[i].OrderNumber < records[j].OrderNumber
	})
}
