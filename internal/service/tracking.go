package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/trackhouse/trackhouse-sync-server/internal/annotations"
	"github.com/trackhouse/trackhouse-sync-server/internal/clock"
	"github.com/trackhouse/trackhouse-sync-server/internal/store"
	"github.com/trackhouse/trackhouse-sync-server/internal/tracking"
)

const (
	// defaultPageLimit is the page size when the caller does not set one
	defaultPageLimit = 50

	// DefaultIssuesWindow bounds the recency scan of the issues view
	DefaultIssuesWindow = 150
)

// defaultTrackingService implements TrackingService over a store backend.
type defaultTrackingService struct {
	backend      store.Backend
	hub          annotations.Hub
	clk          clock.Clock
	issuesWindow int
}

var _ TrackingService = (*defaultTrackingService)(nil)

// ServiceOption is a functional option for configuring the tracking service
type ServiceOption func(*defaultTrackingService)

// WithClock overrides the wall clock used for lastUpdated stamps
func WithClock(c clock.Clock) ServiceOption {
	return func(s *defaultTrackingService) {
		s.clk = c
	}
}

// WithIssuesWindow overrides the recency scan window of the issues view
func WithIssuesWindow(n int) ServiceOption {
	return func(s *defaultTrackingService) {
		s.issuesWindow = n
	}
}

// NewTrackingService creates a TrackingService over the given backend. The
// hub may be nil when no subscriber surface is wired.
func NewTrackingService(backend store.Backend, hub annotations.Hub, opts ...ServiceOption) TrackingService {
	s := &defaultTrackingService{
		backend:      backend,
		hub:          hub,
		clk:          clock.Real(),
		issuesWindow: DefaultIssuesWindow,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.issuesWindow <= 0 {
		s.issuesWindow = DefaultIssuesWindow
	}

	return s
}

// CheckReadiness implements TrackingService.CheckReadiness
func (s *defaultTrackingService) CheckReadiness(ctx context.Context) error {
	return s.backend.CheckReadiness(ctx)
}

// GetPage implements TrackingService.GetPage
func (s *defaultTrackingService) GetPage(ctx context.Context, opts ...Option[PageOptions]) (*Page, error) {
	options := &PageOptions{Page: 1, Limit: defaultPageLimit}
	for _, opt := range opts {
		if err := opt(options); err != nil {
			return nil, err
		}
	}

	records, err := s.backend.Records().List(ctx, store.ListQuery{
		Status:          options.Status,
		RequireTracking: options.RequireTracking,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	total := len(records)
	totalPages := 0
	if total > 0 {
		totalPages = (total + options.Limit - 1) / options.Limit
	}

	// Slice the requested page. Pages past the end return empty data with
	// the real total intact.
	start := (options.Page - 1) * options.Limit
	end := start + options.Limit
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	data := make([]tracking.Record, end-start)
	copy(data, records[start:end])
	s.overlayAnnotations(ctx, data)

	return &Page{
		Data:       data,
		Total:      total,
		Page:       options.Page,
		TotalPages: totalPages,
		LastSync:   s.lastSync(ctx),
	}, nil
}

// GetIssues implements TrackingService.GetIssues
func (s *defaultTrackingService) GetIssues(ctx context.Context) (*Page, error) {
	flagged, err := s.backend.Records().List(ctx, store.ListQuery{FlaggedOnly: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	recent, err := s.backend.Records().List(ctx, store.ListQuery{Limit: s.issuesWindow})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	// Flagged records lead, however old they are. Recent error matches
	// follow, deduplicated by order number. Both groups keep the store's
	// lastUpdated ordering.
	data := make([]tracking.Record, 0, len(flagged))
	seen := make(map[string]struct{}, len(flagged))
	for _, rec := range flagged {
		data = append(data, rec)
		seen[rec.OrderNumber] = struct{}{}
	}
	for _, rec := range recent {
		if _, ok := seen[rec.OrderNumber]; ok {
			continue
		}
		if !rec.HasErrorStatus() {
			continue
		}
		data = append(data, rec)
	}

	s.overlayAnnotations(ctx, data)

	return &Page{
		Data:       data,
		Total:      len(data),
		Page:       1,
		TotalPages: 1,
		LastSync:   s.lastSync(ctx),
	}, nil
}

// SetFlag implements TrackingService.SetFlag
func (s *defaultTrackingService) SetFlag(ctx context.Context, opts ...Option[SetFlagOptions]) (*FlagResult, error) {
	options := &SetFlagOptions{}
	for _, opt := range opts {
		if err := opt(options); err != nil {
			return nil, err
		}
	}
	if options.OrderNumber == "" {
		return nil, fmt.Errorf("%w: order number is required", ErrValidation)
	}

	nowMs := s.clk.Now().UnixMilli()

	err := s.backend.Records().SetFlag(ctx, options.OrderNumber, options.Flagged, nowMs)
	switch {
	case errors.Is(err, store.ErrNotFound):
		if options.TrackingNumber == "" {
			return nil, fmt.Errorf("%w: %s", ErrRecordNotFound, options.OrderNumber)
		}
		// No record yet for this shipment. The annotation is the primary
		// write here so the flag survives until a sync creates the record.
		if err := s.writeAnnotation(ctx, options, nowMs); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
	case err != nil:
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	default:
		// Mirror to the annotation store; a mirror failure never blocks
		// the record write.
		if options.TrackingNumber != "" {
			if err := s.writeAnnotation(ctx, options, nowMs); err != nil {
				slog.WarnContext(ctx, "Annotation mirror write failed",
					"order_number", options.OrderNumber,
					"tracking_number", options.TrackingNumber,
					"error", err)
			}
		}
	}

	s.publishFlagEvent(options, nowMs)

	slog.InfoContext(ctx, "Flag updated",
		"order_number", options.OrderNumber,
		"tracking_number", options.TrackingNumber,
		"flagged", options.Flagged)

	return &FlagResult{
		OrderNumber:    options.OrderNumber,
		TrackingNumber: options.TrackingNumber,
		Flagged:        options.Flagged,
	}, nil
}

// writeAnnotation upserts the flag into the annotation store, preserving any
// notes already stored for the tracking number.
func (s *defaultTrackingService) writeAnnotation(ctx context.Context, options *SetFlagOptions, nowMs int64) error {
	notes := ""
	existing, err := s.backend.Annotations().Get(ctx, options.TrackingNumber)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("failed to read annotation: %w", err)
	}
	if existing != nil {
		notes = existing.Notes
	}

	return s.backend.Annotations().Upsert(ctx, tracking.Annotation{
		TrackingNumber: options.TrackingNumber,
		Flagged:        options.Flagged,
		Notes:          notes,
		UpdatedAt:      nowMs,
	})
}

// publishFlagEvent pushes the change to hub subscribers.
func (s *defaultTrackingService) publishFlagEvent(options *SetFlagOptions, nowMs int64) {
	if s.hub == nil {
		return
	}
	s.hub.Publish(annotations.Event{
		OrderNumber:    options.OrderNumber,
		TrackingNumber: options.TrackingNumber,
		Flagged:        options.Flagged,
		UpdatedAt:      nowMs,
	})
}

// overlayAnnotations fills flag/notes from the annotation store for records
// that carry none of their own. Overlay failures are logged and the records
// are served as stored.
func (s *defaultTrackingService) overlayAnnotations(ctx context.Context, records []tracking.Record) {
	needed := false
	for i := range records {
		if records[i].TrackingNumber != "" && !records[i].Flagged && records[i].Notes == "" {
			needed = true
			break
		}
	}
	if !needed {
		return
	}

	stored, err := s.backend.Annotations().List(ctx)
	if err != nil {
		slog.WarnContext(ctx, "Failed to load annotations for overlay", "error", err)
		return
	}
	if len(stored) == 0 {
		return
	}

	byTracking := make(map[string]*tracking.Annotation, len(stored))
	for i := range stored {
		byTracking[stored[i].TrackingNumber] = &stored[i]
	}

	for i := range records {
		if records[i].TrackingNumber == "" {
			continue
		}
		records[i].MergeAnnotation(byTracking[records[i].TrackingNumber])
	}
}

// lastSync reads the bulk sync timestamp for list responses. Absence and
// read failures both degrade to zero so list reads keep working.
func (s *defaultTrackingService) lastSync(ctx context.Context) int64 {
	meta, err := s.backend.SyncMeta().Get(ctx, tracking.SourceOrders)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			slog.WarnContext(ctx, "Failed to read sync metadata", "error", err)
		}
		return 0
	}
	return meta.LastSync
}
