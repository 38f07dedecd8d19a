// Package postgres provides a PostgreSQL-backed implementation of the store
// interfaces on top of a pgx connection pool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/trackhouse/trackhouse-sync-server/internal/otel"
	"github.com/trackhouse/trackhouse-sync-server/internal/store"
	"github.com/trackhouse/trackhouse-sync-server/internal/tracking"
)

// TracerName is the name used for the postgres store tracer.
const TracerName = "github.com/trackhouse/trackhouse-sync-server/store/postgres"

const recordColumns = `order_id, order_number, tracking_number, carrier_code,
customer_name, customer_email, items, ship_date,
status, ups_status, location, expected_delivery, tracking_url,
label_cost, last_updated, delivered, flagged, notes`

// options holds configuration options for the postgres store
type options struct {
	pool   *pgxpool.Pool
	tracer trace.Tracer
}

// Option is a functional option for configuring the postgres store
type Option func(*options) error

// WithConnectionPool sets the pgx pool backing the store. The caller is
// responsible for closing the pool unless Close is used.
func WithConnectionPool(pool *pgxpool.Pool) Option {
	return func(o *options) error {
		if pool == nil {
			return fmt.Errorf("pgx pool is required")
		}
		o.pool = pool
		return nil
	}
}

// WithTracer sets the OpenTelemetry tracer for the store.
// If not set, tracing will be disabled (no-op).
func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) error {
		o.tracer = tracer
		return nil
	}
}

// Store is a PostgreSQL-backed store.Backend.
type Store struct {
	pool   *pgxpool.Pool
	tracer trace.Tracer
}

var _ store.Backend = (*Store)(nil)

// New creates a new PostgreSQL-backed store with the given options.
func New(opts ...Option) (*Store, error) {
	o := &options{}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	if o.pool == nil {
		return nil, fmt.Errorf("pgx pool is required")
	}

	return &Store{
		pool:   o.pool,
		tracer: o.tracer,
	}, nil
}

// Records returns the record store.
func (s *Store) Records() store.RecordStore { return &recordStore{s} }

// Annotations returns the annotation store.
func (s *Store) Annotations() store.AnnotationStore { return &annotationStore{s} }

// SyncMeta returns the sync metadata store.
func (s *Store) SyncMeta() store.SyncMetaStore { return &syncMetaStore{s} }

// CheckReadiness implements store.Backend.
func (s *Store) CheckReadiness(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	return nil
}

// Close implements store.Backend. It closes the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// startSpan starts a new span for store operations. All spans carry the
// db.system attribute per OTEL semantic conventions.
func (s *Store) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return otel.StartSpan(ctx, s.tracer, name,
		trace.WithAttributes(semconv.DBSystemPostgreSQL))
}

type recordStore struct {
	s *Store
}

var _ store.RecordStore = (*recordStore)(nil)

// BulkUpsertOrders implements store.RecordStore. All records are written in a
// single transaction; order-level fields follow the incoming record while
// carrier and operator state stay as they were.
func (r *recordStore) BulkUpsertOrders(ctx context.Context, records []tracking.Record) (int, error) {
	ctx, span := r.s.startSpan(ctx, "postgresStore.BulkUpsertOrders")
	defer span.End()

	if len(records) == 0 {
		return 0, nil
	}

	tx, err := r.s.pool.Begin(ctx)
	if err != nil {
		otel.RecordError(span, err)
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		err := tx.Rollback(ctx)
		if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			slog.WarnContext(ctx, "Failed to rollback transaction", "error", err)
		}
	}()

	batch := &pgx.Batch{}
	for _, rec := range records {
		batch.Queue(`
			INSERT INTO order_tracking_records (`+recordColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
			ON CONFLICT (order_number) DO UPDATE SET
				order_id = EXCLUDED.order_id,
				tracking_number = EXCLUDED.tracking_number,
				carrier_code = EXCLUDED.carrier_code,
				customer_name = EXCLUDED.customer_name,
				customer_email = EXCLUDED.customer_email,
				items = EXCLUDED.items,
				ship_date = EXCLUDED.ship_date,
				status = EXCLUDED.status,
				label_cost = EXCLUDED.label_cost,
				last_updated = GREATEST(order_tracking_records.last_updated, EXCLUDED.last_updated)`,
			rec.OrderID, rec.OrderNumber, rec.TrackingNumber, rec.CarrierCode,
			rec.CustomerName, rec.CustomerEmail, rec.Items, rec.ShipDate,
			rec.Status, rec.UPSStatus, rec.Location, rec.ExpectedDelivery, rec.TrackingURL,
			rec.LabelCost, rec.LastUpdated, rec.Delivered, rec.Flagged, rec.Notes,
		)
	}

	results := tx.SendBatch(ctx, batch)
	for range records {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			otel.RecordError(span, err)
			return 0, fmt.Errorf("failed to upsert record: %w", err)
		}
	}
	if err := results.Close(); err != nil {
		otel.RecordError(span, err)
		return 0, fmt.Errorf("failed to close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		otel.RecordError(span, err)
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	span.SetAttributes(otel.AttrRecordsWritten.Int(len(records)))
	return len(records), nil
}

// UpdateCarrierState implements store.RecordStore.
func (r *recordStore) UpdateCarrierState(
	ctx context.Context,
	trackingNumber string,
	update tracking.CarrierUpdate,
) (int, error) {
	ctx, span := r.s.startSpan(ctx, "postgresStore.UpdateCarrierState")
	defer span.End()
	span.SetAttributes(otel.AttrTrackingNumber.String(trackingNumber))

	tag, err := r.s.pool.Exec(ctx, `
		UPDATE order_tracking_records
		SET ups_status = $2,
			location = $3,
			expected_delivery = $4,
			tracking_url = $5,
			delivered = $6,
			last_updated = GREATEST(last_updated, $7)
		WHERE tracking_number = $1`,
		trackingNumber,
		update.UPSStatus, update.Location, update.ExpectedDelivery,
		update.TrackingURL, update.Delivered, update.LastUpdated,
	)
	if err != nil {
		otel.RecordError(span, err)
		return 0, fmt.Errorf("failed to update carrier state: %w", err)
	}

	return int(tag.RowsAffected()), nil
}

// GetByOrderNumber implements store.RecordStore.
func (r *recordStore) GetByOrderNumber(ctx context.Context, orderNumber string) (*tracking.Record, error) {
	ctx, span := r.s.startSpan(ctx, "postgresStore.GetByOrderNumber")
	defer span.End()
	span.SetAttributes(otel.AttrOrderNumber.String(orderNumber))

	row := r.s.pool.QueryRow(ctx,
		`SELECT `+recordColumns+` FROM order_tracking_records WHERE order_number = $1`,
		orderNumber,
	)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		otel.RecordError(span, err)
		return nil, fmt.Errorf("failed to get record: %w", err)
	}
	return rec, nil
}

// ListByTrackingNumber implements store.RecordStore.
func (r *recordStore) ListByTrackingNumber(ctx context.Context, trackingNumber string) ([]tracking.Record, error) {
	ctx, span := r.s.startSpan(ctx, "postgresStore.ListByTrackingNumber")
	defer span.End()
	span.SetAttributes(otel.AttrTrackingNumber.String(trackingNumber))

	rows, err := r.s.pool.Query(ctx, `
		SELECT `+recordColumns+`
		FROM order_tracking_records
		WHERE tracking_number = $1
		ORDER BY last_updated DESC, order_number ASC`,
		trackingNumber,
	)
	if err != nil {
		otel.RecordError(span, err)
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	defer rows.Close()

	records, err := collectRecords(rows)
	if err != nil {
		otel.RecordError(span, err)
		return nil, err
	}
	return records, nil
}

// List implements store.RecordStore. Filtering happens in SQL so the indexes
// on (flagged), (last_updated), and (tracking_number) are used.
func (r *recordStore) List(ctx context.Context, query store.ListQuery) ([]tracking.Record, error) {
	ctx, span := r.s.startSpan(ctx, "postgresStore.List")
	defer span.End()
	span.SetAttributes(
		otel.AttrStatusFilter.String(query.Status),
		otel.AttrPageSize.Int(query.Limit),
	)

	rows, err := r.s.pool.Query(ctx, `
		SELECT `+recordColumns+`
		FROM order_tracking_records
		WHERE ($1 = '' OR COALESCE(NULLIF(ups_status, ''), status) ILIKE '%' || $1 || '%' ESCAPE '\')
			AND (NOT $2 OR tracking_number <> '')
			AND (NOT $3 OR flagged)
		ORDER BY last_updated DESC, order_number ASC
		LIMIT NULLIF($4, 0)`,
		escapeLikePattern(query.Status), query.RequireTracking, query.FlaggedOnly, query.Limit,
	)
	if err != nil {
		otel.RecordError(span, err)
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	defer rows.Close()

	records, err := collectRecords(rows)
	if err != nil {
		otel.RecordError(span, err)
		return nil, err
	}

	span.SetAttributes(otel.AttrResultCount.Int(len(records)))
	return records, nil
}

// SetFlag implements store.RecordStore.
func (r *recordStore) SetFlag(ctx context.Context, orderNumber string, flagged bool, lastUpdated int64) error {
	ctx, span := r.s.startSpan(ctx, "postgresStore.SetFlag")
	defer span.End()
	span.SetAttributes(otel.AttrOrderNumber.String(orderNumber))

	tag, err := r.s.pool.Exec(ctx, `
		UPDATE order_tracking_records
		SET flagged = $2, last_updated = GREATEST(last_updated, $3)
		WHERE order_number = $1`,
		orderNumber, flagged, lastUpdated,
	)
	if err != nil {
		otel.RecordError(span, err)
		return fmt.Errorf("failed to set flag: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

type annotationStore struct {
	s *Store
}

var _ store.AnnotationStore = (*annotationStore)(nil)

// Upsert implements store.AnnotationStore.
func (a *annotationStore) Upsert(ctx context.Context, annotation tracking.Annotation) error {
	ctx, span := a.s.startSpan(ctx, "postgresStore.UpsertAnnotation")
	defer span.End()
	span.SetAttributes(otel.AttrTrackingNumber.String(annotation.TrackingNumber))

	_, err := a.s.pool.Exec(ctx, `
		INSERT INTO annotations (tracking_number, flagged, notes, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (tracking_number) DO UPDATE SET
			flagged = EXCLUDED.flagged,
			notes = EXCLUDED.notes,
			updated_at = EXCLUDED.updated_at`,
		annotation.TrackingNumber, annotation.Flagged, annotation.Notes, annotation.UpdatedAt,
	)
	if err != nil {
		otel.RecordError(span, err)
		return fmt.Errorf("failed to upsert annotation: %w", err)
	}
	return nil
}

// Get implements store.AnnotationStore.
func (a *annotationStore) Get(ctx context.Context, trackingNumber string) (*tracking.Annotation, error) {
	ctx, span := a.s.startSpan(ctx, "postgresStore.GetAnnotation")
	defer span.End()
	span.SetAttributes(otel.AttrTrackingNumber.String(trackingNumber))

	var annotation tracking.Annotation
	err := a.s.pool.QueryRow(ctx, `
		SELECT tracking_number, flagged, notes, updated_at
		FROM annotations
		WHERE tracking_number = $1`,
		trackingNumber,
	).Scan(&annotation.TrackingNumber, &annotation.Flagged, &annotation.Notes, &annotation.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		otel.RecordError(span, err)
		return nil, fmt.Errorf("failed to get annotation: %w", err)
	}
	return &annotation, nil
}

// List implements store.AnnotationStore.
func (a *annotationStore) List(ctx context.Context) ([]tracking.Annotation, error) {
	ctx, span := a.s.startSpan(ctx, "postgresStore.ListAnnotations")
	defer span.End()

	rows, err := a.s.pool.Query(ctx, `
		SELECT tracking_number, flagged, notes, updated_at
		FROM annotations
		ORDER BY tracking_number ASC`,
	)
	if err != nil {
		otel.RecordError(span, err)
		return nil, fmt.Errorf("failed to list annotations: %w", err)
	}
	defer rows.Close()

	annotations := make([]tracking.Annotation, 0)
	for rows.Next() {
		var annotation tracking.Annotation
		if err := rows.Scan(
			&annotation.TrackingNumber, &annotation.Flagged,
			&annotation.Notes, &annotation.UpdatedAt,
		); err != nil {
			otel.RecordError(span, err)
			return nil, fmt.Errorf("failed to scan annotation: %w", err)
		}
		annotations = append(annotations, annotation)
	}
	if err := rows.Err(); err != nil {
		otel.RecordError(span, err)
		return nil, fmt.Errorf("failed to read annotations: %w", err)
	}
	return annotations, nil
}

type syncMetaStore struct {
	s *Store
}

var _ store.SyncMetaStore = (*syncMetaStore)(nil)

// Get implements store.SyncMetaStore.
func (m *syncMetaStore) Get(ctx context.Context, source string) (*tracking.SyncMeta, error) {
	ctx, span := m.s.startSpan(ctx, "postgresStore.GetSyncMeta")
	defer span.End()
	span.SetAttributes(otel.AttrSource.String(source))

	var meta tracking.SyncMeta
	err := m.s.pool.QueryRow(ctx,
		`SELECT source, last_sync FROM sync_meta WHERE source = $1`,
		source,
	).Scan(&meta.Source, &meta.LastSync)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		otel.RecordError(span, err)
		return nil, fmt.Errorf("failed to get sync meta: %w", err)
	}
	return &meta, nil
}

// Set implements store.SyncMetaStore.
func (m *syncMetaStore) Set(ctx context.Context, meta tracking.SyncMeta) error {
	ctx, span := m.s.startSpan(ctx, "postgresStore.SetSyncMeta")
	defer span.End()
	span.SetAttributes(otel.AttrSource.String(meta.Source))

	_, err := m.s.pool.Exec(ctx, `
		INSERT INTO sync_meta (source, last_sync)
		VALUES ($1, $2)
		ON CONFLICT (source) DO UPDATE SET last_sync = EXCLUDED.last_sync`,
		meta.Source, meta.LastSync,
	)
	if err != nil {
		otel.RecordError(span, err)
		return fmt.Errorf("failed to set sync meta: %w", err)
	}
	return nil
}

// scanRecord scans a single record row in recordColumns order.
func scanRecord(row pgx.Row) (*tracking.Record, error) {
	var rec tracking.Record
	err := row.Scan(
		&rec.OrderID, &rec.OrderNumber, &rec.TrackingNumber, &rec.CarrierCode,
		&rec.CustomerName, &rec.CustomerEmail, &rec.Items, &rec.ShipDate,
		&rec.Status, &rec.UPSStatus, &rec.Location, &rec.ExpectedDelivery, &rec.TrackingURL,
		&rec.LabelCost, &rec.LastUpdated, &rec.Delivered, &rec.Flagged, &rec.Notes,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// collectRecords drains rows into a slice. An empty result is an empty
// slice, never nil.
func collectRecords(rows pgx.Rows) ([]tracking.Record, error) {
	records := make([]tracking.Record, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read records: %w", err)
	}
	return records, nil
}

// escapeLikePattern escapes LIKE wildcards so a status filter matches as a
// literal substring.
func escapeLikePattern(s string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(s)
}
