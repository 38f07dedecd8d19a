package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/trackhouse/trackhouse-sync-server/internal/annotations"
	"github.com/trackhouse/trackhouse-sync-server/internal/clock"
	"github.com/trackhouse/trackhouse-sync-server/internal/store"
	"github.com/trackhouse/trackhouse-sync-server/internal/store/memory"
	storemocks "github.com/trackhouse/trackhouse-sync-server/internal/store/mocks"
	"github.com/trackhouse/trackhouse-sync-server/internal/tracking"
)

var serviceNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// ago returns an epoch-millisecond timestamp d before serviceNow.
func ago(d time.Duration) int64 {
	return serviceNow.Add(-d).UnixMilli()
}

func seedRecords(t *testing.T, backend store.Backend, records ...tracking.Record) {
	t.Helper()

	_, err := backend.Records().BulkUpsertOrders(context.Background(), records)
	require.NoError(t, err)
}

func TestNewTrackingService(t *testing.T) {
	t.Parallel()

	svc := NewTrackingService(memory.New(), nil)

	require.NotNil(t, svc)
	impl, ok := svc.(*defaultTrackingService)
	require.True(t, ok)
	assert.Equal(t, DefaultIssuesWindow, impl.issuesWindow)
	assert.NotNil(t, impl.clk)

	// A non-positive window falls back to the default.
	svc = NewTrackingService(memory.New(), nil, WithIssuesWindow(0))
	impl, ok = svc.(*defaultTrackingService)
	require.True(t, ok)
	assert.Equal(t, DefaultIssuesWindow, impl.issuesWindow)
}

func TestCheckReadiness(t *testing.T) {
	t.Parallel()

	svc := NewTrackingService(memory.New(), nil)

	assert.NoError(t, svc.CheckReadiness(context.Background()))
}

func TestGetPage_PaginationIdentity(t *testing.T) {
	t.Parallel()

	backend := memory.New()
	for i := 0; i < 7; i++ {
		seedRecords(t, backend, tracking.Record{
			OrderNumber: fmt.Sprintf("ORD-%d", i+1),
			Status:      "Shipped",
			LastUpdated: ago(time.Duration(i) * time.Hour),
		})
	}
	svc := NewTrackingService(backend, nil)
	ctx := context.Background()

	full, err := svc.GetPage(ctx, WithLimit(100))
	require.NoError(t, err)
	require.Len(t, full.Data, 7)

	// Records come back newest first.
	for i := 0; i < 7; i++ {
		assert.Equal(t, fmt.Sprintf("ORD-%d", i+1), full.Data[i].OrderNumber)
	}

	// Concatenating all pages reproduces the full set exactly once each,
	// in order, for every page size.
	for limit := 1; limit <= 8; limit++ {
		var collected []tracking.Record
		page := 1
		for {
			result, err := svc.GetPage(ctx, WithPage(page), WithLimit(limit))
			require.NoError(t, err)
			assert.Equal(t, 7, result.Total)
			assert.Equal(t, page, result.Page)
			collected = append(collected, result.Data...)
			if page >= result.TotalPages {
				break
			}
			page++
		}
		assert.Equal(t, full.Data, collected, "limit %d", limit)
	}
}

func TestGetPage_EmptyStore(t *testing.T) {
	t.Parallel()

	svc := NewTrackingService(memory.New(), nil)

	result, err := svc.GetPage(context.Background())

	require.NoError(t, err)
	assert.NotNil(t, result.Data)
	assert.Empty(t, result.Data)
	assert.Equal(t, 0, result.Total)
	assert.Equal(t, 0, result.TotalPages)
	assert.Equal(t, int64(0), result.LastSync)
}

func TestGetPage_PastEnd(t *testing.T) {
	t.Parallel()

	backend := memory.New()
	seedRecords(t, backend,
		tracking.Record{OrderNumber: "ORD-1", LastUpdated: ago(time.Hour)},
		tracking.Record{OrderNumber: "ORD-2", LastUpdated: ago(2 * time.Hour)},
	)
	svc := NewTrackingService(backend, nil)

	result, err := svc.GetPage(context.Background(), WithPage(5), WithLimit(10))

	require.NoError(t, err)
	assert.NotNil(t, result.Data)
	assert.Empty(t, result.Data)
	assert.Equal(t, 2, result.Total)
	assert.Equal(t, 1, result.TotalPages)
}

func TestGetPage_StatusFilter(t *testing.T) {
	t.Parallel()

	backend := memory.New()
	seedRecords(t, backend,
		tracking.Record{
			OrderNumber:    "ORD-1",
			TrackingNumber: "1Z111",
			Status:         "Shipped",
			UPSStatus:      "In Transit",
			LastUpdated:    ago(time.Hour),
		},
		tracking.Record{
			OrderNumber: "ORD-2",
			Status:      "Awaiting Shipment",
			LastUpdated: ago(2 * time.Hour),
		},
	)
	svc := NewTrackingService(backend, nil)
	ctx := context.Background()

	// Case-insensitive substring on the carrier status.
	result, err := svc.GetPage(ctx, WithStatus("TRANSIT"))
	require.NoError(t, err)
	require.Len(t, result.Data, 1)
	assert.Equal(t, "ORD-1", result.Data[0].OrderNumber)

	// The order status is the fallback when no carrier status is set.
	result, err = svc.GetPage(ctx, WithStatus("await"))
	require.NoError(t, err)
	require.Len(t, result.Data, 1)
	assert.Equal(t, "ORD-2", result.Data[0].OrderNumber)

	// ORD-1 has a carrier status, so its order status is not consulted.
	result, err = svc.GetPage(ctx, WithStatus("shipped"))
	require.NoError(t, err)
	assert.Empty(t, result.Data)
}

func TestGetPage_TrackingOnly(t *testing.T) {
	t.Parallel()

	backend := memory.New()
	seedRecords(t, backend,
		tracking.Record{OrderNumber: "ORD-1", TrackingNumber: "1Z111", LastUpdated: ago(time.Hour)},
		tracking.Record{OrderNumber: "ORD-2", LastUpdated: ago(2 * time.Hour)},
	)
	svc := NewTrackingService(backend, nil)

	result, err := svc.GetPage(context.Background(), WithTrackingOnly())

	require.NoError(t, err)
	require.Len(t, result.Data, 1)
	assert.Equal(t, "ORD-1", result.Data[0].OrderNumber)
	assert.Equal(t, 1, result.Total)
}

func TestGetPage_InvalidOptions(t *testing.T) {
	t.Parallel()

	svc := NewTrackingService(memory.New(), nil)
	ctx := context.Background()

	tests := []struct {
		name string
		opt  Option[PageOptions]
	}{
		{name: "zero page", opt: WithPage(0)},
		{name: "negative page", opt: WithPage(-3)},
		{name: "zero limit", opt: WithLimit(0)},
		{name: "empty status", opt: WithStatus("")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := svc.GetPage(ctx, tt.opt)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestGetPage_LastSync(t *testing.T) {
	t.Parallel()

	backend := memory.New()
	lastSync := ago(10 * time.Minute)
	require.NoError(t, backend.SyncMeta().Set(context.Background(), tracking.SyncMeta{
		Source:   tracking.SourceOrders,
		LastSync: lastSync,
	}))
	svc := NewTrackingService(backend, nil)

	result, err := svc.GetPage(context.Background())

	require.NoError(t, err)
	assert.Equal(t, lastSync, result.LastSync)
}

func TestGetPage_AnnotationOverlay(t *testing.T) {
	t.Parallel()

	backend := memory.New()
	ctx := context.Background()
	seedRecords(t, backend,
		tracking.Record{OrderNumber: "ORD-1", TrackingNumber: "1ZA", LastUpdated: ago(time.Hour)},
		tracking.Record{OrderNumber: "ORD-2", TrackingNumber: "1ZB", Notes: "own note", LastUpdated: ago(2 * time.Hour)},
		tracking.Record{OrderNumber: "ORD-3", TrackingNumber: "1ZC", LastUpdated: ago(3 * time.Hour)},
	)
	require.NoError(t, backend.Annotations().Upsert(ctx, tracking.Annotation{
		TrackingNumber: "1ZA", Flagged: true, Notes: "fragile", UpdatedAt: ago(time.Minute),
	}))
	require.NoError(t, backend.Annotations().Upsert(ctx, tracking.Annotation{
		TrackingNumber: "1ZB", Flagged: true, Notes: "ignored", UpdatedAt: ago(time.Minute),
	}))
	svc := NewTrackingService(backend, nil)

	result, err := svc.GetPage(ctx)
	require.NoError(t, err)
	require.Len(t, result.Data, 3)

	// ORD-1 carries nothing of its own, so the annotation fills in.
	assert.True(t, result.Data[0].Flagged)
	assert.Equal(t, "fragile", result.Data[0].Notes)

	// ORD-2 has its own notes, so the record wins outright.
	assert.False(t, result.Data[1].Flagged)
	assert.Equal(t, "own note", result.Data[1].Notes)

	// ORD-3 has no annotation and stays at the defaults.
	assert.False(t, result.Data[2].Flagged)
	assert.Empty(t, result.Data[2].Notes)

	// The overlay is presentation-only; the stored record is unchanged.
	stored, err := backend.Records().GetByOrderNumber(ctx, "ORD-1")
	require.NoError(t, err)
	assert.False(t, stored.Flagged)
}

func TestGetIssues_FlaggedAndRecentErrors(t *testing.T) {
	t.Parallel()

	backend := memory.New()
	seedRecords(t, backend,
		// Flagged ten days ago with a benign status.
		tracking.Record{
			OrderNumber: "ORD-1",
			Status:      "Shipped",
			Flagged:     true,
			LastUpdated: ago(10 * 24 * time.Hour),
		},
		// Recent carrier exception, not flagged.
		tracking.Record{
			OrderNumber: "ORD-2",
			UPSStatus:   "Exception: weather delay",
			LastUpdated: ago(time.Hour),
		},
		// Recent and healthy; appears in neither group.
		tracking.Record{
			OrderNumber: "ORD-3",
			UPSStatus:   "In Transit",
			LastUpdated: ago(2 * time.Hour),
		},
	)
	svc := NewTrackingService(backend, nil)

	result, err := svc.GetIssues(context.Background())

	require.NoError(t, err)
	require.Len(t, result.Data, 2)
	assert.Equal(t, "ORD-1", result.Data[0].OrderNumber, "flagged records lead regardless of age")
	assert.Equal(t, "ORD-2", result.Data[1].OrderNumber)
	assert.Equal(t, 2, result.Total)
	assert.Equal(t, 1, result.Page)
	assert.Equal(t, 1, result.TotalPages)
}

func TestGetIssues_FlagsSurviveTheScanWindow(t *testing.T) {
	t.Parallel()

	backend := memory.New()
	seedRecords(t, backend,
		// Oldest record, flagged: must be reported however far back it is.
		tracking.Record{
			OrderNumber: "ORD-OLD-FLAG",
			Status:      "Shipped",
			Flagged:     true,
			LastUpdated: ago(30 * 24 * time.Hour),
		},
		// Old error status outside the window: the accepted blind spot.
		tracking.Record{
			OrderNumber: "ORD-OLD-ERR",
			UPSStatus:   "Return to Sender",
			LastUpdated: ago(20 * 24 * time.Hour),
		},
		tracking.Record{OrderNumber: "ORD-NEW-1", UPSStatus: "In Transit", LastUpdated: ago(time.Hour)},
		tracking.Record{OrderNumber: "ORD-NEW-2", UPSStatus: "In Transit", LastUpdated: ago(2 * time.Hour)},
	)
	svc := NewTrackingService(backend, nil, WithIssuesWindow(2))

	result, err := svc.GetIssues(context.Background())

	require.NoError(t, err)
	require.Len(t, result.Data, 1)
	assert.Equal(t, "ORD-OLD-FLAG", result.Data[0].OrderNumber)
}

func TestGetIssues_DeduplicatesByOrderNumber(t *testing.T) {
	t.Parallel()

	backend := memory.New()
	seedRecords(t, backend,
		// Flagged and carrying an error status: one entry, in the flagged group.
		tracking.Record{
			OrderNumber: "ORD-1",
			UPSStatus:   "Delivery Exception",
			Flagged:     true,
			LastUpdated: ago(time.Hour),
		},
	)
	svc := NewTrackingService(backend, nil)

	result, err := svc.GetIssues(context.Background())

	require.NoError(t, err)
	assert.Len(t, result.Data, 1)
	assert.Equal(t, 1, result.Total)
}

func TestGetIssues_ErrorVocabulary(t *testing.T) {
	t.Parallel()

	backend := memory.New()
	seedRecords(t, backend,
		tracking.Record{OrderNumber: "ORD-1", UPSStatus: "Exception", LastUpdated: ago(1 * time.Minute)},
		tracking.Record{OrderNumber: "ORD-2", UPSStatus: "Address Error", LastUpdated: ago(2 * time.Minute)},
		tracking.Record{OrderNumber: "ORD-3", Status: "Delivery issue reported", LastUpdated: ago(3 * time.Minute)},
		tracking.Record{OrderNumber: "ORD-4", UPSStatus: "Failed delivery attempt", LastUpdated: ago(4 * time.Minute)},
		tracking.Record{OrderNumber: "ORD-5", UPSStatus: "Return to Sender", LastUpdated: ago(5 * time.Minute)},
		tracking.Record{OrderNumber: "ORD-6", Status: "Voided", LastUpdated: ago(6 * time.Minute)},
		tracking.Record{OrderNumber: "ORD-7", UPSStatus: "In Transit", LastUpdated: ago(7 * time.Minute)},
	)
	svc := NewTrackingService(backend, nil)

	result, err := svc.GetIssues(context.Background())

	require.NoError(t, err)
	assert.Len(t, result.Data, 6)
	for _, rec := range result.Data {
		assert.NotEqual(t, "ORD-7", rec.OrderNumber)
	}
}

func TestSetFlag_ExistingRecord(t *testing.T) {
	t.Parallel()

	backend := memory.New()
	hub := annotations.New()
	defer hub.Close()
	events, cancel := hub.Subscribe()
	defer cancel()

	seedRecords(t, backend, tracking.Record{
		OrderNumber:    "ORD-1",
		TrackingNumber: "1Z111",
		LastUpdated:    ago(24 * time.Hour),
	})
	svc := NewTrackingService(backend, hub, WithClock(clock.NewFake(serviceNow)))
	ctx := context.Background()

	result, err := svc.SetFlag(ctx,
		WithOrderNumber("ORD-1"),
		WithTrackingNumber("1Z111"),
		WithFlagged(true),
	)

	require.NoError(t, err)
	assert.True(t, result.Flagged)
	assert.Equal(t, "ORD-1", result.OrderNumber)

	rec, err := backend.Records().GetByOrderNumber(ctx, "ORD-1")
	require.NoError(t, err)
	assert.True(t, rec.Flagged)
	assert.Equal(t, serviceNow.UnixMilli(), rec.LastUpdated)

	// The flag is mirrored to the annotation store.
	annotation, err := backend.Annotations().Get(ctx, "1Z111")
	require.NoError(t, err)
	assert.True(t, annotation.Flagged)

	// And published to hub subscribers.
	select {
	case event := <-events:
		assert.Equal(t, "ORD-1", event.OrderNumber)
		assert.Equal(t, "1Z111", event.TrackingNumber)
		assert.True(t, event.Flagged)
		assert.Equal(t, serviceNow.UnixMilli(), event.UpdatedAt)
	case <-time.After(time.Second):
		t.Fatal("no hub event arrived")
	}
}

func TestSetFlag_MirrorPreservesNotes(t *testing.T) {
	t.Parallel()

	backend := memory.New()
	ctx := context.Background()
	seedRecords(t, backend, tracking.Record{OrderNumber: "ORD-1", TrackingNumber: "1Z111"})
	require.NoError(t, backend.Annotations().Upsert(ctx, tracking.Annotation{
		TrackingNumber: "1Z111",
		Notes:          "fragile",
		UpdatedAt:      ago(time.Hour),
	}))
	svc := NewTrackingService(backend, nil)

	_, err := svc.SetFlag(ctx,
		WithOrderNumber("ORD-1"),
		WithTrackingNumber("1Z111"),
		WithFlagged(true),
	)

	require.NoError(t, err)
	annotation, err := backend.Annotations().Get(ctx, "1Z111")
	require.NoError(t, err)
	assert.True(t, annotation.Flagged)
	assert.Equal(t, "fragile", annotation.Notes)
}

func TestSetFlag_Unflag(t *testing.T) {
	t.Parallel()

	backend := memory.New()
	seedRecords(t, backend, tracking.Record{OrderNumber: "ORD-1", Flagged: true})
	svc := NewTrackingService(backend, nil)
	ctx := context.Background()

	result, err := svc.SetFlag(ctx, WithOrderNumber("ORD-1"), WithFlagged(false))

	require.NoError(t, err)
	assert.False(t, result.Flagged)

	rec, err := backend.Records().GetByOrderNumber(ctx, "ORD-1")
	require.NoError(t, err)
	assert.False(t, rec.Flagged)
}

func TestSetFlag_UnknownOrder(t *testing.T) {
	t.Parallel()

	svc := NewTrackingService(memory.New(), nil)

	_, err := svc.SetFlag(context.Background(),
		WithOrderNumber("ORD-MISSING"),
		WithFlagged(true),
	)

	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestSetFlag_UnknownOrderWithTrackingNumber(t *testing.T) {
	t.Parallel()

	backend := memory.New()
	hub := annotations.New()
	defer hub.Close()
	events, cancel := hub.Subscribe()
	defer cancel()

	svc := NewTrackingService(backend, hub, WithClock(clock.NewFake(serviceNow)))
	ctx := context.Background()

	// No record yet, but a tracking number: the annotation is the write.
	result, err := svc.SetFlag(ctx,
		WithOrderNumber("ORD-FUTURE"),
		WithTrackingNumber("1Z999"),
		WithFlagged(true),
	)

	require.NoError(t, err)
	assert.True(t, result.Flagged)

	annotation, err := backend.Annotations().Get(ctx, "1Z999")
	require.NoError(t, err)
	assert.True(t, annotation.Flagged)
	assert.Equal(t, serviceNow.UnixMilli(), annotation.UpdatedAt)

	select {
	case event := <-events:
		assert.Equal(t, "1Z999", event.TrackingNumber)
	case <-time.After(time.Second):
		t.Fatal("no hub event arrived")
	}
}

func TestSetFlag_RequiresOrderNumber(t *testing.T) {
	t.Parallel()

	svc := NewTrackingService(memory.New(), nil)

	_, err := svc.SetFlag(context.Background(), WithFlagged(true))
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.SetFlag(context.Background(), WithOrderNumber(""))
	assert.ErrorIs(t, err, ErrValidation)
}

func TestSetFlag_MirrorFailureDoesNotBlockPrimary(t *testing.T) {
	t.Parallel()

	mem := memory.New()
	seedRecords(t, mem, tracking.Record{OrderNumber: "ORD-1", TrackingNumber: "1Z111"})

	ctrl := gomock.NewController(t)
	backend := storemocks.NewMockBackend(ctrl)
	annStore := storemocks.NewMockAnnotationStore(ctrl)
	backend.EXPECT().Records().Return(mem.Records()).AnyTimes()
	backend.EXPECT().Annotations().Return(annStore).AnyTimes()
	annStore.EXPECT().Get(gomock.Any(), "1Z111").Return(nil, fmt.Errorf("connection reset"))

	svc := NewTrackingService(backend, nil)
	ctx := context.Background()

	result, err := svc.SetFlag(ctx,
		WithOrderNumber("ORD-1"),
		WithTrackingNumber("1Z111"),
		WithFlagged(true),
	)

	require.NoError(t, err)
	assert.True(t, result.Flagged)

	rec, err := mem.Records().GetByOrderNumber(ctx, "ORD-1")
	require.NoError(t, err)
	assert.True(t, rec.Flagged)
}

func TestStoreFailuresMapToStoreUnavailable(t *testing.T) {
	t.Parallel()

	newFailingBackend := func(t *testing.T) *storemocks.MockBackend {
		t.Helper()
		ctrl := gomock.NewController(t)
		backend := storemocks.NewMockBackend(ctrl)
		records := storemocks.NewMockRecordStore(ctrl)
		backend.EXPECT().Records().Return(records).AnyTimes()
		records.EXPECT().List(gomock.Any(), gomock.Any()).
			Return(nil, fmt.Errorf("connection reset")).AnyTimes()
		records.EXPECT().SetFlag(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(fmt.Errorf("connection reset")).AnyTimes()
		return backend
	}

	ctx := context.Background()

	t.Run("get page", func(t *testing.T) {
		t.Parallel()
		svc := NewTrackingService(newFailingBackend(t), nil)
		_, err := svc.GetPage(ctx)
		assert.ErrorIs(t, err, ErrStoreUnavailable)
	})

	t.Run("get issues", func(t *testing.T) {
		t.Parallel()
		svc := NewTrackingService(newFailingBackend(t), nil)
		_, err := svc.GetIssues(ctx)
		assert.ErrorIs(t, err, ErrStoreUnavailable)
	})

	t.Run("set flag", func(t *testing.T) {
		t.Parallel()
		svc := NewTrackingService(newFailingBackend(t), nil)
		_, err := svc.SetFlag(ctx, WithOrderNumber("ORD-1"), WithFlagged(true))
		assert.ErrorIs(t, err, ErrStoreUnavailable)
	})
}
