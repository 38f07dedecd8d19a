package sync

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/trackhouse/trackhouse-sync-server/internal/clock"
	"github.com/trackhouse/trackhouse-sync-server/internal/sources"
	sourcemocks "github.com/trackhouse/trackhouse-sync-server/internal/sources/mocks"
	"github.com/trackhouse/trackhouse-sync-server/internal/store"
	"github.com/trackhouse/trackhouse-sync-server/internal/store/memory"
	storemocks "github.com/trackhouse/trackhouse-sync-server/internal/store/mocks"
	"github.com/trackhouse/trackhouse-sync-server/internal/tracking"
)

// syncStart is the frozen time every gate test advances from.
var syncStart = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// managerFixture wires a real in-memory store to mocked upstream sources.
// The source mocks carry no default expectations, so any upstream call a
// test did not announce fails it.
type managerFixture struct {
	backend *memory.Store
	orders  *sourcemocks.MockOrderSource
	carrier *sourcemocks.MockCarrierSource
	clk     *clock.Fake
	manager Manager
}

func newFixture(t *testing.T) *managerFixture {
	t.Helper()

	ctrl := gomock.NewController(t)
	f := &managerFixture{
		backend: memory.New(),
		orders:  sourcemocks.NewMockOrderSource(ctrl),
		carrier: sourcemocks.NewMockCarrierSource(ctrl),
		clk:     clock.NewFake(syncStart),
	}
	f.manager = NewDefaultSyncManager(f.backend, f.orders, f.carrier, DefaultCooldown, WithClock(f.clk))
	return f
}

func seedRecord(t *testing.T, backend store.Backend, orderNumber, trackingNumber string) {
	t.Helper()

	_, err := backend.Records().BulkUpsertOrders(context.Background(), []tracking.Record{{
		OrderNumber:    orderNumber,
		TrackingNumber: trackingNumber,
		Status:         "Shipped",
		UPSStatus:      tracking.CarrierStatusPending,
		LastUpdated:    syncStart.UnixMilli(),
	}})
	require.NoError(t, err)
}

func TestNewDefaultSyncManager(t *testing.T) {
	t.Parallel()

	manager := NewDefaultSyncManager(memory.New(), nil, nil, 0)

	require.NotNil(t, manager)
	impl, ok := manager.(*defaultSyncManager)
	require.True(t, ok)
	assert.Equal(t, DefaultCooldown, impl.cooldown)
	assert.NotNil(t, impl.clk)
}

func TestRequestBulkSync_FirstSync(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	f.orders.EXPECT().FetchOrders(gomock.Any()).Return([]sources.Order{
		{
			OrderNumber:    "ORD-1",
			TrackingNumber: "1Z111",
			Status:         "Shipped",
			ShipmentCost:   5,
			InsuranceCost:  1.5,
		},
		{OrderNumber: "ORD-2", Status: "Awaiting Shipment"},
	}, nil)

	result, syncErr := f.manager.RequestBulkSync(ctx)

	require.Nil(t, syncErr)
	assert.Equal(t, StatusOK, result.Status)
	assert.Equal(t, 2, result.RecordsWritten)
	assert.False(t, result.Skipped())

	nowMs := syncStart.UnixMilli()

	rec, err := f.backend.Records().GetByOrderNumber(ctx, "ORD-1")
	require.NoError(t, err)
	assert.Equal(t, tracking.CarrierStatusPending, rec.UPSStatus)
	assert.InDelta(t, 6.5, rec.LabelCost, 0.0001)
	assert.Equal(t, nowMs, rec.LastUpdated)
	assert.False(t, rec.Delivered)
	assert.False(t, rec.Flagged)

	meta, err := f.backend.SyncMeta().Get(ctx, tracking.SourceOrders)
	require.NoError(t, err)
	assert.Equal(t, nowMs, meta.LastSync)
}

func TestRequestBulkSync_CooldownGate(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	// Exactly two upstream calls are allowed across the whole test.
	f.orders.EXPECT().FetchOrders(gomock.Any()).
		Return([]sources.Order{{OrderNumber: "ORD-1"}}, nil).
		Times(2)

	first, syncErr := f.manager.RequestBulkSync(ctx)
	require.Nil(t, syncErr)
	require.Equal(t, StatusOK, first.Status)

	// Immediately again: skipped with the full window remaining.
	second, syncErr := f.manager.RequestBulkSync(ctx)
	require.Nil(t, syncErr)
	assert.True(t, second.Skipped())
	assert.Equal(t, 30, second.NextSyncIn)

	// Partial minutes round up so callers never retry early.
	f.clk.Advance(30 * time.Second)
	third, syncErr := f.manager.RequestBulkSync(ctx)
	require.Nil(t, syncErr)
	assert.True(t, third.Skipped())
	assert.Equal(t, 30, third.NextSyncIn)

	f.clk.Advance(28*time.Minute + 30*time.Second)
	fourth, syncErr := f.manager.RequestBulkSync(ctx)
	require.Nil(t, syncErr)
	assert.True(t, fourth.Skipped())
	assert.Equal(t, 1, fourth.NextSyncIn)

	// Sync metadata still reports the first sync.
	meta, err := f.backend.SyncMeta().Get(ctx, tracking.SourceOrders)
	require.NoError(t, err)
	assert.Equal(t, syncStart.UnixMilli(), meta.LastSync)

	// At the boundary the gate reopens.
	f.clk.Advance(time.Minute)
	fifth, syncErr := f.manager.RequestBulkSync(ctx)
	require.Nil(t, syncErr)
	assert.Equal(t, StatusOK, fifth.Status)
}

func TestRequestBulkSync_PreservesCarrierAndOperatorState(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	f.orders.EXPECT().FetchOrders(gomock.Any()).Return([]sources.Order{
		{OrderNumber: "ORD-1", TrackingNumber: "1Z111", CustomerEmail: "old@example.com", Status: "Shipped"},
	}, nil)

	_, syncErr := f.manager.RequestBulkSync(ctx)
	require.Nil(t, syncErr)

	// A carrier update and an operator flag land between syncs.
	_, err := f.backend.Records().UpdateCarrierState(ctx, "1Z111", tracking.CarrierUpdate{
		UPSStatus:   "In Transit",
		Location:    "Louisville, KY",
		LastUpdated: f.clk.Now().UnixMilli() + 1000,
	})
	require.NoError(t, err)
	require.NoError(t, f.backend.Records().SetFlag(ctx, "ORD-1", true, f.clk.Now().UnixMilli()+2000))

	f.clk.Advance(31 * time.Minute)
	f.orders.EXPECT().FetchOrders(gomock.Any()).Return([]sources.Order{
		{OrderNumber: "ORD-1", TrackingNumber: "1Z111", CustomerEmail: "new@example.com", Status: "Shipped"},
	}, nil)

	_, syncErr = f.manager.RequestBulkSync(ctx)
	require.Nil(t, syncErr)

	rec, err := f.backend.Records().GetByOrderNumber(ctx, "ORD-1")
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", rec.CustomerEmail)
	assert.Equal(t, "In Transit", rec.UPSStatus)
	assert.Equal(t, "Louisville, KY", rec.Location)
	assert.True(t, rec.Flagged)
	assert.Equal(t, f.clk.Now().UnixMilli(), rec.LastUpdated)
}

func TestRequestBulkSync_UpstreamFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	gomock.InOrder(
		f.orders.EXPECT().FetchOrders(gomock.Any()).Return(nil, fmt.Errorf("connection refused")),
		f.orders.EXPECT().FetchOrders(gomock.Any()).Return([]sources.Order{{OrderNumber: "ORD-1"}}, nil),
	)

	_, syncErr := f.manager.RequestBulkSync(ctx)
	require.NotNil(t, syncErr)
	assert.Equal(t, ReasonFetchFailed, syncErr.Reason)
	assert.Contains(t, syncErr.Message, "Order fetch failed")
	assert.ErrorContains(t, syncErr.Unwrap(), "connection refused")

	// Sync metadata was not advanced, so the retry goes straight through.
	_, err := f.backend.SyncMeta().Get(ctx, tracking.SourceOrders)
	assert.ErrorIs(t, err, store.ErrNotFound)

	result, syncErr := f.manager.RequestBulkSync(ctx)
	require.Nil(t, syncErr)
	assert.Equal(t, StatusOK, result.Status)
}

func TestRequestBulkSync_StorageFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		setup func(records *storemocks.MockRecordStore, syncMeta *storemocks.MockSyncMetaStore)
	}{
		{
			name: "upsert fails",
			setup: func(records *storemocks.MockRecordStore, syncMeta *storemocks.MockSyncMetaStore) {
				syncMeta.EXPECT().Get(gomock.Any(), tracking.SourceOrders).Return(nil, store.ErrNotFound)
				records.EXPECT().BulkUpsertOrders(gomock.Any(), gomock.Any()).
					Return(0, fmt.Errorf("connection reset"))
			},
		},
		{
			name: "metadata write fails",
			setup: func(records *storemocks.MockRecordStore, syncMeta *storemocks.MockSyncMetaStore) {
				syncMeta.EXPECT().Get(gomock.Any(), tracking.SourceOrders).Return(nil, store.ErrNotFound)
				records.EXPECT().BulkUpsertOrders(gomock.Any(), gomock.Any()).Return(1, nil)
				syncMeta.EXPECT().Set(gomock.Any(), gomock.Any()).Return(fmt.Errorf("connection reset"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			backend := storemocks.NewMockBackend(ctrl)
			records := storemocks.NewMockRecordStore(ctrl)
			syncMeta := storemocks.NewMockSyncMetaStore(ctrl)
			orders := sourcemocks.NewMockOrderSource(ctrl)

			backend.EXPECT().Records().Return(records).AnyTimes()
			backend.EXPECT().SyncMeta().Return(syncMeta).AnyTimes()
			orders.EXPECT().FetchOrders(gomock.Any()).Return([]sources.Order{{OrderNumber: "ORD-1"}}, nil)
			tt.setup(records, syncMeta)

			manager := NewDefaultSyncManager(backend, orders, nil, DefaultCooldown)

			_, syncErr := manager.RequestBulkSync(context.Background())
			require.NotNil(t, syncErr)
			assert.Equal(t, ReasonStorageFailed, syncErr.Reason)
		})
	}
}

func TestRefreshTracking_RequiresTrackingNumber(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	_, syncErr := f.manager.RefreshTracking(context.Background(), "")

	require.NotNil(t, syncErr)
	assert.Equal(t, ReasonValidationFailed, syncErr.Reason)
}

func TestRefreshTracking_DeliveredIsTerminal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		update tracking.CarrierUpdate
	}{
		{
			name:   "delivered flag set",
			update: tracking.CarrierUpdate{UPSStatus: "Delivered", Delivered: true},
		},
		{
			name:   "status text only",
			update: tracking.CarrierUpdate{UPSStatus: "Delivered to front porch", Delivered: false},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t)
			ctx := context.Background()

			seedRecord(t, f.backend, "ORD-1", "1Z111")
			_, err := f.backend.Records().UpdateCarrierState(ctx, "1Z111", tt.update)
			require.NoError(t, err)

			// The carrier mock carries no expectations: a lookup fails the
			// test, no matter how stale the record has become.
			f.clk.Advance(90 * 24 * time.Hour)

			rec, syncErr := f.manager.RefreshTracking(ctx, "1Z111")
			require.Nil(t, syncErr)
			assert.Contains(t, strings.ToLower(rec.UPSStatus), "delivered")
		})
	}
}

func TestRefreshTracking_FreshServedFromCache(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	seedRecord(t, f.backend, "ORD-1", "1Z111")

	// 29 minutes in: still inside the window, no carrier call.
	f.clk.Advance(29 * time.Minute)
	rec, syncErr := f.manager.RefreshTracking(ctx, "1Z111")
	require.Nil(t, syncErr)
	assert.Equal(t, tracking.CarrierStatusPending, rec.UPSStatus)
	assert.Equal(t, "ORD-1", rec.OrderNumber)

	// Past the window the carrier is consulted and the merge is written back.
	f.clk.Advance(2 * time.Minute)
	f.carrier.EXPECT().Track(gomock.Any(), "1Z111").Return(&sources.TrackingInfo{
		TrackingNumber:   "1Z111",
		Status:           "In Transit",
		Location:         "Louisville, KY",
		ExpectedDelivery: "2025-06-03",
		Delivered:        false,
	}, nil)

	rec, syncErr = f.manager.RefreshTracking(ctx, "1Z111")
	require.Nil(t, syncErr)
	assert.Equal(t, "In Transit", rec.UPSStatus)
	assert.Equal(t, "Louisville, KY", rec.Location)
	assert.Equal(t, f.clk.Now().UnixMilli(), rec.LastUpdated)

	stored, err := f.backend.Records().GetByOrderNumber(ctx, "ORD-1")
	require.NoError(t, err)
	assert.Equal(t, "In Transit", stored.UPSStatus)
}

func TestRefreshTracking_MergesAllRecordsOnSharedShipment(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	seedRecord(t, f.backend, "ORD-1", "1Z111")
	seedRecord(t, f.backend, "ORD-2", "1Z111")
	seedRecord(t, f.backend, "ORD-3", "1Z333")

	f.clk.Advance(31 * time.Minute)
	f.carrier.EXPECT().Track(gomock.Any(), "1Z111").Return(&sources.TrackingInfo{
		TrackingNumber: "1Z111",
		Status:         "Out for Delivery",
		Delivered:      false,
	}, nil)

	rec, syncErr := f.manager.RefreshTracking(ctx, "1Z111")
	require.Nil(t, syncErr)
	assert.Equal(t, "Out for Delivery", rec.UPSStatus)
	assert.NotEmpty(t, rec.OrderNumber)

	for _, orderNumber := range []string{"ORD-1", "ORD-2"} {
		got, err := f.backend.Records().GetByOrderNumber(ctx, orderNumber)
		require.NoError(t, err)
		assert.Equal(t, "Out for Delivery", got.UPSStatus)
	}

	// The unrelated shipment is untouched.
	other, err := f.backend.Records().GetByOrderNumber(ctx, "ORD-3")
	require.NoError(t, err)
	assert.Equal(t, tracking.CarrierStatusPending, other.UPSStatus)
}

func TestRefreshTracking_UnknownTrackingNumber(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	f.carrier.EXPECT().Track(gomock.Any(), "1Z999").Return(&sources.TrackingInfo{
		TrackingNumber: "1Z999",
		Status:         "Label Created",
		Delivered:      false,
	}, nil)

	rec, syncErr := f.manager.RefreshTracking(ctx, "1Z999")
	require.Nil(t, syncErr)
	assert.Equal(t, "1Z999", rec.TrackingNumber)
	assert.Equal(t, "Label Created", rec.UPSStatus)
	assert.Empty(t, rec.OrderNumber)

	// The ad-hoc lookup left the store untouched.
	records, err := f.backend.Records().List(ctx, store.ListQuery{})
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestRefreshTracking_CarrierFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	seedRecord(t, f.backend, "ORD-1", "1Z111")
	f.clk.Advance(31 * time.Minute)
	f.carrier.EXPECT().Track(gomock.Any(), "1Z111").Return(nil, fmt.Errorf("upstream timeout"))

	_, syncErr := f.manager.RefreshTracking(ctx, "1Z111")
	require.NotNil(t, syncErr)
	assert.Equal(t, ReasonFetchFailed, syncErr.Reason)

	// The cached record is unchanged.
	rec, err := f.backend.Records().GetByOrderNumber(ctx, "ORD-1")
	require.NoError(t, err)
	assert.Equal(t, tracking.CarrierStatusPending, rec.UPSStatus)
	assert.Equal(t, syncStart.UnixMilli(), rec.LastUpdated)
}

func TestError_Unwrap(t *testing.T) {
	t.Parallel()

	cause := fmt.Errorf("boom")
	syncErr := &Error{Err: cause, Message: "Order fetch failed: boom", Reason: ReasonFetchFailed}

	assert.Equal(t, "Order fetch failed: boom", syncErr.Error())
	assert.ErrorIs(t, syncErr, cause)
}
