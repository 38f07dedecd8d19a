package app

import (
	"github.com/trackhouse/trackhouse-sync-server/internal/annotations"
	"github.com/trackhouse/trackhouse-sync-server/internal/service"
	"github.com/trackhouse/trackhouse-sync-server/internal/store"
	"github.com/trackhouse/trackhouse-sync-server/internal/sync/coordinator"
)

// AppComponents groups all application components
//
//nolint:revive // This name is fine
type AppComponents struct {
	// SyncCoordinator manages background synchronization. Nil when background
	// sync is disabled in the configuration.
	SyncCoordinator coordinator.Coordinator

	// TrackingService provides the list, issues, and flag operations
	TrackingService service.TrackingService

	// Backend is the record store backing every component
	Backend store.Backend

	// Hub fans annotation change events out to websocket subscribers
	Hub annotations.Hub
}
