// Package sync implements the cooldown gates that stand between the HTTP
// surface and the two expensive upstream sources.
//
// # Core Interface
//
//   - Manager: owns both gates; every upstream call in the system goes
//     through one of its two operations
//
// # Bulk Sync Gate
//
// Manager.RequestBulkSync refreshes the full order list. The gate reads the
// order source's sync metadata and skips the upstream call entirely while
// the cooldown window (default 30 minutes) is still running, reporting the
// minutes until it reopens. When the gate is open, returned orders are
// merge-upserted: order-level fields are written, carrier and operator state
// on existing records is preserved. The sync metadata only advances after
// the whole operation succeeds, so a failed sync retries immediately.
//
// # Per-Record Freshness Gate
//
// Manager.RefreshTracking serves a single shipment. Delivered shipments are
// terminal and never reach the carrier source again; shipments updated
// within the cooldown are served from cache. Only a stale, undelivered
// shipment triggers a carrier call, and the result is merged onto every
// record sharing the tracking number. Unknown tracking numbers still return
// the fresh carrier response without touching the store.
//
// Both gates share the same cooldown duration but spend it independently.
// The check-then-act read on the gate state is deliberately lock-free: two
// concurrent requests inside one cooldown boundary can both pass, and the
// resulting duplicate upstream calls are idempotent upserts.
//
// # Result Types
//
//   - BulkResult: outcome of a bulk sync (status, records written, or
//     minutes until the gate reopens)
//   - Error: structured error with a machine-readable Reason the API layer
//     maps onto a status code
//
// # Coordinator Package
//
// The sync/coordinator subpackage runs RequestBulkSync on a jittered
// interval in the background. It reuses the same gate, so scheduled and
// manual syncs draw from one cooldown budget.
package sync
