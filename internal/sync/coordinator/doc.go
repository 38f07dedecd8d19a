// Package coordinator provides the background scheduling loop for bulk
// order syncs.
//
// The package sits on top of sync.Manager and owns only the timing:
//
//   - Background scheduling using time.Ticker with a jittered interval
//   - Initial sync attempt on startup
//   - Graceful shutdown
//
// # Sync Decision Flow
//
// 1. Ticker fires (configured interval plus random jitter)
// 2. Coordinator calls Manager.RequestBulkSync()
// 3. The manager's cooldown gate decides whether the upstream is called
// 4. Skips and failures are logged; the loop carries on
//
// The cooldown gate lives in the manager, not here, so manual syncs
// triggered through the API and the background loop draw on the same
// budget.
//
// # Error Handling
//
//   - Failed syncs are logged; the coordinator keeps running
//   - The next attempt happens on the next ticker interval
//   - No retry beyond the regular schedule
package coordinator
