// Package integration provides integration tests for the tracking sync API
// server. These tests validate the complete server lifecycle including both
// order source types (File, API), the carrier refresh path, and the sync
// cooldown gates.
package integration
