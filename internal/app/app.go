// Package app provides application lifecycle management for the sync server.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/trackhouse/trackhouse-sync-server/internal/config"
	"github.com/trackhouse/trackhouse-sync-server/internal/logger"
)

// SyncApp encapsulates all components needed to run the tracking sync server
// It provides lifecycle management and graceful shutdown capabilities
type SyncApp struct {
	config     *config.Config
	components *AppComponents
	httpServer *http.Server

	// ownsBackend is false when the backend was injected; injected backends
	// are closed by their owner, not by Stop
	ownsBackend bool

	// Lifecycle management
	ctx        context.Context
	cancelFunc context.CancelFunc
}

// Start starts the application components (HTTP server and background sync)
// This method blocks until the HTTP server stops or encounters an error
func (app *SyncApp) Start() error {
	// Start sync coordinator in background
	if app.components.SyncCoordinator != nil {
		go func() {
			if err := app.components.SyncCoordinator.Start(app.ctx); err != nil {
				logger.Errorf("Sync coordinator failed: %v", err)
			}
		}()
	}

	// Start HTTP server (blocks until stopped)
	logger.Infof("Server listening on %s", app.httpServer.Addr)
	if err := app.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server failed: %w", err)
	}

	return nil
}

// Stop gracefully stops the application with the given timeout
// It stops the sync coordinator, closes the annotation hub so websocket
// subscribers end their read loops, and then shuts down the HTTP server
func (app *SyncApp) Stop(timeout time.Duration) error {
	logger.Info("Shutting down server...")

	// Stop sync coordinator first
	if app.components.SyncCoordinator != nil {
		if err := app.components.SyncCoordinator.Stop(); err != nil {
			logger.Errorf("Failed to stop sync coordinator: %v", err)
		}
	}

	// Closing the hub closes every subscriber channel, which ends the
	// subscribe handlers and releases their connections before the drain
	if app.components.Hub != nil {
		app.components.Hub.Close()
	}

	// Cancel the application context
	if app.cancelFunc != nil {
		app.cancelFunc()
	}

	// Graceful HTTP server shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := app.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	// Release the store only after in-flight requests have drained
	if app.ownsBackend && app.components.Backend != nil {
		app.components.Backend.Close()
	}

	logger.Info("Server shutdown complete")
	return nil
}

// GetConfig returns the application configuration
func (app *SyncApp) GetConfig() *config.Config {
	return app.config
}

// GetHTTPServer returns the HTTP server (useful for testing to get the actual port)
func (app *SyncApp) GetHTTPServer() *http.Server {
	return app.httpServer
}
