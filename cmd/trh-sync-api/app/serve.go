package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/trackhouse/trackhouse-sync-server/database"
	syncapp "github.com/trackhouse/trackhouse-sync-server/internal/app"
	"github.com/trackhouse/trackhouse-sync-server/internal/config"
	"github.com/trackhouse/trackhouse-sync-server/internal/db"
	"github.com/trackhouse/trackhouse-sync-server/internal/logger"
	"github.com/trackhouse/trackhouse-sync-server/internal/telemetry"
)

const defaultGracefulTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the tracking sync API server",
	Long: `Start the tracking sync API server.
The server loads order records from the configured order source, refreshes
tracking state from the carrier API and serves the merged records over HTTP.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("address", ":8080", "Address to listen on")
	serveCmd.Flags().String("config", "", "Path to configuration file (YAML format, required)")

	err := viper.BindPFlag("address", serveCmd.Flags().Lookup("address"))
	if err != nil {
		logger.Fatalf("Failed to bind address flag: %v", err)
	}
	err = viper.BindPFlag("config", serveCmd.Flags().Lookup("config"))
	if err != nil {
		logger.Fatalf("Failed to bind config flag: %v", err)
	}

	if err := serveCmd.MarkFlagRequired("config"); err != nil {
		logger.Fatalf("Failed to mark config flag as required: %v", err)
	}
}

func runServe(_ *cobra.Command, _ []string) error {
	ctx := context.Background()
	address := viper.GetString("address")

	logger.Infof("Starting tracking sync API server on %s", address)

	configPath := viper.GetString("config")
	cfg, err := config.LoadConfig(config.WithConfigPath(configPath))
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger.Infof("Loaded configuration from %s (storage: %s, orders: %s)",
		configPath, cfg.GetStorageType(), cfg.Sources.Orders.GetOrderSourceType())

	if cfg.Database != nil && cfg.Database.MigrateOnStart {
		if err := applyStartupMigrations(ctx, cfg.Database); err != nil {
			return fmt.Errorf("failed to apply startup migrations: %w", err)
		}
	}

	tel, err := telemetry.New(ctx, telemetry.WithTelemetryConfig(cfg.Telemetry))
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultGracefulTimeout)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			logger.Errorf("Failed to shut down telemetry: %v", err)
		}
	}()

	appOpts := []syncapp.SyncAppOptions{
		syncapp.WithConfig(cfg),
		syncapp.WithAddress(address),
	}
	if cfg.Telemetry != nil && cfg.Telemetry.Enabled {
		appOpts = append(appOpts,
			syncapp.WithMeterProvider(tel.MeterProvider()),
			syncapp.WithTracerProvider(tel.TracerProvider()),
		)
	}

	application, err := syncapp.NewSyncApp(ctx, appOpts...)
	if err != nil {
		return fmt.Errorf("failed to build application: %w", err)
	}

	// Start server in a goroutine so we can wait on signals
	errChan := make(chan error, 1)
	go func() {
		errChan <- application.Start()
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		if err != nil {
			return err
		}
	case sig := <-quit:
		logger.Infof("Received signal %s, shutting down", sig)
		if err := application.Stop(defaultGracefulTimeout); err != nil {
			return err
		}
	}

	return nil
}

// applyStartupMigrations brings the database schema up to date before the
// server starts serving requests.
func applyStartupMigrations(ctx context.Context, dbCfg *config.DatabaseConfig) error {
	connString, err := db.MigrationConnectionString(ctx, dbCfg)
	if err != nil {
		return fmt.Errorf("failed to build migration connection string: %w", err)
	}

	m, err := database.NewFromConnectionString(connString)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	defer func() {
		_, _ = m.Close()
	}()

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Info("Database schema is up to date")
			return nil
		}
		return err
	}

	version, dirty, err := m.Version()
	if err != nil {
		logger.Warnf("Unable to read migration version: %v", err)
		return nil
	}
	if dirty {
		logger.Warnf("Database is in a dirty state at version %d", version)
		return nil
	}
	logger.Infof("Migrations applied, schema version is now %d", version)
	return nil
}
