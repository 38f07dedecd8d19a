// Package db contains code for connecting to the database.
package db

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/trackhouse/trackhouse-sync-server/internal/config"
	"github.com/trackhouse/trackhouse-sync-server/internal/db/awsauth"
)

const (
	defaultMaxConns        = 25
	defaultMinConns        = 5
	defaultConnMaxLifetime = 5 * time.Minute
)

// NewConnectionPool creates a pgx connection pool from the provided
// configuration. For the aws-iam auth method a fresh RDS IAM token is
// resolved before each new connection, since tokens expire after 15 minutes.
func NewConnectionPool(ctx context.Context, cfg *config.DatabaseConfig) (*pgxpool.Pool, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database configuration is required")
	}

	connStr, err := connectionString(ctx, cfg)
	if err != nil {
		return nil, err
	}

	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database connection string: %w", err)
	}

	poolConfig.MaxConns = defaultMaxConns
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}
	poolConfig.MinConns = defaultMinConns
	if cfg.MinConns > 0 {
		poolConfig.MinConns = cfg.MinConns
	}
	poolConfig.MaxConnLifetime = defaultConnMaxLifetime
	if cfg.ConnMaxLifetime != "" {
		lifetime, err := time.ParseDuration(cfg.ConnMaxLifetime)
		if err != nil {
			return nil, fmt.Errorf("failed to parse connMaxLifetime: %w", err)
		}
		poolConfig.MaxConnLifetime = lifetime
	}

	if cfg.GetAuthMethod() == config.AuthMethodAWSIAM {
		beforeConnect, err := awsauth.PgxBeforeConnect(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to configure RDS IAM auth: %w", err)
		}
		poolConfig.BeforeConnect = beforeConnect
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create database connection pool: %w", err)
	}

	slog.InfoContext(ctx, "Database connection pool created",
		"host", cfg.Host,
		"port", cfg.Port,
		"database", cfg.Database,
	)
	return pool, nil
}

// MigrationConnectionString builds a connection string for the migration
// tooling, which opens its own connections. For aws-iam auth the token is
// embedded directly since no connect hook is available there.
func MigrationConnectionString(ctx context.Context, cfg *config.DatabaseConfig) (string, error) {
	if cfg == nil {
		return "", fmt.Errorf("database configuration is required")
	}
	return connectionString(ctx, cfg)
}

func connectionString(ctx context.Context, cfg *config.DatabaseConfig) (string, error) {
	if cfg.GetAuthMethod() == config.AuthMethodAWSIAM {
		token, err := awsauth.NewToken(ctx, cfg)
		if err != nil {
			return "", fmt.Errorf("failed to resolve RDS IAM token: %w", err)
		}
		return cfg.ConnectionStringWithPassword(token), nil
	}
	return cfg.GetConnectionString()
}
