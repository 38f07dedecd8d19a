// Package awsauth implements database authentication with AWS RDS IAM tokens.
package awsauth

import (
	"context"
	"fmt"
	"net/http"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/ec2/imds"
	"github.com/aws/aws-sdk-go-v2/feature/rds/auth"
	"github.com/jackc/pgx/v5"

	"github.com/trackhouse/trackhouse-sync-server/internal/config"
)

const awsRegionDetect = "detect"

// getRegion resolves the AWS region from the configuration, detecting it
// from IMDS if the region is set to "detect".
func getRegion(ctx context.Context, cfg *config.DatabaseConfig) (string, error) {
	if cfg.AWSRegion == "" {
		return "", fmt.Errorf("AWS region is not configured")
	}

	if cfg.AWSRegion == awsRegionDetect {
		imdsClient := imds.New(imds.Options{
			HTTPClient: &http.Client{
				Timeout: 2 * time.Second,
			},
		})

		regionOut, err := imdsClient.GetRegion(ctx, &imds.GetRegionInput{})
		if err != nil {
			return "", fmt.Errorf("failed to get region from IMDS: %w", err)
		}
		return regionOut.Region, nil
	}

	return cfg.AWSRegion, nil
}

// getToken generates an RDS IAM authentication token for the configured user.
// The token can be used as a password in a PostgreSQL connection string and
// is valid for 15 minutes.
func getToken(ctx context.Context, cfg *config.DatabaseConfig, region string) (string, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return "", fmt.Errorf("failed to load AWS config: %w", err)
	}

	dbEndpoint := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	token, err := auth.BuildAuthToken(ctx, dbEndpoint, region, cfg.User, awsCfg.Credentials)
	if err != nil {
		return "", fmt.Errorf("failed to build authentication token: %w", err)
	}

	return token, nil
}

// NewToken resolves an RDS IAM authentication token. This is useful for
// short-lived connections (e.g., migrations) where a connect hook cannot be
// used.
func NewToken(ctx context.Context, cfg *config.DatabaseConfig) (string, error) {
	if cfg == nil {
		return "", fmt.Errorf("database configuration is required")
	}

	region, err := getRegion(ctx, cfg)
	if err != nil {
		return "", err
	}
	return getToken(ctx, cfg, region)
}

// PgxBeforeConnect returns a pgx connect hook that resolves a fresh IAM token
// before each new connection.
//
// It assumes that the role attached to the workload can be used to
// authenticate with the database. If the region is "detect", it will try to
// automatically detect it from the instance metadata via IMDS.
func PgxBeforeConnect(
	ctx context.Context,
	cfg *config.DatabaseConfig,
) (func(ctx context.Context, connConfig *pgx.ConnConfig) error, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database configuration is required")
	}

	region, err := getRegion(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return func(ctx context.Context, connConfig *pgx.ConnConfig) error {
		token, err := getToken(ctx, cfg, region)
		if err != nil {
			return err
		}

		connConfig.Password = token
		return nil
	}, nil
}
