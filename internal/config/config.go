// Package config provides configuration loading and management for the sync server.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/trackhouse/trackhouse-sync-server/internal/telemetry"
	"github.com/trackhouse/trackhouse-sync-server/internal/versions"
)

// EnvPrefix is the prefix for environment variables read by the server
const EnvPrefix = "TRH"

const (
	// StorageTypeDatabase stores records in PostgreSQL
	StorageTypeDatabase = "database"

	// StorageTypeMemory stores records in process memory
	StorageTypeMemory = "memory"
)

const (
	// OrderSourceTypeAPI fetches the order list from an HTTP endpoint
	OrderSourceTypeAPI = "api"

	// OrderSourceTypeFile reads the order list from a local JSON file
	OrderSourceTypeFile = "file"
)

const (
	// AuthMethodPassword authenticates to the database with a static password
	AuthMethodPassword = "password"

	// AuthMethodAWSIAM authenticates to the database with AWS RDS IAM tokens
	AuthMethodAWSIAM = "aws-iam"
)

// SupportedSchemaVersion is the newest configuration schema version this
// binary understands. Configs declaring a newer schema are rejected.
const SupportedSchemaVersion = "1.0.0"

const (
	defaultCooldown         = 30 * time.Minute
	defaultSourcesTimeout   = 30 * time.Second
	defaultAutoSyncInterval = 45 * time.Minute
	defaultIssuesScanWindow = 150
)

// Option defines the interface for configuration options
type Option func(*loaderConfig) error

// loaderConfig defines the configuration for loading a configuration
type loaderConfig struct {
	path string
}

// WithConfigPath loads configuration from a YAML file
func WithConfigPath(path string) Option {
	return func(cfg *loaderConfig) error {
		if path == "" {
			return fmt.Errorf("path is required")
		}

		// Resolve symlinks to prevent symlink attacks.
		// Note that this calls filepath.Clean internally.
		realPath, err := filepath.EvalSymlinks(path)
		if err != nil {
			return fmt.Errorf("failed to evaluate symlinks: %w", err)
		}

		// Validate the path to prevent path traversal attacks
		if !filepath.IsAbs(realPath) {
			if !filepath.IsLocal(realPath) {
				return fmt.Errorf("path is not local or contains invalid traversal: %s", path)
			}
		}

		cfg.path = realPath
		return nil
	}
}

// Config represents the root configuration structure
type Config struct {
	// SchemaVersion declares which configuration schema the file follows.
	// Defaults to the supported version when omitted.
	SchemaVersion string `yaml:"schemaVersion,omitempty"`

	Storage   StorageConfig     `yaml:"storage,omitempty"`
	Database  *DatabaseConfig   `yaml:"database,omitempty"`
	Sources   SourcesConfig     `yaml:"sources"`
	Sync      SyncConfig        `yaml:"sync,omitempty"`
	Telemetry *telemetry.Config `yaml:"telemetry,omitempty"`
}

// StorageConfig selects the record store backend
type StorageConfig struct {
	// Type is either "database" or "memory". Defaults to "database" when a
	// database section is present, "memory" otherwise.
	Type string `yaml:"type,omitempty"`
}

// SourcesConfig defines the upstream order and carrier sources
type SourcesConfig struct {
	Orders  OrderSourceConfig   `yaml:"orders"`
	Carrier CarrierSourceConfig `yaml:"carrier"`

	// Timeout bounds every upstream call (e.g., "30s"). Defaults to 30s.
	Timeout string `yaml:"timeout,omitempty"`
}

// OrderSourceConfig defines the order-management source.
// Exactly one of API or File must be set.
type OrderSourceConfig struct {
	API  *APIConfig  `yaml:"api,omitempty"`
	File *FileConfig `yaml:"file,omitempty"`
}

// CarrierSourceConfig defines the carrier tracking source
type CarrierSourceConfig struct {
	API *APIConfig `yaml:"api"`
}

// APIConfig defines an HTTP source endpoint
type APIConfig struct {
	// Endpoint is the base URL of the source API (without path)
	Endpoint string `yaml:"endpoint"`
}

// FileConfig defines a local file source
type FileConfig struct {
	// Path is the path to the orders JSON file on the local filesystem
	Path string `yaml:"path"`
}

// SyncConfig defines the cooldown gates and background sync behavior
type SyncConfig struct {
	// Cooldown is the freshness window shared by the bulk sync gate and the
	// per-record freshness gate (e.g., "30m"). Defaults to 30m.
	Cooldown string `yaml:"cooldown,omitempty"`

	// IssuesScanWindow is how many recent records the issues view scans for
	// error statuses. Defaults to 150.
	IssuesScanWindow int `yaml:"issuesScanWindow,omitempty"`

	// AutoSync enables the background sync coordinator
	AutoSync *AutoSyncConfig `yaml:"autoSync,omitempty"`
}

// AutoSyncConfig defines background bulk sync scheduling
type AutoSyncConfig struct {
	Enabled bool `yaml:"enabled"`

	// Interval between background sync attempts (e.g., "45m").
	// Defaults to 45m and may not be shorter than the cooldown.
	Interval string `yaml:"interval,omitempty"`
}

// DatabaseConfig defines database connection settings
type DatabaseConfig struct {
	// Host is the database server hostname or IP address
	Host string `yaml:"host"`

	// Port is the database server port
	Port int `yaml:"port"`

	// User is the database username
	User string `yaml:"user"`

	// PasswordFile is the path to a file containing the database password
	// This is the recommended approach for production deployments
	// The file should contain only the password with optional trailing whitespace
	PasswordFile string `yaml:"passwordFile,omitempty"`

	// Database is the database name
	Database string `yaml:"database"`

	// SSLMode is the SSL mode for the connection (disable, require, verify-ca, verify-full)
	SSLMode string `yaml:"sslMode,omitempty"`

	// AuthMethod selects how the connection authenticates: "password"
	// (default) or "aws-iam" for RDS IAM tokens
	AuthMethod string `yaml:"authMethod,omitempty"`

	// AWSRegion is the RDS region used for IAM token generation.
	// "detect" resolves the region from instance metadata.
	AWSRegion string `yaml:"awsRegion,omitempty"`

	// MaxConns is the maximum number of connections in the pool
	MaxConns int32 `yaml:"maxConns,omitempty"`

	// MinConns is the minimum number of idle connections in the pool
	MinConns int32 `yaml:"minConns,omitempty"`

	// ConnMaxLifetime is the maximum lifetime of a connection (e.g., "1h", "30m")
	ConnMaxLifetime string `yaml:"connMaxLifetime,omitempty"`

	// MigrateOnStart applies pending migrations when the server starts
	MigrateOnStart bool `yaml:"migrateOnStart,omitempty"`
}

// GetPassword returns the database password using the following priority:
// 1. Read from PasswordFile if specified
// 2. Read from TRH_DATABASE_PASSWORD environment variable
//
// The password from file will have leading/trailing whitespace trimmed.
func (d *DatabaseConfig) GetPassword() (string, error) {
	// Priority 1: Read from file if specified
	if d.PasswordFile != "" {
		// Use filepath.Clean to prevent path traversal attacks
		cleanPath := filepath.Clean(d.PasswordFile)

		data, err := os.ReadFile(cleanPath)
		if err != nil {
			return "", fmt.Errorf("failed to read password from file %s: %w", d.PasswordFile, err)
		}

		// Trim whitespace (including newlines) from file content
		password := strings.TrimSpace(string(data))
		return password, nil
	}

	// Priority 2: Check environment variable
	if envPassword := os.Getenv("TRH_DATABASE_PASSWORD"); envPassword != "" {
		return envPassword, nil
	}

	return "", fmt.Errorf(
		"no database password configured: set passwordFile or TRH_DATABASE_PASSWORD environment variable",
	)
}

// GetAuthMethod returns the configured auth method, defaulting to password
func (d *DatabaseConfig) GetAuthMethod() string {
	if d.AuthMethod == "" {
		return AuthMethodPassword
	}
	return d.AuthMethod
}

// GetConnectionString builds a PostgreSQL connection string with proper password handling.
// The password is URL-escaped to handle special characters safely.
func (d *DatabaseConfig) GetConnectionString() (string, error) {
	password, err := d.GetPassword()
	if err != nil {
		return "", err
	}
	return d.ConnectionStringWithPassword(password), nil
}

// ConnectionStringWithPassword builds a PostgreSQL connection string using the
// given password instead of the configured one. This is how short-lived auth
// tokens are embedded for tooling that opens its own connections.
func (d *DatabaseConfig) ConnectionStringWithPassword(password string) string {
	sslMode := d.SSLMode
	if sslMode == "" {
		sslMode = "require"
	}

	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User,
		url.QueryEscape(password),
		d.Host,
		d.Port,
		d.Database,
		sslMode,
	)
}

// LoadConfig loads and parses configuration from a YAML file
func LoadConfig(opts ...Option) (*Config, error) {
	loaderCfg := &loaderConfig{}
	for _, opt := range opts {
		if err := opt(loaderCfg); err != nil {
			return nil, err
		}
	}

	// As of now, this is required because there's no other options to load
	// configuration. Once we add more options, we can remove this check.
	if loaderCfg.path == "" {
		return nil, fmt.Errorf("path is required")
	}

	// Read the entire file into memory
	data, err := os.ReadFile(loaderCfg.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse YAML content
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	// Validate the config
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// GetStorageType returns the configured storage backend, inferring it from
// the presence of the database section when unset.
func (c *Config) GetStorageType() string {
	if c.Storage.Type != "" {
		return c.Storage.Type
	}
	if c.Database != nil {
		return StorageTypeDatabase
	}
	return StorageTypeMemory
}

// GetCooldown returns the freshness window for both gates
func (c *Config) GetCooldown() time.Duration {
	if c.Sync.Cooldown == "" {
		return defaultCooldown
	}
	d, err := time.ParseDuration(c.Sync.Cooldown)
	if err != nil {
		return defaultCooldown
	}
	return d
}

// GetIssuesScanWindow returns the issues view recency window
func (c *Config) GetIssuesScanWindow() int {
	if c.Sync.IssuesScanWindow <= 0 {
		return defaultIssuesScanWindow
	}
	return c.Sync.IssuesScanWindow
}

// GetSourcesTimeout returns the per-call bound for upstream requests
func (c *Config) GetSourcesTimeout() time.Duration {
	return c.Sources.GetTimeout()
}

// GetTimeout returns the per-call bound for upstream requests
func (s *SourcesConfig) GetTimeout() time.Duration {
	if s.Timeout == "" {
		return defaultSourcesTimeout
	}
	d, err := time.ParseDuration(s.Timeout)
	if err != nil {
		return defaultSourcesTimeout
	}
	return d
}

// GetAutoSyncInterval returns the background sync interval
func (c *Config) GetAutoSyncInterval() time.Duration {
	if c.Sync.AutoSync == nil || c.Sync.AutoSync.Interval == "" {
		return defaultAutoSyncInterval
	}
	d, err := time.ParseDuration(c.Sync.AutoSync.Interval)
	if err != nil {
		return defaultAutoSyncInterval
	}
	return d
}

// AutoSyncEnabled reports whether the background coordinator should run
func (c *Config) AutoSyncEnabled() bool {
	return c.Sync.AutoSync != nil && c.Sync.AutoSync.Enabled
}

// GetOrderSourceType returns the inferred type of the order source config
func (o *OrderSourceConfig) GetOrderSourceType() string {
	if o.API != nil {
		return OrderSourceTypeAPI
	}
	if o.File != nil {
		return OrderSourceTypeFile
	}
	return ""
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c == nil {
		return fmt.Errorf("config cannot be nil")
	}

	if err := c.validateSchemaVersion(); err != nil {
		return err
	}

	if err := c.validateStorage(); err != nil {
		return err
	}

	if err := c.validateSources(); err != nil {
		return err
	}

	if err := c.validateSync(); err != nil {
		return err
	}

	if c.Telemetry != nil {
		if err := c.Telemetry.Validate(); err != nil {
			return fmt.Errorf("telemetry: %w", err)
		}
	}

	return nil
}

// validateSchemaVersion rejects configs written for a newer schema
func (c *Config) validateSchemaVersion() error {
	if c.SchemaVersion == "" {
		return nil
	}
	if versions.IsNewerVersion(c.SchemaVersion, SupportedSchemaVersion) {
		return fmt.Errorf(
			"schemaVersion %s is newer than the supported version %s; upgrade the server",
			c.SchemaVersion, SupportedSchemaVersion,
		)
	}
	return nil
}

// validateStorage validates the storage backend selection
func (c *Config) validateStorage() error {
	switch c.GetStorageType() {
	case StorageTypeDatabase:
		if c.Database == nil {
			return fmt.Errorf("storage.type is %s but no database configuration is present", StorageTypeDatabase)
		}
		return c.validateDatabase()
	case StorageTypeMemory:
		return nil
	default:
		return fmt.Errorf("storage.type must be either %s or %s, got %s",
			StorageTypeDatabase, StorageTypeMemory, c.Storage.Type)
	}
}

// validateDatabase validates database connection settings
func (c *Config) validateDatabase() error {
	d := c.Database
	if d.Host == "" {
		return fmt.Errorf("database.host is required")
	}
	if d.Port == 0 {
		return fmt.Errorf("database.port is required")
	}
	if d.User == "" {
		return fmt.Errorf("database.user is required")
	}
	if d.Database == "" {
		return fmt.Errorf("database.database is required")
	}
	switch d.GetAuthMethod() {
	case AuthMethodPassword, AuthMethodAWSIAM:
	default:
		return fmt.Errorf("database.authMethod must be either %s or %s, got %s",
			AuthMethodPassword, AuthMethodAWSIAM, d.AuthMethod)
	}
	if d.ConnMaxLifetime != "" {
		if _, err := time.ParseDuration(d.ConnMaxLifetime); err != nil {
			return fmt.Errorf("database.connMaxLifetime must be a valid duration (e.g., '1h', '30m'): %w", err)
		}
	}
	return nil
}

// validateSources validates the upstream source configuration
func (c *Config) validateSources() error {
	orders := c.Sources.Orders
	configCount := 0
	if orders.API != nil {
		configCount++
	}
	if orders.File != nil {
		configCount++
	}
	if configCount == 0 {
		return fmt.Errorf("sources.orders: one of api or file configuration must be specified")
	}
	if configCount > 1 {
		return fmt.Errorf("sources.orders: only one of api or file configuration may be specified")
	}
	if orders.API != nil && orders.API.Endpoint == "" {
		return fmt.Errorf("sources.orders.api.endpoint is required")
	}
	if orders.File != nil && orders.File.Path == "" {
		return fmt.Errorf("sources.orders.file.path is required")
	}

	if c.Sources.Carrier.API == nil || c.Sources.Carrier.API.Endpoint == "" {
		return fmt.Errorf("sources.carrier.api.endpoint is required")
	}

	if c.Sources.Timeout != "" {
		if _, err := time.ParseDuration(c.Sources.Timeout); err != nil {
			return fmt.Errorf("sources.timeout must be a valid duration (e.g., '30s'): %w", err)
		}
	}

	return nil
}

// validateSync validates cooldown and auto sync settings
func (c *Config) validateSync() error {
	if c.Sync.Cooldown != "" {
		d, err := time.ParseDuration(c.Sync.Cooldown)
		if err != nil {
			return fmt.Errorf("sync.cooldown must be a valid duration (e.g., '30m'): %w", err)
		}
		if d <= 0 {
			return fmt.Errorf("sync.cooldown must be positive, got %s", c.Sync.Cooldown)
		}
	}

	if c.Sync.IssuesScanWindow < 0 {
		return fmt.Errorf("sync.issuesScanWindow must be positive, got %d", c.Sync.IssuesScanWindow)
	}

	if c.Sync.AutoSync != nil && c.Sync.AutoSync.Interval != "" {
		d, err := time.ParseDuration(c.Sync.AutoSync.Interval)
		if err != nil {
			return fmt.Errorf("sync.autoSync.interval must be a valid duration (e.g., '45m'): %w", err)
		}
		if d < c.GetCooldown() {
			return fmt.Errorf("sync.autoSync.interval (%s) may not be shorter than sync.cooldown (%s)",
				c.Sync.AutoSync.Interval, c.GetCooldown())
		}
	}

	return nil
}
