// Package app provides the command line interface for the tracking sync API
// server.
package app

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/trackhouse/trackhouse-sync-server/internal/versions"
)

var rootCmd = &cobra.Command{
	Use:               "trh-sync-api",
	DisableAutoGenTag: true,
	Short:             "Tracking sync API server",
	Long: `trh-sync-api keeps a local cache of warehouse order tracking records in
sync with the order management system and the carrier tracking API, and serves
them over an HTTP API.`,
	Run: func(cmd *cobra.Command, _ []string) {
		// If no subcommand is provided, print help
		if err := cmd.Help(); err != nil {
			slog.Error("Error displaying help", "error", err)
		}
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, _ []string) error {
		format, err := cmd.Flags().GetString("format")
		if err != nil {
			return fmt.Errorf("failed to get format flag: %w", err)
		}

		info := versions.GetVersionInfo()
		if format == "json" {
			out, err := json.MarshalIndent(info, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal version info: %w", err)
			}
			fmt.Println(string(out))
			return nil
		}

		slog.Info("Version information",
			"version", info.Version,
			"commit", info.Commit,
			"build_date", info.BuildDate,
			"go_version", info.GoVersion,
			"platform", info.Platform)
		return nil
	},
}

// NewRootCmd creates a new root command for the tracking sync API.
func NewRootCmd() *cobra.Command {
	// Add persistent flags
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug mode")
	err := viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	if err != nil {
		slog.Error("Error binding debug flag", "error", err)
	}

	// Add version flags
	versionCmd.Flags().String("format", "text", "Output format (text or json)")

	// Add subcommands
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(migrateCmd)

	return rootCmd
}
