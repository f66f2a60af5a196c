package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/teranos/bhav/cmd/bhav/commands"
	"github.com/teranos/bhav/logger"
)

var rootCmd = &cobra.Command{
	Use:   "bhav",
	Short: "bhav - NSE bhavcopy ingestion and market data service",
	Long: `bhav - NSE bhavcopy ingestion, validation, and market data queries.

Ingest daily bhavcopy CSV files into SQLite with full row validation,
audit every batch, and serve uploads, market queries, and live ingestion
progress over HTTP.

Available commands:
  am     - Manage bhav configuration ("I am")
  ix     - Ingest bhavcopy market data
  db     - Manage bhav database operations
  server - Start the ingestion and market data server

Examples:
  bhav ix csv cm01JAN2024bhav.csv # Validate and ingest a bhavcopy file
  bhav ix fetch 2024-01-01        # Download and ingest a trading date
  bhav ix ls                      # List recent ingestion runs
  bhav db stats                   # Show database statistics
  bhav server                     # Start the HTTP server
  bhav am show                    # Show current configuration`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Initialize the global logger before any command runs. Verbosity
		// gates the zap level so plain runs stay quiet.
		verbosity, _ := cmd.Flags().GetCount("verbose")
		jsonLogs, _ := cmd.Flags().GetBool("json")
		if err := logger.InitializeAtLevel(jsonLogs, logger.VerbosityToLevel(verbosity)); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv, -vvv)")
	rootCmd.PersistentFlags().Bool("json", false, "Machine-readable JSON output")

	rootCmd.AddCommand(commands.AmCmd)
	rootCmd.AddCommand(commands.DbCmd)
	rootCmd.AddCommand(commands.IxCmd)
	rootCmd.AddCommand(commands.ServerCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
