package commands

import (
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teranos/bhav/errors"
	"github.com/teranos/bhav/sym"
)

// DbCmd represents the db (database) command
var DbCmd = &cobra.Command{
	Use:   "db",
	Short: sym.DB + " Manage bhav database",
	Long: sym.DB + ` db — Manage bhav database operations

Manage database operations including migrations and statistics.

Examples:
  bhav db migrate                 # Apply pending schema migrations
  bhav db stats                   # Show database statistics
  bhav db stats --limit 10        # Show last 10 ingestion runs`,
}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	Long:  "Open the configured database and apply any schema migrations that have not yet run",
	RunE:  runDbMigrate,
}

var dbStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show database statistics",
	Long:  "Display record counts, the covered trading-date range, and recent ingestion runs",
	RunE:  runDbStats,
}

var (
	dbPathFlag     string
	statsLimitFlag int
)

func init() {
	DbCmd.PersistentFlags().StringVar(&dbPathFlag, "db", "", "Database path (overrides config)")
	dbStatsCmd.Flags().IntVar(&statsLimitFlag, "limit", 5, "Number of recent ingestion runs to show")

	DbCmd.AddCommand(dbMigrateCmd)
	DbCmd.AddCommand(dbStatsCmd)
}

func runDbMigrate(cmd *cobra.Command, args []string) error {
	path := resolveDBPath(dbPathFlag)

	// openDatabase migrates as part of opening
	database, err := openDatabase(path)
	if err != nil {
		return errors.Wrap(err, "migration failed")
	}
	defer database.Close()

	fmt.Printf("%s Migrations applied: %s\n", sym.DB, path)
	return nil
}

func runDbStats(cmd *cobra.Command, args []string) error {
	path := resolveDBPath(dbPathFlag)

	database, err := openDatabase(path)
	if err != nil {
		return errors.Wrap(err, "failed to open database")
	}
	defer database.Close()

	// Basic record statistics
	var totalRecords, uniqueSymbols int
	var firstDate, lastDate sql.NullString
	err = database.QueryRow(`
		SELECT
			COUNT(*),
			COUNT(DISTINCT symbol),
			MIN(trade_date),
			MAX(trade_date)
		FROM stock_days
	`).Scan(&totalRecords, &uniqueSymbols, &firstDate, &lastDate)
	if err != nil {
		return fmt.Errorf("failed to query record stats: %w", err)
	}

	var totalRuns, failedRuns int
	err = database.QueryRow(`
		SELECT COUNT(*), COUNT(CASE WHEN status = 'failed' THEN 1 END)
		FROM ingest_runs
	`).Scan(&totalRuns, &failedRuns)
	if err != nil {
		return fmt.Errorf("failed to query run stats: %w", err)
	}

	fmt.Printf("%s Database Statistics\n", sym.DB)
	fmt.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")
	fmt.Printf("Database Path:   %s\n", path)
	fmt.Printf("Stock Days:      %d\n", totalRecords)
	fmt.Printf("Unique Symbols:  %d\n", uniqueSymbols)
	if firstDate.Valid && lastDate.Valid {
		fmt.Printf("Date Range:      %s to %s\n", firstDate.String, lastDate.String)
	}
	fmt.Println()
	fmt.Printf("Ingestion Runs:  %d (%d failed)\n", totalRuns, failedRuns)

	// Recent ingestion runs
	rows, err := database.Query(`
		SELECT source, status, total_records, failed_records, finished_at
		FROM ingest_runs
		ORDER BY finished_at DESC
		LIMIT ?
	`, statsLimitFlag)
	if err != nil {
		return fmt.Errorf("failed to query recent runs: %w", err)
	}
	defer rows.Close()

	hasRuns := false
	fmt.Printf("\nRecent Ingestion Runs (last %d):\n", statsLimitFlag)
	fmt.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")

	for rows.Next() {
		hasRuns = true
		var (
			source, status, finishedAt string
			total, failed              int
		)
		if err := rows.Scan(&source, &status, &total, &failed, &finishedAt); err != nil {
			return fmt.Errorf("failed to scan run row: %w", err)
		}

		timestamp := finishedAt
		if len(timestamp) > 19 {
			timestamp = timestamp[:19]
		}
		fmt.Printf("  [%s] %-9s %s: %d records, %d failed\n",
			timestamp, status, source, total, failed)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to read run rows: %w", err)
	}

	if !hasRuns {
		fmt.Println("  No ingestion runs recorded yet")
	}

	return nil
}
