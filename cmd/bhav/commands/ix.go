package commands

import (
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/bhav/am"
	"github.com/teranos/bhav/display"
	"github.com/teranos/bhav/errors"
	"github.com/teranos/bhav/internal/httpclient"
	"github.com/teranos/bhav/ixgest"
	"github.com/teranos/bhav/ixgest/bhavcopy"
	"github.com/teranos/bhav/logger"
	"github.com/teranos/bhav/market"
	"github.com/teranos/bhav/storage"
	"github.com/teranos/bhav/sym"
)

// defaultFetchTemplate points at the NSE full-bhavcopy archive, which serves
// plain CSV including the deliverable columns. Tokens expand from the
// requested trading date.
const defaultFetchTemplate = "https://archives.nseindia.com/products/content/sec_bhavdata_full_{dd}{mm}{yyyy}.csv"

// IxCmd represents the ix (ingest) command
var IxCmd = &cobra.Command{
	Use:   "ix",
	Short: sym.IX + " Ingest bhavcopy market data",
	Long: sym.IX + ` ix — Ingest NSE bhavcopy data into bhav

Validate and persist daily bhavcopy CSV files. Every run checks the
column contract, validates each row, and records an audit entry.

Examples:
  bhav ix csv cm01JAN2024bhav.csv        # Ingest a local bhavcopy file
  bhav ix csv data.csv --dry-run         # Validate without persisting
  bhav ix fetch 2024-01-01               # Download and ingest a trading date
  bhav ix ls                             # List recent ingestion runs`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var ixCsvCmd = &cobra.Command{
	Use:   "csv <file>",
	Short: "Validate and ingest a bhavcopy CSV file",
	Long: `Stream a bhavcopy CSV through validation and persistence.

The file must carry the full NSE bhavcopy header. Rows that fail
validation or persistence are reported individually; the rest of the
batch still lands.`,
	Args: cobra.ExactArgs(1),
	RunE: runIxCsv,
}

var ixFetchCmd = &cobra.Command{
	Use:   "fetch <date>",
	Short: "Download and ingest the bhavcopy for a trading date",
	Long: `Download the bhavcopy for a trading date (YYYY-MM-DD) and stream it
through the same validation pipeline as a local file.

The download URL comes from --url-template, with {yyyy}, {mm}, {dd},
and {mon} expanded from the requested date. Requests go through the
hardened HTTP client, so private and loopback addresses are refused.`,
	Args: cobra.ExactArgs(1),
	RunE: runIxFetch,
}

var ixLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List recent ingestion runs",
	RunE:  runIxLs,
}

var (
	ixDBPath       string
	ixWorkers      int
	ixDryRun       bool
	ixURLTemplate  string
	ixFetchTimeout time.Duration
	ixLsLimit      int
)

func init() {
	IxCmd.PersistentFlags().StringVar(&ixDBPath, "db", "", "Database path (overrides config)")

	ixCsvCmd.Flags().IntVar(&ixWorkers, "workers", 0, "Persistence workers (0 = use config)")
	ixCsvCmd.Flags().BoolVar(&ixDryRun, "dry-run", false, "Validate without persisting")

	ixFetchCmd.Flags().IntVar(&ixWorkers, "workers", 0, "Persistence workers (0 = use config)")
	ixFetchCmd.Flags().BoolVar(&ixDryRun, "dry-run", false, "Validate without persisting")
	ixFetchCmd.Flags().StringVar(&ixURLTemplate, "url-template", defaultFetchTemplate, "Download URL template ({yyyy} {mm} {dd} {mon})")
	ixFetchCmd.Flags().DurationVar(&ixFetchTimeout, "timeout", 2*time.Minute, "Download timeout")

	ixLsCmd.Flags().IntVar(&ixLsLimit, "limit", 20, "Number of runs to show")

	IxCmd.AddCommand(ixCsvCmd)
	IxCmd.AddCommand(ixFetchCmd)
	IxCmd.AddCommand(ixLsCmd)
}

func runIxCsv(cmd *cobra.Command, args []string) error {
	filePath := args[0]
	verbosity, _ := cmd.Flags().GetCount("verbose")

	database, err := openDatabase(ixDBPath)
	if err != nil {
		return err
	}
	defer database.Close()

	processor := bhavcopy.NewCSVIxProcessor(database, ixDryRun, resolveWorkers(ixWorkers), verbosity, logger.Logger)
	processor.SetEmitter(newEmitter(cmd, verbosity))

	report, err := processor.ProcessFile(cmd.Context(), filePath)
	if err != nil {
		return errors.Wrapf(err, "failed to ingest %s", filePath)
	}

	return renderReport(cmd, report)
}

func runIxFetch(cmd *cobra.Command, args []string) error {
	date, err := time.Parse(market.DateFormat, args[0])
	if err != nil {
		return errors.Newf("invalid trading date %q (expected YYYY-MM-DD)", args[0])
	}
	verbosity, _ := cmd.Flags().GetCount("verbose")

	fetchURL := expandFetchTemplate(ixURLTemplate, date)
	source := fetchSourceName(fetchURL)

	database, err := openDatabase(ixDBPath)
	if err != nil {
		return err
	}
	defer database.Close()

	if !display.ShouldOutputJSON(cmd) {
		pterm.Printf("%s Downloading %s\n", sym.IX, fetchURL)
	}

	client := httpclient.NewSaferClient(ixFetchTimeout)
	resp, err := client.Get(fetchURL)
	if err != nil {
		return errors.Wrapf(err, "failed to download bhavcopy for %s", args[0])
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.Newf("bhavcopy download for %s returned %s", args[0], resp.Status)
	}

	processor := bhavcopy.NewCSVIxProcessor(database, ixDryRun, resolveWorkers(ixWorkers), verbosity, logger.Logger)
	processor.SetEmitter(newEmitter(cmd, verbosity))

	report, err := processor.ProcessStream(cmd.Context(), resp.Body, source)
	if err != nil {
		return errors.Wrapf(err, "failed to ingest %s", source)
	}

	return renderReport(cmd, report)
}

func runIxLs(cmd *cobra.Command, args []string) error {
	database, err := openDatabase(ixDBPath)
	if err != nil {
		return err
	}
	defer database.Close()

	store := storage.NewSQLStore(database, logger.Logger)
	runs, err := store.RecentRuns(cmd.Context(), ixLsLimit)
	if err != nil {
		return errors.Wrap(err, "failed to list ingestion runs")
	}

	if display.ShouldOutputJSON(cmd) {
		return display.OutputJSON(runs)
	}

	if len(runs) == 0 {
		fmt.Printf("%s No ingestion runs found\n", sym.IX)
		return nil
	}

	fmt.Printf("%s Recent ingestion runs:\n\n", sym.IX)
	fmt.Printf("  %-12s %-20s %-10s %8s %7s  %s\n", "RUN", "FINISHED", "STATUS", "RECORDS", "FAILED", "SOURCE")
	for _, run := range runs {
		fmt.Printf("  %-12s %-20s %-10s %8d %7d  %s\n",
			run.ID,
			run.FinishedAt.Local().Format("2006-01-02 15:04:05"),
			run.Status,
			run.TotalRecords,
			run.FailedRecords,
			truncate(run.Source, 40),
		)
	}

	return nil
}

// newEmitter picks progress output to match the output mode: structured
// events for --json, pterm for humans.
func newEmitter(cmd *cobra.Command, verbosity int) ixgest.ProgressEmitter {
	if display.ShouldOutputJSON(cmd) {
		return ixgest.NewJSONEmitter()
	}
	return ixgest.NewCLIEmitter(verbosity)
}

// renderReport prints the batch report and maps a failed batch to a non-zero
// exit. In JSON mode the report itself is the whole output.
func renderReport(cmd *cobra.Command, report *bhavcopy.BatchReport) error {
	if display.ShouldOutputJSON(cmd) {
		if err := display.OutputJSON(report); err != nil {
			return err
		}
		if report.Failed() {
			return errors.New("ingestion completed with failures")
		}
		return nil
	}

	if report.Failed() {
		pterm.Error.Println(report.Error)
		fmt.Printf("  Total: %d  Succeeded: %d  Failed: %d\n",
			report.TotalRecords, report.SuccessfulRecords, report.FailedRecords)
		for _, reason := range report.FailureReasons {
			fmt.Printf("  - %s\n", reason)
		}
		return errors.New("ingestion completed with failures")
	}

	pterm.Success.Println(report.Message)
	fmt.Printf("  Total: %d  Succeeded: %d  Failed: %d\n",
		report.TotalRecords, report.SuccessfulRecords, report.FailedRecords)
	return nil
}

// resolveWorkers falls back to the configured worker count when the flag is
// unset.
func resolveWorkers(flagWorkers int) int {
	if flagWorkers > 0 {
		return flagWorkers
	}
	if cfg, err := am.Load(); err == nil {
		return cfg.GetIngestConfig().PersistWorkers
	}
	return 4
}

// expandFetchTemplate substitutes date tokens into the download URL template.
func expandFetchTemplate(template string, date time.Time) string {
	return strings.NewReplacer(
		"{yyyy}", date.Format("2006"),
		"{mm}", date.Format("01"),
		"{dd}", date.Format("02"),
		"{mon}", strings.ToUpper(date.Format("Jan")),
	).Replace(template)
}

// fetchSourceName derives the audit source label from the download URL,
// falling back to the raw URL when it does not parse.
func fetchSourceName(fetchURL string) string {
	u, err := url.Parse(fetchURL)
	if err != nil || u.Path == "" || u.Path == "/" {
		return fetchURL
	}
	return path.Base(u.Path)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
