package bhavcopy

// NSE bhavcopy CSV ingestion: stream, validate, persist, report.

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teranos/bhav/errors"
	"github.com/teranos/bhav/ixgest"
	"github.com/teranos/bhav/market"
	"github.com/teranos/bhav/storage"
	"github.com/teranos/bhav/sym"
)

// RecordStore is the persistence sink the pipeline hands validated records
// to, one at a time. A failed save is isolated to its record: the pipeline
// folds it into the failure accounting and keeps going.
type RecordStore interface {
	SaveStockDay(ctx context.Context, day *market.StockDay) error
}

// RunRecorder persists the audit record of a completed ingestion run.
type RunRecorder interface {
	RecordRun(ctx context.Context, run *storage.RunRecord) error
}

// CSVIxProcessor drives the validate-then-persist pipeline over one bhavcopy
// stream per call. Counters and reason sets are per-call state, so a single
// processor can serve many uploads.
type CSVIxProcessor struct {
	store     RecordStore
	runs      RunRecorder
	dryRun    bool
	workers   int
	verbosity int
	logger    *zap.SugaredLogger
	emitter   ixgest.ProgressEmitter
}

// persistJob carries one accepted record to the worker pool along with the
// 1-based data row it came from, for failure attribution.
type persistJob struct {
	row int
	day *market.StockDay
}

// NewCSVIxProcessor creates a bhavcopy processor backed by the SQL store.
func NewCSVIxProcessor(db *sql.DB, dryRun bool, workers int, verbosity int, logger *zap.SugaredLogger) *CSVIxProcessor {
	st := storage.NewSQLStore(db, logger)
	p := NewCSVIxProcessorWithStore(st, dryRun, workers, verbosity, logger)
	p.runs = st
	return p
}

// NewCSVIxProcessorWithStore creates a processor with an injected record
// store. Run auditing is disabled unless SetRunRecorder is called.
func NewCSVIxProcessorWithStore(store RecordStore, dryRun bool, workers int, verbosity int, logger *zap.SugaredLogger) *CSVIxProcessor {
	if workers < 1 {
		workers = 1
	}
	return &CSVIxProcessor{
		store:     store,
		dryRun:    dryRun,
		workers:   workers,
		verbosity: verbosity,
		logger:    logger,
	}
}

// SetEmitter attaches a progress emitter for CLI or JSON progress output.
func (p *CSVIxProcessor) SetEmitter(emitter ixgest.ProgressEmitter) {
	p.emitter = emitter
}

// SetRunRecorder attaches an audit sink for completed runs.
func (p *CSVIxProcessor) SetRunRecorder(runs RunRecorder) {
	p.runs = runs
}

// ProcessFile ingests a bhavcopy from disk. The file handle is released on
// every exit path.
func (p *CSVIxProcessor) ProcessFile(ctx context.Context, path string) (*BatchReport, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open bhavcopy %s", path)
	}
	defer f.Close()

	return p.ProcessStream(ctx, f, filepath.Base(path))
}

// ProcessStream runs the full pipeline over one CSV stream: header contract
// check, per-row validation, concurrent persistence, and a single BatchReport.
//
// Outcomes:
//   - clean run            -> report with Message set, nil error
//   - validation/persist   -> report with Error set, nil error
//   - missing columns      -> report with Error set, nil error (row counts zeroed)
//   - unreadable stream    -> nil report, non-nil error
//
// The report is not produced until every in-flight persistence call has
// resolved; successfulRecords is recomputed from total - failed at the end
// rather than trusting incremental tallies.
func (p *CSVIxProcessor) ProcessStream(ctx context.Context, r io.Reader, source string) (*BatchReport, error) {
	runID := "r_" + uuid.NewString()[:8]
	start := time.Now()

	p.logger.Infow("Ingesting bhavcopy",
		"symbol", sym.IX,
		"run_id", runID,
		"file", source,
		"dry_run", p.dryRun,
	)
	p.emitStage("parse", fmt.Sprintf("Streaming rows from %s", source))

	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	// Header contract first: a bad header voids the batch, so no row gets
	// validated or persisted when columns are missing. An empty stream is
	// reported the same way, with every required column missing.
	header, err := reader.Read()
	if err == io.EOF {
		report := missingColumnsReport(RequiredColumns)
		p.finishRun(ctx, runID, source, start, report)
		return report, nil
	}
	if err != nil {
		p.failRun(ctx, runID, source, start, err)
		return nil, errors.Wrap(err, "read header")
	}

	if missing := MissingColumns(header); len(missing) > 0 {
		p.logger.Warnw("Bhavcopy header incomplete",
			"run_id", runID,
			"file", source,
			"missing", missing,
		)
		report := missingColumnsReport(missing)
		p.finishRun(ctx, runID, source, start, report)
		return report, nil
	}

	index := columnIndex(header)

	// Persistence worker pool. Validation stays on the reading goroutine so
	// row numbering follows input order; only saves fan out.
	var (
		jobs            chan persistJob
		wg              sync.WaitGroup
		mu              sync.Mutex
		persistFailures = make(map[int]string)
	)
	if !p.dryRun {
		jobs = make(chan persistJob)
		for i := 0; i < p.workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for job := range jobs {
					if err := p.store.SaveStockDay(ctx, job.day); err != nil {
						mu.Lock()
						persistFailures[job.row] = err.Error()
						mu.Unlock()
						p.logger.Debugw("Record save failed",
							"run_id", runID,
							"row", job.row,
							"ticker", job.day.Symbol,
							"error", err,
						)
					}
				}
			}()
		}
	}

	// barrier waits for every submitted save to resolve. Finalizing before
	// the pool drains would report counts that are still moving.
	barrier := func() {
		if jobs != nil {
			close(jobs)
			wg.Wait()
		}
	}

	progressInterval := p.progressInterval()
	total := 0
	validationFailures := make(map[int][]string)

	for {
		if err := ctx.Err(); err != nil {
			barrier()
			p.failRun(ctx, runID, source, start, err)
			return nil, errors.Wrap(err, "ingestion canceled")
		}

		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Structural failure: a row we cannot even parse aborts the
			// batch, but only after in-flight saves resolve.
			barrier()
			p.emitError("parse", err)
			p.failRun(ctx, runID, source, start, err)
			return nil, errors.Wrapf(err, "read row %d", total+1)
		}

		total++
		row := make(map[string]string, len(index))
		for name, i := range index {
			if i < len(record) {
				row[name] = record[i]
			}
		}

		day, reasons := ValidateRow(row, total)
		if reasons != nil {
			validationFailures[total] = reasons
			continue
		}

		if !p.dryRun {
			jobs <- persistJob{row: total, day: day}
		}

		if total%progressInterval == 0 {
			p.emitProgress(total, map[string]interface{}{"type": "rows"})
		}
	}

	barrier()

	// A row is either rejected by validation or submitted for persistence,
	// never both, so the two failure maps are disjoint by row.
	failed := len(validationFailures) + len(persistFailures)
	reasons := newReasonSet()
	for row := 1; row <= total; row++ {
		for _, reason := range validationFailures[row] {
			reasons.add(reason)
		}
		if msg, ok := persistFailures[row]; ok {
			reasons.add(fmt.Sprintf("Error saving record in row %d: %s", row, msg))
		}
	}

	var report *BatchReport
	if reasons.empty() {
		report = successReport(total)
	} else {
		report = failureReport(total, failed, reasons.list())
	}

	p.logger.Infow("Ingestion complete",
		"symbol", sym.IX,
		"run_id", runID,
		"file", source,
		"rows", total,
		"failed", failed,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	p.emitComplete(map[string]interface{}{
		"total":     report.TotalRecords,
		"failed":    report.FailedRecords,
		"succeeded": report.SuccessfulRecords,
	})

	p.finishRun(ctx, runID, source, start, report)
	return report, nil
}

// progressInterval adapts progress emission to verbosity, mirroring how
// noisy each level is expected to be.
func (p *CSVIxProcessor) progressInterval() int {
	switch {
	case p.verbosity >= 3:
		return 100
	case p.verbosity == 2:
		return 500
	case p.verbosity == 1:
		return 1000
	default:
		return 5000
	}
}

// finishRun records the audit row for a completed run. Audit failures are
// logged, never surfaced: the report already belongs to the caller.
func (p *CSVIxProcessor) finishRun(ctx context.Context, runID, source string, start time.Time, report *BatchReport) {
	if p.runs == nil || p.dryRun {
		return
	}

	status := storage.RunSucceeded
	if report.Failed() {
		status = storage.RunFailed
	}
	run := &storage.RunRecord{
		ID:                runID,
		Source:            source,
		Status:            status,
		TotalRecords:      report.TotalRecords,
		FailedRecords:     report.FailedRecords,
		SuccessfulRecords: report.SuccessfulRecords,
		Error:             report.Error,
		FailureReasons:    report.FailureReasons,
		StartedAt:         start,
		FinishedAt:        time.Now(),
	}
	if err := p.runs.RecordRun(ctx, run); err != nil {
		p.logger.Warnw("Failed to record ingestion run",
			"run_id", runID,
			"error", err,
		)
	}
}

// failRun audits a run that died on a structural read error.
func (p *CSVIxProcessor) failRun(ctx context.Context, runID, source string, start time.Time, cause error) {
	if p.runs == nil || p.dryRun {
		return
	}

	run := &storage.RunRecord{
		ID:         runID,
		Source:     source,
		Status:     storage.RunFailed,
		Error:      cause.Error(),
		StartedAt:  start,
		FinishedAt: time.Now(),
	}
	if err := p.runs.RecordRun(ctx, run); err != nil {
		p.logger.Warnw("Failed to record ingestion run",
			"run_id", runID,
			"error", err,
		)
	}
}

func (p *CSVIxProcessor) emitStage(stage, message string) {
	if p.emitter != nil {
		p.emitter.EmitStage(stage, message)
	}
}

func (p *CSVIxProcessor) emitProgress(count int, metadata map[string]interface{}) {
	if p.emitter != nil {
		p.emitter.EmitProgress(count, metadata)
	}
}

func (p *CSVIxProcessor) emitComplete(summary map[string]interface{}) {
	if p.emitter != nil {
		p.emitter.EmitComplete(summary)
	}
}

func (p *CSVIxProcessor) emitError(stage string, err error) {
	if p.emitter != nil {
		p.emitter.EmitError(stage, err)
	}
}
