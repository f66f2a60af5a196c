// Package storage provides SQLite-backed persistence for market data and
// ingestion run audit records.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/teranos/bhav/errors"
	"github.com/teranos/bhav/market"
)

// Run status values recorded in ingest_runs.
const (
	RunSucceeded = "succeeded"
	RunFailed    = "failed"
)

// maxStoredReasons caps the failure_reasons JSON persisted per run. The full
// list still goes back to the caller; the audit row keeps a bounded sample.
const maxStoredReasons = 100

// Query constants
const (
	StockDayInsertQuery = `
		INSERT INTO stock_days (trade_date, symbol, series, prev_close, open, high, low, last, close, vwap, volume, trades, deliverable_volume, pct_deliverable)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	RunInsertQuery = `
		INSERT INTO ingest_runs (id, source, status, total_records, failed_records, successful_records, error, failure_reasons, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	RecentRunsQuery = `
		SELECT id, source, status, total_records, failed_records, successful_records, error, failure_reasons, started_at, finished_at
		FROM ingest_runs
		ORDER BY started_at DESC
		LIMIT ?`
)

// RunRecord is the audit entry for one ingestion run.
type RunRecord struct {
	ID                string    `json:"id"`
	Source            string    `json:"source"`
	Status            string    `json:"status"`
	TotalRecords      int       `json:"total_records"`
	FailedRecords     int       `json:"failed_records"`
	SuccessfulRecords int       `json:"successful_records"`
	Error             string    `json:"error,omitempty"`
	FailureReasons    []string  `json:"failure_reasons,omitempty"`
	StartedAt         time.Time `json:"started_at"`
	FinishedAt        time.Time `json:"finished_at"`
}

// SQLStore persists stock days and run audit records to SQLite.
type SQLStore struct {
	db     *sql.DB
	logger *zap.SugaredLogger
}

// NewSQLStore creates a new SQL-backed market data store
func NewSQLStore(db *sql.DB, logger *zap.SugaredLogger) *SQLStore {
	return &SQLStore{
		db:     db,
		logger: logger,
	}
}

// SaveStockDay inserts one trading record. The stock_days unique constraint
// on (symbol, series, trade_date) makes re-ingesting the same day fail per
// record rather than silently duplicating it.
func (s *SQLStore) SaveStockDay(ctx context.Context, day *market.StockDay) error {
	_, err := s.db.ExecContext(
		ctx,
		StockDayInsertQuery,
		day.TradeDate(),
		day.Symbol,
		day.Series,
		day.PrevClose.String(),
		day.Open.String(),
		day.High.String(),
		day.Low.String(),
		day.Last.String(),
		day.Close.String(),
		day.VWAP.String(),
		day.Volume,
		day.Trades,
		day.DeliverableVolume,
		day.PctDeliverable.String(),
	)
	if err != nil {
		return errors.Wrapf(err, "insert stock day %s/%s %s", day.Symbol, day.Series, day.TradeDate())
	}

	return nil
}

// RecordRun inserts the audit row for a completed ingestion run.
func (s *SQLStore) RecordRun(ctx context.Context, run *RunRecord) error {
	reasons := run.FailureReasons
	if len(reasons) > maxStoredReasons {
		reasons = reasons[:maxStoredReasons]
	}

	var reasonsJSON sql.NullString
	if len(reasons) > 0 {
		data, err := json.Marshal(reasons)
		if err != nil {
			return errors.Wrap(err, "marshal failure reasons")
		}
		reasonsJSON = sql.NullString{String: string(data), Valid: true}
	}

	var errText sql.NullString
	if run.Error != "" {
		errText = sql.NullString{String: run.Error, Valid: true}
	}

	_, err := s.db.ExecContext(
		ctx,
		RunInsertQuery,
		run.ID,
		run.Source,
		run.Status,
		run.TotalRecords,
		run.FailedRecords,
		run.SuccessfulRecords,
		errText,
		reasonsJSON,
		run.StartedAt.UTC(),
		run.FinishedAt.UTC(),
	)
	if err != nil {
		return errors.Wrapf(err, "insert ingest run %s", run.ID)
	}

	if s.logger != nil {
		s.logger.Debugw("Recorded ingest run",
			"run_id", run.ID,
			"status", run.Status,
			"total", run.TotalRecords,
			"failed", run.FailedRecords,
		)
	}

	return nil
}

// RecentRuns returns the newest runs first, up to limit.
func (s *SQLStore) RecentRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, RecentRunsQuery, limit)
	if err != nil {
		return nil, errors.Wrap(err, "query recent runs")
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var (
			run         RunRecord
			errText     sql.NullString
			reasonsJSON sql.NullString
		)
		if err := rows.Scan(
			&run.ID,
			&run.Source,
			&run.Status,
			&run.TotalRecords,
			&run.FailedRecords,
			&run.SuccessfulRecords,
			&errText,
			&reasonsJSON,
			&run.StartedAt,
			&run.FinishedAt,
		); err != nil {
			return nil, errors.Wrap(err, "scan ingest run")
		}

		run.Error = errText.String
		if reasonsJSON.Valid {
			if err := json.Unmarshal([]byte(reasonsJSON.String), &run.FailureReasons); err != nil {
				return nil, errors.Wrapf(err, "parse failure reasons for run %s", run.ID)
			}
		}

		runs = append(runs, run)
	}

	return runs, rows.Err()
}
