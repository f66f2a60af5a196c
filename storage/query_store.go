package storage

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/teranos/bhav/errors"
	"github.com/teranos/bhav/market"
)

const stockDaySelectQuery = `
	SELECT trade_date, symbol, series, prev_close, open, high, low, last, close, vwap, volume, trades, deliverable_volume, pct_deliverable
	FROM stock_days`

// SQLQueryStore answers market queries from the stock_days table.
type SQLQueryStore struct {
	db *sql.DB
}

// NewSQLQueryStore creates a new SQL-backed query store
func NewSQLQueryStore(db *sql.DB) *SQLQueryStore {
	return &SQLQueryStore{db: db}
}

// filterSQL renders the WHERE clause for a query filter. Zero-value fields
// contribute no constraint.
func filterSQL(filter market.QueryFilter) (string, []interface{}) {
	var whereClauses []string
	var args []interface{}

	if filter.Symbol != "" {
		whereClauses = append(whereClauses, "symbol = ?")
		args = append(args, filter.Symbol)
	}
	if !filter.From.IsZero() {
		whereClauses = append(whereClauses, "trade_date >= ?")
		args = append(args, filter.From.Format(market.DateFormat))
	}
	if !filter.To.IsZero() {
		whereClauses = append(whereClauses, "trade_date <= ?")
		args = append(args, filter.To.Format(market.DateFormat))
	}

	if len(whereClauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(whereClauses, " AND "), args
}

// HighestVolume returns the single record with the largest traded volume
// among records matching the filter. Ties break toward the most recent date.
func (s *SQLQueryStore) HighestVolume(ctx context.Context, filter market.QueryFilter) (*market.StockDay, error) {
	where, args := filterSQL(filter)
	query := stockDaySelectQuery + where + " ORDER BY volume DESC, trade_date DESC LIMIT 1"

	day, err := scanStockDay(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.NewNotFoundError("no records match query")
		}
		return nil, errors.Wrap(err, "query highest volume")
	}

	return day, nil
}

// AverageClose returns the mean close price over records matching the filter.
func (s *SQLQueryStore) AverageClose(ctx context.Context, filter market.QueryFilter) (decimal.Decimal, error) {
	return s.average(ctx, "close", filter)
}

// AverageVWAP returns the mean VWAP over records matching the filter.
func (s *SQLQueryStore) AverageVWAP(ctx context.Context, filter market.QueryFilter) (decimal.Decimal, error) {
	return s.average(ctx, "vwap", filter)
}

// average computes the mean of one price column. Prices are stored as TEXT
// to keep ingested values exact, so the aggregate casts to REAL.
func (s *SQLQueryStore) average(ctx context.Context, column string, filter market.QueryFilter) (decimal.Decimal, error) {
	where, args := filterSQL(filter)
	query := "SELECT AVG(CAST(" + column + " AS REAL)) FROM stock_days" + where

	var avg sql.NullFloat64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&avg); err != nil {
		return decimal.Zero, errors.Wrapf(err, "query average %s", column)
	}
	if !avg.Valid {
		return decimal.Zero, errors.NewNotFoundError("no records match query")
	}

	return decimal.NewFromFloat(avg.Float64), nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanStockDay(row rowScanner) (*market.StockDay, error) {
	var (
		tradeDate, symbol, series                                          string
		prevClose, open, high, low, last, closePrice, vwap, pctDeliverable string
		volume, trades, deliverableVolume                                  int64
	)
	if err := row.Scan(
		&tradeDate,
		&symbol,
		&series,
		&prevClose,
		&open,
		&high,
		&low,
		&last,
		&closePrice,
		&vwap,
		&volume,
		&trades,
		&deliverableVolume,
		&pctDeliverable,
	); err != nil {
		return nil, err
	}

	date, err := time.Parse(market.DateFormat, tradeDate)
	if err != nil {
		return nil, errors.Wrapf(err, "parse stored trade date %q", tradeDate)
	}

	day := &market.StockDay{
		Date:              date,
		Symbol:            symbol,
		Series:            series,
		Volume:            volume,
		Trades:            trades,
		DeliverableVolume: deliverableVolume,
	}

	for _, f := range []struct {
		name string
		raw  string
		dst  *decimal.Decimal
	}{
		{"prev_close", prevClose, &day.PrevClose},
		{"open", open, &day.Open},
		{"high", high, &day.High},
		{"low", low, &day.Low},
		{"last", last, &day.Last},
		{"close", closePrice, &day.Close},
		{"vwap", vwap, &day.VWAP},
		{"pct_deliverable", pctDeliverable, &day.PctDeliverable},
	} {
		d, err := decimal.NewFromString(f.raw)
		if err != nil {
			return nil, errors.Wrapf(err, "parse stored %s %q", f.name, f.raw)
		}
		*f.dst = d
	}

	return day, nil
}

// Compile-time interface check
var _ market.QueryStore = (*SQLQueryStore)(nil)
