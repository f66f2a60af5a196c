package market

import (
	"context"

	"github.com/shopspring/decimal"
)

// QueryStore defines analytical queries over stored stock days.
// This interface abstracts storage-specific query implementations.
type QueryStore interface {
	// HighestVolume returns the record with the largest traded volume
	// among records matching the filter
	HighestVolume(ctx context.Context, filter QueryFilter) (*StockDay, error)

	// AverageClose returns the mean close price over records matching the filter
	AverageClose(ctx context.Context, filter QueryFilter) (decimal.Decimal, error)

	// AverageVWAP returns the mean volume-weighted average price over records
	// matching the filter
	AverageVWAP(ctx context.Context, filter QueryFilter) (decimal.Decimal, error)
}

// AggregateFunc is the common shape of the mean-price queries, letting
// callers treat AverageClose and AverageVWAP uniformly.
type AggregateFunc func(ctx context.Context, filter QueryFilter) (decimal.Decimal, error)
