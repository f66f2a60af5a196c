// Package market defines the canonical domain types for equity trading data.
package market

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateFormat is the canonical form for trading dates, used for storage
// and for query filters.
const DateFormat = "2006-01-02"

// StockDay is one symbol's trading record for a single day, as published
// in an exchange bhavcopy. Price fields are exact decimals; volume fields
// are integer counts.
type StockDay struct {
	Date              time.Time       `json:"date"`
	Symbol            string          `json:"symbol"`
	Series            string          `json:"series"`
	PrevClose         decimal.Decimal `json:"prev_close"`
	Open              decimal.Decimal `json:"open"`
	High              decimal.Decimal `json:"high"`
	Low               decimal.Decimal `json:"low"`
	Last              decimal.Decimal `json:"last"`
	Close             decimal.Decimal `json:"close"`
	VWAP              decimal.Decimal `json:"vwap"`
	Volume            int64           `json:"volume"`
	Trades            int64           `json:"trades"`
	DeliverableVolume int64           `json:"deliverable_volume"`
	PctDeliverable    decimal.Decimal `json:"pct_deliverable"`
}

// TradeDate returns the trading date in canonical form.
func (d *StockDay) TradeDate() string {
	return d.Date.Format(DateFormat)
}

// QueryFilter narrows aggregate queries. Zero values mean "no constraint":
// an empty Symbol matches all symbols, zero From/To leave the range open.
type QueryFilter struct {
	Symbol string
	From   time.Time
	To     time.Time
}
