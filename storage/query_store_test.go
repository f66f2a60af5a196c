package storage

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/teranos/bhav/errors"
	"github.com/teranos/bhav/market"
)

func seedDay(t *testing.T, store *SQLStore, symbol, date string, volume int64, closePrice, vwap string) {
	t.Helper()

	day := testStockDay(symbol, date, volume)
	day.Close = decimal.RequireFromString(closePrice)
	day.VWAP = decimal.RequireFromString(vwap)
	if err := store.SaveStockDay(context.Background(), day); err != nil {
		t.Fatalf("SaveStockDay(%s %s) error: %v", symbol, date, err)
	}
}

// seedMarket loads a small fixture set spanning two symbols and three dates.
func seedMarket(t *testing.T) *SQLQueryStore {
	t.Helper()

	conn := setupStoreDB(t)
	store := NewSQLStore(conn, nil)

	seedDay(t, store, "RELIANCE", "2024-01-01", 1000, "100", "99")
	seedDay(t, store, "RELIANCE", "2024-01-02", 3000, "110", "101")
	seedDay(t, store, "SBIN", "2024-01-01", 2000, "500", "498")
	seedDay(t, store, "SBIN", "2024-01-03", 2000, "510", "502")

	return NewSQLQueryStore(conn)
}

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()

	d, err := time.Parse(market.DateFormat, s)
	if err != nil {
		t.Fatalf("bad test date %q: %v", s, err)
	}
	return d
}

func TestHighestVolume(t *testing.T) {
	queries := seedMarket(t)

	day, err := queries.HighestVolume(context.Background(), market.QueryFilter{})
	if err != nil {
		t.Fatalf("HighestVolume() error: %v", err)
	}

	if day.Symbol != "RELIANCE" {
		t.Errorf("Symbol = %q, want RELIANCE", day.Symbol)
	}
	if day.Volume != 3000 {
		t.Errorf("Volume = %d, want 3000", day.Volume)
	}
	if day.TradeDate() != "2024-01-02" {
		t.Errorf("TradeDate() = %q, want 2024-01-02", day.TradeDate())
	}
	if !day.Close.Equal(decimal.RequireFromString("110")) {
		t.Errorf("Close = %s, want 110", day.Close)
	}
}

func TestHighestVolume_SymbolFilter(t *testing.T) {
	queries := seedMarket(t)

	day, err := queries.HighestVolume(context.Background(), market.QueryFilter{Symbol: "SBIN"})
	if err != nil {
		t.Fatalf("HighestVolume() error: %v", err)
	}

	// Both SBIN rows traded 2000; ties break toward the most recent date
	if day.Symbol != "SBIN" {
		t.Errorf("Symbol = %q, want SBIN", day.Symbol)
	}
	if day.TradeDate() != "2024-01-03" {
		t.Errorf("TradeDate() = %q, want 2024-01-03", day.TradeDate())
	}
}

func TestHighestVolume_DateRange(t *testing.T) {
	queries := seedMarket(t)

	day, err := queries.HighestVolume(context.Background(), market.QueryFilter{
		To: mustDate(t, "2024-01-01"),
	})
	if err != nil {
		t.Fatalf("HighestVolume() error: %v", err)
	}

	if day.Symbol != "SBIN" || day.TradeDate() != "2024-01-01" {
		t.Errorf("Got %s %s, want SBIN 2024-01-01", day.Symbol, day.TradeDate())
	}
}

func TestHighestVolume_NotFound(t *testing.T) {
	queries := seedMarket(t)

	_, err := queries.HighestVolume(context.Background(), market.QueryFilter{Symbol: "ABSENT"})
	if err == nil {
		t.Fatal("HighestVolume() should fail when no records match")
	}
	if !errors.IsNotFoundError(err) {
		t.Errorf("Expected not-found error, got: %v", err)
	}
}

func TestAverageClose(t *testing.T) {
	queries := seedMarket(t)

	avg, err := queries.AverageClose(context.Background(), market.QueryFilter{})
	if err != nil {
		t.Fatalf("AverageClose() error: %v", err)
	}

	// (100 + 110 + 500 + 510) / 4
	if !avg.Equal(decimal.RequireFromString("305")) {
		t.Errorf("AverageClose() = %s, want 305", avg)
	}
}

func TestAverageClose_SymbolFilter(t *testing.T) {
	queries := seedMarket(t)

	avg, err := queries.AverageClose(context.Background(), market.QueryFilter{Symbol: "RELIANCE"})
	if err != nil {
		t.Fatalf("AverageClose() error: %v", err)
	}

	if !avg.Equal(decimal.RequireFromString("105")) {
		t.Errorf("AverageClose(RELIANCE) = %s, want 105", avg)
	}
}

func TestAverageClose_DateRange(t *testing.T) {
	queries := seedMarket(t)

	avg, err := queries.AverageClose(context.Background(), market.QueryFilter{
		From: mustDate(t, "2024-01-02"),
		To:   mustDate(t, "2024-01-02"),
	})
	if err != nil {
		t.Fatalf("AverageClose() error: %v", err)
	}

	if !avg.Equal(decimal.RequireFromString("110")) {
		t.Errorf("AverageClose(2024-01-02) = %s, want 110", avg)
	}
}

func TestAverageClose_NotFound(t *testing.T) {
	queries := seedMarket(t)

	_, err := queries.AverageClose(context.Background(), market.QueryFilter{Symbol: "ABSENT"})
	if !errors.IsNotFoundError(err) {
		t.Errorf("Expected not-found error, got: %v", err)
	}
}

func TestAverageVWAP(t *testing.T) {
	queries := seedMarket(t)

	avg, err := queries.AverageVWAP(context.Background(), market.QueryFilter{Symbol: "RELIANCE"})
	if err != nil {
		t.Fatalf("AverageVWAP() error: %v", err)
	}

	// (99 + 101) / 2
	if !avg.Equal(decimal.RequireFromString("100")) {
		t.Errorf("AverageVWAP(RELIANCE) = %s, want 100", avg)
	}
}

func TestFilterSQL(t *testing.T) {
	tests := []struct {
		name      string
		filter    market.QueryFilter
		wantWhere string
		wantArgs  int
	}{
		{
			name:      "empty filter",
			filter:    market.QueryFilter{},
			wantWhere: "",
			wantArgs:  0,
		},
		{
			name:      "symbol only",
			filter:    market.QueryFilter{Symbol: "SBIN"},
			wantWhere: " WHERE symbol = ?",
			wantArgs:  1,
		},
		{
			name:      "from only",
			filter:    market.QueryFilter{From: mustDate(t, "2024-01-01")},
			wantWhere: " WHERE trade_date >= ?",
			wantArgs:  1,
		},
		{
			name: "all constraints",
			filter: market.QueryFilter{
				Symbol: "SBIN",
				From:   mustDate(t, "2024-01-01"),
				To:     mustDate(t, "2024-06-30"),
			},
			wantWhere: " WHERE symbol = ? AND trade_date >= ? AND trade_date <= ?",
			wantArgs:  3,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			where, args := filterSQL(tc.filter)
			if where != tc.wantWhere {
				t.Errorf("where = %q, want %q", where, tc.wantWhere)
			}
			if len(args) != tc.wantArgs {
				t.Errorf("len(args) = %d, want %d", len(args), tc.wantArgs)
			}
		})
	}
}
