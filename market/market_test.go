package market

import (
	"testing"
	"time"
)

func TestTradeDateUsesCanonicalFormat(t *testing.T) {
	day := &StockDay{
		Symbol: "RELIANCE",
		Date:   time.Date(2024, time.March, 7, 15, 30, 0, 0, time.UTC),
	}

	if got := day.TradeDate(); got != "2024-03-07" {
		t.Errorf("TradeDate() = %q, want %q", got, "2024-03-07")
	}

	// The canonical form must parse back under the same layout, since query
	// filters and storage both key on it.
	if _, err := time.Parse(DateFormat, day.TradeDate()); err != nil {
		t.Errorf("TradeDate() %q does not parse under DateFormat: %v", day.TradeDate(), err)
	}
}
