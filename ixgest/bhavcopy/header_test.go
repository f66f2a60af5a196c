package bhavcopy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestMissingColumns_AllPresent tests that a complete header passes the contract
func TestMissingColumns_AllPresent(t *testing.T) {
	header := []string{
		"Date", "Symbol", "Series", "Prev Close", "Open", "High", "Low",
		"Last", "Close", "VWAP", "Volume", "Turnover", "Trades",
		"Deliverable Volume", "%Deliverble",
	}

	assert.Empty(t, MissingColumns(header))
}

// TestMissingColumns_OrderInsensitive tests that column position never matters
func TestMissingColumns_OrderInsensitive(t *testing.T) {
	header := []string{
		"%Deliverble", "Volume", "Date", "Close", "Symbol", "Turnover",
		"Series", "Trades", "Prev Close", "Deliverable Volume", "Open",
		"High", "VWAP", "Low", "Last",
	}

	assert.Empty(t, MissingColumns(header))
}

// TestMissingColumns_TrimsNames tests that padded header names still match
func TestMissingColumns_TrimsNames(t *testing.T) {
	header := []string{
		" Date ", "Symbol", "Series", "  Prev Close", "Open", "High", "Low",
		"Last", "Close", "VWAP ", "Volume", "Turnover", "Trades",
		"Deliverable Volume", "%Deliverble",
	}

	assert.Empty(t, MissingColumns(header))
}

// TestMissingColumns_ReportsCanonicalOrder tests that absent columns are
// listed in canonical column order, not discovery order
func TestMissingColumns_ReportsCanonicalOrder(t *testing.T) {
	header := []string{
		"Date", "Symbol", "Series", "Prev Close", "Open", "High",
		"Last", "Close", "VWAP", "Volume", "Turnover",
		"Deliverable Volume", "%Deliverble",
	}

	missing := MissingColumns(header)
	assert.Equal(t, []string{"Low", "Trades"}, missing)
}

// TestMissingColumns_ExtrasIgnored tests that unknown columns are not an error
func TestMissingColumns_ExtrasIgnored(t *testing.T) {
	header := append([]string{"ISIN", "Exchange"}, RequiredColumns...)

	assert.Empty(t, MissingColumns(header))
}

// TestMissingColumns_EmptyHeader tests that an empty header misses everything
func TestMissingColumns_EmptyHeader(t *testing.T) {
	missing := MissingColumns(nil)

	assert.Equal(t, RequiredColumns, missing)
	assert.Len(t, missing, 15)
}

// TestColumnIndex tests position lookup with padded names
func TestColumnIndex(t *testing.T) {
	header := []string{" Symbol", "Date ", "Close"}

	index := columnIndex(header)
	assert.Equal(t, 0, index["Symbol"])
	assert.Equal(t, 1, index["Date"])
	assert.Equal(t, 2, index["Close"])
}
