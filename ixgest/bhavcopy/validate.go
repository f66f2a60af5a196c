package bhavcopy

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/teranos/bhav/market"
)

// dateLayouts are the accepted trading-date forms, checked in order.
// The first layout that parses wins, so a string valid under two layouts
// resolves deterministically.
var dateLayouts = []string{
	"2006-01-02", // ISO
	"01/02/2006", // MM/DD/YYYY
	"02-01-2006", // DD-MM-YYYY
}

// parseDate matches raw against the accepted layouts. time.Parse rejects
// out-of-range components (no Feb 30 rollover), which is what we want.
func parseDate(raw string) (time.Time, bool) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// parseDecimal accepts any finite decimal. decimal.NewFromString has no
// NaN or infinity forms, so every accepted value is finite by construction.
func parseDecimal(raw string) (decimal.Decimal, bool) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

// parseCount accepts base-10 integers for volume-like fields.
func parseCount(raw string) (int64, bool) {
	value := strings.TrimSpace(raw)
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// ValidateRow checks every validated field of one data row independently
// (no short-circuit, so a row reports all of its failures at once) and
// either returns the normalized record or the full reason list. Reasons
// carry the 1-based data row number; within a row they follow canonical
// column order. Symbol and series are copied verbatim.
func ValidateRow(row map[string]string, rowNum int) (*market.StockDay, []string) {
	var reasons []string

	day := &market.StockDay{
		Symbol: row[ColSymbol],
		Series: row[ColSeries],
	}

	if t, ok := parseDate(row[ColDate]); ok {
		day.Date = t
	} else {
		reasons = append(reasons, fmt.Sprintf("Invalid date format in row %d", rowNum))
	}

	for _, f := range []struct {
		column string
		target *decimal.Decimal
	}{
		{ColPrevClose, &day.PrevClose},
		{ColOpen, &day.Open},
		{ColHigh, &day.High},
		{ColLow, &day.Low},
		{ColLast, &day.Last},
		{ColClose, &day.Close},
		{ColVWAP, &day.VWAP},
	} {
		if d, ok := parseDecimal(row[f.column]); ok {
			*f.target = d
		} else {
			reasons = append(reasons, fmt.Sprintf("Invalid number in field '%s' in row %d", f.column, rowNum))
		}
	}

	for _, f := range []struct {
		column string
		target *int64
	}{
		{ColVolume, &day.Volume},
		{ColTrades, &day.Trades},
		{ColDeliverableVolume, &day.DeliverableVolume},
	} {
		if n, ok := parseCount(row[f.column]); ok {
			*f.target = n
		} else {
			reasons = append(reasons, fmt.Sprintf("Invalid number in field '%s' in row %d", f.column, rowNum))
		}
	}

	if d, ok := parseDecimal(row[ColPctDeliverable]); ok {
		day.PctDeliverable = d
	} else {
		reasons = append(reasons, fmt.Sprintf("Invalid number in field '%s' in row %d", ColPctDeliverable, rowNum))
	}

	if len(reasons) > 0 {
		return nil, reasons
	}
	return day, nil
}
