package bhavcopy

import "strings"

// Column names as they appear in an NSE bhavcopy header line. %Deliverble
// carries the exchange's own spelling.
const (
	ColDate              = "Date"
	ColSymbol            = "Symbol"
	ColSeries            = "Series"
	ColPrevClose         = "Prev Close"
	ColOpen              = "Open"
	ColHigh              = "High"
	ColLow               = "Low"
	ColLast              = "Last"
	ColClose             = "Close"
	ColVWAP              = "VWAP"
	ColVolume            = "Volume"
	ColTurnover          = "Turnover"
	ColTrades            = "Trades"
	ColDeliverableVolume = "Deliverable Volume"
	ColPctDeliverable    = "%Deliverble"
)

// RequiredColumns is the full set of columns a bhavcopy header must carry,
// in canonical order. Columns are matched by name, not position.
var RequiredColumns = []string{
	ColDate,
	ColSymbol,
	ColSeries,
	ColPrevClose,
	ColOpen,
	ColHigh,
	ColLow,
	ColLast,
	ColClose,
	ColVWAP,
	ColVolume,
	ColTurnover,
	ColTrades,
	ColDeliverableVolume,
	ColPctDeliverable,
}

// MissingColumns returns the required columns absent from the observed
// header, in canonical order. Header names are whitespace-trimmed and
// matched order-insensitively.
func MissingColumns(header []string) []string {
	observed := make(map[string]struct{}, len(header))
	for _, name := range header {
		observed[strings.TrimSpace(name)] = struct{}{}
	}

	var missing []string
	for _, required := range RequiredColumns {
		if _, ok := observed[required]; !ok {
			missing = append(missing, required)
		}
	}
	return missing
}

// columnIndex maps each trimmed header name to its field position,
// letting rows arrive with columns in any order.
func columnIndex(header []string) map[string]int {
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}
	return index
}
