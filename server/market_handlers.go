package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/teranos/bhav/errors"
	"github.com/teranos/bhav/market"
)

// parseQueryFilter builds a market.QueryFilter from request query parameters.
// Supported parameters, all optional:
//
//	symbol     - exact ticker symbol match
//	start_date - inclusive lower bound, YYYY-MM-DD
//	end_date   - inclusive upper bound, YYYY-MM-DD
func parseQueryFilter(r *http.Request) (market.QueryFilter, error) {
	var filter market.QueryFilter

	filter.Symbol = r.URL.Query().Get("symbol")

	if fromStr := r.URL.Query().Get("start_date"); fromStr != "" {
		from, err := time.Parse(market.DateFormat, fromStr)
		if err != nil {
			return filter, errors.Newf("invalid start_date %q: expected YYYY-MM-DD", fromStr)
		}
		filter.From = from
	}

	if toStr := r.URL.Query().Get("end_date"); toStr != "" {
		to, err := time.Parse(market.DateFormat, toStr)
		if err != nil {
			return filter, errors.Newf("invalid end_date %q: expected YYYY-MM-DD", toStr)
		}
		filter.To = to
	}

	if !filter.From.IsZero() && !filter.To.IsZero() && filter.To.Before(filter.From) {
		return filter, errors.Newf("end_date %s precedes start_date %s",
			filter.To.Format(market.DateFormat), filter.From.Format(market.DateFormat))
	}

	return filter, nil
}

// HandleHighestVolume serves the single record with the highest traded volume
//
//	GET /api/market/highest-volume?symbol=SBIN&start_date=2024-01-01&end_date=2024-03-31
func (s *BhavServer) HandleHighestVolume(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	filter, err := parseQueryFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	day, err := s.queries.HighestVolume(r.Context(), filter)
	if err != nil {
		if errors.IsNotFoundError(err) {
			writeError(w, http.StatusNotFound, "No records match query")
			return
		}
		writeWrappedError(w, s.logger, err, "failed to query highest volume", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, day)
}

// HandleAverageClose serves the mean close price over the filtered records
//
//	GET /api/market/average-close?symbol=SBIN
func (s *BhavServer) HandleAverageClose(w http.ResponseWriter, r *http.Request) {
	s.handleAverage(w, r, "average_close", s.queries.AverageClose)
}

// HandleAverageVWAP serves the mean VWAP over the filtered records
//
//	GET /api/market/average-vwap?symbol=SBIN
func (s *BhavServer) HandleAverageVWAP(w http.ResponseWriter, r *http.Request) {
	s.handleAverage(w, r, "average_vwap", s.queries.AverageVWAP)
}

// handleAverage is the shared implementation for the mean-price endpoints.
// The aggregate is returned as a string to preserve decimal exactness.
func (s *BhavServer) handleAverage(w http.ResponseWriter, r *http.Request, field string, query market.AggregateFunc) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	filter, err := parseQueryFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	avg, err := query(r.Context(), filter)
	if err != nil {
		if errors.IsNotFoundError(err) {
			writeError(w, http.StatusNotFound, "No records match query")
			return
		}
		writeWrappedError(w, s.logger, err, fmt.Sprintf("failed to compute %s", field), http.StatusInternalServerError)
		return
	}

	response := map[string]interface{}{
		field:    avg.String(),
		"symbol": filter.Symbol,
	}
	if !filter.From.IsZero() {
		response["start_date"] = filter.From.Format(market.DateFormat)
	}
	if !filter.To.IsZero() {
		response["end_date"] = filter.To.Format(market.DateFormat)
	}

	writeJSON(w, http.StatusOK, response)
}
