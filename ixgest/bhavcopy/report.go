package bhavcopy

import (
	"fmt"
	"strings"
)

// Report messages callers key on. These strings are part of the response
// contract; change them and every consumer breaks.
const (
	MsgValidated        = "File validated successfully"
	MsgValidationErrors = "Validation errors found"
)

// BatchReport is the single artifact an ingestion run produces. Exactly one
// of Message or Error is set: Message on a fully clean run, Error otherwise.
type BatchReport struct {
	Message           string   `json:"message,omitempty"`
	Error             string   `json:"error,omitempty"`
	TotalRecords      int      `json:"totalRecords"`
	FailedRecords     int      `json:"failedRecords"`
	SuccessfulRecords int      `json:"successfulRecords"`
	FailureReasons    []string `json:"failureReasons,omitempty"`
}

// Failed reports whether the run ended in any failure shape.
func (r *BatchReport) Failed() bool {
	return r.Error != ""
}

func successReport(total int) *BatchReport {
	return &BatchReport{
		Message:           MsgValidated,
		TotalRecords:      total,
		FailedRecords:     0,
		SuccessfulRecords: total,
	}
}

func failureReport(total, failed int, reasons []string) *BatchReport {
	return &BatchReport{
		Error:             MsgValidationErrors,
		TotalRecords:      total,
		FailedRecords:     failed,
		SuccessfulRecords: total - failed,
		FailureReasons:    reasons,
	}
}

// missingColumnsReport is the batch-level structural failure: row counts are
// zeroed because a bad header voids whatever rows were seen.
func missingColumnsReport(missing []string) *BatchReport {
	return &BatchReport{
		Error: fmt.Sprintf("Missing columns: %s", strings.Join(missing, ", ")),
	}
}

// reasonSet collects failure reasons with set semantics: identical strings
// collapse to one entry, and first-insertion order is preserved so reports
// are deterministic.
type reasonSet struct {
	seen    map[string]struct{}
	ordered []string
}

func newReasonSet() *reasonSet {
	return &reasonSet{seen: make(map[string]struct{})}
}

func (s *reasonSet) add(reason string) {
	if _, ok := s.seen[reason]; ok {
		return
	}
	s.seen[reason] = struct{}{}
	s.ordered = append(s.ordered, reason)
}

func (s *reasonSet) list() []string {
	return s.ordered
}

func (s *reasonSet) empty() bool {
	return len(s.ordered) == 0
}
