package server

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/teranos/bhav/errors"
	"github.com/teranos/bhav/ixgest/bhavcopy"
)

// HandleIngest accepts a bhavcopy CSV upload and runs it through the
// ingestion pipeline.
//
//	POST /api/ingest            - multipart form with a single "file" field
//	POST /api/ingest?dry_run=true - validate without persisting
//
// Responds 200 with the batch report on a clean run, 400 with the batch
// report when validation or persistence failures were recorded.
func (s *BhavServer) HandleIngest(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	if s.getState() != ServerStateRunning {
		writeError(w, http.StatusServiceUnavailable, "Server is shutting down")
		return
	}

	if !s.uploadLimiter.Allow() {
		s.logger.Warnw("Upload rate limit exceeded", "client", r.RemoteAddr)
		writeError(w, http.StatusTooManyRequests, "Upload rate limit exceeded, retry later")
		return
	}

	maxBytes := s.maxUploadBytes.Load()
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	if err := r.ParseMultipartForm(maxBytes); err != nil {
		writeError(w, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("file too large (max %dMB)", maxBytes>>20))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.Wrap(err, "missing 'file' field in multipart form").Error())
		return
	}
	defer file.Close()

	// Only bhavcopy CSV exports are accepted
	ext := strings.ToLower(filepath.Ext(header.Filename))
	if ext != ".csv" {
		writeError(w, http.StatusBadRequest, "unsupported file type: only .csv files are accepted")
		return
	}

	dryRun := r.URL.Query().Get("dry_run") == "true"

	s.logger.Infow("Ingesting uploaded bhavcopy",
		"filename", header.Filename,
		"size_bytes", header.Size,
		"dry_run", dryRun,
		"client", r.RemoteAddr,
	)

	s.Broadcast(&IngestStartedMessage{
		Type:      "ingest_started",
		Filename:  header.Filename,
		SizeBytes: header.Size,
		Timestamp: time.Now().Unix(),
	})

	workers := int(s.persistWorkers.Load())
	verbosity := int(s.verbosity.Load())

	processor := bhavcopy.NewCSVIxProcessor(s.db, dryRun, workers, verbosity, s.logger)
	processor.SetEmitter(&wsEmitter{server: s, filename: header.Filename})

	report, err := processor.ProcessStream(r.Context(), file, header.Filename)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			s.logger.Infow("Upload canceled by client", "filename", header.Filename)
			return
		}
		s.logger.Errorw("Ingestion aborted",
			"filename", header.Filename,
			"error", err.Error(),
		)
		writeError(w, http.StatusBadRequest, errors.Wrap(err, "ingestion aborted").Error())
		return
	}

	s.BroadcastIngestReport(&IngestReportMessage{
		Type:      "ingest_report",
		Filename:  header.Filename,
		Report:    report,
		Timestamp: time.Now().Unix(),
	})

	status := http.StatusOK
	if report.Failed() {
		status = http.StatusBadRequest
	}
	writeJSON(w, status, report)
}

// HandleIngestRuns serves the ingestion run audit trail
//
//	GET /api/ingest/runs?limit=20
func (s *BhavServer) HandleIngestRuns(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	limit := 20
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid limit: %s", limitStr))
			return
		}
		if parsed > 500 {
			parsed = 500
		}
		limit = parsed
	}

	runs, err := s.store.RecentRuns(r.Context(), limit)
	if err != nil {
		writeWrappedError(w, s.logger, err, "failed to fetch ingest runs", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"runs":  runs,
		"count": len(runs),
	})
}
