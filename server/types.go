package server

import (
	"time"

	"github.com/teranos/bhav/ixgest/bhavcopy"
)

const (
	// MaxClients is the maximum number of concurrent WebSocket clients
	MaxClients = 100
	// MaxClientMessageQueueSize is the size of per-client message queues
	MaxClientMessageQueueSize = 256
	// ShutdownTimeout is how long to wait for graceful shutdown.
	// Ingestion worker pools drain per-batch, so the dominant cost is
	// WebSocket pumps and the config watcher winding down.
	ShutdownTimeout = 30 * time.Second
)

// ServerState represents the server lifecycle state
type ServerState int

const (
	ServerStateRunning  ServerState = iota // Normal operation
	ServerStateDraining                    // Graceful shutdown in progress
	ServerStateStopped                     // Shutdown complete
)

// ClientMessage represents a message sent by a WebSocket client
type ClientMessage struct {
	Type      string `json:"type"`      // "ping", "set_verbosity"
	Verbosity int    `json:"verbosity"` // Verbosity level for set_verbosity
}

// VersionMessage is sent to each client immediately after connection
type VersionMessage struct {
	Type    string `json:"type"`    // "version"
	Version string `json:"version"` // Semantic version or "dev"
	Commit  string `json:"commit"`  // Short commit hash
}

// IngestStartedMessage announces an upload entering the ingestion pipeline
type IngestStartedMessage struct {
	Type      string `json:"type"`       // "ingest_started"
	Filename  string `json:"filename"`   // Uploaded file name
	SizeBytes int64  `json:"size_bytes"` // Upload size
	Timestamp int64  `json:"timestamp"`  // Unix timestamp
}

// IngestProgressMessage carries incremental pipeline progress to clients
type IngestProgressMessage struct {
	Type      string                 `json:"type"`               // "ingest_progress"
	Stage     string                 `json:"stage,omitempty"`    // Pipeline stage name
	Message   string                 `json:"message,omitempty"`  // Stage description
	Count     int                    `json:"count,omitempty"`    // Rows processed so far
	Metadata  map[string]interface{} `json:"metadata,omitempty"` // Stage-specific detail
	Timestamp int64                  `json:"timestamp"`          // Unix timestamp
}

// IngestReportMessage carries the final batch outcome to clients
type IngestReportMessage struct {
	Type      string                `json:"type"`     // "ingest_report"
	Filename  string                `json:"filename"` // Uploaded file name
	Report    *bhavcopy.BatchReport `json:"report"`   // Validation/persistence outcome
	Timestamp int64                 `json:"timestamp"` // Unix timestamp
}

// IngestErrorMessage reports a low-level ingestion failure (stream read errors,
// not row validation — those arrive inside the report)
type IngestErrorMessage struct {
	Type      string `json:"type"`      // "ingest_error"
	Filename  string `json:"filename"`  // Uploaded file name
	Stage     string `json:"stage"`     // Pipeline stage that failed
	Error     string `json:"error"`     // Error description
	Timestamp int64  `json:"timestamp"` // Unix timestamp
}
