package server

import (
	"context"
	"database/sql"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/teranos/bhav/am"
	"github.com/teranos/bhav/market"
	"github.com/teranos/bhav/storage"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// BhavServer serves bhavcopy ingestion and market query endpoints, and pushes
// ingestion progress to WebSocket clients as batches move through the pipeline.
type BhavServer struct {
	db            *sql.DB
	dbPath        string // Database file path (for display in health/banner)
	store         *storage.SQLStore
	queries       market.QueryStore
	configWatcher *am.ConfigWatcher // Config watcher for auto-reload on config changes

	clients    map[*Client]bool
	broadcast  chan interface{}
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
	lastReport *IngestReportMessage // Cache last batch report for reconnecting clients

	verbosity atomic.Int32 // Thread-safe verbosity level
	logger    *zap.SugaredLogger

	// HTTP server with timeouts
	httpServer *http.Server

	// Upload boundary limits, hot-reloadable via the config watcher
	uploadLimiter  *rate.Limiter
	maxUploadBytes atomic.Int64
	persistWorkers atomic.Int32

	// Lifecycle management
	ctx            context.Context    // Cancellation context for graceful shutdown
	cancel         context.CancelFunc // Cancels all goroutines
	wg             sync.WaitGroup     // Tracks active goroutines for clean shutdown
	broadcastDrops atomic.Int64       // Tracks dropped broadcasts for monitoring
	state          atomic.Int32       // Server state (Running/Draining/Stopped)
}

// handleClientRegister handles a new client connection
func (s *BhavServer) handleClientRegister(client *Client) {
	s.mu.Lock()

	// Defensive: Check client limit
	if len(s.clients) >= MaxClients {
		s.mu.Unlock()
		s.logger.Warnw("Max clients reached, rejecting connection",
			"client_id", client.id,
			"max_clients", MaxClients,
		)
		client.close()
		return
	}

	s.clients[client] = true
	totalClients := len(s.clients)
	lastReport := s.lastReport
	s.mu.Unlock()

	s.logger.Infow("Client connected",
		"client_id", client.id,
		"total_clients", totalClients,
	)

	// Send the cached batch report so a reconnecting dashboard sees the
	// latest ingestion outcome without waiting for the next upload.
	// Safe to send directly: the hub goroutine owns all client channel sends.
	if lastReport != nil {
		select {
		case client.sendMsg <- lastReport:
		default:
			s.logger.Debugw("Client queue full, skipping cached report", "client_id", client.id)
		}
	}
}

// handleClientUnregister handles a client disconnection
func (s *BhavServer) handleClientUnregister(client *Client) {
	s.mu.Lock()
	if _, ok := s.clients[client]; ok {
		delete(s.clients, client)
		totalClients := len(s.clients)
		s.mu.Unlock()

		client.close()

		s.logger.Infow("Client disconnected",
			"client_id", client.id,
			"total_clients", totalClients,
		)
	} else {
		s.mu.Unlock()
	}
}

// removeSlowClient removes a client that can't keep up with broadcasts.
// IMPORTANT: Only called from the hub goroutine, so safe to close channels directly.
func (s *BhavServer) removeSlowClient(client *Client) {
	s.mu.Lock()
	if _, ok := s.clients[client]; ok {
		delete(s.clients, client)
		s.mu.Unlock()
	} else {
		s.mu.Unlock()
		return // Already removed
	}

	client.close()

	s.logger.Warnw("Client send channel full, removing client",
		"client_id", client.id,
		"total_drops", s.broadcastDrops.Load(),
	)
}

// handleBroadcast fans a message out to all connected clients.
// Runs on the hub goroutine, which owns all client channel sends and closes —
// this single-writer invariant is what makes close() racing sends impossible.
func (s *BhavServer) handleBroadcast(msg interface{}) {
	if report, ok := msg.(*IngestReportMessage); ok {
		s.mu.Lock()
		s.lastReport = report
		s.mu.Unlock()
	}

	s.mu.RLock()
	clients := make([]*Client, 0, len(s.clients))
	for client := range s.clients {
		clients = append(clients, client)
	}
	s.mu.RUnlock()

	for _, client := range clients {
		select {
		case client.sendMsg <- msg:
		default:
			s.broadcastDrops.Add(1)
			s.removeSlowClient(client)
		}
	}
}

// Broadcast queues a message for delivery to all connected WebSocket clients.
// Safe to call from any goroutine; drops the message if the server is
// draining or the hub queue is saturated.
func (s *BhavServer) Broadcast(msg interface{}) {
	if ServerState(s.state.Load()) != ServerStateRunning {
		return
	}

	select {
	case s.broadcast <- msg:
	case <-s.ctx.Done():
	default:
		s.broadcastDrops.Add(1)
		s.logger.Warnw("Broadcast queue full, dropping message")
	}
}

// BroadcastIngestReport pushes a finished batch report to all clients
func (s *BhavServer) BroadcastIngestReport(msg *IngestReportMessage) {
	s.Broadcast(msg)

	s.logger.Debugw("Broadcasted ingest report",
		"filename", msg.Filename,
		"total", msg.Report.TotalRecords,
		"failed", msg.Report.FailedRecords,
	)
}

// Run starts the server hub event loop. The hub goroutine is the sole owner
// of client channel sends and closes.
func (s *BhavServer) Run() {
	for {
		select {
		case <-s.ctx.Done():
			s.logger.Debugw("Server hub stopping due to context cancellation")
			return
		case client := <-s.register:
			s.handleClientRegister(client)
		case client := <-s.unregister:
			s.handleClientUnregister(client)
		case msg := <-s.broadcast:
			s.handleBroadcast(msg)
		}
	}
}

// ClientCount returns the number of currently connected WebSocket clients
func (s *BhavServer) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// wsEmitter bridges pipeline progress events onto the WebSocket broadcast
// channel so connected dashboards see uploads advance in real time.
type wsEmitter struct {
	server   *BhavServer
	filename string
}

func (e *wsEmitter) EmitStage(stage string, message string) {
	e.server.Broadcast(&IngestProgressMessage{
		Type:      "ingest_progress",
		Stage:     stage,
		Message:   message,
		Timestamp: time.Now().Unix(),
	})
}

func (e *wsEmitter) EmitProgress(count int, metadata map[string]interface{}) {
	e.server.Broadcast(&IngestProgressMessage{
		Type:      "ingest_progress",
		Count:     count,
		Metadata:  metadata,
		Timestamp: time.Now().Unix(),
	})
}

func (e *wsEmitter) EmitComplete(summary map[string]interface{}) {
	e.server.Broadcast(&IngestProgressMessage{
		Type:      "ingest_progress",
		Stage:     "complete",
		Metadata:  summary,
		Timestamp: time.Now().Unix(),
	})
}

func (e *wsEmitter) EmitError(stage string, err error) {
	e.server.Broadcast(&IngestErrorMessage{
		Type:      "ingest_error",
		Filename:  e.filename,
		Stage:     stage,
		Error:     err.Error(),
		Timestamp: time.Now().Unix(),
	})
}

func (e *wsEmitter) EmitInfo(message string) {
	e.server.Broadcast(&IngestProgressMessage{
		Type:      "ingest_progress",
		Message:   message,
		Timestamp: time.Now().Unix(),
	})
}
