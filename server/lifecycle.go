package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/teranos/bhav/errors"
)

// getState returns the current server state
func (s *BhavServer) getState() ServerState {
	return ServerState(s.state.Load())
}

// setState atomically updates the server state
func (s *BhavServer) setState(newState ServerState) {
	s.state.Store(int32(newState))
	s.logger.Infow("Server state changed", "new_state", stateString(newState))
}

// stateString returns human-readable state name
func stateString(state ServerState) string {
	switch state {
	case ServerStateRunning:
		return "running"
	case ServerStateDraining:
		return "draining"
	case ServerStateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Start starts the server on the specified port. Blocks serving HTTP until
// the listener fails or the process exits.
func (s *BhavServer) Start(port int) error {
	// Start the hub in a goroutine
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.Run()
	}()

	// Find an available port
	actualPort, err := findAvailablePort(port)
	if err != nil {
		return errors.Wrap(err, "failed to find available port")
	}

	if actualPort != port {
		s.logger.Infow("Port in use, using alternative",
			"requested_port", port,
			"actual_port", actualPort,
		)
	}

	// Set up HTTP routes
	s.setupHTTPRoutes()

	url := fmt.Sprintf("http://localhost:%d", actualPort)
	s.logger.Infow("Server ready",
		"url", url,
		"port", actualPort,
		"db", s.dbPath,
	)

	addr := fmt.Sprintf(":%d", actualPort)
	s.httpServer = &http.Server{
		Addr:              addr,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Infow(fmt.Sprintf("HTTP server listening on port %d", actualPort))
	return s.httpServer.ListenAndServe()
}

// Stop gracefully shuts down the server and cleans up resources
func (s *BhavServer) Stop() error {
	s.logger.Infow("Initiating server shutdown")

	// Transition to draining state: broadcasts stop, new uploads are refused
	s.setState(ServerStateDraining)

	// Stop accepting new HTTP requests and let in-flight ones finish
	if s.httpServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Warnw("HTTP server shutdown error", "error", err)
		}
		shutdownCancel()
	}

	// Close all client connections BEFORE cancelling context
	// This ensures readPump/writePump exit cleanly before context cancellation
	s.mu.Lock()
	clientsToClose := make([]*Client, 0, len(s.clients))
	for client := range s.clients {
		clientsToClose = append(clientsToClose, client)
		delete(s.clients, client)
	}
	s.mu.Unlock()

	if len(clientsToClose) > 0 {
		s.logger.Infow("Closing client connections", "count", len(clientsToClose))
		for _, client := range clientsToClose {
			client.conn.Close() // Close connection to unblock readPump
		}
	}

	// Cancel context to signal all server goroutines to stop
	if s.cancel != nil {
		s.cancel()
	}

	// Wait for goroutines with timeout
	// Goroutines should exit quickly now that:
	// 1. WebSocket connections are closed (unblocking readPump)
	// 2. Context is cancelled (stopping writePump and the hub)
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Infow("All goroutines stopped cleanly")
	case <-time.After(ShutdownTimeout):
		s.logger.Warnw("Goroutine shutdown timed out, forcing exit",
			"timeout", ShutdownTimeout,
		)
	}

	// Stop config watcher
	if s.configWatcher != nil {
		if err := s.configWatcher.Stop(); err != nil {
			s.logger.Warnw("Failed to stop config watcher", "error", err)
		} else {
			s.logger.Infow("Config watcher stopped")
		}
	}

	// Mark shutdown complete
	s.setState(ServerStateStopped)

	s.logger.Infow("Server shutdown complete",
		"broadcast_drops", s.broadcastDrops.Load(),
	)

	return nil
}
