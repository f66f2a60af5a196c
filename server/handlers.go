package server

import (
	"fmt"
	"net/http"
	"time"

	appcfg "github.com/teranos/bhav/am"
	"github.com/teranos/bhav/errors"
	"github.com/teranos/bhav/version"
	"go.uber.org/zap"
)

// HandleWebSocket upgrades the connection and attaches the client to the hub
func (s *BhavServer) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.getState() != ServerStateRunning {
		writeError(w, http.StatusServiceUnavailable, "Server is shutting down")
		return
	}

	upgrader := getUpgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Errorw("WebSocket upgrade failed",
			"error", err.Error(),
			"remote_addr", r.RemoteAddr,
		)
		return
	}

	client := &Client{
		server:  s,
		conn:    conn,
		sendMsg: make(chan interface{}, MaxClientMessageQueueSize),
		id:      fmt.Sprintf("%s_%d", r.RemoteAddr, time.Now().UnixNano()),
	}

	// Send version info BEFORE starting writePump (avoid concurrent writes)
	versionInfo := version.Get()
	versionMsg := VersionMessage{
		Type:    "version",
		Version: versionInfo.Version,
		Commit:  versionInfo.Short(),
	}
	if err := conn.WriteJSON(versionMsg); err != nil {
		s.logger.Debugw("Failed to send version info",
			"client_id", client.id,
			"error", err,
		)
	}

	s.register <- client

	// Start goroutines for reading and writing
	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		client.readPump()
	}()
	go func() {
		defer s.wg.Done()
		client.writePump()
	}()
}

// HandleHealth serves health check endpoint with version info
func (s *BhavServer) HandleHealth(w http.ResponseWriter, r *http.Request) {
	versionInfo := version.Get()
	s.mu.RLock()
	clientCount := len(s.clients)
	s.mu.RUnlock()

	health := map[string]interface{}{
		"status":    "ok",
		"state":     stateString(s.getState()),
		"version":   versionInfo.Version,
		"commit":    versionInfo.CommitHash,
		"db":        s.dbPath,
		"clients":   clientCount,
		"verbosity": int(s.verbosity.Load()),
	}

	writeJSON(w, http.StatusOK, health)
}

// HandleConfig serves configuration endpoint
// Supports GET (retrieve config) and POST/PATCH (update config)
// Query parameters:
//   - ?introspection=true - Returns detailed config with sources
func (s *BhavServer) HandleConfig(w http.ResponseWriter, r *http.Request) {
	if !requireMethods(w, r, http.MethodGet, http.MethodPost, http.MethodPatch) {
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.handleGetConfig(w, r)
	case http.MethodPost, http.MethodPatch:
		s.handleUpdateConfig(w, r)
	}
}

// handleGetConfig returns configuration based on query parameters
func (s *BhavServer) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	// Check if introspection is requested
	if r.URL.Query().Get("introspection") == "true" {
		introspection, err := appcfg.GetConfigIntrospection()
		if err != nil {
			writeWrappedError(w, s.logger, err, "failed to get config introspection", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, introspection)
		return
	}

	cfg, err := appcfg.Load()
	if err != nil {
		writeWrappedError(w, s.logger, err, "failed to load config", http.StatusInternalServerError)
		return
	}
	ingestCfg := cfg.GetIngestConfig()

	config := map[string]interface{}{
		"config_file": appcfg.GetViper().ConfigFileUsed(),
		"database": map[string]interface{}{
			"path": cfg.GetDatabasePath(),
		},
		"server": map[string]interface{}{
			"port":            appcfg.GetServerPort(),
			"allowed_origins": cfg.GetServerAllowedOrigins(),
		},
		"ingest": map[string]interface{}{
			"max_upload_mb":      ingestCfg.MaxUploadMB,
			"persist_workers":    ingestCfg.PersistWorkers,
			"uploads_per_minute": ingestCfg.UploadsPerMinute,
		},
	}

	writeJSON(w, http.StatusOK, config)
}

// configUpdateEntry maps a config key to its typed update function.
type configUpdateEntry struct {
	typ      string // "int" or "string"
	updateFn interface{}
}

// configUpdateRegistry defines supported config keys and their update functions.
var configUpdateRegistry = map[string]configUpdateEntry{
	"database.path":          {typ: "string", updateFn: appcfg.UpdateDatabasePath},
	"server.port":            {typ: "int", updateFn: appcfg.UpdateServerPort},
	"ingest.max_upload_mb":   {typ: "int", updateFn: appcfg.UpdateIngestMaxUploadMB},
	"ingest.persist_workers": {typ: "int", updateFn: appcfg.UpdateIngestPersistWorkers},
}

// applyConfigKeyUpdate validates the value type and applies a single config key update.
// Returns true if the update was applied, false if a response was already written.
func applyConfigKeyUpdate(w http.ResponseWriter, log *zap.SugaredLogger, key string, value interface{}, clientAddr string) bool {
	entry, ok := configUpdateRegistry[key]
	if !ok {
		log.Warnw("Unsupported config key in updates", "key", key, "client", clientAddr)
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Unsupported config key: %s", key))
		return false
	}

	switch entry.typ {
	case "int":
		// JSON numbers decode as float64
		f, ok := value.(float64)
		if !ok || f != float64(int(f)) {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid value type for %s: expected integer", key))
			return false
		}
		if err := entry.updateFn.(func(int) error)(int(f)); err != nil {
			writeWrappedError(w, log, err, fmt.Sprintf("failed to update %s", key), http.StatusInternalServerError)
			return false
		}
		log.Infow("Config updated via REST API", "key", key, "value", int(f), "client", clientAddr)

	case "string":
		v, ok := value.(string)
		if !ok {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid value type for %s: expected string", key))
			return false
		}
		if err := entry.updateFn.(func(string) error)(v); err != nil {
			writeWrappedError(w, log, err, fmt.Sprintf("failed to update %s", key), http.StatusInternalServerError)
			return false
		}
		log.Infow("Config updated via REST API", "key", key, "value", v, "client", clientAddr)
	}

	return true
}

// handleUpdateConfig updates configuration keys named in the request body
func (s *BhavServer) handleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Updates map[string]interface{} `json:"updates"`
	}

	if err := readJSON(w, r, &req); err != nil {
		return
	}

	if len(req.Updates) == 0 {
		writeError(w, http.StatusBadRequest, "No updates provided")
		return
	}

	for key, value := range req.Updates {
		if !applyConfigKeyUpdate(w, s.logger, key, value, r.RemoteAddr) {
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// writeWrappedError wraps err with context, logs it, and writes a JSON error response
func writeWrappedError(w http.ResponseWriter, log *zap.SugaredLogger, err error, context string, status int) {
	wrapped := errors.Wrap(err, context)
	log.Errorw(context, "error", err.Error())
	writeError(w, status, wrapped.Error())
}
