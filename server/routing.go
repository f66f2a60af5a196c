package server

import (
	"net/http"
)

// setupHTTPRoutes configures all HTTP handlers
func (s *BhavServer) setupHTTPRoutes() {
	http.HandleFunc("/ws", s.corsMiddleware(s.HandleWebSocket))                            // Ingestion progress and report push
	http.HandleFunc("/health", s.corsMiddleware(s.HandleHealth))                           // Liveness and build info
	http.HandleFunc("/api/config", s.corsMiddleware(s.HandleConfig))                       // Config summary (GET) and updates (POST/PATCH)
	http.HandleFunc("/api/ingest", s.corsMiddleware(s.HandleIngest))                       // Bhavcopy CSV upload (POST multipart)
	http.HandleFunc("/api/ingest/runs", s.corsMiddleware(s.HandleIngestRuns))              // Recent ingestion run audit (GET)
	http.HandleFunc("/api/market/highest-volume", s.corsMiddleware(s.HandleHighestVolume)) // Max-volume record (GET)
	http.HandleFunc("/api/market/average-close", s.corsMiddleware(s.HandleAverageClose))   // Mean close price (GET)
	http.HandleFunc("/api/market/average-vwap", s.corsMiddleware(s.HandleAverageVWAP))     // Mean VWAP (GET)
}

// corsMiddleware adds CORS headers to HTTP responses using configured allowed origins
// Uses the same origin validation as WebSocket connections (server.allowed_origins config)
func (s *BhavServer) corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		// If origin is present and allowed by config, set CORS headers
		if origin != "" && checkOrigin(r) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
		}

		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		// Handle preflight requests
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next(w, r)
	}
}
