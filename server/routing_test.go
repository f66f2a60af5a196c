package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCORSMiddleware_AllowedOrigin(t *testing.T) {
	srv := newMarketTestServer(t)

	invoked := false
	handler := srv.corsMiddleware(func(w http.ResponseWriter, r *http.Request) {
		invoked = true
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rr := httptest.NewRecorder()
	handler(rr, req)

	if !invoked {
		t.Error("Wrapped handler was not invoked")
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("Allow-Origin = %q, want echoed origin", got)
	}
	if got := rr.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Errorf("Allow-Credentials = %q, want true", got)
	}
	if got := rr.Header().Get("Access-Control-Allow-Methods"); got == "" {
		t.Error("Allow-Methods header missing")
	}
}

func TestCORSMiddleware_DisallowedOrigin(t *testing.T) {
	srv := newMarketTestServer(t)

	handler := srv.corsMiddleware(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://evil.example.com")
	rr := httptest.NewRecorder()
	handler(rr, req)

	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Allow-Origin = %q, want unset for disallowed origin", got)
	}
	if got := rr.Header().Get("Access-Control-Allow-Credentials"); got != "" {
		t.Errorf("Allow-Credentials = %q, want unset for disallowed origin", got)
	}
}

func TestCORSMiddleware_Preflight(t *testing.T) {
	srv := newMarketTestServer(t)

	invoked := false
	handler := srv.corsMiddleware(func(w http.ResponseWriter, r *http.Request) {
		invoked = true
	})

	req := httptest.NewRequest(http.MethodOptions, "/api/ingest", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rr := httptest.NewRecorder()
	handler(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("Preflight status = %d, want 200", rr.Code)
	}
	if invoked {
		t.Error("Preflight should not reach the wrapped handler")
	}
}

// setupHTTPRoutes registers on the default mux, which rejects duplicate
// patterns, so exactly one test may call it.
func TestSetupHTTPRoutes(t *testing.T) {
	srv := newMarketTestServer(t)

	srv.setupHTTPRoutes()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	http.DefaultServeMux.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("GET /health via routes = %d, want 200", rr.Code)
	}
}
