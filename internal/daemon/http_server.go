package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"git.home.luguber.info/inful/streakd/internal/logfields"
	"git.home.luguber.info/inful/streakd/internal/metrics"
	"git.home.luguber.info/inful/streakd/internal/rollover"
)

// HTTPServer serves the admin endpoints: /metrics, /healthz, /status,
// /snapshot and POST /rollover.
type HTTPServer struct {
	addr   string
	daemon *Daemon
	server *http.Server
	ln     net.Listener
}

// NewHTTPServer creates an admin server bound to addr.
func NewHTTPServer(addr string, daemon *Daemon) *HTTPServer {
	return &HTTPServer{addr: addr, daemon: daemon}
}

// Handler builds the admin mux.
func (s *HTTPServer) Handler() http.Handler {
	mux := http.NewServeMux()
	if reg := s.daemon.services.PromRegistry; reg != nil {
		mux.Handle("GET /metrics", metrics.HTTPHandler(reg))
	}
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("GET /snapshot", s.handleSnapshot)
	mux.HandleFunc("POST /rollover", s.handleRollover)
	return mux
}

// Start binds the listener and serves in the background.
func (s *HTTPServer) Start(_ context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("admin server %s: %w", s.addr, err)
	}
	s.ln = ln
	s.server = &http.Server{Handler: s.Handler(), ReadTimeout: 30 * time.Second, WriteTimeout: 30 * time.Second, IdleTimeout: 120 * time.Second}
	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Admin server error", logfields.Error(err))
		}
	}()
	slog.Info("Admin HTTP server started", slog.String("addr", ln.Addr().String()))
	return nil
}

// Addr returns the bound address, useful when listening on port 0.
func (s *HTTPServer) Addr() string {
	if s.ln == nil {
		return s.addr
	}
	return s.ln.Addr().String()
}

// Stop gracefully shuts down the server.
func (s *HTTPServer) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("admin server shutdown: %w", err)
	}
	slog.Info("Admin HTTP server stopped")
	return nil
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := s.daemon.Health(r.Context())
	code := http.StatusOK
	if resp.Status != HealthStatusHealthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, resp)
}

func (s *HTTPServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.daemon.StatusInfo(r.Context()))
}

func (s *HTTPServer) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := s.daemon.services.Registry.Snapshot(r.Context())
	if err != nil {
		slog.Error("Snapshot failed", logfields.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *HTTPServer) handleRollover(w http.ResponseWriter, r *http.Request) {
	out, err := s.daemon.RunRollover(r.Context(), rollover.TriggerManual)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", logfields.Error(err))
	}
}
