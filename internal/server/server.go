// Package server exposes the one-shot snapshot endpoint and the live
// websocket channel.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kazuninishiki/SysMonServer/internal/hub"
	"github.com/kazuninishiki/SysMonServer/internal/model"
	"github.com/kazuninishiki/SysMonServer/internal/registry"
)

const (
	pongWait        = 60 * time.Second
	pingPeriod      = pongWait * 9 / 10
	maxInboundBytes = 4096
)

// SnapshotSource returns the best available snapshot without sampling.
type SnapshotSource interface {
	Current() model.Snapshot
}

type Options struct {
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type Server struct {
	logger   *slog.Logger
	snaps    SnapshotSource
	registry *registry.Registry
	hub      *hub.Hub
	upgrader websocket.Upgrader
	opts     Options
}

func New(snaps SnapshotSource, reg *registry.Registry, h *hub.Hub, opts Options, logger *slog.Logger) *Server {
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 5 * time.Second
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 5 * time.Second
	}
	return &Server{
		logger:   logger,
		snaps:    snaps,
		registry: reg,
		hub:      h,
		opts:     opts,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/api/stats", s.handleStats)
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	return mux
}

// Serve runs the HTTP server on ln until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("http shutdown incomplete", "error", err)
		_ = srv.Close()
	}
	return nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(indexHTML))
}

// handleStats always answers 200 with a best-effort snapshot.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, s.snaps.Current())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{"status": "ok", "clients": s.registry.Len()})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// remoteAddress prefers the first X-Forwarded-For hop.
func remoteAddress(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if first := strings.TrimSpace(strings.Split(fwd, ",")[0]); first != "" {
			return first
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "Unknown"
}

const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head><meta charset="UTF-8"><title>System Monitor</title></head>
<body>
<p>System monitor is running. Snapshot: <a href="/api/stats">/api/stats</a>. Live channel: <code>/ws</code>.</p>
</body>
</html>
`
