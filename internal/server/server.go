// Package server exposes the Voxhire HTTP surface: the interview WebSocket
// endpoint, a liveness probe, and Prometheus metrics.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/voxhire/voxhire/internal/config"
	"github.com/voxhire/voxhire/internal/session"
	"github.com/voxhire/voxhire/pkg/protocol"
)

// shutdownTimeout bounds the drain of in-flight HTTP requests on exit.
const shutdownTimeout = 10 * time.Second

// Server is the HTTP front door. Each accepted interview WebSocket is handed
// to the session supervisor, which blocks until the session is over.
type Server struct {
	cfg        config.ServerConfig
	supervisor *session.Supervisor
	logger     *slog.Logger
	httpServer *http.Server
}

// New builds the server and its routes. A nil logger falls back to
// slog.Default.
func New(cfg config.ServerConfig, supervisor *session.Supervisor, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:        cfg,
		supervisor: supervisor,
		logger:     logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("/ws/interview", s.handleInterview)

	s.httpServer = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the route handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		var err error
		if s.cfg.TLS != nil {
			err = s.httpServer.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			err = s.httpServer.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: listen on %q: %w", s.cfg.ListenAddr, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"status":"ok","active_sessions":%d}`, s.supervisor.Active())
}

// handleInterview upgrades the connection and runs one interview session on
// it. The bearer credential arrives as a query parameter (browser WebSocket
// clients cannot set headers) with the Authorization header as fallback.
func (s *Server) handleInterview(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token = r.Header.Get("Authorization")
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.logger.Warn("websocket accept failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	ch := protocol.NewWSChannel(conn)
	if err := s.supervisor.Handle(r.Context(), ch, token); err != nil {
		s.logger.Warn("session ended with error", "remote", r.RemoteAddr, "error", err)
	}
}
