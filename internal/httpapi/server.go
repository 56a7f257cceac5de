// Package httpapi exposes the daemon's HTTP trigger surface: ingesting
// videos, starting pipeline runs, and inspecting state. The CLI is its main
// consumer via internal/client.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"revoice/internal/config"
	"revoice/internal/ingest"
	"revoice/internal/logging"
	"revoice/internal/pipeline"
	"revoice/internal/stage"
)

// Server serves the JSON API on the configured bind address.
type Server struct {
	cfg        *config.Config
	logger     *slog.Logger
	controller *pipeline.Controller
	ingest     *ingest.Service
	health     func(ctx context.Context) []stage.Health

	listener net.Listener
	server   *http.Server
}

// NewServer builds the API server. The health callback may be nil when no
// collaborator diagnostics are wired (tests).
func NewServer(cfg *config.Config, logger *slog.Logger, controller *pipeline.Controller, ingestSvc *ingest.Service, health func(ctx context.Context) []stage.Health) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("httpapi: configuration required")
	}
	if controller == nil {
		return nil, errors.New("httpapi: controller required")
	}
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil, errors.New("httpapi: api bind address required")
	}

	s := &Server{
		cfg:        cfg,
		logger:     logging.NewComponentLogger(logger, "httpapi"),
		controller: controller,
		ingest:     ingestSvc,
		health:     health,
	}

	router := mux.NewRouter()
	router.Use(s.requestLogMiddleware)
	router.Use(authMiddleware(strings.TrimSpace(cfg.Paths.APIToken)))

	router.HandleFunc("/api/health", s.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/api/status", s.handleStatus).Methods(http.MethodGet)
	router.HandleFunc("/api/videos", s.handleAddVideo).Methods(http.MethodPost)
	router.HandleFunc("/api/videos", s.handleListVideos).Methods(http.MethodGet)
	router.HandleFunc("/api/videos/{id}", s.handleGetVideo).Methods(http.MethodGet)
	router.HandleFunc("/api/videos/{id}", s.handleDeleteVideo).Methods(http.MethodDelete)
	router.HandleFunc("/api/videos/{id}/process", s.handleProcess).Methods(http.MethodPost)
	router.HandleFunc("/api/videos/{id}/reprocess", s.handleReprocess).Methods(http.MethodPost)
	router.HandleFunc("/api/videos/{id}/retry", s.handleRetry).Methods(http.MethodPost)

	s.server = &http.Server{
		Handler:           handlers.RecoveryHandler(handlers.PrintRecoveryStack(false))(handlers.CompressHandler(router)),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s, nil
}

// Handler exposes the configured HTTP handler (used in tests).
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start binds the listener and serves until the context is cancelled or Stop
// is called.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", strings.TrimSpace(s.cfg.Paths.APIBind))
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if serveErr := s.server.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(serveErr))
		}
	}()

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Stop shuts the server down, allowing in-flight requests a short grace
// period.
func (s *Server) Stop() {
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

// Addr reports the bound address, empty before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Server) requestLogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("api request",
			logging.String("method", r.Method),
			logging.String("path", r.URL.Path),
			logging.Duration("elapsed", time.Since(start)),
		)
	})
}
