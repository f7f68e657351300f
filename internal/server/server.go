// Package server provides the local HTTP API for pad.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/pad/internal/config"
	"github.com/hyperjump/pad/internal/notes"
	"github.com/hyperjump/pad/internal/semantic"
	"github.com/hyperjump/pad/pkg/utils"
)

// RequestIDHeader carries the per-request id on responses.
const RequestIDHeader = "X-Request-ID"

// Server is the HTTP server for the pad API.
type Server struct {
	svc    *semantic.Service
	notes  *notes.File
	search config.SearchConfig
	logger *zap.Logger
	server *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithNotesFile makes note creation and removal also update the plain-text
// notes file, and enables the keyword search endpoint.
func WithNotesFile(f *notes.File) Option {
	return func(s *Server) { s.notes = f }
}

// WithSearchConfig sets the result limits and distance cutoff.
func WithSearchConfig(cfg config.SearchConfig) Option {
	return func(s *Server) { s.search = cfg }
}

// NewServer creates a server over svc.
func NewServer(svc *semantic.Service, cfg *config.ServerConfig, logger *zap.Logger, opts ...Option) *Server {
	s := &Server{
		svc:    svc,
		search: config.SearchConfig{DefaultLimit: 5, MaxLimit: 100},
		logger: utils.LoggerOrNop(logger),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Router returns the HTTP handler with all routes and middleware.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Post("/api/v1/notes", s.handleAddNote)
	r.Delete("/api/v1/notes", s.handleRemoveNote)
	r.Get("/api/v1/notes", s.handleListNotes)
	r.Post("/api/v1/search", s.handleSearch)
	r.Post("/api/v1/search/keyword", s.handleKeywordSearch)
	r.Get("/api/v1/status", s.handleStatus)
	r.Get("/health", s.handleHealth)
	return r
}

// Start starts the HTTP server and blocks until it stops. After Stop it
// returns http.ErrServerClosed, even if Stop ran first.
func (s *Server) Start() error {
	s.logger.Info("Starting server", zap.String("addr", s.server.Addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// requestLogger tags each request with an id and logs it once it completes.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			zap.String("request_id", id),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)))
	})
}
