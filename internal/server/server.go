// Package server exposes the inspector as a read-only JSON API.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/koustreak/schemascope/internal/database"
	"github.com/koustreak/schemascope/internal/inspector"
	"github.com/koustreak/schemascope/internal/logger"
)

// Options configures a Server. Zero values select the defaults.
type Options struct {
	Addr            string
	Schema          string // echoed in /describe
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	QueryTimeout    time.Duration // per-request deadline for catalog queries
	MaxRows         int           // cap for /rows previews
}

// Server is the read-only introspection API.
type Server struct {
	db   database.DB
	ins  inspector.Inspector
	log  *logger.Logger
	opts Options
}

// New creates a Server over an open connection and its inspector.
func New(db database.DB, ins inspector.Inspector, log *logger.Logger, opts Options) *Server {
	if log == nil {
		log = logger.Nop()
	}
	if opts.Addr == "" {
		opts.Addr = "127.0.0.1:8420"
	}
	if opts.MaxRows <= 0 {
		opts.MaxRows = 100
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}
	return &Server{db: db, ins: ins, log: log, opts: opts}
}

// Handler returns the routed API.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)
	if s.opts.QueryTimeout > 0 {
		r.Use(middleware.Timeout(s.opts.QueryTimeout))
	}

	r.Get("/healthz", s.handleHealth)
	r.Get("/overview", s.handleOverview)
	r.Get("/describe", s.handleDescribe)

	r.Route("/tables", func(r chi.Router) {
		r.Get("/", s.handleTables)
		r.Route("/{table}", func(r chi.Router) {
			r.Get("/", s.handleTable)
			r.Get("/columns", s.handleColumns)
			r.Get("/columns/{column}", s.handleColumn)
			r.Get("/primary-key", s.handlePrimaryKey)
			r.Get("/foreign-keys", s.handleForeignKeys)
			r.Get("/rows", s.handleRows)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		errorResponse(w, http.StatusNotFound, "route not found")
	})
	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.opts.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.With().Str("addr", s.opts.Addr).Logger().Info("http server listening")
		errCh <- srv.ListenAndServe()
	}()

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

	s.log.Info("http server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.log.With().Err(err).Logger().Warn("graceful shutdown interrupted")
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
