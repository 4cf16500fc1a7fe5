// Package server is the HTTP backend of the untwist viewer.
//
// The viewer posts a dump to /api/load and reads the resulting graph back
// from /api/graph (or pre-rendered from /api/graph.svg and /api/graph.dot).
// Every successful load is archived in a [storage.Store]; the latest
// snapshot is what the graph routes serve.
//
// Routes:
//
//	POST /api/load             run the pipeline over the request body
//	GET  /api/graph            latest outcome, 404 before the first load
//	GET  /api/graph.svg        latest graph as SVG
//	GET  /api/graph.dot        latest graph as DOT
//	GET  /api/snapshots        archived snapshot summaries, newest first
//	GET  /api/snapshots/{id}   one archived snapshot
//	GET  /metrics              Prometheus metrics, when configured
//	GET  /healthz              liveness
package server

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/volvulus/untwist/pkg/dump"
	"github.com/volvulus/untwist/pkg/pipeline"
	"github.com/volvulus/untwist/pkg/storage"
)

// Config wires a Server.
type Config struct {
	// Loader runs loads. Nil means pipeline.NewLoader(nil).
	Loader *pipeline.Loader

	// Store archives successful loads. Nil means a default MemoryStore.
	Store storage.Store

	// Options are the base run options for every load.
	Options pipeline.Options

	// Metrics is served at /metrics when non-nil.
	Metrics http.Handler

	// RequestTimeout bounds each load. Zero means no limit.
	RequestTimeout time.Duration

	Logger *log.Logger
}

// Server serves the viewer API.
type Server struct {
	loader  *pipeline.Loader
	store   storage.Store
	opts    pipeline.Options
	metrics http.Handler
	timeout time.Duration
	logger  *log.Logger
	router  chi.Router
}

// New builds a server from cfg.
func New(cfg Config) (*Server, error) {
	if cfg.Logger == nil {
		cfg.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	if cfg.Loader == nil {
		cfg.Loader = pipeline.NewLoader(pipeline.NewRunner(nil, nil, cfg.Logger))
	}
	if cfg.Store == nil {
		cfg.Store = storage.NewMemoryStore(0)
	}
	opts := cfg.Options
	if opts.Logger == nil {
		opts.Logger = cfg.Logger
	}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}

	s := &Server{
		loader:  cfg.Loader,
		store:   cfg.Store,
		opts:    opts,
		metrics: cfg.Metrics,
		timeout: cfg.RequestTimeout,
		logger:  cfg.Logger,
	}
	s.router = s.routes()
	return s, nil
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", s.handleHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Route("/api", func(r chi.Router) {
		r.Post("/load", s.handleLoad)
		r.Get("/graph", s.handleGraph)
		r.Get("/graph.svg", s.handleArtifact(pipeline.FormatSVG, "image/svg+xml"))
		r.Get("/graph.dot", s.handleArtifact(pipeline.FormatDOT, "text/vnd.graphviz; charset=utf-8"))
		r.Get("/snapshots", s.handleSnapshots)
		r.Get("/snapshots/{id}", s.handleSnapshot)
	})
	return r
}

// Load runs the pipeline over raw and archives a success under source.
// The returned outcome is never nil.
func (s *Server) Load(ctx context.Context, raw []byte, source string, opts pipeline.Options) (*pipeline.Outcome, *storage.Snapshot) {
	out := s.loader.Load(ctx, raw, opts)
	if !out.OK() {
		return out, nil
	}
	return out, s.archive(ctx, source, out)
}

// archive stores a successful outcome. Failures are logged; the load
// itself still succeeds.
func (s *Server) archive(ctx context.Context, source string, out *pipeline.Outcome) *storage.Snapshot {
	snap, err := storage.New(source, out)
	if err != nil {
		s.logger.Warn("snapshot not archived", "run", out.RunID, "error", err)
		return nil
	}
	if err := s.store.Put(ctx, snap); err != nil {
		s.logger.Warn("archive snapshot failed", "run", out.RunID, "error", err)
		return nil
	}
	s.logger.Info("snapshot stored", "id", snap.ID, "run", out.RunID, "source", source)
	return snap
}

// LoadFile reads path and loads it. A file over the size limit fails like
// an oversized upload.
func (s *Server) LoadFile(ctx context.Context, path string) *pipeline.Outcome {
	f, err := os.Open(path)
	if err != nil {
		return pipeline.Failed(uuid.NewString(), fmt.Errorf("open dump: %w", err))
	}
	defer f.Close()

	raw, err := io.ReadAll(io.LimitReader(f, s.opts.MaxBytes+1))
	if err != nil {
		return pipeline.Failed(uuid.NewString(), fmt.Errorf("read dump: %w", err))
	}
	if int64(len(raw)) > s.opts.MaxBytes {
		return tooLarge(s.opts.MaxBytes)
	}
	out, _ := s.Load(ctx, raw, path, s.opts)
	return out
}

// ListenAndServe serves on addr until ctx is done, then shuts down,
// waiting up to shutdownTimeout for in-flight requests.
func (s *Server) ListenAndServe(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if stderrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	s.logger.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return s.store.Close(shutdownCtx)
}

func tooLarge(limit int64) *pipeline.Outcome {
	if limit <= 0 {
		limit = dump.DefaultMaxBytes
	}
	return pipeline.Failed(uuid.NewString(), errTooLarge(limit))
}
