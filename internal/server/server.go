// Package server exposes one editing session over an HTTP JSON API so a web
// front end can author dialogue.
//
// Every request runs to completion under a single mutex, which gives the
// same one-operation-at-a-time semantics as an interactive editor. Node
// updates and edge changes are published to long-polling clients through
// /api/events.
package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/storyline/pkg/dialogue"
	dio "github.com/matzehuels/storyline/pkg/io"
	"github.com/matzehuels/storyline/pkg/pipeline"
	"github.com/matzehuels/storyline/pkg/session"
)

// DefaultPollTimeout bounds how long /api/events waits for a change.
const DefaultPollTimeout = 30 * time.Second

// Config configures a [Server].
type Config struct {
	// Sink receives POST /api/export. Nil disables publishing.
	Sink dio.Sink

	// Runner renders GET /api/render. Nil uses an uncached runner.
	Runner *pipeline.Runner

	// StrictIDs rejects exports while ids are shared.
	StrictIDs bool

	// PollTimeout overrides DefaultPollTimeout.
	PollTimeout time.Duration

	Logger *log.Logger
}

// Server serves the dialogue API.
type Server struct {
	mu     sync.Mutex
	graph  *dialogue.Graph
	sess   *session.Session
	events *broadcaster

	sink        dio.Sink
	runner      *pipeline.Runner
	pollTimeout time.Duration
	logger      *log.Logger
}

// New creates a server editing g. The server subscribes to g's edge
// notifications for the lifetime of the process.
func New(g *dialogue.Graph, cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	runner := cfg.Runner
	if runner == nil {
		runner = pipeline.NewRunner(nil, logger)
	}
	timeout := cfg.PollTimeout
	if timeout <= 0 {
		timeout = DefaultPollTimeout
	}

	var opts []session.Option
	if cfg.StrictIDs {
		opts = append(opts, session.WithStrictIDs())
	}
	opts = append(opts, session.WithLogger(logger))

	s := &Server{
		graph:       g,
		sess:        session.New(g, opts...),
		events:      newBroadcaster(),
		sink:        cfg.Sink,
		runner:      runner,
		pollTimeout: timeout,
		logger:      logger,
	}
	g.Subscribe(dialogue.ListenerFuncs{
		Node:  func(*dialogue.Node) { s.events.publish() },
		Edges: func([]dialogue.Edge) { s.events.publish() },
	})
	return s
}

// Handler returns the HTTP handler with all routes registered.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(requestLogger(s.logger))

	r.Get("/health", s.health)

	r.Route("/api", func(r chi.Router) {
		r.Route("/nodes", func(r chi.Router) {
			r.Get("/", s.listNodes)
			r.Post("/", s.createNode)
			r.Get("/{handle}", s.getNode)
			r.Patch("/{handle}", s.updateNode)
			r.Delete("/{handle}", s.deleteNode)
		})
		r.Get("/edges", s.listEdges)
		r.Get("/unresolved", s.listUnresolved)
		r.Get("/export", s.getExport)
		r.Post("/export", s.postExport)
		r.Get("/render", s.render)
		r.Get("/speakers", s.listSpeakers)
		r.Get("/events", s.pollEvents)
	})
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.logger.Info("Listening", "addr", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.events.close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// locked runs fn while holding the session lock.
func (s *Server) locked(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn()
}
