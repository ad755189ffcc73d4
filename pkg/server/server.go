package server

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/geoportal-dev/hashsync/pkg/bookmark"
	"github.com/geoportal-dev/hashsync/pkg/hashcodec"
	"github.com/geoportal-dev/hashsync/pkg/middleware"
	"github.com/geoportal-dev/hashsync/pkg/protocol"
)

const tracerName = "github.com/geoportal-dev/hashsync/pkg/server"

// Server is the HTTP/WebSocket server.
type Server struct {
	config   *Config
	table    *hashcodec.Table
	store    bookmark.Store
	metrics  *middleware.Metrics
	gatherer prometheus.Gatherer
	tp       trace.TracerProvider
	tracer   trace.Tracer
	base     *slog.Logger
	logger   *slog.Logger
	upgrader websocket.Upgrader

	onSession func(*Session)

	router     chi.Router
	httpServer *http.Server

	mu       sync.Mutex
	sessions map[string]*Session
	wg       sync.WaitGroup
}

// Option configures a Server.
type Option func(*Server)

// WithTable sets the fragment table used by every session.
func WithTable(t *hashcodec.Table) Option {
	return func(s *Server) {
		s.table = t
	}
}

// WithBookmarkStore sets the bookmark store.
func WithBookmarkStore(store bookmark.Store) Option {
	return func(s *Server) {
		s.store = store
	}
}

// WithMetrics sets the metrics collector and the gatherer served on
// /metrics.
func WithMetrics(m *middleware.Metrics, g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.metrics = m
		s.gatherer = g
	}
}

// WithLogger sets the base logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.base = l
	}
}

// WithTracerProvider sets the tracer provider for HTTP and provider spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Server) {
		s.tp = tp
	}
}

// WithOnSession registers a hook that runs after a session's handshake
// and before its read loop starts. It is the place to register pop-state
// listeners.
func WithOnSession(fn func(*Session)) Option {
	return func(s *Server) {
		s.onSession = fn
	}
}

// New creates a Server. A nil config uses DefaultConfig.
func New(config *Config, opts ...Option) *Server {
	s := &Server{
		config:   config.withDefaults(),
		sessions: make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.table == nil {
		s.table = hashcodec.MustGeoportal()
	}
	if s.store == nil {
		s.store = bookmark.NewMemoryStore()
	}
	if s.metrics == nil {
		reg := prometheus.NewRegistry()
		s.metrics = middleware.NewMetrics(middleware.WithRegistry(reg))
		s.gatherer = reg
	}
	if s.gatherer == nil {
		s.gatherer = prometheus.DefaultGatherer
	}
	if s.tp == nil {
		s.tp = otel.GetTracerProvider()
	}
	s.tracer = s.tp.Tracer(tracerName)
	if s.base == nil {
		s.base = slog.Default()
	}
	s.logger = s.base.With("component", "server")

	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  s.config.ReadBufferSize,
		WriteBufferSize: s.config.WriteBufferSize,
		CheckOrigin:     s.config.checkOrigin(),
	}
	s.router = s.routes()
	return s
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Config returns the server configuration.
func (s *Server) Config() *Config {
	return s.config
}

// Table returns the fragment table.
func (s *Server) Table() *hashcodec.Table {
	return s.table
}

// Store returns the bookmark store.
func (s *Server) Store() bookmark.Store {
	return s.store
}

// Metrics returns the metrics collector.
func (s *Server) Metrics() *middleware.Metrics {
	return s.metrics
}

// Session returns the live session with id, or nil.
func (s *Server) Session(id string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[id]
}

// SessionCount returns the number of live sessions.
func (s *Server) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Server) addSession(sess *Session) {
	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.mu.Unlock()
	s.metrics.SessionOpened()
}

func (s *Server) removeSession(sess *Session) {
	s.mu.Lock()
	_, ok := s.sessions[sess.id]
	delete(s.sessions, sess.id)
	s.mu.Unlock()
	if ok {
		s.metrics.SessionClosed()
	}
}

// Run listens on the configured address and blocks until ctx is done,
// SIGINT/SIGTERM is received, or the listener fails.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:              s.config.Address,
		Handler:           s.router,
		ReadHeaderTimeout: s.config.ReadHeaderTimeout,
		IdleTimeout:       s.config.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "address", s.config.Address)
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != http.ErrServerClosed {
			return err
		}
		return nil
	case <-ctx.Done():
		s.logger.Info("shutting down...")
		return s.Shutdown(context.Background())
	}
}

// Shutdown closes every session with a server-shutdown close message and
// stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	s.mu.Lock()
	sessions := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.mu.Unlock()
	for _, sess := range sessions {
		sess.closeWith(protocol.CloseServerShutdown, "server shutting down")
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.logger.Warn("sessions did not finish before shutdown deadline", "remaining", s.SessionCount())
	}

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.Error("shutdown error", "error", err)
			return err
		}
	}
	if err := s.store.Close(); err != nil {
		s.logger.Warn("bookmark store close failed", "error", err)
	}
	s.logger.Info("server shutdown complete")
	return nil
}

// writeDeadline is the deadline for one frame write started now.
func (s *Server) writeDeadline() time.Time {
	return time.Now().Add(s.config.WriteTimeout)
}
