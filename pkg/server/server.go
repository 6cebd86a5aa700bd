package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"sync"
	"syscall"

	"mercator-hq/lifecycle/pkg/config"
	"mercator-hq/lifecycle/pkg/controller"
	"mercator-hq/lifecycle/pkg/output"
	"mercator-hq/lifecycle/pkg/telemetry/health"
	"mercator-hq/lifecycle/pkg/telemetry/tracing"
)

var (
	// ErrServerRunning is returned when the server is started twice, or a
	// route is added after start.
	ErrServerRunning = errors.New("server is already running")

	// ErrInvalidRoute is returned for an empty or relative route path.
	ErrInvalidRoute = errors.New("route path must start with /")

	// ErrDuplicateRoute is returned when a path is registered twice.
	ErrDuplicateRoute = errors.New("route already registered")

	// ErrServerStopped is returned when a stopped server is started again.
	ErrServerStopped = errors.New("server cannot be restarted")
)

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithTracer wraps every request in a server span and every dispatch in a
// child span.
func WithTracer(t *tracing.Tracer) Option {
	return func(s *Server) {
		s.tracer = t
	}
}

// WithHealth mounts liveness, readiness and version endpoints.
func WithHealth(checker *health.Checker, cfg config.HealthConfig, info health.VersionInfo) Option {
	return func(s *Server) {
		s.checker = checker
		s.healthConfig = cfg
		s.version = info
	}
}

// WithMetrics mounts handler at path.
func WithMetrics(path string, handler http.Handler) Option {
	return func(s *Server) {
		s.metricsPath = path
		s.metricsHandler = handler
	}
}

// WithRenderer sets the view renderer used by HTTP handlers.
func WithRenderer(r output.ViewRenderer) Option {
	return func(s *Server) {
		s.renderer = r
	}
}

// Server serves registered controller handlers over HTTP and websocket
// connections.
type Server struct {
	config     *config.ServerConfig
	dispatcher *controller.Dispatcher
	logger     *slog.Logger
	tracer     *tracing.Tracer
	renderer   output.ViewRenderer

	checker      *health.Checker
	healthConfig config.HealthConfig
	version      health.VersionInfo

	metricsPath    string
	metricsHandler http.Handler

	httpServer   *http.Server
	listener     net.Listener
	ready        chan struct{}
	shutdownChan chan struct{}
	shutdownOnce sync.Once

	mu        sync.RWMutex
	routes    map[string]controller.Handler
	conns     map[*output.Conn]struct{}
	isRunning bool
	started   bool
}

// NewServer creates a server that runs handlers through dispatcher.
func NewServer(cfg *config.ServerConfig, dispatcher *controller.Dispatcher, opts ...Option) *Server {
	s := &Server{
		config:       cfg,
		dispatcher:   dispatcher,
		logger:       slog.Default(),
		ready:        make(chan struct{}),
		shutdownChan: make(chan struct{}),
		routes:       make(map[string]controller.Handler),
		conns:        make(map[*output.Conn]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "server")
	return s
}

// Handle registers h for path. The handler serves HTTP requests to path and
// websocket frames addressed to path. Routes must be added before Start.
func (s *Server) Handle(path string, h controller.Handler) error {
	if !strings.HasPrefix(path, "/") {
		return fmt.Errorf("%w: %q", ErrInvalidRoute, path)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return ErrServerRunning
	}
	if _, exists := s.routes[path]; exists || s.reserved(path) {
		return fmt.Errorf("%w: %s", ErrDuplicateRoute, path)
	}
	s.routes[path] = h
	return nil
}

// Routes returns the registered handler paths, sorted.
func (s *Server) Routes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	paths := make([]string, 0, len(s.routes))
	for path := range s.routes {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

// reserved reports whether path is taken by a built-in endpoint.
func (s *Server) reserved(path string) bool {
	switch {
	case s.config.WebSocket.Enabled && path == s.config.WebSocket.Path:
		return true
	case s.metricsHandler != nil && path == s.metricsPath:
		return true
	case s.checker != nil && s.healthConfig.Enabled:
		return path == s.healthConfig.LivenessPath || path == s.healthConfig.ReadinessPath || path == "/version"
	}
	return false
}

// route returns the handler registered for path.
func (s *Server) route(path string) (controller.Handler, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h, ok := s.routes[path]
	return h, ok
}

// Start listens on the configured address and serves until ctx is done, a
// shutdown signal arrives or Shutdown is called.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return ErrServerRunning
	}
	if s.started {
		s.mu.Unlock()
		return ErrServerStopped
	}
	s.isRunning = true
	s.started = true
	s.mu.Unlock()

	listener, err := net.Listen("tcp", s.config.ListenAddress)
	if err != nil {
		s.mu.Lock()
		s.isRunning = false
		s.started = false
		s.mu.Unlock()
		return fmt.Errorf("failed to listen on %s: %w", s.config.ListenAddress, err)
	}

	s.httpServer = &http.Server{
		Handler:        s.Handler(),
		ReadTimeout:    s.config.ReadTimeout,
		WriteTimeout:   s.config.WriteTimeout,
		IdleTimeout:    s.config.IdleTimeout,
		MaxHeaderBytes: s.config.MaxHeaderBytes,
	}
	s.listener = listener
	close(s.ready)

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting server",
			"address", listener.Addr().String(),
			"routes", len(s.Routes()),
		)
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case sig := <-sigChan:
		s.logger.Info("received shutdown signal", "signal", sig.String())
		return s.Shutdown(context.Background())
	case err := <-errChan:
		_ = s.Shutdown(context.Background())
		return err
	case <-s.shutdownChan:
		return nil
	}
}

// Ready is closed once the server is listening.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Addr returns the listening address, or nil before Start.
func (s *Server) Addr() net.Addr {
	select {
	case <-s.ready:
		return s.listener.Addr()
	default:
		return nil
	}
}

// Shutdown stops accepting requests, closes open websocket connections,
// which aborts their in-flight requests, and waits for HTTP requests to
// finish up to the shutdown timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.RLock()
		running := s.isRunning
		s.mu.RUnlock()
		if !running {
			return
		}

		s.logger.Info("initiating graceful shutdown", "timeout", s.config.ShutdownTimeout.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
		defer cancel()

		if s.httpServer != nil {
			if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
				s.logger.Error("error during server shutdown", "error", err)
				shutdownErr = fmt.Errorf("server shutdown error: %w", err)
			}
		}
		s.closeConns()

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()
		close(s.shutdownChan)

		s.logger.Info("server stopped")
	})

	return shutdownErr
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Handler returns the routed handler wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	if s.checker != nil && s.healthConfig.Enabled {
		s.checker.Register(mux, s.healthConfig.LivenessPath, s.healthConfig.ReadinessPath, s.version)
	}
	if s.metricsHandler != nil && s.metricsPath != "" {
		mux.Handle(s.metricsPath, s.metricsHandler)
	}
	if s.config.WebSocket.Enabled {
		mux.Handle(s.config.WebSocket.Path, s.websocketHandler())
	}
	for _, path := range s.Routes() {
		h, _ := s.route(path)
		mux.Handle(path, s.httpHandler(path, h))
	}

	// Middleware, innermost first.
	var handler http.Handler = mux
	if s.tracer != nil {
		handler = s.tracer.HTTPMiddleware(handler)
	}
	handler = LoggingMiddleware(s.logger)(handler)
	handler = RequestIDMiddleware(handler)
	handler = RecoveryMiddleware(s.logger)(handler)
	return handler
}

func (s *Server) trackConn(c *output.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conns[c] = struct{}{}
}

func (s *Server) untrackConn(c *output.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, c)
}

// closeConns closes every open websocket connection.
func (s *Server) closeConns() {
	s.mu.Lock()
	conns := make([]*output.Conn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		_ = c.Close()
	}
}
