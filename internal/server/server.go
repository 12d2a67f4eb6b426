package server

import (
	"compress/gzip"
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/klauspost/compress/gzhttp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/pages/internal/api"
	"github.com/vango-dev/pages/internal/build"
	"github.com/vango-dev/pages/internal/config"
	pageserrors "github.com/vango-dev/pages/internal/errors"
	"github.com/vango-dev/pages/pkg/middleware"
	"github.com/vango-dev/pages/pkg/router"
)

// MetricsPath is where Prometheus metrics are exposed.
const MetricsPath = "/metrics"

// ShutdownTimeout bounds graceful shutdown after the context is cancelled.
const ShutdownTimeout = 10 * time.Second

// ErrRunning is returned by Start while a previous Start is still serving.
var ErrRunning = errors.New("server already running")

// Options configures the production server.
type Options struct {
	// Logger receives server logs. Nil uses slog.Default().
	Logger *slog.Logger

	// Registry collects metrics. Nil creates a fresh registry with Go and
	// process collectors.
	Registry *prometheus.Registry

	// TracerProvider creates request spans. Nil uses the global provider.
	TracerProvider trace.TracerProvider
}

// Server serves a build output directory.
type Server struct {
	config   *config.Config
	logger   *slog.Logger
	root     string
	resolver *router.Resolver
	metrics  *middleware.Metrics
	registry *prometheus.Registry
	tracer   trace.TracerProvider
	manifest *build.Manifest

	mu         sync.Mutex
	running    bool
	listener   net.Listener
	httpServer *http.Server
	ready      chan struct{}
}

// New creates a server for cfg's output directory, which must exist.
func New(cfg *config.Config, opts Options) (*Server, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "server")

	root := cfg.OutputPath()
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return nil, pageserrors.New("E144").WithDetail("output directory " + root + " not found")
	}

	s := &Server{
		config:   cfg,
		logger:   logger,
		root:     root,
		resolver: router.NewResolver(os.DirFS(root), router.WithEntry(cfg.Paths.Entry)),
		tracer:   opts.TracerProvider,
		ready:    make(chan struct{}),
	}

	if cfg.MetricsEnabled() {
		s.registry = opts.Registry
		if s.registry == nil {
			s.registry = prometheus.NewRegistry()
			s.registry.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
		}
		s.metrics = middleware.NewMetrics(middleware.WithRegistry(s.registry))
	}

	if m, err := build.ReadManifest(root); err == nil {
		s.manifest = m
	} else if !errors.Is(err, os.ErrNotExist) {
		logger.Warn("manifest unreadable", "error", err)
	}

	return s, nil
}

// Handler returns the server's HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestLogger(s.logger))
	r.Use(chimw.Recoverer)
	if s.config.TracingEnabled() {
		r.Use(middleware.OpenTelemetry(
			middleware.WithTracerProvider(s.tracer),
			middleware.WithRequestFilter(func(r *http.Request) bool {
				return r.URL.Path != MetricsPath
			}),
		))
	}
	if s.metrics != nil {
		r.Use(s.metrics.Handler)
		r.Method(http.MethodGet, MetricsPath, promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	}

	api.Routes(r)
	r.Get("/*", s.servePage)
	r.Head("/*", s.servePage)

	return s.compress(r)
}

// compress wraps h with gzip when server.compression is enabled.
func (s *Server) compress(h http.Handler) http.Handler {
	cfg := s.config.Server.Compression
	if !cfg.Enabled || cfg.Level == "none" {
		return h
	}

	level := gzip.DefaultCompression
	switch cfg.Level {
	case "fastest":
		level = gzip.BestSpeed
	case "best":
		level = gzip.BestCompression
	}

	minSize := cfg.MinSize
	if minSize <= 0 {
		minSize = gzhttp.DefaultMinSize
	}
	wrapper, err := gzhttp.NewWrapper(
		gzhttp.MinSize(minSize),
		gzhttp.CompressionLevel(level),
	)
	if err != nil {
		s.logger.Warn("compression disabled", "error", err)
		return h
	}
	return wrapper(h)
}

// Start listens on the configured address and serves until ctx is
// cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrRunning
	}
	ln, err := net.Listen("tcp", s.config.ServerAddress())
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.running = true
	s.listener = ln
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	httpServer := s.httpServer
	close(s.ready)
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.listener = nil
		s.ready = make(chan struct{})
		s.mu.Unlock()
	}()

	attrs := []any{"address", ln.Addr().String(), "root", s.root}
	if s.manifest != nil {
		attrs = append(attrs, "pages", len(s.manifest.Pages), "built", s.manifest.BuiltAt)
	}
	s.logger.Info("server starting", attrs...)

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("shutdown error", "error", err)
		return err
	}
	<-errCh
	s.logger.Info("server shutdown complete")
	return nil
}

// Ready is closed once the server is listening. Each run of Start gets a
// new channel.
func (s *Server) Ready() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

// Addr returns the listening address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}
