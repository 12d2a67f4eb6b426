package dev

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/vango-dev/pages/internal/api"
	"github.com/vango-dev/pages/internal/config"
	pageserrors "github.com/vango-dev/pages/internal/errors"
	"github.com/vango-dev/pages/pkg/middleware"
	"github.com/vango-dev/pages/pkg/pagehtml"
	"github.com/vango-dev/pages/pkg/router"
)

// ServerOptions configures the development server.
type ServerOptions struct {
	// Config is the project configuration.
	Config *config.Config

	// Logger receives server logs. Nil uses slog.Default().
	Logger *slog.Logger

	// OnReload is called after browsers are told to reload.
	OnReload func(clients int)
}

// Server is the development server.
type Server struct {
	config       *config.Config
	options      ServerOptions
	logger       *slog.Logger
	resolver     *router.Resolver
	watcher      *Watcher
	hub          *Hub
	upstream     *httputil.ReverseProxy
	transport    *http.Transport
	hotReload    bool

	mu         sync.Mutex
	running    bool
	cancel     context.CancelFunc
	listener   net.Listener
	httpServer *http.Server
	ready      chan struct{}
}

// NewServer creates a new development server.
func NewServer(options ServerOptions) (*Server, error) {
	cfg := options.Config
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "dev")

	s := &Server{
		config:    cfg,
		options:   options,
		logger:    logger,
		resolver:  router.NewResolver(os.DirFS(cfg.PagesPath()), router.WithEntry(cfg.Paths.Entry)),
		hotReload: cfg.HotReloadEnabled(),
		ready:     make(chan struct{}),
	}

	if cfg.Dev.Upstream != "" {
		target, err := url.Parse(cfg.Dev.Upstream)
		if err != nil || target.Scheme == "" || target.Host == "" {
			return nil, pageserrors.New("E120").
				WithDetail("dev.upstream must be an absolute URL, got " + strconv.Quote(cfg.Dev.Upstream))
		}
		s.upstream = s.newUpstreamProxy(target)
		s.transport = s.upstream.Transport.(*http.Transport)
	}

	if s.hotReload {
		s.hub = NewHub(logger)
		s.watcher = NewWatcher(WatcherConfig{
			Paths:    CollectWatchPaths(cfg),
			Ignore:   append(append([]string{}, DefaultIgnore...), cfg.Dev.Ignore...),
			Debounce: 100 * time.Millisecond,
			Logger:   logger,
		})
		s.watcher.OnChange(s.handleChanges)
	}

	return s, nil
}

// Handler returns the dev server's HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestLogger(s.logger))
	r.Use(chimw.Recoverer)

	api.Routes(r)
	if s.reloadEnabled() {
		r.Handle(ReloadPath, s.hub)
	}

	pages := PageMiddleware(MiddlewareOptions{
		Resolver:  s.resolver,
		Global:    s.config.Params.Global,
		Transform: s.injectClient,
		OnError:   s.notifyError,
		Logger:    s.logger,
	})

	var fallback http.Handler = http.HandlerFunc(s.serveStatic)
	if s.upstream != nil {
		fallback = s.upstream
	}
	r.Handle("/*", pages(fallback))
	return r
}

// Start starts the development server and blocks until ctx is cancelled,
// Stop is called or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	ln, err := net.Listen("tcp", s.config.DevAddress())
	if err != nil {
		s.mu.Unlock()
		return err
	}
	ctx, cancel := context.WithCancel(ctx)
	s.running = true
	s.cancel = cancel
	s.listener = ln
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	httpServer := s.httpServer
	close(s.ready)
	s.mu.Unlock()

	defer func() {
		cancel()
		s.mu.Lock()
		s.running = false
		s.cancel = nil
		s.listener = nil
		s.ready = make(chan struct{})
		s.mu.Unlock()
	}()

	s.logger.Info("Server running", "url", s.url(ln.Addr()), "pages", s.config.PagesPath())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if s.watcher != nil {
		g.Go(func() error {
			return s.watcher.Start(gctx)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		err := httpServer.Shutdown(shutdownCtx)
		if s.hub != nil {
			s.hub.Close()
		}
		if s.transport != nil {
			s.transport.CloseIdleConnections()
		}
		return err
	})

	return g.Wait()
}

// Stop stops the development server.
func (s *Server) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Ready is closed once the server is listening. Each run of Start gets a
// new channel, so call Ready again after a restart.
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

// URL returns the URL browsers should open.
func (s *Server) URL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return s.config.DevURL()
	}
	return s.url(s.listener.Addr())
}

func (s *Server) url(addr net.Addr) string {
	host := s.config.Dev.Host
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	if tcp, ok := addr.(*net.TCPAddr); ok {
		return "http://" + net.JoinHostPort(host, strconv.Itoa(tcp.Port)) + "/"
	}
	return s.config.DevURL()
}

// handleChanges handles a batch of file changes.
func (s *Server) handleChanges(changes []Change) {
	if len(changes) == 0 {
		return
	}

	cssOnly := true
	for _, change := range changes {
		s.logger.Info("Changed", "path", change.Path, "type", change.Type.String(), "removed", change.Removed)
		if change.Type != ChangeCSS {
			cssOnly = false
		}
	}

	if !s.reloadEnabled() {
		return
	}
	s.hub.Clear()

	if cssOnly {
		var paths []string
		for _, change := range changes {
			if p := s.urlPathOf(change.Path); p != "" {
				paths = append(paths, p)
			}
		}
		s.hub.CSS(paths...)
		s.logger.Info("CSS refreshed", "paths", paths, "clients", s.hub.Clients())
		return
	}

	s.hub.Reload()
	clients := s.hub.Clients()
	if s.options.OnReload != nil {
		s.options.OnReload(clients)
	}
	s.logger.Info("Reloaded browsers", "clients", clients)
}

// urlPathOf maps a watched file to the URL it is served at.
func (s *Server) urlPathOf(file string) string {
	for _, root := range []string{s.config.PagesPath(), s.config.PublicPath()} {
		if rel, err := filepath.Rel(root, file); err == nil && !strings.HasPrefix(rel, "..") {
			return "/" + filepath.ToSlash(rel)
		}
	}
	return ""
}

// serveStatic serves files from the pages root, then the public directory.
func (s *Server) serveStatic(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/")
	if name == "" || !fsValid(name) {
		http.NotFound(w, r)
		return
	}
	for _, root := range []string{s.config.PagesPath(), s.config.PublicPath()} {
		fsys := os.DirFS(root)
		if isRegular(fsys, name) {
			http.ServeFileFS(w, r, fsys, name)
			return
		}
	}
	http.NotFound(w, r)
}

// newUpstreamProxy proxies to an external dev server and injects the
// reload client into its HTML responses.
func (s *Server) newUpstreamProxy(target *url.URL) *httputil.ReverseProxy {
	proxy := httputil.NewSingleHostReverseProxy(target)

	// Otherwise the transport re-adds "Accept-Encoding: gzip".
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DisableCompression = true
	proxy.Transport = transport

	director := proxy.Director
	proxy.Director = func(r *http.Request) {
		director(r)
		// Compressed bodies cannot be rewritten.
		r.Header.Del("Accept-Encoding")
	}

	proxy.ModifyResponse = func(resp *http.Response) error {
		if !s.reloadEnabled() {
			return nil
		}
		if !strings.Contains(resp.Header.Get("Content-Type"), "text/html") {
			return nil
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		resp.Body.Close()

		html := s.injectClient(string(body))
		resp.Body = io.NopCloser(strings.NewReader(html))
		resp.ContentLength = int64(len(html))
		resp.Header.Set("Content-Length", strconv.Itoa(len(html)))
		return nil
	}

	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		s.logger.Warn("upstream unavailable", "upstream", target.String(), "error", err)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusBadGateway)
		fmt.Fprintf(w, `<!DOCTYPE html>
<html>
<head><title>pages dev server</title></head>
<body style="font-family: system-ui; padding: 40px;">
<h1>Upstream Not Running</h1>
<p>%s is not responding. The page reloads when it is back.</p>
%s
</body>
</html>`, target.String(), s.clientScript())
	}

	return proxy
}

func (s *Server) reloadEnabled() bool {
	return s.hotReload && s.hub != nil
}

func (s *Server) clientScript() string {
	if !s.reloadEnabled() {
		return ""
	}
	return DevClientScript
}

func (s *Server) injectClient(html string) string {
	if !s.reloadEnabled() {
		return html
	}
	return pagehtml.InjectBeforeBodyEnd(html, DevClientScript)
}

// notifyError shows a render failure in the browsers looking at the page.
func (s *Server) notifyError(r *http.Request, page *router.Page, err error) {
	if !s.reloadEnabled() {
		return
	}
	source := ""
	if page != nil {
		source = path.Join(filepath.ToSlash(s.config.Paths.Pages), page.HTMLPath)
	}
	s.hub.PageFailed(r.URL.EscapedPath(), source, err)
}

func fsValid(name string) bool {
	return fs.ValidPath(name)
}

func isRegular(fsys fs.FS, name string) bool {
	info, err := fs.Stat(fsys, name)
	return err == nil && info.Mode().IsRegular()
}
