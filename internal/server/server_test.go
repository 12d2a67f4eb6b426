package server

import (
	"compress/gzip"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/goleak"

	"github.com/vango-dev/pages/internal/config"
	"github.com/vango-dev/pages/internal/errors"
)

const rootHTML = `<html><head><title>Home</title></head><body><script type="module" src="./index.tsx"></script></body></html>`

func newTestConfig(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"dist/index.html":               rootHTML,
		"dist/index.tsx":                "console.log('root')",
		"dist/about/index.html":         "<html><head></head><body>about</body></html>",
		"dist/orders/[id]/index.tsx":    "console.log('order')",
		"dist/assets/index-BxkqN3aE.js": strings.Repeat("console.log('x');\n", 200),
		"dist/vite.svg":                 "<svg></svg>",
		"dist/manifest.json":            `{"pages":{"main":"index.html"},"builtAt":"2026-10-18T00:00:00Z"}`,
	}
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	cfg := config.New()
	cfg.SetDir(root)
	return cfg
}

func newTestServer(t *testing.T, cfg *config.Config) *Server {
	t.Helper()
	srv, err := New(cfg, Options{Registry: prometheus.NewRegistry()})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return srv
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestNewRequiresOutput(t *testing.T) {
	cfg := config.New()
	cfg.SetDir(t.TempDir())
	_, err := New(cfg, Options{})
	if !errors.HasCode(err, "E144") {
		t.Errorf("New() error = %v, want E144", err)
	}
}

func TestServePages(t *testing.T) {
	h := newTestServer(t, newTestConfig(t)).Handler()

	tests := []struct {
		name     string
		target   string
		status   int
		contains []string
	}{
		{
			name:     "root",
			target:   "/",
			status:   http.StatusOK,
			contains: []string{`window.__PARAMS__ = {}`, `src="./index.tsx"`},
		},
		{
			name:     "static page",
			target:   "/about",
			status:   http.StatusOK,
			contains: []string{"about"},
		},
		{
			name:     "dynamic fallback",
			target:   "/orders/123/",
			status:   http.StatusOK,
			contains: []string{`{"id":"123"}`, `src="/orders/[id]/index.tsx"`},
		},
		{
			name:     "missing",
			target:   "/nope/",
			status:   http.StatusNotFound,
			contains: []string{"no page found"},
		},
		{
			name:   "encoded slash",
			target: "/orders/a%2Fb/",
			status: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, h, tt.target)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.status, rec.Body.String())
			}
			for _, want := range tt.contains {
				if !strings.Contains(rec.Body.String(), want) {
					t.Errorf("body missing %q:\n%s", want, rec.Body.String())
				}
			}
		})
	}
}

func TestServePageHeaders(t *testing.T) {
	h := newTestServer(t, newTestConfig(t)).Handler()
	rec := get(t, h, "/orders/1/")
	if ct := rec.Header().Get("Content-Type"); ct != "text/html; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
	if cc := rec.Header().Get("Cache-Control"); cc != "no-cache" {
		t.Errorf("Cache-Control = %q", cc)
	}
}

func TestServeStatic(t *testing.T) {
	h := newTestServer(t, newTestConfig(t)).Handler()

	rec := get(t, h, "/assets/index-BxkqN3aE.js")
	if rec.Code != http.StatusOK {
		t.Fatalf("asset status = %d", rec.Code)
	}
	if cc := rec.Header().Get("Cache-Control"); !strings.Contains(cc, "immutable") {
		t.Errorf("asset Cache-Control = %q", cc)
	}

	rec = get(t, h, "/vite.svg")
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "image/svg+xml" {
		t.Errorf("/vite.svg: %d %q", rec.Code, rec.Header().Get("Content-Type"))
	}

	rec = get(t, h, "/orders/[id]/index.tsx")
	if rec.Code != http.StatusOK || rec.Body.String() != "console.log('order')" {
		t.Errorf("entry script: %d %q", rec.Code, rec.Body.String())
	}

	for _, target := range []string{"/missing.js", "/assets/../../secret.txt", "/assets"} {
		if rec := get(t, h, target); rec.Code != http.StatusNotFound {
			t.Errorf("%s: status %d, want 404", target, rec.Code)
		}
	}
}

func TestHealth(t *testing.T) {
	h := newTestServer(t, newTestConfig(t)).Handler()
	rec := get(t, h, "/api/health")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok":true`) {
		t.Errorf("/api/health: %d %s", rec.Code, rec.Body.String())
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestServer(t, newTestConfig(t)).Handler()
	get(t, h, "/orders/1/")
	get(t, h, "/about/")
	get(t, h, "/nope/")
	if rec := get(t, h, "/orders/a%2Fb/"); rec.Code != http.StatusBadRequest {
		t.Errorf("/orders/a%%2Fb/ status = %d, want 400", rec.Code)
	}

	rec := get(t, h, MetricsPath)
	if rec.Code != http.StatusOK {
		t.Fatalf("/metrics status = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		`pages_page_resolutions_total{result="fallback"} 1`,
		`pages_page_resolutions_total{result="page"} 1`,
		`pages_page_resolutions_total{result="not_found"} 1`,
		`pages_page_resolutions_total{result="invalid"} 1`,
		`pages_http_requests_total{route="/*",status="404"} 1`,
		`pages_http_requests_total{route="/*",status="400"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

func TestMetricsDisabled(t *testing.T) {
	cfg := newTestConfig(t)
	off := false
	cfg.Server.Metrics = &off
	h := newTestServer(t, cfg).Handler()

	// Without the metrics route, /metrics resolves as a page.
	if rec := get(t, h, MetricsPath); rec.Code != http.StatusNotFound {
		t.Errorf("/metrics status = %d, want 404", rec.Code)
	}
	if rec := get(t, h, "/"); rec.Code != http.StatusOK {
		t.Errorf("/ status = %d", rec.Code)
	}
}

func TestCompression(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Server.Compression.Enabled = true
	cfg.Server.Compression.MinSize = 100
	h := newTestServer(t, cfg).Handler()

	req := httptest.NewRequest(http.MethodGet, "/assets/index-BxkqN3aE.js", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if enc := rec.Header().Get("Content-Encoding"); enc != "gzip" {
		t.Fatalf("Content-Encoding = %q, want gzip", enc)
	}
	zr, err := gzip.NewReader(rec.Body)
	if err != nil {
		t.Fatal(err)
	}
	body, err := io.ReadAll(zr)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(body), "console.log('x');") {
		t.Errorf("decompressed body = %.40q", body)
	}
}

func TestCompressionDisabled(t *testing.T) {
	h := newTestServer(t, newTestConfig(t)).Handler()
	req := httptest.NewRequest(http.MethodGet, "/assets/index-BxkqN3aE.js", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if enc := rec.Header().Get("Content-Encoding"); enc != "" {
		t.Errorf("Content-Encoding = %q, want none", enc)
	}
}

func TestStartAndShutdown(t *testing.T) {
	defer goleak.VerifyNone(t)
	t.Setenv("PORT", "")

	cfg := newTestConfig(t)
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 0
	srv := newTestServer(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()

	select {
	case <-srv.Ready():
	case err := <-done:
		t.Fatalf("Start() error: %v", err)
	}

	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	resp, err := client.Get("http://" + srv.Addr() + "/orders/7/")
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), `{"id":"7"}`) {
		t.Errorf("body = %s", body)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start() returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestStartAgainAfterShutdown(t *testing.T) {
	defer goleak.VerifyNone(t)
	t.Setenv("PORT", "")

	cfg := newTestConfig(t)
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 0
	srv := newTestServer(t, cfg)
	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}

	for run := 1; run <= 2; run++ {
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- srv.Start(ctx) }()

		select {
		case <-srv.Ready():
		case err := <-done:
			cancel()
			t.Fatalf("run %d: Start() error: %v", run, err)
		}

		if err := srv.Start(ctx); err != ErrRunning {
			t.Errorf("run %d: concurrent Start() = %v, want ErrRunning", run, err)
		}

		resp, err := client.Get("http://" + srv.Addr() + "/api/health")
		if err != nil {
			cancel()
			t.Fatalf("run %d: %v", run, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("run %d: health status %d", run, resp.StatusCode)
		}

		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("run %d: Start() returned %v", run, err)
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("run %d: server did not shut down", run)
		}
		if addr := srv.Addr(); addr != "" {
			t.Errorf("run %d: Addr() after shutdown = %q", run, addr)
		}
	}
}
