package dev

import (
	"errors"
	"fmt"
	"html"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"

	"github.com/vango-dev/pages/pkg/pagehtml"
	"github.com/vango-dev/pages/pkg/routepath"
	"github.com/vango-dev/pages/pkg/router"
)

// bypassPrefixes are request paths the page middleware never resolves.
var bypassPrefixes = []string{"/@", "/__", "/api", "/node_modules"}

// MiddlewareOptions configures PageMiddleware.
type MiddlewareOptions struct {
	// Resolver resolves paths against the pages root. Required.
	Resolver *router.Resolver

	// Global is the window property receiving params (default __PARAMS__).
	Global string

	// Transform post-processes served HTML, e.g. to add the reload client.
	Transform func(html string) string

	// OnError is called for failures that end in a 500. page is nil when
	// resolution itself failed.
	OnError func(r *http.Request, page *router.Page, err error)

	// Logger receives request failures. Nil uses slog.Default().
	Logger *slog.Logger
}

// PageMiddleware serves resolved pages and passes every other request to
// next.
func PageMiddleware(opts MiddlewareOptions) func(http.Handler) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "dev")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if shouldBypass(r) {
				next.ServeHTTP(w, r)
				return
			}

			escaped := r.URL.EscapedPath()
			canonical, err := routepath.Canonicalize(escaped)
			if err != nil {
				http.Error(w, "invalid path", http.StatusBadRequest)
				return
			}

			// Files are left to next once their path is clean.
			if strings.Contains(canonical.Path, ".") {
				if canonical.Changed {
					redirectTo(w, r, canonical.Path)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			if canonical.Changed || !canonical.TrailingSlash {
				redirectToDir(w, r, escaped)
				return
			}

			page, err := opts.Resolver.Resolve(escaped)
			switch {
			case errors.Is(err, router.ErrNotFound):
				next.ServeHTTP(w, r)
				return
			case isPathError(err):
				http.Error(w, "invalid path", http.StatusBadRequest)
				return
			case err != nil:
				fail(w, r, opts, logger, nil, err)
				return
			}

			raw, err := fs.ReadFile(opts.Resolver.FS(), page.HTMLPath)
			if err != nil {
				fail(w, r, opts, logger, page, err)
				return
			}

			html, err := pagehtml.Render(string(raw), page, opts.Global)
			if err != nil {
				fail(w, r, opts, logger, page, err)
				return
			}
			if opts.Transform != nil {
				html = opts.Transform(html)
			}

			logger.Debug("page",
				"path", r.URL.Path,
				"html", page.HTMLPath,
				"fallback", page.IsFallback,
				"params", len(page.Params))

			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.Header().Set("Cache-Control", "no-cache")
			w.WriteHeader(http.StatusOK)
			if r.Method != http.MethodHead {
				w.Write([]byte(html))
			}
		})
	}
}

func shouldBypass(r *http.Request) bool {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		return true
	}
	p := r.URL.Path
	for _, prefix := range bypassPrefixes {
		if strings.HasPrefix(p, prefix) {
			return true
		}
	}
	return false
}

// redirectTo sends a 302 to target, keeping the query string.
func redirectTo(w http.ResponseWriter, r *http.Request, target string) {
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// redirectToDir sends a 302 to the canonical slash-terminated form of the
// path, keeping the query string.
func redirectToDir(w http.ResponseWriter, r *http.Request, escaped string) {
	input := escaped
	if r.URL.RawQuery != "" {
		input += "?" + r.URL.RawQuery
	}
	target, err := routepath.RedirectTarget(input)
	if err != nil {
		http.Error(w, "invalid path", http.StatusBadRequest)
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}

func isPathError(err error) bool {
	return errors.Is(err, routepath.ErrEncodedSlashInSegment) ||
		errors.Is(err, routepath.ErrInvalidPercentEscape)
}

// fail answers a page that could not be rendered. With a Transform the
// answer is an HTML page, so the reload client can recover it once the
// source is fixed.
func fail(w http.ResponseWriter, r *http.Request, opts MiddlewareOptions, logger *slog.Logger, page *router.Page, err error) {
	attrs := []any{"path", r.URL.Path, "error", err}
	if page != nil {
		attrs = append(attrs, "html", page.HTMLPath)
	}
	logger.Error("page failed", attrs...)
	if opts.OnError != nil {
		opts.OnError(r, page, err)
	}

	if opts.Transform == nil {
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	body := opts.Transform(fmt.Sprintf(errorPage, html.EscapeString(r.URL.Path), html.EscapeString(err.Error())))
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusInternalServerError)
	io.WriteString(w, body)
}

const errorPage = `<!DOCTYPE html>
<html>
<head><title>Page error</title></head>
<body style="font-family: system-ui; padding: 40px;">
<h1>Cannot render %s</h1>
<pre>%s</pre>
</body>
</html>`
