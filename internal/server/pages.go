package server

import (
	"errors"
	"io"
	"io/fs"
	"net/http"
	"strings"

	"github.com/vango-dev/pages/pkg/assets"
	"github.com/vango-dev/pages/pkg/middleware"
	"github.com/vango-dev/pages/pkg/pagehtml"
	"github.com/vango-dev/pages/pkg/routepath"
	"github.com/vango-dev/pages/pkg/router"
)

// servePage serves a file for paths naming one and a resolved page for
// everything else.
func (s *Server) servePage(w http.ResponseWriter, r *http.Request) {
	if strings.Contains(r.URL.Path, ".") {
		s.serveStatic(w, r)
		return
	}

	page, err := s.resolver.Resolve(r.URL.EscapedPath())
	switch {
	case errors.Is(err, router.ErrNotFound):
		s.metrics.RecordResolution(middleware.ResolutionNotFound)
		http.Error(w, "no page found", http.StatusNotFound)
		return
	case isPathError(err):
		s.metrics.RecordResolution(middleware.ResolutionInvalid)
		http.Error(w, "invalid path", http.StatusBadRequest)
		return
	case err != nil:
		s.fail(w, r, err)
		return
	}

	raw, err := fs.ReadFile(s.resolver.FS(), page.HTMLPath)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	html, err := pagehtml.Render(string(raw), page, s.config.Params.Global)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	if page.IsFallback {
		s.metrics.RecordResolution(middleware.ResolutionFallback)
	} else {
		s.metrics.RecordResolution(middleware.ResolutionPage)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", assets.CacheNone)
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		w.Write([]byte(html))
	}
}

// serveStatic serves a regular file from the output directory.
func (s *Server) serveStatic(w http.ResponseWriter, r *http.Request) {
	rel, ok := assets.RelPath(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}

	f, err := s.resolver.FS().Open(rel)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || !info.Mode().IsRegular() {
		http.NotFound(w, r)
		return
	}

	content, ok := f.(io.ReadSeeker)
	if !ok {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", assets.ContentType(rel))
	w.Header().Set("Cache-Control", assets.CacheControl(rel))
	http.ServeContent(w, r, rel, info.ModTime(), content)
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	s.metrics.RecordResolution(middleware.ResolutionError)
	s.logger.Error("page failed", "path", r.URL.Path, "error", err)
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

func isPathError(err error) bool {
	return errors.Is(err, routepath.ErrEncodedSlashInSegment) ||
		errors.Is(err, routepath.ErrInvalidPercentEscape) ||
		errors.Is(err, routepath.ErrPathEscapesRoot) ||
		errors.Is(err, routepath.ErrBackslashInPath) ||
		errors.Is(err, routepath.ErrNullByteInPath) ||
		errors.Is(err, routepath.ErrInvalidPath)
}
