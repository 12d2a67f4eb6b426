package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// RequestLogger returns chi request logging middleware that writes one
// structured record per request. Panics recovered by chi's Recoverer are
// logged through the same logger.
func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return chimw.RequestLogger(&slogFormatter{logger: logger})
}

type slogFormatter struct {
	logger *slog.Logger
}

func (f *slogFormatter) NewLogEntry(r *http.Request) chimw.LogEntry {
	return &slogEntry{
		logger: f.logger.With(
			"method", r.Method,
			"path", r.URL.Path,
			"remote", r.RemoteAddr,
		),
	}
}

type slogEntry struct {
	logger *slog.Logger
}

func (e *slogEntry) Write(status, bytes int, _ http.Header, elapsed time.Duration, _ interface{}) {
	level := slog.LevelInfo
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	e.logger.Log(context.Background(), level, "request",
		"status", status,
		"bytes", bytes,
		"duration", elapsed)
}

func (e *slogEntry) Panic(v interface{}, stack []byte) {
	e.logger.Error("panic", "panic", v, "stack", string(stack))
}
