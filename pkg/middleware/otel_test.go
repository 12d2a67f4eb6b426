package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/embedded"
	"go.opentelemetry.io/otel/trace/noop"
)

type recordedSpan struct {
	trace.Span
	name   string
	attrs  map[attribute.Key]attribute.Value
	status codes.Code
	ended  bool
}

func (s *recordedSpan) SetAttributes(kv ...attribute.KeyValue) {
	for _, a := range kv {
		s.attrs[a.Key] = a.Value
	}
}

func (s *recordedSpan) SetStatus(code codes.Code, _ string) { s.status = code }
func (s *recordedSpan) End(...trace.SpanEndOption)         { s.ended = true }

type recordingTracer struct {
	embedded.Tracer
	mu    sync.Mutex
	spans []*recordedSpan
}

func (t *recordingTracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	cfg := trace.NewSpanStartConfig(opts...)
	_, base := noop.NewTracerProvider().Tracer("").Start(ctx, name)
	span := &recordedSpan{Span: base, name: name, attrs: make(map[attribute.Key]attribute.Value)}
	span.SetAttributes(cfg.Attributes()...)

	t.mu.Lock()
	t.spans = append(t.spans, span)
	t.mu.Unlock()
	return trace.ContextWithSpan(ctx, span), span
}

type recordingProvider struct {
	embedded.TracerProvider
	tracer *recordingTracer
}

func (p *recordingProvider) Tracer(string, ...trace.TracerOption) trace.Tracer { return p.tracer }

func newRecordingProvider() *recordingProvider {
	return &recordingProvider{tracer: &recordingTracer{}}
}

func TestOpenTelemetryRecordsSpan(t *testing.T) {
	tp := newRecordingProvider()
	var inHandler trace.Span
	h := OpenTelemetry(WithTracerProvider(tp))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		inHandler = trace.SpanFromContext(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/orders/1/?tab=x", nil))

	if len(tp.tracer.spans) != 1 {
		t.Fatalf("recorded %d spans, want 1", len(tp.tracer.spans))
	}
	span := tp.tracer.spans[0]
	if span.name != SpanName {
		t.Errorf("span name = %q, want %q", span.name, SpanName)
	}
	if inHandler != trace.Span(span) {
		t.Error("handler context does not carry the request span")
	}
	if got := span.attrs["http.method"].AsString(); got != http.MethodGet {
		t.Errorf("http.method = %q", got)
	}
	if got := span.attrs["http.target"].AsString(); got != "/orders/1/?tab=x" {
		t.Errorf("http.target = %q", got)
	}
	if got := span.attrs["http.status_code"].AsInt64(); got != http.StatusTeapot {
		t.Errorf("http.status_code = %d", got)
	}
	if span.status != codes.Ok || !span.ended {
		t.Errorf("status = %v, ended = %v", span.status, span.ended)
	}
}

func TestOpenTelemetryServerErrorStatus(t *testing.T) {
	tp := newRecordingProvider()
	h := OpenTelemetry(WithTracerProvider(tp))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if got := tp.tracer.spans[0].status; got != codes.Error {
		t.Errorf("status = %v, want Error", got)
	}
}

func TestOpenTelemetryFilter(t *testing.T) {
	tp := newRecordingProvider()
	h := OpenTelemetry(
		WithTracerProvider(tp),
		WithRequestFilter(func(r *http.Request) bool { return r.URL.Path != "/api/health" }),
	)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if len(tp.tracer.spans) != 0 {
		t.Errorf("filtered request was traced")
	}
}

func TestOpenTelemetryGlobalProvider(t *testing.T) {
	called := false
	h := OpenTelemetry()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if !called || rec.Code != http.StatusOK {
		t.Errorf("called = %v, code = %d", called, rec.Code)
	}
}
