package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func metricCounterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("counter Write() error: %v", err)
	}
	if m.Counter == nil {
		t.Fatal("expected counter metric to have Counter field")
	}
	return m.GetCounter().GetValue()
}

func metricHistogramCount(t *testing.T, o prometheus.Observer) uint64 {
	t.Helper()
	metric, ok := o.(prometheus.Metric)
	if !ok {
		t.Fatalf("observer %T does not implement prometheus.Metric", o)
	}
	var m dto.Metric
	if err := metric.Write(&m); err != nil {
		t.Fatalf("histogram Write() error: %v", err)
	}
	if m.Histogram == nil {
		t.Fatal("expected histogram metric to have Histogram field")
	}
	return m.GetHistogram().GetSampleCount()
}

func TestMetricsHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(WithRegistry(reg))

	r := chi.NewRouter()
	r.Use(m.Handler)
	r.Get("/api/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Get("/*", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no page found", http.StatusNotFound)
	})

	for _, path := range []string{"/api/health", "/api/health", "/orders/1/", "/orders/2/"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	if got := metricCounterValue(t, m.requestsTotal.WithLabelValues("/api/health", "200")); got != 2 {
		t.Errorf("requests_total(/api/health,200) = %v, want 2", got)
	}
	if got := metricCounterValue(t, m.requestsTotal.WithLabelValues("/*", "404")); got != 2 {
		t.Errorf("requests_total(/*,404) = %v, want 2", got)
	}
	if got := metricHistogramCount(t, m.requestDuration.WithLabelValues("/api/health")); got != 2 {
		t.Errorf("request_duration count = %d, want 2", got)
	}
}

func TestMetricsUnmatchedRoute(t *testing.T) {
	m := NewMetrics(WithRegistry(prometheus.NewRegistry()))
	h := m.Handler(http.NotFoundHandler())
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))

	if got := metricCounterValue(t, m.requestsTotal.WithLabelValues("unmatched", "404")); got != 1 {
		t.Errorf("requests_total(unmatched,404) = %v, want 1", got)
	}
}

func TestRecordResolution(t *testing.T) {
	m := NewMetrics(WithRegistry(prometheus.NewRegistry()), WithNamespace("test"))
	m.RecordResolution(ResolutionFallback)
	m.RecordResolution(ResolutionFallback)
	m.RecordResolution(ResolutionNotFound)

	if got := metricCounterValue(t, m.resolutions.WithLabelValues(ResolutionFallback)); got != 2 {
		t.Errorf("resolutions(fallback) = %v, want 2", got)
	}

	var nilMetrics *Metrics
	nilMetrics.RecordResolution(ResolutionPage)
}

func TestNewMetricsRegistersNames(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(WithRegistry(reg))
	m.RecordResolution(ResolutionPage)
	m.requestsTotal.WithLabelValues("/", "200").Inc()
	m.requestDuration.WithLabelValues("/").Observe(0.1)

	families, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{
		"pages_http_requests_total",
		"pages_http_request_duration_seconds",
		"pages_page_resolutions_total",
	} {
		if !names[want] {
			t.Errorf("metric %s not registered; have %v", want, names)
		}
	}
}
