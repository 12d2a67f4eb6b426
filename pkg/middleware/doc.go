// Package middleware provides HTTP middleware for metrics and tracing.
//
// # Prometheus Metrics
//
// NewMetrics registers the HTTP and page resolution collectors on a
// registry; Handler records every request it wraps:
//
//	m := middleware.NewMetrics(middleware.WithRegistry(reg))
//	r.Use(m.Handler)
//	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
//
// Metrics:
//   - pages_http_requests_total{route,status}
//   - pages_http_request_duration_seconds{route}
//   - pages_page_resolutions_total{result}
//
// The route label is the chi route pattern, not the raw path.
//
// # OpenTelemetry
//
// OpenTelemetry wraps each request in a server span named "pages.http".
// The tracer comes from the global provider unless WithTracerProvider is
// given:
//
//	r.Use(middleware.OpenTelemetry())
package middleware
