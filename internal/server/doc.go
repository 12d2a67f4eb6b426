// Package server is the production HTTP server for a built pages project.
//
// It serves the build output directory: static files for any request path
// that names a file, and resolved pages (with params injected) for every
// other GET. Requests pass through request logging, panic recovery, optional
// gzip compression, Prometheus metrics and OpenTelemetry tracing.
//
//	srv, err := server.New(cfg, server.Options{Logger: logger})
//	if err != nil {
//		return err
//	}
//	return srv.Start(ctx)
package server
