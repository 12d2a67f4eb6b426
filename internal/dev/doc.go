// Package dev provides the development server and live reload.
//
// This package implements:
//   - The page middleware that resolves URLs against the pages root
//   - File watching for page, script and CSS changes
//   - WebSocket-based browser refresh
//   - An optional upstream proxy for an external bundler dev server
//
// # Architecture
//
// The development server consists of several components:
//
//   - PageMiddleware: resolves a request to page HTML with params injected
//   - Watcher: monitors the pages and public directories with fsnotify
//   - Hub: pushes reload events to browsers via WebSocket
//   - Server: chi router tying them together with /api and static files
//
// # Usage
//
//	srv, err := dev.NewServer(dev.ServerOptions{Config: cfg})
//	if err != nil {
//	    return err
//	}
//	return srv.Start(ctx)
//
// # Request flow
//
// Paths under /@, /__, /api and /node_modules skip page resolution. Other
// paths are canonicalized first: escapes above the root are rejected, and
// dot segments or doubled slashes are redirected to the clean form. Clean
// paths containing a dot are files and skip resolution. A page path without
// a trailing slash is redirected to the slash form. Resolved pages are served with the params script and,
// when hot reload is enabled, the reload client. Everything else goes to
// the upstream dev server if one is configured, otherwise to the files of
// the pages root and the public directory.
//
// # Hot Reload Protocol
//
// The browser connects to /__pages/reload via WebSocket.
// Events are JSON-encoded:
//
//	{"type": "reload"}
//	{"type": "css", "paths": ["/site.css"]}
//	{"type": "error", "page": "/orders/1/", "source": "src/pages/index.html", "error": "..."}
//	{"type": "clear"}
//
// A css event without paths refreshes every same-origin stylesheet. The last
// error is replayed to browsers that connect before the next change, so a
// page that failed to render shows why after it reloads.
package dev
