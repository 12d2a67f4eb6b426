// Package errors provides structured, actionable error messages for the
// pages tool.
//
// Every error carries a code from the registry (e.g. "E142") that maps to a
// category, a short message, a longer explanation and a documentation URL.
// Callers attach details, suggestions and wrapped causes fluently:
//
//	err := errors.New("E141").
//	    WithDetail("No pages.json found in /srv/app").
//	    WithSuggestion("Create pages.json or pass --config")
//
//	errors.PrintError(err)
//	// ERROR E141: Not a pages project
//	//
//	//   No pages.json found in /srv/app
//	//
//	//   Hint: Create pages.json or pass --config
//	//
//	//   Learn more: https://pages.vango.dev/docs/errors/E141
//
// # Error Categories
//
//   - routing: page resolution and path validation
//   - config: pages.json / pages.yaml problems
//   - build: HTML generation and bundling
//   - publish: uploading build output
//   - cli: command-line usage
package errors
