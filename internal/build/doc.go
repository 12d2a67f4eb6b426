// Package build provides the production build for pages projects.
//
// A build runs these steps:
//   - Generate index.html for page directories that only have an entry script
//   - Scan the page tree for bundler inputs
//   - Empty the output directory
//   - Bundle with the built-in copy bundler or an external command
//   - Write the build manifest
//
// The HTML generated in the first step is removed when Build returns,
// whether the build succeeded, failed or was cancelled.
//
// # Usage
//
//	builder := build.New(cfg, build.Options{})
//	result, err := builder.Build(ctx)
//	if err != nil {
//	    return err
//	}
//
//	fmt.Printf("Built %d pages in %s\n", len(result.Pages), result.Duration)
//
// # Command bundler
//
// With build.command set, the command runs through the shell in the project
// directory with three extra environment variables:
//
//	PAGES_INPUTS  JSON object, input name → absolute index.html path
//	PAGES_ROOT    absolute pages root
//	PAGES_OUT     absolute output directory
//
// # Manifest
//
//	{
//	  "pages": {"main": "index.html", "orders/[id]": "orders/[id]/index.html"},
//	  "routes": ["/", "/orders/:id/"],
//	  "generated": ["orders/[id]/index.html"],
//	  "files": {"index.html": "9f86d0…"},
//	  "builtAt": "2024-01-01T00:00:00Z"
//	}
package build
