// Package router maps URL paths onto a directory tree of HTML pages.
//
// A pages root is an ordinary directory tree. Each directory is a static
// segment, or a dynamic segment when its name is written in brackets:
//
//	src/pages/
//	├── index.html          → /
//	├── index.tsx
//	├── admin/
//	│   └── index.tsx       → /admin/        (root index.html as fallback)
//	└── orders/
//	    ├── index.html      → /orders/
//	    └── [id]/
//	        └── index.tsx   → /orders/:id/   (fallback, params {id})
//
// # Resolution
//
// Resolve walks the tree one segment at a time. An exact-name directory is
// explored first; when its subtree does not resolve, each [name] directory at
// that level is tried in lexical order, binding name to the literal segment.
// When segments run out the directory must hold index.html, or hold the entry
// script while the pages root holds index.html (a fallback page).
//
//	r := router.NewResolver(os.DirFS("src/pages"))
//	page, err := r.Resolve("/orders/123/")
//	// page.HTMLPath   == "index.html"
//	// page.ScriptDir  == "orders/[id]"
//	// page.Params     == [{id 123}]
//	// page.IsFallback == true
//
// # Scanning
//
// Scan lists every page of the tree with its URL pattern; the build uses it
// to discover bundler inputs and the CLI to print the route table.
package router
