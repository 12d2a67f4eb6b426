package router

import (
	"fmt"
	"io/fs"
	"path"
	"strings"
)

// Route is a page directory discovered by Scan.
type Route struct {
	// Name is the directory path relative to the pages root, or "main"
	// for the root itself. It is the bundler input name.
	Name string `json:"name"`

	// Pattern is the URL pattern with dynamic segments as ":name"
	// ("/orders/:id/").
	Pattern string `json:"pattern"`

	// Dir is the slash-separated directory relative to the pages root.
	Dir string `json:"dir"`

	// HTMLPath is the page's own index.html, empty when it has none.
	HTMLPath string `json:"html,omitempty"`

	// Params are the dynamic segment names in order.
	Params []string `json:"params,omitempty"`

	HasHTML  bool `json:"hasHTML"`
	HasEntry bool `json:"hasEntry"`
}

// IsDynamic reports whether the route binds any params.
func (r Route) IsDynamic() bool {
	return len(r.Params) > 0
}

// IsFallback reports whether the route is served by the root index.html.
func (r Route) IsFallback() bool {
	return !r.HasHTML && r.HasEntry
}

// RootName is the route name of the pages root.
const RootName = "main"

// Scanner discovers page directories under a pages root.
type Scanner struct {
	fsys  fs.FS
	entry string
}

// NewScanner creates a scanner over fsys. An empty entry selects the
// default entry script name.
func NewScanner(fsys fs.FS, entry string) *Scanner {
	if entry == "" {
		entry = DefaultEntry
	}
	return &Scanner{fsys: fsys, entry: entry}
}

// Scan walks the whole tree and returns every directory holding an
// index.html or an entry script, most specific routes first.
func (s *Scanner) Scan() ([]Route, error) {
	var routes []Route

	err := fs.WalkDir(s.fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}

		entries, err := fs.ReadDir(s.fsys, p)
		if err != nil {
			return err
		}

		var hasHTML, hasEntry bool
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			switch e.Name() {
			case IndexHTML:
				hasHTML = true
			case s.entry:
				hasEntry = true
			}
		}
		if !hasHTML && !hasEntry {
			return nil
		}

		routes = append(routes, newRoute(p, hasHTML, hasEntry))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("router: scanning pages: %w", err)
	}

	SortBySpecificity(routes)
	return routes, nil
}

func newRoute(dir string, hasHTML, hasEntry bool) Route {
	r := Route{
		Name:     RouteName(dir),
		Pattern:  Pattern(dir),
		Dir:      dir,
		HasHTML:  hasHTML,
		HasEntry: hasEntry,
	}
	if hasHTML {
		r.HTMLPath = path.Join(dir, IndexHTML)
	}
	for _, seg := range splitDir(dir) {
		if name, ok := ParamName(seg); ok {
			r.Params = append(r.Params, name)
		}
	}
	return r
}

// RouteName returns the bundler input name of a page directory.
func RouteName(dir string) string {
	if dir == "." || dir == "" {
		return RootName
	}
	return dir
}

// Pattern converts a page directory into its URL pattern.
//
//	"."            → "/"
//	"orders/[id]"  → "/orders/:id/"
func Pattern(dir string) string {
	segs := splitDir(dir)
	if len(segs) == 0 {
		return "/"
	}
	var b strings.Builder
	for _, seg := range segs {
		b.WriteByte('/')
		if name, ok := ParamName(seg); ok {
			b.WriteByte(':')
			b.WriteString(name)
		} else {
			b.WriteString(seg)
		}
	}
	b.WriteByte('/')
	return b.String()
}

func splitDir(dir string) []string {
	if dir == "." || dir == "" {
		return nil
	}
	return strings.Split(dir, "/")
}

// Inputs returns the bundler inputs of routes: route name to the route's
// own index.html. Fallback routes contribute no input.
func Inputs(routes []Route) map[string]string {
	inputs := make(map[string]string)
	for _, r := range routes {
		if r.HasHTML {
			inputs[r.Name] = r.HTMLPath
		}
	}
	return inputs
}
