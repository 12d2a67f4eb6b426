package router

import (
	"errors"
	"fmt"
	"io/fs"
	"path"

	"github.com/vango-dev/pages/pkg/routepath"
)

// Resolver resolves URL paths against a pages root. It holds no mutable
// state and is safe for concurrent use.
type Resolver struct {
	fsys  fs.FS
	entry string
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithEntry sets the entry script file name (default "index.tsx").
func WithEntry(name string) ResolverOption {
	return func(r *Resolver) {
		if name != "" {
			r.entry = name
		}
	}
}

// NewResolver creates a resolver over the pages root fsys.
func NewResolver(fsys fs.FS, opts ...ResolverOption) *Resolver {
	r := &Resolver{fsys: fsys, entry: DefaultEntry}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// FS returns the pages root the resolver reads from.
func (r *Resolver) FS() fs.FS {
	return r.fsys
}

// Entry returns the entry script file name.
func (r *Resolver) Entry() string {
	return r.entry
}

// Resolve resolves an escaped URL path ("/orders/123/"). Empty segments are
// ignored, so a trailing slash is optional. It returns ErrNotFound when no
// branch resolves, a routepath error for undecodable segments, and wrapped
// filesystem errors otherwise.
func (r *Resolver) Resolve(urlPath string) (*Page, error) {
	segments, err := routepath.Segments(urlPath)
	if err != nil {
		return nil, err
	}
	return r.ResolveSegments(segments)
}

// ResolveSegments resolves already decoded path segments.
func (r *Resolver) ResolveSegments(segments []string) (*Page, error) {
	page, err := r.match(".", segments, nil)
	if err != nil {
		return nil, err
	}
	if page == nil {
		return nil, ErrNotFound
	}
	return page, nil
}

// match returns (nil, nil) when the subtree at dir cannot resolve segments.
func (r *Resolver) match(dir string, segments []string, params Params) (*Page, error) {
	if len(segments) == 0 {
		return r.leaf(dir, params)
	}

	entries, err := fs.ReadDir(r.fsys, dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("router: reading %s: %w", dir, err)
	}

	segment, rest := segments[0], segments[1:]

	for _, entry := range entries {
		if entry.IsDir() && entry.Name() == segment {
			page, err := r.match(path.Join(dir, entry.Name()), rest, params)
			if err != nil || page != nil {
				return page, err
			}
			break
		}
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name, ok := ParamName(entry.Name())
		if !ok {
			continue
		}
		page, err := r.match(path.Join(dir, entry.Name()), rest, params.with(name, segment))
		if err != nil || page != nil {
			return page, err
		}
	}

	return nil, nil
}

// leaf resolves a directory once every segment has been consumed.
func (r *Resolver) leaf(dir string, params Params) (*Page, error) {
	htmlPath := path.Join(dir, IndexHTML)
	ok, err := r.isFile(htmlPath)
	if err != nil {
		return nil, err
	}
	if ok {
		return &Page{HTMLPath: htmlPath, Params: params, ScriptDir: dir}, nil
	}

	ok, err = r.isFile(path.Join(dir, r.entry))
	if err != nil || !ok {
		return nil, err
	}

	ok, err = r.isFile(IndexHTML)
	if err != nil || !ok {
		return nil, err
	}
	return &Page{HTMLPath: IndexHTML, Params: params, ScriptDir: dir, IsFallback: true}, nil
}

func (r *Resolver) isFile(name string) (bool, error) {
	info, err := fs.Stat(r.fsys, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("router: stat %s: %w", name, err)
	}
	return !info.IsDir(), nil
}
