package generate

import (
	stderrors "errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/vango-dev/pages/internal/errors"
	"github.com/vango-dev/pages/pkg/pagehtml"
	"github.com/vango-dev/pages/pkg/router"
)

// Options configures a Generator.
type Options struct {
	// Entry is the entry script file name (default "index.tsx").
	Entry string

	// Logger receives progress messages. Nil uses slog.Default().
	Logger *slog.Logger
}

// Generator writes and removes temporary page HTML under a pages root.
type Generator struct {
	root   string
	entry  string
	logger *slog.Logger

	mu        sync.Mutex
	generated []string
}

// New creates a generator for the pages root directory.
func New(root string, opts Options) *Generator {
	if opts.Entry == "" {
		opts.Entry = router.DefaultEntry
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Generator{
		root:   root,
		entry:  opts.Entry,
		logger: opts.Logger.With("component", "generate-html"),
	}
}

// Scan returns every directory below the pages root that has the entry
// script but no index.html, as slash-separated paths relative to the root,
// in lexical order. The root itself is never included.
func (g *Generator) Scan() ([]string, error) {
	var dirs []string
	err := filepath.WalkDir(g.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() || path == g.root {
			return nil
		}
		if !isFile(filepath.Join(path, g.entry)) || exists(filepath.Join(path, router.IndexHTML)) {
			return nil
		}
		rel, err := filepath.Rel(g.root, path)
		if err != nil {
			return err
		}
		dirs = append(dirs, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, errors.New("E150").Wrap(err)
	}
	return dirs, nil
}

// Generate writes index.html into every directory Scan reports and returns
// the created files. A missing root index.html generates nothing. Files that
// already exist are never overwritten or recorded.
func (g *Generator) Generate() ([]string, error) {
	tmpl, err := os.ReadFile(filepath.Join(g.root, router.IndexHTML))
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			g.logger.Debug("no root index.html, skipping generation", "root", g.root)
			return nil, nil
		}
		return nil, errors.New("E150").Wrap(err)
	}

	dirs, err := g.Scan()
	if err != nil {
		return nil, err
	}

	var created []string
	for _, dir := range dirs {
		target := filepath.Join(g.root, filepath.FromSlash(dir), router.IndexHTML)
		page := pagehtml.Retitle(string(tmpl), g.Title(dir))

		ok, err := writeNew(target, []byte(page))
		if err != nil {
			return created, errors.New("E150").Wrap(err).
				WithSuggestion("Check permissions on " + filepath.Dir(target))
		}
		if !ok {
			continue
		}

		g.record(target)
		created = append(created, target)
		g.logger.Info("Created temporary /"+dir+"/index.html", "path", target)
	}
	return created, nil
}

// Cleanup deletes every recorded file that still exists and clears the
// record. It is safe to call more than once.
func (g *Generator) Cleanup() error {
	g.mu.Lock()
	files := g.generated
	g.generated = nil
	g.mu.Unlock()

	var errs []error
	for _, file := range files {
		if err := os.Remove(file); err != nil {
			if stderrors.Is(err, fs.ErrNotExist) {
				continue
			}
			errs = append(errs, err)
			continue
		}
		g.logger.Info("Cleaned up "+g.display(file), "path", file)
	}
	if len(errs) > 0 {
		return errors.New("E151").Wrap(stderrors.Join(errs...))
	}
	return nil
}

// Generated returns the files created and not yet cleaned up.
func (g *Generator) Generated() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]string, len(g.generated))
	copy(out, g.generated)
	sort.Strings(out)
	return out
}

// Title derives a page title from a page directory: dynamic segments become
// "Page", anything else gets its first letter upper-cased.
func (g *Generator) Title(dir string) string {
	name := filepath.Base(filepath.FromSlash(dir))
	if router.IsDynamic(name) {
		return "Page"
	}
	_, size := utf8.DecodeRuneInString(name)
	// Casers carry state, so each call gets its own.
	return cases.Upper(language.English).String(name[:size]) + name[size:]
}

func (g *Generator) record(file string) {
	g.mu.Lock()
	g.generated = append(g.generated, file)
	g.mu.Unlock()
}

func (g *Generator) display(file string) string {
	rel, err := filepath.Rel(g.root, file)
	if err != nil {
		return file
	}
	return "/" + filepath.ToSlash(rel)
}

// writeNew creates name exclusively. It reports false when the file
// already exists.
func writeNew(name string, data []byte) (bool, error) {
	f, err := os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if stderrors.Is(err, fs.ErrExist) {
			return false, nil
		}
		return false, err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(name)
		return false, err
	}
	if err := f.Close(); err != nil {
		os.Remove(name)
		return false, err
	}
	return true, nil
}

func isFile(name string) bool {
	info, err := os.Stat(name)
	return err == nil && !info.IsDir()
}

func exists(name string) bool {
	_, err := os.Lstat(name)
	return err == nil
}
