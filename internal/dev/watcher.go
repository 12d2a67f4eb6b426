package dev

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ChangeType represents the type of file change.
type ChangeType int

const (
	ChangeHTML ChangeType = iota
	ChangeScript
	ChangeCSS
	ChangeAsset
)

func (t ChangeType) String() string {
	switch t {
	case ChangeHTML:
		return "html"
	case ChangeScript:
		return "script"
	case ChangeCSS:
		return "css"
	default:
		return "asset"
	}
}

// Change represents a detected file change.
type Change struct {
	Path    string
	Type    ChangeType
	Removed bool
}

// WatcherConfig configures the file watcher.
type WatcherConfig struct {
	// Paths are the directories to watch, recursively.
	Paths []string

	// Ignore patterns to skip (names, globs or slash paths).
	Ignore []string

	// Debounce is the quiet period before a batch of changes is reported.
	Debounce time.Duration

	// Logger receives watch errors. Nil uses slog.Default().
	Logger *slog.Logger
}

// DefaultIgnore contains default patterns to ignore.
var DefaultIgnore = []string{
	".git",
	"node_modules",
	"dist",
	".DS_Store",
	"*.tmp",
	"*.swp",
	"*.swx",
	"*~",
	"4913",
}

// Watcher monitors directories for changes and reports them in debounced
// batches.
type Watcher struct {
	config   WatcherConfig
	logger   *slog.Logger
	mu       sync.Mutex
	onChange func([]Change)
	running  bool
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewWatcher creates a new file watcher.
func NewWatcher(config WatcherConfig) *Watcher {
	if config.Debounce == 0 {
		config.Debounce = 100 * time.Millisecond
	}
	if len(config.Ignore) == 0 {
		config.Ignore = DefaultIgnore
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Watcher{
		config: config,
		logger: logger,
	}
}

// OnChange sets the callback for change batches. It is called from the
// watcher goroutine, one batch at a time.
func (w *Watcher) OnChange(fn func([]Change)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = fn
}

// Start watches until ctx is cancelled or Stop is called. Missing paths are
// skipped.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	w.running = true
	w.cancel = cancel
	w.done = make(chan struct{})
	done := w.done
	w.mu.Unlock()

	defer func() {
		cancel()
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		close(done)
	}()

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	for _, p := range w.config.Paths {
		w.addRecursive(fw, p)
	}

	pending := make(map[string]Change)
	var timer *time.Timer
	var timerC <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			change, ok := w.handleEvent(fw, ev)
			if !ok {
				continue
			}
			pending[change.Path] = change
			if timer == nil {
				timer = time.NewTimer(w.config.Debounce)
			} else {
				timer.Stop()
				timer.Reset(w.config.Debounce)
			}
			timerC = timer.C

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "error", err)

		case <-timerC:
			timerC = nil
			w.flush(pending)
			pending = make(map[string]Change)
		}
	}
}

// Stop stops the watcher and waits for Start to return.
func (w *Watcher) Stop() {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// IsRunning returns whether the watcher is running.
func (w *Watcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *Watcher) handleEvent(fw *fsnotify.Watcher, ev fsnotify.Event) (Change, bool) {
	if ev.Op == fsnotify.Chmod || w.shouldIgnore(ev.Name) {
		return Change{}, false
	}

	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			w.addRecursive(fw, ev.Name)
			return Change{}, false
		}
	}

	return Change{
		Path:    ev.Name,
		Type:    classifyChange(ev.Name),
		Removed: ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename),
	}, true
}

func (w *Watcher) flush(pending map[string]Change) {
	if len(pending) == 0 {
		return
	}
	changes := make([]Change, 0, len(pending))
	for _, c := range pending {
		changes = append(changes, c)
	}
	sort.Slice(changes, func(i, j int) bool { return changes[i].Path < changes[j].Path })

	w.mu.Lock()
	callback := w.onChange
	w.mu.Unlock()
	if callback != nil {
		callback(changes)
	}
}

// addRecursive watches root and every non-ignored directory below it.
func (w *Watcher) addRecursive(fw *fsnotify.Watcher, root string) {
	filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && w.shouldIgnore(p) {
			return filepath.SkipDir
		}
		if err := fw.Add(p); err != nil {
			w.logger.Warn("cannot watch directory", "path", p, "error", err)
		}
		return nil
	})
}

// shouldIgnore checks if a path should be ignored.
func (w *Watcher) shouldIgnore(fullPath string) bool {
	name := filepath.Base(fullPath)
	normalized := filepath.ToSlash(fullPath)

	for _, pattern := range w.config.Ignore {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}

		if name == pattern {
			return true
		}

		hasPathSep := strings.Contains(pattern, "/") || strings.Contains(pattern, "\\")
		hasGlob := strings.ContainsAny(pattern, "*?[")

		if hasGlob {
			if hasPathSep {
				if matched, _ := path.Match(filepath.ToSlash(pattern), normalized); matched {
					return true
				}
			} else {
				if matched, _ := filepath.Match(pattern, name); matched {
					return true
				}
			}
			continue
		}

		if hasPathSep {
			if pathMatchesSegments(normalized, filepath.ToSlash(pattern)) {
				return true
			}
			continue
		}

		if pathHasSegment(normalized, pattern) {
			return true
		}
	}

	return false
}

func pathHasSegment(path, segment string) bool {
	if segment == "" {
		return false
	}
	for _, part := range splitPathSegments(path) {
		if part == segment {
			return true
		}
	}
	return false
}

func pathMatchesSegments(path, pattern string) bool {
	pathParts := splitPathSegments(path)
	patternParts := splitPathSegments(pattern)
	if len(patternParts) == 0 || len(patternParts) > len(pathParts) {
		return false
	}

	for i := 0; i <= len(pathParts)-len(patternParts); i++ {
		match := true
		for j := range patternParts {
			if pathParts[i+j] != patternParts[j] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}

	return false
}

func splitPathSegments(path string) []string {
	if path == "" {
		return nil
	}
	parts := strings.Split(path, "/")
	result := parts[:0]
	for _, part := range parts {
		if part != "" && part != "." {
			result = append(result, part)
		}
	}
	return result
}

// classifyChange determines the type of change based on file extension.
func classifyChange(path string) ChangeType {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		return ChangeHTML
	case ".ts", ".tsx", ".js", ".jsx", ".mjs", ".mts":
		return ChangeScript
	case ".css", ".scss", ".sass", ".less":
		return ChangeCSS
	default:
		return ChangeAsset
	}
}
