package build

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/vango-dev/pages/internal/config"
	"github.com/vango-dev/pages/internal/errors"
	"github.com/vango-dev/pages/internal/generate"
	"github.com/vango-dev/pages/pkg/router"
)

// Result contains the build output.
type Result struct {
	// Duration is how long the build took.
	Duration time.Duration

	// Output is the absolute path of the output directory.
	Output string

	// Pages maps bundler input names to page HTML paths.
	Pages map[string]string

	// Generated lists the temporary HTML files created (and removed) for
	// the build, relative to the pages root.
	Generated []string

	// Manifest is the manifest written to the output directory.
	Manifest *Manifest
}

// Options configures the builder.
type Options struct {
	// Stdout and Stderr receive the command bundler's output. Nil discards
	// stdout and keeps stderr only for error details.
	Stdout io.Writer
	Stderr io.Writer

	// Logger receives build logs. Nil uses slog.Default().
	Logger *slog.Logger

	// OnProgress is called with progress updates.
	OnProgress func(step string)
}

// Builder handles production builds.
type Builder struct {
	config  *config.Config
	options Options
	logger  *slog.Logger
}

// New creates a new builder.
func New(cfg *config.Config, options Options) *Builder {
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{
		config:  cfg,
		options: options,
		logger:  logger.With("component", "build"),
	}
}

// Build performs a production build.
func (b *Builder) Build(ctx context.Context) (result *Result, err error) {
	start := time.Now()
	pagesDir := b.config.PagesPath()
	outputDir := b.config.OutputPath()

	if err := b.checkOutput(pagesDir, outputDir); err != nil {
		return nil, err
	}

	b.progress("Generating page HTML...")
	gen := generate.New(pagesDir, generate.Options{
		Entry:  b.config.Paths.Entry,
		Logger: b.logger,
	})
	created, err := gen.Generate()
	defer func() {
		if cerr := gen.Cleanup(); cerr != nil && err == nil {
			result, err = nil, cerr
		}
	}()
	if err != nil {
		return nil, err
	}

	result = &Result{Output: outputDir}
	for _, file := range created {
		rel, _ := filepath.Rel(pagesDir, file)
		result.Generated = append(result.Generated, filepath.ToSlash(rel))
	}

	b.progress("Scanning pages...")
	routes, err := router.NewScanner(os.DirFS(pagesDir), b.config.Paths.Entry).Scan()
	if err != nil {
		return nil, errors.New("E142").Wrap(err)
	}
	result.Pages = router.Inputs(routes)
	if len(result.Pages) == 0 {
		return nil, errors.New("E142").
			WithDetail("No index.html found under " + pagesDir).
			WithSuggestion("Add " + filepath.Join(b.config.Paths.Pages, router.IndexHTML))
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if b.config.EmptyOutDirEnabled() {
		b.progress("Cleaning output directory...")
		if err := os.RemoveAll(outputDir); err != nil {
			return nil, errors.New("E142").Wrap(err)
		}
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, errors.New("E142").Wrap(err)
	}

	switch b.config.Build.Bundler {
	case config.BundlerCommand:
		b.progress("Running " + b.config.Build.Command + "...")
		err = b.runCommand(ctx, pagesDir, outputDir, result.Pages)
	default:
		b.progress("Copying pages...")
		err = b.copyPages(ctx, pagesDir, outputDir)
	}
	if err != nil {
		return nil, err
	}

	b.progress("Copying public files...")
	if err := b.copyPublic(ctx, outputDir); err != nil {
		return nil, err
	}

	b.progress("Writing manifest...")
	manifest, err := newManifest(outputDir, routes, result.Pages, result.Generated)
	if err != nil {
		return nil, errors.New("E142").Wrap(err)
	}
	if err := manifest.Write(outputDir); err != nil {
		return nil, errors.New("E142").Wrap(err)
	}
	result.Manifest = manifest

	result.Duration = time.Since(start)
	b.logger.Info("build complete",
		"pages", len(result.Pages),
		"generated", len(result.Generated),
		"output", outputDir,
		"duration", result.Duration)
	return result, nil
}

// checkOutput refuses output directories that would destroy or copy into
// the sources.
func (b *Builder) checkOutput(pagesDir, outputDir string) error {
	projectDir := b.config.Dir()
	for _, protected := range []string{projectDir, pagesDir, b.config.PublicPath()} {
		if protected == "" {
			continue
		}
		if within(protected, outputDir) {
			return errors.New("E142").
				WithDetail("build.output " + outputDir + " contains " + protected).
				WithSuggestion("Point build.output at a dedicated directory such as dist")
		}
	}
	for _, source := range []string{pagesDir, b.config.PublicPath()} {
		if within(outputDir, source) {
			return errors.New("E142").
				WithDetail("build.output " + outputDir + " is inside " + source).
				WithSuggestion("Point build.output outside the pages and public directories")
		}
	}
	return nil
}

// within reports whether child is dir or inside it.
func within(child, dir string) bool {
	rel, err := filepath.Rel(dir, child)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// runCommand runs the external bundler.
func (b *Builder) runCommand(ctx context.Context, pagesDir, outputDir string, pages map[string]string) error {
	inputs := make(map[string]string, len(pages))
	for name, html := range pages {
		inputs[name] = filepath.Join(pagesDir, filepath.FromSlash(html))
	}
	data, err := json.Marshal(inputs)
	if err != nil {
		return errors.New("E143").Wrap(err)
	}

	cmd := shellCommand(ctx, b.config.Build.Command)
	cmd.Dir = b.config.Dir()
	cmd.Env = append(os.Environ(),
		"PAGES_INPUTS="+string(data),
		"PAGES_ROOT="+pagesDir,
		"PAGES_OUT="+outputDir,
	)

	var stderr bytes.Buffer
	cmd.Stdout = b.options.Stdout
	if b.options.Stderr != nil {
		cmd.Stderr = io.MultiWriter(b.options.Stderr, &stderr)
	} else {
		cmd.Stderr = &stderr
	}

	b.logger.Debug("running bundler", "command", b.config.Build.Command, "inputs", len(inputs))
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return errors.New("E143").
			WithDetail(strings.TrimSpace(stderr.String())).
			Wrap(err)
	}
	return nil
}

func shellCommand(ctx context.Context, command string) *exec.Cmd {
	if runtime.GOOS == "windows" {
		return exec.CommandContext(ctx, "cmd", "/C", command)
	}
	return exec.CommandContext(ctx, "sh", "-c", command)
}

// copyPages copies the page tree into the output directory.
func (b *Builder) copyPages(ctx context.Context, pagesDir, outputDir string) error {
	if err := copyTree(ctx, pagesDir, outputDir); err != nil {
		return errors.New("E142").Wrap(err)
	}
	return nil
}

// copyPublic copies the public directory to the output root.
func (b *Builder) copyPublic(ctx context.Context, outputDir string) error {
	publicDir := b.config.PublicPath()
	if _, err := os.Stat(publicDir); stderrors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := copyTree(ctx, publicDir, outputDir); err != nil {
		return errors.New("E142").Wrap(err)
	}
	return nil
}

func copyTree(ctx context.Context, src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0755)
		}
		if !d.Type().IsRegular() {
			return nil
		}
		return copyFile(path, target)
	})
}

// progress reports build progress.
func (b *Builder) progress(step string) {
	b.logger.Debug(step)
	if b.options.OnProgress != nil {
		b.options.OnProgress(step)
	}
}

// copyFile copies a file.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// Clean removes the build output directory. It refuses the same
// directories Build does.
func (b *Builder) Clean() error {
	outputDir := b.config.OutputPath()
	if err := b.checkOutput(b.config.PagesPath(), outputDir); err != nil {
		return err
	}
	return os.RemoveAll(outputDir)
}
