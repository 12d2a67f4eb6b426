// Command pages is the CLI for file-system routed multi-page apps: a live
// reloading dev server, the production build, a production server and an
// object storage publisher.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/vango-dev/pages/internal/config"
	"github.com/vango-dev/pages/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	config  string
	verbose bool
	noColor bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		errors.FprintError(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "pages",
		Short: "File-system page routing for multi-page apps",
		Long: `pages maps a directory tree to URLs.

Every directory under the pages root is a page. A directory named [id]
matches any path segment and hands its value to the page script as
window.__PARAMS__.id. Pages without their own index.html reuse the
root one.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if flags.noColor || os.Getenv("NO_COLOR") != "" {
				errors.DisableColors()
			}
			slog.SetDefault(newLogger(cmd.ErrOrStderr(), flags.verbose))
		},
	}

	rootCmd.PersistentFlags().StringVarP(&flags.config, "config", "c", "", "Path to pages.json or pages.yaml (default: search from the working directory)")
	rootCmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&flags.noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(
		initCmd(),
		devCmd(flags),
		buildCmd(flags),
		serveCmd(flags),
		routesCmd(flags),
		publishCmd(flags),
		versionCmd(),
	)

	return rootCmd
}

// newLogger builds the CLI's text logger on w.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// loadConfig loads --config when set, else the nearest project config, and
// validates it.
func loadConfig(flags *globalFlags) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if flags.config != "" {
		cfg, err = config.LoadFile(flags.config)
	} else {
		cfg, err = config.LoadFromWorkingDir()
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// success prints a success message.
func success(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "  %s\n", fmt.Sprintf(format, args...))
}

// warn prints a warning message.
func warn(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "\033[33m⚠\033[0m %s\n", fmt.Sprintf(format, args...))
}

// formatBytes formats bytes as a human-readable string.
func formatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(b)/float64(div), "KMGTPE"[exp])
}
