package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vango-dev/pages/internal/build"
	"github.com/vango-dev/pages/internal/config"
)

func buildCmd(flags *globalFlags) *cobra.Command {
	var (
		output  string
		command string
		clean   bool
	)

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build for production",
		Long: `Build the pages for production deployment.

This command:
  • Writes a temporary index.html for every page that only has a script
  • Hands every page to the bundler as an input
  • Copies the public directory to the output root
  • Writes manifest.json
  • Removes the temporary HTML files again, even when the build fails

Examples:
  pages build
  pages build --output=out
  pages build --command="vite build"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			if output != "" {
				cfg.Build.Output = output
			}
			if command != "" {
				cfg.Build.Bundler = config.BundlerCommand
				cfg.Build.Command = command
			}

			out := cmd.OutOrStdout()
			builder := build.New(cfg, build.Options{
				Stdout: out,
				Stderr: cmd.ErrOrStderr(),
				OnProgress: func(step string) {
					info(out, "%s", step)
				},
			})

			if clean {
				info(out, "Cleaning output directory...")
				if err := builder.Clean(); err != nil {
					return err
				}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			result, err := builder.Build(ctx)
			if err != nil {
				return err
			}

			fmt.Fprintln(out)
			success(out, "Built %d pages in %s", len(result.Pages), result.Duration.Round(time.Millisecond))
			if n := len(result.Generated); n > 0 {
				info(out, "%d temporary HTML files created and removed", n)
			}
			fmt.Fprintln(out)

			names := make([]string, 0, len(result.Pages))
			for name := range result.Pages {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				info(out, "%-24s %s", name, result.Pages[name])
			}

			var total int64
			if result.Manifest != nil {
				for rel := range result.Manifest.Files {
					if st, err := os.Stat(filepath.Join(result.Output, filepath.FromSlash(rel))); err == nil {
						total += st.Size()
					}
				}
			}
			fmt.Fprintln(out)
			info(out, "Output: %s (%s)", result.Output, formatBytes(total))
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output directory (default from config)")
	cmd.Flags().StringVar(&command, "command", "", "Run this bundler command instead of copying pages")
	cmd.Flags().BoolVar(&clean, "clean", false, "Remove the output directory before building")

	return cmd
}
