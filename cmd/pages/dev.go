package main

import (
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vango-dev/pages/internal/dev"
)

func devCmd(flags *globalFlags) *cobra.Command {
	var (
		port        int
		host        string
		upstream    string
		openBrowser bool
	)

	cmd := &cobra.Command{
		Use:   "dev",
		Short: "Start the development server",
		Long: `Start the development server with live reload.

Pages resolve on every request, so new directories need no restart.
Changes under the pages root and the public directory reload connected
browsers; CSS-only changes swap stylesheets in place.

With --upstream (or dev.upstream) requests the page router does not
handle are proxied to another dev server, such as a bundler's.

Examples:
  pages dev
  pages dev --port=8080
  pages dev --upstream=http://localhost:5174`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			if port > 0 {
				cfg.Dev.Port = port
			}
			if host != "" {
				cfg.Dev.Host = host
			}
			if upstream != "" {
				cfg.Dev.Upstream = upstream
			}
			if openBrowser {
				cfg.Dev.OpenBrowser = true
			}

			out := cmd.OutOrStdout()
			server, err := dev.NewServer(dev.ServerOptions{
				Config: cfg,
				OnReload: func(clients int) {
					success(out, "Reloaded %d browsers", clients)
				},
			})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			go func() {
				select {
				case <-server.Ready():
				case <-ctx.Done():
					return
				}
				success(out, "Dev server ready at %s", server.URL())
				if cfg.Dev.OpenBrowser {
					openURL(server.URL())
				}
			}()

			err = server.Start(ctx)
			fmt.Fprintln(out)
			info(out, "Shut down")
			return err
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to run on (default from config)")
	cmd.Flags().StringVarP(&host, "host", "H", "", "Host to bind to (default from config)")
	cmd.Flags().StringVar(&upstream, "upstream", "", "Proxy unmatched requests to this URL")
	cmd.Flags().BoolVarP(&openBrowser, "open", "o", false, "Open browser on start")

	return cmd
}

// openURL opens a URL in the default browser.
func openURL(url string) {
	var cmd *exec.Cmd

	switch {
	case runtime.GOOS == "windows":
		cmd = exec.Command("cmd", "/c", "start", url)
	case commandExists("xdg-open"):
		cmd = exec.Command("xdg-open", url)
	case commandExists("open"):
		cmd = exec.Command("open", url)
	default:
		return
	}

	if err := cmd.Start(); err == nil {
		go cmd.Wait()
	}
}

// commandExists checks if a command exists in PATH.
func commandExists(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}
