package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vango-dev/pages/internal/server"
)

func serveCmd(flags *globalFlags) *cobra.Command {
	var (
		port int
		host string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the build output",
		Long: `Serve the build output with page routing.

Paths naming a file are served from the output directory; every other
GET resolves to a page with its params injected. Run "pages build"
first. The PORT environment variable overrides server.port.

Examples:
  pages serve
  PORT=8080 pages serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			if port > 0 {
				cfg.Server.Port = port
			}
			if host != "" {
				cfg.Server.Host = host
			}

			srv, err := server.New(cfg, server.Options{})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			go func() {
				select {
				case <-srv.Ready():
					success(cmd.OutOrStdout(), "Serving %s on %s", cfg.OutputPath(), srv.Addr())
				case <-ctx.Done():
				}
			}()

			return srv.Start(ctx)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to listen on (default from config)")
	cmd.Flags().StringVarP(&host, "host", "H", "", "Host to bind to (default: all interfaces)")

	return cmd
}
