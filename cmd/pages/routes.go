package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vango-dev/pages/pkg/router"
)

func routesCmd(flags *globalFlags) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "routes",
		Short: "List the pages and their URL patterns",
		Long: `List every page under the pages root, most specific first.

Pages marked "fallback" have a script but no index.html and are served
with the root index.html. Routes whose patterns can match the same URL
are reported as conflicts; the first one in the list wins.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}

			routes, err := router.NewScanner(os.DirFS(cfg.PagesPath()), cfg.Paths.Entry).Scan()
			if err != nil {
				return err
			}
			conflicts := router.FindConflicts(routes)

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(struct {
					Routes    []router.Route    `json:"routes"`
					Conflicts []router.Conflict `json:"conflicts"`
				}{routes, conflicts})
			}

			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "PATTERN\tNAME\tHTML")
			for _, route := range routes {
				html := route.HTMLPath
				if route.IsFallback() {
					html = router.IndexHTML + " (fallback)"
				} else if !route.HasHTML {
					html = "-"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", route.Pattern, route.Name, html)
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			for _, c := range conflicts {
				warn(out, "%s", c.String())
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print routes as JSON")

	return cmd
}
