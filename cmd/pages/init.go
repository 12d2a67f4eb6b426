package main

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/spf13/cobra"

	"github.com/vango-dev/pages/internal/errors"
	"github.com/vango-dev/pages/internal/templates"
)

var projectNameRe = regexp.MustCompile(`^[a-z][a-z0-9-]*$`)

func initCmd() *cobra.Command {
	var (
		template    string
		description string
		global      string
	)

	cmd := &cobra.Command{
		Use:   "init <name>",
		Short: "Create a new pages project",
		Long: `Create a new pages project in a directory named <name>.

Templates:
  minimal   Plain JavaScript pages, copied verbatim by the build
  vite      TypeScript pages bundled by Vite (default)

Existing files are never overwritten.

Examples:
  pages init shop
  pages init shop --template=minimal`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := filepath.Base(args[0])
			if !projectNameRe.MatchString(name) {
				return errors.New("E147").
					WithDetail("Project name " + name + " is not valid").
					WithSuggestion("Use lowercase letters, numbers, and hyphens")
			}

			tmpl, err := templates.Get(template)
			if err != nil {
				return err
			}

			dir, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			if err := os.MkdirAll(dir, 0755); err != nil {
				return err
			}

			if description == "" {
				description = "A multi-page app"
			}
			created, err := tmpl.Create(dir, templates.Config{
				ProjectName: name,
				Description: description,
				Global:      global,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, path := range created {
				rel, _ := filepath.Rel(dir, path)
				info(out, "%s", filepath.ToSlash(rel))
			}
			fmt.Fprintln(out)
			success(out, "Created %s from the %s template", args[0], tmpl.Name)
			fmt.Fprintln(out)
			info(out, "cd %s", args[0])
			if tmpl.Name == "vite" {
				info(out, "npm install && npm run vite   # in one terminal")
			}
			info(out, "pages dev")
			return nil
		},
	}

	cmd.Flags().StringVarP(&template, "template", "t", "vite", "Project template (minimal, vite)")
	cmd.Flags().StringVarP(&description, "description", "d", "", "Project description")
	cmd.Flags().StringVar(&global, "global", "", "Window property receiving route params (default __PARAMS__)")

	return cmd
}
