// Package templates provides project scaffolding templates.
//
// # Available Templates
//
//   - minimal: plain JavaScript pages, copied verbatim by the build
//   - vite: TypeScript pages bundled by Vite, with the Vite dev server as
//     the dev upstream
//
// # Usage
//
//	tmpl, err := templates.Get("vite")
//	if err != nil {
//		return err
//	}
//	created, err := tmpl.Create(projectDir, templates.Config{ProjectName: "shop"})
//
// # Template Variables
//
//	{{.ProjectName}}     - Name of the project
//	{{.Description}}     - Project description
//	{{.Global}}          - Window property receiving route params
package templates
