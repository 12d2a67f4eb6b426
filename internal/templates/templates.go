package templates

import (
	"bytes"
	stderrors "errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"text/template"

	"github.com/vango-dev/pages/internal/errors"
	"github.com/vango-dev/pages/pkg/pagehtml"
)

// Config contains template configuration.
type Config struct {
	// ProjectName is the name of the project.
	ProjectName string

	// Description is a short project description.
	Description string

	// Global is the window property receiving route params
	// (default __PARAMS__).
	Global string
}

// Template represents a project template.
type Template struct {
	// Name is the template name.
	Name string

	// Description describes the template.
	Description string

	// Files is a map of slash-separated relative paths to file contents.
	Files map[string]string
}

// Available templates.
var templates = map[string]*Template{
	"minimal": minimalTemplate(),
	"vite":    viteTemplate(),
}

// Get returns a template by name.
func Get(name string) (*Template, error) {
	tmpl, ok := templates[name]
	if !ok {
		return nil, errors.New("E145").
			WithDetail("Template '" + name + "' not found").
			WithSuggestion("Available templates: minimal, vite")
	}
	return tmpl, nil
}

// List returns all available template names, sorted.
func List() []string {
	names := make([]string, 0, len(templates))
	for name := range templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Create writes the template's files under dir and returns their paths in
// sorted order. Existing files are never overwritten: Create fails with E140
// before writing anything when one is in the way.
func (t *Template) Create(dir string, cfg Config) ([]string, error) {
	if cfg.Global == "" {
		cfg.Global = pagehtml.DefaultGlobal
	}

	names := make([]string, 0, len(t.Files))
	for name := range t.Files {
		names = append(names, name)
	}
	sort.Strings(names)

	rendered := make(map[string][]byte, len(names))
	for _, name := range names {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if _, err := os.Stat(path); err == nil {
			return nil, errors.New("E140").
				WithDetail(path + " already exists").
				WithSuggestion("Choose an empty directory")
		} else if !stderrors.Is(err, fs.ErrNotExist) {
			return nil, err
		}

		tmpl, err := template.New(name).Parse(t.Files[name])
		if err != nil {
			return nil, errors.Newf(errors.CategoryCLI, "invalid template %s: %v", name, err)
		}
		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, cfg); err != nil {
			return nil, errors.Newf(errors.CategoryCLI, "template execute error %s: %v", name, err)
		}
		rendered[name] = buf.Bytes()
	}

	created := make([]string, 0, len(names))
	for _, name := range names {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return created, err
		}
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if err != nil {
			return created, err
		}
		_, err = f.Write(rendered[name])
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return created, err
		}
		created = append(created, path)
	}

	return created, nil
}

const robotsTxt = `User-agent: *
Allow: /
`

// minimalTemplate returns the minimal template.
func minimalTemplate() *Template {
	return &Template{
		Name:        "minimal",
		Description: "Plain JavaScript pages, copied verbatim by the build",
		Files: map[string]string{
			"pages.yaml": `name: {{.ProjectName}}
paths:
  entry: index.js
params:
  global: {{.Global}}
`,

			"src/pages/index.html": `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>{{.ProjectName}}</title>
</head>
<body>
  <main id="app"></main>
  <script type="module" src="./index.js"></script>
</body>
</html>
`,

			"src/pages/index.js": `const app = document.getElementById("app");
app.innerHTML = ` + "`" + `
  <h1>{{.ProjectName}}</h1>
  <p>{{.Description}}</p>
  <p><a href="/orders/42/">Order 42</a></p>
` + "`" + `;
`,

			"src/pages/orders/[id]/index.js": `const params = window.{{.Global}} ?? {};
const app = document.getElementById("app");
app.textContent = "Order " + (params.id ?? "unknown");
`,

			"public/robots.txt": robotsTxt,
		},
	}
}

// viteTemplate returns the Vite template.
func viteTemplate() *Template {
	return &Template{
		Name:        "vite",
		Description: "TypeScript pages bundled by Vite",
		Files: map[string]string{
			"pages.yaml": `name: {{.ProjectName}}
dev:
  upstream: http://localhost:5174
build:
  bundler: command
  command: npx vite build
params:
  global: {{.Global}}
`,

			"package.json": `{
  "name": "{{.ProjectName}}",
  "private": true,
  "type": "module",
  "scripts": {
    "vite": "vite --port 5174 --strictPort",
    "dev": "pages dev",
    "build": "pages build"
  },
  "devDependencies": {
    "typescript": "^5.6.0",
    "vite": "^6.0.0"
  }
}
`,

			"vite.config.ts": `import { defineConfig } from "vite";

// pages build passes the page inputs and directories in the environment.
const inputs: Record<string, string> = JSON.parse(process.env.PAGES_INPUTS ?? "{}");

export default defineConfig({
  appType: "mpa",
  root: process.env.PAGES_ROOT ?? "src/pages",
  publicDir: false,
  build: {
    outDir: process.env.PAGES_OUT ?? "dist",
    emptyOutDir: false,
    rollupOptions: { input: inputs },
  },
});
`,

			"src/shared/params.ts": `declare global {
  interface Window {
    {{.Global}}?: Record<string, string>;
  }
}

export function getParams(): Record<string, string> {
  return window.{{.Global}} ?? {};
}

export function getParam(key: string): string | undefined {
  return getParams()[key];
}
`,

			"src/pages/index.html": `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>{{.ProjectName}}</title>
</head>
<body>
  <main id="app"></main>
  <script type="module" src="./index.tsx"></script>
</body>
</html>
`,

			"src/pages/index.tsx": `const app = document.getElementById("app")!;
app.innerHTML = ` + "`" + `
  <h1>{{.ProjectName}}</h1>
  <p>{{.Description}}</p>
  <p><a href="/orders/">Orders</a></p>
` + "`" + `;
`,

			"src/pages/orders/index.tsx": `const app = document.getElementById("app")!;
app.innerHTML = ["1", "2", "3"]
  .map((id) => ` + "`" + `<p><a href="/orders/${id}/">Order ${id}</a></p>` + "`" + `)
  .join("");
`,

			"src/pages/orders/[id]/index.tsx": `import { getParam } from "../../../shared/params";

const app = document.getElementById("app")!;
app.textContent = "Order " + (getParam("id") ?? "unknown");
`,

			"public/robots.txt": robotsTxt,
		},
	}
}
