package templates

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/vango-dev/pages/internal/config"
	"github.com/vango-dev/pages/internal/errors"
	"github.com/vango-dev/pages/pkg/router"
)

func TestGet(t *testing.T) {
	for _, name := range []string{"minimal", "vite"} {
		tmpl, err := Get(name)
		if err != nil {
			t.Fatalf("Get(%q) error: %v", name, err)
		}
		if tmpl.Name != name {
			t.Errorf("Name = %q, want %q", tmpl.Name, name)
		}
	}

	if _, err := Get("nonexistent"); !errors.HasCode(err, "E145") {
		t.Errorf("Get(nonexistent) error = %v, want E145", err)
	}
}

func TestList(t *testing.T) {
	if diff := cmp.Diff([]string{"minimal", "vite"}, List()); diff != "" {
		t.Errorf("List() mismatch (-want +got):\n%s", diff)
	}
}

func TestCreateMinimal(t *testing.T) {
	dir := t.TempDir()
	tmpl, _ := Get("minimal")

	created, err := tmpl.Create(dir, Config{ProjectName: "shop", Description: "A test shop"})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if len(created) != len(tmpl.Files) {
		t.Errorf("created %d files, want %d", len(created), len(tmpl.Files))
	}

	index, _ := os.ReadFile(filepath.Join(dir, "src", "pages", "index.js"))
	if !strings.Contains(string(index), "shop") || !strings.Contains(string(index), "A test shop") {
		t.Errorf("variables not substituted:\n%s", index)
	}
	order, _ := os.ReadFile(filepath.Join(dir, "src", "pages", "orders", "[id]", "index.js"))
	if !strings.Contains(string(order), "window.__PARAMS__") {
		t.Errorf("default global not used:\n%s", order)
	}
}

// Every template must load as a valid project whose pages resolve.
func TestTemplatesProduceProjects(t *testing.T) {
	for _, name := range List() {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			tmpl, _ := Get(name)
			if _, err := tmpl.Create(dir, Config{ProjectName: "shop", Global: "APP_PARAMS"}); err != nil {
				t.Fatalf("Create() error: %v", err)
			}

			cfg, err := config.Load(dir)
			if err != nil {
				t.Fatalf("config.Load() error: %v", err)
			}
			if err := cfg.Validate(); err != nil {
				t.Fatalf("Validate() error: %v", err)
			}
			if cfg.Params.Global != "APP_PARAMS" {
				t.Errorf("params.global = %q", cfg.Params.Global)
			}

			resolver := router.NewResolver(os.DirFS(cfg.PagesPath()), router.WithEntry(cfg.Paths.Entry))
			page, err := resolver.Resolve("/orders/7/")
			if err != nil {
				t.Fatalf("Resolve() error: %v", err)
			}
			if id, _ := page.Params.Get("id"); !page.IsFallback || id != "7" {
				t.Errorf("page = %+v", page)
			}
		})
	}
}

func TestCreateNeverOverwrites(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "pages.yaml")
	if err := os.WriteFile(existing, []byte("name: mine\n"), 0644); err != nil {
		t.Fatal(err)
	}

	tmpl, _ := Get("vite")
	created, err := tmpl.Create(dir, Config{ProjectName: "shop"})
	if !errors.HasCode(err, "E140") {
		t.Fatalf("Create() error = %v, want E140", err)
	}
	if len(created) != 0 {
		t.Errorf("created %v before failing", created)
	}

	data, _ := os.ReadFile(existing)
	if string(data) != "name: mine\n" {
		t.Errorf("existing file overwritten: %q", data)
	}
	if _, err := os.Stat(filepath.Join(dir, "package.json")); !os.IsNotExist(err) {
		t.Errorf("package.json written despite conflict: %v", err)
	}
}
