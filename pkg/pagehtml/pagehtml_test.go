package pagehtml

import (
	"strings"
	"testing"

	"github.com/vango-dev/pages/pkg/router"
)

func TestInjectParams(t *testing.T) {
	params := router.Params{{Name: "id", Value: "123"}}
	script := `<script>window.__PARAMS__ = {"id":"123"};</script>`

	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			"before head end",
			"<html><head><title>x</title></head><body></body></html>",
			"<html><head><title>x</title>" + script + "</head><body></body></html>",
		},
		{
			"first head end only",
			"<head></head><template></head></template>",
			"<head>" + script + "</head><template></head></template>",
		},
		{
			"after body start",
			"<html><body><div></div></body></html>",
			"<html><body>" + script + "<div></div></body></html>",
		},
		{
			"body with attributes",
			`<body class="app"><main></main></body>`,
			`<body class="app">` + script + "<main></main></body>",
		},
		{
			"prepended",
			"<div>bare</div>",
			script + "<div>bare</div>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := InjectParams(tt.in, params)
			if err != nil {
				t.Fatalf("InjectParams() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("InjectParams() =\n%s\nwant\n%s", got, tt.want)
			}
		})
	}
}

func TestInjectParamsKeepsOrderAndEmpty(t *testing.T) {
	got, err := InjectParams("", router.Params{{Name: "b", Value: "2"}, {Name: "a", Value: "1"}})
	if err != nil {
		t.Fatal(err)
	}
	if want := `<script>window.__PARAMS__ = {"b":"2","a":"1"};</script>`; got != want {
		t.Errorf("got %s, want %s", got, want)
	}

	got, err = InjectParams("<head></head>", nil)
	if err != nil {
		t.Fatal(err)
	}
	if want := `<head><script>window.__PARAMS__ = {};</script></head>`; got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestInjectParamsAs(t *testing.T) {
	got, err := InjectParamsAs("", "routeParams", router.Params{{Name: "id", Value: "1"}})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(got, "<script>window.routeParams = ") {
		t.Errorf("got %s", got)
	}

	for _, bad := range []string{"", "1abc", "a.b", "x;alert(1)"} {
		if _, err := InjectParamsAs("", bad, nil); err == nil {
			t.Errorf("InjectParamsAs(global=%q) should fail", bad)
		}
	}
}

func TestInjectParamsEscapesScriptEnd(t *testing.T) {
	got, err := InjectParams("", router.Params{{Name: "q", Value: "</script><script>alert(1)"}})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Count(got, "</script>") != 1 {
		t.Errorf("param value closed the script element: %s", got)
	}
}

func TestRewriteScriptSrc(t *testing.T) {
	in := `<script type="module" src="./index.tsx"></script><img src="./logo.svg"><script src="/abs.js"></script>`

	got := RewriteScriptSrc(in, "/orders/[id]")
	want := `<script type="module" src="/orders/[id]/index.tsx"></script><img src="/orders/[id]/logo.svg"><script src="/abs.js"></script>`
	if got != want {
		t.Errorf("RewriteScriptSrc() =\n%s\nwant\n%s", got, want)
	}

	if got := RewriteScriptSrc(`src="./index.tsx"`, ""); got != `src="/index.tsx"` {
		t.Errorf("root rewrite = %s", got)
	}
	if got := RewriteScriptSrc(`src="./a.js"`, "/$1/"); got != `src="/$1/a.js"` {
		t.Errorf("dir is not a replacement template: %s", got)
	}
}

func TestRetitle(t *testing.T) {
	tests := []struct {
		in, title, want string
	}{
		{"<head><title>Home</title></head>", "Orders", "<head><title>Orders</title></head>"},
		{"<title>\n  Home\n</title><title>Two</title>", "Page", "<title>Page</title><title>Two</title>"},
		{"<head></head>", "Orders", "<head></head>"},
		{"<title>x</title>", "A & B", "<title>A &amp; B</title>"},
	}
	for _, tt := range tests {
		if got := Retitle(tt.in, tt.title); got != tt.want {
			t.Errorf("Retitle(%q, %q) = %q, want %q", tt.in, tt.title, got, tt.want)
		}
	}
}

func TestInjectBeforeBodyEnd(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"<body><p></p></body></html>", "<body><p></p>X</body></html>"},
		{"<html><p></p></html>", "<html><p></p>X</html>"},
		{"<p></p>", "<p></p>X"},
	}
	for _, tt := range tests {
		if got := InjectBeforeBodyEnd(tt.in, "X"); got != tt.want {
			t.Errorf("InjectBeforeBodyEnd(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRender(t *testing.T) {
	const tmpl = `<html><head></head><body><script type="module" src="./index.tsx"></script></body></html>`

	fallback := &router.Page{
		HTMLPath:   "index.html",
		ScriptDir:  "orders/[id]",
		Params:     router.Params{{Name: "id", Value: "123"}},
		IsFallback: true,
	}
	got, err := Render(tmpl, fallback, "")
	if err != nil {
		t.Fatal(err)
	}
	want := `<html><head><script>window.__PARAMS__ = {"id":"123"};</script></head><body><script type="module" src="/orders/[id]/index.tsx"></script></body></html>`
	if got != want {
		t.Errorf("Render() =\n%s\nwant\n%s", got, want)
	}

	static := &router.Page{HTMLPath: "about/index.html", ScriptDir: "about"}
	got, err = Render(tmpl, static, "")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, `src="./index.tsx"`) {
		t.Errorf("static page scripts must stay relative: %s", got)
	}
}
