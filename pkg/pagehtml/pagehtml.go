package pagehtml

import (
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/vango-dev/pages/pkg/router"
)

// DefaultGlobal is the window property that receives route params.
const DefaultGlobal = "__PARAMS__"

var (
	identRe     = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)
	bodyOpenRe  = regexp.MustCompile(`(?i)<body(\s[^>]*)?>`)
	titleRe     = regexp.MustCompile(`(?is)<title>.*?</title>`)
	relScriptRe = regexp.MustCompile(`src="\./([^"]+)"`)
)

// ParamsScript returns the script element assigning params to
// window[global].
func ParamsScript(global string, params router.Params) (string, error) {
	if !identRe.MatchString(global) {
		return "", fmt.Errorf("pagehtml: invalid global name %q", global)
	}
	data, err := params.MarshalJSON()
	if err != nil {
		return "", fmt.Errorf("pagehtml: encoding params: %w", err)
	}
	return "<script>window." + global + " = " + string(data) + ";</script>", nil
}

// InjectParams inserts the params script into page, assigning the params to
// window.__PARAMS__.
func InjectParams(page string, params router.Params) (string, error) {
	return InjectParamsAs(page, DefaultGlobal, params)
}

// InjectParamsAs is InjectParams with a custom global name. The script goes
// immediately before the first </head>; without a head, immediately after
// the first <body> tag; without either, at the very start.
func InjectParamsAs(page, global string, params router.Params) (string, error) {
	script, err := ParamsScript(global, params)
	if err != nil {
		return "", err
	}

	if idx := strings.Index(page, "</head>"); idx != -1 {
		return page[:idx] + script + page[idx:], nil
	}
	if loc := bodyOpenRe.FindStringIndex(page); loc != nil {
		return page[:loc[1]] + script + page[loc[1]:], nil
	}
	return script + page, nil
}

// RewriteScriptSrc rewrites every src="./X" attribute to src="<dir>/X".
// dir is an absolute URL directory without trailing slash; "" is the site
// root.
func RewriteScriptSrc(page, dir string) string {
	dir = strings.TrimSuffix(dir, "/")
	return relScriptRe.ReplaceAllStringFunc(page, func(m string) string {
		rel := relScriptRe.FindStringSubmatch(m)[1]
		return `src="` + dir + "/" + rel + `"`
	})
}

// Retitle replaces the contents of the first <title> element. Pages without
// a title are returned unchanged.
func Retitle(page, title string) string {
	loc := titleRe.FindStringIndex(page)
	if loc == nil {
		return page
	}
	return page[:loc[0]] + "<title>" + html.EscapeString(title) + "</title>" + page[loc[1]:]
}

// InjectBeforeBodyEnd inserts snippet before the last </body>, else before
// the last </html>, else appends it.
func InjectBeforeBodyEnd(page, snippet string) string {
	if idx := strings.LastIndex(page, "</body>"); idx != -1 {
		return page[:idx] + snippet + page[idx:]
	}
	if idx := strings.LastIndex(page, "</html>"); idx != -1 {
		return page[:idx] + snippet + page[idx:]
	}
	return page + snippet
}

// Render applies the transforms a resolved page needs before it is served:
// params injection, then script rewriting for fallback and dynamic pages.
func Render(page string, p *router.Page, global string) (string, error) {
	if global == "" {
		global = DefaultGlobal
	}
	out, err := InjectParamsAs(page, global, p.Params)
	if err != nil {
		return "", err
	}
	if p.NeedsScriptRewrite() {
		out = RewriteScriptSrc(out, p.ScriptURLDir())
	}
	return out, nil
}
