package router

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
)

const (
	// IndexHTML is the HTML entry point file name of every page directory.
	IndexHTML = "index.html"

	// DefaultEntry is the default entry script file name.
	DefaultEntry = "index.tsx"
)

// ErrNotFound is returned when no directory resolves a URL path.
var ErrNotFound = errors.New("router: page not found")

// Param is one bound dynamic segment.
type Param struct {
	Name  string
	Value string
}

// Params holds the dynamic segments bound while resolving a page, in
// traversal order.
type Params []Param

// Get returns the value bound to name.
func (p Params) Get(name string) (string, bool) {
	for _, param := range p {
		if param.Name == name {
			return param.Value, true
		}
	}
	return "", false
}

// Map returns the params as an unordered map.
func (p Params) Map() map[string]string {
	m := make(map[string]string, len(p))
	for _, param := range p {
		m[param.Name] = param.Value
	}
	return m
}

// with returns a copy of p with name bound to value. A name that is already
// bound keeps its position and takes the new value.
func (p Params) with(name, value string) Params {
	out := make(Params, len(p), len(p)+1)
	copy(out, p)
	for i := range out {
		if out[i].Name == name {
			out[i].Value = value
			return out
		}
	}
	return append(out, Param{Name: name, Value: value})
}

// MarshalJSON encodes the params as a JSON object whose keys keep
// traversal order. Nil params encode as {}.
func (p Params) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, param := range p {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(param.Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(param.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Page is a resolved page.
type Page struct {
	// HTMLPath is the slash-separated path of the HTML document relative
	// to the pages root.
	HTMLPath string

	// Params are the dynamic segments bound on the matched branch.
	Params Params

	// ScriptDir is the directory holding the page's entry script, relative
	// to the pages root ("." for the root). It differs from HTMLPath's
	// directory for fallback pages.
	ScriptDir string

	// IsFallback is true when the root index.html stands in for a directory
	// that only has an entry script.
	IsFallback bool
}

// ScriptURLDir returns ScriptDir as an absolute URL path without trailing
// slash ("" for the root).
func (p *Page) ScriptURLDir() string {
	if p.ScriptDir == "." || p.ScriptDir == "" {
		return ""
	}
	return "/" + strings.TrimPrefix(p.ScriptDir, "/")
}

// NeedsScriptRewrite reports whether relative script paths in the served
// HTML would resolve against the wrong directory.
func (p *Page) NeedsScriptRewrite() bool {
	return p.IsFallback || len(p.Params) > 0
}

// ParamName returns the bound name of a dynamic segment directory ("[id]"
// → "id"). ok is false for static names and for the empty "[]".
func ParamName(dirName string) (name string, ok bool) {
	if len(dirName) < 3 || dirName[0] != '[' || dirName[len(dirName)-1] != ']' {
		return "", false
	}
	return dirName[1 : len(dirName)-1], true
}

// IsDynamic reports whether dirName is a dynamic segment.
func IsDynamic(dirName string) bool {
	_, ok := ParamName(dirName)
	return ok
}
