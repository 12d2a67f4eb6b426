// Package assets holds the serving policy shared by the production server and
// the publisher: which request paths map to files in the build output, the
// Content-Type of each file and how long clients may cache it.
//
//	rel, ok := assets.RelPath(r.URL.Path)
//	w.Header().Set("Cache-Control", assets.CacheControl(rel))
package assets

import (
	"mime"
	"path"
	"path/filepath"
	"strings"
)

// Cache-Control values.
const (
	CacheImmutable = "public, max-age=31536000, immutable"
	CacheShort     = "public, max-age=3600, must-revalidate"
	CacheNone      = "no-cache"
)

// AssetsDir is the output directory bundlers write hashed files to.
const AssetsDir = "assets"

// RelPath returns the slash-separated file path a request path refers to,
// relative to the output root. It rejects traversal, NUL bytes, backslashes
// and absolute-path tricks so a lookup cannot escape the output directory.
func RelPath(urlPath string) (string, bool) {
	rel := strings.TrimPrefix(urlPath, "/")
	if rel == "" {
		return "", false
	}

	if strings.IndexByte(rel, 0) != -1 || strings.Contains(rel, "\\") {
		return "", false
	}

	// "//etc/passwd" arrives here as "/etc/passwd".
	if strings.HasPrefix(rel, "/") {
		return "", false
	}

	// Check dot-segments before cleaning so traversal is not cleaned away.
	for _, seg := range strings.Split(rel, "/") {
		if seg == "." || seg == ".." {
			return "", false
		}
	}

	clean := path.Clean(rel)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") || strings.HasPrefix(clean, "/") {
		return "", false
	}

	osPath := filepath.FromSlash(clean)
	if filepath.IsAbs(osPath) || filepath.VolumeName(osPath) != "" {
		return "", false
	}

	return clean, true
}

// CacheControl returns the Cache-Control header for an output file.
// HTML is always revalidated; bundler output under assets/ and fingerprinted
// names are immutable; everything else gets a short cache.
func CacheControl(rel string) string {
	switch {
	case IsHTML(rel):
		return CacheNone
	case strings.HasPrefix(rel, AssetsDir+"/"), IsFingerprinted(rel):
		return CacheImmutable
	default:
		return CacheShort
	}
}

// IsHTML reports whether rel names an HTML document.
func IsHTML(rel string) bool {
	ext := strings.ToLower(path.Ext(rel))
	return ext == ".html" || ext == ".htm"
}

// ContentType returns the MIME type for rel from its extension, falling back
// to application/octet-stream.
func ContentType(rel string) string {
	ext := strings.ToLower(path.Ext(rel))
	if ct, ok := extraTypes[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// extraTypes covers extensions whose system mime entries are missing or
// disagree between platforms.
var extraTypes = map[string]string{
	".html":        "text/html; charset=utf-8",
	".htm":         "text/html; charset=utf-8",
	".js":          "text/javascript; charset=utf-8",
	".mjs":         "text/javascript; charset=utf-8",
	".css":         "text/css; charset=utf-8",
	".json":        "application/json",
	".map":         "application/json",
	".svg":         "image/svg+xml",
	".wasm":        "application/wasm",
	".webmanifest": "application/manifest+json",
	".woff2":       "font/woff2",
	".txt":         "text/plain; charset=utf-8",
}

// IsFingerprinted reports whether the file name carries a content hash,
// either dot-separated ("app.a1b2c3d4.css") or dash-separated
// ("index-BxkqN3aE.js").
func IsFingerprinted(rel string) bool {
	base := path.Base(rel)
	ext := path.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	if i := strings.LastIndexByte(stem, '.'); i >= 0 && isHex(stem[i+1:]) {
		return true
	}
	if i := strings.LastIndexByte(stem, '-'); i >= 0 && isHash(stem[i+1:]) {
		return true
	}
	return false
}

func isHex(s string) bool {
	if len(s) < 8 {
		return false
	}
	for _, c := range s {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')) {
			return false
		}
	}
	return true
}

// isHash matches the base64url-ish hashes bundlers append after a dash. A
// hash mixes digits or upper case with lower case, which plain words do not.
func isHash(s string) bool {
	if len(s) != 8 {
		return false
	}
	var lower, other bool
	for _, c := range s {
		switch {
		case c >= 'a' && c <= 'z':
			lower = true
		case (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_':
			other = true
		default:
			return false
		}
	}
	return lower && other
}
