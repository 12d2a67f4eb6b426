// Package routepath canonicalizes and decodes URL paths before they reach the
// page resolver.
package routepath

import (
	"errors"
	"net/url"
	"strings"
)

// Result contains the result of path canonicalization.
type Result struct {
	// Path is the canonical path without trailing slash ("/" for the root).
	Path string

	// Query is the query string (without leading "?").
	Query string

	// TrailingSlash reports whether the input path ended in "/".
	TrailingSlash bool

	// Changed indicates if the path was modified during canonicalization,
	// ignoring a trailing slash.
	Changed bool
}

// Dir returns the canonical path in directory form, always ending in "/".
func (r Result) Dir() string {
	if r.Path == "/" {
		return "/"
	}
	return r.Path + "/"
}

// Path canonicalization errors.
var (
	ErrInvalidPath           = errors.New("invalid path")
	ErrBackslashInPath       = errors.New("path contains backslash")
	ErrNullByteInPath        = errors.New("path contains null byte")
	ErrInvalidPercentEscape  = errors.New("invalid percent escape sequence")
	ErrPathEscapesRoot       = errors.New("path escapes root via ..")
	ErrEncodedSlashInSegment = errors.New("encoded slash (%2F) in segment")
)

// Canonicalize normalizes a URL path.
//
// The following transformations are applied:
//   - Collapse multiple slashes (/orders//1 → /orders/1)
//   - Remove "." segments (/orders/./1 → /orders/1)
//   - Resolve ".." segments (/orders/../admin → /admin)
//   - Drop the trailing slash (recorded in Result.TrailingSlash)
//
// The following inputs are rejected with an error:
//   - Paths containing backslash (\)
//   - Paths containing NUL byte (literal or %00)
//   - Invalid percent-escapes (e.g., %GG, %2)
//   - ".." that would escape root (e.g., /../secret)
//
// The input may include a query string, which is preserved but not canonicalized.
func Canonicalize(input string) (Result, error) {
	if input == "" {
		return Result{Path: "/", Changed: true}, nil
	}

	path, query, _ := strings.Cut(input, "?")

	if strings.Contains(path, "\\") {
		return Result{}, ErrBackslashInPath
	}

	if strings.Contains(path, "\x00") || strings.Contains(strings.ToUpper(path), "%00") {
		return Result{}, ErrNullByteInPath
	}

	if strings.Contains(path, "%") {
		if err := validatePercentEscapes(path); err != nil {
			return Result{}, err
		}
	}

	trailing := len(path) > 1 && strings.HasSuffix(path, "/")
	original := strings.TrimSuffix(path, "/")
	if original == "" {
		original = "/"
	}

	segments := strings.Split(path, "/")
	result := make([]string, 0, len(segments))

	for _, seg := range segments {
		switch seg {
		case "", ".":
			continue
		case "..":
			if len(result) == 0 {
				return Result{}, ErrPathEscapesRoot
			}
			result = result[:len(result)-1]
		default:
			result = append(result, seg)
		}
	}

	path = "/" + strings.Join(result, "/")

	return Result{
		Path:          path,
		Query:         query,
		TrailingSlash: trailing || path == "/",
		Changed:       path != original,
	}, nil
}

// validatePercentEscapes checks that all percent-escapes are valid.
// Valid escapes are %XX where X is a hex digit (0-9, a-f, A-F).
func validatePercentEscapes(path string) error {
	i := 0
	for i < len(path) {
		if path[i] == '%' {
			if i+2 >= len(path) {
				return ErrInvalidPercentEscape
			}
			if !isHexDigit(path[i+1]) || !isHexDigit(path[i+2]) {
				return ErrInvalidPercentEscape
			}
			i += 3
		} else {
			i++
		}
	}
	return nil
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

// DecodeSegment decodes a single escaped path segment. A segment that
// decodes to something containing "/" is rejected: a directory name can
// never contain a slash, and a param value must stay a single segment.
func DecodeSegment(segment string) (string, error) {
	decoded, err := url.PathUnescape(segment)
	if err != nil {
		return "", ErrInvalidPercentEscape
	}
	if strings.Contains(decoded, "/") {
		return "", ErrEncodedSlashInSegment
	}
	return decoded, nil
}

// Segments splits an escaped path into decoded, non-empty segments.
func Segments(escapedPath string) ([]string, error) {
	trimmed := strings.Trim(escapedPath, "/")
	if trimmed == "" {
		return nil, nil
	}

	parts := strings.Split(trimmed, "/")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			continue
		}
		decoded, err := DecodeSegment(part)
		if err != nil {
			return nil, err
		}
		result = append(result, decoded)
	}
	return result, nil
}

// RedirectTarget returns the local redirect location that adds a trailing
// slash to path. Absolute and protocol-relative URLs are rejected so the
// redirect can never leave the site.
func RedirectTarget(input string) (string, error) {
	if strings.HasPrefix(input, "http://") ||
		strings.HasPrefix(input, "https://") ||
		!strings.HasPrefix(input, "/") {
		return "", ErrInvalidPath
	}

	result, err := Canonicalize(input)
	if err != nil {
		return "", err
	}

	target := result.Dir()
	if result.Query != "" {
		target += "?" + result.Query
	}
	return target, nil
}
