package errors

import (
	"bufio"
	"errors"
	"fmt"
	"os"
)

// Category represents the type of error.
type Category string

const (
	CategoryRouting Category = "routing"
	CategoryConfig  Category = "config"
	CategoryBuild   Category = "build"
	CategoryPublish Category = "publish"
	CategoryCLI     Category = "cli"
)

// Location represents a position in a source or configuration file.
type Location struct {
	File   string `json:"file"`
	Line   int    `json:"line"`
	Column int    `json:"column,omitempty"`
}

// String returns the location as a formatted string.
func (l *Location) String() string {
	if l == nil {
		return ""
	}
	if l.Column > 0 {
		return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
	}
	return fmt.Sprintf("%s:%d", l.File, l.Line)
}

// PagesError is a structured error with a registry code, optional location,
// suggestions and a wrapped cause.
type PagesError struct {
	// Code is a unique error identifier (e.g., "E142").
	Code string

	// Category is the error type.
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of the error.
	Detail string

	// Location points into the file that caused the error, if any.
	Location *Location

	// Context contains the lines surrounding Location.
	Context []string

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// DocURL is a link to documentation about this error.
	DocURL string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *PagesError) Error() string {
	msg := e.Message
	if e.Code != "" {
		msg = e.Code + ": " + msg
	}
	if e.Wrapped != nil {
		msg += ": " + e.Wrapped.Error()
	}
	return msg
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *PagesError) Unwrap() error {
	return e.Wrapped
}

// WithLocation adds a file location to the error and loads the surrounding
// lines for display.
func (e *PagesError) WithLocation(file string, line, column int) *PagesError {
	e.Location = &Location{File: file, Line: line, Column: column}
	e.Context = readContextLines(file, line, 5)
	return e
}

// WithSuggestion adds a fix suggestion to the error.
func (e *PagesError) WithSuggestion(s string) *PagesError {
	e.Suggestion = s
	return e
}

// WithDetail adds a detailed explanation to the error.
func (e *PagesError) WithDetail(d string) *PagesError {
	e.Detail = d
	return e
}

// Wrap wraps another error.
func (e *PagesError) Wrap(err error) *PagesError {
	e.Wrapped = err
	return e
}

// readContextLines reads lines around the specified line number from a file.
func readContextLines(filename string, targetLine, contextSize int) []string {
	file, err := os.Open(filename)
	if err != nil {
		return nil
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	lineNum := 0
	startLine := targetLine - contextSize/2
	endLine := targetLine + contextSize/2

	for scanner.Scan() {
		lineNum++
		if lineNum >= startLine && lineNum <= endLine {
			lines = append(lines, scanner.Text())
		}
		if lineNum > endLine {
			break
		}
	}

	return lines
}

// New creates a PagesError from a registered error code.
func New(code string) *PagesError {
	template, ok := registry[code]
	if !ok {
		return &PagesError{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &PagesError{
		Code:     code,
		Category: template.Category,
		Message:  template.Message,
		Detail:   template.Detail,
		DocURL:   template.DocURL,
	}
}

// Newf creates a new PagesError with a formatted message (no code).
func Newf(category Category, format string, args ...any) *PagesError {
	return &PagesError{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError wraps a standard error in a PagesError. Errors that already are
// (or wrap) a PagesError are returned as that PagesError.
func FromError(err error, code string) *PagesError {
	if err == nil {
		return nil
	}
	var pe *PagesError
	if asPagesError(err, &pe) {
		return pe
	}
	return New(code).Wrap(err)
}

func asPagesError(err error, target **PagesError) bool {
	return errors.As(err, target)
}

// HasCode reports whether err is, or wraps, a PagesError with the given code.
func HasCode(err error, code string) bool {
	var pe *PagesError
	for err != nil {
		if !errors.As(err, &pe) {
			return false
		}
		if pe.Code == code {
			return true
		}
		err = pe.Wrapped
	}
	return false
}
