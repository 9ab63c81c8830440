package errors

import (
	"bufio"
	stderrors "errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
)

// Category represents the type of error.
type Category string

const (
	CategoryConfig  Category = "config"
	CategoryCLI     Category = "cli"
	CategoryRuntime Category = "runtime"
)

// Location represents a position in a file.
type Location struct {
	File   string
	Line   int
	Column int
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

// QuarkError is a structured error with location, suggestion and detail.
type QuarkError struct {
	// Code is a unique error identifier (e.g., "Q101").
	Code string

	// Category is the error type.
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of the error.
	Detail string

	// Location points at the offending line, if known.
	Location *Location

	// Context holds the lines surrounding Location, starting at line
	// ContextStart.
	Context      []string
	ContextStart int

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *QuarkError) Error() string {
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
func (e *QuarkError) Unwrap() error {
	return e.Wrapped
}

// WithLocation records the file position and reads the surrounding lines.
func (e *QuarkError) WithLocation(file string, line, column int) *QuarkError {
	e.Location = &Location{File: file, Line: line, Column: column}
	e.ContextStart, e.Context = readContextLines(file, line, 5)
	return e
}

// yamlLine matches the "line N" fragment yaml.v3 puts in its errors.
var yamlLine = regexp.MustCompile(`line (\d+)`)

// WithLocationFromError extracts a line number from a YAML or JSON decoder
// error and records it as the location in file.
func (e *QuarkError) WithLocationFromError(file string, err error) *QuarkError {
	if err == nil {
		return e
	}
	if m := yamlLine.FindStringSubmatch(err.Error()); m != nil {
		if line, convErr := strconv.Atoi(m[1]); convErr == nil && line > 0 {
			return e.WithLocation(file, line, 0)
		}
	}
	e.Location = &Location{File: file}
	return e
}

// WithSuggestion adds a fix suggestion to the error.
func (e *QuarkError) WithSuggestion(s string) *QuarkError {
	e.Suggestion = s
	return e
}

// WithDetail replaces the registered explanation.
func (e *QuarkError) WithDetail(d string) *QuarkError {
	e.Detail = d
	return e
}

// Wrap wraps another error.
func (e *QuarkError) Wrap(err error) *QuarkError {
	e.Wrapped = err
	return e
}

// readContextLines reads lines around the specified line number from a file
// and returns the number of the first line read.
func readContextLines(filename string, targetLine, contextSize int) (int, []string) {
	file, err := os.Open(filename)
	if err != nil {
		return 0, nil
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	lineNum := 0
	startLine := max(targetLine-contextSize/2, 1)
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

	return startLine, lines
}

// New creates a QuarkError from a registered error code.
func New(code string) *QuarkError {
	template, ok := registry[code]
	if !ok {
		return &QuarkError{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &QuarkError{
		Code:     code,
		Category: template.Category,
		Message:  template.Message,
		Detail:   template.Detail,
	}
}

// Newf creates a QuarkError with a formatted message and no code.
func Newf(category Category, format string, args ...any) *QuarkError {
	return &QuarkError{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError wraps a standard error in a QuarkError. An error that already
// is, or wraps, a QuarkError is returned unchanged.
func FromError(err error, code string) *QuarkError {
	if err == nil {
		return nil
	}
	var qe *QuarkError
	if stderrors.As(err, &qe) {
		return qe
	}
	return New(code).Wrap(err)
}
