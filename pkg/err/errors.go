// Package err defines common errors for the tmplguard project.
package err

import (
	"errors"
	"fmt"
)

// Type text errors.
var (
	ErrEmptyType        = errors.New("types: empty type text")
	ErrUnexpectedToken  = errors.New("types: unexpected token")
	ErrUnterminated     = errors.New("types: unterminated literal or group")
	ErrUnknownTypeParam = errors.New("types: unknown type parameter")
)

// Case file errors.
var (
	ErrMissingTemplates = errors.New("casefile: suite has no templates")
	ErrMissingType      = errors.New("casefile: expression has no type")
	ErrNegativeLocation = errors.New("casefile: negative line or column")
)

// ErrNoInput is returned by the command line when neither a Rego module nor a
// case file is given.
var ErrNoInput = errors.New("no input given")

// ErrParseType returns an error for a type text that could not be parsed.
//
// Parameters:
//
//	src string: The type text.
//	cause error: The underlying error.
//
// Returns:
//
//	error: The formatted error.
func ErrParseType(src string, cause error) error {
	return fmt.Errorf("failed to parse type %q: %w", src, cause)
}

// ErrTokenAt reports an unexpected token at a byte offset of the type text.
func ErrTokenAt(tok string, offset int) error {
	return fmt.Errorf("%w %q at offset %d", ErrUnexpectedToken, tok, offset)
}

// ErrTypeParam reports a type parameter whose constraint could not be declared.
func ErrTypeParam(name string, cause error) error {
	return fmt.Errorf("failed to declare type parameter %s: %w", name, cause)
}

// ErrSuite wraps an error raised while building a case file suite.
func ErrSuite(name string, cause error) error {
	return fmt.Errorf("suite %q: %w", name, cause)
}
