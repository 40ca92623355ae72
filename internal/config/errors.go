package config

import (
	"errors"
	"fmt"
)

// Errors returned by configuration operations.
var (
	// ErrFileNotFound indicates an explicitly named configuration file
	// doesn't exist.
	ErrFileNotFound = errors.New("config file not found")

	// ErrValidationFailed indicates a value the host cannot run with.
	ErrValidationFailed = errors.New("validation failed")

	// ErrInvalidEnv indicates an environment override that does not parse.
	ErrInvalidEnv = errors.New("invalid environment override")
)

// ParseError represents an error while parsing a configuration file.
type ParseError struct {
	// Path is the file path that failed to parse.
	Path string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error in %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *ParseError) Unwrap() error {
	return e.Err
}
