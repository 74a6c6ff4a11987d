package types

import (
	"errors"
	"fmt"
)

// ErrorKind partitions digest failures into the categories callers map onto
// their own status handling.
type ErrorKind string

const (
	// ErrorKindSource covers acquisition failures: unreachable remotes,
	// unknown branches, missing or rejected local paths.
	ErrorKindSource ErrorKind = "source"
	// ErrorKindPattern covers malformed glob patterns.
	ErrorKindPattern ErrorKind = "pattern"
	// ErrorKindSize covers max-file-size values outside the accepted range.
	ErrorKindSize ErrorKind = "size"
	// ErrorKindEngine covers unexpected internal failures.
	ErrorKindEngine ErrorKind = "engine"
)

// Error is the single error type returned by digest computations. NotFound
// distinguishes a missing repository, branch, or path from a transient failure.
type Error struct {
	Kind     ErrorKind
	NotFound bool
	Message  string
	Cause    error
}

func (digestError *Error) Error() string {
	if digestError.Cause != nil {
		return fmt.Sprintf("%s: %v", digestError.Message, digestError.Cause)
	}
	return digestError.Message
}

func (digestError *Error) Unwrap() error {
	return digestError.Cause
}

// NewSourceError builds a source acquisition failure. notFound marks failures
// caused by a missing repository, branch, or path rather than a transient fault.
func NewSourceError(message string, cause error, notFound bool) *Error {
	return &Error{Kind: ErrorKindSource, NotFound: notFound, Message: message, Cause: cause}
}

// NewPatternError builds a malformed-pattern failure.
func NewPatternError(message string, cause error) *Error {
	return &Error{Kind: ErrorKindPattern, Message: message, Cause: cause}
}

// NewSizeError builds a max-file-size validation failure.
func NewSizeError(message string) *Error {
	return &Error{Kind: ErrorKindSize, Message: message}
}

// NewEngineError wraps an unexpected internal failure.
func NewEngineError(message string, cause error) *Error {
	return &Error{Kind: ErrorKindEngine, Message: message, Cause: cause}
}

// KindOf extracts the error kind from err, defaulting to ErrorKindEngine for
// errors that did not originate in the digest engine.
func KindOf(err error) ErrorKind {
	var digestError *Error
	if errors.As(err, &digestError) {
		return digestError.Kind
	}
	return ErrorKindEngine
}

// IsNotFound reports whether err represents a missing repository, branch, or path.
func IsNotFound(err error) bool {
	var digestError *Error
	return errors.As(err, &digestError) && digestError.NotFound
}
