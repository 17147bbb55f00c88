// Package errs defines the coded error taxonomy for flow verification.
// Every failure a scenario can surface carries one of these codes so the
// runner, reporter, and CLI can act on the kind of failure without string
// matching.
package errs

import (
	"errors"
	"fmt"
	"time"
)

// Code is a verification error code.
type Code string

const (
	// ElementNotFound: a selector matched zero elements.
	ElementNotFound Code = "element_not_found"
	// AmbiguousElement: a selector matched more than one element.
	AmbiguousElement Code = "ambiguous_element"
	// Timeout: an assertion or wait did not resolve within its bound.
	Timeout Code = "timeout"
	// Navigation: the URL after an action does not match expectation.
	Navigation Code = "navigation"
	// ValidationMismatch: an expected failure-path message did not appear.
	ValidationMismatch Code = "validation_mismatch"
	// Launch: the browser or target could not be started or reached.
	Launch Code = "launch"
	// InvalidConfig: the harness configuration is unusable.
	InvalidConfig Code = "invalid_config"
	// Internal: anything without a more specific code.
	Internal Code = "internal"
)

// Error is a coded verification error. Selector and Elapsed are optional
// diagnostics carried to the scenario report.
type Error struct {
	Code     Code
	Message  string
	Selector string        // failing selector or predicate description
	Elapsed  time.Duration // wait time spent before giving up
	Err      error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if msg == "" {
		msg = string(e.Code)
	}
	if e.Selector != "" && e.Elapsed > 0 {
		return fmt.Sprintf("%s (selector %q, waited %s)", msg, e.Selector, e.Elapsed.Round(time.Millisecond))
	}
	if e.Selector != "" {
		return fmt.Sprintf("%s (selector %q)", msg, e.Selector)
	}
	return msg
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a coded error with message.
func New(code Code, message string) error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Newf creates a coded error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a coded error with message and cause.
func Wrap(code Code, message string, cause error) error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     cause,
	}
}

// WithSelector creates a coded error annotated with the failing selector.
func WithSelector(code Code, message, selector string) error {
	return &Error{
		Code:     code,
		Message:  message,
		Selector: selector,
	}
}

// Expired creates a timeout-class error recording the predicate and elapsed wait.
func Expired(code Code, desc string, elapsed time.Duration, cause error) error {
	return &Error{
		Code:     code,
		Message:  "wait expired",
		Selector: desc,
		Elapsed:  elapsed,
		Err:      cause,
	}
}

// CodeOf returns the error code, defaulting to internal.
func CodeOf(err error) Code {
	if err == nil {
		return Internal
	}
	var coded *Error
	if errors.As(err, &coded) {
		if coded.Code == "" {
			return Internal
		}
		return coded.Code
	}
	return Internal
}

// MessageOf returns a report-facing error message.
// Errors without a typed wrapper collapse to "internal error" so raw driver
// output does not leak into reports verbatim.
func MessageOf(err error) string {
	if err == nil {
		return string(Internal)
	}
	var coded *Error
	if errors.As(err, &coded) && coded.Message != "" {
		return coded.Message
	}
	return "internal error"
}

// IsTerminalForChain reports whether an error blocks dependent scenarios in
// the same serial chain. All verification failures do; only a clean pass
// lets a chain continue.
func IsTerminalForChain(err error) bool {
	return err != nil
}

// ExitCode maps an error code to a process exit code: configuration and
// launch problems are distinguished from verification failures.
func ExitCode(code Code) int {
	switch code {
	case InvalidConfig, Launch:
		return 2
	default:
		return 1
	}
}
