// Package errors provides error classification and exit-code mapping for
// clusterun.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents the classification of errors
type ErrorType int

const (
	// SetupErrorType represents configuration or validation errors detected
	// before any side effect
	SetupErrorType ErrorType = iota

	// SubmissionErrorType represents queue submission failures
	SubmissionErrorType

	// ExecutionErrorType represents user command failures during a run
	ExecutionErrorType

	// ResolutionErrorType represents failures loading a symbol from an
	// external code file
	ResolutionErrorType

	// UnknownErrorType represents unclassified errors
	UnknownErrorType
)

// String returns a string representation of the error type
func (et ErrorType) String() string {
	switch et {
	case SetupErrorType:
		return "setup"
	case SubmissionErrorType:
		return "submission"
	case ExecutionErrorType:
		return "execution"
	case ResolutionErrorType:
		return "resolution"
	default:
		return "unknown"
	}
}

// ClassifiedError wraps an error with classification information
type ClassifiedError struct {
	Type     ErrorType
	Original error
	Message  string
}

// Error implements the error interface
func (ce *ClassifiedError) Error() string {
	if ce.Message != "" {
		return ce.Message
	}
	if ce.Original != nil {
		return ce.Original.Error()
	}
	return "unknown error"
}

// Unwrap returns the original error for error unwrapping
func (ce *ClassifiedError) Unwrap() error {
	return ce.Original
}

// NewSetupError creates a new setup error
func NewSetupError(message string, original error) *ClassifiedError {
	return &ClassifiedError{Type: SetupErrorType, Original: original, Message: message}
}

// NewSubmissionError creates a new submission error
func NewSubmissionError(message string, original error) *ClassifiedError {
	return &ClassifiedError{Type: SubmissionErrorType, Original: original, Message: message}
}

// NewExecutionError creates a new execution error
func NewExecutionError(message string, original error) *ClassifiedError {
	return &ClassifiedError{Type: ExecutionErrorType, Original: original, Message: message}
}

// NewResolutionError creates a new resolution error
func NewResolutionError(message string, original error) *ClassifiedError {
	return &ClassifiedError{Type: ResolutionErrorType, Original: original, Message: message}
}

// TypeOf returns the classification of err, or UnknownErrorType if it does
// not carry one.
func TypeOf(err error) ErrorType {
	var classified *ClassifiedError
	if errors.As(err, &classified) {
		return classified.Type
	}
	return UnknownErrorType
}

// ExitCode maps an error to the process exit code:
//   - 0: success
//   - 1: execution or submission failure (some permutations or jobs failed)
//   - 2: setup, resolution, or unknown error (nothing was attempted, or the
//     failure was not a command's own exit status)
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	switch TypeOf(err) {
	case ExecutionErrorType, SubmissionErrorType:
		return 1
	default:
		return 2
	}
}

// ErrorCollector collects and categorizes multiple errors
type ErrorCollector struct {
	errors map[ErrorType][]error
	count  int
}

// NewErrorCollector creates a new error collector
func NewErrorCollector() *ErrorCollector {
	return &ErrorCollector{
		errors: make(map[ErrorType][]error),
	}
}

// Add adds an error to the collector
func (ec *ErrorCollector) Add(err error) {
	if err == nil {
		return
	}
	errorType := TypeOf(err)
	ec.errors[errorType] = append(ec.errors[errorType], err)
	ec.count++
}

// Count returns the total number of errors
func (ec *ErrorCollector) Count() int {
	return ec.count
}

// CountByType returns the number of errors of a specific type
func (ec *ErrorCollector) CountByType(errorType ErrorType) int {
	return len(ec.errors[errorType])
}

// HasErrors returns true if there are any errors
func (ec *ErrorCollector) HasErrors() bool {
	return ec.count > 0
}

// Summary returns a summary of all collected errors
func (ec *ErrorCollector) Summary() string {
	if ec.count == 0 {
		return "no errors"
	}

	var parts []string
	for errorType := SetupErrorType; errorType <= UnknownErrorType; errorType++ {
		if len(ec.errors[errorType]) > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", len(ec.errors[errorType]), errorType.String()))
		}
	}
	return fmt.Sprintf("total: %d errors (%s)", ec.count, strings.Join(parts, ", "))
}
