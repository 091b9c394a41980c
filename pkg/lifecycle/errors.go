package lifecycle

import (
	"errors"
	"fmt"

	"github.com/gfxsel/gfxsel/pkg/backend"
)

// ErrorClass represents the classification of a lifecycle error for retry
// and fallback logic.
type ErrorClass string

const (
	// ErrorClassUnsupported indicates the requested family cannot exist on
	// the current platform or has no registered factory. Never retried.
	ErrorClassUnsupported ErrorClass = "unsupported"

	// ErrorClassProbe indicates a probe-phase failure. The family stays in
	// the probe cache as unavailable until the next hot reload.
	ErrorClassProbe ErrorClass = "probe"

	// ErrorClassInit indicates a full initialization failure. Retried with
	// backoff up to the configured attempt budget, then falls back.
	ErrorClassInit ErrorClass = "init"

	// ErrorClassSelection indicates the selection phase produced no winner.
	// Examples: empty candidate set, no family meets requirements.
	ErrorClassSelection ErrorClass = "selection"

	// ErrorClassState indicates an operation was requested in a state that
	// does not permit it. Never retried.
	ErrorClassState ErrorClass = "state"
)

// SelectionError represents a classified lifecycle error with context.
type SelectionError struct {
	// Class is the error classification for retry and fallback logic.
	Class ErrorClass `json:"class"`

	// Message is the human-readable error message.
	Message string `json:"message"`

	// Code is an optional error code for programmatic handling.
	Code string `json:"code,omitempty"`

	// Family is the backend family involved, if applicable.
	Family backend.Family `json:"family,omitempty"`

	// Operation is the lifecycle operation being performed.
	Operation string `json:"operation,omitempty"`

	// Err is the underlying error that caused this error.
	Err error `json:"-"`

	// Details contains additional context-specific information.
	Details map[string]interface{} `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *SelectionError) Error() string {
	if e.Family != "" && e.Operation != "" {
		return fmt.Sprintf("[%s] %s (family=%s, operation=%s): %s",
			e.Class, e.Message, e.Family, e.Operation, e.unwrapMessage())
	}
	if e.Family != "" {
		return fmt.Sprintf("[%s] %s (family=%s): %s",
			e.Class, e.Message, e.Family, e.unwrapMessage())
	}
	return fmt.Sprintf("[%s] %s: %s", e.Class, e.Message, e.unwrapMessage())
}

// Unwrap returns the underlying error for error chain inspection.
func (e *SelectionError) Unwrap() error {
	return e.Err
}

// unwrapMessage returns the error message from the underlying error chain.
func (e *SelectionError) unwrapMessage() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return ""
}

// Is implements error equality checking for errors.Is.
func (e *SelectionError) Is(target error) bool {
	t, ok := target.(*SelectionError)
	if !ok {
		return false
	}
	return e.Class == t.Class && e.Code == t.Code
}

// NewUnsupportedError creates a new unsupported error.
func NewUnsupportedError(message string, err error) *SelectionError {
	return &SelectionError{
		Class:   ErrorClassUnsupported,
		Message: message,
		Err:     err,
	}
}

// NewProbeError creates a new probe error.
func NewProbeError(message string, err error) *SelectionError {
	return &SelectionError{
		Class:   ErrorClassProbe,
		Message: message,
		Err:     err,
	}
}

// NewInitError creates a new initialization error.
func NewInitError(message string, err error) *SelectionError {
	return &SelectionError{
		Class:   ErrorClassInit,
		Message: message,
		Err:     err,
	}
}

// NewSelectionFailedError creates a new selection error.
func NewSelectionFailedError(message string, err error) *SelectionError {
	return &SelectionError{
		Class:   ErrorClassSelection,
		Message: message,
		Err:     err,
	}
}

// NewStateError creates a new state error.
func NewStateError(message string, err error) *SelectionError {
	return &SelectionError{
		Class:   ErrorClassState,
		Message: message,
		Err:     err,
	}
}

// WithFamily adds family context to an error.
func (e *SelectionError) WithFamily(family backend.Family) *SelectionError {
	e.Family = family
	return e
}

// WithOperation adds operation context to an error.
func (e *SelectionError) WithOperation(operation string) *SelectionError {
	e.Operation = operation
	return e
}

// WithCode adds an error code to an error.
func (e *SelectionError) WithCode(code string) *SelectionError {
	e.Code = code
	return e
}

// WithDetail adds a detail field to the error context.
func (e *SelectionError) WithDetail(key string, value interface{}) *SelectionError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// IsUnsupported returns true if the error is classified as unsupported.
func IsUnsupported(err error) bool {
	var e *SelectionError
	if errors.As(err, &e) {
		return e.Class == ErrorClassUnsupported
	}
	return false
}

// IsProbeError returns true if the error is classified as a probe failure.
func IsProbeError(err error) bool {
	var e *SelectionError
	if errors.As(err, &e) {
		return e.Class == ErrorClassProbe
	}
	return false
}

// IsInitError returns true if the error is classified as an init failure.
func IsInitError(err error) bool {
	var e *SelectionError
	if errors.As(err, &e) {
		return e.Class == ErrorClassInit
	}
	return false
}

// IsSelectionError returns true if the error is classified as a selection failure.
func IsSelectionError(err error) bool {
	var e *SelectionError
	if errors.As(err, &e) {
		return e.Class == ErrorClassSelection
	}
	return false
}

// IsStateError returns true if the error is classified as a state error.
func IsStateError(err error) bool {
	var e *SelectionError
	if errors.As(err, &e) {
		return e.Class == ErrorClassState
	}
	return false
}

// IsRetryable returns true if the error can be retried.
// Only initialization failures are retryable; everything else either cannot
// succeed on retry or is handled by fallback.
func IsRetryable(err error) bool {
	return IsInitError(err)
}

// ErrorClassOf extracts the class from an error chain, or empty string.
func ErrorClassOf(err error) ErrorClass {
	var e *SelectionError
	if errors.As(err, &e) {
		return e.Class
	}
	return ""
}

// Common error codes.
const (
	ErrCodeValidation        = "VALIDATION_ERROR"
	ErrCodeNoFactory         = "NO_FACTORY"
	ErrCodePlatform          = "PLATFORM_UNSUPPORTED"
	ErrCodeTimeout           = "TIMEOUT"
	ErrCodeNoCandidates      = "NO_CANDIDATES"
	ErrCodeRequirements      = "REQUIREMENTS_NOT_MET"
	ErrCodeAttemptsExhausted = "ATTEMPTS_EXHAUSTED"
	ErrCodeChainExhausted    = "CHAIN_EXHAUSTED"
	ErrCodeInvalidTransition = "INVALID_TRANSITION"
	ErrCodeInternal          = "INTERNAL_ERROR"
)
