// Package compose implements the declarative resource composition engine:
// per-kind name resolution, dependency-ordered provisioning plans, and
// conditional (0-or-1 instance) resource instantiation.
package compose

import (
	"errors"
	"fmt"
)

// ErrorClass classifies an error for retry and reporting logic.
type ErrorClass string

const (
	// ErrorClassFatal indicates a configuration-level failure detected before
	// any provisioning call is issued. Fatal errors are never retried.
	ErrorClassFatal ErrorClass = "fatal"

	// ErrorClassProvision indicates a failure reported by the external
	// provisioning API for a specific logical resource. Retry policy for
	// these belongs to the caller, not this engine.
	ErrorClassProvision ErrorClass = "provision"
)

// ComposeError is a classified error with the identity of the logical
// resource that caused it.
// nolint:revive // ComposeError is intentionally named to distinguish from standard errors
type ComposeError struct {
	// Class is the error classification.
	Class ErrorClass `json:"class"`

	// Message is the human-readable error message.
	Message string `json:"message"`

	// Code is an error code for programmatic handling.
	Code string `json:"code,omitempty"`

	// Kind is the resource kind involved, if applicable.
	Kind Kind `json:"kind,omitempty"`

	// Resource is the logical resource name that caused the error.
	Resource string `json:"resource,omitempty"`

	// Err is the underlying error.
	Err error `json:"-"`
}

// Error implements the error interface.
func (e *ComposeError) Error() string {
	switch {
	case e.Kind != "" && e.Resource != "":
		return fmt.Sprintf("[%s] %s (%s %q)%s", e.Class, e.Message, e.Kind, e.Resource, e.unwrapSuffix())
	case e.Resource != "":
		return fmt.Sprintf("[%s] %s (resource=%s)%s", e.Class, e.Message, e.Resource, e.unwrapSuffix())
	default:
		return fmt.Sprintf("[%s] %s%s", e.Class, e.Message, e.unwrapSuffix())
	}
}

// Unwrap returns the underlying error for error chain inspection.
func (e *ComposeError) Unwrap() error {
	return e.Err
}

func (e *ComposeError) unwrapSuffix() string {
	if e.Err != nil {
		return ": " + e.Err.Error()
	}
	return ""
}

// Is implements error equality for errors.Is. Two ComposeErrors match when
// their class and code agree.
func (e *ComposeError) Is(target error) bool {
	t, ok := target.(*ComposeError)
	if !ok {
		return false
	}
	return e.Class == t.Class && e.Code == t.Code
}

// NewFatalError creates a pre-provisioning configuration error.
func NewFatalError(message string, err error) *ComposeError {
	return &ComposeError{
		Class:   ErrorClassFatal,
		Message: message,
		Err:     err,
	}
}

// NewProvisionError creates an error reported by the provisioning API.
func NewProvisionError(message string, err error) *ComposeError {
	return &ComposeError{
		Class:   ErrorClassProvision,
		Message: message,
		Code:    ErrCodeProviderFailed,
		Err:     err,
	}
}

// WithResource adds the failing logical resource identity to the error.
func (e *ComposeError) WithResource(kind Kind, name string) *ComposeError {
	e.Kind = kind
	e.Resource = name
	return e
}

// WithCode adds an error code to the error.
func (e *ComposeError) WithCode(code string) *ComposeError {
	e.Code = code
	return e
}

// IsFatal returns true if the error is a pre-provisioning configuration error.
func IsFatal(err error) bool {
	var e *ComposeError
	if errors.As(err, &e) {
		return e.Class == ErrorClassFatal
	}
	return false
}

// HasCode returns true if the error carries the given code.
func HasCode(err error, code string) bool {
	var e *ComposeError
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// Error codes.
const (
	ErrCodeDuplicateName       = "DUPLICATE_NAME"
	ErrCodeUnresolvedReference = "UNRESOLVED_REFERENCE"
	ErrCodeCyclicDependency    = "CYCLIC_DEPENDENCY"
	ErrCodeValidation          = "VALIDATION_ERROR"
	ErrCodeProviderFailed      = "PROVIDER_FAILED"
	ErrCodeInternal            = "INTERNAL_ERROR"
)
