package errors

import (
	"errors"
	"fmt"
)

// PipelineError represents a structured pipeline error with a stable code
// that callers can dispatch on.
type PipelineError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Domain  string      `json:"domain,omitempty"`
	Details interface{} `json:"details,omitempty"`
	cause   error
}

// Error implements the error interface
func (e *PipelineError) Error() string {
	if e.Domain != "" {
		return fmt.Sprintf("%s: %s: %s", e.Domain, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause for errors.Is / errors.As.
func (e *PipelineError) Unwrap() error {
	return e.cause
}

// New creates a new PipelineError with the given code and message
func New(code, message string) *PipelineError {
	return &PipelineError{Code: code, Message: message}
}

// NewWithDetails creates a new PipelineError carrying extra detail payload
func NewWithDetails(code, message string, details interface{}) *PipelineError {
	return &PipelineError{Code: code, Message: message, Details: details}
}

// Stable error codes for common pipeline failure modes
const (
	CodeSourceNotFound    = "SOURCE_NOT_FOUND"
	CodeUnsupportedInput  = "UNSUPPORTED_INPUT"
	CodeUnsupportedOutput = "UNSUPPORTED_OUTPUT"
	CodeSchemaViolation   = "SCHEMA_VIOLATION"
	CodeUnknownDomain     = "UNKNOWN_DOMAIN"
	CodeUnknownMode       = "UNKNOWN_MODE"
	CodeUnknownEnv        = "UNKNOWN_ENVIRONMENT"
	CodeEmptyFrame        = "EMPTY_FRAME"
	CodeUnknownRule       = "UNKNOWN_RULE"
)

// Predefined error values for common pipeline failure modes
var (
	ErrSourceNotFound    = New(CodeSourceNotFound, "Source file or directory not found")
	ErrUnsupportedInput  = New(CodeUnsupportedInput, "Unsupported input format")
	ErrUnsupportedOutput = New(CodeUnsupportedOutput, "Unsupported output format")
	ErrSchemaViolation   = New(CodeSchemaViolation, "Data failed schema validation")
	ErrUnknownDomain     = New(CodeUnknownDomain, "Unknown pipeline domain")
	ErrUnknownMode       = New(CodeUnknownMode, "Unknown run mode")
	ErrUnknownEnv        = New(CodeUnknownEnv, "Unknown deployment environment")
	ErrEmptyFrame        = New(CodeEmptyFrame, "DataFrame has no rows")
	ErrUnknownRule       = New(CodeUnknownRule, "Unknown business rule")
)

// WithDomain returns a copy of the error tagged with the originating domain.
func (e *PipelineError) WithDomain(domain string) *PipelineError {
	return &PipelineError{
		Code:    e.Code,
		Message: e.Message,
		Domain:  domain,
		Details: e.Details,
		cause:   e.cause,
	}
}

// Wrap attaches a cause to a predefined error value without mutating it.
func Wrap(base *PipelineError, cause error) *PipelineError {
	return &PipelineError{
		Code:    base.Code,
		Message: base.Message,
		Domain:  base.Domain,
		Details: base.Details,
		cause:   cause,
	}
}

// SourceNotFound builds a SOURCE_NOT_FOUND error for a concrete path.
func SourceNotFound(path string, cause error) *PipelineError {
	return &PipelineError{
		Code:    CodeSourceNotFound,
		Message: fmt.Sprintf("source not found: %s", path),
		Details: path,
		cause:   cause,
	}
}

// SchemaViolation builds a SCHEMA_VIOLATION error carrying the collected
// per-column failure descriptions.
func SchemaViolation(domain string, failures []string) *PipelineError {
	return &PipelineError{
		Code:    CodeSchemaViolation,
		Message: fmt.Sprintf("%d schema check(s) failed", len(failures)),
		Domain:  domain,
		Details: failures,
	}
}

// IsCode reports whether err (or anything it wraps) is a PipelineError with
// the given code.
func IsCode(err error, code string) bool {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Code == code
	}
	return false
}
