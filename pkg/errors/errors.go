// SPDX-License-Identifier: Apache-2.0
// Package errors provides typed errors for the convergence pipeline and the
// evaluation harness.
package errors

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrorCode classifies pipeline errors for reporting and recovery.
type ErrorCode string

const (
	// CodeInternal indicates an internal system error.
	CodeInternal ErrorCode = "INTERNAL_ERROR"

	// CodeInvalidInput indicates malformed seeds, facts or fixture documents.
	CodeInvalidInput ErrorCode = "INVALID_INPUT"

	// CodeNotFound indicates an unknown pack, fixture or resource.
	CodeNotFound ErrorCode = "NOT_FOUND"

	// CodeLLMError indicates a model provider failure.
	CodeLLMError ErrorCode = "LLM_ERROR"

	// CodeInvariantViolation indicates the engine halted on a broken invariant.
	CodeInvariantViolation ErrorCode = "INVARIANT_VIOLATION"

	// CodeTimeout indicates an operation exceeded its time limit.
	CodeTimeout ErrorCode = "TIMEOUT"

	// CodeContextLost indicates the surrounding context was canceled.
	CodeContextLost ErrorCode = "CONTEXT_LOST"

	// CodeRateLimit indicates the provider rejected the call for rate reasons.
	CodeRateLimit ErrorCode = "RATE_LIMITED"
)

// ConvergeError is a typed error with context for logs and reports.
// It can be unwrapped with errors.As and errors.Is.
type ConvergeError struct {
	Code        ErrorCode
	Message     string
	Err         error
	Context     map[string]interface{}
	Recoverable bool
}

// Error implements the error interface.
func (e *ConvergeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements errors.Unwrap for error chain traversal.
func (e *ConvergeError) Unwrap() error {
	return e.Err
}

// MarshalJSON implements json.Marshaler for structured output.
func (e *ConvergeError) MarshalJSON() ([]byte, error) {
	var cause string
	if e.Err != nil {
		cause = e.Err.Error()
	}
	return json.Marshal(struct {
		Code        string                 `json:"code"`
		Message     string                 `json:"message"`
		Err         string                 `json:"error,omitempty"`
		Context     map[string]interface{} `json:"context,omitempty"`
		Recoverable bool                   `json:"recoverable"`
	}{
		Code:        string(e.Code),
		Message:     e.Message,
		Err:         cause,
		Context:     e.Context,
		Recoverable: e.Recoverable,
	})
}

// New creates a new ConvergeError with the given code, message, and cause.
func New(code ErrorCode, msg string, cause error) *ConvergeError {
	return &ConvergeError{
		Code:    code,
		Message: msg,
		Err:     cause,
		Context: make(map[string]interface{}),
	}
}

// Newf creates a ConvergeError without a cause from a format string.
func Newf(code ErrorCode, format string, args ...interface{}) *ConvergeError {
	return New(code, fmt.Sprintf(format, args...), nil)
}

// WithContext adds a key-value pair to the error context.
// Returns the error for method chaining.
func (e *ConvergeError) WithContext(key string, value interface{}) *ConvergeError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithRecoverable sets whether the error can be recovered from.
// Returns the error for method chaining.
func (e *ConvergeError) WithRecoverable(recoverable bool) *ConvergeError {
	e.Recoverable = recoverable
	return e
}

// AsConvergeError returns err as a ConvergeError, wrapping unknown errors
// as internal ones.
func AsConvergeError(err error) *ConvergeError {
	if err == nil {
		return nil
	}
	var ce *ConvergeError
	if errors.As(err, &ce) {
		return ce
	}
	return New(CodeInternal, "wrapped error", err)
}

// IsCode reports whether any ConvergeError in err's chain carries code.
func IsCode(err error, code ErrorCode) bool {
	var ce *ConvergeError
	for err != nil {
		if !errors.As(err, &ce) {
			return false
		}
		if ce.Code == code {
			return true
		}
		err = ce.Err
	}
	return false
}

// IsRecoverable reports whether err is marked recoverable. Errors that are not
// ConvergeErrors are treated as recoverable.
func IsRecoverable(err error) bool {
	if err == nil {
		return false
	}
	var ce *ConvergeError
	if errors.As(err, &ce) {
		return ce.Recoverable
	}
	return true
}
