// Copyright 2026 © The Converge Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"

	"github.com/jllopis/converge/pkg/errors"
)

// CLIError wraps ConvergeError with a hint for the user.
type CLIError struct {
	*errors.ConvergeError
	Hint string
}

// NewCLIError creates a new CLI error.
func NewCLIError(ce *errors.ConvergeError, hint string) *CLIError {
	return &CLIError{
		ConvergeError: ce,
		Hint:          hint,
	}
}

// Error returns the message followed by the hint, if any.
func (e *CLIError) Error() string {
	if e.ConvergeError == nil {
		return "unknown error"
	}
	msg := e.ConvergeError.Error()
	if e.Hint != "" {
		msg += "\n  Hint: " + e.Hint
	}
	return msg
}

func (e *CLIError) Unwrap() error {
	if e.ConvergeError == nil {
		return nil
	}
	return e.ConvergeError
}

// PrintError writes the error to w, as a JSON object when asJSON is set.
func (e *CLIError) PrintError(w io.Writer, asJSON bool) {
	if asJSON {
		payload := map[string]any{
			"error": map[string]any{
				"code":    e.Code,
				"message": e.Message,
				"hint":    e.Hint,
				"context": e.Context,
			},
		}
		raw, _ := json.Marshal(payload)
		fmt.Fprintln(w, string(raw))
		return
	}

	fmt.Fprintf(w, "Error [%s]: %s\n", FormatErrorCode(e.Code), e.Message)
	if e.Err != nil {
		fmt.Fprintf(w, "  Cause: %v\n", e.Err)
	}
	if e.Hint != "" {
		fmt.Fprintf(w, "  Hint: %s\n", e.Hint)
	}
}

// PrintError renders any error returned by a command.
func PrintError(w io.Writer, err error, asJSON bool) {
	var cliErr *CLIError
	if stderrors.As(err, &cliErr) {
		cliErr.PrintError(w, asJSON)
		return
	}
	var ce *errors.ConvergeError
	if stderrors.As(err, &ce) {
		NewCLIError(ce, "").PrintError(w, asJSON)
		return
	}
	if asJSON {
		raw, _ := json.Marshal(map[string]any{"error": map[string]any{"code": "UNKNOWN", "message": err.Error()}})
		fmt.Fprintln(w, string(raw))
		return
	}
	fmt.Fprintf(w, "Error: %s\n", err.Error())
}

// NewNotFoundError creates a not found error with CLI hints.
func NewNotFoundError(resource, name, hint string) *CLIError {
	ce := errors.New(errors.CodeNotFound, fmt.Sprintf("%s '%s' not found", resource, name), nil).
		WithContext("resource", resource).
		WithContext("name", name)
	return NewCLIError(ce, hint)
}

// NewInvalidArgumentError creates an invalid argument error with CLI hints.
func NewInvalidArgumentError(arg string, cause error) *CLIError {
	ce := errors.New(errors.CodeInvalidInput, fmt.Sprintf("invalid argument --%s", arg), cause).
		WithContext("argument", arg)
	return NewCLIError(ce, "run 'converge help' for usage information")
}

// NewConfigError creates a configuration error with CLI hints.
func NewConfigError(err error, configPath string) *CLIError {
	ce := errors.New(errors.CodeInvalidInput, "configuration error", err).
		WithContext("config_path", configPath)

	hint := "check CONVERGE_* environment variables"
	if configPath != "" {
		hint = fmt.Sprintf("check %s for syntax errors", configPath)
	}
	return NewCLIError(ce, hint)
}

// WrapRunError adds hints to a failed engine run.
func WrapRunError(err error) error {
	var ce *errors.ConvergeError
	if !stderrors.As(err, &ce) {
		return err
	}
	switch ce.Code {
	case errors.CodeInvariantViolation:
		return NewCLIError(ce, "the run was halted by a pack invariant; review the seeds")
	case errors.CodeNotFound:
		return NewCLIError(ce, "run 'converge packs list' to see available packs")
	case errors.CodeInvalidInput:
		return NewCLIError(ce, "check seed ids and contents")
	}
	return NewCLIError(ce, "")
}

// FormatErrorCode returns a user-friendly name for error codes.
func FormatErrorCode(code errors.ErrorCode) string {
	switch code {
	case errors.CodeInternal:
		return "Internal Error"
	case errors.CodeInvalidInput:
		return "Invalid Input"
	case errors.CodeNotFound:
		return "Not Found"
	case errors.CodeLLMError:
		return "LLM Error"
	case errors.CodeInvariantViolation:
		return "Invariant Violation"
	case errors.CodeTimeout:
		return "Timeout"
	case errors.CodeContextLost:
		return "Context Lost"
	case errors.CodeRateLimit:
		return "Rate Limited"
	default:
		return string(code)
	}
}
