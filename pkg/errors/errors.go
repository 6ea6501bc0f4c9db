// Package errors provides structured error types for texbake.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the CLI and the bake pipeline
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Error codes follow a hierarchical naming convention:
//   - INVALID_*: Input and configuration validation failures
//   - *_NOT_FOUND / MISSING_*: Scene resources that do not exist
//   - BAKE_* / RESTORE_FAILED: Failures while baking or restoring a graph
//   - INTERNAL_*: Unexpected internal errors
//
// # Usage
//
//	err := errors.New(errors.ErrCodeObjectNotFound, "objects not found: %s", names)
//	if errors.Is(err, errors.ErrCodeObjectNotFound) {
//	    // Handle missing object
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeBakeFailed, origErr, "bake %s for %s", mapType, obj)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidInput      Code = "INVALID_INPUT"
	ErrCodeInvalidConfig     Code = "INVALID_CONFIG"
	ErrCodeInvalidName       Code = "INVALID_NAME"
	ErrCodeInvalidPath       Code = "INVALID_PATH"
	ErrCodeInvalidResolution Code = "INVALID_RESOLUTION"

	// Scene resource errors
	ErrCodeNotFound        Code = "NOT_FOUND"
	ErrCodeObjectNotFound  Code = "OBJECT_NOT_FOUND"
	ErrCodeMissingMaterial Code = "MISSING_MATERIAL"
	ErrCodeFileNotFound    Code = "FILE_NOT_FOUND"

	// Material graph errors
	ErrCodeUnknownPort      Code = "UNKNOWN_PORT"
	ErrCodePortTypeMismatch Code = "PORT_TYPE_MISMATCH"

	// Bake errors
	ErrCodeBakeFailed         Code = "BAKE_FAILED"
	ErrCodeBakeInProgress     Code = "BAKE_IN_PROGRESS"
	ErrCodeRestoreFailed      Code = "RESTORE_FAILED"
	ErrCodeResolutionMismatch Code = "RESOLUTION_MISMATCH"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It walks the whole error tree, including errors joined with errors.Join,
// so a bake failure joined with a restore failure matches both codes.
func Is(err error, code Code) bool {
	if err == nil {
		return false
	}
	if e, ok := err.(*Error); ok && e.Code == code {
		return true
	}
	switch x := err.(type) {
	case interface{ Unwrap() []error }:
		for _, inner := range x.Unwrap() {
			if Is(inner, code) {
				return true
			}
		}
	case interface{ Unwrap() error }:
		return Is(x.Unwrap(), code)
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
