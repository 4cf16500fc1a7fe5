// Package errors provides structured error types for untwist.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the CLI, the HTTP backend, and the core pipeline
//   - Machine-readable error kinds the UI shell can switch on
//   - User-friendly error messages
//   - Error wrapping with context preservation
//
// # Error Codes
//
// The pipeline surfaces exactly one top-level error per failed load. Its code
// is one of:
//   - DECODE_ERROR: the dump is not a well-formed envelope
//   - VALIDATION_FATAL: the built graph violates a structural invariant
//   - LOAD_IN_PROGRESS: another load is running; the request was rejected
//   - CANCELED: the caller abandoned the load
//
// Other codes (INVALID_INPUT, INVALID_CONFIG, NOT_FOUND, INTERNAL_ERROR) are
// used by the outer surfaces.
//
// # Usage
//
//	err := errors.New(errors.ErrCodeDecode, "missing %q field", "version")
//	if errors.Is(err, errors.ErrCodeDecode) {
//	    // show the message, never retry
//	}
//
//	// Attach the offending record
//	err := errors.New(errors.ErrCodeDecode, "attributes must be an object").WithRecord("42")
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Pipeline errors
	ErrCodeDecode          Code = "DECODE_ERROR"
	ErrCodeValidationFatal Code = "VALIDATION_FATAL"
	ErrCodeBusy            Code = "LOAD_IN_PROGRESS"
	ErrCodeCanceled        Code = "CANCELED"

	// Input validation errors
	ErrCodeInvalidInput  Code = "INVALID_INPUT"
	ErrCodeInvalidConfig Code = "INVALID_CONFIG"
	ErrCodeInvalidFormat Code = "INVALID_FORMAT"

	// Resource not found errors
	ErrCodeNotFound Code = "NOT_FOUND"

	// Internal errors
	ErrCodeInternal Code = "INTERNAL_ERROR"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code     Code   // Machine-readable error code
	Message  string // Human-readable message
	RecordID string // Offending dump record, if any
	Cause    error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.RecordID != "" {
		msg = fmt.Sprintf("%s (record %s)", msg, e.RecordID)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithRecord sets the offending record id and returns e.
func (e *Error) WithRecord(id string) *Error {
	e.RecordID = id
	return e
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
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
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

// GetRecordID extracts the offending record id from an error, if any.
func GetRecordID(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.RecordID
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

// IsFatal reports whether err is a failure of the dump itself (decode or
// validation), as opposed to a rejected or canceled load.
func IsFatal(err error) bool {
	switch GetCode(err) {
	case ErrCodeDecode, ErrCodeValidationFatal:
		return true
	}
	return false
}
