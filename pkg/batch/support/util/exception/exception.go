// Package exception provides the error types shared by the storemap export pipeline.
// Errors carry the module in which they occurred so that log lines and the
// aggregated run error point at the failing stage.
package exception

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// Sentinel errors that callers match with errors.Is.
var (
	// ErrNoConnection reports that the source database could not be reached.
	ErrNoConnection = errors.New("no database connection")
	// ErrQueryFailed reports that the store location query failed to execute or scan.
	ErrQueryFailed = errors.New("store location query failed")
	// ErrInvalidConfig reports a configuration value that cannot be used.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrWriteFailed reports that an output artifact could not be written.
	ErrWriteFailed = errors.New("artifact write failed")
)

// BatchError is an error raised by one stage of the export run.
type BatchError struct {
	// Module indicates the module where the error occurred (e.g., "connector", "reader", "writer", "config").
	Module string
	// Message is a concise description of the error.
	Message string
	// OriginalErr is the wrapped original error.
	OriginalErr error
	// isRetryable indicates whether running the stage again could succeed.
	isRetryable bool
	// StackTrace is the stack trace at the time of the error (for debugging).
	StackTrace string
}

// NewBatchError creates a new BatchError instance.
//
// Parameters:
//
//	module: The module where the error occurred.
//	message: The error message.
//	originalErr: The original error to wrap. May be nil.
//
// Returns:
//
//	A new BatchError instance.
func NewBatchError(module, message string, originalErr error) *BatchError {
	return &BatchError{
		Module:      module,
		Message:     message,
		OriginalErr: originalErr,
		isRetryable: IsTemporary(originalErr),
		StackTrace:  captureStack(),
	}
}

// NewBatchErrorf creates a new BatchError using a format string.
// If the last element of a is an error, it is taken as the wrapped error and
// excluded from formatting.
//
// Example:
//
//	NewBatchErrorf("reader", "query on %s failed", "entity.pincode_store_mapping", err)
//	-> message: "query on entity.pincode_store_mapping failed", originalErr: err
func NewBatchErrorf(module, format string, a ...interface{}) *BatchError {
	var originalErr error
	args := a
	if len(args) > 0 {
		if err, ok := args[len(args)-1].(error); ok {
			originalErr = err
			args = args[:len(args)-1]
		}
	}
	return NewBatchError(module, fmt.Sprintf(format, args...), originalErr)
}

func captureStack() string {
	buf := make([]byte, 2048)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}

// Error implements the error interface.
func (e *BatchError) Error() string {
	if e.OriginalErr != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Module, e.Message, e.OriginalErr)
	}
	return fmt.Sprintf("[%s] %s", e.Module, e.Message)
}

// Unwrap returns the original error for errors.Unwrap.
func (e *BatchError) Unwrap() error {
	return e.OriginalErr
}

// IsRetryable returns whether this error is likely transient.
func (e *BatchError) IsRetryable() bool {
	return e.isRetryable
}

// IsBatchError determines if err or any error it wraps is a BatchError.
func IsBatchError(err error) bool {
	var be *BatchError
	return errors.As(err, &be)
}

// IsTemporary determines if an error is temporary (timeouts, refused connections, dropped streams).
// If it's a BatchError, its IsRetryable flag takes precedence.
func IsTemporary(err error) bool {
	if err == nil {
		return false
	}
	var be *BatchError
	if errors.As(err, &be) {
		return be.IsRetryable()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "EOF")
}

// ExtractErrorMessage extracts the error message string from an error.
// For BatchError, it returns the cleaner Message field.
func ExtractErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var be *BatchError
	if errors.As(err, &be) {
		return be.Message
	}
	return err.Error()
}
