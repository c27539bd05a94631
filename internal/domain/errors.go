// Package domain defines the dimension model, value types, errors and ports
// shared by the tracker analytics compiler and its adapters.
package domain

import "fmt"

// NotFoundError indicates a metadata object was not found.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// ValidationError indicates invalid request input.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// CompileError indicates a request that is well formed but cannot be
// translated to SQL, such as an element whose value type has no mapping.
type CompileError struct {
	Message string
}

func (e *CompileError) Error() string { return e.Message }

// ErrNotFound creates a NotFoundError with a formatted message.
func ErrNotFound(format string, args ...interface{}) *NotFoundError {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

// ErrValidation creates a ValidationError with a formatted message.
func ErrValidation(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ErrCompile creates a CompileError with a formatted message.
func ErrCompile(format string, args ...interface{}) *CompileError {
	return &CompileError{Message: fmt.Sprintf(format, args...)}
}
