package domain

import (
	"errors"
	"fmt"
)

// Error types for domain-specific errors
type ErrorType string

const (
	ErrorTypeValidation  ErrorType = "validation"
	ErrorTypeNotFound    ErrorType = "not_found"
	ErrorTypeConflict    ErrorType = "conflict"
	ErrorTypeTooLarge    ErrorType = "too_large"
	ErrorTypeTask        ErrorType = "task"
	ErrorTypeConversion  ErrorType = "conversion"
	ErrorTypeExtraction  ErrorType = "extraction"
	ErrorTypeStorage     ErrorType = "storage"
	ErrorTypeConfig      ErrorType = "config"
	ErrorTypeIO          ErrorType = "io"
	ErrorTypeUnavailable ErrorType = "unavailable"
)

// DomainError represents a domain-specific error with context
type DomainError struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewError creates a new domain error
func NewError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
	}
}

// Common error constructors
func ValidationError(message string, err error) *DomainError {
	return NewError(ErrorTypeValidation, message, err)
}

func NotFoundError(message string, err error) *DomainError {
	return NewError(ErrorTypeNotFound, message, err)
}

func ConflictError(message string, err error) *DomainError {
	return NewError(ErrorTypeConflict, message, err)
}

func TooLargeError(message string, err error) *DomainError {
	return NewError(ErrorTypeTooLarge, message, err)
}

func TaskError(message string, err error) *DomainError {
	return NewError(ErrorTypeTask, message, err)
}

func ConversionError(message string, err error) *DomainError {
	return NewError(ErrorTypeConversion, message, err)
}

func ExtractionError(message string, err error) *DomainError {
	return NewError(ErrorTypeExtraction, message, err)
}

func StorageError(message string, err error) *DomainError {
	return NewError(ErrorTypeStorage, message, err)
}

func ConfigError(message string, err error) *DomainError {
	return NewError(ErrorTypeConfig, message, err)
}

func IOError(message string, err error) *DomainError {
	return NewError(ErrorTypeIO, message, err)
}

func UnavailableError(message string, err error) *DomainError {
	return NewError(ErrorTypeUnavailable, message, err)
}

// ErrorTypeOf returns the type of the outermost DomainError in err's chain,
// or an empty type when err carries none.
func ErrorTypeOf(err error) ErrorType {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Type
	}
	return ""
}

// IsType reports whether err carries a DomainError of the given type.
func IsType(err error, t ErrorType) bool {
	return ErrorTypeOf(err) == t
}

// MessageOf returns the human readable message of the outermost DomainError,
// falling back to err.Error(). Task errors append the message of their cause.
func MessageOf(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		if de.Err != nil && de.Type == ErrorTypeTask {
			return fmt.Sprintf("%s: %s", de.Message, MessageOf(de.Err))
		}
		return de.Message
	}
	return err.Error()
}
