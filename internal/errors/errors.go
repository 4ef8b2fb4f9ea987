package errors

import (
	stderrors "errors"
	"fmt"
)

type ErrorType string

const (
	ErrorTypeNotFound      ErrorType = "NOT_FOUND"
	ErrorTypeInvalidTarget ErrorType = "INVALID_TARGET"
	ErrorTypeIO            ErrorType = "IO_FAILURE"
	ErrorTypeConfigMissing ErrorType = "CONFIG_MISSING"
)

type Error struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NotFound(message string) *Error {
	return &Error{
		Type:    ErrorTypeNotFound,
		Message: message,
	}
}

func InvalidTarget(message string) *Error {
	return &Error{
		Type:    ErrorTypeInvalidTarget,
		Message: message,
	}
}

func IO(message string, err error) *Error {
	return &Error{
		Type:    ErrorTypeIO,
		Message: message,
		Err:     err,
	}
}

func ConfigMissing(message string) *Error {
	return &Error{
		Type:    ErrorTypeConfigMissing,
		Message: message,
	}
}

// IsType reports whether err is (or wraps) an *Error of the given type.
func IsType(err error, t ErrorType) bool {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Type == t
	}
	return false
}
