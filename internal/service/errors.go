package service

import (
	"errors"

	"github.com/victorivanov/supportline/internal/gateway"
)

var (
	ErrValidation   = errors.New("validation")
	ErrStorage      = errors.New("storage")
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")

	// ErrChannelUnavailable is reported by a channel that cannot take a push.
	// Delivery treats it as "queued"; it never reaches a caller.
	ErrChannelUnavailable = gateway.ErrChannelUnavailable
)

// ServiceError wraps a sentinel error with a specific code and message for the handler to use.
type ServiceError struct {
	Err     error
	Code    string
	Message string
}

func (e *ServiceError) Error() string { return e.Message }
func (e *ServiceError) Unwrap() error { return e.Err }

// NewError creates a ServiceError wrapping the given sentinel.
func NewError(sentinel error, code, message string) *ServiceError {
	return &ServiceError{Err: sentinel, Code: code, Message: message}
}

// Convenience constructors for common error types.

func Validation(code, message string) *ServiceError {
	return NewError(ErrValidation, code, message)
}

func Storage(code, message string) *ServiceError {
	return NewError(ErrStorage, code, message)
}

func NotFound(code, message string) *ServiceError {
	return NewError(ErrNotFound, code, message)
}

func Forbidden(code, message string) *ServiceError {
	return NewError(ErrForbidden, code, message)
}

func Unauthorized(code, message string) *ServiceError {
	return NewError(ErrUnauthorized, code, message)
}

// storageUnavailable is the error every failed store call surfaces as.
func storageUnavailable() *ServiceError {
	return Storage("STORAGE_UNAVAILABLE", "message store is unavailable, try again")
}

// codeOf returns the ServiceError code carried by err, if any.
func codeOf(err error) (string, string) {
	var se *ServiceError
	if errors.As(err, &se) {
		return se.Code, se.Message
	}
	return "INTERNAL", "internal server error"
}
