// Package apperror defines the error taxonomy shared by services and handlers.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorType int

const (
	Internal ErrorType = iota
	Validation
	DuplicateEmail
	Unauthorized
	Forbidden
	NotFound
	InvalidCredential
	UnsupportedFormat
	Upstream
	TooManyRequests
)

type AppError struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// StatusCode maps the error type onto the HTTP status returned to clients.
// Login failures stay at 400 to match what existing clients expect.
func (e *AppError) StatusCode() int {
	switch e.Type {
	case Validation, DuplicateEmail, InvalidCredential, UnsupportedFormat:
		return http.StatusBadRequest
	case Unauthorized:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case TooManyRequests:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func New(t ErrorType, message string, err error) *AppError {
	return &AppError{Type: t, Message: message, Err: err}
}

func NewValidation(message string) *AppError {
	return New(Validation, message, nil)
}

func NewDuplicateEmail(message string) *AppError {
	return New(DuplicateEmail, message, nil)
}

func NewUnauthorized(message string, err error) *AppError {
	return New(Unauthorized, message, err)
}

func NewForbidden(message string) *AppError {
	return New(Forbidden, message, nil)
}

func NewNotFound(message string) *AppError {
	return New(NotFound, message, nil)
}

func NewInvalidCredential(message string) *AppError {
	return New(InvalidCredential, message, nil)
}

func NewUnsupportedFormat(message string) *AppError {
	return New(UnsupportedFormat, message, nil)
}

func NewUpstream(message string, err error) *AppError {
	return New(Upstream, message, err)
}

func NewInternal(message string, err error) *AppError {
	return New(Internal, message, err)
}

func NewTooManyRequests(message string) *AppError {
	return New(TooManyRequests, message, nil)
}

// From returns the *AppError in err's chain, if any.
func From(err error) (*AppError, bool) {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// Is reports whether err carries an *AppError of type t.
func Is(err error, t ErrorType) bool {
	ae, ok := From(err)
	return ok && ae.Type == t
}
