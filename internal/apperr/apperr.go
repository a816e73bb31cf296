// Package apperr carries the coded errors surfaced by the settlement services.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidationFailed     Code = "VALIDATION_FAILED"
	CodeAuthenticationFailed Code = "AUTHENTICATION_FAILED"
	CodeGatewayUnavailable   Code = "GATEWAY_UNAVAILABLE"
	CodeNotFound             Code = "NOT_FOUND"
	CodeConflict             Code = "CONFLICT"
	CodeInternal             Code = "INTERNAL"
)

// Sentinels for errors.Is; matching is by code only.
var (
	ErrValidationFailed     = &Error{Code: CodeValidationFailed}
	ErrAuthenticationFailed = &Error{Code: CodeAuthenticationFailed}
	ErrGatewayUnavailable   = &Error{Code: CodeGatewayUnavailable}
	ErrNotFound             = &Error{Code: CodeNotFound}
	ErrConflict             = &Error{Code: CodeConflict}
)

type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

func New(code Code, msg string, err error) error {
	return &Error{Code: code, Message: msg, Err: err}
}

func ValidationFailed(msg string) error { return New(CodeValidationFailed, msg, nil) }

func AuthenticationFailed(msg string, err error) error {
	return New(CodeAuthenticationFailed, msg, err)
}

func GatewayUnavailable(msg string, err error) error {
	return New(CodeGatewayUnavailable, msg, err)
}

func NotFound(msg string) error { return New(CodeNotFound, msg, nil) }

func Conflict(msg string) error { return New(CodeConflict, msg, nil) }

// CodeOf returns the code of the first *Error in the chain, or CodeInternal.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// HTTPStatus maps an error to the status the transport layer answers with.
func HTTPStatus(err error) int {
	switch CodeOf(err) {
	case CodeValidationFailed:
		return http.StatusUnprocessableEntity
	case CodeAuthenticationFailed, CodeGatewayUnavailable:
		return http.StatusBadGateway
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
