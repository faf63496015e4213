// Package domainerrors defines the code-carrying error type returned by services.
//
// Services return *Error values so transports can map failures to a stable,
// client-facing code without inspecting message text:
//
//	if dErrors.HasCode(err, dErrors.CodeNotFound) { ... }
//
// Stores should return pkg/platform/sentinel errors instead; services translate.
package domainerrors

import (
	"errors"
	"net/http"
)

// Code identifies the category of a domain failure.
type Code string

const (
	CodeInternal          Code = "internal_error"
	CodeBadRequest        Code = "bad_request"
	CodeInvalidInput      Code = "invalid_input"
	CodeInvalidRole       Code = "invalid_role"
	CodeUnauthenticated   Code = "unauthenticated"
	CodeUnauthorized      Code = "unauthorized"
	CodeNotFound          Code = "not_found"
	CodeInvalidState      Code = "invalid_state"
	CodeAlreadyRegistered Code = "already_registered"
	CodeInsufficientFunds Code = "insufficient_funds"
	CodeBelowMarketValue  Code = "below_market_value"
	CodeSelfTrade         Code = "self_trade"
	CodePaused            Code = "paused"
	CodeReentrantCall     Code = "reentrant_call"
	CodePaymentFailed     Code = "payment_failed"
	CodeTimeout           Code = "timeout"
)

// Error is a domain failure with a code and a client-safe message.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a domain error with the given code.
func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// Wrap attaches a code and message to an underlying error.
// The cause stays reachable through errors.Is / errors.As.
func Wrap(err error, code Code, msg string) error {
	return &Error{Code: code, Message: msg, Err: err}
}

// HasCode reports whether any error in err's chain is a domain error with code.
func HasCode(err error, code Code) bool {
	var de *Error
	if !errors.As(err, &de) {
		return false
	}
	return de.Code == code
}

// Is is shorthand for HasCode.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// CodeOf returns the outermost domain code in err's chain, or CodeInternal.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// HTTPStatus maps a code to the status transports should answer with.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeBadRequest, CodeInvalidInput, CodeInvalidRole:
		return http.StatusBadRequest
	case CodeUnauthenticated:
		return http.StatusUnauthorized
	case CodeUnauthorized:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeInvalidState, CodeAlreadyRegistered, CodeReentrantCall:
		return http.StatusConflict
	case CodeInsufficientFunds:
		return http.StatusPaymentRequired
	case CodeBelowMarketValue, CodeSelfTrade:
		return http.StatusUnprocessableEntity
	case CodePaused:
		return http.StatusServiceUnavailable
	case CodePaymentFailed:
		return http.StatusBadGateway
	case CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
