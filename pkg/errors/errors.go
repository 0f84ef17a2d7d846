package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

// Code is the stable machine-readable error identifier returned to clients.
type Code string

const (
	CodeValidation    Code = "VALIDATION_ERROR"
	CodeUnauthorized  Code = "UNAUTHORIZED"
	CodeForbidden     Code = "FORBIDDEN"
	CodeNotFound      Code = "NOT_FOUND"
	CodeConflict      Code = "CONFLICT"
	CodeStateConflict Code = "STATE_CONFLICT"
	CodeIdempotency   Code = "IDEMPOTENCY_KEY_REUSED"
	CodeRateLimit     Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal      Code = "INTERNAL_ERROR"
	CodeDependency    Code = "DEPENDENCY_ERROR"
	CodeIneligible    Code = "PAYMENT_METHOD_INELIGIBLE"
	CodePaymentFailed Code = "PAYMENT_FAILED"
)

// Metadata describes how a code is rendered over HTTP.
type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
}

const (
	retryable   = true
	withDetails = true
)

func meta(status int, retry, details bool, public string) Metadata {
	return Metadata{HTTPStatus: status, Retryable: retry, PublicMessage: public, DetailsAllowed: details}
}

var metadataByCode = map[Code]Metadata{
	CodeValidation:    meta(http.StatusBadRequest, false, withDetails, "validation failed"),
	CodeUnauthorized:  meta(http.StatusUnauthorized, false, false, "authentication required"),
	CodeForbidden:     meta(http.StatusForbidden, false, false, "access denied"),
	CodeNotFound:      meta(http.StatusNotFound, false, false, "resource not found"),
	CodeConflict:      meta(http.StatusConflict, false, withDetails, "conflict detected"),
	CodeStateConflict: meta(http.StatusUnprocessableEntity, false, withDetails, "state transition disallowed"),
	CodeIdempotency:   meta(http.StatusConflict, false, withDetails, "idempotency key reused"),
	CodeRateLimit:     meta(http.StatusTooManyRequests, false, false, "rate limit exceeded"),
	CodeInternal:      meta(http.StatusInternalServerError, retryable, false, "internal server error"),
	CodeDependency:    meta(http.StatusServiceUnavailable, retryable, withDetails, "dependency unavailable"),
	CodeIneligible:    meta(http.StatusUnprocessableEntity, false, withDetails, "payment method not available for this booking"),
	CodePaymentFailed: meta(http.StatusPaymentRequired, retryable, withDetails, "payment could not be completed"),
}

// MetadataFor falls back to CodeInternal for unknown codes.
func MetadataFor(code Code) Metadata {
	if m, ok := metadataByCode[code]; ok {
		return m
	}
	return metadataByCode[CodeInternal]
}

// Error is a coded error with an optional cause and client-visible details.
type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Newf(code Code, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap attaches code and message to err. A nil err behaves like New.
func Wrap(code Code, err error, message string) *Error {
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

// WithDetails sets details in place and returns e for chaining.
func (e *Error) WithDetails(details any) *Error {
	if e != nil {
		e.details = details
	}
	return e
}

func (e *Error) Error() string {
	switch {
	case e == nil:
		return ""
	case e.cause != nil:
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
	default:
		return fmt.Sprintf("%s: %s", e.code, e.message)
	}
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// As returns the outermost *Error in err's chain.
func As(err error) *Error {
	var typed *Error
	if err != nil && stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// IsCode reports whether the outermost typed error in err's chain has code.
func IsCode(err error, code Code) bool {
	return As(err).codeIs(code)
}

func (e *Error) codeIs(code Code) bool {
	return e != nil && e.code == code
}

// IsRetryable reports whether err's code says the caller may try again.
// Untyped errors count as internal and are retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return MetadataFor(As(err).Code()).Retryable
}
