// Package domainerrors defines the error codes services return to transports.
//
// Stores return sentinel errors (pkg/platform/sentinel); services translate
// them into coded errors here so handlers can map a code to an HTTP status
// without knowing where the failure came from.
package domainerrors

import (
	"errors"
	"net/http"
)

// Code identifies a class of failure. The string value is what clients see
// in the "error" field of a response envelope.
type Code string

const (
	CodeBadRequest   Code = "bad_request"
	CodeInvalidInput Code = "invalid_input"
	CodeValidation   Code = "validation_error"
	CodeNotFound     Code = "not_found"
	CodeConflict     Code = "conflict"
	CodeUnavailable  Code = "unavailable"
	CodeTimeout      Code = "timeout"
	CodeInternal     Code = "internal_error"
)

// Error is a coded domain error. Fields carries per-field messages for
// validation failures and is nil otherwise.
type Error struct {
	Code    Code
	Message string
	Fields  map[string]string
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

// New creates a coded error.
func New(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

// Wrap attaches a code and message to an underlying cause.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, Err: err}
}

// NewValidation creates a validation error carrying field messages.
func NewValidation(msg string, fields map[string]string) *Error {
	return &Error{Code: CodeValidation, Message: msg, Fields: fields}
}

// As returns the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// HasCode reports whether the first coded error in err's chain has code.
func HasCode(err error, code Code) bool {
	de, ok := As(err)
	return ok && de.Code == code
}

// ToHTTPStatus maps a code to the status a handler responds with.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeBadRequest, CodeInvalidInput, CodeValidation:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	case CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
