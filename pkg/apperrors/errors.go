package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies the class of a client-facing failure. Codes are stable
// across releases; HTTP handlers map them to status codes.
type Code string

const (
	CodeBadRequest         Code = "BAD_REQUEST"
	CodeNotFound           Code = "NOT_FOUND"
	CodeForbidden          Code = "FORBIDDEN"
	CodePreconditionFailed Code = "PRECONDITION_FAILED"
	CodeInternal           Code = "INTERNAL_SERVER_ERROR"
)

// Error carries a stable code, a localization message key and a developer
// message. The message key is what clients look up for localized copy; the
// developer message never leaks gateway internals.
type Error struct {
	Code       Code
	MessageKey string
	Message    string
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPStatus maps the error code to an HTTP status code.
func (e *Error) HTTPStatus() int {
	switch e.Code {
	case CodeBadRequest:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeForbidden:
		return http.StatusForbidden
	case CodePreconditionFailed:
		return http.StatusPreconditionFailed
	default:
		return http.StatusInternalServerError
	}
}

func BadRequest(messageKey, message string) *Error {
	return &Error{Code: CodeBadRequest, MessageKey: messageKey, Message: message}
}

func NotFound(messageKey, message string) *Error {
	return &Error{Code: CodeNotFound, MessageKey: messageKey, Message: message}
}

func Forbidden(messageKey, message string) *Error {
	return &Error{Code: CodeForbidden, MessageKey: messageKey, Message: message}
}

func PreconditionFailed(messageKey, message string) *Error {
	return &Error{Code: CodePreconditionFailed, MessageKey: messageKey, Message: message}
}

func Internal(messageKey, message string, err error) *Error {
	return &Error{Code: CodeInternal, MessageKey: messageKey, Message: message, Err: err}
}

// FromError extracts an *Error, or wraps unknown errors as INTERNAL.
func FromError(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return &Error{
		Code:       CodeInternal,
		MessageKey: "errors.internal",
		Message:    "internal server error",
		Err:        err,
	}
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code Code) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Code == code
}
