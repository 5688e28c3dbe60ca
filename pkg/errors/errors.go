package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType represents the classification of a failed operation
type ErrorType string

const (
	ErrorTypeNotFound          ErrorType = "not_found"
	ErrorTypeAuthRequired      ErrorType = "auth_required"
	ErrorTypeMalformedResponse ErrorType = "malformed_response"
	ErrorTypeTransient         ErrorType = "transient_or_unknown"
	ErrorTypeInvalidArgument   ErrorType = "invalid_argument"
)

// ErrMissingCredentials is wrapped by the invalid_argument error returned when a
// login is attempted without a username or password.
var ErrMissingCredentials = stderrors.New("user credentials not provided")

// bodyPreviewLimit caps how much of a response body Error() prints
const bodyPreviewLimit = 200

// Error represents a classified client error. Code and Body carry the original
// HTTP status and payload for diagnostics; both are zero for failures detected
// before any network call.
type Error struct {
	Type    ErrorType
	Message string
	Code    int
	Body    string
	Err     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, e.Message)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Body != "" {
		body := e.Body
		if len(body) > bodyPreviewLimit {
			body = body[:bodyPreviewLimit] + "..."
		}
		msg += fmt.Sprintf(" (body: %s)", body)
	}
	return msg
}

// Unwrap returns the underlying cause, if any
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an error of the given type
func New(t ErrorType, format string, args ...interface{}) *Error {
	return &Error{Type: t, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an error of the given type around a cause
func Wrap(t ErrorType, err error, format string, args ...interface{}) *Error {
	return &Error{Type: t, Message: fmt.Sprintf(format, args...), Err: err}
}

// InvalidArgument reports a contract violation detected before any network call
func InvalidArgument(format string, args ...interface{}) *Error {
	return New(ErrorTypeInvalidArgument, format, args...)
}

// WithResponse attaches the HTTP status and body to the error
func (e *Error) WithResponse(code int, body []byte) *Error {
	e.Code = code
	e.Body = string(body)
	return e
}

// TypeOf returns the classification of err, or "" when err is not an *Error
func TypeOf(err error) ErrorType {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Type
	}
	return ""
}

// IsNotFound reports whether err was classified as not_found
func IsNotFound(err error) bool {
	return TypeOf(err) == ErrorTypeNotFound
}

// IsMalformed reports whether err was classified as malformed_response
func IsMalformed(err error) bool {
	return TypeOf(err) == ErrorTypeMalformedResponse
}

// IsAuthRequired reports whether err was classified as auth_required
func IsAuthRequired(err error) bool {
	return TypeOf(err) == ErrorTypeAuthRequired
}

// IsInvalidArgument reports whether err was classified as invalid_argument
func IsInvalidArgument(err error) bool {
	return TypeOf(err) == ErrorTypeInvalidArgument
}

// IsRetryable checks if an error type may succeed when the caller tries again.
// The client itself never retries.
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeTransient:
		return true
	default:
		return false
	}
}
