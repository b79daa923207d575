package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Common error types
var (
	ErrNotFound          = errors.New("resource not found")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden")
	ErrBadRequest        = errors.New("bad request")
	ErrInternal          = errors.New("internal error")
	ErrConfiguration     = errors.New("configuration error")
	ErrUpstream          = errors.New("upstream error")
	ErrMalformedResponse = errors.New("malformed model response")
	ErrTimeout           = errors.New("request timed out")
)

// MaxExcerpt bounds how much of an offending model response is echoed back.
const MaxExcerpt = 500

// AppError represents an application error with context
type AppError struct {
	Err        error             `json:"-"`
	Message    string            `json:"message"`
	Code       string            `json:"code"`
	HTTPStatus int               `json:"-"`
	Details    map[string]string `json:"details,omitempty"`
}

func (e *AppError) Error() string {
	if e.Err != nil && !isSentinel(e.Err) {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match an AppError against the sentinel of its class
// even when Err carries a more specific cause.
func (e *AppError) Is(target error) bool {
	switch e.Code {
	case "NOT_FOUND":
		return target == ErrNotFound
	case "CONFIGURATION_ERROR":
		return target == ErrConfiguration
	case "UPSTREAM_ERROR":
		return target == ErrUpstream
	case "MALFORMED_RESPONSE":
		return target == ErrMalformedResponse
	case "BAD_REQUEST":
		return target == ErrBadRequest
	case "TIMEOUT":
		return target == ErrTimeout
	}
	return false
}

func isSentinel(err error) bool {
	switch err {
	case ErrNotFound, ErrUnauthorized, ErrForbidden, ErrBadRequest,
		ErrInternal, ErrConfiguration, ErrUpstream, ErrMalformedResponse, ErrTimeout:
		return true
	}
	return false
}

// NotFound creates a not found error
func NotFound(resource string, id string) *AppError {
	return &AppError{
		Err:        ErrNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		Code:       "NOT_FOUND",
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]string{"resource": resource, "id": id},
	}
}

// NoContent reports that the referenced entity exists but has nothing to
// process yet. It belongs to the not-found class.
func NoContent(message string, details map[string]string) *AppError {
	return &AppError{
		Err:        ErrNotFound,
		Message:    message,
		Code:       "NOT_FOUND",
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

// Unauthorized creates an unauthorized error
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:        ErrUnauthorized,
		Message:    message,
		Code:       "UNAUTHORIZED",
		HTTPStatus: http.StatusUnauthorized,
	}
}

// BadRequest creates a bad request error
func BadRequest(message string) *AppError {
	return &AppError{
		Err:        ErrBadRequest,
		Message:    message,
		Code:       "BAD_REQUEST",
		HTTPStatus: http.StatusBadRequest,
	}
}

// Configuration reports missing credentials or settings for an operation.
// It is a server fault, not a client error.
func Configuration(message string) *AppError {
	return &AppError{
		Err:        ErrConfiguration,
		Message:    message,
		Code:       "CONFIGURATION_ERROR",
		HTTPStatus: http.StatusInternalServerError,
	}
}

// Upstream wraps a failed call to the model service or mail transport.
func Upstream(service string, err error) *AppError {
	details := map[string]string{"service": service}
	if err != nil {
		details["cause"] = err.Error()
	}
	return &AppError{
		Err:        err,
		Message:    fmt.Sprintf("%s request failed", service),
		Code:       "UPSTREAM_ERROR",
		HTTPStatus: http.StatusBadGateway,
		Details:    details,
	}
}

// MalformedResponse reports model output that does not parse as the
// expected structure. The excerpt is bounded to MaxExcerpt characters.
func MalformedResponse(parseErr error, raw string) *AppError {
	details := map[string]string{"excerpt": Excerpt(raw)}
	if parseErr != nil {
		details["parse_error"] = parseErr.Error()
	}
	return &AppError{
		Err:        parseErr,
		Message:    "model returned an invalid structured response",
		Code:       "MALFORMED_RESPONSE",
		HTTPStatus: http.StatusBadGateway,
		Details:    details,
	}
}

// Timeout reports that the caller's deadline passed or the request was
// cancelled before the work finished. err is the context error.
func Timeout(err error) *AppError {
	if err == nil {
		err = ErrTimeout
	}
	return &AppError{
		Err:        err,
		Message:    "request timed out",
		Code:       "TIMEOUT",
		HTTPStatus: http.StatusGatewayTimeout,
	}
}

// Internal creates an internal error
func Internal(err error) *AppError {
	return &AppError{
		Err:        err,
		Message:    "internal server error",
		Code:       "INTERNAL_ERROR",
		HTTPStatus: http.StatusInternalServerError,
	}
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		appErr.Message = fmt.Sprintf("%s: %s", message, appErr.Message)
		return appErr
	}
	return &AppError{
		Err:        err,
		Message:    message,
		Code:       "INTERNAL_ERROR",
		HTTPStatus: http.StatusInternalServerError,
	}
}

// Excerpt returns at most MaxExcerpt runes of s.
func Excerpt(s string) string {
	r := []rune(s)
	if len(r) <= MaxExcerpt {
		return s
	}
	return string(r[:MaxExcerpt])
}
