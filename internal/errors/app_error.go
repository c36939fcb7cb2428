package errors

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strings"
)

// Code is the closed set of error kinds surfaced to callers.
type Code string

const (
	CodeUnauthorized         Code = "UNAUTHORIZED"
	CodeTokenExpired         Code = "TOKEN_EXPIRED"
	CodeInvalidCredentials   Code = "INVALID_CREDENTIALS"
	CodeSessionExpired       Code = "SESSION_EXPIRED"
	CodeValidationError      Code = "VALIDATION_ERROR"
	CodeInvalidInput         Code = "INVALID_INPUT"
	CodeMissingRequiredField Code = "MISSING_REQUIRED_FIELD"
	CodeNetworkError         Code = "NETWORK_ERROR"
	CodeServerError          Code = "SERVER_ERROR"
	CodeNotFound             Code = "NOT_FOUND"
	CodeConflict             Code = "CONFLICT"
	CodeRateLimitExceeded    Code = "RATE_LIMIT_EXCEEDED"
	CodeProjectExists        Code = "PROJECT_EXISTS"
	CodeProjectNotFound      Code = "PROJECT_NOT_FOUND"
	CodeOperationFailed      Code = "OPERATION_FAILED"
	CodeUnknownError         Code = "UNKNOWN_ERROR"
)

// AppError is an error carrying a Code from the taxonomy. It is built at the
// boundary nearest the failure and passed up unchanged.
type AppError struct {
	Code       Code   `json:"code"`
	Message    string `json:"message"`
	Details    string `json:"details,omitempty"`
	StatusCode int    `json:"statusCode,omitempty"`
	Original   error  `json:"-"`
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Original
}

// Option configures an AppError.
type Option func(*AppError)

func WithDetails(details string) Option {
	return func(e *AppError) { e.Details = details }
}

func WithStatus(status int) Option {
	return func(e *AppError) { e.StatusCode = status }
}

func WithCause(err error) Option {
	return func(e *AppError) { e.Original = err }
}

// New creates an AppError.
func New(code Code, message string, opts ...Option) *AppError {
	e := &AppError{Code: code, Message: message}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func orDefault(message, fallback string) string {
	if message == "" {
		return fallback
	}
	return message
}

func Unauthorized(message, details string) *AppError {
	return New(CodeUnauthorized, orDefault(message, "Unauthorized access"), WithDetails(details), WithStatus(http.StatusUnauthorized))
}

func TokenExpired(message, details string) *AppError {
	return New(CodeTokenExpired, orDefault(message, "Token has expired"), WithDetails(details), WithStatus(http.StatusUnauthorized))
}

func InvalidCredentials(message, details string) *AppError {
	return New(CodeInvalidCredentials, orDefault(message, "Invalid email or password"), WithDetails(details), WithStatus(http.StatusUnauthorized))
}

func Validation(message, details string) *AppError {
	return New(CodeValidationError, message, WithDetails(details), WithStatus(http.StatusBadRequest))
}

func NotFound(message, details string) *AppError {
	return New(CodeNotFound, orDefault(message, "Resource not found"), WithDetails(details), WithStatus(http.StatusNotFound))
}

func Conflict(message, details string) *AppError {
	return New(CodeConflict, message, WithDetails(details), WithStatus(http.StatusConflict))
}

func RateLimited(message, details string) *AppError {
	return New(CodeRateLimitExceeded, orDefault(message, "Too many requests"), WithDetails(details), WithStatus(http.StatusTooManyRequests))
}

func Network(message, details string, cause error) *AppError {
	return New(CodeNetworkError, orDefault(message, "Network request failed"), WithDetails(details), WithStatus(0), WithCause(cause))
}

func Server(message, details string, cause error) *AppError {
	return New(CodeServerError, orDefault(message, "Internal server error"), WithDetails(details), WithStatus(http.StatusInternalServerError), WithCause(cause))
}

func Unknown(message, details string, cause error) *AppError {
	return New(CodeUnknownError, orDefault(message, "An unknown error occurred"), WithDetails(details), WithCause(cause))
}

// Normalize converts any error into an AppError. Typed errors pass through;
// known sentinel and transport errors are classified structurally; anything
// else falls back to matching on the message text.
func Normalize(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	switch {
	case errors.Is(err, ErrTokenExpired):
		return New(CodeTokenExpired, err.Error(), WithStatus(http.StatusUnauthorized), WithCause(err))
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrInvalidToken):
		return New(CodeUnauthorized, err.Error(), WithStatus(http.StatusUnauthorized), WithCause(err))
	case errors.Is(err, ErrInvalidCredentials):
		return New(CodeInvalidCredentials, err.Error(), WithStatus(http.StatusUnauthorized), WithCause(err))
	case errors.Is(err, ErrSessionExpired):
		return New(CodeSessionExpired, err.Error(), WithStatus(http.StatusUnauthorized), WithCause(err))
	case errors.Is(err, ErrNotFound):
		return New(CodeNotFound, err.Error(), WithStatus(http.StatusNotFound), WithCause(err))
	case isNetworkError(err):
		return Network(err.Error(), "", err)
	}

	message := err.Error()
	if strings.Contains(message, "Unauthorized") || strings.Contains(message, "401") {
		return New(CodeUnauthorized, message, WithStatus(http.StatusUnauthorized), WithCause(err))
	}
	if strings.Contains(message, "Network") || strings.Contains(message, "fetch") {
		return Network(message, "", err)
	}
	return Unknown(message, "", err)
}

func isNetworkError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// CodeOf returns the Code of err after normalization.
func CodeOf(err error) Code {
	if appErr := Normalize(err); appErr != nil {
		return appErr.Code
	}
	return ""
}

// HTTPStatus is the status code to answer with for err.
func HTTPStatus(err error) int {
	appErr := Normalize(err)
	if appErr == nil || appErr.StatusCode == 0 {
		return http.StatusInternalServerError
	}
	return appErr.StatusCode
}

// CodeForStatus maps a non-ok HTTP status to a Code.
func CodeForStatus(status int) Code {
	switch {
	case status == http.StatusUnauthorized:
		return CodeUnauthorized
	case status == http.StatusNotFound:
		return CodeNotFound
	case status == http.StatusConflict:
		return CodeConflict
	case status == http.StatusTooManyRequests:
		return CodeRateLimitExceeded
	case status >= 400 && status < 500:
		return CodeValidationError
	default:
		return CodeServerError
	}
}
