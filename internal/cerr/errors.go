package cerr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	apierr "github.com/victorgomez09/portal/internal/auth"
)

// Retry header constants used on 429 responses.
const (
	RetryAfter    = "Retry-After"
	RetryAfterSec = 5
)

// StatusClientClosedRequest is reported when the client goes away mid-request.
const StatusClientClosedRequest = 499

// ErrorCode classifies an APIError.
type ErrorCode int

const (
	CodeUnknown ErrorCode = iota
	CodeValidation
	CodeUnauthenticated
	CodeInvalidToken
	CodeForbidden
	CodeNotFound
	CodeConflict
	CodeTooManyRequests
	CodeCanceled
	CodeInternal
)

func (c ErrorCode) String() string {
	switch c {
	case CodeValidation:
		return "ValidationError"
	case CodeUnauthenticated:
		return "Unauthenticated"
	case CodeInvalidToken:
		return "InvalidToken"
	case CodeForbidden:
		return "Forbidden"
	case CodeNotFound:
		return "NotFound"
	case CodeConflict:
		return "Conflict"
	case CodeTooManyRequests:
		return "TooManyRequests"
	case CodeCanceled:
		return "Canceled"
	case CodeInternal:
		return "ServerError"
	default:
		return "Unknown"
	}
}

// FieldError is one entry of the "errors" array of a 400 response.
type FieldError struct {
	Field string `json:"field"`
	Msg   string `json:"msg"`
}

// FieldErrors collects field-level validation failures.
type FieldErrors []FieldError

func (fe FieldErrors) Error() string {
	parts := make([]string, 0, len(fe))
	for _, f := range fe {
		parts = append(parts, f.Field+": "+f.Msg)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add appends a field failure.
func (fe *FieldErrors) Add(field, msg string) {
	*fe = append(*fe, FieldError{Field: field, Msg: msg})
}

// Err returns nil when no failure was collected.
func (fe FieldErrors) Err() error {
	if len(fe) == 0 {
		return nil
	}
	return fe
}

// APIError is an error that knows how it should be rendered to the client.
type APIError struct {
	Op         string
	Code       ErrorCode
	Message    string
	Err        error
	StatusCode int
	Fields     []FieldError
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

func Validation(op string, fields ...FieldError) *APIError {
	return &APIError{
		Op:         op,
		Code:       CodeValidation,
		Message:    "Validation failed",
		StatusCode: http.StatusBadRequest,
		Fields:     fields,
	}
}

// BadRequest is a 400 without field detail, e.g. an unparseable body.
func BadRequest(op, msg string) *APIError {
	return &APIError{Op: op, Code: CodeValidation, Message: msg, StatusCode: http.StatusBadRequest}
}

func Unauthenticated(op, msg string) *APIError {
	return &APIError{Op: op, Code: CodeUnauthenticated, Message: msg, StatusCode: http.StatusUnauthorized}
}

func InvalidToken(op string) *APIError {
	return &APIError{Op: op, Code: CodeInvalidToken, Message: "Invalid token", StatusCode: http.StatusForbidden}
}

func Forbidden(op, msg string) *APIError {
	return &APIError{Op: op, Code: CodeForbidden, Message: msg, StatusCode: http.StatusForbidden}
}

func NotFound(op, msg string) *APIError {
	return &APIError{Op: op, Code: CodeNotFound, Message: msg, StatusCode: http.StatusNotFound}
}

func Conflict(op, msg string) *APIError {
	return &APIError{Op: op, Code: CodeConflict, Message: msg, StatusCode: http.StatusConflict}
}

func TooManyRequests(op string) *APIError {
	return &APIError{
		Op:         op,
		Code:       CodeTooManyRequests,
		Message:    "Too many requests",
		StatusCode: http.StatusTooManyRequests,
	}
}

func Internal(op string, err error) *APIError {
	return &APIError{
		Op:         op,
		Code:       CodeInternal,
		Message:    "Internal server error",
		Err:        err,
		StatusCode: http.StatusInternalServerError,
	}
}

// FromError converts any error into an APIError, mapping the known sentinels to their status.
func FromError(op string, err error) *APIError {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae
	}

	var fields FieldErrors
	if errors.As(err, &fields) {
		e := Validation(op, fields...)
		e.Err = err
		return e
	}

	var e *APIError
	switch {
	case errors.Is(err, apierr.ErrTokenExpired):
		e = Unauthenticated(op, "Token expired")
	case errors.Is(err, apierr.ErrTokenMalformed):
		e = InvalidToken(op)
	case errors.Is(err, apierr.ErrInvalidCredentials):
		e = Unauthenticated(op, "Invalid credentials")
	case errors.Is(err, apierr.ErrInvalidRefreshToken):
		e = Unauthenticated(op, "Invalid refresh token")
	case errors.Is(err, apierr.ErrInactiveUser):
		e = Unauthenticated(op, "Invalid or expired token")
	case errors.Is(err, apierr.ErrEmailTaken):
		e = Conflict(op, "Email already registered")
	case errors.Is(err, apierr.ErrConflict):
		e = Conflict(op, "Resource already exists")
	case errors.Is(err, apierr.ErrUserNotFound):
		e = NotFound(op, "User not found")
	case errors.Is(err, apierr.ErrNotFound):
		e = NotFound(op, "Resource not found")
	case errors.Is(err, apierr.ErrForbidden):
		e = Forbidden(op, "Access denied")
	case errors.Is(err, context.Canceled):
		e = &APIError{
			Op:         op,
			Code:       CodeCanceled,
			Message:    "Request canceled by client",
			StatusCode: StatusClientClosedRequest,
		}
	default:
		return Internal(op, err)
	}
	e.Err = err
	return e
}
