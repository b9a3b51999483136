package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"strings"
)

// AppError is implemented by every error the API raises on purpose.
// Handlers read the status and message from it instead of guessing.
type AppError interface {
	error
	Category() string
	HTTPStatus() int
	Unwrap() error
	Stack() string
}

// ErrMalformedID is returned by stores when an identifier cannot be parsed.
var ErrMalformedID = errors.New("malformed identifier")

type base struct {
	msg   string
	cause error
	pcs   []uintptr
}

func newBase(msg string, cause error) base {
	pcs := make([]uintptr, 32)
	n := runtime.Callers(3, pcs)
	return base{msg: msg, cause: cause, pcs: pcs[:n]}
}

func (b *base) Error() string { return b.msg }
func (b *base) Unwrap() error { return b.cause }

// Stack renders the call stack captured when the error was created.
func (b *base) Stack() string {
	var sb strings.Builder
	sb.WriteString(b.msg)
	frames := runtime.CallersFrames(b.pcs)
	for {
		f, more := frames.Next()
		fmt.Fprintf(&sb, "\n    at %s (%s:%d)", f.Function, f.File, f.Line)
		if !more {
			break
		}
	}
	return sb.String()
}

// ValidationError reports input that failed one or more field rules.
type ValidationError struct {
	base
	Fields []string
}

func (e *ValidationError) Category() string { return "VALIDATION_ERROR" }
func (e *ValidationError) HTTPStatus() int  { return http.StatusBadRequest }

// NewValidationError builds a ValidationError whose message joins every
// field message with ", ".
func NewValidationError(messages ...string) *ValidationError {
	return &ValidationError{base: newBase(strings.Join(messages, ", "), nil), Fields: messages}
}

// NotFoundError reports a missing resource.
type NotFoundError struct{ base }

func (e *NotFoundError) Category() string { return "NOT_FOUND" }
func (e *NotFoundError) HTTPStatus() int  { return http.StatusNotFound }

// NewNotFoundError builds a NotFoundError with msg.
func NewNotFoundError(msg string) *NotFoundError {
	return &NotFoundError{base: newBase(msg, nil)}
}

// ConflictError reports state that would clash with existing data.
type ConflictError struct {
	base
	status int
}

func (e *ConflictError) Category() string { return "CONFLICT" }
func (e *ConflictError) HTTPStatus() int  { return e.status }

// NewConflictError reports a duplicate. The API answers duplicates with 400.
func NewConflictError(msg string) *ConflictError {
	return &ConflictError{base: newBase(msg, nil), status: http.StatusBadRequest}
}

// NewConcurrentModificationError reports a write that lost a race.
func NewConcurrentModificationError(msg string, cause error) *ConflictError {
	return &ConflictError{base: newBase(msg, cause), status: http.StatusConflict}
}

// AuthError reports a missing, invalid or expired credential.
type AuthError struct{ base }

func (e *AuthError) Category() string { return "AUTH_ERROR" }
func (e *AuthError) HTTPStatus() int  { return http.StatusUnauthorized }

// NewAuthError builds an AuthError with msg, keeping cause for logs.
func NewAuthError(msg string, cause error) *AuthError {
	return &AuthError{base: newBase(msg, cause)}
}

// InternalError wraps unexpected failures of the server or its stores.
type InternalError struct{ base }

func (e *InternalError) Category() string { return "INTERNAL_ERROR" }
func (e *InternalError) HTTPStatus() int  { return http.StatusInternalServerError }

// NewInternalError wraps err behind the client-facing msg.
func NewInternalError(msg string, err error) *InternalError {
	if err != nil {
		msg = fmt.Sprintf("%s: %s", msg, err.Error())
	}
	return &InternalError{base: newBase(msg, err)}
}

// DuplicateKeyError is raised by stores when a unique index rejects a write.
type DuplicateKeyError struct {
	Field string
	Err   error
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate value for unique field %q: %v", e.Field, e.Err)
}

func (e *DuplicateKeyError) Unwrap() error { return e.Err }
