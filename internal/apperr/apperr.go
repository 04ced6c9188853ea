package apperr

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Kind is the machine-readable class of a failure.
type Kind string

const (
	KindValidation          Kind = "VALIDATION"
	KindNotFound            Kind = "NOT_FOUND"
	KindForbidden           Kind = "FORBIDDEN"
	KindForbiddenTransition Kind = "FORBIDDEN_TRANSITION"
	KindCapacityExceeded    Kind = "CAPACITY_EXCEEDED"
	KindConflict            Kind = "CONFLICT"
	KindStorage             Kind = "STORAGE"
)

// Error is the typed result every operation boundary returns on failure.
// Message is safe to show to the actor; Err is for logs only.
type Error struct {
	Kind          Kind
	Code          string
	Message       string
	CorrelationID string
	Err           error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by kind, so errors.Is(err, &Error{Kind: KindNotFound}) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Code == "" || t.Code == e.Code)
}

func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func Wrap(kind Kind, code, message string, err error) *Error {
	return &Error{Kind: kind, Code: code, Message: message, Err: err}
}

func Validation(message string) *Error {
	return New(KindValidation, "VALIDATION_FAILED", message)
}

func NotFound(code, message string) *Error {
	return New(KindNotFound, code, message)
}

func Forbidden(message string) *Error {
	return New(KindForbidden, "FORBIDDEN", message)
}

func ForbiddenTransition(code, message string) *Error {
	return New(KindForbiddenTransition, code, message)
}

func CapacityExceeded(message string) *Error {
	return New(KindCapacityExceeded, "CAPACITY_EXCEEDED", message)
}

func Conflict(message string, err error) *Error {
	return Wrap(KindConflict, "CONCURRENT_MODIFICATION", message, err)
}

func Storage(err error) *Error {
	return Wrap(KindStorage, "STORAGE_ERROR", "The operation could not be completed. Please try again later.", err)
}

// KindOf reports the kind of err, or KindStorage for anything untyped.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindStorage
}

// Retryable is true for failures a caller may retry unchanged.
func Retryable(err error) bool {
	switch KindOf(err) {
	case KindStorage, KindConflict:
		return true
	}
	return false
}

type correlationKey struct{}

// WithCorrelationID stores the id used to join logs with user reports.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey{}, id)
}

// CorrelationID returns the id stored in ctx, generating one if absent.
func CorrelationID(ctx context.Context) string {
	if id, ok := ctx.Value(correlationKey{}).(string); ok && id != "" {
		return id
	}
	return uuid.NewString()
}

// Ensure makes sure ctx carries a correlation id and returns both.
func Ensure(ctx context.Context) (context.Context, string) {
	if id, ok := ctx.Value(correlationKey{}).(string); ok && id != "" {
		return ctx, id
	}
	id := uuid.NewString()
	return WithCorrelationID(ctx, id), id
}

// Stamp attaches the correlation id to err, converting untyped errors to storage errors.
func Stamp(err error, correlationID string) error {
	if err == nil {
		return nil
	}
	var e *Error
	if !errors.As(err, &e) {
		e = Storage(err)
	}
	if e.CorrelationID == "" {
		e.CorrelationID = correlationID
	}
	return e
}
