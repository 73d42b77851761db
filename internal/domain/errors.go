package domain

import (
	"errors"
	"fmt"
)

type ErrorCode string

const (
	CodeValidation        ErrorCode = "VALIDATION_ERROR"
	CodeNotFound          ErrorCode = "NOT_FOUND"
	CodeConflict          ErrorCode = "CONFLICT"
	CodeInvalidTransition ErrorCode = "INVALID_TRANSITION"
	CodeUnauthenticated   ErrorCode = "UNAUTHENTICATED"
	CodeUnauthorized      ErrorCode = "UNAUTHORIZED"
)

// Error is the error type every caller-facing failure is reported with.
// Details carries what the caller needs to act on it (field, id, states).
type Error struct {
	Code    ErrorCode      `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches any *Error with the same code, so errors.Is(err, ErrNotFound)
// works for every not-found error regardless of message.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

var (
	ErrValidation        = &Error{Code: CodeValidation}
	ErrNotFound          = &Error{Code: CodeNotFound}
	ErrConflict          = &Error{Code: CodeConflict}
	ErrInvalidTransition = &Error{Code: CodeInvalidTransition}
	ErrUnauthenticated   = &Error{Code: CodeUnauthenticated}
	ErrUnauthorized      = &Error{Code: CodeUnauthorized}
)

func Validation(field, msg string) *Error {
	return &Error{
		Code:    CodeValidation,
		Message: fmt.Sprintf("%s %s", field, msg),
		Details: map[string]any{"field": field},
	}
}

func NotFound(entity string, id any) *Error {
	return &Error{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s with ID %v not found", entity, id),
		Details: map[string]any{"entity": entity, "id": fmt.Sprint(id)},
	}
}

func Conflict(msg string) *Error {
	return &Error{Code: CodeConflict, Message: msg}
}

func InvalidTransition(from, to OrderStatus) *Error {
	return &Error{
		Code:    CodeInvalidTransition,
		Message: fmt.Sprintf("invalid status transition from %s to %s", from, to),
		Details: map[string]any{"from": string(from), "to": string(to)},
	}
}

func Unauthenticated(msg string) *Error {
	return &Error{Code: CodeUnauthenticated, Message: msg}
}

func Unauthorized(msg string) *Error {
	return &Error{Code: CodeUnauthorized, Message: msg}
}
