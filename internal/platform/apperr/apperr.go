// Package apperr defines the recoverable error kinds surfaced by the domain
// services. Handlers translate kinds to HTTP status codes; everything not
// wrapped in an Error is treated as an internal failure.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	KindValidation Kind = iota + 1
	KindPermissionDenied
	KindInactiveEntity
	KindDuplicateMapping
	KindNotFound
	KindBlockedByActiveRelations
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation_error"
	case KindPermissionDenied:
		return "permission_denied"
	case KindInactiveEntity:
		return "inactive_entity"
	case KindDuplicateMapping:
		return "duplicate_mapping"
	case KindNotFound:
		return "not_found"
	case KindBlockedByActiveRelations:
		return "blocked_by_active_relations"
	default:
		return "unknown"
	}
}

// Error is a domain error with a kind, a caller-facing message, and optional
// field-level detail.
type Error struct {
	Kind    Kind
	Message string
	// Fields carries field-level validation detail, keyed by field name.
	Fields map[string]string
	// BlockingCount is set for KindBlockedByActiveRelations: the number of
	// active relations preventing the operation.
	BlockingCount int
}

func (e *Error) Error() string { return e.Message }

func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Validation returns a validation error with a single field detail.
func Validation(field, message string) *Error {
	return &Error{
		Kind:    KindValidation,
		Message: message,
		Fields:  map[string]string{field: message},
	}
}

// Blocked returns a BlockedByActiveRelations error reporting count.
func Blocked(entity string, count int) *Error {
	return &Error{
		Kind: KindBlockedByActiveRelations,
		Message: fmt.Sprintf(
			"cannot delete %s: %d active assignment(s) must be removed first", entity, count),
		BlockingCount: count,
	}
}

// KindOf returns the kind of err, or 0 if err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// HTTPStatus maps an error to the HTTP status a handler should return.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation, KindInactiveEntity, KindBlockedByActiveRelations:
		return http.StatusBadRequest
	case KindPermissionDenied:
		return http.StatusForbidden
	case KindDuplicateMapping:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
