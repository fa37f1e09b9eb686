// Package apperr defines the sentinel errors shared across services. Callers
// wrap them with context via fmt.Errorf("...: %w", ...) and match with
// errors.Is.
package apperr

import (
	"errors"
	"net/http"
)

var (
	ErrNotFound             = errors.New("NOT_FOUND")
	ErrConflict             = errors.New("CONFLICT")
	ErrOutOfStock           = errors.New("OUT_OF_STOCK")
	ErrInsufficientQuantity = errors.New("INSUFFICIENT_QUANTITY")
	ErrUnauthorized         = errors.New("UNAUTHORIZED")
	ErrValidation           = errors.New("VALIDATION")
)

// HTTPStatus maps a domain error onto the status code handlers should return.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrOutOfStock), errors.Is(err, ErrInsufficientQuantity):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Code extracts the stable error code for a domain error, or "INTERNAL" for
// anything outside the taxonomy.
func Code(err error) string {
	for _, sentinel := range []error{
		ErrNotFound, ErrConflict, ErrOutOfStock,
		ErrInsufficientQuantity, ErrUnauthorized, ErrValidation,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return "INTERNAL"
}
