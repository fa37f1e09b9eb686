package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{ErrNotFound, http.StatusNotFound},
		{ErrConflict, http.StatusConflict},
		{ErrOutOfStock, http.StatusUnprocessableEntity},
		{ErrInsufficientQuantity, http.StatusUnprocessableEntity},
		{ErrUnauthorized, http.StatusUnauthorized},
		{ErrValidation, http.StatusBadRequest},
		{errors.New("boom"), http.StatusInternalServerError},
		{fmt.Errorf("lot abc holds 0.30, need 0.50: %w", ErrInsufficientQuantity), http.StatusUnprocessableEntity},
		{fmt.Errorf("outer: %w", fmt.Errorf("inner: %w", ErrNotFound)), http.StatusNotFound},
	}

	for _, tt := range tests {
		if got := HTTPStatus(tt.err); got != tt.want {
			t.Errorf("HTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestCode(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{ErrOutOfStock, "OUT_OF_STOCK"},
		{fmt.Errorf("product x has no open lot: %w", ErrOutOfStock), "OUT_OF_STOCK"},
		{ErrConflict, "CONFLICT"},
		{errors.New("boom"), "INTERNAL"},
	}

	for _, tt := range tests {
		if got := Code(tt.err); got != tt.want {
			t.Errorf("Code(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
