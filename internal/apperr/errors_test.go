package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"not found", fmt.Errorf("member %w", ErrNotFound), http.StatusNotFound},
		{"invalid state", fmt.Errorf("%w: already checked in", ErrInvalidState), http.StatusConflict},
		{"invalid input", fmt.Errorf("%w: amount", ErrInvalidInput), http.StatusBadRequest},
		{"conflict", fmt.Errorf("reconcile: %w", ErrConflictRetryable), http.StatusServiceUnavailable},
		{"gateway", fmt.Errorf("%w: timeout", ErrExternalGateway), http.StatusBadGateway},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

func TestKindsSurviveWrapping(t *testing.T) {
	base := fmt.Errorf("plan %w", ErrNotFound)
	wrapped := fmt.Errorf("open membership for member 42: %w", base)

	assert.True(t, IsNotFound(wrapped))
	assert.False(t, IsInvalidState(wrapped))
	assert.False(t, IsConflictRetryable(wrapped))
}
