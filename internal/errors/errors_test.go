package errors_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	apperrors "intake/internal/errors"

	"github.com/stretchr/testify/assert"
)

func TestMalformedResponseError(t *testing.T) {
	base := errors.New("unexpected end of JSON input")
	err := apperrors.NewMalformedResponseError("{\"type\":", base)

	assert.True(t, apperrors.IsMalformedResponse(err))
	assert.ErrorIs(t, err, base)
	assert.Contains(t, err.Error(), "unexpected end")

	wrapped := fmt.Errorf("confirm: %w", err)
	assert.True(t, apperrors.IsMalformedResponse(wrapped))
}

func TestNetworkError(t *testing.T) {
	t.Run("transport failure", func(t *testing.T) {
		err := apperrors.NewNetworkError("backend", "/tags", 0, errors.New("connection refused"))
		assert.True(t, apperrors.IsNetworkFailure(err))
		assert.True(t, err.Retryable())
		assert.NotContains(t, err.Error(), "status")
	})

	t.Run("not found", func(t *testing.T) {
		err := apperrors.NewNetworkError("backend", "/messages/9", 404, errors.New("missing"))
		assert.True(t, apperrors.IsNotFound(err))
		assert.False(t, err.Retryable())
		assert.Contains(t, err.Error(), "404")
	})

	t.Run("server error is retryable", func(t *testing.T) {
		err := apperrors.NewNetworkError("extractor", "/generate", 503, nil)
		assert.True(t, err.Retryable())
	})
}

func TestStatusMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"malformed", apperrors.NewMalformedResponseError("", nil), "Error: Invalid JSON response from AI. Cannot confirm."},
		{"validation", apperrors.NewValidationError("message", "", "Please paste a WhatsApp message to generate data."), "Please paste a WhatsApp message to generate data."},
		{"cancelled", context.Canceled, "Operation cancelled."},
		{"stale", fmt.Errorf("confirm: %w", apperrors.ErrStaleResult), "Operation cancelled."},
		{"closed", apperrors.ErrSessionClosed, "Session closed."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, apperrors.StatusMessage(tt.err))
		})
	}

	netErr := apperrors.NewNetworkError("backend", "/tags", 500, errors.New("boom"))
	assert.Contains(t, apperrors.StatusMessage(netErr), "Network error")
}
