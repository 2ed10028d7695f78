package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConstructorsKeepSentinelAndCause(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")

	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"gateway unavailable", GatewayUnavailable(cause), ErrGatewayUnavailable},
		{"confirmation unavailable", ConfirmationUnavailable(cause), ErrConfirmationUnavailable},
		{"reconciliation failed", ReconciliationFailed(cause), ErrReconciliationFailed},
		{"notification delivery failed", NotificationDeliveryFailed(cause), ErrNotificationDeliveryFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.err, tt.sentinel)
			assert.ErrorIs(t, tt.err, cause)
			assert.ErrorIs(t, fmt.Errorf("wrapped: %w", tt.err), tt.sentinel)
		})
	}
}

func TestConfirmationDeniedIsNotRetryable(t *testing.T) {
	err := ConfirmationDenied("card declined")

	assert.ErrorIs(t, err, ErrConfirmationDenied)
	assert.False(t, Retryable(err))
	assert.Equal(t, "card declined: payment confirmation denied", err.Error())
}

func TestRetryable(t *testing.T) {
	assert.True(t, Retryable(ReconciliationFailed(nil)))
	assert.True(t, Retryable(GatewayUnavailable(nil)))
	assert.False(t, Retryable(NotFound("payment not found")))
	assert.False(t, Retryable(nil))
}
