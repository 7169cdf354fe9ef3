package models

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPaymentStatusTransitionGraph(t *testing.T) {
	all := []PaymentStatus{
		PaymentStatusPending,
		PaymentStatusProcessing,
		PaymentStatusCompleted,
		PaymentStatusFailed,
		PaymentStatusCancelled,
		PaymentStatusRefunded,
	}

	allowed := map[PaymentStatus]map[PaymentStatus]bool{
		PaymentStatusPending: {
			PaymentStatusProcessing: true,
			PaymentStatusCompleted:  true,
			PaymentStatusFailed:     true,
			PaymentStatusCancelled:  true,
		},
		PaymentStatusProcessing: {
			PaymentStatusCompleted: true,
			PaymentStatusFailed:    true,
			PaymentStatusCancelled: true,
		},
		PaymentStatusCompleted: {
			PaymentStatusRefunded: true,
		},
	}

	for _, from := range all {
		for _, to := range all {
			t.Run(fmt.Sprintf("%s to %s", from, to), func(t *testing.T) {
				assert.Equal(t, allowed[from][to], from.CanTransitionTo(to))
			})
		}
	}
}

func TestPaymentStatusTerminal(t *testing.T) {
	assert.False(t, PaymentStatusPending.IsTerminal())
	assert.False(t, PaymentStatusProcessing.IsTerminal())
	assert.True(t, PaymentStatusCompleted.IsTerminal())
	assert.True(t, PaymentStatusFailed.IsTerminal())
	assert.True(t, PaymentStatusCancelled.IsTerminal())
	assert.True(t, PaymentStatusRefunded.IsTerminal())

	// Refunded is the one edge leaving a terminal status; failed, cancelled
	// and refunded have none.
	assert.True(t, PaymentStatusCompleted.CanTransitionTo(PaymentStatusRefunded))
	for _, from := range []PaymentStatus{PaymentStatusFailed, PaymentStatusCancelled, PaymentStatusRefunded} {
		for _, to := range []PaymentStatus{PaymentStatusPending, PaymentStatusProcessing, PaymentStatusCompleted, PaymentStatusFailed, PaymentStatusCancelled, PaymentStatusRefunded} {
			assert.False(t, from.CanTransitionTo(to))
		}
	}
}
