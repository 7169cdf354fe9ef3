package payments

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nqluong/appointment-project-sub001/internal/app/contracts"
	"github.com/nqluong/appointment-project-sub001/internal/app/models"
	"github.com/nqluong/appointment-project-sub001/internal/pkg/constvars"
	"github.com/nqluong/appointment-project-sub001/internal/pkg/exceptions"
)

// Edges outside the payment state machine are refused before the filter is
// even built, so a bare repository is enough to exercise the guard.
func TestUpdateStatusIfRejectsIllegalEdges(t *testing.T) {
	ctx := context.Background()
	repo := &PaymentMongoRepository{}

	cases := []struct {
		name string
		from models.PaymentStatus
		to   models.PaymentStatus
	}{
		{"completed cannot reopen", models.PaymentStatusCompleted, models.PaymentStatusPending},
		{"refunded cannot complete", models.PaymentStatusRefunded, models.PaymentStatusCompleted},
		{"failed cannot retry in place", models.PaymentStatusFailed, models.PaymentStatusProcessing},
		{"cancelled cannot refund", models.PaymentStatusCancelled, models.PaymentStatusRefunded},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			updated, err := repo.UpdateStatusIf(ctx, "pay-1",
				[]models.PaymentStatus{tc.from},
				contracts.PaymentUpdate{Status: tc.to})

			assert.Nil(t, updated)
			require.Error(t, err)

			customErr, ok := err.(*exceptions.CustomError)
			require.True(t, ok)
			assert.Equal(t, constvars.StatusConflict, customErr.StatusCode)
			assert.Contains(t, customErr.DevMessage, constvars.ErrDevInvalidStateTransition)
		})
	}
}
