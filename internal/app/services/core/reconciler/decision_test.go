package reconciler

import (
	"testing"
	"time"

	"github.com/nqluong/appointment-project-sub001/internal/app/models"
	"github.com/stretchr/testify/assert"
)

func TestEvaluate(t *testing.T) {
	thresholds := Thresholds{
		PendingMaxAge: 15 * time.Minute,
		HardDeadline:  30 * time.Minute,
		GraceWindow:   10 * time.Minute,
	}
	now := time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC)

	appointmentAged := func(age time.Duration) *models.Appointment {
		return &models.Appointment{
			ID:        "a1",
			Status:    models.AppointmentStatusPending,
			CreatedAt: now.Add(-age),
		}
	}

	t.Run("defers a fresh eligible appointment", func(t *testing.T) {
		decision := Evaluate(appointmentAged(20*time.Minute), false, now, thresholds)
		assert.Equal(t, models.ExpirationDefer, decision.Action)
		assert.Equal(t, 10*time.Minute, decision.RemainingGrace)
	})

	t.Run("cancels immediately past the hard deadline without a processing payment", func(t *testing.T) {
		decision := Evaluate(appointmentAged(31*time.Minute), false, now, thresholds)
		assert.Equal(t, models.ExpirationCancelImmediately, decision.Action)
	})

	t.Run("defers past the hard deadline while a payment is processing", func(t *testing.T) {
		decision := Evaluate(appointmentAged(31*time.Minute), true, now, thresholds)
		assert.Equal(t, models.ExpirationDefer, decision.Action)
		assert.Equal(t, 9*time.Minute, decision.RemainingGrace)
	})

	t.Run("force cancels once the grace window is exhausted even with a processing payment", func(t *testing.T) {
		decision := Evaluate(appointmentAged(41*time.Minute), true, now, thresholds)
		assert.Equal(t, models.ExpirationForceCancel, decision.Action)
	})

	t.Run("boundary at the hard deadline cancels", func(t *testing.T) {
		decision := Evaluate(appointmentAged(30*time.Minute), false, now, thresholds)
		assert.Equal(t, models.ExpirationCancelImmediately, decision.Action)
	})

	t.Run("boundary at grace end force cancels", func(t *testing.T) {
		decision := Evaluate(appointmentAged(40*time.Minute), true, now, thresholds)
		assert.Equal(t, models.ExpirationForceCancel, decision.Action)
	})
}
