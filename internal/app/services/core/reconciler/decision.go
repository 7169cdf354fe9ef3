package reconciler

import (
	"time"

	"github.com/nqluong/appointment-project-sub001/internal/app/config"
	"github.com/nqluong/appointment-project-sub001/internal/app/models"
)

// Thresholds are the reconciliation deadlines measured from appointment
// creation. Scan eligibility starts at PendingMaxAge, cancellation at
// HardDeadline, and a processing payment buys GraceWindow extra beyond the
// hard deadline before it is cancelled anyway.
type Thresholds struct {
	PendingMaxAge time.Duration
	HardDeadline  time.Duration
	GraceWindow   time.Duration
}

func ThresholdsFromConfig(cfg *config.Reconciler) Thresholds {
	return Thresholds{
		PendingMaxAge: time.Duration(cfg.PendingMaxAgeMinute) * time.Minute,
		HardDeadline:  time.Duration(cfg.HardDeadlineMinute) * time.Minute,
		GraceWindow:   time.Duration(cfg.GraceWindowMinute) * time.Minute,
	}
}

// Evaluate classifies one pending appointment. Pure function, recomputed on
// every pass, no side effects.
func Evaluate(appointment *models.Appointment, hasProcessingPayment bool, now time.Time, t Thresholds) models.ExpirationDecision {
	age := now.Sub(appointment.CreatedAt)
	graceEnd := t.HardDeadline + t.GraceWindow

	switch {
	case age >= graceEnd:
		return models.ExpirationDecision{Action: models.ExpirationForceCancel}
	case age >= t.HardDeadline && !hasProcessingPayment:
		return models.ExpirationDecision{Action: models.ExpirationCancelImmediately}
	case age >= t.HardDeadline:
		// Money may be in flight; do not touch the appointment yet.
		return models.ExpirationDecision{
			Action:         models.ExpirationDefer,
			RemainingGrace: graceEnd - age,
		}
	default:
		return models.ExpirationDecision{
			Action:         models.ExpirationDefer,
			RemainingGrace: t.HardDeadline - age,
		}
	}
}
