package models

import "time"

type ExpirationAction string

const (
	ExpirationCancelImmediately ExpirationAction = "cancel_immediately"
	ExpirationDefer             ExpirationAction = "defer"
	ExpirationForceCancel       ExpirationAction = "force_cancel"
)

// ExpirationDecision is the outcome of evaluating one pending appointment.
// It has no identity and is recomputed on every reconciliation pass.
type ExpirationDecision struct {
	Action         ExpirationAction
	RemainingGrace time.Duration
}

// ExpirationResult is the outcome of executing a decision for one
// appointment. Failures are collected, not thrown, so one bad appointment
// never aborts a batch; the next pass retries whatever is still open.
type ExpirationResult struct {
	AppointmentID        string
	AppointmentCancelled bool
	PaymentsCancelled    int
	SlotReleased         bool
	Failures             []string
}

func (r *ExpirationResult) HasFailures() bool {
	return len(r.Failures) > 0
}

func (r *ExpirationResult) IsFullySuccessful() bool {
	return r.AppointmentCancelled && !r.HasFailures()
}
