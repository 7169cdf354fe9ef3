package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type AppointmentStatus string

const (
	AppointmentStatusPending    AppointmentStatus = "pending"
	AppointmentStatusConfirmed  AppointmentStatus = "confirmed"
	AppointmentStatusInProgress AppointmentStatus = "in_progress"
	AppointmentStatusCompleted  AppointmentStatus = "completed"
	AppointmentStatusCancelled  AppointmentStatus = "cancelled"
)

// Appointment is consumed, not owned, by the payment core. Only the fields
// the orchestrator needs are modelled here.
type Appointment struct {
	ID              string
	Status          AppointmentStatus
	SlotID          string
	ConsultationFee decimal.Decimal
	StartTime       time.Time
	CancelReason    string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// IsPayable reports whether a new payment may be opened against this
// appointment.
func (a *Appointment) IsPayable() bool {
	return a.Status == AppointmentStatusPending
}
