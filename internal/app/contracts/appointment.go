package contracts

import (
	"context"
	"time"

	"github.com/nqluong/appointment-project-sub001/internal/app/models"
)

// AppointmentRepository is the collaborator contract for the externally
// owned appointment records. Reconciliation jobs go through this contract,
// never around it.
type AppointmentRepository interface {
	FindByID(ctx context.Context, appointmentID string) (*models.Appointment, error)
	FindPendingCreatedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Appointment, error)
	// UpdateStatusIf applies the status change only when the stored status is
	// one of fromStatuses; (nil, nil) means another actor got there first.
	UpdateStatusIf(ctx context.Context, appointmentID string, fromStatuses []models.AppointmentStatus, to models.AppointmentStatus, reason string) (*models.Appointment, error)
}
