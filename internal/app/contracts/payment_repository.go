package contracts

import (
	"context"
	"time"

	"github.com/nqluong/appointment-project-sub001/internal/app/models"
	"github.com/shopspring/decimal"
)

// PaymentUpdate is the set of fields a guarded transition may write. Nil
// pointers are left untouched.
type PaymentUpdate struct {
	Status               models.PaymentStatus
	GatewayTransactionID *string
	PaymentDate          *time.Time
	RefundedAmount       *decimal.Decimal
	RefundTransactionID  *string
	RefundReason         *string
	RefundDate           *time.Time
	Notes                *string
}

// PaymentRepository owns the persisted payment state. UpdateStatusIf is the
// compare-and-set transition guard: the update applies only when the stored
// status is one of fromStatuses, otherwise it returns (nil, nil) and the
// caller downgrades to an idempotent no-op.
type PaymentRepository interface {
	Create(ctx context.Context, payment *models.Payment) (*models.Payment, error)
	FindByID(ctx context.Context, paymentID string) (*models.Payment, error)
	FindByTransactionRef(ctx context.Context, transactionRef string) (*models.Payment, error)
	FindByAppointmentID(ctx context.Context, appointmentID string) ([]models.Payment, error)
	FindNonTerminalByAppointment(ctx context.Context, appointmentID string) ([]models.Payment, error)
	FindActiveByAppointmentAndType(ctx context.Context, appointmentID string, paymentType models.PaymentType) (*models.Payment, error)
	FindProcessingCreatedBetween(ctx context.Context, from, to time.Time, limit int) ([]models.Payment, error)
	UpdateStatusIf(ctx context.Context, paymentID string, fromStatuses []models.PaymentStatus, update PaymentUpdate) (*models.Payment, error)
}
