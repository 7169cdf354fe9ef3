package contracts

import (
	"context"

	"github.com/nqluong/appointment-project-sub001/internal/app/models"
	"github.com/nqluong/appointment-project-sub001/internal/pkg/dto/requests"
	"github.com/nqluong/appointment-project-sub001/internal/pkg/dto/responses"
)

// PaymentUsecase is the single component allowed to mutate Payment,
// Appointment and Slot together. The HTTP layer and both background workers
// all funnel through these entry points.
type PaymentUsecase interface {
	CreatePayment(ctx context.Context, request *requests.CreatePaymentRequest) (*responses.CreatePaymentResponse, error)
	ProcessCallback(ctx context.Context, callback *requests.GatewayCallback) (*responses.CallbackAckResponse, error)
	CancelPayment(ctx context.Context, paymentID string, request *requests.CancelPaymentRequest) (*responses.CancelPaymentResponse, error)
	GetPayment(ctx context.Context, paymentID string) (*responses.PaymentResponse, error)
	ListPaymentsByAppointment(ctx context.Context, appointmentID string) ([]responses.PaymentResponse, error)

	// ExpireAppointment drives one expired pending appointment to a terminal
	// state: payments cancelled, slot released, appointment cancelled.
	ExpireAppointment(ctx context.Context, appointmentID string) *models.ExpirationResult

	// ResolveStuckPayment re-queries the gateway for a payment stuck in
	// processing and applies the authoritative result through the same
	// idempotent transition path the callback uses.
	ResolveStuckPayment(ctx context.Context, paymentID string) error
}
