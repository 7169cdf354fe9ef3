package contracts

import (
	"time"

	"github.com/nqluong/appointment-project-sub001/internal/app/models"
	"github.com/shopspring/decimal"
)

// RefundPolicyService maps cancellation lead time to a refund percentage and
// turns the percentage into a clamped amount. Pure functions, no side
// effects.
type RefundPolicyService interface {
	CalculateRefundPercentage(appointmentTime, cancelledAt time.Time) int
	CalculateRefundAmount(payment *models.Payment, percent int) decimal.Decimal
}
