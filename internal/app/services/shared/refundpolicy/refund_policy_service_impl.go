package refundpolicy

import (
	"sync"
	"time"

	"github.com/nqluong/appointment-project-sub001/internal/app/config"
	"github.com/nqluong/appointment-project-sub001/internal/app/contracts"
	"github.com/nqluong/appointment-project-sub001/internal/app/models"
	"github.com/shopspring/decimal"
)

var (
	refundPolicyServiceInstance contracts.RefundPolicyService
	onceRefundPolicyService     sync.Once
)

var oneHundred = decimal.NewFromInt(100)

type refundPolicyService struct {
	tiers []config.RefundTier
}

// NewRefundPolicyService expects tiers already sorted by MinHoursBefore
// descending, which is how the config loader hands them over.
func NewRefundPolicyService(policy *config.RefundPolicy) contracts.RefundPolicyService {
	onceRefundPolicyService.Do(func() {
		refundPolicyServiceInstance = &refundPolicyService{tiers: policy.Tiers}
	})
	return refundPolicyServiceInstance
}

func (s *refundPolicyService) CalculateRefundPercentage(appointmentTime, cancelledAt time.Time) int {
	if !cancelledAt.Before(appointmentTime) {
		return 0
	}
	hoursBefore := appointmentTime.Sub(cancelledAt).Hours()
	for _, tier := range s.tiers {
		if hoursBefore >= float64(tier.MinHoursBefore) {
			return tier.Percent
		}
	}
	return 0
}

// CalculateRefundAmount converts percent of the original amount to money and
// clamps it to what is still refundable, so the accumulator can never exceed
// the payment amount.
func (s *refundPolicyService) CalculateRefundAmount(payment *models.Payment, percent int) decimal.Decimal {
	if percent <= 0 {
		return decimal.Zero
	}
	if percent > 100 {
		percent = 100
	}
	amount := payment.Amount.Mul(decimal.NewFromInt(int64(percent))).Div(oneHundred)
	remainder := payment.RefundableRemainder()
	if amount.GreaterThan(remainder) {
		return remainder
	}
	return amount
}
