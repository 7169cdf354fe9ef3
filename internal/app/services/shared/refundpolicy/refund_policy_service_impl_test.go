package refundpolicy

import (
	"testing"
	"time"

	"github.com/nqluong/appointment-project-sub001/internal/app/config"
	"github.com/nqluong/appointment-project-sub001/internal/app/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func newTestPolicyService(tiers []config.RefundTier) *refundPolicyService {
	return &refundPolicyService{tiers: tiers}
}

func defaultTiers() []config.RefundTier {
	return []config.RefundTier{
		{MinHoursBefore: 48, Percent: 100},
		{MinHoursBefore: 24, Percent: 50},
		{MinHoursBefore: 0, Percent: 0},
	}
}

func TestCalculateRefundPercentage(t *testing.T) {
	appointmentTime := time.Date(2024, 3, 20, 9, 0, 0, 0, time.UTC)

	testCases := []struct {
		name            string
		cancelledBefore time.Duration
		expected        int
	}{
		{name: "three days before gets full refund", cancelledBefore: 72 * time.Hour, expected: 100},
		{name: "exactly at the 48 hour boundary gets full refund", cancelledBefore: 48 * time.Hour, expected: 100},
		{name: "two days before a 24 hour threshold gets half", cancelledBefore: 47 * time.Hour, expected: 50},
		{name: "exactly at the 24 hour boundary gets half", cancelledBefore: 24 * time.Hour, expected: 50},
		{name: "one hour before gets nothing", cancelledBefore: time.Hour, expected: 0},
	}

	service := newTestPolicyService(defaultTiers())
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cancelledAt := appointmentTime.Add(-tc.cancelledBefore)
			assert.Equal(t, tc.expected, service.CalculateRefundPercentage(appointmentTime, cancelledAt))
		})
	}

	t.Run("cancellation after the appointment gets nothing", func(t *testing.T) {
		cancelledAt := appointmentTime.Add(time.Minute)
		assert.Equal(t, 0, service.CalculateRefundPercentage(appointmentTime, cancelledAt))
	})

	t.Run("single tier policy applies uniformly", func(t *testing.T) {
		flat := newTestPolicyService([]config.RefundTier{{MinHoursBefore: 0, Percent: 80}})
		cancelledAt := appointmentTime.Add(-time.Minute)
		assert.Equal(t, 80, flat.CalculateRefundPercentage(appointmentTime, cancelledAt))
	})
}

func TestCalculateRefundAmount(t *testing.T) {
	service := newTestPolicyService(defaultTiers())

	payment := func(amount, refunded int64) *models.Payment {
		return &models.Payment{
			Amount:         decimal.NewFromInt(amount),
			RefundedAmount: decimal.NewFromInt(refunded),
		}
	}

	t.Run("half of one million is half a million", func(t *testing.T) {
		result := service.CalculateRefundAmount(payment(1000000, 0), 50)
		assert.True(t, decimal.NewFromInt(500000).Equal(result))
	})

	t.Run("full percentage refunds the whole amount", func(t *testing.T) {
		result := service.CalculateRefundAmount(payment(1000000, 0), 100)
		assert.True(t, decimal.NewFromInt(1000000).Equal(result))
	})

	t.Run("clamps to the refundable remainder", func(t *testing.T) {
		result := service.CalculateRefundAmount(payment(1000000, 700000), 50)
		assert.True(t, decimal.NewFromInt(300000).Equal(result))
	})

	t.Run("fully refunded payment yields zero", func(t *testing.T) {
		result := service.CalculateRefundAmount(payment(1000000, 1000000), 100)
		assert.True(t, result.IsZero())
	})

	t.Run("zero percent yields zero", func(t *testing.T) {
		result := service.CalculateRefundAmount(payment(1000000, 0), 0)
		assert.True(t, result.IsZero())
	})

	t.Run("percent above one hundred is capped", func(t *testing.T) {
		result := service.CalculateRefundAmount(payment(1000000, 0), 150)
		assert.True(t, decimal.NewFromInt(1000000).Equal(result))
	})

	t.Run("never pushes refunded amount above amount for any percent", func(t *testing.T) {
		for percent := 0; percent <= 100; percent += 5 {
			p := payment(999999, 123456)
			result := service.CalculateRefundAmount(p, percent)
			total := p.RefundedAmount.Add(result)
			assert.True(t, total.LessThanOrEqual(p.Amount), "percent %d pushed total to %s", percent, total)
		}
	})
}
