package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "pending"
	PaymentStatusProcessing PaymentStatus = "processing"
	PaymentStatusCompleted  PaymentStatus = "completed"
	PaymentStatusFailed     PaymentStatus = "failed"
	PaymentStatusCancelled  PaymentStatus = "cancelled"
	PaymentStatusRefunded   PaymentStatus = "refunded"
)

// legalTransitions is the full edge set of the payment state machine.
// Everything not listed here is rejected without touching the record.
var legalTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusPending:    {PaymentStatusProcessing, PaymentStatusCompleted, PaymentStatusFailed, PaymentStatusCancelled},
	PaymentStatusProcessing: {PaymentStatusCompleted, PaymentStatusFailed, PaymentStatusCancelled},
	PaymentStatusCompleted:  {PaymentStatusRefunded},
}

func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	for _, allowed := range legalTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s PaymentStatus) IsTerminal() bool {
	switch s {
	case PaymentStatusCompleted, PaymentStatusFailed, PaymentStatusCancelled, PaymentStatusRefunded:
		return true
	}
	return false
}

type PaymentType string

const (
	PaymentTypeDeposit PaymentType = "deposit"
	PaymentTypeFull    PaymentType = "full"
)

type PaymentMethod string

const (
	PaymentMethodVNPayQR     PaymentMethod = "vnpay_qr"
	PaymentMethodVNPayATM    PaymentMethod = "vnpay_atm"
	PaymentMethodVNPayIntl   PaymentMethod = "vnpay_intl_card"
	PaymentMethodBankAccount PaymentMethod = "bank_account"
)

type RefundType string

const (
	RefundTypeFull        RefundType = "full"
	RefundTypePolicyBased RefundType = "policy"
	RefundTypeCustom      RefundType = "custom"
)

// Payment is one attempt to collect money for an appointment. Terminal
// records are never deleted; they stay for audit.
type Payment struct {
	ID                   string
	AppointmentID        string
	Amount               decimal.Decimal
	Currency             string
	PaymentType          PaymentType
	PaymentMethod        PaymentMethod
	Status               PaymentStatus
	TransactionRef       string
	GatewayTransactionID string
	RefundedAmount       decimal.Decimal
	RefundTransactionID  string
	RefundReason         string
	Notes                string
	CreatedAt            time.Time
	UpdatedAt            time.Time
	PaymentDate          *time.Time
	RefundDate           *time.Time
}

// RefundableRemainder is the amount still eligible for refund. It never goes
// negative even if the stored data is inconsistent.
func (p *Payment) RefundableRemainder() decimal.Decimal {
	remainder := p.Amount.Sub(p.RefundedAmount)
	if remainder.IsNegative() {
		return decimal.Zero
	}
	return remainder
}
