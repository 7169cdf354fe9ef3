package contracts

import (
	"context"
	"time"

	"github.com/nqluong/appointment-project-sub001/internal/app/models"
	"github.com/shopspring/decimal"
)

type BuildRedirectURLInput struct {
	Payment    *models.Payment
	OrderInfo  string
	CustomerIP string
	ReturnUrl  string
	Now        time.Time
}

// CallbackResult is the verified content of one gateway callback. Valid is
// false on any signature mismatch, in which case nothing else is trusted.
type CallbackResult struct {
	Valid                bool
	TransactionRef       string
	GatewayTransactionID string
	Amount               decimal.Decimal
	ResponseCode         string
	Succeeded            bool
	PayDate              *time.Time
}

type RefundInput struct {
	Payment         *models.Payment
	Amount          decimal.Decimal
	Reason          string
	RequestedBy     string
	TransactionDate time.Time
	Now             time.Time
}

type RefundResult struct {
	RefundTransactionID string
	ResponseCode        string
	Succeeded           bool
}

type QueryInput struct {
	TransactionRef  string
	TransactionDate time.Time
	Now             time.Time
}

// QueryResult is the authoritative gateway answer for a stuck payment.
type QueryResult struct {
	TransactionRef       string
	GatewayTransactionID string
	Amount               decimal.Decimal
	ResponseCode         string
	Succeeded            bool
	Pending              bool
	PayDate              *time.Time
}

// PaymentGatewayService encodes and decodes the wire protocol of one payment
// gateway. Implementations are stateless; everything flows through the
// signed canonical-string scheme.
type PaymentGatewayService interface {
	Supports(method models.PaymentMethod) bool
	BuildRedirectURL(ctx context.Context, input *BuildRedirectURLInput) (string, error)
	VerifyCallback(params map[string]string) (*CallbackResult, error)
	Refund(ctx context.Context, input *RefundInput) (*RefundResult, error)
	QueryTransaction(ctx context.Context, input *QueryInput) (*QueryResult, error)
}

// GatewayRouter selects the adapter for a requested payment method from a
// fixed, closed set. Selection is a pure lookup, no discovery.
type GatewayRouter interface {
	ForMethod(method models.PaymentMethod) (PaymentGatewayService, error)
}
