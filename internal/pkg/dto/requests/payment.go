package requests

import (
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

type CreatePaymentRequest struct {
	AppointmentID string `json:"appointment_id" validate:"required,uuid"`
	PaymentType   string `json:"payment_type" validate:"required,oneof=deposit full"`
	PaymentMethod string `json:"payment_method" validate:"required"`
	Notes         string `json:"notes" validate:"max=500"`

	// Filled by the controller from the inbound connection, never by the client.
	CustomerIP string `json:"-"`
}

func (r *CreatePaymentRequest) Validate() error {
	return validate.Struct(r)
}

type CancelPaymentRequest struct {
	RefundType   string `json:"refund_type" validate:"omitempty,oneof=full policy custom"`
	CustomAmount string `json:"custom_amount" validate:"omitempty,numeric"`
	Reason       string `json:"reason" validate:"max=500"`
}

func (r *CancelPaymentRequest) Validate() error {
	return validate.Struct(r)
}

// GatewayCallback carries the raw query parameters delivered by the gateway
// on the IPN and return paths. Verification happens against this flat map,
// so nothing is dropped or renamed before the signature check.
type GatewayCallback struct {
	Params map[string]string
}
