package responses

import "time"

type CreatePaymentResponse struct {
	PaymentID      string `json:"payment_id"`
	TransactionRef string `json:"transaction_ref"`
	RedirectURL    string `json:"redirect_url"`
	Amount         string `json:"amount"`
	Currency       string `json:"currency"`
	Status         string `json:"status"`
}

type PaymentResponse struct {
	PaymentID            string     `json:"payment_id"`
	AppointmentID        string     `json:"appointment_id"`
	Amount               string     `json:"amount"`
	Currency             string     `json:"currency"`
	PaymentType          string     `json:"payment_type"`
	PaymentMethod        string     `json:"payment_method"`
	Status               string     `json:"status"`
	TransactionRef       string     `json:"transaction_ref"`
	GatewayTransactionID string     `json:"gateway_transaction_id,omitempty"`
	RefundedAmount       string     `json:"refunded_amount"`
	RefundTransactionID  string     `json:"refund_transaction_id,omitempty"`
	RefundReason         string     `json:"refund_reason,omitempty"`
	Notes                string     `json:"notes,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
	PaymentDate          *time.Time `json:"payment_date,omitempty"`
	RefundDate           *time.Time `json:"refund_date,omitempty"`
}

type CancelPaymentResponse struct {
	PaymentID      string `json:"payment_id"`
	Status         string `json:"status"`
	RefundedAmount string `json:"refunded_amount"`
	RefundPercent  int    `json:"refund_percent"`
}

type CallbackAckResponse struct {
	TransactionRef string `json:"transaction_ref"`
	Status         string `json:"status"`
}
