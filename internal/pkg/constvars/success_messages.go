package constvars

const (
	// Generic messages
	ResponseUnknown = "unknown"
	ResponseSuccess = "success"
	ResponseError   = "error"

	// Payment-related messages
	CreatePaymentSuccessMessage   = "payment created successfully"
	GetPaymentSuccessMessage      = "get payment successfully"
	ListPaymentsSuccessMessage    = "get payments successfully"
	CancelPaymentSuccessMessage   = "payment cancelled successfully"
	PaymentCallbackAckMessage     = "payment callback received"
	PaymentReturnProcessedMessage = "payment result processed"
)
