package constvars

// Validation messages mapper
var CustomValidationErrorMessages = map[string]string{
	"required": "is required",
	"min":      "must be at least %s characters long",
	"max":      "maximum at %s characters long",
	"numeric":  "must be a number",
	"oneof":    "must be one of [%s]",
	"gt":       "must be greater than %s",
	"gte":      "must be greater than or equal to %s",
	"uuid":     "must be a valid UUID",
	"url":      "must be a valid URL",
}

// Tags that require parameter substitution
var TagsWithParams = map[string]bool{
	"min":   true,
	"max":   true,
	"oneof": true,
	"gt":    true,
	"gte":   true,
}

// Error messages for clients
const (
	ErrClientCannotProcessRequest          = "failed to process your request"
	ErrClientSomethingWrongWithApplication = "there is something wrong with the application"
	ErrClientServerLongRespond             = "the app taking too long to respond"
	ErrClientNotAuthorized                 = "you can't access this feature"

	ErrClientPaymentNotFound          = "payment not found"
	ErrClientAppointmentNotFound      = "appointment not found"
	ErrClientAppointmentNotPayable    = "this appointment can no longer be paid"
	ErrClientDuplicatePaymentAttempt  = "a payment for this appointment is already in progress or completed"
	ErrClientPaymentNotCancellable    = "this payment can no longer be cancelled"
	ErrClientInvalidCallbackSignature = "payment callback could not be verified"
	ErrClientRefundExceedsRemainder   = "requested refund exceeds the refundable amount"
	ErrClientPaymentMethodUnsupported = "requested payment method is not supported"
	ErrClientGatewayUnavailable       = "payment provider is temporarily unavailable, please retry"
)

// Error messages for developers
const (
	ErrDevInvalidInput      = "invalid input"
	ErrDevCannotParseJSON   = "cannot parse JSON"
	ErrDevCannotMarshalJSON = "cannot marshal JSON"
	ErrDevCannotParseQuery  = "cannot parse query parameters"
	ErrDevCannotParseTime   = "cannot parse time value"
	ErrDevValidationFailed  = "validation failed"
	ErrDevCreateHTTPRequest = "failed to create HTTP request"
	ErrDevSendHTTPRequest   = "failed to send HTTP request"
	ErrDevMissingRequestID  = "request id missing from context"

	// Payment lifecycle
	ErrDevPaymentNotFound            = "payment not found"
	ErrDevAppointmentNotFound        = "appointment not found"
	ErrDevAppointmentNotPayable      = "appointment is not in a payable status"
	ErrDevDuplicatePaymentAttempt    = "another payment for this appointment and type is pending, processing or completed"
	ErrDevPaymentNotCancellable      = "payment is in a terminal state and cannot be cancelled"
	ErrDevInvalidStateTransition     = "illegal payment status transition"
	ErrDevSignatureInvalid           = "callback secure hash verification failed"
	ErrDevSecureHashMissing          = "callback is missing the secure hash field"
	ErrDevRefundExceedsRemainder     = "refund amount exceeds refundable remainder"
	ErrDevRefundNotAllowed           = "payment is not refundable in its current status"
	ErrDevPaymentMethodUnsupported   = "no gateway adapter supports the requested payment method"
	ErrDevGatewayUnavailable         = "payment gateway request failed"
	ErrDevGatewayMalformedResponse   = "payment gateway returned a malformed response"
	ErrDevTransactionRefInvalid      = "transaction ref does not embed a valid creation timestamp"
	ErrDevCallbackUnknownTransaction = "callback references an unknown transaction ref"
	ErrDevCallbackAmountMismatch     = "callback amount does not match the payment amount"

	// Database messages
	ErrDevDBFailedToInsertDocument = "failed to insert document into database"
	ErrDevDBFailedToUpdateDocument = "failed to update document into database"
	ErrDevDBFailedToFindDocument   = "failed when do find document on database"
	ErrDevDBFailedToIterateCursor  = "failed to iterate database cursor"
	ErrDevDBStringNotObjectID      = "given ID is not valid object ID"

	// Redis messages
	ErrDevRedisGetData        = "failed to get data from redis"
	ErrDevRedisSetData        = "failed to set data into redis"
	ErrDevRedisDeleteData     = "failed to delete data from redis"
	ErrDevRedisUnlockNotOwner = "lock not owned by this client"

	// RabbitMQ messages
	ErrDevRabbitMQPublishMessage = "failed to publish message to queue %s"

	// Minio messages
	ErrDevMinioFailedToCreateObject = "failed to create object in bucket %s"

	// JWT messages
	ErrDevAuthGenerateToken = "failed to generate token"

	// Server messages
	ErrDevServerProcess          = "internal server error"
	ErrDevServerDeadlineExceeded = "deadline exceeded"
)

const (
	ErrFileLocationUnknown = "file location unknown"
	ErrFunctionNameUnknown = "function name unknown"
)
