package constvars

const (
	LoggingRequestIDKey   = "request_id"
	LoggingDataKey        = "data"
	LoggingQueryParamsKey = "query_params"
	LoggingResponseKey    = "response"
	LoggingRequestKey     = "request"

	LoggingEndpointKey   = "endpoint"
	LoggingMethodKey     = "method"
	LoggingRemoteAddrKey = "remote_addr"
	LoggingUserAgentKey  = "user_agent"
	LoggingQueryKey      = "query"
	LoggingStatusCodeKey = "status_code"
	LoggingSuccessKey    = "success"
	LoggingDurationKey   = "duration"
	LoggingErrorTypeKey  = "error_type"

	LoggingPaymentIDKey          = "payment_id"
	LoggingAppointmentIDKey      = "appointment_id"
	LoggingSlotIDKey             = "slot_id"
	LoggingTransactionRefKey     = "transaction_ref"
	LoggingGatewayTransactionKey = "gateway_transaction_id"
	LoggingPaymentStatusKey      = "payment_status"
	LoggingPaymentMethodKey      = "payment_method"
	LoggingResponseCodeKey       = "response_code"
	LoggingRefundAmountKey       = "refund_amount"

	LoggingRedisKey              = "redis_key"
	LoggingLockValueKey          = "lock_value"
	LoggingLockExpirationTimeKey = "lock_expiration_time"
)
