package constvars

type ContextKey string

const (
	ResourcePayments     = "payments"
	ResourceAppointments = "appointments"
	ResourceSlots        = "slots"
)

const (
	AppPaginationUrlFormat = "%s?page=%d&page_size=%d"
)

const (
	CONTEXT_REQUEST_ID_KEY           ContextKey = "request_id"
	CONTEXT_IS_CLIENT_REQUEST_ID_KEY ContextKey = "is_client_request_id"
	CONTEXT_RAW_BODY                 ContextKey = "raw_body"
)

const (
	REQUEST_ID_PREFIX = "APPT_PAY_SVC_"
)
