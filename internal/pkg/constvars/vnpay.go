package constvars

// Wire field names of the VNPay redirect/callback/refund protocol.
const (
	VNPVersion           = "vnp_Version"
	VNPCommand           = "vnp_Command"
	VNPTmnCode           = "vnp_TmnCode"
	VNPAmount            = "vnp_Amount"
	VNPCreateDate        = "vnp_CreateDate"
	VNPCurrCode          = "vnp_CurrCode"
	VNPIpAddr            = "vnp_IpAddr"
	VNPLocale            = "vnp_Locale"
	VNPOrderInfo         = "vnp_OrderInfo"
	VNPOrderType         = "vnp_OrderType"
	VNPReturnUrl         = "vnp_ReturnUrl"
	VNPExpireDate        = "vnp_ExpireDate"
	VNPTxnRef            = "vnp_TxnRef"
	VNPBankCode          = "vnp_BankCode"
	VNPResponseCode      = "vnp_ResponseCode"
	VNPTransactionNo     = "vnp_TransactionNo"
	VNPTransactionStatus = "vnp_TransactionStatus"
	VNPTransactionDate   = "vnp_TransactionDate"
	VNPTransactionType   = "vnp_TransactionType"
	VNPCreateBy          = "vnp_CreateBy"
	VNPRequestId         = "vnp_RequestId"
	VNPPayDate           = "vnp_PayDate"
	VNPSecureHash        = "vnp_SecureHash"
	VNPSecureHashType    = "vnp_SecureHashType"
)

const (
	VNPVersionValue   = "2.1.0"
	VNPCommandPay     = "pay"
	VNPCommandRefund  = "refund"
	VNPCommandQueryDR = "querydr"
	VNPCurrCodeVND    = "VND"
	VNPLocaleVN       = "vn"
	VNPOrderTypeOther = "other"

	// VNPay timestamps are merchant-local wall clock in this layout.
	VNPDateLayout = "20060102150405"
)

const (
	VNPBankCodeQR       = "VNPAYQR"
	VNPBankCodeATM      = "VNBANK"
	VNPBankCodeIntlCard = "INTCARD"

	VNPTransactionTypeFullRefund    = "02"
	VNPTransactionTypePartialRefund = "03"
)

// Response codes returned on the callback and query paths.
const (
	VNPResponseCodeSuccess       = "00"
	VNPResponseCodeOrderNotFound = "01"
	VNPResponseCodeInvalidAmount = "04"
	VNPResponseCodeUserCancelled = "24"
	VNPResponseCodePending       = "05"

	VNPTransactionStatusSuccess = "00"
	VNPTransactionStatusPending = "01"
)

// Acknowledgement codes this service returns to the gateway on the IPN path.
// Anything other than "00" makes the gateway retry the notification.
const (
	VNPIPNCodeSuccess          = "00"
	VNPIPNCodeOrderNotFound    = "01"
	VNPIPNCodeAlreadyConfirmed = "02"
	VNPIPNCodeInvalidAmount    = "04"
	VNPIPNCodeInvalidSignature = "97"
	VNPIPNCodeUnknownError     = "99"

	VNPIPNMessageConfirmSuccess   = "Confirm Success"
	VNPIPNMessageOrderNotFound    = "Order not Found"
	VNPIPNMessageAlreadyConfirmed = "Order already confirmed"
	VNPIPNMessageInvalidAmount    = "Invalid Amount"
	VNPIPNMessageInvalidSignature = "Invalid Checksum"
	VNPIPNMessageUnknownError     = "Unknow error"
)
