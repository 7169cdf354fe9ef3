package controllers

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/nqluong/appointment-project-sub001/internal/app/contracts"
	"github.com/nqluong/appointment-project-sub001/internal/app/services/core/payments"
	"github.com/nqluong/appointment-project-sub001/internal/pkg/constvars"
	"github.com/nqluong/appointment-project-sub001/internal/pkg/dto/requests"
	"github.com/nqluong/appointment-project-sub001/internal/pkg/exceptions"
	"github.com/nqluong/appointment-project-sub001/internal/pkg/utils"
	"go.uber.org/zap"
)

type PaymentController struct {
	Log            *zap.Logger
	PaymentUsecase contracts.PaymentUsecase
}

var (
	paymentControllerInstance *PaymentController
	oncePaymentController     sync.Once
)

func NewPaymentController(logger *zap.Logger, paymentUsecase contracts.PaymentUsecase) *PaymentController {
	oncePaymentController.Do(func() {
		instance := &PaymentController{
			Log:            logger,
			PaymentUsecase: paymentUsecase,
		}
		paymentControllerInstance = instance
	})
	return paymentControllerInstance
}

func (ctrl *PaymentController) CreatePayment(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	requestID, ok := r.Context().Value(constvars.CONTEXT_REQUEST_ID_KEY).(string)
	if !ok || requestID == "" {
		ctrl.Log.Error("Request ID missing from context",
			zap.String(constvars.LoggingEndpointKey, r.URL.Path),
			zap.String(constvars.LoggingMethodKey, r.Method),
		)
		utils.BuildErrorResponse(ctrl.Log, w, exceptions.ErrMissingRequestID(nil))
		return
	}

	request := new(requests.CreatePaymentRequest)
	if err := json.NewDecoder(r.Body).Decode(request); err != nil {
		ctrl.Log.Error("Failed to parse create payment request",
			zap.String(constvars.LoggingRequestIDKey, requestID),
			zap.String(constvars.LoggingErrorTypeKey, "JSON parsing"),
			zap.Error(err),
		)
		utils.BuildErrorResponse(ctrl.Log, w, exceptions.ErrCannotParseJSON(err))
		return
	}
	request.CustomerIP = clientIP(r)

	if err := request.Validate(); err != nil {
		ctrl.Log.Error("Create payment request validation failed",
			zap.String(constvars.LoggingRequestIDKey, requestID),
			zap.Error(err),
		)
		utils.BuildErrorResponse(ctrl.Log, w, exceptions.ErrInputValidation(err))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	response, err := ctrl.PaymentUsecase.CreatePayment(ctx, request)
	if err != nil {
		ctrl.Log.Error("Failed to create payment",
			zap.String(constvars.LoggingRequestIDKey, requestID),
			zap.String(constvars.LoggingAppointmentIDKey, request.AppointmentID),
			zap.Duration(constvars.LoggingDurationKey, time.Since(start)),
			zap.Error(err),
		)
		if errors.Is(err, context.DeadlineExceeded) {
			utils.BuildErrorResponse(ctrl.Log, w, exceptions.ErrServerDeadlineExceeded(err))
			return
		}
		utils.BuildErrorResponse(ctrl.Log, w, err)
		return
	}

	ctrl.Log.Info("Payment created",
		zap.String(constvars.LoggingRequestIDKey, requestID),
		zap.String(constvars.LoggingPaymentIDKey, response.PaymentID),
		zap.String(constvars.LoggingTransactionRefKey, response.TransactionRef),
		zap.Duration(constvars.LoggingDurationKey, time.Since(start)),
	)
	utils.BuildSuccessResponse(w, constvars.StatusCreated, constvars.CreatePaymentSuccessMessage, response)
}

func (ctrl *PaymentController) CancelPayment(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	requestID, ok := r.Context().Value(constvars.CONTEXT_REQUEST_ID_KEY).(string)
	if !ok || requestID == "" {
		utils.BuildErrorResponse(ctrl.Log, w, exceptions.ErrMissingRequestID(nil))
		return
	}

	paymentID := chi.URLParam(r, "paymentID")
	if paymentID == "" {
		utils.BuildErrorResponse(ctrl.Log, w, exceptions.ErrURLParamIDValidation(nil, "paymentID"))
		return
	}

	request := new(requests.CancelPaymentRequest)
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(request); err != nil {
			utils.BuildErrorResponse(ctrl.Log, w, exceptions.ErrCannotParseJSON(err))
			return
		}
	}
	if err := request.Validate(); err != nil {
		utils.BuildErrorResponse(ctrl.Log, w, exceptions.ErrInputValidation(err))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	response, err := ctrl.PaymentUsecase.CancelPayment(ctx, paymentID, request)
	if err != nil {
		ctrl.Log.Error("Failed to cancel payment",
			zap.String(constvars.LoggingRequestIDKey, requestID),
			zap.String(constvars.LoggingPaymentIDKey, paymentID),
			zap.Duration(constvars.LoggingDurationKey, time.Since(start)),
			zap.Error(err),
		)
		if errors.Is(err, context.DeadlineExceeded) {
			utils.BuildErrorResponse(ctrl.Log, w, exceptions.ErrServerDeadlineExceeded(err))
			return
		}
		utils.BuildErrorResponse(ctrl.Log, w, err)
		return
	}

	ctrl.Log.Info("Payment cancelled",
		zap.String(constvars.LoggingRequestIDKey, requestID),
		zap.String(constvars.LoggingPaymentIDKey, paymentID),
		zap.String(constvars.LoggingPaymentStatusKey, response.Status),
		zap.Duration(constvars.LoggingDurationKey, time.Since(start)),
	)
	utils.BuildSuccessResponse(w, constvars.StatusOK, constvars.CancelPaymentSuccessMessage, response)
}

func (ctrl *PaymentController) GetPayment(w http.ResponseWriter, r *http.Request) {
	requestID, ok := r.Context().Value(constvars.CONTEXT_REQUEST_ID_KEY).(string)
	if !ok || requestID == "" {
		utils.BuildErrorResponse(ctrl.Log, w, exceptions.ErrMissingRequestID(nil))
		return
	}

	paymentID := chi.URLParam(r, "paymentID")
	if paymentID == "" {
		utils.BuildErrorResponse(ctrl.Log, w, exceptions.ErrURLParamIDValidation(nil, "paymentID"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	response, err := ctrl.PaymentUsecase.GetPayment(ctx, paymentID)
	if err != nil {
		utils.BuildErrorResponse(ctrl.Log, w, err)
		return
	}
	utils.BuildSuccessResponse(w, constvars.StatusOK, constvars.GetPaymentSuccessMessage, response)
}

func (ctrl *PaymentController) ListPaymentsByAppointment(w http.ResponseWriter, r *http.Request) {
	requestID, ok := r.Context().Value(constvars.CONTEXT_REQUEST_ID_KEY).(string)
	if !ok || requestID == "" {
		utils.BuildErrorResponse(ctrl.Log, w, exceptions.ErrMissingRequestID(nil))
		return
	}

	appointmentID := chi.URLParam(r, "appointmentID")
	if appointmentID == "" {
		utils.BuildErrorResponse(ctrl.Log, w, exceptions.ErrURLParamIDValidation(nil, "appointmentID"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	response, err := ctrl.PaymentUsecase.ListPaymentsByAppointment(ctx, appointmentID)
	if err != nil {
		utils.BuildErrorResponse(ctrl.Log, w, err)
		return
	}
	utils.BuildSuccessResponse(w, constvars.StatusOK, constvars.ListPaymentsSuccessMessage, response)
}

// ipnAck is the body the gateway expects on its notification path. Any code
// other than "00" makes the gateway schedule a retry.
type ipnAck struct {
	RspCode string `json:"RspCode"`
	Message string `json:"Message"`
}

// IPNCallback is the server-to-server notification path. The gateway is
// always answered with its own ack format, never with the API envelope.
func (ctrl *PaymentController) IPNCallback(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	requestID, _ := r.Context().Value(constvars.CONTEXT_REQUEST_ID_KEY).(string)

	callback := callbackFromQuery(r)
	ctrl.Log.Info("Gateway IPN received",
		zap.String(constvars.LoggingRequestIDKey, requestID),
		zap.String(constvars.LoggingTransactionRefKey, callback.Params[constvars.VNPTxnRef]),
		zap.String(constvars.LoggingRemoteAddrKey, r.RemoteAddr),
	)

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	ack, err := ctrl.PaymentUsecase.ProcessCallback(ctx, callback)
	if err != nil {
		ctrl.Log.Error("Gateway IPN processing failed",
			zap.String(constvars.LoggingRequestIDKey, requestID),
			zap.String(constvars.LoggingTransactionRefKey, callback.Params[constvars.VNPTxnRef]),
			zap.Duration(constvars.LoggingDurationKey, time.Since(start)),
			zap.Error(err),
		)
		writeIPNAck(w, ipnAckForError(err))
		return
	}

	ctrl.Log.Info("Gateway IPN processed",
		zap.String(constvars.LoggingRequestIDKey, requestID),
		zap.String(constvars.LoggingTransactionRefKey, ack.TransactionRef),
		zap.String(constvars.LoggingPaymentStatusKey, ack.Status),
		zap.Duration(constvars.LoggingDurationKey, time.Since(start)),
	)
	if ack.Status == payments.CallbackStatusAlreadyProcessed {
		writeIPNAck(w, ipnAck{RspCode: constvars.VNPIPNCodeAlreadyConfirmed, Message: constvars.VNPIPNMessageAlreadyConfirmed})
		return
	}
	writeIPNAck(w, ipnAck{RspCode: constvars.VNPIPNCodeSuccess, Message: constvars.VNPIPNMessageConfirmSuccess})
}

// ReturnCallback handles the browser redirect back from the gateway. It
// funnels through the same verification and transition path as the IPN, so
// whichever arrives first settles the payment and the other is a no-op.
func (ctrl *PaymentController) ReturnCallback(w http.ResponseWriter, r *http.Request) {
	requestID, _ := r.Context().Value(constvars.CONTEXT_REQUEST_ID_KEY).(string)

	callback := callbackFromQuery(r)
	ctrl.Log.Info("Gateway return redirect received",
		zap.String(constvars.LoggingRequestIDKey, requestID),
		zap.String(constvars.LoggingTransactionRefKey, callback.Params[constvars.VNPTxnRef]),
	)

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	ack, err := ctrl.PaymentUsecase.ProcessCallback(ctx, callback)
	if err != nil {
		utils.BuildErrorResponse(ctrl.Log, w, err)
		return
	}
	utils.BuildSuccessResponse(w, constvars.StatusOK, constvars.PaymentReturnProcessedMessage, ack)
}

func callbackFromQuery(r *http.Request) *requests.GatewayCallback {
	params := make(map[string]string)
	for key, values := range r.URL.Query() {
		if len(values) > 0 {
			params[key] = values[0]
		}
	}
	return &requests.GatewayCallback{Params: params}
}

func ipnAckForError(err error) ipnAck {
	var customErr *exceptions.CustomError
	if !errors.As(err, &customErr) {
		return ipnAck{RspCode: constvars.VNPIPNCodeUnknownError, Message: constvars.VNPIPNMessageUnknownError}
	}
	switch {
	case strings.HasPrefix(customErr.DevMessage, constvars.ErrDevSignatureInvalid),
		strings.HasPrefix(customErr.DevMessage, constvars.ErrDevSecureHashMissing):
		return ipnAck{RspCode: constvars.VNPIPNCodeInvalidSignature, Message: constvars.VNPIPNMessageInvalidSignature}
	case strings.HasPrefix(customErr.DevMessage, constvars.ErrDevCallbackUnknownTransaction):
		return ipnAck{RspCode: constvars.VNPIPNCodeOrderNotFound, Message: constvars.VNPIPNMessageOrderNotFound}
	case strings.HasPrefix(customErr.DevMessage, constvars.ErrDevCallbackAmountMismatch):
		return ipnAck{RspCode: constvars.VNPIPNCodeInvalidAmount, Message: constvars.VNPIPNMessageInvalidAmount}
	default:
		return ipnAck{RspCode: constvars.VNPIPNCodeUnknownError, Message: constvars.VNPIPNMessageUnknownError}
	}
}

func writeIPNAck(w http.ResponseWriter, ack ipnAck) {
	w.Header().Set(constvars.HeaderContentType, constvars.MIMEApplicationJSON)
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(ack)
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
