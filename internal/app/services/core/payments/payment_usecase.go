package payments

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nqluong/appointment-project-sub001/internal/app/config"
	"github.com/nqluong/appointment-project-sub001/internal/app/contracts"
	"github.com/nqluong/appointment-project-sub001/internal/app/models"
	"github.com/nqluong/appointment-project-sub001/internal/pkg/constvars"
	"github.com/nqluong/appointment-project-sub001/internal/pkg/dto/requests"
	"github.com/nqluong/appointment-project-sub001/internal/pkg/dto/responses"
	"github.com/nqluong/appointment-project-sub001/internal/pkg/exceptions"
	"github.com/nqluong/appointment-project-sub001/internal/pkg/utils"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	paymentUsecaseInstance contracts.PaymentUsecase
	oncePaymentUsecase     sync.Once
)

// A deposit collects this share of the consultation fee; a full payment
// collects everything.
var depositPercent = decimal.NewFromInt(30)

var oneHundred = decimal.NewFromInt(100)

const (
	CallbackStatusCompleted        = "completed"
	CallbackStatusFailed           = "failed"
	CallbackStatusAlreadyProcessed = "already_processed"
	CallbackStatusIgnored          = "ignored"
)

type paymentUsecase struct {
	PaymentRepository     contracts.PaymentRepository
	AppointmentRepository contracts.AppointmentRepository
	SlotRepository        contracts.SlotRepository
	GatewayRouter         contracts.GatewayRouter
	RefundPolicy          contracts.RefundPolicyService
	Notifier              contracts.NotificationPublisher
	Archive               contracts.CallbackArchive
	Log                   *zap.Logger
	Location              *time.Location
}

func NewPaymentUsecase(
	paymentRepository contracts.PaymentRepository,
	appointmentRepository contracts.AppointmentRepository,
	slotRepository contracts.SlotRepository,
	gatewayRouter contracts.GatewayRouter,
	refundPolicy contracts.RefundPolicyService,
	notifier contracts.NotificationPublisher,
	archive contracts.CallbackArchive,
	internalConfig *config.InternalConfig,
	logger *zap.Logger,
) contracts.PaymentUsecase {
	oncePaymentUsecase.Do(func() {
		location, err := time.LoadLocation(internalConfig.App.Timezone)
		if err != nil {
			location = time.UTC
		}
		paymentUsecaseInstance = &paymentUsecase{
			PaymentRepository:     paymentRepository,
			AppointmentRepository: appointmentRepository,
			SlotRepository:        slotRepository,
			GatewayRouter:         gatewayRouter,
			RefundPolicy:          refundPolicy,
			Notifier:              notifier,
			Archive:               archive,
			Log:                   logger,
			Location:              location,
		}
	})
	return paymentUsecaseInstance
}

func (uc *paymentUsecase) CreatePayment(ctx context.Context, request *requests.CreatePaymentRequest) (*responses.CreatePaymentResponse, error) {
	requestID, _ := ctx.Value(constvars.CONTEXT_REQUEST_ID_KEY).(string)
	uc.Log.Info("paymentUsecase.CreatePayment called",
		zap.String(constvars.LoggingRequestIDKey, requestID),
		zap.String(constvars.LoggingAppointmentIDKey, request.AppointmentID),
		zap.String(constvars.LoggingPaymentMethodKey, request.PaymentMethod),
	)

	appointment, err := uc.AppointmentRepository.FindByID(ctx, request.AppointmentID)
	if err != nil {
		return nil, err
	}
	if appointment == nil {
		return nil, exceptions.ErrAppointmentNotFound(fmt.Errorf("appointment %s not found", request.AppointmentID))
	}
	if !appointment.IsPayable() {
		return nil, exceptions.ErrAppointmentNotPayable(fmt.Errorf("appointment %s is %s", appointment.ID, appointment.Status))
	}

	paymentType := models.PaymentType(request.PaymentType)
	existing, err := uc.PaymentRepository.FindActiveByAppointmentAndType(ctx, appointment.ID, paymentType)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, exceptions.ErrDuplicatePaymentAttempt(fmt.Errorf("payment %s already open for appointment %s", existing.ID, appointment.ID))
	}

	method := models.PaymentMethod(request.PaymentMethod)
	adapter, err := uc.GatewayRouter.ForMethod(method)
	if err != nil {
		return nil, err
	}

	amount := appointment.ConsultationFee
	if paymentType == models.PaymentTypeDeposit {
		amount = amount.Mul(depositPercent).Div(oneHundred)
	}

	now := time.Now().In(uc.Location)
	payment := &models.Payment{
		ID:             uuid.NewString(),
		AppointmentID:  appointment.ID,
		Amount:         amount,
		Currency:       constvars.VNPCurrCodeVND,
		PaymentType:    paymentType,
		PaymentMethod:  method,
		Status:         models.PaymentStatusPending,
		TransactionRef: utils.GenerateTransactionRef(now),
		RefundedAmount: decimal.Zero,
		Notes:          request.Notes,
		CreatedAt:      now.UTC(),
		UpdatedAt:      now.UTC(),
	}

	if _, err := uc.PaymentRepository.Create(ctx, payment); err != nil {
		return nil, err
	}

	redirectURL, err := adapter.BuildRedirectURL(ctx, &contracts.BuildRedirectURLInput{
		Payment:    payment,
		OrderInfo:  fmt.Sprintf("thanh toan lich hen %s", appointment.ID),
		CustomerIP: request.CustomerIP,
		Now:        now,
	})
	if err != nil {
		return nil, err
	}

	// The customer now holds a live redirect and the gateway may report back
	// at any moment. Moving to processing here is what makes an abandoned
	// checkout visible to the stuck payment resolver.
	processing, err := uc.PaymentRepository.UpdateStatusIf(ctx, payment.ID,
		[]models.PaymentStatus{models.PaymentStatusPending},
		contracts.PaymentUpdate{Status: models.PaymentStatusProcessing})
	if err != nil {
		return nil, err
	}
	if processing != nil {
		payment = processing
	}

	uc.Log.Info("paymentUsecase.CreatePayment payment created",
		zap.String(constvars.LoggingRequestIDKey, requestID),
		zap.String(constvars.LoggingPaymentIDKey, payment.ID),
		zap.String(constvars.LoggingTransactionRefKey, payment.TransactionRef),
	)

	return &responses.CreatePaymentResponse{
		PaymentID:      payment.ID,
		TransactionRef: payment.TransactionRef,
		RedirectURL:    redirectURL,
		Amount:         payment.Amount.String(),
		Currency:       payment.Currency,
		Status:         string(payment.Status),
	}, nil
}

// ProcessCallback applies one verified gateway callback. Replays of a payload
// that already drove the payment to a terminal state are acknowledged without
// a second transition.
func (uc *paymentUsecase) ProcessCallback(ctx context.Context, callback *requests.GatewayCallback) (*responses.CallbackAckResponse, error) {
	requestID, _ := ctx.Value(constvars.CONTEXT_REQUEST_ID_KEY).(string)
	transactionRef := callback.Params[constvars.VNPTxnRef]
	uc.Log.Info("paymentUsecase.ProcessCallback called",
		zap.String(constvars.LoggingRequestIDKey, requestID),
		zap.String(constvars.LoggingTransactionRefKey, transactionRef),
	)

	payment, err := uc.PaymentRepository.FindByTransactionRef(ctx, transactionRef)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, exceptions.ErrCallbackUnknownTransaction(fmt.Errorf("transaction ref %q", transactionRef))
	}

	adapter, err := uc.GatewayRouter.ForMethod(payment.PaymentMethod)
	if err != nil {
		return nil, err
	}

	result, err := adapter.VerifyCallback(callback.Params)
	if err != nil {
		return nil, err
	}
	if !result.Valid {
		uc.Log.Warn("paymentUsecase.ProcessCallback rejected callback with bad signature",
			zap.String(constvars.LoggingRequestIDKey, requestID),
			zap.String(constvars.LoggingTransactionRefKey, transactionRef),
		)
		return nil, exceptions.ErrSignatureInvalid(fmt.Errorf("transaction ref %q", transactionRef))
	}

	// Verified payloads are archived before any state change; archive failure
	// is logged but never blocks the transition.
	if archiveErr := uc.Archive.ArchiveCallback(ctx, transactionRef, callback.Params); archiveErr != nil {
		uc.Log.Error("paymentUsecase.ProcessCallback failed to archive callback",
			zap.String(constvars.LoggingRequestIDKey, requestID),
			zap.String(constvars.LoggingTransactionRefKey, transactionRef),
			zap.Error(archiveErr),
		)
	}

	if payment.Status.IsTerminal() {
		uc.Log.Info("paymentUsecase.ProcessCallback payment already terminal",
			zap.String(constvars.LoggingRequestIDKey, requestID),
			zap.String(constvars.LoggingPaymentIDKey, payment.ID),
			zap.String(constvars.LoggingPaymentStatusKey, string(payment.Status)),
		)
		return &responses.CallbackAckResponse{TransactionRef: transactionRef, Status: CallbackStatusAlreadyProcessed}, nil
	}

	if !result.Succeeded {
		return uc.applyGatewayFailure(ctx, payment, result.ResponseCode, transactionRef)
	}

	if !result.Amount.Equal(payment.Amount) {
		uc.Log.Warn("paymentUsecase.ProcessCallback amount mismatch",
			zap.String(constvars.LoggingRequestIDKey, requestID),
			zap.String(constvars.LoggingTransactionRefKey, transactionRef),
			zap.String(constvars.LoggingRefundAmountKey, result.Amount.String()),
		)
		return nil, exceptions.ErrCallbackAmountMismatch(fmt.Errorf("callback %s vs payment %s", result.Amount, payment.Amount))
	}

	status, err := uc.applyGatewaySuccess(ctx, payment, result.GatewayTransactionID, result.PayDate)
	if err != nil {
		return nil, err
	}
	return &responses.CallbackAckResponse{TransactionRef: transactionRef, Status: status}, nil
}

// applyGatewaySuccess is the single completion path. Both the callback and
// the stuck payment resolver land here. The appointment status change goes
// first: whichever actor wins that compare-and-set decides the terminal
// outcome, so a racing expiration pass can never leave a completed payment
// under a cancelled appointment. A crash between the two writes leaves a
// confirmed appointment over a still-open payment until the gateway
// redelivers the unacked notification or the stuck payment resolver
// re-queries; both paths fall through the already-confirmed branch below
// and finish the payment write.
func (uc *paymentUsecase) applyGatewaySuccess(ctx context.Context, payment *models.Payment, gatewayTransactionID string, payDate *time.Time) (string, error) {
	requestID, _ := ctx.Value(constvars.CONTEXT_REQUEST_ID_KEY).(string)

	confirmed, err := uc.AppointmentRepository.UpdateStatusIf(ctx, payment.AppointmentID,
		[]models.AppointmentStatus{models.AppointmentStatusPending},
		models.AppointmentStatusConfirmed, "")
	if err != nil {
		return "", err
	}
	if confirmed == nil {
		appointment, findErr := uc.AppointmentRepository.FindByID(ctx, payment.AppointmentID)
		if findErr != nil {
			return "", findErr
		}
		if appointment == nil || appointment.Status != models.AppointmentStatusConfirmed {
			// Expiration won; the payment is (or is about to be) cancelled.
			uc.Log.Info("paymentUsecase completion lost the appointment race",
				zap.String(constvars.LoggingRequestIDKey, requestID),
				zap.String(constvars.LoggingPaymentIDKey, payment.ID),
				zap.String(constvars.LoggingAppointmentIDKey, payment.AppointmentID),
			)
			return CallbackStatusIgnored, nil
		}
		// Already confirmed: a replay, or recovery after a crash between the
		// appointment and payment writes. Fall through and finish the payment.
	}

	paidAt := time.Now().UTC()
	if payDate != nil {
		paidAt = payDate.UTC()
	}
	updated, err := uc.PaymentRepository.UpdateStatusIf(ctx, payment.ID,
		[]models.PaymentStatus{models.PaymentStatusPending, models.PaymentStatusProcessing},
		contracts.PaymentUpdate{
			Status:               models.PaymentStatusCompleted,
			GatewayTransactionID: &gatewayTransactionID,
			PaymentDate:          &paidAt,
		})
	if err != nil {
		return "", err
	}
	if updated == nil {
		uc.Log.Info("paymentUsecase payment already finished by another actor",
			zap.String(constvars.LoggingRequestIDKey, requestID),
			zap.String(constvars.LoggingPaymentIDKey, payment.ID),
		)
		return CallbackStatusAlreadyProcessed, nil
	}

	if notifyErr := uc.Notifier.PublishPaymentCompleted(ctx, updated); notifyErr != nil {
		uc.Log.Error("paymentUsecase failed to publish completion event",
			zap.String(constvars.LoggingRequestIDKey, requestID),
			zap.String(constvars.LoggingPaymentIDKey, payment.ID),
			zap.Error(notifyErr),
		)
	}

	uc.Log.Info("paymentUsecase payment completed",
		zap.String(constvars.LoggingRequestIDKey, requestID),
		zap.String(constvars.LoggingPaymentIDKey, payment.ID),
		zap.String(constvars.LoggingGatewayTransactionKey, gatewayTransactionID),
	)
	return CallbackStatusCompleted, nil
}

func (uc *paymentUsecase) applyGatewayFailure(ctx context.Context, payment *models.Payment, responseCode, transactionRef string) (*responses.CallbackAckResponse, error) {
	requestID, _ := ctx.Value(constvars.CONTEXT_REQUEST_ID_KEY).(string)

	notes := fmt.Sprintf("gateway reported failure, response code %s", responseCode)
	updated, err := uc.PaymentRepository.UpdateStatusIf(ctx, payment.ID,
		[]models.PaymentStatus{models.PaymentStatusPending, models.PaymentStatusProcessing},
		contracts.PaymentUpdate{
			Status: models.PaymentStatusFailed,
			Notes:  &notes,
		})
	if err != nil {
		return nil, err
	}
	status := CallbackStatusFailed
	if updated == nil {
		status = CallbackStatusAlreadyProcessed
	}

	uc.Log.Info("paymentUsecase payment failed",
		zap.String(constvars.LoggingRequestIDKey, requestID),
		zap.String(constvars.LoggingPaymentIDKey, payment.ID),
		zap.String(constvars.LoggingResponseCodeKey, responseCode),
	)
	return &responses.CallbackAckResponse{TransactionRef: transactionRef, Status: status}, nil
}

func (uc *paymentUsecase) CancelPayment(ctx context.Context, paymentID string, request *requests.CancelPaymentRequest) (*responses.CancelPaymentResponse, error) {
	requestID, _ := ctx.Value(constvars.CONTEXT_REQUEST_ID_KEY).(string)
	uc.Log.Info("paymentUsecase.CancelPayment called",
		zap.String(constvars.LoggingRequestIDKey, requestID),
		zap.String(constvars.LoggingPaymentIDKey, paymentID),
	)

	payment, err := uc.PaymentRepository.FindByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, exceptions.ErrPaymentNotFound(fmt.Errorf("payment %s not found", paymentID))
	}

	switch payment.Status {
	case models.PaymentStatusPending, models.PaymentStatusProcessing:
		return uc.cancelOpenPayment(ctx, payment, request.Reason)
	case models.PaymentStatusCompleted:
		return uc.refundCompletedPayment(ctx, payment, request)
	default:
		return nil, exceptions.ErrPaymentNotCancellable(fmt.Errorf("payment %s is %s", payment.ID, payment.Status))
	}
}

func (uc *paymentUsecase) cancelOpenPayment(ctx context.Context, payment *models.Payment, reason string) (*responses.CancelPaymentResponse, error) {
	notes := reason
	update := contracts.PaymentUpdate{Status: models.PaymentStatusCancelled}
	if notes != "" {
		update.Notes = &notes
	}
	updated, err := uc.PaymentRepository.UpdateStatusIf(ctx, payment.ID,
		[]models.PaymentStatus{models.PaymentStatusPending, models.PaymentStatusProcessing}, update)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, exceptions.ErrPaymentNotCancellable(fmt.Errorf("payment %s changed state concurrently", payment.ID))
	}
	return &responses.CancelPaymentResponse{
		PaymentID:      updated.ID,
		Status:         string(updated.Status),
		RefundedAmount: updated.RefundedAmount.String(),
	}, nil
}

func (uc *paymentUsecase) refundCompletedPayment(ctx context.Context, payment *models.Payment, request *requests.CancelPaymentRequest) (*responses.CancelPaymentResponse, error) {
	requestID, _ := ctx.Value(constvars.CONTEXT_REQUEST_ID_KEY).(string)

	appointment, err := uc.AppointmentRepository.FindByID(ctx, payment.AppointmentID)
	if err != nil {
		return nil, err
	}
	if appointment == nil {
		return nil, exceptions.ErrAppointmentNotFound(fmt.Errorf("appointment %s not found", payment.AppointmentID))
	}

	now := time.Now().In(uc.Location)
	refundType := models.RefundType(request.RefundType)
	if request.RefundType == "" {
		refundType = models.RefundTypePolicyBased
	}

	percent := 0
	var amount decimal.Decimal
	switch refundType {
	case models.RefundTypeFull:
		percent = 100
		amount = uc.RefundPolicy.CalculateRefundAmount(payment, percent)
	case models.RefundTypePolicyBased:
		percent = uc.RefundPolicy.CalculateRefundPercentage(appointment.StartTime, now)
		amount = uc.RefundPolicy.CalculateRefundAmount(payment, percent)
	case models.RefundTypeCustom:
		amount, err = decimal.NewFromString(request.CustomAmount)
		if err != nil {
			return nil, exceptions.ErrInputValidation(err)
		}
		if amount.GreaterThan(payment.RefundableRemainder()) {
			return nil, exceptions.ErrRefundExceedsRemainder(fmt.Errorf("requested %s, remainder %s", amount, payment.RefundableRemainder()))
		}
	default:
		return nil, exceptions.ErrInputValidation(fmt.Errorf("unknown refund type %q", request.RefundType))
	}

	if !amount.IsPositive() {
		return nil, exceptions.ErrRefundNotAllowed(fmt.Errorf("refund amount %s for payment %s", amount, payment.ID))
	}

	transactionDate, err := utils.ParseTransactionRefTime(payment.TransactionRef, uc.Location)
	if err != nil {
		return nil, exceptions.ErrTransactionRefInvalid(err)
	}

	adapter, err := uc.GatewayRouter.ForMethod(payment.PaymentMethod)
	if err != nil {
		return nil, err
	}

	refundResult, err := adapter.Refund(ctx, &contracts.RefundInput{
		Payment:         payment,
		Amount:          amount,
		Reason:          request.Reason,
		RequestedBy:     requestID,
		TransactionDate: transactionDate,
		Now:             now,
	})
	if err != nil {
		return nil, err
	}
	if !refundResult.Succeeded {
		return nil, exceptions.ErrGatewayUnavailable(fmt.Errorf("refund rejected with response code %s", refundResult.ResponseCode))
	}

	refundedTotal := payment.RefundedAmount.Add(amount)
	refundedAt := now.UTC()
	reason := request.Reason
	updated, err := uc.PaymentRepository.UpdateStatusIf(ctx, payment.ID,
		[]models.PaymentStatus{models.PaymentStatusCompleted},
		contracts.PaymentUpdate{
			Status:              models.PaymentStatusRefunded,
			RefundedAmount:      &refundedTotal,
			RefundTransactionID: &refundResult.RefundTransactionID,
			RefundReason:        &reason,
			RefundDate:          &refundedAt,
		})
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, exceptions.ErrPaymentNotCancellable(fmt.Errorf("payment %s changed state during refund", payment.ID))
	}

	// A refunded payment means the appointment is off; release its slot.
	cancelled, err := uc.AppointmentRepository.UpdateStatusIf(ctx, appointment.ID,
		[]models.AppointmentStatus{models.AppointmentStatusPending, models.AppointmentStatusConfirmed},
		models.AppointmentStatusCancelled, "payment refunded")
	if err != nil {
		uc.Log.Error("paymentUsecase.CancelPayment failed to cancel appointment after refund",
			zap.String(constvars.LoggingRequestIDKey, requestID),
			zap.String(constvars.LoggingAppointmentIDKey, appointment.ID),
			zap.Error(err),
		)
	}
	if cancelled != nil && appointment.SlotID != "" {
		if releaseErr := uc.SlotRepository.Release(ctx, appointment.SlotID); releaseErr != nil {
			uc.Log.Error("paymentUsecase.CancelPayment failed to release slot after refund",
				zap.String(constvars.LoggingRequestIDKey, requestID),
				zap.String(constvars.LoggingSlotIDKey, appointment.SlotID),
				zap.Error(releaseErr),
			)
		}
	}

	if notifyErr := uc.Notifier.PublishPaymentRefunded(ctx, updated); notifyErr != nil {
		uc.Log.Error("paymentUsecase.CancelPayment failed to publish refund event",
			zap.String(constvars.LoggingRequestIDKey, requestID),
			zap.String(constvars.LoggingPaymentIDKey, payment.ID),
			zap.Error(notifyErr),
		)
	}

	uc.Log.Info("paymentUsecase.CancelPayment refund applied",
		zap.String(constvars.LoggingRequestIDKey, requestID),
		zap.String(constvars.LoggingPaymentIDKey, payment.ID),
		zap.String(constvars.LoggingRefundAmountKey, amount.String()),
	)

	return &responses.CancelPaymentResponse{
		PaymentID:      updated.ID,
		Status:         string(updated.Status),
		RefundedAmount: updated.RefundedAmount.String(),
		RefundPercent:  percent,
	}, nil
}

func (uc *paymentUsecase) GetPayment(ctx context.Context, paymentID string) (*responses.PaymentResponse, error) {
	payment, err := uc.PaymentRepository.FindByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, exceptions.ErrPaymentNotFound(fmt.Errorf("payment %s not found", paymentID))
	}
	response := toPaymentResponse(payment)
	return &response, nil
}

func (uc *paymentUsecase) ListPaymentsByAppointment(ctx context.Context, appointmentID string) ([]responses.PaymentResponse, error) {
	payments, err := uc.PaymentRepository.FindByAppointmentID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	result := make([]responses.PaymentResponse, 0, len(payments))
	for i := range payments {
		result = append(result, toPaymentResponse(&payments[i]))
	}
	return result, nil
}

// ExpireAppointment drives one expired pending appointment to its terminal
// state. The appointment status change goes first, mirroring the completion
// path: only the actor that wins that compare-and-set touches the payments
// and the slot. Partial failures are collected so the next reconciliation
// pass can retry whatever is still open.
func (uc *paymentUsecase) ExpireAppointment(ctx context.Context, appointmentID string) *models.ExpirationResult {
	requestID, _ := ctx.Value(constvars.CONTEXT_REQUEST_ID_KEY).(string)
	result := &models.ExpirationResult{AppointmentID: appointmentID}

	cancelled, err := uc.AppointmentRepository.UpdateStatusIf(ctx, appointmentID,
		[]models.AppointmentStatus{models.AppointmentStatusPending},
		models.AppointmentStatusCancelled, "no completed payment before the deadline")
	if err != nil {
		result.Failures = append(result.Failures, fmt.Sprintf("cancel appointment: %v", err))
		return result
	}
	if cancelled == nil {
		// A racing callback confirmed the appointment; leave everything alone.
		uc.Log.Info("paymentUsecase.ExpireAppointment appointment no longer pending",
			zap.String(constvars.LoggingRequestIDKey, requestID),
			zap.String(constvars.LoggingAppointmentIDKey, appointmentID),
		)
		return result
	}
	result.AppointmentCancelled = true

	openPayments, err := uc.PaymentRepository.FindNonTerminalByAppointment(ctx, appointmentID)
	if err != nil {
		result.Failures = append(result.Failures, fmt.Sprintf("list open payments: %v", err))
		return result
	}
	notes := "cancelled by expiration reconciler"
	for i := range openPayments {
		updated, cancelErr := uc.PaymentRepository.UpdateStatusIf(ctx, openPayments[i].ID,
			[]models.PaymentStatus{models.PaymentStatusPending, models.PaymentStatusProcessing},
			contracts.PaymentUpdate{Status: models.PaymentStatusCancelled, Notes: &notes})
		if cancelErr != nil {
			result.Failures = append(result.Failures, fmt.Sprintf("cancel payment %s: %v", openPayments[i].ID, cancelErr))
			continue
		}
		if updated != nil {
			result.PaymentsCancelled++
		}
	}

	if cancelled.SlotID != "" {
		if releaseErr := uc.SlotRepository.Release(ctx, cancelled.SlotID); releaseErr != nil {
			result.Failures = append(result.Failures, fmt.Sprintf("release slot %s: %v", cancelled.SlotID, releaseErr))
		} else {
			result.SlotReleased = true
		}
	}

	uc.Log.Info("paymentUsecase.ExpireAppointment finished",
		zap.String(constvars.LoggingRequestIDKey, requestID),
		zap.String(constvars.LoggingAppointmentIDKey, appointmentID),
		zap.Int("payments_cancelled", result.PaymentsCancelled),
		zap.Bool("slot_released", result.SlotReleased),
		zap.Strings("failures", result.Failures),
	)
	return result
}

// ResolveStuckPayment asks the gateway what actually happened to a payment
// stuck in processing and applies the authoritative answer. Absence of a
// definitive answer leaves the payment untouched.
func (uc *paymentUsecase) ResolveStuckPayment(ctx context.Context, paymentID string) error {
	requestID, _ := ctx.Value(constvars.CONTEXT_REQUEST_ID_KEY).(string)

	payment, err := uc.PaymentRepository.FindByID(ctx, paymentID)
	if err != nil {
		return err
	}
	if payment == nil {
		return exceptions.ErrPaymentNotFound(fmt.Errorf("payment %s not found", paymentID))
	}
	if payment.Status != models.PaymentStatusProcessing {
		return nil
	}

	transactionDate, err := utils.ParseTransactionRefTime(payment.TransactionRef, uc.Location)
	if err != nil {
		return exceptions.ErrTransactionRefInvalid(err)
	}

	adapter, err := uc.GatewayRouter.ForMethod(payment.PaymentMethod)
	if err != nil {
		return err
	}

	queryResult, err := adapter.QueryTransaction(ctx, &contracts.QueryInput{
		TransactionRef:  payment.TransactionRef,
		TransactionDate: transactionDate,
		Now:             time.Now().In(uc.Location),
	})
	if err != nil {
		return err
	}

	if queryResult.Pending {
		uc.Log.Info("paymentUsecase.ResolveStuckPayment gateway still pending",
			zap.String(constvars.LoggingRequestIDKey, requestID),
			zap.String(constvars.LoggingPaymentIDKey, payment.ID),
		)
		return nil
	}

	if queryResult.Succeeded {
		if !queryResult.Amount.IsZero() && !queryResult.Amount.Equal(payment.Amount) {
			return exceptions.ErrCallbackAmountMismatch(fmt.Errorf("gateway %s vs payment %s", queryResult.Amount, payment.Amount))
		}
		_, err = uc.applyGatewaySuccess(ctx, payment, queryResult.GatewayTransactionID, queryResult.PayDate)
		return err
	}

	_, err = uc.applyGatewayFailure(ctx, payment, queryResult.ResponseCode, payment.TransactionRef)
	return err
}

func toPaymentResponse(payment *models.Payment) responses.PaymentResponse {
	return responses.PaymentResponse{
		PaymentID:            payment.ID,
		AppointmentID:        payment.AppointmentID,
		Amount:               payment.Amount.String(),
		Currency:             payment.Currency,
		PaymentType:          string(payment.PaymentType),
		PaymentMethod:        string(payment.PaymentMethod),
		Status:               string(payment.Status),
		TransactionRef:       payment.TransactionRef,
		GatewayTransactionID: payment.GatewayTransactionID,
		RefundedAmount:       payment.RefundedAmount.String(),
		RefundTransactionID:  payment.RefundTransactionID,
		RefundReason:         payment.RefundReason,
		Notes:                payment.Notes,
		CreatedAt:            payment.CreatedAt,
		UpdatedAt:            payment.UpdatedAt,
		PaymentDate:          payment.PaymentDate,
		RefundDate:           payment.RefundDate,
	}
}
