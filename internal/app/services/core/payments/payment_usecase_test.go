package payments

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nqluong/appointment-project-sub001/internal/app/contracts"
	"github.com/nqluong/appointment-project-sub001/internal/app/models"
	"github.com/nqluong/appointment-project-sub001/internal/pkg/dto/requests"
	"github.com/nqluong/appointment-project-sub001/internal/pkg/exceptions"
	"github.com/nqluong/appointment-project-sub001/internal/pkg/utils"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// In-memory collaborators with the same compare-and-set semantics as the
// mongo implementations, so the race tests exercise the real guard
// discipline.

type fakePaymentRepo struct {
	mu       sync.Mutex
	payments map[string]*models.Payment
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{payments: make(map[string]*models.Payment)}
}

func (r *fakePaymentRepo) Create(_ context.Context, payment *models.Payment) (*models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *payment
	r.payments[payment.ID] = &clone
	return payment, nil
}

func (r *fakePaymentRepo) FindByID(_ context.Context, paymentID string) (*models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if payment, ok := r.payments[paymentID]; ok {
		clone := *payment
		return &clone, nil
	}
	return nil, nil
}

func (r *fakePaymentRepo) FindByTransactionRef(_ context.Context, transactionRef string) (*models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, payment := range r.payments {
		if payment.TransactionRef == transactionRef {
			clone := *payment
			return &clone, nil
		}
	}
	return nil, nil
}

func (r *fakePaymentRepo) FindByAppointmentID(_ context.Context, appointmentID string) ([]models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]models.Payment, 0)
	for _, payment := range r.payments {
		if payment.AppointmentID == appointmentID {
			result = append(result, *payment)
		}
	}
	return result, nil
}

func (r *fakePaymentRepo) FindNonTerminalByAppointment(_ context.Context, appointmentID string) ([]models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]models.Payment, 0)
	for _, payment := range r.payments {
		if payment.AppointmentID == appointmentID && !payment.Status.IsTerminal() {
			result = append(result, *payment)
		}
	}
	return result, nil
}

func (r *fakePaymentRepo) FindActiveByAppointmentAndType(_ context.Context, appointmentID string, paymentType models.PaymentType) (*models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, payment := range r.payments {
		if payment.AppointmentID != appointmentID || payment.PaymentType != paymentType {
			continue
		}
		switch payment.Status {
		case models.PaymentStatusPending, models.PaymentStatusProcessing, models.PaymentStatusCompleted:
			clone := *payment
			return &clone, nil
		}
	}
	return nil, nil
}

func (r *fakePaymentRepo) FindProcessingCreatedBetween(_ context.Context, from, to time.Time, limit int) ([]models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]models.Payment, 0)
	for _, payment := range r.payments {
		if payment.Status != models.PaymentStatusProcessing {
			continue
		}
		if payment.CreatedAt.Before(from) || payment.CreatedAt.After(to) {
			continue
		}
		result = append(result, *payment)
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result, nil
}

func (r *fakePaymentRepo) UpdateStatusIf(_ context.Context, paymentID string, fromStatuses []models.PaymentStatus, update contracts.PaymentUpdate) (*models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	payment, ok := r.payments[paymentID]
	if !ok {
		return nil, nil
	}
	matched := false
	for _, status := range fromStatuses {
		if !status.CanTransitionTo(update.Status) {
			return nil, exceptions.ErrInvalidStateTransition(string(status), string(update.Status))
		}
		if payment.Status == status {
			matched = true
			break
		}
	}
	if !matched {
		return nil, nil
	}
	payment.Status = update.Status
	payment.UpdatedAt = time.Now().UTC()
	if update.GatewayTransactionID != nil {
		payment.GatewayTransactionID = *update.GatewayTransactionID
	}
	if update.PaymentDate != nil {
		payment.PaymentDate = update.PaymentDate
	}
	if update.RefundedAmount != nil {
		payment.RefundedAmount = *update.RefundedAmount
	}
	if update.RefundTransactionID != nil {
		payment.RefundTransactionID = *update.RefundTransactionID
	}
	if update.RefundReason != nil {
		payment.RefundReason = *update.RefundReason
	}
	if update.RefundDate != nil {
		payment.RefundDate = update.RefundDate
	}
	if update.Notes != nil {
		payment.Notes = *update.Notes
	}
	clone := *payment
	return &clone, nil
}

type fakeAppointmentRepo struct {
	mu           sync.Mutex
	appointments map[string]*models.Appointment
}

func newFakeAppointmentRepo() *fakeAppointmentRepo {
	return &fakeAppointmentRepo{appointments: make(map[string]*models.Appointment)}
}

func (r *fakeAppointmentRepo) put(appointment *models.Appointment) {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *appointment
	r.appointments[appointment.ID] = &clone
}

func (r *fakeAppointmentRepo) FindByID(_ context.Context, appointmentID string) (*models.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if appointment, ok := r.appointments[appointmentID]; ok {
		clone := *appointment
		return &clone, nil
	}
	return nil, nil
}

func (r *fakeAppointmentRepo) FindPendingCreatedBefore(_ context.Context, cutoff time.Time, limit int) ([]models.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]models.Appointment, 0)
	for _, appointment := range r.appointments {
		if appointment.Status == models.AppointmentStatusPending && appointment.CreatedAt.Before(cutoff) {
			result = append(result, *appointment)
			if limit > 0 && len(result) == limit {
				break
			}
		}
	}
	return result, nil
}

func (r *fakeAppointmentRepo) UpdateStatusIf(_ context.Context, appointmentID string, fromStatuses []models.AppointmentStatus, to models.AppointmentStatus, reason string) (*models.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	appointment, ok := r.appointments[appointmentID]
	if !ok {
		return nil, nil
	}
	matched := false
	for _, status := range fromStatuses {
		if appointment.Status == status {
			matched = true
			break
		}
	}
	if !matched {
		return nil, nil
	}
	appointment.Status = to
	if reason != "" {
		appointment.CancelReason = reason
	}
	appointment.UpdatedAt = time.Now().UTC()
	clone := *appointment
	return &clone, nil
}

type fakeSlotRepo struct {
	mu    sync.Mutex
	slots map[string]*models.Slot
}

func newFakeSlotRepo() *fakeSlotRepo {
	return &fakeSlotRepo{slots: make(map[string]*models.Slot)}
}

func (r *fakeSlotRepo) put(slot *models.Slot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *slot
	r.slots[slot.ID] = &clone
}

func (r *fakeSlotRepo) FindByID(_ context.Context, slotID string) (*models.Slot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if slot, ok := r.slots[slotID]; ok {
		clone := *slot
		return &clone, nil
	}
	return nil, nil
}

func (r *fakeSlotRepo) Hold(_ context.Context, slotID string) error {
	return r.setAvailable(slotID, false)
}

func (r *fakeSlotRepo) Release(_ context.Context, slotID string) error {
	return r.setAvailable(slotID, true)
}

func (r *fakeSlotRepo) setAvailable(slotID string, available bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if slot, ok := r.slots[slotID]; ok {
		slot.Available = available
	}
	return nil
}

// fakeGateway answers with whatever the test scripted.
type fakeGateway struct {
	mu             sync.Mutex
	callbackResult *contracts.CallbackResult
	refundResult   *contracts.RefundResult
	refundErr      error
	queryResult    *contracts.QueryResult
	queryErr       error
	refundCalls    int
}

func (g *fakeGateway) Supports(method models.PaymentMethod) bool {
	return method != models.PaymentMethodBankAccount
}

func (g *fakeGateway) BuildRedirectURL(_ context.Context, input *contracts.BuildRedirectURLInput) (string, error) {
	return "https://gateway.example.com/pay?vnp_TxnRef=" + input.Payment.TransactionRef, nil
}

func (g *fakeGateway) VerifyCallback(_ map[string]string) (*contracts.CallbackResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.callbackResult, nil
}

func (g *fakeGateway) Refund(_ context.Context, _ *contracts.RefundInput) (*contracts.RefundResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.refundCalls++
	return g.refundResult, g.refundErr
}

func (g *fakeGateway) QueryTransaction(_ context.Context, _ *contracts.QueryInput) (*contracts.QueryResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.queryResult, g.queryErr
}

type fakeRouter struct {
	gateway contracts.PaymentGatewayService
}

func (r *fakeRouter) ForMethod(method models.PaymentMethod) (contracts.PaymentGatewayService, error) {
	if !r.gateway.Supports(method) {
		return nil, fmt.Errorf("no adapter for %s", method)
	}
	return r.gateway, nil
}

// fakeRefundPolicy applies a fixed percentage with the same clamping rule as
// the real engine.
type fakeRefundPolicy struct {
	percent int
}

func (p *fakeRefundPolicy) CalculateRefundPercentage(_, _ time.Time) int {
	return p.percent
}

func (p *fakeRefundPolicy) CalculateRefundAmount(payment *models.Payment, percent int) decimal.Decimal {
	if percent <= 0 {
		return decimal.Zero
	}
	if percent > 100 {
		percent = 100
	}
	amount := payment.Amount.Mul(decimal.NewFromInt(int64(percent))).Div(decimal.NewFromInt(100))
	if remainder := payment.RefundableRemainder(); amount.GreaterThan(remainder) {
		return remainder
	}
	return amount
}

type fakeNotifier struct {
	mu        sync.Mutex
	completed []string
	refunded  []string
}

func (n *fakeNotifier) PublishPaymentCompleted(_ context.Context, payment *models.Payment) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.completed = append(n.completed, payment.ID)
	return nil
}

func (n *fakeNotifier) PublishPaymentRefunded(_ context.Context, payment *models.Payment) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.refunded = append(n.refunded, payment.ID)
	return nil
}

type fakeArchive struct {
	mu    sync.Mutex
	count int
}

func (a *fakeArchive) ArchiveCallback(_ context.Context, _ string, _ map[string]string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.count++
	return nil
}

type usecaseFixture struct {
	usecase      *paymentUsecase
	paymentRepo  *fakePaymentRepo
	apptRepo     *fakeAppointmentRepo
	slotRepo     *fakeSlotRepo
	gateway      *fakeGateway
	refundPolicy *fakeRefundPolicy
	notifier     *fakeNotifier
	archive      *fakeArchive
}

func newFixture() *usecaseFixture {
	paymentRepo := newFakePaymentRepo()
	apptRepo := newFakeAppointmentRepo()
	slotRepo := newFakeSlotRepo()
	gateway := &fakeGateway{}
	refundPolicy := &fakeRefundPolicy{percent: 50}
	notifier := &fakeNotifier{}
	archive := &fakeArchive{}

	return &usecaseFixture{
		usecase: &paymentUsecase{
			PaymentRepository:     paymentRepo,
			AppointmentRepository: apptRepo,
			SlotRepository:        slotRepo,
			GatewayRouter:         &fakeRouter{gateway: gateway},
			RefundPolicy:          refundPolicy,
			Notifier:              notifier,
			Archive:               archive,
			Log:                   zap.NewNop(),
			Location:              time.UTC,
		},
		paymentRepo:  paymentRepo,
		apptRepo:     apptRepo,
		slotRepo:     slotRepo,
		gateway:      gateway,
		refundPolicy: refundPolicy,
		notifier:     notifier,
		archive:      archive,
	}
}

func (f *usecaseFixture) seedAppointment(status models.AppointmentStatus, fee int64) *models.Appointment {
	appointment := &models.Appointment{
		ID:              uuid.NewString(),
		Status:          status,
		SlotID:          uuid.NewString(),
		ConsultationFee: decimal.NewFromInt(fee),
		StartTime:       time.Now().UTC().Add(72 * time.Hour),
		CreatedAt:       time.Now().UTC().Add(-time.Hour),
	}
	f.apptRepo.put(appointment)
	f.slotRepo.put(&models.Slot{ID: appointment.SlotID, Available: false})
	return appointment
}

func (f *usecaseFixture) seedPayment(appointmentID string, status models.PaymentStatus, amount int64) *models.Payment {
	payment := &models.Payment{
		ID:             uuid.NewString(),
		AppointmentID:  appointmentID,
		Amount:         decimal.NewFromInt(amount),
		Currency:       "VND",
		PaymentType:    models.PaymentTypeFull,
		PaymentMethod:  models.PaymentMethodVNPayQR,
		Status:         status,
		TransactionRef: utils.GenerateTransactionRef(time.Now().UTC()),
		RefundedAmount: decimal.Zero,
		CreatedAt:      time.Now().UTC(),
		UpdatedAt:      time.Now().UTC(),
	}
	if status == models.PaymentStatusCompleted {
		paidAt := time.Now().UTC()
		payment.PaymentDate = &paidAt
		payment.GatewayTransactionID = "14226112"
	}
	f.paymentRepo.Create(context.Background(), payment)
	return payment
}

func successCallback(payment *models.Payment) *requests.GatewayCallback {
	return &requests.GatewayCallback{Params: map[string]string{
		"vnp_TxnRef":        payment.TransactionRef,
		"vnp_ResponseCode":  "00",
		"vnp_TransactionNo": "14226112",
		"vnp_Amount":        payment.Amount.Mul(decimal.NewFromInt(100)).String(),
		"vnp_SecureHash":    "aa",
	}}
}

func TestCreatePayment(t *testing.T) {
	ctx := context.Background()

	t.Run("creates a payment and hands out a redirect url", func(t *testing.T) {
		f := newFixture()
		appointment := f.seedAppointment(models.AppointmentStatusPending, 500000)

		response, err := f.usecase.CreatePayment(ctx, &requests.CreatePaymentRequest{
			AppointmentID: appointment.ID,
			PaymentType:   "full",
			PaymentMethod: "vnpay_qr",
			CustomerIP:    "203.0.113.7",
		})

		require.NoError(t, err)
		require.NotNil(t, response)
		assert.Equal(t, "500000", response.Amount)
		assert.Contains(t, response.RedirectURL, response.TransactionRef)

		// Once the redirect is out the payment is awaiting the gateway.
		assert.Equal(t, string(models.PaymentStatusProcessing), response.Status)
		stored, _ := f.paymentRepo.FindByID(ctx, response.PaymentID)
		assert.Equal(t, models.PaymentStatusProcessing, stored.Status)
	})

	t.Run("deposit collects a share of the fee", func(t *testing.T) {
		f := newFixture()
		appointment := f.seedAppointment(models.AppointmentStatusPending, 1000000)

		response, err := f.usecase.CreatePayment(ctx, &requests.CreatePaymentRequest{
			AppointmentID: appointment.ID,
			PaymentType:   "deposit",
			PaymentMethod: "vnpay_qr",
		})

		require.NoError(t, err)
		require.NotNil(t, response)
		assert.Equal(t, "300000", response.Amount)
	})

	t.Run("rejects an unknown appointment", func(t *testing.T) {
		f := newFixture()
		_, err := f.usecase.CreatePayment(ctx, &requests.CreatePaymentRequest{
			AppointmentID: uuid.NewString(),
			PaymentType:   "full",
			PaymentMethod: "vnpay_qr",
		})
		assert.NotNil(t, err)
	})

	t.Run("rejects a non payable appointment", func(t *testing.T) {
		f := newFixture()
		appointment := f.seedAppointment(models.AppointmentStatusCancelled, 500000)

		_, err := f.usecase.CreatePayment(ctx, &requests.CreatePaymentRequest{
			AppointmentID: appointment.ID,
			PaymentType:   "full",
			PaymentMethod: "vnpay_qr",
		})
		assert.NotNil(t, err)
	})

	t.Run("rejects a duplicate attempt for the same type", func(t *testing.T) {
		f := newFixture()
		appointment := f.seedAppointment(models.AppointmentStatusPending, 500000)
		f.seedPayment(appointment.ID, models.PaymentStatusPending, 500000)

		_, err := f.usecase.CreatePayment(ctx, &requests.CreatePaymentRequest{
			AppointmentID: appointment.ID,
			PaymentType:   "full",
			PaymentMethod: "vnpay_qr",
		})
		assert.NotNil(t, err)
	})

	t.Run("rejects an unsupported method", func(t *testing.T) {
		f := newFixture()
		appointment := f.seedAppointment(models.AppointmentStatusPending, 500000)

		_, err := f.usecase.CreatePayment(ctx, &requests.CreatePaymentRequest{
			AppointmentID: appointment.ID,
			PaymentType:   "full",
			PaymentMethod: "bank_account",
		})
		assert.NotNil(t, err)
	})
}

func TestProcessCallback(t *testing.T) {
	ctx := context.Background()

	t.Run("successful callback completes payment and confirms appointment", func(t *testing.T) {
		f := newFixture()
		appointment := f.seedAppointment(models.AppointmentStatusPending, 500000)
		payment := f.seedPayment(appointment.ID, models.PaymentStatusPending, 500000)
		f.gateway.callbackResult = &contracts.CallbackResult{
			Valid:                true,
			TransactionRef:       payment.TransactionRef,
			GatewayTransactionID: "14226112",
			Amount:               payment.Amount,
			ResponseCode:         "00",
			Succeeded:            true,
		}

		ack, err := f.usecase.ProcessCallback(ctx, successCallback(payment))

		require.NoError(t, err)
		assert.Equal(t, CallbackStatusCompleted, ack.Status)

		storedPayment, _ := f.paymentRepo.FindByID(ctx, payment.ID)
		assert.Equal(t, models.PaymentStatusCompleted, storedPayment.Status)
		assert.Equal(t, "14226112", storedPayment.GatewayTransactionID)
		assert.NotNil(t, storedPayment.PaymentDate)

		storedAppointment, _ := f.apptRepo.FindByID(ctx, appointment.ID)
		assert.Equal(t, models.AppointmentStatusConfirmed, storedAppointment.Status)

		// The slot stays held for the confirmed appointment.
		slot, _ := f.slotRepo.FindByID(ctx, appointment.SlotID)
		assert.False(t, slot.Available)

		assert.Equal(t, []string{payment.ID}, f.notifier.completed)
		assert.Equal(t, 1, f.archive.count)
	})

	t.Run("replaying the same callback transitions only once", func(t *testing.T) {
		f := newFixture()
		appointment := f.seedAppointment(models.AppointmentStatusPending, 500000)
		payment := f.seedPayment(appointment.ID, models.PaymentStatusPending, 500000)
		f.gateway.callbackResult = &contracts.CallbackResult{
			Valid: true, TransactionRef: payment.TransactionRef,
			GatewayTransactionID: "14226112", Amount: payment.Amount,
			ResponseCode: "00", Succeeded: true,
		}

		first, err := f.usecase.ProcessCallback(ctx, successCallback(payment))
		require.NoError(t, err)
		assert.Equal(t, CallbackStatusCompleted, first.Status)

		second, err := f.usecase.ProcessCallback(ctx, successCallback(payment))
		require.NoError(t, err)
		assert.Equal(t, CallbackStatusAlreadyProcessed, second.Status)

		assert.Len(t, f.notifier.completed, 1)
	})

	t.Run("invalid signature leaves everything untouched", func(t *testing.T) {
		f := newFixture()
		appointment := f.seedAppointment(models.AppointmentStatusPending, 500000)
		payment := f.seedPayment(appointment.ID, models.PaymentStatusPending, 500000)
		f.gateway.callbackResult = &contracts.CallbackResult{Valid: false}

		_, err := f.usecase.ProcessCallback(ctx, successCallback(payment))
		assert.NotNil(t, err)

		storedPayment, _ := f.paymentRepo.FindByID(ctx, payment.ID)
		assert.Equal(t, models.PaymentStatusPending, storedPayment.Status)
		storedAppointment, _ := f.apptRepo.FindByID(ctx, appointment.ID)
		assert.Equal(t, models.AppointmentStatusPending, storedAppointment.Status)
		assert.Equal(t, 0, f.archive.count)
	})

	t.Run("failure code marks the payment failed without confirming", func(t *testing.T) {
		f := newFixture()
		appointment := f.seedAppointment(models.AppointmentStatusPending, 500000)
		payment := f.seedPayment(appointment.ID, models.PaymentStatusPending, 500000)
		f.gateway.callbackResult = &contracts.CallbackResult{
			Valid: true, TransactionRef: payment.TransactionRef,
			Amount: payment.Amount, ResponseCode: "24", Succeeded: false,
		}

		ack, err := f.usecase.ProcessCallback(ctx, successCallback(payment))
		require.NoError(t, err)
		assert.Equal(t, CallbackStatusFailed, ack.Status)

		storedPayment, _ := f.paymentRepo.FindByID(ctx, payment.ID)
		assert.Equal(t, models.PaymentStatusFailed, storedPayment.Status)
		storedAppointment, _ := f.apptRepo.FindByID(ctx, appointment.ID)
		assert.Equal(t, models.AppointmentStatusPending, storedAppointment.Status)
	})

	t.Run("amount mismatch is rejected without mutation", func(t *testing.T) {
		f := newFixture()
		appointment := f.seedAppointment(models.AppointmentStatusPending, 500000)
		payment := f.seedPayment(appointment.ID, models.PaymentStatusPending, 500000)
		f.gateway.callbackResult = &contracts.CallbackResult{
			Valid: true, TransactionRef: payment.TransactionRef,
			Amount: decimal.NewFromInt(1), ResponseCode: "00", Succeeded: true,
		}

		_, err := f.usecase.ProcessCallback(ctx, successCallback(payment))
		assert.NotNil(t, err)

		storedPayment, _ := f.paymentRepo.FindByID(ctx, payment.ID)
		assert.Equal(t, models.PaymentStatusPending, storedPayment.Status)
	})

	t.Run("unknown transaction ref is rejected", func(t *testing.T) {
		f := newFixture()
		_, err := f.usecase.ProcessCallback(ctx, &requests.GatewayCallback{Params: map[string]string{
			"vnp_TxnRef": "20240101120000-ffffffff",
		}})
		assert.NotNil(t, err)
	})
}

func TestCancelPayment(t *testing.T) {
	ctx := context.Background()

	t.Run("cancels a pending payment", func(t *testing.T) {
		f := newFixture()
		appointment := f.seedAppointment(models.AppointmentStatusPending, 500000)
		payment := f.seedPayment(appointment.ID, models.PaymentStatusPending, 500000)

		response, err := f.usecase.CancelPayment(ctx, payment.ID, &requests.CancelPaymentRequest{Reason: "changed my mind"})

		require.NoError(t, err)
		assert.Equal(t, string(models.PaymentStatusCancelled), response.Status)
	})

	t.Run("policy refund of a completed payment", func(t *testing.T) {
		f := newFixture()
		appointment := f.seedAppointment(models.AppointmentStatusConfirmed, 1000000)
		payment := f.seedPayment(appointment.ID, models.PaymentStatusCompleted, 1000000)
		f.refundPolicy.percent = 50
		f.gateway.refundResult = &contracts.RefundResult{
			RefundTransactionID: "99887766", ResponseCode: "00", Succeeded: true,
		}

		response, err := f.usecase.CancelPayment(ctx, payment.ID, &requests.CancelPaymentRequest{
			RefundType: "policy", Reason: "patient cancelled",
		})

		require.NoError(t, err)
		assert.Equal(t, string(models.PaymentStatusRefunded), response.Status)
		assert.Equal(t, "500000", response.RefundedAmount)
		assert.Equal(t, 50, response.RefundPercent)

		storedPayment, _ := f.paymentRepo.FindByID(ctx, payment.ID)
		assert.Equal(t, models.PaymentStatusRefunded, storedPayment.Status)
		assert.True(t, storedPayment.RefundedAmount.LessThanOrEqual(storedPayment.Amount))
		assert.Equal(t, "99887766", storedPayment.RefundTransactionID)

		storedAppointment, _ := f.apptRepo.FindByID(ctx, appointment.ID)
		assert.Equal(t, models.AppointmentStatusCancelled, storedAppointment.Status)
		slot, _ := f.slotRepo.FindByID(ctx, appointment.SlotID)
		assert.True(t, slot.Available)

		assert.Equal(t, []string{payment.ID}, f.notifier.refunded)
	})

	t.Run("second refund for the same payment is rejected", func(t *testing.T) {
		f := newFixture()
		appointment := f.seedAppointment(models.AppointmentStatusConfirmed, 1000000)
		payment := f.seedPayment(appointment.ID, models.PaymentStatusCompleted, 1000000)
		f.refundPolicy.percent = 50
		f.gateway.refundResult = &contracts.RefundResult{RefundTransactionID: "1", ResponseCode: "00", Succeeded: true}

		_, err := f.usecase.CancelPayment(ctx, payment.ID, &requests.CancelPaymentRequest{RefundType: "policy"})
		require.NoError(t, err)

		_, err = f.usecase.CancelPayment(ctx, payment.ID, &requests.CancelPaymentRequest{RefundType: "policy"})
		assert.NotNil(t, err)
		assert.Equal(t, 1, f.gateway.refundCalls)
	})

	t.Run("custom refund above the remainder is rejected", func(t *testing.T) {
		f := newFixture()
		appointment := f.seedAppointment(models.AppointmentStatusConfirmed, 1000000)
		payment := f.seedPayment(appointment.ID, models.PaymentStatusCompleted, 1000000)

		_, err := f.usecase.CancelPayment(ctx, payment.ID, &requests.CancelPaymentRequest{
			RefundType: "custom", CustomAmount: "2000000",
		})
		assert.NotNil(t, err)
		assert.Equal(t, 0, f.gateway.refundCalls)
	})

	t.Run("zero percent policy refund is rejected", func(t *testing.T) {
		f := newFixture()
		appointment := f.seedAppointment(models.AppointmentStatusConfirmed, 1000000)
		payment := f.seedPayment(appointment.ID, models.PaymentStatusCompleted, 1000000)
		f.refundPolicy.percent = 0

		_, err := f.usecase.CancelPayment(ctx, payment.ID, &requests.CancelPaymentRequest{RefundType: "policy"})
		assert.NotNil(t, err)
	})

	t.Run("gateway refusal leaves the payment completed", func(t *testing.T) {
		f := newFixture()
		appointment := f.seedAppointment(models.AppointmentStatusConfirmed, 1000000)
		payment := f.seedPayment(appointment.ID, models.PaymentStatusCompleted, 1000000)
		f.refundPolicy.percent = 50
		f.gateway.refundResult = &contracts.RefundResult{ResponseCode: "99", Succeeded: false}

		_, err := f.usecase.CancelPayment(ctx, payment.ID, &requests.CancelPaymentRequest{RefundType: "policy"})
		assert.NotNil(t, err)

		storedPayment, _ := f.paymentRepo.FindByID(ctx, payment.ID)
		assert.Equal(t, models.PaymentStatusCompleted, storedPayment.Status)
	})

	t.Run("refunded and cancelled payments cannot be cancelled again", func(t *testing.T) {
		f := newFixture()
		appointment := f.seedAppointment(models.AppointmentStatusConfirmed, 1000000)
		for _, status := range []models.PaymentStatus{models.PaymentStatusRefunded, models.PaymentStatusCancelled, models.PaymentStatusFailed} {
			payment := f.seedPayment(appointment.ID, status, 1000000)
			_, err := f.usecase.CancelPayment(ctx, payment.ID, &requests.CancelPaymentRequest{})
			assert.NotNil(t, err)
		}
	})
}

func TestExpireAppointment(t *testing.T) {
	ctx := context.Background()

	t.Run("cancels payments, cancels appointment, releases slot", func(t *testing.T) {
		f := newFixture()
		appointment := f.seedAppointment(models.AppointmentStatusPending, 500000)
		f.seedPayment(appointment.ID, models.PaymentStatusPending, 500000)

		result := f.usecase.ExpireAppointment(ctx, appointment.ID)

		assert.True(t, result.IsFullySuccessful())
		assert.True(t, result.AppointmentCancelled)
		assert.Equal(t, 1, result.PaymentsCancelled)
		assert.True(t, result.SlotReleased)

		storedAppointment, _ := f.apptRepo.FindByID(ctx, appointment.ID)
		assert.Equal(t, models.AppointmentStatusCancelled, storedAppointment.Status)
		slot, _ := f.slotRepo.FindByID(ctx, appointment.SlotID)
		assert.True(t, slot.Available)
	})

	t.Run("is a no-op once the appointment is confirmed", func(t *testing.T) {
		f := newFixture()
		appointment := f.seedAppointment(models.AppointmentStatusConfirmed, 500000)

		result := f.usecase.ExpireAppointment(ctx, appointment.ID)

		assert.False(t, result.AppointmentCancelled)
		assert.False(t, result.SlotReleased)
		slot, _ := f.slotRepo.FindByID(ctx, appointment.SlotID)
		assert.False(t, slot.Available)
	})

	t.Run("running twice cancels payments only once", func(t *testing.T) {
		f := newFixture()
		appointment := f.seedAppointment(models.AppointmentStatusPending, 500000)
		f.seedPayment(appointment.ID, models.PaymentStatusPending, 500000)

		first := f.usecase.ExpireAppointment(ctx, appointment.ID)
		second := f.usecase.ExpireAppointment(ctx, appointment.ID)

		assert.Equal(t, 1, first.PaymentsCancelled)
		assert.Equal(t, 0, second.PaymentsCancelled)
		assert.False(t, second.AppointmentCancelled)
	})
}

func TestResolveStuckPayment(t *testing.T) {
	ctx := context.Background()

	t.Run("authoritative success completes the payment", func(t *testing.T) {
		f := newFixture()
		appointment := f.seedAppointment(models.AppointmentStatusPending, 500000)
		payment := f.seedPayment(appointment.ID, models.PaymentStatusProcessing, 500000)
		f.gateway.queryResult = &contracts.QueryResult{
			TransactionRef: payment.TransactionRef, GatewayTransactionID: "777",
			Amount: payment.Amount, ResponseCode: "00", Succeeded: true,
		}

		err := f.usecase.ResolveStuckPayment(ctx, payment.ID)
		require.NoError(t, err)

		storedPayment, _ := f.paymentRepo.FindByID(ctx, payment.ID)
		assert.Equal(t, models.PaymentStatusCompleted, storedPayment.Status)
		storedAppointment, _ := f.apptRepo.FindByID(ctx, appointment.ID)
		assert.Equal(t, models.AppointmentStatusConfirmed, storedAppointment.Status)
	})

	t.Run("pending answer leaves the payment stuck for the next pass", func(t *testing.T) {
		f := newFixture()
		appointment := f.seedAppointment(models.AppointmentStatusPending, 500000)
		payment := f.seedPayment(appointment.ID, models.PaymentStatusProcessing, 500000)
		f.gateway.queryResult = &contracts.QueryResult{Pending: true}

		err := f.usecase.ResolveStuckPayment(ctx, payment.ID)
		require.NoError(t, err)

		storedPayment, _ := f.paymentRepo.FindByID(ctx, payment.ID)
		assert.Equal(t, models.PaymentStatusProcessing, storedPayment.Status)
	})

	t.Run("definitive failure marks the payment failed", func(t *testing.T) {
		f := newFixture()
		appointment := f.seedAppointment(models.AppointmentStatusPending, 500000)
		payment := f.seedPayment(appointment.ID, models.PaymentStatusProcessing, 500000)
		f.gateway.queryResult = &contracts.QueryResult{ResponseCode: "24", Succeeded: false}

		err := f.usecase.ResolveStuckPayment(ctx, payment.ID)
		require.NoError(t, err)

		storedPayment, _ := f.paymentRepo.FindByID(ctx, payment.ID)
		assert.Equal(t, models.PaymentStatusFailed, storedPayment.Status)
	})

	t.Run("ignores payments no longer processing", func(t *testing.T) {
		f := newFixture()
		appointment := f.seedAppointment(models.AppointmentStatusConfirmed, 500000)
		payment := f.seedPayment(appointment.ID, models.PaymentStatusCompleted, 500000)

		err := f.usecase.ResolveStuckPayment(ctx, payment.ID)
		require.NoError(t, err)

		storedPayment, _ := f.paymentRepo.FindByID(ctx, payment.ID)
		assert.Equal(t, models.PaymentStatusCompleted, storedPayment.Status)
	})

	t.Run("gateway error surfaces to the caller", func(t *testing.T) {
		f := newFixture()
		appointment := f.seedAppointment(models.AppointmentStatusPending, 500000)
		payment := f.seedPayment(appointment.ID, models.PaymentStatusProcessing, 500000)
		f.gateway.queryErr = fmt.Errorf("gateway down")

		err := f.usecase.ResolveStuckPayment(ctx, payment.ID)
		assert.NotNil(t, err)

		storedPayment, _ := f.paymentRepo.FindByID(ctx, payment.ID)
		assert.Equal(t, models.PaymentStatusProcessing, storedPayment.Status)
	})

	t.Run("resolves a checkout the customer walked away from", func(t *testing.T) {
		f := newFixture()
		appointment := f.seedAppointment(models.AppointmentStatusPending, 500000)

		response, err := f.usecase.CreatePayment(ctx, &requests.CreatePaymentRequest{
			AppointmentID: appointment.ID,
			PaymentType:   "full",
			PaymentMethod: "vnpay_qr",
			CustomerIP:    "203.0.113.7",
		})
		require.NoError(t, err)
		require.NotNil(t, response)

		f.gateway.queryResult = &contracts.QueryResult{
			TransactionRef: response.TransactionRef, GatewayTransactionID: "888",
			Amount: decimal.NewFromInt(500000), ResponseCode: "00", Succeeded: true,
		}

		err = f.usecase.ResolveStuckPayment(ctx, response.PaymentID)
		require.NoError(t, err)

		storedPayment, _ := f.paymentRepo.FindByID(ctx, response.PaymentID)
		assert.Equal(t, models.PaymentStatusCompleted, storedPayment.Status)
		storedAppointment, _ := f.apptRepo.FindByID(ctx, appointment.ID)
		assert.Equal(t, models.AppointmentStatusConfirmed, storedAppointment.Status)
	})
}

// Racing a successful callback against expiration must converge on exactly
// one terminal pair: completed+confirmed or cancelled+cancelled. A mixed
// state is the bug this guards against.
func TestCallbackExpirationConvergence(t *testing.T) {
	ctx := context.Background()

	for round := 0; round < 50; round++ {
		f := newFixture()
		appointment := f.seedAppointment(models.AppointmentStatusPending, 500000)
		payment := f.seedPayment(appointment.ID, models.PaymentStatusPending, 500000)
		f.gateway.callbackResult = &contracts.CallbackResult{
			Valid: true, TransactionRef: payment.TransactionRef,
			GatewayTransactionID: "14226112", Amount: payment.Amount,
			ResponseCode: "00", Succeeded: true,
		}

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			f.usecase.ProcessCallback(ctx, successCallback(payment))
		}()
		go func() {
			defer wg.Done()
			f.usecase.ExpireAppointment(ctx, appointment.ID)
		}()
		wg.Wait()

		storedPayment, _ := f.paymentRepo.FindByID(ctx, payment.ID)
		storedAppointment, _ := f.apptRepo.FindByID(ctx, appointment.ID)

		switch storedPayment.Status {
		case models.PaymentStatusCompleted:
			assert.Equal(t, models.AppointmentStatusConfirmed, storedAppointment.Status,
				"round %d: completed payment must confirm the appointment", round)
		case models.PaymentStatusCancelled:
			assert.Equal(t, models.AppointmentStatusCancelled, storedAppointment.Status,
				"round %d: cancelled payment must cancel the appointment", round)
		default:
			t.Fatalf("round %d: payment ended in non-terminal state %s", round, storedPayment.Status)
		}
	}
}
