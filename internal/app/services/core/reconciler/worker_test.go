package reconciler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/nqluong/appointment-project-sub001/internal/app/config"
	"github.com/nqluong/appointment-project-sub001/internal/app/contracts"
	"github.com/nqluong/appointment-project-sub001/internal/app/models"
	"github.com/nqluong/appointment-project-sub001/internal/pkg/dto/requests"
	"github.com/nqluong/appointment-project-sub001/internal/pkg/dto/responses"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type fakeLocker struct {
	acquire bool
}

func (l *fakeLocker) TryLock(_ context.Context, _ string, _ time.Duration) (bool, string, error) {
	return l.acquire, "lock-value", nil
}

func (l *fakeLocker) Unlock(_ context.Context, _, _ string) error {
	return nil
}

type fakeAppointmentSource struct {
	pending []models.Appointment
}

func (r *fakeAppointmentSource) FindByID(_ context.Context, _ string) (*models.Appointment, error) {
	return nil, nil
}

func (r *fakeAppointmentSource) FindPendingCreatedBefore(_ context.Context, cutoff time.Time, _ int) ([]models.Appointment, error) {
	result := make([]models.Appointment, 0)
	for _, appointment := range r.pending {
		if appointment.CreatedAt.Before(cutoff) {
			result = append(result, appointment)
		}
	}
	return result, nil
}

func (r *fakeAppointmentSource) UpdateStatusIf(_ context.Context, _ string, _ []models.AppointmentStatus, _ models.AppointmentStatus, _ string) (*models.Appointment, error) {
	return nil, nil
}

type fakePaymentSource struct {
	byAppointment map[string][]models.Payment
	processing    []models.Payment
}

func (r *fakePaymentSource) Create(_ context.Context, p *models.Payment) (*models.Payment, error) {
	return p, nil
}
func (r *fakePaymentSource) FindByID(_ context.Context, _ string) (*models.Payment, error) {
	return nil, nil
}
func (r *fakePaymentSource) FindByTransactionRef(_ context.Context, _ string) (*models.Payment, error) {
	return nil, nil
}
func (r *fakePaymentSource) FindByAppointmentID(_ context.Context, _ string) ([]models.Payment, error) {
	return nil, nil
}

func (r *fakePaymentSource) FindNonTerminalByAppointment(_ context.Context, appointmentID string) ([]models.Payment, error) {
	return r.byAppointment[appointmentID], nil
}

func (r *fakePaymentSource) FindActiveByAppointmentAndType(_ context.Context, _ string, _ models.PaymentType) (*models.Payment, error) {
	return nil, nil
}

func (r *fakePaymentSource) FindProcessingCreatedBetween(_ context.Context, from, to time.Time, _ int) ([]models.Payment, error) {
	result := make([]models.Payment, 0)
	for _, payment := range r.processing {
		if !payment.CreatedAt.Before(from) && !payment.CreatedAt.After(to) {
			result = append(result, payment)
		}
	}
	return result, nil
}

func (r *fakePaymentSource) UpdateStatusIf(_ context.Context, _ string, _ []models.PaymentStatus, _ contracts.PaymentUpdate) (*models.Payment, error) {
	return nil, nil
}

// recordingUsecase records which orchestrator entry points the workers hit.
type recordingUsecase struct {
	mu       sync.Mutex
	expired  []string
	resolved []string
}

func (u *recordingUsecase) CreatePayment(_ context.Context, _ *requests.CreatePaymentRequest) (*responses.CreatePaymentResponse, error) {
	return nil, nil
}
func (u *recordingUsecase) ProcessCallback(_ context.Context, _ *requests.GatewayCallback) (*responses.CallbackAckResponse, error) {
	return nil, nil
}
func (u *recordingUsecase) CancelPayment(_ context.Context, _ string, _ *requests.CancelPaymentRequest) (*responses.CancelPaymentResponse, error) {
	return nil, nil
}
func (u *recordingUsecase) GetPayment(_ context.Context, _ string) (*responses.PaymentResponse, error) {
	return nil, nil
}
func (u *recordingUsecase) ListPaymentsByAppointment(_ context.Context, _ string) ([]responses.PaymentResponse, error) {
	return nil, nil
}

func (u *recordingUsecase) ExpireAppointment(_ context.Context, appointmentID string) *models.ExpirationResult {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.expired = append(u.expired, appointmentID)
	return &models.ExpirationResult{AppointmentID: appointmentID, AppointmentCancelled: true, SlotReleased: true}
}

func (u *recordingUsecase) ResolveStuckPayment(_ context.Context, paymentID string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.resolved = append(u.resolved, paymentID)
	return nil
}

func expirationConfig() *config.Reconciler {
	return &config.Reconciler{
		ScanIntervalSecond:   60,
		PendingMaxAgeMinute:  15,
		GraceWindowMinute:    10,
		HardDeadlineMinute:   30,
		BatchSize:            50,
		LockerKeyTTLInSecond: 30,
	}
}

func TestExpirationWorkerRunOnce(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC)

	t.Run("expires appointments past the hard deadline", func(t *testing.T) {
		usecase := &recordingUsecase{}
		worker := NewExpirationWorker(zap.NewNop(), expirationConfig(), &fakeLocker{acquire: true},
			&fakeAppointmentSource{pending: []models.Appointment{
				{ID: "old", Status: models.AppointmentStatusPending, CreatedAt: now.Add(-45 * time.Minute)},
				{ID: "fresh", Status: models.AppointmentStatusPending, CreatedAt: now.Add(-5 * time.Minute)},
			}},
			&fakePaymentSource{byAppointment: map[string][]models.Payment{}},
			usecase,
		)

		worker.runOnce(ctx, now)

		assert.Equal(t, []string{"old"}, usecase.expired)
	})

	t.Run("defers an appointment whose payment is processing", func(t *testing.T) {
		usecase := &recordingUsecase{}
		worker := NewExpirationWorker(zap.NewNop(), expirationConfig(), &fakeLocker{acquire: true},
			&fakeAppointmentSource{pending: []models.Appointment{
				{ID: "paying", Status: models.AppointmentStatusPending, CreatedAt: now.Add(-35 * time.Minute)},
			}},
			&fakePaymentSource{byAppointment: map[string][]models.Payment{
				"paying": {{ID: "p1", Status: models.PaymentStatusProcessing}},
			}},
			usecase,
		)

		worker.runOnce(ctx, now)

		assert.Empty(t, usecase.expired)
	})

	t.Run("force cancels once grace is exhausted despite a processing payment", func(t *testing.T) {
		usecase := &recordingUsecase{}
		worker := NewExpirationWorker(zap.NewNop(), expirationConfig(), &fakeLocker{acquire: true},
			&fakeAppointmentSource{pending: []models.Appointment{
				{ID: "paying", Status: models.AppointmentStatusPending, CreatedAt: now.Add(-50 * time.Minute)},
			}},
			&fakePaymentSource{byAppointment: map[string][]models.Payment{
				"paying": {{ID: "p1", Status: models.PaymentStatusProcessing}},
			}},
			usecase,
		)

		worker.runOnce(ctx, now)

		assert.Equal(t, []string{"paying"}, usecase.expired)
	})

	t.Run("does nothing when the lock is held elsewhere", func(t *testing.T) {
		usecase := &recordingUsecase{}
		worker := NewExpirationWorker(zap.NewNop(), expirationConfig(), &fakeLocker{acquire: false},
			&fakeAppointmentSource{pending: []models.Appointment{
				{ID: "old", Status: models.AppointmentStatusPending, CreatedAt: now.Add(-45 * time.Minute)},
			}},
			&fakePaymentSource{},
			usecase,
		)

		worker.runOnce(ctx, now)

		assert.Empty(t, usecase.expired)
	})
}

func stuckConfig() *config.StuckPayment {
	return &config.StuckPayment{
		QueryEnabled:          true,
		ScanIntervalSecond:    300,
		MinMinutesBeforeQuery: 10,
		MaxHoursForQuery:      24,
		SafetyDaysBefore:      7,
		QueriesPerSecond:      100,
		BatchSize:             20,
	}
}

func TestStuckPaymentWorkerRunOnce(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC)

	t.Run("resolves payments inside the query window", func(t *testing.T) {
		usecase := &recordingUsecase{}
		worker := NewStuckPaymentWorker(zap.NewNop(), stuckConfig(), &fakeLocker{acquire: true},
			&fakePaymentSource{processing: []models.Payment{
				{ID: "stuck", Status: models.PaymentStatusProcessing, CreatedAt: now.Add(-time.Hour)},
				{ID: "fresh", Status: models.PaymentStatusProcessing, CreatedAt: now.Add(-time.Minute)},
				{ID: "ancient", Status: models.PaymentStatusProcessing, CreatedAt: now.Add(-48 * time.Hour)},
			}},
			usecase,
		)

		worker.runOnce(ctx, now)

		assert.Equal(t, []string{"stuck"}, usecase.resolved)
	})

	t.Run("does nothing when queries are disabled", func(t *testing.T) {
		usecase := &recordingUsecase{}
		cfg := stuckConfig()
		cfg.QueryEnabled = false
		worker := NewStuckPaymentWorker(zap.NewNop(), cfg, &fakeLocker{acquire: true},
			&fakePaymentSource{processing: []models.Payment{
				{ID: "stuck", Status: models.PaymentStatusProcessing, CreatedAt: now.Add(-time.Hour)},
			}},
			usecase,
		)

		worker.runOnce(ctx, now)

		assert.Empty(t, usecase.resolved)
	})
}
