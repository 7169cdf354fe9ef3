package reconciler

import (
	"context"
	"time"

	"github.com/nqluong/appointment-project-sub001/internal/app/config"
	"github.com/nqluong/appointment-project-sub001/internal/app/contracts"
	"github.com/nqluong/appointment-project-sub001/internal/app/models"
	"github.com/nqluong/appointment-project-sub001/internal/pkg/constvars"
	"go.uber.org/zap"
)

const expirationLockKey = "reconciler:expiration:lock"

// ExpirationWorker periodically scans for pending appointments past their
// payment deadline and drives them to a terminal state through the payment
// orchestrator. A distributed lock keeps concurrent instances from running
// the same pass twice.
type ExpirationWorker struct {
	log            *zap.Logger
	cfg            *config.Reconciler
	thresholds     Thresholds
	locker         contracts.LockerService
	appointments   contracts.AppointmentRepository
	payments       contracts.PaymentRepository
	paymentUsecase contracts.PaymentUsecase
	stop           chan struct{}
}

func NewExpirationWorker(
	log *zap.Logger,
	cfg *config.Reconciler,
	locker contracts.LockerService,
	appointments contracts.AppointmentRepository,
	payments contracts.PaymentRepository,
	paymentUsecase contracts.PaymentUsecase,
) *ExpirationWorker {
	return &ExpirationWorker{
		log:            log,
		cfg:            cfg,
		thresholds:     ThresholdsFromConfig(cfg),
		locker:         locker,
		appointments:   appointments,
		payments:       payments,
		paymentUsecase: paymentUsecase,
		stop:           make(chan struct{}),
	}
}

// Start begins the ticker loop and returns a stop function.
func (w *ExpirationWorker) Start(ctx context.Context) (stop func()) {
	interval := time.Duration(w.cfg.ScanIntervalSecond) * time.Second
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)

	go func() {
		for {
			select {
			case <-ctx.Done():
				ticker.Stop()
				return
			case <-w.stop:
				ticker.Stop()
				return
			case now := <-ticker.C:
				w.runOnce(ctx, now)
			}
		}
	}()

	return func() {
		close(w.stop)
	}
}

func (w *ExpirationWorker) runOnce(ctx context.Context, now time.Time) {
	w.log.Info("reconciler.ExpirationWorker tick", zap.Time("now", now))

	ttl := time.Duration(w.cfg.LockerKeyTTLInSecond) * time.Second
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	acquired, lockValue, err := w.locker.TryLock(ctx, expirationLockKey, ttl)
	if err != nil {
		w.log.Error("reconciler.ExpirationWorker lock attempt failed", zap.Error(err))
		return
	}
	if !acquired {
		w.log.Info("reconciler.ExpirationWorker lock held by another instance")
		return
	}
	defer func() {
		if unlockErr := w.locker.Unlock(ctx, expirationLockKey, lockValue); unlockErr != nil {
			w.log.Error("reconciler.ExpirationWorker unlock failed", zap.Error(unlockErr))
		}
	}()

	cutoff := now.Add(-w.thresholds.PendingMaxAge)
	batch, err := w.appointments.FindPendingCreatedBefore(ctx, cutoff, w.cfg.BatchSize)
	if err != nil {
		w.log.Error("reconciler.ExpirationWorker scan failed", zap.Error(err))
		return
	}
	w.log.Info("reconciler.ExpirationWorker scanned", zap.Int("candidates", len(batch)))

	for i := range batch {
		w.reconcileOne(ctx, &batch[i], now)
	}
}

func (w *ExpirationWorker) reconcileOne(ctx context.Context, appointment *models.Appointment, now time.Time) {
	openPayments, err := w.payments.FindNonTerminalByAppointment(ctx, appointment.ID)
	if err != nil {
		w.log.Error("reconciler.ExpirationWorker failed to list payments",
			zap.String(constvars.LoggingAppointmentIDKey, appointment.ID),
			zap.Error(err),
		)
		return
	}
	hasProcessing := false
	for i := range openPayments {
		if openPayments[i].Status == models.PaymentStatusProcessing {
			hasProcessing = true
			break
		}
	}

	decision := Evaluate(appointment, hasProcessing, now, w.thresholds)
	if decision.Action == models.ExpirationDefer {
		w.log.Info("reconciler.ExpirationWorker deferring appointment",
			zap.String(constvars.LoggingAppointmentIDKey, appointment.ID),
			zap.Duration("remaining_grace", decision.RemainingGrace),
		)
		return
	}

	result := w.paymentUsecase.ExpireAppointment(ctx, appointment.ID)
	if result.HasFailures() {
		w.log.Warn("reconciler.ExpirationWorker finished with failures, will retry next pass",
			zap.String(constvars.LoggingAppointmentIDKey, appointment.ID),
			zap.Strings("failures", result.Failures),
		)
		return
	}
	w.log.Info("reconciler.ExpirationWorker expired appointment",
		zap.String(constvars.LoggingAppointmentIDKey, appointment.ID),
		zap.String("action", string(decision.Action)),
		zap.Int("payments_cancelled", result.PaymentsCancelled),
		zap.Bool("slot_released", result.SlotReleased),
	)
}
