package reconciler

import (
	"context"
	"time"

	"github.com/nqluong/appointment-project-sub001/internal/app/config"
	"github.com/nqluong/appointment-project-sub001/internal/app/contracts"
	"github.com/nqluong/appointment-project-sub001/internal/pkg/constvars"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const stuckPaymentLockKey = "reconciler:stuckpayment:lock"

// StuckPaymentWorker re-queries the gateway for payments stuck in processing
// and applies the authoritative answer through the orchestrator. Gateway
// queries are rate limited so a large backlog cannot hammer the gateway API.
type StuckPaymentWorker struct {
	log            *zap.Logger
	cfg            *config.StuckPayment
	locker         contracts.LockerService
	payments       contracts.PaymentRepository
	paymentUsecase contracts.PaymentUsecase
	limiter        *rate.Limiter
	stop           chan struct{}
}

func NewStuckPaymentWorker(
	log *zap.Logger,
	cfg *config.StuckPayment,
	locker contracts.LockerService,
	payments contracts.PaymentRepository,
	paymentUsecase contracts.PaymentUsecase,
) *StuckPaymentWorker {
	qps := cfg.QueriesPerSecond
	if qps <= 0 {
		qps = 1
	}
	return &StuckPaymentWorker{
		log:            log,
		cfg:            cfg,
		locker:         locker,
		payments:       payments,
		paymentUsecase: paymentUsecase,
		limiter:        rate.NewLimiter(rate.Limit(qps), 1),
		stop:           make(chan struct{}),
	}
}

func (w *StuckPaymentWorker) Start(ctx context.Context) (stop func()) {
	interval := time.Duration(w.cfg.ScanIntervalSecond) * time.Second
	if interval <= 0 {
		interval = 5 * time.Minute
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

func (w *StuckPaymentWorker) runOnce(ctx context.Context, now time.Time) {
	if !w.cfg.QueryEnabled {
		return
	}
	w.log.Info("reconciler.StuckPaymentWorker tick", zap.Time("now", now))

	acquired, lockValue, err := w.locker.TryLock(ctx, stuckPaymentLockKey, time.Duration(w.cfg.ScanIntervalSecond)*time.Second)
	if err != nil {
		w.log.Error("reconciler.StuckPaymentWorker lock attempt failed", zap.Error(err))
		return
	}
	if !acquired {
		w.log.Info("reconciler.StuckPaymentWorker lock held by another instance")
		return
	}
	defer func() {
		if unlockErr := w.locker.Unlock(ctx, stuckPaymentLockKey, lockValue); unlockErr != nil {
			w.log.Error("reconciler.StuckPaymentWorker unlock failed", zap.Error(unlockErr))
		}
	}()

	// The query window: old enough that the gateway has a result, young
	// enough to still matter, and inside the safety window unless old
	// payment queries are explicitly allowed.
	newest := now.Add(-time.Duration(w.cfg.MinMinutesBeforeQuery) * time.Minute)
	oldest := now.Add(-time.Duration(w.cfg.MaxHoursForQuery) * time.Hour)
	if !w.cfg.AllowOldPaymentQuery {
		safety := now.AddDate(0, 0, -w.cfg.SafetyDaysBefore)
		if safety.After(oldest) {
			oldest = safety
		}
	}

	batch, err := w.payments.FindProcessingCreatedBetween(ctx, oldest, newest, w.cfg.BatchSize)
	if err != nil {
		w.log.Error("reconciler.StuckPaymentWorker scan failed", zap.Error(err))
		return
	}
	w.log.Info("reconciler.StuckPaymentWorker scanned", zap.Int("candidates", len(batch)))

	for i := range batch {
		if waitErr := w.limiter.Wait(ctx); waitErr != nil {
			return
		}
		if resolveErr := w.paymentUsecase.ResolveStuckPayment(ctx, batch[i].ID); resolveErr != nil {
			// Transient gateway errors stay in the batch for the next pass.
			w.log.Warn("reconciler.StuckPaymentWorker failed to resolve payment",
				zap.String(constvars.LoggingPaymentIDKey, batch[i].ID),
				zap.Error(resolveErr),
			)
		}
	}
}
