package notifications

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/nqluong/appointment-project-sub001/internal/app/config"
	"github.com/nqluong/appointment-project-sub001/internal/app/contracts"
	"github.com/nqluong/appointment-project-sub001/internal/app/services/shared/jwtmanager"
	"github.com/nqluong/appointment-project-sub001/internal/app/services/shared/notifyqueue"
	"github.com/nqluong/appointment-project-sub001/internal/pkg/constvars"
	"go.uber.org/zap"
)

const deliveryLockKey = "notifications:delivery:lock"

// Worker periodically forwards queued payment events to the notification
// provider with at-least-once semantics.
type Worker struct {
	log        *zap.Logger
	cfg        *config.Notification
	locker     contracts.LockerService
	queue      *notifyqueue.Service
	jwtManager *jwtmanager.JWTManager
	client     *http.Client
	batchSize  int
	stop       chan struct{}
}

func NewWorker(log *zap.Logger, cfg *config.Notification, lockerSvc contracts.LockerService, queue *notifyqueue.Service, jwtMgr *jwtmanager.JWTManager, batchSize int) *Worker {
	timeout := time.Duration(cfg.HTTPTimeoutInSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 1
	}
	return &Worker{
		log:        log,
		cfg:        cfg,
		locker:     lockerSvc,
		queue:      queue,
		jwtManager: jwtMgr,
		client:     &http.Client{Timeout: timeout},
		batchSize:  batchSize,
		stop:       make(chan struct{}),
	}
}

// Start begins the ticker loop. It returns a stop function to halt execution.
func (w *Worker) Start(ctx context.Context) (stop func()) {
	ticker := time.NewTicker(time.Minute)
	stopped := make(chan struct{})

	go func() {
		defer close(stopped)
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

func (w *Worker) runOnce(ctx context.Context, now time.Time) {
	w.log.Info("notifications.Worker tick", zap.Time("now", now))

	nextMinute := now.Truncate(time.Minute).Add(time.Minute)
	ttl := time.Until(nextMinute) - 1*time.Second
	if ttl < 1*time.Second {
		ttl = 1 * time.Second
	}
	acquired, lockVal, err := w.locker.TryLock(ctx, deliveryLockKey, ttl)
	if err != nil {
		w.log.Error("notifications.Worker lock attempt failed", zap.Error(err))
		return
	}
	if !acquired {
		w.log.Info("notifications.Worker lock held by another instance")
		return
	}
	defer func() {
		if err := w.locker.Unlock(ctx, deliveryLockKey, lockVal); err != nil {
			w.log.Error("notifications.Worker unlock failed", zap.Error(err))
		}
	}()

	items, err := w.queue.FetchN(ctx, w.batchSize)
	if err != nil {
		w.log.Error("notifications.Worker fetch failed", zap.Error(err))
		return
	}
	w.log.Info("notifications.Worker fetched batch", zap.Int("fetched_count", len(items)))

	for _, item := range items {
		w.processItem(ctx, item)
	}
}

func (w *Worker) processItem(ctx context.Context, item notifyqueue.QueuedItem) {
	msg := item.Message

	body, err := json.Marshal(&msg)
	if err != nil {
		w.log.Error("notifications.Worker cannot marshal message",
			zap.String("message_id", msg.ID),
			zap.Error(err))
		w.retryOrDeadLetter(ctx, item)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.cfg.ProviderWebhookURL, bytes.NewReader(body))
	if err != nil {
		w.log.Error("notifications.Worker build request failed",
			zap.String("message_id", msg.ID),
			zap.Error(err))
		w.retryOrDeadLetter(ctx, item)
		return
	}
	req.Header.Set(constvars.HeaderContentType, constvars.MIMEApplicationJSON)

	token, err := w.jwtManager.CreateToken(ctx, msg.ID)
	if err != nil {
		w.log.Error("notifications.Worker jwt create token failed",
			zap.String("message_id", msg.ID),
			zap.Error(err))
		w.retryOrDeadLetter(ctx, item)
		return
	}
	req.Header.Set(constvars.HeaderAuthorization, "Bearer "+token)

	w.log.Info("notifications.Worker forwarding event",
		zap.String("message_id", msg.ID),
		zap.String("event_type", msg.EventType),
		zap.String(constvars.LoggingPaymentIDKey, msg.PaymentID),
		zap.Int("failed_count", msg.FailedCount))

	resp, err := w.client.Do(req)
	if err != nil {
		w.log.Warn("notifications.Worker http request failed",
			zap.String("message_id", msg.ID),
			zap.Error(err))
		w.retryOrDeadLetter(ctx, item)
		return
	}
	defer resp.Body.Close()
	_, _ = io.ReadAll(resp.Body) // drain for connection reuse

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusAccepted, http.StatusNoContent:
		if err := w.queue.AckMessage(item.DeliveryTag); err != nil {
			w.log.Error("notifications.Worker ack failed after success",
				zap.String("message_id", msg.ID),
				zap.Error(err))
			return
		}
		w.log.Info("notifications.Worker event delivered",
			zap.String("message_id", msg.ID),
			zap.String("event_type", msg.EventType))
	default:
		w.log.Warn("notifications.Worker provider rejected event",
			zap.String("message_id", msg.ID),
			zap.Int("status_code", resp.StatusCode))
		w.retryOrDeadLetter(ctx, item)
	}
}

// retryOrDeadLetter returns the message to the queue tail with an incremented
// failed count, or parks it in the DLQ once MaxRetry is exhausted. The
// original delivery is acked only after the replacement publish succeeds, so
// the message is never lost.
func (w *Worker) retryOrDeadLetter(ctx context.Context, item notifyqueue.QueuedItem) {
	msg := item.Message
	msg.FailedCount++

	if msg.FailedCount >= w.cfg.MaxRetry {
		if err := w.queue.EnqueueToDeadQueue(ctx, &msg); err != nil {
			w.log.Error("notifications.Worker enqueue to DLQ failed",
				zap.String("message_id", msg.ID),
				zap.Error(err))
			return
		}
		if err := w.queue.AckMessage(item.DeliveryTag); err != nil {
			w.log.Error("notifications.Worker ack failed after DLQ move",
				zap.String("message_id", msg.ID),
				zap.Error(err))
		}
		w.log.Warn("notifications.Worker moved event to DLQ",
			zap.String("message_id", msg.ID),
			zap.Int("failed_count", msg.FailedCount))
		return
	}

	if err := w.queue.Enqueue(ctx, &msg); err != nil {
		w.log.Error("notifications.Worker requeue failed",
			zap.String("message_id", msg.ID),
			zap.Error(err))
		return
	}
	if err := w.queue.AckMessage(item.DeliveryTag); err != nil {
		w.log.Error("notifications.Worker ack failed after requeue",
			zap.String("message_id", msg.ID),
			zap.Error(err))
		return
	}
	w.log.Info("notifications.Worker retryable failure requeued",
		zap.String("message_id", msg.ID),
		zap.Int("failed_count", msg.FailedCount))
}
