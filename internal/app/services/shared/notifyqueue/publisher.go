package notifyqueue

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nqluong/appointment-project-sub001/internal/app/contracts"
	"github.com/nqluong/appointment-project-sub001/internal/app/models"
	"github.com/nqluong/appointment-project-sub001/internal/pkg/constvars"
	"go.uber.org/zap"
)

var (
	publisherInstance contracts.NotificationPublisher
	oncePublisher     sync.Once
)

// publisher turns payment events into queue messages. Callers treat publish
// errors as log-and-continue; the worker redelivers from the queue, never
// from the payment record.
type publisher struct {
	queue *Service
	log   *zap.Logger
}

func NewPublisher(queue *Service, log *zap.Logger) contracts.NotificationPublisher {
	oncePublisher.Do(func() {
		publisherInstance = &publisher{queue: queue, log: log}
	})
	return publisherInstance
}

func (p *publisher) PublishPaymentCompleted(ctx context.Context, payment *models.Payment) error {
	return p.publishEvent(ctx, EventPaymentCompleted, payment)
}

func (p *publisher) PublishPaymentRefunded(ctx context.Context, payment *models.Payment) error {
	return p.publishEvent(ctx, EventPaymentRefunded, payment)
}

func (p *publisher) publishEvent(ctx context.Context, eventType string, payment *models.Payment) error {
	message := &NotificationMessage{
		ID:             uuid.NewString(),
		EventType:      eventType,
		PaymentID:      payment.ID,
		AppointmentID:  payment.AppointmentID,
		TransactionRef: payment.TransactionRef,
		Amount:         payment.Amount.String(),
		OccurredAt:     time.Now().UTC(),
	}
	if err := p.queue.Enqueue(ctx, message); err != nil {
		requestID, _ := ctx.Value(constvars.CONTEXT_REQUEST_ID_KEY).(string)
		p.log.Error("notifyqueue.publisher failed to enqueue payment event",
			zap.String(constvars.LoggingRequestIDKey, requestID),
			zap.String(constvars.LoggingPaymentIDKey, payment.ID),
			zap.String("event_type", eventType),
			zap.Error(err),
		)
		return err
	}
	return nil
}
