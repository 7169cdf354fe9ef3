package notifyqueue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/nqluong/appointment-project-sub001/internal/pkg/constvars"
	"github.com/nqluong/appointment-project-sub001/internal/pkg/exceptions"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	EventPaymentCompleted = "payment.completed"
	EventPaymentRefunded  = "payment.refunded"
)

// NotificationMessage is the payload stored in RabbitMQ for one payment event.
type NotificationMessage struct {
	ID             string    `json:"id"`
	EventType      string    `json:"event_type"`
	PaymentID      string    `json:"payment_id"`
	AppointmentID  string    `json:"appointment_id"`
	TransactionRef string    `json:"transaction_ref"`
	Amount         string    `json:"amount"`
	OccurredAt     time.Time `json:"occurred_at"`
	FailedCount    int       `json:"failed_count"`
}

// Service manages the durable notification queue and its dead-letter queue.
type Service struct {
	ch        *amqp.Channel
	log       *zap.Logger
	queueName string
	dlqName   string
	confirms  chan amqp.Confirmation
	mu        sync.Mutex
}

// NewService declares both durable queues, enables publisher confirms, and
// sets QoS so the delivery worker never holds more than prefetch unacked.
func NewService(conn *amqp.Connection, log *zap.Logger, queueName, dlqName string, prefetch int) (*Service, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, err
	}

	for _, name := range []string{queueName, dlqName} {
		_, err = ch.QueueDeclare(
			name,  // name
			true,  // durable
			false, // autoDelete
			false, // exclusive
			false, // noWait
			nil,   // args
		)
		if err != nil {
			return nil, err
		}
	}

	if prefetch <= 0 {
		prefetch = 1
	}
	if err := ch.Qos(prefetch, 0, false); err != nil {
		return nil, err
	}

	if err := ch.Confirm(false); err != nil {
		return nil, err
	}

	return &Service{
		ch:        ch,
		log:       log,
		queueName: queueName,
		dlqName:   dlqName,
		confirms:  ch.NotifyPublish(make(chan amqp.Confirmation, 1)),
	}, nil
}

// QueuedItem is one fetched delivery with its decoded payload.
type QueuedItem struct {
	DeliveryTag uint64
	Message     NotificationMessage
}

// Enqueue publishes a message to the notification queue with persistence and
// waits for the broker confirm.
func (s *Service) Enqueue(ctx context.Context, message *NotificationMessage) error {
	requestID, _ := ctx.Value(constvars.CONTEXT_REQUEST_ID_KEY).(string)
	s.log.Info("NotifyQueue.Enqueue called",
		zap.String(constvars.LoggingRequestIDKey, requestID),
		zap.String(constvars.LoggingPaymentIDKey, message.PaymentID),
	)
	return s.publish(ctx, s.queueName, message)
}

// EnqueueToDeadQueue moves a message that exhausted its retries to the DLQ.
func (s *Service) EnqueueToDeadQueue(ctx context.Context, message *NotificationMessage) error {
	requestID, _ := ctx.Value(constvars.CONTEXT_REQUEST_ID_KEY).(string)
	s.log.Info("NotifyQueue.EnqueueToDeadQueue called",
		zap.String(constvars.LoggingRequestIDKey, requestID),
		zap.String(constvars.LoggingPaymentIDKey, message.PaymentID),
	)
	return s.publish(ctx, s.dlqName, message)
}

// FetchN retrieves up to n messages using basic.get without auto-ack.
func (s *Service) FetchN(ctx context.Context, n int) ([]QueuedItem, error) {
	if n <= 0 {
		n = 1
	}
	items := make([]QueuedItem, 0, n)

	for i := 0; i < n; i++ {
		delivery, ok, err := s.ch.Get(s.queueName, false)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		var payload NotificationMessage
		if err := json.Unmarshal(delivery.Body, &payload); err != nil {
			// Invalid JSON goes straight to the DLQ to avoid a poison loop.
			_ = delivery.Ack(false)
			_ = s.publishRaw(ctx, s.dlqName, delivery.Body)
			continue
		}
		items = append(items, QueuedItem{DeliveryTag: delivery.DeliveryTag, Message: payload})
	}

	return items, nil
}

// AckMessage acknowledges a delivery so it is removed from the queue.
func (s *Service) AckMessage(deliveryTag uint64) error {
	return s.ch.Ack(deliveryTag, false)
}

func (s *Service) publish(ctx context.Context, queue string, message *NotificationMessage) error {
	body, err := json.Marshal(message)
	if err != nil {
		return exceptions.ErrCannotMarshalJSON(err)
	}
	return s.publishRaw(ctx, queue, body)
}

func (s *Service) publishRaw(ctx context.Context, queue string, body []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg := amqp.Publishing{
		ContentType:  constvars.MIMEApplicationJSON,
		Body:         body,
		DeliveryMode: amqp.Persistent,
	}
	if err := s.ch.PublishWithContext(ctx, "", queue, false, false, msg); err != nil {
		return exceptions.ErrRabbitMQPublishMessage(err, queue)
	}

	select {
	case confirmed := <-s.confirms:
		if !confirmed.Ack {
			return exceptions.ErrRabbitMQPublishMessage(fmt.Errorf("message not confirmed"), queue)
		}
	case <-ctx.Done():
		return exceptions.ErrRabbitMQPublishMessage(ctx.Err(), queue)
	}
	return nil
}
