package contracts

import (
	"context"

	"github.com/nqluong/appointment-project-sub001/internal/app/models"
)

// NotificationPublisher emits fire-and-forget payment events. A publish
// failure must never roll back the payment state transition that caused it.
type NotificationPublisher interface {
	PublishPaymentCompleted(ctx context.Context, payment *models.Payment) error
	PublishPaymentRefunded(ctx context.Context, payment *models.Payment) error
}
