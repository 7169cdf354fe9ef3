package contracts

import (
	"context"

	"github.com/nqluong/appointment-project-sub001/internal/app/models"
)

// SlotRepository toggles slot availability. Release is idempotent: releasing
// an already-available slot is a no-op, not an error.
type SlotRepository interface {
	FindByID(ctx context.Context, slotID string) (*models.Slot, error)
	Hold(ctx context.Context, slotID string) error
	Release(ctx context.Context, slotID string) error
}
