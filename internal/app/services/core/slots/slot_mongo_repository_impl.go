package slots

import (
	"context"
	"sync"
	"time"

	"github.com/nqluong/appointment-project-sub001/internal/app/contracts"
	"github.com/nqluong/appointment-project-sub001/internal/app/models"
	"github.com/nqluong/appointment-project-sub001/internal/pkg/constvars"
	"github.com/nqluong/appointment-project-sub001/internal/pkg/exceptions"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

var (
	slotMongoRepositoryInstance contracts.SlotRepository
	onceSlotMongoRepository     sync.Once
)

type slotDocument struct {
	ID        string    `bson:"_id"`
	DoctorID  string    `bson:"doctor_id"`
	Start     time.Time `bson:"start"`
	End       time.Time `bson:"end"`
	Available bool      `bson:"available"`
	UpdatedAt time.Time `bson:"updated_at"`
}

type SlotMongoRepository struct {
	Collection *mongo.Collection
}

func NewSlotMongoRepository(db *mongo.Database) contracts.SlotRepository {
	onceSlotMongoRepository.Do(func() {
		slotMongoRepositoryInstance = &SlotMongoRepository{
			Collection: db.Collection(constvars.MongoCollectionSlots),
		}
	})
	return slotMongoRepositoryInstance
}

func (r *SlotMongoRepository) FindByID(ctx context.Context, slotID string) (*models.Slot, error) {
	var doc slotDocument
	err := r.Collection.FindOne(ctx, bson.M{"_id": slotID}).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, exceptions.ErrMongoDBFindDocument(err)
	}
	return &models.Slot{
		ID:        doc.ID,
		DoctorID:  doc.DoctorID,
		Start:     doc.Start,
		End:       doc.End,
		Available: doc.Available,
		UpdatedAt: doc.UpdatedAt,
	}, nil
}

func (r *SlotMongoRepository) Hold(ctx context.Context, slotID string) error {
	return r.setAvailability(ctx, slotID, false)
}

// Release is idempotent. Releasing a slot that is already available matches
// zero documents and that is fine.
func (r *SlotMongoRepository) Release(ctx context.Context, slotID string) error {
	return r.setAvailability(ctx, slotID, true)
}

func (r *SlotMongoRepository) setAvailability(ctx context.Context, slotID string, available bool) error {
	update := bson.M{"$set": bson.M{
		"available":  available,
		"updated_at": time.Now().UTC(),
	}}
	_, err := r.Collection.UpdateOne(ctx, bson.M{"_id": slotID}, update)
	if err != nil {
		return exceptions.ErrMongoDBUpdateDocument(err)
	}
	return nil
}
