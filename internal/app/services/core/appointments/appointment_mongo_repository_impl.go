package appointments

import (
	"context"
	"sync"
	"time"

	"github.com/nqluong/appointment-project-sub001/internal/app/contracts"
	"github.com/nqluong/appointment-project-sub001/internal/app/models"
	"github.com/nqluong/appointment-project-sub001/internal/pkg/constvars"
	"github.com/nqluong/appointment-project-sub001/internal/pkg/exceptions"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	appointmentMongoRepositoryInstance contracts.AppointmentRepository
	onceAppointmentMongoRepository     sync.Once
)

type appointmentDocument struct {
	ID              string    `bson:"_id"`
	Status          string    `bson:"status"`
	SlotID          string    `bson:"slot_id"`
	ConsultationFee string    `bson:"consultation_fee"`
	StartTime       time.Time `bson:"start_time"`
	CancelReason    string    `bson:"cancel_reason,omitempty"`
	CreatedAt       time.Time `bson:"created_at"`
	UpdatedAt       time.Time `bson:"updated_at"`
}

type AppointmentMongoRepository struct {
	Collection *mongo.Collection
}

func NewAppointmentMongoRepository(db *mongo.Database) contracts.AppointmentRepository {
	onceAppointmentMongoRepository.Do(func() {
		appointmentMongoRepositoryInstance = &AppointmentMongoRepository{
			Collection: db.Collection(constvars.MongoCollectionAppointments),
		}
	})
	return appointmentMongoRepositoryInstance
}

func (r *AppointmentMongoRepository) FindByID(ctx context.Context, appointmentID string) (*models.Appointment, error) {
	var doc appointmentDocument
	err := r.Collection.FindOne(ctx, bson.M{"_id": appointmentID}).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, exceptions.ErrMongoDBFindDocument(err)
	}
	return toAppointmentModel(&doc)
}

func (r *AppointmentMongoRepository) FindPendingCreatedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Appointment, error) {
	filter := bson.M{
		"status":     string(models.AppointmentStatusPending),
		"created_at": bson.M{"$lt": cutoff},
	}
	findOptions := options.Find().SetSort(bson.M{"created_at": 1})
	if limit > 0 {
		findOptions.SetLimit(int64(limit))
	}

	cursor, err := r.Collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, exceptions.ErrMongoDBFindDocument(err)
	}
	defer cursor.Close(ctx)

	appointments := make([]models.Appointment, 0)
	for cursor.Next(ctx) {
		var doc appointmentDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, exceptions.ErrMongoDBIterateDocuments(err)
		}
		appointment, err := toAppointmentModel(&doc)
		if err != nil {
			return nil, err
		}
		appointments = append(appointments, *appointment)
	}
	if err := cursor.Err(); err != nil {
		return nil, exceptions.ErrMongoDBIterateDocuments(err)
	}
	return appointments, nil
}

// UpdateStatusIf applies the status change behind the same compare-and-set
// guard the payment store uses. (nil, nil) means another actor already moved
// the appointment out of fromStatuses.
func (r *AppointmentMongoRepository) UpdateStatusIf(ctx context.Context, appointmentID string, fromStatuses []models.AppointmentStatus, to models.AppointmentStatus, reason string) (*models.Appointment, error) {
	statuses := make([]string, 0, len(fromStatuses))
	for _, status := range fromStatuses {
		statuses = append(statuses, string(status))
	}
	filter := bson.M{
		"_id":    appointmentID,
		"status": bson.M{"$in": statuses},
	}
	set := bson.M{
		"status":     string(to),
		"updated_at": time.Now().UTC(),
	}
	if reason != "" {
		set["cancel_reason"] = reason
	}

	var doc appointmentDocument
	err := r.Collection.FindOneAndUpdate(
		ctx,
		filter,
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, exceptions.ErrMongoDBUpdateDocument(err)
	}
	return toAppointmentModel(&doc)
}

func toAppointmentModel(doc *appointmentDocument) (*models.Appointment, error) {
	fee, err := decimal.NewFromString(doc.ConsultationFee)
	if err != nil {
		return nil, exceptions.ErrMongoDBFindDocument(err)
	}
	return &models.Appointment{
		ID:              doc.ID,
		Status:          models.AppointmentStatus(doc.Status),
		SlotID:          doc.SlotID,
		ConsultationFee: fee,
		StartTime:       doc.StartTime,
		CancelReason:    doc.CancelReason,
		CreatedAt:       doc.CreatedAt,
		UpdatedAt:       doc.UpdatedAt,
	}, nil
}
