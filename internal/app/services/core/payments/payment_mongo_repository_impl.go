package payments

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
	paymentMongoRepositoryInstance contracts.PaymentRepository
	oncePaymentMongoRepository     sync.Once
)

// paymentDocument is the persisted shape. Amounts are stored as decimal
// strings so no precision is lost through BSON.
type paymentDocument struct {
	ID                   string     `bson:"_id"`
	AppointmentID        string     `bson:"appointment_id"`
	Amount               string     `bson:"amount"`
	Currency             string     `bson:"currency"`
	PaymentType          string     `bson:"payment_type"`
	PaymentMethod        string     `bson:"payment_method"`
	Status               string     `bson:"status"`
	TransactionRef       string     `bson:"transaction_ref"`
	GatewayTransactionID string     `bson:"gateway_transaction_id,omitempty"`
	RefundedAmount       string     `bson:"refunded_amount"`
	RefundTransactionID  string     `bson:"refund_transaction_id,omitempty"`
	RefundReason         string     `bson:"refund_reason,omitempty"`
	Notes                string     `bson:"notes,omitempty"`
	CreatedAt            time.Time  `bson:"created_at"`
	UpdatedAt            time.Time  `bson:"updated_at"`
	PaymentDate          *time.Time `bson:"payment_date,omitempty"`
	RefundDate           *time.Time `bson:"refund_date,omitempty"`
}

type PaymentMongoRepository struct {
	Collection *mongo.Collection
}

func NewPaymentMongoRepository(db *mongo.Database) contracts.PaymentRepository {
	oncePaymentMongoRepository.Do(func() {
		paymentMongoRepositoryInstance = &PaymentMongoRepository{
			Collection: db.Collection(constvars.MongoCollectionPayments),
		}
	})
	return paymentMongoRepositoryInstance
}

func (r *PaymentMongoRepository) Create(ctx context.Context, payment *models.Payment) (*models.Payment, error) {
	doc := toPaymentDocument(payment)
	if _, err := r.Collection.InsertOne(ctx, doc); err != nil {
		return nil, exceptions.ErrMongoDBInsertDocument(err)
	}
	return payment, nil
}

func (r *PaymentMongoRepository) FindByID(ctx context.Context, paymentID string) (*models.Payment, error) {
	return r.findOne(ctx, bson.M{"_id": paymentID})
}

func (r *PaymentMongoRepository) FindByTransactionRef(ctx context.Context, transactionRef string) (*models.Payment, error) {
	return r.findOne(ctx, bson.M{"transaction_ref": transactionRef})
}

func (r *PaymentMongoRepository) FindByAppointmentID(ctx context.Context, appointmentID string) ([]models.Payment, error) {
	return r.findMany(ctx, bson.M{"appointment_id": appointmentID}, 0)
}

func (r *PaymentMongoRepository) FindNonTerminalByAppointment(ctx context.Context, appointmentID string) ([]models.Payment, error) {
	filter := bson.M{
		"appointment_id": appointmentID,
		"status": bson.M{"$in": []string{
			string(models.PaymentStatusPending),
			string(models.PaymentStatusProcessing),
		}},
	}
	return r.findMany(ctx, filter, 0)
}

func (r *PaymentMongoRepository) FindActiveByAppointmentAndType(ctx context.Context, appointmentID string, paymentType models.PaymentType) (*models.Payment, error) {
	filter := bson.M{
		"appointment_id": appointmentID,
		"payment_type":   string(paymentType),
		"status": bson.M{"$in": []string{
			string(models.PaymentStatusPending),
			string(models.PaymentStatusProcessing),
			string(models.PaymentStatusCompleted),
		}},
	}
	return r.findOne(ctx, filter)
}

func (r *PaymentMongoRepository) FindProcessingCreatedBetween(ctx context.Context, from, to time.Time, limit int) ([]models.Payment, error) {
	filter := bson.M{
		"status":     string(models.PaymentStatusProcessing),
		"created_at": bson.M{"$gte": from, "$lte": to},
	}
	return r.findMany(ctx, filter, int64(limit))
}

// UpdateStatusIf is the transition guard. Every requested edge must exist in
// the payment state machine, and the status filter and the write are one
// FindOneAndUpdate, so two racing actors can never both win; the loser gets
// (nil, nil) and must treat it as an idempotent no-op.
func (r *PaymentMongoRepository) UpdateStatusIf(ctx context.Context, paymentID string, fromStatuses []models.PaymentStatus, update contracts.PaymentUpdate) (*models.Payment, error) {
	statuses := make([]string, 0, len(fromStatuses))
	for _, status := range fromStatuses {
		if !status.CanTransitionTo(update.Status) {
			return nil, exceptions.ErrInvalidStateTransition(string(status), string(update.Status))
		}
		statuses = append(statuses, string(status))
	}
	filter := bson.M{
		"_id":    paymentID,
		"status": bson.M{"$in": statuses},
	}

	set := bson.M{
		"status":     string(update.Status),
		"updated_at": time.Now().UTC(),
	}
	if update.GatewayTransactionID != nil {
		set["gateway_transaction_id"] = *update.GatewayTransactionID
	}
	if update.PaymentDate != nil {
		set["payment_date"] = *update.PaymentDate
	}
	if update.RefundedAmount != nil {
		set["refunded_amount"] = update.RefundedAmount.String()
	}
	if update.RefundTransactionID != nil {
		set["refund_transaction_id"] = *update.RefundTransactionID
	}
	if update.RefundReason != nil {
		set["refund_reason"] = *update.RefundReason
	}
	if update.RefundDate != nil {
		set["refund_date"] = *update.RefundDate
	}
	if update.Notes != nil {
		set["notes"] = *update.Notes
	}

	var doc paymentDocument
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
	return toPaymentModel(&doc)
}

func (r *PaymentMongoRepository) findOne(ctx context.Context, filter bson.M) (*models.Payment, error) {
	var doc paymentDocument
	err := r.Collection.FindOne(ctx, filter).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, exceptions.ErrMongoDBFindDocument(err)
	}
	return toPaymentModel(&doc)
}

func (r *PaymentMongoRepository) findMany(ctx context.Context, filter bson.M, limit int64) ([]models.Payment, error) {
	findOptions := options.Find().SetSort(bson.M{"created_at": 1})
	if limit > 0 {
		findOptions.SetLimit(limit)
	}
	cursor, err := r.Collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, exceptions.ErrMongoDBFindDocument(err)
	}
	defer cursor.Close(ctx)

	payments := make([]models.Payment, 0)
	for cursor.Next(ctx) {
		var doc paymentDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, exceptions.ErrMongoDBIterateDocuments(err)
		}
		payment, err := toPaymentModel(&doc)
		if err != nil {
			return nil, err
		}
		payments = append(payments, *payment)
	}
	if err := cursor.Err(); err != nil {
		return nil, exceptions.ErrMongoDBIterateDocuments(err)
	}
	return payments, nil
}

func toPaymentDocument(payment *models.Payment) *paymentDocument {
	return &paymentDocument{
		ID:                   payment.ID,
		AppointmentID:        payment.AppointmentID,
		Amount:               payment.Amount.String(),
		Currency:             payment.Currency,
		PaymentType:          string(payment.PaymentType),
		PaymentMethod:        string(payment.PaymentMethod),
		Status:               string(payment.Status),
		TransactionRef:       payment.TransactionRef,
		GatewayTransactionID: payment.GatewayTransactionID,
		RefundedAmount:       payment.RefundedAmount.String(),
		RefundTransactionID:  payment.RefundTransactionID,
		RefundReason:         payment.RefundReason,
		Notes:                payment.Notes,
		CreatedAt:            payment.CreatedAt,
		UpdatedAt:            payment.UpdatedAt,
		PaymentDate:          payment.PaymentDate,
		RefundDate:           payment.RefundDate,
	}
}

func toPaymentModel(doc *paymentDocument) (*models.Payment, error) {
	amount, err := decimal.NewFromString(doc.Amount)
	if err != nil {
		return nil, exceptions.ErrMongoDBFindDocument(err)
	}
	refunded := decimal.Zero
	if doc.RefundedAmount != "" {
		refunded, err = decimal.NewFromString(doc.RefundedAmount)
		if err != nil {
			return nil, exceptions.ErrMongoDBFindDocument(err)
		}
	}
	return &models.Payment{
		ID:                   doc.ID,
		AppointmentID:        doc.AppointmentID,
		Amount:               amount,
		Currency:             doc.Currency,
		PaymentType:          models.PaymentType(doc.PaymentType),
		PaymentMethod:        models.PaymentMethod(doc.PaymentMethod),
		Status:               models.PaymentStatus(doc.Status),
		TransactionRef:       doc.TransactionRef,
		GatewayTransactionID: doc.GatewayTransactionID,
		RefundedAmount:       refunded,
		RefundTransactionID:  doc.RefundTransactionID,
		RefundReason:         doc.RefundReason,
		Notes:                doc.Notes,
		CreatedAt:            doc.CreatedAt,
		UpdatedAt:            doc.UpdatedAt,
		PaymentDate:          doc.PaymentDate,
		RefundDate:           doc.RefundDate,
	}, nil
}
