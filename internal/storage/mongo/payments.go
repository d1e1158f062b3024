package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mmynk/tabkeeper/internal/models"
	"github.com/mmynk/tabkeeper/internal/storage"
)

// CreatePayment inserts a new payment document.
func (s *MongoStore) CreatePayment(ctx context.Context, p *models.Payment) error {
	txID, err := objectID(p.TransactionID)
	if err != nil {
		return fmt.Errorf("payment transaction %q: %w", p.TransactionID, err)
	}
	amount, err := toDecimal128(p.Amount)
	if err != nil {
		return err
	}

	oid := primitive.NewObjectID()
	p.ID = oid.Hex()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}

	doc := bson.D{
		{Key: "_id", Value: oid},
		{Key: "userId", Value: p.OwnerID},
		{Key: "transactionId", Value: txID},
		{Key: "itemName", Value: p.ItemName},
		{Key: "amount", Value: amount},
		{Key: "date", Value: p.Date},
		{Key: "note", Value: p.Note},
		{Key: "createdAt", Value: p.CreatedAt},
	}
	if p.AllocationID != "" {
		doc = append(doc, bson.E{Key: "allocationId", Value: p.AllocationID})
	}
	_, err = s.payments.InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		return storage.ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to insert payment: %w", err)
	}

	return nil
}

// FindPayments retrieves an owner's payments, newest first.
func (s *MongoStore) FindPayments(ctx context.Context, ownerID string, q storage.PaymentQuery) ([]*models.Payment, error) {
	filter := bson.D{{Key: "userId", Value: ownerID}}
	if q.TransactionID != "" {
		txID, err := objectID(q.TransactionID)
		if err != nil {
			return nil, nil
		}
		filter = append(filter, bson.E{Key: "transactionId", Value: txID})
	}

	cur, err := s.payments.Find(ctx, filter, options.Find().SetSort(newestFirst))
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	defer cur.Close(ctx)

	var payments []*models.Payment
	for cur.Next(ctx) {
		var doc paymentDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode payment: %w", err)
		}
		p, err := doc.toModel()
		if err != nil {
			return nil, fmt.Errorf("payment %s: %w", doc.ID.Hex(), err)
		}
		payments = append(payments, p)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate payments: %w", err)
	}

	return payments, nil
}
