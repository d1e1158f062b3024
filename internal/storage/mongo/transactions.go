package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mmynk/tabkeeper/internal/models"
	"github.com/mmynk/tabkeeper/internal/storage"
)

var settledStatuses = bson.A{string(models.StatusSettled), legacySettled}

// A document is settled when its status says so or when paid covers total.
// The second clause catches legacy documents with a missing or unknown
// status and must agree with transactionDoc.toModel.
var (
	paidOrZero = bson.D{{Key: "$ifNull", Value: bson.A{"$paid", 0}}}

	unsettledMatch = bson.D{
		{Key: "status", Value: bson.D{{Key: "$nin", Value: settledStatuses}}},
		{Key: "$expr", Value: bson.D{{Key: "$lt", Value: bson.A{paidOrZero, "$total"}}}},
	}

	settledMatch = bson.D{
		{Key: "$or", Value: bson.A{
			bson.D{{Key: "status", Value: bson.D{{Key: "$in", Value: settledStatuses}}}},
			bson.D{{Key: "$expr", Value: bson.D{{Key: "$gte", Value: bson.A{paidOrZero, "$total"}}}}},
		}},
	}
)

// CreateTransaction inserts a new transaction document.
func (s *MongoStore) CreateTransaction(ctx context.Context, tx *models.Transaction) error {
	oid := primitive.NewObjectID()
	tx.ID = oid.Hex()
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}
	if tx.Status == "" {
		tx.Status = models.StatusUnsettled
	}
	tx.Version = 0

	doc, err := transactionToBSON(oid, tx)
	if err != nil {
		return err
	}
	if _, err := s.transactions.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}

	return nil
}

// GetTransaction retrieves a transaction by ID, scoped to its owner.
func (s *MongoStore) GetTransaction(ctx context.Context, ownerID, id string) (*models.Transaction, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}

	var doc transactionDoc
	err = s.transactions.FindOne(ctx, bson.D{{Key: "_id", Value: oid}, {Key: "userId", Value: ownerID}}).Decode(&doc)
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", notFound(err))
	}

	return doc.toModel()
}

// FindTransactions lists an owner's transactions, newest first.
func (s *MongoStore) FindTransactions(ctx context.Context, ownerID string, q storage.TransactionQuery) ([]*models.Transaction, error) {
	opts := options.Find().SetSort(newestFirst)
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}

	cur, err := s.transactions.Find(ctx, transactionFilter(ownerID, q), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer cur.Close(ctx)

	var txs []*models.Transaction
	for cur.Next(ctx) {
		var doc transactionDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode transaction: %w", err)
		}
		tx, err := doc.toModel()
		if err != nil {
			return nil, fmt.Errorf("transaction %s: %w", doc.ID.Hex(), err)
		}
		txs = append(txs, tx)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}

	return txs, nil
}

// CountTransactions counts an owner's transactions matching q.
func (s *MongoStore) CountTransactions(ctx context.Context, ownerID string, q storage.TransactionQuery) (int64, error) {
	n, err := s.transactions.CountDocuments(ctx, transactionFilter(ownerID, q))
	if err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return n, nil
}

// SumOutstanding sums total − paid over the owner's unsettled transactions
// in a single aggregation. A missing paid field counts as zero.
func (s *MongoStore) SumOutstanding(ctx context.Context, ownerID string) (decimal.Decimal, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: append(bson.D{{Key: "userId", Value: ownerID}}, unsettledMatch...)}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "outstanding", Value: bson.D{{Key: "$sum", Value: bson.D{
				{Key: "$subtract", Value: bson.A{
					"$total",
					paidOrZero,
				}},
			}}}},
		}}},
	}

	cur, err := s.transactions.Aggregate(ctx, pipeline)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to aggregate outstanding: %w", err)
	}
	defer cur.Close(ctx)

	if !cur.Next(ctx) {
		if err := cur.Err(); err != nil {
			return decimal.Zero, fmt.Errorf("failed to aggregate outstanding: %w", err)
		}
		return decimal.Zero, nil
	}

	var result struct {
		Outstanding bson.RawValue `bson:"outstanding"`
	}
	if err := cur.Decode(&result); err != nil {
		return decimal.Zero, fmt.Errorf("failed to decode outstanding: %w", err)
	}

	return decimalFromRaw("outstanding", result.Outstanding)
}

// UpdatePaid applies a paid update only if the stored version still matches.
// Documents written before versioning have no version field and match
// version zero.
func (s *MongoStore) UpdatePaid(ctx context.Context, u storage.PaidUpdate) error {
	oid, err := objectID(u.ID)
	if err != nil {
		return err
	}
	paid, err := toDecimal128(u.Paid)
	if err != nil {
		return err
	}

	filter := bson.D{
		{Key: "_id", Value: oid},
		{Key: "userId", Value: u.OwnerID},
	}
	if u.Version == 0 {
		filter = append(filter, bson.E{Key: "version", Value: bson.D{{Key: "$in", Value: bson.A{0, nil}}}})
	} else {
		filter = append(filter, bson.E{Key: "version", Value: u.Version})
	}

	set := bson.D{
		{Key: "paid", Value: paid},
		{Key: "status", Value: string(u.Status)},
	}
	if !u.LastPaymentDate.IsZero() {
		set = append(set, bson.E{Key: "lastPaymentDate", Value: u.LastPaymentDate})
	}
	update := bson.D{
		{Key: "$set", Value: set},
		{Key: "$inc", Value: bson.D{{Key: "version", Value: int64(1)}}},
	}

	res, err := s.transactions.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update transaction: %w", err)
	}
	if res.MatchedCount == 0 {
		return storage.ErrVersionConflict
	}

	return nil
}

func transactionFilter(ownerID string, q storage.TransactionQuery) bson.D {
	filter := bson.D{{Key: "userId", Value: ownerID}}

	switch q.Status {
	case storage.OnlyUnsettled:
		filter = append(filter, unsettledMatch...)
	case storage.OnlySettled:
		filter = append(filter, settledMatch...)
	}

	date := bson.D{}
	if !q.From.IsZero() {
		date = append(date, bson.E{Key: "$gte", Value: q.From})
	}
	if !q.To.IsZero() {
		date = append(date, bson.E{Key: "$lte", Value: q.To})
	}
	if len(date) > 0 {
		filter = append(filter, bson.E{Key: "date", Value: date})
	}

	return filter
}
