// Package mongo provides a MongoDB-backed implementation of the storage.Store
// interface. Collection and field names match the documents written by
// earlier versions of the application so existing data and external
// reporting tools keep working.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/mmynk/tabkeeper/internal/storage"
)

const (
	collTransactions = "transactions"
	collPayments     = "payments"
	collItems        = "items"
	collUsers        = "users"
)

// Ensure MongoStore implements storage.Store
var _ storage.Store = (*MongoStore)(nil)

// MongoStore implements storage.Store using MongoDB.
type MongoStore struct {
	client       *mongo.Client
	transactions *mongo.Collection
	payments     *mongo.Collection
	items        *mongo.Collection
	users        *mongo.Collection
}

// New connects to MongoDB, verifies the connection and ensures indexes.
// timeout bounds every operation issued through the client.
func New(ctx context.Context, uri, database string, timeout time.Duration) (*MongoStore, error) {
	opts := options.Client().ApplyURI(uri)
	if timeout > 0 {
		opts.SetTimeout(timeout)
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	db := client.Database(database)
	s := &MongoStore{
		client:       client,
		transactions: db.Collection(collTransactions),
		payments:     db.Collection(collPayments),
		items:        db.Collection(collItems),
		users:        db.Collection(collUsers),
	}

	if err := s.ensureIndexes(ctx); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to create indexes: %w", err)
	}

	return s, nil
}

// Close disconnects the client.
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	if _, err := s.transactions.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "date", Value: -1}}},
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "status", Value: 1}}},
	}); err != nil {
		return fmt.Errorf("transactions: %w", err)
	}

	// Payments written before allocation IDs have none.
	uniqueAllocation := options.Index().
		SetUnique(true).
		SetPartialFilterExpression(bson.D{{Key: "allocationId", Value: bson.D{{Key: "$exists", Value: true}}}})
	if _, err := s.payments.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "date", Value: -1}}},
		{Keys: bson.D{{Key: "transactionId", Value: 1}}},
		{Keys: bson.D{{Key: "allocationId", Value: 1}}, Options: uniqueAllocation},
	}); err != nil {
		return fmt.Errorf("payments: %w", err)
	}

	if _, err := s.items.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}},
	}); err != nil {
		return fmt.Errorf("items: %w", err)
	}

	if _, err := s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("users: %w", err)
	}

	return nil
}

// objectID parses a hex ID. An unparseable ID cannot name any document, so
// it is reported as not found.
func objectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, storage.ErrNotFound
	}
	return oid, nil
}

func notFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return storage.ErrNotFound
	}
	return err
}

// newestFirst orders by date descending; ObjectIDs grow with insertion
// time so they break ties in insertion order.
var newestFirst = bson.D{{Key: "date", Value: -1}, {Key: "_id", Value: 1}}
