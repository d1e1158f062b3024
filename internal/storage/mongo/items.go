package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mmynk/tabkeeper/internal/models"
	"github.com/mmynk/tabkeeper/internal/storage"
)

// CreateItem inserts a new catalog item.
func (s *MongoStore) CreateItem(ctx context.Context, item *models.CatalogItem) error {
	price, err := toDecimal128(item.Price)
	if err != nil {
		return err
	}

	oid := primitive.NewObjectID()
	item.ID = oid.Hex()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}

	_, err = s.items.InsertOne(ctx, bson.D{
		{Key: "_id", Value: oid},
		{Key: "userId", Value: item.OwnerID},
		{Key: "name", Value: item.Name},
		{Key: "description", Value: item.Description},
		{Key: "price", Value: price},
		{Key: "createdAt", Value: item.CreatedAt},
	})
	if err != nil {
		return fmt.Errorf("failed to insert item: %w", err)
	}

	return nil
}

// GetItem retrieves a catalog item by ID, scoped to its owner.
func (s *MongoStore) GetItem(ctx context.Context, ownerID, id string) (*models.CatalogItem, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}

	var doc itemDoc
	err = s.items.FindOne(ctx, bson.D{{Key: "_id", Value: oid}, {Key: "userId", Value: ownerID}}).Decode(&doc)
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", notFound(err))
	}

	return doc.toModel()
}

// ListItems retrieves an owner's catalog items, newest first.
func (s *MongoStore) ListItems(ctx context.Context, ownerID string) ([]*models.CatalogItem, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := s.items.Find(ctx, bson.D{{Key: "userId", Value: ownerID}}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer cur.Close(ctx)

	var items []*models.CatalogItem
	for cur.Next(ctx) {
		var doc itemDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode item: %w", err)
		}
		item, err := doc.toModel()
		if err != nil {
			return nil, fmt.Errorf("item %s: %w", doc.ID.Hex(), err)
		}
		items = append(items, item)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate items: %w", err)
	}

	return items, nil
}

// DeleteItem removes a catalog item owned by ownerID.
func (s *MongoStore) DeleteItem(ctx context.Context, ownerID, id string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}

	res, err := s.items.DeleteOne(ctx, bson.D{{Key: "_id", Value: oid}, {Key: "userId", Value: ownerID}})
	if err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}
	if res.DeletedCount == 0 {
		return storage.ErrNotFound
	}

	return nil
}
