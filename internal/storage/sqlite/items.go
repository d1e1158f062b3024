package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/tabkeeper/internal/models"
	"github.com/mmynk/tabkeeper/internal/storage"
)

// CreateItem persists a new catalog item.
func (s *SQLiteStore) CreateItem(ctx context.Context, item *models.CatalogItem) error {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO items (id, user_id, name, description, price, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		item.ID, item.OwnerID, item.Name, item.Description, item.Price.String(), toMillis(item.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert item: %w", err)
	}

	return nil
}

// GetItem retrieves a catalog item by ID, scoped to its owner.
func (s *SQLiteStore) GetItem(ctx context.Context, ownerID, id string) (*models.CatalogItem, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, description, price, created_at FROM items WHERE id = ? AND user_id = ?`,
		id, ownerID,
	)

	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}

	return item, nil
}

// ListItems retrieves an owner's catalog items, newest first.
func (s *SQLiteStore) ListItems(ctx context.Context, ownerID string) ([]*models.CatalogItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, name, description, price, created_at
		 FROM items WHERE user_id = ? ORDER BY created_at DESC, rowid DESC`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer rows.Close()

	var items []*models.CatalogItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate items: %w", err)
	}

	return items, nil
}

// DeleteItem removes a catalog item owned by ownerID.
func (s *SQLiteStore) DeleteItem(ctx context.Context, ownerID, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM items WHERE id = ? AND user_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}

	return nil
}

func scanItem(row rowScanner) (*models.CatalogItem, error) {
	item := &models.CatalogItem{}
	var (
		price     sql.NullString
		createdAt int64
	)

	if err := row.Scan(&item.ID, &item.OwnerID, &item.Name, &item.Description, &price, &createdAt); err != nil {
		return nil, err
	}

	var err error
	if item.Price, err = parseDecimal("price", price); err != nil {
		return nil, err
	}
	item.CreatedAt = fromMillis(createdAt)

	return item, nil
}
