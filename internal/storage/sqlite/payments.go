package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/tabkeeper/internal/models"
	"github.com/mmynk/tabkeeper/internal/storage"
)

// CreatePayment persists a new payment to the database.
func (s *SQLiteStore) CreatePayment(ctx context.Context, p *models.Payment) error {
	// Generate ID if not set
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO payments (id, user_id, transaction_id, item_name, allocation_id, amount, date, note, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.OwnerID, p.TransactionID, p.ItemName, nullString(p.AllocationID), p.Amount.String(),
		toMillis(p.Date), nullString(p.Note), toMillis(p.CreatedAt),
	)
	if isUniqueViolation(err) {
		return storage.ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to insert payment: %w", err)
	}

	return nil
}

// FindPayments retrieves an owner's payments, newest first.
func (s *SQLiteStore) FindPayments(ctx context.Context, ownerID string, q storage.PaymentQuery) ([]*models.Payment, error) {
	query := `SELECT id, user_id, transaction_id, item_name, allocation_id, amount, date, note, created_at
		FROM payments WHERE user_id = ?`
	args := []any{ownerID}
	if q.TransactionID != "" {
		query += ` AND transaction_id = ?`
		args = append(args, q.TransactionID)
	}
	query += ` ORDER BY date DESC, rowid ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	defer rows.Close()

	var payments []*models.Payment
	for rows.Next() {
		p := &models.Payment{}
		var (
			allocationID    sql.NullString
			amount, note    sql.NullString
			date, createdAt int64
		)

		if err := rows.Scan(&p.ID, &p.OwnerID, &p.TransactionID, &p.ItemName, &allocationID, &amount,
			&date, &note, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}

		if p.Amount, err = parseDecimal("amount", amount); err != nil {
			return nil, err
		}
		p.AllocationID = allocationID.String
		p.Note = note.String
		p.Date = fromMillis(date)
		p.CreatedAt = fromMillis(createdAt)

		payments = append(payments, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate payments: %w", err)
	}

	return payments, nil
}
