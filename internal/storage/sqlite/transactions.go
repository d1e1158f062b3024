package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mmynk/tabkeeper/internal/models"
	"github.com/mmynk/tabkeeper/internal/storage"
)

const transactionColumns = `id, user_id, item_id, item_name, price, quantity, total, paid, status,
	date, note, created_at, last_payment_date, version`

// CreateTransaction persists a new transaction to the database.
func (s *SQLiteStore) CreateTransaction(ctx context.Context, tx *models.Transaction) error {
	if tx.ID == "" {
		tx.ID = uuid.New().String()
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}
	if tx.Status == "" {
		tx.Status = models.StatusUnsettled
	}
	tx.Version = 0

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO transactions (`+transactionColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, tx.OwnerID, nullString(tx.ItemID), tx.ItemName,
		tx.Price.String(), tx.Quantity, tx.Total.String(), tx.Paid.String(), string(tx.Status),
		toMillis(tx.Date), nullString(tx.Note), toMillis(tx.CreatedAt), nullMillis(tx.LastPaymentDate), tx.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}

	return nil
}

// GetTransaction retrieves a transaction by ID, scoped to its owner.
func (s *SQLiteStore) GetTransaction(ctx context.Context, ownerID, id string) (*models.Transaction, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ? AND user_id = ?`,
		id, ownerID,
	)

	tx, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	return tx, nil
}

// FindTransactions lists an owner's transactions, newest first.
func (s *SQLiteStore) FindTransactions(ctx context.Context, ownerID string, q storage.TransactionQuery) ([]*models.Transaction, error) {
	where, args := transactionFilter(ownerID, q)
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE ` + where +
		` ORDER BY date DESC, rowid ASC`
	if q.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var txs []*models.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}

	return txs, nil
}

// CountTransactions counts an owner's transactions matching q.
func (s *SQLiteStore) CountTransactions(ctx context.Context, ownerID string, q storage.TransactionQuery) (int64, error) {
	where, args := transactionFilter(ownerID, q)

	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions WHERE `+where, args...).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}

	return n, nil
}

// SumOutstanding sums total − paid over the owner's unsettled transactions.
// SQLite has no exact decimal type, so the amounts are summed here rather
// than with SUM().
func (s *SQLiteStore) SumOutstanding(ctx context.Context, ownerID string) (decimal.Decimal, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT total, paid FROM transactions WHERE user_id = ? AND status <> ?`,
		ownerID, string(models.StatusSettled),
	)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to query outstanding: %w", err)
	}
	defer rows.Close()

	sum := decimal.Zero
	for rows.Next() {
		var total, paid sql.NullString
		if err := rows.Scan(&total, &paid); err != nil {
			return decimal.Zero, fmt.Errorf("failed to scan outstanding: %w", err)
		}
		t, err := parseDecimal("total", total)
		if err != nil {
			return decimal.Zero, err
		}
		p, err := parseDecimal("paid", paid)
		if err != nil {
			return decimal.Zero, err
		}
		sum = sum.Add(t.Sub(p))
	}
	if err := rows.Err(); err != nil {
		return decimal.Zero, fmt.Errorf("failed to iterate outstanding: %w", err)
	}

	return sum, nil
}

// UpdatePaid applies a paid update only if the stored version still matches.
func (s *SQLiteStore) UpdatePaid(ctx context.Context, u storage.PaidUpdate) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE transactions
		 SET paid = ?, status = ?, last_payment_date = ?, version = version + 1
		 WHERE id = ? AND user_id = ? AND version = ?`,
		u.Paid.String(), string(u.Status), nullMillis(u.LastPaymentDate),
		u.ID, u.OwnerID, u.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update transaction: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return storage.ErrVersionConflict
	}

	return nil
}

func transactionFilter(ownerID string, q storage.TransactionQuery) (string, []any) {
	where := []string{"user_id = ?"}
	args := []any{ownerID}

	switch q.Status {
	case storage.OnlyUnsettled:
		where = append(where, "status <> ?")
		args = append(args, string(models.StatusSettled))
	case storage.OnlySettled:
		where = append(where, "status = ?")
		args = append(args, string(models.StatusSettled))
	}
	if !q.From.IsZero() {
		where = append(where, "date >= ?")
		args = append(args, toMillis(q.From))
	}
	if !q.To.IsZero() {
		where = append(where, "date <= ?")
		args = append(args, toMillis(q.To))
	}

	return strings.Join(where, " AND "), args
}

func scanTransaction(row rowScanner) (*models.Transaction, error) {
	tx := &models.Transaction{}
	var (
		itemID, note       sql.NullString
		price, total, paid sql.NullString
		status             string
		date, createdAt    int64
		lastPaymentDate    sql.NullInt64
	)

	if err := row.Scan(&tx.ID, &tx.OwnerID, &itemID, &tx.ItemName, &price, &tx.Quantity, &total, &paid, &status,
		&date, &note, &createdAt, &lastPaymentDate, &tx.Version); err != nil {
		return nil, err
	}

	var err error
	if tx.Price, err = parseDecimal("price", price); err != nil {
		return nil, err
	}
	if tx.Total, err = parseDecimal("total", total); err != nil {
		return nil, err
	}
	if tx.Paid, err = parseDecimal("paid", paid); err != nil {
		return nil, err
	}

	tx.ItemID = itemID.String
	tx.Note = note.String
	tx.Status = models.Status(status)
	tx.Date = fromMillis(date)
	tx.CreatedAt = fromMillis(createdAt)
	if lastPaymentDate.Valid {
		tx.LastPaymentDate = fromMillis(lastPaymentDate.Int64)
	}

	return tx, nil
}
