// Package storage provides abstractions for persistent ledger storage.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/tabkeeper/internal/models"
)

var (
	// ErrNotFound is returned when a record does not exist or is not owned
	// by the requesting user.
	ErrNotFound = errors.New("record not found")

	// ErrVersionConflict is returned by UpdatePaid when the transaction was
	// changed since it was read.
	ErrVersionConflict = errors.New("transaction version conflict")

	// ErrDuplicate is returned when a unique key (such as a user email) is
	// already taken.
	ErrDuplicate = errors.New("duplicate record")
)

// StatusFilter restricts transaction queries by settlement status.
type StatusFilter int

const (
	AnyStatus StatusFilter = iota
	OnlyUnsettled
	OnlySettled
)

// TransactionQuery filters an owner's transactions.
// Results are always ordered by Date descending, ties by insertion order.
type TransactionQuery struct {
	Status StatusFilter

	// From and To bound Date inclusively when non-zero.
	From time.Time
	To   time.Time

	// Limit caps the result size when positive.
	Limit int
}

// PaymentQuery filters an owner's payments.
// Results are ordered by Date descending, ties by insertion order.
type PaymentQuery struct {
	// TransactionID restricts the result to one transaction when set.
	TransactionID string
}

// PaidUpdate is the conditional update applied by the payment allocator.
// It only matches the transaction with the given ID, owner and Version;
// on success the stored version is incremented.
type PaidUpdate struct {
	ID              string
	OwnerID         string
	Version         int64
	Paid            decimal.Decimal
	Status          models.Status
	LastPaymentDate time.Time
}

// TransactionStore persists transactions.
type TransactionStore interface {
	// CreateTransaction persists a new transaction. The ID, CreatedAt and
	// Version fields are populated by the store.
	CreateTransaction(ctx context.Context, tx *models.Transaction) error

	// GetTransaction returns the transaction with the given ID owned by
	// ownerID, or ErrNotFound.
	GetTransaction(ctx context.Context, ownerID, id string) (*models.Transaction, error)

	// FindTransactions returns the owner's transactions matching q.
	FindTransactions(ctx context.Context, ownerID string, q TransactionQuery) ([]*models.Transaction, error)

	// CountTransactions counts the owner's transactions matching q.
	// q.Limit is ignored.
	CountTransactions(ctx context.Context, ownerID string, q TransactionQuery) (int64, error)

	// SumOutstanding returns the sum of total − paid over the owner's
	// unsettled transactions, or zero when there are none.
	SumOutstanding(ctx context.Context, ownerID string) (decimal.Decimal, error)

	// UpdatePaid applies u as a single conditional update. It returns
	// ErrVersionConflict if no transaction matched.
	UpdatePaid(ctx context.Context, u PaidUpdate) error
}

// PaymentStore persists payments. There is no update or delete.
type PaymentStore interface {
	// CreatePayment persists a new payment. ID and CreatedAt are populated
	// by the store. It returns ErrDuplicate if a payment with the same
	// non-empty AllocationID exists.
	CreatePayment(ctx context.Context, p *models.Payment) error

	// FindPayments returns the owner's payments matching q.
	FindPayments(ctx context.Context, ownerID string, q PaymentQuery) ([]*models.Payment, error)
}

// ItemStore persists catalog items.
type ItemStore interface {
	CreateItem(ctx context.Context, item *models.CatalogItem) error
	GetItem(ctx context.Context, ownerID, id string) (*models.CatalogItem, error)

	// ListItems returns the owner's items, newest first.
	ListItems(ctx context.Context, ownerID string) ([]*models.CatalogItem, error)

	// DeleteItem removes the item if it is owned by ownerID, otherwise it
	// returns ErrNotFound.
	DeleteItem(ctx context.Context, ownerID, id string) error
}

// UserStore persists user accounts for the auth provider.
type UserStore interface {
	// CreateUser returns ErrDuplicate if the email is already registered.
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// Store defines the full set of storage operations.
// This abstraction allows swapping storage backends (SQLite, MongoDB)
// without changing the ledger or service layers.
type Store interface {
	TransactionStore
	PaymentStore
	ItemStore
	UserStore

	// Close releases any resources held by the store.
	Close() error
}
