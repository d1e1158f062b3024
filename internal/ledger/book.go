package ledger

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/tabkeeper/internal/calculator"
	"github.com/mmynk/tabkeeper/internal/models"
	"github.com/mmynk/tabkeeper/internal/storage"
)

// BookStore is the subset of storage.Store used for book-keeping.
type BookStore interface {
	CreateTransaction(ctx context.Context, tx *models.Transaction) error
	FindTransactions(ctx context.Context, ownerID string, q storage.TransactionQuery) ([]*models.Transaction, error)
	CreateItem(ctx context.Context, item *models.CatalogItem) error
	GetItem(ctx context.Context, ownerID, id string) (*models.CatalogItem, error)
	ListItems(ctx context.Context, ownerID string) ([]*models.CatalogItem, error)
	DeleteItem(ctx context.Context, ownerID, id string) error
}

// Book records transactions and manages the catalog.
type Book struct {
	store BookStore
	loc   *time.Location
	now   func() time.Time
}

// NewTransaction is a request to record a purchase on credit.
//
// When ItemID names a catalog item, an empty ItemName and an unset Price
// are taken from the item.
type NewTransaction struct {
	ItemID   string
	ItemName string
	Price    decimal.NullDecimal
	Quantity int64

	// Date is parsed with ParseDate; empty means now.
	Date string
	Note string
}

// NewItem is a request to add a catalog item.
type NewItem struct {
	Name        string
	Description string
	Price       decimal.Decimal
}

func NewBook(store BookStore, loc *time.Location) *Book {
	if loc == nil {
		loc = time.Local
	}
	return &Book{store: store, loc: loc, now: time.Now}
}

// RecordTransaction validates req and stores a new unsettled transaction
// with nothing paid. Total is fixed here and never recomputed.
func (b *Book) RecordTransaction(ctx context.Context, ownerID string, req NewTransaction) (*models.Transaction, error) {
	name := strings.TrimSpace(req.ItemName)
	price := req.Price

	if req.ItemID != "" {
		item, err := b.store.GetItem(ctx, ownerID, req.ItemID)
		if err != nil {
			return nil, fromStore("get item", "item", req.ItemID, err)
		}
		if name == "" {
			name = item.Name
		}
		if !price.Valid {
			price = decimal.NewNullDecimal(item.Price)
		}
	}

	if name == "" {
		return nil, invalidInput("item name is required")
	}
	if !price.Valid {
		return nil, invalidInput("price is required")
	}
	if price.Decimal.IsNegative() {
		return nil, invalidInput("price must not be negative")
	}
	if req.Quantity <= 0 {
		return nil, invalidInput("quantity must be greater than 0")
	}

	date, err := ParseDate(req.Date, b.loc, b.now())
	if err != nil {
		return nil, err
	}

	tx := &models.Transaction{
		OwnerID:  ownerID,
		ItemID:   req.ItemID,
		ItemName: name,
		Price:    price.Decimal,
		Quantity: req.Quantity,
		Total:    calculator.NewTotal(price.Decimal, req.Quantity),
		Paid:     decimal.Zero,
		Date:     date,
		Note:     strings.TrimSpace(req.Note),
	}
	tx.Status = calculator.StatusFor(tx.Total, tx.Paid)

	if err := b.store.CreateTransaction(ctx, tx); err != nil {
		return nil, fromStore("create transaction", "transaction", "", err)
	}

	slog.InfoContext(ctx, "Transaction recorded",
		"transaction_id", tx.ID,
		"user_id", ownerID,
		"total", tx.Total.String())

	return tx, nil
}

// ListTransactions returns all of the owner's transactions, newest first.
func (b *Book) ListTransactions(ctx context.Context, ownerID string) ([]*models.Transaction, error) {
	txs, err := b.store.FindTransactions(ctx, ownerID, storage.TransactionQuery{})
	if err != nil {
		return nil, fromStore("find transactions", "owner", ownerID, err)
	}
	return txs, nil
}

func (b *Book) CreateItem(ctx context.Context, ownerID string, req NewItem) (*models.CatalogItem, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, invalidInput("item name is required")
	}
	if req.Price.IsNegative() {
		return nil, invalidInput("price must not be negative")
	}

	item := &models.CatalogItem{
		OwnerID:     ownerID,
		Name:        name,
		Description: strings.TrimSpace(req.Description),
		Price:       req.Price,
	}
	if err := b.store.CreateItem(ctx, item); err != nil {
		return nil, fromStore("create item", "item", "", err)
	}

	return item, nil
}

// ListItems returns the owner's catalog, newest first.
func (b *Book) ListItems(ctx context.Context, ownerID string) ([]*models.CatalogItem, error) {
	items, err := b.store.ListItems(ctx, ownerID)
	if err != nil {
		return nil, fromStore("list items", "owner", ownerID, err)
	}
	return items, nil
}

// DeleteItem removes a catalog item. Missing and foreign items are both
// NotFound. Transactions that referenced the item keep their copied fields.
func (b *Book) DeleteItem(ctx context.Context, ownerID, id string) error {
	if err := b.store.DeleteItem(ctx, ownerID, id); err != nil {
		return fromStore("delete item", "item", id, err)
	}
	return nil
}
