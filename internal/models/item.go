package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CatalogItem is a reusable item used to prefill new transactions.
type CatalogItem struct {
	ID          string
	OwnerID     string
	Name        string
	Description string
	Price       decimal.Decimal
	CreatedAt   time.Time
}
