package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment records money applied against one Transaction.
// Payments are append-only.
type Payment struct {
	ID            string
	OwnerID       string
	TransactionID string

	// ItemName is copied from the transaction so history can be rendered
	// without a join.
	ItemName string

	// AllocationID identifies the allocation that produced the payment. A
	// payment restored by reconciliation carries the ID of the allocation
	// it stands in for, so the same allocation is never recorded twice.
	AllocationID string

	Amount    decimal.Decimal
	Date      time.Time
	Note      string
	CreatedAt time.Time
}
