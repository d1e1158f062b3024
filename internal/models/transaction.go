package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status is the settlement state of a Transaction.
// It is always derived from Paid and Total and never set by a client.
type Status string

const (
	StatusUnsettled Status = "unsettled"
	StatusSettled   Status = "settled"
)

// Transaction represents a purchase recorded on credit.
type Transaction struct {
	// ID is assigned by the store and never changes.
	ID string

	// OwnerID is the user who recorded the transaction.
	OwnerID string

	// ItemID optionally links the transaction to a CatalogItem.
	ItemID string

	// ItemName is the free-text label of what was bought. Always present.
	ItemName string

	// Price is the unit price.
	Price decimal.Decimal

	// Quantity is the number of units bought.
	Quantity int64

	// Total is Price × Quantity, computed once at creation.
	Total decimal.Decimal

	// Paid is the sum of all accepted payments. Zero for records written
	// before the field existed.
	Paid decimal.Decimal

	Status Status

	// Date is when the purchase happened.
	Date time.Time

	Note string

	CreatedAt time.Time

	// LastPaymentDate is the applied date of the most recent payment.
	// Zero if nothing has been paid.
	LastPaymentDate time.Time

	// Version is incremented by the store on every paid update and is used
	// as the optimistic concurrency token.
	Version int64
}
