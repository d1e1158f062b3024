package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntryKind tags a HistoryEntry with the record it came from.
type EntryKind string

const (
	EntryTransaction EntryKind = "transaction"
	EntryPayment     EntryKind = "payment"
)

// HistoryEntry is one row of a user's merged ledger feed.
type HistoryEntry struct {
	Kind EntryKind

	// ID is the ID of the underlying transaction or payment.
	ID string

	// TransactionID is the transaction the entry belongs to. For a
	// transaction entry it equals ID.
	TransactionID string

	Date     time.Time
	ItemName string

	// Amount is the transaction total or the payment amount.
	Amount decimal.Decimal

	// Quantity and Status are only set for transaction entries.
	Quantity int64
	Status   Status

	Note string

	// Editable is false for payments, which are history only.
	Editable bool
}
