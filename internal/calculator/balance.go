package calculator

import (
	"github.com/shopspring/decimal"

	"github.com/mmynk/tabkeeper/internal/models"
)

// Remaining returns how much is still owed on a transaction: total − paid.
// A transaction that predates the paid field has a zero Paid and so owes its
// full total.
func Remaining(t *models.Transaction) decimal.Decimal {
	return t.Total.Sub(t.Paid)
}

// IsSettled reports whether nothing remains to be paid.
func IsSettled(t *models.Transaction) bool {
	return !Remaining(t).IsPositive()
}

// StatusFor derives the settlement status for the given total and paid amount.
func StatusFor(total, paid decimal.Decimal) models.Status {
	if paid.GreaterThanOrEqual(total) {
		return models.StatusSettled
	}
	return models.StatusUnsettled
}

// NewTotal computes the immutable total of a transaction.
func NewTotal(price decimal.Decimal, quantity int64) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(quantity))
}
