package ledger

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/tabkeeper/internal/models"
	"github.com/mmynk/tabkeeper/internal/storage"
)

// ReconcileStore is what the Reconciler needs: the audit reads plus the
// payment insert.
type ReconcileStore interface {
	ReadStore
	CreatePayment(ctx context.Context, p *models.Payment) error
}

// Reconciler repairs partial allocations: a transaction whose paid amount
// was updated while the matching payment record was never written.
type Reconciler struct {
	store      ReconcileStore
	aggregator *Aggregator
}

// Reconciliation is the outcome of one Restore call.
type Reconciliation struct {
	// Before is the audit taken before any repair.
	Before *AuditReport

	// Restored is the payment written, nil if nothing was written.
	Restored *models.Payment
}

func NewReconciler(store ReconcileStore, loc *time.Location) *Reconciler {
	return &Reconciler{store: store, aggregator: NewAggregator(store, loc)}
}

// LostPayment describes the payment record a partial allocation failed to
// write.
type LostPayment struct {
	// AllocationID is empty for allocations queued before allocation IDs
	// existed; those are matched by amount alone.
	AllocationID  string
	TransactionID string
	Amount        decimal.Decimal
	Date          time.Time
	Note          string
}

// Restore writes the missing payment record for a partial allocation, if
// it is still missing. The restored payment carries the allocation ID, so
// repeating the call for the same allocation writes nothing even while
// another allocation on the transaction is between its paid update and its
// payment insert.
//
// When the unrecorded amount is smaller than the lost amount the ledger
// holds an inconsistency that cannot be attributed to this allocation; it is
// logged and left for manual repair.
func (r *Reconciler) Restore(ctx context.Context, ownerID string, lost LostPayment) (*Reconciliation, error) {
	if !lost.Amount.IsPositive() {
		return nil, invalidInput("reconcile amount must be greater than 0")
	}

	report, err := r.aggregator.Audit(ctx, ownerID, lost.TransactionID)
	if err != nil {
		return nil, err
	}
	res := &Reconciliation{Before: report}

	switch {
	case lost.AllocationID != "" && report.Recorded(lost.AllocationID):
		slog.InfoContext(ctx, "Allocation already recorded, nothing to restore",
			"transaction_id", lost.TransactionID,
			"allocation_id", lost.AllocationID,
			"user_id", ownerID)
		return res, nil

	case report.Consistent():
		slog.InfoContext(ctx, "Transaction already consistent, nothing to restore",
			"transaction_id", lost.TransactionID,
			"user_id", ownerID)
		return res, nil

	case report.Unrecorded.LessThan(lost.Amount):
		slog.WarnContext(ctx, "Unrecorded amount does not match allocation, manual repair needed",
			"transaction_id", lost.TransactionID,
			"allocation_id", lost.AllocationID,
			"user_id", ownerID,
			"unrecorded", report.Unrecorded.String(),
			"amount", lost.Amount.String())
		return res, nil
	}

	payment := &models.Payment{
		OwnerID:       ownerID,
		TransactionID: lost.TransactionID,
		ItemName:      report.Transaction.ItemName,
		AllocationID:  lost.AllocationID,
		Amount:        lost.Amount,
		Date:          lost.Date,
		Note:          lost.Note,
	}
	err = r.store.CreatePayment(ctx, payment)
	if errors.Is(err, storage.ErrDuplicate) {
		slog.InfoContext(ctx, "Allocation recorded concurrently, nothing to restore",
			"transaction_id", lost.TransactionID,
			"allocation_id", lost.AllocationID,
			"user_id", ownerID)
		return res, nil
	}
	if err != nil {
		return nil, fromStore("create payment", "transaction", lost.TransactionID, err)
	}
	res.Restored = payment

	slog.InfoContext(ctx, "Restored missing payment record",
		"transaction_id", lost.TransactionID,
		"allocation_id", lost.AllocationID,
		"payment_id", payment.ID,
		"user_id", ownerID,
		"amount", lost.Amount.String())

	return res, nil
}
