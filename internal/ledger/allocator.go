// Package ledger implements the debt ledger: payment allocation against
// transactions, read-only aggregation, and transaction/catalog book-keeping.
// Every operation is scoped to a single owner.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/mmynk/tabkeeper/internal/calculator"
	"github.com/mmynk/tabkeeper/internal/models"
	"github.com/mmynk/tabkeeper/internal/storage"
)

const (
	DefaultMaxVersionRetries = 5
	DefaultBatchConcurrency  = 4

	outcomeApplied = "applied"
)

// LedgerStore is the subset of storage.Store the allocator writes through.
type LedgerStore interface {
	GetTransaction(ctx context.Context, ownerID, id string) (*models.Transaction, error)
	UpdatePaid(ctx context.Context, u storage.PaidUpdate) error
	CreatePayment(ctx context.Context, p *models.Payment) error
}

// Notifier receives allocation events. Implementations must be safe for
// concurrent use.
type Notifier interface {
	NotifyPaymentApplied(ctx context.Context, tx *models.Transaction, p *models.Payment) error
	NotifyPartialAllocation(ctx context.Context, p *models.Payment, cause error) error
}

// Recorder counts allocation outcomes.
type Recorder interface {
	RecordAllocation(outcome string)
	RecordPartialAllocation()
	RecordVersionConflict()
}

// Options configures an Allocator. Zero values select defaults.
type Options struct {
	// Location interprets dates without an offset.
	Location *time.Location

	// MaxVersionRetries bounds how many times a payment is re-validated
	// after losing a race on the same transaction.
	MaxVersionRetries int

	// BatchConcurrency bounds ApplyBatch parallelism.
	BatchConcurrency int

	Notifier Notifier
	Metrics  Recorder

	// Now defaults to time.Now.
	Now func() time.Time
}

// Allocator applies payments to transactions.
type Allocator struct {
	store    LedgerStore
	loc      *time.Location
	retries  int
	batch    int
	notifier Notifier
	metrics  Recorder
	now      func() time.Time
}

// PaymentRequest is one payment against one transaction. When PayRemaining
// is set Amount is ignored and the current remaining balance is paid.
type PaymentRequest struct {
	TransactionID string
	Amount        decimal.Decimal
	PayRemaining  bool

	// Date is parsed with ParseDate; empty means now.
	Date string
	Note string
}

// Allocation is the result of a successful payment.
type Allocation struct {
	// Transaction is the state after the update.
	Transaction *models.Transaction
	Payment     *models.Payment
	Remaining   decimal.Decimal
}

// BatchResult is the outcome of one entry of ApplyBatch.
type BatchResult struct {
	Request    PaymentRequest
	Allocation *Allocation
	Err        error
}

func NewAllocator(store LedgerStore, opts Options) *Allocator {
	a := &Allocator{
		store:    store,
		loc:      opts.Location,
		retries:  opts.MaxVersionRetries,
		batch:    opts.BatchConcurrency,
		notifier: opts.Notifier,
		metrics:  opts.Metrics,
		now:      opts.Now,
	}
	if a.loc == nil {
		a.loc = time.Local
	}
	if a.retries <= 0 {
		a.retries = DefaultMaxVersionRetries
	}
	if a.batch <= 0 {
		a.batch = DefaultBatchConcurrency
	}
	if a.metrics == nil {
		a.metrics = nopRecorder{}
	}
	if a.now == nil {
		a.now = time.Now
	}
	return a
}

// ApplyPayment validates and applies one payment.
//
// The paid update is a single conditional write on the transaction version,
// so concurrent payments on the same transaction cannot both pass the
// remaining-balance check. A payment that loses the race is re-validated
// against the fresh balance.
func (a *Allocator) ApplyPayment(ctx context.Context, ownerID string, req PaymentRequest) (*Allocation, error) {
	alloc, err := a.apply(ctx, ownerID, req)
	if err != nil {
		a.metrics.RecordAllocation(string(KindOf(err)))
		return nil, err
	}
	a.metrics.RecordAllocation(outcomeApplied)
	return alloc, nil
}

func (a *Allocator) apply(ctx context.Context, ownerID string, req PaymentRequest) (*Allocation, error) {
	if req.TransactionID == "" {
		return nil, notFound("transaction", "")
	}

	date, err := ParseDate(req.Date, a.loc, a.now())
	if err != nil {
		return nil, err
	}

	for conflicts := 0; ; {
		tx, err := a.store.GetTransaction(ctx, ownerID, req.TransactionID)
		if err != nil {
			return nil, fromStore("get transaction", "transaction", req.TransactionID, err)
		}

		remaining := calculator.Remaining(tx)
		amount := req.Amount
		if req.PayRemaining {
			amount = remaining
		}
		if !amount.IsPositive() || amount.GreaterThan(remaining) {
			return nil, invalidAmount(tx.ID, amount, remaining)
		}

		paid := tx.Paid.Add(amount)
		update := storage.PaidUpdate{
			ID:              tx.ID,
			OwnerID:         ownerID,
			Version:         tx.Version,
			Paid:            paid,
			Status:          calculator.StatusFor(tx.Total, paid),
			LastPaymentDate: date,
		}

		err = a.store.UpdatePaid(ctx, update)
		if errors.Is(err, storage.ErrVersionConflict) {
			a.metrics.RecordVersionConflict()
			conflicts++
			if conflicts > a.retries {
				return nil, storeUnavailable("update transaction",
					fmt.Errorf("gave up after %d version conflicts: %w", conflicts, err))
			}
			slog.DebugContext(ctx, "Transaction changed concurrently, re-validating payment",
				"transaction_id", tx.ID,
				"version", tx.Version)
			continue
		}
		if err != nil {
			return nil, fromStore("update transaction", "transaction", tx.ID, err)
		}

		tx.Paid = paid
		tx.Status = update.Status
		tx.LastPaymentDate = date
		tx.Version++

		payment := &models.Payment{
			OwnerID:       ownerID,
			TransactionID: tx.ID,
			ItemName:      tx.ItemName,
			AllocationID:  uuid.NewString(),
			Amount:        amount,
			Date:          date,
			Note:          req.Note,
		}
		// The paid update is committed; a caller going away must not leave
		// it without its payment record.
		if err := a.store.CreatePayment(context.WithoutCancel(ctx), payment); err != nil {
			return nil, a.partial(ctx, ownerID, tx, payment, err)
		}

		alloc := &Allocation{Transaction: tx, Payment: payment, Remaining: calculator.Remaining(tx)}
		a.notifyApplied(ctx, alloc)

		slog.InfoContext(ctx, "Payment applied",
			"transaction_id", tx.ID,
			"payment_id", payment.ID,
			"user_id", ownerID,
			"amount", amount.String(),
			"remaining", alloc.Remaining.String(),
			"status", tx.Status)

		return alloc, nil
	}
}

// partial reports a transaction update whose payment insert failed.
func (a *Allocator) partial(ctx context.Context, ownerID string, tx *models.Transaction, p *models.Payment, cause error) error {
	slog.ErrorContext(ctx, "Partial allocation: transaction updated but payment not recorded",
		"transaction_id", tx.ID,
		"user_id", ownerID,
		"amount", p.Amount.String(),
		"date", p.Date,
		"allocation_id", p.AllocationID,
		"version", tx.Version,
		"error", cause)
	a.metrics.RecordPartialAllocation()

	queued := false
	if a.notifier != nil {
		err := a.notifier.NotifyPartialAllocation(context.WithoutCancel(ctx), p, cause)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to queue partial allocation for reconciliation",
				"transaction_id", tx.ID,
				"user_id", ownerID,
				"allocation_id", p.AllocationID,
				"error", err)
		} else {
			queued = true
		}
	}

	return partialAllocation(tx.ID, p.Amount, cause, queued)
}

func (a *Allocator) notifyApplied(ctx context.Context, alloc *Allocation) {
	if a.notifier == nil {
		return
	}
	if err := a.notifier.NotifyPaymentApplied(ctx, alloc.Transaction, alloc.Payment); err != nil {
		slog.WarnContext(ctx, "Failed to publish payment event",
			"transaction_id", alloc.Transaction.ID,
			"payment_id", alloc.Payment.ID,
			"error", err)
	}
}

// ApplyBatch applies independent payments with bounded parallelism. Results
// are in request order. A failed entry never undoes another entry.
func (a *Allocator) ApplyBatch(ctx context.Context, ownerID string, reqs []PaymentRequest) []BatchResult {
	results := make([]BatchResult, len(reqs))

	var g errgroup.Group
	g.SetLimit(a.batch)
	for i, req := range reqs {
		g.Go(func() error {
			alloc, err := a.ApplyPayment(ctx, ownerID, req)
			results[i] = BatchResult{Request: req, Allocation: alloc, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	return results
}

type nopRecorder struct{}

func (nopRecorder) RecordAllocation(string)  {}
func (nopRecorder) RecordPartialAllocation() {}
func (nopRecorder) RecordVersionConflict()   {}
