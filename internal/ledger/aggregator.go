package ledger

import (
	"context"
	"slices"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/mmynk/tabkeeper/internal/models"
	"github.com/mmynk/tabkeeper/internal/storage"
)

// DefaultRecentLimit is used by RecentTransactions for non-positive limits.
const DefaultRecentLimit = 5

// ReadStore is the read-only subset of storage.Store used for aggregation.
type ReadStore interface {
	GetTransaction(ctx context.Context, ownerID, id string) (*models.Transaction, error)
	FindTransactions(ctx context.Context, ownerID string, q storage.TransactionQuery) ([]*models.Transaction, error)
	CountTransactions(ctx context.Context, ownerID string, q storage.TransactionQuery) (int64, error)
	SumOutstanding(ctx context.Context, ownerID string) (decimal.Decimal, error)
	FindPayments(ctx context.Context, ownerID string, q storage.PaymentQuery) ([]*models.Payment, error)
}

// Aggregator answers summary queries over one owner's ledger. It never
// writes and keeps no state between calls.
type Aggregator struct {
	store ReadStore
	loc   *time.Location
	now   func() time.Time
}

// MonthlyActivity counts transactions dated within one calendar month.
type MonthlyActivity struct {
	From         time.Time
	To           time.Time
	Transactions int64
	Settled      int64
}

// Dashboard is the landing summary for one owner.
type Dashboard struct {
	Outstanding decimal.Decimal
	Month       *MonthlyActivity
	Recent      []*models.Transaction
}

// AuditReport compares a transaction's paid amount with its payment records.
type AuditReport struct {
	Transaction *models.Transaction
	PaymentSum  decimal.Decimal
	Payments    int

	// Unrecorded is paid − PaymentSum; non-zero means a payment record is
	// missing (or, if negative, that paid was under-counted).
	Unrecorded decimal.Decimal

	allocations map[string]struct{}
}

// Recorded reports whether a payment for allocationID exists.
func (r *AuditReport) Recorded(allocationID string) bool {
	_, ok := r.allocations[allocationID]
	return ok
}

// Consistent reports whether the payments account for paid exactly.
func (r *AuditReport) Consistent() bool {
	return r.Unrecorded.IsZero()
}

func NewAggregator(store ReadStore, loc *time.Location) *Aggregator {
	if loc == nil {
		loc = time.Local
	}
	return &Aggregator{store: store, loc: loc, now: time.Now}
}

// OutstandingTotal sums the remaining balance of every unsettled
// transaction. It is zero when the owner has none.
func (g *Aggregator) OutstandingTotal(ctx context.Context, ownerID string) (decimal.Decimal, error) {
	sum, err := g.store.SumOutstanding(ctx, ownerID)
	if err != nil {
		return decimal.Zero, fromStore("sum outstanding", "owner", ownerID, err)
	}
	return sum, nil
}

// MonthlyActivity counts the transactions dated within the month of ref,
// both bounds inclusive, and how many of them are settled. A zero ref means
// the current month.
func (g *Aggregator) MonthlyActivity(ctx context.Context, ownerID string, ref time.Time) (*MonthlyActivity, error) {
	if ref.IsZero() {
		ref = g.now()
	}
	from, to := MonthBounds(ref, g.loc)
	q := storage.TransactionQuery{From: from, To: to}

	total, err := g.store.CountTransactions(ctx, ownerID, q)
	if err != nil {
		return nil, fromStore("count transactions", "owner", ownerID, err)
	}

	q.Status = storage.OnlySettled
	settled, err := g.store.CountTransactions(ctx, ownerID, q)
	if err != nil {
		return nil, fromStore("count settled transactions", "owner", ownerID, err)
	}

	return &MonthlyActivity{From: from, To: to, Transactions: total, Settled: settled}, nil
}

// RecentTransactions returns the newest transactions by date, ties in
// insertion order.
func (g *Aggregator) RecentTransactions(ctx context.Context, ownerID string, limit int) ([]*models.Transaction, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	txs, err := g.store.FindTransactions(ctx, ownerID, storage.TransactionQuery{Limit: limit})
	if err != nil {
		return nil, fromStore("find recent transactions", "owner", ownerID, err)
	}
	return txs, nil
}

// UnpaidTransactions returns every unsettled transaction, newest first, as
// currently stored.
func (g *Aggregator) UnpaidTransactions(ctx context.Context, ownerID string) ([]*models.Transaction, error) {
	txs, err := g.store.FindTransactions(ctx, ownerID, storage.TransactionQuery{Status: storage.OnlyUnsettled})
	if err != nil {
		return nil, fromStore("find unpaid transactions", "owner", ownerID, err)
	}
	return txs, nil
}

// UnifiedHistory merges transactions and payments into one feed ordered by
// date descending. On equal dates a transaction precedes its payments.
func (g *Aggregator) UnifiedHistory(ctx context.Context, ownerID string) ([]models.HistoryEntry, error) {
	var (
		txs      []*models.Transaction
		payments []*models.Payment
	)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		txs, err = g.store.FindTransactions(egCtx, ownerID, storage.TransactionQuery{})
		if err != nil {
			return fromStore("find transactions", "owner", ownerID, err)
		}
		return nil
	})
	eg.Go(func() error {
		var err error
		payments, err = g.store.FindPayments(egCtx, ownerID, storage.PaymentQuery{})
		if err != nil {
			return fromStore("find payments", "owner", ownerID, err)
		}
		return nil
	})
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	entries := make([]models.HistoryEntry, 0, len(txs)+len(payments))
	for _, tx := range txs {
		entries = append(entries, models.HistoryEntry{
			Kind:          models.EntryTransaction,
			ID:            tx.ID,
			TransactionID: tx.ID,
			Date:          tx.Date,
			ItemName:      tx.ItemName,
			Amount:        tx.Total,
			Quantity:      tx.Quantity,
			Status:        tx.Status,
			Note:          tx.Note,
			Editable:      true,
		})
	}
	for _, p := range payments {
		entries = append(entries, models.HistoryEntry{
			Kind:          models.EntryPayment,
			ID:            p.ID,
			TransactionID: p.TransactionID,
			Date:          p.Date,
			ItemName:      p.ItemName,
			Amount:        p.Amount,
			Note:          p.Note,
		})
	}

	slices.SortStableFunc(entries, func(a, b models.HistoryEntry) int {
		return b.Date.Compare(a.Date)
	})

	return entries, nil
}

// Dashboard gathers the outstanding total, the activity of ref's month and
// the most recent transactions concurrently.
func (g *Aggregator) Dashboard(ctx context.Context, ownerID string, ref time.Time) (*Dashboard, error) {
	d := &Dashboard{}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		d.Outstanding, err = g.OutstandingTotal(egCtx, ownerID)
		return err
	})
	eg.Go(func() error {
		var err error
		d.Month, err = g.MonthlyActivity(egCtx, ownerID, ref)
		return err
	})
	eg.Go(func() error {
		var err error
		d.Recent, err = g.RecentTransactions(egCtx, ownerID, DefaultRecentLimit)
		return err
	})
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	return d, nil
}

// Audit checks that a transaction's payments sum to its paid amount.
func (g *Aggregator) Audit(ctx context.Context, ownerID, transactionID string) (*AuditReport, error) {
	tx, err := g.store.GetTransaction(ctx, ownerID, transactionID)
	if err != nil {
		return nil, fromStore("get transaction", "transaction", transactionID, err)
	}

	payments, err := g.store.FindPayments(ctx, ownerID, storage.PaymentQuery{TransactionID: transactionID})
	if err != nil {
		return nil, fromStore("find payments", "transaction", transactionID, err)
	}

	sum := decimal.Zero
	allocations := make(map[string]struct{}, len(payments))
	for _, p := range payments {
		sum = sum.Add(p.Amount)
		if p.AllocationID != "" {
			allocations[p.AllocationID] = struct{}{}
		}
	}

	return &AuditReport{
		Transaction: tx,
		PaymentSum:  sum,
		Payments:    len(payments),
		Unrecorded:  tx.Paid.Sub(sum),
		allocations: allocations,
	}, nil
}
