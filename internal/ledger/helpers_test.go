package ledger

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/tabkeeper/internal/models"
	"github.com/mmynk/tabkeeper/internal/storage/sqlite"
)

func newTestStore(t *testing.T) *sqlite.SQLiteStore {
	t.Helper()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	return store
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// seedTx stores an unsettled transaction with the given total and paid.
func seedTx(t *testing.T, store *sqlite.SQLiteStore, owner, name, total string, date time.Time) *models.Transaction {
	t.Helper()

	tx := &models.Transaction{
		OwnerID:  owner,
		ItemName: name,
		Price:    dec(total),
		Quantity: 1,
		Total:    dec(total),
		Status:   models.StatusUnsettled,
		Date:     date,
	}
	if err := store.CreateTransaction(context.Background(), tx); err != nil {
		t.Fatalf("CreateTransaction failed: %v", err)
	}
	return tx
}

type recordingNotifier struct {
	mu      sync.Mutex
	applied []string
	partial []*models.Payment

	// failPartial makes NotifyPartialAllocation fail.
	failPartial bool
}

func (n *recordingNotifier) NotifyPaymentApplied(_ context.Context, tx *models.Transaction, _ *models.Payment) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.applied = append(n.applied, tx.ID)
	return nil
}

func (n *recordingNotifier) NotifyPartialAllocation(_ context.Context, p *models.Payment, _ error) error {
	if n.failPartial {
		return errors.New("broker unreachable")
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.partial = append(n.partial, p)
	return nil
}

type countingRecorder struct {
	mu        sync.Mutex
	outcomes  map[string]int
	partial   int
	conflicts int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{outcomes: make(map[string]int)}
}

func (r *countingRecorder) RecordAllocation(outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes[outcome]++
}

func (r *countingRecorder) RecordPartialAllocation() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.partial++
}

func (r *countingRecorder) RecordVersionConflict() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conflicts++
}
