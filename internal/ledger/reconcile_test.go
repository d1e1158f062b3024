package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mmynk/tabkeeper/internal/calculator"
	"github.com/mmynk/tabkeeper/internal/models"
	"github.com/mmynk/tabkeeper/internal/storage"
	"github.com/mmynk/tabkeeper/internal/storage/sqlite"
)

// lostPayment runs a payment through an allocator whose payment insert
// fails and returns what it queued for reconciliation.
func lostPayment(t *testing.T, base *sqlite.SQLiteStore, owner, txID, amount, note string) LostPayment {
	t.Helper()

	notifier := &recordingNotifier{}
	broken := newTestAllocator(&brokenPaymentStore{SQLiteStore: base}, Options{Notifier: notifier})
	_, err := broken.ApplyPayment(context.Background(), owner, PaymentRequest{TransactionID: txID, Amount: dec(amount), Note: note})
	if !errors.Is(err, ErrPartialAllocation) {
		t.Fatalf("expected PartialAllocation, got %v", err)
	}
	if len(notifier.partial) != 1 {
		t.Fatalf("queued %d partial allocations, want 1", len(notifier.partial))
	}

	p := notifier.partial[0]
	return LostPayment{
		AllocationID:  p.AllocationID,
		TransactionID: p.TransactionID,
		Amount:        p.Amount,
		Date:          p.Date,
		Note:          p.Note,
	}
}

func TestReconciler_RestoresPartialAllocation(t *testing.T) {
	base := newTestStore(t)
	ctx := context.Background()
	tx := seedTx(t, base, "hana", "Rice", "800", march15)
	lost := lostPayment(t, base, "hana", tx.ID, "300", "cash")

	r := NewReconciler(base, time.UTC)

	res, err := r.Restore(ctx, "hana", lost)
	if err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	if res.Restored == nil || res.Restored.ItemName != "Rice" || !res.Restored.Amount.Equal(dec("300")) {
		t.Fatalf("restored = %+v, want Rice payment of 300", res.Restored)
	}
	if res.Restored.AllocationID != lost.AllocationID {
		t.Errorf("restored allocation = %q, want %q", res.Restored.AllocationID, lost.AllocationID)
	}
	if !res.Before.Unrecorded.Equal(dec("300")) {
		t.Errorf("before.unrecorded = %s, want 300", res.Before.Unrecorded)
	}

	if n, sum := paymentSum(t, base, "hana", tx.ID); n != 1 || sum != "300" {
		t.Errorf("payments = %d summing %s, want 1 summing 300", n, sum)
	}

	t.Run("redelivery writes nothing", func(t *testing.T) {
		res, err := r.Restore(ctx, "hana", lost)
		if err != nil {
			t.Fatalf("Restore failed: %v", err)
		}
		if res.Restored != nil {
			t.Errorf("restored a second payment: %+v", res.Restored)
		}
		if n, _ := paymentSum(t, base, "hana", tx.ID); n != 1 {
			t.Errorf("payments = %d, want 1", n)
		}
	})

	t.Run("redelivery during another allocation writes nothing", func(t *testing.T) {
		// Another allocation of 300 has updated paid but not yet inserted
		// its payment, so the audit shows 300 unrecorded again.
		current, err := base.GetTransaction(ctx, "hana", tx.ID)
		if err != nil {
			t.Fatalf("GetTransaction failed: %v", err)
		}
		paid := current.Paid.Add(dec("300"))
		if err := base.UpdatePaid(ctx, storage.PaidUpdate{
			ID:      tx.ID,
			OwnerID: "hana",
			Version: current.Version,
			Paid:    paid,
			Status:  calculator.StatusFor(current.Total, paid),
		}); err != nil {
			t.Fatalf("UpdatePaid failed: %v", err)
		}

		res, err := r.Restore(ctx, "hana", lost)
		if err != nil {
			t.Fatalf("Restore failed: %v", err)
		}
		if res.Restored != nil {
			t.Errorf("restored the in-flight allocation as %+v", res.Restored)
		}
		if n, sum := paymentSum(t, base, "hana", tx.ID); n != 1 || sum != "300" {
			t.Errorf("payments = %d summing %s, want 1 summing 300", n, sum)
		}
	})
}

func TestReconciler_WithoutAllocationID(t *testing.T) {
	base := newTestStore(t)
	ctx := context.Background()
	tx := seedTx(t, base, "ines", "Milk", "400", march15)
	lost := lostPayment(t, base, "ines", tx.ID, "150", "")
	lost.AllocationID = ""

	r := NewReconciler(base, time.UTC)
	for i := range 2 {
		if _, err := r.Restore(ctx, "ines", lost); err != nil {
			t.Fatalf("Restore #%d failed: %v", i+1, err)
		}
	}

	if n, sum := paymentSum(t, base, "ines", tx.ID); n != 1 || sum != "150" {
		t.Errorf("payments = %d summing %s, want 1 summing 150", n, sum)
	}
}

// duplicateStore reports that every payment insert collides with an
// existing allocation.
type duplicateStore struct {
	*sqlite.SQLiteStore
}

func (s *duplicateStore) CreatePayment(context.Context, *models.Payment) error {
	return storage.ErrDuplicate
}

func TestReconciler_ConcurrentRestore(t *testing.T) {
	base := newTestStore(t)
	ctx := context.Background()
	tx := seedTx(t, base, "jan", "Eggs", "200", march15)
	lost := lostPayment(t, base, "jan", tx.ID, "50", "")

	res, err := NewReconciler(&duplicateStore{SQLiteStore: base}, time.UTC).Restore(ctx, "jan", lost)
	if err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	if res.Restored != nil {
		t.Errorf("restored = %+v, want nothing when another worker recorded it", res.Restored)
	}
}

func TestReconciler_LeavesMismatchAlone(t *testing.T) {
	base := newTestStore(t)
	ctx := context.Background()
	tx := seedTx(t, base, "ivan", "Oil", "500", march15)
	lost := lostPayment(t, base, "ivan", tx.ID, "100", "")
	lost.Amount = dec("250")

	res, err := NewReconciler(base, time.UTC).Restore(ctx, "ivan", lost)
	if err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	if res.Restored != nil {
		t.Errorf("restored %+v for a mismatched amount", res.Restored)
	}
}

func TestReconciler_Errors(t *testing.T) {
	r := NewReconciler(newTestStore(t), time.UTC)
	ctx := context.Background()

	if _, err := r.Restore(ctx, "jo", LostPayment{TransactionID: "missing", Amount: dec("10"), Date: march15}); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown transaction: got %v, want NotFound", err)
	}
	if _, err := r.Restore(ctx, "jo", LostPayment{TransactionID: "missing", Amount: dec("0"), Date: march15}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("zero amount: got %v, want InvalidInput", err)
	}
}
