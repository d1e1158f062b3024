package sqlite

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/tabkeeper/internal/models"
	"github.com/mmynk/tabkeeper/internal/storage"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	// Create temp directory for test database
	tempDir, err := os.MkdirTemp("", "tabkeeper-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	store, err := New(filepath.Join(tempDir, "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	return store
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTx(owner, name string, total string, date time.Time) *models.Transaction {
	return &models.Transaction{
		OwnerID:  owner,
		ItemName: name,
		Price:    dec(total),
		Quantity: 1,
		Total:    dec(total),
		Status:   models.StatusUnsettled,
		Date:     date,
	}
}

func TestSQLiteStore(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

	t.Run("CreateTransaction generates ID and timestamps", func(t *testing.T) {
		tx := newTx("alice", "Rice", "1000", base)
		if err := store.CreateTransaction(ctx, tx); err != nil {
			t.Fatalf("CreateTransaction failed: %v", err)
		}

		if tx.ID == "" {
			t.Error("Expected transaction ID to be generated")
		}
		if tx.CreatedAt.IsZero() {
			t.Error("Expected CreatedAt to be set")
		}

		got, err := store.GetTransaction(ctx, "alice", tx.ID)
		if err != nil {
			t.Fatalf("GetTransaction failed: %v", err)
		}
		if !got.Total.Equal(dec("1000")) {
			t.Errorf("Total mismatch: got %s, want 1000", got.Total)
		}
		if !got.Paid.IsZero() {
			t.Errorf("Paid mismatch: got %s, want 0", got.Paid)
		}
		if got.Status != models.StatusUnsettled {
			t.Errorf("Status mismatch: got %s", got.Status)
		}
		if !got.Date.Equal(base) {
			t.Errorf("Date mismatch: got %v, want %v", got.Date, base)
		}
		if got.Version != 0 {
			t.Errorf("Version mismatch: got %d, want 0", got.Version)
		}
	})

	t.Run("GetTransaction is owner scoped", func(t *testing.T) {
		tx := newTx("alice", "Sugar", "50", base)
		if err := store.CreateTransaction(ctx, tx); err != nil {
			t.Fatalf("CreateTransaction failed: %v", err)
		}

		_, err := store.GetTransaction(ctx, "mallory", tx.ID)
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Expected ErrNotFound for foreign owner, got %v", err)
		}
		_, err = store.GetTransaction(ctx, "alice", "nonexistent-id")
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Expected ErrNotFound for missing ID, got %v", err)
		}
	})

	t.Run("UpdatePaid honours the version", func(t *testing.T) {
		tx := newTx("bob", "Oil", "300", base)
		if err := store.CreateTransaction(ctx, tx); err != nil {
			t.Fatalf("CreateTransaction failed: %v", err)
		}

		update := storage.PaidUpdate{
			ID:              tx.ID,
			OwnerID:         "bob",
			Version:         0,
			Paid:            dec("100"),
			Status:          models.StatusUnsettled,
			LastPaymentDate: base,
		}
		if err := store.UpdatePaid(ctx, update); err != nil {
			t.Fatalf("UpdatePaid failed: %v", err)
		}

		// Same version again must conflict
		if err := store.UpdatePaid(ctx, update); !errors.Is(err, storage.ErrVersionConflict) {
			t.Errorf("Expected ErrVersionConflict, got %v", err)
		}

		// Wrong owner must conflict
		update.Version = 1
		update.OwnerID = "mallory"
		if err := store.UpdatePaid(ctx, update); !errors.Is(err, storage.ErrVersionConflict) {
			t.Errorf("Expected ErrVersionConflict for foreign owner, got %v", err)
		}

		got, err := store.GetTransaction(ctx, "bob", tx.ID)
		if err != nil {
			t.Fatalf("GetTransaction failed: %v", err)
		}
		if !got.Paid.Equal(dec("100")) {
			t.Errorf("Paid mismatch: got %s, want 100", got.Paid)
		}
		if got.Version != 1 {
			t.Errorf("Version mismatch: got %d, want 1", got.Version)
		}
		if !got.LastPaymentDate.Equal(base) {
			t.Errorf("LastPaymentDate mismatch: got %v", got.LastPaymentDate)
		}
	})

	t.Run("CreatePayment and FindPayments", func(t *testing.T) {
		tx := newTx("carol", "Soap", "20", base)
		if err := store.CreateTransaction(ctx, tx); err != nil {
			t.Fatalf("CreateTransaction failed: %v", err)
		}

		for i, amount := range []string{"5", "7.5"} {
			p := &models.Payment{
				OwnerID:       "carol",
				TransactionID: tx.ID,
				ItemName:      tx.ItemName,
				Amount:        dec(amount),
				Date:          base.Add(time.Duration(i) * time.Hour),
				Note:          "cash",
			}
			if err := store.CreatePayment(ctx, p); err != nil {
				t.Fatalf("CreatePayment failed: %v", err)
			}
			if p.ID == "" {
				t.Error("Expected payment ID to be generated")
			}
		}

		payments, err := store.FindPayments(ctx, "carol", storage.PaymentQuery{TransactionID: tx.ID})
		if err != nil {
			t.Fatalf("FindPayments failed: %v", err)
		}
		if len(payments) != 2 {
			t.Fatalf("Expected 2 payments, got %d", len(payments))
		}
		if !payments[0].Amount.Equal(dec("7.5")) {
			t.Errorf("Expected newest payment first, got amount %s", payments[0].Amount)
		}
		if payments[0].Note != "cash" || payments[0].ItemName != "Soap" {
			t.Errorf("Unexpected payment fields: %+v", payments[0])
		}

		restored := &models.Payment{
			OwnerID:       "carol",
			TransactionID: tx.ID,
			ItemName:      tx.ItemName,
			AllocationID:  "alloc-7",
			Amount:        dec("2.5"),
			Date:          base.Add(-time.Hour),
		}
		if err := store.CreatePayment(ctx, restored); err != nil {
			t.Fatalf("CreatePayment failed: %v", err)
		}
		again := *restored
		again.ID = ""
		if err := store.CreatePayment(ctx, &again); !errors.Is(err, storage.ErrDuplicate) {
			t.Errorf("CreatePayment with a recorded allocation: got %v, want ErrDuplicate", err)
		}

		payments, err = store.FindPayments(ctx, "carol", storage.PaymentQuery{TransactionID: tx.ID})
		if err != nil {
			t.Fatalf("FindPayments failed: %v", err)
		}
		if len(payments) != 3 || payments[2].AllocationID != "alloc-7" || payments[0].AllocationID != "" {
			t.Errorf("Unexpected allocation IDs: %+v", payments)
		}

		others, err := store.FindPayments(ctx, "alice", storage.PaymentQuery{})
		if err != nil {
			t.Fatalf("FindPayments failed: %v", err)
		}
		if len(others) != 0 {
			t.Errorf("Expected no payments for another owner, got %d", len(others))
		}
	})
}

func TestSQLiteStore_Queries(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	march := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	totals := []string{"100", "200", "300"}
	var txs []*models.Transaction
	for i, total := range totals {
		tx := newTx("dave", "Item", total, march.AddDate(0, 0, i))
		if err := store.CreateTransaction(ctx, tx); err != nil {
			t.Fatalf("CreateTransaction failed: %v", err)
		}
		txs = append(txs, tx)
	}
	// Same date as the last one to check insertion-order ties
	tie := newTx("dave", "Tie", "1", txs[2].Date)
	if err := store.CreateTransaction(ctx, tie); err != nil {
		t.Fatalf("CreateTransaction failed: %v", err)
	}

	// First fully paid, second half paid
	if err := store.UpdatePaid(ctx, storage.PaidUpdate{ID: txs[0].ID, OwnerID: "dave", Paid: dec("100"), Status: models.StatusSettled}); err != nil {
		t.Fatalf("UpdatePaid failed: %v", err)
	}
	if err := store.UpdatePaid(ctx, storage.PaidUpdate{ID: txs[1].ID, OwnerID: "dave", Paid: dec("50"), Status: models.StatusUnsettled}); err != nil {
		t.Fatalf("UpdatePaid failed: %v", err)
	}

	t.Run("SumOutstanding", func(t *testing.T) {
		sum, err := store.SumOutstanding(ctx, "dave")
		if err != nil {
			t.Fatalf("SumOutstanding failed: %v", err)
		}
		if !sum.Equal(dec("451")) {
			t.Errorf("SumOutstanding = %s, want 451", sum)
		}

		empty, err := store.SumOutstanding(ctx, "nobody")
		if err != nil {
			t.Fatalf("SumOutstanding failed: %v", err)
		}
		if !empty.IsZero() {
			t.Errorf("SumOutstanding for empty owner = %s, want 0", empty)
		}
	})

	t.Run("FindTransactions ordering and limit", func(t *testing.T) {
		got, err := store.FindTransactions(ctx, "dave", storage.TransactionQuery{Limit: 3})
		if err != nil {
			t.Fatalf("FindTransactions failed: %v", err)
		}
		if len(got) != 3 {
			t.Fatalf("Expected 3 transactions, got %d", len(got))
		}
		if got[0].ID != txs[2].ID || got[1].ID != tie.ID || got[2].ID != txs[1].ID {
			t.Errorf("Unexpected order: %s, %s, %s", got[0].ItemName, got[1].ItemName, got[2].ItemName)
		}
	})

	t.Run("FindTransactions unsettled only", func(t *testing.T) {
		got, err := store.FindTransactions(ctx, "dave", storage.TransactionQuery{Status: storage.OnlyUnsettled})
		if err != nil {
			t.Fatalf("FindTransactions failed: %v", err)
		}
		if len(got) != 3 {
			t.Fatalf("Expected 3 unsettled transactions, got %d", len(got))
		}
		for _, tx := range got {
			if tx.Status == models.StatusSettled {
				t.Errorf("Settled transaction %s returned", tx.ID)
			}
		}
	})

	t.Run("CountTransactions with date range", func(t *testing.T) {
		q := storage.TransactionQuery{From: march, To: march.AddDate(0, 0, 1)}
		n, err := store.CountTransactions(ctx, "dave", q)
		if err != nil {
			t.Fatalf("CountTransactions failed: %v", err)
		}
		if n != 2 {
			t.Errorf("CountTransactions = %d, want 2", n)
		}

		q.Status = storage.OnlySettled
		n, err = store.CountTransactions(ctx, "dave", q)
		if err != nil {
			t.Fatalf("CountTransactions failed: %v", err)
		}
		if n != 1 {
			t.Errorf("CountTransactions settled = %d, want 1", n)
		}
	})
}

func TestSQLiteStore_Items(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := &models.CatalogItem{OwnerID: "erin", Name: "Coffee", Price: dec("15000")}
	second := &models.CatalogItem{OwnerID: "erin", Name: "Tea", Description: "green", Price: dec("8000")}
	for _, item := range []*models.CatalogItem{first, second} {
		if err := store.CreateItem(ctx, item); err != nil {
			t.Fatalf("CreateItem failed: %v", err)
		}
	}

	items, err := store.ListItems(ctx, "erin")
	if err != nil {
		t.Fatalf("ListItems failed: %v", err)
	}
	if len(items) != 2 || items[0].ID != second.ID {
		t.Fatalf("Expected newest item first, got %+v", items)
	}

	got, err := store.GetItem(ctx, "erin", first.ID)
	if err != nil {
		t.Fatalf("GetItem failed: %v", err)
	}
	if !got.Price.Equal(dec("15000")) {
		t.Errorf("Price mismatch: got %s", got.Price)
	}

	if err := store.DeleteItem(ctx, "mallory", first.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound deleting foreign item, got %v", err)
	}
	if err := store.DeleteItem(ctx, "erin", first.ID); err != nil {
		t.Fatalf("DeleteItem failed: %v", err)
	}
	if _, err := store.GetItem(ctx, "erin", first.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
}

func TestSQLiteStore_Users(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	user := models.NewUser("frank@example.com", "Frank", "hash")
	if err := store.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	dup := models.NewUser("frank@example.com", "Other Frank", "hash")
	if err := store.CreateUser(ctx, dup); !errors.Is(err, storage.ErrDuplicate) {
		t.Errorf("Expected ErrDuplicate, got %v", err)
	}

	byEmail, err := store.GetUserByEmail(ctx, "frank@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail failed: %v", err)
	}
	if byEmail.ID != user.ID {
		t.Errorf("ID mismatch: got %s, want %s", byEmail.ID, user.ID)
	}

	if _, err := store.GetUserByID(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}
