package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/mmynk/tabkeeper/internal/models"
	"github.com/mmynk/tabkeeper/internal/storage"
)

func TestAggregator_OutstandingTotal(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	alloc := newTestAllocator(store, Options{})
	agg := NewAggregator(store, time.UTC)

	empty, err := agg.OutstandingTotal(ctx, "ivan")
	if err != nil {
		t.Fatalf("OutstandingTotal failed: %v", err)
	}
	if !empty.IsZero() {
		t.Errorf("outstanding for empty ledger = %s, want 0", empty)
	}

	first := seedTx(t, store, "ivan", "A", "100", march15)
	second := seedTx(t, store, "ivan", "B", "200", march15)
	seedTx(t, store, "ivan", "C", "300", march15)
	seedTx(t, store, "someone-else", "D", "999", march15)

	if _, err := alloc.ApplyPayment(ctx, "ivan", PaymentRequest{TransactionID: first.ID, Amount: dec("100")}); err != nil {
		t.Fatalf("ApplyPayment failed: %v", err)
	}
	if _, err := alloc.ApplyPayment(ctx, "ivan", PaymentRequest{TransactionID: second.ID, Amount: dec("50")}); err != nil {
		t.Fatalf("ApplyPayment failed: %v", err)
	}

	got, err := agg.OutstandingTotal(ctx, "ivan")
	if err != nil {
		t.Fatalf("OutstandingTotal failed: %v", err)
	}
	if !got.Equal(dec("450")) {
		t.Errorf("outstanding = %s, want 450", got)
	}
}

func TestAggregator_MonthlyActivity(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	alloc := newTestAllocator(store, Options{})
	agg := NewAggregator(store, time.UTC)

	dates := map[string]time.Time{
		"before":     time.Date(2024, 2, 29, 23, 59, 59, 999_000_000, time.UTC),
		"first":      time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		"middle":     time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC),
		"last":       time.Date(2024, 3, 31, 23, 59, 59, 999_000_000, time.UTC),
		"after":      time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
		"next-month": time.Date(2024, 4, 15, 0, 0, 0, 0, time.UTC),
	}
	txs := make(map[string]*models.Transaction)
	for name, date := range dates {
		txs[name] = seedTx(t, store, "judy", name, "10", date)
	}
	if _, err := alloc.ApplyPayment(ctx, "judy", PaymentRequest{TransactionID: txs["last"].ID, PayRemaining: true}); err != nil {
		t.Fatalf("ApplyPayment failed: %v", err)
	}
	if _, err := alloc.ApplyPayment(ctx, "judy", PaymentRequest{TransactionID: txs["after"].ID, PayRemaining: true}); err != nil {
		t.Fatalf("ApplyPayment failed: %v", err)
	}

	got, err := agg.MonthlyActivity(ctx, "judy", time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("MonthlyActivity failed: %v", err)
	}
	if got.Transactions != 3 {
		t.Errorf("transactions in March = %d, want 3", got.Transactions)
	}
	if got.Settled != 1 {
		t.Errorf("settled in March = %d, want 1", got.Settled)
	}
	if !got.From.Equal(dates["first"]) || !got.To.Equal(dates["last"]) {
		t.Errorf("bounds = [%v, %v]", got.From, got.To)
	}
}

func TestAggregator_RecentTransactions(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	agg := NewAggregator(store, time.UTC)

	var txs []*models.Transaction
	for i := 0; i < 7; i++ {
		txs = append(txs, seedTx(t, store, "kim", "T", "1", march15.AddDate(0, 0, i)))
	}
	// Same date as the newest; inserted later so it sorts after it.
	tie := seedTx(t, store, "kim", "Tie", "1", txs[6].Date)

	tests := []struct {
		name    string
		limit   int
		wantLen int
	}{
		{"default limit", 0, DefaultRecentLimit},
		{"negative uses default", -3, DefaultRecentLimit},
		{"explicit limit", 2, 2},
		{"limit larger than ledger", 50, 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := agg.RecentTransactions(ctx, "kim", tt.limit)
			if err != nil {
				t.Fatalf("RecentTransactions failed: %v", err)
			}
			if len(got) != tt.wantLen {
				t.Fatalf("got %d transactions, want %d", len(got), tt.wantLen)
			}
			if got[0].ID != txs[6].ID || got[1].ID != tie.ID {
				t.Errorf("unexpected order: %s, %s", got[0].ItemName, got[1].ItemName)
			}
			for i := 1; i < len(got); i++ {
				if got[i].Date.After(got[i-1].Date) {
					t.Errorf("not sorted by date descending at %d", i)
				}
			}
		})
	}
}

func TestAggregator_UnpaidTransactions(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	alloc := newTestAllocator(store, Options{})
	agg := NewAggregator(store, time.UTC)

	older := seedTx(t, store, "lee", "Old", "100", march15)
	newer := seedTx(t, store, "lee", "New", "100", march15.Add(time.Hour))

	unpaid, err := agg.UnpaidTransactions(ctx, "lee")
	if err != nil {
		t.Fatalf("UnpaidTransactions failed: %v", err)
	}
	if len(unpaid) != 2 || unpaid[0].ID != newer.ID {
		t.Fatalf("expected both, newest first, got %d", len(unpaid))
	}

	if _, err := alloc.ApplyPayment(ctx, "lee", PaymentRequest{TransactionID: older.ID, Amount: dec("40")}); err != nil {
		t.Fatalf("ApplyPayment failed: %v", err)
	}
	if _, err := alloc.ApplyPayment(ctx, "lee", PaymentRequest{TransactionID: newer.ID, Amount: dec("100")}); err != nil {
		t.Fatalf("ApplyPayment failed: %v", err)
	}

	unpaid, err = agg.UnpaidTransactions(ctx, "lee")
	if err != nil {
		t.Fatalf("UnpaidTransactions failed: %v", err)
	}
	if len(unpaid) != 1 || unpaid[0].ID != older.ID {
		t.Fatalf("settled transaction still listed: %+v", unpaid)
	}
	if !unpaid[0].Paid.Equal(dec("40")) {
		t.Errorf("unpaid list shows stale paid %s, want 40", unpaid[0].Paid)
	}
	for _, tx := range unpaid {
		if tx.Status == models.StatusSettled {
			t.Errorf("settled transaction %s listed", tx.ID)
		}
	}
}

func TestAggregator_UnifiedHistory(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	alloc := newTestAllocator(store, Options{})
	agg := NewAggregator(store, time.UTC)

	tx := seedTx(t, store, "mia", "Sugar", "90", time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))
	seedTx(t, store, "mia", "Salt", "10", time.Date(2024, 3, 3, 9, 0, 0, 0, time.UTC))
	if _, err := alloc.ApplyPayment(ctx, "mia", PaymentRequest{TransactionID: tx.ID, Amount: dec("30"), Date: "2024-03-02T09:00:00Z"}); err != nil {
		t.Fatalf("ApplyPayment failed: %v", err)
	}
	if _, err := alloc.ApplyPayment(ctx, "mia", PaymentRequest{TransactionID: tx.ID, Amount: dec("60"), Date: "2024-03-04T09:00:00Z"}); err != nil {
		t.Fatalf("ApplyPayment failed: %v", err)
	}

	history, err := agg.UnifiedHistory(ctx, "mia")
	if err != nil {
		t.Fatalf("UnifiedHistory failed: %v", err)
	}

	want := []struct {
		kind   models.EntryKind
		item   string
		amount string
	}{
		{models.EntryPayment, "Sugar", "60"},
		{models.EntryTransaction, "Salt", "10"},
		{models.EntryPayment, "Sugar", "30"},
		{models.EntryTransaction, "Sugar", "90"},
	}
	if len(history) != len(want) {
		t.Fatalf("history has %d entries, want %d", len(history), len(want))
	}
	for i, w := range want {
		e := history[i]
		if e.Kind != w.kind || e.ItemName != w.item || !e.Amount.Equal(dec(w.amount)) {
			t.Errorf("entry %d = %s %s %s, want %s %s %s", i, e.Kind, e.ItemName, e.Amount, w.kind, w.item, w.amount)
		}
		if e.Kind == models.EntryPayment && e.Editable {
			t.Errorf("entry %d: payments must not be editable", i)
		}
		if e.TransactionID == "" {
			t.Errorf("entry %d: missing transaction id", i)
		}
	}
}

func TestAggregator_Dashboard(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	agg := NewAggregator(store, time.UTC)

	for i := 0; i < 6; i++ {
		seedTx(t, store, "nina", "X", "25", march15.AddDate(0, 0, -i*10))
	}

	d, err := agg.Dashboard(ctx, "nina", march15)
	if err != nil {
		t.Fatalf("Dashboard failed: %v", err)
	}
	if !d.Outstanding.Equal(dec("150")) {
		t.Errorf("outstanding = %s, want 150", d.Outstanding)
	}
	// March 15, March 5 (Feb 24, Feb 14, ... fall outside).
	if d.Month.Transactions != 2 {
		t.Errorf("month transactions = %d, want 2", d.Month.Transactions)
	}
	if len(d.Recent) != DefaultRecentLimit {
		t.Errorf("recent = %d, want %d", len(d.Recent), DefaultRecentLimit)
	}
}

func TestAggregator_AuditConsistent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	alloc := newTestAllocator(store, Options{})
	agg := NewAggregator(store, time.UTC)

	tx := seedTx(t, store, "omar", "Milk", "33.30", march15)
	for _, amount := range []string{"11.10", "11.10", "11.10"} {
		if _, err := alloc.ApplyPayment(ctx, "omar", PaymentRequest{TransactionID: tx.ID, Amount: dec(amount)}); err != nil {
			t.Fatalf("ApplyPayment failed: %v", err)
		}
	}

	report, err := agg.Audit(ctx, "omar", tx.ID)
	if err != nil {
		t.Fatalf("Audit failed: %v", err)
	}
	if !report.Consistent() || report.Payments != 3 {
		t.Errorf("expected consistent audit with 3 payments, got %+v", report)
	}
	if report.Transaction.Status != models.StatusSettled {
		t.Errorf("status = %s, want settled", report.Transaction.Status)
	}

	if _, err := agg.Audit(ctx, "mallory", tx.ID); KindOf(err) != KindNotFound {
		t.Errorf("expected NotFound auditing a foreign transaction, got %v", err)
	}
}

func TestAggregator_OwnerScoping(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	agg := NewAggregator(store, time.UTC)
	seedTx(t, store, "pat", "Mine", "10", march15)

	history, err := agg.UnifiedHistory(ctx, "quinn")
	if err != nil {
		t.Fatalf("UnifiedHistory failed: %v", err)
	}
	if len(history) != 0 {
		t.Errorf("history leaked %d entries across owners", len(history))
	}

	n, err := store.CountTransactions(ctx, "quinn", storage.TransactionQuery{})
	if err != nil || n != 0 {
		t.Errorf("CountTransactions = %d, %v", n, err)
	}
}
