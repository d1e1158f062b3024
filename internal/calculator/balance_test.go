package calculator

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/mmynk/tabkeeper/internal/models"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestRemaining(t *testing.T) {
	tests := []struct {
		name        string
		tx          models.Transaction
		wantRemain  string
		wantSettled bool
	}{
		{
			name:       "nothing paid",
			tx:         models.Transaction{Total: d("1000"), Paid: d("0")},
			wantRemain: "1000",
		},
		{
			name:       "missing paid field counts as zero",
			tx:         models.Transaction{Total: d("250")},
			wantRemain: "250",
		},
		{
			name:       "partially paid",
			tx:         models.Transaction{Total: d("200"), Paid: d("50")},
			wantRemain: "150",
		},
		{
			name:        "fully paid",
			tx:          models.Transaction{Total: d("100"), Paid: d("100")},
			wantRemain:  "0",
			wantSettled: true,
		},
		{
			name:        "zero total is settled",
			tx:          models.Transaction{Total: d("0")},
			wantRemain:  "0",
			wantSettled: true,
		},
		{
			name:       "fractional amounts do not drift",
			tx:         models.Transaction{Total: d("0.3"), Paid: d("0.1").Add(d("0.1"))},
			wantRemain: "0.1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Remaining(&tt.tx)
			if !got.Equal(d(tt.wantRemain)) {
				t.Errorf("Remaining() = %s, want %s", got, tt.wantRemain)
			}
			if IsSettled(&tt.tx) != tt.wantSettled {
				t.Errorf("IsSettled() = %v, want %v", IsSettled(&tt.tx), tt.wantSettled)
			}
		})
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		total, paid string
		want        models.Status
	}{
		{"1000", "0", models.StatusUnsettled},
		{"1000", "999.99", models.StatusUnsettled},
		{"1000", "1000", models.StatusSettled},
		{"1000", "1000.00", models.StatusSettled},
		{"0", "0", models.StatusSettled},
	}

	for _, tt := range tests {
		t.Run(tt.total+"/"+tt.paid, func(t *testing.T) {
			if got := StatusFor(d(tt.total), d(tt.paid)); got != tt.want {
				t.Errorf("StatusFor(%s, %s) = %s, want %s", tt.total, tt.paid, got, tt.want)
			}
		})
	}
}

func TestNewTotal(t *testing.T) {
	if got := NewTotal(d("12.50"), 3); !got.Equal(d("37.5")) {
		t.Errorf("NewTotal(12.50, 3) = %s, want 37.5", got)
	}
	if got := NewTotal(d("0"), 7); !got.IsZero() {
		t.Errorf("NewTotal(0, 7) = %s, want 0", got)
	}
}
