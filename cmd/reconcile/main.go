// Command reconcile consumes partial allocations from the reconcile queue
// and restores the missing payment records.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/shopspring/decimal"

	"github.com/mmynk/tabkeeper/internal/config"
	"github.com/mmynk/tabkeeper/internal/events"
	"github.com/mmynk/tabkeeper/internal/ledger"
	"github.com/mmynk/tabkeeper/internal/storage/backend"
	"github.com/mmynk/tabkeeper/pkg/logging"
)

func main() {
	cfg := config.Load()
	logging.Setup(cfg.LogLevel)

	slog.Info("Starting reconcile worker")

	if err := cfg.Validate(); err != nil {
		slog.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res, err := backend.Open(ctx, cfg, true, slog.Default())
	if err != nil {
		slog.Error("Failed to open backend", "error", err)
		os.Exit(1)
	}
	defer res.Close()

	reconciler := ledger.NewReconciler(res.Store, cfg.Location())

	err = res.Events.ConsumePartialAllocations(ctx, handler(reconciler))
	if err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("Message consumption failed", "error", err)
		return
	}

	slog.Info("Reconcile worker stopped")
}

// handler adapts the reconciler to queue messages. Messages that can never
// succeed are acknowledged after logging; store failures are requeued.
func handler(r *ledger.Reconciler) events.PartialAllocationHandler {
	return func(ctx context.Context, msg *events.PartialAllocationMessage) error {
		amount, err := decimal.NewFromString(msg.Amount)
		if err != nil {
			slog.ErrorContext(ctx, "Dropping message with invalid amount",
				"transaction_id", msg.TransactionID,
				"amount", msg.Amount,
				"error", err)
			return nil
		}

		result, err := r.Restore(ctx, msg.OwnerID, ledger.LostPayment{
			AllocationID:  msg.AllocationID,
			TransactionID: msg.TransactionID,
			Amount:        amount,
			Date:          msg.Date,
			Note:          msg.Note,
		})
		switch kind := ledger.KindOf(err); {
		case err == nil:
		case kind == ledger.KindNotFound, kind == ledger.KindInvalidInput:
			slog.ErrorContext(ctx, "Cannot reconcile allocation",
				"transaction_id", msg.TransactionID,
				"user_id", msg.OwnerID,
				"error", err)
			return nil
		default:
			return err
		}

		if result.Restored == nil && !result.Before.Consistent() {
			slog.WarnContext(ctx, "Transaction still inconsistent",
				"transaction_id", msg.TransactionID,
				"user_id", msg.OwnerID,
				"paid", result.Before.Transaction.Paid.String(),
				"payment_sum", result.Before.PaymentSum.String())
		}
		return nil
	}
}
