package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mmynk/tabkeeper/internal/storage"
)

// Kind classifies ledger failures. The values double as wire codes.
type Kind string

const (
	KindNotFound          Kind = "not_found"
	KindInvalidAmount     Kind = "invalid_amount"
	KindInvalidDate       Kind = "invalid_date"
	KindInvalidInput      Kind = "invalid_input"
	KindStoreUnavailable  Kind = "store_unavailable"
	KindPartialAllocation Kind = "partial_allocation"
)

// Sentinels for errors.Is. Any *Error matches the sentinel of its kind.
var (
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrInvalidAmount     = &Error{Kind: KindInvalidAmount}
	ErrInvalidDate       = &Error{Kind: KindInvalidDate}
	ErrInvalidInput      = &Error{Kind: KindInvalidInput}
	ErrStoreUnavailable  = &Error{Kind: KindStoreUnavailable}
	ErrPartialAllocation = &Error{Kind: KindPartialAllocation}
)

// Error is the failure type returned by Allocator, Aggregator and Book.
//
// Message is safe to show to any caller. Err holds the internal cause and
// must only be exposed in debug deployments.
type Error struct {
	Kind    Kind
	Message string

	// TransactionID is set when the failure concerns one transaction.
	TransactionID string

	// Amount is the attempted amount for InvalidAmount and PartialAllocation.
	Amount decimal.Decimal

	// Remaining is the current remaining balance for InvalidAmount.
	Remaining decimal.Decimal

	Err error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = PublicMessage(e.Kind)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// KindOf returns the kind of the first *Error in err's chain, or "" if there
// is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// PublicMessage is the generic text for a kind.
func PublicMessage(k Kind) string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindInvalidAmount:
		return "invalid amount"
	case KindInvalidDate:
		return "invalid date"
	case KindInvalidInput:
		return "invalid input"
	case KindStoreUnavailable:
		return "store unavailable, try again"
	case KindPartialAllocation:
		return "payment was applied to the transaction but not recorded"
	default:
		return "internal error"
	}
}

func notFound(what, id string) *Error {
	e := &Error{Kind: KindNotFound, Message: what + " not found"}
	if what == "transaction" {
		e.TransactionID = id
	}
	return e
}

func invalidAmount(txID string, amount, remaining decimal.Decimal) *Error {
	var msg string
	if !amount.IsPositive() {
		msg = fmt.Sprintf("amount must be greater than 0 (remaining balance %s)", remaining)
	} else {
		msg = fmt.Sprintf("amount %s exceeds remaining balance %s", amount, remaining)
	}
	return &Error{
		Kind:          KindInvalidAmount,
		Message:       msg,
		TransactionID: txID,
		Amount:        amount,
		Remaining:     remaining,
	}
}

func invalidInput(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidInput, Message: fmt.Sprintf(format, args...)}
}

func storeUnavailable(op string, err error) *Error {
	return &Error{Kind: KindStoreUnavailable, Message: PublicMessage(KindStoreUnavailable), Err: fmt.Errorf("%s: %w", op, err)}
}

// partialAllocation tells the caller what happens next: queued means the
// reconcile queue accepted the allocation.
func partialAllocation(txID string, amount decimal.Decimal, err error, queued bool) *Error {
	msg := PublicMessage(KindPartialAllocation) + "; it has been logged for manual reconciliation"
	if queued {
		msg = PublicMessage(KindPartialAllocation) + "; it has been queued for reconciliation"
	}
	return &Error{
		Kind:          KindPartialAllocation,
		Message:       msg,
		TransactionID: txID,
		Amount:        amount,
		Err:           err,
	}
}

// fromStore maps a storage error. storage.ErrNotFound becomes NotFound for
// the named entity; cancellation, deadlines and everything else become
// StoreUnavailable.
func fromStore(op, what, id string, err error) *Error {
	if errors.Is(err, storage.ErrNotFound) {
		return notFound(what, id)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return storeUnavailable(op, fmt.Errorf("timeout: %w", err))
	}
	return storeUnavailable(op, err)
}
