package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/tabkeeper/internal/ledger"
	"github.com/mmynk/tabkeeper/pkg/api"
)

// maxBatchPayments caps a single ApplyPayments call.
const maxBatchPayments = 100

var _ api.LedgerServiceHandler = (*LedgerService)(nil)

// LedgerService implements the LedgerService RPC interface on top of the
// ledger book, allocator and aggregator.
type LedgerService struct {
	book       *ledger.Book
	allocator  *ledger.Allocator
	aggregator *ledger.Aggregator
	loc        *time.Location
	debug      bool
	logger     *slog.Logger
}

// LedgerOptions configures a LedgerService.
type LedgerOptions struct {
	// Location is used to read dashboard reference dates.
	Location *time.Location

	// Debug exposes internal error causes to callers.
	Debug bool

	Logger *slog.Logger
}

// NewLedgerService creates a new ledger service.
func NewLedgerService(book *ledger.Book, allocator *ledger.Allocator, aggregator *ledger.Aggregator, opts LedgerOptions) *LedgerService {
	s := &LedgerService{
		book:       book,
		allocator:  allocator,
		aggregator: aggregator,
		loc:        opts.Location,
		debug:      opts.Debug,
		logger:     opts.Logger,
	}
	if s.loc == nil {
		s.loc = time.Local
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// CreateTransaction records a purchase on credit.
func (s *LedgerService) CreateTransaction(ctx context.Context, req *connect.Request[api.CreateTransactionRequest]) (*connect.Response[api.CreateTransactionResponse], error) {
	userID, err := requireOwner(ctx)
	if err != nil {
		return nil, err
	}

	tx, err := s.book.RecordTransaction(ctx, userID, ledger.NewTransaction{
		ItemID:   req.Msg.ItemID,
		ItemName: req.Msg.ItemName,
		Price:    req.Msg.Price,
		Quantity: req.Msg.Quantity,
		Date:     req.Msg.Date,
		Note:     req.Msg.Note,
	})
	if err != nil {
		s.logger.Warn("CreateTransaction failed", "user_id", userID, "error", err)
		return nil, toConnectError(err, s.debug)
	}

	s.logger.Info("Transaction recorded", "user_id", userID, "transaction_id", tx.ID, "total", tx.Total.String())
	return connect.NewResponse(&api.CreateTransactionResponse{Transaction: toAPITransaction(tx)}), nil
}

// ListTransactions returns every transaction of the caller, newest first.
func (s *LedgerService) ListTransactions(ctx context.Context, req *connect.Request[api.ListTransactionsRequest]) (*connect.Response[api.ListTransactionsResponse], error) {
	userID, err := requireOwner(ctx)
	if err != nil {
		return nil, err
	}

	txs, err := s.book.ListTransactions(ctx, userID)
	if err != nil {
		return nil, toConnectError(err, s.debug)
	}

	return connect.NewResponse(&api.ListTransactionsResponse{Transactions: toAPITransactions(txs)}), nil
}

// ListUnpaid returns the caller's unsettled transactions together with the
// outstanding total.
func (s *LedgerService) ListUnpaid(ctx context.Context, req *connect.Request[api.ListUnpaidRequest]) (*connect.Response[api.ListUnpaidResponse], error) {
	userID, err := requireOwner(ctx)
	if err != nil {
		return nil, err
	}

	txs, err := s.aggregator.UnpaidTransactions(ctx, userID)
	if err != nil {
		return nil, toConnectError(err, s.debug)
	}
	outstanding, err := s.aggregator.OutstandingTotal(ctx, userID)
	if err != nil {
		return nil, toConnectError(err, s.debug)
	}

	return connect.NewResponse(&api.ListUnpaidResponse{
		Transactions: toAPITransactions(txs),
		Outstanding:  outstanding,
	}), nil
}

// ApplyPayment pays against one transaction.
func (s *LedgerService) ApplyPayment(ctx context.Context, req *connect.Request[api.ApplyPaymentRequest]) (*connect.Response[api.ApplyPaymentResponse], error) {
	userID, err := requireOwner(ctx)
	if err != nil {
		return nil, err
	}

	alloc, err := s.allocator.ApplyPayment(ctx, userID, toPaymentRequest(req.Msg))
	if err != nil {
		s.logger.Warn("ApplyPayment failed",
			"user_id", userID,
			"transaction_id", req.Msg.TransactionID,
			"kind", ledger.KindOf(err),
			"error", err)
		return nil, toConnectError(err, s.debug)
	}

	return connect.NewResponse(&api.ApplyPaymentResponse{
		Transaction: toAPITransaction(alloc.Transaction),
		Payment:     toAPIPayment(alloc.Payment),
		Remaining:   alloc.Remaining,
	}), nil
}

// ApplyPayments applies several independent payments. Each entry succeeds
// or fails on its own; results are returned in request order.
func (s *LedgerService) ApplyPayments(ctx context.Context, req *connect.Request[api.ApplyPaymentsRequest]) (*connect.Response[api.ApplyPaymentsResponse], error) {
	userID, err := requireOwner(ctx)
	if err != nil {
		return nil, err
	}
	if len(req.Msg.Payments) > maxBatchPayments {
		return nil, connect.NewError(connect.CodeInvalidArgument,
			fmt.Errorf("at most %d payments per call", maxBatchPayments))
	}

	reqs := make([]ledger.PaymentRequest, 0, len(req.Msg.Payments))
	for i, p := range req.Msg.Payments {
		if p == nil {
			return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("payment %d is empty", i))
		}
		reqs = append(reqs, toPaymentRequest(p))
	}

	results := s.allocator.ApplyBatch(ctx, userID, reqs)

	out := make([]*api.PaymentResult, 0, len(results))
	failed := 0
	for _, r := range results {
		out = append(out, s.paymentResult(r))
		if r.Err != nil {
			failed++
		}
	}

	s.logger.Info("Batch payment applied", "user_id", userID, "payments", len(results), "failed", failed)
	return connect.NewResponse(&api.ApplyPaymentsResponse{Results: out}), nil
}

func (s *LedgerService) paymentResult(r ledger.BatchResult) *api.PaymentResult {
	res := &api.PaymentResult{TransactionID: r.Request.TransactionID}
	if r.Err == nil {
		remaining := r.Allocation.Remaining
		res.OK = true
		res.Transaction = toAPITransaction(r.Allocation.Transaction)
		res.Payment = toAPIPayment(r.Allocation.Payment)
		res.Remaining = &remaining
		return res
	}

	cerr := toConnectError(r.Err, s.debug)
	res.ErrorKind = cerr.Meta().Get(HeaderErrorKind)
	res.Error = cerr.Message()

	var le *ledger.Error
	if errors.As(r.Err, &le) && le.Kind == ledger.KindInvalidAmount {
		remaining := le.Remaining
		res.Remaining = &remaining
	}
	return res
}

// GetDashboard returns the outstanding total, the activity of the month
// containing the reference date and the most recent transactions.
func (s *LedgerService) GetDashboard(ctx context.Context, req *connect.Request[api.GetDashboardRequest]) (*connect.Response[api.GetDashboardResponse], error) {
	userID, err := requireOwner(ctx)
	if err != nil {
		return nil, err
	}

	ref, err := ledger.ParseDate(req.Msg.ReferenceDate, s.loc, time.Now())
	if err != nil {
		return nil, toConnectError(err, s.debug)
	}

	d, err := s.aggregator.Dashboard(ctx, userID, ref)
	if err != nil {
		return nil, toConnectError(err, s.debug)
	}

	return connect.NewResponse(&api.GetDashboardResponse{
		Outstanding:       d.Outstanding,
		MonthFrom:         d.Month.From,
		MonthTo:           d.Month.To,
		MonthTransactions: d.Month.Transactions,
		MonthSettled:      d.Month.Settled,
		Recent:            toAPITransactions(d.Recent),
	}), nil
}

// GetHistory returns transactions and payments merged, newest first.
func (s *LedgerService) GetHistory(ctx context.Context, req *connect.Request[api.GetHistoryRequest]) (*connect.Response[api.GetHistoryResponse], error) {
	userID, err := requireOwner(ctx)
	if err != nil {
		return nil, err
	}

	entries, err := s.aggregator.UnifiedHistory(ctx, userID)
	if err != nil {
		return nil, toConnectError(err, s.debug)
	}

	return connect.NewResponse(&api.GetHistoryResponse{Entries: toAPIHistory(entries)}), nil
}
