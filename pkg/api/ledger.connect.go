package api

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"
)

// LedgerServiceName is the fully-qualified name of the LedgerService.
const LedgerServiceName = "tabkeeper.v1.LedgerService"

// Procedure paths, used for routing and in interceptors.
const (
	LedgerServiceCreateTransactionProcedure = "/tabkeeper.v1.LedgerService/CreateTransaction"
	LedgerServiceListTransactionsProcedure  = "/tabkeeper.v1.LedgerService/ListTransactions"
	LedgerServiceListUnpaidProcedure        = "/tabkeeper.v1.LedgerService/ListUnpaid"
	LedgerServiceApplyPaymentProcedure      = "/tabkeeper.v1.LedgerService/ApplyPayment"
	LedgerServiceApplyPaymentsProcedure     = "/tabkeeper.v1.LedgerService/ApplyPayments"
	LedgerServiceGetDashboardProcedure      = "/tabkeeper.v1.LedgerService/GetDashboard"
	LedgerServiceGetHistoryProcedure        = "/tabkeeper.v1.LedgerService/GetHistory"
)

// LedgerServiceHandler is the server side of the LedgerService.
type LedgerServiceHandler interface {
	CreateTransaction(context.Context, *connect.Request[CreateTransactionRequest]) (*connect.Response[CreateTransactionResponse], error)
	ListTransactions(context.Context, *connect.Request[ListTransactionsRequest]) (*connect.Response[ListTransactionsResponse], error)
	ListUnpaid(context.Context, *connect.Request[ListUnpaidRequest]) (*connect.Response[ListUnpaidResponse], error)
	ApplyPayment(context.Context, *connect.Request[ApplyPaymentRequest]) (*connect.Response[ApplyPaymentResponse], error)
	ApplyPayments(context.Context, *connect.Request[ApplyPaymentsRequest]) (*connect.Response[ApplyPaymentsResponse], error)
	GetDashboard(context.Context, *connect.Request[GetDashboardRequest]) (*connect.Response[GetDashboardResponse], error)
	GetHistory(context.Context, *connect.Request[GetHistoryRequest]) (*connect.Response[GetHistoryResponse], error)
}

// NewLedgerServiceHandler builds an HTTP handler for svc. It returns the path
// prefix to mount the handler on.
func NewLedgerServiceHandler(svc LedgerServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	createTransactionHandler := connect.NewUnaryHandler(LedgerServiceCreateTransactionProcedure, svc.CreateTransaction, opts...)
	listTransactionsHandler := connect.NewUnaryHandler(LedgerServiceListTransactionsProcedure, svc.ListTransactions, opts...)
	listUnpaidHandler := connect.NewUnaryHandler(LedgerServiceListUnpaidProcedure, svc.ListUnpaid, opts...)
	applyPaymentHandler := connect.NewUnaryHandler(LedgerServiceApplyPaymentProcedure, svc.ApplyPayment, opts...)
	applyPaymentsHandler := connect.NewUnaryHandler(LedgerServiceApplyPaymentsProcedure, svc.ApplyPayments, opts...)
	getDashboardHandler := connect.NewUnaryHandler(LedgerServiceGetDashboardProcedure, svc.GetDashboard, opts...)
	getHistoryHandler := connect.NewUnaryHandler(LedgerServiceGetHistoryProcedure, svc.GetHistory, opts...)
	return "/" + LedgerServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case LedgerServiceCreateTransactionProcedure:
			createTransactionHandler.ServeHTTP(w, r)
		case LedgerServiceListTransactionsProcedure:
			listTransactionsHandler.ServeHTTP(w, r)
		case LedgerServiceListUnpaidProcedure:
			listUnpaidHandler.ServeHTTP(w, r)
		case LedgerServiceApplyPaymentProcedure:
			applyPaymentHandler.ServeHTTP(w, r)
		case LedgerServiceApplyPaymentsProcedure:
			applyPaymentsHandler.ServeHTTP(w, r)
		case LedgerServiceGetDashboardProcedure:
			getDashboardHandler.ServeHTTP(w, r)
		case LedgerServiceGetHistoryProcedure:
			getHistoryHandler.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}

// LedgerServiceClient is a client for the LedgerService.
type LedgerServiceClient interface {
	CreateTransaction(context.Context, *connect.Request[CreateTransactionRequest]) (*connect.Response[CreateTransactionResponse], error)
	ListTransactions(context.Context, *connect.Request[ListTransactionsRequest]) (*connect.Response[ListTransactionsResponse], error)
	ListUnpaid(context.Context, *connect.Request[ListUnpaidRequest]) (*connect.Response[ListUnpaidResponse], error)
	ApplyPayment(context.Context, *connect.Request[ApplyPaymentRequest]) (*connect.Response[ApplyPaymentResponse], error)
	ApplyPayments(context.Context, *connect.Request[ApplyPaymentsRequest]) (*connect.Response[ApplyPaymentsResponse], error)
	GetDashboard(context.Context, *connect.Request[GetDashboardRequest]) (*connect.Response[GetDashboardResponse], error)
	GetHistory(context.Context, *connect.Request[GetHistoryRequest]) (*connect.Response[GetHistoryResponse], error)
}

// NewLedgerServiceClient constructs a client for the LedgerService.
// baseURL is the server root, for example http://localhost:8080.
func NewLedgerServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) LedgerServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = clientOptions(opts)
	return &ledgerServiceClient{
		createTransaction: connect.NewClient[CreateTransactionRequest, CreateTransactionResponse](httpClient, baseURL+LedgerServiceCreateTransactionProcedure, opts...),
		listTransactions:  connect.NewClient[ListTransactionsRequest, ListTransactionsResponse](httpClient, baseURL+LedgerServiceListTransactionsProcedure, opts...),
		listUnpaid:        connect.NewClient[ListUnpaidRequest, ListUnpaidResponse](httpClient, baseURL+LedgerServiceListUnpaidProcedure, opts...),
		applyPayment:      connect.NewClient[ApplyPaymentRequest, ApplyPaymentResponse](httpClient, baseURL+LedgerServiceApplyPaymentProcedure, opts...),
		applyPayments:     connect.NewClient[ApplyPaymentsRequest, ApplyPaymentsResponse](httpClient, baseURL+LedgerServiceApplyPaymentsProcedure, opts...),
		getDashboard:      connect.NewClient[GetDashboardRequest, GetDashboardResponse](httpClient, baseURL+LedgerServiceGetDashboardProcedure, opts...),
		getHistory:        connect.NewClient[GetHistoryRequest, GetHistoryResponse](httpClient, baseURL+LedgerServiceGetHistoryProcedure, opts...),
	}
}

type ledgerServiceClient struct {
	createTransaction *connect.Client[CreateTransactionRequest, CreateTransactionResponse]
	listTransactions  *connect.Client[ListTransactionsRequest, ListTransactionsResponse]
	listUnpaid        *connect.Client[ListUnpaidRequest, ListUnpaidResponse]
	applyPayment      *connect.Client[ApplyPaymentRequest, ApplyPaymentResponse]
	applyPayments     *connect.Client[ApplyPaymentsRequest, ApplyPaymentsResponse]
	getDashboard      *connect.Client[GetDashboardRequest, GetDashboardResponse]
	getHistory        *connect.Client[GetHistoryRequest, GetHistoryResponse]
}

func (c *ledgerServiceClient) CreateTransaction(ctx context.Context, req *connect.Request[CreateTransactionRequest]) (*connect.Response[CreateTransactionResponse], error) {
	return c.createTransaction.CallUnary(ctx, req)
}

func (c *ledgerServiceClient) ListTransactions(ctx context.Context, req *connect.Request[ListTransactionsRequest]) (*connect.Response[ListTransactionsResponse], error) {
	return c.listTransactions.CallUnary(ctx, req)
}

func (c *ledgerServiceClient) ListUnpaid(ctx context.Context, req *connect.Request[ListUnpaidRequest]) (*connect.Response[ListUnpaidResponse], error) {
	return c.listUnpaid.CallUnary(ctx, req)
}

func (c *ledgerServiceClient) ApplyPayment(ctx context.Context, req *connect.Request[ApplyPaymentRequest]) (*connect.Response[ApplyPaymentResponse], error) {
	return c.applyPayment.CallUnary(ctx, req)
}

func (c *ledgerServiceClient) ApplyPayments(ctx context.Context, req *connect.Request[ApplyPaymentsRequest]) (*connect.Response[ApplyPaymentsResponse], error) {
	return c.applyPayments.CallUnary(ctx, req)
}

func (c *ledgerServiceClient) GetDashboard(ctx context.Context, req *connect.Request[GetDashboardRequest]) (*connect.Response[GetDashboardResponse], error) {
	return c.getDashboard.CallUnary(ctx, req)
}

func (c *ledgerServiceClient) GetHistory(ctx context.Context, req *connect.Request[GetHistoryRequest]) (*connect.Response[GetHistoryResponse], error) {
	return c.getHistory.CallUnary(ctx, req)
}
