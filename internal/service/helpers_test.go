package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/shopspring/decimal"

	"github.com/mmynk/tabkeeper/internal/ledger"
	"github.com/mmynk/tabkeeper/internal/middleware"
	"github.com/mmynk/tabkeeper/internal/storage/sqlite"
	"github.com/mmynk/tabkeeper/pkg/api"
)

// testUserHeader selects the caller in tests; absent means alice.
const testUserHeader = "X-Test-User"

// testAuthInterceptor returns a Connect interceptor that sets a test user ID in the context.
func testAuthInterceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			user := req.Header().Get(testUserHeader)
			if user == "" {
				user = "alice"
			}
			return next(middleware.WithUser(ctx, user, user+"@example.com"), req)
		}
	}
}

type testClients struct {
	ledger  api.LedgerServiceClient
	catalog api.CatalogServiceClient
	store   *sqlite.SQLiteStore
}

// setupTestServer creates a test server backed by a temp-file SQLite database.
func setupTestServer(t *testing.T) *testClients {
	t.Helper()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	loc := time.UTC
	book := ledger.NewBook(store, loc)
	allocator := ledger.NewAllocator(store, ledger.Options{Location: loc})
	aggregator := ledger.NewAggregator(store, loc)

	interceptors := connect.WithInterceptors(testAuthInterceptor())
	mux := http.NewServeMux()
	mux.Handle(api.NewLedgerServiceHandler(
		NewLedgerService(book, allocator, aggregator, LedgerOptions{Location: loc}),
		interceptors,
	))
	mux.Handle(api.NewCatalogServiceHandler(NewCatalogService(book, false, nil), interceptors))

	server := httptest.NewServer(mux)
	t.Cleanup(func() {
		server.Close()
		store.Close()
	})

	return &testClients{
		ledger:  api.NewLedgerServiceClient(http.DefaultClient, server.URL),
		catalog: api.NewCatalogServiceClient(http.DefaultClient, server.URL),
		store:   store,
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func asUser[T any](msg *T, user string) *connect.Request[T] {
	req := connect.NewRequest(msg)
	req.Header().Set(testUserHeader, user)
	return req
}

func createTx(t *testing.T, c *testClients, name, price string, quantity int64, date string) *api.Transaction {
	t.Helper()

	resp, err := c.ledger.CreateTransaction(context.Background(), connect.NewRequest(&api.CreateTransactionRequest{
		ItemName: name,
		Price:    decimal.NewNullDecimal(dec(price)),
		Quantity: quantity,
		Date:     date,
	}))
	if err != nil {
		t.Fatalf("CreateTransaction failed: %v", err)
	}
	return resp.Msg.Transaction
}

func requireCode(t *testing.T, err error, want connect.Code) *connect.Error {
	t.Helper()

	if err == nil {
		t.Fatalf("expected %v error, got nil", want)
	}
	var cerr *connect.Error
	if !errors.As(err, &cerr) {
		t.Fatalf("expected connect error, got %T: %v", err, err)
	}
	if cerr.Code() != want {
		t.Fatalf("code = %v, want %v (%v)", cerr.Code(), want, err)
	}
	return cerr
}
