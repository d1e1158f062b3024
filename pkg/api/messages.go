package api

import (
	"time"

	"github.com/shopspring/decimal"
)

// Amounts are decimal strings on the wire ("1250.50"); numbers are also
// accepted in requests.

type User struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	CreatedAt   int64  `json:"createdAt"`
}

type Transaction struct {
	ID              string          `json:"id"`
	ItemID          string          `json:"itemId,omitempty"`
	ItemName        string          `json:"itemName"`
	Price           decimal.Decimal `json:"price"`
	Quantity        int64           `json:"quantity"`
	Total           decimal.Decimal `json:"total"`
	Paid            decimal.Decimal `json:"paid"`
	Remaining       decimal.Decimal `json:"remaining"`
	Status          string          `json:"status"`
	Date            time.Time       `json:"date"`
	Note            string          `json:"note,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	LastPaymentDate *time.Time      `json:"lastPaymentDate,omitempty"`
}

type Payment struct {
	ID            string          `json:"id"`
	TransactionID string          `json:"transactionId"`
	ItemName      string          `json:"itemName"`
	Amount        decimal.Decimal `json:"amount"`
	Date          time.Time       `json:"date"`
	Note          string          `json:"note,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
}

type Item struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// HistoryEntry is one row of the merged history feed. Kind is
// "transaction" or "payment"; payments are never editable.
type HistoryEntry struct {
	Kind          string          `json:"kind"`
	ID            string          `json:"id"`
	TransactionID string          `json:"transactionId"`
	Date          time.Time       `json:"date"`
	ItemName      string          `json:"itemName"`
	Amount        decimal.Decimal `json:"amount"`
	Quantity      int64           `json:"quantity,omitempty"`
	Status        string          `json:"status,omitempty"`
	Note          string          `json:"note,omitempty"`
	Editable      bool            `json:"editable"`
}

// Auth service

type RegisterRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	Password    string `json:"password"`
}

type RegisterResponse struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}

type LogoutRequest struct{}

type LogoutResponse struct{}

type GetCurrentUserRequest struct{}

type GetCurrentUserResponse struct {
	User *User `json:"user"`
}

// Ledger service

// CreateTransactionRequest records a purchase. With ItemID set, an empty
// itemName and a missing price are taken from the catalog item.
type CreateTransactionRequest struct {
	ItemID   string              `json:"itemId,omitempty"`
	ItemName string              `json:"itemName,omitempty"`
	Price    decimal.NullDecimal `json:"price"`
	Quantity int64               `json:"quantity"`
	Date     string              `json:"date,omitempty"`
	Note     string              `json:"note,omitempty"`
}

type CreateTransactionResponse struct {
	Transaction *Transaction `json:"transaction"`
}

type ListTransactionsRequest struct{}

type ListTransactionsResponse struct {
	Transactions []*Transaction `json:"transactions"`
}

type ListUnpaidRequest struct{}

type ListUnpaidResponse struct {
	Transactions []*Transaction `json:"transactions"`
	Outstanding  decimal.Decimal `json:"outstanding"`
}

// ApplyPaymentRequest pays Amount, or the whole remaining balance when
// PayRemaining is set.
type ApplyPaymentRequest struct {
	TransactionID string          `json:"transactionId"`
	Amount        decimal.Decimal `json:"amount"`
	PayRemaining  bool            `json:"payRemaining,omitempty"`
	Date          string          `json:"date,omitempty"`
	Note          string          `json:"note,omitempty"`
}

type ApplyPaymentResponse struct {
	Transaction *Transaction    `json:"transaction"`
	Payment     *Payment        `json:"payment"`
	Remaining   decimal.Decimal `json:"remaining"`
}

type ApplyPaymentsRequest struct {
	Payments []*ApplyPaymentRequest `json:"payments"`
}

// PaymentResult reports one entry of ApplyPayments. On failure ErrorKind
// holds the ledger error kind and, for invalid_amount, Remaining holds the
// current balance.
type PaymentResult struct {
	TransactionID string           `json:"transactionId"`
	OK            bool             `json:"ok"`
	Transaction   *Transaction     `json:"transaction,omitempty"`
	Payment       *Payment         `json:"payment,omitempty"`
	Remaining     *decimal.Decimal `json:"remaining,omitempty"`
	ErrorKind     string           `json:"errorKind,omitempty"`
	Error         string           `json:"error,omitempty"`
}

type ApplyPaymentsResponse struct {
	Results []*PaymentResult `json:"results"`
}

type GetDashboardRequest struct {
	// ReferenceDate selects the month; empty means the current month.
	ReferenceDate string `json:"referenceDate,omitempty"`
}

type GetDashboardResponse struct {
	Outstanding       decimal.Decimal `json:"outstanding"`
	MonthFrom         time.Time       `json:"monthFrom"`
	MonthTo           time.Time       `json:"monthTo"`
	MonthTransactions int64           `json:"monthTransactions"`
	MonthSettled      int64           `json:"monthSettled"`
	Recent            []*Transaction  `json:"recent"`
}

type GetHistoryRequest struct{}

type GetHistoryResponse struct {
	Entries []*HistoryEntry `json:"entries"`
}

// Catalog service

type CreateItemRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
}

type CreateItemResponse struct {
	Item *Item `json:"item"`
}

type ListItemsRequest struct{}

type ListItemsResponse struct {
	Items []*Item `json:"items"`
}

type DeleteItemRequest struct {
	ID string `json:"id"`
}

type DeleteItemResponse struct{}
