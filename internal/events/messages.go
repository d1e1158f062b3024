package events

import (
	"encoding/json"
	"time"
)

// Routing keys on the ledger exchange.
const (
	RoutingPaymentApplied = "payment.applied"
)

// PaymentAppliedMessage announces a completed allocation.
type PaymentAppliedMessage struct {
	OwnerID       string    `json:"ownerId"`
	TransactionID string    `json:"transactionId"`
	PaymentID     string    `json:"paymentId"`
	Amount        string    `json:"amount"`
	Remaining     string    `json:"remaining"`
	Settled       bool      `json:"settled"`
	Version       int64     `json:"version"`
	Timestamp     time.Time `json:"timestamp"`
}

// PartialAllocationMessage describes an allocation whose transaction update
// was stored but whose payment record was not. The reconcile worker audits
// the transaction named here.
type PartialAllocationMessage struct {
	OwnerID       string    `json:"ownerId"`
	TransactionID string    `json:"transactionId"`
	AllocationID  string    `json:"allocationId,omitempty"`
	Amount        string    `json:"amount"`
	Date          time.Time `json:"date"`
	Note          string    `json:"note,omitempty"`
	Reason        string    `json:"reason"`
	Timestamp     time.Time `json:"timestamp"`
}

// ToJSON converts the message to JSON bytes
func (m *PaymentAppliedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ToJSON converts the message to JSON bytes
func (m *PartialAllocationMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// PartialAllocationMessageFromJSON decodes a reconcile queue message.
func PartialAllocationMessageFromJSON(data []byte) (*PartialAllocationMessage, error) {
	var msg PartialAllocationMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
