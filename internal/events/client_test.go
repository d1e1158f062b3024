package events

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDispatch(t *testing.T) {
	valid, err := (&PartialAllocationMessage{
		OwnerID:       "alice",
		TransactionID: "tx-1",
		Amount:        "250",
		Date:          time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		Reason:        "insert payment: timeout",
	}).ToJSON()
	if err != nil {
		t.Fatalf("ToJSON failed: %v", err)
	}

	tests := []struct {
		name    string
		body    []byte
		handler PartialAllocationHandler
		want    deliveryAction
	}{
		{
			name:    "handled message is acked",
			body:    valid,
			handler: func(context.Context, *PartialAllocationMessage) error { return nil },
			want:    actionAck,
		},
		{
			name:    "handler failure requeues",
			body:    valid,
			handler: func(context.Context, *PartialAllocationMessage) error { return errors.New("store down") },
			want:    actionRequeue,
		},
		{
			name: "malformed body is dropped",
			body: []byte("{not json"),
			handler: func(context.Context, *PartialAllocationMessage) error {
				t.Error("handler must not run for malformed body")
				return nil
			},
			want: actionDrop,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := dispatch(context.Background(), tt.body, tt.handler); got != tt.want {
				t.Errorf("dispatch() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDispatch_PassesMessageFields(t *testing.T) {
	body := []byte(`{"ownerId":"bob","transactionId":"tx-9","amount":"12.5","reason":"boom"}`)

	var got *PartialAllocationMessage
	dispatch(context.Background(), body, func(_ context.Context, msg *PartialAllocationMessage) error {
		got = msg
		return nil
	})

	if got == nil {
		t.Fatal("handler not called")
	}
	if got.OwnerID != "bob" || got.TransactionID != "tx-9" || got.Amount != "12.5" || got.Reason != "boom" {
		t.Errorf("unexpected message: %+v", got)
	}
}
