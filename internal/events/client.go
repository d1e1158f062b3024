// Package events publishes ledger events to RabbitMQ and consumes the
// reconciliation queue.
package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"github.com/mmynk/tabkeeper/internal/calculator"
	"github.com/mmynk/tabkeeper/internal/models"
)

const publishTimeout = 5 * time.Second

type Client struct {
	conn           *amqp091.Connection
	channel        *amqp091.Channel
	exchangeName   string
	reconcileQueue string

	// serializes publishes on the shared channel
	mu sync.Mutex
}

func NewClient(url, exchangeName, reconcileQueue string) (*Client, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	client := &Client{
		conn:           conn,
		channel:        channel,
		exchangeName:   exchangeName,
		reconcileQueue: reconcileQueue,
	}

	if err := client.setup(); err != nil {
		client.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}

	return client, nil
}

func (c *Client) setup() error {
	err := c.channel.ExchangeDeclare(
		c.exchangeName, // name
		"direct",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	_, err = c.channel.QueueDeclare(
		c.reconcileQueue, // name
		true,             // durable
		false,            // delete when unused
		false,            // exclusive
		false,            // no-wait
		nil,              // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	// Routing key is the queue name, as for any direct binding.
	err = c.channel.QueueBind(
		c.reconcileQueue,
		c.reconcileQueue,
		c.exchangeName,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}

	return nil
}

// NotifyPaymentApplied publishes a payment.applied event.
func (c *Client) NotifyPaymentApplied(ctx context.Context, tx *models.Transaction, p *models.Payment) error {
	msg := &PaymentAppliedMessage{
		OwnerID:       tx.OwnerID,
		TransactionID: tx.ID,
		PaymentID:     p.ID,
		Amount:        p.Amount.String(),
		Remaining:     calculator.Remaining(tx).String(),
		Settled:       tx.Status == models.StatusSettled,
		Version:       tx.Version,
		Timestamp:     time.Now(),
	}
	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	if err := c.publish(ctx, RoutingPaymentApplied, body); err != nil {
		return err
	}

	slog.DebugContext(ctx, "Published payment applied event",
		"transaction_id", tx.ID,
		"payment_id", p.ID,
		"exchange", c.exchangeName)
	return nil
}

// NotifyPartialAllocation queues the transaction for reconciliation.
func (c *Client) NotifyPartialAllocation(ctx context.Context, p *models.Payment, cause error) error {
	msg := &PartialAllocationMessage{
		OwnerID:       p.OwnerID,
		TransactionID: p.TransactionID,
		AllocationID:  p.AllocationID,
		Amount:        p.Amount.String(),
		Date:          p.Date,
		Note:          p.Note,
		Timestamp:     time.Now(),
	}
	if cause != nil {
		msg.Reason = cause.Error()
	}
	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	if err := c.publish(ctx, c.reconcileQueue, body); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Queued partial allocation for reconciliation",
		"transaction_id", p.TransactionID,
		"allocation_id", p.AllocationID,
		"user_id", p.OwnerID,
		"amount", msg.Amount,
		"queue", c.reconcileQueue)
	return nil
}

func (c *Client) publish(ctx context.Context, routingKey string, body []byte) error {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	c.mu.Lock()
	defer c.mu.Unlock()

	err := c.channel.PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		routingKey,     // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}
	return nil
}

// PartialAllocationHandler processes one reconcile message. Returning an
// error requeues the message.
type PartialAllocationHandler func(ctx context.Context, msg *PartialAllocationMessage) error

// ConsumePartialAllocations consumes the reconcile queue until ctx is done.
func (c *Client) ConsumePartialAllocations(ctx context.Context, handler PartialAllocationHandler) error {
	msgs, err := c.channel.Consume(
		c.reconcileQueue, // queue
		"",               // consumer
		false,            // auto-ack (we want manual ack)
		false,            // exclusive
		false,            // no-local
		false,            // no-wait
		nil,              // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	slog.InfoContext(ctx, "Started consuming reconcile messages", "queue", c.reconcileQueue)

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return errors.New("message channel closed")
			}

			switch dispatch(ctx, delivery.Body, handler) {
			case actionAck:
				delivery.Ack(false)
			case actionRequeue:
				delivery.Nack(false, true)
			case actionDrop:
				delivery.Nack(false, false)
			}
		}
	}
}

type deliveryAction int

const (
	actionAck deliveryAction = iota
	actionRequeue
	actionDrop
)

func dispatch(ctx context.Context, body []byte, handler PartialAllocationHandler) deliveryAction {
	msg, err := PartialAllocationMessageFromJSON(body)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to unmarshal message", "error", err)
		return actionDrop
	}

	if err := handler(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to handle reconcile message",
			"error", err,
			"transaction_id", msg.TransactionID,
			"user_id", msg.OwnerID)
		return actionRequeue
	}

	slog.InfoContext(ctx, "Processed reconcile message",
		"transaction_id", msg.TransactionID,
		"user_id", msg.OwnerID)
	return actionAck
}

func (c *Client) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
