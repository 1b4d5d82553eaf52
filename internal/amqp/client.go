// Package amqp connects the API server to the sheet export worker over
// RabbitMQ. Messages are change notifications, not data: losing one only
// delays the export, the pending-sync scan catches up.
package amqp

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

type Client struct {
	conn         *amqp091.Connection
	channel      *amqp091.Channel
	exchangeName string
	queueName    string
}

func NewClient(url, exchangeName, queueName string) (*Client, error) {
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
		conn:         conn,
		channel:      channel,
		exchangeName: exchangeName,
		queueName:    queueName,
	}

	if err := client.setup(); err != nil {
		client.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}

	return client, nil
}

func (c *Client) setup() error {
	err := c.channel.ExchangeDeclare(
		c.exchangeName,
		"direct",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	_, err = c.channel.QueueDeclare(
		c.queueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	// Routing key matches the queue name on a direct exchange.
	err = c.channel.QueueBind(c.queueName, c.queueName, c.exchangeName, false, nil)
	if err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}

	return nil
}

// TransactionSaved publishes a change notification for a stored row. It
// satisfies the server's SyncNotifier interface.
func (c *Client) TransactionSaved(ctx context.Context, kind, id string) error {
	return c.publish(ctx, NewTransactionSyncMessage(kind, id, false))
}

// TransactionDeleted publishes a deletion notification.
func (c *Client) TransactionDeleted(ctx context.Context, kind, id string) error {
	return c.publish(ctx, NewTransactionSyncMessage(kind, id, true))
}

func (c *Client) publish(ctx context.Context, msg *TransactionSyncMessage) error {
	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = c.channel.PublishWithContext(
		ctx,
		c.exchangeName,
		c.queueName,
		false, // mandatory
		false, // immediate
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

	slog.InfoContext(ctx, "Published transaction sync message",
		"kind", msg.Kind,
		"id", msg.ID,
		"deleted", msg.Deleted,
		"exchange", c.exchangeName,
		"queue", c.queueName)

	return nil
}

// ConsumeTransactionSync delivers sync messages to handler until ctx ends.
// Handler errors requeue the message; unparseable messages are dropped.
func (c *Client) ConsumeTransactionSync(ctx context.Context, handler func(*TransactionSyncMessage) error) error {
	msgs, err := c.channel.Consume(
		c.queueName,
		"",    // consumer
		false, // manual ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	slog.InfoContext(ctx, "Started consuming transaction sync messages", "queue", c.queueName)

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return fmt.Errorf("message channel closed")
			}

			msg, err := TransactionSyncMessageFromJSON(delivery.Body)
			if err != nil {
				slog.ErrorContext(ctx, "Failed to unmarshal message", "error", err)
				delivery.Nack(false, false)
				continue
			}

			if err := handler(msg); err != nil {
				slog.ErrorContext(ctx, "Failed to handle message",
					"error", err,
					"kind", msg.Kind,
					"id", msg.ID)
				delivery.Nack(false, true)
				continue
			}

			delivery.Ack(false)
		}
	}
}

// exponentialBackoff returns the wait before reconnect attempt n, doubling
// from one second and capped at 30s.
func exponentialBackoff(attempt int) time.Duration {
	backoff := time.Second << attempt
	if attempt >= 5 || backoff > 30*time.Second {
		return 30 * time.Second
	}
	return backoff
}

// IsConnectionError reports whether an error looks like a lost broker
// connection, as opposed to a handler or protocol error.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, s := range []string{
		"connection refused",
		"connection closed",
		"connection reset",
		"unexpected EOF",
		"broken pipe",
		"use of closed network connection",
		"channel/connection is not open",
	} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
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
