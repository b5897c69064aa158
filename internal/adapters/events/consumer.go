package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/avelazquez/remate/internal/notifications"
	"github.com/avelazquez/remate/pkg/events"
)

const notificationQueue = "notification_dispatch"

// NotificationConsumer consumes auction domain events and routes them
// through the notification dispatcher.
type NotificationConsumer struct {
	conn       *amqp.Connection
	dispatcher *notifications.Dispatcher
	logger     *slog.Logger
}

// NewNotificationConsumer creates a new notification consumer
func NewNotificationConsumer(conn *amqp.Connection, dispatcher *notifications.Dispatcher, logger *slog.Logger) *NotificationConsumer {
	return &NotificationConsumer{
		conn:       conn,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Run starts the consumer loop
func (c *NotificationConsumer) Run(ctx context.Context) error {
	ch, err := c.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	if setupErr := c.setupRabbitMQ(ch); setupErr != nil {
		return fmt.Errorf("failed to setup rabbitmq: %w", setupErr)
	}

	msgs, err := ch.Consume(
		notificationQueue, // queue
		"",                // consumer tag
		false,             // auto-ack
		false,             // exclusive
		false,             // no-local
		false,             // no-wait
		nil,               // args
	)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	c.logger.Info("Waiting for messages...")

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return fmt.Errorf("channel closed")
			}

			if err := c.handle(ctx, d.RoutingKey, d.Body); err != nil {
				c.logger.Error("Failed to process event", "routing_key", d.RoutingKey, "error", err)
				// Requeue transient failures; decoding errors are
				// poison and get dropped.
				requeue := !isDecodeError(err)
				if nackErr := d.Nack(false, requeue); nackErr != nil {
					c.logger.Error("Failed to Nack message", "error", nackErr)
				}
				continue
			}

			if ackErr := d.Ack(false); ackErr != nil {
				c.logger.Error("Failed to Ack message", "error", ackErr)
			}
		}
	}
}

type decodeError struct{ err error }

func (e decodeError) Error() string { return e.err.Error() }
func (e decodeError) Unwrap() error { return e.err }

func isDecodeError(err error) bool {
	_, ok := err.(decodeError)
	return ok
}

func (c *NotificationConsumer) handle(ctx context.Context, routingKey string, body []byte) error {
	switch routingKey {
	case events.TypeAuctionCreated:
		var event events.AuctionCreated
		if err := json.Unmarshal(body, &event); err != nil {
			return decodeError{err}
		}
		return c.dispatcher.HandleAuctionCreated(ctx, event)
	case events.TypeAuctionClosedNoOffers:
		var event events.AuctionClosedNoOffers
		if err := json.Unmarshal(body, &event); err != nil {
			return decodeError{err}
		}
		return c.dispatcher.HandleAuctionClosedNoOffers(ctx, event)
	case events.TypeBidPlaced:
		var event events.BidPlaced
		if err := json.Unmarshal(body, &event); err != nil {
			return decodeError{err}
		}
		return c.dispatcher.HandleBidPlaced(ctx, event)
	case events.TypeAdjudicationAccepted:
		var event events.AdjudicationAccepted
		if err := json.Unmarshal(body, &event); err != nil {
			return decodeError{err}
		}
		return c.dispatcher.HandleAdjudicationAccepted(ctx, event)
	case events.TypeAdjudicationRejected:
		var event events.AdjudicationRejected
		if err := json.Unmarshal(body, &event); err != nil {
			return decodeError{err}
		}
		return c.dispatcher.HandleAdjudicationRejected(ctx, event)
	default:
		c.logger.Warn("Ignoring unknown event type", "routing_key", routingKey)
		return nil
	}
}

func (c *NotificationConsumer) setupRabbitMQ(ch *amqp.Channel) error {
	err := ch.ExchangeDeclare(
		events.Exchange, // name
		"topic",         // type
		true,            // durable
		false,           // auto-deleted
		false,           // internal
		false,           // no-wait
		nil,             // args
	)
	if err != nil {
		return err
	}

	q, err := ch.QueueDeclare(
		notificationQueue, // name
		true,              // durable
		false,             // delete when unused
		false,             // exclusive
		false,             // no-wait
		nil,               // args
	)
	if err != nil {
		return err
	}

	// One queue for all auction events.
	return ch.QueueBind(
		q.Name,          // queue name
		"#",             // routing key
		events.Exchange, // exchange
		false,
		nil,
	)
}
