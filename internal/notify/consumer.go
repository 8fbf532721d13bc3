package notify

import (
	"context"
	"errors"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ErrDeliveriesClosed is returned by Consumer.Run when the broker closes the
// delivery channel.
var ErrDeliveriesClosed = errors.New("notify: delivery channel closed")

// Consumer turns queued events into mail on the worker side.
type Consumer struct {
	transport Transport
	observer  Observer
	logger    *slog.Logger
}

// NewConsumer delivers decoded events through transport.
func NewConsumer(transport Transport, observer Observer, logger *slog.Logger) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Consumer{
		transport: transport,
		observer:  observer,
		logger:    logger.With("component", "notify_consumer", "transport", transport.Name()),
	}
}

// Run handles deliveries until ctx ends or the channel closes.
func (c *Consumer) Run(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return ErrDeliveriesClosed
			}
			c.Handle(ctx, d)
		}
	}
}

// Handle acks a delivered event, requeues a failed first delivery once, and
// drops undecodable payloads.
func (c *Consumer) Handle(ctx context.Context, d amqp.Delivery) {
	logger := c.logger.With("message_id", d.MessageId, "redelivered", d.Redelivered)

	event, err := DecodeEvent(d.Body)
	if err != nil {
		c.observe("invalid")
		logger.ErrorContext(ctx, "discarding undecodable notification", "error", err)
		if nackErr := d.Nack(false, false); nackErr != nil {
			logger.ErrorContext(ctx, "nack failed", "error", nackErr)
		}
		return
	}

	if err := c.transport.Deliver(ctx, event); err != nil {
		requeue := !d.Redelivered
		c.observe("error")
		logger.ErrorContext(ctx, "notification delivery failed", "error", err, "requeue", requeue)
		if nackErr := d.Nack(false, requeue); nackErr != nil {
			logger.ErrorContext(ctx, "nack failed", "error", nackErr)
		}
		return
	}

	c.observe("ok")
	if err := d.Ack(false); err != nil {
		logger.ErrorContext(ctx, "ack failed", "error", err)
	}
}

func (c *Consumer) observe(outcome string) {
	if c.observer != nil {
		c.observer.ObserveNotification("amqp_consumer", outcome)
	}
}
