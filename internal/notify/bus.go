package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	amqp "github.com/rabbitmq/amqp091-go"
)

// AMQPChannel is the publishing side of an amqp091 channel.
type AMQPChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPPublisher publishes events to a durable queue on the default exchange.
type AMQPPublisher struct {
	ch    AMQPChannel
	queue string
}

// NewAMQPPublisher publishes to queue through ch.
func NewAMQPPublisher(ch AMQPChannel, queue string) *AMQPPublisher {
	return &AMQPPublisher{ch: ch, queue: queue}
}

// Name implements Transport.
func (p *AMQPPublisher) Name() string { return "amqp" }

// Deliver publishes e as a persistent JSON message.
func (p *AMQPPublisher) Deliver(ctx context.Context, e Event) error {
	body, err := e.Encode()
	if err != nil {
		return err
	}
	err = p.ch.PublishWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    e.ID,
		Timestamp:    e.OccurredAt,
		Type:         string(e.Action),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("notify: amqp publish: %w", err)
	}
	return nil
}

// AMQPSession owns a connection and channel with the notification queue
// declared.
type AMQPSession struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	Queue string
}

// DialAMQP connects to url and declares queue as durable.
func DialAMQP(url, queue string) (*AMQPSession, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("notify: amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("notify: amqp channel: %w", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("notify: amqp declare %s: %w", queue, err)
	}
	return &AMQPSession{conn: conn, ch: ch, Queue: queue}, nil
}

// Publisher returns a publisher on the session channel.
func (s *AMQPSession) Publisher() *AMQPPublisher {
	return NewAMQPPublisher(s.ch, s.Queue)
}

// Consume starts manual-ack delivery with the given prefetch.
func (s *AMQPSession) Consume(consumer string, prefetch int) (<-chan amqp.Delivery, error) {
	if prefetch > 0 {
		if err := s.ch.Qos(prefetch, 0, false); err != nil {
			return nil, fmt.Errorf("notify: amqp qos: %w", err)
		}
	}
	deliveries, err := s.ch.Consume(s.Queue, consumer, false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("notify: amqp consume: %w", err)
	}
	return deliveries, nil
}

// Close closes the channel and connection.
func (s *AMQPSession) Close() error {
	_ = s.ch.Close()
	return s.conn.Close()
}

// NATSConn is the publishing side of a nats connection.
type NATSConn interface {
	Publish(subject string, data []byte) error
}

// NATSPublisher publishes events on <subject>.<action>.
type NATSPublisher struct {
	conn    NATSConn
	subject string
}

// NewNATSPublisher publishes under subject through conn.
func NewNATSPublisher(conn NATSConn, subject string) *NATSPublisher {
	return &NATSPublisher{conn: conn, subject: subject}
}

// Name implements Transport.
func (p *NATSPublisher) Name() string { return "nats" }

// Deliver publishes e. NATS core publish is fire and forget.
func (p *NATSPublisher) Deliver(ctx context.Context, e Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := e.Encode()
	if err != nil {
		return err
	}
	subject := p.subject + "." + string(e.Action)
	if err := p.conn.Publish(subject, body); err != nil {
		return fmt.Errorf("notify: nats publish %s: %w", subject, err)
	}
	return nil
}

// ConnectNATS dials url with reconnects enabled.
func ConnectNATS(url, name string) (*nats.Conn, error) {
	conn, err := nats.Connect(url,
		nats.Name(name),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("notify: nats connect: %w", err)
	}
	return conn, nil
}
