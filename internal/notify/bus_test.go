package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/meeting-room-reservation/internal/application"
)

type fakeChannel struct {
	exchange, key string
	msg           amqp.Publishing
	err           error
}

func (f *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	f.exchange, f.key, f.msg = exchange, key, msg
	return f.err
}

type fakeNATS struct {
	subject string
	data    []byte
	err     error
}

func (f *fakeNATS) Publish(subject string, data []byte) error {
	f.subject, f.data = subject, data
	return f.err
}

func TestAMQPPublisher_Deliver(t *testing.T) {
	t.Parallel()

	ch := &fakeChannel{}
	publisher := NewAMQPPublisher(ch, "reservation.notifications")
	event := NewEvent(application.ActionUpdated, sampleView(), time.Now())

	require.NoError(t, publisher.Deliver(context.Background(), event))
	assert.Equal(t, "", ch.exchange)
	assert.Equal(t, "reservation.notifications", ch.key)
	assert.Equal(t, "application/json", ch.msg.ContentType)
	assert.Equal(t, amqp.Persistent, ch.msg.DeliveryMode)
	assert.Equal(t, event.ID, ch.msg.MessageId)
	assert.Equal(t, "updated", ch.msg.Type)

	decoded, err := DecodeEvent(ch.msg.Body)
	require.NoError(t, err)
	assert.Equal(t, event.ID, decoded.ID)

	ch.err = errors.New("channel closed")
	assert.ErrorContains(t, publisher.Deliver(context.Background(), event), "channel closed")
}

func TestNATSPublisher_Deliver(t *testing.T) {
	t.Parallel()

	conn := &fakeNATS{}
	publisher := NewNATSPublisher(conn, "reservations.events")
	event := NewEvent(application.ActionDeleted, sampleView(), time.Now())

	require.NoError(t, publisher.Deliver(context.Background(), event))
	assert.Equal(t, "reservations.events.deleted", conn.subject)
	assert.NotEmpty(t, conn.data)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, publisher.Deliver(ctx, event), context.Canceled)
}
