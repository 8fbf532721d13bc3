package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/meeting-room-reservation/internal/application"
)

type recordingTransport struct {
	mu      sync.Mutex
	events  []Event
	release chan struct{}
	err     error
}

func (r *recordingTransport) Name() string { return "test" }

func (r *recordingTransport) Deliver(ctx context.Context, e Event) error {
	if r.release != nil {
		<-r.release
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return r.err
}

func (r *recordingTransport) delivered() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

type countingObserver struct {
	mu     sync.Mutex
	counts map[string]int
}

func (c *countingObserver) ObserveNotification(transport, outcome string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.counts == nil {
		c.counts = make(map[string]int)
	}
	c.counts[transport+"/"+outcome]++
}

func (c *countingObserver) get(key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[key]
}

func TestDispatcher_DeliversAndDrainsOnClose(t *testing.T) {
	t.Parallel()

	transport := &recordingTransport{}
	observer := &countingObserver{}
	stamp := time.Date(2025, time.July, 14, 0, 0, 0, 0, time.UTC)
	d := NewDispatcher(transport,
		WithWorkers(1),
		WithObserver(observer),
		WithLogger(discardLogger()),
		WithClock(func() time.Time { return stamp }),
	)

	require.NoError(t, d.Notify(context.Background(), application.ActionCreated, sampleView()))
	require.NoError(t, d.Notify(context.Background(), application.ActionDeleted, sampleView()))
	require.NoError(t, d.Close(context.Background()))

	events := transport.delivered()
	require.Len(t, events, 2)
	assert.Equal(t, application.ActionCreated, events[0].Action)
	assert.Equal(t, application.ActionDeleted, events[1].Action)
	assert.Equal(t, stamp, events[0].OccurredAt)
	assert.Equal(t, int64(12), events[0].Reservation.ID)
	assert.Equal(t, 2, observer.get("test/ok"))

	assert.ErrorIs(t, d.Notify(context.Background(), application.ActionCreated, sampleView()), ErrClosed)
	require.NoError(t, d.Close(context.Background()))
}

func TestDispatcher_DropsWhenBacklogFull(t *testing.T) {
	t.Parallel()

	transport := &recordingTransport{release: make(chan struct{})}
	observer := &countingObserver{}
	d := NewDispatcher(transport, WithWorkers(1), WithQueueSize(1), WithObserver(observer), WithLogger(discardLogger()))

	// One event blocks in the worker, one fills the queue.
	require.NoError(t, d.Notify(context.Background(), application.ActionCreated, sampleView()))
	require.Eventually(t, func() bool { return len(d.queue) == 0 }, time.Second, time.Millisecond)
	require.NoError(t, d.Notify(context.Background(), application.ActionCreated, sampleView()))

	err := d.Notify(context.Background(), application.ActionCreated, sampleView())
	assert.ErrorIs(t, err, ErrQueueFull)
	assert.Equal(t, 1, observer.get("test/dropped"))

	close(transport.release)
	require.NoError(t, d.Close(context.Background()))
	assert.Len(t, transport.delivered(), 2)
}

func TestDispatcher_RecordsFailures(t *testing.T) {
	t.Parallel()

	transport := &recordingTransport{err: errors.New("relay refused")}
	observer := &countingObserver{}
	d := NewDispatcher(transport, WithObserver(observer), WithLogger(discardLogger()))

	require.NoError(t, d.Notify(context.Background(), application.ActionUpdated, sampleView()))
	require.NoError(t, d.Close(context.Background()))
	assert.Equal(t, 1, observer.get("test/error"))
}

func TestDispatcher_CloseHonoursDeadline(t *testing.T) {
	t.Parallel()

	transport := &recordingTransport{release: make(chan struct{})}
	d := NewDispatcher(transport, WithWorkers(1), WithLogger(discardLogger()))
	require.NoError(t, d.Notify(context.Background(), application.ActionCreated, sampleView()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, d.Close(ctx), context.DeadlineExceeded)
	close(transport.release)
}
