package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/example/meeting-room-reservation/internal/application"
)

var (
	// ErrQueueFull is returned by Notify when the delivery backlog is full.
	ErrQueueFull = errors.New("notify: queue full")
	// ErrClosed is returned by Notify after Close.
	ErrClosed = errors.New("notify: dispatcher closed")
)

// Transport delivers one event.
type Transport interface {
	Name() string
	Deliver(ctx context.Context, e Event) error
}

// Observer records delivery outcomes, typically as metrics.
type Observer interface {
	ObserveNotification(transport, outcome string)
}

// Dispatcher implements application.Notifier by queueing events for
// background delivery. Writes never wait on a transport.
type Dispatcher struct {
	transport Transport
	queue     chan Event
	workers   int
	timeout   time.Duration
	observer  Observer
	logger    *slog.Logger
	now       func() time.Time

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithQueueSize sets the backlog size. The default is 64.
func WithQueueSize(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.queue = make(chan Event, n)
		}
	}
}

// WithWorkers sets the number of delivery goroutines. The default is 2.
func WithWorkers(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.workers = n
		}
	}
}

// WithDeliveryTimeout bounds a single delivery. The default is 30s.
func WithDeliveryTimeout(timeout time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.timeout = timeout
		}
	}
}

// WithObserver records outcomes.
func WithObserver(observer Observer) DispatcherOption {
	return func(d *Dispatcher) { d.observer = observer }
}

// WithLogger sets the dispatcher logger.
func WithLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithClock sets the clock stamped on events.
func WithClock(now func() time.Time) DispatcherOption {
	return func(d *Dispatcher) {
		if now != nil {
			d.now = now
		}
	}
}

// NewDispatcher starts delivery workers for transport.
func NewDispatcher(transport Transport, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		transport: transport,
		queue:     make(chan Event, 64),
		workers:   2,
		timeout:   30 * time.Second,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.With("component", "notify", "transport", transport.Name())

	d.wg.Add(d.workers)
	for i := 0; i < d.workers; i++ {
		go d.run()
	}
	return d
}

var _ application.Notifier = (*Dispatcher)(nil)

// Notify queues the change. It never blocks.
func (d *Dispatcher) Notify(ctx context.Context, action application.NotificationAction, view application.ReservationView) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrClosed
	}

	event := NewEvent(action, view, d.now())
	select {
	case d.queue <- event:
		return nil
	default:
		d.observe("dropped")
		d.logger.WarnContext(ctx, "notification dropped", "event_id", event.ID, "reservation_id", view.ID)
		return ErrQueueFull
	}
}

// Close stops accepting events and waits for the backlog to drain or ctx
// to end.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for event := range d.queue {
		d.deliver(event)
	}
}

func (d *Dispatcher) deliver(event Event) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	logger := d.logger.With("event_id", event.ID, "action", event.Action, "reservation_id", event.Reservation.ID)
	if err := d.transport.Deliver(ctx, event); err != nil {
		d.observe("error")
		logger.ErrorContext(ctx, "notification delivery failed", "error", err)
		return
	}
	d.observe("ok")
	logger.DebugContext(ctx, "notification delivered")
}

func (d *Dispatcher) observe(outcome string) {
	if d.observer != nil {
		d.observer.ObserveNotification(d.transport.Name(), outcome)
	}
}
