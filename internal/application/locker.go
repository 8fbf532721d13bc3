package application

import (
	"context"
	"slices"
	"sync"
	"time"
)

// DateLocker serialises conflict-check-then-write sequences per reservation
// date. Lock acquires every distinct date in ascending order and returns a
// release function.
type DateLocker interface {
	Lock(ctx context.Context, dates ...time.Time) (unlock func(), err error)
}

// DateKey formats the lock key for a reservation date.
func DateKey(date time.Time) string {
	return date.Format(time.DateOnly)
}

// SortedDateKeys returns the distinct lock keys for dates in ascending order.
func SortedDateKeys(dates []time.Time) []string {
	keys := make([]string, 0, len(dates))
	for _, d := range dates {
		if d.IsZero() {
			continue
		}
		keys = append(keys, DateKey(d))
	}
	slices.Sort(keys)
	return slices.Compact(keys)
}

// MemoryDateLocker is an in-process DateLocker. Slots are reference counted
// so the map only holds dates that are currently contended.
type MemoryDateLocker struct {
	mu    sync.Mutex
	slots map[string]*dateSlot
}

type dateSlot struct {
	sem  chan struct{}
	refs int
}

// NewMemoryDateLocker constructs an empty in-process locker.
func NewMemoryDateLocker() *MemoryDateLocker {
	return &MemoryDateLocker{slots: make(map[string]*dateSlot)}
}

// Lock blocks until every date is held or ctx is done.
func (l *MemoryDateLocker) Lock(ctx context.Context, dates ...time.Time) (func(), error) {
	keys := SortedDateKeys(dates)
	held := make([]string, 0, len(keys))

	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			l.release(held[i])
		}
	}

	for _, key := range keys {
		slot := l.acquire(key)
		select {
		case slot.sem <- struct{}{}:
			held = append(held, key)
		case <-ctx.Done():
			l.drop(key)
			release()
			return nil, ctx.Err()
		}
	}

	var once sync.Once
	return func() { once.Do(release) }, nil
}

func (l *MemoryDateLocker) acquire(key string) *dateSlot {
	l.mu.Lock()
	defer l.mu.Unlock()
	slot, ok := l.slots[key]
	if !ok {
		slot = &dateSlot{sem: make(chan struct{}, 1)}
		l.slots[key] = slot
	}
	slot.refs++
	return slot
}

func (l *MemoryDateLocker) release(key string) {
	l.mu.Lock()
	slot := l.slots[key]
	l.mu.Unlock()
	<-slot.sem
	l.drop(key)
}

func (l *MemoryDateLocker) drop(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	slot := l.slots[key]
	slot.refs--
	if slot.refs == 0 {
		delete(l.slots, key)
	}
}

// held reports how many dates currently have waiters or holders.
func (l *MemoryDateLocker) held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.slots)
}
