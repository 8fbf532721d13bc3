package application

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryDateLocker_SerialisesSameDate(t *testing.T) {
	t.Parallel()

	locker := NewMemoryDateLocker()
	day := jstAt(14, 0, 0)

	unlock, err := locker.Lock(context.Background(), day)
	if err != nil {
		t.Fatalf("Lock failed: %v", err)
	}

	acquired := make(chan struct{})
	go func() {
		second, err := locker.Lock(context.Background(), day)
		if err == nil {
			close(acquired)
			second()
		}
	}()

	select {
	case <-acquired:
		t.Fatal("second lock acquired while first was held")
	case <-time.After(20 * time.Millisecond):
	}

	unlock()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second lock not acquired after release")
	}
}

func TestMemoryDateLocker_IndependentDates(t *testing.T) {
	t.Parallel()

	locker := NewMemoryDateLocker()
	unlockA, err := locker.Lock(context.Background(), jstAt(14, 0, 0))
	if err != nil {
		t.Fatalf("Lock failed: %v", err)
	}
	defer unlockA()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	unlockB, err := locker.Lock(ctx, jstAt(15, 0, 0))
	if err != nil {
		t.Fatalf("expected other date to lock immediately, got %v", err)
	}
	unlockB()
}

func TestMemoryDateLocker_HonoursContext(t *testing.T) {
	t.Parallel()

	locker := NewMemoryDateLocker()
	day := jstAt(14, 0, 0)
	unlock, err := locker.Lock(context.Background(), day)
	if err != nil {
		t.Fatalf("Lock failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := locker.Lock(ctx, jstAt(15, 0, 0), day); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}

	unlock()
	if n := locker.held(); n != 0 {
		t.Fatalf("expected all slots released, %d remain", n)
	}
}

func TestMemoryDateLocker_DuplicateDatesAndDoubleUnlock(t *testing.T) {
	t.Parallel()

	locker := NewMemoryDateLocker()
	day := jstAt(14, 0, 0)
	unlock, err := locker.Lock(context.Background(), day, day.Add(3*time.Hour))
	if err != nil {
		t.Fatalf("expected duplicate dates to collapse, got %v", err)
	}
	unlock()
	unlock()

	if n := locker.held(); n != 0 {
		t.Fatalf("expected no held slots, got %d", n)
	}
}

func TestSortedDateKeys(t *testing.T) {
	t.Parallel()

	keys := SortedDateKeys([]time.Time{jstAt(15, 9, 0), {}, jstAt(14, 9, 0), jstAt(15, 12, 0)})
	if len(keys) != 2 || keys[0] != "2025-07-14" || keys[1] != "2025-07-15" {
		t.Fatalf("unexpected keys %v", keys)
	}
}
