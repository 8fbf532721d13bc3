package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type observerStub struct {
	mu       sync.Mutex
	commands []string
	outcomes []string
}

func (o *observerStub) ObserveCommand(command, outcome string, elapsed time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.commands = append(o.commands, command)
	o.outcomes = append(o.outcomes, outcome)
}

type unknownCommand struct{ CreateCommand }

func TestCommands_Execute_DispatchesEveryVariant(t *testing.T) {
	t.Parallel()

	repo := newReservationRepoStub()
	observer := &observerStub{}
	commands := NewCommands(newTestService(repo, nil), observer)
	ctx := context.Background()

	created, err := commands.Execute(ctx, CreateCommand{Principal: alice, Draft: draftAt(14, 9, 0, 10, 0)})
	if err != nil || created.Reservation == nil {
		t.Fatalf("create failed: %v", err)
	}
	id := created.Reservation.ID

	if _, err := commands.Execute(ctx, UpdateCommand{Principal: alice, ID: id, Draft: draftAt(14, 9, 15, 10, 15)}); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	got, err := commands.Execute(ctx, GetCommand{Principal: alice, ID: id})
	if err != nil || got.Reservation == nil || !got.Reservation.Start.Equal(jstAt(14, 9, 15)) {
		t.Fatalf("get returned %+v, %v", got, err)
	}

	listed, err := commands.Execute(ctx, ListCommand{Principal: alice})
	if err != nil || len(listed.Reservations) != 1 {
		t.Fatalf("list returned %+v, %v", listed, err)
	}

	if _, err := commands.Execute(ctx, DeleteCommand{Principal: alice, ID: id}); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	_, err = commands.Execute(ctx, DeleteCommand{Principal: alice, ID: id})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}

	wantCommands := []string{"create", "update", "get", "list", "delete", "delete"}
	wantOutcomes := []string{"ok", "ok", "ok", "ok", "ok", "not_found"}
	for i := range wantCommands {
		if observer.commands[i] != wantCommands[i] || observer.outcomes[i] != wantOutcomes[i] {
			t.Fatalf("observation %d: got %s/%s, want %s/%s", i, observer.commands[i], observer.outcomes[i], wantCommands[i], wantOutcomes[i])
		}
	}
}

func TestCommands_Execute_RejectsUnknownCommand(t *testing.T) {
	t.Parallel()

	commands := NewCommands(newTestService(newReservationRepoStub(), nil), nil)
	if _, err := commands.Execute(context.Background(), unknownCommand{}); err == nil {
		t.Fatal("expected error for unsupported command")
	}
}

func TestCommands_Execute_NilReceiver(t *testing.T) {
	t.Parallel()

	var commands *Commands
	if _, err := commands.Execute(context.Background(), ListCommand{}); err == nil {
		t.Fatal("expected error from nil Commands")
	}
}
