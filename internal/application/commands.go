package application

import (
	"context"
	"fmt"
	"time"
)

// Command is the closed set of reservation operations accepted by Commands.
type Command interface {
	commandName() string
}

// CreateCommand books a new reservation owned by Principal.
type CreateCommand struct {
	Principal Principal
	Draft     ReservationDraft
}

// UpdateCommand replaces the mutable fields of reservation ID.
type UpdateCommand struct {
	Principal Principal
	ID        int64
	Draft     ReservationDraft
}

// DeleteCommand permanently removes reservation ID.
type DeleteCommand struct {
	Principal Principal
	ID        int64
}

// GetCommand reads a single reservation.
type GetCommand struct {
	Principal Principal
	ID        int64
}

// ListCommand reads reservations between From and To inclusive, or from
// today onwards when Upcoming is set.
type ListCommand struct {
	Principal Principal
	From      *time.Time
	To        *time.Time
	Upcoming  bool
}

func (CreateCommand) commandName() string { return "create" }
func (UpdateCommand) commandName() string { return "update" }
func (DeleteCommand) commandName() string { return "delete" }
func (GetCommand) commandName() string    { return "get" }
func (ListCommand) commandName() string   { return "list" }

// CommandName returns the metric and log label for cmd.
func CommandName(cmd Command) string {
	if cmd == nil {
		return ""
	}
	return cmd.commandName()
}

// Result carries the output of an executed command. Reservation is set for
// create, update and get; Reservations for list; delete sets neither.
type Result struct {
	Reservation  *ReservationView
	Reservations []ReservationView
}

// CommandObserver records command outcomes, typically as metrics.
type CommandObserver interface {
	ObserveCommand(command, outcome string, elapsed time.Duration)
}

// Commands dispatches reservation commands to the service.
type Commands struct {
	service  *ReservationService
	observer CommandObserver
	now      func() time.Time
}

// NewCommands wraps service. observer may be nil.
func NewCommands(service *ReservationService, observer CommandObserver) *Commands {
	return &Commands{service: service, observer: observer, now: time.Now}
}

// Execute runs cmd and reports its outcome to the observer.
func (c *Commands) Execute(ctx context.Context, cmd Command) (result Result, err error) {
	if c == nil || c.service == nil {
		return Result{}, fmt.Errorf("Commands is not configured")
	}

	started := c.now()
	defer func() {
		if c.observer == nil {
			return
		}
		outcome := "ok"
		if err != nil {
			outcome = ErrorKind(err)
		}
		c.observer.ObserveCommand(CommandName(cmd), outcome, c.now().Sub(started))
	}()

	switch cmd := cmd.(type) {
	case CreateCommand:
		view, err := c.service.Create(ctx, cmd)
		if err != nil {
			return Result{}, err
		}
		return Result{Reservation: &view}, nil
	case UpdateCommand:
		view, err := c.service.Update(ctx, cmd)
		if err != nil {
			return Result{}, err
		}
		return Result{Reservation: &view}, nil
	case DeleteCommand:
		return Result{}, c.service.Delete(ctx, cmd)
	case GetCommand:
		view, err := c.service.Get(ctx, cmd)
		if err != nil {
			return Result{}, err
		}
		return Result{Reservation: &view}, nil
	case ListCommand:
		views, err := c.service.List(ctx, cmd)
		if err != nil {
			return Result{}, err
		}
		return Result{Reservations: views}, nil
	default:
		return Result{}, fmt.Errorf("unsupported command %T", cmd)
	}
}
