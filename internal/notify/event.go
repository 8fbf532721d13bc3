// Package notify delivers reservation change notifications. The API process
// either mails recipients directly or publishes an Event to a message bus
// for the notify-worker to render and send.
package notify

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/example/meeting-room-reservation/internal/application"
)

// Event is the bus payload describing one reservation change.
type Event struct {
	ID          string                         `json:"id"`
	Action      application.NotificationAction `json:"action"`
	OccurredAt  time.Time                      `json:"occurred_at"`
	Reservation ReservationSnapshot            `json:"reservation"`
}

// ReservationSnapshot is the reservation state captured when the event fired.
// Deleted reservations are captured before removal.
type ReservationSnapshot struct {
	ID             int64     `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description,omitempty"`
	Date           string    `json:"date"`
	Start          time.Time `json:"start_datetime"`
	End            time.Time `json:"end_datetime"`
	IsCompanyWide  bool      `json:"is_company_wide"`
	UserID         int64     `json:"user_id"`
	UserName       string    `json:"user_name"`
	DepartmentName string    `json:"department_name,omitempty"`
}

// NewEvent captures view as an event for action.
func NewEvent(action application.NotificationAction, view application.ReservationView, now time.Time) Event {
	return Event{
		ID:         uuid.NewString(),
		Action:     action,
		OccurredAt: now.UTC(),
		Reservation: ReservationSnapshot{
			ID:             view.ID,
			Title:          view.Title,
			Description:    view.Description,
			Date:           view.Date.Format(time.DateOnly),
			Start:          view.Start,
			End:            view.End,
			IsCompanyWide:  view.IsCompanyWide,
			UserID:         view.OwnerUserID,
			UserName:       view.UserName,
			DepartmentName: view.DepartmentName,
		},
	}
}

// Encode returns the JSON wire form of e.
func (e Event) Encode() ([]byte, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("notify: encode event: %w", err)
	}
	return body, nil
}

// DecodeEvent parses a JSON event and checks the fields rendering depends on.
func DecodeEvent(body []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(body, &e); err != nil {
		return Event{}, fmt.Errorf("notify: decode event: %w", err)
	}
	switch e.Action {
	case application.ActionCreated, application.ActionUpdated, application.ActionDeleted:
	default:
		return Event{}, fmt.Errorf("notify: decode event: unknown action %q", e.Action)
	}
	if e.Reservation.Start.IsZero() || e.Reservation.End.IsZero() {
		return Event{}, fmt.Errorf("notify: decode event: reservation times missing")
	}
	return e, nil
}
