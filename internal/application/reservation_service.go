package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/example/meeting-room-reservation/internal/persistence"
	"github.com/example/meeting-room-reservation/internal/scheduler"
)

const (
	// MaxTitleLength bounds titles in Unicode code points.
	MaxTitleLength = 50
	// MaxDescriptionLength bounds descriptions in Unicode code points.
	MaxDescriptionLength = 300
)

// ReservationRepository captures the persistence interactions needed by the service.
type ReservationRepository interface {
	GetReservation(ctx context.Context, id int64) (ReservationView, error)
	ListReservationsByDate(ctx context.Context, date time.Time) ([]Reservation, error)
	ListReservations(ctx context.Context, filter ReservationFilter) ([]ReservationView, error)
	CreateReservation(ctx context.Context, reservation Reservation) (ReservationView, error)
	UpdateReservation(ctx context.Context, reservation Reservation) (ReservationView, error)
	DeleteReservation(ctx context.Context, id int64) error
}

// ReservationFilter narrows list queries by inclusive reservation date.
type ReservationFilter struct {
	From *time.Time
	To   *time.Time
}

// Notifier receives reservation changes after they are committed. Delivery is
// best effort; a returned error is logged and otherwise ignored.
type Notifier interface {
	Notify(ctx context.Context, action NotificationAction, reservation ReservationView) error
}

type noopNotifier struct{}

func (noopNotifier) Notify(context.Context, NotificationAction, ReservationView) error { return nil }

// ReservationService orchestrates validation, conflict detection and
// persistence for reservation commands.
type ReservationService struct {
	reservations ReservationRepository
	locker       DateLocker
	notifier     Notifier
	now          func() time.Time
	logger       *slog.Logger
}

// NewReservationService wires dependencies for reservation operations.
func NewReservationService(reservations ReservationRepository, locker DateLocker, notifier Notifier, now func() time.Time) *ReservationService {
	return NewReservationServiceWithLogger(reservations, locker, notifier, now, nil)
}

// NewReservationServiceWithLogger wires dependencies with a specific logger.
func NewReservationServiceWithLogger(reservations ReservationRepository, locker DateLocker, notifier Notifier, now func() time.Time, logger *slog.Logger) *ReservationService {
	if locker == nil {
		locker = NewMemoryDateLocker()
	}
	if notifier == nil {
		notifier = noopNotifier{}
	}
	if now == nil {
		now = time.Now
	}
	return &ReservationService{
		reservations: reservations,
		locker:       locker,
		notifier:     notifier,
		now:          now,
		logger:       defaultLogger(logger),
	}
}

func (s *ReservationService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ReservationService", operation, attrs...)
}

// Create validates the draft, checks for overlaps on its date and stores it.
func (s *ReservationService) Create(ctx context.Context, cmd CreateCommand) (view ReservationView, err error) {
	if s == nil {
		return ReservationView{}, fmt.Errorf("ReservationService is nil")
	}
	if s.reservations == nil {
		return ReservationView{}, fmt.Errorf("reservation repository not configured")
	}

	logger := s.loggerWith(ctx, "Create", "user_id", cmd.Principal.UserID)
	defer func() {
		if err != nil {
			logOutcome(ctx, logger, "reservation create", err)
			return
		}
		logger.InfoContext(ctx, "reservation created", "reservation_id", view.ID, "date", DateKey(view.Date))
	}()

	if cmd.Principal.UserID == 0 {
		return ReservationView{}, ErrUnauthorized
	}

	draft, err := normalizeDraft(cmd.Draft)
	if err != nil {
		return ReservationView{}, err
	}

	now := s.now()
	view, err = s.writeLocked(ctx, []time.Time{draft.Date}, draft, nil, func() (ReservationView, error) {
		return s.reservations.CreateReservation(ctx, Reservation{
			OwnerUserID:   cmd.Principal.UserID,
			Title:         draft.Title,
			Description:   draft.Description,
			Date:          draft.Date,
			Start:         draft.Start,
			End:           draft.End,
			IsCompanyWide: draft.IsCompanyWide,
			CreatedAt:     now,
			UpdatedAt:     now,
		})
	})
	if err != nil {
		return ReservationView{}, err
	}

	s.notify(ctx, logger, ActionCreated, view)
	return view, nil
}

// Update applies a draft to an existing reservation. Existence and
// authorization are checked before any field validation.
func (s *ReservationService) Update(ctx context.Context, cmd UpdateCommand) (view ReservationView, err error) {
	if s == nil {
		return ReservationView{}, fmt.Errorf("ReservationService is nil")
	}
	if s.reservations == nil {
		return ReservationView{}, fmt.Errorf("reservation repository not configured")
	}

	logger := s.loggerWith(ctx, "Update", "user_id", cmd.Principal.UserID, "reservation_id", cmd.ID)
	defer func() {
		if err != nil {
			logOutcome(ctx, logger, "reservation update", err)
			return
		}
		logger.InfoContext(ctx, "reservation updated", "date", DateKey(view.Date))
	}()

	existing, err := s.authorizedReservation(ctx, cmd.Principal, cmd.ID)
	if err != nil {
		return ReservationView{}, err
	}

	draft, err := normalizeDraft(cmd.Draft)
	if err != nil {
		return ReservationView{}, err
	}

	exclude := existing.ID
	dates := []time.Time{existing.Date, draft.Date}
	view, err = s.writeLocked(ctx, dates, draft, &exclude, func() (ReservationView, error) {
		updated := existing.Reservation
		updated.Title = draft.Title
		updated.Description = draft.Description
		updated.Date = draft.Date
		updated.Start = draft.Start
		updated.End = draft.End
		updated.IsCompanyWide = draft.IsCompanyWide
		updated.UpdatedAt = s.now()
		return s.reservations.UpdateReservation(ctx, updated)
	})
	if err != nil {
		return ReservationView{}, err
	}

	s.notify(ctx, logger, ActionUpdated, view)
	return view, nil
}

// Delete removes a reservation after the existence and authorization checks.
func (s *ReservationService) Delete(ctx context.Context, cmd DeleteCommand) (err error) {
	if s == nil {
		return fmt.Errorf("ReservationService is nil")
	}
	if s.reservations == nil {
		return fmt.Errorf("reservation repository not configured")
	}

	logger := s.loggerWith(ctx, "Delete", "user_id", cmd.Principal.UserID, "reservation_id", cmd.ID)
	defer func() {
		if err != nil {
			logOutcome(ctx, logger, "reservation delete", err)
			return
		}
		logger.InfoContext(ctx, "reservation deleted")
	}()

	existing, err := s.authorizedReservation(ctx, cmd.Principal, cmd.ID)
	if err != nil {
		return err
	}

	if err := s.reservations.DeleteReservation(ctx, existing.ID); err != nil {
		return mapReservationRepoError("delete reservation", err)
	}

	s.notify(ctx, logger, ActionDeleted, existing)
	return nil
}

// Get returns one reservation. Any authenticated principal may read.
func (s *ReservationService) Get(ctx context.Context, cmd GetCommand) (ReservationView, error) {
	if s == nil {
		return ReservationView{}, fmt.Errorf("ReservationService is nil")
	}
	if s.reservations == nil {
		return ReservationView{}, fmt.Errorf("reservation repository not configured")
	}
	if cmd.Principal.UserID == 0 {
		return ReservationView{}, ErrUnauthorized
	}
	view, err := s.reservations.GetReservation(ctx, cmd.ID)
	if err != nil {
		return ReservationView{}, mapReservationRepoError("get reservation", err)
	}
	return view, nil
}

// List enumerates reservations for a date range, for upcoming dates, or for
// the current month when no bounds are supplied. Results are ordered by date
// then start time.
//
// The unbounded default covers the current month only, not every stored
// reservation. Pass an explicit range to reach other months.
func (s *ReservationService) List(ctx context.Context, cmd ListCommand) ([]ReservationView, error) {
	if s == nil {
		return nil, fmt.Errorf("ReservationService is nil")
	}
	if s.reservations == nil {
		return nil, fmt.Errorf("reservation repository not configured")
	}
	if cmd.Principal.UserID == 0 {
		return nil, ErrUnauthorized
	}

	filter, err := s.buildListFilter(cmd)
	if err != nil {
		return nil, err
	}

	views, err := s.reservations.ListReservations(ctx, filter)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return nil, nil
		}
		s.loggerWith(ctx, "List").ErrorContext(ctx, "reservation list failed", "error", err, "error_kind", "internal")
		return nil, internalError("list reservations", err)
	}

	ordered := make([]ReservationView, len(views))
	copy(ordered, views)
	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].Start.Equal(ordered[j].Start) {
			return ordered[i].Start.Before(ordered[j].Start)
		}
		return ordered[i].ID < ordered[j].ID
	})
	return ordered, nil
}

func (s *ReservationService) buildListFilter(cmd ListCommand) (ReservationFilter, error) {
	if cmd.Upcoming {
		today := scheduler.DateOf(s.now())
		return ReservationFilter{From: &today}, nil
	}
	if cmd.From != nil && cmd.To != nil && cmd.To.Before(*cmd.From) {
		vErr := &ValidationError{}
		vErr.add("end_date", "end_date must not be before start_date")
		return ReservationFilter{}, vErr
	}
	if cmd.From == nil && cmd.To == nil {
		today := scheduler.DateOf(s.now())
		first := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location())
		last := first.AddDate(0, 1, -1)
		return ReservationFilter{From: &first, To: &last}, nil
	}
	return ReservationFilter{From: cmd.From, To: cmd.To}, nil
}

// writeLocked runs the time-rule check, takes the date locks, runs the
// conflict check and then write. The lock covers check and write so two
// concurrent requests for one slot cannot both pass the conflict check.
func (s *ReservationService) writeLocked(ctx context.Context, dates []time.Time, draft ReservationDraft, exclude *int64, write func() (ReservationView, error)) (ReservationView, error) {
	if err := scheduler.Validate(draft.Date, draft.Start, draft.End); err != nil {
		var violation *scheduler.RuleViolation
		if errors.As(err, &violation) {
			return ReservationView{}, ruleError(violation)
		}
		return ReservationView{}, err
	}

	unlock, err := s.locker.Lock(ctx, dates...)
	if err != nil {
		return ReservationView{}, internalError("lock reservation date", err)
	}
	defer unlock()

	sameDay, err := s.reservations.ListReservationsByDate(ctx, draft.Date)
	if err != nil && !errors.Is(err, persistence.ErrNotFound) {
		return ReservationView{}, internalError("list reservations by date", err)
	}

	candidate := scheduler.Interval{Start: draft.Start, End: draft.End}
	if clash, ok := scheduler.FirstConflict(toIntervals(sameDay), candidate, exclude); ok {
		return ReservationView{}, fmt.Errorf("%w (reservation %d)", ErrConflict, clash.ID)
	}

	view, err := write()
	if err != nil {
		return ReservationView{}, mapReservationRepoError("write reservation", err)
	}
	return view, nil
}

func (s *ReservationService) authorizedReservation(ctx context.Context, principal Principal, id int64) (ReservationView, error) {
	if principal.UserID == 0 {
		return ReservationView{}, ErrUnauthorized
	}
	existing, err := s.reservations.GetReservation(ctx, id)
	if err != nil {
		return ReservationView{}, mapReservationRepoError("get reservation", err)
	}
	if !CanModify(principal, existing) {
		return ReservationView{}, ErrPermission
	}
	return existing, nil
}

func (s *ReservationService) notify(ctx context.Context, logger *slog.Logger, action NotificationAction, view ReservationView) {
	if err := s.notifier.Notify(context.WithoutCancel(ctx), action, view); err != nil {
		logger.WarnContext(ctx, "reservation notification failed", "action", action, "error", err)
	}
}

// CanModify reports whether principal may update or delete the reservation:
// its owner, anyone in the owner's department, or an admin.
func CanModify(principal Principal, reservation ReservationView) bool {
	if principal.IsAdmin {
		return true
	}
	if principal.UserID != 0 && principal.UserID == reservation.OwnerUserID {
		return true
	}
	return principal.DepartmentID != nil && reservation.OwnerDepartmentID != nil &&
		*principal.DepartmentID == *reservation.OwnerDepartmentID
}

// normalizeDraft trims text fields and checks required fields and lengths.
// Time rules are left to the scheduler package.
func normalizeDraft(draft ReservationDraft) (ReservationDraft, error) {
	vErr := &ValidationError{}
	for _, field := range []string{scheduler.FieldDate, scheduler.FieldStart, scheduler.FieldEnd} {
		if msg, ok := draft.InputErrors[field]; ok {
			vErr.add(field, msg)
		}
	}

	draft.Title = strings.TrimSpace(draft.Title)
	draft.Description = strings.TrimSpace(draft.Description)

	switch n := utf8.RuneCountInString(draft.Title); {
	case n == 0:
		vErr.add("title", "Missing required field: title")
	case n > MaxTitleLength:
		vErr.add("title", fmt.Sprintf("Title must be %d characters or less", MaxTitleLength))
	}
	if utf8.RuneCountInString(draft.Description) > MaxDescriptionLength {
		vErr.add("description", fmt.Sprintf("Description must be %d characters or less", MaxDescriptionLength))
	}
	if draft.Date.IsZero() {
		vErr.add(scheduler.FieldDate, "Missing required field: date")
	}
	if draft.Start.IsZero() {
		vErr.add(scheduler.FieldStart, "Missing required field: start_datetime")
	}
	if draft.End.IsZero() {
		vErr.add(scheduler.FieldEnd, "Missing required field: end_datetime")
	}

	if vErr.HasErrors() {
		return ReservationDraft{}, vErr
	}
	draft.Date = scheduler.DateOf(draft.Date)
	draft.InputErrors = nil
	return draft, nil
}

func toIntervals(reservations []Reservation) []scheduler.Interval {
	out := make([]scheduler.Interval, 0, len(reservations))
	for _, r := range reservations {
		out = append(out, scheduler.Interval{ID: r.ID, Start: r.Start, End: r.End})
	}
	return out
}

// constraintViolationMessage is reported for any CHECK or NOT NULL rejection.
// The store does not say which column failed.
const constraintViolationMessage = "Reservation data was rejected by a storage constraint"

func mapReservationRepoError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, ErrConflict) {
		return err
	}
	if errors.Is(err, persistence.ErrConstraintViolation) {
		vErr := &ValidationError{}
		vErr.add("reservation", constraintViolationMessage)
		return vErr
	}
	if errors.Is(err, persistence.ErrForeignKeyViolation) {
		vErr := &ValidationError{}
		vErr.add("user_id", "reservation owner does not exist")
		return vErr
	}
	return internalError(op, err)
}
