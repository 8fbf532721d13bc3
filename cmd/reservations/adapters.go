package main

import (
	"context"
	"time"

	"github.com/example/meeting-room-reservation/internal/application"
	"github.com/example/meeting-room-reservation/internal/notify"
	"github.com/example/meeting-room-reservation/internal/persistence"
)

type reservationRepositoryAdapter struct {
	repo persistence.ReservationRepository
}

func newReservationRepositoryAdapter(repo persistence.ReservationRepository) *reservationRepositoryAdapter {
	return &reservationRepositoryAdapter{repo: repo}
}

func (a *reservationRepositoryAdapter) GetReservation(ctx context.Context, id int64) (application.ReservationView, error) {
	stored, err := a.repo.GetReservation(ctx, id)
	if err != nil {
		return application.ReservationView{}, err
	}
	return toApplicationView(stored), nil
}

func (a *reservationRepositoryAdapter) ListReservationsByDate(ctx context.Context, date time.Time) ([]application.Reservation, error) {
	models, err := a.repo.ListReservationsByDate(ctx, date)
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, nil
	}
	reservations := make([]application.Reservation, 0, len(models))
	for _, model := range models {
		reservations = append(reservations, toApplicationReservation(model))
	}
	return reservations, nil
}

func (a *reservationRepositoryAdapter) ListReservations(ctx context.Context, filter application.ReservationFilter) ([]application.ReservationView, error) {
	models, err := a.repo.ListReservations(ctx, persistence.ReservationRange{
		From: cloneTime(filter.From),
		To:   cloneTime(filter.To),
	})
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, nil
	}
	views := make([]application.ReservationView, 0, len(models))
	for _, model := range models {
		views = append(views, toApplicationView(model))
	}
	return views, nil
}

func (a *reservationRepositoryAdapter) CreateReservation(ctx context.Context, reservation application.Reservation) (application.ReservationView, error) {
	stored, err := a.repo.CreateReservation(ctx, toPersistenceReservation(reservation))
	if err != nil {
		return application.ReservationView{}, err
	}
	return toApplicationView(stored), nil
}

func (a *reservationRepositoryAdapter) UpdateReservation(ctx context.Context, reservation application.Reservation) (application.ReservationView, error) {
	stored, err := a.repo.UpdateReservation(ctx, toPersistenceReservation(reservation))
	if err != nil {
		return application.ReservationView{}, err
	}
	return toApplicationView(stored), nil
}

func (a *reservationRepositoryAdapter) DeleteReservation(ctx context.Context, id int64) error {
	return a.repo.DeleteReservation(ctx, id)
}

type sessionRepositoryAdapter struct {
	repo persistence.SessionRepository
}

func newSessionRepositoryAdapter(repo persistence.SessionRepository) *sessionRepositoryAdapter {
	return &sessionRepositoryAdapter{repo: repo}
}

func (a *sessionRepositoryAdapter) CreateSession(ctx context.Context, session application.Session) (application.Session, error) {
	stored, err := a.repo.CreateSession(ctx, toPersistenceSession(session))
	if err != nil {
		return application.Session{}, err
	}
	return toApplicationSession(stored), nil
}

func (a *sessionRepositoryAdapter) GetSession(ctx context.Context, id string) (application.Session, error) {
	stored, err := a.repo.GetSession(ctx, id)
	if err != nil {
		return application.Session{}, err
	}
	return toApplicationSession(stored), nil
}

func (a *sessionRepositoryAdapter) RevokeSession(ctx context.Context, id string, revokedAt time.Time) (application.Session, error) {
	stored, err := a.repo.RevokeSession(ctx, id, revokedAt)
	if err != nil {
		return application.Session{}, err
	}
	return toApplicationSession(stored), nil
}

func (a *sessionRepositoryAdapter) DeleteExpiredSessions(ctx context.Context, reference time.Time) error {
	return a.repo.DeleteExpiredSessions(ctx, reference)
}

type credentialStoreAdapter struct {
	repo persistence.UserRepository
}

func newCredentialStoreAdapter(repo persistence.UserRepository) *credentialStoreAdapter {
	return &credentialStoreAdapter{repo: repo}
}

func (a *credentialStoreAdapter) GetUserCredentialsByEmail(ctx context.Context, email string) (application.UserCredentials, error) {
	stored, err := a.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return application.UserCredentials{}, err
	}
	return application.UserCredentials{
		User:         toApplicationUser(stored),
		PasswordHash: stored.PasswordHash,
	}, nil
}

func (a *credentialStoreAdapter) GetUser(ctx context.Context, id int64) (application.User, error) {
	stored, err := a.repo.GetUser(ctx, id)
	if err != nil {
		return application.User{}, err
	}
	return toApplicationUser(stored), nil
}

type recipientSourceAdapter struct {
	repo persistence.UserRepository
}

func newRecipientSourceAdapter(repo persistence.UserRepository) *recipientSourceAdapter {
	return &recipientSourceAdapter{repo: repo}
}

func (a *recipientSourceAdapter) ListNotificationRecipients(ctx context.Context) ([]notify.Recipient, error) {
	users, err := a.repo.ListNotificationRecipients(ctx)
	if err != nil {
		return nil, err
	}
	recipients := make([]notify.Recipient, 0, len(users))
	for _, user := range users {
		recipients = append(recipients, notify.Recipient{Name: user.Name, Email: user.Email})
	}
	return recipients, nil
}

func toApplicationReservation(model persistence.Reservation) application.Reservation {
	return application.Reservation{
		ID:            model.ID,
		OwnerUserID:   model.UserID,
		Title:         model.Title,
		Description:   model.Description,
		Date:          model.Date,
		Start:         model.Start,
		End:           model.End,
		IsCompanyWide: model.IsCompanyWide,
		CreatedAt:     model.CreatedAt,
		UpdatedAt:     model.UpdatedAt,
	}
}

func toPersistenceReservation(reservation application.Reservation) persistence.Reservation {
	return persistence.Reservation{
		ID:            reservation.ID,
		UserID:        reservation.OwnerUserID,
		Title:         reservation.Title,
		Description:   reservation.Description,
		Date:          reservation.Date,
		Start:         reservation.Start,
		End:           reservation.End,
		IsCompanyWide: reservation.IsCompanyWide,
		CreatedAt:     reservation.CreatedAt,
		UpdatedAt:     reservation.UpdatedAt,
	}
}

func toApplicationView(model persistence.ReservationDetail) application.ReservationView {
	return application.ReservationView{
		Reservation:       toApplicationReservation(model.Reservation),
		UserName:          model.UserName,
		OwnerDepartmentID: cloneInt64(model.DepartmentID),
		DepartmentName:    model.DepartmentName,
		DefaultColor:      model.DefaultColor,
	}
}

func toApplicationUser(model persistence.User) application.User {
	user := application.User{
		ID:                model.ID,
		Name:              model.Name,
		Email:             model.Email,
		IsAdmin:           model.Role == persistence.RoleAdmin,
		EmailNotification: model.EmailNotification,
		CreatedAt:         model.CreatedAt,
		UpdatedAt:         model.UpdatedAt,
	}
	if model.Department != nil {
		user.Department = &application.Department{
			ID:           model.Department.ID,
			Name:         model.Department.Name,
			DefaultColor: model.Department.DefaultColor,
		}
	} else if model.DepartmentID != nil {
		user.Department = &application.Department{ID: *model.DepartmentID}
	}
	return user
}

func toApplicationSession(model persistence.Session) application.Session {
	return application.Session{
		ID:        model.ID,
		UserID:    model.UserID,
		ExpiresAt: model.ExpiresAt,
		CreatedAt: model.CreatedAt,
		RevokedAt: cloneTime(model.RevokedAt),
	}
}

func toPersistenceSession(session application.Session) persistence.Session {
	return persistence.Session{
		ID:        session.ID,
		UserID:    session.UserID,
		ExpiresAt: session.ExpiresAt,
		CreatedAt: session.CreatedAt,
		RevokedAt: cloneTime(session.RevokedAt),
	}
}

func cloneInt64(value *int64) *int64 {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}

func cloneTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}
