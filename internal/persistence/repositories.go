package persistence

import (
	"context"
	"time"
)

// ReservationRange narrows reservation listings by inclusive date.
type ReservationRange struct {
	From *time.Time
	To   *time.Time
}

// ReservationRepository stores reservations.
type ReservationRepository interface {
	GetReservation(ctx context.Context, id int64) (ReservationDetail, error)
	ListReservationsByDate(ctx context.Context, date time.Time) ([]Reservation, error)
	ListReservations(ctx context.Context, r ReservationRange) ([]ReservationDetail, error)
	CreateReservation(ctx context.Context, reservation Reservation) (ReservationDetail, error)
	UpdateReservation(ctx context.Context, reservation Reservation) (ReservationDetail, error)
	DeleteReservation(ctx context.Context, id int64) error
}

// UserRepository reads accounts and maintains seed data.
type UserRepository interface {
	GetUser(ctx context.Context, id int64) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	ListNotificationRecipients(ctx context.Context) ([]User, error)
	UpsertUser(ctx context.Context, user User) (User, error)
}

// DepartmentRepository maintains the department catalogue.
type DepartmentRepository interface {
	ListDepartments(ctx context.Context) ([]Department, error)
	GetDepartmentByName(ctx context.Context, name string) (Department, error)
	UpsertDepartment(ctx context.Context, department Department) (Department, error)
}

// SessionRepository stores authentication session state.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) (Session, error)
	GetSession(ctx context.Context, id string) (Session, error)
	RevokeSession(ctx context.Context, id string, revokedAt time.Time) (Session, error)
	DeleteExpiredSessions(ctx context.Context, reference time.Time) error
}

// SettingsRepository stores key/value company settings.
type SettingsRepository interface {
	GetSetting(ctx context.Context, key string) (string, error)
	PutSetting(ctx context.Context, key, value string) error
}
