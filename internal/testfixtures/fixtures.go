package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/meeting-room-reservation/internal/application"
	"github.com/example/meeting-room-reservation/internal/persistence"
)

var (
	userCounter        uint64
	departmentCounter  uint64
	reservationCounter uint64
	sessionCounter     uint64
)

// ReferenceTime is Monday 2025-07-14 08:00 JST, before opening hours.
func ReferenceTime() time.Time {
	return At(14, 8, 0)
}

// ----------------------------- Department fixtures -----------------------------

// DepartmentFixture describes a department row.
type DepartmentFixture struct {
	Name         string
	DefaultColor string
	DisplayOrder int
}

// NewDepartmentFixture returns a department with a unique name.
func NewDepartmentFixture(name, color string) DepartmentFixture {
	idx := atomic.AddUint64(&departmentCounter, 1)
	if name == "" {
		name = fmt.Sprintf("部署%03d", idx)
	}
	if color == "" {
		color = "#45B7D1"
	}
	return DepartmentFixture{Name: name, DefaultColor: color, DisplayOrder: int(idx)}
}

// Persistence returns the fixture as a persistence.Department value.
func (f DepartmentFixture) Persistence() persistence.Department {
	return persistence.Department{Name: f.Name, DefaultColor: f.DefaultColor, DisplayOrder: f.DisplayOrder}
}

// ----------------------------- User fixtures -----------------------------

// UserFixture represents a deterministic user record that can be materialised
// for application or persistence tests.
type UserFixture struct {
	ID                int64
	Name              string
	Email             string
	PasswordHash      string
	DepartmentID      *int64
	IsAdmin           bool
	EmailNotification bool
	CreatedAt         time.Time
}

// UserOption configures the generated user fixture.
type UserOption func(*UserFixture)

// NewUserFixture returns a deterministic user fixture with optional overrides.
func NewUserFixture(opts ...UserOption) UserFixture {
	idx := atomic.AddUint64(&userCounter, 1)
	fixture := UserFixture{
		Name:              fmt.Sprintf("User %03d", idx),
		Email:             fmt.Sprintf("user-%03d@example.com", idx),
		PasswordHash:      fmt.Sprintf("hash-%03d", idx),
		EmailNotification: true,
		CreatedAt:         ReferenceTime().Add(time.Duration(idx) * time.Minute),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithUserID sets the user ID used by application conversions.
func WithUserID(id int64) UserOption {
	return func(f *UserFixture) { f.ID = id }
}

// WithUserEmail overrides the generated email address.
func WithUserEmail(email string) UserOption {
	return func(f *UserFixture) { f.Email = email }
}

// WithUserName overrides the generated display name.
func WithUserName(name string) UserOption {
	return func(f *UserFixture) { f.Name = name }
}

// WithUserPasswordHash overrides the generated password hash.
func WithUserPasswordHash(hash string) UserOption {
	return func(f *UserFixture) { f.PasswordHash = hash }
}

// WithUserDepartment assigns the user to a department.
func WithUserDepartment(id int64) UserOption {
	return func(f *UserFixture) { f.DepartmentID = &id }
}

// WithUserAdmin sets the admin flag.
func WithUserAdmin(isAdmin bool) UserOption {
	return func(f *UserFixture) { f.IsAdmin = isAdmin }
}

// WithUserNotifications sets the email notification preference.
func WithUserNotifications(enabled bool) UserOption {
	return func(f *UserFixture) { f.EmailNotification = enabled }
}

// Principal returns the identity commands are issued with.
func (f UserFixture) Principal() application.Principal {
	var dept *int64
	if f.DepartmentID != nil {
		id := *f.DepartmentID
		dept = &id
	}
	return application.Principal{UserID: f.ID, DepartmentID: dept, IsAdmin: f.IsAdmin}
}

// Application returns the fixture as an application.User value.
func (f UserFixture) Application() application.User {
	user := application.User{
		ID:                f.ID,
		Name:              f.Name,
		Email:             f.Email,
		IsAdmin:           f.IsAdmin,
		EmailNotification: f.EmailNotification,
		CreatedAt:         f.CreatedAt,
		UpdatedAt:         f.CreatedAt,
	}
	if f.DepartmentID != nil {
		user.Department = &application.Department{ID: *f.DepartmentID}
	}
	return user
}

// Persistence returns the fixture as a persistence.User value.
func (f UserFixture) Persistence() persistence.User {
	role := persistence.RoleUser
	if f.IsAdmin {
		role = persistence.RoleAdmin
	}
	var dept *int64
	if f.DepartmentID != nil {
		id := *f.DepartmentID
		dept = &id
	}
	return persistence.User{
		ID:                f.ID,
		Name:              f.Name,
		Email:             f.Email,
		PasswordHash:      f.PasswordHash,
		DepartmentID:      dept,
		Role:              role,
		EmailNotification: f.EmailNotification,
		CreatedAt:         f.CreatedAt,
		UpdatedAt:         f.CreatedAt,
	}
}

// ----------------------------- Reservation fixtures -----------------------------

// ReservationFixture describes a reservation on the reference week.
type ReservationFixture struct {
	ID            int64
	OwnerUserID   int64
	Title         string
	Description   string
	Start         time.Time
	End           time.Time
	IsCompanyWide bool
	CreatedAt     time.Time
}

// ReservationOption configures the generated reservation fixture.
type ReservationOption func(*ReservationFixture)

// NewReservationFixture returns Monday 10:00-11:00 with a unique title.
func NewReservationFixture(opts ...ReservationOption) ReservationFixture {
	idx := atomic.AddUint64(&reservationCounter, 1)
	fixture := ReservationFixture{
		Title:     fmt.Sprintf("定例会議 %03d", idx),
		Start:     At(14, 10, 0),
		End:       At(14, 11, 0),
		CreatedAt: ReferenceTime(),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithReservationID sets the reservation ID.
func WithReservationID(id int64) ReservationOption {
	return func(f *ReservationFixture) { f.ID = id }
}

// WithReservationOwner sets the owning user.
func WithReservationOwner(userID int64) ReservationOption {
	return func(f *ReservationFixture) { f.OwnerUserID = userID }
}

// WithReservationTitle overrides the title.
func WithReservationTitle(title string) ReservationOption {
	return func(f *ReservationFixture) { f.Title = title }
}

// WithReservationDescription sets the description.
func WithReservationDescription(description string) ReservationOption {
	return func(f *ReservationFixture) { f.Description = description }
}

// WithReservationSlot sets the interval.
func WithReservationSlot(start, end time.Time) ReservationOption {
	return func(f *ReservationFixture) {
		f.Start = start
		f.End = end
	}
}

// WithReservationCompanyWide marks the reservation company-wide.
func WithReservationCompanyWide() ReservationOption {
	return func(f *ReservationFixture) { f.IsCompanyWide = true }
}

// Date returns the calendar date of the start time.
func (f ReservationFixture) Date() time.Time {
	y, m, d := f.Start.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, f.Start.Location())
}

// Draft returns the fixture as a create or update payload.
func (f ReservationFixture) Draft() application.ReservationDraft {
	return application.ReservationDraft{
		Title:         f.Title,
		Description:   f.Description,
		Date:          f.Date(),
		Start:         f.Start,
		End:           f.End,
		IsCompanyWide: f.IsCompanyWide,
	}
}

// Application returns the fixture as an application.Reservation value.
func (f ReservationFixture) Application() application.Reservation {
	return application.Reservation{
		ID:            f.ID,
		OwnerUserID:   f.OwnerUserID,
		Title:         f.Title,
		Description:   f.Description,
		Date:          f.Date(),
		Start:         f.Start,
		End:           f.End,
		IsCompanyWide: f.IsCompanyWide,
		CreatedAt:     f.CreatedAt,
		UpdatedAt:     f.CreatedAt,
	}
}

// Persistence returns the fixture as a persistence.Reservation value.
func (f ReservationFixture) Persistence() persistence.Reservation {
	return persistence.Reservation{
		ID:            f.ID,
		UserID:        f.OwnerUserID,
		Title:         f.Title,
		Description:   f.Description,
		Date:          f.Date(),
		Start:         f.Start,
		End:           f.End,
		IsCompanyWide: f.IsCompanyWide,
		CreatedAt:     f.CreatedAt,
		UpdatedAt:     f.CreatedAt,
	}
}

// ----------------------------- Session fixtures -----------------------------

// SessionFixture represents a deterministic authentication session.
type SessionFixture struct {
	ID        string
	UserID    int64
	ExpiresAt time.Time
	CreatedAt time.Time
	RevokedAt *time.Time
}

// SessionOption configures the generated session fixture.
type SessionOption func(*SessionFixture)

// NewSessionFixture returns a session valid for eight hours after ReferenceTime.
func NewSessionFixture(userID int64, opts ...SessionOption) SessionFixture {
	idx := atomic.AddUint64(&sessionCounter, 1)
	fixture := SessionFixture{
		ID:        fmt.Sprintf("session-%03d", idx),
		UserID:    userID,
		ExpiresAt: ReferenceTime().Add(8 * time.Hour),
		CreatedAt: ReferenceTime(),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithSessionExpiresAt sets the expiration timestamp.
func WithSessionExpiresAt(t time.Time) SessionOption {
	return func(f *SessionFixture) { f.ExpiresAt = t }
}

// WithSessionRevokedAt marks the session revoked at t.
func WithSessionRevokedAt(t time.Time) SessionOption {
	return func(f *SessionFixture) { f.RevokedAt = &t }
}

// Persistence returns the fixture as a persistence.Session value.
func (f SessionFixture) Persistence() persistence.Session {
	var revoked *time.Time
	if f.RevokedAt != nil {
		t := *f.RevokedAt
		revoked = &t
	}
	return persistence.Session{
		ID:        f.ID,
		UserID:    f.UserID,
		ExpiresAt: f.ExpiresAt,
		CreatedAt: f.CreatedAt,
		RevokedAt: revoked,
	}
}
