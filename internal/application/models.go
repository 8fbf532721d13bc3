package application

import "time"

// Principal represents the authenticated user invoking a service method.
// It is resolved by the transport layer and passed in explicitly.
type Principal struct {
	UserID       int64
	DepartmentID *int64
	IsAdmin      bool
}

// ReservationDraft captures caller provided reservation fields for create and update.
type ReservationDraft struct {
	Title         string
	Description   string
	Date          time.Time
	Start         time.Time
	End           time.Time
	IsCompanyWide bool
	// InputErrors holds fields the transport could not parse, keyed like
	// ValidationError.FieldErrors. They are reported with the other field
	// errors, after the existence and authorization checks.
	InputErrors map[string]string
}

// Reservation represents a stored booking of the shared room.
type Reservation struct {
	ID            int64
	OwnerUserID   int64
	Title         string
	Description   string
	Date          time.Time
	Start         time.Time
	End           time.Time
	IsCompanyWide bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ReservationView is a reservation joined with its owner's display attributes.
type ReservationView struct {
	Reservation
	UserName          string
	OwnerDepartmentID *int64
	DepartmentName    string
	DefaultColor      string
}

// NotificationAction names the change a notification reports.
type NotificationAction string

const (
	ActionCreated NotificationAction = "created"
	ActionUpdated NotificationAction = "updated"
	ActionDeleted NotificationAction = "deleted"
)

// Department groups users for authorization and coloring.
type Department struct {
	ID           int64
	Name         string
	DefaultColor string
}

// User represents an employee account exposed by the application services.
type User struct {
	ID                int64
	Name              string
	Email             string
	Department        *Department
	IsAdmin           bool
	EmailNotification bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// DepartmentID returns the user's department id or nil.
func (u User) DepartmentID() *int64 {
	if u.Department == nil {
		return nil
	}
	id := u.Department.ID
	return &id
}

// Principal converts the user into the identity passed to commands.
func (u User) Principal() Principal {
	return Principal{UserID: u.ID, DepartmentID: u.DepartmentID(), IsAdmin: u.IsAdmin}
}

// UserCredentials models the authentication attributes persisted for a user.
type UserCredentials struct {
	User         User
	PasswordHash string
}

// Session represents an authenticated session issued to a user.
type Session struct {
	ID        string
	UserID    int64
	ExpiresAt time.Time
	CreatedAt time.Time
	RevokedAt *time.Time
}

// AuthenticateParams captures the data required to authenticate a user.
type AuthenticateParams struct {
	Email    string
	Password string
}

// AuthenticateResult captures the outcome of a successful authentication attempt.
type AuthenticateResult struct {
	User    User
	Session Session
	Token   string
}
