package persistence

import "time"

// Role values stored in users.role.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Department groups users and carries their calendar colour.
type Department struct {
	ID           int64
	Name         string
	DefaultColor string
	DisplayOrder int
}

// User represents an employee account. Department is populated by reads
// that join departments and is nil when DepartmentID is nil.
type User struct {
	ID                int64
	Name              string
	Email             string
	PasswordHash      string
	DepartmentID      *int64
	Department        *Department
	Role              string
	EmailNotification bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Reservation is a row of the reservations table. Date, Start and End are
// wall-clock values in the store's location.
type Reservation struct {
	ID            int64
	UserID        int64
	Title         string
	Description   string
	Date          time.Time
	Start         time.Time
	End           time.Time
	IsCompanyWide bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ReservationDetail is a reservation joined with its owner and the owner's
// department.
type ReservationDetail struct {
	Reservation
	UserName       string
	DepartmentID   *int64
	DepartmentName string
	DefaultColor   string
}

// Session represents an authentication session persisted for a user.
type Session struct {
	ID        string
	UserID    int64
	ExpiresAt time.Time
	CreatedAt time.Time
	RevokedAt *time.Time
}
