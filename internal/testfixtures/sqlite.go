package testfixtures

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/example/meeting-room-reservation/internal/persistence"
	"github.com/example/meeting-room-reservation/internal/persistence/sqlite"
	"github.com/example/meeting-room-reservation/internal/persistence/sqlite/migration"
)

// SQLiteHarness provides repository access backed by a migrated temporary
// SQLite database whose wall-clock zone is Tokyo.
type SQLiteHarness struct {
	Store *sqlite.Store

	Reservations persistence.ReservationRepository
	Users        persistence.UserRepository
	Departments  persistence.DepartmentRepository
	Sessions     persistence.SessionRepository
	Settings     persistence.SettingsRepository
}

// NewSQLiteHarness opens and migrates a database under tb.TempDir. The store
// is closed by a cleanup registered with tb.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	ctx := context.Background()
	config := migration.DefaultSQLiteConfig(filepath.Join(tb.TempDir(), "reservations.db"))
	store, err := sqlite.Open(ctx, config, sqlite.WithLocation(Tokyo))
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}
	tb.Cleanup(func() { _ = store.Close() })

	if err := store.Migrate(ctx, slog.New(slog.NewTextHandler(io.Discard, nil))); err != nil {
		tb.Fatalf("failed to migrate storage: %v", err)
	}

	return &SQLiteHarness{
		Store:        store,
		Reservations: store.Reservations,
		Users:        store.Users,
		Departments:  store.Departments,
		Sessions:     store.Sessions,
		Settings:     store.Settings,
	}
}

// SeedDepartment stores a department and returns it with its ID.
func (h *SQLiteHarness) SeedDepartment(tb testing.TB, fixture DepartmentFixture) persistence.Department {
	tb.Helper()
	department, err := h.Departments.UpsertDepartment(context.Background(), fixture.Persistence())
	if err != nil {
		tb.Fatalf("seed department %q: %v", fixture.Name, err)
	}
	return department
}

// SeedUser stores a user and returns it with its ID.
func (h *SQLiteHarness) SeedUser(tb testing.TB, fixture UserFixture) persistence.User {
	tb.Helper()
	user, err := h.Users.UpsertUser(context.Background(), fixture.Persistence())
	if err != nil {
		tb.Fatalf("seed user %q: %v", fixture.Email, err)
	}
	return user
}

// SeedReservation stores a reservation and returns it with owner details.
func (h *SQLiteHarness) SeedReservation(tb testing.TB, fixture ReservationFixture) persistence.ReservationDetail {
	tb.Helper()
	detail, err := h.Reservations.CreateReservation(context.Background(), fixture.Persistence())
	if err != nil {
		tb.Fatalf("seed reservation %q: %v", fixture.Title, err)
	}
	return detail
}
