package migration

import (
	"context"
	"time"
)

// Migration represents a single versioned schema change.
type Migration struct {
	Version     string // zero-padded version, e.g. "001"
	Description string
	SQL         string
	FilePath    string
	Checksum    string // hex sha256 of SQL
}

// AppliedMigration is a row of the schema_migrations table.
type AppliedMigration struct {
	Version       string
	AppliedAt     time.Time
	ExecutionTime time.Duration
	Checksum      string
}

// Status summarises the applied and pending migrations.
type Status struct {
	CurrentVersion string
	Applied        []AppliedMigration
	Pending        []Migration
}

// FileScanner discovers migration files.
type FileScanner interface {
	ScanMigrations() ([]Migration, error)
}

// Executor applies migrations and tracks them in the version table.
type Executor interface {
	// InitializeVersionTable creates schema_migrations if needed.
	InitializeVersionTable(ctx context.Context) error

	// ApplyMigration executes the migration and records it in one transaction.
	ApplyMigration(ctx context.Context, migration Migration) (time.Duration, error)

	// GetAppliedVersions returns applied migrations ordered by version.
	GetAppliedVersions(ctx context.Context) ([]AppliedMigration, error)
}
