// Package migration applies versioned SQL schema changes to a SQLite database.
//
// Migration files are read from an fs.FS (usually an embed.FS compiled into
// the binary) and follow the naming convention {version}_{description}.sql,
// for example "001_initial_schema.sql". Applied versions and their checksums
// are tracked in the schema_migrations table; each migration runs inside its
// own transaction.
//
// Example usage:
//
//	manager := migration.NewManager(migration.NewFSScanner(files, "migrations"), migration.NewSQLiteExecutor(db), logger)
//	if err := manager.RunMigrations(ctx); err != nil {
//		return fmt.Errorf("migrate: %w", err)
//	}
package migration
