package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/example/meeting-room-reservation/internal/persistence"
)

// SettingsRepository implements persistence.SettingsRepository using the
// company_settings table.
type SettingsRepository struct {
	pool *ConnectionPool
}

// NewSettingsRepository creates a new SQLite settings repository.
func NewSettingsRepository(pool *ConnectionPool) *SettingsRepository {
	return &SettingsRepository{pool: pool}
}

// GetSetting returns the value stored under key.
func (r *SettingsRepository) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := r.pool.DB().QueryRowContext(ctx, `SELECT value FROM company_settings WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", persistence.ErrNotFound
		}
		return "", mapError(err)
	}
	return value, nil
}

// PutSetting stores value under key, replacing any previous value.
func (r *SettingsRepository) PutSetting(ctx context.Context, key, value string) error {
	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO company_settings (key, value) VALUES (?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
			key, value,
		)
		return mapError(err)
	})
}
