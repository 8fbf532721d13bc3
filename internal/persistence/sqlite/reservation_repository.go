package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/meeting-room-reservation/internal/persistence"
)

// ReservationRepository implements persistence.ReservationRepository using SQLite.
type ReservationRepository struct {
	pool *ConnectionPool
	loc  *time.Location
}

// NewReservationRepository creates a repository that reads wall-clock
// values in loc.
func NewReservationRepository(pool *ConnectionPool, loc *time.Location) *ReservationRepository {
	if loc == nil {
		loc = time.Local
	}
	return &ReservationRepository{pool: pool, loc: loc}
}

const reservationColumns = `r.id, r.user_id, r.title, r.description, r.date, r.start_datetime, r.end_datetime,
	r.is_company_wide, r.created_at, r.updated_at`

const reservationDetailQuery = `
	SELECT ` + reservationColumns + `,
		u.name, d.id, COALESCE(d.name, ''), COALESCE(d.default_color, '')
	FROM reservations r
	JOIN users u ON u.id = r.user_id
	LEFT JOIN departments d ON d.id = u.department_id`

// GetReservation retrieves a reservation with its owner's attributes.
func (r *ReservationRepository) GetReservation(ctx context.Context, id int64) (persistence.ReservationDetail, error) {
	return r.getReservation(ctx, r.pool.DB(), id)
}

func (r *ReservationRepository) getReservation(ctx context.Context, q querier, id int64) (persistence.ReservationDetail, error) {
	row := q.QueryRowContext(ctx, reservationDetailQuery+` WHERE r.id = ?`, id)
	detail, err := r.scanDetail(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.ReservationDetail{}, persistence.ErrNotFound
		}
		return persistence.ReservationDetail{}, mapError(err)
	}
	return detail, nil
}

// ListReservationsByDate returns the reservations on one calendar date
// ordered by start time. Conflict detection runs over this slice.
func (r *ReservationRepository) ListReservationsByDate(ctx context.Context, date time.Time) ([]persistence.Reservation, error) {
	rows, err := r.pool.DB().QueryContext(ctx,
		`SELECT `+reservationColumns+` FROM reservations r WHERE r.date = ? ORDER BY r.start_datetime, r.id`,
		formatDate(date, r.loc),
	)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var reservations []persistence.Reservation
	for rows.Next() {
		reservation, err := r.scanReservation(rows)
		if err != nil {
			return nil, err
		}
		reservations = append(reservations, reservation)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return reservations, nil
}

// ListReservations returns reservations whose date falls within the
// inclusive range, ordered by date then start time.
func (r *ReservationRepository) ListReservations(ctx context.Context, rng persistence.ReservationRange) ([]persistence.ReservationDetail, error) {
	var (
		clauses []string
		args    []any
	)
	if rng.From != nil {
		clauses = append(clauses, "r.date >= ?")
		args = append(args, formatDate(*rng.From, r.loc))
	}
	if rng.To != nil {
		clauses = append(clauses, "r.date <= ?")
		args = append(args, formatDate(*rng.To, r.loc))
	}

	query := reservationDetailQuery
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY r.date, r.start_datetime, r.id"

	rows, err := r.pool.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	details := []persistence.ReservationDetail{}
	for rows.Next() {
		detail, err := r.scanDetail(rows)
		if err != nil {
			return nil, err
		}
		details = append(details, detail)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return details, nil
}

// CreateReservation inserts a reservation and returns it with owner details.
func (r *ReservationRepository) CreateReservation(ctx context.Context, reservation persistence.Reservation) (persistence.ReservationDetail, error) {
	var detail persistence.ReservationDetail
	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			INSERT INTO reservations (user_id, title, description, date, start_datetime, end_datetime,
				is_company_wide, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			reservation.UserID,
			reservation.Title,
			reservation.Description,
			formatDate(reservation.Date, r.loc),
			formatDateTime(reservation.Start, r.loc),
			formatDateTime(reservation.End, r.loc),
			boolToInt(reservation.IsCompanyWide),
			formatStamp(reservation.CreatedAt),
			formatStamp(reservation.UpdatedAt),
		)
		if err != nil {
			return mapError(err)
		}

		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("read inserted reservation id: %w", err)
		}
		detail, err = r.getReservation(ctx, tx, id)
		return err
	})
	if err != nil {
		return persistence.ReservationDetail{}, err
	}
	return detail, nil
}

// UpdateReservation overwrites the mutable fields of a reservation. The
// owner and creation time are preserved.
func (r *ReservationRepository) UpdateReservation(ctx context.Context, reservation persistence.Reservation) (persistence.ReservationDetail, error) {
	var detail persistence.ReservationDetail
	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			UPDATE reservations
			SET title = ?, description = ?, date = ?, start_datetime = ?, end_datetime = ?,
				is_company_wide = ?, updated_at = ?
			WHERE id = ?`,
			reservation.Title,
			reservation.Description,
			formatDate(reservation.Date, r.loc),
			formatDateTime(reservation.Start, r.loc),
			formatDateTime(reservation.End, r.loc),
			boolToInt(reservation.IsCompanyWide),
			formatStamp(reservation.UpdatedAt),
			reservation.ID,
		)
		if err != nil {
			return mapError(err)
		}
		if err := requireAffected(result); err != nil {
			return err
		}
		detail, err = r.getReservation(ctx, tx, reservation.ID)
		return err
	})
	if err != nil {
		return persistence.ReservationDetail{}, err
	}
	return detail, nil
}

// DeleteReservation removes a reservation.
func (r *ReservationRepository) DeleteReservation(ctx context.Context, id int64) error {
	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `DELETE FROM reservations WHERE id = ?`, id)
		if err != nil {
			return mapError(err)
		}
		return requireAffected(result)
	})
}

func (r *ReservationRepository) scanReservation(row rowScanner) (persistence.Reservation, error) {
	var (
		reservation          persistence.Reservation
		date, start, end     string
		createdAt, updatedAt string
		companyWide          int
	)
	if err := row.Scan(
		&reservation.ID,
		&reservation.UserID,
		&reservation.Title,
		&reservation.Description,
		&date,
		&start,
		&end,
		&companyWide,
		&createdAt,
		&updatedAt,
	); err != nil {
		return persistence.Reservation{}, err
	}
	return r.decodeReservation(reservation, companyWide, date, start, end, createdAt, updatedAt)
}

func (r *ReservationRepository) scanDetail(row rowScanner) (persistence.ReservationDetail, error) {
	var (
		detail               persistence.ReservationDetail
		date, start, end     string
		createdAt, updatedAt string
		companyWide          int
		departmentID         sql.NullInt64
	)
	if err := row.Scan(
		&detail.ID,
		&detail.UserID,
		&detail.Title,
		&detail.Description,
		&date,
		&start,
		&end,
		&companyWide,
		&createdAt,
		&updatedAt,
		&detail.UserName,
		&departmentID,
		&detail.DepartmentName,
		&detail.DefaultColor,
	); err != nil {
		return persistence.ReservationDetail{}, err
	}

	reservation, err := r.decodeReservation(detail.Reservation, companyWide, date, start, end, createdAt, updatedAt)
	if err != nil {
		return persistence.ReservationDetail{}, err
	}
	detail.Reservation = reservation
	if departmentID.Valid {
		id := departmentID.Int64
		detail.DepartmentID = &id
	}
	return detail, nil
}

func (r *ReservationRepository) decodeReservation(reservation persistence.Reservation, companyWide int, date, start, end, createdAt, updatedAt string) (persistence.Reservation, error) {
	var err error
	if reservation.Date, err = parseDate(date, r.loc); err != nil {
		return persistence.Reservation{}, err
	}
	if reservation.Start, err = parseDateTime(start, r.loc); err != nil {
		return persistence.Reservation{}, err
	}
	if reservation.End, err = parseDateTime(end, r.loc); err != nil {
		return persistence.Reservation{}, err
	}
	if reservation.CreatedAt, err = parseStamp(createdAt); err != nil {
		return persistence.Reservation{}, err
	}
	if reservation.UpdatedAt, err = parseStamp(updatedAt); err != nil {
		return persistence.Reservation{}, err
	}
	reservation.IsCompanyWide = companyWide == 1
	return reservation, nil
}

func requireAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("read affected rows: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}
