package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/example/meeting-room-reservation/internal/persistence"
)

// UserRepository implements persistence.UserRepository using SQLite.
type UserRepository struct {
	pool *ConnectionPool
}

// NewUserRepository creates a new SQLite user repository.
func NewUserRepository(pool *ConnectionPool) *UserRepository {
	return &UserRepository{pool: pool}
}

const userSelect = `
	SELECT u.id, u.name, u.email, u.password_hash, u.department_id, u.role, u.email_notification,
		u.created_at, u.updated_at, d.name, d.default_color, d.display_order
	FROM users u
	LEFT JOIN departments d ON d.id = u.department_id`

// GetUser retrieves a user by ID.
func (r *UserRepository) GetUser(ctx context.Context, id int64) (persistence.User, error) {
	return r.getOne(ctx, r.pool.DB(), userSelect+` WHERE u.id = ?`, id)
}

// GetUserByEmail retrieves a user by email address, case-insensitively.
func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (persistence.User, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))
	if normalized == "" {
		return persistence.User{}, persistence.ErrNotFound
	}
	return r.getOne(ctx, r.pool.DB(), userSelect+` WHERE u.email = ?`, normalized)
}

// ListNotificationRecipients returns users that opted in to email
// notifications, ordered by ID.
func (r *UserRepository) ListNotificationRecipients(ctx context.Context) ([]persistence.User, error) {
	rows, err := r.pool.DB().QueryContext(ctx, userSelect+` WHERE u.email_notification = 1 ORDER BY u.id`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var users []persistence.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return users, nil
}

// UpsertUser inserts a user or updates the existing row with the same
// email. CreatedAt is kept on update.
func (r *UserRepository) UpsertUser(ctx context.Context, user persistence.User) (persistence.User, error) {
	email := strings.ToLower(strings.TrimSpace(user.Email))
	role := user.Role
	if role == "" {
		role = persistence.RoleUser
	}

	var stored persistence.User
	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO users (name, email, password_hash, department_id, role, email_notification, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(email) DO UPDATE SET
				name = excluded.name,
				password_hash = excluded.password_hash,
				department_id = excluded.department_id,
				role = excluded.role,
				email_notification = excluded.email_notification,
				updated_at = excluded.updated_at`,
			user.Name,
			email,
			user.PasswordHash,
			nullableInt64(user.DepartmentID),
			role,
			boolToInt(user.EmailNotification),
			formatStamp(user.CreatedAt),
			formatStamp(user.UpdatedAt),
		)
		if err != nil {
			return mapError(err)
		}
		stored, err = r.getOne(ctx, tx, userSelect+` WHERE u.email = ?`, email)
		return err
	})
	if err != nil {
		return persistence.User{}, err
	}
	return stored, nil
}

func (r *UserRepository) getOne(ctx context.Context, q querier, query string, args ...any) (persistence.User, error) {
	user, err := scanUser(q.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.User{}, persistence.ErrNotFound
		}
		return persistence.User{}, mapError(err)
	}
	return user, nil
}

func scanUser(row rowScanner) (persistence.User, error) {
	var (
		user                 persistence.User
		departmentID         sql.NullInt64
		notify               int
		createdAt, updatedAt string
		deptName, deptColor  sql.NullString
		deptOrder            sql.NullInt64
	)
	if err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&departmentID,
		&user.Role,
		&notify,
		&createdAt,
		&updatedAt,
		&deptName,
		&deptColor,
		&deptOrder,
	); err != nil {
		return persistence.User{}, err
	}

	var err error
	if user.CreatedAt, err = parseStamp(createdAt); err != nil {
		return persistence.User{}, err
	}
	if user.UpdatedAt, err = parseStamp(updatedAt); err != nil {
		return persistence.User{}, err
	}
	user.EmailNotification = notify == 1
	if departmentID.Valid {
		id := departmentID.Int64
		user.DepartmentID = &id
		user.Department = &persistence.Department{
			ID:           id,
			Name:         deptName.String,
			DefaultColor: deptColor.String,
			DisplayOrder: int(deptOrder.Int64),
		}
	}
	return user, nil
}

func nullableInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

// DepartmentRepository implements persistence.DepartmentRepository using SQLite.
type DepartmentRepository struct {
	pool *ConnectionPool
}

// NewDepartmentRepository creates a new SQLite department repository.
func NewDepartmentRepository(pool *ConnectionPool) *DepartmentRepository {
	return &DepartmentRepository{pool: pool}
}

const departmentSelect = `SELECT id, name, default_color, display_order FROM departments`

// ListDepartments returns departments in display order.
func (r *DepartmentRepository) ListDepartments(ctx context.Context) ([]persistence.Department, error) {
	rows, err := r.pool.DB().QueryContext(ctx, departmentSelect+` ORDER BY display_order, id`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var departments []persistence.Department
	for rows.Next() {
		var d persistence.Department
		if err := rows.Scan(&d.ID, &d.Name, &d.DefaultColor, &d.DisplayOrder); err != nil {
			return nil, mapError(err)
		}
		departments = append(departments, d)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return departments, nil
}

// GetDepartmentByName retrieves a department by its unique name.
func (r *DepartmentRepository) GetDepartmentByName(ctx context.Context, name string) (persistence.Department, error) {
	return r.getByName(ctx, r.pool.DB(), name)
}

// UpsertDepartment inserts a department or updates the colour and order of
// the existing one with the same name.
func (r *DepartmentRepository) UpsertDepartment(ctx context.Context, department persistence.Department) (persistence.Department, error) {
	var stored persistence.Department
	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO departments (name, default_color, display_order) VALUES (?, ?, ?)
			ON CONFLICT(name) DO UPDATE SET
				default_color = excluded.default_color,
				display_order = excluded.display_order`,
			strings.TrimSpace(department.Name),
			department.DefaultColor,
			department.DisplayOrder,
		)
		if err != nil {
			return mapError(err)
		}
		stored, err = r.getByName(ctx, tx, department.Name)
		return err
	})
	if err != nil {
		return persistence.Department{}, err
	}
	return stored, nil
}

func (r *DepartmentRepository) getByName(ctx context.Context, q querier, name string) (persistence.Department, error) {
	var d persistence.Department
	err := q.QueryRowContext(ctx, departmentSelect+` WHERE name = ?`, strings.TrimSpace(name)).
		Scan(&d.ID, &d.Name, &d.DefaultColor, &d.DisplayOrder)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Department{}, persistence.ErrNotFound
		}
		return persistence.Department{}, mapError(err)
	}
	return d, nil
}
