package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/sevakendra/mel/internal/model"
)

var userColumns = []string{"id", "username", "password_hash", "role", "created_at", "deleted_at"}

func scanUser(row rowScanner) (*model.User, error) {
	u := &model.User{}
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.CreatedAt, &u.DeletedAt); err != nil {
		return nil, err
	}
	return u, nil
}

// findUser returns the first user matching where, or nil.
func findUser(ctx context.Context, db DBTX, where sq.Sqlizer) (*model.User, error) {
	query, args, err := sq.Select(userColumns...).From("users").Where(where).
		PlaceholderFormat(sq.Question).ToSql()
	if err != nil {
		return nil, fmt.Errorf("building user query: %w", err)
	}
	u, err := scanUser(db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return u, err
}

// CreateUser creates a staff account.
func CreateUser(ctx context.Context, db DBTX, username, passwordHash, role string) (*model.User, error) {
	result, err := db.ExecContext(ctx,
		`INSERT INTO users (username, password_hash, role) VALUES (?, ?, ?)`,
		username, passwordHash, role,
	)
	if err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting user id: %w", err)
	}

	return GetUser(ctx, db, id)
}

// GetUser returns a user by ID, deleted or not.
func GetUser(ctx context.Context, db DBTX, id int64) (*model.User, error) {
	u, err := findUser(ctx, db, sq.Eq{"id": id})
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return u, nil
}

// GetUserByUsername returns a user by username. Deleted accounts are
// included so login can tell them apart from unknown names.
func GetUserByUsername(ctx context.Context, db DBTX, username string) (*model.User, error) {
	u, err := findUser(ctx, db, sq.Eq{"username": username})
	if err != nil {
		return nil, fmt.Errorf("getting user by username: %w", err)
	}
	return u, nil
}

// ListUsers returns active users, optionally only those with role.
func ListUsers(ctx context.Context, db DBTX, role string) ([]model.User, error) {
	q := sq.Select(userColumns...).From("users").
		Where(sq.Eq{"deleted_at": nil}).
		OrderBy("id").
		PlaceholderFormat(sq.Question)
	if role != "" {
		q = q.Where(sq.Eq{"role": role})
	}
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building user query: %w", err)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// CountAdmins returns the number of active admins.
func CountAdmins(ctx context.Context, db DBTX) (int, error) {
	var n int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE role = ? AND deleted_at IS NULL`, model.RoleAdmin,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting admins: %w", err)
	}
	return n, nil
}

// UpdateUserRole changes an active user's role. ErrRecordNotFound when no
// active user has the id.
func UpdateUserRole(ctx context.Context, db DBTX, id int64, role string) error {
	result, err := db.ExecContext(ctx,
		`UPDATE users SET role = ? WHERE id = ? AND deleted_at IS NULL`,
		role, id,
	)
	if err != nil {
		return fmt.Errorf("updating user role: %w", err)
	}
	return requireRow(result, "updating user role")
}

// UpdateUserPassword replaces an active user's password hash.
func UpdateUserPassword(ctx context.Context, db DBTX, id int64, passwordHash string) error {
	result, err := db.ExecContext(ctx,
		`UPDATE users SET password_hash = ? WHERE id = ? AND deleted_at IS NULL`,
		passwordHash, id,
	)
	if err != nil {
		return fmt.Errorf("updating user password: %w", err)
	}
	return requireRow(result, "updating user password")
}

// DeleteUser soft-deletes a user. The row stays so rentals keep a valid
// created_by.
func DeleteUser(ctx context.Context, db DBTX, id int64) error {
	result, err := db.ExecContext(ctx,
		`UPDATE users SET deleted_at = CURRENT_TIMESTAMP WHERE id = ? AND deleted_at IS NULL`,
		id,
	)
	if err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}
	return requireRow(result, "deleting user")
}
