package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	apierr "github.com/victorgomez09/portal/internal/auth"
	"github.com/victorgomez09/portal/internal/auth/models"
)

const userColumns = `id, email, password_hash, first_name, last_name, phone, company,
        role, status, failed_login_attempts, last_login_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.FirstName, &user.LastName,
		&user.Phone, &user.Company, &user.Role, &user.Status,
		&user.FailedLoginAttempts, &user.LastLoginAt, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apierr.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// NormalizeEmail is the canonical form emails are stored and looked up in.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CreateUser inserts user and sets its ID and timestamps.
// A duplicate email yields apierr.ErrEmailTaken.
func (q *Queries) CreateUser(ctx context.Context, user *models.User) error {
	now := time.Now().UTC()
	user.Email = NormalizeEmail(user.Email)
	if user.Status == "" {
		user.Status = models.StatusActive
	}

	res, err := q.q.ExecContext(ctx, `
        INSERT INTO users (
            email, password_hash, first_name, last_name, phone, company,
            role, status, failed_login_attempts, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)
    `, user.Email, user.PasswordHash, user.FirstName, user.LastName, user.Phone, user.Company,
		user.Role, user.Status, now, now)
	if err != nil {
		if isUniqueViolation(err) {
			return apierr.ErrEmailTaken
		}
		return fmt.Errorf("insert user: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return err
	}

	user.ID = id
	user.CreatedAt = now
	user.UpdatedAt = now
	return nil
}

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return scanUser(q.q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, NormalizeEmail(email)))
}

func (q *Queries) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	return scanUser(q.q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id))
}

// GetActiveUserByID returns the user only while its status is active.
// Absent and non-active users are indistinguishable to the caller.
func (q *Queries) GetActiveUserByID(ctx context.Context, id int64) (*models.User, error) {
	return scanUser(q.q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ? AND status = ?`, id, models.StatusActive))
}

// UpdateUser writes the editable profile fields plus role and status.
func (q *Queries) UpdateUser(ctx context.Context, user *models.User) error {
	user.Email = NormalizeEmail(user.Email)
	user.UpdatedAt = time.Now().UTC()

	res, err := q.q.ExecContext(ctx, `
        UPDATE users SET
            email = ?,
            first_name = ?,
            last_name = ?,
            phone = ?,
            company = ?,
            role = ?,
            status = ?,
            updated_at = ?
        WHERE id = ?
    `, user.Email, user.FirstName, user.LastName, user.Phone, user.Company,
		user.Role, user.Status, user.UpdatedAt, user.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return apierr.ErrEmailTaken
		}
		return fmt.Errorf("update user: %w", err)
	}

	return expectAffected(res, apierr.ErrUserNotFound)
}

func (q *Queries) UpdateUserPassword(ctx context.Context, id int64, hash string) error {
	res, err := q.q.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		hash, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return expectAffected(res, apierr.ErrUserNotFound)
}

func (q *Queries) UpdateUserStatus(ctx context.Context, id int64, status models.Status) error {
	res, err := q.q.ExecContext(ctx,
		`UPDATE users SET status = ?, updated_at = ? WHERE id = ?`,
		status, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update user status: %w", err)
	}
	return expectAffected(res, apierr.ErrUserNotFound)
}

// IncrementFailedLogins bumps the counter atomically and returns the new value.
func (q *Queries) IncrementFailedLogins(ctx context.Context, id int64) (int, error) {
	var attempts int
	err := q.q.QueryRowContext(ctx, `
        UPDATE users
        SET failed_login_attempts = failed_login_attempts + 1, updated_at = ?
        WHERE id = ?
        RETURNING failed_login_attempts
    `, time.Now().UTC(), id).Scan(&attempts)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, apierr.ErrUserNotFound
		}
		return 0, fmt.Errorf("increment failed logins: %w", err)
	}
	return attempts, nil
}

// RecordLogin resets the failure counter and stamps the login time.
func (q *Queries) RecordLogin(ctx context.Context, id int64, at time.Time) error {
	res, err := q.q.ExecContext(ctx, `
        UPDATE users
        SET failed_login_attempts = 0, last_login_at = ?, updated_at = ?
        WHERE id = ?
    `, at.UTC(), at.UTC(), id)
	if err != nil {
		return fmt.Errorf("record login: %w", err)
	}
	return expectAffected(res, apierr.ErrUserNotFound)
}

// ListUsers returns one page of users matching filter and the total match count.
func (q *Queries) ListUsers(ctx context.Context, filter models.UserFilter, page models.Page) ([]models.User, int, error) {
	var where conditions
	if filter.Role != "" {
		where.add("role = ?", filter.Role)
	}
	if filter.Status != "" {
		where.add("status = ?", filter.Status)
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		where.add("(email LIKE ? OR lower(first_name) LIKE ? OR lower(last_name) LIKE ? OR lower(company) LIKE ?)",
			like, like, like, like)
	}

	total, err := q.count(ctx, "users", where)
	if err != nil {
		return nil, 0, err
	}

	rows, err := q.q.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users`+where.sql()+` ORDER BY id ASC LIMIT ? OFFSET ?`,
		append(where.args, page.Limit, page.Offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := make([]models.User, 0, page.Limit)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, *user)
	}

	return users, total, rows.Err()
}
