package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"taskhub/internal/model"
)

const userColumns = `id, username, email, firstname, lastname, password_hash, role,
	is_active, two_factor_enabled, two_factor_code, two_factor_expiry,
	failed_login_attempts, locked_until, created_at, updated_at`

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func scanUser(row pgx.Row) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.Firstname, &u.Lastname,
		&u.PasswordHash, &u.Role, &u.IsActive, &u.TwoFactorEnabled,
		&u.TwoFactorCode, &u.TwoFactorExpiry, &u.FailedLoginAttempts,
		&u.LockedUntil, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (model.User, error) {
	if !isUUID(id) {
		return model.User{}, model.ErrUserNotFound
	}
	u, err := scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))

	if errors.Is(err, pgx.ErrNoRows) {
		return model.User{}, model.ErrUserNotFound
	}
	if err != nil {
		return model.User{}, fmt.Errorf("find user by id: %w", err)
	}
	return u, nil
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (model.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE lower(username) = lower($1)`,
		strings.TrimSpace(username)))

	if errors.Is(err, pgx.ErrNoRows) {
		return model.User{}, model.ErrUserNotFound
	}
	if err != nil {
		return model.User{}, fmt.Errorf("find user by username: %w", err)
	}
	return u, nil
}

func (r *UserRepository) ExistsByUsernameOrEmail(ctx context.Context, username string, email string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM users
		 WHERE lower(username) = lower($1) OR lower(email) = lower($2))`,
		strings.TrimSpace(username), strings.TrimSpace(email)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check user exists: %w", err)
	}
	return exists, nil
}

func (r *UserRepository) Create(ctx context.Context, u model.User) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO users (id, username, email, firstname, lastname, password_hash,
		                    role, is_active, two_factor_enabled, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		u.ID, u.Username, u.Email, u.Firstname, u.Lastname, u.PasswordHash,
		u.Role, u.IsActive, u.TwoFactorEnabled, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *UserRepository) UpdateProfile(ctx context.Context, u model.User) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET email = $2, firstname = $3, lastname = $4, updated_at = $5
		 WHERE id = $1`,
		u.ID, u.Email, u.Firstname, u.Lastname, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update user profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) UpdatePassword(ctx context.Context, userID string, passwordHash string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET password_hash = $2, updated_at = $3 WHERE id = $1`,
		userID, passwordHash, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) SetTwoFactorEnabled(ctx context.Context, userID string, enabled bool) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET two_factor_enabled = $2, two_factor_code = NULL,
		        two_factor_expiry = NULL, updated_at = $3
		 WHERE id = $1`,
		userID, enabled, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set two-factor enabled: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrUserNotFound
	}
	return nil
}

// SetTwoFactorCode stores a pending challenge. Any prior code is
// overwritten, so only the most recent code is ever valid.
func (r *UserRepository) SetTwoFactorCode(ctx context.Context, userID string, code string, expiry time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET two_factor_code = $2, two_factor_expiry = $3, updated_at = $4
		 WHERE id = $1`,
		userID, code, expiry, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set two-factor code: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) ClearTwoFactorCode(ctx context.Context, userID string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE users SET two_factor_code = NULL, two_factor_expiry = NULL, updated_at = $2
		 WHERE id = $1`,
		userID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("clear two-factor code: %w", err)
	}
	return nil
}

func (r *UserRepository) IncrementFailedAttempts(ctx context.Context, userID string) (int, error) {
	var attempts int
	err := r.pool.QueryRow(ctx,
		`UPDATE users SET failed_login_attempts = failed_login_attempts + 1, updated_at = $2
		 WHERE id = $1
		 RETURNING failed_login_attempts`,
		userID, time.Now().UTC()).Scan(&attempts)
	if err != nil {
		return 0, fmt.Errorf("increment failed attempts: %w", err)
	}
	return attempts, nil
}

func (r *UserRepository) LockAccount(ctx context.Context, userID string, until time.Time) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE users SET locked_until = $2, updated_at = $3 WHERE id = $1`,
		userID, until, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("lock account: %w", err)
	}
	return nil
}

func (r *UserRepository) ResetFailedAttempts(ctx context.Context, userID string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE users SET failed_login_attempts = 0, locked_until = NULL, updated_at = $2
		 WHERE id = $1`,
		userID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("reset failed attempts: %w", err)
	}
	return nil
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	if !isUUID(id) {
		return model.ErrUserNotFound
	}
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) List(ctx context.Context) ([]model.PublicUser, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, username, email, firstname, lastname, role, two_factor_enabled, created_at
		 FROM users ORDER BY username`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := make([]model.PublicUser, 0)
	for rows.Next() {
		var u model.PublicUser
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.Firstname, &u.Lastname,
			&u.Role, &u.TwoFactorEnabled, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *UserRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return count, nil
}
