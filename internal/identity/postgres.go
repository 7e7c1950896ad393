package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmitrymomot/blogcms/pkg/db"
)

// DB is the subset of pgxpool.Pool the repository needs.
type DB interface {
	db.TxBeginner
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Unique index names from the users migration.
const (
	emailIndex    = "users_email_lower_idx"
	userNameIndex = "users_user_name_lower_idx"
)

// PostgresRepository implements Repository with pgx.
type PostgresRepository struct {
	db DB
}

var _ Repository = (*PostgresRepository)(nil)

// NewPostgresRepository creates a PostgresRepository.
func NewPostgresRepository(db DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const userColumns = `id, first_name, last_name, user_name, email, password_hash, role,
	access_failed_count, lockout_end, created_at, updated_at`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(
		&u.ID, &u.FirstName, &u.LastName, &u.UserName, &u.Email, &u.PasswordHash, &u.Role,
		&u.AccessFailedCount, &u.LockoutEnd, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if db.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

const insertUser = `
INSERT INTO users (` + userColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

func (r *PostgresRepository) Create(ctx context.Context, u *User) error {
	_, err := r.db.Exec(ctx, insertUser,
		u.ID, u.FirstName, u.LastName, u.UserName, u.Email, u.PasswordHash, u.Role,
		u.AccessFailedCount, u.LockoutEnd, u.CreatedAt, u.UpdatedAt,
	)
	switch {
	case err == nil:
		return nil
	case db.IsUniqueViolation(err, emailIndex):
		return ErrDuplicateEmail
	case db.IsUniqueViolation(err, userNameIndex):
		return ErrDuplicateUserName
	default:
		return fmt.Errorf("identity: create user: %w", err)
	}
}

func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	return scanUser(r.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email))
}

func (r *PostgresRepository) FindByUserName(ctx context.Context, userName string) (*User, error) {
	return scanUser(r.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE lower(user_name) = lower($1)`, userName))
}

func (r *PostgresRepository) FindByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (r *PostgresRepository) List(ctx context.Context) ([]User, error) {
	rows, err := r.db.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("identity: list users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("identity: scan user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func (r *PostgresRepository) CountByRole(ctx context.Context, role Role) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM users WHERE role = $1`, role).Scan(&n); err != nil {
		return 0, fmt.Errorf("identity: count users: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) UpdateRole(ctx context.Context, id uuid.UUID, role Role) error {
	tag, err := r.db.Exec(ctx, `UPDATE users SET role = $2, updated_at = now() WHERE id = $1`, id, role)
	if err != nil {
		return fmt.Errorf("identity: update role: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

const recordFailedAccess = `
UPDATE users SET
	access_failed_count = CASE WHEN access_failed_count + 1 >= $2 THEN 0 ELSE access_failed_count + 1 END,
	lockout_end         = CASE WHEN access_failed_count + 1 >= $2 THEN $3 ELSE lockout_end END,
	updated_at          = now()
WHERE id = $1
RETURNING lockout_end`

func (r *PostgresRepository) RecordFailedAccess(ctx context.Context, id uuid.UUID, maxAttempts int, lockoutEnd time.Time) (*time.Time, error) {
	var end *time.Time
	if err := r.db.QueryRow(ctx, recordFailedAccess, id, maxAttempts, lockoutEnd).Scan(&end); err != nil {
		if db.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("identity: record failed access: %w", err)
	}
	return end, nil
}

func (r *PostgresRepository) ResetAccessFailed(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.Exec(ctx,
		`UPDATE users SET access_failed_count = 0, lockout_end = NULL, updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("identity: reset failed access: %w", err)
	}
	return nil
}

func (r *PostgresRepository) CreateResetToken(ctx context.Context, t ResetToken) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO password_reset_tokens (token_hash, user_id, created_at, expires_at) VALUES ($1, $2, $3, $4)`,
		t.TokenHash, t.UserID, t.CreatedAt, t.ExpiresAt)
	if err != nil {
		return fmt.Errorf("identity: create reset token: %w", err)
	}
	return nil
}

func (r *PostgresRepository) RedeemResetToken(ctx context.Context, p RedeemParams) error {
	return db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		var (
			expiresAt  time.Time
			consumedAt *time.Time
		)
		err := tx.QueryRow(ctx, `
			SELECT expires_at, consumed_at FROM password_reset_tokens
			WHERE user_id = $1 AND token_hash = $2
			FOR UPDATE`, p.UserID, p.TokenHash).Scan(&expiresAt, &consumedAt)
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return ErrResetTokenInvalid
		case err != nil:
			return fmt.Errorf("identity: load reset token: %w", err)
		case consumedAt != nil:
			return ErrResetTokenInvalid
		case !expiresAt.After(p.Now):
			return ErrResetTokenExpired
		}

		if _, err := tx.Exec(ctx, `
			UPDATE users SET password_hash = $2, access_failed_count = 0, lockout_end = NULL, updated_at = $3
			WHERE id = $1`, p.UserID, p.PasswordHash, p.Now); err != nil {
			return fmt.Errorf("identity: update password: %w", err)
		}
		if _, err := tx.Exec(ctx, `
			UPDATE password_reset_tokens SET consumed_at = $2
			WHERE user_id = $1 AND consumed_at IS NULL`, p.UserID, p.Now); err != nil {
			return fmt.Errorf("identity: consume reset tokens: %w", err)
		}
		return nil
	})
}
