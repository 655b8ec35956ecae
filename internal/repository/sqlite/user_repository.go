package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"accountd/internal/domain"
	"accountd/internal/repository"
)

const createUsersTable = `
CREATE TABLE IF NOT EXISTS users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	email TEXT NOT NULL UNIQUE,
	username TEXT NOT NULL UNIQUE,
	first_name TEXT NOT NULL DEFAULT '',
	middle_name TEXT NOT NULL DEFAULT '',
	last_name TEXT NOT NULL DEFAULT '',
	address TEXT NOT NULL DEFAULT '',
	phone_number TEXT NOT NULL DEFAULT '',
	password_hash TEXT NOT NULL,
	role TEXT NOT NULL,
	is_confirmed INTEGER NOT NULL DEFAULT 0,
	enabled INTEGER NOT NULL DEFAULT 1,
	news_subscribed INTEGER NOT NULL DEFAULT 0,
	avatar_key TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL
);
`

const userColumns = `id, email, username, first_name, middle_name, last_name,
address, phone_number, password_hash, role, is_confirmed, enabled,
news_subscribed, avatar_key, created_at`

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) repository.UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createUsersTable); err != nil {
		return fmt.Errorf("create users table: %w", err)
	}
	return nil
}

func (r *UserRepository) Save(ctx context.Context, user *domain.User) (int64, error) {
	if user.ID == 0 {
		return r.insert(ctx, user)
	}
	return user.ID, r.update(ctx, user)
}

func (r *UserRepository) insert(ctx context.Context, user *domain.User) (int64, error) {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	res, err := r.db.ExecContext(ctx, `
INSERT INTO users (email, username, first_name, middle_name, last_name,
	address, phone_number, password_hash, role, is_confirmed, enabled,
	news_subscribed, avatar_key, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.Email,
		user.Username,
		user.FirstName,
		user.MiddleName,
		user.LastName,
		user.Address,
		user.PhoneNumber,
		user.PasswordHash,
		string(user.Role),
		user.IsConfirmed,
		user.Enabled,
		user.NewsSubscribed,
		user.AvatarKey,
		user.CreatedAt,
	)
	if err != nil {
		if mapped := mapUniqueViolation(err); mapped != nil {
			return 0, mapped
		}
		return 0, fmt.Errorf("insert user: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("user last insert id: %w", err)
	}
	user.ID = id
	return id, nil
}

func (r *UserRepository) update(ctx context.Context, user *domain.User) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE users SET email = ?, username = ?, first_name = ?, middle_name = ?,
	last_name = ?, address = ?, phone_number = ?, password_hash = ?, role = ?,
	is_confirmed = ?, enabled = ?, news_subscribed = ?, avatar_key = ?
WHERE id = ?`,
		user.Email,
		user.Username,
		user.FirstName,
		user.MiddleName,
		user.LastName,
		user.Address,
		user.PhoneNumber,
		user.PasswordHash,
		string(user.Role),
		user.IsConfirmed,
		user.Enabled,
		user.NewsSubscribed,
		user.AvatarKey,
		user.ID,
	)
	if err != nil {
		if mapped := mapUniqueViolation(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("update user: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update user rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	return scanUser(row)
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ?`, username)
	return scanUser(row)
}

func (r *UserRepository) GetByEmailUnconfirmed(ctx context.Context, email string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ? AND is_confirmed = 0`, email)
	return scanUser(row)
}

func (r *UserRepository) List(ctx context.Context) ([]domain.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	return users, rows.Err()
}

func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, `SELECT 1 FROM users WHERE email = ?`, email)
}

func (r *UserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, `SELECT 1 FROM users WHERE username = ?`, username)
}

func (r *UserRepository) ExistsByConfirmedEmail(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, `SELECT 1 FROM users WHERE email = ? AND is_confirmed = 1`, email)
}

func (r *UserRepository) exists(ctx context.Context, query string, arg any) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, query, arg).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("existence check: %w", err)
	}
	return true, nil
}

func (r *UserRepository) DeleteByID(ctx context.Context, id int64) error {
	return r.delete(ctx, `DELETE FROM users WHERE id = ?`, id)
}

func (r *UserRepository) DeleteByEmail(ctx context.Context, email string) error {
	return r.delete(ctx, `DELETE FROM users WHERE email = ?`, email)
}

func (r *UserRepository) delete(ctx context.Context, query string, arg any) error {
	res, err := r.db.ExecContext(ctx, query, arg)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete user rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// mapUniqueViolation converts sqlite UNIQUE errors into the conflict sentinels
// the service layer dispatches on, or returns nil for unrelated errors.
func mapUniqueViolation(err error) error {
	msg := strings.ToLower(err.Error())
	if !strings.Contains(msg, "unique") {
		return nil
	}
	if strings.Contains(msg, "users.email") {
		return domain.ErrEmailAlreadyExists
	}
	if strings.Contains(msg, "users.username") {
		return domain.ErrUsernameAlreadyExists
	}
	return fmt.Errorf("unique constraint violated: %w", err)
}

func scanUser(row interface {
	Scan(dest ...any) error
}) (*domain.User, error) {
	var user domain.User
	var role string
	if err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Username,
		&user.FirstName,
		&user.MiddleName,
		&user.LastName,
		&user.Address,
		&user.PhoneNumber,
		&user.PasswordHash,
		&role,
		&user.IsConfirmed,
		&user.Enabled,
		&user.NewsSubscribed,
		&user.AvatarKey,
		&user.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	user.Role = domain.Role(role)
	return &user, nil
}
