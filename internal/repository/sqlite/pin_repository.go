package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"accountd/internal/domain"
	"accountd/internal/repository"
)

const createPinsTable = `
CREATE TABLE IF NOT EXISTS email_pins (
	email TEXT PRIMARY KEY,
	pin INTEGER NOT NULL
);
`

type PinRepository struct {
	db *sql.DB
}

func NewPinRepository(db *sql.DB) repository.PinRepository {
	return &PinRepository{db: db}
}

func (r *PinRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createPinsTable); err != nil {
		return fmt.Errorf("create email_pins table: %w", err)
	}
	return nil
}

func (r *PinRepository) Upsert(ctx context.Context, pin *domain.EmailPin) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO email_pins (email, pin) VALUES (?, ?)
ON CONFLICT(email) DO UPDATE SET pin = excluded.pin`,
		pin.Email,
		pin.Pin,
	)
	if err != nil {
		return fmt.Errorf("upsert pin: %w", err)
	}
	return nil
}

func (r *PinRepository) GetByEmail(ctx context.Context, email string) (*domain.EmailPin, error) {
	var pin domain.EmailPin
	err := r.db.QueryRowContext(ctx,
		`SELECT email, pin FROM email_pins WHERE email = ?`, email).
		Scan(&pin.Email, &pin.Pin)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrChallengeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan pin: %w", err)
	}
	return &pin, nil
}

func (r *PinRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM email_pins WHERE email = ?`, email).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("pin existence check: %w", err)
	}
	return true, nil
}

func (r *PinRepository) Delete(ctx context.Context, email string) error {
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM email_pins WHERE email = ?`, email); err != nil {
		return fmt.Errorf("delete pin: %w", err)
	}
	return nil
}
