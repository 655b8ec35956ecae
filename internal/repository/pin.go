package repository

import (
	"context"

	"accountd/internal/domain"
)

// PinRepository defines persistence operations for email verification pins.
// Upsert replaces any existing pin for the same email, keeping at most one
// live challenge per address.
type PinRepository interface {
	Init(ctx context.Context) error
	Upsert(ctx context.Context, pin *domain.EmailPin) error
	GetByEmail(ctx context.Context, email string) (*domain.EmailPin, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Delete(ctx context.Context, email string) error
}
