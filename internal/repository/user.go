package repository

import (
	"context"

	"accountd/internal/domain"
)

// UserRepository defines persistence operations for User entities. Save is an
// insert-or-update keyed by ID; uniqueness of email and username is enforced
// at write time and surfaces as domain.ErrEmailAlreadyExists or
// domain.ErrUsernameAlreadyExists.
type UserRepository interface {
	Init(ctx context.Context) error
	Save(ctx context.Context, user *domain.User) (int64, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByEmailUnconfirmed(ctx context.Context, email string) (*domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByConfirmedEmail(ctx context.Context, email string) (bool, error)
	DeleteByID(ctx context.Context, id int64) error
	DeleteByEmail(ctx context.Context, email string) error
}
