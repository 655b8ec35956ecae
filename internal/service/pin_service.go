package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"

	"accountd/internal/domain"
	"accountd/internal/mailer"
	"accountd/internal/repository"
)

// PinChallenge issues and validates one-time email verification pins. Each
// email has at most one live pin; issuing again overwrites the previous value.
type PinChallenge interface {
	Issue(ctx context.Context, email, subject, bodyPrefix string) error
	Validate(ctx context.Context, email string, pin int) error
}

type pinChallenge struct {
	pins repository.PinRepository
	mail mailer.Sender
}

func NewPinChallenge(pins repository.PinRepository, mail mailer.Sender) PinChallenge {
	return &pinChallenge{pins: pins, mail: mail}
}

func (s *pinChallenge) Issue(ctx context.Context, email, subject, bodyPrefix string) error {
	pin, err := randomPin()
	if err != nil {
		return err
	}

	if err := s.mail.Send(email, subject, fmt.Sprintf("%s%d", bodyPrefix, pin)); err != nil {
		return fmt.Errorf("send pin mail: %w", err)
	}

	return s.pins.Upsert(ctx, &domain.EmailPin{Email: email, Pin: pin})
}

func (s *pinChallenge) Validate(ctx context.Context, email string, pin int) error {
	stored, err := s.pins.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if stored.Pin != pin {
		return domain.ErrInvalidPin
	}
	return s.pins.Delete(ctx, email)
}

// randomPin draws a uniform 6-digit pin in [100000, 999999] from crypto/rand.
func randomPin() (int, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return 0, fmt.Errorf("generate pin: %w", err)
	}
	return int(n.Int64()) + 100000, nil
}
