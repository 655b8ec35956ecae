package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"accountd/internal/domain"
)

type memPinRepo struct {
	pins map[string]int
}

func newMemPinRepo() *memPinRepo {
	return &memPinRepo{pins: make(map[string]int)}
}

func (r *memPinRepo) Init(ctx context.Context) error { return nil }

func (r *memPinRepo) Upsert(ctx context.Context, pin *domain.EmailPin) error {
	r.pins[pin.Email] = pin.Pin
	return nil
}

func (r *memPinRepo) GetByEmail(ctx context.Context, email string) (*domain.EmailPin, error) {
	pin, ok := r.pins[email]
	if !ok {
		return nil, domain.ErrChallengeNotFound
	}
	return &domain.EmailPin{Email: email, Pin: pin}, nil
}

func (r *memPinRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, ok := r.pins[email]
	return ok, nil
}

func (r *memPinRepo) Delete(ctx context.Context, email string) error {
	delete(r.pins, email)
	return nil
}

type capturingSender struct {
	sent []sentMail
	err  error
}

type sentMail struct {
	to, subject, body string
}

func (s *capturingSender) Send(to, subject, body string) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, sentMail{to: to, subject: subject, body: body})
	return nil
}

func TestPinChallengeIssue(t *testing.T) {
	ctx := context.Background()
	repo := newMemPinRepo()
	sender := &capturingSender{}
	challenge := NewPinChallenge(repo, sender)

	require.NoError(t, challenge.Issue(ctx, "a@x.com", "subject", "pin: "))

	pin, ok := repo.pins["a@x.com"]
	require.True(t, ok, "pin should be stored")
	assert.GreaterOrEqual(t, pin, 100000)
	assert.LessOrEqual(t, pin, 999999)

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "a@x.com", sender.sent[0].to)
	assert.Equal(t, "subject", sender.sent[0].subject)
	assert.Equal(t, fmt.Sprintf("pin: %d", pin), sender.sent[0].body)
}

func TestPinChallengeIssueMailFailure(t *testing.T) {
	ctx := context.Background()
	repo := newMemPinRepo()
	sender := &capturingSender{err: fmt.Errorf("smtp down")}
	challenge := NewPinChallenge(repo, sender)

	err := challenge.Issue(ctx, "a@x.com", "subject", "pin: ")
	require.Error(t, err)
	assert.Empty(t, repo.pins, "no pin stored when mail delivery fails")
}

func TestPinChallengeValidate(t *testing.T) {
	ctx := context.Background()
	repo := newMemPinRepo()
	challenge := NewPinChallenge(repo, &capturingSender{})

	err := challenge.Validate(ctx, "a@x.com", 123456)
	assert.ErrorIs(t, err, domain.ErrChallengeNotFound)

	repo.pins["a@x.com"] = 654321

	err = challenge.Validate(ctx, "a@x.com", 111111)
	assert.ErrorIs(t, err, domain.ErrInvalidPin)
	assert.Contains(t, repo.pins, "a@x.com", "record intact after a bad attempt")

	require.NoError(t, challenge.Validate(ctx, "a@x.com", 654321))
	assert.NotContains(t, repo.pins, "a@x.com", "record consumed on success")
}

// Reissuing before validation replaces the live pin: the old value stops
// validating, the new one validates exactly once.
func TestPinChallengeReissueOverwrites(t *testing.T) {
	ctx := context.Background()
	repo := newMemPinRepo()
	challenge := NewPinChallenge(repo, &capturingSender{})

	require.NoError(t, challenge.Issue(ctx, "a@x.com", "s", "p: "))
	first := repo.pins["a@x.com"]

	for repo.pins["a@x.com"] == first {
		require.NoError(t, challenge.Issue(ctx, "a@x.com", "s", "p: "))
	}
	second := repo.pins["a@x.com"]

	assert.ErrorIs(t, challenge.Validate(ctx, "a@x.com", first), domain.ErrInvalidPin)
	require.NoError(t, challenge.Validate(ctx, "a@x.com", second))
	assert.ErrorIs(t, challenge.Validate(ctx, "a@x.com", second), domain.ErrChallengeNotFound)
}

func TestRandomPinRange(t *testing.T) {
	for i := 0; i < 200; i++ {
		pin, err := randomPin()
		require.NoError(t, err)
		require.GreaterOrEqual(t, pin, 100000)
		require.LessOrEqual(t, pin, 999999)
	}
}
