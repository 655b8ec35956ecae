package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"accountd/internal/domain"
	"accountd/internal/repository"
)

func newTestPinRepo(t *testing.T) repository.PinRepository {
	t.Helper()
	repo := NewPinRepository(openTestDB(t))
	require.NoError(t, repo.Init(context.Background()))
	return repo
}

func TestPinRepositoryUpsert(t *testing.T) {
	ctx := context.Background()
	repo := newTestPinRepo(t)

	_, err := repo.GetByEmail(ctx, "a@x.com")
	assert.ErrorIs(t, err, domain.ErrChallengeNotFound)

	require.NoError(t, repo.Upsert(ctx, &domain.EmailPin{Email: "a@x.com", Pin: 111111}))

	got, err := repo.GetByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, 111111, got.Pin)

	// a second upsert replaces the pin in place, never a second row
	require.NoError(t, repo.Upsert(ctx, &domain.EmailPin{Email: "a@x.com", Pin: 222222}))

	got, err = repo.GetByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, 222222, got.Pin)
}

func TestPinRepositoryExistsAndDelete(t *testing.T) {
	ctx := context.Background()
	repo := newTestPinRepo(t)

	exists, err := repo.ExistsByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, repo.Upsert(ctx, &domain.EmailPin{Email: "a@x.com", Pin: 123456}))

	exists, err = repo.ExistsByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, repo.Delete(ctx, "a@x.com"))

	exists, err = repo.ExistsByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.False(t, exists)

	// deleting a missing record is a no-op
	require.NoError(t, repo.Delete(ctx, "a@x.com"))
}
