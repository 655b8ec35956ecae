package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"accountd/internal/domain"
	"accountd/internal/token"
)

// memUserRepo is an in-memory UserRepository enforcing the same uniqueness
// rules as the sqlite implementation.
type memUserRepo struct {
	seq   int64
	users map[int64]*domain.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[int64]*domain.User)}
}

func (r *memUserRepo) Init(ctx context.Context) error { return nil }

func (r *memUserRepo) Save(ctx context.Context, user *domain.User) (int64, error) {
	for id, existing := range r.users {
		if id == user.ID {
			continue
		}
		if existing.Email == user.Email {
			return 0, domain.ErrEmailAlreadyExists
		}
		if existing.Username == user.Username {
			return 0, domain.ErrUsernameAlreadyExists
		}
	}
	if user.ID == 0 {
		r.seq++
		user.ID = r.seq
	} else if _, ok := r.users[user.ID]; !ok {
		return 0, domain.ErrUserNotFound
	}
	clone := *user
	r.users[user.ID] = &clone
	return user.ID, nil
}

func (r *memUserRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return r.find(func(u *domain.User) bool { return u.ID == id })
}

func (r *memUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.find(func(u *domain.User) bool { return u.Email == email })
}

func (r *memUserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.find(func(u *domain.User) bool { return u.Username == username })
}

func (r *memUserRepo) GetByEmailUnconfirmed(ctx context.Context, email string) (*domain.User, error) {
	return r.find(func(u *domain.User) bool { return u.Email == email && !u.IsConfirmed })
}

func (r *memUserRepo) List(ctx context.Context) ([]domain.User, error) {
	var out []domain.User
	for _, u := range r.users {
		out = append(out, *u)
	}
	return out, nil
}

func (r *memUserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := r.GetByEmail(ctx, email)
	return err == nil, nil
}

func (r *memUserRepo) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	_, err := r.GetByUsername(ctx, username)
	return err == nil, nil
}

func (r *memUserRepo) ExistsByConfirmedEmail(ctx context.Context, email string) (bool, error) {
	_, err := r.find(func(u *domain.User) bool { return u.Email == email && u.IsConfirmed })
	return err == nil, nil
}

func (r *memUserRepo) DeleteByID(ctx context.Context, id int64) error {
	if _, ok := r.users[id]; !ok {
		return domain.ErrUserNotFound
	}
	delete(r.users, id)
	return nil
}

func (r *memUserRepo) DeleteByEmail(ctx context.Context, email string) error {
	u, err := r.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	delete(r.users, u.ID)
	return nil
}

func (r *memUserRepo) find(match func(*domain.User) bool) (*domain.User, error) {
	for _, u := range r.users {
		if match(u) {
			clone := *u
			return &clone, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

// fakeChallenge records issued challenges instead of mailing anything.
type fakeChallenge struct {
	issued   []string
	subjects []string
}

func (f *fakeChallenge) Issue(ctx context.Context, email, subject, bodyPrefix string) error {
	f.issued = append(f.issued, email)
	f.subjects = append(f.subjects, subject)
	return nil
}

func (f *fakeChallenge) Validate(ctx context.Context, email string, pin int) error {
	return domain.ErrChallengeNotFound
}

func newTestAuth(t *testing.T) (AuthService, *memUserRepo, *fakeChallenge, token.Issuer) {
	t.Helper()
	repo := newMemUserRepo()
	challenge := &fakeChallenge{}
	issuer := token.NewJWTIssuer("test-secret", time.Hour)
	return NewAuthService(repo, challenge, NewBcryptHasher(), issuer), repo, challenge, issuer
}

func signUpReq(email, username string) SignUpRequest {
	return SignUpRequest{
		Email:       email,
		Username:    username,
		FirstName:   "Jon",
		LastName:    "Doe",
		Address:     "123 Main St",
		PhoneNumber: "+1234567890",
		Password:    "my_secret_password",
	}
}

func TestSignUpNewUser(t *testing.T) {
	ctx := context.Background()
	svc, repo, _, issuer := newTestAuth(t)

	jwt, err := svc.SignUp(ctx, signUpReq("jon@x.com", "jondoe"))
	require.NoError(t, err)
	require.NotEmpty(t, jwt)

	user, err := repo.GetByEmail(ctx, "jon@x.com")
	require.NoError(t, err)
	assert.True(t, user.IsConfirmed)
	assert.True(t, user.Enabled)
	assert.Equal(t, domain.RoleUser, user.Role)
	assert.False(t, user.CreatedAt.IsZero())
	assert.NotEqual(t, "my_secret_password", user.PasswordHash)

	claims, err := issuer.Parse(jwt)
	require.NoError(t, err)
	assert.Equal(t, "jon@x.com", claims.Email)
}

func TestSignUpOverwritesUnconfirmed(t *testing.T) {
	ctx := context.Background()
	svc, repo, _, _ := newTestAuth(t)

	_, err := repo.Save(ctx, &domain.User{
		Email:        "jon@x.com",
		Username:     "old-name",
		PasswordHash: "old-hash",
		Role:         domain.RoleUser,
		IsConfirmed:  false,
	})
	require.NoError(t, err)

	jwt, err := svc.SignUp(ctx, signUpReq("jon@x.com", "jondoe"))
	require.NoError(t, err)
	require.NotEmpty(t, jwt)

	users, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1, "resubmission must not create a second row")
	assert.True(t, users[0].IsConfirmed)
	assert.Equal(t, "jondoe", users[0].Username)
	assert.Equal(t, "Jon", users[0].FirstName)
	assert.NotEqual(t, "old-hash", users[0].PasswordHash)
}

func TestSignUpConflicts(t *testing.T) {
	ctx := context.Background()
	svc, repo, _, _ := newTestAuth(t)

	_, err := svc.SignUp(ctx, signUpReq("jon@x.com", "jondoe"))
	require.NoError(t, err)

	_, err = svc.SignUp(ctx, signUpReq("other@x.com", "jondoe"))
	assert.ErrorIs(t, err, domain.ErrUsernameAlreadyExists)

	_, err = svc.SignUp(ctx, signUpReq("jon@x.com", "othername"))
	assert.ErrorIs(t, err, domain.ErrEmailAlreadyExists)

	users, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1, "failed sign-ups must not create records")
}

func TestSignIn(t *testing.T) {
	ctx := context.Background()
	svc, repo, _, issuer := newTestAuth(t)

	_, err := svc.SignIn(ctx, "nobody@x.com", "whatever")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	_, err = svc.SignUp(ctx, signUpReq("jon@x.com", "jondoe"))
	require.NoError(t, err)

	_, err = svc.SignIn(ctx, "jon@x.com", "wrong-password")
	assert.ErrorIs(t, err, domain.ErrInvalidPassword)

	jwt, err := svc.SignIn(ctx, "jon@x.com", "my_secret_password")
	require.NoError(t, err)

	claims, err := issuer.Parse(jwt)
	require.NoError(t, err)
	assert.Equal(t, string(domain.RoleUser), claims.Role)

	// demote the account to unconfirmed: even the right password is rejected
	user, err := repo.GetByEmail(ctx, "jon@x.com")
	require.NoError(t, err)
	user.IsConfirmed = false
	_, err = repo.Save(ctx, user)
	require.NoError(t, err)

	_, err = svc.SignIn(ctx, "jon@x.com", "my_secret_password")
	assert.ErrorIs(t, err, domain.ErrAccountNotConfirmed)
}

func TestUserExists(t *testing.T) {
	ctx := context.Background()
	svc, _, challenge, _ := newTestAuth(t)

	exists, err := svc.UserExists(ctx, "new@x.com")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.Equal(t, []string{"new@x.com"}, challenge.issued, "a miss kicks off verification")

	_, err = svc.SignUp(ctx, signUpReq("new@x.com", "newuser"))
	require.NoError(t, err)

	exists, err = svc.UserExists(ctx, "new@x.com")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Len(t, challenge.issued, 1, "no extra mail once the account exists")
}

func TestChangePassword(t *testing.T) {
	ctx := context.Background()
	svc, repo, _, _ := newTestAuth(t)

	_, err := svc.ChangePassword(ctx, "ghost", "a", "bbbbbbbb")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	_, err = svc.SignUp(ctx, signUpReq("jon@x.com", "jondoe"))
	require.NoError(t, err)
	before, err := repo.GetByUsername(ctx, "jondoe")
	require.NoError(t, err)

	_, err = svc.ChangePassword(ctx, "jondoe", "wrong-old", "brand_new_password")
	assert.ErrorIs(t, err, domain.ErrInvalidPassword)

	after, err := repo.GetByUsername(ctx, "jondoe")
	require.NoError(t, err)
	assert.Equal(t, before.PasswordHash, after.PasswordHash, "state untouched on mismatch")

	id, err := svc.ChangePassword(ctx, "jondoe", "my_secret_password", "brand_new_password")
	require.NoError(t, err)
	assert.Equal(t, before.ID, id)

	_, err = svc.SignIn(ctx, "jon@x.com", "brand_new_password")
	require.NoError(t, err)
}

func TestForgotPasswordSendsRecoveryPin(t *testing.T) {
	ctx := context.Background()
	svc, _, challenge, _ := newTestAuth(t)

	require.NoError(t, svc.ForgotPassword(ctx, "jon@x.com"))
	require.Len(t, challenge.issued, 1)
	assert.Equal(t, "jon@x.com", challenge.issued[0])
	assert.NotEqual(t, challenge.subjects[0], confirmSubject)
}

func TestChangeForgottenPassword(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _ := newTestAuth(t)

	_, err := svc.ChangeForgottenPassword(ctx, "ghost@x.com", 123456, "brand_new_password")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	_, err = svc.SignUp(ctx, signUpReq("jon@x.com", "jondoe"))
	require.NoError(t, err)

	id, err := svc.ChangeForgottenPassword(ctx, "jon@x.com", 123456, "brand_new_password")
	require.NoError(t, err)
	assert.NotZero(t, id)

	_, err = svc.SignIn(ctx, "jon@x.com", "brand_new_password")
	require.NoError(t, err)
}
