package account

import (
	"context"
	"testing"

	"github.com/dkeye/demeet/internal/adapters/store/memory"
	"github.com/dkeye/demeet/internal/app/token"
	"github.com/dkeye/demeet/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T) (*Service, *token.Service) {
	t.Helper()
	store := memory.NewIdentityStore()
	tokens, err := token.NewService(store, token.Config{AccessSecret: "a-secret", RefreshSecret: "r-secret"})
	require.NoError(t, err)
	return NewService(store, tokens), tokens
}

func register(t *testing.T, s *Service, email string) *domain.Identity {
	t.Helper()
	id, err := s.Register(context.Background(), Registration{Name: "Ada", Email: email, Password: "hunter22"})
	require.NoError(t, err)
	return id
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	s, tokens := newService(t)
	id := register(t, s, "ada@example.com")
	assert.NotEmpty(t, id.PasswordHash)

	pair, got, err := s.Login(ctx, "ADA@example.com", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, id.ID, got.ID)

	claims, err := tokens.VerifyAccess(ctx, pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, id.ID, claims.Subject)
}

func TestRegisterValidation(t *testing.T) {
	ctx := context.Background()
	s, _ := newService(t)
	register(t, s, "ada@example.com")

	_, err := s.Register(ctx, Registration{Name: "Ada", Email: "ada@example.com", Password: "hunter22"})
	assert.ErrorIs(t, err, domain.ErrConflict)
	_, err = s.Register(ctx, Registration{Name: "Bob", Email: "bob@example.com", Password: "123"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = s.Register(ctx, Registration{Name: "", Email: "c@example.com", Password: "hunter22"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestLoginFailuresAreUnauthorized(t *testing.T) {
	ctx := context.Background()
	s, _ := newService(t)
	register(t, s, "ada@example.com")

	_, _, err := s.Login(ctx, "ada@example.com", "wrong-password")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	_, _, err = s.Login(ctx, "nobody@example.com", "hunter22")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestLogoutRevokesRefresh(t *testing.T) {
	ctx := context.Background()
	s, _ := newService(t)
	register(t, s, "ada@example.com")
	pair, _, err := s.Login(ctx, "ada@example.com", "hunter22")
	require.NoError(t, err)

	require.NoError(t, s.Logout(ctx, pair.AccessToken))
	_, err = s.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	assert.NoError(t, s.Logout(ctx, "garbage"))
}

func TestGoogleLogin(t *testing.T) {
	ctx := context.Background()
	s, _ := newService(t)
	profile := GoogleProfile{Subject: "g-42", Email: "gina@example.com", Picture: "https://img"}

	_, first, err := s.GoogleLogin(ctx, profile)
	require.NoError(t, err)
	assert.True(t, first.IsGoogleUser())
	assert.Equal(t, "gina", first.Name)

	_, second, err := s.GoogleLogin(ctx, profile)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	_, _, err = s.Login(ctx, "gina@example.com", "")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestGoogleLoginConflictsWithPasswordAccount(t *testing.T) {
	ctx := context.Background()
	s, _ := newService(t)
	register(t, s, "ada@example.com")

	_, _, err := s.GoogleLogin(ctx, GoogleProfile{Subject: "g-1", Email: "ada@example.com"})
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestLinkWallet(t *testing.T) {
	ctx := context.Background()
	s, _ := newService(t)
	a := register(t, s, "a@example.com")
	b := register(t, s, "b@example.com")

	got, err := s.LinkWallet(ctx, a.ID, " 0xabc ")
	require.NoError(t, err)
	assert.Equal(t, "0xabc", got.WalletID)

	_, err = s.LinkWallet(ctx, b.ID, "0xabc")
	assert.ErrorIs(t, err, domain.ErrConflict)
	_, err = s.LinkWallet(ctx, b.ID, "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
