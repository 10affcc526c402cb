package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"padicrib/internal/app/services/auth"
	domainuser "padicrib/internal/domain/user"
	"padicrib/internal/infra/security"
	"padicrib/internal/infra/storage/memory"
)

// tokens are checked against the wall clock, so the fixed instant stays near it
var now = time.Now().UTC().Truncate(time.Second)

func newService() (*auth.Service, *memory.Store) {
	store := memory.NewStore()
	return &auth.Service{
		UoW:       store,
		Passwords: security.BcryptHasher{Cost: bcrypt.MinCost},
		Tokens:    security.JWTIssuer{Secret: []byte("unit-test"), TTL: time.Hour},
		Now:       func() time.Time { return now },
	}, store
}

func TestRegisterThenLogin(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	reg, err := svc.Register(ctx, auth.RegisterParams{Name: "Chidi", Email: "Chidi@Example.com", Password: "s3cret-pass"})
	require.NoError(t, err)
	assert.Equal(t, domainuser.RoleUser, reg.User.Role)
	assert.NotEqual(t, "s3cret-pass", reg.User.PasswordHash)
	assert.WithinDuration(t, now.Add(time.Hour), reg.ExpiresAt, time.Second)

	_, err = svc.Register(ctx, auth.RegisterParams{Name: "Again", Email: "chidi@example.com", Password: "s3cret-pass"})
	assert.ErrorIs(t, err, domainuser.ErrEmailAlreadyUsed)

	login, err := svc.Login(ctx, auth.LoginParams{Email: " CHIDI@example.com ", Password: "s3cret-pass"})
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, login.User.ID)

	_, err = svc.Login(ctx, auth.LoginParams{Email: "chidi@example.com", Password: "wrong-pass"})
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

	resolved, err := svc.ResolveToken(ctx, login.Token)
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, resolved.ID)
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	svc, _ := newService()
	_, err := svc.Register(context.Background(), auth.RegisterParams{Name: "A", Email: "a@b.c", Password: "short"})
	assert.ErrorIs(t, err, auth.ErrPasswordTooShort)
}

func TestResolveTokenSuspensions(t *testing.T) {
	svc, store := newService()
	ctx := context.Background()

	past := now.Add(-time.Minute)
	lapsed := store.SeedUser(domainuser.User{
		Name: "Lapsed", Email: "lapsed@padicrib.test", PasswordHash: "x", Role: domainuser.RoleUser,
		Status: domainuser.StatusSuspended, SuspendedUntil: &past,
	})
	indefinite := store.SeedUser(domainuser.User{
		Name: "Held", Email: "held@padicrib.test", PasswordHash: "x", Role: domainuser.RoleUser,
		Status: domainuser.StatusSuspended,
	})

	token := func(id domainuser.ID) string {
		tok, _, err := svc.Tokens.Issue(&domainuser.User{ID: id, Role: domainuser.RoleUser}, now)
		require.NoError(t, err)
		return tok
	}

	u, err := svc.ResolveToken(ctx, token(lapsed))
	require.NoError(t, err, "an elapsed suspension is lifted on the next request")
	assert.Equal(t, domainuser.StatusActive, u.Status)

	u, err = svc.ResolveToken(ctx, token(indefinite))
	assert.ErrorIs(t, err, domainuser.ErrSuspended)
	assert.Nil(t, u)

	_, err = svc.ResolveToken(ctx, "garbage")
	assert.ErrorIs(t, err, auth.ErrInvalidToken)

	_, err = svc.ResolveToken(ctx, token(9999))
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}
