package security

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	domainuser "padicrib/internal/domain/user"
)

func TestBcryptRoundTrip(t *testing.T) {
	h := BcryptHasher{Cost: bcrypt.MinCost}
	hash, err := h.Hash("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse", hash)
	assert.NoError(t, h.Compare(hash, "correct horse"))
	assert.Error(t, h.Compare(hash, "battery staple"))
}

func TestJWTIssueAndParse(t *testing.T) {
	j := JWTIssuer{Secret: []byte("s3cret"), TTL: time.Hour}
	now := time.Now()
	token, exp, err := j.Issue(&domainuser.User{ID: 42, Role: domainuser.RoleOwner}, now)
	require.NoError(t, err)
	assert.WithinDuration(t, now.Add(time.Hour), exp, time.Second)

	id, err := j.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, domainuser.ID(42), id)
}

func TestJWTRejectsForeignAndExpiredTokens(t *testing.T) {
	j := JWTIssuer{Secret: []byte("s3cret"), TTL: time.Hour}
	other := JWTIssuer{Secret: []byte("other"), TTL: time.Hour}

	token, _, err := other.Issue(&domainuser.User{ID: 1}, time.Now())
	require.NoError(t, err)
	_, err = j.Parse(token)
	assert.Error(t, err)

	stale, _, err := j.Issue(&domainuser.User{ID: 1}, time.Now().Add(-2*time.Hour))
	require.NoError(t, err)
	_, err = j.Parse(stale)
	assert.Error(t, err)

	_, err = JWTIssuer{}.Parse(token)
	assert.ErrorIs(t, err, ErrSecretRequired)
}
