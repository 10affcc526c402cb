package messaging

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"padicrib/internal/domain/listings"
	"padicrib/internal/domain/user"
)

func TestNewConversationDedupesMembers(t *testing.T) {
	id := listings.ID(8)
	c, err := NewConversation(VerificationSubject(id), &id, []user.ID{3, 0, 1, 3}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "Verification for listing #8", c.Subject)
	assert.Equal(t, []user.ID{3, 1}, c.Members)
	assert.True(t, c.HasMember(1))
	assert.False(t, c.HasMember(2))

	_, err = NewConversation("hi", nil, []user.ID{0}, time.Now())
	assert.ErrorIs(t, err, ErrNoMembers)
	_, err = NewConversation(" ", nil, []user.ID{1}, time.Now())
	assert.ErrorIs(t, err, ErrSubjectRequired)
}

func TestNewMessageRequiresBody(t *testing.T) {
	_, err := NewMessage(1, nil, "  ", time.Now())
	assert.ErrorIs(t, err, ErrBodyRequired)

	m, err := NewMessage(1, nil, "Your listing was approved", time.Now())
	require.NoError(t, err)
	assert.Nil(t, m.SenderID)
}
