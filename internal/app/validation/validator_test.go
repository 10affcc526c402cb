package validation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Email  string `json:"email" validate:"required,email"`
	Rating int    `json:"rating" validate:"min=0,max=5"`
	Period string `validate:"omitempty,oneof=monthly yearly"`
}

func TestValidateCollectsFieldMessages(t *testing.T) {
	v := New()
	err := v.Validate(context.Background(), sample{Email: "nope", Rating: 9, Period: "weekly"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalid)

	var verr *Error
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "must be a valid email address", verr.Fields["email"])
	assert.Equal(t, "must be at most 5", verr.Fields["rating"])
	assert.Equal(t, "must be one of: monthly yearly", verr.Fields["Period"])
}

func TestValidatePassesNonStructs(t *testing.T) {
	v := New()
	assert.NoError(t, v.Validate(context.Background(), "plain"))
	assert.NoError(t, v.Validate(context.Background(), (*sample)(nil)))
	assert.NoError(t, v.Validate(context.Background(), &sample{Email: "a@b.co"}))
}
