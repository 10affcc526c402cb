package fees

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"padicrib/internal/domain/listings"
	"padicrib/internal/domain/shared/money"
)

func TestReferenceRoundTrip(t *testing.T) {
	now := time.UnixMilli(1735689600123)
	ref := Reference(17, now)
	assert.Equal(t, "listing-17-1735689600123", ref)

	id, ok := ListingFromReference(ref)
	require.True(t, ok)
	assert.Equal(t, listings.ID(17), id)

	_, ok = ListingFromReference("booking-17-1735689600123")
	assert.False(t, ok)
	_, ok = ListingFromReference("listing-x-1")
	assert.False(t, ok)
}

func TestSettleStubOnce(t *testing.T) {
	now := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	stub := NewStub(5, money.FromMajor(5000, "NGN"), now)
	res := listings.PaymentResult{Period: listings.PeriodMonthly, StartsAt: now, EndsAt: now.AddDate(0, 1, 0)}

	assert.ErrorIs(t, stub.Settle(" ", stub.Amount, res, now), ErrReferenceNeeded)
	require.NoError(t, stub.Settle("listing-5-1", stub.Amount, res, now))
	assert.True(t, stub.Paid)
	assert.Equal(t, listings.PeriodMonthly, stub.Period)
	assert.ErrorIs(t, stub.Settle("listing-5-2", stub.Amount, res, now), ErrAlreadySettled)
}
