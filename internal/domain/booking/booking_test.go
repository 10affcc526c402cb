package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"padicrib/internal/domain/listings"
	"padicrib/internal/domain/shared/money"
)

var now = time.Date(2025, 10, 20, 10, 0, 0, 0, time.UTC)

func approvedListing(t *testing.T) *listings.Listing {
	t.Helper()
	l, err := listings.NewListing(listings.CreateParams{
		OwnerID: 1,
		Title:   "Ikoyi flat",
		State:   "Lagos",
		LGA:     "Ikoyi",
		Address: "2 Bourdillon",
		Price:   money.FromMajor(15000, money.DefaultCurrency),
		Now:     now,
	})
	require.NoError(t, err)
	l.ID = 10
	require.NoError(t, l.Approve(now))
	return l
}

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

var prices = AddOnPrices{
	Laundry: money.FromMajor(3000, money.DefaultCurrency),
	Food:    money.FromMajor(2000, money.DefaultCurrency),
}

func TestCalculateBaseForFourNights(t *testing.T) {
	q, err := Calculate(QuoteRequest{
		Listing:     approvedListing(t),
		RequesterID: 2,
		Start:       date(2025, time.November, 1),
		End:         date(2025, time.November, 5),
		Prices:      prices,
		Now:         now,
	})
	require.NoError(t, err)
	assert.Equal(t, 4, q.Nights)
	assert.Equal(t, money.FromMajor(60000, money.DefaultCurrency), q.Base)
	assert.Equal(t, q.Base, q.Total)
	assert.Empty(t, q.Services)
}

func TestCalculateRejectsOwner(t *testing.T) {
	_, err := Calculate(QuoteRequest{Listing: approvedListing(t), RequesterID: 1, Now: now})
	assert.ErrorIs(t, err, ErrOwnListing)
}

func TestCalculateRejectsUnbookableListings(t *testing.T) {
	pending := approvedListing(t)
	require.NoError(t, pending.Suspend("", now))
	_, err := Calculate(QuoteRequest{Listing: pending, RequesterID: 2, Now: now})
	assert.ErrorIs(t, err, listings.ErrNotBookable)

	expired := approvedListing(t)
	past := now.Add(-time.Hour)
	expired.PaidUntil = &past
	_, err = Calculate(QuoteRequest{Listing: expired, RequesterID: 2, Now: now})
	assert.ErrorIs(t, err, listings.ErrExpired)
}

func TestCalculateDefaultsToOneNight(t *testing.T) {
	q, err := Calculate(QuoteRequest{
		Listing:     approvedListing(t),
		RequesterID: 2,
		Start:       date(2025, time.November, 1),
		Now:         now,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, q.Nights)
	assert.Equal(t, now, q.Start)
	assert.Equal(t, now.Add(24*time.Hour), q.End)
}

func TestCalculateAddOns(t *testing.T) {
	provider := int64(4)
	q, err := Calculate(QuoteRequest{
		Listing:     approvedListing(t),
		RequesterID: 2,
		Start:       date(2025, time.November, 5),
		End:         date(2025, time.November, 3),
		Selection:   Selection{Laundry: true, FoodProviderID: &provider},
		Prices:      prices,
		Now:         now,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, q.Nights)
	require.Len(t, q.Services, 2)
	assert.Equal(t, ServiceLaundry, q.Services[0].Type)
	assert.Nil(t, q.Services[0].ProviderID)
	assert.Equal(t, ServiceFood, q.Services[1].Type)
	assert.Equal(t, &provider, q.Services[1].ProviderID)
	assert.Equal(t, money.FromMajor(35000, money.DefaultCurrency), q.Total)
}

func TestNightsRounding(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 1, Nights(start, start))
	assert.Equal(t, 1, Nights(start, start.Add(13*time.Hour)))
	assert.Equal(t, 2, Nights(start, start.Add(36*time.Hour)))
}

func TestBookingFromReference(t *testing.T) {
	id, ok := BookingFromReference("booking-12-99")
	require.True(t, ok)
	assert.Equal(t, ID(12), id)
	_, ok = BookingFromReference("listing-12-99")
	assert.False(t, ok)
}
