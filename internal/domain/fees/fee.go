package fees

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"padicrib/internal/domain/listings"
	"padicrib/internal/domain/shared/money"
)

var (
	ErrNotFound        = errors.New("fees: not found")
	ErrAlreadySettled  = errors.New("fees: ledger row already settled")
	ErrReferenceNeeded = errors.New("fees: payment reference is required")
	ErrDuplicate       = errors.New("fees: reference already recorded")
)

type ID int64

// Fee is one row of the listing subscription ledger.
type Fee struct {
	ID        ID
	ListingID listings.ID
	Amount    money.Money
	Paid      bool
	Reference string
	Period    listings.Period
	StartsAt  *time.Time
	EndsAt    *time.Time
	CreatedAt time.Time
	PaidAt    *time.Time
}

type Repository interface {
	Create(ctx context.Context, fee *Fee) error
	Save(ctx context.Context, fee *Fee) error
	ByReference(ctx context.Context, reference string) (*Fee, error)
	// UnpaidStub returns the oldest unpaid row for the listing, if any.
	UnpaidStub(ctx context.Context, listing listings.ID) (*Fee, error)
	ByListing(ctx context.Context, listing listings.ID) ([]*Fee, error)
	DeleteByListing(ctx context.Context, listing listings.ID) error
}

// NewStub records the unpaid fee owed by a listing beyond the free quota.
func NewStub(listing listings.ID, amount money.Money, now time.Time) *Fee {
	return &Fee{ListingID: listing, Amount: amount, CreatedAt: now.UTC()}
}

// NewPayment appends a settled ledger row.
func NewPayment(listing listings.ID, amount money.Money, reference string, res listings.PaymentResult, now time.Time) (*Fee, error) {
	f := &Fee{ListingID: listing, Amount: amount, CreatedAt: now.UTC()}
	if err := f.Settle(reference, amount, res, now); err != nil {
		return nil, err
	}
	return f, nil
}

// Settle turns an unpaid stub into a paid ledger row.
func (f *Fee) Settle(reference string, amount money.Money, res listings.PaymentResult, now time.Time) error {
	if f.Paid {
		return ErrAlreadySettled
	}
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return ErrReferenceNeeded
	}
	starts, ends, paidAt := res.StartsAt.UTC(), res.EndsAt.UTC(), now.UTC()
	f.Paid = true
	f.Reference = reference
	f.Amount = amount
	f.Period = res.Period
	f.StartsAt = &starts
	f.EndsAt = &ends
	f.PaidAt = &paidAt
	return nil
}

// Reference builds the provider reference for a listing subscription payment.
func Reference(listing listings.ID, now time.Time) string {
	return fmt.Sprintf("listing-%d-%d", listing, now.UnixMilli())
}

// ListingFromReference recovers the listing id from a listing reference.
func ListingFromReference(reference string) (listings.ID, bool) {
	parts := strings.Split(strings.TrimSpace(reference), "-")
	if len(parts) != 3 || parts[0] != "listing" {
		return 0, false
	}
	id, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return listings.ID(id), true
}
