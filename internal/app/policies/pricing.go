package policies

import (
	"padicrib/internal/domain/booking"
	"padicrib/internal/domain/listings"
	"padicrib/internal/domain/shared/money"
)

// Pricing holds the configured marketplace fees.
type Pricing struct {
	FreeListings int
	MonthlyFee   money.Money
	YearlyFee    money.Money
	AddOns       booking.AddOnPrices
}

// ListingFee is the fee owed by a new listing given how many the owner already has.
func (p Pricing) ListingFee(existing int) money.Money {
	if existing < p.FreeListings {
		return money.Money{Amount: 0, Currency: p.MonthlyFee.Currency}
	}
	return p.MonthlyFee
}

// Currency is the marketplace settlement currency.
func (p Pricing) Currency() string {
	if p.MonthlyFee.Currency != "" {
		return p.MonthlyFee.Currency
	}
	return money.DefaultCurrency
}

func (p Pricing) PeriodFee(period listings.Period) money.Money {
	if period == listings.PeriodYearly {
		return p.YearlyFee
	}
	return p.MonthlyFee
}
