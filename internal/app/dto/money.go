package dto

import "padicrib/internal/domain/shared/money"

// Money carries minor units for machines and a formatted amount for people.
type Money struct {
	Minor    int64  `json:"minor"`
	Currency string `json:"currency"`
	Display  string `json:"display"`
}

func MapMoney(m money.Money) Money {
	return Money{Minor: m.Amount, Currency: m.Currency, Display: m.String()}
}
