package dto

import (
	"time"

	domainbooking "padicrib/internal/domain/booking"
	domainproviders "padicrib/internal/domain/providers"
)

type BookingService struct {
	ID         int64  `json:"id"`
	Type       string `json:"type"`
	ProviderID *int64 `json:"provider_id,omitempty"`
	Price      Money  `json:"price"`
}

type Booking struct {
	ID               int64            `json:"id"`
	ListingID        int64            `json:"listing_id"`
	UserID           int64            `json:"user_id"`
	StartDate        time.Time        `json:"start_date"`
	EndDate          time.Time        `json:"end_date"`
	Nights           int              `json:"nights"`
	TotalPrice       Money            `json:"total_price"`
	Paid             bool             `json:"paid"`
	PaymentReference string           `json:"payment_reference,omitempty"`
	PaidAt           *time.Time       `json:"paid_at,omitempty"`
	Services         []BookingService `json:"services"`
	CreatedAt        time.Time        `json:"created_at"`
}

type Provider struct {
	ID    int64  `json:"id"`
	Type  string `json:"type"`
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
}

// Checkout is everything a traveller needs to configure a booking.
type Checkout struct {
	Listing      Listing    `json:"listing"`
	Laundry      []Provider `json:"laundry_providers"`
	Food         []Provider `json:"food_vendors"`
	LaundryPrice Money      `json:"laundry_price"`
	FoodPrice    Money      `json:"food_price"`
}

func MapBooking(b *domainbooking.Booking) Booking {
	services := make([]BookingService, 0, len(b.Services))
	for _, s := range b.Services {
		services = append(services, BookingService{ID: s.ID, Type: string(s.Type), ProviderID: s.ProviderID, Price: MapMoney(s.Price)})
	}
	return Booking{
		ID:               int64(b.ID),
		ListingID:        int64(b.ListingID),
		UserID:           int64(b.UserID),
		StartDate:        b.StartDate,
		EndDate:          b.EndDate,
		Nights:           b.Nights,
		TotalPrice:       MapMoney(b.TotalPrice),
		Paid:             b.Paid,
		PaymentReference: b.PaymentReference,
		PaidAt:           b.PaidAt,
		Services:         services,
		CreatedAt:        b.CreatedAt,
	}
}

func MapBookings(all []*domainbooking.Booking) []Booking {
	out := make([]Booking, 0, len(all))
	for _, b := range all {
		out = append(out, MapBooking(b))
	}
	return out
}

func MapProvider(p *domainproviders.Provider) Provider {
	return Provider{ID: int64(p.ID), Type: string(p.Type), Name: p.Name, Phone: p.Phone}
}

func MapProviders(all []*domainproviders.Provider) []Provider {
	out := make([]Provider, 0, len(all))
	for _, p := range all {
		out = append(out, MapProvider(p))
	}
	return out
}
