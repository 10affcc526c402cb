package dto

import (
	"time"

	domainfees "padicrib/internal/domain/fees"
	domainlistings "padicrib/internal/domain/listings"
	domainverification "padicrib/internal/domain/verification"
)

type Image struct {
	ID        int64     `json:"id"`
	Path      string    `json:"path"`
	CreatedAt time.Time `json:"created_at"`
}

type Listing struct {
	ID              int64      `json:"id"`
	OwnerID         int64      `json:"owner_id"`
	Title           string     `json:"title"`
	Description     string     `json:"description,omitempty"`
	State           string     `json:"state"`
	LGA             string     `json:"lga"`
	Address         string     `json:"address"`
	Price           Money      `json:"price"`
	Status          string     `json:"status"`
	IsActive        bool       `json:"is_active"`
	FeePaid         bool       `json:"listing_fee_paid"`
	FeeAmount       Money      `json:"listing_fee_amount"`
	PaidUntil       *time.Time `json:"paid_until,omitempty"`
	PaymentPlan     string     `json:"payment_plan,omitempty"`
	RejectionReason string     `json:"rejection_reason,omitempty"`
	Images          []Image    `json:"images"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

type ListingCollection struct {
	Items []Listing `json:"items"`
	Total int       `json:"total"`
}

// ListingDetail is the public listing page.
type ListingDetail struct {
	Listing       Listing        `json:"listing"`
	Reviews       []ReviewThread `json:"reviews"`
	AverageRating float64        `json:"average_rating"`
}

type Fee struct {
	ID        int64      `json:"id"`
	Amount    Money      `json:"amount"`
	Paid      bool       `json:"paid"`
	Reference string     `json:"reference,omitempty"`
	Period    string     `json:"period,omitempty"`
	StartsAt  *time.Time `json:"starts_at,omitempty"`
	EndsAt    *time.Time `json:"ends_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	PaidAt    *time.Time `json:"paid_at,omitempty"`
}

type Verification struct {
	ID         int64      `json:"id"`
	ListingID  int64      `json:"listing_id"`
	OwnerID    int64      `json:"owner_id"`
	IDNumber   string     `json:"id_number"`
	Status     string     `json:"status"`
	AdminNotes string     `json:"admin_notes,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	ReviewedAt *time.Time `json:"reviewed_at,omitempty"`
}

// CreatedListing tells the owner whether a fee must be paid before moderation.
type CreatedListing struct {
	Listing     Listing `json:"listing"`
	FeeRequired bool    `json:"fee_required"`
	Fee         *Fee    `json:"fee,omitempty"`
}

type OwnerListing struct {
	Listing      Listing       `json:"listing"`
	Fees         []Fee         `json:"fees"`
	Verification *Verification `json:"verification,omitempty"`
	Bookings     []Booking     `json:"bookings"`
}

type OwnerDashboard struct {
	Listings []OwnerListing `json:"listings"`
}

// FeePage lists what an owner owes and what each plan costs.
type FeePage struct {
	Listing Listing `json:"listing"`
	Fees    []Fee   `json:"fees"`
	Monthly Money   `json:"monthly"`
	Yearly  Money   `json:"yearly"`
}

func MapListing(l *domainlistings.Listing) Listing {
	if l == nil {
		return Listing{}
	}
	images := make([]Image, 0, len(l.Images))
	for _, img := range l.Images {
		images = append(images, Image{ID: int64(img.ID), Path: img.Path, CreatedAt: img.CreatedAt})
	}
	return Listing{
		ID:              int64(l.ID),
		OwnerID:         int64(l.OwnerID),
		Title:           l.Title,
		Description:     l.Description,
		State:           l.State,
		LGA:             l.LGA,
		Address:         l.Address,
		Price:           MapMoney(l.Price),
		Status:          string(l.Status),
		IsActive:        l.IsActive,
		FeePaid:         l.FeePaid,
		FeeAmount:       MapMoney(l.FeeAmount),
		PaidUntil:       l.PaidUntil,
		PaymentPlan:     string(l.PaymentPlan),
		RejectionReason: l.RejectionReason,
		Images:          images,
		CreatedAt:       l.CreatedAt,
		UpdatedAt:       l.UpdatedAt,
	}
}

func MapListings(all []*domainlistings.Listing) []Listing {
	out := make([]Listing, 0, len(all))
	for _, l := range all {
		out = append(out, MapListing(l))
	}
	return out
}

func MapFee(f *domainfees.Fee) Fee {
	return Fee{
		ID:        int64(f.ID),
		Amount:    MapMoney(f.Amount),
		Paid:      f.Paid,
		Reference: f.Reference,
		Period:    string(f.Period),
		StartsAt:  f.StartsAt,
		EndsAt:    f.EndsAt,
		CreatedAt: f.CreatedAt,
		PaidAt:    f.PaidAt,
	}
}

func MapFees(all []*domainfees.Fee) []Fee {
	out := make([]Fee, 0, len(all))
	for _, f := range all {
		out = append(out, MapFee(f))
	}
	return out
}

func MapVerification(v *domainverification.Verification) Verification {
	return Verification{
		ID:         int64(v.ID),
		ListingID:  int64(v.ListingID),
		OwnerID:    int64(v.OwnerID),
		IDNumber:   v.IDNumber,
		Status:     string(v.Status),
		AdminNotes: v.AdminNotes,
		CreatedAt:  v.CreatedAt,
		ReviewedAt: v.ReviewedAt,
	}
}
