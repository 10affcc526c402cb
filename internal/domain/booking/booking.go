package booking

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"padicrib/internal/domain/listings"
	"padicrib/internal/domain/shared/events"
	"padicrib/internal/domain/shared/money"
	"padicrib/internal/domain/user"
)

var (
	ErrNotFound        = errors.New("booking: not found")
	ErrListingRequired = errors.New("booking: listing is required")
	ErrOwnListing      = errors.New("booking: owners cannot book their own listing")
	ErrAlreadyPaid     = errors.New("booking: already paid")
	ErrNotBooker       = errors.New("booking: booking belongs to another user")
)

const day = 24 * time.Hour

type ID int64

type ServiceType string

const (
	ServiceLaundry ServiceType = "laundry"
	ServiceFood    ServiceType = "food"
)

// Service is an add-on attached to a booking.
type Service struct {
	ID         int64
	BookingID  ID
	Type       ServiceType
	ProviderID *int64
	Price      money.Money
}

type Booking struct {
	ID               ID
	ListingID        listings.ID
	UserID           user.ID
	StartDate        time.Time
	EndDate          time.Time
	Nights           int
	TotalPrice       money.Money
	Paid             bool
	PaymentReference string
	PaidAt           *time.Time
	Services         []Service
	CreatedAt        time.Time
	events.Recorder
}

type Repository interface {
	Create(ctx context.Context, b *Booking) error
	ByID(ctx context.Context, id ID) (*Booking, error)
	ByListing(ctx context.Context, listing listings.ID) ([]*Booking, error)
	ByUser(ctx context.Context, u user.ID) ([]*Booking, error)
	// MarkPaid flips paid only when it is still false and reports whether it did.
	MarkPaid(ctx context.Context, id ID, reference string, at time.Time) (bool, error)
	DeleteByListing(ctx context.Context, listing listings.ID) error
	DeleteByUser(ctx context.Context, u user.ID) error
}

// AddOnPrices are the flat prices configured per service type.
type AddOnPrices struct {
	Laundry money.Money
	Food    money.Money
}

// Selection captures add-on choices. A provider id alone counts as opting in.
type Selection struct {
	Laundry           bool
	LaundryProviderID *int64
	Food              bool
	FoodProviderID    *int64
}

func (s Selection) wantsLaundry() bool { return s.Laundry || s.LaundryProviderID != nil }
func (s Selection) wantsFood() bool    { return s.Food || s.FoodProviderID != nil }

type QuoteRequest struct {
	Listing     *listings.Listing
	RequesterID user.ID
	Start       *time.Time
	End         *time.Time
	Selection   Selection
	Prices      AddOnPrices
	Now         time.Time
}

type Quote struct {
	Start    time.Time
	End      time.Time
	Nights   int
	Base     money.Money
	Services []Service
	Total    money.Money
}

// Nights rounds the absolute distance between two instants to whole days, minimum one.
func Nights(start, end time.Time) int {
	d := end.Sub(start)
	if d < 0 {
		d = -d
	}
	n := int(math.Round(float64(d) / float64(day)))
	if n < 1 {
		n = 1
	}
	return n
}

// Calculate validates booking preconditions and prices the stay.
func Calculate(req QuoteRequest) (Quote, error) {
	l := req.Listing
	if l == nil {
		return Quote{}, ErrListingRequired
	}
	if l.OwnerID == req.RequesterID {
		return Quote{}, ErrOwnListing
	}
	now := req.Now.UTC()
	if err := l.Bookable(now); err != nil {
		return Quote{}, err
	}

	start, end := now, now.Add(day)
	if req.Start != nil && req.End != nil {
		start, end = req.Start.UTC(), req.End.UTC()
	}
	nights := Nights(start, end)
	base := l.Price.Multiply(int64(nights))

	q := Quote{Start: start, End: end, Nights: nights, Base: base, Total: base}
	if req.Selection.wantsLaundry() {
		q.Services = append(q.Services, Service{Type: ServiceLaundry, ProviderID: req.Selection.LaundryProviderID, Price: req.Prices.Laundry})
	}
	if req.Selection.wantsFood() {
		q.Services = append(q.Services, Service{Type: ServiceFood, ProviderID: req.Selection.FoodProviderID, Price: req.Prices.Food})
	}
	for _, svc := range q.Services {
		total, err := q.Total.Add(svc.Price)
		if err != nil {
			return Quote{}, err
		}
		q.Total = total
	}
	return q, nil
}

func New(listing listings.ID, renter user.ID, q Quote, now time.Time) *Booking {
	b := &Booking{
		ListingID:  listing,
		UserID:     renter,
		StartDate:  q.Start,
		EndDate:    q.End,
		Nights:     q.Nights,
		TotalPrice: q.Total,
		Services:   append([]Service(nil), q.Services...),
		CreatedAt:  now.UTC(),
	}
	return b
}

// RecordRequested must be called once the booking has an identity.
func (b *Booking) RecordRequested() {
	b.Record(BookingRequestedEvent{BookingID: b.ID, ListingID: b.ListingID, UserID: b.UserID, Total: b.TotalPrice, At: b.CreatedAt})
}

// RecordPaid mirrors a successful conditional paid write onto the aggregate.
func (b *Booking) RecordPaid(reference string, now time.Time) {
	at := now.UTC()
	b.Paid = true
	b.PaymentReference = reference
	b.PaidAt = &at
	b.Record(BookingPaidEvent{BookingID: b.ID, Reference: reference, At: at})
}

func (b *Booking) EnsureBooker(u user.ID) error {
	if b.UserID != u {
		return ErrNotBooker
	}
	return nil
}

type BookingRequestedEvent struct {
	BookingID ID          `json:"booking_id"`
	ListingID listings.ID `json:"listing_id"`
	UserID    user.ID     `json:"user_id"`
	Total     money.Money `json:"total"`
	At        time.Time   `json:"at"`
}

func (e BookingRequestedEvent) EventName() string     { return "booking.requested" }
func (e BookingRequestedEvent) AggregateID() string   { return strconv.FormatInt(int64(e.BookingID), 10) }
func (e BookingRequestedEvent) OccurredAt() time.Time { return e.At }

type BookingPaidEvent struct {
	BookingID ID        `json:"booking_id"`
	Reference string    `json:"reference"`
	At        time.Time `json:"at"`
}

func (e BookingPaidEvent) EventName() string     { return "booking.paid" }
func (e BookingPaidEvent) AggregateID() string   { return strconv.FormatInt(int64(e.BookingID), 10) }
func (e BookingPaidEvent) OccurredAt() time.Time { return e.At }

// Reference builds the provider reference for a booking payment.
func Reference(id ID, now time.Time) string {
	return fmt.Sprintf("booking-%d-%d", id, now.UnixMilli())
}

// BookingFromReference recovers the booking id from a booking reference.
func BookingFromReference(reference string) (ID, bool) {
	parts := strings.Split(strings.TrimSpace(reference), "-")
	if len(parts) != 3 || parts[0] != "booking" {
		return 0, false
	}
	id, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return ID(id), true
}
