package booking

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"padicrib/internal/app/dto"
	"padicrib/internal/app/handlers/support"
	"padicrib/internal/app/policies"
	"padicrib/internal/app/uow"
	domainbooking "padicrib/internal/domain/booking"
	domainlistings "padicrib/internal/domain/listings"
	domainproviders "padicrib/internal/domain/providers"
	domainuser "padicrib/internal/domain/user"
)

const initiateBookingKey = "booking.initiate"

var bookerRoles = []domainuser.Role{domainuser.RoleUser, domainuser.RoleOwner, domainuser.RoleStaff, domainuser.RoleAdmin}

// InitiateBookingCommand prices a stay and stores it unpaid. Missing dates
// mean one night from now.
type InitiateBookingCommand struct {
	UserID            domainuser.ID     `validate:"required"`
	ListingID         domainlistings.ID `validate:"required"`
	Start             *time.Time
	End               *time.Time
	Laundry           bool
	LaundryProviderID *int64
	Food              bool
	FoodProviderID    *int64
	// RequestKey is the client's Idempotency-Key header, if any.
	RequestKey string
}

func (c InitiateBookingCommand) Key() string                     { return initiateBookingKey }
func (c InitiateBookingCommand) AllowedRoles() []domainuser.Role { return bookerRoles }
func (c InitiateBookingCommand) ResultPrototype() any            { return &dto.Booking{} }

func (c InitiateBookingCommand) IdempotencyKey() string {
	if c.RequestKey == "" {
		return ""
	}
	return fmt.Sprintf("%d:%s", c.UserID, c.RequestKey)
}

type InitiateBookingHandler struct {
	Pricing policies.Pricing
	Logger  *slog.Logger
	Now     func() time.Time
}

func (h *InitiateBookingHandler) Handle(ctx context.Context, cmd InitiateBookingCommand) (dto.Booking, error) {
	unit, err := support.Unit(ctx)
	if err != nil {
		return dto.Booking{}, err
	}
	listing, err := unit.Listings().ByID(ctx, cmd.ListingID)
	if err != nil {
		return dto.Booking{}, err
	}
	if err := ensureProvider(ctx, unit, cmd.LaundryProviderID, domainbooking.ServiceLaundry); err != nil {
		return dto.Booking{}, err
	}
	if err := ensureProvider(ctx, unit, cmd.FoodProviderID, domainbooking.ServiceFood); err != nil {
		return dto.Booking{}, err
	}

	now := support.Now(h.Now)
	quote, err := domainbooking.Calculate(domainbooking.QuoteRequest{
		Listing:     listing,
		RequesterID: cmd.UserID,
		Start:       cmd.Start,
		End:         cmd.End,
		Selection: domainbooking.Selection{
			Laundry:           cmd.Laundry,
			LaundryProviderID: cmd.LaundryProviderID,
			Food:              cmd.Food,
			FoodProviderID:    cmd.FoodProviderID,
		},
		Prices: h.Pricing.AddOns,
		Now:    now,
	})
	if err != nil {
		return dto.Booking{}, err
	}

	b := domainbooking.New(listing.ID, cmd.UserID, quote, now)
	if err := unit.Bookings().Create(ctx, b); err != nil {
		return dto.Booking{}, fmt.Errorf("create booking: %w", err)
	}
	b.RecordRequested()
	if err := support.RecordEvents(ctx, unit, b); err != nil {
		return dto.Booking{}, err
	}
	support.Logger(h.Logger).InfoContext(ctx, "booking created",
		"booking_id", b.ID, "listing_id", listing.ID, "nights", b.Nights, "total", b.TotalPrice.Amount)
	return dto.MapBooking(b), nil
}

func ensureProvider(ctx context.Context, unit uow.UnitOfWork, id *int64, want domainbooking.ServiceType) error {
	if id == nil {
		return nil
	}
	p, err := unit.Providers().ByID(ctx, domainproviders.ID(*id))
	if err != nil {
		return err
	}
	if p.Type != want {
		return domainproviders.ErrTypeMismatch
	}
	return nil
}
