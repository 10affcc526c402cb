package booking

import (
	"context"
	"time"

	"padicrib/internal/app/dto"
	"padicrib/internal/app/handlers/support"
	"padicrib/internal/app/policies"
	"padicrib/internal/app/uow"
	domainbooking "padicrib/internal/domain/booking"
	domainlistings "padicrib/internal/domain/listings"
	domainuser "padicrib/internal/domain/user"
)

const (
	checkoutKey   = "booking.checkout"
	myBookingsKey = "booking.mine"
)

// CheckoutQuery gathers what a traveller needs to configure a booking.
type CheckoutQuery struct {
	ListingID domainlistings.ID
}

func (q CheckoutQuery) Key() string                     { return checkoutKey }
func (q CheckoutQuery) AllowedRoles() []domainuser.Role { return bookerRoles }

type CheckoutHandler struct {
	UoWFactory uow.UoWFactory
	Pricing    policies.Pricing
	Now        func() time.Time
}

func (h *CheckoutHandler) Handle(ctx context.Context, q CheckoutQuery) (dto.Checkout, error) {
	unit, execCtx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.Checkout{}, err
	}
	defer cleanup()

	listing, err := unit.Listings().ByID(execCtx, q.ListingID)
	if err != nil {
		return dto.Checkout{}, err
	}
	if err := listing.Bookable(support.Now(h.Now)); err != nil {
		return dto.Checkout{}, err
	}
	laundry, err := unit.Providers().List(execCtx, domainbooking.ServiceLaundry)
	if err != nil {
		return dto.Checkout{}, err
	}
	food, err := unit.Providers().List(execCtx, domainbooking.ServiceFood)
	if err != nil {
		return dto.Checkout{}, err
	}
	return dto.Checkout{
		Listing:      dto.MapListing(listing),
		Laundry:      dto.MapProviders(laundry),
		Food:         dto.MapProviders(food),
		LaundryPrice: dto.MapMoney(h.Pricing.AddOns.Laundry),
		FoodPrice:    dto.MapMoney(h.Pricing.AddOns.Food),
	}, nil
}

type MyBookingsQuery struct {
	UserID domainuser.ID
}

func (q MyBookingsQuery) Key() string                     { return myBookingsKey }
func (q MyBookingsQuery) AllowedRoles() []domainuser.Role { return bookerRoles }

type MyBookingsHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *MyBookingsHandler) Handle(ctx context.Context, q MyBookingsQuery) ([]dto.Booking, error) {
	unit, execCtx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	defer cleanup()
	found, err := unit.Bookings().ByUser(execCtx, q.UserID)
	if err != nil {
		return nil, err
	}
	return dto.MapBookings(found), nil
}
