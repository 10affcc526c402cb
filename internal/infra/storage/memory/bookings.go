package memory

import (
	"context"
	"sort"
	"time"

	domainbooking "padicrib/internal/domain/booking"
	domainlistings "padicrib/internal/domain/listings"
	domainuser "padicrib/internal/domain/user"
)

type bookingRepo struct{ u *Unit }

func (r bookingRepo) load(b domainbooking.Booking) *domainbooking.Booking {
	out := b
	out.Services = make([]domainbooking.Service, 0)
	for _, s := range r.u.tx.services {
		if s.BookingID == b.ID {
			out.Services = append(out.Services, s)
		}
	}
	sort.Slice(out.Services, func(i, j int) bool { return out.Services[i].ID < out.Services[j].ID })
	return &out
}

func (r bookingRepo) Create(ctx context.Context, b *domainbooking.Booking) error {
	if err := r.u.check("bookings.create"); err != nil {
		return err
	}
	if _, ok := r.u.tx.listings[b.ListingID]; !ok {
		return domainlistings.ErrNotFound
	}
	b.ID = domainbooking.ID(r.u.tx.nextID())
	for i := range b.Services {
		b.Services[i].ID = r.u.tx.nextID()
		b.Services[i].BookingID = b.ID
		r.u.tx.services[b.Services[i].ID] = b.Services[i]
	}
	row := *b
	row.Discard()
	row.Services = nil
	r.u.tx.bookings[b.ID] = row
	return nil
}

func (r bookingRepo) ByID(ctx context.Context, id domainbooking.ID) (*domainbooking.Booking, error) {
	if err := r.u.check("bookings.by_id"); err != nil {
		return nil, err
	}
	b, ok := r.u.tx.bookings[id]
	if !ok {
		return nil, domainbooking.ErrNotFound
	}
	return r.load(b), nil
}

func (r bookingRepo) filter(keep func(domainbooking.Booking) bool) []*domainbooking.Booking {
	out := make([]*domainbooking.Booking, 0)
	for _, b := range r.u.tx.bookings {
		if keep(b) {
			out = append(out, r.load(b))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (r bookingRepo) ByListing(ctx context.Context, listing domainlistings.ID) ([]*domainbooking.Booking, error) {
	if err := r.u.check("bookings.by_listing"); err != nil {
		return nil, err
	}
	return r.filter(func(b domainbooking.Booking) bool { return b.ListingID == listing }), nil
}

func (r bookingRepo) ByUser(ctx context.Context, u domainuser.ID) ([]*domainbooking.Booking, error) {
	if err := r.u.check("bookings.by_user"); err != nil {
		return nil, err
	}
	return r.filter(func(b domainbooking.Booking) bool { return b.UserID == u }), nil
}

func (r bookingRepo) MarkPaid(ctx context.Context, id domainbooking.ID, reference string, at time.Time) (bool, error) {
	if err := r.u.check("bookings.mark_paid"); err != nil {
		return false, err
	}
	b, ok := r.u.tx.bookings[id]
	if !ok {
		return false, domainbooking.ErrNotFound
	}
	if b.Paid {
		return false, nil
	}
	paidAt := at.UTC()
	b.Paid = true
	b.PaymentReference = reference
	b.PaidAt = &paidAt
	r.u.tx.bookings[id] = b
	return true, nil
}

func (r bookingRepo) deleteWhere(match func(domainbooking.Booking) bool) {
	for id, b := range r.u.tx.bookings {
		if !match(b) {
			continue
		}
		delete(r.u.tx.bookings, id)
		for sid, s := range r.u.tx.services {
			if s.BookingID == id {
				delete(r.u.tx.services, sid)
			}
		}
	}
}

func (r bookingRepo) DeleteByListing(ctx context.Context, listing domainlistings.ID) error {
	if err := r.u.check("bookings.delete_by_listing"); err != nil {
		return err
	}
	r.deleteWhere(func(b domainbooking.Booking) bool { return b.ListingID == listing })
	return nil
}

func (r bookingRepo) DeleteByUser(ctx context.Context, u domainuser.ID) error {
	if err := r.u.check("bookings.delete_by_user"); err != nil {
		return err
	}
	r.deleteWhere(func(b domainbooking.Booking) bool { return b.UserID == u })
	return nil
}
