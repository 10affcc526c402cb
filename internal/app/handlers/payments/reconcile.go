package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"padicrib/internal/app/dto"
	"padicrib/internal/app/handlers/support"
	"padicrib/internal/app/policies"
	"padicrib/internal/app/uow"
	domainbooking "padicrib/internal/domain/booking"
	domainfees "padicrib/internal/domain/fees"
	domainlistings "padicrib/internal/domain/listings"
	"padicrib/internal/domain/shared/money"
)

var (
	ErrStubDisabled     = errors.New("payments: manual fee stub is disabled")
	ErrReferenceMissing = errors.New("payments: reference is required")
)

// Reconciler applies confirmed provider transactions to listings and bookings.
// Each application runs in its own unit of work; the provider reference is the
// dedupe key, so a replayed reference is reported as a duplicate and changes
// nothing.
type Reconciler struct {
	UoW      uow.UoWFactory
	Pricing  policies.Pricing
	Notifier policies.Notifier
	Logger   *slog.Logger
	Now      func() time.Time
}

// ListingPayment is a confirmed subscription payment.
type ListingPayment struct {
	ListingID domainlistings.ID
	Period    domainlistings.Period
	Amount    money.Money
	Reference string
}

func (r *Reconciler) ApplyListing(ctx context.Context, p ListingPayment) (dto.PaymentOutcome, error) {
	if p.Reference == "" {
		return dto.PaymentOutcome{}, ErrReferenceMissing
	}
	logger := support.Logger(r.Logger)
	now := support.Now(r.Now)
	// a short charge buys nothing; nothing is recorded, so a corrected
	// payment under a new reference still applies
	if expected := r.Pricing.PeriodFee(p.Period); p.Amount.Amount < expected.Amount {
		logger.WarnContext(ctx, "listing paid below plan price",
			"reference", p.Reference, "listing_id", p.ListingID, "amount", p.Amount.Amount, "expected", expected.Amount)
		return dto.PaymentOutcome{
			OK:        false,
			Reference: p.Reference,
			ListingID: int64(p.ListingID),
			Message:   fmt.Sprintf("paid %s, the %s plan costs %s", p.Amount, p.Period, expected),
		}, nil
	}
	out := dto.PaymentOutcome{OK: true, Reference: p.Reference, ListingID: int64(p.ListingID)}

	err := support.Managed(ctx, r.UoW, func(ctx context.Context, unit uow.UnitOfWork) error {
		// the row lock serialises deliveries for one listing, so the
		// reference check below sees every committed payment
		listing, err := unit.Listings().ByIDForUpdate(ctx, p.ListingID)
		if err != nil {
			return err
		}
		if _, err := unit.Fees().ByReference(ctx, p.Reference); err == nil {
			out.Duplicate = true
			return nil
		} else if !errors.Is(err, domainfees.ErrNotFound) {
			return err
		}
		res := listing.ApplyPayment(p.Period, now)

		stub, err := unit.Fees().UnpaidStub(ctx, listing.ID)
		switch {
		case err == nil:
			if err := stub.Settle(p.Reference, p.Amount, res, now); err != nil {
				return err
			}
			if err := unit.Fees().Save(ctx, stub); err != nil {
				return fmt.Errorf("settle fee stub: %w", err)
			}
		case errors.Is(err, domainfees.ErrNotFound):
			row, err := domainfees.NewPayment(listing.ID, p.Amount, p.Reference, res, now)
			if err != nil {
				return err
			}
			if err := unit.Fees().Create(ctx, row); err != nil {
				return fmt.Errorf("record fee: %w", err)
			}
		default:
			return err
		}
		if err := unit.Listings().Save(ctx, listing); err != nil {
			return err
		}
		if err := support.RecordEvents(ctx, unit, listing); err != nil {
			return err
		}
		out.Applied = true
		out.PaidUntil = &res.EndsAt
		support.NotifyAfterCommit(unit, r.Notifier, policies.Notice{
			ListingID: listing.ID,
			OwnerID:   listing.OwnerID,
			Body: fmt.Sprintf("Payment received for listing #%d (%s plan). Your listing is paid until %s.",
				listing.ID, res.Period, res.EndsAt.Format("2006-01-02")),
		})
		return nil
	})
	if errors.Is(err, domainfees.ErrDuplicate) {
		// a concurrent delivery recorded the same reference first
		return dto.PaymentOutcome{OK: true, Reference: p.Reference, ListingID: int64(p.ListingID), Duplicate: true}, nil
	}
	if err != nil {
		return dto.PaymentOutcome{}, err
	}
	if out.Duplicate {
		out.Message = "payment already applied"
		logger.InfoContext(ctx, "listing payment replayed", "reference", p.Reference, "listing_id", p.ListingID)
		return out, nil
	}
	logger.InfoContext(ctx, "listing payment applied",
		"reference", p.Reference, "listing_id", p.ListingID, "period", p.Period, "paid_until", out.PaidUntil)
	return out, nil
}

// BookingPayment is a confirmed booking charge.
type BookingPayment struct {
	BookingID domainbooking.ID
	Amount    money.Money
	Reference string
}

func (r *Reconciler) ApplyBooking(ctx context.Context, p BookingPayment) (dto.PaymentOutcome, error) {
	if p.Reference == "" {
		return dto.PaymentOutcome{}, ErrReferenceMissing
	}
	now := support.Now(r.Now)
	out := dto.PaymentOutcome{OK: true, Reference: p.Reference, BookingID: int64(p.BookingID)}
	var total money.Money
	err := support.Managed(ctx, r.UoW, func(ctx context.Context, unit uow.UnitOfWork) error {
		b, err := unit.Bookings().ByID(ctx, p.BookingID)
		if err != nil {
			return err
		}
		out.ListingID = int64(b.ListingID)
		total = b.TotalPrice
		flipped, err := unit.Bookings().MarkPaid(ctx, b.ID, p.Reference, now)
		if err != nil {
			return err
		}
		if !flipped {
			out.Duplicate = true
			return nil
		}
		b.RecordPaid(p.Reference, now)
		out.Applied = true
		return support.RecordEvents(ctx, unit, b)
	})
	if err != nil {
		return dto.PaymentOutcome{}, err
	}
	logger := support.Logger(r.Logger)
	if out.Duplicate {
		out.Message = "booking already paid"
		logger.InfoContext(ctx, "booking payment replayed", "reference", p.Reference, "booking_id", p.BookingID)
		return out, nil
	}
	if p.Amount.Amount < total.Amount {
		logger.WarnContext(ctx, "booking paid below total",
			"reference", p.Reference, "booking_id", p.BookingID, "amount", p.Amount.Amount, "expected", total.Amount)
	}
	logger.InfoContext(ctx, "booking payment applied", "reference", p.Reference, "booking_id", p.BookingID)
	return out, nil
}

// FromMetadata maps the ids we attached at initialisation. Webhooks are
// resolved by this alone.
func FromMetadata(meta policies.PaymentMetadata) (listing domainlistings.ID, booking domainbooking.ID) {
	switch {
	case meta.ListingID > 0:
		return domainlistings.ID(meta.ListingID), 0
	case meta.BookingID > 0:
		return 0, domainbooking.ID(meta.BookingID)
	}
	return 0, 0
}

// Resolve maps a verified provider transaction onto a listing or booking
// payment. Metadata wins over the reference format.
func Resolve(tx policies.Transaction) (listing domainlistings.ID, booking domainbooking.ID) {
	if listing, booking = FromMetadata(tx.Metadata); listing != 0 || booking != 0 {
		return listing, booking
	}
	if id, ok := domainfees.ListingFromReference(tx.Reference); ok {
		return id, 0
	}
	if id, ok := domainbooking.BookingFromReference(tx.Reference); ok {
		return 0, id
	}
	return 0, 0
}
