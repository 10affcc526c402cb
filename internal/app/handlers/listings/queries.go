package listings

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"padicrib/internal/app/dto"
	"padicrib/internal/app/handlers/support"
	"padicrib/internal/app/policies"
	"padicrib/internal/app/services/auth"
	"padicrib/internal/app/uow"
	domainlistings "padicrib/internal/domain/listings"
	domainreviews "padicrib/internal/domain/reviews"
	domainuser "padicrib/internal/domain/user"
	domainverification "padicrib/internal/domain/verification"
)

const (
	searchListingsKey = "listings.search"
	getListingKey     = "listings.get"
	ownerDashboardKey = "listings.owner.dashboard"
	feePageKey        = "listings.fees.page"

	defaultPageSize = 24
	maxPageSize     = 100
)

// SearchListingsQuery filters public listings by state, LGA and free text.
type SearchListingsQuery struct {
	State  string
	LGA    string
	Text   string
	Limit  int
	Offset int
}

func (q SearchListingsQuery) Key() string { return searchListingsKey }

type SearchListingsHandler struct {
	UoWFactory uow.UoWFactory
	Logger     *slog.Logger
}

func (h *SearchListingsHandler) Handle(ctx context.Context, q SearchListingsQuery) (dto.ListingCollection, error) {
	unit, execCtx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.ListingCollection{}, err
	}
	defer cleanup()

	limit := q.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	offset := max(q.Offset, 0)
	found, err := unit.Listings().SearchPublic(execCtx, domainlistings.SearchParams{
		State:  strings.TrimSpace(q.State),
		LGA:    strings.TrimSpace(q.LGA),
		Query:  strings.TrimSpace(q.Text),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return dto.ListingCollection{}, err
	}
	support.Logger(h.Logger).DebugContext(ctx, "listings searched", "state", q.State, "lga", q.LGA, "count", len(found))
	return dto.ListingCollection{Items: dto.MapListings(found), Total: len(found)}, nil
}

// GetListingQuery loads a listing page. Non-public listings are only shown to
// their owner and to staff.
type GetListingQuery struct {
	ListingID domainlistings.ID
	Viewer    auth.Principal
}

func (q GetListingQuery) Key() string { return getListingKey }

type GetListingHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *GetListingHandler) Handle(ctx context.Context, q GetListingQuery) (dto.ListingDetail, error) {
	unit, execCtx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.ListingDetail{}, err
	}
	defer cleanup()

	listing, err := unit.Listings().ByID(execCtx, q.ListingID)
	if err != nil {
		return dto.ListingDetail{}, err
	}
	if !listing.Public() && support.EnsureManager(listing, q.Viewer) != nil {
		return dto.ListingDetail{}, domainlistings.ErrNotFound
	}
	all, err := unit.Reviews().ByListing(execCtx, listing.ID)
	if err != nil {
		return dto.ListingDetail{}, err
	}
	return dto.ListingDetail{
		Listing:       dto.MapListing(listing),
		Reviews:       dto.MapThreads(domainreviews.BuildThreads(all)),
		AverageRating: averageRating(all),
	}, nil
}

func averageRating(all []*domainreviews.Review) float64 {
	var total, n int
	for _, r := range all {
		if r.ParentID != nil {
			continue
		}
		total += r.Rating
		n++
	}
	if n == 0 {
		return 0
	}
	return float64(total) / float64(n)
}

type OwnerDashboardQuery struct {
	OwnerID domainuser.ID
}

func (q OwnerDashboardQuery) Key() string { return ownerDashboardKey }

func (q OwnerDashboardQuery) AllowedRoles() []domainuser.Role {
	return []domainuser.Role{domainuser.RoleOwner, domainuser.RoleUser}
}

type OwnerDashboardHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *OwnerDashboardHandler) Handle(ctx context.Context, q OwnerDashboardQuery) (dto.OwnerDashboard, error) {
	unit, execCtx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.OwnerDashboard{}, err
	}
	defer cleanup()

	owned, err := unit.Listings().ByOwner(execCtx, q.OwnerID)
	if err != nil {
		return dto.OwnerDashboard{}, err
	}
	out := dto.OwnerDashboard{Listings: make([]dto.OwnerListing, 0, len(owned))}
	for _, l := range owned {
		fees, err := unit.Fees().ByListing(execCtx, l.ID)
		if err != nil {
			return dto.OwnerDashboard{}, err
		}
		bookings, err := unit.Bookings().ByListing(execCtx, l.ID)
		if err != nil {
			return dto.OwnerDashboard{}, err
		}
		entry := dto.OwnerListing{Listing: dto.MapListing(l), Fees: dto.MapFees(fees), Bookings: dto.MapBookings(bookings)}
		v, err := unit.Verifications().ByListing(execCtx, l.ID)
		switch {
		case err == nil:
			mapped := dto.MapVerification(v)
			entry.Verification = &mapped
		case !errors.Is(err, domainverification.ErrNotFound):
			return dto.OwnerDashboard{}, err
		}
		out.Listings = append(out.Listings, entry)
	}
	return out, nil
}

// FeePageQuery shows the ledger and plan prices for one listing.
type FeePageQuery struct {
	ListingID domainlistings.ID
	Viewer    auth.Principal
}

func (q FeePageQuery) Key() string { return feePageKey }

func (q FeePageQuery) AllowedRoles() []domainuser.Role { return managerRoles }

type FeePageHandler struct {
	UoWFactory uow.UoWFactory
	Pricing    policies.Pricing
}

func (h *FeePageHandler) Handle(ctx context.Context, q FeePageQuery) (dto.FeePage, error) {
	unit, execCtx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.FeePage{}, err
	}
	defer cleanup()

	listing, err := unit.Listings().ByID(execCtx, q.ListingID)
	if err != nil {
		return dto.FeePage{}, err
	}
	if err := support.EnsureManager(listing, q.Viewer); err != nil {
		return dto.FeePage{}, err
	}
	fees, err := unit.Fees().ByListing(execCtx, listing.ID)
	if err != nil {
		return dto.FeePage{}, err
	}
	return dto.FeePage{
		Listing: dto.MapListing(listing),
		Fees:    dto.MapFees(fees),
		Monthly: dto.MapMoney(h.Pricing.PeriodFee(domainlistings.PeriodMonthly)),
		Yearly:  dto.MapMoney(h.Pricing.PeriodFee(domainlistings.PeriodYearly)),
	}, nil
}
