package listings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"padicrib/internal/app/dto"
	"padicrib/internal/app/handlers/support"
	"padicrib/internal/app/middleware"
	"padicrib/internal/app/policies"
	"padicrib/internal/app/uow"
	domainfees "padicrib/internal/domain/fees"
	domainlistings "padicrib/internal/domain/listings"
	"padicrib/internal/domain/shared/money"
	domainuser "padicrib/internal/domain/user"
	domainverification "padicrib/internal/domain/verification"
)

const createListingKey = "listings.create"

type CreateListingCommand struct {
	OwnerID     domainuser.ID `validate:"required"`
	Title       string        `json:"title" validate:"required,max=200"`
	Description string        `json:"description" validate:"max=5000"`
	State       string        `json:"state" validate:"required"`
	LGA         string        `json:"lga" validate:"required"`
	Address     string        `json:"address" validate:"required"`
	// Price is the nightly rate in major units, e.g. "15000.00".
	Price string `json:"price" validate:"required,numeric"`
	// Images are public paths already written by the file store.
	Images     []string
	SelfiePath string `json:"selfie" validate:"required"`
	IDCardPath string `json:"id_card" validate:"required"`
	IDNumber   string `json:"id_number" validate:"required"`
}

func (c CreateListingCommand) Key() string { return createListingKey }

func (c CreateListingCommand) AllowedRoles() []domainuser.Role {
	return []domainuser.Role{domainuser.RoleUser, domainuser.RoleOwner}
}

func (c CreateListingCommand) submission() domainverification.Submission {
	return domainverification.Submission{SelfiePath: c.SelfiePath, IDCardPath: c.IDCardPath, IDNumber: c.IDNumber}
}

type CreateListingHandler struct {
	Pricing  policies.Pricing
	Notifier policies.Notifier
	// VerificationAdmin joins every verification thread; the first admin is used when zero.
	VerificationAdmin domainuser.ID
	Logger            *slog.Logger
	Now               func() time.Time
}

func (h *CreateListingHandler) Handle(ctx context.Context, cmd CreateListingCommand) (*dto.CreatedListing, error) {
	sub := cmd.submission()
	if err := sub.Validate(); err != nil {
		return nil, err
	}
	price, err := money.ParseMajor(cmd.Price, h.Pricing.Currency())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domainlistings.ErrInvalidPrice, err)
	}
	unit, err := support.Unit(ctx)
	if err != nil {
		return nil, err
	}
	now := support.Now(h.Now)

	owner, err := unit.Users().ByID(ctx, cmd.OwnerID)
	if err != nil {
		return nil, err
	}
	existing, err := unit.Listings().CountByOwner(ctx, owner.ID)
	if err != nil {
		return nil, err
	}
	fee := h.Pricing.ListingFee(existing)

	listing, err := domainlistings.NewListing(domainlistings.CreateParams{
		OwnerID:     owner.ID,
		Title:       cmd.Title,
		Description: cmd.Description,
		State:       cmd.State,
		LGA:         cmd.LGA,
		Address:     cmd.Address,
		Price:       price,
		FeeAmount:   fee,
		Now:         now,
	})
	if err != nil {
		return nil, err
	}
	if err := unit.Listings().Create(ctx, listing); err != nil {
		return nil, err
	}
	listing.RecordSubmitted()

	for _, path := range cmd.Images {
		img := &domainlistings.Image{ListingID: listing.ID, Path: path, CreatedAt: now}
		if err := unit.Listings().AddImage(ctx, img); err != nil {
			return nil, err
		}
		listing.Images = append(listing.Images, *img)
	}

	result := &dto.CreatedListing{FeeRequired: !fee.IsZero()}
	if result.FeeRequired {
		stub := domainfees.NewStub(listing.ID, fee, now)
		if err := unit.Fees().Create(ctx, stub); err != nil {
			return nil, err
		}
		mapped := dto.MapFee(stub)
		result.Fee = &mapped
	}

	v, err := domainverification.New(listing.ID, owner.ID, sub, now)
	if err != nil {
		return nil, err
	}
	if err := unit.Verifications().Create(ctx, v); err != nil {
		return nil, err
	}

	if owner.PromoteToOwner(now) {
		if err := unit.Users().Save(ctx, owner); err != nil {
			return nil, err
		}
	}
	if err := support.RecordEvents(ctx, unit, listing); err != nil {
		return nil, err
	}

	reviewer, err := h.reviewer(ctx, unit)
	if err != nil {
		return nil, err
	}
	sender := owner.ID
	support.NotifyAfterCommit(unit, h.Notifier, policies.Notice{
		ListingID: listing.ID,
		OwnerID:   owner.ID,
		ActorID:   reviewer,
		SenderID:  &sender,
		Body:      fmt.Sprintf("Verification submitted for listing %q (#%d). ID number: %s.", listing.Title, listing.ID, v.IDNumber),
	})

	support.Logger(h.Logger).InfoContext(ctx, "listing created",
		"listing_id", listing.ID, "owner_id", owner.ID, "fee_required", result.FeeRequired)

	result.Listing = dto.MapListing(listing)
	return result, nil
}

func (h *CreateListingHandler) reviewer(ctx context.Context, unit uow.UnitOfWork) (*domainuser.ID, error) {
	if h.VerificationAdmin != 0 {
		id := h.VerificationAdmin
		return &id, nil
	}
	admin, err := unit.Users().FirstByRole(ctx, domainuser.RoleAdmin)
	if errors.Is(err, domainuser.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &admin.ID, nil
}

var _ middleware.RoleRestricted = CreateListingCommand{}
