package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"padicrib/internal/app/handlers/support"
	"padicrib/internal/app/policies"
	domainlistings "padicrib/internal/domain/listings"
	domainmessaging "padicrib/internal/domain/messaging"
	domainuser "padicrib/internal/domain/user"
	domainverification "padicrib/internal/domain/verification"
)

const deleteListingKey = "admin.listings.delete"

type DeleteListingCommand struct {
	AdminID   domainuser.ID     `validate:"required"`
	ListingID domainlistings.ID `validate:"required"`
}

func (c DeleteListingCommand) Key() string                     { return deleteListingKey }
func (c DeleteListingCommand) AllowedRoles() []domainuser.Role { return adminOnly }

type DeletedListing struct {
	ListingID int64 `json:"listing_id"`
	Images    int   `json:"images"`
}

// DeleteListingHandler hard-deletes a listing with everything hanging off it.
// Rows go in one unit of work; files and the owner notice follow the commit.
type DeleteListingHandler struct {
	Images    policies.FileRemover
	Documents policies.FileRemover
	Notifier  policies.Notifier
	Logger    *slog.Logger
	Now       func() time.Time
}

func (h *DeleteListingHandler) Handle(ctx context.Context, cmd DeleteListingCommand) (DeletedListing, error) {
	unit, err := support.Unit(ctx)
	if err != nil {
		return DeletedListing{}, err
	}
	repo := unit.Listings()
	listing, err := repo.ByIDForUpdate(ctx, cmd.ListingID)
	if err != nil {
		return DeletedListing{}, err
	}
	var documents []string
	v, err := unit.Verifications().ByListing(ctx, listing.ID)
	switch {
	case err == nil:
		documents = v.Files()
	case !errors.Is(err, domainverification.ErrNotFound):
		return DeletedListing{}, err
	}
	var thread *domainmessaging.ConversationID
	conv, err := unit.Conversations().ForListing(ctx, listing.ID)
	switch {
	case err == nil:
		thread = &conv.ID
	case !errors.Is(err, domainmessaging.ErrNotFound):
		return DeletedListing{}, err
	}

	steps := []struct {
		what string
		run  func(context.Context, domainlistings.ID) error
	}{
		{"images", repo.DeleteImages},
		{"fees", unit.Fees().DeleteByListing},
		{"verification", unit.Verifications().DeleteByListing},
		{"bookings", unit.Bookings().DeleteByListing},
		{"reviews", unit.Reviews().DeleteByListing},
	}
	for _, step := range steps {
		if err := step.run(ctx, listing.ID); err != nil {
			return DeletedListing{}, fmt.Errorf("delete listing %d %s: %w", listing.ID, step.what, err)
		}
	}
	listing.RecordDeleted(support.Now(h.Now))
	if err := support.RecordEvents(ctx, unit, listing); err != nil {
		return DeletedListing{}, err
	}
	if err := repo.Delete(ctx, listing.ID); err != nil {
		return DeletedListing{}, fmt.Errorf("delete listing %d: %w", listing.ID, err)
	}

	imagePaths := make([]string, 0, len(listing.Images))
	for _, img := range listing.Images {
		imagePaths = append(imagePaths, img.Path)
	}
	support.RemoveAfterCommit(unit, h.Images, h.Logger, imagePaths...)
	support.RemoveAfterCommit(unit, h.Documents, h.Logger, documents...)

	actor := cmd.AdminID
	support.NotifyAfterCommit(unit, h.Notifier, policies.Notice{
		ListingID:      listing.ID,
		OwnerID:        listing.OwnerID,
		ActorID:        &actor,
		SenderID:       &actor,
		Body:           fmt.Sprintf("Your listing %q (#%d) has been removed by an administrator.", listing.Title, listing.ID),
		ConversationID: thread,
		Detached:       true,
	})
	support.Logger(h.Logger).InfoContext(ctx, "listing deleted", "listing_id", listing.ID, "admin_id", cmd.AdminID)
	return DeletedListing{ListingID: int64(listing.ID), Images: len(imagePaths)}, nil
}
