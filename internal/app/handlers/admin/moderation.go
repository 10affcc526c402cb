package admin

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
	domainlistings "padicrib/internal/domain/listings"
	domainuser "padicrib/internal/domain/user"
	domainverification "padicrib/internal/domain/verification"
)

const (
	approveListingKey    = "admin.listings.approve"
	rejectListingKey     = "admin.listings.reject"
	suspendListingKey    = "admin.listings.suspend"
	reactivateListingKey = "admin.listings.reactivate"
)

var adminOnly = []domainuser.Role{domainuser.RoleAdmin}

type ApproveListingCommand struct {
	AdminID   domainuser.ID     `validate:"required"`
	ListingID domainlistings.ID `validate:"required"`
}

func (c ApproveListingCommand) Key() string                     { return approveListingKey }
func (c ApproveListingCommand) AllowedRoles() []domainuser.Role { return adminOnly }

type RejectListingCommand struct {
	AdminID   domainuser.ID     `validate:"required"`
	ListingID domainlistings.ID `validate:"required"`
	Reason    string            `json:"reason" validate:"max=1000"`
}

func (c RejectListingCommand) Key() string                     { return rejectListingKey }
func (c RejectListingCommand) AllowedRoles() []domainuser.Role { return adminOnly }

type SuspendListingCommand struct {
	AdminID   domainuser.ID     `validate:"required"`
	ListingID domainlistings.ID `validate:"required"`
	Reason    string            `json:"reason" validate:"max=1000"`
}

func (c SuspendListingCommand) Key() string                     { return suspendListingKey }
func (c SuspendListingCommand) AllowedRoles() []domainuser.Role { return adminOnly }

type ReactivateListingCommand struct {
	AdminID   domainuser.ID     `validate:"required"`
	ListingID domainlistings.ID `validate:"required"`
}

func (c ReactivateListingCommand) Key() string                     { return reactivateListingKey }
func (c ReactivateListingCommand) AllowedRoles() []domainuser.Role { return adminOnly }

// ModerationHandler serves every status-changing admin action on a listing.
type ModerationHandler struct {
	Notifier policies.Notifier
	Logger   *slog.Logger
	Now      func() time.Time
}

func (h *ModerationHandler) Approve(ctx context.Context, cmd ApproveListingCommand) (dto.Listing, error) {
	return h.moderate(ctx, cmd.AdminID, cmd.ListingID, func(unit uow.UnitOfWork, l *domainlistings.Listing, now time.Time) (string, error) {
		if err := l.Approve(now); err != nil {
			return "", err
		}
		if err := h.reviewVerification(ctx, unit, l.ID, func(v *domainverification.Verification) { v.Approve(now) }); err != nil {
			return "", err
		}
		return fmt.Sprintf("Your listing %q has been approved and is now live.", l.Title), nil
	})
}

func (h *ModerationHandler) Reject(ctx context.Context, cmd RejectListingCommand) (dto.Listing, error) {
	return h.moderate(ctx, cmd.AdminID, cmd.ListingID, func(unit uow.UnitOfWork, l *domainlistings.Listing, now time.Time) (string, error) {
		reason := l.Reject(cmd.Reason, now)
		if err := h.reviewVerification(ctx, unit, l.ID, func(v *domainverification.Verification) { v.Reject(reason, now) }); err != nil {
			return "", err
		}
		return fmt.Sprintf("Your listing %q was rejected. Reason: %s", l.Title, reason), nil
	})
}

func (h *ModerationHandler) Suspend(ctx context.Context, cmd SuspendListingCommand) (dto.Listing, error) {
	return h.moderate(ctx, cmd.AdminID, cmd.ListingID, func(_ uow.UnitOfWork, l *domainlistings.Listing, now time.Time) (string, error) {
		if err := l.Suspend(cmd.Reason, now); err != nil {
			return "", err
		}
		body := fmt.Sprintf("Your listing %q has been suspended by an administrator.", l.Title)
		if cmd.Reason != "" {
			body += " Reason: " + cmd.Reason
		}
		return body, nil
	})
}

func (h *ModerationHandler) Reactivate(ctx context.Context, cmd ReactivateListingCommand) (dto.Listing, error) {
	return h.moderate(ctx, cmd.AdminID, cmd.ListingID, func(_ uow.UnitOfWork, l *domainlistings.Listing, now time.Time) (string, error) {
		if err := l.Reactivate(now); err != nil {
			return "", err
		}
		return fmt.Sprintf("Your listing %q has been reactivated.", l.Title), nil
	})
}

type transition func(unit uow.UnitOfWork, l *domainlistings.Listing, now time.Time) (string, error)

func (h *ModerationHandler) moderate(ctx context.Context, adminID domainuser.ID, id domainlistings.ID, apply transition) (dto.Listing, error) {
	unit, err := support.Unit(ctx)
	if err != nil {
		return dto.Listing{}, err
	}
	listing, err := unit.Listings().ByIDForUpdate(ctx, id)
	if err != nil {
		return dto.Listing{}, err
	}
	now := support.Now(h.Now)
	body, err := apply(unit, listing, now)
	if err != nil {
		return dto.Listing{}, err
	}
	if err := unit.Listings().Save(ctx, listing); err != nil {
		return dto.Listing{}, err
	}
	if err := support.RecordEvents(ctx, unit, listing); err != nil {
		return dto.Listing{}, err
	}
	actor := adminID
	support.NotifyAfterCommit(unit, h.Notifier, policies.Notice{
		ListingID: listing.ID,
		OwnerID:   listing.OwnerID,
		ActorID:   &actor,
		SenderID:  &actor,
		Body:      body,
	})
	support.Logger(h.Logger).InfoContext(ctx, "listing moderated",
		"listing_id", listing.ID, "status", listing.Status, "admin_id", adminID)
	return dto.MapListing(listing), nil
}

// reviewVerification keeps the verification record in step with the listing.
func (h *ModerationHandler) reviewVerification(ctx context.Context, unit uow.UnitOfWork, id domainlistings.ID, apply func(*domainverification.Verification)) error {
	v, err := unit.Verifications().ByListing(ctx, id)
	if errors.Is(err, domainverification.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	apply(v)
	return unit.Verifications().Save(ctx, v)
}
