package listings

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"padicrib/internal/app/dto"
	"padicrib/internal/app/handlers/support"
	"padicrib/internal/app/policies"
	"padicrib/internal/app/services/auth"
	domainlistings "padicrib/internal/domain/listings"
	domainuser "padicrib/internal/domain/user"
)

const (
	addImagesKey   = "listings.images.add"
	deleteImageKey = "listings.images.delete"
)

var ErrNoImages = errors.New("listings: no images uploaded")

type AddImagesCommand struct {
	Actor     auth.Principal
	ListingID domainlistings.ID `validate:"required"`
	Paths     []string
}

func (c AddImagesCommand) Key() string { return addImagesKey }

func (c AddImagesCommand) AllowedRoles() []domainuser.Role { return managerRoles }

type AddImagesHandler struct {
	Logger *slog.Logger
	Now    func() time.Time
}

func (h *AddImagesHandler) Handle(ctx context.Context, cmd AddImagesCommand) ([]dto.Image, error) {
	if len(cmd.Paths) == 0 {
		return nil, ErrNoImages
	}
	unit, err := support.Unit(ctx)
	if err != nil {
		return nil, err
	}
	listing, err := unit.Listings().ByID(ctx, cmd.ListingID)
	if err != nil {
		return nil, err
	}
	if err := support.EnsureManager(listing, cmd.Actor); err != nil {
		return nil, err
	}
	now := support.Now(h.Now)
	out := make([]dto.Image, 0, len(cmd.Paths))
	for _, path := range cmd.Paths {
		img := &domainlistings.Image{ListingID: listing.ID, Path: path, CreatedAt: now}
		if err := unit.Listings().AddImage(ctx, img); err != nil {
			return nil, err
		}
		out = append(out, dto.Image{ID: int64(img.ID), Path: img.Path, CreatedAt: img.CreatedAt})
	}
	support.Logger(h.Logger).InfoContext(ctx, "listing images added", "listing_id", listing.ID, "count", len(out))
	return out, nil
}

type DeleteImageCommand struct {
	Actor     auth.Principal
	ListingID domainlistings.ID      `validate:"required"`
	ImageID   domainlistings.ImageID `validate:"required"`
}

func (c DeleteImageCommand) Key() string { return deleteImageKey }

func (c DeleteImageCommand) AllowedRoles() []domainuser.Role { return managerRoles }

type DeleteImageHandler struct {
	Files  policies.FileRemover
	Logger *slog.Logger
}

func (h *DeleteImageHandler) Handle(ctx context.Context, cmd DeleteImageCommand) (struct{}, error) {
	unit, err := support.Unit(ctx)
	if err != nil {
		return struct{}{}, err
	}
	listing, err := unit.Listings().ByID(ctx, cmd.ListingID)
	if err != nil {
		return struct{}{}, err
	}
	if err := support.EnsureManager(listing, cmd.Actor); err != nil {
		return struct{}{}, err
	}
	img, err := unit.Listings().ImageByID(ctx, cmd.ImageID)
	if err != nil {
		return struct{}{}, err
	}
	if img.ListingID != listing.ID {
		return struct{}{}, domainlistings.ErrImageNotFound
	}
	if err := unit.Listings().DeleteImage(ctx, img.ID); err != nil {
		return struct{}{}, err
	}
	support.RemoveAfterCommit(unit, h.Files, h.Logger, img.Path)
	return struct{}{}, nil
}

// managerRoles may reach listing management; ownership is checked per listing.
var managerRoles = []domainuser.Role{domainuser.RoleUser, domainuser.RoleOwner, domainuser.RoleStaff, domainuser.RoleAdmin}
