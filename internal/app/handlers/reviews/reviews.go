package reviews

import (
	"context"
	"log/slog"
	"time"

	"padicrib/internal/app/dto"
	"padicrib/internal/app/handlers/support"
	"padicrib/internal/app/uow"
	domainlistings "padicrib/internal/domain/listings"
	domainreviews "padicrib/internal/domain/reviews"
	domainuser "padicrib/internal/domain/user"
)

const (
	submitReviewKey = "reviews.submit"
	replyReviewKey  = "reviews.reply"
	listReviewsKey  = "reviews.list"
)

var reviewerRoles = []domainuser.Role{domainuser.RoleUser, domainuser.RoleOwner, domainuser.RoleStaff, domainuser.RoleAdmin}

// SubmitReviewCommand posts a top-level review. A zero rating means five stars.
type SubmitReviewCommand struct {
	UserID    domainuser.ID     `validate:"required"`
	ListingID domainlistings.ID `json:"listing_id" validate:"required"`
	Rating    int               `json:"rating" validate:"gte=0,lte=5"`
	Comment   string            `json:"comment" validate:"required,max=2000"`
}

func (c SubmitReviewCommand) Key() string                     { return submitReviewKey }
func (c SubmitReviewCommand) AllowedRoles() []domainuser.Role { return reviewerRoles }

// ReplyCommand answers a top-level review. Replies to replies are refused.
type ReplyCommand struct {
	UserID    domainuser.ID     `validate:"required"`
	ListingID domainlistings.ID `json:"listing_id" validate:"required"`
	ParentID  domainreviews.ID  `json:"parent_id" validate:"required"`
	Comment   string            `json:"comment" validate:"required,max=2000"`
}

func (c ReplyCommand) Key() string                     { return replyReviewKey }
func (c ReplyCommand) AllowedRoles() []domainuser.Role { return reviewerRoles }

type Handler struct {
	Logger *slog.Logger
	Now    func() time.Time
}

func (h *Handler) Submit(ctx context.Context, cmd SubmitReviewCommand) (dto.Review, error) {
	unit, err := support.Unit(ctx)
	if err != nil {
		return dto.Review{}, err
	}
	if _, err := unit.Listings().ByID(ctx, cmd.ListingID); err != nil {
		return dto.Review{}, err
	}
	review, err := domainreviews.New(domainreviews.CreateParams{
		ListingID: cmd.ListingID,
		UserID:    cmd.UserID,
		Rating:    cmd.Rating,
		Comment:   cmd.Comment,
		Now:       support.Now(h.Now),
	})
	if err != nil {
		return dto.Review{}, err
	}
	return h.store(ctx, unit, review)
}

func (h *Handler) Reply(ctx context.Context, cmd ReplyCommand) (dto.Review, error) {
	unit, err := support.Unit(ctx)
	if err != nil {
		return dto.Review{}, err
	}
	parent, err := unit.Reviews().ByID(ctx, cmd.ParentID)
	if err != nil {
		return dto.Review{}, err
	}
	if parent.ListingID != cmd.ListingID {
		return dto.Review{}, domainreviews.ErrParentMismatch
	}
	reply, err := domainreviews.NewReply(parent, cmd.UserID, cmd.Comment, support.Now(h.Now))
	if err != nil {
		return dto.Review{}, err
	}
	return h.store(ctx, unit, reply)
}

func (h *Handler) store(ctx context.Context, unit uow.UnitOfWork, r *domainreviews.Review) (dto.Review, error) {
	if err := unit.Reviews().Create(ctx, r); err != nil {
		return dto.Review{}, err
	}
	if author, err := unit.Users().ByID(ctx, r.UserID); err == nil {
		r.UserName = author.Name
	}
	support.Logger(h.Logger).InfoContext(ctx, "review posted", "review_id", r.ID, "listing_id", r.ListingID, "reply", r.ParentID != nil)
	return dto.MapReview(r), nil
}

// ListReviewsQuery returns the threads of a listing, oldest first.
type ListReviewsQuery struct {
	ListingID domainlistings.ID
}

func (q ListReviewsQuery) Key() string { return listReviewsKey }

type ListHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *ListHandler) Handle(ctx context.Context, q ListReviewsQuery) (dto.ReviewCollection, error) {
	unit, execCtx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.ReviewCollection{}, err
	}
	defer cleanup()
	all, err := unit.Reviews().ByListing(execCtx, q.ListingID)
	if err != nil {
		return dto.ReviewCollection{}, err
	}
	threads := dto.MapThreads(domainreviews.BuildThreads(all))
	return dto.ReviewCollection{Items: threads, Total: len(threads)}, nil
}
