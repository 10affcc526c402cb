package reviews

import (
	"context"
	"errors"
	"strings"
	"time"

	"padicrib/internal/domain/listings"
	"padicrib/internal/domain/user"
)

var (
	ErrNotFound       = errors.New("reviews: not found")
	ErrInvalidRating  = errors.New("reviews: rating must be between 1 and 5")
	ErrEmptyComment   = errors.New("reviews: comment is required")
	ErrNestedReply    = errors.New("reviews: replies cannot be replied to")
	ErrParentMismatch = errors.New("reviews: parent review belongs to another listing")
)

// DefaultRating is applied when a review arrives without a rating.
const DefaultRating = 5

type ID int64

type Review struct {
	ID        ID
	ListingID listings.ID
	UserID    user.ID
	UserName  string
	Rating    int
	Comment   string
	ParentID  *ID
	CreatedAt time.Time
}

// Thread is a top-level review with its direct replies.
type Thread struct {
	Review  *Review
	Replies []*Review
}

type Repository interface {
	Create(ctx context.Context, r *Review) error
	ByID(ctx context.Context, id ID) (*Review, error)
	// ByListing returns every review of a listing ordered by creation time.
	ByListing(ctx context.Context, listing listings.ID) ([]*Review, error)
	DeleteByListing(ctx context.Context, listing listings.ID) error
	DeleteByUser(ctx context.Context, u user.ID) error
}

type CreateParams struct {
	ListingID listings.ID
	UserID    user.ID
	Rating    int
	Comment   string
	Now       time.Time
}

func New(params CreateParams) (*Review, error) {
	rating := params.Rating
	if rating == 0 {
		rating = DefaultRating
	}
	if rating < 1 || rating > 5 {
		return nil, ErrInvalidRating
	}
	comment := strings.TrimSpace(params.Comment)
	if comment == "" {
		return nil, ErrEmptyComment
	}
	return &Review{
		ListingID: params.ListingID,
		UserID:    params.UserID,
		Rating:    rating,
		Comment:   comment,
		CreatedAt: params.Now.UTC(),
	}, nil
}

// NewReply answers a top-level review. Replies to replies are rejected so
// threads stay one level deep.
func NewReply(parent *Review, author user.ID, comment string, now time.Time) (*Review, error) {
	if parent == nil {
		return nil, ErrNotFound
	}
	if parent.ParentID != nil {
		return nil, ErrNestedReply
	}
	comment = strings.TrimSpace(comment)
	if comment == "" {
		return nil, ErrEmptyComment
	}
	pid := parent.ID
	return &Review{
		ListingID: parent.ListingID,
		UserID:    author,
		Rating:    parent.Rating,
		Comment:   comment,
		ParentID:  &pid,
		CreatedAt: now.UTC(),
	}, nil
}

// BuildThreads groups a flat, time-ordered list into top-level threads.
func BuildThreads(all []*Review) []Thread {
	threads := make([]Thread, 0)
	index := make(map[ID]int)
	for _, r := range all {
		if r.ParentID == nil {
			index[r.ID] = len(threads)
			threads = append(threads, Thread{Review: r})
		}
	}
	for _, r := range all {
		if r.ParentID == nil {
			continue
		}
		if i, ok := index[*r.ParentID]; ok {
			threads[i].Replies = append(threads[i].Replies, r)
		}
	}
	return threads
}
