package dto

import (
	"time"

	domainreviews "padicrib/internal/domain/reviews"
)

// Review represents a public review payload.
type Review struct {
	ID        int64     `json:"id"`
	ListingID int64     `json:"listing_id"`
	UserID    int64     `json:"user_id"`
	UserName  string    `json:"user_name,omitempty"`
	Rating    int       `json:"rating,omitempty"`
	Comment   string    `json:"comment"`
	ParentID  *int64    `json:"parent_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type ReviewThread struct {
	Review
	Replies []Review `json:"replies"`
}

type ReviewCollection struct {
	Items []ReviewThread `json:"items"`
	Total int            `json:"total"`
}

// MapReview builds a DTO from a domain review.
func MapReview(r *domainreviews.Review) Review {
	if r == nil {
		return Review{}
	}
	out := Review{
		ID:        int64(r.ID),
		ListingID: int64(r.ListingID),
		UserID:    int64(r.UserID),
		UserName:  r.UserName,
		Rating:    r.Rating,
		Comment:   r.Comment,
		CreatedAt: r.CreatedAt,
	}
	if r.ParentID != nil {
		parent := int64(*r.ParentID)
		out.ParentID = &parent
	}
	return out
}

func MapThreads(threads []domainreviews.Thread) []ReviewThread {
	out := make([]ReviewThread, 0, len(threads))
	for _, t := range threads {
		replies := make([]Review, 0, len(t.Replies))
		for _, r := range t.Replies {
			replies = append(replies, MapReview(r))
		}
		out = append(out, ReviewThread{Review: MapReview(t.Review), Replies: replies})
	}
	return out
}
