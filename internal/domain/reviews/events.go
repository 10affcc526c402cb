package reviews

import (
	"strconv"
	"time"

	"padicrib/internal/domain/listings"
)

type ReviewSubmitted struct {
	ReviewID  ID          `json:"review_id"`
	ListingID listings.ID `json:"listing_id"`
	ParentID  *ID         `json:"parent_id,omitempty"`
	Rating    int         `json:"rating"`
	At        time.Time   `json:"at"`
}

func (e ReviewSubmitted) EventName() string {
	if e.ParentID != nil {
		return "review.replied"
	}
	return "review.submitted"
}
func (e ReviewSubmitted) AggregateID() string   { return strconv.FormatInt(int64(e.ReviewID), 10) }
func (e ReviewSubmitted) OccurredAt() time.Time { return e.At }

// SubmittedEvent describes a freshly stored review.
func SubmittedEvent(r *Review) ReviewSubmitted {
	return ReviewSubmitted{ReviewID: r.ID, ListingID: r.ListingID, ParentID: r.ParentID, Rating: r.Rating, At: r.CreatedAt}
}
