package listings

import (
	"strconv"
	"time"

	"padicrib/internal/domain/user"
)

type ListingSubmittedEvent struct {
	ListingID   ID        `json:"listing_id"`
	OwnerID     user.ID   `json:"owner_id"`
	FeeRequired bool      `json:"fee_required"`
	At          time.Time `json:"at"`
}

func (e ListingSubmittedEvent) EventName() string     { return "listing.submitted" }
func (e ListingSubmittedEvent) AggregateID() string   { return strconv.FormatInt(int64(e.ListingID), 10) }
func (e ListingSubmittedEvent) OccurredAt() time.Time { return e.At }

// ListingStatusChangedEvent covers moderation and expiry transitions.
type ListingStatusChangedEvent struct {
	Name      string    `json:"-"`
	ListingID ID        `json:"listing_id"`
	OwnerID   user.ID   `json:"owner_id"`
	Status    Status    `json:"status"`
	Reason    string    `json:"reason,omitempty"`
	At        time.Time `json:"at"`
}

func (e ListingStatusChangedEvent) EventName() string     { return e.Name }
func (e ListingStatusChangedEvent) AggregateID() string   { return strconv.FormatInt(int64(e.ListingID), 10) }
func (e ListingStatusChangedEvent) OccurredAt() time.Time { return e.At }

type ListingPaymentAppliedEvent struct {
	ListingID ID        `json:"listing_id"`
	OwnerID   user.ID   `json:"owner_id"`
	Period    Period    `json:"period"`
	PaidUntil time.Time `json:"paid_until"`
	At        time.Time `json:"at"`
}

func (e ListingPaymentAppliedEvent) EventName() string     { return "listing.payment_applied" }
func (e ListingPaymentAppliedEvent) AggregateID() string   { return strconv.FormatInt(int64(e.ListingID), 10) }
func (e ListingPaymentAppliedEvent) OccurredAt() time.Time { return e.At }

type ListingDeletedEvent struct {
	ListingID ID        `json:"listing_id"`
	OwnerID   user.ID   `json:"owner_id"`
	At        time.Time `json:"at"`
}

func (e ListingDeletedEvent) EventName() string     { return "listing.deleted" }
func (e ListingDeletedEvent) AggregateID() string   { return strconv.FormatInt(int64(e.ListingID), 10) }
func (e ListingDeletedEvent) OccurredAt() time.Time { return e.At }

// StatusEvent describes an expiry applied in bulk by the sweep.
func (e Expired) StatusEvent(at time.Time) ListingStatusChangedEvent {
	return ListingStatusChangedEvent{
		Name:      "listing.expired",
		ListingID: e.ID,
		OwnerID:   e.OwnerID,
		Status:    StatusSuspended,
		Reason:    "subscription expired",
		At:        at.UTC(),
	}
}
