package listings

import (
	"context"
	"errors"
	"strings"
	"time"

	"padicrib/internal/domain/shared/events"
	"padicrib/internal/domain/shared/money"
	"padicrib/internal/domain/user"
)

var (
	ErrNotFound          = errors.New("listings: not found")
	ErrTitleRequired     = errors.New("listings: title is required")
	ErrLocationRequired  = errors.New("listings: state, lga and address are required")
	ErrInvalidPrice      = errors.New("listings: nightly price must be positive")
	ErrOwnerRequired     = errors.New("listings: owner is required")
	ErrFeeUnpaid         = errors.New("listings: listing fee must be paid before approval")
	ErrInvalidTransition = errors.New("listings: invalid status transition")
	ErrNotOwner          = errors.New("listings: not the listing owner")
	ErrImageNotFound     = errors.New("listings: image not found")
	ErrNotBookable       = errors.New("listings: listing is not available for booking")
	ErrExpired           = errors.New("listings: listing subscription has expired")
)

// DefaultRejectReason is used when an admin rejects without a reason.
const DefaultRejectReason = "No reason provided"

type ID int64
type ImageID int64

type Status string

const (
	StatusPending         Status = "pending"
	StatusApproved        Status = "approved"
	StatusRejected        Status = "rejected"
	StatusSuspended       Status = "suspended"
	StatusPaymentRequired Status = "payment_required"
	StatusDeleted         Status = "deleted"
)

// SuspensionCause distinguishes admin moderation from lapsed subscriptions.
type SuspensionCause string

const (
	CauseNone    SuspensionCause = ""
	CauseAdmin   SuspensionCause = "admin"
	CauseExpired SuspensionCause = "expired"
)

type Image struct {
	ID        ImageID
	ListingID ID
	Path      string
	CreatedAt time.Time
}

type Listing struct {
	ID              ID
	OwnerID         user.ID
	Title           string
	Description     string
	State           string
	LGA             string
	Address         string
	Price           money.Money
	Status          Status
	IsActive        bool
	FeePaid         bool
	FeeAmount       money.Money
	PaidUntil       *time.Time
	PaymentPlan     Period
	SuspensionCause SuspensionCause
	SuspendedUntil  *time.Time
	RejectionReason string
	Images          []Image
	CreatedAt       time.Time
	UpdatedAt       time.Time
	events.Recorder
}

// Expired summarises a listing switched off by the expiry sweep.
type Expired struct {
	ID        ID
	OwnerID   user.ID
	Title     string
	PaidUntil time.Time
}

type ReminderKind string

// PreExpiryReminder names the reminder for one paid period, so a renewed
// listing is reminded again before its next expiry.
func PreExpiryReminder(paidUntil time.Time) ReminderKind {
	return ReminderKind("pre_expiry_3d:" + paidUntil.UTC().Format("2006-01-02"))
}

type SearchParams struct {
	State  string
	LGA    string
	Query  string
	Limit  int
	Offset int
}

type Repository interface {
	ByID(ctx context.Context, id ID) (*Listing, error)
	// ByIDForUpdate loads a listing and holds its row until the unit ends.
	// Status and payment writes read through it.
	ByIDForUpdate(ctx context.Context, id ID) (*Listing, error)
	Create(ctx context.Context, listing *Listing) error
	Save(ctx context.Context, listing *Listing) error
	Delete(ctx context.Context, id ID) error
	CountByOwner(ctx context.Context, owner user.ID) (int, error)
	ByOwner(ctx context.Context, owner user.ID) ([]*Listing, error)
	ByStatus(ctx context.Context, status Status) ([]*Listing, error)
	SearchPublic(ctx context.Context, params SearchParams) ([]*Listing, error)

	AddImage(ctx context.Context, image *Image) error
	Images(ctx context.Context, id ID) ([]Image, error)
	ImageByID(ctx context.Context, id ImageID) (*Image, error)
	DeleteImage(ctx context.Context, id ImageID) error
	DeleteImages(ctx context.Context, listing ID) error

	// ExpireDue switches off every active listing whose paid period lapsed at or before now.
	ExpireDue(ctx context.Context, now time.Time) ([]Expired, error)
	// DueForReminder returns active listings whose paid_until falls within (now, now+window].
	DueForReminder(ctx context.Context, now time.Time, window time.Duration) ([]*Listing, error)
	// RecordReminder reports false when the reminder was already recorded.
	RecordReminder(ctx context.Context, id ID, kind ReminderKind, at time.Time) (bool, error)
}

type CreateParams struct {
	OwnerID     user.ID
	Title       string
	Description string
	State       string
	LGA         string
	Address     string
	Price       money.Money
	// FeeAmount is zero for free listings.
	FeeAmount money.Money
	Now       time.Time
}

func NewListing(params CreateParams) (*Listing, error) {
	if params.OwnerID == 0 {
		return nil, ErrOwnerRequired
	}
	title := strings.TrimSpace(params.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}
	state := strings.TrimSpace(params.State)
	lga := strings.TrimSpace(params.LGA)
	address := strings.TrimSpace(params.Address)
	if state == "" || lga == "" || address == "" {
		return nil, ErrLocationRequired
	}
	if params.Price.Amount <= 0 {
		return nil, ErrInvalidPrice
	}
	now := params.Now.UTC()
	status := StatusPending
	if params.FeeAmount.Amount > 0 {
		status = StatusPaymentRequired
	}
	l := &Listing{
		OwnerID:     params.OwnerID,
		Title:       title,
		Description: strings.TrimSpace(params.Description),
		State:       state,
		LGA:         lga,
		Address:     address,
		Price:       params.Price,
		Status:      status,
		FeeAmount:   params.FeeAmount,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return l, nil
}

// RecordSubmitted must be called once the listing has an identity.
func (l *Listing) RecordSubmitted() {
	l.Record(ListingSubmittedEvent{ListingID: l.ID, OwnerID: l.OwnerID, FeeRequired: !l.FeeSatisfied(), At: l.CreatedAt})
}

// FeeSatisfied reports whether moderation may approve the listing.
func (l *Listing) FeeSatisfied() bool {
	return l.FeePaid || l.FeeAmount.Amount == 0
}

// Public reports whether the listing is visible to travellers.
func (l *Listing) Public() bool {
	return l.IsActive && l.Status == StatusApproved
}

// Lapsed reports whether a paid period exists and has ended.
func (l *Listing) Lapsed(now time.Time) bool {
	return l.PaidUntil != nil && !l.PaidUntil.After(now)
}

// Bookable checks the booking preconditions owned by the listing itself.
func (l *Listing) Bookable(now time.Time) error {
	if !l.Public() {
		return ErrNotBookable
	}
	if l.Lapsed(now) {
		return ErrExpired
	}
	return nil
}

func (l *Listing) Approve(now time.Time) error {
	switch l.Status {
	case StatusPending, StatusRejected, StatusPaymentRequired:
	default:
		return ErrInvalidTransition
	}
	if !l.FeeSatisfied() {
		return ErrFeeUnpaid
	}
	l.Status = StatusApproved
	l.IsActive = true
	l.SuspensionCause = CauseNone
	l.RejectionReason = ""
	l.touch(now)
	l.recordStatus("listing.approved", "")
	return nil
}

// Reject returns the reason actually recorded.
func (l *Listing) Reject(reason string, now time.Time) string {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = DefaultRejectReason
	}
	l.Status = StatusRejected
	l.IsActive = false
	l.RejectionReason = reason
	l.touch(now)
	l.recordStatus("listing.rejected", reason)
	return reason
}

// Suspend takes an approved listing offline. A listing already switched off
// by expiry may be suspended too; the admin cause then takes over.
func (l *Listing) Suspend(reason string, now time.Time) error {
	if l.Status != StatusApproved && l.Status != StatusSuspended {
		return ErrInvalidTransition
	}
	l.Status = StatusSuspended
	l.IsActive = false
	l.SuspensionCause = CauseAdmin
	l.SuspendedUntil = nil
	l.touch(now)
	l.recordStatus("listing.suspended", strings.TrimSpace(reason))
	return nil
}

func (l *Listing) Reactivate(now time.Time) error {
	if l.Status != StatusSuspended {
		return ErrInvalidTransition
	}
	if !l.FeeSatisfied() {
		return ErrFeeUnpaid
	}
	l.Status = StatusApproved
	l.IsActive = true
	l.SuspensionCause = CauseNone
	l.SuspendedUntil = nil
	l.touch(now)
	l.recordStatus("listing.reactivated", "")
	return nil
}

// MarkExpired switches off a lapsed active listing; it is a no-op otherwise.
func (l *Listing) MarkExpired(now time.Time) bool {
	if !l.IsActive || !l.Lapsed(now) {
		return false
	}
	l.IsActive = false
	l.Status = StatusSuspended
	l.SuspensionCause = CauseExpired
	l.touch(now)
	l.recordStatus("listing.expired", "subscription expired")
	return true
}

// PaymentResult describes the billing window covered by an applied payment.
type PaymentResult struct {
	Period   Period
	StartsAt time.Time
	EndsAt   time.Time
}

// ApplyPayment extends paid_until by one calendar period from the later of now
// and the current paid_until, and lifts expiry suspensions.
func (l *Listing) ApplyPayment(period Period, now time.Time) PaymentResult {
	now = now.UTC()
	start := now
	if l.PaidUntil != nil && l.PaidUntil.After(now) {
		start = l.PaidUntil.UTC()
	}
	end := period.Extend(start)
	l.PaidUntil = &end
	l.FeePaid = true
	l.PaymentPlan = period

	switch {
	case l.Status == StatusPaymentRequired:
		l.Status = StatusPending
	case l.Status == StatusApproved:
		l.IsActive = true
	case l.Status == StatusSuspended && l.SuspensionCause == CauseExpired:
		l.Status = StatusApproved
		l.IsActive = true
		l.SuspensionCause = CauseNone
	}
	l.touch(now)
	l.Record(ListingPaymentAppliedEvent{ListingID: l.ID, OwnerID: l.OwnerID, Period: period, PaidUntil: end, At: now})
	return PaymentResult{Period: period, StartsAt: start, EndsAt: end}
}

// RecordDeleted emits the deletion event before the row disappears.
func (l *Listing) RecordDeleted(now time.Time) {
	l.Record(ListingDeletedEvent{ListingID: l.ID, OwnerID: l.OwnerID, At: now.UTC()})
}

func (l *Listing) EnsureOwner(owner user.ID) error {
	if l.OwnerID != owner {
		return ErrNotOwner
	}
	return nil
}

func (l *Listing) touch(now time.Time) {
	if now.IsZero() {
		now = time.Now()
	}
	l.UpdatedAt = now.UTC()
}

func (l *Listing) recordStatus(name, reason string) {
	l.Record(ListingStatusChangedEvent{
		Name:      name,
		ListingID: l.ID,
		OwnerID:   l.OwnerID,
		Status:    l.Status,
		Reason:    reason,
		At:        l.UpdatedAt,
	})
}
