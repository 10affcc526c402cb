package verification

import (
	"context"
	"errors"
	"strings"
	"time"

	"padicrib/internal/domain/listings"
	"padicrib/internal/domain/user"
)

var (
	ErrNotFound        = errors.New("verification: not found")
	ErrSelfieRequired  = errors.New("verification: selfie image is required")
	ErrIDCardRequired  = errors.New("verification: id card image is required")
	ErrIDNumberMissing = errors.New("verification: id number is required")
	ErrUnknownDocument = errors.New("verification: unknown document type")
)

type ID int64

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Document names a stored identity file.
type Document string

const (
	DocumentSelfie Document = "selfie"
	DocumentIDCard Document = "id_card"
)

func ParseDocument(raw string) (Document, error) {
	switch Document(strings.ToLower(strings.TrimSpace(raw))) {
	case DocumentSelfie:
		return DocumentSelfie, nil
	case DocumentIDCard, "idcard":
		return DocumentIDCard, nil
	default:
		return "", ErrUnknownDocument
	}
}

// Submission is what an owner hands over alongside a new listing.
type Submission struct {
	SelfiePath string
	IDCardPath string
	IDNumber   string
}

// Validate checks that every identity document is present.
func (s Submission) Validate() error {
	if strings.TrimSpace(s.SelfiePath) == "" {
		return ErrSelfieRequired
	}
	if strings.TrimSpace(s.IDCardPath) == "" {
		return ErrIDCardRequired
	}
	if strings.TrimSpace(s.IDNumber) == "" {
		return ErrIDNumberMissing
	}
	return nil
}

type Verification struct {
	ID         ID
	ListingID  listings.ID
	OwnerID    user.ID
	SelfiePath string
	IDCardPath string
	IDNumber   string
	Status     Status
	AdminNotes string
	CreatedAt  time.Time
	ReviewedAt *time.Time
}

type Repository interface {
	ByID(ctx context.Context, id ID) (*Verification, error)
	ByListing(ctx context.Context, listing listings.ID) (*Verification, error)
	ByStatus(ctx context.Context, status Status) ([]*Verification, error)
	Create(ctx context.Context, v *Verification) error
	Save(ctx context.Context, v *Verification) error
	DeleteByListing(ctx context.Context, listing listings.ID) error
}

func New(listing listings.ID, owner user.ID, sub Submission, now time.Time) (*Verification, error) {
	if err := sub.Validate(); err != nil {
		return nil, err
	}
	return &Verification{
		ListingID:  listing,
		OwnerID:    owner,
		SelfiePath: strings.TrimSpace(sub.SelfiePath),
		IDCardPath: strings.TrimSpace(sub.IDCardPath),
		IDNumber:   strings.TrimSpace(sub.IDNumber),
		Status:     StatusPending,
		CreatedAt:  now.UTC(),
	}, nil
}

func (v *Verification) Approve(now time.Time) {
	v.review(StatusApproved, "", now)
}

func (v *Verification) Reject(notes string, now time.Time) {
	v.review(StatusRejected, notes, now)
}

func (v *Verification) review(status Status, notes string, now time.Time) {
	t := now.UTC()
	v.Status = status
	v.AdminNotes = strings.TrimSpace(notes)
	v.ReviewedAt = &t
}

// Path returns the stored file name for a document.
func (v *Verification) Path(doc Document) string {
	switch doc {
	case DocumentSelfie:
		return v.SelfiePath
	case DocumentIDCard:
		return v.IDCardPath
	default:
		return ""
	}
}

// Files lists every stored document for cleanup.
func (v *Verification) Files() []string {
	out := make([]string, 0, 2)
	for _, p := range []string{v.SelfiePath, v.IDCardPath} {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
