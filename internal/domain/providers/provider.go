package providers

import (
	"context"
	"errors"
	"strings"
	"time"

	"padicrib/internal/domain/booking"
)

var (
	ErrNotFound     = errors.New("providers: not found")
	ErrNameRequired = errors.New("providers: name is required")
	ErrInvalidType  = errors.New("providers: type must be laundry or food")
	ErrTypeMismatch = errors.New("providers: provider does not offer this service")
)

type ID int64

// Provider is a laundry service or food vendor offered at checkout.
type Provider struct {
	ID        ID
	Type      booking.ServiceType
	Name      string
	Phone     string
	CreatedAt time.Time
}

type Repository interface {
	Create(ctx context.Context, p *Provider) error
	ByID(ctx context.Context, id ID) (*Provider, error)
	List(ctx context.Context, kind booking.ServiceType) ([]*Provider, error)
}

func New(kind, name, phone string, now time.Time) (*Provider, error) {
	t := booking.ServiceType(strings.ToLower(strings.TrimSpace(kind)))
	if t != booking.ServiceLaundry && t != booking.ServiceFood {
		return nil, ErrInvalidType
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNameRequired
	}
	return &Provider{Type: t, Name: name, Phone: strings.TrimSpace(phone), CreatedAt: now.UTC()}, nil
}
