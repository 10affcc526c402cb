package notify

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"padicrib/internal/app/handlers/support"
	"padicrib/internal/app/policies"
	"padicrib/internal/app/uow"
	"padicrib/internal/domain/listings"
	domainmessaging "padicrib/internal/domain/messaging"
	domainuser "padicrib/internal/domain/user"
)

// Dispatcher posts notices into the conversation bound to a listing, creating
// the conversation on first use. Each notice runs in its own unit of work so a
// failure never touches the operation that triggered it.
type Dispatcher struct {
	UoW    uow.UoWFactory
	Logger *slog.Logger
	Now    func() time.Time
}

var _ policies.Notifier = (*Dispatcher)(nil)

func (d *Dispatcher) Notify(ctx context.Context, n policies.Notice) {
	err := support.Managed(uow.Detach(ctx), d.UoW, func(ctx context.Context, unit uow.UnitOfWork) error {
		return d.deliver(ctx, unit, n)
	})
	if err != nil {
		d.logger().WarnContext(ctx, "notification not delivered",
			"listing_id", n.ListingID, "owner_id", n.OwnerID, "error", err)
	}
}

func (d *Dispatcher) deliver(ctx context.Context, unit uow.UnitOfWork, n policies.Notice) error {
	now := d.now()
	repo := unit.Conversations()
	conv, err := d.thread(ctx, repo, n)
	switch {
	case errors.Is(err, domainmessaging.ErrNotFound):
		members := []domainuser.ID{n.OwnerID}
		if n.ActorID != nil {
			members = append(members, *n.ActorID)
		}
		listingID := n.ListingID
		var bound *listings.ID
		if !n.Detached {
			bound = &listingID
		}
		conv, err = domainmessaging.NewConversation(domainmessaging.VerificationSubject(listingID), bound, members, now)
		if err != nil {
			return err
		}
		if err := repo.Create(ctx, conv); err != nil {
			return err
		}
	case err != nil:
		return err
	}
	msg, err := domainmessaging.NewMessage(conv.ID, n.SenderID, n.Body, now)
	if err != nil {
		return err
	}
	return repo.Post(ctx, msg)
}

func (d *Dispatcher) thread(ctx context.Context, repo domainmessaging.Repository, n policies.Notice) (*domainmessaging.Conversation, error) {
	if n.ConversationID != nil {
		conv, err := repo.ByID(ctx, *n.ConversationID)
		if !errors.Is(err, domainmessaging.ErrNotFound) {
			return conv, err
		}
	}
	if n.Detached {
		return nil, domainmessaging.ErrNotFound
	}
	return repo.ForListing(ctx, n.ListingID)
}

func (d *Dispatcher) now() time.Time {
	if d.Now != nil {
		return d.Now().UTC()
	}
	return time.Now().UTC()
}

func (d *Dispatcher) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}
