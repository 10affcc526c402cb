package policies

import (
	"context"

	"padicrib/internal/domain/listings"
	"padicrib/internal/domain/messaging"
	"padicrib/internal/domain/user"
)

// Notice is an in-app message about a listing addressed to its owner.
type Notice struct {
	ListingID listings.ID
	OwnerID   user.ID
	// ActorID joins a newly created thread next to the owner, usually an admin.
	ActorID *user.ID
	// SenderID authors the message; nil marks a system notice.
	SenderID *user.ID
	Body     string
	// ConversationID pins the thread, for listings that are about to disappear.
	ConversationID *messaging.ConversationID
	// Detached notices never bind a new thread to the listing.
	Detached bool
}

// Notifier delivers notices on a best-effort basis and never reports failure.
type Notifier interface {
	Notify(ctx context.Context, notice Notice)
}
