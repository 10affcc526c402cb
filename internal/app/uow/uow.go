package uow

import (
	"context"

	"padicrib/internal/app/outbox"
	domainbooking "padicrib/internal/domain/booking"
	domainfees "padicrib/internal/domain/fees"
	domainlistings "padicrib/internal/domain/listings"
	domainmessaging "padicrib/internal/domain/messaging"
	domainproviders "padicrib/internal/domain/providers"
	domainreviews "padicrib/internal/domain/reviews"
	domainuser "padicrib/internal/domain/user"
	domainverification "padicrib/internal/domain/verification"
)

// UnitOfWork coordinates repositories inside a transaction boundary.
type UnitOfWork interface {
	Users() domainuser.Repository
	Listings() domainlistings.Repository
	Verifications() domainverification.Repository
	Fees() domainfees.Repository
	Bookings() domainbooking.Repository
	Reviews() domainreviews.Repository
	Conversations() domainmessaging.Repository
	Providers() domainproviders.Repository
	Outbox() outbox.Outbox

	// AfterCommit registers a callback that runs only once Commit succeeds.
	AfterCommit(fn func(ctx context.Context))

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// UoWFactory starts unit of work instances.
type UoWFactory interface {
	Begin(ctx context.Context, opts TxOptions) (UnitOfWork, error)
}

// TxOptions configure transaction boundaries.
type TxOptions struct {
	ReadOnly bool
}

// CommitHooks is embedded by unit implementations to provide AfterCommit.
type CommitHooks struct {
	hooks []func(context.Context)
}

func (h *CommitHooks) AfterCommit(fn func(ctx context.Context)) {
	if fn == nil {
		return
	}
	h.hooks = append(h.hooks, fn)
}

// RunAfterCommit executes registered hooks on a context that survives request
// cancellation and no longer carries the finished unit.
func (h *CommitHooks) RunAfterCommit(ctx context.Context) {
	hooks := h.hooks
	h.hooks = nil
	if len(hooks) == 0 {
		return
	}
	detached := Detach(ctx)
	for _, fn := range hooks {
		fn(detached)
	}
}

// DiscardHooks drops callbacks of a rolled back unit.
func (h *CommitHooks) DiscardHooks() {
	h.hooks = nil
}
