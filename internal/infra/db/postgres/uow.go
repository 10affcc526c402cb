package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	appoutbox "padicrib/internal/app/outbox"
	"padicrib/internal/app/uow"
	domainbooking "padicrib/internal/domain/booking"
	domainfees "padicrib/internal/domain/fees"
	domainlistings "padicrib/internal/domain/listings"
	domainmessaging "padicrib/internal/domain/messaging"
	domainproviders "padicrib/internal/domain/providers"
	domainreviews "padicrib/internal/domain/reviews"
	domainuser "padicrib/internal/domain/user"
	domainverification "padicrib/internal/domain/verification"
)

// Factory begins units of work on a database handle.
type Factory struct {
	DB *sqlx.DB
}

var _ uow.UoWFactory = (*Factory)(nil)

func NewFactory(db *sqlx.DB) *Factory {
	return &Factory{DB: db}
}

func (f *Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	tx, err := f.DB.BeginTxx(ctx, &sql.TxOptions{ReadOnly: opts.ReadOnly})
	if err != nil {
		return nil, err
	}
	return &Unit{tx: tx}, nil
}

// Unit is a uow.UnitOfWork bound to one database transaction.
type Unit struct {
	uow.CommitHooks
	tx   *sqlx.Tx
	done bool
}

func (u *Unit) Users() domainuser.Repository                 { return userRepo{u.tx} }
func (u *Unit) Listings() domainlistings.Repository          { return listingRepo{u.tx} }
func (u *Unit) Verifications() domainverification.Repository { return verificationRepo{u.tx} }
func (u *Unit) Fees() domainfees.Repository                  { return feeRepo{u.tx} }
func (u *Unit) Bookings() domainbooking.Repository           { return bookingRepo{u.tx} }
func (u *Unit) Reviews() domainreviews.Repository            { return reviewRepo{u.tx} }
func (u *Unit) Conversations() domainmessaging.Repository    { return conversationRepo{u.tx} }
func (u *Unit) Providers() domainproviders.Repository        { return providerRepo{u.tx} }
func (u *Unit) Outbox() appoutbox.Outbox                     { return outboxWriter{u.tx} }

func (u *Unit) Commit(ctx context.Context) error {
	if u.done {
		return sql.ErrTxDone
	}
	u.done = true
	if err := u.tx.Commit(); err != nil {
		u.DiscardHooks()
		return err
	}
	u.RunAfterCommit(ctx)
	return nil
}

func (u *Unit) Rollback(ctx context.Context) error {
	if u.done {
		return nil
	}
	u.done = true
	u.DiscardHooks()
	if err := u.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}
