package memory

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sync"
	"time"

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

var ErrUnitClosed = errors.New("memory: unit of work already finished")

type reminderKey struct {
	listing domainlistings.ID
	kind    domainlistings.ReminderKind
}

type outboxEntry struct {
	record      appoutbox.EventRecord
	state       string
	attempts    int
	nextAttempt time.Time
	lastError   string
}

// state is one consistent snapshot of every table.
type state struct {
	seq int64

	users         map[domainuser.ID]domainuser.User
	suspensions   []domainuser.Suspension
	listings      map[domainlistings.ID]domainlistings.Listing
	images        map[domainlistings.ImageID]domainlistings.Image
	reminders     map[reminderKey]time.Time
	verifications map[domainverification.ID]domainverification.Verification
	fees          map[domainfees.ID]domainfees.Fee
	bookings      map[domainbooking.ID]domainbooking.Booking
	services      map[int64]domainbooking.Service
	reviews       map[domainreviews.ID]domainreviews.Review
	conversations map[domainmessaging.ConversationID]domainmessaging.Conversation
	messages      map[domainmessaging.MessageID]domainmessaging.Message
	providers     map[domainproviders.ID]domainproviders.Provider
	outbox        []outboxEntry
}

func newState() *state {
	return &state{
		users:         map[domainuser.ID]domainuser.User{},
		listings:      map[domainlistings.ID]domainlistings.Listing{},
		images:        map[domainlistings.ImageID]domainlistings.Image{},
		reminders:     map[reminderKey]time.Time{},
		verifications: map[domainverification.ID]domainverification.Verification{},
		fees:          map[domainfees.ID]domainfees.Fee{},
		bookings:      map[domainbooking.ID]domainbooking.Booking{},
		services:      map[int64]domainbooking.Service{},
		reviews:       map[domainreviews.ID]domainreviews.Review{},
		conversations: map[domainmessaging.ConversationID]domainmessaging.Conversation{},
		messages:      map[domainmessaging.MessageID]domainmessaging.Message{},
		providers:     map[domainproviders.ID]domainproviders.Provider{},
	}
}

func (s *state) clone() *state {
	return &state{
		seq:           s.seq,
		users:         maps.Clone(s.users),
		suspensions:   slices.Clone(s.suspensions),
		listings:      maps.Clone(s.listings),
		images:        maps.Clone(s.images),
		reminders:     maps.Clone(s.reminders),
		verifications: maps.Clone(s.verifications),
		fees:          maps.Clone(s.fees),
		bookings:      maps.Clone(s.bookings),
		services:      maps.Clone(s.services),
		reviews:       maps.Clone(s.reviews),
		conversations: maps.Clone(s.conversations),
		messages:      maps.Clone(s.messages),
		providers:     maps.Clone(s.providers),
		outbox:        slices.Clone(s.outbox),
	}
}

func (s *state) nextID() int64 {
	s.seq++
	return s.seq
}

// Store is an in-memory relational stand-in with snapshot transactions:
// a write unit works on a private copy that replaces the shared state on
// commit, so a failed unit leaves nothing behind. Writers are serialised.
type Store struct {
	writeMu sync.Mutex
	mu      sync.RWMutex
	current *state
	faults  map[string]error
}

func NewStore() *Store {
	return &Store{current: newState(), faults: map[string]error{}}
}

// FailOn makes the named repository operation return err until cleared with a nil err.
func (s *Store) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.faults, op)
		return
	}
	s.faults[op] = err
}

func (s *Store) fault(op string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.faults[op]
}

func (s *Store) snapshot() *state {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.clone()
}

// Begin implements uow.UoWFactory.
func (s *Store) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if !opts.ReadOnly {
		s.writeMu.Lock()
	}
	tx := s.snapshot()
	return &Unit{store: s, tx: tx, outboxBase: len(tx.outbox), readOnly: opts.ReadOnly}, nil
}

var _ uow.UoWFactory = (*Store)(nil)

// Unit is a uow.UnitOfWork over a private snapshot of the store.
type Unit struct {
	uow.CommitHooks
	store      *Store
	tx         *state
	outboxBase int
	readOnly   bool
	done       bool
}

func (u *Unit) Users() domainuser.Repository                 { return userRepo{u} }
func (u *Unit) Listings() domainlistings.Repository          { return listingRepo{u} }
func (u *Unit) Verifications() domainverification.Repository { return verificationRepo{u} }
func (u *Unit) Fees() domainfees.Repository                  { return feeRepo{u} }
func (u *Unit) Bookings() domainbooking.Repository           { return bookingRepo{u} }
func (u *Unit) Reviews() domainreviews.Repository            { return reviewRepo{u} }
func (u *Unit) Conversations() domainmessaging.Repository    { return conversationRepo{u} }
func (u *Unit) Providers() domainproviders.Repository        { return providerRepo{u} }
func (u *Unit) Outbox() appoutbox.Outbox                     { return outboxWriter{u} }

func (u *Unit) Commit(ctx context.Context) error {
	if u.done {
		return ErrUnitClosed
	}
	u.done = true
	if !u.readOnly {
		u.store.mu.Lock()
		// the worker may have moved outbox rows on since the snapshot
		u.tx.outbox = append(slices.Clone(u.store.current.outbox), u.tx.outbox[u.outboxBase:]...)
		u.store.current = u.tx
		u.store.mu.Unlock()
		u.store.writeMu.Unlock()
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
	if !u.readOnly {
		u.store.writeMu.Unlock()
	}
	return nil
}

// check guards every repository call.
func (u *Unit) check(op string) error {
	if u.done {
		return ErrUnitClosed
	}
	return u.store.fault(op)
}

type outboxWriter struct{ u *Unit }

func (o outboxWriter) Add(ctx context.Context, record appoutbox.EventRecord) error {
	if err := o.u.check("outbox.add"); err != nil {
		return err
	}
	o.u.tx.outbox = append(o.u.tx.outbox, outboxEntry{record: record, state: "NEW", nextAttempt: record.OccurredAt})
	return nil
}
