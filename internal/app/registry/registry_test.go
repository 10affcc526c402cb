package registry_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"padicrib/internal/app/commands"
	"padicrib/internal/app/dto"
	adminapp "padicrib/internal/app/handlers/admin"
	bookingapp "padicrib/internal/app/handlers/booking"
	expiryapp "padicrib/internal/app/handlers/expiry"
	listingapp "padicrib/internal/app/handlers/listings"
	messageapp "padicrib/internal/app/handlers/messages"
	paymentapp "padicrib/internal/app/handlers/payments"
	reviewapp "padicrib/internal/app/handlers/reviews"
	"padicrib/internal/app/middleware"
	"padicrib/internal/app/notify"
	"padicrib/internal/app/policies"
	"padicrib/internal/app/queries"
	"padicrib/internal/app/registry"
	"padicrib/internal/app/services/auth"
	"padicrib/internal/app/uow"
	domainbooking "padicrib/internal/domain/booking"
	domainfees "padicrib/internal/domain/fees"
	domainlistings "padicrib/internal/domain/listings"
	domainmessaging "padicrib/internal/domain/messaging"
	domainproviders "padicrib/internal/domain/providers"
	domainreviews "padicrib/internal/domain/reviews"
	"padicrib/internal/domain/shared/money"
	domainuser "padicrib/internal/domain/user"
	"padicrib/internal/infra/security"
	"padicrib/internal/infra/storage/memory"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

type removed struct {
	mu    sync.Mutex
	paths []string
}

func (r *removed) Remove(_ context.Context, path string) error {
	r.mu.Lock()
	r.paths = append(r.paths, path)
	r.mu.Unlock()
	return nil
}

type harness struct {
	store  *memory.Store
	buses  registry.Buses
	clock  *clock
	images *removed
	docs   *removed

	admin auth.Principal
	owner auth.Principal
	guest auth.Principal
}

var start = time.Date(2025, 10, 20, 9, 0, 0, 0, time.UTC)

func ngn(major int64) money.Money { return money.FromMajor(major, money.DefaultCurrency) }

func newHarness(t *testing.T, stub bool) *harness {
	t.Helper()
	store := memory.NewStore()
	clk := &clock{t: start}
	h := &harness{store: store, clock: clk, images: &removed{}, docs: &removed{}}

	seed := func(name, email string, role domainuser.Role) auth.Principal {
		id := store.SeedUser(domainuser.User{Name: name, Email: email, PasswordHash: "x", Role: role, CreatedAt: start})
		return auth.Principal{UserID: id, Name: name, Role: role}
	}
	h.admin = seed("Ada Admin", "admin@padicrib.test", domainuser.RoleAdmin)
	h.owner = seed("Olu Owner", "owner@padicrib.test", domainuser.RoleUser)
	h.guest = seed("Gbemi Guest", "guest@padicrib.test", domainuser.RoleUser)

	h.buses = registry.Build(registry.Deps{
		UoW:         store,
		Idempotency: memory.NewIdempotencyStore(),
		Pricing: policies.Pricing{
			FreeListings: 2,
			MonthlyFee:   ngn(5000),
			YearlyFee:    ngn(50000),
			AddOns:       domainbooking.AddOnPrices{Laundry: ngn(3000), Food: ngn(2000)},
		},
		Notifier:       &notify.Dispatcher{UoW: store, Now: clk.Now},
		Passwords:      security.BcryptHasher{Cost: bcrypt.MinCost},
		Images:         h.images,
		Documents:      h.docs,
		StubPayments:   stub,
		ReminderWindow: 72 * time.Hour,
		Now:            clk.Now,
	})
	return h
}

func as(p auth.Principal) context.Context {
	return auth.ContextWithPrincipal(context.Background(), p)
}

func (h *harness) createListing(t *testing.T) *dto.CreatedListing {
	t.Helper()
	created, err := commands.Dispatch[listingapp.CreateListingCommand, *dto.CreatedListing](as(h.owner), h.buses.Commands, listingapp.CreateListingCommand{
		OwnerID:    h.owner.UserID,
		Title:      "Lekki studio",
		State:      "Lagos",
		LGA:        "Eti-Osa",
		Address:    "4 Admiralty Way",
		Price:      "15000",
		Images:     []string{"/uploads/listings/a.jpg"},
		SelfiePath: "verifications/selfie.jpg",
		IDCardPath: "verifications/id.jpg",
		IDNumber:   "NIN-12345",
	})
	require.NoError(t, err)
	return created
}

func (h *harness) approve(t *testing.T, id int64) dto.Listing {
	t.Helper()
	l, err := commands.Dispatch[adminapp.ApproveListingCommand, dto.Listing](as(h.admin), h.buses.Commands, adminapp.ApproveListingCommand{
		AdminID:   h.admin.UserID,
		ListingID: domainlistings.ID(id),
	})
	require.NoError(t, err)
	return l
}

func (h *harness) listing(t *testing.T, id int64) (*domainlistings.Listing, error) {
	t.Helper()
	unit, err := h.store.Begin(context.Background(), uow.TxOptions{ReadOnly: true})
	require.NoError(t, err)
	defer func() { _ = unit.Rollback(context.Background()) }()
	return unit.Listings().ByID(context.Background(), domainlistings.ID(id))
}

func TestBuildRegistersBackgroundAndWebhookRoutes(t *testing.T) {
	h := newHarness(t, false)
	assert.Contains(t, h.buses.Routes, "expiry.sweep")
	assert.Contains(t, h.buses.Routes, "payments.webhook")
	assert.Contains(t, h.buses.Routes, "listings.search")
}

func TestCreateListingChargesAfterFreeAllowance(t *testing.T) {
	h := newHarness(t, false)

	first := h.createListing(t)
	second := h.createListing(t)
	third := h.createListing(t)

	assert.False(t, first.FeeRequired)
	assert.False(t, second.FeeRequired)
	assert.Equal(t, string(domainlistings.StatusPending), first.Listing.Status)

	require.True(t, third.FeeRequired)
	require.NotNil(t, third.Fee)
	assert.Equal(t, ngn(5000).Amount, third.Fee.Amount.Minor)
	assert.False(t, third.Fee.Paid)
	assert.Equal(t, string(domainlistings.StatusPaymentRequired), third.Listing.Status)
	assert.Len(t, third.Listing.Images, 1)

	inbox, err := queries.Ask[messageapp.InboxQuery, dto.Inbox](as(h.admin), h.buses.Queries, messageapp.InboxQuery{UserID: h.admin.UserID})
	require.NoError(t, err)
	assert.Len(t, inbox.Items, 3, "each verification opens a thread with the reviewing admin")
}

func TestCreateListingRequiresPrincipal(t *testing.T) {
	h := newHarness(t, false)
	_, err := commands.Dispatch[listingapp.CreateListingCommand, *dto.CreatedListing](context.Background(), h.buses.Commands, listingapp.CreateListingCommand{
		OwnerID:    h.owner.UserID,
		Title:      "x",
		State:      "Lagos",
		LGA:        "Ikeja",
		Address:    "1 Allen",
		Price:      "100",
		SelfiePath: "s.jpg",
		IDCardPath: "i.jpg",
		IDNumber:   "1",
	})
	assert.ErrorIs(t, err, middleware.ErrUnauthenticated)
}

func TestApproveBlockedUntilFeePaid(t *testing.T) {
	h := newHarness(t, true)
	h.createListing(t)
	h.createListing(t)
	paid := h.createListing(t)
	id := domainlistings.ID(paid.Listing.ID)

	_, err := commands.Dispatch[adminapp.ApproveListingCommand, dto.Listing](as(h.admin), h.buses.Commands, adminapp.ApproveListingCommand{
		AdminID:   h.admin.UserID,
		ListingID: id,
	})
	require.ErrorIs(t, err, domainlistings.ErrFeeUnpaid)

	out, err := commands.Dispatch[paymentapp.StubListingPaymentCommand, dto.PaymentOutcome](as(h.owner), h.buses.Commands, paymentapp.StubListingPaymentCommand{
		Actor:     h.owner,
		ListingID: id,
	})
	require.NoError(t, err)
	assert.True(t, out.Applied)
	require.NotNil(t, out.PaidUntil)
	assert.Equal(t, start.AddDate(0, 1, 0), *out.PaidUntil)

	l, err := h.listing(t, paid.Listing.ID)
	require.NoError(t, err)
	assert.Equal(t, domainlistings.StatusPending, l.Status)
	assert.True(t, l.FeePaid)

	approved := h.approve(t, paid.Listing.ID)
	assert.Equal(t, string(domainlistings.StatusApproved), approved.Status)
	assert.True(t, approved.IsActive)
}

func TestStubPaymentReplayIsDuplicate(t *testing.T) {
	h := newHarness(t, true)
	created := h.createListing(t)
	cmd := paymentapp.StubListingPaymentCommand{Actor: h.owner, ListingID: domainlistings.ID(created.Listing.ID)}

	first, err := commands.Dispatch[paymentapp.StubListingPaymentCommand, dto.PaymentOutcome](as(h.owner), h.buses.Commands, cmd)
	require.NoError(t, err)
	require.True(t, first.Applied)

	again, err := commands.Dispatch[paymentapp.StubListingPaymentCommand, dto.PaymentOutcome](as(h.owner), h.buses.Commands, cmd)
	require.NoError(t, err)
	assert.True(t, again.Duplicate)
	assert.False(t, again.Applied)

	l, err := h.listing(t, created.Listing.ID)
	require.NoError(t, err)
	assert.Equal(t, *first.PaidUntil, *l.PaidUntil)
}

func TestStubPaymentDisabled(t *testing.T) {
	h := newHarness(t, false)
	created := h.createListing(t)
	_, err := commands.Dispatch[paymentapp.StubListingPaymentCommand, dto.PaymentOutcome](as(h.owner), h.buses.Commands, paymentapp.StubListingPaymentCommand{
		Actor:     h.owner,
		ListingID: domainlistings.ID(created.Listing.ID),
	})
	assert.ErrorIs(t, err, paymentapp.ErrStubDisabled)
}

func TestWebhookAppliesOnceAndAcknowledgesUnknownTargets(t *testing.T) {
	h := newHarness(t, false)
	created := h.createListing(t)
	cmd := paymentapp.ReconcileWebhookCommand{
		Event:     paymentapp.EventChargeSuccess,
		Reference: "listing-1-1700000000000",
		Amount:    ngn(50000).Amount,
		Status:    policies.TransactionSuccess,
		Metadata:  policies.PaymentMetadata{ListingID: created.Listing.ID, Period: "yearly"},
	}

	out, err := commands.Dispatch[paymentapp.ReconcileWebhookCommand, dto.PaymentOutcome](context.Background(), h.buses.Commands, cmd)
	require.NoError(t, err)
	require.True(t, out.Applied)
	assert.Equal(t, start.AddDate(1, 0, 0), *out.PaidUntil)

	replay, err := commands.Dispatch[paymentapp.ReconcileWebhookCommand, dto.PaymentOutcome](context.Background(), h.buses.Commands, cmd)
	require.NoError(t, err)
	assert.True(t, replay.Duplicate)

	l, err := h.listing(t, created.Listing.ID)
	require.NoError(t, err)
	assert.Equal(t, start.AddDate(1, 0, 0), *l.PaidUntil)
	assert.Equal(t, domainlistings.PeriodYearly, l.PaymentPlan)

	cmd.Reference = "listing-999-1700000000000"
	cmd.Metadata = policies.PaymentMetadata{ListingID: 999}
	missing, err := commands.Dispatch[paymentapp.ReconcileWebhookCommand, dto.PaymentOutcome](context.Background(), h.buses.Commands, cmd)
	require.NoError(t, err)
	assert.False(t, missing.OK)

	ignored, err := commands.Dispatch[paymentapp.ReconcileWebhookCommand, dto.PaymentOutcome](context.Background(), h.buses.Commands, paymentapp.ReconcileWebhookCommand{
		Event:     "transfer.success",
		Reference: "t-1",
	})
	require.NoError(t, err)
	assert.True(t, ignored.OK)
	assert.False(t, ignored.Applied)
}

func TestWebhookWithoutMetadataChangesNothing(t *testing.T) {
	h := newHarness(t, false)
	created := h.createListing(t)

	out, err := commands.Dispatch[paymentapp.ReconcileWebhookCommand, dto.PaymentOutcome](context.Background(), h.buses.Commands, paymentapp.ReconcileWebhookCommand{
		Event:     paymentapp.EventChargeSuccess,
		Reference: domainfees.Reference(domainlistings.ID(created.Listing.ID), start),
		Amount:    ngn(5000).Amount,
		Status:    policies.TransactionSuccess,
	})
	require.NoError(t, err)
	assert.False(t, out.Applied)
	assert.Equal(t, "nothing to reconcile", out.Message)

	l, err := h.listing(t, created.Listing.ID)
	require.NoError(t, err)
	assert.Nil(t, l.PaidUntil)
}

func TestShortListingPaymentIsRefused(t *testing.T) {
	h := newHarness(t, false)
	created := h.createListing(t)
	cmd := paymentapp.ReconcileWebhookCommand{
		Event:     paymentapp.EventChargeSuccess,
		Reference: "listing-short-1",
		Amount:    ngn(5000).Amount,
		Status:    policies.TransactionSuccess,
		Metadata:  policies.PaymentMetadata{ListingID: created.Listing.ID, Period: "yearly"},
	}

	short, err := commands.Dispatch[paymentapp.ReconcileWebhookCommand, dto.PaymentOutcome](context.Background(), h.buses.Commands, cmd)
	require.NoError(t, err)
	assert.False(t, short.OK)
	assert.False(t, short.Applied)

	l, err := h.listing(t, created.Listing.ID)
	require.NoError(t, err)
	assert.Nil(t, l.PaidUntil)

	cmd.Amount = ngn(50000).Amount
	full, err := commands.Dispatch[paymentapp.ReconcileWebhookCommand, dto.PaymentOutcome](context.Background(), h.buses.Commands, cmd)
	require.NoError(t, err)
	require.True(t, full.Applied)
	assert.Equal(t, start.AddDate(1, 0, 0), *full.PaidUntil)
}

func TestSuspendSkipsUnapprovedListing(t *testing.T) {
	h := newHarness(t, false)
	created := h.createListing(t)

	_, err := commands.Dispatch[adminapp.SuspendListingCommand, dto.Listing](as(h.admin), h.buses.Commands, adminapp.SuspendListingCommand{
		AdminID:   h.admin.UserID,
		ListingID: domainlistings.ID(created.Listing.ID),
		Reason:    "spam",
	})
	require.ErrorIs(t, err, domainlistings.ErrInvalidTransition)

	_, err = commands.Dispatch[adminapp.ReactivateListingCommand, dto.Listing](as(h.admin), h.buses.Commands, adminapp.ReactivateListingCommand{
		AdminID:   h.admin.UserID,
		ListingID: domainlistings.ID(created.Listing.ID),
	})
	require.ErrorIs(t, err, domainlistings.ErrInvalidTransition)

	l, err := h.listing(t, created.Listing.ID)
	require.NoError(t, err)
	assert.Equal(t, domainlistings.StatusPending, l.Status)
	assert.False(t, l.Public())
}

func TestListingPaymentNeedsGateway(t *testing.T) {
	h := newHarness(t, false)
	created := h.createListing(t)
	_, err := commands.Dispatch[paymentapp.InitiateListingPaymentCommand, dto.PaymentRedirect](as(h.owner), h.buses.Commands, paymentapp.InitiateListingPaymentCommand{
		Actor:     h.owner,
		ListingID: domainlistings.ID(created.Listing.ID),
	})
	assert.ErrorIs(t, err, policies.ErrGatewayUnavailable)
}

func (h *harness) book(ctx context.Context, cmd bookingapp.InitiateBookingCommand) (dto.Booking, error) {
	return commands.Dispatch[bookingapp.InitiateBookingCommand, dto.Booking](ctx, h.buses.Commands, cmd)
}

func day(d int) *time.Time {
	t := time.Date(2025, time.November, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestBookingPricesNightsAndAddOns(t *testing.T) {
	h := newHarness(t, false)
	created := h.createListing(t)
	h.approve(t, created.Listing.ID)
	listingID := domainlistings.ID(created.Listing.ID)

	b, err := h.book(as(h.guest), bookingapp.InitiateBookingCommand{
		UserID:    h.guest.UserID,
		ListingID: listingID,
		Start:     day(1),
		End:       day(5),
	})
	require.NoError(t, err)
	assert.Equal(t, 4, b.Nights)
	assert.Equal(t, ngn(60000).Amount, b.TotalPrice.Minor)
	assert.False(t, b.Paid)

	withAddOns, err := h.book(as(h.guest), bookingapp.InitiateBookingCommand{
		UserID:    h.guest.UserID,
		ListingID: listingID,
		Start:     day(1),
		End:       day(5),
		Laundry:   true,
		Food:      true,
	})
	require.NoError(t, err)
	assert.Equal(t, ngn(65000).Amount, withAddOns.TotalPrice.Minor)
	assert.Len(t, withAddOns.Services, 2)

	_, err = h.book(as(h.owner), bookingapp.InitiateBookingCommand{UserID: h.owner.UserID, ListingID: listingID})
	assert.ErrorIs(t, err, domainbooking.ErrOwnListing)
}

func TestBookingRejectsProviderOfWrongType(t *testing.T) {
	h := newHarness(t, false)
	created := h.createListing(t)
	h.approve(t, created.Listing.ID)

	vendor, err := commands.Dispatch[adminapp.AddProviderCommand, dto.Provider](as(h.admin), h.buses.Commands, adminapp.AddProviderCommand{
		AdminID: h.admin.UserID,
		Type:    "food",
		Name:    "Mama Put",
	})
	require.NoError(t, err)

	_, err = h.book(as(h.guest), bookingapp.InitiateBookingCommand{
		UserID:            h.guest.UserID,
		ListingID:         domainlistings.ID(created.Listing.ID),
		LaundryProviderID: &vendor.ID,
	})
	assert.ErrorIs(t, err, domainproviders.ErrTypeMismatch)

	b, err := h.book(as(h.guest), bookingapp.InitiateBookingCommand{
		UserID:         h.guest.UserID,
		ListingID:      domainlistings.ID(created.Listing.ID),
		FoodProviderID: &vendor.ID,
	})
	require.NoError(t, err)
	require.Len(t, b.Services, 1)
	assert.Equal(t, string(domainbooking.ServiceFood), b.Services[0].Type)
}

func TestBookingUnapprovedListingIsNotBookable(t *testing.T) {
	h := newHarness(t, false)
	created := h.createListing(t)
	_, err := h.book(as(h.guest), bookingapp.InitiateBookingCommand{UserID: h.guest.UserID, ListingID: domainlistings.ID(created.Listing.ID)})
	assert.ErrorIs(t, err, domainlistings.ErrNotBookable)
}

func TestBookingIdempotencyKeyReplaysResult(t *testing.T) {
	h := newHarness(t, false)
	created := h.createListing(t)
	h.approve(t, created.Listing.ID)
	cmd := bookingapp.InitiateBookingCommand{
		UserID:     h.guest.UserID,
		ListingID:  domainlistings.ID(created.Listing.ID),
		Start:      day(1),
		End:        day(3),
		RequestKey: "checkout-1",
	}

	first, err := h.book(as(h.guest), cmd)
	require.NoError(t, err)
	second, err := h.book(as(h.guest), cmd)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	mine, err := queries.Ask[bookingapp.MyBookingsQuery, []dto.Booking](as(h.guest), h.buses.Queries, bookingapp.MyBookingsQuery{UserID: h.guest.UserID})
	require.NoError(t, err)
	assert.Len(t, mine, 1)
}

func TestBookingWebhookMarksPaidOnce(t *testing.T) {
	h := newHarness(t, false)
	created := h.createListing(t)
	h.approve(t, created.Listing.ID)
	b, err := h.book(as(h.guest), bookingapp.InitiateBookingCommand{UserID: h.guest.UserID, ListingID: domainlistings.ID(created.Listing.ID)})
	require.NoError(t, err)

	cmd := paymentapp.ReconcileWebhookCommand{
		Event:     paymentapp.EventChargeSuccess,
		Reference: "booking-ref-1",
		Amount:    b.TotalPrice.Minor,
		Metadata:  policies.PaymentMetadata{BookingID: b.ID},
	}
	out, err := commands.Dispatch[paymentapp.ReconcileWebhookCommand, dto.PaymentOutcome](context.Background(), h.buses.Commands, cmd)
	require.NoError(t, err)
	assert.True(t, out.Applied)

	replay, err := commands.Dispatch[paymentapp.ReconcileWebhookCommand, dto.PaymentOutcome](context.Background(), h.buses.Commands, cmd)
	require.NoError(t, err)
	assert.True(t, replay.Duplicate)

	mine, err := queries.Ask[bookingapp.MyBookingsQuery, []dto.Booking](as(h.guest), h.buses.Queries, bookingapp.MyBookingsQuery{UserID: h.guest.UserID})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.True(t, mine[0].Paid)
	assert.Equal(t, "booking-ref-1", mine[0].PaymentReference)
}

func TestDeleteListingRollsBackOnFailure(t *testing.T) {
	h := newHarness(t, false)
	created := h.createListing(t)
	h.approve(t, created.Listing.ID)
	_, err := h.book(as(h.guest), bookingapp.InitiateBookingCommand{UserID: h.guest.UserID, ListingID: domainlistings.ID(created.Listing.ID)})
	require.NoError(t, err)

	boom := errors.New("disk full")
	h.store.FailOn("reviews.delete_by_listing", boom)
	cmd := adminapp.DeleteListingCommand{AdminID: h.admin.UserID, ListingID: domainlistings.ID(created.Listing.ID)}
	_, err = commands.Dispatch[adminapp.DeleteListingCommand, adminapp.DeletedListing](as(h.admin), h.buses.Commands, cmd)
	require.ErrorIs(t, err, boom)

	l, err := h.listing(t, created.Listing.ID)
	require.NoError(t, err, "listing survives a failed cascade")
	assert.Len(t, l.Images, 1)
	mine, err := queries.Ask[bookingapp.MyBookingsQuery, []dto.Booking](as(h.guest), h.buses.Queries, bookingapp.MyBookingsQuery{UserID: h.guest.UserID})
	require.NoError(t, err)
	assert.Len(t, mine, 1)
	assert.Empty(t, h.images.paths, "files stay until the rows are gone")

	h.store.FailOn("reviews.delete_by_listing", nil)
	out, err := commands.Dispatch[adminapp.DeleteListingCommand, adminapp.DeletedListing](as(h.admin), h.buses.Commands, cmd)
	require.NoError(t, err)
	assert.Equal(t, 1, out.Images)

	_, err = h.listing(t, created.Listing.ID)
	assert.ErrorIs(t, err, domainlistings.ErrNotFound)
	assert.Equal(t, []string{"/uploads/listings/a.jpg"}, h.images.paths)
	assert.ElementsMatch(t, []string{"verifications/selfie.jpg", "verifications/id.jpg"}, h.docs.paths)

	mine, err = queries.Ask[bookingapp.MyBookingsQuery, []dto.Booking](as(h.guest), h.buses.Queries, bookingapp.MyBookingsQuery{UserID: h.guest.UserID})
	require.NoError(t, err)
	assert.Empty(t, mine)

	inbox, err := queries.Ask[messageapp.InboxQuery, dto.Inbox](as(h.owner), h.buses.Queries, messageapp.InboxQuery{UserID: h.owner.UserID})
	require.NoError(t, err)
	require.Len(t, inbox.Items, 1, "removal notice lands in the surviving thread")
	thread, err := queries.Ask[messageapp.ThreadQuery, dto.Thread](as(h.owner), h.buses.Queries, messageapp.ThreadQuery{
		ConversationID: domainmessaging.ConversationID(inbox.Items[0].ID),
		Viewer:         h.owner,
	})
	require.NoError(t, err)
	last := thread.Messages[len(thread.Messages)-1]
	assert.Contains(t, last.Body, "removed by an administrator")
}

func TestSweepExpiresAndRemindsOnce(t *testing.T) {
	h := newHarness(t, true)
	created := h.createListing(t)
	h.approve(t, created.Listing.ID)
	_, err := commands.Dispatch[paymentapp.StubListingPaymentCommand, dto.PaymentOutcome](as(h.owner), h.buses.Commands, paymentapp.StubListingPaymentCommand{
		Actor:     h.owner,
		ListingID: domainlistings.ID(created.Listing.ID),
	})
	require.NoError(t, err)
	paidUntil := start.AddDate(0, 1, 0)

	sweep := func() expiryapp.SweepResult {
		t.Helper()
		res, err := commands.Dispatch[expiryapp.SweepCommand, expiryapp.SweepResult](context.Background(), h.buses.Commands, expiryapp.SweepCommand{})
		require.NoError(t, err)
		return res
	}

	assert.Equal(t, expiryapp.SweepResult{RanAt: start}, sweep())

	h.clock.Set(paidUntil.Add(-24 * time.Hour))
	first := sweep()
	assert.Equal(t, 1, first.Reminded)
	second := sweep()
	assert.Equal(t, 0, second.Reminded)
	assert.Equal(t, 1, second.Skipped)

	h.clock.Set(paidUntil.Add(time.Minute))
	expired := sweep()
	assert.Equal(t, 1, expired.Expired)
	assert.Zero(t, sweep().Expired, "a second pass finds nothing left to expire")

	l, err := h.listing(t, created.Listing.ID)
	require.NoError(t, err)
	assert.False(t, l.IsActive)
	assert.Equal(t, domainlistings.StatusSuspended, l.Status)

	_, err = h.book(as(h.guest), bookingapp.InitiateBookingCommand{UserID: h.guest.UserID, ListingID: l.ID})
	assert.ErrorIs(t, err, domainlistings.ErrNotBookable)

	renewed, err := commands.Dispatch[paymentapp.StubListingPaymentCommand, dto.PaymentOutcome](as(h.owner), h.buses.Commands, paymentapp.StubListingPaymentCommand{
		Actor:     h.owner,
		ListingID: l.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, paidUntil.Add(time.Minute).AddDate(0, 1, 0), *renewed.PaidUntil)
	l, err = h.listing(t, created.Listing.ID)
	require.NoError(t, err)
	assert.True(t, l.Public(), "renewal lifts an expiry suspension")
}

func TestReviewRepliesAreOneLevelDeep(t *testing.T) {
	h := newHarness(t, false)
	created := h.createListing(t)
	listingID := domainlistings.ID(created.Listing.ID)

	review, err := commands.Dispatch[reviewapp.SubmitReviewCommand, dto.Review](as(h.guest), h.buses.Commands, reviewapp.SubmitReviewCommand{
		UserID:    h.guest.UserID,
		ListingID: listingID,
		Rating:    4,
		Comment:   "Clean and quiet",
	})
	require.NoError(t, err)
	assert.Equal(t, "Gbemi Guest", review.UserName)

	reply, err := commands.Dispatch[reviewapp.ReplyCommand, dto.Review](as(h.owner), h.buses.Commands, reviewapp.ReplyCommand{
		UserID:    h.owner.UserID,
		ListingID: listingID,
		ParentID:  domainreviews.ID(review.ID),
		Comment:   "Thanks for staying",
	})
	require.NoError(t, err)
	require.NotNil(t, reply.ParentID)

	_, err = commands.Dispatch[reviewapp.ReplyCommand, dto.Review](as(h.guest), h.buses.Commands, reviewapp.ReplyCommand{
		UserID:    h.guest.UserID,
		ListingID: listingID,
		ParentID:  domainreviews.ID(reply.ID),
		Comment:   "You're welcome",
	})
	assert.ErrorIs(t, err, domainreviews.ErrNestedReply)

	list, err := queries.Ask[reviewapp.ListReviewsQuery, dto.ReviewCollection](context.Background(), h.buses.Queries, reviewapp.ListReviewsQuery{ListingID: listingID})
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	assert.Len(t, list.Items[0].Replies, 1)
}

func TestThreadsVisibleToMembersAndAdmins(t *testing.T) {
	h := newHarness(t, false)
	outsider := h.store.SeedUser(domainuser.User{Name: "Nosy", Email: "nosy@padicrib.test", PasswordHash: "x", Role: domainuser.RoleUser})
	nosy := auth.Principal{UserID: outsider, Name: "Nosy", Role: domainuser.RoleUser}

	started, err := commands.Dispatch[messageapp.StartConversationCommand, dto.Thread](as(h.guest), h.buses.Commands, messageapp.StartConversationCommand{
		Actor:        h.guest,
		Subject:      "Parking",
		RecipientIDs: []domainuser.ID{h.owner.UserID},
		Body:         "Is there parking?",
	})
	require.NoError(t, err)
	convID := domainmessaging.ConversationID(started.Conversation.ID)

	_, err = commands.Dispatch[messageapp.PostMessageCommand, dto.Message](as(h.owner), h.buses.Commands, messageapp.PostMessageCommand{
		Actor:          h.owner,
		ConversationID: convID,
		Body:           "Yes, two spaces",
	})
	require.NoError(t, err)

	_, err = commands.Dispatch[messageapp.PostMessageCommand, dto.Message](as(nosy), h.buses.Commands, messageapp.PostMessageCommand{
		Actor:          nosy,
		ConversationID: convID,
		Body:           "hello",
	})
	assert.ErrorIs(t, err, domainmessaging.ErrNotMember)

	_, err = queries.Ask[messageapp.ThreadQuery, dto.Thread](as(nosy), h.buses.Queries, messageapp.ThreadQuery{ConversationID: convID, Viewer: nosy})
	assert.ErrorIs(t, err, domainmessaging.ErrNotMember)

	thread, err := queries.Ask[messageapp.ThreadQuery, dto.Thread](as(h.admin), h.buses.Queries, messageapp.ThreadQuery{ConversationID: convID, Viewer: h.admin})
	require.NoError(t, err)
	assert.Len(t, thread.Messages, 2)
}

func TestAdminUserModeration(t *testing.T) {
	h := newHarness(t, false)

	_, err := commands.Dispatch[adminapp.SuspendUserCommand, dto.UserProfile](as(h.guest), h.buses.Commands, adminapp.SuspendUserCommand{
		AdminID: h.guest.UserID,
		UserID:  h.owner.UserID,
	})
	require.ErrorIs(t, err, middleware.ErrForbidden)

	_, err = commands.Dispatch[adminapp.SuspendUserCommand, dto.UserProfile](as(h.admin), h.buses.Commands, adminapp.SuspendUserCommand{
		AdminID: h.admin.UserID,
		UserID:  h.admin.UserID,
	})
	require.ErrorIs(t, err, adminapp.ErrSelfAction)

	suspended, err := commands.Dispatch[adminapp.SuspendUserCommand, dto.UserProfile](as(h.admin), h.buses.Commands, adminapp.SuspendUserCommand{
		AdminID: h.admin.UserID,
		UserID:  h.guest.UserID,
		Reason:  "chargebacks",
	})
	require.NoError(t, err)
	assert.Equal(t, string(domainuser.StatusSuspended), suspended.Status)

	_, err = commands.Dispatch[adminapp.ReactivateUserCommand, dto.UserProfile](as(h.admin), h.buses.Commands, adminapp.ReactivateUserCommand{
		AdminID: h.admin.UserID,
		UserID:  h.guest.UserID,
	})
	require.NoError(t, err)
	_, err = commands.Dispatch[adminapp.ReactivateUserCommand, dto.UserProfile](as(h.admin), h.buses.Commands, adminapp.ReactivateUserCommand{
		AdminID: h.admin.UserID,
		UserID:  h.guest.UserID,
	})
	assert.ErrorIs(t, err, domainuser.ErrNotSuspended)

	staff, err := commands.Dispatch[adminapp.CreateStaffCommand, dto.UserProfile](as(h.admin), h.buses.Commands, adminapp.CreateStaffCommand{
		AdminID:  h.admin.UserID,
		Name:     "Sade Staff",
		Email:    "staff@padicrib.test",
		Password: "longenough",
	})
	require.NoError(t, err)
	assert.Equal(t, string(domainuser.RoleStaff), staff.Role)

	_, err = commands.Dispatch[adminapp.DeleteUserCommand, struct{}](as(h.admin), h.buses.Commands, adminapp.DeleteUserCommand{
		AdminID: h.admin.UserID,
		UserID:  h.guest.UserID,
	})
	require.NoError(t, err)

	users, err := queries.Ask[adminapp.ListUsersQuery, dto.UserList](as(h.admin), h.buses.Queries, adminapp.ListUsersQuery{})
	require.NoError(t, err)
	for _, u := range users.Items {
		assert.NotEqual(t, int64(h.guest.UserID), u.ID)
	}
}
