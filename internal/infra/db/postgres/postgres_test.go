package postgres

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appoutbox "padicrib/internal/app/outbox"
	"padicrib/internal/app/uow"
	domainbooking "padicrib/internal/domain/booking"
	domainfees "padicrib/internal/domain/fees"
	domainlistings "padicrib/internal/domain/listings"
	"padicrib/internal/domain/shared/money"
	domainuser "padicrib/internal/domain/user"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	db := sqlx.NewDb(raw, "pgx")
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return db, mock
}

func begin(t *testing.T, db *sqlx.DB, mock sqlmock.Sqlmock) uow.UnitOfWork {
	t.Helper()
	mock.ExpectBegin()
	unit, err := NewFactory(db).Begin(context.Background(), uow.TxOptions{})
	require.NoError(t, err)
	return unit
}

func q(s string) string { return regexp.QuoteMeta(s) }

func TestCommitRunsAfterCommitHooks(t *testing.T) {
	db, mock := newMock(t)
	unit := begin(t, db, mock)
	mock.ExpectCommit()

	ran := false
	unit.AfterCommit(func(context.Context) { ran = true })
	require.NoError(t, unit.Commit(context.Background()))
	assert.True(t, ran)
	assert.NoError(t, unit.Rollback(context.Background()), "rollback after commit is a no-op")
}

func TestFailedCascadeRollsBackAndDropsHooks(t *testing.T) {
	db, mock := newMock(t)
	unit := begin(t, db, mock)
	boom := errors.New("disk full")
	mock.ExpectExec(q("DELETE FROM bookings WHERE listing_id")).WithArgs(int64(4)).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(q("DELETE FROM reviews WHERE listing_id")).WithArgs(int64(4)).WillReturnError(boom)
	mock.ExpectRollback()

	ran := false
	unit.AfterCommit(func(context.Context) { ran = true })
	ctx := context.Background()
	require.NoError(t, unit.Bookings().DeleteByListing(ctx, 4))
	err := unit.Reviews().DeleteByListing(ctx, 4)
	require.ErrorIs(t, err, boom)
	require.NoError(t, unit.Rollback(ctx))
	assert.False(t, ran)
}

func TestListingCreateAssignsID(t *testing.T) {
	db, mock := newMock(t)
	unit := begin(t, db, mock)
	mock.ExpectQuery(q("INSERT INTO listings")).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))

	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	l, err := domainlistings.NewListing(domainlistings.CreateParams{
		OwnerID: 2, Title: "Lekki flat", State: "Lagos", LGA: "Eti-Osa", Address: "1 Admiralty Way",
		Price: money.FromMajor(15000, "NGN"), Now: now,
	})
	require.NoError(t, err)
	require.NoError(t, unit.Listings().Create(context.Background(), l))
	assert.Equal(t, domainlistings.ID(7), l.ID)
}

func TestListingByIDAttachesImages(t *testing.T) {
	db, mock := newMock(t)
	unit := begin(t, db, mock)
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	paidUntil := now.AddDate(0, 1, 0)

	mock.ExpectQuery(q("FROM listings WHERE id = $1")).WithArgs(int64(3)).WillReturnRows(
		sqlmock.NewRows([]string{"id", "owner_id", "title", "description", "state", "lga", "address", "price", "currency", "status",
			"is_active", "fee_paid", "fee_amount", "paid_until", "payment_plan", "suspension_cause", "suspended_until",
			"rejection_reason", "created_at", "updated_at"}).
			AddRow(int64(3), int64(2), "Flat", "", "Lagos", "Ikeja", "2 Allen Ave", int64(1500000), "NGN", "approved",
				true, true, int64(500000), paidUntil, "monthly", "", nil, "", now, now))
	mock.ExpectQuery(q("FROM listing_images WHERE listing_id IN ($1)")).WithArgs(int64(3)).WillReturnRows(
		sqlmock.NewRows([]string{"id", "listing_id", "path", "created_at"}).
			AddRow(int64(11), int64(3), "/uploads/a.jpg", now).
			AddRow(int64(12), int64(3), "/uploads/b.jpg", now))

	l, err := unit.Listings().ByID(context.Background(), 3)
	require.NoError(t, err)
	assert.True(t, l.Public())
	assert.Equal(t, domainlistings.PeriodMonthly, l.PaymentPlan)
	require.NotNil(t, l.PaidUntil)
	assert.Equal(t, paidUntil, *l.PaidUntil)
	require.Len(t, l.Images, 2)
	assert.Equal(t, "/uploads/b.jpg", l.Images[1].Path)
}

func TestListingByIDNotFound(t *testing.T) {
	db, mock := newMock(t)
	unit := begin(t, db, mock)
	mock.ExpectQuery(q("FROM listings WHERE id = $1")).WithArgs(int64(9)).WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := unit.Listings().ByID(context.Background(), 9)
	assert.ErrorIs(t, err, domainlistings.ErrNotFound)
}

func TestListingByIDForUpdateLocksRow(t *testing.T) {
	db, mock := newMock(t)
	unit := begin(t, db, mock)
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(q("FROM listings WHERE id = $1 FOR UPDATE")).WithArgs(int64(3)).WillReturnRows(
		sqlmock.NewRows([]string{"id", "owner_id", "title", "description", "state", "lga", "address", "price", "currency", "status",
			"is_active", "fee_paid", "fee_amount", "paid_until", "payment_plan", "suspension_cause", "suspended_until",
			"rejection_reason", "created_at", "updated_at"}).
			AddRow(int64(3), int64(2), "Flat", "", "Lagos", "Ikeja", "2 Allen Ave", int64(1500000), "NGN", "suspended",
				false, true, int64(500000), nil, "monthly", "admin", nil, "", now, now))
	mock.ExpectQuery(q("FROM listing_images WHERE listing_id IN ($1)")).WithArgs(int64(3)).WillReturnRows(
		sqlmock.NewRows([]string{"id", "listing_id", "path", "created_at"}))

	l, err := unit.Listings().ByIDForUpdate(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, domainlistings.CauseAdmin, l.SuspensionCause)

	mock.ExpectQuery(q("FROM listings WHERE id = $1 FOR UPDATE")).WithArgs(int64(9)).WillReturnRows(sqlmock.NewRows([]string{"id"}))
	_, err = unit.Listings().ByIDForUpdate(context.Background(), 9)
	assert.ErrorIs(t, err, domainlistings.ErrNotFound)
}

func TestRecordReminderReportsExistingRow(t *testing.T) {
	db, mock := newMock(t)
	unit := begin(t, db, mock)
	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	kind := domainlistings.PreExpiryReminder(at.Add(48 * time.Hour))
	mock.ExpectExec(q("INSERT INTO listing_reminders")).WithArgs(int64(5), string(kind), at).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q("INSERT INTO listing_reminders")).WithArgs(int64(5), string(kind), at).WillReturnResult(sqlmock.NewResult(0, 0))

	ctx := context.Background()
	first, err := unit.Listings().RecordReminder(ctx, 5, kind, at)
	require.NoError(t, err)
	second, err := unit.Listings().RecordReminder(ctx, 5, kind, at)
	require.NoError(t, err)
	assert.True(t, first)
	assert.False(t, second)
}

func TestExpireDueReturnsSwitchedOffListings(t *testing.T) {
	db, mock := newMock(t)
	unit := begin(t, db, mock)
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery(q("UPDATE listings SET is_active = FALSE")).WithArgs(now, "suspended", "expired").WillReturnRows(
		sqlmock.NewRows([]string{"id", "owner_id", "title", "paid_until"}).AddRow(int64(8), int64(2), "Yaba room", now.Add(-time.Hour)))

	expired, err := unit.Listings().ExpireDue(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, domainlistings.ID(8), expired[0].ID)
	assert.Equal(t, domainuser.ID(2), expired[0].OwnerID)
}

func TestFeeCreateMapsUniqueReference(t *testing.T) {
	db, mock := newMock(t)
	unit := begin(t, db, mock)
	mock.ExpectQuery(q("INSERT INTO listing_fees")).WillReturnError(&pgconn.PgError{Code: codeUniqueViolation})

	fee := &domainfees.Fee{ListingID: 3, Amount: money.FromMajor(5000, "NGN"), Reference: "listing-3-1", Paid: true}
	err := unit.Fees().Create(context.Background(), fee)
	assert.ErrorIs(t, err, domainfees.ErrDuplicate)
}

func TestFeeByReferenceSkipsEmptyReference(t *testing.T) {
	db, mock := newMock(t)
	unit := begin(t, db, mock)

	_, err := unit.Fees().ByReference(context.Background(), "")
	assert.ErrorIs(t, err, domainfees.ErrNotFound)
}

func TestMarkPaidIsConditional(t *testing.T) {
	db, mock := newMock(t)
	unit := begin(t, db, mock)
	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	ctx := context.Background()

	mock.ExpectExec(q("UPDATE bookings SET paid = TRUE")).WithArgs(int64(6), "booking-6-1", at).WillReturnResult(sqlmock.NewResult(0, 1))
	changed, err := unit.Bookings().MarkPaid(ctx, 6, "booking-6-1", at)
	require.NoError(t, err)
	assert.True(t, changed)

	mock.ExpectExec(q("UPDATE bookings SET paid = TRUE")).WithArgs(int64(6), "booking-6-1", at).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(q("SELECT EXISTS")).WithArgs(int64(6)).WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	changed, err = unit.Bookings().MarkPaid(ctx, 6, "booking-6-1", at)
	require.NoError(t, err)
	assert.False(t, changed)

	mock.ExpectExec(q("UPDATE bookings SET paid = TRUE")).WithArgs(int64(99), "booking-99-1", at).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(q("SELECT EXISTS")).WithArgs(int64(99)).WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	_, err = unit.Bookings().MarkPaid(ctx, 99, "booking-99-1", at)
	assert.ErrorIs(t, err, domainbooking.ErrNotFound)
}

func TestUserDeleteBlockedByOwnedListings(t *testing.T) {
	db, mock := newMock(t)
	unit := begin(t, db, mock)
	mock.ExpectExec(q("DELETE FROM users")).WithArgs(int64(2)).WillReturnError(&pgconn.PgError{Code: codeForeignKeyViolation})

	err := unit.Users().Delete(context.Background(), 2)
	assert.ErrorIs(t, err, domainuser.ErrOwnsListings)
}

func TestUserCreateMapsDuplicateEmail(t *testing.T) {
	db, mock := newMock(t)
	unit := begin(t, db, mock)
	mock.ExpectQuery(q("INSERT INTO users")).WillReturnError(&pgconn.PgError{Code: codeUniqueViolation})

	err := unit.Users().Create(context.Background(), &domainuser.User{Name: "Ada", Email: "ada@example.com", Role: domainuser.RoleUser})
	assert.ErrorIs(t, err, domainuser.ErrEmailAlreadyUsed)
}

func TestOutboxWriterStoresHeadersAsJSON(t *testing.T) {
	db, mock := newMock(t)
	unit := begin(t, db, mock)
	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectExec(q("INSERT INTO outbox_events")).
		WithArgs("evt-1", "listing.approved", []byte(`{}`), "3", []byte(`{"content-type":"application/json"}`), at, outboxNew).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := unit.Outbox().Add(context.Background(), appoutbox.EventRecord{
		ID: "evt-1", Name: "listing.approved", Payload: []byte(`{}`), Aggregate: "3",
		OccurredAt: at, Headers: map[string]string{"content-type": "application/json"},
	})
	require.NoError(t, err)
}

func TestOutboxClaim(t *testing.T) {
	db, mock := newMock(t)
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	store := &OutboxStore{DB: db, ClaimTimeout: time.Minute, Now: func() time.Time { return now }}
	ctx := context.Background()

	mock.ExpectQuery(q("FOR UPDATE SKIP LOCKED")).
		WithArgs(outboxClaimed, "w1", now, outboxNew, outboxFailed, now.Add(-time.Minute)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "payload", "aggregate", "headers", "occurred_at", "attempts"}).
			AddRow("evt-1", "listing.approved", []byte(`{"listing_id":3}`), "3", []byte(`{"traceparent":"00-abc"}`), now, int64(2)))
	p, err := store.Claim(ctx, "w1")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "evt-1", p.ID)
	assert.Equal(t, 2, p.Attempts)
	assert.Equal(t, "00-abc", p.Headers["traceparent"])

	mock.ExpectQuery(q("FOR UPDATE SKIP LOCKED")).WillReturnError(sql.ErrNoRows)
	p, err = store.Claim(ctx, "w1")
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestOutboxMarkUnknownEvent(t *testing.T) {
	db, mock := newMock(t)
	store := NewOutboxStore(db)
	mock.ExpectExec(q("UPDATE outbox_events SET state")).WithArgs("missing", outboxSent).WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.MarkSent(context.Background(), "missing")
	assert.Error(t, err)
}
