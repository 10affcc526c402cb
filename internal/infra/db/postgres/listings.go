package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	domainlistings "padicrib/internal/domain/listings"
	"padicrib/internal/domain/shared/money"
	domainuser "padicrib/internal/domain/user"
)

const listingColumns = `id, owner_id, title, description, state, lga, address, price, currency, status,
	is_active, fee_paid, fee_amount, paid_until, payment_plan, suspension_cause, suspended_until,
	rejection_reason, created_at, updated_at`

type listingRow struct {
	ID              int64      `db:"id"`
	OwnerID         int64      `db:"owner_id"`
	Title           string     `db:"title"`
	Description     string     `db:"description"`
	State           string     `db:"state"`
	LGA             string     `db:"lga"`
	Address         string     `db:"address"`
	Price           int64      `db:"price"`
	Currency        string     `db:"currency"`
	Status          string     `db:"status"`
	IsActive        bool       `db:"is_active"`
	FeePaid         bool       `db:"fee_paid"`
	FeeAmount       int64      `db:"fee_amount"`
	PaidUntil       *time.Time `db:"paid_until"`
	PaymentPlan     string     `db:"payment_plan"`
	SuspensionCause string     `db:"suspension_cause"`
	SuspendedUntil  *time.Time `db:"suspended_until"`
	RejectionReason string     `db:"rejection_reason"`
	CreatedAt       time.Time  `db:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at"`
}

func (r listingRow) toDomain() *domainlistings.Listing {
	return &domainlistings.Listing{
		ID:              domainlistings.ID(r.ID),
		OwnerID:         domainuser.ID(r.OwnerID),
		Title:           r.Title,
		Description:     r.Description,
		State:           r.State,
		LGA:             r.LGA,
		Address:         r.Address,
		Price:           money.Money{Amount: r.Price, Currency: r.Currency},
		Status:          domainlistings.Status(r.Status),
		IsActive:        r.IsActive,
		FeePaid:         r.FeePaid,
		FeeAmount:       money.Money{Amount: r.FeeAmount, Currency: r.Currency},
		PaidUntil:       r.PaidUntil,
		PaymentPlan:     domainlistings.Period(r.PaymentPlan),
		SuspensionCause: domainlistings.SuspensionCause(r.SuspensionCause),
		SuspendedUntil:  r.SuspendedUntil,
		RejectionReason: r.RejectionReason,
		Images:          []domainlistings.Image{},
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

type imageRow struct {
	ID        int64     `db:"id"`
	ListingID int64     `db:"listing_id"`
	Path      string    `db:"path"`
	CreatedAt time.Time `db:"created_at"`
}

func (r imageRow) toDomain() domainlistings.Image {
	return domainlistings.Image{
		ID:        domainlistings.ImageID(r.ID),
		ListingID: domainlistings.ID(r.ListingID),
		Path:      r.Path,
		CreatedAt: r.CreatedAt,
	}
}

type listingRepo struct{ tx *sqlx.Tx }

// many loads listings and attaches their images with one extra query.
func (r listingRepo) many(ctx context.Context, query string, args ...any) ([]*domainlistings.Listing, error) {
	var rows []listingRow
	if err := r.tx.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	out := make([]*domainlistings.Listing, 0, len(rows))
	if len(rows) == 0 {
		return out, nil
	}
	ids := make([]int64, 0, len(rows))
	index := make(map[domainlistings.ID]*domainlistings.Listing, len(rows))
	for _, row := range rows {
		l := row.toDomain()
		out = append(out, l)
		ids = append(ids, row.ID)
		index[l.ID] = l
	}
	q, qargs, err := sqlx.In(`SELECT id, listing_id, path, created_at FROM listing_images WHERE listing_id IN (?) ORDER BY id`, ids)
	if err != nil {
		return nil, err
	}
	var images []imageRow
	if err := r.tx.SelectContext(ctx, &images, r.tx.Rebind(q), qargs...); err != nil {
		return nil, err
	}
	for _, img := range images {
		if l, ok := index[domainlistings.ID(img.ListingID)]; ok {
			l.Images = append(l.Images, img.toDomain())
		}
	}
	return out, nil
}

func (r listingRepo) ByID(ctx context.Context, id domainlistings.ID) (*domainlistings.Listing, error) {
	found, err := r.many(ctx, `SELECT `+listingColumns+` FROM listings WHERE id = $1`, int64(id))
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, domainlistings.ErrNotFound
	}
	return found[0], nil
}

// ByIDForUpdate locks the listing row so concurrent moderation and payment
// writes apply one after another instead of overwriting each other.
func (r listingRepo) ByIDForUpdate(ctx context.Context, id domainlistings.ID) (*domainlistings.Listing, error) {
	found, err := r.many(ctx, `SELECT `+listingColumns+` FROM listings WHERE id = $1 FOR UPDATE`, int64(id))
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, domainlistings.ErrNotFound
	}
	return found[0], nil
}

func (r listingRepo) Create(ctx context.Context, l *domainlistings.Listing) error {
	return r.tx.QueryRowxContext(ctx, `
		INSERT INTO listings (owner_id, title, description, state, lga, address, price, currency, status,
			is_active, fee_paid, fee_amount, paid_until, payment_plan, suspension_cause, suspended_until,
			rejection_reason, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		RETURNING id`,
		int64(l.OwnerID), l.Title, l.Description, l.State, l.LGA, l.Address, l.Price.Amount, currencyOf(l.Price),
		string(l.Status), l.IsActive, l.FeePaid, l.FeeAmount.Amount, l.PaidUntil, string(l.PaymentPlan),
		string(l.SuspensionCause), l.SuspendedUntil, l.RejectionReason, l.CreatedAt, l.UpdatedAt,
	).Scan(&l.ID)
}

func (r listingRepo) Save(ctx context.Context, l *domainlistings.Listing) error {
	res, err := r.tx.ExecContext(ctx, `
		UPDATE listings SET title = $2, description = $3, state = $4, lga = $5, address = $6, price = $7,
			status = $8, is_active = $9, fee_paid = $10, fee_amount = $11, paid_until = $12, payment_plan = $13,
			suspension_cause = $14, suspended_until = $15, rejection_reason = $16, updated_at = $17
		WHERE id = $1`,
		int64(l.ID), l.Title, l.Description, l.State, l.LGA, l.Address, l.Price.Amount,
		string(l.Status), l.IsActive, l.FeePaid, l.FeeAmount.Amount, l.PaidUntil, string(l.PaymentPlan),
		string(l.SuspensionCause), l.SuspendedUntil, l.RejectionReason, l.UpdatedAt,
	)
	return expectRow(res, err, domainlistings.ErrNotFound)
}

func (r listingRepo) Delete(ctx context.Context, id domainlistings.ID) error {
	res, err := r.tx.ExecContext(ctx, `DELETE FROM listings WHERE id = $1`, int64(id))
	return expectRow(res, err, domainlistings.ErrNotFound)
}

func (r listingRepo) CountByOwner(ctx context.Context, owner domainuser.ID) (int, error) {
	var n int
	err := r.tx.GetContext(ctx, &n, `SELECT COUNT(*) FROM listings WHERE owner_id = $1`, int64(owner))
	return n, err
}

func (r listingRepo) ByOwner(ctx context.Context, owner domainuser.ID) ([]*domainlistings.Listing, error) {
	return r.many(ctx, `SELECT `+listingColumns+` FROM listings WHERE owner_id = $1 ORDER BY created_at DESC, id DESC`, int64(owner))
}

func (r listingRepo) ByStatus(ctx context.Context, status domainlistings.Status) ([]*domainlistings.Listing, error) {
	return r.many(ctx, `SELECT `+listingColumns+` FROM listings WHERE status = $1 ORDER BY created_at DESC, id DESC`, string(status))
}

func (r listingRepo) SearchPublic(ctx context.Context, p domainlistings.SearchParams) ([]*domainlistings.Listing, error) {
	query := strings.TrimSpace(p.Query)
	pattern := ""
	if query != "" {
		pattern = "%" + escapeLike(query) + "%"
	}
	return r.many(ctx, `
		SELECT `+listingColumns+` FROM listings
		WHERE is_active AND status = 'approved'
			AND ($1 = '' OR lower(state) = lower($1))
			AND ($2 = '' OR lower(lga) = lower($2))
			AND ($3 = '' OR title ILIKE $3 OR description ILIKE $3 OR address ILIKE $3)
		ORDER BY created_at DESC, id DESC
		LIMIT NULLIF($4, 0) OFFSET $5`,
		strings.TrimSpace(p.State), strings.TrimSpace(p.LGA), pattern, p.Limit, max(p.Offset, 0),
	)
}

func (r listingRepo) AddImage(ctx context.Context, img *domainlistings.Image) error {
	err := r.tx.QueryRowxContext(ctx, `
		INSERT INTO listing_images (listing_id, path, created_at) VALUES ($1, $2, $3) RETURNING id`,
		int64(img.ListingID), img.Path, img.CreatedAt,
	).Scan(&img.ID)
	if isForeignKeyViolation(err) {
		return domainlistings.ErrNotFound
	}
	return err
}

func (r listingRepo) Images(ctx context.Context, id domainlistings.ID) ([]domainlistings.Image, error) {
	var rows []imageRow
	if err := r.tx.SelectContext(ctx, &rows, `SELECT id, listing_id, path, created_at FROM listing_images WHERE listing_id = $1 ORDER BY id`, int64(id)); err != nil {
		return nil, err
	}
	out := make([]domainlistings.Image, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r listingRepo) ImageByID(ctx context.Context, id domainlistings.ImageID) (*domainlistings.Image, error) {
	var row imageRow
	err := r.tx.GetContext(ctx, &row, `SELECT id, listing_id, path, created_at FROM listing_images WHERE id = $1`, int64(id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domainlistings.ErrImageNotFound
	}
	if err != nil {
		return nil, err
	}
	img := row.toDomain()
	return &img, nil
}

func (r listingRepo) DeleteImage(ctx context.Context, id domainlistings.ImageID) error {
	res, err := r.tx.ExecContext(ctx, `DELETE FROM listing_images WHERE id = $1`, int64(id))
	return expectRow(res, err, domainlistings.ErrImageNotFound)
}

func (r listingRepo) DeleteImages(ctx context.Context, listing domainlistings.ID) error {
	_, err := r.tx.ExecContext(ctx, `DELETE FROM listing_images WHERE listing_id = $1`, int64(listing))
	return err
}

func (r listingRepo) ExpireDue(ctx context.Context, now time.Time) ([]domainlistings.Expired, error) {
	var rows []struct {
		ID        int64     `db:"id"`
		OwnerID   int64     `db:"owner_id"`
		Title     string    `db:"title"`
		PaidUntil time.Time `db:"paid_until"`
	}
	err := r.tx.SelectContext(ctx, &rows, `
		UPDATE listings SET is_active = FALSE, status = $2, suspension_cause = $3, updated_at = $1
		WHERE is_active AND paid_until IS NOT NULL AND paid_until <= $1
		RETURNING id, owner_id, title, paid_until`,
		now.UTC(), string(domainlistings.StatusSuspended), string(domainlistings.CauseExpired),
	)
	if err != nil {
		return nil, err
	}
	out := make([]domainlistings.Expired, 0, len(rows))
	for _, row := range rows {
		out = append(out, domainlistings.Expired{
			ID:        domainlistings.ID(row.ID),
			OwnerID:   domainuser.ID(row.OwnerID),
			Title:     row.Title,
			PaidUntil: row.PaidUntil,
		})
	}
	return out, nil
}

func (r listingRepo) DueForReminder(ctx context.Context, now time.Time, window time.Duration) ([]*domainlistings.Listing, error) {
	now = now.UTC()
	return r.many(ctx, `
		SELECT `+listingColumns+` FROM listings
		WHERE is_active AND paid_until > $1 AND paid_until <= $2
		ORDER BY paid_until, id`,
		now, now.Add(window),
	)
}

func (r listingRepo) RecordReminder(ctx context.Context, id domainlistings.ID, kind domainlistings.ReminderKind, at time.Time) (bool, error) {
	res, err := r.tx.ExecContext(ctx, `
		INSERT INTO listing_reminders (listing_id, reminder_type, sent_at) VALUES ($1, $2, $3)
		ON CONFLICT (listing_id, reminder_type) DO NOTHING`,
		int64(id), string(kind), at.UTC(),
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func currencyOf(m money.Money) string {
	if m.Currency == "" {
		return money.DefaultCurrency
	}
	return m.Currency
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }
