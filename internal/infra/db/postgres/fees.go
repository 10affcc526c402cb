package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	domainfees "padicrib/internal/domain/fees"
	domainlistings "padicrib/internal/domain/listings"
	"padicrib/internal/domain/shared/money"
)

const feeColumns = `id, listing_id, amount, currency, paid, COALESCE(reference, '') AS reference, period, starts_at, ends_at, created_at, paid_at`

type feeRow struct {
	ID        int64      `db:"id"`
	ListingID int64      `db:"listing_id"`
	Amount    int64      `db:"amount"`
	Currency  string     `db:"currency"`
	Paid      bool       `db:"paid"`
	Reference string     `db:"reference"`
	Period    string     `db:"period"`
	StartsAt  *time.Time `db:"starts_at"`
	EndsAt    *time.Time `db:"ends_at"`
	CreatedAt time.Time  `db:"created_at"`
	PaidAt    *time.Time `db:"paid_at"`
}

func (r feeRow) toDomain() *domainfees.Fee {
	return &domainfees.Fee{
		ID:        domainfees.ID(r.ID),
		ListingID: domainlistings.ID(r.ListingID),
		Amount:    money.Money{Amount: r.Amount, Currency: r.Currency},
		Paid:      r.Paid,
		Reference: r.Reference,
		Period:    domainlistings.Period(r.Period),
		StartsAt:  r.StartsAt,
		EndsAt:    r.EndsAt,
		CreatedAt: r.CreatedAt,
		PaidAt:    r.PaidAt,
	}
}

// feeRepo stores the ledger. An empty reference is written as NULL so unpaid
// stubs never collide on the unique reference index.
type feeRepo struct{ tx *sqlx.Tx }

func (r feeRepo) Create(ctx context.Context, f *domainfees.Fee) error {
	err := r.tx.QueryRowxContext(ctx, `
		INSERT INTO listing_fees (listing_id, amount, currency, paid, reference, period, starts_at, ends_at, created_at, paid_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8, $9, $10)
		RETURNING id`,
		int64(f.ListingID), f.Amount.Amount, currencyOf(f.Amount), f.Paid, f.Reference,
		string(f.Period), f.StartsAt, f.EndsAt, f.CreatedAt, f.PaidAt,
	).Scan(&f.ID)
	switch {
	case isUniqueViolation(err):
		return domainfees.ErrDuplicate
	case isForeignKeyViolation(err):
		return domainlistings.ErrNotFound
	}
	return err
}

func (r feeRepo) Save(ctx context.Context, f *domainfees.Fee) error {
	res, err := r.tx.ExecContext(ctx, `
		UPDATE listing_fees SET amount = $2, currency = $3, paid = $4, reference = NULLIF($5, ''), period = $6,
			starts_at = $7, ends_at = $8, paid_at = $9
		WHERE id = $1`,
		int64(f.ID), f.Amount.Amount, currencyOf(f.Amount), f.Paid, f.Reference,
		string(f.Period), f.StartsAt, f.EndsAt, f.PaidAt,
	)
	if isUniqueViolation(err) {
		return domainfees.ErrDuplicate
	}
	return expectRow(res, err, domainfees.ErrNotFound)
}

func (r feeRepo) one(ctx context.Context, query string, args ...any) (*domainfees.Fee, error) {
	var row feeRow
	if err := r.tx.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domainfees.ErrNotFound
		}
		return nil, err
	}
	return row.toDomain(), nil
}

func (r feeRepo) ByReference(ctx context.Context, reference string) (*domainfees.Fee, error) {
	if reference == "" {
		return nil, domainfees.ErrNotFound
	}
	return r.one(ctx, `SELECT `+feeColumns+` FROM listing_fees WHERE reference = $1`, reference)
}

func (r feeRepo) UnpaidStub(ctx context.Context, listing domainlistings.ID) (*domainfees.Fee, error) {
	return r.one(ctx, `SELECT `+feeColumns+` FROM listing_fees WHERE listing_id = $1 AND NOT paid ORDER BY id LIMIT 1 FOR UPDATE`, int64(listing))
}

func (r feeRepo) ByListing(ctx context.Context, listing domainlistings.ID) ([]*domainfees.Fee, error) {
	var rows []feeRow
	if err := r.tx.SelectContext(ctx, &rows, `SELECT `+feeColumns+` FROM listing_fees WHERE listing_id = $1 ORDER BY id`, int64(listing)); err != nil {
		return nil, err
	}
	out := make([]*domainfees.Fee, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r feeRepo) DeleteByListing(ctx context.Context, listing domainlistings.ID) error {
	_, err := r.tx.ExecContext(ctx, `DELETE FROM listing_fees WHERE listing_id = $1`, int64(listing))
	return err
}
