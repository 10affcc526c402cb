package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	domainlistings "padicrib/internal/domain/listings"
	domainuser "padicrib/internal/domain/user"
	domainverification "padicrib/internal/domain/verification"
)

const verificationColumns = `id, listing_id, owner_id, selfie_path, id_card_path, id_number, status, admin_notes, created_at, reviewed_at`

type verificationRow struct {
	ID         int64      `db:"id"`
	ListingID  int64      `db:"listing_id"`
	OwnerID    int64      `db:"owner_id"`
	SelfiePath string     `db:"selfie_path"`
	IDCardPath string     `db:"id_card_path"`
	IDNumber   string     `db:"id_number"`
	Status     string     `db:"status"`
	AdminNotes string     `db:"admin_notes"`
	CreatedAt  time.Time  `db:"created_at"`
	ReviewedAt *time.Time `db:"reviewed_at"`
}

func (r verificationRow) toDomain() *domainverification.Verification {
	return &domainverification.Verification{
		ID:         domainverification.ID(r.ID),
		ListingID:  domainlistings.ID(r.ListingID),
		OwnerID:    domainuser.ID(r.OwnerID),
		SelfiePath: r.SelfiePath,
		IDCardPath: r.IDCardPath,
		IDNumber:   r.IDNumber,
		Status:     domainverification.Status(r.Status),
		AdminNotes: r.AdminNotes,
		CreatedAt:  r.CreatedAt,
		ReviewedAt: r.ReviewedAt,
	}
}

type verificationRepo struct{ tx *sqlx.Tx }

func (r verificationRepo) one(ctx context.Context, query string, args ...any) (*domainverification.Verification, error) {
	var row verificationRow
	if err := r.tx.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domainverification.ErrNotFound
		}
		return nil, err
	}
	return row.toDomain(), nil
}

func (r verificationRepo) ByID(ctx context.Context, id domainverification.ID) (*domainverification.Verification, error) {
	return r.one(ctx, `SELECT `+verificationColumns+` FROM verifications WHERE id = $1`, int64(id))
}

func (r verificationRepo) ByListing(ctx context.Context, listing domainlistings.ID) (*domainverification.Verification, error) {
	return r.one(ctx, `SELECT `+verificationColumns+` FROM verifications WHERE listing_id = $1 ORDER BY id DESC LIMIT 1`, int64(listing))
}

func (r verificationRepo) ByStatus(ctx context.Context, status domainverification.Status) ([]*domainverification.Verification, error) {
	var rows []verificationRow
	if err := r.tx.SelectContext(ctx, &rows, `SELECT `+verificationColumns+` FROM verifications WHERE status = $1 ORDER BY id`, string(status)); err != nil {
		return nil, err
	}
	out := make([]*domainverification.Verification, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r verificationRepo) Create(ctx context.Context, v *domainverification.Verification) error {
	err := r.tx.QueryRowxContext(ctx, `
		INSERT INTO verifications (listing_id, owner_id, selfie_path, id_card_path, id_number, status, admin_notes, created_at, reviewed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`,
		int64(v.ListingID), int64(v.OwnerID), v.SelfiePath, v.IDCardPath, v.IDNumber,
		string(v.Status), v.AdminNotes, v.CreatedAt, v.ReviewedAt,
	).Scan(&v.ID)
	if isForeignKeyViolation(err) {
		return domainlistings.ErrNotFound
	}
	return err
}

func (r verificationRepo) Save(ctx context.Context, v *domainverification.Verification) error {
	res, err := r.tx.ExecContext(ctx, `
		UPDATE verifications SET status = $2, admin_notes = $3, reviewed_at = $4 WHERE id = $1`,
		int64(v.ID), string(v.Status), v.AdminNotes, v.ReviewedAt,
	)
	return expectRow(res, err, domainverification.ErrNotFound)
}

func (r verificationRepo) DeleteByListing(ctx context.Context, listing domainlistings.ID) error {
	_, err := r.tx.ExecContext(ctx, `DELETE FROM verifications WHERE listing_id = $1`, int64(listing))
	return err
}
