package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	domainlistings "padicrib/internal/domain/listings"
	domainreviews "padicrib/internal/domain/reviews"
	domainuser "padicrib/internal/domain/user"
)

// The author's current name wins over the one captured at write time.
const reviewSelect = `
	SELECT r.id, r.listing_id, r.user_id, COALESCE(u.name, r.user_name) AS user_name,
		r.rating, r.comment, r.parent_id, r.created_at
	FROM reviews r LEFT JOIN users u ON u.id = r.user_id`

type reviewRow struct {
	ID        int64     `db:"id"`
	ListingID int64     `db:"listing_id"`
	UserID    int64     `db:"user_id"`
	UserName  string    `db:"user_name"`
	Rating    int       `db:"rating"`
	Comment   string    `db:"comment"`
	ParentID  *int64    `db:"parent_id"`
	CreatedAt time.Time `db:"created_at"`
}

func (r reviewRow) toDomain() *domainreviews.Review {
	rv := &domainreviews.Review{
		ID:        domainreviews.ID(r.ID),
		ListingID: domainlistings.ID(r.ListingID),
		UserID:    domainuser.ID(r.UserID),
		UserName:  r.UserName,
		Rating:    r.Rating,
		Comment:   r.Comment,
		CreatedAt: r.CreatedAt,
	}
	if r.ParentID != nil {
		pid := domainreviews.ID(*r.ParentID)
		rv.ParentID = &pid
	}
	return rv
}

type reviewRepo struct{ tx *sqlx.Tx }

func (r reviewRepo) Create(ctx context.Context, rv *domainreviews.Review) error {
	var parent *int64
	if rv.ParentID != nil {
		id := int64(*rv.ParentID)
		parent = &id
	}
	err := r.tx.QueryRowxContext(ctx, `
		INSERT INTO reviews (listing_id, user_id, user_name, rating, comment, parent_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		int64(rv.ListingID), int64(rv.UserID), rv.UserName, rv.Rating, rv.Comment, parent, rv.CreatedAt,
	).Scan(&rv.ID)
	if isForeignKeyViolation(err) {
		if parent != nil {
			return domainreviews.ErrNotFound
		}
		return domainlistings.ErrNotFound
	}
	return err
}

func (r reviewRepo) ByID(ctx context.Context, id domainreviews.ID) (*domainreviews.Review, error) {
	var row reviewRow
	if err := r.tx.GetContext(ctx, &row, reviewSelect+` WHERE r.id = $1`, int64(id)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domainreviews.ErrNotFound
		}
		return nil, err
	}
	return row.toDomain(), nil
}

func (r reviewRepo) ByListing(ctx context.Context, listing domainlistings.ID) ([]*domainreviews.Review, error) {
	var rows []reviewRow
	if err := r.tx.SelectContext(ctx, &rows, reviewSelect+` WHERE r.listing_id = $1 ORDER BY r.created_at, r.id`, int64(listing)); err != nil {
		return nil, err
	}
	out := make([]*domainreviews.Review, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

// Replies cascade with their parent through the parent_id foreign key.
func (r reviewRepo) DeleteByListing(ctx context.Context, listing domainlistings.ID) error {
	_, err := r.tx.ExecContext(ctx, `DELETE FROM reviews WHERE listing_id = $1`, int64(listing))
	return err
}

func (r reviewRepo) DeleteByUser(ctx context.Context, u domainuser.ID) error {
	_, err := r.tx.ExecContext(ctx, `DELETE FROM reviews WHERE user_id = $1`, int64(u))
	return err
}
