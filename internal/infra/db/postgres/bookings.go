package postgres

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	domainbooking "padicrib/internal/domain/booking"
	domainlistings "padicrib/internal/domain/listings"
	"padicrib/internal/domain/shared/money"
	domainuser "padicrib/internal/domain/user"
)

const bookingColumns = `id, listing_id, user_id, start_date, end_date, nights, total_price, currency, paid, payment_reference, paid_at, created_at`

type bookingRow struct {
	ID               int64      `db:"id"`
	ListingID        int64      `db:"listing_id"`
	UserID           int64      `db:"user_id"`
	StartDate        time.Time  `db:"start_date"`
	EndDate          time.Time  `db:"end_date"`
	Nights           int        `db:"nights"`
	TotalPrice       int64      `db:"total_price"`
	Currency         string     `db:"currency"`
	Paid             bool       `db:"paid"`
	PaymentReference string     `db:"payment_reference"`
	PaidAt           *time.Time `db:"paid_at"`
	CreatedAt        time.Time  `db:"created_at"`
}

func (r bookingRow) toDomain() *domainbooking.Booking {
	return &domainbooking.Booking{
		ID:               domainbooking.ID(r.ID),
		ListingID:        domainlistings.ID(r.ListingID),
		UserID:           domainuser.ID(r.UserID),
		StartDate:        r.StartDate,
		EndDate:          r.EndDate,
		Nights:           r.Nights,
		TotalPrice:       money.Money{Amount: r.TotalPrice, Currency: r.Currency},
		Paid:             r.Paid,
		PaymentReference: r.PaymentReference,
		PaidAt:           r.PaidAt,
		Services:         []domainbooking.Service{},
		CreatedAt:        r.CreatedAt,
	}
}

type serviceRow struct {
	ID         int64  `db:"id"`
	BookingID  int64  `db:"booking_id"`
	Type       string `db:"type"`
	ProviderID *int64 `db:"provider_id"`
	Price      int64  `db:"price"`
	Currency   string `db:"currency"`
}

type bookingRepo struct{ tx *sqlx.Tx }

func (r bookingRepo) Create(ctx context.Context, b *domainbooking.Booking) error {
	err := r.tx.QueryRowxContext(ctx, `
		INSERT INTO bookings (listing_id, user_id, start_date, end_date, nights, total_price, currency, paid, payment_reference, paid_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`,
		int64(b.ListingID), int64(b.UserID), b.StartDate, b.EndDate, b.Nights, b.TotalPrice.Amount,
		currencyOf(b.TotalPrice), b.Paid, b.PaymentReference, b.PaidAt, b.CreatedAt,
	).Scan(&b.ID)
	if isForeignKeyViolation(err) {
		return domainlistings.ErrNotFound
	}
	if err != nil {
		return err
	}
	for i := range b.Services {
		svc := &b.Services[i]
		svc.BookingID = b.ID
		if err := r.tx.QueryRowxContext(ctx, `
			INSERT INTO booking_services (booking_id, type, provider_id, price, currency)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id`,
			int64(b.ID), string(svc.Type), svc.ProviderID, svc.Price.Amount, currencyOf(svc.Price),
		).Scan(&svc.ID); err != nil {
			return err
		}
	}
	return nil
}

func (r bookingRepo) many(ctx context.Context, query string, args ...any) ([]*domainbooking.Booking, error) {
	var rows []bookingRow
	if err := r.tx.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	out := make([]*domainbooking.Booking, 0, len(rows))
	if len(rows) == 0 {
		return out, nil
	}
	ids := make([]int64, 0, len(rows))
	index := make(map[domainbooking.ID]*domainbooking.Booking, len(rows))
	for _, row := range rows {
		b := row.toDomain()
		out = append(out, b)
		ids = append(ids, row.ID)
		index[b.ID] = b
	}
	q, qargs, err := sqlx.In(`SELECT id, booking_id, type, provider_id, price, currency FROM booking_services WHERE booking_id IN (?) ORDER BY id`, ids)
	if err != nil {
		return nil, err
	}
	var services []serviceRow
	if err := r.tx.SelectContext(ctx, &services, r.tx.Rebind(q), qargs...); err != nil {
		return nil, err
	}
	for _, s := range services {
		if b, ok := index[domainbooking.ID(s.BookingID)]; ok {
			b.Services = append(b.Services, domainbooking.Service{
				ID:         s.ID,
				BookingID:  b.ID,
				Type:       domainbooking.ServiceType(s.Type),
				ProviderID: s.ProviderID,
				Price:      money.Money{Amount: s.Price, Currency: s.Currency},
			})
		}
	}
	return out, nil
}

func (r bookingRepo) ByID(ctx context.Context, id domainbooking.ID) (*domainbooking.Booking, error) {
	found, err := r.many(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, int64(id))
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, domainbooking.ErrNotFound
	}
	return found[0], nil
}

func (r bookingRepo) ByListing(ctx context.Context, listing domainlistings.ID) ([]*domainbooking.Booking, error) {
	return r.many(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE listing_id = $1 ORDER BY id DESC`, int64(listing))
}

func (r bookingRepo) ByUser(ctx context.Context, u domainuser.ID) ([]*domainbooking.Booking, error) {
	return r.many(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE user_id = $1 ORDER BY id DESC`, int64(u))
}

// MarkPaid is a conditional write; concurrent confirmations flip the row once.
func (r bookingRepo) MarkPaid(ctx context.Context, id domainbooking.ID, reference string, at time.Time) (bool, error) {
	res, err := r.tx.ExecContext(ctx, `
		UPDATE bookings SET paid = TRUE, payment_reference = $2, paid_at = $3
		WHERE id = $1 AND NOT paid`,
		int64(id), reference, at.UTC(),
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 1 {
		return true, nil
	}
	var exists bool
	if err := r.tx.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM bookings WHERE id = $1)`, int64(id)); err != nil {
		return false, err
	}
	if !exists {
		return false, domainbooking.ErrNotFound
	}
	return false, nil
}

func (r bookingRepo) DeleteByListing(ctx context.Context, listing domainlistings.ID) error {
	_, err := r.tx.ExecContext(ctx, `DELETE FROM bookings WHERE listing_id = $1`, int64(listing))
	return err
}

func (r bookingRepo) DeleteByUser(ctx context.Context, u domainuser.ID) error {
	_, err := r.tx.ExecContext(ctx, `DELETE FROM bookings WHERE user_id = $1`, int64(u))
	return err
}
