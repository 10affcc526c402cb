package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	domainbooking "padicrib/internal/domain/booking"
	domainproviders "padicrib/internal/domain/providers"
)

type providerRow struct {
	ID        int64     `db:"id"`
	Type      string    `db:"type"`
	Name      string    `db:"name"`
	Phone     string    `db:"phone"`
	CreatedAt time.Time `db:"created_at"`
}

func (r providerRow) toDomain() *domainproviders.Provider {
	return &domainproviders.Provider{
		ID:        domainproviders.ID(r.ID),
		Type:      domainbooking.ServiceType(r.Type),
		Name:      r.Name,
		Phone:     r.Phone,
		CreatedAt: r.CreatedAt,
	}
}

type providerRepo struct{ tx *sqlx.Tx }

func (r providerRepo) Create(ctx context.Context, p *domainproviders.Provider) error {
	return r.tx.QueryRowxContext(ctx, `
		INSERT INTO providers (type, name, phone, created_at) VALUES ($1, $2, $3, $4) RETURNING id`,
		string(p.Type), p.Name, p.Phone, p.CreatedAt,
	).Scan(&p.ID)
}

func (r providerRepo) ByID(ctx context.Context, id domainproviders.ID) (*domainproviders.Provider, error) {
	var row providerRow
	if err := r.tx.GetContext(ctx, &row, `SELECT id, type, name, phone, created_at FROM providers WHERE id = $1`, int64(id)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domainproviders.ErrNotFound
		}
		return nil, err
	}
	return row.toDomain(), nil
}

func (r providerRepo) List(ctx context.Context, kind domainbooking.ServiceType) ([]*domainproviders.Provider, error) {
	var rows []providerRow
	err := r.tx.SelectContext(ctx, &rows, `
		SELECT id, type, name, phone, created_at FROM providers
		WHERE $1 = '' OR type = $1
		ORDER BY id`, string(kind))
	if err != nil {
		return nil, err
	}
	out := make([]*domainproviders.Provider, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}
