package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	domainuser "padicrib/internal/domain/user"
)

const userColumns = `id, name, email, phone, password_hash, role, status, suspended_until, suspension_reason, created_at, updated_at`

type userRow struct {
	ID               int64      `db:"id"`
	Name             string     `db:"name"`
	Email            string     `db:"email"`
	Phone            string     `db:"phone"`
	PasswordHash     string     `db:"password_hash"`
	Role             string     `db:"role"`
	Status           string     `db:"status"`
	SuspendedUntil   *time.Time `db:"suspended_until"`
	SuspensionReason string     `db:"suspension_reason"`
	CreatedAt        time.Time  `db:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at"`
}

func (r userRow) toDomain() *domainuser.User {
	return &domainuser.User{
		ID:               domainuser.ID(r.ID),
		Name:             r.Name,
		Email:            r.Email,
		Phone:            r.Phone,
		PasswordHash:     r.PasswordHash,
		Role:             domainuser.Role(r.Role),
		Status:           domainuser.Status(r.Status),
		SuspendedUntil:   r.SuspendedUntil,
		SuspensionReason: r.SuspensionReason,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
}

type userRepo struct{ tx *sqlx.Tx }

func (r userRepo) one(ctx context.Context, query string, args ...any) (*domainuser.User, error) {
	var row userRow
	if err := r.tx.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domainuser.ErrNotFound
		}
		return nil, err
	}
	return row.toDomain(), nil
}

func (r userRepo) ByID(ctx context.Context, id domainuser.ID) (*domainuser.User, error) {
	return r.one(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, int64(id))
}

func (r userRepo) ByEmail(ctx context.Context, email string) (*domainuser.User, error) {
	return r.one(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, domainuser.NormalizeEmail(email))
}

func (r userRepo) FirstByRole(ctx context.Context, role domainuser.Role) (*domainuser.User, error) {
	return r.one(ctx, `SELECT `+userColumns+` FROM users WHERE role = $1 ORDER BY id LIMIT 1`, string(role))
}

func (r userRepo) List(ctx context.Context) ([]*domainuser.User, error) {
	var rows []userRow
	if err := r.tx.SelectContext(ctx, &rows, `SELECT `+userColumns+` FROM users ORDER BY id DESC`); err != nil {
		return nil, err
	}
	out := make([]*domainuser.User, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r userRepo) Create(ctx context.Context, u *domainuser.User) error {
	err := r.tx.QueryRowxContext(ctx, `
		INSERT INTO users (name, email, phone, password_hash, role, status, suspended_until, suspension_reason, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`,
		u.Name, u.Email, u.Phone, u.PasswordHash, string(u.Role), string(u.Status),
		u.SuspendedUntil, u.SuspensionReason, u.CreatedAt, u.UpdatedAt,
	).Scan(&u.ID)
	if isUniqueViolation(err) {
		return domainuser.ErrEmailAlreadyUsed
	}
	return err
}

func (r userRepo) Save(ctx context.Context, u *domainuser.User) error {
	res, err := r.tx.ExecContext(ctx, `
		UPDATE users SET name = $2, phone = $3, password_hash = $4, role = $5, status = $6,
			suspended_until = $7, suspension_reason = $8, updated_at = $9
		WHERE id = $1`,
		int64(u.ID), u.Name, u.Phone, u.PasswordHash, string(u.Role), string(u.Status),
		u.SuspendedUntil, u.SuspensionReason, u.UpdatedAt,
	)
	return expectRow(res, err, domainuser.ErrNotFound)
}

func (r userRepo) Delete(ctx context.Context, id domainuser.ID) error {
	res, err := r.tx.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, int64(id))
	if isForeignKeyViolation(err) {
		return domainuser.ErrOwnsListings
	}
	return expectRow(res, err, domainuser.ErrNotFound)
}

func (r userRepo) RecordSuspension(ctx context.Context, s domainuser.Suspension) error {
	var admin *int64
	if s.AdminID != 0 {
		id := int64(s.AdminID)
		admin = &id
	}
	_, err := r.tx.ExecContext(ctx, `
		INSERT INTO user_suspensions (user_id, admin_id, reason, until, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		int64(s.UserID), admin, s.Reason, s.Until, s.CreatedAt,
	)
	return err
}

// expectRow turns a zero-row write into notFound.
func expectRow(res sql.Result, err error, notFound error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}
