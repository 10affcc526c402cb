package user

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	ErrEmailRequired       = errors.New("user: email is required")
	ErrPasswordHashMissing = errors.New("user: password hash is required")
	ErrNameRequired        = errors.New("user: name is required")
	ErrInvalidRole         = errors.New("user: invalid role")
	ErrEmailAlreadyUsed    = errors.New("user: email already used")
	ErrNotFound            = errors.New("user: not found")
	ErrSuspended           = errors.New("user: account suspended")
	ErrNotSuspended        = errors.New("user: account is not suspended")
	ErrOwnsListings        = errors.New("user: account still owns listings")
	ErrProtectedAccount    = errors.New("user: admin accounts cannot be modified this way")
)

type ID int64

type Role string

const (
	RoleUser  Role = "user"
	RoleOwner Role = "owner"
	RoleStaff Role = "staff"
	RoleAdmin Role = "admin"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
)

type User struct {
	ID               ID
	Name             string
	Email            string
	Phone            string
	PasswordHash     string
	Role             Role
	Status           Status
	SuspendedUntil   *time.Time
	SuspensionReason string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Suspension is an audit row written whenever an admin suspends an account.
type Suspension struct {
	UserID    ID
	AdminID   ID
	Reason    string
	Until     *time.Time
	CreatedAt time.Time
}

type Repository interface {
	ByID(ctx context.Context, id ID) (*User, error)
	ByEmail(ctx context.Context, email string) (*User, error)
	FirstByRole(ctx context.Context, role Role) (*User, error)
	List(ctx context.Context) ([]*User, error)
	Create(ctx context.Context, user *User) error
	Save(ctx context.Context, user *User) error
	Delete(ctx context.Context, id ID) error
	RecordSuspension(ctx context.Context, s Suspension) error
}

type CreateParams struct {
	Name         string
	Email        string
	Phone        string
	PasswordHash string
	Role         Role
	Now          time.Time
}

func NewUser(params CreateParams) (*User, error) {
	email := NormalizeEmail(params.Email)
	if email == "" {
		return nil, ErrEmailRequired
	}
	name := strings.TrimSpace(params.Name)
	if name == "" {
		return nil, ErrNameRequired
	}
	if strings.TrimSpace(params.PasswordHash) == "" {
		return nil, ErrPasswordHashMissing
	}
	role := params.Role
	if role == "" {
		role = RoleUser
	}
	role, err := ParseRole(string(role))
	if err != nil {
		return nil, err
	}
	now := params.Now
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()
	return &User{
		Name:         name,
		Email:        email,
		Phone:        strings.TrimSpace(params.Phone),
		PasswordHash: params.PasswordHash,
		Role:         role,
		Status:       StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// Suspend blocks the account, optionally until a point in time.
func (u *User) Suspend(until *time.Time, reason string, now time.Time) error {
	if u.Role == RoleAdmin {
		return ErrProtectedAccount
	}
	u.Status = StatusSuspended
	if until != nil {
		t := until.UTC()
		u.SuspendedUntil = &t
	} else {
		u.SuspendedUntil = nil
	}
	u.SuspensionReason = strings.TrimSpace(reason)
	u.touch(now)
	return nil
}

func (u *User) Reactivate(now time.Time) error {
	if u.Status != StatusSuspended {
		return ErrNotSuspended
	}
	u.Status = StatusActive
	u.SuspendedUntil = nil
	u.SuspensionReason = ""
	u.touch(now)
	return nil
}

// RefreshSuspension lifts an expired timed suspension. It reports whether the
// user changed and whether the account is still suspended afterwards.
func (u *User) RefreshSuspension(now time.Time) (changed bool, suspended bool) {
	if u.Status != StatusSuspended {
		return false, false
	}
	if u.SuspendedUntil != nil && !now.Before(*u.SuspendedUntil) {
		_ = u.Reactivate(now)
		return true, false
	}
	return false, true
}

// PromoteToOwner upgrades a plain user once they publish a listing.
func (u *User) PromoteToOwner(now time.Time) bool {
	if u.Role != RoleUser {
		return false
	}
	u.Role = RoleOwner
	u.touch(now)
	return true
}

func (u *User) HasAnyRole(roles ...Role) bool {
	for _, r := range roles {
		if u.Role == r {
			return true
		}
	}
	return false
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

func (u *User) touch(now time.Time) {
	if now.IsZero() {
		now = time.Now()
	}
	u.UpdatedAt = now.UTC()
}

func ParseRole(raw string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(raw))) {
	case RoleUser:
		return RoleUser, nil
	case RoleOwner:
		return RoleOwner, nil
	case RoleStaff:
		return RoleStaff, nil
	case RoleAdmin:
		return RoleAdmin, nil
	default:
		return "", ErrInvalidRole
	}
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
