package admin

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"padicrib/internal/app/dto"
	"padicrib/internal/app/handlers/support"
	"padicrib/internal/app/services/auth"
	"padicrib/internal/app/uow"
	domainuser "padicrib/internal/domain/user"
)

const (
	suspendUserKey    = "admin.users.suspend"
	reactivateUserKey = "admin.users.reactivate"
	deleteUserKey     = "admin.users.delete"
	createStaffKey    = "admin.staff.create"
	listUsersKey      = "admin.users.list"
)

var ErrSelfAction = errors.New("admin: cannot perform this action on your own account")

type SuspendUserCommand struct {
	AdminID domainuser.ID `validate:"required"`
	UserID  domainuser.ID `validate:"required"`
	// Until is optional; without it the suspension lasts until lifted.
	Until  *time.Time `json:"until"`
	Reason string     `json:"reason" validate:"max=1000"`
}

func (c SuspendUserCommand) Key() string                     { return suspendUserKey }
func (c SuspendUserCommand) AllowedRoles() []domainuser.Role { return adminOnly }

type ReactivateUserCommand struct {
	AdminID domainuser.ID `validate:"required"`
	UserID  domainuser.ID `validate:"required"`
}

func (c ReactivateUserCommand) Key() string                     { return reactivateUserKey }
func (c ReactivateUserCommand) AllowedRoles() []domainuser.Role { return adminOnly }

type DeleteUserCommand struct {
	AdminID domainuser.ID `validate:"required"`
	UserID  domainuser.ID `validate:"required"`
}

func (c DeleteUserCommand) Key() string                     { return deleteUserKey }
func (c DeleteUserCommand) AllowedRoles() []domainuser.Role { return adminOnly }

type UsersHandler struct {
	Logger *slog.Logger
	Now    func() time.Time
}

func (h *UsersHandler) Suspend(ctx context.Context, cmd SuspendUserCommand) (dto.UserProfile, error) {
	if cmd.AdminID == cmd.UserID {
		return dto.UserProfile{}, ErrSelfAction
	}
	unit, err := support.Unit(ctx)
	if err != nil {
		return dto.UserProfile{}, err
	}
	target, err := unit.Users().ByID(ctx, cmd.UserID)
	if err != nil {
		return dto.UserProfile{}, err
	}
	now := support.Now(h.Now)
	if err := target.Suspend(cmd.Until, cmd.Reason, now); err != nil {
		return dto.UserProfile{}, err
	}
	if err := unit.Users().Save(ctx, target); err != nil {
		return dto.UserProfile{}, err
	}
	audit := domainuser.Suspension{UserID: target.ID, AdminID: cmd.AdminID, Reason: target.SuspensionReason, Until: cmd.Until, CreatedAt: now}
	if err := unit.Users().RecordSuspension(ctx, audit); err != nil {
		return dto.UserProfile{}, err
	}
	support.Logger(h.Logger).InfoContext(ctx, "user suspended", "user_id", target.ID, "admin_id", cmd.AdminID)
	return dto.MapUser(target), nil
}

func (h *UsersHandler) Reactivate(ctx context.Context, cmd ReactivateUserCommand) (dto.UserProfile, error) {
	unit, err := support.Unit(ctx)
	if err != nil {
		return dto.UserProfile{}, err
	}
	target, err := unit.Users().ByID(ctx, cmd.UserID)
	if err != nil {
		return dto.UserProfile{}, err
	}
	if err := target.Reactivate(support.Now(h.Now)); err != nil {
		return dto.UserProfile{}, err
	}
	if err := unit.Users().Save(ctx, target); err != nil {
		return dto.UserProfile{}, err
	}
	support.Logger(h.Logger).InfoContext(ctx, "user reactivated", "user_id", target.ID, "admin_id", cmd.AdminID)
	return dto.MapUser(target), nil
}

// Delete removes an account together with its bookings, reviews and
// conversation memberships. Owners must lose their listings first.
func (h *UsersHandler) Delete(ctx context.Context, cmd DeleteUserCommand) (struct{}, error) {
	if cmd.AdminID == cmd.UserID {
		return struct{}{}, ErrSelfAction
	}
	unit, err := support.Unit(ctx)
	if err != nil {
		return struct{}{}, err
	}
	target, err := unit.Users().ByID(ctx, cmd.UserID)
	if err != nil {
		return struct{}{}, err
	}
	if target.IsAdmin() {
		return struct{}{}, domainuser.ErrProtectedAccount
	}
	if err := unit.Bookings().DeleteByUser(ctx, target.ID); err != nil {
		return struct{}{}, err
	}
	if err := unit.Reviews().DeleteByUser(ctx, target.ID); err != nil {
		return struct{}{}, err
	}
	if err := unit.Conversations().RemoveMember(ctx, target.ID); err != nil {
		return struct{}{}, err
	}
	if err := unit.Users().Delete(ctx, target.ID); err != nil {
		return struct{}{}, err
	}
	support.Logger(h.Logger).InfoContext(ctx, "user deleted", "user_id", target.ID, "admin_id", cmd.AdminID)
	return struct{}{}, nil
}

type CreateStaffCommand struct {
	AdminID  domainuser.ID `validate:"required"`
	Name     string        `json:"name" validate:"required,max=120"`
	Email    string        `json:"email" validate:"required,email"`
	Phone    string        `json:"phone" validate:"max=32"`
	Password string        `json:"password" validate:"required,min=8"`
}

func (c CreateStaffCommand) Key() string                     { return createStaffKey }
func (c CreateStaffCommand) AllowedRoles() []domainuser.Role { return adminOnly }

type CreateStaffHandler struct {
	Passwords auth.PasswordHasher
	Logger    *slog.Logger
	Now       func() time.Time
}

func (h *CreateStaffHandler) Handle(ctx context.Context, cmd CreateStaffCommand) (dto.UserProfile, error) {
	unit, err := support.Unit(ctx)
	if err != nil {
		return dto.UserProfile{}, err
	}
	hash, err := h.Passwords.Hash(cmd.Password)
	if err != nil {
		return dto.UserProfile{}, err
	}
	staff, err := domainuser.NewUser(domainuser.CreateParams{
		Name:         cmd.Name,
		Email:        cmd.Email,
		Phone:        strings.TrimSpace(cmd.Phone),
		PasswordHash: hash,
		Role:         domainuser.RoleStaff,
		Now:          support.Now(h.Now),
	})
	if err != nil {
		return dto.UserProfile{}, err
	}
	if err := unit.Users().Create(ctx, staff); err != nil {
		return dto.UserProfile{}, err
	}
	support.Logger(h.Logger).InfoContext(ctx, "staff account created", "user_id", staff.ID, "admin_id", cmd.AdminID)
	return dto.MapUser(staff), nil
}

type ListUsersQuery struct{}

func (q ListUsersQuery) Key() string                     { return listUsersKey }
func (q ListUsersQuery) AllowedRoles() []domainuser.Role { return adminOnly }

type ListUsersHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *ListUsersHandler) Handle(ctx context.Context, _ ListUsersQuery) (dto.UserList, error) {
	unit, execCtx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.UserList{}, err
	}
	defer cleanup()
	all, err := unit.Users().List(execCtx)
	if err != nil {
		return dto.UserList{}, err
	}
	items := make([]dto.UserProfile, 0, len(all))
	for _, u := range all {
		items = append(items, dto.MapUser(u))
	}
	return dto.UserList{Items: items, Total: len(items)}, nil
}
