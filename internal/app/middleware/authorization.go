package middleware

import (
	"context"
	"errors"
	"slices"

	"padicrib/internal/app/services/auth"
	domainuser "padicrib/internal/domain/user"
)

var (
	ErrUnauthenticated = errors.New("middleware: authentication required")
	ErrForbidden       = errors.New("middleware: forbidden")
)

type Authorizer interface {
	Authorize(ctx context.Context, message any) error
}

// RoleRestricted is implemented by messages that only some roles may send.
type RoleRestricted interface {
	AllowedRoles() []domainuser.Role
}

// RoleAuthorizer checks RoleRestricted messages against the principal in ctx.
type RoleAuthorizer struct{}

func (RoleAuthorizer) Authorize(ctx context.Context, message any) error {
	restricted, ok := message.(RoleRestricted)
	if !ok {
		return nil
	}
	p, ok := auth.PrincipalFromContext(ctx)
	if !ok {
		return ErrUnauthenticated
	}
	if !slices.Contains(restricted.AllowedRoles(), p.Role) {
		return ErrForbidden
	}
	return nil
}

func Authorization(a Authorizer) CommandMiddleware {
	if a == nil {
		panic("middleware: authorizer required")
	}
	return check(a.Authorize).commands()
}

func QueryAuthorization(a Authorizer) QueryMiddleware {
	if a == nil {
		panic("middleware: authorizer required")
	}
	return check(a.Authorize).queries()
}
