package auth

import (
	"context"

	domainuser "padicrib/internal/domain/user"
)

// Principal is the authenticated caller attached to a request context.
type Principal struct {
	UserID domainuser.ID
	Name   string
	Role   domainuser.Role
}

func PrincipalFor(u *domainuser.User) Principal {
	return Principal{UserID: u.ID, Name: u.Name, Role: u.Role}
}

func (p Principal) HasRole(roles ...domainuser.Role) bool {
	for _, r := range roles {
		if p.Role == r {
			return true
		}
	}
	return false
}

type principalKey struct{}

func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok && p.UserID != 0
}
