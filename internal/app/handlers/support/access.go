package support

import (
	"padicrib/internal/app/services/auth"
	domainlistings "padicrib/internal/domain/listings"
	domainuser "padicrib/internal/domain/user"
)

// EnsureManager allows the listing owner plus admin and staff.
func EnsureManager(l *domainlistings.Listing, actor auth.Principal) error {
	if actor.HasRole(domainuser.RoleAdmin, domainuser.RoleStaff) {
		return nil
	}
	return l.EnsureOwner(actor.UserID)
}
