package admin

import (
	"context"

	"padicrib/internal/app/dto"
	"padicrib/internal/app/handlers/support"
	"padicrib/internal/app/uow"
	domainlistings "padicrib/internal/domain/listings"
	domainuser "padicrib/internal/domain/user"
	domainverification "padicrib/internal/domain/verification"
)

const (
	dashboardKey            = "admin.dashboard"
	verificationDocumentKey = "admin.verifications.document"
)

type DashboardQuery struct{}

func (q DashboardQuery) Key() string                     { return dashboardKey }
func (q DashboardQuery) AllowedRoles() []domainuser.Role { return adminOnly }

type DashboardHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *DashboardHandler) Handle(ctx context.Context, _ DashboardQuery) (dto.AdminDashboard, error) {
	unit, execCtx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.AdminDashboard{}, err
	}
	defer cleanup()

	byStatus := func(s domainlistings.Status) ([]dto.Listing, error) {
		found, err := unit.Listings().ByStatus(execCtx, s)
		if err != nil {
			return nil, err
		}
		return dto.MapListings(found), nil
	}
	var out dto.AdminDashboard
	if out.Pending, err = byStatus(domainlistings.StatusPending); err != nil {
		return dto.AdminDashboard{}, err
	}
	if out.AwaitingPayment, err = byStatus(domainlistings.StatusPaymentRequired); err != nil {
		return dto.AdminDashboard{}, err
	}
	if out.Suspended, err = byStatus(domainlistings.StatusSuspended); err != nil {
		return dto.AdminDashboard{}, err
	}
	pending, err := unit.Verifications().ByStatus(execCtx, domainverification.StatusPending)
	if err != nil {
		return dto.AdminDashboard{}, err
	}
	out.PendingVerifications = make([]dto.Verification, 0, len(pending))
	for _, v := range pending {
		out.PendingVerifications = append(out.PendingVerifications, dto.MapVerification(v))
	}
	return out, nil
}

// VerificationDocumentQuery resolves the stored name of an identity file. The
// transport resolves it against the private root.
type VerificationDocumentQuery struct {
	VerificationID domainverification.ID
	Document       string
}

func (q VerificationDocumentQuery) Key() string                     { return verificationDocumentKey }
func (q VerificationDocumentQuery) AllowedRoles() []domainuser.Role { return adminOnly }

type VerificationDocumentHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *VerificationDocumentHandler) Handle(ctx context.Context, q VerificationDocumentQuery) (string, error) {
	doc, err := domainverification.ParseDocument(q.Document)
	if err != nil {
		return "", err
	}
	unit, execCtx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return "", err
	}
	defer cleanup()
	v, err := unit.Verifications().ByID(execCtx, q.VerificationID)
	if err != nil {
		return "", err
	}
	path := v.Path(doc)
	if path == "" {
		return "", domainverification.ErrNotFound
	}
	return path, nil
}
