package payments

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"padicrib/internal/app/dto"
	"padicrib/internal/app/handlers/support"
	"padicrib/internal/app/policies"
	"padicrib/internal/app/services/auth"
	"padicrib/internal/app/uow"
	domainfees "padicrib/internal/domain/fees"
	domainlistings "padicrib/internal/domain/listings"
	domainuser "padicrib/internal/domain/user"
)

const (
	initiateListingPaymentKey = "payments.listing.initiate"
	confirmListingPaymentKey  = "payments.listing.confirm"
	stubListingPaymentKey     = "payments.listing.stub"
)

var payerRoles = []domainuser.Role{domainuser.RoleUser, domainuser.RoleOwner, domainuser.RoleStaff, domainuser.RoleAdmin}

// InitiateListingPaymentCommand starts a subscription checkout for a listing.
type InitiateListingPaymentCommand struct {
	Actor     auth.Principal
	ListingID domainlistings.ID `validate:"required"`
	Period    string            `json:"period" validate:"omitempty,oneof=monthly yearly"`
}

func (c InitiateListingPaymentCommand) Key() string                     { return initiateListingPaymentKey }
func (c InitiateListingPaymentCommand) AllowedRoles() []domainuser.Role { return payerRoles }
func (c InitiateListingPaymentCommand) Unmanaged() bool                 { return true }

type InitiateListingPaymentHandler struct {
	UoW         uow.UoWFactory
	Gateway     policies.PaymentGateway
	Pricing     policies.Pricing
	CallbackURL string
	Logger      *slog.Logger
	Now         func() time.Time
}

func (h *InitiateListingPaymentHandler) Handle(ctx context.Context, cmd InitiateListingPaymentCommand) (dto.PaymentRedirect, error) {
	if h.Gateway == nil {
		return dto.PaymentRedirect{}, policies.ErrGatewayUnavailable
	}
	var (
		listing *domainlistings.Listing
		payer   *domainuser.User
	)
	err := support.Managed(ctx, h.UoW, func(ctx context.Context, unit uow.UnitOfWork) error {
		var err error
		if listing, err = unit.Listings().ByID(ctx, cmd.ListingID); err != nil {
			return err
		}
		if err := support.EnsureManager(listing, cmd.Actor); err != nil {
			return err
		}
		payer, err = unit.Users().ByID(ctx, listing.OwnerID)
		return err
	})
	if err != nil {
		return dto.PaymentRedirect{}, err
	}

	period := domainlistings.ParsePeriod(cmd.Period)
	amount := h.Pricing.PeriodFee(period)
	reference := domainfees.Reference(listing.ID, support.Now(h.Now))
	res, err := h.Gateway.Initialize(ctx, policies.InitializeRequest{
		Email:       payer.Email,
		Amount:      amount,
		Reference:   reference,
		CallbackURL: h.CallbackURL,
		Metadata:    policies.PaymentMetadata{ListingID: int64(listing.ID), Period: string(period)},
	})
	if err != nil {
		support.Logger(h.Logger).WarnContext(ctx, "listing payment initialize failed", "listing_id", listing.ID, "reference", reference, "error", err)
		return dto.PaymentRedirect{}, err
	}
	if res.Reference != "" {
		reference = res.Reference
	}
	return dto.PaymentRedirect{
		Reference:        reference,
		AuthorizationURL: res.AuthorizationURL,
		AccessCode:       res.AccessCode,
		Amount:           dto.MapMoney(amount),
	}, nil
}

// ConfirmListingPaymentCommand is the pull path: the payer returns from the
// provider and the reference is verified server side.
type ConfirmListingPaymentCommand struct {
	Reference string `json:"reference" validate:"required"`
}

func (c ConfirmListingPaymentCommand) Key() string     { return confirmListingPaymentKey }
func (c ConfirmListingPaymentCommand) Unmanaged() bool { return true }

type ConfirmListingPaymentHandler struct {
	Gateway    policies.PaymentGateway
	Reconciler *Reconciler
}

func (h *ConfirmListingPaymentHandler) Handle(ctx context.Context, cmd ConfirmListingPaymentCommand) (dto.PaymentOutcome, error) {
	if h.Gateway == nil {
		return dto.PaymentOutcome{}, policies.ErrGatewayUnavailable
	}
	reference := strings.TrimSpace(cmd.Reference)
	tx, err := h.Gateway.Verify(ctx, reference)
	if err != nil {
		return dto.PaymentOutcome{}, err
	}
	if !tx.Succeeded() {
		return dto.PaymentOutcome{OK: false, Reference: reference, Message: fmt.Sprintf("transaction status is %q", tx.Status)}, nil
	}
	listingID, _ := Resolve(tx)
	if listingID == 0 {
		return dto.PaymentOutcome{OK: false, Reference: reference, Message: "transaction is not a listing payment"}, nil
	}
	return h.Reconciler.ApplyListing(ctx, ListingPayment{
		ListingID: listingID,
		Period:    domainlistings.ParsePeriod(tx.Metadata.Period),
		Amount:    tx.Amount,
		Reference: tx.Reference,
	})
}

// StubListingPaymentCommand marks a listing fee paid without the provider.
// It only works when the stub is switched on in configuration.
type StubListingPaymentCommand struct {
	Actor     auth.Principal
	ListingID domainlistings.ID `validate:"required"`
	Period    string            `json:"period" validate:"omitempty,oneof=monthly yearly"`
}

func (c StubListingPaymentCommand) Key() string                     { return stubListingPaymentKey }
func (c StubListingPaymentCommand) AllowedRoles() []domainuser.Role { return payerRoles }
func (c StubListingPaymentCommand) Unmanaged() bool                 { return true }

type StubListingPaymentHandler struct {
	Enabled    bool
	Reconciler *Reconciler
}

func (h *StubListingPaymentHandler) Handle(ctx context.Context, cmd StubListingPaymentCommand) (dto.PaymentOutcome, error) {
	if !h.Enabled {
		return dto.PaymentOutcome{}, ErrStubDisabled
	}
	r := h.Reconciler
	err := support.Managed(ctx, r.UoW, func(ctx context.Context, unit uow.UnitOfWork) error {
		listing, err := unit.Listings().ByID(ctx, cmd.ListingID)
		if err != nil {
			return err
		}
		return support.EnsureManager(listing, cmd.Actor)
	})
	if err != nil {
		return dto.PaymentOutcome{}, err
	}
	period := domainlistings.ParsePeriod(cmd.Period)
	return r.ApplyListing(ctx, ListingPayment{
		ListingID: cmd.ListingID,
		Period:    period,
		Amount:    r.Pricing.PeriodFee(period),
		Reference: "stub-" + domainfees.Reference(cmd.ListingID, support.Now(r.Now)),
	})
}
