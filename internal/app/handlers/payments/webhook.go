package payments

import (
	"context"
	"errors"
	"strings"

	"padicrib/internal/app/dto"
	"padicrib/internal/app/handlers/support"
	"padicrib/internal/app/policies"
	domainbooking "padicrib/internal/domain/booking"
	domainlistings "padicrib/internal/domain/listings"
	"padicrib/internal/domain/shared/money"
)

const (
	reconcileWebhookKey = "payments.webhook"

	// EventChargeSuccess is the only provider event that changes local state.
	EventChargeSuccess = "charge.success"
)

// ReconcileWebhookCommand carries a provider push whose signature has already
// been checked against the raw body.
type ReconcileWebhookCommand struct {
	Event     string                   `json:"event" validate:"required"`
	Reference string                   `json:"reference"`
	Amount    int64                    `json:"amount" validate:"gte=0"`
	Status    string                   `json:"status"`
	Metadata  policies.PaymentMetadata `json:"metadata"`
}

func (c ReconcileWebhookCommand) Key() string     { return reconcileWebhookKey }
func (c ReconcileWebhookCommand) Unmanaged() bool { return true }

type ReconcileWebhookHandler struct {
	Reconciler *Reconciler
}

func (h *ReconcileWebhookHandler) Handle(ctx context.Context, cmd ReconcileWebhookCommand) (dto.PaymentOutcome, error) {
	r := h.Reconciler
	logger := support.Logger(r.Logger)
	reference := strings.TrimSpace(cmd.Reference)
	if cmd.Event != EventChargeSuccess {
		logger.DebugContext(ctx, "webhook event ignored", "event", cmd.Event, "reference", reference)
		return dto.PaymentOutcome{OK: true, Reference: reference, Message: "event ignored"}, nil
	}
	if cmd.Status != "" && cmd.Status != policies.TransactionSuccess {
		return dto.PaymentOutcome{OK: true, Reference: reference, Message: "transaction not successful"}, nil
	}
	tx := policies.Transaction{
		Reference: reference,
		Status:    policies.TransactionSuccess,
		Amount:    money.Money{Amount: cmd.Amount, Currency: r.Pricing.Currency()},
		Metadata:  cmd.Metadata,
	}
	listingID, bookingID := FromMetadata(tx.Metadata)

	var (
		out dto.PaymentOutcome
		err error
	)
	switch {
	case listingID != 0:
		out, err = r.ApplyListing(ctx, ListingPayment{
			ListingID: listingID,
			Period:    domainlistings.ParsePeriod(cmd.Metadata.Period),
			Amount:    tx.Amount,
			Reference: reference,
		})
	case bookingID != 0:
		out, err = r.ApplyBooking(ctx, BookingPayment{BookingID: bookingID, Amount: tx.Amount, Reference: reference})
	default:
		logger.WarnContext(ctx, "webhook without listing or booking metadata", "reference", reference)
		return dto.PaymentOutcome{OK: true, Reference: reference, Message: "nothing to reconcile"}, nil
	}
	// the provider retries until it gets a 2xx, so unknown targets are acknowledged
	if errors.Is(err, domainlistings.ErrNotFound) || errors.Is(err, domainbooking.ErrNotFound) {
		logger.WarnContext(ctx, "webhook target not found", "reference", reference, "listing_id", listingID, "booking_id", bookingID)
		return dto.PaymentOutcome{OK: false, Reference: reference, Message: "payment target not found"}, nil
	}
	return out, err
}
