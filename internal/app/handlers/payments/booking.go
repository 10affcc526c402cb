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
	"padicrib/internal/app/uow"
	domainbooking "padicrib/internal/domain/booking"
	domainuser "padicrib/internal/domain/user"
)

const (
	initiateBookingPaymentKey = "payments.booking.initiate"
	verifyBookingPaymentKey   = "payments.booking.verify"
)

type InitiateBookingPaymentCommand struct {
	UserID    domainuser.ID    `validate:"required"`
	BookingID domainbooking.ID `validate:"required"`
}

func (c InitiateBookingPaymentCommand) Key() string                     { return initiateBookingPaymentKey }
func (c InitiateBookingPaymentCommand) AllowedRoles() []domainuser.Role { return payerRoles }
func (c InitiateBookingPaymentCommand) Unmanaged() bool                 { return true }

type InitiateBookingPaymentHandler struct {
	UoW         uow.UoWFactory
	Gateway     policies.PaymentGateway
	CallbackURL string
	Logger      *slog.Logger
	Now         func() time.Time
}

func (h *InitiateBookingPaymentHandler) Handle(ctx context.Context, cmd InitiateBookingPaymentCommand) (dto.PaymentRedirect, error) {
	if h.Gateway == nil {
		return dto.PaymentRedirect{}, policies.ErrGatewayUnavailable
	}
	var (
		b     *domainbooking.Booking
		payer *domainuser.User
	)
	err := support.Managed(ctx, h.UoW, func(ctx context.Context, unit uow.UnitOfWork) error {
		var err error
		if b, err = unit.Bookings().ByID(ctx, cmd.BookingID); err != nil {
			return err
		}
		if err := b.EnsureBooker(cmd.UserID); err != nil {
			return err
		}
		if b.Paid {
			return domainbooking.ErrAlreadyPaid
		}
		payer, err = unit.Users().ByID(ctx, cmd.UserID)
		return err
	})
	if err != nil {
		return dto.PaymentRedirect{}, err
	}
	reference := domainbooking.Reference(b.ID, support.Now(h.Now))
	res, err := h.Gateway.Initialize(ctx, policies.InitializeRequest{
		Email:       payer.Email,
		Amount:      b.TotalPrice,
		Reference:   reference,
		CallbackURL: h.CallbackURL,
		Metadata:    policies.PaymentMetadata{BookingID: int64(b.ID)},
	})
	if err != nil {
		support.Logger(h.Logger).WarnContext(ctx, "booking payment initialize failed", "booking_id", b.ID, "reference", reference, "error", err)
		return dto.PaymentRedirect{}, err
	}
	if res.Reference != "" {
		reference = res.Reference
	}
	return dto.PaymentRedirect{
		Reference:        reference,
		AuthorizationURL: res.AuthorizationURL,
		AccessCode:       res.AccessCode,
		Amount:           dto.MapMoney(b.TotalPrice),
	}, nil
}

type VerifyBookingPaymentCommand struct {
	Reference string `json:"reference" validate:"required"`
}

func (c VerifyBookingPaymentCommand) Key() string     { return verifyBookingPaymentKey }
func (c VerifyBookingPaymentCommand) Unmanaged() bool { return true }

type VerifyBookingPaymentHandler struct {
	Gateway    policies.PaymentGateway
	Reconciler *Reconciler
}

func (h *VerifyBookingPaymentHandler) Handle(ctx context.Context, cmd VerifyBookingPaymentCommand) (dto.PaymentOutcome, error) {
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
	_, bookingID := Resolve(tx)
	if bookingID == 0 {
		return dto.PaymentOutcome{OK: false, Reference: reference, Message: "transaction is not a booking payment"}, nil
	}
	return h.Reconciler.ApplyBooking(ctx, BookingPayment{BookingID: bookingID, Amount: tx.Amount, Reference: tx.Reference})
}
