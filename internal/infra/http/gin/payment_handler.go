package ginserver

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	gin "github.com/gin-gonic/gin"

	"padicrib/internal/app/commands"
	"padicrib/internal/app/dto"
	paymentapp "padicrib/internal/app/handlers/payments"
	domainbooking "padicrib/internal/domain/booking"
	domainlistings "padicrib/internal/domain/listings"
	"padicrib/internal/infra/obs"
	"padicrib/internal/infra/payments/paystack"
)

const maxWebhookBody = 1 << 20

type PaymentHTTP interface {
	InitiateBooking(c *gin.Context)
	VerifyBooking(c *gin.Context)
	InitiateListing(c *gin.Context)
	ListingCallback(c *gin.Context)
	StubListing(c *gin.Context)
	Webhook(c *gin.Context)
}

type PaymentHandler struct {
	Commands commands.Bus
	// WebhookSecret signs provider pushes; it is the provider secret key.
	WebhookSecret string
	// CallbackRedirect, when set, turns the listing callback into a browser redirect.
	CallbackRedirect string
	Logger           *slog.Logger
}

type listingPaymentRequest struct {
	ListingID int64  `json:"listing_id"`
	Period    string `json:"period"`
}

type bookingPaymentRequest struct {
	BookingID int64 `json:"booking_id"`
}

func (h PaymentHandler) InitiateBooking(c *gin.Context) {
	user, ok := requireRole(c)
	if !ok {
		return
	}
	var req bookingPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	result, err := commands.Dispatch[paymentapp.InitiateBookingPaymentCommand, dto.PaymentRedirect](c.Request.Context(), h.Commands, paymentapp.InitiateBookingPaymentCommand{
		UserID:    user.UserID,
		BookingID: domainbooking.ID(req.BookingID),
	})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h PaymentHandler) VerifyBooking(c *gin.Context) {
	result, err := commands.Dispatch[paymentapp.VerifyBookingPaymentCommand, dto.PaymentOutcome](c.Request.Context(), h.Commands, paymentapp.VerifyBookingPaymentCommand{
		Reference: callbackReference(c),
	})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h PaymentHandler) InitiateListing(c *gin.Context) {
	p, ok := requireRole(c)
	if !ok {
		return
	}
	var req listingPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	result, err := commands.Dispatch[paymentapp.InitiateListingPaymentCommand, dto.PaymentRedirect](c.Request.Context(), h.Commands, paymentapp.InitiateListingPaymentCommand{
		Actor:     p,
		ListingID: domainlistings.ID(req.ListingID),
		Period:    req.Period,
	})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ListingCallback is where the provider sends the payer back after checkout.
func (h PaymentHandler) ListingCallback(c *gin.Context) {
	result, err := commands.Dispatch[paymentapp.ConfirmListingPaymentCommand, dto.PaymentOutcome](c.Request.Context(), h.Commands, paymentapp.ConfirmListingPaymentCommand{
		Reference: callbackReference(c),
	})
	if h.CallbackRedirect == "" {
		if err != nil {
			respondError(c, h.Logger, err)
			return
		}
		c.JSON(http.StatusOK, result)
		return
	}
	values := url.Values{}
	switch {
	case err != nil:
		values.Set("status", "error")
		values.Set("message", err.Error())
	case result.OK:
		values.Set("status", "success")
	default:
		values.Set("status", "failed")
		values.Set("message", result.Message)
	}
	if result.ListingID != 0 {
		values.Set("listing_id", strconv.FormatInt(result.ListingID, 10))
	}
	c.Redirect(http.StatusFound, appendQuery(h.CallbackRedirect, values))
}

func (h PaymentHandler) StubListing(c *gin.Context) {
	p, ok := requireRole(c)
	if !ok {
		return
	}
	var req listingPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	result, err := commands.Dispatch[paymentapp.StubListingPaymentCommand, dto.PaymentOutcome](c.Request.Context(), h.Commands, paymentapp.StubListingPaymentCommand{
		Actor:     p,
		ListingID: domainlistings.ID(req.ListingID),
		Period:    req.Period,
	})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Webhook authenticates the raw body before anything is parsed. Once the
// signature holds, every handled outcome is acknowledged with 200 so the
// provider stops retrying; only internal failures ask for a retry.
func (h PaymentHandler) Webhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		badRequest(c, "unreadable body")
		return
	}
	if err := paystack.VerifySignature(h.WebhookSecret, body, c.GetHeader(paystack.SignatureHeader)); err != nil {
		if log := obs.RequestLogger(c, h.Logger); log != nil {
			log.WarnContext(c.Request.Context(), "webhook rejected", "error", err)
		}
		c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "invalid signature"})
		return
	}
	var evt paystack.WebhookEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		badRequest(c, "invalid payload")
		return
	}
	result, err := commands.Dispatch[paymentapp.ReconcileWebhookCommand, dto.PaymentOutcome](c.Request.Context(), h.Commands, paymentapp.ReconcileWebhookCommand{
		Event:     evt.Event,
		Reference: evt.Data.Reference,
		Amount:    evt.Data.Amount,
		Status:    evt.Data.Status,
		Metadata:  paystack.ParseMetadata(evt.Data.Metadata),
	})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// callbackReference accepts both names the provider uses for the reference.
func callbackReference(c *gin.Context) string {
	if ref := strings.TrimSpace(c.Query("reference")); ref != "" {
		return ref
	}
	return strings.TrimSpace(c.Query("trxref"))
}

func appendQuery(target string, values url.Values) string {
	u, err := url.Parse(target)
	if err != nil {
		return target
	}
	q := u.Query()
	for k, vs := range values {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}

var _ PaymentHTTP = PaymentHandler{}
