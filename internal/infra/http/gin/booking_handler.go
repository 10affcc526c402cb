package ginserver

import (
	"log/slog"
	"net/http"
	"time"

	gin "github.com/gin-gonic/gin"

	"padicrib/internal/app/commands"
	"padicrib/internal/app/dto"
	bookingapp "padicrib/internal/app/handlers/booking"
	"padicrib/internal/app/queries"
	domainlistings "padicrib/internal/domain/listings"
)

type BookingHTTP interface {
	Checkout(c *gin.Context)
	Create(c *gin.Context)
	Mine(c *gin.Context)
}

type BookingHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type createBookingRequest struct {
	ListingID         int64      `json:"listing_id"`
	Start             *time.Time `json:"start_date"`
	End               *time.Time `json:"end_date"`
	Laundry           bool       `json:"laundry"`
	LaundryProviderID *int64     `json:"laundry_provider_id"`
	Food              bool       `json:"food"`
	FoodProviderID    *int64     `json:"food_provider_id"`
}

func (h BookingHandler) Checkout(c *gin.Context) {
	if _, ok := requireRole(c); !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	result, err := queries.Ask[bookingapp.CheckoutQuery, dto.Checkout](c.Request.Context(), h.Queries, bookingapp.CheckoutQuery{ListingID: domainlistings.ID(id)})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) Create(c *gin.Context) {
	user, ok := requireRole(c)
	if !ok {
		return
	}
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	cmd := bookingapp.InitiateBookingCommand{
		UserID:            user.UserID,
		ListingID:         domainlistings.ID(req.ListingID),
		Start:             req.Start,
		End:               req.End,
		Laundry:           req.Laundry,
		LaundryProviderID: req.LaundryProviderID,
		Food:              req.Food,
		FoodProviderID:    req.FoodProviderID,
		RequestKey:        c.GetHeader("Idempotency-Key"),
	}
	result, err := commands.Dispatch[bookingapp.InitiateBookingCommand, dto.Booking](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h BookingHandler) Mine(c *gin.Context) {
	user, ok := requireRole(c)
	if !ok {
		return
	}
	result, err := queries.Ask[bookingapp.MyBookingsQuery, []dto.Booking](c.Request.Context(), h.Queries, bookingapp.MyBookingsQuery{UserID: user.UserID})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": result})
}

var _ BookingHTTP = BookingHandler{}
