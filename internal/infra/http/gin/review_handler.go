package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"padicrib/internal/app/commands"
	"padicrib/internal/app/dto"
	reviewapp "padicrib/internal/app/handlers/reviews"
	"padicrib/internal/app/queries"
	domainlistings "padicrib/internal/domain/listings"
	domainreviews "padicrib/internal/domain/reviews"
)

type ReviewHTTP interface {
	List(c *gin.Context)
	Submit(c *gin.Context)
	Reply(c *gin.Context)
}

// ReviewHandler answers with {ok, ...} envelopes, errors included.
type ReviewHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type reviewRequest struct {
	ListingID int64  `json:"listing_id"`
	ParentID  int64  `json:"parent_id"`
	Rating    int    `json:"rating"`
	Comment   string `json:"comment"`
}

func (h ReviewHandler) List(c *gin.Context) {
	id, ok := paramID(c, "listingId")
	if !ok {
		return
	}
	result, err := queries.Ask[reviewapp.ListReviewsQuery, dto.ReviewCollection](c.Request.Context(), h.Queries, reviewapp.ListReviewsQuery{ListingID: domainlistings.ID(id)})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h ReviewHandler) Submit(c *gin.Context) {
	user, ok := requireRole(c)
	if !ok {
		return
	}
	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid request"})
		return
	}
	review, err := commands.Dispatch[reviewapp.SubmitReviewCommand, dto.Review](c.Request.Context(), h.Commands, reviewapp.SubmitReviewCommand{
		UserID:    user.UserID,
		ListingID: domainlistings.ID(req.ListingID),
		Rating:    req.Rating,
		Comment:   req.Comment,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "review": review})
}

func (h ReviewHandler) Reply(c *gin.Context) {
	user, ok := requireRole(c)
	if !ok {
		return
	}
	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid request"})
		return
	}
	reply, err := commands.Dispatch[reviewapp.ReplyCommand, dto.Review](c.Request.Context(), h.Commands, reviewapp.ReplyCommand{
		UserID:    user.UserID,
		ListingID: domainlistings.ID(req.ListingID),
		ParentID:  domainreviews.ID(req.ParentID),
		Comment:   req.Comment,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "review": reply})
}

func (h ReviewHandler) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(status, gin.H{"ok": false, "error": err.Error()})
}

var _ ReviewHTTP = ReviewHandler{}
