package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"padicrib/internal/app/commands"
	"padicrib/internal/app/dto"
	messageapp "padicrib/internal/app/handlers/messages"
	"padicrib/internal/app/queries"
	domainlistings "padicrib/internal/domain/listings"
	domainmessaging "padicrib/internal/domain/messaging"
	domainuser "padicrib/internal/domain/user"
)

type MessageHTTP interface {
	Inbox(c *gin.Context)
	Thread(c *gin.Context)
	Start(c *gin.Context)
	Post(c *gin.Context)
}

type MessageHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type startConversationRequest struct {
	Subject      string  `json:"subject"`
	RecipientIDs []int64 `json:"recipient_ids"`
	ListingID    *int64  `json:"listing_id"`
	Body         string  `json:"body"`
}

type postMessageRequest struct {
	Body string `json:"body"`
}

func (h MessageHandler) Inbox(c *gin.Context) {
	user, ok := requireRole(c)
	if !ok {
		return
	}
	result, err := queries.Ask[messageapp.InboxQuery, dto.Inbox](c.Request.Context(), h.Queries, messageapp.InboxQuery{UserID: user.UserID})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h MessageHandler) Thread(c *gin.Context) {
	user, ok := requireRole(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	result, err := queries.Ask[messageapp.ThreadQuery, dto.Thread](c.Request.Context(), h.Queries, messageapp.ThreadQuery{
		ConversationID: domainmessaging.ConversationID(id),
		Viewer:         user,
	})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h MessageHandler) Start(c *gin.Context) {
	user, ok := requireRole(c)
	if !ok {
		return
	}
	var req startConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	recipients := make([]domainuser.ID, 0, len(req.RecipientIDs))
	for _, id := range req.RecipientIDs {
		recipients = append(recipients, domainuser.ID(id))
	}
	var listingID *domainlistings.ID
	if req.ListingID != nil {
		id := domainlistings.ID(*req.ListingID)
		listingID = &id
	}
	result, err := commands.Dispatch[messageapp.StartConversationCommand, dto.Thread](c.Request.Context(), h.Commands, messageapp.StartConversationCommand{
		Actor:        user,
		Subject:      req.Subject,
		RecipientIDs: recipients,
		ListingID:    listingID,
		Body:         req.Body,
	})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h MessageHandler) Post(c *gin.Context) {
	user, ok := requireRole(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req postMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	result, err := commands.Dispatch[messageapp.PostMessageCommand, dto.Message](c.Request.Context(), h.Commands, messageapp.PostMessageCommand{
		Actor:          user,
		ConversationID: domainmessaging.ConversationID(id),
		Body:           req.Body,
	})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

var _ MessageHTTP = MessageHandler{}
