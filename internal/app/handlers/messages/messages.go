package messages

import (
	"context"
	"log/slog"
	"time"

	"padicrib/internal/app/dto"
	"padicrib/internal/app/handlers/support"
	"padicrib/internal/app/services/auth"
	"padicrib/internal/app/uow"
	domainlistings "padicrib/internal/domain/listings"
	domainmessaging "padicrib/internal/domain/messaging"
	domainuser "padicrib/internal/domain/user"
)

const (
	startConversationKey = "messages.start"
	postMessageKey       = "messages.post"
	inboxKey             = "messages.inbox"
	threadKey            = "messages.thread"
)

var memberRoles = []domainuser.Role{domainuser.RoleUser, domainuser.RoleOwner, domainuser.RoleStaff, domainuser.RoleAdmin}

type StartConversationCommand struct {
	Actor        auth.Principal
	Subject      string             `json:"subject" validate:"required,max=200"`
	RecipientIDs []domainuser.ID    `json:"recipient_ids" validate:"required,min=1,dive,gt=0"`
	ListingID    *domainlistings.ID `json:"listing_id"`
	Body         string             `json:"body" validate:"required,max=5000"`
}

func (c StartConversationCommand) Key() string                     { return startConversationKey }
func (c StartConversationCommand) AllowedRoles() []domainuser.Role { return memberRoles }

type PostMessageCommand struct {
	Actor          auth.Principal
	ConversationID domainmessaging.ConversationID `validate:"required"`
	Body           string                         `json:"body" validate:"required,max=5000"`
}

func (c PostMessageCommand) Key() string                     { return postMessageKey }
func (c PostMessageCommand) AllowedRoles() []domainuser.Role { return memberRoles }

type Handler struct {
	Logger *slog.Logger
	Now    func() time.Time
}

func (h *Handler) Start(ctx context.Context, cmd StartConversationCommand) (dto.Thread, error) {
	unit, err := support.Unit(ctx)
	if err != nil {
		return dto.Thread{}, err
	}
	for _, id := range cmd.RecipientIDs {
		if _, err := unit.Users().ByID(ctx, id); err != nil {
			return dto.Thread{}, err
		}
	}
	if cmd.ListingID != nil {
		if _, err := unit.Listings().ByID(ctx, *cmd.ListingID); err != nil {
			return dto.Thread{}, err
		}
	}
	now := support.Now(h.Now)
	members := append([]domainuser.ID{cmd.Actor.UserID}, cmd.RecipientIDs...)
	conv, err := domainmessaging.NewConversation(cmd.Subject, cmd.ListingID, members, now)
	if err != nil {
		return dto.Thread{}, err
	}
	repo := unit.Conversations()
	if err := repo.Create(ctx, conv); err != nil {
		return dto.Thread{}, err
	}
	sender := cmd.Actor.UserID
	msg, err := domainmessaging.NewMessage(conv.ID, &sender, cmd.Body, now)
	if err != nil {
		return dto.Thread{}, err
	}
	if err := repo.Post(ctx, msg); err != nil {
		return dto.Thread{}, err
	}
	conv.LastMessageAt = &msg.CreatedAt
	support.Logger(h.Logger).InfoContext(ctx, "conversation started", "conversation_id", conv.ID, "members", len(conv.Members))
	return dto.Thread{Conversation: dto.MapConversation(conv), Messages: []dto.Message{dto.MapMessage(msg)}}, nil
}

func (h *Handler) Post(ctx context.Context, cmd PostMessageCommand) (dto.Message, error) {
	unit, err := support.Unit(ctx)
	if err != nil {
		return dto.Message{}, err
	}
	if _, err := visible(ctx, unit, cmd.ConversationID, cmd.Actor); err != nil {
		return dto.Message{}, err
	}
	sender := cmd.Actor.UserID
	msg, err := domainmessaging.NewMessage(cmd.ConversationID, &sender, cmd.Body, support.Now(h.Now))
	if err != nil {
		return dto.Message{}, err
	}
	if err := unit.Conversations().Post(ctx, msg); err != nil {
		return dto.Message{}, err
	}
	return dto.MapMessage(msg), nil
}

// visible loads a conversation the actor may read: members, plus admins.
func visible(ctx context.Context, unit uow.UnitOfWork, id domainmessaging.ConversationID, actor auth.Principal) (*domainmessaging.Conversation, error) {
	conv, err := unit.Conversations().ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.HasRole(domainuser.RoleAdmin) || conv.HasMember(actor.UserID) {
		return conv, nil
	}
	return nil, domainmessaging.ErrNotMember
}

type InboxQuery struct {
	UserID domainuser.ID
}

func (q InboxQuery) Key() string                     { return inboxKey }
func (q InboxQuery) AllowedRoles() []domainuser.Role { return memberRoles }

type InboxHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *InboxHandler) Handle(ctx context.Context, q InboxQuery) (dto.Inbox, error) {
	unit, execCtx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.Inbox{}, err
	}
	defer cleanup()
	found, err := unit.Conversations().ForUser(execCtx, q.UserID)
	if err != nil {
		return dto.Inbox{}, err
	}
	items := make([]dto.Conversation, 0, len(found))
	for _, c := range found {
		items = append(items, dto.MapConversation(c))
	}
	return dto.Inbox{Items: items}, nil
}

type ThreadQuery struct {
	ConversationID domainmessaging.ConversationID
	Viewer         auth.Principal
}

func (q ThreadQuery) Key() string                     { return threadKey }
func (q ThreadQuery) AllowedRoles() []domainuser.Role { return memberRoles }

type ThreadHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *ThreadHandler) Handle(ctx context.Context, q ThreadQuery) (dto.Thread, error) {
	unit, execCtx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.Thread{}, err
	}
	defer cleanup()
	conv, err := visible(execCtx, unit, q.ConversationID, q.Viewer)
	if err != nil {
		return dto.Thread{}, err
	}
	msgs, err := unit.Conversations().Messages(execCtx, conv.ID)
	if err != nil {
		return dto.Thread{}, err
	}
	out := dto.Thread{Conversation: dto.MapConversation(conv), Messages: make([]dto.Message, 0, len(msgs))}
	for _, m := range msgs {
		out.Messages = append(out.Messages, dto.MapMessage(m))
	}
	return out, nil
}
