package messaging

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"padicrib/internal/domain/listings"
	"padicrib/internal/domain/user"
)

var (
	ErrNotFound        = errors.New("messaging: conversation not found")
	ErrSubjectRequired = errors.New("messaging: subject is required")
	ErrBodyRequired    = errors.New("messaging: message body is required")
	ErrNoMembers       = errors.New("messaging: conversation needs at least one member")
	ErrNotMember       = errors.New("messaging: not a conversation member")
)

type ConversationID int64
type MessageID int64

type Conversation struct {
	ID            ConversationID
	Subject       string
	ListingID     *listings.ID
	Members       []user.ID
	CreatedAt     time.Time
	LastMessageAt *time.Time
}

// Message is a single post. A nil SenderID marks a system notice.
type Message struct {
	ID             MessageID
	ConversationID ConversationID
	SenderID       *user.ID
	Body           string
	CreatedAt      time.Time
}

type Repository interface {
	Create(ctx context.Context, c *Conversation) error
	ByID(ctx context.Context, id ConversationID) (*Conversation, error)
	// ForListing returns the most recent conversation bound to the listing.
	ForListing(ctx context.Context, listing listings.ID) (*Conversation, error)
	ForUser(ctx context.Context, u user.ID) ([]*Conversation, error)
	IsMember(ctx context.Context, id ConversationID, u user.ID) (bool, error)
	Post(ctx context.Context, m *Message) error
	Messages(ctx context.Context, id ConversationID) ([]*Message, error)
	RemoveMember(ctx context.Context, u user.ID) error
}

// VerificationSubject is the subject used for a listing's notification thread.
func VerificationSubject(listing listings.ID) string {
	return fmt.Sprintf("Verification for listing #%d", listing)
}

func NewConversation(subject string, listing *listings.ID, members []user.ID, now time.Time) (*Conversation, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return nil, ErrSubjectRequired
	}
	seen := make(map[user.ID]struct{}, len(members))
	uniq := make([]user.ID, 0, len(members))
	for _, m := range members {
		if m == 0 {
			continue
		}
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		uniq = append(uniq, m)
	}
	if len(uniq) == 0 {
		return nil, ErrNoMembers
	}
	return &Conversation{Subject: subject, ListingID: listing, Members: uniq, CreatedAt: now.UTC()}, nil
}

func NewMessage(conversation ConversationID, sender *user.ID, body string, now time.Time) (*Message, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, ErrBodyRequired
	}
	return &Message{ConversationID: conversation, SenderID: sender, Body: body, CreatedAt: now.UTC()}, nil
}

func (c *Conversation) HasMember(u user.ID) bool {
	for _, m := range c.Members {
		if m == u {
			return true
		}
	}
	return false
}
