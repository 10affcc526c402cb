package dto

import (
	"time"

	domainmessaging "padicrib/internal/domain/messaging"
)

type Conversation struct {
	ID            int64      `json:"id"`
	Subject       string     `json:"subject"`
	ListingID     *int64     `json:"listing_id,omitempty"`
	Members       []int64    `json:"members"`
	CreatedAt     time.Time  `json:"created_at"`
	LastMessageAt *time.Time `json:"last_message_at,omitempty"`
}

type Message struct {
	ID        int64     `json:"id"`
	SenderID  *int64    `json:"sender_id,omitempty"`
	System    bool      `json:"system"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

type Inbox struct {
	Items []Conversation `json:"items"`
}

type Thread struct {
	Conversation Conversation `json:"conversation"`
	Messages     []Message    `json:"messages"`
}

func MapConversation(c *domainmessaging.Conversation) Conversation {
	members := make([]int64, 0, len(c.Members))
	for _, m := range c.Members {
		members = append(members, int64(m))
	}
	out := Conversation{ID: int64(c.ID), Subject: c.Subject, Members: members, CreatedAt: c.CreatedAt, LastMessageAt: c.LastMessageAt}
	if c.ListingID != nil {
		id := int64(*c.ListingID)
		out.ListingID = &id
	}
	return out
}

func MapMessage(m *domainmessaging.Message) Message {
	out := Message{ID: int64(m.ID), Body: m.Body, CreatedAt: m.CreatedAt, System: m.SenderID == nil}
	if m.SenderID != nil {
		id := int64(*m.SenderID)
		out.SenderID = &id
	}
	return out
}
