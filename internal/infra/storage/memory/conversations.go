package memory

import (
	"context"
	"slices"
	"sort"

	domainlistings "padicrib/internal/domain/listings"
	domainmessaging "padicrib/internal/domain/messaging"
	domainuser "padicrib/internal/domain/user"
)

type conversationRepo struct{ u *Unit }

func copyConversation(c domainmessaging.Conversation) *domainmessaging.Conversation {
	c.Members = slices.Clone(c.Members)
	return &c
}

func (r conversationRepo) Create(ctx context.Context, c *domainmessaging.Conversation) error {
	if err := r.u.check("conversations.create"); err != nil {
		return err
	}
	if c.ListingID != nil {
		if _, ok := r.u.tx.listings[*c.ListingID]; !ok {
			return domainlistings.ErrNotFound
		}
	}
	c.ID = domainmessaging.ConversationID(r.u.tx.nextID())
	r.u.tx.conversations[c.ID] = *copyConversation(*c)
	return nil
}

func (r conversationRepo) ByID(ctx context.Context, id domainmessaging.ConversationID) (*domainmessaging.Conversation, error) {
	if err := r.u.check("conversations.by_id"); err != nil {
		return nil, err
	}
	c, ok := r.u.tx.conversations[id]
	if !ok {
		return nil, domainmessaging.ErrNotFound
	}
	return copyConversation(c), nil
}

func (r conversationRepo) ForListing(ctx context.Context, listing domainlistings.ID) (*domainmessaging.Conversation, error) {
	if err := r.u.check("conversations.for_listing"); err != nil {
		return nil, err
	}
	var found *domainmessaging.Conversation
	for _, c := range r.u.tx.conversations {
		if c.ListingID == nil || *c.ListingID != listing {
			continue
		}
		if found == nil || c.ID > found.ID {
			found = copyConversation(c)
		}
	}
	if found == nil {
		return nil, domainmessaging.ErrNotFound
	}
	return found, nil
}

func (r conversationRepo) ForUser(ctx context.Context, u domainuser.ID) ([]*domainmessaging.Conversation, error) {
	if err := r.u.check("conversations.for_user"); err != nil {
		return nil, err
	}
	out := make([]*domainmessaging.Conversation, 0)
	for _, c := range r.u.tx.conversations {
		if slices.Contains(c.Members, u) {
			out = append(out, copyConversation(c))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].CreatedAt, out[j].CreatedAt
		if out[i].LastMessageAt != nil {
			a = *out[i].LastMessageAt
		}
		if out[j].LastMessageAt != nil {
			b = *out[j].LastMessageAt
		}
		if a.Equal(b) {
			return out[i].ID > out[j].ID
		}
		return a.After(b)
	})
	return out, nil
}

func (r conversationRepo) IsMember(ctx context.Context, id domainmessaging.ConversationID, u domainuser.ID) (bool, error) {
	if err := r.u.check("conversations.is_member"); err != nil {
		return false, err
	}
	c, ok := r.u.tx.conversations[id]
	if !ok {
		return false, domainmessaging.ErrNotFound
	}
	return slices.Contains(c.Members, u), nil
}

func (r conversationRepo) Post(ctx context.Context, m *domainmessaging.Message) error {
	if err := r.u.check("conversations.post"); err != nil {
		return err
	}
	c, ok := r.u.tx.conversations[m.ConversationID]
	if !ok {
		return domainmessaging.ErrNotFound
	}
	m.ID = domainmessaging.MessageID(r.u.tx.nextID())
	r.u.tx.messages[m.ID] = *m
	at := m.CreatedAt
	c.LastMessageAt = &at
	r.u.tx.conversations[c.ID] = c
	return nil
}

func (r conversationRepo) Messages(ctx context.Context, id domainmessaging.ConversationID) ([]*domainmessaging.Message, error) {
	if err := r.u.check("conversations.messages"); err != nil {
		return nil, err
	}
	if _, ok := r.u.tx.conversations[id]; !ok {
		return nil, domainmessaging.ErrNotFound
	}
	out := make([]*domainmessaging.Message, 0)
	for _, m := range r.u.tx.messages {
		if m.ConversationID == id {
			cp := m
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r conversationRepo) RemoveMember(ctx context.Context, u domainuser.ID) error {
	if err := r.u.check("conversations.remove_member"); err != nil {
		return err
	}
	for id, c := range r.u.tx.conversations {
		if !slices.Contains(c.Members, u) {
			continue
		}
		c.Members = slices.DeleteFunc(slices.Clone(c.Members), func(m domainuser.ID) bool { return m == u })
		r.u.tx.conversations[id] = c
	}
	return nil
}
