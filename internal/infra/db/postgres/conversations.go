package postgres

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	domainlistings "padicrib/internal/domain/listings"
	domainmessaging "padicrib/internal/domain/messaging"
	domainuser "padicrib/internal/domain/user"
)

const conversationColumns = `c.id, c.subject, c.listing_id, c.created_at, c.last_message_at`

type conversationRow struct {
	ID            int64      `db:"id"`
	Subject       string     `db:"subject"`
	ListingID     *int64     `db:"listing_id"`
	CreatedAt     time.Time  `db:"created_at"`
	LastMessageAt *time.Time `db:"last_message_at"`
}

func (r conversationRow) toDomain() *domainmessaging.Conversation {
	c := &domainmessaging.Conversation{
		ID:            domainmessaging.ConversationID(r.ID),
		Subject:       r.Subject,
		Members:       []domainuser.ID{},
		CreatedAt:     r.CreatedAt,
		LastMessageAt: r.LastMessageAt,
	}
	if r.ListingID != nil {
		id := domainlistings.ID(*r.ListingID)
		c.ListingID = &id
	}
	return c
}

type messageRow struct {
	ID             int64     `db:"id"`
	ConversationID int64     `db:"conversation_id"`
	SenderID       *int64    `db:"sender_id"`
	Body           string    `db:"body"`
	CreatedAt      time.Time `db:"created_at"`
}

type conversationRepo struct{ tx *sqlx.Tx }

func (r conversationRepo) Create(ctx context.Context, c *domainmessaging.Conversation) error {
	var listing *int64
	if c.ListingID != nil {
		id := int64(*c.ListingID)
		listing = &id
	}
	err := r.tx.QueryRowxContext(ctx, `
		INSERT INTO conversations (subject, listing_id, created_at, last_message_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		c.Subject, listing, c.CreatedAt, c.LastMessageAt,
	).Scan(&c.ID)
	if isForeignKeyViolation(err) {
		return domainlistings.ErrNotFound
	}
	if err != nil {
		return err
	}
	for _, m := range c.Members {
		if _, err := r.tx.ExecContext(ctx, `
			INSERT INTO conversation_members (conversation_id, user_id) VALUES ($1, $2)
			ON CONFLICT DO NOTHING`, int64(c.ID), int64(m)); err != nil {
			if isForeignKeyViolation(err) {
				return domainuser.ErrNotFound
			}
			return err
		}
	}
	return nil
}

// many loads conversations with their member lists.
func (r conversationRepo) many(ctx context.Context, query string, args ...any) ([]*domainmessaging.Conversation, error) {
	var rows []conversationRow
	if err := r.tx.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	out := make([]*domainmessaging.Conversation, 0, len(rows))
	if len(rows) == 0 {
		return out, nil
	}
	ids := make([]int64, 0, len(rows))
	index := make(map[domainmessaging.ConversationID]*domainmessaging.Conversation, len(rows))
	for _, row := range rows {
		c := row.toDomain()
		out = append(out, c)
		ids = append(ids, row.ID)
		index[c.ID] = c
	}
	q, qargs, err := sqlx.In(`SELECT conversation_id, user_id FROM conversation_members WHERE conversation_id IN (?) ORDER BY conversation_id, user_id`, ids)
	if err != nil {
		return nil, err
	}
	var members []struct {
		ConversationID int64 `db:"conversation_id"`
		UserID         int64 `db:"user_id"`
	}
	if err := r.tx.SelectContext(ctx, &members, r.tx.Rebind(q), qargs...); err != nil {
		return nil, err
	}
	for _, m := range members {
		if c, ok := index[domainmessaging.ConversationID(m.ConversationID)]; ok {
			c.Members = append(c.Members, domainuser.ID(m.UserID))
		}
	}
	return out, nil
}

func (r conversationRepo) first(ctx context.Context, query string, args ...any) (*domainmessaging.Conversation, error) {
	found, err := r.many(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, domainmessaging.ErrNotFound
	}
	return found[0], nil
}

func (r conversationRepo) ByID(ctx context.Context, id domainmessaging.ConversationID) (*domainmessaging.Conversation, error) {
	return r.first(ctx, `SELECT `+conversationColumns+` FROM conversations c WHERE c.id = $1`, int64(id))
}

func (r conversationRepo) ForListing(ctx context.Context, listing domainlistings.ID) (*domainmessaging.Conversation, error) {
	return r.first(ctx, `SELECT `+conversationColumns+` FROM conversations c WHERE c.listing_id = $1 ORDER BY c.id DESC LIMIT 1`, int64(listing))
}

func (r conversationRepo) ForUser(ctx context.Context, u domainuser.ID) ([]*domainmessaging.Conversation, error) {
	return r.many(ctx, `
		SELECT `+conversationColumns+` FROM conversations c
		JOIN conversation_members m ON m.conversation_id = c.id
		WHERE m.user_id = $1
		ORDER BY COALESCE(c.last_message_at, c.created_at) DESC, c.id DESC`, int64(u))
}

func (r conversationRepo) IsMember(ctx context.Context, id domainmessaging.ConversationID, u domainuser.ID) (bool, error) {
	var state struct {
		Found  bool `db:"found"`
		Member bool `db:"is_member"`
	}
	err := r.tx.GetContext(ctx, &state, `
		SELECT EXISTS (SELECT 1 FROM conversations WHERE id = $1) AS found,
			EXISTS (SELECT 1 FROM conversation_members WHERE conversation_id = $1 AND user_id = $2) AS is_member`,
		int64(id), int64(u))
	if err != nil {
		return false, err
	}
	if !state.Found {
		return false, domainmessaging.ErrNotFound
	}
	return state.Member, nil
}

func (r conversationRepo) Post(ctx context.Context, m *domainmessaging.Message) error {
	var sender *int64
	if m.SenderID != nil {
		id := int64(*m.SenderID)
		sender = &id
	}
	err := r.tx.QueryRowxContext(ctx, `
		INSERT INTO messages (conversation_id, sender_id, body, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		int64(m.ConversationID), sender, m.Body, m.CreatedAt,
	).Scan(&m.ID)
	if isForeignKeyViolation(err) {
		return domainmessaging.ErrNotFound
	}
	if err != nil {
		return err
	}
	_, err = r.tx.ExecContext(ctx, `UPDATE conversations SET last_message_at = $2 WHERE id = $1`, int64(m.ConversationID), m.CreatedAt)
	return err
}

func (r conversationRepo) Messages(ctx context.Context, id domainmessaging.ConversationID) ([]*domainmessaging.Message, error) {
	var exists bool
	if err := r.tx.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM conversations WHERE id = $1)`, int64(id)); err != nil {
		return nil, err
	}
	if !exists {
		return nil, domainmessaging.ErrNotFound
	}
	var rows []messageRow
	if err := r.tx.SelectContext(ctx, &rows, `
		SELECT id, conversation_id, sender_id, body, created_at FROM messages
		WHERE conversation_id = $1 ORDER BY created_at, id`, int64(id)); err != nil {
		return nil, err
	}
	out := make([]*domainmessaging.Message, 0, len(rows))
	for _, row := range rows {
		msg := &domainmessaging.Message{
			ID:             domainmessaging.MessageID(row.ID),
			ConversationID: domainmessaging.ConversationID(row.ConversationID),
			Body:           row.Body,
			CreatedAt:      row.CreatedAt,
		}
		if row.SenderID != nil {
			sid := domainuser.ID(*row.SenderID)
			msg.SenderID = &sid
		}
		out = append(out, msg)
	}
	return out, nil
}

func (r conversationRepo) RemoveMember(ctx context.Context, u domainuser.ID) error {
	_, err := r.tx.ExecContext(ctx, `DELETE FROM conversation_members WHERE user_id = $1`, int64(u))
	return err
}
