package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	appoutbox "padicrib/internal/app/outbox"
	infraoutbox "padicrib/internal/infra/outbox"
)

const (
	outboxNew     = "NEW"
	outboxClaimed = "CLAIMED"
	outboxSent    = "SENT"
	outboxFailed  = "FAILED"
)

type outboxWriter struct{ tx *sqlx.Tx }

func (w outboxWriter) Add(ctx context.Context, rec appoutbox.EventRecord) error {
	headers, err := json.Marshal(rec.Headers)
	if err != nil {
		return err
	}
	_, err = w.tx.ExecContext(ctx, `
		INSERT INTO outbox_events (id, name, payload, aggregate, headers, occurred_at, state, next_attempt_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $6)`,
		rec.ID, rec.Name, rec.Payload, rec.Aggregate, headers, rec.OccurredAt.UTC(), outboxNew,
	)
	return err
}

// OutboxStore feeds committed events to the publishing worker. Claims skip
// rows locked by other workers, and a claim older than ClaimTimeout is
// handed out again.
type OutboxStore struct {
	DB           *sqlx.DB
	ClaimTimeout time.Duration
	Now          func() time.Time
}

var _ infraoutbox.Store = (*OutboxStore)(nil)

func NewOutboxStore(db *sqlx.DB) *OutboxStore {
	return &OutboxStore{DB: db, ClaimTimeout: time.Minute, Now: time.Now}
}

type pendingRow struct {
	ID         string    `db:"id"`
	Name       string    `db:"name"`
	Payload    []byte    `db:"payload"`
	Aggregate  string    `db:"aggregate"`
	Headers    []byte    `db:"headers"`
	OccurredAt time.Time `db:"occurred_at"`
	Attempts   int       `db:"attempts"`
}

func (s *OutboxStore) Claim(ctx context.Context, workerID string) (*infraoutbox.Pending, error) {
	now := s.now()
	var row pendingRow
	err := s.DB.GetContext(ctx, &row, `
		UPDATE outbox_events SET state = $1, claimed_by = $2, claimed_at = $3
		WHERE id = (
			SELECT id FROM outbox_events
			WHERE (state IN ($4, $5) AND next_attempt_at <= $3)
				OR (state = $1 AND claimed_at < $6)
			ORDER BY occurred_at, id
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, name, payload, aggregate, headers, occurred_at, attempts`,
		outboxClaimed, workerID, now, outboxNew, outboxFailed, now.Add(-s.claimTimeout()),
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	headers := map[string]string{}
	if len(row.Headers) > 0 {
		if err := json.Unmarshal(row.Headers, &headers); err != nil {
			return nil, err
		}
	}
	return &infraoutbox.Pending{
		ID:         row.ID,
		Name:       row.Name,
		Payload:    row.Payload,
		Aggregate:  row.Aggregate,
		Headers:    headers,
		OccurredAt: row.OccurredAt,
		Attempts:   row.Attempts,
	}, nil
}

func (s *OutboxStore) MarkSent(ctx context.Context, id string) error {
	res, err := s.DB.ExecContext(ctx, `UPDATE outbox_events SET state = $2, last_error = '' WHERE id = $1`, id, outboxSent)
	return expectRow(res, err, infraoutbox.ErrUnknownEvent)
}

func (s *OutboxStore) MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error {
	res, err := s.DB.ExecContext(ctx, `
		UPDATE outbox_events SET state = $2, attempts = attempts + 1, next_attempt_at = $3, last_error = $4
		WHERE id = $1`, id, outboxFailed, next.UTC(), errMsg)
	return expectRow(res, err, infraoutbox.ErrUnknownEvent)
}

func (s *OutboxStore) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *OutboxStore) claimTimeout() time.Duration {
	if s.ClaimTimeout > 0 {
		return s.ClaimTimeout
	}
	return time.Minute
}
