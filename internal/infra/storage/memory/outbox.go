package memory

import (
	"context"
	"time"

	appoutbox "padicrib/internal/app/outbox"
	infraoutbox "padicrib/internal/infra/outbox"
)

const (
	outboxNew     = "NEW"
	outboxClaimed = "CLAIMED"
	outboxSent    = "SENT"
	outboxFailed  = "FAILED"
)

// OutboxQueue exposes committed outbox rows to the publishing worker.
type OutboxQueue struct {
	store *Store
	now   func() time.Time
}

func (s *Store) OutboxQueue() *OutboxQueue {
	return &OutboxQueue{store: s, now: time.Now}
}

func (q *OutboxQueue) Claim(ctx context.Context, workerID string) (*infraoutbox.Pending, error) {
	q.store.mu.Lock()
	defer q.store.mu.Unlock()
	now := q.now().UTC()
	for i, e := range q.store.current.outbox {
		if e.state != outboxNew && e.state != outboxFailed {
			continue
		}
		if e.nextAttempt.After(now) {
			continue
		}
		q.store.current.outbox[i].state = outboxClaimed
		return &infraoutbox.Pending{
			ID:         e.record.ID,
			Name:       e.record.Name,
			Payload:    e.record.Payload,
			Aggregate:  e.record.Aggregate,
			Headers:    e.record.Headers,
			OccurredAt: e.record.OccurredAt,
			Attempts:   e.attempts,
		}, nil
	}
	return nil, nil
}

func (q *OutboxQueue) MarkSent(ctx context.Context, id string) error {
	return q.update(id, func(e *outboxEntry) { e.state = outboxSent })
}

func (q *OutboxQueue) MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error {
	return q.update(id, func(e *outboxEntry) {
		e.state = outboxFailed
		e.attempts++
		e.nextAttempt = next
		e.lastError = errMsg
	})
}

func (q *OutboxQueue) update(id string, fn func(*outboxEntry)) error {
	q.store.mu.Lock()
	defer q.store.mu.Unlock()
	for i := range q.store.current.outbox {
		if q.store.current.outbox[i].record.ID == id {
			fn(&q.store.current.outbox[i])
			return nil
		}
	}
	return infraoutbox.ErrUnknownEvent
}

// Records lists committed outbox events in insertion order.
func (s *Store) Records() []appoutbox.EventRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]appoutbox.EventRecord, 0, len(s.current.outbox))
	for _, e := range s.current.outbox {
		out = append(out, e.record)
	}
	return out
}

var _ infraoutbox.Store = (*OutboxQueue)(nil)
