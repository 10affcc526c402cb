// Package events carries the integration events aggregates emit on state changes.
package events

import "time"

type DomainEvent interface {
	EventName() string
	AggregateID() string
	OccurredAt() time.Time
}

// Recorder is embedded by aggregates. Events stay pending until the
// application layer drains them into the outbox.
type Recorder struct {
	pending []DomainEvent
}

func (r *Recorder) Record(event DomainEvent) {
	if event != nil {
		r.pending = append(r.pending, event)
	}
}

// Pending returns a copy of the undrained events.
func (r *Recorder) Pending() []DomainEvent {
	return append([]DomainEvent(nil), r.pending...)
}

// Drain hands over pending events and resets the recorder.
func (r *Recorder) Drain() []DomainEvent {
	out := r.pending
	r.pending = nil
	return out
}

// Discard drops pending events, used when an aggregate is copied in or out of storage.
func (r *Recorder) Discard() {
	r.pending = nil
}
