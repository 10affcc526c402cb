// Package outbox stores integration events in the same unit of work as the
// state change that produced them. infra/outbox relays them afterwards.
package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"padicrib/internal/domain/shared/events"
)

const schemaVersion = "1"

type EventRecord struct {
	ID         string
	Name       string
	Payload    []byte
	OccurredAt time.Time
	Aggregate  string
	Headers    map[string]string
}

type Outbox interface {
	Add(ctx context.Context, record EventRecord) error
}

// NewID generates record ids; tests may replace it.
var NewID = uuid.NewString

// Encode renders ev as JSON. The aggregate-type header is the event name up
// to its first dot, so "listing.approved" belongs to "listing".
func Encode(ev events.DomainEvent) (EventRecord, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return EventRecord{}, fmt.Errorf("outbox: encode %s: %w", ev.EventName(), err)
	}
	name := ev.EventName()
	kind, _, _ := strings.Cut(name, ".")
	return EventRecord{
		ID:         NewID(),
		Name:       name,
		Payload:    payload,
		OccurredAt: ev.OccurredAt().UTC(),
		Aggregate:  ev.AggregateID(),
		Headers: map[string]string{
			"content-type":   "application/json",
			"aggregate-type": kind,
			"schema-version": schemaVersion,
		},
	}, nil
}

// Append encodes evs in order and adds them to box. A nil box drops them.
func Append(ctx context.Context, box Outbox, evs ...events.DomainEvent) error {
	if box == nil {
		return nil
	}
	for _, ev := range evs {
		rec, err := Encode(ev)
		if err != nil {
			return err
		}
		if err := box.Add(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}
