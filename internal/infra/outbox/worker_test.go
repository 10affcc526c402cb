package outbox_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appoutbox "padicrib/internal/app/outbox"
	"padicrib/internal/app/uow"
	"padicrib/internal/infra/outbox"
	"padicrib/internal/infra/storage/memory"
)

type published struct {
	topic   string
	key     string
	payload []byte
	headers map[string]string
}

type recordingProducer struct {
	err  error
	sent []published
}

func (p *recordingProducer) Publish(ctx context.Context, topic, key string, payload []byte, headers map[string]string) error {
	if p.err != nil {
		return p.err
	}
	p.sent = append(p.sent, published{topic: topic, key: key, payload: payload, headers: headers})
	return nil
}

func seedEvent(t *testing.T, store *memory.Store, name string) {
	t.Helper()
	ctx := context.Background()
	unit, err := store.Begin(ctx, uow.TxOptions{})
	require.NoError(t, err)
	require.NoError(t, unit.Outbox().Add(ctx, appoutbox.EventRecord{
		ID:         name + "-1",
		Name:       name,
		Payload:    []byte(`{"listingId":7}`),
		OccurredAt: time.Now().Add(-time.Second).UTC(),
		Aggregate:  "7",
		Headers:    map[string]string{"content-type": "application/json"},
	}))
	require.NoError(t, unit.Commit(ctx))
}

func TestWorkerPublishesCloudEvent(t *testing.T) {
	store := memory.NewStore()
	seedEvent(t, store, "listing.approved")
	producer := &recordingProducer{}
	w := &outbox.Worker{Store: store.OutboxQueue(), Producer: producer, TopicPrefix: "dev."}

	n, err := w.Drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, producer.sent, 1)
	msg := producer.sent[0]
	assert.Equal(t, "dev.listing.events.v1", msg.topic)
	assert.Equal(t, "7", msg.key)
	assert.Equal(t, "application/cloudevents+json", msg.headers["content-type"])

	var evt map[string]any
	require.NoError(t, json.Unmarshal(msg.payload, &evt))
	assert.Equal(t, "listing.approved.v1", evt["type"])
	assert.Equal(t, "app://padicrib", evt["source"])

	n, err = w.Drain(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestWorkerBacksOffOnPublishFailure(t *testing.T) {
	store := memory.NewStore()
	seedEvent(t, store, "booking.paid")
	producer := &recordingProducer{err: errors.New("broker down")}
	w := &outbox.Worker{Store: store.OutboxQueue(), Producer: producer, Backoff: []time.Duration{time.Hour}}

	n, err := w.Drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	producer.err = nil
	n, err = w.Drain(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n, "failed event waits for its backoff")
	assert.Empty(t, producer.sent)
}

func TestWorkerRequiresDependencies(t *testing.T) {
	w := &outbox.Worker{}
	assert.ErrorIs(t, w.Run(context.Background()), outbox.ErrWorkerNotConfigured)
}
