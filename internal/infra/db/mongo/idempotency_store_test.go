package mongo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"padicrib/internal/app/middleware"
)

func TestIdempotencyDocumentBSONRoundTrip(t *testing.T) {
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	rec := middleware.IdempotencyRecord{Key: "booking.initiate:7:abc", Payload: []byte(`{"id":1}`), OccurredAt: now}

	raw, err := bson.Marshal(newIdempotencyDocument(rec, now))
	require.NoError(t, err)

	var decoded idempotencyDocument
	require.NoError(t, bson.Unmarshal(raw, &decoded))
	assert.Equal(t, rec.Key, decoded.ID)
	assert.Equal(t, rec, decoded.toRecord())
	assert.Equal(t, now, decoded.CreatedAt)
}
