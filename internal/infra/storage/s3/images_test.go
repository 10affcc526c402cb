package s3

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectURLRoundTrip(t *testing.T) {
	store, err := NewImageStore(Options{
		Endpoint:      "http://localhost:9000",
		Bucket:        "padicrib",
		PublicBaseURL: "https://cdn.example.com/",
	}, nil)
	require.NoError(t, err)

	u := store.objectURL("listings/abc.jpg")
	assert.Equal(t, "https://cdn.example.com/padicrib/listings/abc.jpg", u)
	assert.Equal(t, "listings/abc.jpg", store.keyOf(u))
	assert.Empty(t, store.keyOf("https://cdn.example.com/padicrib/other/abc.jpg"))
	assert.Empty(t, store.keyOf("https://cdn.example.com/padicrib/listings/../x"))
}

func TestNewImageStoreRequiresBucket(t *testing.T) {
	_, err := NewImageStore(Options{Endpoint: "localhost:9000"}, nil)
	assert.Error(t, err)
	assert.Equal(t, "localhost:9000", parseEndpoint("http://localhost:9000"))
}
