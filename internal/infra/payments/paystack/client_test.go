package paystack

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"padicrib/internal/app/policies"
	"padicrib/internal/domain/shared/money"
)

func TestInitializeSendsAmountInMinorUnits(t *testing.T) {
	var got initializeRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/transaction/initialize", r.URL.Path)
		assert.Equal(t, "Bearer sk_test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"status":true,"message":"ok","data":{"authorization_url":"https://pay/abc","access_code":"abc","reference":"listing-7-1"}}`))
	}))
	defer srv.Close()

	c := New("sk_test", srv.URL, time.Second, nil)
	res, err := c.Initialize(context.Background(), policies.InitializeRequest{
		Email:     "owner@example.com",
		Amount:    money.FromMajor(5000, "NGN"),
		Reference: "listing-7-1",
		Metadata:  policies.PaymentMetadata{ListingID: 7, Period: "monthly"},
	})
	require.NoError(t, err)
	assert.Equal(t, "https://pay/abc", res.AuthorizationURL)
	assert.Equal(t, int64(500000), got.Amount)
	assert.Equal(t, int64(7), got.Metadata.ListingID)
	assert.Equal(t, "monthly", got.Metadata.Period)
}

func TestVerifyMapsTransaction(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/transaction/verify/listing-7-1", r.URL.Path)
		_, _ = w.Write([]byte(`{"status":true,"message":"ok","data":{"reference":"listing-7-1","status":"success","amount":500000,"currency":"NGN","metadata":{"listingId":"7","period":"yearly"}}}`))
	}))
	defer srv.Close()

	tx, err := New("sk_test", srv.URL, time.Second, nil).Verify(context.Background(), "listing-7-1")
	require.NoError(t, err)
	assert.True(t, tx.Succeeded())
	assert.Equal(t, int64(500000), tx.Amount.Amount)
	assert.Equal(t, int64(7), tx.Metadata.ListingID)
	assert.Equal(t, "yearly", tx.Metadata.Period)
}

func TestProviderRejectionIsGatewayFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"status":false,"message":"Invalid key"}`))
	}))
	defer srv.Close()

	_, err := New("sk_test", srv.URL, time.Second, nil).Verify(context.Background(), "x")
	assert.ErrorIs(t, err, policies.ErrGatewayFailure)

	_, err = New("", srv.URL, time.Second, nil).Verify(context.Background(), "x")
	assert.ErrorIs(t, err, policies.ErrGatewayUnavailable)
}

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"event":"charge.success"}`)
	sig := hex.EncodeToString(Sign("sk_test", body))

	assert.NoError(t, VerifySignature("sk_test", body, sig))
	assert.ErrorIs(t, VerifySignature("sk_test", body, ""), ErrInvalidSignature)
	assert.ErrorIs(t, VerifySignature("sk_test", body, "zz"), ErrInvalidSignature)
	assert.ErrorIs(t, VerifySignature("other", body, sig), ErrInvalidSignature)
	assert.ErrorIs(t, VerifySignature("sk_test", append(body, ' '), sig), ErrInvalidSignature)
}

func TestParseMetadataShapes(t *testing.T) {
	assert.Equal(t, int64(3), ParseMetadata(json.RawMessage(`{"listingId":3}`)).ListingID)
	assert.Equal(t, int64(4), ParseMetadata(json.RawMessage(`{"bookingId":"4"}`)).BookingID)
	assert.Equal(t, "yearly", ParseMetadata(json.RawMessage(`"{\"listingId\":5,\"period\":\"yearly\"}"`)).Period)
	assert.Zero(t, ParseMetadata(json.RawMessage(`""`)).ListingID)
	assert.Zero(t, ParseMetadata(nil).ListingID)
}
