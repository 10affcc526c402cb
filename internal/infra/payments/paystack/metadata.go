package paystack

import (
	"encoding/json"
	"strconv"
	"strings"

	"padicrib/internal/app/policies"
)

// ParseMetadata reads listingId, bookingId and period. Paystack echoes
// metadata as sent, and dashboard-created charges may send ids as strings or
// metadata as a JSON-encoded string, so every shape is accepted.
func ParseMetadata(raw json.RawMessage) policies.PaymentMetadata {
	if len(raw) == 0 {
		return policies.PaymentMetadata{}
	}
	var nested string
	if err := json.Unmarshal(raw, &nested); err == nil {
		raw = json.RawMessage(nested)
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return policies.PaymentMetadata{}
	}
	return policies.PaymentMetadata{
		ListingID: asInt(fields["listingId"]),
		BookingID: asInt(fields["bookingId"]),
		Period:    asString(fields["period"]),
	}
}

func asInt(v any) int64 {
	switch t := v.(type) {
	case float64:
		return int64(t)
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}

func asString(v any) string {
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

// WebhookEvent is the push payload.
type WebhookEvent struct {
	Event string          `json:"event"`
	Data  TransactionData `json:"data"`
}
