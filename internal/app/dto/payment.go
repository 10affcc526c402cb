package dto

import "time"

// PaymentRedirect points the payer at the provider's hosted checkout.
type PaymentRedirect struct {
	Reference        string `json:"reference"`
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code,omitempty"`
	Amount           Money  `json:"amount"`
}

// PaymentOutcome is the reconciliation envelope.
type PaymentOutcome struct {
	OK        bool       `json:"ok"`
	Reference string     `json:"reference,omitempty"`
	Applied   bool       `json:"applied"`
	Duplicate bool       `json:"duplicate,omitempty"`
	ListingID int64      `json:"listing_id,omitempty"`
	BookingID int64      `json:"booking_id,omitempty"`
	PaidUntil *time.Time `json:"paid_until,omitempty"`
	Message   string     `json:"message,omitempty"`
}
