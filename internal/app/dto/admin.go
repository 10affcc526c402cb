package dto

type AdminDashboard struct {
	Pending              []Listing      `json:"pending"`
	AwaitingPayment      []Listing      `json:"awaiting_payment"`
	Suspended            []Listing      `json:"suspended"`
	PendingVerifications []Verification `json:"pending_verifications"`
}
