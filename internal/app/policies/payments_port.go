package policies

import (
	"context"
	"errors"
	"time"

	"padicrib/internal/domain/shared/money"
)

var (
	ErrGatewayUnavailable = errors.New("payments: provider not configured")
	ErrGatewayFailure     = errors.New("payments: provider request failed")
)

// TransactionSuccess is the only provider status that advances local state.
const TransactionSuccess = "success"

type InitializeRequest struct {
	Email       string
	Amount      money.Money
	Reference   string
	CallbackURL string
	Metadata    PaymentMetadata
}

type InitializeResult struct {
	AuthorizationURL string
	AccessCode       string
	Reference        string
}

// PaymentMetadata is echoed back by the provider on verify and webhook calls.
type PaymentMetadata struct {
	ListingID int64  `json:"listingId,omitempty"`
	BookingID int64  `json:"bookingId,omitempty"`
	Period    string `json:"period,omitempty"`
}

type Transaction struct {
	Reference string
	Status    string
	Amount    money.Money
	Metadata  PaymentMetadata
	PaidAt    *time.Time
}

func (t Transaction) Succeeded() bool {
	return t.Status == TransactionSuccess
}

// PaymentGateway is the outbound side of the payment provider.
type PaymentGateway interface {
	Initialize(ctx context.Context, req InitializeRequest) (InitializeResult, error)
	Verify(ctx context.Context, reference string) (Transaction, error)
}
