package paystack

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"padicrib/internal/app/policies"
	"padicrib/internal/domain/shared/money"
)

// SignatureHeader carries the hex HMAC-SHA512 of the raw webhook body.
const SignatureHeader = "x-paystack-signature"

var ErrInvalidSignature = errors.New("paystack: invalid webhook signature")

// Client talks to the Paystack transaction API.
type Client struct {
	HTTP      *http.Client
	BaseURL   string
	SecretKey string
	Currency  string
	Logger    *slog.Logger
}

var _ policies.PaymentGateway = (*Client)(nil)

func New(secret, baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		HTTP:      &http.Client{Timeout: timeout},
		BaseURL:   strings.TrimRight(baseURL, "/"),
		SecretKey: secret,
		Currency:  money.DefaultCurrency,
		Logger:    logger,
	}
}

type envelope[T any] struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

type initializeRequest struct {
	Email       string                   `json:"email"`
	Amount      int64                    `json:"amount"`
	Currency    string                   `json:"currency,omitempty"`
	Reference   string                   `json:"reference"`
	CallbackURL string                   `json:"callback_url,omitempty"`
	Metadata    policies.PaymentMetadata `json:"metadata"`
}

type initializeData struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

// TransactionData is the transaction object shared by verify and webhook payloads.
type TransactionData struct {
	Reference string          `json:"reference"`
	Status    string          `json:"status"`
	Amount    int64           `json:"amount"`
	Currency  string          `json:"currency"`
	PaidAt    *time.Time      `json:"paid_at"`
	Metadata  json.RawMessage `json:"metadata"`
}

func (c *Client) Initialize(ctx context.Context, req policies.InitializeRequest) (policies.InitializeResult, error) {
	if err := c.ready(); err != nil {
		return policies.InitializeResult{}, err
	}
	body, err := json.Marshal(initializeRequest{
		Email:       req.Email,
		Amount:      req.Amount.Amount,
		Currency:    req.Amount.Currency,
		Reference:   req.Reference,
		CallbackURL: req.CallbackURL,
		Metadata:    req.Metadata,
	})
	if err != nil {
		return policies.InitializeResult{}, err
	}
	var out envelope[initializeData]
	if err := c.do(ctx, http.MethodPost, "/transaction/initialize", body, &out); err != nil {
		return policies.InitializeResult{}, err
	}
	return policies.InitializeResult{
		AuthorizationURL: out.Data.AuthorizationURL,
		AccessCode:       out.Data.AccessCode,
		Reference:        out.Data.Reference,
	}, nil
}

func (c *Client) Verify(ctx context.Context, reference string) (policies.Transaction, error) {
	if err := c.ready(); err != nil {
		return policies.Transaction{}, err
	}
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return policies.Transaction{}, fmt.Errorf("%w: reference is required", policies.ErrGatewayFailure)
	}
	var out envelope[TransactionData]
	if err := c.do(ctx, http.MethodGet, "/transaction/verify/"+url.PathEscape(reference), nil, &out); err != nil {
		return policies.Transaction{}, err
	}
	return c.Transaction(out.Data), nil
}

// Transaction maps a provider transaction onto the gateway port.
func (c *Client) Transaction(d TransactionData) policies.Transaction {
	currency := d.Currency
	if currency == "" {
		currency = c.Currency
	}
	return policies.Transaction{
		Reference: d.Reference,
		Status:    d.Status,
		Amount:    money.Money{Amount: d.Amount, Currency: strings.ToUpper(currency)},
		Metadata:  ParseMetadata(d.Metadata),
		PaidAt:    d.PaidAt,
	}
}

// VerifySignature checks the webhook header against the raw body.
func (c *Client) VerifySignature(body []byte, signature string) error {
	return VerifySignature(c.SecretKey, body, signature)
}

func VerifySignature(secret string, body []byte, signature string) error {
	signature = strings.TrimSpace(signature)
	if secret == "" || signature == "" {
		return ErrInvalidSignature
	}
	got, err := hex.DecodeString(signature)
	if err != nil {
		return ErrInvalidSignature
	}
	if !hmac.Equal(got, Sign(secret, body)) {
		return ErrInvalidSignature
	}
	return nil
}

// Sign computes the raw HMAC-SHA512 of body.
func Sign(secret string, body []byte) []byte {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	return mac.Sum(nil)
}

func (c *Client) ready() error {
	if c == nil || c.SecretKey == "" || c.HTTP == nil {
		return policies.ErrGatewayUnavailable
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.SecretKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", policies.ErrGatewayFailure, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: read response: %v", policies.ErrGatewayFailure, err)
	}
	var head envelope[json.RawMessage]
	if err := json.Unmarshal(raw, &head); err != nil {
		return fmt.Errorf("%w: decode response (status %d): %v", policies.ErrGatewayFailure, resp.StatusCode, err)
	}
	if resp.StatusCode >= 300 || !head.Status {
		if c.Logger != nil {
			c.Logger.WarnContext(ctx, "paystack request rejected", "path", path, "status", resp.StatusCode, "message", head.Message)
		}
		return fmt.Errorf("%w: %s", policies.ErrGatewayFailure, head.Message)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: decode data: %v", policies.ErrGatewayFailure, err)
	}
	return nil
}
