package ginserver

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	gin "github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"padicrib/internal/app/commands"
	"padicrib/internal/app/dto"
	adminapp "padicrib/internal/app/handlers/admin"
	paymentapp "padicrib/internal/app/handlers/payments"
	"padicrib/internal/app/middleware"
	"padicrib/internal/app/policies"
	"padicrib/internal/app/services/auth"
	"padicrib/internal/app/validation"
	domainfees "padicrib/internal/domain/fees"
	domainlistings "padicrib/internal/domain/listings"
	domainuser "padicrib/internal/domain/user"
	"padicrib/internal/infra/payments/paystack"
	"padicrib/internal/infra/security"
	"padicrib/internal/infra/storage/memory"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestStatusForMapsDomainErrors(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{middleware.ErrUnauthenticated, http.StatusUnauthorized},
		{middleware.ErrForbidden, http.StatusForbidden},
		{fmt.Errorf("load: %w", domainlistings.ErrNotFound), http.StatusNotFound},
		{domainlistings.ErrFeeUnpaid, http.StatusConflict},
		{domainfees.ErrDuplicate, http.StatusConflict},
		{domainuser.ErrSuspended, http.StatusForbidden},
		{adminapp.ErrSelfAction, http.StatusForbidden},
		{paymentapp.ErrStubDisabled, http.StatusForbidden},
		{&validation.Error{Fields: map[string]string{"title": "required"}}, http.StatusBadRequest},
		{ErrInvalidUpload, http.StatusBadRequest},
		{policies.ErrGatewayFailure, http.StatusBadGateway},
		{policies.ErrGatewayUnavailable, http.StatusServiceUnavailable},
		{errors.New("socket closed"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, statusFor(tc.err), tc.err.Error())
	}
}

func TestRespondErrorHidesInternalDetail(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	respondError(c, nil, errors.New("pq: connection refused"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "pq:")
}

func TestRespondErrorListsInvalidFields(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", nil)

	respondError(c, nil, &validation.Error{Fields: map[string]string{"price": "numeric"}})

	require.Equal(t, http.StatusBadRequest, w.Code)
	var body struct {
		Error  string            `json:"error"`
		Fields map[string]string `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "numeric", body.Fields["price"])
}

func TestProtectedRouteRequiresLogin(t *testing.T) {
	router := gin.New()
	router.GET("/api/v1/me/bookings", BookingHandler{}.Mine)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/me/bookings", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireRoleRejectsWrongRole(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	c.Request = req.WithContext(auth.ContextWithPrincipal(req.Context(), auth.Principal{UserID: 7, Role: domainuser.RoleUser}))

	_, ok := requireRole(c, domainuser.RoleAdmin)

	assert.False(t, ok)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

type webhookRecorder struct {
	got []paymentapp.ReconcileWebhookCommand
}

func (r *webhookRecorder) bus() commands.Bus {
	bus := commands.NewInMemoryBus()
	commands.RegisterHandler(bus, paymentapp.ReconcileWebhookCommand{}.Key(), commands.HandlerFunc[paymentapp.ReconcileWebhookCommand, dto.PaymentOutcome](
		func(_ context.Context, cmd paymentapp.ReconcileWebhookCommand) (dto.PaymentOutcome, error) {
			r.got = append(r.got, cmd)
			return dto.PaymentOutcome{OK: true, Applied: true, Reference: cmd.Reference}, nil
		}))
	return bus
}

const webhookSecret = "sk_test_secret"

var webhookBody = []byte(`{"event":"charge.success","data":{"reference":"listing-4-1700000000000","amount":500000,"status":"success","metadata":{"listingId":"4","period":"yearly"}}}`)

func postWebhook(t *testing.T, h PaymentHandler, signature string) *httptest.ResponseRecorder {
	t.Helper()
	router := gin.New()
	router.POST("/api/v1/payments/webhook", h.Webhook)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/webhook", bytes.NewReader(webhookBody))
	if signature != "" {
		req.Header.Set(paystack.SignatureHeader, signature)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	rec := &webhookRecorder{}
	h := PaymentHandler{Commands: rec.bus(), WebhookSecret: webhookSecret}

	forged := hex.EncodeToString(paystack.Sign("another-secret", webhookBody))
	for _, sig := range []string{"", "zz-not-hex", forged} {
		w := postWebhook(t, h, sig)
		assert.Equal(t, http.StatusUnauthorized, w.Code, sig)
	}
	assert.Empty(t, rec.got, "unsigned bodies never reach reconciliation")
}

func TestWebhookDispatchesSignedEvent(t *testing.T) {
	rec := &webhookRecorder{}
	h := PaymentHandler{Commands: rec.bus(), WebhookSecret: webhookSecret}

	w := postWebhook(t, h, hex.EncodeToString(paystack.Sign(webhookSecret, webhookBody)))

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, rec.got, 1)
	cmd := rec.got[0]
	assert.Equal(t, "charge.success", cmd.Event)
	assert.Equal(t, int64(500000), cmd.Amount)
	assert.Equal(t, int64(4), cmd.Metadata.ListingID)
	assert.Equal(t, "yearly", cmd.Metadata.Period)

	var out dto.PaymentOutcome
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.True(t, out.Applied)
}

func TestListingCallbackRedirectsWithOutcome(t *testing.T) {
	bus := commands.NewInMemoryBus()
	commands.RegisterHandler(bus, paymentapp.ConfirmListingPaymentCommand{}.Key(), commands.HandlerFunc[paymentapp.ConfirmListingPaymentCommand, dto.PaymentOutcome](
		func(_ context.Context, cmd paymentapp.ConfirmListingPaymentCommand) (dto.PaymentOutcome, error) {
			return dto.PaymentOutcome{OK: true, Applied: true, Reference: cmd.Reference, ListingID: 4}, nil
		}))
	router := gin.New()
	router.GET("/cb", PaymentHandler{Commands: bus, CallbackRedirect: "https://padicrib.test/owner/listings"}.ListingCallback)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/cb?trxref=listing-4-1", nil))

	require.Equal(t, http.StatusFound, w.Code)
	loc := w.Header().Get("Location")
	assert.Contains(t, loc, "status=success")
	assert.Contains(t, loc, "listing_id=4")
}

type savedFiles struct {
	saved   []string
	removed []string
}

func (s *savedFiles) Save(_ context.Context, u policies.Upload) (string, error) {
	path := fmt.Sprintf("/uploads/%d-%s", len(s.saved), u.Name)
	s.saved = append(s.saved, path)
	return path, nil
}

func (s *savedFiles) Remove(_ context.Context, path string) error {
	s.removed = append(s.removed, path)
	return nil
}

func multipartFiles(t *testing.T, files map[string][]byte, order ...string) []*multipart.FileHeader {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, name := range order {
		part, err := mw.CreateFormFile("images", name)
		require.NoError(t, err)
		_, err = part.Write(files[name])
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(1<<20))
	return req.MultipartForm.File["images"]
}

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

func TestUploadsRejectNonImagesAndRollBack(t *testing.T) {
	store := &savedFiles{}
	u := Uploads{Public: store}
	headers := multipartFiles(t, map[string][]byte{
		"front.png": pngHeader,
		"notes.txt": []byte("plain text is not an image"),
	}, "front.png", "notes.txt")

	paths, err := u.saveAll(context.Background(), store, headers)

	require.ErrorIs(t, err, ErrInvalidUpload)
	assert.Nil(t, paths)
	assert.Equal(t, store.saved, store.removed, "earlier files are discarded")
}

func TestUploadsEnforceSizeLimit(t *testing.T) {
	store := &savedFiles{}
	u := Uploads{Public: store, MaxBytes: 8}
	headers := multipartFiles(t, map[string][]byte{"big.png": pngHeader}, "big.png")

	_, err := u.saveAll(context.Background(), store, headers)

	assert.ErrorIs(t, err, ErrInvalidUpload)
	assert.Empty(t, store.saved)
}

func authRouter(t *testing.T) (*gin.Engine, *auth.Service, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	svc := &auth.Service{
		UoW:       store,
		Passwords: security.BcryptHasher{Cost: bcrypt.MinCost},
		Tokens:    security.JWTIssuer{Secret: []byte("test-secret"), TTL: time.Hour},
	}
	router := gin.New()
	router.Use(AuthMiddleware{Service: svc}.Handle)
	h := AuthHandler{Service: svc}
	router.POST("/api/v1/auth/register", h.Register)
	router.POST("/api/v1/auth/logout", h.Logout)
	router.GET("/api/v1/auth/me", h.Me)
	return router, svc, store
}

func TestSessionCookieAuthenticatesRequests(t *testing.T) {
	router, _, _ := authRouter(t)

	body := `{"name":"Tolu","email":"tolu@padicrib.test","password":"correct-horse"}`
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", bytes.NewBufferString(body)))
	require.Equal(t, http.StatusCreated, w.Code)

	var cookie *http.Cookie
	for _, ck := range w.Result().Cookies() {
		if ck.Name == SessionCookie {
			cookie = ck
		}
	}
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.AddCookie(cookie)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"role":"user"`)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSuspendedAccountIsStoppedExceptLogout(t *testing.T) {
	router, svc, store := authRouter(t)
	id := store.SeedUser(domainuser.User{
		Name:         "Banned",
		Email:        "banned@padicrib.test",
		PasswordHash: "x",
		Role:         domainuser.RoleUser,
		Status:       domainuser.StatusSuspended,
	})
	token, _, err := svc.Tokens.Issue(&domainuser.User{ID: id, Role: domainuser.RoleUser}, time.Now())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestCorsConfigWildcard(t *testing.T) {
	assert.True(t, corsConfig(nil).AllowAllOrigins)
	cfg := corsConfig([]string{"https://padicrib.ng"})
	assert.False(t, cfg.AllowAllOrigins)
	assert.True(t, cfg.AllowCredentials)
	assert.Equal(t, []string{"https://padicrib.ng"}, cfg.AllowOrigins)
}
