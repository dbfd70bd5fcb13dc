package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Johnm75/Tienda/internal/checkout"
	"github.com/Johnm75/Tienda/internal/domain"
	"github.com/Johnm75/Tienda/internal/orders"
	"github.com/Johnm75/Tienda/internal/payment"
	"github.com/Johnm75/Tienda/internal/service"
	"github.com/Johnm75/Tienda/pkg/circuitbreaker"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	accounts  *mockAccounts
	carts     *mockCarts
	checkouts *mockCheckouts
	history   *mockHistory
	catalog   mockCatalog
}

func newFixture() *fixture {
	return &fixture{
		accounts: &mockAccounts{
			session: &service.Session{Token: testToken, User: testUser, DisplayName: "Ana"},
			profile: domain.Profile{Name: "Ana", Age: "30", Phone: "555", Email: testUser.Email},
		},
		carts:     newMockCarts(),
		checkouts: &mockCheckouts{},
		history:   &mockHistory{},
	}
}

func (f *fixture) handler() http.Handler {
	return NewRouter(RouterConfig{
		Auth:               mockAuth{},
		Accounts:           f.accounts,
		Products:           f.catalog,
		Carts:              f.carts,
		Checkouts:          f.checkouts,
		History:            f.history,
		AssetBaseURL:       "http://assets.test",
		RequestTimeout:     5 * time.Second,
		MaxRequestBodySize: 1 << 20,
	})
}

func (f *fixture) do(t *testing.T, method, path string, body interface{}, authed bool) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if authed {
		req.Header.Set("Authorization", "Bearer "+testToken)
	}
	rec := httptest.NewRecorder()
	f.handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

func TestHealth(t *testing.T) {
	f := newFixture()
	rec := f.do(t, http.MethodGet, "/health", nil, false)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestRequestID_EchoesClientHeader(t *testing.T) {
	f := newFixture()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	f.handler().ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
}

func TestAuthMiddleware(t *testing.T) {
	f := newFixture()

	t.Run("missing token", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/v1/cart", nil, false)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "unauthorized", decode[ErrorResponse](t, rec).Code)
	})

	t.Run("bad token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
		req.Header.Set("Authorization", "Bearer forged")
		rec := httptest.NewRecorder()
		f.handler().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "unauthenticated", decode[ErrorResponse](t, rec).Code)
	})
}

func TestListProducts(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodGet, "/api/v1/products?page=1&page_size=20", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[ProductsResponse](t, rec)
	require.Len(t, resp.Products, 2)
	assert.Equal(t, 20, resp.PageSize)
	assert.Equal(t, "10.00", resp.Products[0].Price)
	assert.Equal(t, "http://assets.test/shirt.png", resp.Products[0].ImageURL)
	assert.Equal(t, "https://cdn.example.com/shoes.png", resp.Products[1].ImageURL)
}

func TestListProducts_InvalidPage(t *testing.T) {
	f := newFixture()
	rec := f.do(t, http.MethodGet, "/api/v1/products?page=zero", nil, false)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_page", decode[ErrorResponse](t, rec).Code)
}

func TestListProducts_StoreError(t *testing.T) {
	f := newFixture()
	f.catalog = mockCatalog{err: errBoom}
	rec := f.do(t, http.MethodGet, "/api/v1/products", nil, false)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal_error", decode[ErrorResponse](t, rec).Code)
}

func TestCartFlow(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodPost, "/api/v1/cart/items", AddItemRequestDTO{ProductID: 1}, true)
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = f.do(t, http.MethodPost, "/api/v1/cart/items", AddItemRequestDTO{ProductID: 1}, true)
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = f.do(t, http.MethodPost, "/api/v1/cart/items", AddItemRequestDTO{ProductID: 2}, true)
	require.Equal(t, http.StatusCreated, rec.Code)

	got := decode[CartResponseDTO](t, rec)
	assert.Equal(t, 3, got.Count)
	assert.Equal(t, "45.50", got.Total)

	rec = f.do(t, http.MethodDelete, "/api/v1/cart/items/1", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	got = decode[CartResponseDTO](t, rec)
	assert.Equal(t, 2, got.Count)
	assert.Equal(t, "35.50", got.Total)

	rec = f.do(t, http.MethodDelete, "/api/v1/cart", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/v1/cart", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	got = decode[CartResponseDTO](t, rec)
	assert.Equal(t, 0, got.Count)
	assert.Equal(t, "0.00", got.Total)
	assert.NotNil(t, got.Items)
}

func TestAddItem_Errors(t *testing.T) {
	tests := []struct {
		name         string
		body         interface{}
		expectedHTTP int
		expectedCode string
	}{
		{"invalid product id", AddItemRequestDTO{ProductID: 0}, http.StatusBadRequest, "invalid_product_id"},
		{"unknown product", AddItemRequestDTO{ProductID: 99}, http.StatusNotFound, "not_found"},
		{"invalid body", "not an object", http.StatusBadRequest, "invalid_request"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			rec := f.do(t, http.MethodPost, "/api/v1/cart/items", tt.body, true)
			assert.Equal(t, tt.expectedHTTP, rec.Code)
			assert.Equal(t, tt.expectedCode, decode[ErrorResponse](t, rec).Code)
		})
	}
}

func TestRemoveItem_InvalidID(t *testing.T) {
	f := newFixture()
	rec := f.do(t, http.MethodDelete, "/api/v1/cart/items/abc", nil, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInitiateCheckout(t *testing.T) {
	f := newFixture()
	f.checkouts.initiated = &checkout.Initiated{
		Request: &domain.PaymentRequest{
			ID:       "req-1",
			UserID:   testUser.UID,
			Amount:   decimal.RequireFromString("45.5"),
			Currency: "USD",
			Status:   domain.CheckoutStatusPaymentPending,
		},
		RedirectURL: "http://pay.test/pay?request_id=req-1",
	}

	rec := f.do(t, http.MethodPost, "/api/v1/checkout", InitiateCheckoutRequestDTO{IdempotencyKey: "k1"}, true)
	require.Equal(t, http.StatusCreated, rec.Code)

	resp := decode[CheckoutResponseDTO](t, rec)
	assert.Equal(t, "req-1", resp.CheckoutID)
	assert.Equal(t, "PAYMENT_PENDING", resp.Status)
	assert.Equal(t, "45.50", resp.Amount)
	assert.Equal(t, "USD", resp.Currency)
	assert.Equal(t, "http://pay.test/pay?request_id=req-1", resp.RedirectURL)
	assert.Nil(t, resp.CartCleared)
	assert.Equal(t, "k1", f.checkouts.lastKey)
}

func TestInitiateCheckout_Errors(t *testing.T) {
	t.Run("missing idempotency key", func(t *testing.T) {
		f := newFixture()
		rec := f.do(t, http.MethodPost, "/api/v1/checkout", InitiateCheckoutRequestDTO{}, true)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "missing_idempotency_key", decode[ErrorResponse](t, rec).Code)
	})

	t.Run("empty cart", func(t *testing.T) {
		f := newFixture()
		f.checkouts.err = service.ErrEmptyCart
		rec := f.do(t, http.MethodPost, "/api/v1/checkout", InitiateCheckoutRequestDTO{IdempotencyKey: "k1"}, true)
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "empty_cart", decode[ErrorResponse](t, rec).Code)
	})

	t.Run("key of finished request", func(t *testing.T) {
		f := newFixture()
		f.checkouts.err = checkout.ErrRequestClosed
		rec := f.do(t, http.MethodPost, "/api/v1/checkout", InitiateCheckoutRequestDTO{IdempotencyKey: "k1"}, true)
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "idempotency_key_spent", decode[ErrorResponse](t, rec).Code)
	})
}

func TestCompleteCheckout(t *testing.T) {
	f := newFixture()
	f.checkouts.result = &checkout.Result{
		Request: &domain.PaymentRequest{
			ID:       "req-1",
			Amount:   decimal.RequireFromString("10"),
			Currency: "USD",
			Status:   domain.CheckoutStatusCompleted,
		},
		Cleared: true,
	}

	// no Authorization header: the payment form redirects the browser here
	rec := f.do(t, http.MethodGet, "/api/v1/checkout/complete?request_id=req-1&token=tok", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[CheckoutResponseDTO](t, rec)
	assert.Equal(t, "COMPLETED", resp.Status)
	require.NotNil(t, resp.CartCleared)
	assert.True(t, *resp.CartCleared)
	assert.Equal(t, checkout.Signal{RequestID: "req-1", Token: "tok"}, f.checkouts.lastSignal)
}

func TestCompleteCheckout_Errors(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		expectedHTTP int
		expectedCode string
	}{
		{"missing token", checkout.ErrInvalidSignal, http.StatusBadRequest, "invalid_argument"},
		{"unknown request", checkout.ErrRequestNotFound, http.StatusNotFound, "not_found"},
		{"repeated signal", checkout.ErrAlreadyObserved, http.StatusConflict, "already_observed"},
		{"amount mismatch", checkout.ErrConfirmationMatch, http.StatusConflict, "confirmation_mismatch"},
		{"unknown token", payment.ErrUnknownToken, http.StatusBadRequest, "unknown_token"},
		{"payment service down", circuitbreaker.ErrUnavailable, http.StatusServiceUnavailable, "service_unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.checkouts.err = tt.err
			rec := f.do(t, http.MethodGet, "/api/v1/checkout/complete?request_id=r&token=t", nil, false)
			assert.Equal(t, tt.expectedHTTP, rec.Code)
			assert.Equal(t, tt.expectedCode, decode[ErrorResponse](t, rec).Code)
		})
	}
}

func TestGetCheckout(t *testing.T) {
	f := newFixture()
	f.checkouts.request = &domain.PaymentRequest{
		ID:     "req-1",
		UserID: testUser.UID,
		Amount: decimal.RequireFromString("10"),
		Status: domain.CheckoutStatusFailed,
	}

	rec := f.do(t, http.MethodGet, "/api/v1/checkout/req-1", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "FAILED", decode[CheckoutResponseDTO](t, rec).Status)

	rec = f.do(t, http.MethodGet, "/api/v1/checkout/req-2", nil, true)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListOrders(t *testing.T) {
	f := newFixture()
	paidAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f.history.purchases = []*orders.Purchase{{
		ID:         uuid.New(),
		CheckoutID: uuid.New(),
		UserID:     testUser.UID,
		Amount:     decimal.RequireFromString("45.5"),
		Currency:   "USD",
		PaymentID:  "pay-1",
		PaidAt:     paidAt,
	}}

	rec := f.do(t, http.MethodGet, "/api/v1/orders", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)

	got := decode[[]PurchaseResponseDTO](t, rec)
	require.Len(t, got, 1)
	assert.Equal(t, "45.50", got[0].Amount)
	assert.Equal(t, "pay-1", got[0].PaymentID)
	assert.Equal(t, "2026-03-01T12:00:00Z", got[0].PaidAt)
}

func TestListOrders_Empty(t *testing.T) {
	f := newFixture()
	rec := f.do(t, http.MethodGet, "/api/v1/orders", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}
