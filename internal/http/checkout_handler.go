package http

import (
	"context"
	"net/http"
	"time"

	"github.com/Johnm75/Tienda/internal/checkout"
	"github.com/Johnm75/Tienda/internal/domain"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type Checkouts interface {
	Checkout(ctx context.Context, userID, idempotencyKey string) (*checkout.Initiated, error)
	Complete(ctx context.Context, sig checkout.Signal) (*checkout.Result, error)
	Get(ctx context.Context, userID, id string) (*domain.PaymentRequest, error)
}

type CheckoutHandler struct {
	checkouts Checkouts
	timeout   time.Duration
	log       *zap.Logger
}

func NewCheckoutHandler(checkouts Checkouts, timeout time.Duration, log *zap.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		checkouts: checkouts,
		timeout:   timeout,
		log:       log,
	}
}

type InitiateCheckoutRequestDTO struct {
	IdempotencyKey string `json:"idempotency_key"`
}

type CheckoutResponseDTO struct {
	CheckoutID  string `json:"checkout_id"`
	Status      string `json:"status"`
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
	RedirectURL string `json:"redirect_url,omitempty"`
	CartCleared *bool  `json:"cart_cleared,omitempty"`
}

func toCheckoutResponse(req *domain.PaymentRequest) CheckoutResponseDTO {
	return CheckoutResponseDTO{
		CheckoutID: req.ID,
		Status:     req.Status.String(),
		Amount:     req.Amount.StringFixed(2),
		Currency:   req.Currency,
	}
}

// POST /api/v1/checkout
func (h *CheckoutHandler) InitiateCheckout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req InitiateCheckoutRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.IdempotencyKey == "" {
		respondError(w, http.StatusBadRequest, "missing_idempotency_key",
			"idempotency_key is required")
		return
	}

	started, err := h.checkouts.Checkout(ctx, user.UID, req.IdempotencyKey)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	resp := toCheckoutResponse(started.Request)
	resp.RedirectURL = started.RedirectURL
	respondJSON(w, http.StatusCreated, resp)
}

// GET /api/v1/checkout/complete
//
// The payment form redirects the browser here, so the route is not behind
// the auth middleware. The token is verified with the payment service.
func (h *CheckoutHandler) Complete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	q := r.URL.Query()
	sig := checkout.Signal{RequestID: q.Get("request_id"), Token: q.Get("token")}

	result, err := h.checkouts.Complete(ctx, sig)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	resp := toCheckoutResponse(result.Request)
	cleared := result.Cleared
	resp.CartCleared = &cleared
	respondJSON(w, http.StatusOK, resp)
}

// GET /api/v1/checkout/{id}
func (h *CheckoutHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	req, err := h.checkouts.Get(ctx, user.UID, chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	respondJSON(w, http.StatusOK, toCheckoutResponse(req))
}
