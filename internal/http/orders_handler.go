package http

import (
	"context"
	"net/http"
	"time"

	"github.com/Johnm75/Tienda/internal/orders"
	"go.uber.org/zap"
)

type PurchaseLister interface {
	ListByUser(ctx context.Context, userID string) ([]*orders.Purchase, error)
}

type OrdersHandler struct {
	history PurchaseLister
	timeout time.Duration
	log     *zap.Logger
}

func NewOrdersHandler(history PurchaseLister, timeout time.Duration, log *zap.Logger) *OrdersHandler {
	return &OrdersHandler{
		history: history,
		timeout: timeout,
		log:     log,
	}
}

type PurchaseResponseDTO struct {
	ID         string `json:"id"`
	CheckoutID string `json:"checkout_id"`
	Amount     string `json:"amount"`
	Currency   string `json:"currency"`
	PaymentID  string `json:"payment_id"`
	PaidAt     string `json:"paid_at"`
}

// GET /api/v1/orders
func (h *OrdersHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	purchases, err := h.history.ListByUser(ctx, user.UID)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	dtos := make([]PurchaseResponseDTO, 0, len(purchases))
	for _, p := range purchases {
		dtos = append(dtos, PurchaseResponseDTO{
			ID:         p.ID.String(),
			CheckoutID: p.CheckoutID.String(),
			Amount:     p.Amount.StringFixed(2),
			Currency:   p.Currency,
			PaymentID:  p.PaymentID,
			PaidAt:     p.PaidAt.UTC().Format(time.RFC3339),
		})
	}

	respondJSON(w, http.StatusOK, dtos)
}
