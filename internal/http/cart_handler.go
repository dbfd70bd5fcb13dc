package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/Johnm75/Tienda/internal/cart"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Carts is the session cart surface the handlers use.
type Carts interface {
	GetCart(ctx context.Context, userID string) (*cart.Cart, error)
	AddItem(ctx context.Context, userID string, productID int64) (*cart.Cart, error)
	RemoveItem(ctx context.Context, userID string, productID int64) (*cart.Cart, error)
	ClearCart(ctx context.Context, userID string) error
}

type CartHandler struct {
	carts     Carts
	assetBase string
	timeout   time.Duration
	log       *zap.Logger
}

func NewCartHandler(carts Carts, assetBase string, timeout time.Duration, log *zap.Logger) *CartHandler {
	return &CartHandler{
		carts:     carts,
		assetBase: assetBase,
		timeout:   timeout,
		log:       log,
	}
}

type AddItemRequestDTO struct {
	ProductID int64 `json:"product_id"`
}

type CartResponseDTO struct {
	Items []ProductResponse `json:"items"`
	Count int               `json:"count"`
	Total string            `json:"total"`
}

func (h *CartHandler) toResponse(c *cart.Cart) CartResponseDTO {
	lines := c.Lines()
	items := make([]ProductResponse, len(lines))
	for i, p := range lines {
		items[i] = toProductResponse(p, h.assetBase)
	}
	return CartResponseDTO{
		Items: items,
		Count: len(items),
		Total: c.Total().StringFixed(2),
	}
}

// GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	c, err := h.carts.GetCart(ctx, user.UID)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	respondJSON(w, http.StatusOK, h.toResponse(c))
}

// POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req AddItemRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ProductID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be positive")
		return
	}

	c, err := h.carts.AddItem(ctx, user.UID, req.ProductID)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	respondJSON(w, http.StatusCreated, h.toResponse(c))
}

// DELETE /api/v1/cart/items/{product_id}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	productID, err := strconv.ParseInt(chi.URLParam(r, "product_id"), 10, 64)
	if err != nil || productID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be a positive integer")
		return
	}

	c, err := h.carts.RemoveItem(ctx, user.UID, productID)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	respondJSON(w, http.StatusOK, h.toResponse(c))
}

// DELETE /api/v1/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	if err := h.carts.ClearCart(ctx, user.UID); err != nil {
		handleError(w, r, h.log, err)
		return
	}

	respondJSON(w, http.StatusOK, h.toResponse(cart.New()))
}
