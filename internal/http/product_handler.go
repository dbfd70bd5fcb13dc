package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/Johnm75/Tienda/internal/catalog"
	"github.com/Johnm75/Tienda/internal/domain"
	"go.uber.org/zap"
)

type ProductHandler struct {
	products  catalog.Catalog
	assetBase string
	timeout   time.Duration
	log       *zap.Logger
}

func NewProductHandler(products catalog.Catalog, assetBase string, timeout time.Duration, log *zap.Logger) *ProductHandler {
	return &ProductHandler{
		products:  products,
		assetBase: assetBase,
		timeout:   timeout,
		log:       log,
	}
}

type ProductResponse struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Price    string `json:"price"`
	ImageURL string `json:"image_url"`
}

type ProductsResponse struct {
	Products []ProductResponse `json:"products"`
	Page     int               `json:"page"`
	PageSize int               `json:"page_size"`
	Total    int               `json:"total"`
}

func toProductResponse(p domain.Product, assetBase string) ProductResponse {
	return ProductResponse{
		ID:       p.ID,
		Name:     p.Name,
		Price:    p.Price.StringFixed(2),
		ImageURL: p.Image.URL(assetBase),
	}
}

// GET /api/v1/products
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	page, ok := queryInt(w, r, "page", 1)
	if !ok {
		return
	}
	pageSize, ok := queryInt(w, r, "page_size", catalog.DefaultPageSize)
	if !ok {
		return
	}

	res, err := h.products.List(ctx, page, pageSize)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	products := make([]ProductResponse, len(res.Products))
	for i, p := range res.Products {
		products[i] = toProductResponse(p, h.assetBase)
	}

	respondJSON(w, http.StatusOK, &ProductsResponse{
		Products: products,
		Page:     res.Page,
		PageSize: res.PageSize,
		Total:    res.Total,
	})
}

func queryInt(w http.ResponseWriter, r *http.Request, name string, def int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_"+name, name+" must be a positive integer")
		return 0, false
	}
	return n, true
}
