// Package http exposes the storefront over a JSON API.
package http

import (
	"net/http"
	"time"

	"github.com/Johnm75/Tienda/internal/catalog"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type RouterConfig struct {
	Auth      Authenticator
	Accounts  Accounts
	Products  catalog.Catalog
	Carts     Carts
	Checkouts Checkouts
	History   PurchaseLister

	AssetBaseURL string
	// AssetDir, when set, is served under /assets.
	AssetDir string

	RequestTimeout     time.Duration
	MaxRequestBodySize int64
	Logger             *zap.Logger
}

func NewRouter(cfg RouterConfig) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	accountHandler := NewAccountHandler(cfg.Accounts, cfg.RequestTimeout, log)
	productHandler := NewProductHandler(cfg.Products, cfg.AssetBaseURL, cfg.RequestTimeout, log)
	cartHandler := NewCartHandler(cfg.Carts, cfg.AssetBaseURL, cfg.RequestTimeout, log)
	checkoutHandler := NewCheckoutHandler(cfg.Checkouts, cfg.RequestTimeout, log)
	ordersHandler := NewOrdersHandler(cfg.History, cfg.RequestTimeout, log)

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(RequestIDMiddleware)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if cfg.MaxRequestBodySize > 0 {
		r.Use(middleware.RequestSize(cfg.MaxRequestBodySize))
	}
	r.Use(middleware.Compress(5))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if cfg.AssetDir != "" {
		r.Handle("/assets/*", http.StripPrefix("/assets/", http.FileServer(http.Dir(cfg.AssetDir))))
	}

	r.Route("/api/v1", func(r chi.Router) {
		// Public routes
		r.Post("/auth/register", accountHandler.Register)
		r.Post("/auth/login", accountHandler.Login)
		r.Post("/auth/google", accountHandler.LoginWithGoogle)
		r.Get("/products", productHandler.List)
		r.Get("/checkout/complete", checkoutHandler.Complete)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(cfg.Auth))

			r.Post("/auth/logout", accountHandler.Logout)

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", cartHandler.GetCart)
				r.Delete("/", cartHandler.ClearCart)
				r.Post("/items", cartHandler.AddItem)
				r.Delete("/items/{product_id}", cartHandler.RemoveItem)
			})

			r.Post("/checkout", checkoutHandler.InitiateCheckout)
			r.Get("/checkout/{id}", checkoutHandler.Get)
			r.Get("/orders", ordersHandler.ListOrders)

			r.Get("/profile", accountHandler.GetProfile)
			r.Put("/profile", accountHandler.UpdateProfile)

			r.Route("/account/deletion", func(r chi.Router) {
				r.Post("/", accountHandler.OpenDeletion)
				r.Get("/", accountHandler.DeletionStatus)
				r.Delete("/", accountHandler.CancelDeletion)
				r.Post("/confirm", accountHandler.ConfirmDeletion)
			})
		})
	})

	return r
}
