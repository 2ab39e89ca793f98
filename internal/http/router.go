package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/fjod/butchershop/internal/cart"
	"github.com/fjod/butchershop/internal/checkout"
	"github.com/fjod/butchershop/internal/geo"
	"github.com/fjod/butchershop/internal/live"
	profilesrepo "github.com/fjod/butchershop/internal/profiles/repository"
)

type RouterConfig struct {
	Auth         Authenticator
	Products     ProductService
	Orders       OrderStore
	Profiles     profilesrepo.ProfileRepository
	Carts        *cart.Registry
	Checkout     *checkout.Sessions
	Trackers     *geo.Trackers
	Live         *live.Hub
	IsAdminEmail func(string) bool

	RequestTimeout     time.Duration
	MaxRequestBodySize int64
	AuthRateRPS        float64
	AuthRateBurst      int
	CookieSecure       bool
	Log                *zap.Logger
}

func NewRouter(cfg RouterConfig) http.Handler {
	log := cfg.Log
	if log == nil {
		log = zap.NewNop()
	}
	timeout := cfg.RequestTimeout
	maxBody := cfg.MaxRequestBodySize

	catalogHandler := NewCatalogHandler(cfg.Products, cfg.Carts, timeout, log)
	cartHandler := NewCartHandler(cfg.Carts, cfg.Products, cfg.Live, timeout, maxBody, log)
	authHandler := NewAuthHandler(cfg.Auth, cfg.Profiles, cfg.IsAdminEmail, timeout, maxBody, cfg.CookieSecure, log)
	profileHandler := NewProfileHandler(cfg.Profiles, cfg.Trackers, cfg.Checkout, timeout, maxBody, log)
	checkoutHandler := NewCheckoutHandler(cfg.Checkout, cfg.Carts, cfg.Profiles, timeout, maxBody, log)
	ordersHandler := NewOrdersHandler(cfg.Orders, timeout, log)
	adminHandler := NewAdminHandler(cfg.Orders, cfg.Products, cfg.Live, timeout, maxBody, log)
	limiter := NewRateLimiter(cfg.AuthRateRPS, cfg.AuthRateBurst)

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestIDMiddleware)
	r.Use(AuthMiddleware(cfg.Auth))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(RequireAuth)
			r.Use(RequireAdmin(cfg.Profiles, cfg.IsAdminEmail, log))

			// websocket upgrades must not be wrapped by the timeout or compression writers
			r.Get("/admin/live/{topic}", adminHandler.Live)

			r.Group(func(r chi.Router) {
				r.Use(middleware.Timeout(timeout))
				r.Use(middleware.Compress(5))

				r.Get("/admin/dashboard", adminHandler.Dashboard)
				r.Get("/admin/orders", adminHandler.ListOrders)
				r.Put("/admin/orders/{order_id}/status", adminHandler.UpdateOrderStatus)
				r.Get("/admin/products", adminHandler.ListProducts)
				r.Post("/admin/products", adminHandler.CreateProduct)
				r.Put("/admin/products/{id}", adminHandler.UpdateProduct)
				r.Delete("/admin/products/{id}", adminHandler.DeleteProduct)
			})
		})

		// websocket, no timeout or compression
		r.With(CartSessionMiddleware(cfg.CookieSecure)).Get("/cart/live", cartHandler.Live)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(timeout))
			r.Use(middleware.Compress(5))
			r.Use(CartSessionMiddleware(cfg.CookieSecure))

			r.Get("/categories", catalogHandler.Categories)
			r.Route("/products", func(r chi.Router) {
				r.Get("/", catalogHandler.List)
				r.Get("/search", catalogHandler.Search)
				r.Get("/{id}", catalogHandler.Get)
			})

			r.Get("/cart", cartHandler.GetCart)
			r.Delete("/cart", cartHandler.ClearCart)
			r.Post("/cart/items", cartHandler.AddItem)
			r.Delete("/cart/items/{id}", cartHandler.RemoveItem)
			r.Post("/cart/toggle/{id}", cartHandler.Toggle)

			r.Route("/auth", func(r chi.Router) {
				r.With(limiter.Middleware).Post("/signup", authHandler.Signup)
				r.With(limiter.Middleware).Post("/login", authHandler.Login)
				r.Post("/logout", authHandler.Logout)
			})
			r.Get("/session", authHandler.Session)

			// identity is checked by the wizard itself on entry
			r.Route("/checkout", func(r chi.Router) {
				r.Post("/", checkoutHandler.InitiateCheckout)
				r.Get("/", checkoutHandler.GetCheckout)
				r.Delete("/", checkoutHandler.Abandon)
				r.Post("/continue", checkoutHandler.Continue)
				r.Post("/back", checkoutHandler.Back)
				r.Post("/place", checkoutHandler.PlaceOrder)
			})

			r.Group(func(r chi.Router) {
				r.Use(RequireAuth)

				r.Get("/profile", profileHandler.Get)
				r.Put("/profile", profileHandler.Save)
				r.Post("/profile/locate", profileHandler.Locate)
				r.Get("/profile/location", profileHandler.Location)

				r.Get("/orders", ordersHandler.ListOrders)
				r.Get("/orders/{order_id}", ordersHandler.GetOrder)
			})
		})
	})

	return r
}
