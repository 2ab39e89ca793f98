package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/fjod/butchershop/internal/cart"
	"github.com/fjod/butchershop/internal/catalog"
	"github.com/fjod/butchershop/internal/domain"
	"github.com/fjod/butchershop/pkg/logger"
)

type CatalogHandler struct {
	products ProductService
	carts    *cart.Registry
	timeout  time.Duration
	log      *zap.Logger
}

func NewCatalogHandler(products ProductService, carts *cart.Registry, timeout time.Duration, log *zap.Logger) *CatalogHandler {
	return &CatalogHandler{products: products, carts: carts, timeout: timeout, log: log}
}

// ProductCard is a product as rendered in the grid, with its stock and discount badges and cart membership.
type ProductCard struct {
	domain.Product
	SoldOut         bool  `json:"sold_out"`
	LowStock        bool  `json:"low_stock"`
	InCart          bool  `json:"in_cart"`
	OriginalPrice   int64 `json:"original_price"`
	DiscountPercent int   `json:"discount_percent"`
}

type ProductsResponse struct {
	Category string        `json:"category"`
	Sort     string        `json:"sort"`
	Products []ProductCard `json:"products"`
}

// GET /api/v1/categories
func (h *CatalogHandler) Categories(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string][]string{"categories": catalog.Categories()})
}

// GET /api/v1/products?category=&sort=
func (h *CatalogHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r, h.timeout)
	defer cancel()

	category := r.URL.Query().Get("category")
	if category == "" {
		category = catalog.CategoryAll
	}
	key := catalog.ParseSortKey(r.URL.Query().Get("sort"))

	products, err := h.products.View(ctx, category, key)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	respondJSON(w, http.StatusOK, ProductsResponse{
		Category: category,
		Sort:     string(key),
		Products: h.cards(ctx, products),
	})
}

// GET /api/v1/products/search?q=
func (h *CatalogHandler) Search(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r, h.timeout)
	defer cancel()

	results, err := h.products.Search(ctx, r.URL.Query().Get("q"))
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string][]ProductCard{"results": h.cards(ctx, results)})
}

// GET /api/v1/products/{id}
func (h *CatalogHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r, h.timeout)
	defer cancel()

	p, err := h.products.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, h.cards(ctx, []domain.Product{*p})[0])
}

// cards decorates products with cart membership. Without a readable cart every card shows as not in cart.
func (h *CatalogHandler) cards(ctx context.Context, products []domain.Product) []ProductCard {
	var store *cart.Store
	if sid := cartSessionFromContext(ctx); sid != "" {
		s, err := h.carts.Get(ctx, sid)
		if err != nil {
			logger.FromContext(ctx, h.log).Warn("cart unavailable for product cards", zap.Error(err))
		} else {
			store = s
		}
	}

	out := make([]ProductCard, len(products))
	for i, p := range products {
		out[i] = ProductCard{
			Product:         p,
			SoldOut:         p.SoldOut(),
			LowStock:        p.LowStock(),
			InCart:          store != nil && store.Contains(p.ID),
			OriginalPrice:   p.OriginalPrice(),
			DiscountPercent: p.DiscountPercent(),
		}
	}
	return out
}
