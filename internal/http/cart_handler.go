package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/fjod/butchershop/internal/cart"
	"github.com/fjod/butchershop/internal/domain"
	"github.com/fjod/butchershop/internal/live"
)

type CartHandler struct {
	carts    *cart.Registry
	products ProductService
	hub      *live.Hub
	timeout  time.Duration
	maxBody  int64
	log      *zap.Logger
}

func NewCartHandler(carts *cart.Registry, products ProductService, hub *live.Hub, timeout time.Duration, maxBody int64, log *zap.Logger) *CartHandler {
	return &CartHandler{carts: carts, products: products, hub: hub, timeout: timeout, maxBody: maxBody, log: log}
}

type AddItemRequestDTO struct {
	ProductID string `json:"product_id"`
}

type CartResponse struct {
	Items []domain.CartItem `json:"items"`
	Count int               `json:"count"`
	Total int64             `json:"total"`
	// Warning is set when the change is applied but could not be saved.
	Warning string `json:"warning,omitempty"`
}

type ToggleResponse struct {
	Added bool         `json:"added"`
	Cart  CartResponse `json:"cart"`
}

func cartResponse(s *cart.Store) CartResponse {
	return CartResponse{Items: s.Items(), Count: s.Count(), Total: s.Total()}
}

func (h *CartHandler) store(r *http.Request) (*cart.Store, error) {
	return h.carts.Get(r.Context(), cartSessionFromContext(r.Context()))
}

// GET /api/v1/cart/live (websocket). Pushes the cart on connect and after every change made
// from any view of the same cart session.
func (h *CartHandler) Live(w http.ResponseWriter, r *http.Request) {
	s, err := h.store(r)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	h.hub.Stream(w, r, live.TopicCart, func(push func(any)) func() {
		return s.Subscribe(func(items []domain.CartItem) {
			push(CartResponse{Items: items, Count: len(items), Total: domain.SumPrices(items)})
		})
	})
}

// GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	s, err := h.store(r)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, cartResponse(s))
}

// POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r, h.timeout)
	defer cancel()

	var req AddItemRequestDTO
	if err := decodeBody(r, h.maxBody, cartItemLoader, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	p, err := h.products.Get(ctx, req.ProductID)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	s, err := h.store(r)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	h.respondMutation(w, r, s, http.StatusCreated, s.Add(ctx, p.Snapshot()))
}

// POST /api/v1/cart/toggle/{id}
func (h *CartHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r, h.timeout)
	defer cancel()

	s, err := h.store(r)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	id := chi.URLParam(r, "id")
	item := domain.CartItem{ID: id}
	if !s.Contains(id) {
		p, err := h.products.Get(ctx, id)
		if err != nil {
			handleServiceError(w, r, h.log, err)
			return
		}
		item = p.Snapshot()
	}
	added, err := s.Toggle(ctx, item)

	resp := ToggleResponse{Added: added, Cart: cartResponse(s)}
	if errors.Is(err, cart.ErrPersist) {
		resp.Cart.Warning = err.Error()
		respondJSON(w, http.StatusAccepted, resp)
		return
	}
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// DELETE /api/v1/cart/items/{id}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r, h.timeout)
	defer cancel()

	s, err := h.store(r)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	h.respondMutation(w, r, s, http.StatusOK, s.Remove(ctx, chi.URLParam(r, "id")))
}

// DELETE /api/v1/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r, h.timeout)
	defer cancel()

	s, err := h.store(r)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	h.respondMutation(w, r, s, http.StatusOK, s.Clear(ctx))
}

// respondMutation renders the cart after a change. A change that could not be saved is still shown,
// with a warning, since the in-memory cart stays authoritative.
func (h *CartHandler) respondMutation(w http.ResponseWriter, r *http.Request, s *cart.Store, status int, err error) {
	if errors.Is(err, cart.ErrPersist) {
		resp := cartResponse(s)
		resp.Warning = err.Error()
		respondJSON(w, http.StatusAccepted, resp)
		return
	}
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	respondJSON(w, status, cartResponse(s))
}
