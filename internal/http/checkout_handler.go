package http

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/fjod/butchershop/internal/cart"
	"github.com/fjod/butchershop/internal/checkout"
	"github.com/fjod/butchershop/internal/domain"
	profilesrepo "github.com/fjod/butchershop/internal/profiles/repository"
)

type CheckoutHandler struct {
	sessions *checkout.Sessions
	carts    *cart.Registry
	profiles profilesrepo.ProfileRepository
	timeout  time.Duration
	maxBody  int64
	log      *zap.Logger
}

func NewCheckoutHandler(sessions *checkout.Sessions, carts *cart.Registry, profiles profilesrepo.ProfileRepository, timeout time.Duration, maxBody int64, log *zap.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		sessions: sessions,
		carts:    carts,
		profiles: profiles,
		timeout:  timeout,
		maxBody:  maxBody,
		log:      log,
	}
}

type InitiateCheckoutRequestDTO struct {
	IdempotencyKey string `json:"idempotency_key"`
}

type PlaceOrderResponseDTO struct {
	Order    *domain.Order `json:"order"`
	Redirect string        `json:"redirect"`
}

type PlaceOrderErrorDTO struct {
	ErrorResponse
	Checkout checkout.View `json:"checkout"`
}

// POST /api/v1/checkout
func (h *CheckoutHandler) InitiateCheckout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r, h.timeout)
	defer cancel()

	var req InitiateCheckoutRequestDTO
	if err := decodeBody(r, h.maxBody, checkoutLoader, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	id := identityFromContext(r.Context())
	var profile *domain.Profile
	if id != nil {
		p, err := loadProfile(ctx, h.profiles, id.UserID)
		if err != nil {
			handleServiceError(w, r, h.log, err)
			return
		}
		profile = p
	}

	store, err := h.carts.Get(ctx, cartSessionFromContext(r.Context()))
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	flow, err := h.sessions.Begin(id, profile, store, req.IdempotencyKey)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusCreated, flow.View())
}

// GET /api/v1/checkout
func (h *CheckoutHandler) GetCheckout(w http.ResponseWriter, r *http.Request) {
	flow, ok := h.flow(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, flow.View())
}

// POST /api/v1/checkout/continue
func (h *CheckoutHandler) Continue(w http.ResponseWriter, r *http.Request) {
	flow, ok := h.flow(w, r)
	if !ok {
		return
	}
	if err := flow.Continue(); err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, flow.View())
}

// POST /api/v1/checkout/back
func (h *CheckoutHandler) Back(w http.ResponseWriter, r *http.Request) {
	flow, ok := h.flow(w, r)
	if !ok {
		return
	}
	if err := flow.Back(); err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, flow.View())
}

// POST /api/v1/checkout/place
func (h *CheckoutHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r, h.timeout)
	defer cancel()

	flow, ok := h.flow(w, r)
	if !ok {
		return
	}

	order, err := h.sessions.PlaceOrder(ctx, identityFromContext(r.Context()).UserID)
	if err != nil {
		if checkout.IsUserError(err) {
			handleServiceError(w, r, h.log, err)
			return
		}
		// the flow is back at order review with the cart intact; show the failure inline
		h.log.Warn("place order failed", zap.Error(err))
		respondJSON(w, http.StatusBadGateway, PlaceOrderErrorDTO{
			ErrorResponse: ErrorResponse{
				Error: "could not place the order, please try again",
				Code:  "order_failed",
			},
			Checkout: flow.View(),
		})
		return
	}

	respondJSON(w, http.StatusCreated, PlaceOrderResponseDTO{Order: order, Redirect: redirectOrders})
}

// DELETE /api/v1/checkout
func (h *CheckoutHandler) Abandon(w http.ResponseWriter, r *http.Request) {
	id := identityFromContext(r.Context())
	if id == nil {
		respondUnauthenticated(w, "missing user authentication")
		return
	}
	if err := h.sessions.Abandon(id.UserID); err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CheckoutHandler) flow(w http.ResponseWriter, r *http.Request) (*checkout.Flow, bool) {
	id := identityFromContext(r.Context())
	if id == nil {
		respondUnauthenticated(w, "missing user authentication")
		return nil, false
	}
	flow, err := h.sessions.Get(id.UserID)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return nil, false
	}
	return flow, true
}
