package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/fjod/butchershop/internal/domain"
	ordersrepo "github.com/fjod/butchershop/internal/orders/repository"
)

type OrdersHandler struct {
	orders  OrderStore
	timeout time.Duration
	log     *zap.Logger
}

func NewOrdersHandler(orders OrderStore, timeout time.Duration, log *zap.Logger) *OrdersHandler {
	return &OrdersHandler{orders: orders, timeout: timeout, log: log}
}

// GET /api/v1/orders
func (h *OrdersHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r, h.timeout)
	defer cancel()

	id := identityFromContext(r.Context())
	orders, err := h.orders.ListOrdersByUserID(ctx, id.UserID)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	if orders == nil {
		orders = []*domain.Order{}
	}
	respondJSON(w, http.StatusOK, orders)
}

// GET /api/v1/orders/{order_id}
func (h *OrdersHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r, h.timeout)
	defer cancel()

	id := identityFromContext(r.Context())
	order, err := h.orders.GetOrderByID(ctx, chi.URLParam(r, "order_id"))
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	// other users' orders are reported as missing
	if order.UserID != id.UserID {
		handleServiceError(w, r, h.log, ordersrepo.ErrOrderNotFound)
		return
	}
	respondJSON(w, http.StatusOK, order)
}
