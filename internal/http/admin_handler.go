package http

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/fjod/butchershop/internal/dashboard"
	"github.com/fjod/butchershop/internal/domain"
	"github.com/fjod/butchershop/internal/live"
	ordersrepo "github.com/fjod/butchershop/internal/orders/repository"
	"github.com/fjod/butchershop/pkg/logger"
)

type AdminHandler struct {
	orders   OrderStore
	products ProductService
	hub      *live.Hub
	timeout  time.Duration
	maxBody  int64
	log      *zap.Logger
}

func NewAdminHandler(orders OrderStore, products ProductService, hub *live.Hub, timeout time.Duration, maxBody int64, log *zap.Logger) *AdminHandler {
	return &AdminHandler{
		orders:   orders,
		products: products,
		hub:      hub,
		timeout:  timeout,
		maxBody:  maxBody,
		log:      log,
	}
}

type UpdateStatusRequestDTO struct {
	Status string `json:"status"`
}

type ProductRequestDTO struct {
	Name        string `json:"name"`
	Price       int64  `json:"price"`
	Stock       int    `json:"stock"`
	Category    string `json:"category"`
	Cut         string `json:"cut"`
	Description string `json:"description"`
	ImageURL    string `json:"imageUrl"`
}

func (d ProductRequestDTO) product() domain.Product {
	return domain.Product{
		Name:        d.Name,
		Price:       d.Price,
		Stock:       d.Stock,
		Category:    d.Category,
		Cut:         d.Cut,
		Description: d.Description,
		ImageURL:    d.ImageURL,
	}
}

// GET /api/v1/admin/dashboard
func (h *AdminHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r, h.timeout)
	defer cancel()

	orders, err := h.orders.ListOrders(ctx)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, dashboard.Summarize(orders))
}

// GET /api/v1/admin/orders
func (h *AdminHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r, h.timeout)
	defer cancel()

	orders, err := h.orders.ListOrders(ctx)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	if orders == nil {
		orders = []*domain.Order{}
	}
	respondJSON(w, http.StatusOK, orders)
}

// PUT /api/v1/admin/orders/{order_id}/status
func (h *AdminHandler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r, h.timeout)
	defer cancel()

	var req UpdateStatusRequestDTO
	if err := decodeBody(r, h.maxBody, orderStatusLoader, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	status, err := domain.ParseOrderStatus(req.Status)
	if err != nil {
		handleServiceError(w, r, h.log, fmt.Errorf("%w: %v", ordersrepo.ErrInvalidStatus, err))
		return
	}

	orderID := chi.URLParam(r, "order_id")
	order, err := h.orders.UpdateOrderStatus(ctx, orderID, status)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	logger.FromContext(ctx, h.log).Info("order status updated",
		zap.String("order_id", orderID), zap.String("status", status.String()))
	respondJSON(w, http.StatusOK, order)
}

// GET /api/v1/admin/products
func (h *AdminHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r, h.timeout)
	defer cancel()

	products, err := h.products.ListByName(ctx)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, products)
}

// POST /api/v1/admin/products
func (h *AdminHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r, h.timeout)
	defer cancel()

	var req ProductRequestDTO
	if err := decodeBody(r, h.maxBody, productLoader, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	p, err := h.products.Create(ctx, req.product())
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusCreated, p)
}

// PUT /api/v1/admin/products/{id}
func (h *AdminHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r, h.timeout)
	defer cancel()

	var req ProductRequestDTO
	if err := decodeBody(r, h.maxBody, productLoader, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	p, err := h.products.Update(ctx, chi.URLParam(r, "id"), req.product())
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

// DELETE /api/v1/admin/products/{id}
func (h *AdminHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r, h.timeout)
	defer cancel()

	if err := h.products.Delete(ctx, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GET /api/v1/admin/live/{topic}
func (h *AdminHandler) Live(w http.ResponseWriter, r *http.Request) {
	topic := chi.URLParam(r, "topic")
	if !h.hub.Has(topic) {
		handleServiceError(w, r, h.log, live.ErrUnknownTopic)
		return
	}
	h.hub.Serve(topic)(w, r)
}
