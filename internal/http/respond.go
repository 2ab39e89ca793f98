package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/fjod/butchershop/internal/auth"
	"github.com/fjod/butchershop/internal/cart"
	"github.com/fjod/butchershop/internal/checkout"
	"github.com/fjod/butchershop/internal/live"
	ordersrepo "github.com/fjod/butchershop/internal/orders/repository"
	"github.com/fjod/butchershop/internal/products"
	productsrepo "github.com/fjod/butchershop/internal/products/repository"
	profilesrepo "github.com/fjod/butchershop/internal/profiles/repository"
	"github.com/fjod/butchershop/pkg/logger"
)

const (
	redirectAuth    = "/auth"
	redirectOrders  = "/orders"
	redirectProfile = "/complete-profile"
)

type ErrorResponse struct {
	Error    string `json:"error"`
	Code     string `json:"code,omitempty"`
	Details  string `json:"details,omitempty"`
	Redirect string `json:"redirect,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		zap.L().Warn("failed to encode response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

func respondUnauthenticated(w http.ResponseWriter, message string) {
	respondJSON(w, http.StatusUnauthorized, ErrorResponse{
		Error:    message,
		Code:     "unauthenticated",
		Redirect: redirectAuth,
	})
}

type errorMapping struct {
	target   error
	status   int
	code     string
	redirect string
}

var errorMappings = []errorMapping{
	{checkout.ErrUnauthenticated, http.StatusUnauthorized, "unauthenticated", redirectAuth},
	{auth.ErrInvalidToken, http.StatusUnauthorized, "unauthenticated", redirectAuth},
	{auth.ErrRevokedToken, http.StatusUnauthorized, "unauthenticated", redirectAuth},
	{auth.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials", ""},
	{auth.ErrWeakPassword, http.StatusBadRequest, "weak_password", ""},
	{auth.ErrEmailTaken, http.StatusConflict, "email_taken", ""},
	{checkout.ErrProfilePending, http.StatusConflict, "profile_pending", redirectProfile},
	{checkout.ErrSubmissionInFlight, http.StatusConflict, "submission_in_flight", ""},
	{checkout.ErrIllegalTransition, http.StatusConflict, "illegal_transition", ""},
	{checkout.ErrEmptyCart, http.StatusUnprocessableEntity, "empty_cart", ""},
	{checkout.ErrNoFlow, http.StatusNotFound, "no_checkout", ""},
	{productsrepo.ErrProductNotFound, http.StatusNotFound, "not_found", ""},
	{ordersrepo.ErrOrderNotFound, http.StatusNotFound, "not_found", ""},
	{profilesrepo.ErrProfileNotFound, http.StatusNotFound, "not_found", redirectProfile},
	{live.ErrUnknownTopic, http.StatusNotFound, "not_found", ""},
	{products.ErrInvalidProduct, http.StatusBadRequest, "invalid_argument", ""},
	{ordersrepo.ErrInvalidStatus, http.StatusBadRequest, "invalid_status", ""},
	{cart.ErrInvalidSession, http.StatusBadRequest, "invalid_session", ""},
	{cart.ErrPersist, http.StatusServiceUnavailable, "storage_unavailable", ""},
	{cart.ErrLoad, http.StatusServiceUnavailable, "storage_unavailable", ""},
	{errInvalidBody, http.StatusBadRequest, "invalid_request", ""},
	{context.DeadlineExceeded, http.StatusGatewayTimeout, "timeout", ""},
}

// handleServiceError converts package errors into HTTP status codes, like a gRPC status mapping.
func handleServiceError(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			respondJSON(w, m.status, ErrorResponse{
				Error:    err.Error(),
				Code:     m.code,
				Redirect: m.redirect,
			})
			return
		}
	}

	logger.FromContext(r.Context(), log).Error("request failed",
		zap.String("path", r.URL.Path), zap.Error(err))
	respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
}
