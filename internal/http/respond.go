package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Johnm75/Tienda/internal/catalog"
	"github.com/Johnm75/Tienda/internal/checkout"
	"github.com/Johnm75/Tienda/internal/domain"
	"github.com/Johnm75/Tienda/internal/gate"
	"github.com/Johnm75/Tienda/internal/payment"
	"github.com/Johnm75/Tienda/internal/service"
	"github.com/Johnm75/Tienda/pkg/circuitbreaker"
	"github.com/Johnm75/Tienda/pkg/logger"
	"go.uber.org/zap"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
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

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return false
	}
	return true
}

// requireUser writes a 401 and returns false when the request carries no user.
func requireUser(w http.ResponseWriter, r *http.Request) (domain.UserHandle, bool) {
	u, ok := domain.UserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
	}
	return u, ok
}

// handleError converts service errors to HTTP status codes.
func handleError(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	var validation *domain.ValidationError
	var auth *domain.AuthError

	switch {
	case errors.As(err, &validation):
		respondJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   err.Error(),
			Code:    "invalid_argument",
			Details: validation.Field,
		})
	case errors.Is(err, checkout.ErrInvalidSignal),
		errors.Is(err, checkout.ErrNegativeTotal):
		respondError(w, http.StatusBadRequest, "invalid_argument", err.Error())
	case errors.Is(err, payment.ErrUnknownToken):
		respondError(w, http.StatusBadRequest, "unknown_token", "payment token could not be verified")

	case errors.Is(err, domain.ErrEmailTaken):
		respondError(w, http.StatusConflict, "already_exists", domain.ErrEmailTaken.Error())
	case errors.As(err, &auth):
		respondError(w, http.StatusUnauthorized, "unauthenticated", authMessage(auth))

	case errors.Is(err, catalog.ErrProductNotFound),
		errors.Is(err, service.ErrProfileNotFound),
		errors.Is(err, service.ErrCheckoutNotFound),
		errors.Is(err, checkout.ErrRequestNotFound):
		respondError(w, http.StatusNotFound, "not_found", err.Error())

	case errors.Is(err, checkout.ErrAlreadyObserved):
		respondError(w, http.StatusConflict, "already_observed", err.Error())
	case errors.Is(err, checkout.ErrConfirmationMatch):
		respondError(w, http.StatusConflict, "confirmation_mismatch", err.Error())
	case errors.Is(err, checkout.ErrDuplicateRequest):
		respondError(w, http.StatusConflict, "already_exists", err.Error())
	case errors.Is(err, checkout.ErrRequestClosed):
		respondError(w, http.StatusConflict, "idempotency_key_spent", err.Error())
	case errors.Is(err, service.ErrEmptyCart):
		respondError(w, http.StatusConflict, "empty_cart", err.Error())
	case errors.Is(err, gate.ErrNotOpen),
		errors.Is(err, gate.ErrNotArmed),
		errors.Is(err, gate.ErrConfirmInProgress):
		respondError(w, http.StatusConflict, "confirmation_pending", err.Error())

	case errors.Is(err, circuitbreaker.ErrUnavailable):
		respondError(w, http.StatusServiceUnavailable, "service_unavailable", "payment service unavailable")
	case errors.Is(err, context.DeadlineExceeded):
		respondError(w, http.StatusGatewayTimeout, "timeout", "request timed out")

	default:
		logger.FromContext(r.Context(), log).Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

// authMessage hides storage errors behind the sentinel texts clients may see.
func authMessage(e *domain.AuthError) string {
	for _, known := range []error{domain.ErrInvalidCredentials, domain.ErrInvalidToken, domain.ErrUserNotFound} {
		if errors.Is(e, known) {
			return known.Error()
		}
	}
	return "authentication failed"
}
