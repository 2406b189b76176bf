package response

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/corray333/backend-labs/cafe/internal/service/models/order"
	"github.com/go-chi/chi/v5/middleware"
)

const internalErrorMessage = "internal server error"

// Result is the envelope of create and verify responses.
type Result struct {
	Success bool   `json:"success"`
	OrderID string `json:"orderId,omitempty"`
	Message string `json:"message"`
}

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error sending response", "error", err)
	}
}

// Error maps a service error to a status and a failure envelope.
// Unexpected errors are logged and hidden behind a generic message.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	status, message := Status(err)

	if status == http.StatusInternalServerError {
		slog.Error("Request failed",
			"request_id", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
	}

	JSON(w, status, Result{Success: false, Message: message})
}

// Status returns the HTTP status and user facing message for err.
func Status(err error) (int, string) {
	switch {
	case errors.Is(err, order.ErrInvalidRequest):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, order.ErrNotFound):
		return http.StatusNotFound, "Order not found."
	case errors.Is(err, order.ErrAlreadyConfirmed):
		return http.StatusBadRequest, "This order has already been confirmed."
	case errors.Is(err, order.ErrVerificationMismatch):
		return http.StatusBadRequest, "The verification code is incorrect."
	case errors.Is(err, order.ErrTooManyAttempts):
		return http.StatusTooManyRequests, "Too many verification attempts. Please try again later."
	default:
		return http.StatusInternalServerError, internalErrorMessage
	}
}
