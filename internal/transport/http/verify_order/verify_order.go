package verifyorder

import (
	"context"
	"net/http"

	"github.com/corray333/backend-labs/cafe/internal/transport/http/request"
	"github.com/corray333/backend-labs/cafe/internal/transport/http/response"
)

const confirmedMessage = "Order confirmed successfully."

type service interface {
	Verify(ctx context.Context, orderID, code string) error
}

type verifyOrderRequest struct {
	OrderID string `json:"orderId" validate:"required"`
	Code    string `json:"code"    validate:"required"`
}

// VerifyOrder handles POST /api/orders/verify.
func VerifyOrder(w http.ResponseWriter, r *http.Request, service service) {
	req := verifyOrderRequest{}
	if err := request.DecodeJSON(w, r, &req); err != nil {
		response.Error(w, r, err)

		return
	}

	if err := request.Validate(&req); err != nil {
		response.Error(w, r, err)

		return
	}

	if err := service.Verify(r.Context(), req.OrderID, req.Code); err != nil {
		response.Error(w, r, err)

		return
	}

	response.JSON(w, http.StatusOK, response.Result{
		Success: true,
		Message: confirmedMessage,
	})
}
