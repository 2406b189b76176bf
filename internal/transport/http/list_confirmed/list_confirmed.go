package listconfirmed

import (
	"context"
	"net/http"

	"github.com/corray333/backend-labs/cafe/internal/service/models/order"
	"github.com/corray333/backend-labs/cafe/internal/transport/http/response"
)

type service interface {
	ListConfirmed(ctx context.Context) ([]order.Order, error)
}

// ListConfirmed handles GET /api/orders/confirmed.
func ListConfirmed(w http.ResponseWriter, r *http.Request, service service) {
	orders, err := service.ListConfirmed(r.Context())
	if err != nil {
		response.Error(w, r, err)

		return
	}

	response.JSON(w, http.StatusOK, orders)
}
