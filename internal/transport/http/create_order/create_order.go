package createorder

import (
	"context"
	"fmt"
	"net/http"

	"github.com/corray333/backend-labs/cafe/internal/service/models/order"
	"github.com/corray333/backend-labs/cafe/internal/service/models/orderitem"
	"github.com/corray333/backend-labs/cafe/internal/service/services/ordersvc"
	"github.com/corray333/backend-labs/cafe/internal/transport/http/request"
	"github.com/corray333/backend-labs/cafe/internal/transport/http/response"
	"github.com/shopspring/decimal"
)

const createdMessage = "Order received. Please check your email for the verification code."

// service is an interface for the service layer.
type service interface {
	Create(ctx context.Context, in ordersvc.CreateInput) (order.Order, error)
}

// itemInCreateOrderRequest represents an item in a create order request.
type itemInCreateOrderRequest struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"      validate:"required"`
	Quantity  int             `json:"quantity"  validate:"gte=1"`
	Price     decimal.Decimal `json:"price"     validate:"gte=0"`
}

// createOrderRequest represents a create order request.
type createOrderRequest struct {
	EmployeeName  string                     `json:"employeeName"  validate:"required"`
	EmployeeEmail string                     `json:"employeeEmail" validate:"required"`
	Items         []itemInCreateOrderRequest `json:"items"         validate:"required,min=1,dive"`
	Total         *decimal.Decimal           `json:"total"`
}

// Validate validates the create order request.
func (r *createOrderRequest) Validate() error {
	if err := request.Validate(r); err != nil {
		return err
	}

	if r.Total == nil {
		return fmt.Errorf("%w: total is required", order.ErrInvalidRequest)
	}

	return nil
}

// toInput converts createOrderRequest to the service input.
func (r *createOrderRequest) toInput() ordersvc.CreateInput {
	items := make([]orderitem.OrderItem, len(r.Items))
	for i, item := range r.Items {
		items[i] = orderitem.OrderItem{
			ProductID: item.ProductID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			Price:     item.Price,
		}
	}

	return ordersvc.CreateInput{
		EmployeeName:  r.EmployeeName,
		EmployeeEmail: r.EmployeeEmail,
		Items:         items,
		Total:         *r.Total,
	}
}

// CreateOrder handles POST /api/orders.
func CreateOrder(w http.ResponseWriter, r *http.Request, service service) {
	req := createOrderRequest{}
	if err := request.DecodeJSON(w, r, &req); err != nil {
		response.Error(w, r, err)

		return
	}

	if err := req.Validate(); err != nil {
		response.Error(w, r, err)

		return
	}

	created, err := service.Create(r.Context(), req.toInput())
	if err != nil {
		response.Error(w, r, err)

		return
	}

	response.JSON(w, http.StatusCreated, response.Result{
		Success: true,
		OrderID: created.ID,
		Message: createdMessage,
	})
}
