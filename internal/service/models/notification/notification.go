package notification

import (
	"github.com/corray333/backend-labs/cafe/internal/service/models/order"
	"github.com/corray333/backend-labs/cafe/internal/service/models/orderitem"
	"github.com/shopspring/decimal"
)

// Notification carries everything needed to email a verification code.
type Notification struct {
	OrderID      string                `json:"orderId"`
	To           string                `json:"to"`
	EmployeeName string                `json:"employeeName"`
	Code         string                `json:"code"`
	Items        []orderitem.OrderItem `json:"items"`
	Total        decimal.Decimal       `json:"total"`
}

// FromOrder builds the notification for a freshly created order.
func FromOrder(o order.Order) Notification {
	return Notification{
		OrderID:      o.ID,
		To:           o.EmployeeEmail,
		EmployeeName: o.EmployeeName,
		Code:         o.VerificationCode,
		Items:        o.Items,
		Total:        o.Total,
	}
}
