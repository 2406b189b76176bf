package order

import (
	"time"

	"github.com/corray333/backend-labs/cafe/internal/service/models/orderitem"
	"github.com/shopspring/decimal"
)

func init() {
	// Monetary values travel as JSON numbers, not strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// Status is the lifecycle state of an order.
type Status string

const (
	StatusPending   Status = "Pending"
	StatusConfirmed Status = "Confirmed"
)

func (s Status) String() string {
	return string(s)
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == StatusPending || s == StatusConfirmed
}

// Order represents a submitted café order.
type Order struct {
	ID               string                `json:"_id"`
	EmployeeName     string                `json:"employeeName"`
	EmployeeEmail    string                `json:"employeeEmail"`
	Items            []orderitem.OrderItem `json:"items"`
	Total            decimal.Decimal       `json:"total"`
	VerificationCode string                `json:"-"`
	Status           Status                `json:"status"`
	CreatedAt        time.Time             `json:"createdAt"`
	UpdatedAt        time.Time             `json:"updatedAt"`
}

// IsConfirmed reports whether the order has been verified.
func (o *Order) IsConfirmed() bool {
	return o.Status == StatusConfirmed
}
