// Package flow drives a single storefront order from cart to confirmation.
package flow

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/corray333/backend-labs/cafe/pkg/client"
	"github.com/corray333/backend-labs/cafe/pkg/storefront/cart"
)

// Stage is the step of the order flow the user is on.
type Stage int

const (
	Shopping Stage = iota
	Form
	Verification
	Confirmed
)

func (s Stage) String() string {
	switch s {
	case Shopping:
		return "shopping"
	case Form:
		return "form"
	case Verification:
		return "verification"
	case Confirmed:
		return "confirmed"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

const codeLength = 6

var emailRegexp = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

var (
	ErrEmptyCart  = errors.New("your cart is empty")
	ErrWrongStage = errors.New("action is not available at this stage")
	ErrBusy       = errors.New("a request is already in progress")
	ErrNoOrderID  = errors.New("no order id to verify")
)

// FormError holds per-field validation messages. Keys are employeeName, employeeEmail and code.
type FormError struct {
	Fields map[string]string
}

func (e *FormError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, key := range []string{"employeeName", "employeeEmail", "code"} {
		if msg, ok := e.Fields[key]; ok {
			parts = append(parts, msg)
		}
	}

	return strings.Join(parts, " ")
}

type orderAPI interface {
	CreateOrder(ctx context.Context, req client.CreateOrderRequest) (client.CreateOrderResponse, error)
	VerifyOrder(ctx context.Context, orderID, code string) error
}

// Controller owns the cart and the stage machine for one active order.
type Controller struct {
	mu sync.Mutex

	api  orderAPI
	cart *cart.Cart

	stage   Stage
	err     error
	loading bool
	orderID string
	current *client.CreateOrderRequest

	onConfirmed func()
}

type option func(*Controller)

// WithOnConfirmed registers a hook run after a successful verification.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithOnConfirmed(fn func()) option {
	return func(c *Controller) {
		c.onConfirmed = fn
	}
}

func New(api orderAPI, shoppingCart *cart.Cart, opts ...option) *Controller {
	c := &Controller{
		api:   api,
		cart:  shoppingCart,
		stage: Shopping,
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

func (c *Controller) Stage() Stage {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.stage
}

func (c *Controller) Cart() *cart.Cart {
	return c.cart
}

// Err returns the error currently surfaced to the user, if any.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.err
}

func (c *Controller) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.loading
}

func (c *Controller) OrderID() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.orderID
}

// CurrentOrder returns the order submitted for verification.
func (c *Controller) CurrentOrder() (client.CreateOrderRequest, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil {
		return client.CreateOrderRequest{}, false
	}

	return *c.current, true
}

// Checkout moves from Shopping to Form when the cart has items.
func (c *Controller) Checkout() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stage != Shopping {
		return ErrWrongStage
	}
	if c.cart.IsEmpty() {
		c.err = ErrEmptyCart
		return ErrEmptyCart
	}

	c.err = nil
	c.stage = Form

	return nil
}

// Submit validates the form and places the order. On success the flow moves to
// Verification. On a server or network failure it returns to Shopping with the cart kept.
func (c *Controller) Submit(ctx context.Context, name, email string) error {
	c.mu.Lock()
	if c.stage != Form {
		c.mu.Unlock()
		return ErrWrongStage
	}
	if c.loading {
		c.mu.Unlock()
		return ErrBusy
	}
	if err := validateForm(name, email); err != nil {
		c.mu.Unlock()
		return err
	}

	req := c.buildRequest(name, email)
	c.loading = true
	c.err = nil
	c.mu.Unlock()

	res, err := c.api.CreateOrder(ctx, req)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.loading = false

	// Cancel may have run while the request was in flight.
	if c.stage != Form {
		return ErrWrongStage
	}

	if err != nil {
		c.err = err
		c.stage = Shopping
		return err
	}

	c.current = &req
	c.orderID = res.OrderID
	c.stage = Verification

	return nil
}

func (c *Controller) buildRequest(name, email string) client.CreateOrderRequest {
	lines := c.cart.Items()
	items := make([]client.Item, 0, len(lines))
	for _, line := range lines {
		items = append(items, client.Item{
			ProductID: line.ProductID,
			Name:      line.Name,
			Quantity:  line.Quantity,
			Price:     line.Price,
		})
	}

	return client.CreateOrderRequest{
		EmployeeName:  name,
		EmployeeEmail: email,
		Items:         items,
		Total:         c.cart.Total(),
	}
}

func validateForm(name, email string) *FormError {
	fields := map[string]string{}

	if strings.TrimSpace(name) == "" {
		fields["employeeName"] = "Name is required."
	}
	switch {
	case strings.TrimSpace(email) == "":
		fields["employeeEmail"] = "Email is required."
	case !emailRegexp.MatchString(email):
		fields["employeeEmail"] = "Please enter a valid email."
	}

	if len(fields) == 0 {
		return nil
	}

	return &FormError{Fields: fields}
}

// Verify sends the emailed code. On success the flow moves to Confirmed, otherwise it
// stays in Verification with the error surfaced.
func (c *Controller) Verify(ctx context.Context, code string) error {
	c.mu.Lock()
	if c.stage != Verification {
		c.mu.Unlock()
		return ErrWrongStage
	}
	if c.loading {
		c.mu.Unlock()
		return ErrBusy
	}
	if strings.TrimSpace(code) == "" || len(code) != codeLength {
		c.mu.Unlock()
		return &FormError{Fields: map[string]string{"code": "Please enter the 6-digit code."}}
	}
	if c.orderID == "" {
		c.err = ErrNoOrderID
		c.mu.Unlock()
		return ErrNoOrderID
	}

	orderID := c.orderID
	c.loading = true
	c.err = nil
	c.mu.Unlock()

	err := c.api.VerifyOrder(ctx, orderID, code)

	c.mu.Lock()
	c.loading = false

	if c.stage != Verification || c.orderID != orderID {
		c.mu.Unlock()
		return ErrWrongStage
	}

	if err != nil {
		c.err = err
		c.mu.Unlock()
		return err
	}

	c.stage = Confirmed
	hook := c.onConfirmed
	c.mu.Unlock()

	if hook != nil {
		hook()
	}

	return nil
}

// NewOrder starts over after a confirmed order.
func (c *Controller) NewOrder() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stage != Confirmed {
		return ErrWrongStage
	}

	c.cart.Clear()
	c.reset()

	return nil
}

// Cancel abandons the order from any stage: the cart is emptied and the flow returns to Shopping.
// Back is the way out of checkout that keeps the cart.
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cart.Clear()
	c.reset()
}

// Back steps Form → Shopping and Verification → Form.
func (c *Controller) Back() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.stage {
	case Form:
		c.stage = Shopping
	case Verification:
		c.stage = Form
		c.current = nil
		c.orderID = ""
	default:
		return ErrWrongStage
	}
	c.err = nil

	return nil
}

func (c *Controller) DismissError() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.err = nil
}

func (c *Controller) reset() {
	c.stage = Shopping
	c.current = nil
	c.orderID = ""
	c.err = nil
	c.loading = false
}
