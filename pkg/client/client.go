// Package client is a typed HTTP client for the café order API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const defaultTimeout = 15 * time.Second

func init() {
	// Monetary values travel as JSON numbers, not strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// Item is an order line as the API accepts and returns it.
type Item struct {
	ProductID string          `json:"productId,omitempty"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// Order is a confirmed order as listed by the API. It never carries the verification code.
type Order struct {
	ID            string          `json:"_id"`
	EmployeeName  string          `json:"employeeName"`
	EmployeeEmail string          `json:"employeeEmail"`
	Items         []Item          `json:"items"`
	Total         decimal.Decimal `json:"total"`
	Status        string          `json:"status"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

type CreateOrderRequest struct {
	EmployeeName  string          `json:"employeeName"`
	EmployeeEmail string          `json:"employeeEmail"`
	Items         []Item          `json:"items"`
	Total         decimal.Decimal `json:"total"`
}

type CreateOrderResponse struct {
	OrderID string
	Message string
}

type verifyRequest struct {
	OrderID string `json:"orderId"`
	Code    string `json:"code"`
}

type result struct {
	Success bool   `json:"success"`
	OrderID string `json:"orderId,omitempty"`
	Message string `json:"message"`
}

// APIError is returned when the server answers with a non-2xx status.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// TransportError is returned when the server could not be reached or its reply was not JSON.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Client talks to the order API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

type option func(*Client)

//goland:noinspection GoExportedFuncWithUnexportedType
func WithHTTPClient(c *http.Client) option {
	return func(cl *Client) {
		if c != nil {
			cl.httpClient = c
		}
	}
}

// WithTimeout sets the timeout of the default HTTP client.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithTimeout(timeout time.Duration) option {
	return func(cl *Client) {
		cl.httpClient = &http.Client{Timeout: timeout}
	}
}

// New creates a client for the API rooted at baseURL, e.g. http://localhost:3001.
func New(baseURL string, opts ...option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// CreateOrder submits a new order. The server emails the verification code.
func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest) (CreateOrderResponse, error) {
	var res result
	if err := c.do(ctx, http.MethodPost, "/api/orders", req, &res); err != nil {
		return CreateOrderResponse{}, err
	}

	return CreateOrderResponse{OrderID: res.OrderID, Message: res.Message}, nil
}

// VerifyOrder confirms the order with the emailed code.
func (c *Client) VerifyOrder(ctx context.Context, orderID, code string) error {
	var res result

	return c.do(ctx, http.MethodPost, "/api/orders/verify", verifyRequest{OrderID: orderID, Code: code}, &res)
}

// ListConfirmed fetches the newest confirmed orders.
func (c *Client) ListConfirmed(ctx context.Context) ([]Order, error) {
	var orders []Order
	if err := c.do(ctx, http.MethodGet, "/api/orders/confirmed", nil, &orders); err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []Order{}
	}

	return orders, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Op: method + " " + path, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Op: "read response", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(resp.StatusCode, data)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return &TransportError{Op: "decode response", Err: err}
	}

	return nil
}

// decodeAPIError turns a JSON error body into an APIError. A body that is not JSON did not
// come from the API (a proxy or gateway page) and is reported as a TransportError.
func decodeAPIError(status int, data []byte) error {
	var res result
	if err := json.Unmarshal(data, &res); err != nil {
		return &TransportError{
			Op:  "decode error response",
			Err: fmt.Errorf("server error (status %d): %w", status, err),
		}
	}
	if res.Message == "" {
		return &APIError{Status: status, Message: fmt.Sprintf("server error (status %d)", status)}
	}

	return &APIError{Status: status, Message: res.Message}
}
