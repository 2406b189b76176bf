package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/orders", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Ana", body["employeeName"])
		assert.Equal(t, 11.5, body["total"])

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"success":true,"orderId":"abc123","message":"Order received."}`))
	}))
	defer srv.Close()

	c := New(srv.URL + "/")
	res, err := c.CreateOrder(context.Background(), CreateOrderRequest{
		EmployeeName:  "Ana",
		EmployeeEmail: "ana@x.com",
		Items:         []Item{{ProductID: "1", Name: "Espresso Simple", Quantity: 1, Price: decimal.RequireFromString("2.50")}},
		Total:         decimal.RequireFromString("11.50"),
	})
	require.NoError(t, err)
	assert.Equal(t, "abc123", res.OrderID)
	assert.Equal(t, "Order received.", res.Message)
}

func TestVerifyOrder_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body verifyRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "abc123", body.OrderID)
		assert.Equal(t, "000000", body.Code)

		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"success":false,"message":"The verification code is incorrect."}`))
	}))
	defer srv.Close()

	err := New(srv.URL).VerifyOrder(context.Background(), "abc123", "000000")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "The verification code is incorrect.", apiErr.Message)
}

func TestNonJSONErrorBodyIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>bad gateway</html>"))
	}))
	defer srv.Close()

	_, err := New(srv.URL).ListConfirmed(context.Background())

	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Contains(t, err.Error(), "status 502")
	assert.False(t, errors.As(err, new(*APIError)))
}

func TestAPIError_JSONWithoutMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"success":false}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL).ListConfirmed(context.Background())

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "server error (status 500)", apiErr.Message)
}

func TestListConfirmed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/orders/confirmed", r.URL.Path)
		_, _ = w.Write([]byte(`[{"_id":"o1","employeeName":"Ana","employeeEmail":"ana@x.com",
			"items":[{"name":"Latte Vainilla","quantity":2,"price":4.5}],"total":9,"status":"Confirmed",
			"createdAt":"2025-01-01T09:00:00Z","updatedAt":"2025-01-01T09:01:00Z"}]`))
	}))
	defer srv.Close()

	orders, err := New(srv.URL).ListConfirmed(context.Background())
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "o1", orders[0].ID)
	assert.True(t, orders[0].Total.Equal(decimal.NewFromInt(9)))
	assert.True(t, orders[0].Items[0].Price.Equal(decimal.RequireFromString("4.5")))
}

func TestListConfirmed_NullIsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`null`))
	}))
	defer srv.Close()

	orders, err := New(srv.URL).ListConfirmed(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, orders)
	assert.Empty(t, orders)
}

func TestTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := New(url, WithTimeout(time.Second)).ListConfirmed(context.Background())

	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.False(t, errors.As(err, new(*APIError)))
}

func TestTransportError_MalformedSuccessBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	_, err := New(srv.URL).ListConfirmed(context.Background())

	var transportErr *TransportError
	assert.ErrorAs(t, err, &transportErr)
}
