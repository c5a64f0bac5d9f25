package kody

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KodyPay/kp-order-sync/internal/helper"
)

func TestNewHTTPClientValidatesSettings(t *testing.T) {
	helper.InitTestLogging()

	_, err := NewHTTPClient("", "key", "store")
	assert.Error(t, err)
	_, err = NewHTTPClient("http://localhost", "", "store")
	assert.Error(t, err)
	_, err = NewHTTPClient("http://localhost", "key", "")
	assert.Error(t, err)
	_, err = NewHTTPClient("http://localhost", "key", "store")
	assert.NoError(t, err)
}

func TestGetOrders(t *testing.T) {
	helper.InitTestLogging()

	after := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1/stores/store-7/orders", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("X-API-KEY"))
		assert.Equal(t, "100", r.URL.Query().Get("page_size"))
		assert.Equal(t, after.Format(time.RFC3339), r.URL.Query().Get("after"))

		_ = json.NewEncoder(w).Encode(getOrdersResponse{Orders: []Order{
			{OrderID: "order-1", StoreID: "store-7", TotalAmount: "12.50", Status: StatusNew},
		}})
	}))
	defer srv.Close()

	c, err := NewHTTPClient(srv.URL, "secret", "store-7")
	require.NoError(t, err)

	orders, err := c.GetOrders(context.Background(), &after)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "order-1", orders[0].OrderID)
	assert.Equal(t, "12.50", orders[0].TotalAmount)
}

func TestGetOrdersWithoutWatermarkOmitsAfter(t *testing.T) {
	helper.InitTestLogging()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hasAfter := r.URL.Query()["after"]
		assert.False(t, hasAfter, "first run must not bound the lookback")
		_ = json.NewEncoder(w).Encode(getOrdersResponse{})
	}))
	defer srv.Close()

	c, err := NewHTTPClient(srv.URL, "secret", "store-7")
	require.NoError(t, err)

	orders, err := c.GetOrders(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestGetOrdersSurfacesHTTPFailure(t *testing.T) {
	helper.InitTestLogging()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c, err := NewHTTPClient(srv.URL, "secret", "store-7")
	require.NoError(t, err)

	_, err = c.GetOrders(context.Background(), nil)
	assert.Error(t, err)
}

func TestUpdateOrderStatus(t *testing.T) {
	helper.InitTestLogging()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/stores/store-7/orders/order-1/status", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("X-API-KEY"))

		var req updateStatusRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, StatusCompleted, req.NewStatus)

		_ = json.NewEncoder(w).Encode(updateStatusResponse{Success: true})
	}))
	defer srv.Close()

	c, err := NewHTTPClient(srv.URL, "secret", "store-7")
	require.NoError(t, err)

	ok, err := c.UpdateOrderStatus(context.Background(), "order-1", StatusCompleted)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestUpdateOrderStatusRejected(t *testing.T) {
	helper.InitTestLogging()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(updateStatusResponse{Success: false})
	}))
	defer srv.Close()

	c, err := NewHTTPClient(srv.URL, "secret", "store-7")
	require.NoError(t, err)

	ok, err := c.UpdateOrderStatus(context.Background(), "order-1", StatusCompleted)
	require.NoError(t, err)
	assert.False(t, ok)
}
