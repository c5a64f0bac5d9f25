package kody

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

// pageSize bounds a single GetOrders call; the watermark makes the next poll
// pick up whatever did not fit.
const pageSize = 100

const apiKeyHeader = "X-API-KEY"

// Client is the capability the sync engine needs from the Kody ordering API.
type Client interface {
	// GetOrders returns orders for the configured store created after the
	// given timestamp. A nil after means unbounded lookback (first run).
	GetOrders(ctx context.Context, after *time.Time) ([]Order, error)
	// UpdateOrderStatus reports a new status for an order back to Kody and
	// returns whether Kody accepted it.
	UpdateOrderStatus(ctx context.Context, orderID string, status OrderStatus) (bool, error)
}

// HTTPClient talks to the Kody ordering API over HTTP/JSON.
type HTTPClient struct {
	baseURL string
	apiKey  string
	storeID string
	client  *http.Client
}

// NewHTTPClient validates the connection settings and returns a ready client.
func NewHTTPClient(baseURL, apiKey, storeID string) (*HTTPClient, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("kody api url is empty")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("kody api key is empty")
	}
	if storeID == "" {
		return nil, fmt.Errorf("kody store id is empty")
	}
	return &HTTPClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		storeID: storeID,
		client:  &http.Client{Timeout: 30 * time.Second},
	}, nil
}

type getOrdersResponse struct {
	Orders []Order `json:"orders"`
}

func (c *HTTPClient) GetOrders(ctx context.Context, after *time.Time) ([]Order, error) {
	endpoint := fmt.Sprintf("%s/v1/stores/%s/orders", c.baseURL, url.PathEscape(c.storeID))

	q := url.Values{}
	q.Set("page_size", strconv.Itoa(pageSize))
	if after != nil {
		q.Set("after", after.UTC().Format(time.RFC3339))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build get orders request: %w", err)
	}
	req.Header.Set(apiKeyHeader, c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch orders from kody: %w", err)
	}
	defer closeBody(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("kody get orders returned status %d", resp.StatusCode)
	}

	var parsed getOrdersResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode get orders response: %w", err)
	}
	return parsed.Orders, nil
}

type updateStatusRequest struct {
	NewStatus OrderStatus `json:"new_status"`
}

type updateStatusResponse struct {
	Success bool `json:"success"`
}

func (c *HTTPClient) UpdateOrderStatus(ctx context.Context, orderID string, status OrderStatus) (bool, error) {
	endpoint := fmt.Sprintf("%s/v1/stores/%s/orders/%s/status",
		c.baseURL, url.PathEscape(c.storeID), url.PathEscape(orderID))

	body, err := json.Marshal(updateStatusRequest{NewStatus: status})
	if err != nil {
		return false, fmt.Errorf("failed to encode status update: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("failed to build status update request: %w", err)
	}
	req.Header.Set(apiKeyHeader, c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("failed to send status update to kody: %w", err)
	}
	defer closeBody(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("kody status update returned status %d", resp.StatusCode)
	}

	var parsed updateStatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return false, fmt.Errorf("failed to decode status update response: %w", err)
	}
	return parsed.Success, nil
}

func closeBody(body io.ReadCloser) {
	if err := body.Close(); err != nil {
		zap.S().Warnf("Failed to close response body: %s", err)
	}
}
