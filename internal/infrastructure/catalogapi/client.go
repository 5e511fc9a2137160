package catalogapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/barstock/backend/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Config holds configuration for the catalog API client
type Config struct {
	BaseURL           string
	APIKey            string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
	MaxRetries        int
	Logger            *zap.Logger
}

// Client is a catalog provider backed by the remote inventory REST API
type Client struct {
	httpClient  *http.Client
	apiKey      string
	baseURL     string
	rateLimiter *rate.Limiter
	maxRetries  int
	backoff     func(attempt int) time.Duration
	logger      *zap.Logger
}

// NewClient creates a new catalog API client
func NewClient(config Config) *Client {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	rps := config.RequestsPerSecond
	if rps <= 0 {
		rps = 5
	}
	burst := config.Burst
	if burst <= 0 {
		burst = 10
	}

	maxRetries := config.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}

	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		apiKey:      config.APIKey,
		baseURL:     strings.TrimRight(config.BaseURL, "/"),
		rateLimiter: rate.NewLimiter(rate.Limit(rps), burst),
		maxRetries:  maxRetries,
		backoff:     exponentialBackoff,
		logger:      logger.Named("catalogapi"),
	}
}

// exponentialBackoff returns the wait before retrying attempt: 500ms, 1s, 2s...
func exponentialBackoff(attempt int) time.Duration {
	return time.Duration(500*(1<<(attempt-1))) * time.Millisecond
}

// GetAll pages through GET /products
func (c *Client) GetAll(ctx context.Context) ([]domain.CatalogProduct, error) {
	products := []domain.CatalogProduct{}
	pageToken := ""

	for {
		params := url.Values{}
		params.Set("page_size", "500")
		if pageToken != "" {
			params.Set("page_token", pageToken)
		}

		var page productPage
		if err := c.do(ctx, http.MethodGet, "/products?"+params.Encode(), nil, "", &page); err != nil {
			return nil, err
		}

		for _, p := range page.Products {
			products = append(products, toDomainProduct(p))
		}

		if page.NextPageToken == "" {
			break
		}
		pageToken = page.NextPageToken
	}

	c.logger.Debug("catalog loaded", zap.Int("products", len(products)))
	return products, nil
}

// BatchWrite posts every op in one request. The server applies the batch
// atomically; the idempotency key makes retries of the same batch safe.
func (c *Client) BatchWrite(ctx context.Context, ops []domain.WriteOperation) error {
	if len(ops) == 0 {
		return nil
	}

	body, err := json.Marshal(toBatchRequest(ops))
	if err != nil {
		return fmt.Errorf("failed to encode batch: %w", err)
	}

	return c.do(ctx, http.MethodPost, "/products/batch", body, uuid.New().String(), nil)
}

// do executes a request with rate limiting and retries on network errors,
// 429 and 5xx. Other 4xx statuses fail immediately.
func (c *Client) do(ctx context.Context, method, path string, body []byte, idempotencyKey string, out interface{}) error {
	reqURL := c.baseURL + path

	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter error: %w", err)
		}

		resp, err := c.doRequest(ctx, method, reqURL, body, idempotencyKey)
		if err != nil {
			c.logger.Warn("request failed",
				zap.String("method", method),
				zap.String("path", path),
				zap.Int("attempt", attempt),
				zap.Error(err))
			lastErr = err
			if waitErr := c.wait(ctx, attempt); waitErr != nil {
				return waitErr
			}
			continue
		}

		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
			c.logger.Warn("retryable API status",
				zap.String("method", method),
				zap.String("path", path),
				zap.Int("attempt", attempt),
				zap.Int("status", resp.StatusCode))
			lastErr = fmt.Errorf("%w: status %d", domain.ErrCatalogAPIFailure, resp.StatusCode)
			if waitErr := c.wait(ctx, attempt); waitErr != nil {
				return waitErr
			}
			continue
		}

		if resp.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%w: %s", domain.ErrProductNotFound, strings.TrimSpace(string(respBody)))
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return fmt.Errorf("%w: status %d, body: %s", domain.ErrCatalogAPIFailure, resp.StatusCode, strings.TrimSpace(string(respBody)))
		}

		if out != nil {
			if err := json.Unmarshal(respBody, out); err != nil {
				return fmt.Errorf("failed to decode response: %w", err)
			}
		}
		return nil
	}

	c.logger.Error("all retries failed", zap.String("method", method), zap.String("path", path))
	return lastErr
}

// doRequest executes one HTTP request with proper headers
func (c *Client) doRequest(ctx context.Context, method, reqURL string, body []byte, idempotencyKey string) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "BarStock-Importer/1.0")
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCatalogAPIFailure, err)
	}
	return resp, nil
}

// wait sleeps before the next attempt unless ctx ends first
func (c *Client) wait(ctx context.Context, attempt int) error {
	if attempt >= c.maxRetries {
		return nil
	}
	timer := time.NewTimer(c.backoff(attempt))
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
