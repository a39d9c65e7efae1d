package spend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var (
	ErrCustomerRequired = errors.New("customer_required")
	ErrInvalidTotal     = errors.New("invalid_total_spent")
)

// Aggregator supplies a customer's lifetime spend in KES.
type Aggregator interface {
	TotalSpent(ctx context.Context, customerID string) (float64, error)
}

// HTTPError is returned for non-2xx responses from the spend API.
type HTTPError struct {
	StatusCode int
	Status     string
	URL        string
	Method     string
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s %s failed with status %d %s: %s", e.Method, e.URL, e.StatusCode, e.Status, e.Body)
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// Client calls the remote spend aggregator. Each call is a single attempt.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	defaultHeaders map[string]string
	log            *zap.Logger
	tracer         trace.Tracer
}

func NewClient(options ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		defaultHeaders: map[string]string{
			"Accept": "application/json",
		},
		log:    zap.NewNop(),
		tracer: otel.Tracer("estateloyalty/spend"),
	}
	for _, option := range options {
		option(c)
	}
	return c
}

func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	}
}

func WithBearerToken(token string) ClientOption {
	return func(c *Client) {
		if token = strings.TrimSpace(token); token != "" {
			c.defaultHeaders["Authorization"] = "Bearer " + token
		}
	}
}

func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

func WithLogger(log *zap.Logger) ClientOption {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

type totalSpentPayload struct {
	TotalSpent *float64 `json:"total_spent"`
}

type totalSpentResponse struct {
	totalSpentPayload
	Data *totalSpentPayload `json:"data"`
}

// TotalSpent fetches GET {base}/customers/{id}/total-spent.
func (c *Client) TotalSpent(ctx context.Context, customerID string) (float64, error) {
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return 0, ErrCustomerRequired
	}

	ctx, span := c.tracer.Start(ctx, "spend.TotalSpent", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	endpoint := c.baseURL + "/customers/" + url.PathEscape(customerID) + "/total-spent"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("build spend request: %w", err)
	}
	for key, value := range c.defaultHeaders {
		req.Header.Set(key, value)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "spend request failed")
		return 0, fmt.Errorf("spend request: %w", err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	c.log.Debug("spend api response",
		zap.Int("status", resp.StatusCode),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		httpErr := &HTTPError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			URL:        endpoint,
			Method:     http.MethodGet,
			Body:       strings.TrimSpace(string(body)),
		}
		span.SetStatus(codes.Error, "spend api error")
		return 0, httpErr
	}

	var payload totalSpentResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, fmt.Errorf("decode spend response: %w", err)
	}

	total := payload.TotalSpent
	if total == nil && payload.Data != nil {
		total = payload.Data.TotalSpent
	}
	if total == nil || math.IsNaN(*total) || math.IsInf(*total, 0) {
		return 0, ErrInvalidTotal
	}
	return *total, nil
}
