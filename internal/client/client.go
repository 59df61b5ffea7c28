package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/domeara/becool/internal/circuitbreaker"
	"github.com/domeara/becool/internal/forecast"
	"github.com/domeara/becool/internal/geo"
	"github.com/domeara/becool/internal/observability"
)

// ForecastClient fetches the daily forecast for a set of radius candidates.
// The returned map is keyed by zip code; locations the provider returned no
// data for are absent from the map, never zero-filled.
type ForecastClient interface {
	GetDailyForecast(ctx context.Context, candidates []geo.Candidate) (map[string]forecast.Payload, error)
}

var (
	ErrAPIUnavailable = errors.New("forecast api unavailable")
	ErrRateLimited    = errors.New("forecast api rate limited")
	ErrAPIAuth        = errors.New("forecast api key rejected")
)

// BulkRequestLimit is the provider's documented maximum locations per call.
// Larger candidate sets are split into multiple requests and merged, never
// truncated.
const BulkRequestLimit = 1000

type OpenMeteoClient struct {
	apiURL         string
	apiKey         string // optional; commercial plans only
	unit           string
	timeout        time.Duration
	client         *http.Client
	retryAttempts  int
	retryBaseDelay time.Duration
	retryMaxDelay  time.Duration
	batchLimit     int
	breaker        *circuitbreaker.CircuitBreaker
}

func NewOpenMeteoClient(apiURL, apiKey, unit string, timeout time.Duration) (*OpenMeteoClient, error) {
	return NewOpenMeteoClientWithRetry(apiURL, apiKey, unit, timeout, 3, 100*time.Millisecond, 2*time.Second)
}

func NewOpenMeteoClientWithRetry(apiURL, apiKey, unit string, timeout time.Duration, retryAttempts int, retryBaseDelay, retryMaxDelay time.Duration) (*OpenMeteoClient, error) {
	if apiURL == "" {
		return nil, fmt.Errorf("api url is required")
	}
	switch unit {
	case "fahrenheit", "celsius":
	default:
		return nil, fmt.Errorf("temperature unit must be fahrenheit or celsius, got %q", unit)
	}
	if retryAttempts <= 0 {
		retryAttempts = 1
	}

	return &OpenMeteoClient{
		apiURL:         apiURL,
		apiKey:         apiKey,
		unit:           unit,
		timeout:        timeout,
		retryAttempts:  retryAttempts,
		retryBaseDelay: retryBaseDelay,
		retryMaxDelay:  retryMaxDelay,
		batchLimit:     BulkRequestLimit,
		client: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// SetCircuitBreaker wraps upstream calls in cb. Call before first use.
func (c *OpenMeteoClient) SetCircuitBreaker(cb *circuitbreaker.CircuitBreaker) {
	c.breaker = cb
}

// SetBatchLimit overrides the per-request location limit. Values above the
// provider's bulk limit are rejected.
func (c *OpenMeteoClient) SetBatchLimit(n int) error {
	if n <= 0 || n > BulkRequestLimit {
		return fmt.Errorf("batch limit must be in 1..%d, got %d", BulkRequestLimit, n)
	}
	c.batchLimit = n
	return nil
}

// GetDailyForecast fetches today's forecast for every candidate, batching at
// the provider limit and merging into a zip-keyed map so the result is
// deterministic regardless of batch boundaries.
func (c *OpenMeteoClient) GetDailyForecast(ctx context.Context, candidates []geo.Candidate) (map[string]forecast.Payload, error) {
	results := make(map[string]forecast.Payload, len(candidates))

	for start := 0; start < len(candidates); start += c.batchLimit {
		end := start + c.batchLimit
		if end > len(candidates) {
			end = len(candidates)
		}
		batch := candidates[start:end]

		payloads, err := c.fetchBatch(ctx, batch)
		if err != nil {
			return nil, err
		}

		// The provider returns one payload per requested coordinate, in
		// request order. A short response means trailing locations were
		// dropped; those zips stay absent from the map.
		for i, p := range payloads {
			if i >= len(batch) {
				break
			}
			results[batch[i].Zip] = p
		}
	}

	return results, nil
}

// fetchBatch issues one bulk request with bounded retries, in the circuit
// breaker when one is configured.
func (c *OpenMeteoClient) fetchBatch(ctx context.Context, batch []geo.Candidate) ([]forecast.Payload, error) {
	observability.ForecastBatchSize.Observe(float64(len(batch)))

	var lastErr error
	for attempt := 0; attempt < c.retryAttempts; attempt++ {
		if attempt > 0 {
			observability.ForecastAPIRetriesTotal.Inc()
			delay := c.calculateBackoff(attempt)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		var payloads []forecast.Payload
		call := func() error {
			var err error
			payloads, err = c.callAPI(ctx, batch)
			return err
		}

		var err error
		if c.breaker != nil {
			err = c.breaker.Call(call)
		} else {
			err = call()
		}
		if err == nil {
			return payloads, nil
		}

		lastErr = err
		if errors.Is(err, circuitbreaker.ErrOpen) {
			return nil, fmt.Errorf("%w: circuit breaker open", ErrAPIUnavailable)
		}
		if !c.isRetryable(err) {
			return nil, err
		}
	}

	return nil, fmt.Errorf("exhausted retries: %w", lastErr)
}

func (c *OpenMeteoClient) callAPI(ctx context.Context, batch []geo.Candidate) ([]forecast.Payload, error) {
	start := time.Now()

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := c.buildRequest(reqCtx, batch)
	if err != nil {
		observability.ForecastAPICallsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		duration := time.Since(start).Seconds()
		observability.ForecastAPICallsTotal.WithLabelValues("error").Inc()
		observability.ForecastAPIDuration.WithLabelValues("error").Observe(duration)

		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("request timeout: %w", err)
		}
		return nil, fmt.Errorf("%w: %v", ErrAPIUnavailable, err)
	}
	defer resp.Body.Close()

	duration := time.Since(start).Seconds()
	status := statusLabel(resp.StatusCode)
	observability.ForecastAPICallsTotal.WithLabelValues(status).Inc()
	observability.ForecastAPIDuration.WithLabelValues(status).Observe(duration)

	if err := c.handleErrorResponse(resp); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	return decodePayloads(body)
}

// decodePayloads handles the provider's two response shapes: a JSON array
// for bulk requests, a single object when one location was asked for.
func decodePayloads(body []byte) ([]forecast.Payload, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var payloads []forecast.Payload
		if err := json.Unmarshal(trimmed, &payloads); err != nil {
			return nil, fmt.Errorf("parse response: %w", err)
		}
		return payloads, nil
	}

	var single forecast.Payload
	if err := json.Unmarshal(trimmed, &single); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	return []forecast.Payload{single}, nil
}

func (c *OpenMeteoClient) isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrAPIAuth) {
		return false
	}
	if errors.Is(err, ErrRateLimited) || errors.Is(err, ErrAPIUnavailable) {
		return true
	}

	errStr := err.Error()
	if strings.Contains(errStr, "timeout") || strings.Contains(errStr, "context deadline exceeded") {
		return true
	}

	return false
}

func (c *OpenMeteoClient) calculateBackoff(attempt int) time.Duration {
	delay := float64(c.retryBaseDelay) * math.Pow(2, float64(attempt-1))
	if delay > float64(c.retryMaxDelay) {
		delay = float64(c.retryMaxDelay)
	}

	jitter := delay * 0.1 * rand.Float64()
	return time.Duration(delay + jitter)
}

func (c *OpenMeteoClient) buildRequest(ctx context.Context, batch []geo.Candidate) (*http.Request, error) {
	baseURL, err := url.Parse(c.apiURL)
	if err != nil {
		return nil, fmt.Errorf("invalid API URL: %w", err)
	}

	lats := make([]string, len(batch))
	lngs := make([]string, len(batch))
	for i, cand := range batch {
		lats[i] = strconv.FormatFloat(cand.Lat, 'f', 4, 64)
		lngs[i] = strconv.FormatFloat(cand.Lng, 'f', 4, 64)
	}

	params := url.Values{}
	params.Set("latitude", strings.Join(lats, ","))
	params.Set("longitude", strings.Join(lngs, ","))
	params.Set("daily", "temperature_2m_max")
	params.Set("current", "temperature_2m")
	params.Set("temperature_unit", c.unit)
	params.Set("forecast_days", "1")
	params.Set("timezone", "auto")
	if c.apiKey != "" {
		params.Set("apikey", c.apiKey)
	}
	baseURL.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", baseURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if corrID := extractCorrelationID(ctx); corrID != "" {
		req.Header.Set("X-Correlation-ID", corrID)
	}
	return req, nil
}

// openMeteoError is the provider's error envelope ({"error":true,"reason":...}).
type openMeteoError struct {
	Error  bool   `json:"error"`
	Reason string `json:"reason"`
}

func (c *OpenMeteoClient) handleErrorResponse(resp *http.Response) error {
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: HTTP %d", ErrAPIAuth, resp.StatusCode)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w", ErrRateLimited)
	case http.StatusBadRequest:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var apiErr openMeteoError
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Reason != "" {
			return fmt.Errorf("%w: %s", ErrAPIUnavailable, apiErr.Reason)
		}
		return fmt.Errorf("%w: HTTP 400", ErrAPIUnavailable)
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return fmt.Errorf("%w: HTTP %d", ErrAPIUnavailable, resp.StatusCode)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: HTTP %d", ErrAPIUnavailable, resp.StatusCode)
	}

	return nil
}

func extractCorrelationID(ctx context.Context) string {
	if corrIDVal := ctx.Value("correlation_id"); corrIDVal != nil {
		if corrID, ok := corrIDVal.(string); ok {
			return corrID
		}
	}
	return ""
}

func statusLabel(statusCode int) string {
	if statusCode >= 200 && statusCode < 300 {
		return "success"
	}
	if statusCode == 429 {
		return "rate_limited"
	}
	if statusCode >= 400 && statusCode < 500 {
		return "client_error"
	}
	if statusCode >= 500 {
		return "server_error"
	}
	return "error"
}
