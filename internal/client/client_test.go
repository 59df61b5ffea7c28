package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/domeara/becool/internal/circuitbreaker"
	"github.com/domeara/becool/internal/geo"
)

func testCandidates(n int) []geo.Candidate {
	out := make([]geo.Candidate, n)
	for i := range out {
		out[i] = geo.Candidate{
			Zip: fmt.Sprintf("100%02d", i+1),
			Lat: 40.75 + float64(i)*0.01,
			Lng: -73.99 - float64(i)*0.01,
		}
	}
	return out
}

// bulkResponse builds the provider's JSON array shape, one payload per
// requested location, with the given daily max temperatures (nil = null).
func bulkResponse(temps []*float64) []map[string]interface{} {
	out := make([]map[string]interface{}, len(temps))
	for i, temp := range temps {
		out[i] = map[string]interface{}{
			"latitude":  40.75,
			"longitude": -73.99,
			"current":   map[string]interface{}{"time": "2026-08-30T12:00", "temperature_2m": 71.0},
			"daily": map[string]interface{}{
				"time":               []string{"2026-08-30"},
				"temperature_2m_max": []*float64{temp},
			},
		}
	}
	return out
}

func fp(v float64) *float64 { return &v }

func newTestClient(t *testing.T, serverURL string) *OpenMeteoClient {
	t.Helper()
	c, err := NewOpenMeteoClientWithRetry(serverURL, "", "fahrenheit", 2*time.Second, 3, time.Millisecond, 5*time.Millisecond)
	if err != nil {
		t.Fatalf("NewOpenMeteoClientWithRetry() error = %v", err)
	}
	return c
}

func TestNewOpenMeteoClient_Validation(t *testing.T) {
	if _, err := NewOpenMeteoClient("", "", "fahrenheit", time.Second); err == nil {
		t.Error("expected error for empty URL")
	}
	if _, err := NewOpenMeteoClient("https://api.test.com", "", "kelvin", time.Second); err == nil {
		t.Error("expected error for unsupported unit")
	}
	if _, err := NewOpenMeteoClient("https://api.test.com", "", "celsius", time.Second); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestGetDailyForecast_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if got := q.Get("daily"); got != "temperature_2m_max" {
			t.Errorf("daily = %q", got)
		}
		if got := q.Get("current"); got != "temperature_2m" {
			t.Errorf("current = %q", got)
		}
		if got := q.Get("temperature_unit"); got != "fahrenheit" {
			t.Errorf("temperature_unit = %q", got)
		}
		if got := q.Get("forecast_days"); got != "1" {
			t.Errorf("forecast_days = %q", got)
		}
		lats := strings.Split(q.Get("latitude"), ",")
		if len(lats) != 3 {
			t.Errorf("expected 3 latitudes, got %v", lats)
		}
		_ = json.NewEncoder(w).Encode(bulkResponse([]*float64{fp(75), fp(68), fp(70)}))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	got, err := c.GetDailyForecast(context.Background(), testCandidates(3))
	if err != nil {
		t.Fatalf("GetDailyForecast() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d payloads, want 3", len(got))
	}
	p, ok := got["10002"]
	if !ok {
		t.Fatal("payload for 10002 missing")
	}
	if p.Daily.Temperature2MMax[0] == nil || *p.Daily.Temperature2MMax[0] != 68 {
		t.Errorf("10002 daily max = %v, want 68", p.Daily.Temperature2MMax[0])
	}
}

func TestGetDailyForecast_SingleLocationObjectShape(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// One location: the provider returns a bare object, not an array.
		_ = json.NewEncoder(w).Encode(bulkResponse([]*float64{fp(61.5)})[0])
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	got, err := c.GetDailyForecast(context.Background(), testCandidates(1))
	if err != nil {
		t.Fatalf("GetDailyForecast() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d payloads, want 1", len(got))
	}
}

func TestGetDailyForecast_Batching(t *testing.T) {
	var batchSizes []int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := len(strings.Split(r.URL.Query().Get("latitude"), ","))
		batchSizes = append(batchSizes, n)
		temps := make([]*float64, n)
		for i := range temps {
			temps[i] = fp(70)
		}
		_ = json.NewEncoder(w).Encode(bulkResponse(temps))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	if err := c.SetBatchLimit(4); err != nil {
		t.Fatalf("SetBatchLimit() error = %v", err)
	}

	got, err := c.GetDailyForecast(context.Background(), testCandidates(10))
	if err != nil {
		t.Fatalf("GetDailyForecast() error = %v", err)
	}
	if len(got) != 10 {
		t.Errorf("merged %d payloads, want 10 (no truncation)", len(got))
	}
	want := []int{4, 4, 2}
	if len(batchSizes) != len(want) {
		t.Fatalf("batch sizes = %v, want %v", batchSizes, want)
	}
	for i := range want {
		if batchSizes[i] != want[i] {
			t.Errorf("batch %d size = %d, want %d", i, batchSizes[i], want[i])
		}
	}
}

func TestGetDailyForecast_ShortResponseOmitsZips(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Provider drops the last location.
		_ = json.NewEncoder(w).Encode(bulkResponse([]*float64{fp(75), fp(68)}))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	got, err := c.GetDailyForecast(context.Background(), testCandidates(3))
	if err != nil {
		t.Fatalf("GetDailyForecast() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d payloads, want 2", len(got))
	}
	if _, ok := got["10003"]; ok {
		t.Error("10003 should be omitted, not zero-filled")
	}
}

func TestGetDailyForecast_AuthRejected(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	_, err := c.GetDailyForecast(context.Background(), testCandidates(2))
	if !errors.Is(err, ErrAPIAuth) {
		t.Fatalf("error = %v, want ErrAPIAuth", err)
	}
	if calls != 1 {
		t.Errorf("auth rejection retried %d times, want 1 call", calls)
	}
}

func TestGetDailyForecast_RateLimitedRetriesThenFails(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	_, err := c.GetDailyForecast(context.Background(), testCandidates(2))
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("error = %v, want ErrRateLimited", err)
	}
	if calls != 3 {
		t.Errorf("made %d calls, want 3 (bounded retry)", calls)
	}
}

func TestGetDailyForecast_ServerErrorRecoverable(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(bulkResponse([]*float64{fp(70), fp(71)}))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	got, err := c.GetDailyForecast(context.Background(), testCandidates(2))
	if err != nil {
		t.Fatalf("GetDailyForecast() error = %v after retry", err)
	}
	if len(got) != 2 {
		t.Errorf("got %d payloads, want 2", len(got))
	}
}

func TestGetDailyForecast_BadRequestReason(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":true,"reason":"Latitude must be in range of -90 to 90"}`))
	}))
	defer server.Close()

	c, err := NewOpenMeteoClientWithRetry(server.URL, "", "fahrenheit", 2*time.Second, 1, time.Millisecond, time.Millisecond)
	if err != nil {
		t.Fatalf("NewOpenMeteoClientWithRetry() error = %v", err)
	}
	_, err = c.GetDailyForecast(context.Background(), testCandidates(1))
	if !errors.Is(err, ErrAPIUnavailable) {
		t.Fatalf("error = %v, want ErrAPIUnavailable", err)
	}
	if !strings.Contains(err.Error(), "Latitude must be in range") {
		t.Errorf("error %q does not carry provider reason", err)
	}
}

func TestGetDailyForecast_CircuitBreakerOpen(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	c.SetCircuitBreaker(circuitbreaker.New(circuitbreaker.Config{
		FailureThreshold: 2,
		Timeout:          time.Minute,
	}))

	_, err := c.GetDailyForecast(context.Background(), testCandidates(1))
	if !errors.Is(err, ErrAPIUnavailable) {
		t.Fatalf("error = %v, want ErrAPIUnavailable", err)
	}
	if !strings.Contains(err.Error(), "circuit breaker open") {
		t.Errorf("error %q should report the open circuit", err)
	}
}

func TestGetDailyForecast_EmptyCandidates(t *testing.T) {
	c := newTestClient(t, "https://api.test.invalid")
	got, err := c.GetDailyForecast(context.Background(), nil)
	if err != nil {
		t.Fatalf("GetDailyForecast(nil) error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d payloads, want 0", len(got))
	}
}
