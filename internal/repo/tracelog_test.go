package repo

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/checkoutlens/checkout-lens/internal/models"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func newTestClient(rt roundTripFunc) *http.Client {
	return &http.Client{Transport: rt}
}

func TestFetchDiagnosticsCachesResults(t *testing.T) {
	hits := 0
	cacheStub := newStubCache()
	client := NewTraceLogClient("https://example.com", "/api/v1/tracelogs/search", time.Second, cacheStub, time.Minute)
	client.httpClient = newTestClient(roundTripFunc(func(req *http.Request) (*http.Response, error) {
		hits++
		if req.URL.Path != "/api/v1/tracelogs/search" {
			t.Fatalf("unexpected path: %s", req.URL.Path)
		}
		var body map[string]any
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			t.Fatalf("decode request body: %v", err)
		}
		if body["start_ms"] != float64(1_000) || body["end_ms"] != float64(61_000) {
			t.Fatalf("unexpected window in request: %+v", body)
		}
		payload := map[string]any{
			"records": []models.DiagnosticRecord{
				{ID: "d-1", StartTime: 5_000, DurationMs: 320, Operation: "CheckoutPayment", RawContent: "FATAL_ERROR boom"},
			},
		}
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(bytes.NewReader(data)),
			Header:     make(http.Header),
		}, nil
	}))

	ctx := context.Background()
	window := models.FetchWindow{StartMs: 1_000, EndMs: 61_000}

	records, err := client.FetchDiagnostics(ctx, window)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hits != 1 {
		t.Fatalf("expected one upstream request, got %d", hits)
	}
	if len(records) != 1 || records[0].ID != "d-1" {
		t.Fatalf("unexpected response: %+v", records)
	}

	cached, err := client.FetchDiagnostics(ctx, window)
	if err != nil {
		t.Fatalf("unexpected cached error: %v", err)
	}
	if hits != 1 {
		t.Fatalf("cache miss triggered network call; hits=%d", hits)
	}
	if len(cached) != 1 || cached[0].Operation != "CheckoutPayment" {
		t.Fatalf("unexpected cached payload: %+v", cached)
	}

	// A different window must not reuse the cached batch.
	if _, err := client.FetchDiagnostics(ctx, models.FetchWindow{StartMs: 1_000, EndMs: 61_000, Limit: 5}); err != nil {
		t.Fatalf("limited fetch failed: %v", err)
	}
	if hits != 2 {
		t.Fatalf("expected second upstream request for new window, got %d", hits)
	}
}

func TestFetchDiagnosticsUpstreamFailure(t *testing.T) {
	client := NewTraceLogClient("https://example.com", "/search", time.Second, newStubCache(), 0)
	client.httpClient = newTestClient(roundTripFunc(func(*http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusBadGateway,
			Status:     "502 Bad Gateway",
			Body:       io.NopCloser(bytes.NewReader(nil)),
			Header:     make(http.Header),
		}, nil
	}))

	if _, err := client.FetchDiagnostics(context.Background(), models.FetchWindow{StartMs: 1, EndMs: 2}); err == nil {
		t.Fatal("expected error from upstream 502")
	}
}

func TestFetchDiagnosticsRequiresBaseURL(t *testing.T) {
	client := NewTraceLogClient("", "/search", time.Second, nil, 0)
	if client.Configured() {
		t.Fatal("client without base URL reported configured")
	}
	if _, err := client.FetchDiagnostics(context.Background(), models.FetchWindow{}); err == nil {
		t.Fatal("expected error without base URL")
	}
}
