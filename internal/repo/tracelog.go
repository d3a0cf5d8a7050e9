// Package repo holds the boundary collaborators: the HTTP client that
// retrieves diagnostic records from the trace log service, and the
// Valkey-backed store for analysis history. The engine itself never does
// I/O; everything here hands it already-materialized batches.
package repo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/checkoutlens/checkout-lens/internal/cache"
	"github.com/checkoutlens/checkout-lens/internal/models"
)

// TraceLogClient retrieves diagnostic records from the remote execution-log
// service. Responses are cached per window so repeated analyses of the same
// session do not refetch.
type TraceLogClient struct {
	baseURL    string
	listPath   string
	httpClient *http.Client
	cache      cache.Provider
	cacheTTL   time.Duration
}

// NewTraceLogClient constructs a client targeting the configured service.
func NewTraceLogClient(baseURL, listPath string, timeout time.Duration, cacheProvider cache.Provider, cacheTTL time.Duration) *TraceLogClient {
	if cacheProvider == nil {
		cacheProvider = cache.NoopProvider{}
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &TraceLogClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		listPath:   listPath,
		httpClient: &http.Client{Timeout: timeout},
		cache:      cacheProvider,
		cacheTTL:   cacheTTL,
	}
}

// Configured reports whether a base URL was supplied; an unconfigured client
// cannot fetch and callers should treat fetch windows as unsatisfiable.
func (c *TraceLogClient) Configured() bool {
	return c != nil && c.baseURL != ""
}

// FetchDiagnostics retrieves the diagnostic records recorded inside the
// window. Pagination is the service's concern; the response is one finite
// batch.
func (c *TraceLogClient) FetchDiagnostics(ctx context.Context, window models.FetchWindow) ([]models.DiagnosticRecord, error) {
	if c == nil {
		return nil, fmt.Errorf("tracelog client not initialised")
	}
	if c.baseURL == "" {
		return nil, fmt.Errorf("tracelog base URL not configured")
	}

	cacheKey := diagnosticsCacheKey(window)
	if cached, err := c.cache.Get(ctx, cacheKey); err == nil {
		var records []models.DiagnosticRecord
		if err := json.Unmarshal(cached, &records); err == nil {
			return records, nil
		}
		// Unreadable cache entries are dropped and refetched.
		_ = c.cache.Del(ctx, cacheKey)
	}

	payload := map[string]any{
		"start_ms": window.StartMs,
		"end_ms":   window.EndMs,
	}
	if window.Limit > 0 {
		payload["limit"] = window.Limit
	}

	var response struct {
		Records []models.DiagnosticRecord `json:"records"`
	}
	if err := c.postJSON(ctx, c.listURL(), payload, &response); err != nil {
		return nil, fmt.Errorf("tracelog search request failed: %w", err)
	}

	if data, err := json.Marshal(response.Records); err == nil {
		_ = c.cache.Set(ctx, cacheKey, data, c.cacheTTL)
	}
	return response.Records, nil
}

func diagnosticsCacheKey(window models.FetchWindow) string {
	return fmt.Sprintf("checkout-lens:diagnostics:%d:%d:%d", window.StartMs, window.EndMs, window.Limit)
}

func (c *TraceLogClient) listURL() string {
	return c.resolvePath(c.listPath)
}

func (c *TraceLogClient) resolvePath(p string) string {
	if c.baseURL == "" {
		return ""
	}
	cleaned := "/" + strings.TrimLeft(p, "/")
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return c.baseURL + cleaned
	}
	u.Path = path.Join(u.Path, cleaned)
	return u.String()
}

func (c *TraceLogClient) postJSON(ctx context.Context, endpoint string, payload any, out any) error {
	if endpoint == "" {
		return fmt.Errorf("empty endpoint")
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("tracelog service returned %s", resp.Status)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
