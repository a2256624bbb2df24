package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"predictive-analysis-engine/pkg/common"
	"predictive-analysis-engine/pkg/config"
	"predictive-analysis-engine/pkg/errs"
	"predictive-analysis-engine/pkg/logger"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(cfg config.GraphAPIConfig) *Client {
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")

	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.TimeoutMs) * time.Millisecond,
		},
	}
}

func (c *Client) CheckHealth(ctx context.Context) (*HealthResponse, error) {
	var resp HealthResponse
	if err := c.get(ctx, "/graph/health", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) GetServices(ctx context.Context) ([]ServiceInfo, error) {
	var wrapper struct {
		Services []ServiceInfo `json:"services"`
	}
	if err := c.get(ctx, "/services", &wrapper); err != nil {
		return nil, err
	}
	return wrapper.Services, nil
}

func (c *Client) GetNeighborhood(ctx context.Context, serviceName string, k int) (*NeighborhoodResponse, error) {
	path := fmt.Sprintf("/services/%s/neighborhood?k=%d", url.PathEscape(serviceName), k)
	var resp NeighborhoodResponse
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) GetMetricsSnapshot(ctx context.Context) (*MetricsSnapshotResponse, error) {
	var resp MetricsSnapshotResponse
	if err := c.get(ctx, "/metrics/snapshot", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) GetTopCentrality(ctx context.Context, metric string, limit int) (*CentralityTopResponse, error) {
	path := fmt.Sprintf("/centrality/top?metric=%s&limit=%d", metric, limit)
	var resp CentralityTopResponse
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) GetCentralityScores(ctx context.Context) (*CentralityScoresResponse, error) {
	var resp CentralityScoresResponse
	if err := c.get(ctx, "/centrality", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// get issues a GET request and decodes the JSON body into dest,
// classifying every failure mode into the errs taxonomy so callers
// never need to string-sniff an error. Only the logical endpoint and
// elapsed time are logged — never headers, bodies, or the base URL's
// embedded credentials, if any.
func (c *Client) get(ctx context.Context, path string, dest interface{}) error {
	reqURL := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return errs.Internal(err, "build request for %s", path)
	}

	if cid, ok := ctx.Value(common.CorrelationIDKey).(string); ok {
		req.Header.Set("X-Correlation-Id", cid)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	elapsed := time.Since(start)

	if err != nil {
		classified := classifyTransportError(err, path)
		logger.WithCorrelation(ctx).Sugar().Warnw("graph source request failed",
			"endpoint", path, "elapsedMs", elapsed.Milliseconds(), "kind", errs.KindOf(classified))
		return classified
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return errs.ServiceNotFound("graph source returned 404 for %s", path)
	}
	if resp.StatusCode >= 500 {
		logger.WithCorrelation(ctx).Sugar().Warnw("graph source upstream error",
			"endpoint", path, "status", resp.StatusCode, "elapsedMs", elapsed.Milliseconds())
		return errs.UpstreamErr(nil, "graph source returned HTTP %d for %s", resp.StatusCode, path)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errs.UpstreamErr(nil, "graph source returned HTTP %d for %s", resp.StatusCode, path)
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return errs.UpstreamErr(err, "invalid JSON response from %s", path)
	}

	return nil
}

// classifyTransportError distinguishes a context deadline or client
// timeout (SourceTimeout) from DNS/connection failures and any other
// transport error, including context cancellation (SourceUnavailable).
func classifyTransportError(err error, endpoint string) *errs.Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return errs.SourceTimeout(err, endpoint)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return errs.SourceTimeout(err, endpoint)
	}

	return errs.SourceUnavailable(err, endpoint)
}
