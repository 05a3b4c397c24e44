// Package ipfs implements the content-addressed store collaborator the
// ingestion pipeline's edits_published handler fetches edit payloads
// through: a bounded-retry HTTP gateway client over a CID, with an
// optional generic decode step for typed payloads.
package ipfs

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/erigontech/erigon-lib/log/v3"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/kgindex/kgnode/internal/metrics"
	"github.com/multiformats/go-cid"
)

// Client fetches content by CID from an HTTP gateway (e.g. a local IPFS
// node's /api/v0/cat or a public gateway's /ipfs/<cid> path), with a
// bounded retry policy (3 attempts, exponential backoff) and a
// configurable per-fetch timeout, matching the external-interfaces
// contract's content-store budget (default 60s).
type Client struct {
	gatewayURL string
	httpClient *retryablehttp.Client
	timeout    time.Duration
	metrics    *metrics.Metrics
}

// NewClient constructs a Client against gatewayURL (e.g.
// "https://gateway.example/ipfs"), with the given per-fetch timeout
// (0 means the 60s default) and maxAttempts (0 means the 3-attempt
// default). m may be nil, in which case fetch latency goes unobserved.
func NewClient(gatewayURL string, timeout time.Duration, maxAttempts int, m *metrics.Metrics) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	rc := retryablehttp.NewClient()
	rc.RetryMax = maxAttempts - 1
	rc.Logger = nil // this package logs itself via erigon-lib/log, not retryablehttp's own logger
	rc.ErrorHandler = func(resp *http.Response, err error, numTries int) (*http.Response, error) {
		log.Warn("ipfs: fetch failed after retries", "attempts", numTries, "err", err)
		return resp, err
	}
	return &Client{gatewayURL: gatewayURL, httpClient: rc, timeout: timeout, metrics: m}
}

// GetBytes fetches the raw content addressed by cidStr, a bare CID (any
// "ipfs://" prefix must already be stripped by the caller; one left in
// fails CID validation), from the configured gateway. pin is forwarded to the gateway as a query
// parameter; gateways that don't support pinning ignore it.
func (c *Client) GetBytes(ctx context.Context, cidStr string, pin bool) ([]byte, error) {
	if _, err := cid.Decode(cidStr); err != nil {
		return nil, fmt.Errorf("ipfs: invalid content identifier %q: %w", cidStr, err)
	}

	fetchCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	u, err := url.Parse(c.gatewayURL)
	if err != nil {
		return nil, fmt.Errorf("ipfs: invalid gateway url: %w", err)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/" + cidStr
	if pin {
		q := u.Query()
		q.Set("pin", "true")
		u.RawQuery = q.Encode()
	}

	req, err := retryablehttp.NewRequestWithContext(fetchCtx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("ipfs: build request: %w", err)
	}
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if c.metrics != nil {
		c.metrics.ContentFetchDuration.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		return nil, fmt.Errorf("ipfs: fetch %s: %w", cidStr, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ipfs: fetch %s: gateway returned status %d", cidStr, resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("ipfs: read response for %s: %w", cidStr, err)
	}
	return data, nil
}

// Decoder decodes a fetched byte slice into a typed value T, e.g. a
// kg/wire envelope decode function.
type Decoder[T any] func([]byte) (T, error)

// Get fetches cidStr's bytes and decodes them with decode, the generic
// counterpart of the external interface's Get[T](cid, pin) contract.
func Get[T any](ctx context.Context, c *Client, cidStr string, pin bool, decode Decoder[T]) (T, error) {
	var zero T
	raw, err := c.GetBytes(ctx, cidStr, pin)
	if err != nil {
		return zero, err
	}
	v, err := decode(raw)
	if err != nil {
		return zero, fmt.Errorf("ipfs: decode %s: %w", cidStr, err)
	}
	return v, nil
}
