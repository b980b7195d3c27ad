// Package marketplace provides the HTTP client for the Mercado Livre search API.
package marketplace

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"catalog_backend/platform/logger"
	"catalog_backend/platform/metrics"
)

const (
	DefaultBaseURL = "https://api.mercadolibre.com"
	DefaultSiteID  = "MLB"
	DefaultLimit   = 50

	// maxErrorBody bounds how much of an upstream error answer is relayed.
	maxErrorBody = 1 << 20
)

// ErrMissingToken is returned when no bearer token is configured.
var ErrMissingToken = errors.New("ML_ACCESS_TOKEN não configurado")

// Options configures a Client.
type Options struct {
	BaseURL   string
	SiteID    string
	Timeout   time.Duration
	Transport http.RoundTripper
}

// Client is the HTTP client for the marketplace search endpoint.
type Client struct {
	httpClient *http.Client
	baseURL    string
	siteID     string
	log        *logger.Logger
	metrics    *metrics.Metrics
}

// New creates a marketplace client. metrics may be nil.
func New(opts Options, log *logger.Logger, m *metrics.Metrics) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.SiteID == "" {
		opts.SiteID = DefaultSiteID
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: opts.Timeout, Transport: opts.Transport},
		baseURL:    strings.TrimSuffix(opts.BaseURL, "/"),
		siteID:     opts.SiteID,
		log:        log,
		metrics:    m,
	}
}

// Search queries the site search endpoint with a bearer token. A non-200
// answer is returned as *UpstreamError holding the raw body.
func (c *Client) Search(ctx context.Context, token, query string, limit int) (*SearchResult, error) {
	if token == "" {
		return nil, ErrMissingToken
	}
	if limit < 1 {
		limit = DefaultLimit
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("limit", strconv.Itoa(limit))
	reqURL := fmt.Sprintf("%s/sites/%s/search?%s", c.baseURL, url.PathEscape(c.siteID), params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.ObserveUpstream("marketplace", time.Since(started).Seconds())
	if err != nil {
		c.log.Error("marketplace request failed", "error", err)
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		if readErr != nil {
			return nil, fmt.Errorf("read upstream error body: %w", readErr)
		}
		c.log.UpstreamError("marketplace", resp.StatusCode, string(body))
		return nil, &UpstreamError{
			StatusCode:  resp.StatusCode,
			ContentType: resp.Header.Get("Content-Type"),
			Body:        body,
		}
	}

	var result SearchResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		c.log.Error("marketplace decode failed", "error", err)
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &result, nil
}
