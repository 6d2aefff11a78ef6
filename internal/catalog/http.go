package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/hyperjump/sumika/internal/models"
	"go.uber.org/zap"
)

const defaultLookupTimeout = 10 * time.Second

// Client talks to a remote catalog service over HTTP. A lookup is a GET on
// {baseURL}/search with the request encoded as query parameters; the response
// body is a JSON LookupResult.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(cl *Client) { cl.httpClient = c }
}

// WithClientLogger sets a logger for lookup failures.
func WithClientLogger(l *zap.Logger) ClientOption {
	return func(cl *Client) { cl.logger = l }
}

// NewClient creates a catalog client for the given base URL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: defaultLookupTimeout},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Search performs one remote lookup. Transport errors and non-200 responses
// are returned to the caller, who surfaces them as the Error session state.
func (c *Client) Search(ctx context.Context, req models.LookupRequest) (*models.LookupResult, error) {
	u := c.baseURL + "/search?" + encodeLookup(req)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("catalog request: %w", err)
	}
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCatalogLookup, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Debug("catalog returned non-200",
			zap.Int("status", resp.StatusCode), zap.ByteString("body", body))
		return nil, fmt.Errorf("%w: status %d", ErrCatalogLookup, resp.StatusCode)
	}
	var result models.LookupResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: decode response: %w", ErrCatalogLookup, err)
	}
	return &result, nil
}

func encodeLookup(req models.LookupRequest) string {
	v := url.Values{}
	if req.FreeText != "" {
		v.Set("q", req.FreeText)
	}
	if req.Location != "" {
		v.Set("location", req.Location)
	}
	if !req.CheckIn.IsZero() {
		v.Set("checkIn", req.CheckIn.Format("2006-01-02"))
	}
	if !req.CheckOut.IsZero() {
		v.Set("checkOut", req.CheckOut.Format("2006-01-02"))
	}
	if req.Guests > 0 {
		v.Set("guests", strconv.Itoa(req.Guests))
	}
	if req.Page > 0 {
		v.Set("page", strconv.Itoa(req.Page))
	}
	if req.PageSize > 0 {
		v.Set("pageSize", strconv.Itoa(req.PageSize))
	}
	if req.SortHint != "" {
		v.Set("sort", req.SortHint)
	}
	return v.Encode()
}
