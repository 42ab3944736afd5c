// Package httpjson is the small JSON-over-HTTP client shared by the HTTP
// backed sources. It maps transport and status failures onto the provider
// failure taxonomy.
package httpjson

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"idsearch/internal/lookup/models"
	"idsearch/internal/lookup/providers"
)

// maxBody caps how much of a response is read.
const maxBody = 4 << 20

// Client calls one backend on behalf of one source.
type Client struct {
	source  string
	baseURL *url.URL
	token   string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithToken sets a bearer token sent with every request.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = strings.TrimSpace(token)
	}
}

// New constructs a client for baseURL. Timeouts come from the request
// context, not the HTTP client.
func New(source, baseURL string, opts ...Option) (*Client, error) {
	raw := strings.TrimSpace(baseURL)
	if raw == "" {
		return nil, fmt.Errorf("%s: base URL is required", source)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: parse base URL: %w", source, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%s: base URL must include scheme and host (got %q)", source, baseURL)
	}
	u.Path = strings.TrimRight(u.Path, "/")

	c := &Client{
		source:  source,
		baseURL: u,
		http:    &http.Client{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// Get issues GET path?query and decodes a 2xx JSON body into out. Every
// error returned is a *providers.ProviderError.
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	u := *c.baseURL
	u.Path = c.baseURL.Path + path
	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return providers.NewProviderError(models.FailureInternal, c.source, "build request", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return providers.NewProviderError(providers.KindOf(err), c.source, "request failed", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return providers.NewProviderError(providers.KindOf(err), c.source, "read response", err)
	}
	if resp.StatusCode/100 != 2 {
		return providers.NewProviderError(providers.KindForStatus(resp.StatusCode), c.source,
			fmt.Sprintf("unexpected status %d", resp.StatusCode), fmt.Errorf("%s", snippet(body)))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return providers.NewProviderError(models.FailureMalformedResponse, c.source, "decode response", err)
	}
	return nil
}

// Health issues GET path and expects a 2xx.
func (c *Client) Health(ctx context.Context, path string) error {
	var ignored json.RawMessage
	return c.Get(ctx, path, nil, &ignored)
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	if s == "" {
		return "empty body"
	}
	return s
}
