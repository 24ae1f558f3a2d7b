// Package mediawiki implements the read-only page collaborator against a
// MediaWiki Action API endpoint.
package mediawiki

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"wikibridge/internal/sentinel"
)

// DefaultTimeout bounds every wiki round trip. A request that exceeds it
// surfaces as a transient error, never as a page-not-found answer.
const DefaultTimeout = 10 * time.Second

// Client queries page state over the MediaWiki Action API.
type Client struct {
	apiURL string
	http   *http.Client
	logger *slog.Logger
}

type Option func(*Client)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithHTTPClient overrides the underlying HTTP client. Useful for tests.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.http = httpClient
	}
}

func New(apiURL string, timeout time.Duration, opts ...Option) (*Client, error) {
	if apiURL == "" {
		return nil, fmt.Errorf("wiki API URL is required")
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &Client{
		apiURL: apiURL,
		http:   &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// queryResponse covers the subset of the Action API response the client reads
// (formatversion=2).
type queryResponse struct {
	Query struct {
		Pages []struct {
			Title     string `json:"title"`
			Missing   bool   `json:"missing"`
			Revisions []struct {
				User  string `json:"user"`
				Slots struct {
					Main struct {
						Content string `json:"content"`
					} `json:"main"`
				} `json:"slots"`
			} `json:"revisions"`
		} `json:"pages"`
	} `json:"query"`
}

// PageExists reports whether the titled page exists on the wiki.
func (c *Client) PageExists(ctx context.Context, title string) (bool, error) {
	params := url.Values{
		"action": {"query"},
		"titles": {title},
	}
	resp, err := c.query(ctx, params)
	if err != nil {
		return false, err
	}
	if len(resp.Query.Pages) == 0 {
		return false, nil
	}
	return !resp.Query.Pages[0].Missing, nil
}

// PageCreator returns the username that made the page's first revision.
func (c *Client) PageCreator(ctx context.Context, title string) (string, error) {
	params := url.Values{
		"action":  {"query"},
		"titles":  {title},
		"prop":    {"revisions"},
		"rvlimit": {"1"},
		"rvdir":   {"newer"},
		"rvprop":  {"user"},
	}
	resp, err := c.query(ctx, params)
	if err != nil {
		return "", err
	}
	if len(resp.Query.Pages) == 0 || resp.Query.Pages[0].Missing || len(resp.Query.Pages[0].Revisions) == 0 {
		return "", fmt.Errorf("page %q has no revisions: %w", title, sentinel.ErrNotFound)
	}
	return resp.Query.Pages[0].Revisions[0].User, nil
}

// PageText returns the current content of the titled page, or "" when the
// page has no content.
func (c *Client) PageText(ctx context.Context, title string) (string, error) {
	params := url.Values{
		"action":  {"query"},
		"titles":  {title},
		"prop":    {"revisions"},
		"rvlimit": {"1"},
		"rvprop":  {"content"},
		"rvslots": {"main"},
	}
	resp, err := c.query(ctx, params)
	if err != nil {
		return "", err
	}
	if len(resp.Query.Pages) == 0 || resp.Query.Pages[0].Missing || len(resp.Query.Pages[0].Revisions) == 0 {
		return "", nil
	}
	return resp.Query.Pages[0].Revisions[0].Slots.Main.Content, nil
}

func (c *Client) query(ctx context.Context, params url.Values) (*queryResponse, error) {
	params.Set("format", "json")
	params.Set("formatversion", "2")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build wiki request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		// Timeouts and connection failures are transient: the wiki could not
		// be consulted, nothing is known about the page.
		if c.logger != nil {
			c.logger.ErrorContext(ctx, "wiki request failed", "error", err)
		}
		return nil, fmt.Errorf("wiki request: %w: %w", sentinel.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("wiki returned status %d: %w", resp.StatusCode, sentinel.ErrUnavailable)
	}

	var decoded queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode wiki response: %w", err)
	}
	return &decoded, nil
}
