package scrape

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/temoto/robotstxt"
)

// DefaultUserAgent matches a desktop browser; the target site serves
// stripped-down markup to unknown agents.
const DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/117.0 Safari/537.36"

// DefaultTimeout bounds each page fetch.
const DefaultTimeout = 12 * time.Second

// ErrRobotsDisallowed is returned by Fetch when the site's robots.txt
// explicitly excludes the requested path.
var ErrRobotsDisallowed = errors.New("path disallowed by robots.txt")

// Client fetches pages and parses them into goquery documents. It caches
// one robots.txt ruleset per host; a robots.txt that cannot be fetched or
// parsed is treated as allow-all.
type Client struct {
	httpClient    *http.Client
	userAgent     string
	respectRobots bool
	robots        map[string]*robotstxt.Group
}

// Option configures a Client.
type Option func(*Client)

// WithUserAgent overrides the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithRobots enables or disables the robots.txt gate.
func WithRobots(respect bool) Option {
	return func(c *Client) { c.respectRobots = respect }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a page-fetching client with default timeout and
// user agent.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		userAgent:  DefaultUserAgent,
		robots:     make(map[string]*robotstxt.Group),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch retrieves the page at rawURL and parses it into a document.
// Non-2xx responses and unparseable bodies are errors; when the robots gate
// is enabled a disallowed path returns ErrRobotsDisallowed.
func (c *Client) Fetch(ctx context.Context, rawURL string) (*goquery.Document, error) {
	if c.respectRobots {
		if err := c.checkRobots(ctx, rawURL); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	return doc, nil
}

// checkRobots tests rawURL's path against the host's robots.txt rules,
// fetching and caching them on first sight of the host.
func (c *Client) checkRobots(ctx context.Context, rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	group, seen := c.robots[u.Host]
	if !seen {
		group = c.fetchRobots(ctx, u)
		c.robots[u.Host] = group
	}

	// A nil group means robots.txt was unavailable: allow everything.
	if group != nil && !group.Test(u.Path) {
		return fmt.Errorf("%w: %s", ErrRobotsDisallowed, u.Path)
	}
	return nil
}

func (c *Client) fetchRobots(ctx context.Context, u *url.URL) *robotstxt.Group {
	robotsURL := u.Scheme + "://" + u.Host + "/robots.txt"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()

	data, err := robotstxt.FromResponse(resp)
	if err != nil {
		return nil
	}
	return data.FindGroup(c.userAgent)
}
