// Package releases reads the upstream release listing one page at a time.
package releases

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const (
	// DefaultFeedURL is the paginated release listing for Bun.
	DefaultFeedURL = "https://github.com/oven-sh/bun/releases"

	// PageSize is the number of releases the feed shows on a full page.
	PageSize = 10

	defaultTimeout = 30 * time.Second
)

// ErrInvalidPage is returned for page numbers below 1.
var ErrInvalidPage = errors.New("page number must be 1 or greater")

// FetchError reports a non-success HTTP status from the feed.
type FetchError struct {
	Page   int
	Status int
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to fetch release page %d: status %d %s",
		e.Page, e.Status, http.StatusText(e.Status))
}

// HTTPClient is the subset of *http.Client the browser needs.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Option configures a Browser.
type Option func(*Browser)

// WithFeedURL overrides the feed location.
func WithFeedURL(feed string) Option {
	return func(b *Browser) {
		if feed != "" {
			b.feedURL = feed
		}
	}
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(c HTTPClient) Option {
	return func(b *Browser) {
		if c != nil {
			b.client = c
		}
	}
}

// WithTimeout sets the timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(b *Browser) {
		if d > 0 {
			b.client = &http.Client{Timeout: d}
		}
	}
}

// Browser fetches release pages. Each call is independent: there is no
// retry, caching or rate limiting.
type Browser struct {
	feedURL string
	client  HTTPClient
}

// NewBrowser creates a Browser for the default feed.
func NewBrowser(opts ...Option) *Browser {
	b := &Browser{
		feedURL: DefaultFeedURL,
		client:  &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// PageURL returns the URL for page n.
func (b *Browser) PageURL(n int) (string, error) {
	u, err := url.Parse(b.feedURL)
	if err != nil {
		return "", fmt.Errorf("invalid feed URL %q: %w", b.feedURL, err)
	}
	q := u.Query()
	q.Set("page", strconv.Itoa(n))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// FetchPage reads page n (1-indexed) of the feed.
func (b *Browser) FetchPage(ctx context.Context, n int) (*Page, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPage, n)
	}
	pageURL, err := b.PageURL(n)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "text/html")

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch release page %d: %w", n, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{Page: n, Status: resp.StatusCode}
	}

	labels, err := Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse release page %d: %w", n, err)
	}
	return NewPage(n, labels), nil
}
