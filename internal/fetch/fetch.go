package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-shiori/go-readability"
)

const (
	// DefaultTimeout bounds one page fetch end to end.
	DefaultTimeout = 15 * time.Second
	// DefaultMaxChars caps the extracted article text.
	DefaultMaxChars = 8000
)

// ErrUnsupportedFetcher is returned for unknown fetcher types.
var ErrUnsupportedFetcher = errors.New("unsupported fetcher type")

// Result is the readable content of one page.
type Result struct {
	URL   string `json:"url"`
	Title string `json:"title"`
	Text  string `json:"text"`
}

// PageFetcher turns a URL into readable text.
type PageFetcher interface {
	Exec(ctx context.Context, url string) (Result, error)
}

// FetcherType selects the fetching strategy.
type FetcherType string

const (
	// HTTPFetcherType does a plain GET; cheap, misses script-rendered pages.
	HTTPFetcherType FetcherType = "http"
	// ChromedpFetcherType renders the page in headless Chrome first.
	ChromedpFetcherType FetcherType = "chromedp"
)

// NewPageFetcher builds a fetcher of the given type.
func NewPageFetcher(fetcherType FetcherType, timeout time.Duration, maxChars int) (PageFetcher, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	switch fetcherType {
	case HTTPFetcherType:
		return &HTTPFetch{Timeout: timeout, MaxChars: maxChars}, nil
	case ChromedpFetcherType:
		return &ChromeFetch{Timeout: timeout, MaxChars: maxChars}, nil
	default:
		return nil, ErrUnsupportedFetcher
	}
}

// HTTPFetch retrieves a page with a plain GET and extracts its readable text.
type HTTPFetch struct {
	Timeout  time.Duration
	MaxChars int
}

func (f *HTTPFetch) Exec(ctx context.Context, rawURL string) (Result, error) {
	if strings.TrimSpace(rawURL) == "" {
		return Result{}, errors.New("invalid url")
	}
	ctx, cancel := context.WithTimeout(ctx, f.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", rawURL, nil)
	if err != nil {
		return Result{}, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("failed to fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("page returned status: %d", resp.StatusCode)
	}

	article, err := readability.FromReader(resp.Body, mustParseURL(rawURL))
	if err != nil {
		return Result{}, fmt.Errorf("failed to extract content: %w", err)
	}
	return Result{
		URL:   rawURL,
		Title: strings.TrimSpace(article.Title),
		Text:  firstN(strings.TrimSpace(article.TextContent), f.MaxChars),
	}, nil
}

func mustParseURL(raw string) *url.URL {
	u, err := url.Parse(raw)
	if err != nil {
		return &url.URL{}
	}
	return u
}

func firstN(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
