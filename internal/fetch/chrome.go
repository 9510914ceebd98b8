package fetch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/go-shiori/go-readability"
)

// ChromeFetch renders a page in headless Chrome before extraction, for pages
// that build their content with scripts.
type ChromeFetch struct {
	Timeout  time.Duration
	MaxChars int
}

func (f *ChromeFetch) Exec(ctx context.Context, rawURL string) (Result, error) {
	if strings.TrimSpace(rawURL) == "" {
		return Result{}, errors.New("invalid url")
	}
	ctx, cancel := context.WithTimeout(ctx, f.Timeout)
	defer cancel()

	html, err := renderHTML(ctx, rawURL)
	if err != nil {
		return Result{}, fmt.Errorf("failed to render page: %w", err)
	}
	article, err := readability.FromReader(strings.NewReader(html), mustParseURL(rawURL))
	if err != nil {
		return Result{}, fmt.Errorf("failed to extract content: %w", err)
	}
	return Result{
		URL:   rawURL,
		Title: strings.TrimSpace(article.Title),
		Text:  firstN(strings.TrimSpace(article.TextContent), f.MaxChars),
	}, nil
}

func renderHTML(ctx context.Context, url string) (string, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.UserAgent("PixelKnight/1.0"),
	)
	actx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	bctx, cancelBrowser := chromedp.NewContext(actx)
	defer cancelBrowser()

	var html string
	err := chromedp.Run(bctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	return html, err
}
