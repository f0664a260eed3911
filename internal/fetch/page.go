package fetch

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jonathan/recruiter-agent/internal/observability"
	"github.com/jonathan/recruiter-agent/internal/retry"
)

// Renderer returns the fully rendered HTML of a page.
type Renderer func(ctx context.Context, url string) (string, error)

// Fetcher turns a website into readable text, optionally rendering thin pages
// in a headless browser. It is safe for concurrent use.
type Fetcher struct {
	client     *http.Client
	userAgent  string
	minContent int
	render     Renderer
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) FetcherOption {
	return func(f *Fetcher) {
		if c != nil {
			f.client = c
		}
	}
}

// WithUserAgent overrides DefaultUserAgent.
func WithUserAgent(ua string) FetcherOption {
	return func(f *Fetcher) {
		if ua != "" {
			f.userAgent = ua
		}
	}
}

// WithMinContentLength sets the text length below which the renderer runs.
func WithMinContentLength(n int) FetcherOption {
	return func(f *Fetcher) { f.minContent = n }
}

// WithBrowserFallback renders thin pages in headless Chrome.
func WithBrowserFallback(timeout time.Duration) FetcherOption {
	return WithRenderer(ChromeRenderer(timeout))
}

// WithRenderer sets a custom renderer for thin pages.
func WithRenderer(r Renderer) FetcherOption {
	return func(f *Fetcher) { f.render = r }
}

// NewFetcher creates a Fetcher.
func NewFetcher(opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		client:     &http.Client{Timeout: DefaultTimeout},
		userAgent:  DefaultUserAgent,
		minContent: MinContentLength,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Text fetches urlStr and returns its main text.
func (f *Fetcher) Text(ctx context.Context, urlStr string) (string, error) {
	html, err := f.page(ctx, urlStr)
	if err != nil {
		return "", err
	}

	text, err := ExtractText(urlStr, html)
	if err != nil {
		return "", err
	}

	if f.render != nil && ShouldUseBrowser(text, f.minContent) {
		logger := observability.FromContext(ctx).WithField("url", urlStr)
		html, rerr := f.render(ctx, urlStr)
		if rerr != nil {
			logger.WithError(rerr).Warn("browser fallback failed, keeping static text")
		} else if rendered, xerr := ExtractText(urlStr, html); xerr == nil && len(rendered) > len(text) {
			text = rendered
		}
	}

	if strings.TrimSpace(text) == "" {
		return "", retry.Permanent(Service, &Error{URL: urlStr, Reason: "no readable content"})
	}
	return text, nil
}

// CompanyText returns the text of a company's about page, falling back to its
// homepage. Pages shorter than minAboutLength are skipped.
func (f *Fetcher) CompanyText(ctx context.Context, website string) (string, error) {
	root := SiteRoot(website)
	if root == "" {
		return "", retry.Permanent(Service, &Error{URL: website, Reason: "invalid URL"})
	}

	var lastErr error
	var fallback string
	for _, candidate := range []string{root + "/about", root + "/about-us", website} {
		text, err := f.Text(ctx, candidate)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				break
			}
			continue
		}
		if len(text) >= minAboutLength {
			return text, nil
		}
		if len(text) > len(fallback) {
			fallback = text
		}
	}

	if fallback != "" {
		return fallback, nil
	}
	if lastErr == nil {
		lastErr = retry.Permanent(Service, &Error{URL: website, Reason: "no readable content"})
	}
	return "", fmt.Errorf("company pages for %s: %w", website, lastErr)
}

const minAboutLength = 200
