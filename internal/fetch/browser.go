package fetch

import (
	"context"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/jonathan/recruiter-agent/internal/observability"
	"github.com/jonathan/recruiter-agent/internal/retry"
)

// MinContentLength is the text length below which a page is treated as a
// client-rendered shell worth rendering in a browser.
const MinContentLength = 500

// settleDelay gives client-side frameworks time to hydrate.
const settleDelay = 2 * time.Second

// ShouldUseBrowser reports whether text is too thin to trust. A non-positive
// minLength means MinContentLength.
func ShouldUseBrowser(text string, minLength int) bool {
	if minLength <= 0 {
		minLength = MinContentLength
	}
	return len(strings.TrimSpace(text)) < minLength
}

// ChromeRenderer returns a Renderer backed by headless Chrome. Each call starts
// its own browser, so Chrome or Chromium must be installed on the host.
func ChromeRenderer(timeout time.Duration) Renderer {
	return func(ctx context.Context, url string) (string, error) {
		log := observability.FromContext(ctx).WithField(observability.FieldComponent, "browser")

		allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.UserAgent(DefaultUserAgent),
		)...)
		defer cancelAlloc()

		tabCtx, cancelTab := chromedp.NewContext(allocCtx)
		defer cancelTab()
		tabCtx, cancelTimeout := context.WithTimeout(tabCtx, timeout)
		defer cancelTimeout()

		start := time.Now()
		var html string
		if err := chromedp.Run(tabCtx,
			chromedp.Navigate(url),
			chromedp.WaitReady("body"),
			chromedp.Sleep(settleDelay),
			chromedp.OuterHTML("html", &html),
		); err != nil {
			return "", retry.Transient(Service, &Error{URL: url, Reason: "browser render", Cause: err})
		}

		log.WithFields(observability.Fields{"url": url, "bytes": len(html), "took": time.Since(start).String()}).Debug("rendered page")
		return html, nil
	}
}
