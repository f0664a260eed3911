// Package fetch turns recruiter and company websites into plain text for the
// LLM stages. Failures carry a retry class so callers can decide whether to
// try again.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/jonathan/recruiter-agent/internal/retry"
)

// Service is the retry name used for website fetches.
const Service = "fetch"

const (
	// DefaultTimeout bounds a single page request.
	DefaultTimeout = 30 * time.Second
	// DefaultUserAgent identifies the agent to the sites it reads.
	DefaultUserAgent = "Mozilla/5.0 (compatible; RecruiterAgent/1.0)"

	maxPageBytes = 5 << 20
)

// Error describes a page that could not be read.
type Error struct {
	URL    string
	Reason string
	Status int
	Cause  error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("fetch %s: %s", e.URL, e.Reason)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Cause }

// page downloads urlStr and returns its HTML. Network failures and 408/429/5xx
// responses are transient; bad URLs, cancellation and other statuses are permanent.
func (f *Fetcher) page(ctx context.Context, urlStr string) (string, error) {
	u, err := url.Parse(urlStr)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", retry.Permanent(Service, &Error{URL: urlStr, Reason: "invalid URL", Cause: err})
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", retry.Permanent(Service, &Error{URL: urlStr, Reason: "build request", Cause: err})
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		ferr := &Error{URL: urlStr, Reason: "request failed", Cause: err}
		if errors.Is(err, context.Canceled) {
			return "", retry.Permanent(Service, ferr)
		}
		return "", retry.Transient(Service, ferr)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return "", retry.FromStatus(Service, resp.StatusCode, &Error{
			URL:    urlStr,
			Reason: fmt.Sprintf("status %d", resp.StatusCode),
			Status: resp.StatusCode,
		})
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", retry.Transient(Service, &Error{URL: urlStr, Reason: "read body", Cause: err})
	}
	return string(body), nil
}
