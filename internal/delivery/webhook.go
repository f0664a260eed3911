package delivery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/jonathan/recruiter-agent/internal/retry"
	"github.com/jonathan/recruiter-agent/internal/types"
)

// WebhookService is the retry name of webhook calls.
const WebhookService = "webhook"

// WebhookSink posts the document as JSON to the request's delivery target, or to
// a default URL when the request named none.
type WebhookSink struct {
	client     *resty.Client
	defaultURL string
	policy     retry.Policy
}

// NewWebhookSink creates a webhook sink. defaultURL may be empty.
func NewWebhookSink(defaultURL string, policy retry.Policy) *WebhookSink {
	client := resty.New()
	client.SetTimeout(30 * time.Second)
	client.SetHeader("Content-Type", "application/json")
	client.SetHeader("User-Agent", "RecruiterAgent/1.0")

	return &WebhookSink{client: client, defaultURL: defaultURL, policy: policy}
}

// Target returns the URL a document would be posted to.
func (s *WebhookSink) Target(doc *types.Document) string {
	if doc.InputEcho.DeliveryTarget != "" {
		return doc.InputEcho.DeliveryTarget
	}
	return s.defaultURL
}

// Deliver implements Sink.
func (s *WebhookSink) Deliver(ctx context.Context, doc *types.Document) error {
	target := s.Target(doc)
	if target == "" {
		return ErrSkipped
	}

	return s.policy.Do(ctx, WebhookService, func(ctx context.Context) error {
		resp, err := s.client.R().
			SetContext(ctx).
			SetBody(doc).
			Post(target)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return retry.Permanent(WebhookService, err)
			}
			return retry.Transient(WebhookService, fmt.Errorf("webhook request failed: %w", err))
		}
		if resp.IsError() {
			return retry.FromStatus(WebhookService, resp.StatusCode(), fmt.Errorf("webhook returned %s", resp.Status()))
		}
		return nil
	})
}
