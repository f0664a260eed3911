// Package delivery hands terminal result documents to their destinations.
// Delivery happens after a run is terminal and never changes its status.
package delivery

import (
	"context"
	"errors"

	"github.com/jonathan/recruiter-agent/internal/observability"
	"github.com/jonathan/recruiter-agent/internal/types"
)

// ErrSkipped is returned by a sink that has no destination for a document.
var ErrSkipped = errors.New("no delivery target")

// Sink delivers one result document.
type Sink interface {
	Deliver(ctx context.Context, doc *types.Document) error
}

// Multi delivers to every sink in order. Sinks that skip are ignored; the
// document counts as delivered when no sink failed and at least one did not skip.
type Multi []Sink

// Deliver implements Sink.
func (m Multi) Deliver(ctx context.Context, doc *types.Document) error {
	var errs []error
	delivered := false
	for _, sink := range m {
		if sink == nil {
			continue
		}
		err := sink.Deliver(ctx, doc)
		switch {
		case err == nil:
			delivered = true
		case errors.Is(err, ErrSkipped):
		default:
			observability.FromContext(ctx).WithError(err).
				WithField(observability.FieldRunID, doc.RunID).
				Warn("delivery failed")
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	if !delivered {
		return ErrSkipped
	}
	return nil
}
