// Package retry wraps external calls with bounded exponential backoff and an explicit
// retryable / non-retryable classification.
package retry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Class tells the policy whether a failure is worth another attempt.
type Class int

// Failure classes
const (
	// ClassTransient covers timeouts, rate limits and 5xx responses.
	ClassTransient Class = iota + 1
	// ClassPermanent covers malformed input, auth failures and other 4xx responses.
	ClassPermanent
)

func (c Class) String() string {
	switch c {
	case ClassTransient:
		return "transient"
	case ClassPermanent:
		return "permanent"
	default:
		return "unclassified"
	}
}

// Error is a classified collaborator failure.
type Error struct {
	Service    string
	Class      Class
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s failure (status %d): %v", e.Service, e.Class, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %s failure: %v", e.Service, e.Class, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Transient marks err as retryable.
func Transient(service string, err error) *Error {
	return &Error{Service: service, Class: ClassTransient, Err: err}
}

// Permanent marks err as non-retryable.
func Permanent(service string, err error) *Error {
	return &Error{Service: service, Class: ClassPermanent, Err: err}
}

// FromStatus classifies an HTTP response status.
func FromStatus(service string, status int, err error) *Error {
	if err == nil {
		err = errors.New(http.StatusText(status))
	}
	return &Error{Service: service, Class: ClassifyStatus(status), StatusCode: status, Err: err}
}

// ClassifyStatus maps an HTTP status code to a failure class.
func ClassifyStatus(status int) Class {
	switch {
	case status == http.StatusRequestTimeout,
		status == http.StatusTooEarly,
		status == http.StatusTooManyRequests,
		status >= 500:
		return ClassTransient
	default:
		return ClassPermanent
	}
}

// ClassOf returns the class of err, or zero when err carries no classification.
// A deadline hit is transient; a cancellation is permanent.
func ClassOf(err error) Class {
	var rerr *Error
	if errors.As(err, &rerr) {
		return rerr.Class
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ClassTransient
	}
	if errors.Is(err, context.Canceled) {
		return ClassPermanent
	}
	return 0
}

// IsRetryable reports whether err should be attempted again.
func IsRetryable(err error) bool {
	return ClassOf(err) == ClassTransient
}

// ExhaustedError is returned after the last attempt of a transient failure.
type ExhaustedError struct {
	Service  string
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s: gave up after %d attempts: %v", e.Service, e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Last
}

// Policy is a bounded exponential backoff.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Multiplier  float64
	// CallTimeout bounds each attempt. Zero leaves the caller's context alone.
	CallTimeout time.Duration

	sleep func(context.Context, time.Duration) error
}

// DefaultPolicy returns three attempts, 2s base delay, doubling, 60s per call.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   2 * time.Second,
		MaxDelay:    30 * time.Second,
		Multiplier:  2,
		CallTimeout: 60 * time.Second,
	}
}

// WithSleep returns a copy of p that waits with fn. Tests use it to avoid real delays.
func (p Policy) WithSleep(fn func(context.Context, time.Duration) error) Policy {
	p.sleep = fn
	return p
}

// WithCallTimeout returns a copy of p with a different per-attempt timeout.
func (p Policy) WithCallTimeout(d time.Duration) Policy {
	p.CallTimeout = d
	return p
}

// Delay returns the wait before the given retry (1 = first retry).
func (p Policy) Delay(retry int) time.Duration {
	if retry < 1 || p.BaseDelay <= 0 {
		return 0
	}
	mult := p.Multiplier
	if mult < 1 {
		mult = 1
	}
	d := float64(p.BaseDelay)
	for i := 1; i < retry; i++ {
		d *= mult
	}
	delay := time.Duration(d)
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	return delay
}

// Do runs fn under the policy.
func (p Policy) Do(ctx context.Context, service string, fn func(context.Context) error) error {
	_, err := Call(ctx, p, service, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// Call runs fn under the policy and returns its value. Non-retryable errors are
// returned as-is after the first attempt; transient errors are retried until the
// attempts run out, then wrapped in ExhaustedError.
func Call[T any](ctx context.Context, p Policy, service string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	sleep := p.sleep
	if sleep == nil {
		sleep = sleepContext
	}

	var last error
	for n := 1; n <= attempts; n++ {
		v, err := attempt(ctx, p.CallTimeout, service, fn)
		if err == nil {
			return v, nil
		}
		if ctx.Err() != nil {
			return zero, err
		}
		if !IsRetryable(err) {
			return zero, err
		}
		last = err
		if n == attempts {
			break
		}
		if err := sleep(ctx, p.Delay(n)); err != nil {
			return zero, err
		}
	}
	return zero, &ExhaustedError{Service: service, Attempts: attempts, Last: last}
}

// attempt runs fn once. Hitting the per-call timeout is transient even when fn
// returned an error that does not say so.
func attempt[T any](ctx context.Context, timeout time.Duration, service string, fn func(context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		return fn(ctx)
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	v, err := fn(callCtx)
	if err != nil && ClassOf(err) == 0 && errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return v, Transient(service, err)
	}
	return v, err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
