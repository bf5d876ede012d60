// Package resilience provides fault-tolerance patterns:
// retry with exponential backoff, circuit breaker, bulkhead and timeouts.
package resilience

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"

	"github.com/sony/gobreaker"

	"github.com/boddenberg/financio-bfa-go/internal/domain"
)

// Config holds resilience parameters.
type Config struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxConcurrency int
	Timeout        time.Duration
}

// permanentError marks a failure that retrying cannot fix.
type permanentError struct {
	err error
}

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent wraps err so RetryWithBackoff returns it immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// rejectedError marks a request the remote refused on its merits, such as a
// missing row or a malformed filter. The remote itself is healthy.
type rejectedError struct {
	err error
}

func (r *rejectedError) Error() string { return r.err.Error() }
func (r *rejectedError) Unwrap() error { return r.err }

// Rejected wraps err as permanent and keeps it out of the breaker's
// failure counts.
func Rejected(err error) error {
	if err == nil {
		return nil
	}
	return Permanent(&rejectedError{err: err})
}

// countsAsSuccess tells the breaker which errors say nothing about the
// health of the remote.
func countsAsSuccess(err error) bool {
	if err == nil {
		return true
	}
	var (
		rejected *rejectedError
		nf       *domain.ErrNotFound
		verr     *domain.ErrValidation
	)
	return errors.As(err, &rejected) ||
		errors.As(err, &nf) ||
		errors.As(err, &verr) ||
		errors.Is(err, context.Canceled)
}

// RetryWithBackoff executes fn with exponential backoff + jitter.
// It respects context cancellation and stops on Permanent errors.
func RetryWithBackoff(ctx context.Context, cfg Config, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		var perm *permanentError
		if errors.As(lastErr, &perm) {
			return perm.err
		}

		if attempt < cfg.MaxRetries {
			backoff := time.Duration(math.Pow(2, float64(attempt))) * cfg.InitialBackoff
			wait := backoff
			if half := int64(backoff / 2); half > 0 {
				wait += time.Duration(rand.Int63n(half))
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}
	}
	return lastErr
}

// NewCircuitBreaker creates a circuit breaker with sensible defaults.
// Rejected requests and caller cancellations do not count as failures.
func NewCircuitBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,                // half-open: allow 3 requests
		Interval:    30 * time.Second, // closed: reset counters every 30s
		Timeout:     10 * time.Second, // open -> half-open after 10s
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.6
		},
		IsSuccessful: countsAsSuccess,
	})
}

// Call runs fn behind the breaker with retries and, when cfg.Timeout is
// set, a deadline. Breaker and deadline failures come back as
// domain.ErrCircuitOpen and domain.ErrTimeout.
func Call(ctx context.Context, cb *gobreaker.CircuitBreaker, cfg Config, service string, fn func(ctx context.Context) error) error {
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	_, err := cb.Execute(func() (any, error) {
		return nil, RetryWithBackoff(ctx, cfg, func() error { return fn(ctx) })
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return &domain.ErrCircuitOpen{Service: service}
	case errors.Is(err, context.DeadlineExceeded):
		return &domain.ErrTimeout{Operation: service}
	}
	return err
}

// Bulkhead limits concurrent access to a resource.
type Bulkhead struct {
	sem chan struct{}
}

// NewBulkhead creates a bulkhead with the given max concurrency.
func NewBulkhead(maxConcurrency int) *Bulkhead {
	if maxConcurrency <= 0 {
		maxConcurrency = 1
	}
	return &Bulkhead{sem: make(chan struct{}, maxConcurrency)}
}

// Acquire blocks until a slot is available or context is cancelled.
func (b *Bulkhead) Acquire(ctx context.Context) error {
	select {
	case b.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees a slot.
func (b *Bulkhead) Release() {
	<-b.sem
}
