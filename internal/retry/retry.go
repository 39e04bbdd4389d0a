// Package retry provides bounded exponential-backoff retry for calls to
// external collaborators (embedding API, vector index, generative API).
package retry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Policy bounds the retry loop.
type Policy struct {
	// Attempts is the total number of tries, including the first.
	Attempts int
	// BaseDelay is the delay before the second attempt; it doubles on
	// every further attempt up to MaxDelay.
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

// DefaultPolicy matches the configured defaults: 3 attempts, 200ms base.
func DefaultPolicy() Policy {
	return Policy{Attempts: 3, BaseDelay: 200 * time.Millisecond, MaxDelay: 5 * time.Second}
}

func (p Policy) normalized() Policy {
	if p.Attempts <= 0 {
		p.Attempts = 1
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = 200 * time.Millisecond
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = 5 * time.Second
	}
	return p
}

// Do runs op until it succeeds, returns a non-transient error, the policy
// is exhausted, or ctx is done. The context error wins over the op error
// so an overall deadline surfaces as context.DeadlineExceeded.
func Do(ctx context.Context, p Policy, op func(ctx context.Context) error) error {
	p = p.normalized()

	var err error
	delay := p.BaseDelay
	for attempt := 1; ; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		err = op(ctx)
		if err == nil {
			return nil
		}
		if !Transient(err) {
			return err
		}
		if attempt >= p.Attempts {
			return fmt.Errorf("after %d attempts: %w", p.Attempts, err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
		if delay > p.MaxDelay {
			delay = p.MaxDelay
		}
	}
}

// Transient reports whether an error is worth retrying: per-call timeouts,
// rate limits, and temporary upstream failures. Cancellation of the caller's
// context is never transient.
func Transient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var timeout interface{ Timeout() bool }
	if errors.As(err, &timeout) && timeout.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range []string{
		"429", "rate limit", "too many requests",
		"timeout", "timed out", "temporarily", "unavailable",
		"connection refused", "connection reset", "502", "503", "504",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
