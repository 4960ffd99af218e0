package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// Kind classifies a failed attempt to pick a backoff
type Kind int

const (
	// KindGeneric is any transport or non-2xx failure
	KindGeneric Kind = iota
	// KindRateLimit is a failure where the remote signaled rate limiting (HTTP 429)
	KindRateLimit
)

// String returns a lowercase label of the kind
func (k Kind) String() string {
	if k == KindRateLimit {
		return "rate_limit"
	}
	return "generic"
}

const (
	// DefaultMaxAttempts is how many times a call is tried before giving up
	DefaultMaxAttempts = 3
	// DefaultDelay is the wait between generic failures
	DefaultDelay = 2 * time.Second
	// DefaultRateLimitDelay is the wait after a rate limited response
	DefaultRateLimitDelay = 5 * time.Second
)

// RateLimiter is implemented by errors that know whether they represent rate limiting
type RateLimiter interface {
	RateLimited() bool
}

// Policy wraps a remote call with bounded attempts and a per kind backoff
type Policy struct {
	MaxAttempts int
	// Backoff returns the delay after the failed attempt (1 based) of the given kind
	Backoff func(attempt int, kind Kind) time.Duration
	// Sleep waits for d, returning early with an error if ctx is done. Defaults to a timer
	Sleep func(ctx context.Context, d time.Duration) error
	// OnRetry is called before each wait, optional
	OnRetry func(attempt int, kind Kind, err error)
}

// Fixed returns a backoff that waits generic for generic failures and rateLimit for rate limited ones
func Fixed(generic time.Duration, rateLimit time.Duration) func(attempt int, kind Kind) time.Duration {
	return func(attempt int, kind Kind) time.Duration {
		if kind == KindRateLimit {
			return rateLimit
		}
		return generic
	}
}

// New returns a policy using fixed delays
func New(maxAttempts int, delay time.Duration, rateLimitDelay time.Duration) *Policy {
	return &Policy{
		MaxAttempts: maxAttempts,
		Backoff:     Fixed(delay, rateLimitDelay),
	}
}

// Default returns a 3 attempt, 2s/5s policy
func Default() *Policy {
	return New(DefaultMaxAttempts, DefaultDelay, DefaultRateLimitDelay)
}

// Classify returns the kind of err
func Classify(err error) Kind {
	var rl RateLimiter
	if errors.As(err, &rl) && rl.RateLimited() {
		return KindRateLimit
	}
	return KindGeneric
}

// Do calls fn until it succeeds or MaxAttempts is reached.
// The returned error is the last failure, annotated with the attempt count.
func (p *Policy) Do(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	maxAttempts := p.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	backoff := p.Backoff
	if backoff == nil {
		backoff = Fixed(DefaultDelay, DefaultRateLimitDelay)
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = timerSleep
	}

	// a panicking call counts as a failed attempt rather than escaping the policy
	call := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		return fn(ctx)
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = call()
		if err == nil {
			return nil
		}

		if attempt == maxAttempts {
			break
		}

		kind := Classify(err)
		delay := backoff(attempt, kind)
		log.Debug().Err(err).Int("attempt", attempt).Str("kind", kind.String()).Dur("delay", delay).Msg("retrying")
		if p.OnRetry != nil {
			p.OnRetry(attempt, kind, err)
		}
		if sleepErr := sleep(ctx, delay); sleepErr != nil {
			return fmt.Errorf("attempt %d/%d: %w: wait aborted: %w", attempt, maxAttempts, err, sleepErr)
		}
	}
	return fmt.Errorf("exhausted %d attempts: %w", maxAttempts, err)
}

func timerSleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
