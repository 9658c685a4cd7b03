package retry

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/go-go-golems/pensieri/pkg/inference/engine"
	"github.com/go-go-golems/pensieri/pkg/inference/ratelimit"
	"github.com/go-go-golems/pensieri/pkg/steps/ai/settings"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// ErrExhaustedRetries is matched (errors.Is) by every error returned once the
// retry budget has been used up.
var ErrExhaustedRetries = errors.New("exhausted retries")

// ExhaustedError carries the last provider error after all attempts failed.
type ExhaustedError struct {
	Retries int
	Err     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("error after %d retries: %v", e.Retries, e.Err)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

func (e *ExhaustedError) Is(target error) bool {
	return target == ErrExhaustedRetries
}

// quotaMarkers are lower-cased substrings that signal provider-side throttling.
var quotaMarkers = []string{
	"resource exhausted",
	"quota exceeded",
	"resource_exhausted",
}

// IsQuotaExhausted reports whether err looks like a quota / resource exhaustion error.
func IsQuotaExhausted(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, m := range quotaMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

// Backoff computes the delay before retry number attempt (1-based), without jitter
// and without the quota cooldown.
func Backoff(attempt int, baseDelay, maxDelay time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := baseDelay
	for i := 1; i < attempt; i++ {
		if delay >= maxDelay {
			break
		}
		delay *= 2
	}
	if delay > maxDelay {
		delay = maxDelay
	}
	return delay
}

// JitterFunc returns a value in [0, max).
type JitterFunc func(max time.Duration) time.Duration

func defaultJitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(max)))
}

// Requestor wraps an Engine with rate limiting and bounded retries with
// exponential backoff. It implements engine.Engine itself.
type Requestor struct {
	engine   engine.Engine
	limiter  *ratelimit.Limiter
	settings settings.RetrySettings
	clock    ratelimit.Clock
	jitter   JitterFunc
	onRetry  OnRetryFunc
}

var _ engine.Engine = (*Requestor)(nil)

type Option func(*Requestor)

func WithLimiter(limiter *ratelimit.Limiter) Option {
	return func(r *Requestor) {
		r.limiter = limiter
	}
}

func WithClock(clock ratelimit.Clock) Option {
	return func(r *Requestor) {
		r.clock = clock
	}
}

func WithJitter(jitter JitterFunc) Option {
	return func(r *Requestor) {
		r.jitter = jitter
	}
}

// OnRetryFunc is called before each backoff sleep with the context of the
// failed Generate call.
type OnRetryFunc func(ctx context.Context, attempt int, delay time.Duration, err error)

func WithOnRetry(f OnRetryFunc) Option {
	return func(r *Requestor) {
		r.onRetry = f
	}
}

func NewRequestor(e engine.Engine, retrySettings *settings.RetrySettings, options ...Option) *Requestor {
	if retrySettings == nil {
		retrySettings = settings.NewRetrySettings()
	}
	r := &Requestor{
		engine:   e,
		settings: *retrySettings,
		clock:    ratelimit.RealClock,
		jitter:   defaultJitter,
	}
	for _, o := range options {
		o(r)
	}
	return r
}

// Delay is the full wait before retry number attempt: capped exponential
// backoff, up to 10% jitter, plus the quota cooldown when err asks for it.
func (r *Requestor) Delay(attempt int, err error) time.Duration {
	delay := Backoff(attempt, r.settings.BaseDelay, r.settings.MaxDelay)
	total := delay + r.jitter(delay/10)
	if IsQuotaExhausted(err) {
		total += r.settings.QuotaCooldown
	}
	return total
}

// Generate calls the wrapped engine until it succeeds or MaxRetries retries
// have failed, in which case the returned error matches ErrExhaustedRetries.
// Configuration errors and context cancellation are returned immediately.
func (r *Requestor) Generate(ctx context.Context, prompt string, temperature float64) (string, error) {
	retries := 0
	for {
		if err := r.limiter.Acquire(ctx); err != nil {
			return "", err
		}

		text, err := r.engine.Generate(ctx, prompt, temperature)
		if err == nil {
			return text, nil
		}

		if engine.IsConfigurationError(err) {
			return "", err
		}
		if ctx.Err() != nil {
			return "", errors.Wrap(ctx.Err(), "generation cancelled")
		}

		retries++
		if retries > r.settings.MaxRetries {
			log.Error().Err(err).Int("max_retries", r.settings.MaxRetries).Msg("Generation failed, giving up")
			return "", &ExhaustedError{Retries: r.settings.MaxRetries, Err: err}
		}

		delay := r.Delay(retries, err)
		evt := log.Warn().Err(err).
			Int("attempt", retries).
			Int("max_retries", r.settings.MaxRetries).
			Dur("delay", delay)
		if IsQuotaExhausted(err) {
			evt = evt.Bool("quota_exhausted", true)
		}
		evt.Msg("Generation failed, retrying")

		if r.onRetry != nil {
			r.onRetry(ctx, retries, delay, err)
		}

		if err := r.clock.Sleep(ctx, delay); err != nil {
			return "", errors.Wrap(err, "waiting to retry")
		}
	}
}
