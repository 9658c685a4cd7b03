package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// Limiter enforces a minimum interval between calls. It is owned by a single
// client; callers that need a shared throttle must share the Limiter.
type Limiter struct {
	mu       sync.Mutex
	limiter  *rate.Limiter
	interval time.Duration
	clock    Clock
	// last is when the previous Acquire returned. It guards against the
	// float rounding of rate.Limiter ever letting two calls in early.
	last time.Time
}

type Option func(*Limiter)

func WithClock(clock Clock) Option {
	return func(l *Limiter) {
		l.clock = clock
	}
}

// NewLimiter allows requestsPerMinute calls per minute, i.e. one call every
// 60/requestsPerMinute seconds. A non-positive value disables limiting.
func NewLimiter(requestsPerMinute float64, options ...Option) *Limiter {
	l := &Limiter{
		clock: RealClock,
	}
	for _, o := range options {
		o(l)
	}

	if requestsPerMinute > 0 {
		l.interval = time.Duration(float64(time.Minute) / requestsPerMinute)
		l.limiter = rate.NewLimiter(rate.Every(l.interval), 1)
	}

	return l
}

// Interval is the minimum spacing between two Acquire calls.
func (l *Limiter) Interval() time.Duration {
	return l.interval
}

// Acquire blocks until the interval since the previous Acquire has elapsed.
// The whole read-compute-sleep-write sequence is serialized, so queued
// callers are released one interval apart.
func (l *Limiter) Acquire(ctx context.Context) error {
	if l == nil || l.limiter == nil {
		return ctx.Err()
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	r := l.limiter.ReserveN(now, 1)
	if !r.OK() {
		return errors.New("rate limiter burst exceeded")
	}

	wait := r.DelayFrom(now)
	if !l.last.IsZero() {
		if minWait := l.last.Add(l.interval).Sub(now); minWait > wait {
			wait = minWait
		}
	}

	if wait > 0 {
		log.Debug().Dur("wait", wait).Msg("Rate limiting: waiting")
		if err := l.clock.Sleep(ctx, wait); err != nil {
			r.CancelAt(l.clock.Now())
			return errors.Wrap(err, "waiting for rate limiter")
		}
	}

	l.last = l.clock.Now()
	return nil
}
