// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package gazelle

import "time"

// Limiter enforces the target tracker's request budget of max requests per
// sliding window using plain timestamp bookkeeping. It is not safe for
// concurrent use; the verification loop is strictly sequential.
//
// The clock and sleep functions are injectable so tests run without
// real waits.
type Limiter struct {
	max    int
	window time.Duration

	now   func() time.Time
	sleep func(time.Duration)

	calls []time.Time
}

// NewLimiter returns a limiter allowing max requests per window. Non-positive
// arguments fall back to 5 requests per 10 seconds.
func NewLimiter(max int, window time.Duration) *Limiter {
	if max <= 0 {
		max = 5
	}
	if window <= 0 {
		window = 10 * time.Second
	}
	return &Limiter{
		max:    max,
		window: window,
		now:    time.Now,
		sleep:  time.Sleep,
	}
}

// Wait blocks until a request may be sent, then records it.
func (l *Limiter) Wait() {
	l.prune(l.now())

	if len(l.calls) >= l.max {
		wait := l.calls[0].Add(l.window).Sub(l.now())
		if wait > 0 {
			l.sleep(wait)
		}
		l.prune(l.now())
	}

	l.calls = append(l.calls, l.now())
}

// prune drops timestamps that have fallen out of the window. A timestamp
// exactly at the boundary is out: a full window has elapsed since it.
func (l *Limiter) prune(now time.Time) {
	cutoff := now.Add(-l.window)
	for len(l.calls) > 0 && !l.calls[0].After(cutoff) {
		l.calls = l.calls[1:]
	}
}
