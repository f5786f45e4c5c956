package gazelle

import (
	"testing"
	"time"
)

// fakeClock advances a synthetic clock instead of sleeping.
type fakeClock struct {
	now   time.Time
	slept []time.Duration
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(d time.Duration) {
	c.slept = append(c.slept, d)
	c.now = c.now.Add(d)
}

func newTestLimiter(max int, window time.Duration) (*Limiter, *fakeClock) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	l := NewLimiter(max, window)
	l.now = clock.Now
	l.sleep = clock.Sleep
	return l, clock
}

func TestLimiterUnderBudget(t *testing.T) {
	l, clock := newTestLimiter(5, 10*time.Second)

	for n := 0; n < 5; n++ {
		l.Wait()
	}
	if len(clock.slept) != 0 {
		t.Errorf("slept %v, want no sleeps under budget", clock.slept)
	}
}

func TestLimiterBlocksAtBudget(t *testing.T) {
	l, clock := newTestLimiter(5, 10*time.Second)

	for n := 0; n < 5; n++ {
		l.Wait()
	}
	l.Wait()

	if len(clock.slept) != 1 {
		t.Fatalf("slept %d times, want 1", len(clock.slept))
	}
	if clock.slept[0] != 10*time.Second {
		t.Errorf("slept %v, want 10s (until the oldest call leaves the window)", clock.slept[0])
	}
}

func TestLimiterWindowExpiry(t *testing.T) {
	l, clock := newTestLimiter(2, 10*time.Second)

	l.Wait()
	l.Wait()
	clock.now = clock.now.Add(11 * time.Second)
	l.Wait()

	if len(clock.slept) != 0 {
		t.Errorf("slept %v, want none after the window expired", clock.slept)
	}
}

func TestLimiterExactWindowBoundary(t *testing.T) {
	l, clock := newTestLimiter(5, 10*time.Second)

	for n := 0; n < 5; n++ {
		l.Wait()
	}
	// The sixth call sleeps exactly one window, landing on the boundary
	// of the first five timestamps. Those must count as expired.
	l.Wait()

	if got := len(l.calls); got != 1 {
		t.Fatalf("calls in window = %d, want 1 after a full window elapsed", got)
	}

	// Four more requests fit in the fresh window without sleeping.
	for n := 0; n < 4; n++ {
		l.Wait()
	}
	if len(clock.slept) != 1 {
		t.Errorf("slept %d times, want 1", len(clock.slept))
	}
}

func TestLimiterDefaults(t *testing.T) {
	l := NewLimiter(0, 0)
	if l.max != 5 || l.window != 10*time.Second {
		t.Errorf("defaults = %d/%v, want 5/10s", l.max, l.window)
	}
}
