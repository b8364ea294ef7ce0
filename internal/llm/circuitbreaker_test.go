package llm

import (
	"testing"
	"time"
)

func newTestBreaker(clock *fakeClock) *CircuitBreaker {
	cb := NewCircuitBreaker()
	cb.now = clock.Now
	return cb
}

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.t = c.t.Add(d)
}

func TestBreakerStartsClosed(t *testing.T) {
	cb := NewCircuitBreaker()
	if cb.State() != "closed" {
		t.Fatalf("expected closed, got %s", cb.State())
	}
	if !cb.Allow() {
		t.Fatal("closed breaker should allow calls")
	}
}

func TestBreakerOpensAfterThresholdFailures(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	cb := newTestBreaker(clock)

	for i := 0; i < 4; i++ {
		cb.RecordFailure()
	}
	if cb.State() != "closed" {
		t.Fatalf("expected closed after 4 failures, got %s", cb.State())
	}

	cb.RecordFailure()
	if cb.State() != "open" {
		t.Fatalf("expected open after 5 failures, got %s", cb.State())
	}
	if cb.Allow() {
		t.Fatal("open breaker should reject calls")
	}
}

func TestBreakerFailuresExpireOutsideWindow(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	cb := newTestBreaker(clock)

	for i := 0; i < 4; i++ {
		cb.RecordFailure()
	}
	clock.Advance(61 * time.Second)

	// The stale failures should have been forgotten, so this single
	// failure restarts the count.
	cb.RecordFailure()
	if cb.State() != "closed" {
		t.Fatalf("expected closed, got %s", cb.State())
	}
}

func TestBreakerHalfOpensAfterTimeout(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	cb := newTestBreaker(clock)

	for i := 0; i < 5; i++ {
		cb.RecordFailure()
	}
	if cb.Allow() {
		t.Fatal("should reject while open")
	}

	clock.Advance(30 * time.Second)
	if !cb.Allow() {
		t.Fatal("should allow a probe after the open timeout")
	}
	if cb.State() != "half_open" {
		t.Fatalf("expected half_open, got %s", cb.State())
	}
}

func TestBreakerClosesAfterSuccesses(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	cb := newTestBreaker(clock)

	for i := 0; i < 5; i++ {
		cb.RecordFailure()
	}
	clock.Advance(30 * time.Second)
	cb.Allow()

	cb.RecordSuccess()
	if cb.State() != "half_open" {
		t.Fatalf("expected half_open after one success, got %s", cb.State())
	}

	cb.RecordSuccess()
	if cb.State() != "closed" {
		t.Fatalf("expected closed after two successes, got %s", cb.State())
	}
}

func TestBreakerReopensOnHalfOpenFailure(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	cb := newTestBreaker(clock)

	for i := 0; i < 5; i++ {
		cb.RecordFailure()
	}
	clock.Advance(30 * time.Second)
	cb.Allow()

	cb.RecordFailure()
	if cb.State() != "open" {
		t.Fatalf("expected open after half-open failure, got %s", cb.State())
	}
	if cb.Allow() {
		t.Fatal("should reject immediately after reopening")
	}
}

func TestBreakerStateChangeCallback(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	cb := newTestBreaker(clock)

	var states []string
	cb.OnStateChange(func(s string) {
		states = append(states, s)
	})

	for i := 0; i < 5; i++ {
		cb.RecordFailure()
	}
	clock.Advance(30 * time.Second)
	cb.Allow()
	cb.RecordSuccess()
	cb.RecordSuccess()

	want := []string{"open", "half_open", "closed"}
	if len(states) != len(want) {
		t.Fatalf("expected transitions %v, got %v", want, states)
	}
	for i := range want {
		if states[i] != want[i] {
			t.Fatalf("expected transitions %v, got %v", want, states)
		}
	}
}
