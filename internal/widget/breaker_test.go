package widget

import (
	"context"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/opd-ai/go-dockbar/internal/text"
)

// fakeClock is a clock whose sleeps return at once and advance it.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) after(d time.Duration) <-chan time.Time {
	c.now = c.now.Add(d)
	ch := make(chan time.Time, 1)
	ch <- c.now
	return ch
}

func TestBreakerStates(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	b := newBreaker(2, 10*time.Second)
	b.now = clock.Now

	steps := []struct {
		name      string
		advance   time.Duration
		fail      bool
		wantAllow bool
		wantOpen  bool
		wantState breakerState
	}{
		{"first failure", 0, true, true, false, breakerClosed},
		{"threshold reached", 0, true, true, true, breakerOpen},
		{"rejected while cooling down", 5 * time.Second, false, false, false, breakerOpen},
		{"trial run fails", 5 * time.Second, true, true, true, breakerOpen},
		{"rejected again", 9 * time.Second, false, false, false, breakerOpen},
		{"trial run succeeds", time.Second, false, true, false, breakerClosed},
		{"closed after success", 0, true, true, false, breakerClosed},
	}
	for _, st := range steps {
		clock.now = clock.now.Add(st.advance)
		allowed := b.allow()
		if allowed != st.wantAllow {
			t.Fatalf("%s: allow() = %v, want %v", st.name, allowed, st.wantAllow)
		}
		if allowed {
			var opened bool
			if st.fail {
				opened = b.failure()
			} else {
				b.success()
			}
			if opened != st.wantOpen {
				t.Errorf("%s: failure() opened = %v, want %v", st.name, opened, st.wantOpen)
			}
		}
		if b.state != st.wantState {
			t.Errorf("%s: state = %s, want %s", st.name, b.state, st.wantState)
		}
	}
}

func TestBreakerDefaults(t *testing.T) {
	b := newBreaker(0, 0)
	if b.threshold != DefaultFailureThreshold || b.cooldown != DefaultBreakerCooldown {
		t.Errorf("defaults = %d, %v", b.threshold, b.cooldown)
	}
	if got := breakerState(7).String(); got != "unknown" {
		t.Errorf("String() = %q", got)
	}
}

func TestCommandPausesWhileFailing(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	c := NewCommand(text.Attributes{}, "check-mail", 5*time.Second, nil)
	c.after = clock.after
	c.breaker.now = clock.Now

	runs := 0
	healthy := false
	c.run = func(context.Context, string) ([]byte, error) {
		runs++
		if healthy {
			return []byte("3 new"), nil
		}
		return nil, &exec.ExitError{ProcessState: &os.ProcessState{}}
	}

	ctx := context.Background()
	for i := 0; i < DefaultFailureThreshold; i++ {
		b, err := c.Next(ctx)
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		if textOf(b) != "error" {
			t.Errorf("failing run %d shows %q", i, textOf(b))
		}
	}
	openedAt := clock.now

	healthy = true
	b, err := c.Next(ctx)
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if textOf(b) != "3 new" {
		t.Errorf("trial run shows %q", textOf(b))
	}
	if runs != DefaultFailureThreshold+1 {
		t.Errorf("runs = %d, want %d", runs, DefaultFailureThreshold+1)
	}
	if paused := clock.now.Sub(openedAt); paused < DefaultBreakerCooldown {
		t.Errorf("paused for %v, want at least %v", paused, DefaultBreakerCooldown)
	}

	if _, err := c.Next(ctx); err != nil || runs != DefaultFailureThreshold+2 {
		t.Errorf("after recovery: runs = %d, err = %v", runs, err)
	}
}
