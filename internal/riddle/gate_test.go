package riddle

import (
	"sync"
	"testing"
	"time"

	"github.com/user/docchat/internal/loop"
	"github.com/user/docchat/internal/timer"
)

const testDelay = 30 * time.Millisecond

type fakeWidget struct {
	mu    sync.Mutex
	shows int
	hides int
}

func (w *fakeWidget) Show() { w.mu.Lock(); w.shows++; w.mu.Unlock() }
func (w *fakeWidget) Hide() { w.mu.Lock(); w.hides++; w.mu.Unlock() }

func (w *fakeWidget) counts() (int, int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.shows, w.hides
}

func setup(t *testing.T) (*loop.Loop, *Gate, *fakeWidget, *[]bool) {
	t.Helper()
	l := loop.New()
	timers := timer.New(l.Post)
	t.Cleanup(func() {
		timers.Stop()
		l.Close()
	})
	widget := &fakeWidget{}
	var changes []bool
	g := NewGate(timers, testDelay, widget, func(v bool) { changes = append(changes, v) })
	return l, g, widget, &changes
}

func state(l *loop.Loop, g *Gate) State {
	var s State
	l.Call(func() { s = g.State() })
	return s
}

func TestGateRevealsAfterDelay(t *testing.T) {
	l, g, widget, _ := setup(t)
	l.Call(func() { g.Update(true) })

	if s := state(l, g); s != Pending {
		t.Fatalf("expected pending right after input rises, got %s", s)
	}
	time.Sleep(3 * testDelay)
	if s := state(l, g); s != Visible {
		t.Fatalf("expected visible after delay, got %s", s)
	}
	if shows, _ := widget.counts(); shows != 1 {
		t.Errorf("expected widget shown once, got %d", shows)
	}

	l.Call(func() { g.Update(false) })
	if s := state(l, g); s != Hidden {
		t.Errorf("expected immediate hide, got %s", s)
	}
	if _, hides := widget.counts(); hides != 1 {
		t.Errorf("expected widget hidden once, got %d", hides)
	}
}

func TestGateNeverShowsForShortInput(t *testing.T) {
	l, g, widget, changes := setup(t)
	l.Call(func() { g.Update(true) })
	time.Sleep(testDelay / 3)
	l.Call(func() { g.Update(false) })

	time.Sleep(3 * testDelay)
	if s := state(l, g); s != Hidden {
		t.Errorf("expected hidden, got %s", s)
	}
	var got []bool
	l.Call(func() { got = append(got, *changes...) })
	if len(got) != 0 {
		t.Errorf("expected visibility never to change, got %v", got)
	}
	if shows, hides := widget.counts(); shows != 0 || hides != 0 {
		t.Errorf("expected widget untouched, got shows=%d hides=%d", shows, hides)
	}
}

func TestGateRepeatedTrueDoesNotRestartDebounce(t *testing.T) {
	l, g, _, _ := setup(t)
	l.Call(func() { g.Update(true) })
	time.Sleep(testDelay / 2)
	l.Call(func() { g.Update(true) })
	time.Sleep(testDelay)

	if s := state(l, g); s != Visible {
		t.Errorf("expected visible once the original delay elapsed, got %s", s)
	}
}

func TestGateStop(t *testing.T) {
	l, g, _, changes := setup(t)
	l.Call(func() { g.Update(true) })
	time.Sleep(3 * testDelay)
	l.Call(g.Stop)

	if s := state(l, g); s != Hidden {
		t.Errorf("expected hidden after Stop, got %s", s)
	}
	var got []bool
	l.Call(func() { got = append(got, *changes...) })
	if len(got) != 2 || !got[0] || got[1] {
		t.Errorf("expected [true false], got %v", got)
	}

	// Input rising again after Stop arms a fresh debounce.
	l.Call(func() { g.Update(true) })
	if s := state(l, g); s != Pending {
		t.Errorf("expected pending after new input, got %s", s)
	}
}
