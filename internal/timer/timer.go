// Package timer provides cancelable one-shot and repeating callbacks that are
// delivered on an event loop.
package timer

import (
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// PostFunc hands a callback to the execution context timers fire on. It
// reports false when the context no longer accepts work.
type PostFunc func(fn func()) bool

// Handle identifies one scheduled callback. The zero value and nil are both
// valid, already-finished handles.
type Handle struct {
	mu     sync.Mutex
	done   bool
	repeat bool
	stop   func()
	owner  *Scheduler
}

// Cancel stops the callback from running again. It is idempotent and safe on
// handles that have already fired or been canceled.
func (h *Handle) Cancel() {
	if h == nil {
		return
	}
	h.mu.Lock()
	if h.done {
		h.mu.Unlock()
		return
	}
	h.done = true
	stop := h.stop
	h.mu.Unlock()

	if stop != nil {
		stop()
	}
	if h.owner != nil {
		h.owner.forget(h)
	}
}

// Active reports whether the callback may still run.
func (h *Handle) Active() bool {
	if h == nil {
		return false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return !h.done
}

func (h *Handle) setStop(stop func()) {
	h.mu.Lock()
	if h.done {
		h.mu.Unlock()
		stop()
		return
	}
	h.stop = stop
	h.mu.Unlock()
}

// claim is called on the loop right before the callback runs. One-shot
// handles are consumed by a successful claim.
func (h *Handle) claim() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.done {
		return false
	}
	if !h.repeat {
		h.done = true
	}
	return true
}

// Scheduler creates timers whose callbacks run through post. Repeating timers
// share one cron runner.
type Scheduler struct {
	post PostFunc
	cron *cron.Cron

	mu      sync.Mutex
	live    map[*Handle]struct{}
	stopped bool
}

// New creates a Scheduler and starts its cron runner.
func New(post PostFunc) *Scheduler {
	s := &Scheduler{
		post: post,
		cron: cron.New(cron.WithLogger(cronLogger{})),
		live: make(map[*Handle]struct{}),
	}
	s.cron.Start()
	return s
}

// Once runs fn after delay.
func (s *Scheduler) Once(delay time.Duration, fn func()) *Handle {
	h := s.track(false)
	if h == nil {
		return &Handle{done: true}
	}
	t := time.AfterFunc(delay, func() {
		s.post(func() {
			if h.claim() {
				s.forget(h)
				fn()
			}
		})
	})
	h.setStop(func() { t.Stop() })
	return h
}

// Every runs fn each interval until the handle is canceled. The first run
// happens one interval from now.
func (s *Scheduler) Every(interval time.Duration, fn func()) *Handle {
	h := s.track(true)
	if h == nil {
		return &Handle{done: true}
	}
	if interval <= 0 {
		interval = time.Millisecond
	}
	id := s.cron.Schedule(fixedInterval(interval), cron.FuncJob(func() {
		s.post(func() {
			if h.claim() {
				fn()
			}
		})
	}))
	h.setStop(func() { s.cron.Remove(id) })
	return h
}

// Active returns the number of timers that may still fire.
func (s *Scheduler) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.live)
}

// Stop cancels every outstanding timer and shuts the cron runner down.
// Timers requested afterwards are returned already canceled.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	handles := make([]*Handle, 0, len(s.live))
	for h := range s.live {
		handles = append(handles, h)
	}
	s.mu.Unlock()

	for _, h := range handles {
		h.Cancel()
	}
	<-s.cron.Stop().Done()
}

func (s *Scheduler) track(repeat bool) *Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return nil
	}
	h := &Handle{repeat: repeat, owner: s}
	s.live[h] = struct{}{}
	return h
}

func (s *Scheduler) forget(h *Handle) {
	s.mu.Lock()
	delete(s.live, h)
	s.mu.Unlock()
}

// fixedInterval is a cron.Schedule that fires every d, measured from the
// previous activation. Unlike cron.Every it keeps sub-second precision.
type fixedInterval time.Duration

func (d fixedInterval) Next(t time.Time) time.Time {
	return t.Add(time.Duration(d))
}

// cronLogger routes cron's internal logging to slog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	slog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	slog.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
