// Package notify flags uploads that are taking unusually long.
package notify

import (
	"log/slog"
	"time"

	"github.com/user/docchat/internal/timer"
)

const DefaultSlowUploadDelay = 20 * time.Second

// SlowUpload owns the upload-slowness timer. The flag it maintains is purely
// informational; nothing is aborted when it fires. Methods must be called on
// the loop.
type SlowUpload struct {
	timers   *timer.Scheduler
	delay    time.Duration
	onChange func(slow bool)

	handle *timer.Handle
	slow   bool
}

// New creates a notifier that reports flag changes through onChange.
func New(timers *timer.Scheduler, delay time.Duration, onChange func(slow bool)) *SlowUpload {
	if delay <= 0 {
		delay = DefaultSlowUploadDelay
	}
	if onChange == nil {
		onChange = func(bool) {}
	}
	return &SlowUpload{timers: timers, delay: delay, onChange: onChange}
}

// Arm starts the timer for a new upload, replacing any previous one.
func (n *SlowUpload) Arm() {
	n.Disarm()
	n.handle = n.timers.Once(n.delay, func() {
		n.handle = nil
		slog.Info("upload is taking a while", "after", n.delay)
		n.set(true)
	})
}

// Disarm cancels the timer and clears the flag.
func (n *SlowUpload) Disarm() {
	n.handle.Cancel()
	n.handle = nil
	n.set(false)
}

func (n *SlowUpload) Slow() bool  { return n.slow }
func (n *SlowUpload) Armed() bool { return n.handle.Active() }

func (n *SlowUpload) set(slow bool) {
	if n.slow == slow {
		return
	}
	n.slow = slow
	n.onChange(slow)
}
