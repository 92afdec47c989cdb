// Package riddle decides when the distraction widget shown during long
// operations becomes visible.
package riddle

import (
	"time"

	"github.com/user/docchat/internal/timer"
)

const DefaultDelay = 2 * time.Second

// Widget is the distraction content. Its own content rotation is not
// managed here.
type Widget interface {
	Show()
	Hide()
}

// State of the gate. Pending is hidden with the debounce timer armed.
type State int

const (
	Hidden State = iota
	Pending
	Visible
)

func (s State) String() string {
	switch s {
	case Hidden:
		return "hidden"
	case Pending:
		return "pending"
	case Visible:
		return "visible"
	}
	return "unknown"
}

// Gate debounces its input: it becomes visible only after the input has
// stayed true for the full delay, and hides as soon as the input drops.
// Methods must be called on the loop.
type Gate struct {
	timers   *timer.Scheduler
	delay    time.Duration
	widget   Widget
	onChange func(visible bool)

	input   bool
	state   State
	pending *timer.Handle
}

// NewGate creates a hidden gate. widget and onChange may be nil.
func NewGate(timers *timer.Scheduler, delay time.Duration, widget Widget, onChange func(visible bool)) *Gate {
	if delay <= 0 {
		delay = DefaultDelay
	}
	if onChange == nil {
		onChange = func(bool) {}
	}
	return &Gate{timers: timers, delay: delay, widget: widget, onChange: onChange}
}

// Update feeds the current input condition into the gate.
func (g *Gate) Update(input bool) {
	if input == g.input {
		return
	}
	g.input = input

	if input {
		g.state = Pending
		g.pending = g.timers.Once(g.delay, g.reveal)
		return
	}
	g.pending.Cancel()
	g.pending = nil
	g.hide()
}

// Stop cancels a pending reveal and hides the widget.
func (g *Gate) Stop() {
	g.input = false
	g.pending.Cancel()
	g.pending = nil
	g.hide()
}

func (g *Gate) State() State  { return g.state }
func (g *Gate) Visible() bool { return g.state == Visible }

func (g *Gate) reveal() {
	g.pending = nil
	if !g.input {
		return
	}
	g.state = Visible
	if g.widget != nil {
		g.widget.Show()
	}
	g.onChange(true)
}

func (g *Gate) hide() {
	wasVisible := g.state == Visible
	g.state = Hidden
	if !wasVisible {
		return
	}
	if g.widget != nil {
		g.widget.Hide()
	}
	g.onChange(false)
}
