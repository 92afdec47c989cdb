// Package poller repeatedly queries a processing job until it reaches a
// terminal status.
package poller

import (
	"context"
	"log/slog"
	"time"

	"github.com/user/docchat/internal/loop"
	"github.com/user/docchat/internal/state"
	"github.com/user/docchat/internal/timer"
	"github.com/user/docchat/internal/types"
	"github.com/user/docchat/pkg/backend"
)

const DefaultInterval = 3 * time.Second

const (
	CompletionGreeting = "I've summarized the document. What would you like to know?"
	DoneProgress       = "All done!"
	DefaultJobError    = "An error occurred during processing."
	ConnectivityError  = "Could not connect to backend."
)

// Source fetches the status of a job.
type Source interface {
	Status(ctx context.Context, sessionID string) (*backend.StatusResponse, error)
}

// Poller owns the poll-tick timer for one session at a time. All methods
// must be called on the loop.
type Poller struct {
	loop     *loop.Loop
	timers   *timer.Scheduler
	source   Source
	session  *state.Session
	interval time.Duration
	onChange func()

	ctx      context.Context
	id       types.SessionID
	handle   *timer.Handle
	inFlight bool
	run      uint64
}

// New creates a Poller that writes into session and calls onChange after
// every tick that modified it.
func New(l *loop.Loop, timers *timer.Scheduler, source Source, session *state.Session, interval time.Duration, onChange func()) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if onChange == nil {
		onChange = func() {}
	}
	return &Poller{
		loop:     l,
		timers:   timers,
		source:   source,
		session:  session,
		interval: interval,
		onChange: onChange,
	}
}

// Start begins polling id, stopping any poll already running.
func (p *Poller) Start(ctx context.Context, id types.SessionID) {
	p.Stop()
	p.ctx = ctx
	p.id = id
	p.handle = p.timers.Every(p.interval, p.tick)
	slog.Debug("status polling started", "session_id", id, "interval", p.interval)
}

// Stop cancels the poll timer. A response still in flight is discarded when
// it arrives.
func (p *Poller) Stop() {
	if p.handle.Active() {
		slog.Debug("status polling stopped", "session_id", p.id)
	}
	p.handle.Cancel()
	p.handle = nil
	p.inFlight = false
	p.run++
}

// Active reports whether a poll timer is running.
func (p *Poller) Active() bool {
	return p.handle.Active()
}

func (p *Poller) tick() {
	if p.inFlight {
		slog.Debug("status request outstanding, skipping tick", "session_id", p.id)
		return
	}
	p.inFlight = true

	run, id, ctx := p.run, p.id, p.ctx
	loop.Await(p.loop, func() (*backend.StatusResponse, error) {
		return p.source.Status(ctx, string(id))
	}, func(resp *backend.StatusResponse, err error) {
		if run != p.run {
			return
		}
		p.inFlight = false
		p.apply(resp, err)
	})
}

func (p *Poller) apply(resp *backend.StatusResponse, err error) {
	defer p.onChange()

	if err != nil {
		slog.Warn("status poll failed", "session_id", p.id, "kind", state.TransportFailure, "error", err)
		p.Stop()
		p.fail(state.TransportFailure, ConnectivityError)
		return
	}

	if resp.Progress != "" {
		p.session.SetProgress(resp.Progress)
	}

	switch {
	case resp.Status == backend.StatusComplete:
		p.Stop()
		if err := p.session.Complete(resp.Summary, resp.SuggestedQuestions, resp.OCRMeta, CompletionGreeting); err != nil {
			slog.Error("apply completion", "session_id", p.id, "error", err)
			return
		}
		p.session.SetProgress(DoneProgress)
		slog.Info("processing complete", "session_id", p.id, "questions", len(resp.SuggestedQuestions))
	case resp.Status == backend.StatusError, resp.Rejected():
		msg := resp.Message
		if msg == "" {
			msg = DefaultJobError
		}
		slog.Warn("processing failed", "session_id", p.id, "kind", state.JobFailed, "message", msg)
		p.Stop()
		p.fail(state.JobFailed, msg)
	}
}

func (p *Poller) fail(kind state.ErrorKind, msg string) {
	if err := p.session.Fail(kind, msg); err != nil {
		slog.Error("record poll failure", "session_id", p.id, "error", err)
	}
}
