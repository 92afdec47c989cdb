// Package orchestrator drives one document submission at a time: it uploads
// the document, polls the backend until the job settles, and routes chat
// about the result. All state lives on a single event loop.
package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/user/docchat/internal/chat"
	"github.com/user/docchat/internal/loop"
	"github.com/user/docchat/internal/notify"
	"github.com/user/docchat/internal/poller"
	"github.com/user/docchat/internal/riddle"
	"github.com/user/docchat/internal/state"
	"github.com/user/docchat/internal/timer"
	"github.com/user/docchat/internal/types"
	"github.com/user/docchat/pkg/backend"
)

const (
	DefaultRejectError    = "Failed to start processing."
	DefaultTransportError = "Failed to connect to backend."
)

// ErrNoSession is returned by Send before the backend has accepted a
// submission.
var ErrNoSession = errors.New("no active session")

// ErrClosed is returned after Close.
var ErrClosed = errors.New("orchestrator closed")

// Backend is the subset of the backend client the orchestrator uses.
type Backend interface {
	ProcessContent(ctx context.Context, req backend.ProcessRequest) (*backend.ProcessResponse, error)
	poller.Source
	chat.Responder
}

// Submission is a document to process. File and URL are passed through to
// the backend as given; either may be empty.
type Submission struct {
	File *backend.File
	URL  string
}

// Timings configures every timer the orchestrator owns. Zero values fall
// back to the package defaults of each component.
type Timings struct {
	PollInterval time.Duration
	SlowUpload   time.Duration
	RiddleDelay  time.Duration
	ReplyDelay   time.Duration
}

// Option configures an Orchestrator.
type Option func(*options)

type options struct {
	timings Timings
	widget  riddle.Widget
}

// WithTimings overrides the timer durations.
func WithTimings(t Timings) Option {
	return func(o *options) { o.timings = t }
}

// WithWidget attaches the widget shown while the user waits.
func WithWidget(w riddle.Widget) Option {
	return func(o *options) { o.widget = w }
}

// Orchestrator owns the session and every component that mutates it.
// Public methods are safe for concurrent use.
type Orchestrator struct {
	loop    *loop.Loop
	timers  *timer.Scheduler
	backend Backend
	session *state.Session

	poller   *poller.Poller
	notifier *notify.SlowUpload
	gate     *riddle.Gate
	chat     *chat.Dispatcher

	ctx       context.Context
	cancel    context.CancelFunc
	subCtx    context.Context
	subCancel context.CancelFunc
	muted     bool
	closing   bool

	mu        sync.Mutex
	last      state.Snapshot
	listeners map[int]func(state.Snapshot)
	nextID    int
	closed    bool
}

// New creates an idle Orchestrator talking to b. Call Close when done.
func New(b Backend, opts ...Option) *Orchestrator {
	var cfg options
	for _, opt := range opts {
		opt(&cfg)
	}

	o := &Orchestrator{
		loop:      loop.New(),
		backend:   b,
		session:   state.NewSession(),
		listeners: make(map[int]func(state.Snapshot)),
	}
	o.ctx, o.cancel = context.WithCancel(context.Background())
	o.subCtx, o.subCancel = context.WithCancel(o.ctx)
	o.timers = timer.New(o.loop.Post)

	o.poller = poller.New(o.loop, o.timers, b, o.session, cfg.timings.PollInterval, o.changed)
	o.notifier = notify.New(o.timers, cfg.timings.SlowUpload, func(slow bool) {
		o.session.SetSlowUpload(slow)
		o.changed()
	})
	o.gate = riddle.NewGate(o.timers, cfg.timings.RiddleDelay, cfg.widget, func(visible bool) {
		o.session.SetRiddleVisible(visible)
		o.emit()
	})
	o.chat = chat.New(o.loop, o.timers, b, o.session, cfg.timings.ReplyDelay, o.changed)

	o.last = o.session.Snapshot()
	return o
}

// Submit starts processing sub, superseding any previous submission. It
// returns immediately; progress is reported through Subscribe and Snapshot.
func (o *Orchestrator) Submit(sub Submission) (types.SubmissionID, error) {
	if o.isClosed() {
		return "", ErrClosed
	}
	id := types.NewSubmissionID()
	if !o.loop.Post(func() { o.submit(id, sub) }) {
		return "", ErrClosed
	}
	return id, nil
}

// Send asks a question about the processed document.
func (o *Orchestrator) Send(query string) error {
	if o.isClosed() {
		return ErrClosed
	}
	if !o.Snapshot().HasSession() {
		return ErrNoSession
	}
	ok := o.loop.Post(func() {
		if o.session.ID().Empty() {
			slog.Warn("dropping chat message without a session")
			return
		}
		o.chat.Send(o.subCtx, query)
	})
	if !ok {
		return ErrClosed
	}
	return nil
}

// Reset discards the current submission and conversation.
func (o *Orchestrator) Reset() {
	o.loop.Post(func() {
		o.reset()
		o.changed()
	})
}

// Snapshot returns the most recently published state.
func (o *Orchestrator) Snapshot() state.Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.last
}

// Subscribe registers fn to receive every new Snapshot. fn runs on the event
// loop and must not block. The returned function unsubscribes.
func (o *Orchestrator) Subscribe(fn func(state.Snapshot)) func() {
	o.mu.Lock()
	defer o.mu.Unlock()
	id := o.nextID
	o.nextID++
	o.listeners[id] = fn
	return func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		delete(o.listeners, id)
	}
}

// Close cancels every timer and in-flight request and stops the loop.
// Responses still arriving afterwards are discarded.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.closed = true
	o.mu.Unlock()

	o.loop.Call(func() {
		o.closing = true
		o.reset()
	})
	o.cancel()
	o.timers.Stop()
	o.loop.Close()
}

func (o *Orchestrator) submit(id types.SubmissionID, sub Submission) {
	o.reset()
	gen := o.session.Begin(id)
	ctx := o.subCtx
	o.notifier.Arm()
	o.changed()

	req := backend.ProcessRequest{File: sub.File, URL: sub.URL}
	slog.Info("submitting document", "submission_id", id, "url", sub.URL, "file", fileName(sub.File))

	loop.Await(o.loop, func() (*backend.ProcessResponse, error) {
		return o.backend.ProcessContent(ctx, req)
	}, func(resp *backend.ProcessResponse, err error) {
		if gen != o.session.Generation() {
			slog.Debug("dropping response for superseded submission", "submission_id", id)
			return
		}
		// The gate sees the settled status and the cleared slow flag together,
		// so an accepted upload keeps a visible riddle up.
		o.muted = true
		o.settle(ctx, resp, err)
		o.notifier.Disarm()
		o.muted = false
		o.changed()
	})
}

func (o *Orchestrator) settle(ctx context.Context, resp *backend.ProcessResponse, err error) {
	id := o.session.Submission()
	if err != nil {
		slog.Error("submission failed", "submission_id", id, "kind", state.TransportFailure, "error", err)
		o.fail(state.TransportFailure, DefaultTransportError)
		return
	}
	if !resp.Success || resp.SessionID == "" {
		msg := resp.Message
		if msg == "" {
			msg = DefaultRejectError
		}
		slog.Warn("submission rejected", "submission_id", id, "kind", state.SubmissionRejected, "message", msg)
		o.fail(state.SubmissionRejected, msg)
		return
	}

	sessionID := types.SessionID(resp.SessionID)
	if err := o.session.Accept(sessionID); err != nil {
		slog.Error("accept session", "submission_id", id, "session_id", sessionID, "error", err)
		return
	}
	slog.Info("processing started", "submission_id", id, "session_id", sessionID)
	o.poller.Start(ctx, sessionID)
}

func (o *Orchestrator) fail(kind state.ErrorKind, msg string) {
	if err := o.session.Fail(kind, msg); err != nil {
		slog.Error("record failure", "kind", kind, "error", err)
	}
}

// reset stops everything tied to the current submission and starts a fresh
// request context for the next one.
func (o *Orchestrator) reset() {
	o.muted = true
	defer func() { o.muted = false }()

	o.subCancel()
	o.subCtx, o.subCancel = context.WithCancel(o.ctx)
	o.poller.Stop()
	o.notifier.Disarm()
	o.gate.Stop()
	o.chat.Reset()
	o.session.Reset()
}

// changed re-evaluates the riddle gate and publishes a snapshot.
func (o *Orchestrator) changed() {
	o.gate.Update(o.session.SlowUpload() || o.session.Status() == state.StatusProcessing)
	o.emit()
}

func (o *Orchestrator) emit() {
	if o.muted || o.closing {
		return
	}
	snap := o.session.Snapshot()
	snap.ChatPending = o.chat.Pending()

	o.mu.Lock()
	o.last = snap
	listeners := make([]func(state.Snapshot), 0, len(o.listeners))
	for _, fn := range o.listeners {
		listeners = append(listeners, fn)
	}
	o.mu.Unlock()

	for _, fn := range listeners {
		fn(snap)
	}
}

func (o *Orchestrator) isClosed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.closed
}

func fileName(f *backend.File) string {
	if f == nil {
		return ""
	}
	return f.Name
}
