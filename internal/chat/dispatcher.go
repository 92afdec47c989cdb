// Package chat sends user questions about a processed document and appends
// the answers to the conversation log.
package chat

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/user/docchat/internal/loop"
	"github.com/user/docchat/internal/state"
	"github.com/user/docchat/internal/timer"
	"github.com/user/docchat/internal/types"
	"github.com/user/docchat/pkg/backend"
)

const DefaultReplyDelay = 500 * time.Millisecond

const (
	FailureReply      = "Sorry, I ran into an error."
	ConnectivityReply = "Sorry, I couldn't connect to the server."
	DefaultChatError  = "Chat failed."
	ConnectivityError = "Chat backend error."
)

// Responder answers remote chat requests.
type Responder interface {
	Chat(ctx context.Context, req backend.ChatRequest) (*backend.ChatResponse, error)
}

// Dispatcher handles one user query at a time against the current session.
// It does not serialize overlapping sends. Methods must be called on the
// loop.
type Dispatcher struct {
	loop      *loop.Loop
	timers    *timer.Scheduler
	responder Responder
	session   *state.Session
	delay     time.Duration
	onChange  func()

	replies map[*timer.Handle]struct{}
	pending int
}

// New creates a Dispatcher that appends to session's conversation log.
func New(l *loop.Loop, timers *timer.Scheduler, responder Responder, session *state.Session, delay time.Duration, onChange func()) *Dispatcher {
	if delay <= 0 {
		delay = DefaultReplyDelay
	}
	if onChange == nil {
		onChange = func() {}
	}
	return &Dispatcher{
		loop:      l,
		timers:    timers,
		responder: responder,
		session:   session,
		delay:     delay,
		onChange:  onChange,
		replies:   make(map[*timer.Handle]struct{}),
	}
}

// Send appends query as a user message and arranges for exactly one
// assistant reply. Blank queries are ignored. ctx bounds the remote call.
func (d *Dispatcher) Send(ctx context.Context, query string) {
	if strings.TrimSpace(query) == "" {
		return
	}

	history := d.session.Log()
	d.session.ClearError()
	d.session.Append(types.UserMessage(query))
	d.pending++
	d.onChange()

	if reply, ok := LocalReply(query); ok {
		d.replyLater(reply)
		return
	}

	gen := d.session.Generation()
	req := backend.ChatRequest{
		Question:    query,
		ChatHistory: toWire(history),
		SessionID:   string(d.session.ID()),
	}
	loop.Await(d.loop, func() (*backend.ChatResponse, error) {
		return d.responder.Chat(ctx, req)
	}, func(resp *backend.ChatResponse, err error) {
		if gen != d.session.Generation() {
			slog.Debug("dropping chat reply for superseded submission")
			return
		}
		d.pending--
		d.apply(resp, err)
	})
}

// Reset cancels local replies that have not been delivered yet and forgets
// outstanding remote calls. Their answers are dropped when they arrive.
func (d *Dispatcher) Reset() {
	for h := range d.replies {
		h.Cancel()
	}
	clear(d.replies)
	d.pending = 0
}

// Pending returns the number of sends still waiting for their reply.
func (d *Dispatcher) Pending() int {
	return d.pending
}

func (d *Dispatcher) Busy() bool {
	return d.pending > 0
}

func (d *Dispatcher) replyLater(reply string) {
	var h *timer.Handle
	h = d.timers.Once(d.delay, func() {
		delete(d.replies, h)
		d.pending--
		d.session.Append(types.AssistantMessage(reply))
		d.onChange()
	})
	d.replies[h] = struct{}{}
}

func (d *Dispatcher) apply(resp *backend.ChatResponse, err error) {
	defer d.onChange()

	if err != nil {
		slog.Warn("chat request failed", "session_id", d.session.ID(), "kind", state.ChatTransportFailure, "error", err)
		d.session.Append(types.AssistantMessage(ConnectivityReply))
		d.session.RecordError(state.ChatTransportFailure, ConnectivityError)
		return
	}
	if !resp.Success {
		msg := resp.Message
		if msg == "" {
			msg = DefaultChatError
		}
		slog.Warn("chat rejected", "session_id", d.session.ID(), "kind", state.ChatRejected, "message", msg)
		d.session.Append(types.AssistantMessage(FailureReply))
		d.session.RecordError(state.ChatRejected, msg)
		return
	}
	d.session.Append(types.AssistantMessage(resp.Answer))
}

func toWire(messages []types.Message) []backend.Message {
	out := make([]backend.Message, len(messages))
	for i, m := range messages {
		out[i] = backend.Message{Role: string(m.Role), Content: m.Content}
	}
	return out
}
