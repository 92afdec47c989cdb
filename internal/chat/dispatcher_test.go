package chat

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/user/docchat/internal/loop"
	"github.com/user/docchat/internal/state"
	"github.com/user/docchat/internal/timer"
	"github.com/user/docchat/internal/types"
	"github.com/user/docchat/pkg/backend"
)

const testDelay = 20 * time.Millisecond

const greeting = "I've summarized the document. What would you like to know?"

type fakeResponder struct {
	mu       sync.Mutex
	requests []backend.ChatRequest
	resp     *backend.ChatResponse
	err      error
	release  chan struct{}
}

func (f *fakeResponder) Chat(ctx context.Context, req backend.ChatRequest) (*backend.ChatResponse, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	release := f.release
	f.mu.Unlock()

	if release != nil {
		<-release
	}
	return f.resp, f.err
}

func (f *fakeResponder) calls() []backend.ChatRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]backend.ChatRequest(nil), f.requests...)
}

type harness struct {
	loop       *loop.Loop
	timers     *timer.Scheduler
	session    *state.Session
	dispatcher *Dispatcher
}

func newHarness(t *testing.T, responder Responder) *harness {
	t.Helper()
	h := &harness{loop: loop.New(), session: state.NewSession()}
	h.timers = timer.New(h.loop.Post)
	h.dispatcher = New(h.loop, h.timers, responder, h.session, testDelay, nil)
	t.Cleanup(func() {
		h.timers.Stop()
		h.loop.Close()
	})

	var err error
	h.loop.Call(func() {
		h.session.Begin(types.NewSubmissionID())
		if err = h.session.Accept("abc"); err != nil {
			return
		}
		err = h.session.Complete("summary", nil, nil, greeting)
	})
	if err != nil {
		t.Fatal(err)
	}
	return h
}

func (h *harness) send(q string) {
	h.loop.Call(func() { h.dispatcher.Send(context.Background(), q) })
}

func (h *harness) snapshot() state.Snapshot {
	var snap state.Snapshot
	h.loop.Call(func() { snap = h.session.Snapshot() })
	return snap
}

func (h *harness) pending() int {
	var n int
	h.loop.Call(func() { n = h.dispatcher.Pending() })
	return n
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.After(timeout)
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()
	for {
		if cond() {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("condition not met within %s", timeout)
		case <-ticker.C:
		}
	}
}

func TestSendGreetingAnsweredLocally(t *testing.T) {
	responder := &fakeResponder{}
	h := newHarness(t, responder)

	h.send("hello")
	snap := h.snapshot()
	if len(snap.Messages) != 2 || snap.Messages[1] != types.UserMessage("hello") {
		t.Fatalf("expected user message appended immediately, got %v", snap.Messages)
	}
	if h.pending() != 1 {
		t.Errorf("expected one pending reply, got %d", h.pending())
	}

	waitFor(t, time.Second, func() bool { return len(h.snapshot().Messages) == 3 })

	snap = h.snapshot()
	if snap.Messages[2] != types.AssistantMessage(GreetingReply) {
		t.Errorf("expected greeting reply, got %v", snap.Messages[2])
	}
	if len(responder.calls()) != 0 {
		t.Error("expected no backend call for a greeting")
	}
	if h.pending() != 0 {
		t.Errorf("expected nothing pending, got %d", h.pending())
	}
}

func TestSendFarewellAnsweredLocally(t *testing.T) {
	responder := &fakeResponder{}
	h := newHarness(t, responder)

	h.send("See Ya")
	waitFor(t, time.Second, func() bool { return len(h.snapshot().Messages) == 3 })

	if got := h.snapshot().Messages[2]; got != types.AssistantMessage(FarewellReply) {
		t.Errorf("expected farewell reply, got %v", got)
	}
	if len(responder.calls()) != 0 {
		t.Error("expected no backend call for a farewell")
	}
}

func TestSendRemote(t *testing.T) {
	responder := &fakeResponder{resp: &backend.ChatResponse{Success: true, Answer: "42"}}
	h := newHarness(t, responder)

	h.send("What is the total?")
	waitFor(t, time.Second, func() bool { return len(h.snapshot().Messages) == 3 })

	snap := h.snapshot()
	want := []types.Message{
		types.AssistantMessage(greeting),
		types.UserMessage("What is the total?"),
		types.AssistantMessage("42"),
	}
	for i := range want {
		if snap.Messages[i] != want[i] {
			t.Errorf("message %d: expected %v, got %v", i, want[i], snap.Messages[i])
		}
	}
	if snap.LastError != "" {
		t.Errorf("expected no error, got %q", snap.LastError)
	}

	calls := responder.calls()
	if len(calls) != 1 {
		t.Fatalf("expected one backend call, got %d", len(calls))
	}
	req := calls[0]
	if req.Question != "What is the total?" || req.SessionID != "abc" {
		t.Errorf("unexpected request: %+v", req)
	}
	if len(req.ChatHistory) != 1 || req.ChatHistory[0] != (backend.Message{Role: "assistant", Content: greeting}) {
		t.Errorf("expected history to hold only prior messages, got %v", req.ChatHistory)
	}
}

func TestSendFailures(t *testing.T) {
	tests := []struct {
		name      string
		resp      *backend.ChatResponse
		err       error
		wantReply string
		wantError string
		wantKind  state.ErrorKind
	}{
		{
			name:      "rejected with message",
			resp:      &backend.ChatResponse{Success: false, Message: "no context"},
			wantReply: FailureReply,
			wantError: "no context",
			wantKind:  state.ChatRejected,
		},
		{
			name:      "rejected without message",
			resp:      &backend.ChatResponse{Success: false},
			wantReply: FailureReply,
			wantError: DefaultChatError,
			wantKind:  state.ChatRejected,
		},
		{
			name:      "transport failure",
			err:       errors.New("connection refused"),
			wantReply: ConnectivityReply,
			wantError: ConnectivityError,
			wantKind:  state.ChatTransportFailure,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, &fakeResponder{resp: tt.resp, err: tt.err})

			h.send("Explain section 2")
			waitFor(t, time.Second, func() bool { return len(h.snapshot().Messages) == 3 })

			snap := h.snapshot()
			if snap.Messages[2] != types.AssistantMessage(tt.wantReply) {
				t.Errorf("expected reply %q, got %v", tt.wantReply, snap.Messages[2])
			}
			if snap.LastError != tt.wantError || snap.LastErrorKind != tt.wantKind {
				t.Errorf("expected error %q (%s), got %q (%s)", tt.wantError, tt.wantKind, snap.LastError, snap.LastErrorKind)
			}
			if snap.Status != state.StatusComplete {
				t.Errorf("chat failure must not change status, got %s", snap.Status)
			}
		})
	}
}

func TestSendClearsPreviousError(t *testing.T) {
	h := newHarness(t, &fakeResponder{resp: &backend.ChatResponse{Success: true, Answer: "ok"}})
	h.loop.Call(func() { h.session.RecordError(state.ChatRejected, "old") })

	h.send("again")
	if snap := h.snapshot(); snap.LastError != "" {
		t.Errorf("expected error cleared on send, got %q", snap.LastError)
	}
}

func TestSendIgnoresBlankQuery(t *testing.T) {
	responder := &fakeResponder{}
	h := newHarness(t, responder)

	h.send("   ")
	if n := len(h.snapshot().Messages); n != 1 {
		t.Errorf("expected log untouched, got %d messages", n)
	}
	if h.pending() != 0 || len(responder.calls()) != 0 {
		t.Error("expected blank query to be dropped")
	}
}

func TestResetDropsPendingReplies(t *testing.T) {
	responder := &fakeResponder{resp: &backend.ChatResponse{Success: true, Answer: "late"}, release: make(chan struct{})}
	h := newHarness(t, responder)

	h.send("hi")
	h.send("question")
	waitFor(t, time.Second, func() bool { return len(responder.calls()) == 1 })

	h.loop.Call(func() {
		h.dispatcher.Reset()
		h.session.Begin(types.NewSubmissionID())
	})
	close(responder.release)

	time.Sleep(5 * testDelay)
	if n := len(h.snapshot().Messages); n != 0 {
		t.Errorf("expected replies from the old submission to be dropped, got %d messages", n)
	}
	if h.pending() != 0 {
		t.Errorf("expected nothing pending after reset, got %d", h.pending())
	}
}
