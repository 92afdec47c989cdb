// internal/state/session.go
package state

import (
	"fmt"
	"maps"
	"slices"

	"github.com/user/docchat/internal/types"
)

// Session holds the state of the current submission and its conversation.
// It is not safe for concurrent use; the orchestrator only touches it from
// the event loop.
type Session struct {
	submission types.SubmissionID
	id         types.SessionID
	status     Status
	progress   string
	summary    string
	questions  []string
	metadata   map[string]any
	lastError  string
	errorKind  ErrorKind
	log        []types.Message

	slowUpload    bool
	riddleVisible bool

	generation uint64
}

// NewSession returns an idle session.
func NewSession() *Session {
	return &Session{status: StatusIdle}
}

// Reset clears everything belonging to the previous submission and bumps
// the generation so that late continuations can recognise they are stale.
func (s *Session) Reset() {
	s.submission = ""
	s.id = ""
	s.status = StatusIdle
	s.progress = ""
	s.summary = ""
	s.questions = nil
	s.metadata = nil
	s.lastError = ""
	s.errorKind = ErrorNone
	s.log = nil
	s.slowUpload = false
	s.riddleVisible = false
	s.generation++
}

// Begin resets the session and moves it to uploading for a new submission.
// It returns the generation the submission runs under.
func (s *Session) Begin(submission types.SubmissionID) uint64 {
	s.Reset()
	s.submission = submission
	s.status = StatusUploading
	return s.generation
}

// Accept records the backend session id and starts processing.
func (s *Session) Accept(id types.SessionID) error {
	if id.Empty() {
		return fmt.Errorf("accept: empty session id")
	}
	if !s.id.Empty() {
		return fmt.Errorf("accept: session id already set to %s", s.id)
	}
	if err := s.transition(StatusProcessing); err != nil {
		return err
	}
	s.id = id
	return nil
}

// SetProgress overwrites the latest progress message.
func (s *Session) SetProgress(msg string) {
	s.progress = msg
}

// Complete stores the job result, moves to complete and seeds the
// conversation with greeting.
func (s *Session) Complete(summary string, questions []string, metadata map[string]any, greeting string) error {
	if err := s.transition(StatusComplete); err != nil {
		return err
	}
	s.summary = summary
	s.questions = slices.Clone(questions)
	if s.questions == nil {
		s.questions = []string{}
	}
	s.metadata = maps.Clone(metadata)
	if s.metadata == nil {
		s.metadata = map[string]any{}
	}
	s.log = append(s.log, types.AssistantMessage(greeting))
	return nil
}

// Fail moves the session to error and records msg.
func (s *Session) Fail(kind ErrorKind, msg string) error {
	if err := s.transition(StatusError); err != nil {
		return err
	}
	s.RecordError(kind, msg)
	return nil
}

// RecordError sets the user-visible error without touching the status.
func (s *Session) RecordError(kind ErrorKind, msg string) {
	s.lastError = msg
	s.errorKind = kind
}

func (s *Session) ClearError() {
	s.lastError = ""
	s.errorKind = ErrorNone
}

// Append adds msg to the end of the conversation log.
func (s *Session) Append(msg types.Message) {
	s.log = append(s.log, msg)
}

func (s *Session) SetSlowUpload(v bool)    { s.slowUpload = v }
func (s *Session) SetRiddleVisible(v bool) { s.riddleVisible = v }

func (s *Session) ID() types.SessionID            { return s.id }
func (s *Session) Submission() types.SubmissionID { return s.submission }
func (s *Session) Status() Status                 { return s.status }
func (s *Session) Progress() string               { return s.progress }
func (s *Session) LastError() string              { return s.lastError }
func (s *Session) ErrorKind() ErrorKind           { return s.errorKind }
func (s *Session) SlowUpload() bool               { return s.slowUpload }
func (s *Session) RiddleVisible() bool            { return s.riddleVisible }
func (s *Session) Generation() uint64             { return s.generation }
func (s *Session) Summary() string                { return s.summary }
func (s *Session) SuggestedQuestions() []string   { return slices.Clone(s.questions) }
func (s *Session) Log() []types.Message           { return slices.Clone(s.log) }
func (s *Session) LogLen() int                    { return len(s.log) }

func (s *Session) transition(next Status) error {
	if !s.status.CanTransition(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.status, next)
	}
	s.status = next
	return nil
}
