package state

import (
	"maps"
	"slices"

	"github.com/user/docchat/internal/types"
)

// Snapshot is an immutable copy of a Session handed to observers.
type Snapshot struct {
	SubmissionID       types.SubmissionID `json:"submission_id,omitempty"`
	SessionID          types.SessionID    `json:"session_id,omitempty"`
	Status             Status             `json:"status"`
	Progress           string             `json:"progress,omitempty"`
	Summary            string             `json:"summary,omitempty"`
	SuggestedQuestions []string           `json:"suggested_questions"`
	Metadata           map[string]any     `json:"metadata,omitempty"`
	LastError          string             `json:"last_error,omitempty"`
	LastErrorKind      ErrorKind          `json:"last_error_kind,omitempty"`
	Messages           []types.Message    `json:"messages"`
	SlowUpload         bool               `json:"slow_upload"`
	RiddleVisible      bool               `json:"riddle_visible"`
	ChatPending        int                `json:"chat_pending"`
}

// Snapshot copies the session. Slices and maps in the result are never
// shared with the session.
func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{
		SubmissionID:       s.submission,
		SessionID:          s.id,
		Status:             s.status,
		Progress:           s.progress,
		Summary:            s.summary,
		SuggestedQuestions: slices.Clone(s.questions),
		Metadata:           maps.Clone(s.metadata),
		LastError:          s.lastError,
		LastErrorKind:      s.errorKind,
		Messages:           slices.Clone(s.log),
		SlowUpload:         s.slowUpload,
		RiddleVisible:      s.riddleVisible,
	}
	if snap.SuggestedQuestions == nil {
		snap.SuggestedQuestions = []string{}
	}
	if snap.Messages == nil {
		snap.Messages = []types.Message{}
	}
	return snap
}

// HasSession reports whether the backend accepted the submission, which is
// the precondition for chatting.
func (s Snapshot) HasSession() bool {
	return !s.SessionID.Empty()
}

// Busy reports whether the submission is still in flight.
func (s Snapshot) Busy() bool {
	return s.Status == StatusUploading || s.Status == StatusProcessing
}

// IntMeta returns an integer counter from Metadata, such as "ocr_pages".
func (s Snapshot) IntMeta(key string) (int, bool) {
	switch v := s.Metadata[key].(type) {
	case int:
		return v, true
	case float64:
		return int(v), true
	}
	return 0, false
}
