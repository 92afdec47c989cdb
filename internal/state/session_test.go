// internal/state/session_test.go
package state

import (
	"errors"
	"testing"

	"github.com/user/docchat/internal/types"
)

func TestSessionLifecycle(t *testing.T) {
	s := NewSession()
	if s.Status() != StatusIdle {
		t.Fatalf("expected idle, got %s", s.Status())
	}

	gen := s.Begin("sub-1")
	if s.Status() != StatusUploading {
		t.Fatalf("expected uploading, got %s", s.Status())
	}
	if gen != s.Generation() {
		t.Errorf("expected Begin to return current generation")
	}

	if err := s.Accept("abc"); err != nil {
		t.Fatal(err)
	}
	if s.ID() != "abc" || s.Status() != StatusProcessing {
		t.Fatalf("expected processing with id abc, got %s / %s", s.Status(), s.ID())
	}

	s.SetProgress("scanning pages")
	if s.Progress() != "scanning pages" {
		t.Errorf("expected progress to be overwritten, got %q", s.Progress())
	}

	meta := map[string]any{"ocr_pages": 2.0}
	if err := s.Complete("a summary", []string{"Q1"}, meta, "greeting"); err != nil {
		t.Fatal(err)
	}
	snap := s.Snapshot()
	if snap.Status != StatusComplete || snap.Summary != "a summary" {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if len(snap.SuggestedQuestions) != 1 || snap.SuggestedQuestions[0] != "Q1" {
		t.Errorf("expected [Q1], got %v", snap.SuggestedQuestions)
	}
	if len(snap.Messages) != 1 || snap.Messages[0] != types.AssistantMessage("greeting") {
		t.Errorf("expected single greeting, got %v", snap.Messages)
	}
	if n, ok := snap.IntMeta("ocr_pages"); !ok || n != 2 {
		t.Errorf("expected ocr_pages=2, got %d (%v)", n, ok)
	}

	// The snapshot must not alias session storage.
	meta["ocr_pages"] = 99.0
	snap.Messages[0].Content = "mutated"
	again := s.Snapshot()
	if again.Messages[0].Content != "greeting" {
		t.Error("snapshot shares message storage with the session")
	}
	if n, _ := again.IntMeta("ocr_pages"); n != 2 {
		t.Error("session shares metadata with the caller")
	}
}

func TestCompleteDefaultsEmptyCollections(t *testing.T) {
	s := NewSession()
	s.Begin("sub")
	if err := s.Accept("id"); err != nil {
		t.Fatal(err)
	}
	if err := s.Complete("summary", nil, nil, "hi"); err != nil {
		t.Fatal(err)
	}
	if s.SuggestedQuestions() == nil {
		t.Error("expected empty, non-nil suggested questions")
	}
	if snap := s.Snapshot(); snap.Metadata == nil {
		t.Error("expected empty, non-nil metadata")
	}
}

func TestSummaryOnlyWhenComplete(t *testing.T) {
	s := NewSession()
	s.Begin("sub")
	if err := s.Complete("too early", []string{"Q"}, nil, "hi"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	snap := s.Snapshot()
	if snap.Summary != "" || len(snap.SuggestedQuestions) != 0 || len(snap.Messages) != 0 {
		t.Errorf("rejected completion leaked data: %+v", snap)
	}
}

func TestAcceptKeepsSessionIDImmutable(t *testing.T) {
	s := NewSession()
	s.Begin("sub")
	if err := s.Accept(""); err == nil {
		t.Error("expected empty id to be rejected")
	}
	if err := s.Accept("first"); err != nil {
		t.Fatal(err)
	}
	if err := s.Accept("second"); err == nil {
		t.Error("expected second Accept to fail")
	}
	if s.ID() != "first" {
		t.Errorf("expected id to stay 'first', got %s", s.ID())
	}
}

func TestBeginResetsEverything(t *testing.T) {
	s := NewSession()
	first := s.Begin("sub-1")
	_ = s.Accept("abc")
	s.Append(types.UserMessage("hello"))
	s.RecordError(ChatRejected, "no context")
	s.SetSlowUpload(true)
	s.SetRiddleVisible(true)

	second := s.Begin("sub-2")
	if second == first {
		t.Error("expected a new generation")
	}
	snap := s.Snapshot()
	if snap.SessionID != "" || snap.LastError != "" || len(snap.Messages) != 0 {
		t.Errorf("expected clean session, got %+v", snap)
	}
	if snap.SlowUpload || snap.RiddleVisible {
		t.Error("expected flags to be cleared")
	}
	if snap.SubmissionID != "sub-2" || snap.Status != StatusUploading {
		t.Errorf("unexpected submission state: %+v", snap)
	}
}

func TestFailRecordsError(t *testing.T) {
	s := NewSession()
	s.Begin("sub")
	if err := s.Fail(SubmissionRejected, "nope"); err != nil {
		t.Fatal(err)
	}
	if s.Status() != StatusError || s.LastError() != "nope" || s.ErrorKind() != SubmissionRejected {
		t.Errorf("unexpected state: %s %q %s", s.Status(), s.LastError(), s.ErrorKind())
	}
	if err := s.Fail(JobFailed, "again"); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected error -> error to be invalid, got %v", err)
	}
	s.ClearError()
	if s.LastError() != "" || s.ErrorKind() != ErrorNone {
		t.Error("expected ClearError to clear both message and kind")
	}
}
