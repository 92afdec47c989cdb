// internal/types/ids.go
package types

import (
	"github.com/google/uuid"
)

// SessionID is the backend's opaque identifier for one processing job.
type SessionID string

// SubmissionID identifies one client-side submission. It is generated
// locally and never sent to the backend.
type SubmissionID string

func NewSubmissionID() SubmissionID {
	return SubmissionID(uuid.New().String())
}

func (id SessionID) Empty() bool {
	return id == ""
}
