package state

import "errors"

// Status is the lifecycle stage of the current submission.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusUploading  Status = "uploading"
	StatusProcessing Status = "processing"
	StatusComplete   Status = "complete"
	StatusError      Status = "error"
)

// ErrInvalidTransition is returned when a status change is not allowed by
// the lifecycle table.
var ErrInvalidTransition = errors.New("invalid status transition")

// Terminal reports whether polling stops for good in this status.
func (s Status) Terminal() bool {
	switch s {
	case StatusComplete, StatusError:
		return true
	case StatusIdle, StatusUploading, StatusProcessing:
		return false
	}
	return false
}

// CanTransition reports whether next may directly follow s. Leaving a
// terminal status is only possible through a reset back to idle.
func (s Status) CanTransition(next Status) bool {
	switch s {
	case StatusIdle:
		return next == StatusUploading
	case StatusUploading:
		return next == StatusProcessing || next == StatusError
	case StatusProcessing:
		return next == StatusComplete || next == StatusError
	case StatusComplete, StatusError:
		return false
	}
	return false
}

// ErrorKind classifies the failure behind LastError.
type ErrorKind string

const (
	ErrorNone            ErrorKind = ""
	SubmissionRejected   ErrorKind = "submission_rejected"
	TransportFailure     ErrorKind = "transport_failure"
	JobFailed            ErrorKind = "job_failed"
	ChatRejected         ErrorKind = "chat_rejected"
	ChatTransportFailure ErrorKind = "chat_transport_failure"
)
