package backend

import "io"

// Message is one chat_history entry.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// File is a document uploaded as the multipart "file" field.
type File struct {
	Name    string
	Content io.Reader
}

// ProcessRequest starts a processing job. File and URL are both optional and
// are forwarded as given.
type ProcessRequest struct {
	File *File
	URL  string
}

// ProcessResponse is the body of POST /process-content/.
type ProcessResponse struct {
	Success   bool   `json:"success"`
	SessionID string `json:"session_id,omitempty"`
	Status    string `json:"status,omitempty"`
	Message   string `json:"message,omitempty"`
}

// Job statuses reported by GET /status/{id}.
const (
	StatusProcessing = "processing"
	StatusComplete   = "complete"
	StatusError      = "error"
)

// StatusResponse is the body of GET /status/{id}. Success is only sent by the
// backend on failures, so it is a pointer.
type StatusResponse struct {
	Success            *bool          `json:"success,omitempty"`
	Status             string         `json:"status,omitempty"`
	Progress           string         `json:"progress,omitempty"`
	Summary            string         `json:"summary,omitempty"`
	SuggestedQuestions []string       `json:"suggested_questions,omitempty"`
	OCRMeta            map[string]any `json:"ocr_meta,omitempty"`
	Message            string         `json:"message,omitempty"`
}

// Rejected reports whether the backend explicitly flagged the request as
// failed.
func (r *StatusResponse) Rejected() bool {
	return r.Success != nil && !*r.Success
}

// ChatRequest is the body of POST /chat/.
type ChatRequest struct {
	Question    string    `json:"question"`
	ChatHistory []Message `json:"chat_history"`
	SessionID   string    `json:"session_id"`
}

// ChatResponse is the body of POST /chat/.
type ChatResponse struct {
	Success bool   `json:"success"`
	Answer  string `json:"answer,omitempty"`
	Message string `json:"message,omitempty"`
}

// LLMCheckResponse is the body of GET /llm-check.
type LLMCheckResponse struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
	Sample  string `json:"sample,omitempty"`
}
