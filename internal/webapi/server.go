// internal/webapi/server.go
package webapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/user/docchat/internal/orchestrator"
	"github.com/user/docchat/internal/state"
	"github.com/user/docchat/internal/types"
	"github.com/user/docchat/pkg/backend"
)

// MaxUploadBytes bounds the size of a document accepted by POST /api/submit.
const MaxUploadBytes = 64 << 20

// Driver is the orchestrator surface the server exposes.
type Driver interface {
	Submit(sub orchestrator.Submission) (types.SubmissionID, error)
	Send(query string) error
	Snapshot() state.Snapshot
	Subscribe(fn func(state.Snapshot)) func()
}

// Server is a lightweight HTTP handler that lets a browser drive one
// orchestrator.
type Server struct {
	driver Driver
	mux    *http.ServeMux
}

// NewServer creates a Server backed by driver.
func NewServer(driver Driver) *Server {
	s := &Server{
		driver: driver,
		mux:    http.NewServeMux(),
	}
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/state", s.handleState)
	s.mux.HandleFunc("POST /api/submit", s.handleSubmit)
	s.mux.HandleFunc("POST /api/chat", s.handleChat)
	s.mux.HandleFunc("GET /api/events", s.handleEvents)
	return s
}

// ServeHTTP delegates to the internal mux, implementing http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.driver.Snapshot())
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes)
	switch err := r.ParseMultipartForm(8 << 20); {
	case errors.Is(err, http.ErrNotMultipart):
		if err := r.ParseForm(); err != nil {
			http.Error(w, `{"error":"invalid form"}`, http.StatusBadRequest)
			return
		}
	case err != nil:
		http.Error(w, `{"error":"invalid multipart form"}`, http.StatusBadRequest)
		return
	default:
		defer r.MultipartForm.RemoveAll()
	}

	var sub orchestrator.Submission
	sub.URL = r.FormValue("url")

	if r.MultipartForm != nil {
		file, err := readUpload(r)
		if err != nil {
			http.Error(w, `{"error":"could not read file"}`, http.StatusBadRequest)
			return
		}
		sub.File = file
	}

	if sub.File == nil && strings.TrimSpace(sub.URL) == "" {
		http.Error(w, `{"error":"file or url is required"}`, http.StatusBadRequest)
		return
	}

	id, err := s.driver.Submit(sub)
	if err != nil {
		slog.Error("submit failed", "error", err)
		http.Error(w, `{"error":"service unavailable"}`, http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"submission_id": string(id)})
}

// readUpload buffers the "file" field in memory. Form temp files are removed
// when the handler returns, before the upload runs.
func readUpload(r *http.Request) (*backend.File, error) {
	f, header, err := r.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	return &backend.File{Name: header.Filename, Content: bytes.NewReader(data)}, nil
}

// chatRequest is the JSON body for POST /api/chat.
type chatRequest struct {
	Question string `json:"question"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		http.Error(w, `{"error":"question is required"}`, http.StatusBadRequest)
		return
	}

	switch err := s.driver.Send(req.Question); {
	case errors.Is(err, orchestrator.ErrNoSession):
		http.Error(w, `{"error":"no document has been accepted yet"}`, http.StatusConflict)
	case err != nil:
		slog.Error("chat failed", "error", err)
		http.Error(w, `{"error":"service unavailable"}`, http.StatusServiceUnavailable)
	default:
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
	}
}

// handleEvents streams snapshots as server-sent events. Slow clients only
// ever see the latest snapshot.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, `{"error":"streaming unsupported"}`, http.StatusInternalServerError)
		return
	}

	updates := make(chan state.Snapshot, 1)
	unsubscribe := s.driver.Subscribe(func(snap state.Snapshot) {
		select {
		case updates <- snap:
			return
		default:
		}
		select {
		case <-updates:
		default:
		}
		select {
		case updates <- snap:
		default:
		}
	})
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if err := writeEvent(w, s.driver.Snapshot()); err != nil {
		return
	}
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case snap := <-updates:
			if err := writeEvent(w, snap); err != nil {
				slog.Debug("event stream closed", "error", err)
				return
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w io.Writer, snap state.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: snapshot\ndata: %s\n\n", data)
	return err
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
