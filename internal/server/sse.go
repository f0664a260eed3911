package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/jonathan/recruiter-agent/internal/types"
)

// eventStream writes server-sent events for one /process/stream request.
// Observers call send from stage goroutines, so writes are serialized.
type eventStream struct {
	mu   sync.Mutex
	w    http.ResponseWriter
	rc   *http.ResponseController
	next int
}

// openStream commits the response as text/event-stream. It fails before
// anything is written when the connection cannot be flushed.
func openStream(w http.ResponseWriter) (*eventStream, error) {
	rc := http.NewResponseController(w)

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		return nil, fmt.Errorf("response does not support streaming: %w", err)
	}
	return &eventStream{w: w, rc: rc}, nil
}

// send writes one numbered event with a JSON payload.
func (s *eventStream) send(event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", event, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	if _, err := fmt.Fprintf(s.w, "id: %d\nevent: %s\ndata: %s\n\n", s.next, event, data); err != nil {
		return err
	}
	return s.rc.Flush()
}

// finish sends the closing "complete" event for doc.
func (s *eventStream) finish(doc *types.Document) error {
	return s.send("complete", map[string]string{
		"run_id": doc.RunID,
		"status": doc.Status,
	})
}
