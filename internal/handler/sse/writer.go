// Package sse writes session events in Server-Sent Events wire format.
package sse

import (
	"fmt"
	"net/http"

	"tavern/internal/domain/models/game"
)

// Writer streams session events to one HTTP client.
type Writer struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// NewWriter prepares the response for event streaming. Returns an error if
// the ResponseWriter cannot flush, which SSE requires.
func NewWriter(w http.ResponseWriter) (*Writer, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("response writer does not support streaming")
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no") // disable nginx buffering
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	return &Writer{w: w, flusher: flusher}, nil
}

// WriteEvent writes one session event and flushes.
func (s *Writer) WriteEvent(ev game.SessionEvent) error {
	wire, err := ev.FormatSSE()
	if err != nil {
		return err
	}
	if _, err := fmt.Fprint(s.w, wire); err != nil {
		return fmt.Errorf("write event failed: %w", err)
	}
	s.flusher.Flush()
	return nil
}

// WriteKeepAlive writes an SSE comment line and flushes. Lines starting
// with a colon are ignored by clients.
func (s *Writer) WriteKeepAlive() error {
	if _, err := fmt.Fprint(s.w, ": keepalive\n\n"); err != nil {
		return fmt.Errorf("write keepalive failed: %w", err)
	}
	s.flusher.Flush()
	return nil
}
