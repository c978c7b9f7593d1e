package stream

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

var ErrStreamUnsupported = errors.New("stream_not_supported")

// Open prepares w for a board or flow event stream. The retry hint tells
// EventSource clients how long to wait before reconnecting with
// Last-Event-ID; zero omits it.
func Open(w http.ResponseWriter, retry time.Duration) (http.Flusher, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, ErrStreamUnsupported
	}
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache, no-transform")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	h.Set("X-Content-Type-Options", "nosniff")
	if retry > 0 {
		if _, err := fmt.Fprintf(w, "retry: %d\n\n", retry.Milliseconds()); err != nil {
			return nil, err
		}
	}
	return flusher, nil
}
