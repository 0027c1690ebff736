package relay

import (
	"fmt"
	"net/http"

	"github.com/b08x/sift-toolbox-report-builder-sub001/pkg/types"
)

// FrameWriter writes stream frames as Server-Sent Events. Every frame is
// flushed individually; perceived latency depends on it.
type FrameWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	rc      *http.ResponseController
}

// NewFrameWriter wraps w for SSE emission. Fails when the writer cannot
// stream.
func NewFrameWriter(w http.ResponseWriter) (*FrameWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming not supported")
	}
	return &FrameWriter{w: w, flusher: flusher, rc: http.NewResponseController(w)}, nil
}

// Prepare sets the SSE response headers and flushes them so the client sees
// the stream open before the first frame.
func (fw *FrameWriter) Prepare() {
	h := fw.w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no") // disable nginx buffering

	fw.w.WriteHeader(http.StatusOK)
	fw.Flush()
}

// WriteFrame writes one frame and flushes it. Content frames (delta,
// snapshot) go out untagged; their payload shape identifies them. All other
// kinds carry an event tag.
func (fw *FrameWriter) WriteFrame(frame types.StreamFrame) error {
	payload := frame.Payload
	if len(payload) == 0 {
		payload = []byte("{}")
	}

	var err error
	switch frame.Kind {
	case types.FrameDelta, types.FrameSnapshot:
		_, err = fmt.Fprintf(fw.w, "data: %s\n\n", payload)
	default:
		_, err = fmt.Fprintf(fw.w, "event: %s\ndata: %s\n\n", frame.Kind, payload)
	}
	if err != nil {
		return err
	}

	fw.Flush()
	return nil
}

// WriteHeartbeat writes an SSE comment to keep the connection alive.
func (fw *FrameWriter) WriteHeartbeat() {
	fmt.Fprint(fw.w, ": heartbeat\n\n")
	fw.Flush()
}

// Flush pushes buffered bytes to the client. ResponseController is more
// reliable through middleware wrappers; the plain Flusher is the fallback.
func (fw *FrameWriter) Flush() {
	if err := fw.rc.Flush(); err != nil {
		fw.flusher.Flush()
	}
}
