package types

import (
	"encoding/json"
	"fmt"
)

// FrameKind tags one unit of the event stream protocol.
type FrameKind string

const (
	FrameStatus   FrameKind = "status"
	FrameDelta    FrameKind = "delta"
	FrameSnapshot FrameKind = "snapshot"
	FrameComplete FrameKind = "complete"
	FrameError    FrameKind = "error"
)

// Terminal reports whether the kind ends a stream.
func (k FrameKind) Terminal() bool {
	return k == FrameComplete || k == FrameError
}

// StreamFrame is the unit emitted by the stream relay. Frames are ordered;
// consumers must not reorder or coalesce across kinds.
type StreamFrame struct {
	Kind    FrameKind       `json:"kind"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Recognized payload shapes on the wire.
type (
	// DeltaPayload carries incremental content to append.
	DeltaPayload struct {
		Delta string `json:"delta"`
	}

	// SnapshotPayload carries a full replacement of the accumulated text.
	SnapshotPayload struct {
		TextChunk string `json:"text_chunk"`
	}

	// StatusPayload carries informational progress text.
	StatusPayload struct {
		Message string `json:"message"`
	}

	// ErrorFramePayload is a structured application error sent as data.
	// Producers may use either field; Message wins when both are set.
	ErrorFramePayload struct {
		Message string `json:"message,omitempty"`
		Error   string `json:"error,omitempty"`
	}
)

// Text returns the human-readable error text, whichever field carried it.
func (p ErrorFramePayload) Text() string {
	if p.Message != "" {
		return p.Message
	}
	return p.Error
}

// DeltaFrame builds a delta frame for s.
func DeltaFrame(s string) StreamFrame {
	return mustFrame(FrameDelta, DeltaPayload{Delta: s})
}

// SnapshotFrame builds a full-replacement frame for s.
func SnapshotFrame(s string) StreamFrame {
	return mustFrame(FrameSnapshot, SnapshotPayload{TextChunk: s})
}

// StatusFrame builds an informational status frame.
func StatusFrame(msg string) StreamFrame {
	return mustFrame(FrameStatus, StatusPayload{Message: msg})
}

// CompleteFrame builds the success terminal frame.
func CompleteFrame() StreamFrame {
	return StreamFrame{Kind: FrameComplete}
}

// ErrorFrame builds the failure terminal frame carrying msg as data.
func ErrorFrame(msg string) StreamFrame {
	return mustFrame(FrameError, ErrorFramePayload{Message: msg})
}

func mustFrame(kind FrameKind, payload any) StreamFrame {
	data, err := json.Marshal(payload)
	if err != nil {
		// All payload shapes above are trivially marshalable.
		panic(fmt.Sprintf("marshal %s payload: %v", kind, err))
	}
	return StreamFrame{Kind: kind, Payload: data}
}
