package client

import (
	"bufio"
	"encoding/json"
	"errors"
	"io"
	"strings"

	"github.com/b08x/sift-toolbox-report-builder-sub001/pkg/types"
)

// ErrUnknownFrame marks an SSE event that maps to no frame kind. Callers
// skip these; an unrecognized frame must never corrupt conversation state.
var ErrUnknownFrame = errors.New("client: unknown stream frame")

// FrameReader decodes server-sent events from a stream body into frames.
//
// Untagged events carry either a delta payload ({"delta": ...}) or a snapshot
// payload ({"text_chunk": ...}); the payload shape picks the kind. Tagged
// events carry their kind in the SSE event field.
type FrameReader struct {
	r *bufio.Reader
}

// NewFrameReader wraps the body of an open event stream.
func NewFrameReader(r io.Reader) *FrameReader {
	return &FrameReader{r: bufio.NewReader(r)}
}

// Next returns the next frame. It returns io.EOF when the stream ends and
// ErrUnknownFrame for events it cannot classify; the stream stays readable
// after an ErrUnknownFrame.
func (fr *FrameReader) Next() (types.StreamFrame, error) {
	var (
		eventType string
		data      strings.Builder
		sawData   bool
	)

	for {
		line, err := fr.r.ReadString('\n')
		if err != nil {
			if err == io.EOF && sawData {
				return decodeFrame(eventType, data.String())
			}
			return types.StreamFrame{}, err
		}

		line = strings.TrimRight(line, "\r\n")
		switch {
		case line == "":
			if !sawData {
				eventType = ""
				continue
			}
			return decodeFrame(eventType, data.String())
		case strings.HasPrefix(line, "event:"):
			eventType = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			if sawData {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
			sawData = true
		case strings.HasPrefix(line, ":"):
			// heartbeat comment
		}
	}
}

func decodeFrame(eventType, data string) (types.StreamFrame, error) {
	payload := json.RawMessage(data)

	switch eventType {
	case "":
		return classifyUntagged(payload)
	case string(types.FrameStatus):
		return types.StreamFrame{Kind: types.FrameStatus, Payload: payload}, nil
	case string(types.FrameComplete):
		return types.StreamFrame{Kind: types.FrameComplete, Payload: payload}, nil
	case string(types.FrameError):
		return types.StreamFrame{Kind: types.FrameError, Payload: payload}, nil
	default:
		return types.StreamFrame{}, ErrUnknownFrame
	}
}

// classifyUntagged distinguishes delta from snapshot by which key the
// payload carries. An empty-string delta is still a delta.
func classifyUntagged(payload json.RawMessage) (types.StreamFrame, error) {
	var probe struct {
		Delta     *string `json:"delta"`
		TextChunk *string `json:"text_chunk"`
	}
	if err := json.Unmarshal(payload, &probe); err != nil {
		return types.StreamFrame{}, ErrUnknownFrame
	}
	switch {
	case probe.Delta != nil:
		return types.StreamFrame{Kind: types.FrameDelta, Payload: payload}, nil
	case probe.TextChunk != nil:
		return types.StreamFrame{Kind: types.FrameSnapshot, Payload: payload}, nil
	default:
		return types.StreamFrame{}, ErrUnknownFrame
	}
}
