package client

import (
	"encoding/json"
	"errors"
	"io"
	"sync/atomic"

	"github.com/b08x/sift-toolbox-report-builder-sub001/internal/logging"
	"github.com/b08x/sift-toolbox-report-builder-sub001/pkg/types"
)

// TransportFailureText is appended to the active message when the stream
// connection drops before a terminal frame arrives.
const TransportFailureText = "The analysis stream was interrupted. Please try again."

// Effect is what applying one frame did to the store.
type Effect int

const (
	EffectNone Effect = iota
	EffectContent
	EffectComplete
	EffectError
	EffectDiscarded
)

// Apply folds one frame into the store and reports the effect.
//
// Rules, in frame order:
//   - delta appends to the active message's text; snapshot replaces it
//     (last writer wins across kinds).
//   - complete finalizes the active message; error finalizes it with the
//     error flag and the payload's text.
//   - status frames and frames with malformed payloads leave the
//     conversation unchanged.
//   - a content or terminal frame with no active message is discarded.
func Apply(store *MessageStore, frame types.StreamFrame) Effect {
	switch frame.Kind {
	case types.FrameStatus:
		return EffectNone

	case types.FrameDelta:
		var p types.DeltaPayload
		if err := json.Unmarshal(frame.Payload, &p); err != nil {
			logging.Warn().Err(err).Msg("malformed delta payload skipped")
			return EffectNone
		}
		if !store.MutateActive(func(m *types.ChatMessage) { m.Text += p.Delta }) {
			logging.Warn().Msg("delta frame with no loading message discarded")
			return EffectDiscarded
		}
		return EffectContent

	case types.FrameSnapshot:
		var p types.SnapshotPayload
		if err := json.Unmarshal(frame.Payload, &p); err != nil {
			logging.Warn().Err(err).Msg("malformed snapshot payload skipped")
			return EffectNone
		}
		if !store.MutateActive(func(m *types.ChatMessage) { m.Text = p.TextChunk }) {
			logging.Warn().Msg("snapshot frame with no loading message discarded")
			return EffectDiscarded
		}
		return EffectContent

	case types.FrameComplete:
		if !store.ResolveActive(func(m *types.ChatMessage) { m.Loading = false }) {
			return EffectDiscarded
		}
		return EffectComplete

	case types.FrameError:
		text := "An unknown error occurred during analysis."
		var p types.ErrorFramePayload
		if err := json.Unmarshal(frame.Payload, &p); err == nil && p.Text() != "" {
			text = p.Text()
		}
		resolved := store.ResolveActive(func(m *types.ChatMessage) {
			m.Loading = false
			m.IsError = true
			m.Text = text
		})
		if !resolved {
			return EffectDiscarded
		}
		return EffectError

	default:
		logging.Warn().Str("kind", string(frame.Kind)).Msg("unhandled frame kind")
		return EffectNone
	}
}

// StreamConsumer reads one event-stream body to completion, folding frames
// into a MessageStore. A consumer is single use: it owns exactly one body
// and Run may be called once.
type StreamConsumer struct {
	store *MessageStore
	body  io.ReadCloser

	started atomic.Bool
	closed  atomic.Bool
}

// NewStreamConsumer binds a consumer to an open stream body.
func NewStreamConsumer(store *MessageStore, body io.ReadCloser) *StreamConsumer {
	return &StreamConsumer{store: store, body: body}
}

// Run reads frames until a terminal frame or transport failure and returns
// the session status the stream ended with. The first terminal frame wins;
// the body is closed before returning, so nothing past it is read.
//
// A dropped connection before the terminal frame finalizes the active
// message as a transport error. When the drop finds no active message, as
// after a local stop already finalized it, Run reports a stop instead.
func (c *StreamConsumer) Run() types.SessionStatus {
	if !c.started.CompareAndSwap(false, true) {
		logging.Warn().Msg("stream consumer reused; ignoring")
		return types.StatusStopped
	}
	defer c.Close()

	reader := NewFrameReader(c.body)
	for {
		if c.closed.Load() {
			return types.StatusStopped
		}
		frame, err := reader.Next()
		if err != nil {
			if errors.Is(err, ErrUnknownFrame) {
				continue
			}
			// A closed consumer was superseded by a local stop; whatever
			// loading message exists now belongs to a later operation.
			if c.closed.Load() {
				return types.StatusStopped
			}
			failed := c.store.ResolveActive(func(m *types.ChatMessage) {
				m.Loading = false
				m.IsError = true
				m.Text = TransportFailureText
			})
			if failed {
				return types.StatusErrored
			}
			return types.StatusStopped
		}

		switch Apply(c.store, frame) {
		case EffectComplete:
			return types.StatusComplete
		case EffectError:
			return types.StatusErrored
		}
	}
}

// Close releases the underlying body and marks the consumer superseded:
// after Close, Run no longer touches the store. Safe to call more than
// once and concurrently with Run; closing mid-read unblocks Run.
func (c *StreamConsumer) Close() {
	if c.closed.CompareAndSwap(false, true) && c.body != nil {
		c.body.Close()
	}
}
