// Package relay streams one provider invocation to one HTTP response as an
// ordered sequence of typed frames.
//
// Emission contract: zero or more status frames, then zero or more content
// frames, then exactly one terminal frame (complete or error). The terminal
// frame is emitted even when the provider call fails mid-stream. When the
// consumer disconnects first, the provider context is cancelled and no
// further frames are written.
package relay

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/b08x/sift-toolbox-report-builder-sub001/internal/event"
	"github.com/b08x/sift-toolbox-report-builder-sub001/internal/logging"
	"github.com/b08x/sift-toolbox-report-builder-sub001/internal/provider"
	"github.com/b08x/sift-toolbox-report-builder-sub001/pkg/types"
)

// Invocation binds one prepared provider call to one session.
type Invocation struct {
	SessionID string
	Provider  provider.Provider
	Request   *provider.CompletionRequest
	// Statuses are informational frames emitted before content.
	Statuses []string
}

// Result reports how a served stream ended.
type Result struct {
	Status types.SessionStatus
	// Text is the accumulated content, kept for persistence.
	Text string
	// Err is set on errored results.
	Err error
}

// Serve drives inv's provider stream onto w. It always resolves to exactly
// one terminal state; the caller persists the outcome.
func Serve(w http.ResponseWriter, r *http.Request, inv *Invocation) Result {
	log := logging.Component("relay")

	fw, err := NewFrameWriter(w)
	if err != nil {
		// No frame was written yet, a plain HTTP error is still possible.
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return Result{Status: types.StatusErrored, Err: err}
	}
	fw.Prepare()

	// Couple the provider call to the consumer connection: a disconnect
	// cancels generation.
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	emit := func(frame types.StreamFrame) error {
		event.Publish(event.Event{
			Type: event.AnalysisFrame,
			Data: event.AnalysisFrameData{SessionID: inv.SessionID, Frame: frame},
		})
		return fw.WriteFrame(frame)
	}

	for _, status := range inv.Statuses {
		if err := emit(types.StatusFrame(status)); err != nil {
			log.Debug().Str("sessionID", inv.SessionID).Msg("consumer gone before content")
			return Result{Status: types.StatusStopped}
		}
	}

	stream, err := inv.Provider.CreateCompletion(ctx, inv.Request)
	if err != nil {
		log.Error().Err(err).Str("sessionID", inv.SessionID).Msg("provider call failed to open")
		_ = emit(types.ErrorFrame(err.Error()))
		return Result{Status: types.StatusErrored, Err: err}
	}
	defer stream.Close()

	var accumulated strings.Builder
	for {
		select {
		case <-ctx.Done():
			// Consumer disconnected; stop driving the provider.
			log.Debug().Str("sessionID", inv.SessionID).Msg("consumer disconnected")
			return Result{Status: types.StatusStopped, Text: accumulated.String()}
		default:
		}

		msg, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			if ctx.Err() != nil {
				return Result{Status: types.StatusStopped, Text: accumulated.String()}
			}
			if err := emit(types.CompleteFrame()); err != nil {
				return Result{Status: types.StatusStopped, Text: accumulated.String()}
			}
			return Result{Status: types.StatusComplete, Text: accumulated.String()}
		}
		if err != nil {
			if ctx.Err() != nil {
				return Result{Status: types.StatusStopped, Text: accumulated.String()}
			}
			log.Error().Err(err).Str("sessionID", inv.SessionID).Msg("provider stream failed")
			_ = emit(types.ErrorFrame(err.Error()))
			return Result{Status: types.StatusErrored, Text: accumulated.String(), Err: err}
		}

		if msg.Content == "" {
			continue
		}

		frame, text := contentFrame(accumulated.String(), msg.Content)
		accumulated.Reset()
		accumulated.WriteString(text)

		if err := emit(frame); err != nil {
			cancel()
			log.Debug().Str("sessionID", inv.SessionID).Msg("write failed, cancelling provider")
			return Result{Status: types.StatusStopped, Text: accumulated.String()}
		}
	}
}

// contentFrame folds one provider chunk into the accumulated text. Most
// providers send pure deltas; some resend the whole text so far, which maps
// onto a snapshot frame (full replacement) instead.
func contentFrame(accumulated, chunk string) (types.StreamFrame, string) {
	if accumulated != "" && strings.HasPrefix(chunk, accumulated) {
		return types.SnapshotFrame(chunk), chunk
	}
	return types.DeltaFrame(chunk), accumulated + chunk
}
