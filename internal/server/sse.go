package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/b08x/sift-toolbox-report-builder-sub001/internal/event"
	"github.com/b08x/sift-toolbox-report-builder-sub001/internal/logging"
	"github.com/b08x/sift-toolbox-report-builder-sub001/internal/relay"
	"github.com/b08x/sift-toolbox-report-builder-sub001/pkg/types"
)

// BusEvent is the wire shape of one bus event on the global feed.
type BusEvent struct {
	Type event.EventType `json:"type"`
	Data any             `json:"data"`
}

// SSEHeartbeatInterval is the interval for feed heartbeats.
const SSEHeartbeatInterval = 30 * time.Second

// busEvents handles GET /api/v1/event: a long-lived SSE feed of bus events,
// auxiliary to the per-stream frame channels. An optional sessionID query
// narrows the feed to one session.
func (s *Server) busEvents(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("sessionID")

	fw, err := relay.NewFrameWriter(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}
	fw.Prepare()

	// Small buffer keeps latency low; a saturated observer drops events
	// rather than blocking publishers.
	events := make(chan event.Event, 10)
	unsub := event.SubscribeAll(func(e event.Event) {
		if sessionID != "" && !eventBelongsToSession(e, sessionID) {
			return
		}
		select {
		case events <- e:
		default:
			logging.Warn().
				Str("eventType", string(e.Type)).
				Msg("bus feed event dropped: channel full")
		}
	})
	defer unsub()

	ticker := time.NewTicker(SSEHeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case e := <-events:
			frame, err := busFrame(e)
			if err != nil {
				logging.Warn().Err(err).Msg("encode bus event")
				continue
			}
			if err := fw.WriteFrame(frame); err != nil {
				return
			}
		case <-ticker.C:
			fw.WriteHeartbeat()
		}
	}
}

// busFrame wraps a bus event as a status frame for the feed.
func busFrame(e event.Event) (types.StreamFrame, error) {
	// Reuse the frame envelope so feed consumers share the stream decoder.
	payload, err := json.Marshal(BusEvent{Type: e.Type, Data: e.Data})
	if err != nil {
		return types.StreamFrame{}, err
	}
	return types.StreamFrame{Kind: types.FrameStatus, Payload: payload}, nil
}

// eventBelongsToSession checks whether an event concerns a session.
func eventBelongsToSession(e event.Event, sessionID string) bool {
	switch data := e.Data.(type) {
	case event.AnalysisCreatedData:
		return data.Info != nil && data.Info.ID == sessionID
	case event.AnalysisUpdatedData:
		return data.Info != nil && data.Info.ID == sessionID
	case event.AnalysisDeletedData:
		return data.SessionID == sessionID
	case event.AnalysisFrameData:
		return data.SessionID == sessionID
	}
	return false
}
