package client

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/b08x/sift-toolbox-report-builder-sub001/internal/logging"
	"github.com/b08x/sift-toolbox-report-builder-sub001/pkg/types"
)

// StoppedMarker is appended to a loading message's text when the user stops
// the stream locally.
const StoppedMarker = " [stopped by user]"

// ErrBusy rejects an operation while a previous one is still streaming.
var ErrBusy = errors.New("client: an analysis is already in flight")

// Controller drives one analysis session: it owns the message store, the
// current stream connection, and the session lifecycle.
//
// Streaming runs on a background goroutine; all other operations take the
// controller lock, so callers may use a Controller from multiple
// goroutines. At most one stream is in flight at a time.
type Controller struct {
	mu        sync.Mutex
	transport Transport
	store     *MessageStore
	log       zerolog.Logger

	session      *types.AnalysisSession
	status       types.SessionStatus
	consumer     *StreamConsumer
	inFlight     bool
	pendingInput string

	// onChange, when set, is called after every state transition, outside
	// the lock.
	onChange func()
}

// NewController creates an idle controller over the given transport.
func NewController(transport Transport) *Controller {
	return &Controller{
		transport: transport,
		store:     NewMessageStore(),
		status:    types.StatusIdle,
		log:       logging.Component("controller"),
	}
}

// OnChange registers a notification hook invoked after each transition.
func (c *Controller) OnChange(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChange = fn
}

// Store exposes the message store for rendering.
func (c *Controller) Store() *MessageStore { return c.store }

// Status returns the current session status.
func (c *Controller) Status() types.SessionStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Session returns the session, nil while idle.
func (c *Controller) Session() *types.AnalysisSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// InFlight reports whether a stream is currently being consumed.
func (c *Controller) InFlight() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight
}

// SetPendingInput records not-yet-submitted input so Reset can clear it.
func (c *Controller) SetPendingInput(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pendingInput = text
}

// PendingInput returns the recorded unsubmitted input.
func (c *Controller) PendingInput() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pendingInput
}

// Start validates the query, appends the user message with its query
// snapshot plus a loading AI placeholder, initiates the analysis, and
// subscribes to its stream. Validation failures return before any message
// is appended.
func (c *Controller) Start(ctx context.Context, query types.AnalysisQuery) error {
	if query.Empty() {
		return &types.ValidationError{Reason: "provide text or an image to analyze"}
	}
	if query.ReportType != "" && !types.KnownReportType(query.ReportType) {
		return &types.ValidationError{Reason: fmt.Sprintf("unknown report type %q", query.ReportType)}
	}

	c.mu.Lock()
	if c.inFlight {
		c.mu.Unlock()
		return ErrBusy
	}
	c.inFlight = true
	c.mu.Unlock()

	return c.start(ctx, query, true)
}

func (c *Controller) start(ctx context.Context, query types.AnalysisQuery, appendUser bool) error {
	c.mu.Lock()
	if appendUser {
		c.store.AppendUser(query.Text, &query)
	}
	c.store.AppendLoadingAI(query.Model)
	c.status = types.StatusInitiating
	c.inFlight = true
	c.mu.Unlock()
	c.notify()

	result, err := c.transport.Initiate(ctx, query)
	if err != nil {
		c.failActive(err)
		return err
	}

	body, err := c.transport.OpenStream(ctx, result.StreamURL)
	if err != nil {
		c.failActive(err)
		return err
	}

	c.mu.Lock()
	c.session = &types.AnalysisSession{ID: result.SessionID, Query: query, Status: types.StatusStreaming}
	c.status = types.StatusStreaming
	consumer := NewStreamConsumer(c.store, body)
	c.consumer = consumer
	c.mu.Unlock()
	c.notify()

	go func() { c.finish(consumer, consumer.Run()) }()
	return nil
}

// FollowUp sends a chat message on the current session with the finalized
// conversation as history. It is a silent no-op while a previous response
// is still streaming or before any session exists.
func (c *Controller) FollowUp(ctx context.Context, text string) error {
	if text == "" {
		return nil
	}

	c.mu.Lock()
	if c.inFlight || c.session == nil {
		busy := c.inFlight
		c.mu.Unlock()
		if busy {
			c.log.Debug().Msg("follow-up ignored while streaming")
		}
		return nil
	}

	history := c.store.History()
	c.store.AppendUser(text, nil)
	c.store.AppendLoadingAI(c.session.Query.Model)
	req := ChatRequest{
		Message:   text,
		History:   history,
		Model:     c.session.Query.Model,
		Params:    c.session.Query.Params,
		SessionID: c.session.ID,
	}
	c.status = types.StatusStreaming
	c.inFlight = true
	c.mu.Unlock()
	c.notify()

	body, err := c.transport.Chat(ctx, req)
	if err != nil {
		c.failActive(err)
		return err
	}

	c.mu.Lock()
	consumer := NewStreamConsumer(c.store, body)
	c.consumer = consumer
	c.mu.Unlock()
	c.notify()

	go func() { c.finish(consumer, consumer.Run()) }()
	return nil
}

// Stop ends streaming locally: the connection is closed, every loading
// message is finalized with a stop marker, partial text is kept, and the
// session becomes stopped. Idempotent; safe when nothing is streaming.
func (c *Controller) Stop() {
	c.mu.Lock()
	if c.consumer != nil {
		c.consumer.Close()
		c.consumer = nil
	}
	c.store.StopAll(StoppedMarker)
	if c.status == types.StatusInitiating || c.status == types.StatusStreaming {
		c.status = types.StatusStopped
	}
	c.inFlight = false
	c.mu.Unlock()
	c.notify()
}

// Restart replays the session's original query: any current stream is
// closed, the conversation is truncated back to the first user message
// bearing the query snapshot, and a fresh analysis starts. Without a
// snapshot Restart is a no-op.
func (c *Controller) Restart(ctx context.Context) error {
	c.mu.Lock()
	if c.consumer != nil {
		c.consumer.Close()
		c.consumer = nil
	}
	query, ok := c.store.TruncateToSnapshot()
	if !ok {
		c.inFlight = false
		c.mu.Unlock()
		c.log.Debug().Msg("restart without a stored query ignored")
		return nil
	}
	c.inFlight = true
	c.mu.Unlock()

	return c.start(ctx, *query, false)
}

// Reset returns the controller to idle: stream closed, conversation
// cleared, session forgotten. With clearInput the pending input is
// discarded too.
func (c *Controller) Reset(clearInput bool) {
	c.mu.Lock()
	if c.consumer != nil {
		c.consumer.Close()
		c.consumer = nil
	}
	c.store.Clear()
	c.session = nil
	c.status = types.StatusIdle
	c.inFlight = false
	if clearInput {
		c.pendingInput = ""
	}
	c.mu.Unlock()
	c.notify()
}

// failActive finalizes the loading placeholder with the error text and
// moves the session to errored. Used when initiation or subscription fails
// before any frame arrives.
func (c *Controller) failActive(err error) {
	c.mu.Lock()
	c.store.ResolveActive(func(m *types.ChatMessage) {
		m.Loading = false
		m.IsError = true
		m.Text = errorText(err)
	})
	c.status = types.StatusErrored
	c.inFlight = false
	c.mu.Unlock()
	c.notify()
}

// finish records the status the consumed stream ended with. Only the
// consumer the controller currently owns may report; a stream superseded
// by Stop, Restart, or Reset settles without touching state.
func (c *Controller) finish(owner *StreamConsumer, outcome types.SessionStatus) {
	c.mu.Lock()
	if c.consumer != owner {
		c.mu.Unlock()
		return
	}
	c.status = outcome
	if c.session != nil {
		c.session.Status = outcome
	}
	c.consumer = nil
	c.inFlight = false
	c.mu.Unlock()
	c.notify()
}

func (c *Controller) notify() {
	c.mu.Lock()
	fn := c.onChange
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func errorText(err error) string {
	var verr *types.ValidationError
	if errors.As(err, &verr) {
		return verr.Reason
	}
	var gerr *types.GatewayError
	if errors.As(err, &gerr) {
		return fmt.Sprintf("The analysis could not be started: %s.", gerr.Reason)
	}
	return TransportFailureText
}
