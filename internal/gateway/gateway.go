// Package gateway validates analysis requests, owns session records, and
// binds each accepted request to exactly one relay invocation.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/b08x/sift-toolbox-report-builder-sub001/internal/event"
	"github.com/b08x/sift-toolbox-report-builder-sub001/internal/logging"
	"github.com/b08x/sift-toolbox-report-builder-sub001/internal/prompt"
	"github.com/b08x/sift-toolbox-report-builder-sub001/internal/provider"
	"github.com/b08x/sift-toolbox-report-builder-sub001/internal/relay"
	"github.com/b08x/sift-toolbox-report-builder-sub001/internal/storage"
	"github.com/b08x/sift-toolbox-report-builder-sub001/pkg/types"
)

// Gateway validates queries, persists sessions, and mints one-time stream
// handles.
type Gateway struct {
	storage  *storage.Storage
	registry *provider.Registry
	handles  *handleTable
	log      zerolog.Logger
}

// New creates a gateway over the given storage and provider registry.
func New(store *storage.Storage, registry *provider.Registry) *Gateway {
	return &Gateway{
		storage:  store,
		registry: registry,
		handles:  newHandleTable(defaultHandleTTL),
		log:      logging.Component("gateway"),
	}
}

// InitiateResult is the outcome of an accepted analysis request.
type InitiateResult struct {
	Session *types.AnalysisSession
	// Token is the one-time stream handle.
	Token string
}

// Initiate validates query, persists a session record, and returns a
// single-use handle bound to one future relay invocation. Validation
// failures never touch storage.
func (g *Gateway) Initiate(ctx context.Context, query types.AnalysisQuery) (*InitiateResult, error) {
	if query.Empty() {
		return nil, &types.ValidationError{Reason: "query needs text or an image reference"}
	}
	if query.ReportType == "" {
		query.ReportType = types.ReportFullCheck
	}
	if !types.KnownReportType(query.ReportType) {
		return nil, &types.ValidationError{Reason: fmt.Sprintf("unknown report type %q", query.ReportType)}
	}

	inv, err := g.prepareInvocation(query.Model, prompt.Directive(query.ReportType), nil, query.Text, query.ImageRef, query.Params)
	if err != nil {
		return nil, err
	}

	now := time.Now().UnixMilli()
	session := &types.AnalysisSession{
		ID:     newID(),
		Query:  query,
		Status: types.StatusInitiating,
		Time:   types.SessionTime{Created: now, Updated: now},
	}
	if err := g.storage.Put(ctx, []string{"analysis", session.ID}, session); err != nil {
		return nil, &types.GatewayError{Reason: "persist session", Cause: err}
	}

	// First user message carries the original-query snapshot used by
	// restart.
	userMsg := &types.ChatMessage{
		ID:            newID(),
		Sender:        types.SenderUser,
		Text:          query.Text,
		Timestamp:     now,
		OriginalQuery: &query,
	}
	if err := g.AppendMessage(ctx, session.ID, userMsg); err != nil {
		return nil, &types.GatewayError{Reason: "persist message", Cause: err}
	}

	inv.SessionID = session.ID
	token := g.handles.mint(session.ID, inv)

	event.Publish(event.Event{
		Type: event.AnalysisCreated,
		Data: event.AnalysisCreatedData{Info: session},
	})
	g.log.Info().
		Str("sessionID", session.ID).
		Str("reportType", string(query.ReportType)).
		Msg("analysis initiated")

	return &InitiateResult{Session: session, Token: token}, nil
}

// Claim consumes a stream handle. A handle is single-use: the first claim
// wins, every later claim fails with ErrHandleUsed.
func (g *Gateway) Claim(token string) (*relay.Invocation, error) {
	return g.handles.claim(token)
}

// ChatRequest is a follow-up exchange on an existing conversation.
type ChatRequest struct {
	Message   string               `json:"message"`
	History   []types.HistoryEntry `json:"history,omitempty"`
	Model     string               `json:"model,omitempty"`
	Params    map[string]any       `json:"params,omitempty"`
	SessionID string               `json:"sessionId,omitempty"`
}

// Chat validates a follow-up and returns the invocation to stream directly
// over the response body. With a SessionID the session must exist and the
// exchange is persisted; without one the chat is session-less.
func (g *Gateway) Chat(ctx context.Context, req ChatRequest) (*relay.Invocation, error) {
	if req.Message == "" {
		return nil, &types.ValidationError{Reason: "message is required"}
	}

	directive := prompt.BaseDirective
	if req.SessionID != "" {
		session, err := g.GetSession(ctx, req.SessionID)
		if err != nil {
			return nil, err
		}
		directive = prompt.Directive(session.Query.ReportType)

		userMsg := &types.ChatMessage{
			ID:        newID(),
			Sender:    types.SenderUser,
			Text:      req.Message,
			Timestamp: time.Now().UnixMilli(),
		}
		if err := g.AppendMessage(ctx, req.SessionID, userMsg); err != nil {
			return nil, &types.GatewayError{Reason: "persist message", Cause: err}
		}
	}

	inv, err := g.prepareInvocation(req.Model, directive, req.History, req.Message, "", req.Params)
	if err != nil {
		return nil, err
	}
	inv.SessionID = req.SessionID
	return inv, nil
}

// Resolve finishes a served stream: persists the AI message and the
// session's terminal status. Session-less chats resolve to a no-op.
func (g *Gateway) Resolve(ctx context.Context, sessionID string, res relay.Result) {
	if sessionID == "" {
		return
	}

	aiMsg := &types.ChatMessage{
		ID:        newID(),
		Sender:    types.SenderAI,
		Text:      res.Text,
		Timestamp: time.Now().UnixMilli(),
		IsError:   res.Status == types.StatusErrored,
	}
	if err := g.AppendMessage(ctx, sessionID, aiMsg); err != nil {
		g.log.Error().Err(err).Str("sessionID", sessionID).Msg("persist ai message")
	}

	if err := g.SetStatus(ctx, sessionID, res.Status); err != nil {
		g.log.Error().Err(err).Str("sessionID", sessionID).Msg("persist session status")
	}
}

// SetStatus updates a session's lifecycle status.
func (g *Gateway) SetStatus(ctx context.Context, sessionID string, status types.SessionStatus) error {
	session, err := g.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	session.Status = status
	session.Time.Updated = time.Now().UnixMilli()
	if err := g.storage.Put(ctx, []string{"analysis", sessionID}, session); err != nil {
		return err
	}

	event.Publish(event.Event{
		Type: event.AnalysisUpdated,
		Data: event.AnalysisUpdatedData{Info: session},
	})
	return nil
}

// GetSession loads one session record.
func (g *Gateway) GetSession(ctx context.Context, sessionID string) (*types.AnalysisSession, error) {
	var session types.AnalysisSession
	if err := g.storage.Get(ctx, []string{"analysis", sessionID}, &session); err != nil {
		if err == storage.ErrNotFound {
			return nil, err
		}
		return nil, &types.GatewayError{Reason: "load session", Cause: err}
	}
	return &session, nil
}

// ListSessions returns all persisted sessions, oldest first.
func (g *Gateway) ListSessions(ctx context.Context) ([]*types.AnalysisSession, error) {
	var sessions []*types.AnalysisSession
	err := g.storage.Scan(ctx, []string{"analysis"}, func(key string, data json.RawMessage) error {
		var session types.AnalysisSession
		if err := json.Unmarshal(data, &session); err != nil {
			return err
		}
		sessions = append(sessions, &session)
		return nil
	})
	return sessions, err
}

// Messages returns a session's conversation, oldest first. Message ids are
// ULIDs, so key order is creation order.
func (g *Gateway) Messages(ctx context.Context, sessionID string) ([]*types.ChatMessage, error) {
	var messages []*types.ChatMessage
	err := g.storage.Scan(ctx, []string{"message", sessionID}, func(key string, data json.RawMessage) error {
		var msg types.ChatMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return err
		}
		messages = append(messages, &msg)
		return nil
	})
	return messages, err
}

// AppendMessage persists one conversation message.
func (g *Gateway) AppendMessage(ctx context.Context, sessionID string, msg *types.ChatMessage) error {
	return g.storage.Put(ctx, []string{"message", sessionID, msg.ID}, msg)
}

// DeleteSession removes a session and its messages.
func (g *Gateway) DeleteSession(ctx context.Context, sessionID string) error {
	session, err := g.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}

	if err := g.storage.Delete(ctx, []string{"analysis", sessionID}); err != nil {
		return err
	}
	messages, _ := g.Messages(ctx, sessionID)
	for _, msg := range messages {
		_ = g.storage.Delete(ctx, []string{"message", sessionID, msg.ID})
	}

	event.Publish(event.Event{
		Type: event.AnalysisDeleted,
		Data: event.AnalysisDeletedData{SessionID: session.ID},
	})
	return nil
}

// prepareInvocation resolves the model and assembles the provider request.
func (g *Gateway) prepareInvocation(modelStr, directive string, history []types.HistoryEntry, text, imageRef string, params map[string]any) (*relay.Invocation, error) {
	ref := types.ParseModelRef(modelStr)
	if modelStr == "" {
		var err error
		ref, err = g.registry.DefaultRef()
		if err != nil {
			return nil, &types.GatewayError{Reason: "no default model", Cause: err}
		}
	}

	model, err := g.registry.GetModel(ref)
	if err != nil {
		return nil, &types.GatewayError{Reason: "resolve model", Cause: err}
	}
	if imageRef != "" && !model.SupportsVision {
		return nil, &types.ValidationError{Reason: fmt.Sprintf("model %s does not support images", ref)}
	}

	prov, err := g.registry.Get(ref.ProviderID)
	if err != nil {
		return nil, &types.GatewayError{Reason: "resolve provider", Cause: err}
	}

	req := &provider.CompletionRequest{
		Model:       ref.ModelID,
		Messages:    provider.BuildMessages(directive, history, text, imageRef),
		Temperature: paramFloat(params, model, "temperature"),
		TopP:        paramFloat(params, model, "top_p"),
		MaxTokens:   paramInt(params, model, "max_tokens"),
	}

	return &relay.Invocation{
		Provider: prov,
		Request:  req,
		Statuses: []string{"Consulting " + model.Name},
	}, nil
}

// paramFloat resolves a numeric parameter from the request, falling back to
// the model's catalog default.
func paramFloat(params map[string]any, model *types.Model, key string) float64 {
	if v, ok := asFloat(params[key]); ok {
		return v
	}
	for _, p := range model.Parameters {
		if p.Key == key {
			if v, ok := asFloat(p.Default); ok {
				return v
			}
		}
	}
	return 0
}

func paramInt(params map[string]any, model *types.Model, key string) int {
	return int(paramFloat(params, model, key))
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// newID generates a new ULID.
func newID() string {
	return ulid.Make().String()
}
