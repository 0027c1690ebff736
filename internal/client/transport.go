package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/b08x/sift-toolbox-report-builder-sub001/pkg/types"
)

// Transport is everything the controller needs from a session gateway:
// initiation, a single-use stream subscription, and follow-up chat.
type Transport interface {
	Initiate(ctx context.Context, query types.AnalysisQuery) (*InitiateResult, error)
	OpenStream(ctx context.Context, streamURL string) (io.ReadCloser, error)
	Chat(ctx context.Context, req ChatRequest) (io.ReadCloser, error)
	Models(ctx context.Context) ([]types.Model, error)
}

// InitiateResult is the gateway's answer to a new analysis request.
type InitiateResult struct {
	SessionID string `json:"sessionID"`
	Token     string `json:"token"`
	StreamURL string `json:"streamURL"`
}

// ChatRequest is a follow-up message with its conversation history.
type ChatRequest struct {
	Message   string               `json:"message"`
	History   []types.HistoryEntry `json:"history,omitempty"`
	Model     string               `json:"model,omitempty"`
	Params    map[string]any       `json:"params,omitempty"`
	SessionID string               `json:"sessionID,omitempty"`
}

// HTTPTransport talks to a sift server over its REST and event-stream
// endpoints.
type HTTPTransport struct {
	baseURL string
	client  *http.Client
}

// NewHTTPTransport creates a transport for the server at baseURL. Stream
// requests never time out client-side; cancellation comes from the request
// context.
func NewHTTPTransport(baseURL string) *HTTPTransport {
	return &HTTPTransport{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{},
	}
}

// Initiate registers a new analysis and returns its single-use stream
// handle. The gateway performs validation; a rejected query surfaces as
// *types.ValidationError with the conversation untouched.
func (t *HTTPTransport) Initiate(ctx context.Context, query types.AnalysisQuery) (*InitiateResult, error) {
	body, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/api/v1/analysis", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, &types.TransportError{Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return nil, decodeError(resp)
	}

	var result InitiateResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode initiate response: %w", err)
	}
	return &result, nil
}

// OpenStream claims the stream handle and returns the open event-stream
// body. The handle is single use; a second claim fails server-side.
func (t *HTTPTransport) OpenStream(ctx context.Context, streamURL string) (io.ReadCloser, error) {
	if !strings.HasPrefix(streamURL, "http") {
		streamURL = t.baseURL + streamURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, streamURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, &types.TransportError{Cause: err}
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, decodeError(resp)
	}
	return resp.Body, nil
}

// Chat sends a follow-up message and returns the response event stream.
func (t *HTTPTransport) Chat(ctx context.Context, chatReq ChatRequest) (io.ReadCloser, error) {
	body, err := json.Marshal(chatReq)
	if err != nil {
		return nil, fmt.Errorf("encode chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/api/v1/chat", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, &types.TransportError{Cause: err}
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, decodeError(resp)
	}
	return resp.Body, nil
}

// Models lists the models the server's configured providers expose.
func (t *HTTPTransport) Models(ctx context.Context) ([]types.Model, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+"/api/v1/models", nil)
	if err != nil {
		return nil, err
	}

	client := &http.Client{Timeout: 15 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, &types.TransportError{Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp)
	}

	var models []types.Model
	if err := json.NewDecoder(resp.Body).Decode(&models); err != nil {
		return nil, fmt.Errorf("decode models: %w", err)
	}
	return models, nil
}

// decodeError maps a non-success response onto a domain error.
func decodeError(resp *http.Response) error {
	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err := json.Unmarshal(data, &envelope); err != nil || envelope.Error.Message == "" {
		return &types.GatewayError{Reason: fmt.Sprintf("server returned %s", resp.Status)}
	}

	switch envelope.Error.Code {
	case "INVALID_REQUEST":
		return &types.ValidationError{Reason: envelope.Error.Message}
	default:
		return &types.GatewayError{Reason: envelope.Error.Message}
	}
}
