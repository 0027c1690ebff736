package testutil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/b08x/sift-toolbox-report-builder-sub001/internal/client"
	"github.com/b08x/sift-toolbox-report-builder-sub001/pkg/types"
)

// StreamClient reads typed frames off a server's event-stream endpoints.
type StreamClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewStreamClient creates a stream client for the server at baseURL.
func NewStreamClient(baseURL string) *StreamClient {
	return &StreamClient{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 0},
	}
}

// Collect opens path and reads frames until the stream closes or ctx ends.
// Unknown events are skipped, like a real consumer would.
func (c *StreamClient) Collect(ctx context.Context, path string) ([]types.StreamFrame, error) {
	body, err := c.open(ctx, http.MethodGet, path, "")
	if err != nil {
		return nil, err
	}
	defer body.Close()
	return readAll(body)
}

// CollectPost sends a JSON body to path and reads the response stream.
func (c *StreamClient) CollectPost(ctx context.Context, path, jsonBody string) ([]types.StreamFrame, error) {
	body, err := c.open(ctx, http.MethodPost, path, jsonBody)
	if err != nil {
		return nil, err
	}
	defer body.Close()
	return readAll(body)
}

func (c *StreamClient) open(ctx context.Context, method, path, jsonBody string) (io.ReadCloser, error) {
	var reqBody io.Reader
	if jsonBody != "" {
		reqBody = strings.NewReader(jsonBody)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")
	if jsonBody != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status %d for %s", resp.StatusCode, path)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected content type %q", ct)
	}
	return resp.Body, nil
}

func readAll(body io.Reader) ([]types.StreamFrame, error) {
	var frames []types.StreamFrame
	fr := client.NewFrameReader(body)
	for {
		frame, err := fr.Next()
		if errors.Is(err, io.EOF) {
			return frames, nil
		}
		if errors.Is(err, client.ErrUnknownFrame) {
			continue
		}
		if err != nil {
			return frames, err
		}
		frames = append(frames, frame)
	}
}

// Kinds projects frames onto their kind sequence.
func Kinds(frames []types.StreamFrame) []types.FrameKind {
	kinds := make([]types.FrameKind, len(frames))
	for i, f := range frames {
		kinds[i] = f.Kind
	}
	return kinds
}

// TerminalCount counts terminal frames in a stream.
func TerminalCount(frames []types.StreamFrame) int {
	n := 0
	for _, f := range frames {
		if f.Kind.Terminal() {
			n++
		}
	}
	return n
}
