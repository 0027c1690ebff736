package provider

import (
	"context"
	"time"

	"github.com/cloudwego/eino/schema"

	"github.com/b08x/sift-toolbox-report-builder-sub001/internal/prompt"
	"github.com/b08x/sift-toolbox-report-builder-sub001/pkg/types"
)

// ScriptedProvider replays a fixed sequence of chunks. It backs offline
// operation and the integration tests, where a live backend is unwanted.
type ScriptedProvider struct {
	// Chunks are emitted in order, one schema message each.
	Chunks []string
	// Err, when set, ends the stream with this error after Chunks.
	Err error
	// ChunkDelay inserts a pause before each chunk.
	ChunkDelay time.Duration
	// FailOpen, when set, makes CreateCompletion itself fail.
	FailOpen error
}

// ID returns the provider identifier.
func (p *ScriptedProvider) ID() string { return "scripted" }

// Name returns the human-readable provider name.
func (p *ScriptedProvider) Name() string { return "Scripted" }

// Models returns the provider's model catalog entries.
func (p *ScriptedProvider) Models() []types.Model {
	return []types.Model{
		{
			ID:              "replay",
			Name:            "Scripted Replay",
			ProviderID:      "scripted",
			SupportsVision:  true,
			SystemDirective: prompt.BaseDirective,
			Parameters: []types.ModelParameter{
				{Key: "temperature", Default: 0.0},
			},
		},
	}
}

// CreateCompletion opens a stream that replays the configured chunks.
// Cancelling ctx stops the replay between chunks.
func (p *ScriptedProvider) CreateCompletion(ctx context.Context, req *CompletionRequest) (*CompletionStream, error) {
	if p.FailOpen != nil {
		return nil, p.FailOpen
	}

	reader, writer := schema.Pipe[*schema.Message](len(p.Chunks) + 1)
	go func() {
		defer writer.Close()
		for _, chunk := range p.Chunks {
			if p.ChunkDelay > 0 {
				select {
				case <-ctx.Done():
					return
				case <-time.After(p.ChunkDelay):
				}
			} else if ctx.Err() != nil {
				return
			}
			if closed := writer.Send(schema.AssistantMessage(chunk, nil), nil); closed {
				return
			}
		}
		if p.Err != nil {
			writer.Send(nil, p.Err)
		}
	}()

	return NewCompletionStream(reader), nil
}
