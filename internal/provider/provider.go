// Package provider abstracts AI backends behind the Eino framework. The
// rest of the system consumes a provider only as an opaque source of
// incremental text chunks.
package provider

import (
	"context"

	"github.com/cloudwego/eino/schema"

	"github.com/b08x/sift-toolbox-report-builder-sub001/pkg/types"
)

// Provider is one AI backend.
type Provider interface {
	// ID returns the provider identifier.
	ID() string

	// Name returns the human-readable provider name.
	Name() string

	// Models returns the provider's model catalog entries.
	Models() []types.Model

	// CreateCompletion opens a streaming completion. The returned stream is
	// driven until io.EOF or error; cancelling ctx stops generation.
	CreateCompletion(ctx context.Context, req *CompletionRequest) (*CompletionStream, error)
}

// CompletionRequest is a provider-neutral generation request.
type CompletionRequest struct {
	Model       string            `json:"model"`
	Messages    []*schema.Message `json:"messages"`
	MaxTokens   int               `json:"maxTokens,omitempty"`
	Temperature float64           `json:"temperature,omitempty"`
	TopP        float64           `json:"topP,omitempty"`
}

// CompletionStream wraps an Eino stream reader.
type CompletionStream struct {
	reader *schema.StreamReader[*schema.Message]
}

// NewCompletionStream creates a completion stream from an Eino reader.
func NewCompletionStream(reader *schema.StreamReader[*schema.Message]) *CompletionStream {
	return &CompletionStream{reader: reader}
}

// Recv receives the next message chunk. Returns io.EOF when the stream
// ends.
func (s *CompletionStream) Recv() (*schema.Message, error) {
	return s.reader.Recv()
}

// Close releases the stream.
func (s *CompletionStream) Close() {
	s.reader.Close()
}

// BuildMessages assembles provider messages from a system directive, prior
// conversation, and the current submission. An image reference becomes a
// multi-content part on the final user message.
func BuildMessages(directive string, history []types.HistoryEntry, text, imageRef string) []*schema.Message {
	msgs := make([]*schema.Message, 0, len(history)+2)
	if directive != "" {
		msgs = append(msgs, schema.SystemMessage(directive))
	}

	for _, h := range history {
		if h.Role == "user" {
			msgs = append(msgs, schema.UserMessage(h.Content))
		} else {
			msgs = append(msgs, schema.AssistantMessage(h.Content, nil))
		}
	}

	user := schema.UserMessage(text)
	if imageRef != "" {
		user.MultiContent = []schema.ChatMessagePart{
			{Type: schema.ChatMessagePartTypeText, Text: text},
			{
				Type:     schema.ChatMessagePartTypeImageURL,
				ImageURL: &schema.ChatMessageImageURL{URL: imageRef},
			},
		}
	}
	return append(msgs, user)
}
