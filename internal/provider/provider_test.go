package provider

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/b08x/sift-toolbox-report-builder-sub001/pkg/types"
)

func drain(t *testing.T, s *CompletionStream) (string, error) {
	t.Helper()
	defer s.Close()

	var text string
	for {
		msg, err := s.Recv()
		if errors.Is(err, io.EOF) {
			return text, nil
		}
		if err != nil {
			return text, err
		}
		text += msg.Content
	}
}

func TestBuildMessages(t *testing.T) {
	history := []types.HistoryEntry{
		{Role: "user", Content: "is this true?"},
		{Role: "assistant", Content: "checking"},
	}

	msgs := BuildMessages("You are an analyst.", history, "and now?", "")
	require.Len(t, msgs, 4)
	assert.Equal(t, schema.System, msgs[0].Role)
	assert.Equal(t, schema.User, msgs[1].Role)
	assert.Equal(t, schema.Assistant, msgs[2].Role)
	assert.Equal(t, "and now?", msgs[3].Content)
}

func TestBuildMessages_ImageBecomesMultiContent(t *testing.T) {
	msgs := BuildMessages("", nil, "what is this?", "https://example.com/photo.jpg")
	require.Len(t, msgs, 1)

	parts := msgs[0].MultiContent
	require.Len(t, parts, 2)
	assert.Equal(t, schema.ChatMessagePartTypeText, parts[0].Type)
	assert.Equal(t, schema.ChatMessagePartTypeImageURL, parts[1].Type)
	assert.Equal(t, "https://example.com/photo.jpg", parts[1].ImageURL.URL)
}

func TestScriptedProvider_Replay(t *testing.T) {
	p := &ScriptedProvider{Chunks: []string{"a", "b", "c"}}

	stream, err := p.CreateCompletion(context.Background(), &CompletionRequest{Model: "replay"})
	require.NoError(t, err)

	text, err := drain(t, stream)
	require.NoError(t, err)
	assert.Equal(t, "abc", text)
}

func TestScriptedProvider_ErrAfterChunks(t *testing.T) {
	want := errors.New("mid-stream failure")
	p := &ScriptedProvider{Chunks: []string{"x"}, Err: want}

	stream, err := p.CreateCompletion(context.Background(), &CompletionRequest{Model: "replay"})
	require.NoError(t, err)

	text, err := drain(t, stream)
	assert.Equal(t, "x", text)
	assert.ErrorIs(t, err, want)
}

func TestRegistry_DefaultAndLookup(t *testing.T) {
	r := NewRegistry(&types.Config{})
	r.Register(&ScriptedProvider{})

	ref, err := r.DefaultRef()
	require.NoError(t, err)
	assert.Equal(t, "scripted", ref.ProviderID)
	assert.Equal(t, "replay", ref.ModelID)

	model, err := r.GetModel(ref)
	require.NoError(t, err)
	assert.True(t, model.SupportsVision)

	_, err = r.GetModel(types.ModelRef{ProviderID: "scripted", ModelID: "no-such"})
	assert.Error(t, err)
}
