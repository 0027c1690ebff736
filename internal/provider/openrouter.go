package provider

import (
	"context"
	"fmt"
	"os"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"

	"github.com/b08x/sift-toolbox-report-builder-sub001/internal/prompt"
	"github.com/b08x/sift-toolbox-report-builder-sub001/pkg/types"
)

const openRouterBaseURL = "https://openrouter.ai/api/v1"

// OpenRouterProvider serves models through OpenRouter's OpenAI-compatible
// API.
type OpenRouterProvider struct {
	chatModel model.ToolCallingChatModel
	config    *OpenRouterConfig
}

// OpenRouterConfig holds configuration for the OpenRouter provider.
type OpenRouterConfig struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
}

// NewOpenRouterProvider creates a new OpenRouter provider.
func NewOpenRouterProvider(ctx context.Context, config *OpenRouterConfig) (*OpenRouterProvider, error) {
	apiKey := config.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENROUTER_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("OPENROUTER_API_KEY not set")
	}

	maxTokens := config.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}
	modelID := config.Model
	if modelID == "" {
		modelID = "google/gemini-2.5-flash"
	}
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = openRouterBaseURL
	}

	chatModel, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		APIKey:              apiKey,
		BaseURL:             baseURL,
		Model:               modelID,
		MaxCompletionTokens: &maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("create openrouter model: %w", err)
	}

	return &OpenRouterProvider{chatModel: chatModel, config: config}, nil
}

// ID returns the provider identifier.
func (p *OpenRouterProvider) ID() string { return "openrouter" }

// Name returns the human-readable provider name.
func (p *OpenRouterProvider) Name() string { return "OpenRouter" }

// Models returns the provider's model catalog entries.
func (p *OpenRouterProvider) Models() []types.Model {
	return openRouterModels()
}

// CreateCompletion opens a streaming completion.
func (p *OpenRouterProvider) CreateCompletion(ctx context.Context, req *CompletionRequest) (*CompletionStream, error) {
	opts := []model.Option{
		model.WithModel(req.Model),
		model.WithTemperature(float32(req.Temperature)),
	}
	if req.MaxTokens > 0 {
		opts = append(opts, model.WithMaxTokens(req.MaxTokens))
	}
	if req.TopP > 0 {
		opts = append(opts, model.WithTopP(float32(req.TopP)))
	}

	stream, err := p.chatModel.Stream(ctx, req.Messages, opts...)
	if err != nil {
		return nil, fmt.Errorf("create stream: %w", err)
	}
	return NewCompletionStream(stream), nil
}

func openRouterModels() []types.Model {
	params := []types.ModelParameter{
		{Key: "temperature", Default: 0.3},
		{Key: "top_p", Default: 0.95},
		{Key: "max_tokens", Default: 4096},
	}
	return []types.Model{
		{
			ID:              "google/gemini-2.5-flash",
			Name:            "Gemini 2.5 Flash",
			ProviderID:      "openrouter",
			SupportsVision:  true,
			SystemDirective: prompt.BaseDirective,
			Parameters:      params,
		},
		{
			ID:              "mistralai/mistral-small-3.2-24b-instruct",
			Name:            "Mistral Small 3.2",
			ProviderID:      "openrouter",
			SupportsVision:  false,
			SystemDirective: prompt.BaseDirective,
			Parameters:      params,
		},
	}
}
