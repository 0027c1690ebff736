package provider

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/b08x/sift-toolbox-report-builder-sub001/internal/logging"
	"github.com/b08x/sift-toolbox-report-builder-sub001/pkg/types"
)

// Registry manages all available providers.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
	config    *types.Config
}

// NewRegistry creates an empty provider registry.
func NewRegistry(config *types.Config) *Registry {
	return &Registry{
		providers: make(map[string]Provider),
		config:    config,
	}
}

// Register adds a provider to the registry.
func (r *Registry) Register(provider Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[provider.ID()] = provider
}

// Get retrieves a provider by ID.
func (r *Registry) Get(providerID string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	provider, ok := r.providers[providerID]
	if !ok {
		return nil, fmt.Errorf("provider not found: %s", providerID)
	}
	return provider, nil
}

// List returns all registered providers.
func (r *Registry) List() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	providers := make([]Provider, 0, len(r.providers))
	for _, p := range r.providers {
		providers = append(providers, p)
	}
	sort.Slice(providers, func(i, j int) bool { return providers[i].ID() < providers[j].ID() })
	return providers
}

// GetModel retrieves one catalog entry.
func (r *Registry) GetModel(ref types.ModelRef) (*types.Model, error) {
	provider, err := r.Get(ref.ProviderID)
	if err != nil {
		return nil, err
	}
	for _, m := range provider.Models() {
		if m.ID == ref.ModelID {
			return &m, nil
		}
	}
	return nil, fmt.Errorf("model not found: %s", ref)
}

// AllModels returns the full catalog across providers.
func (r *Registry) AllModels() []types.Model {
	var models []types.Model
	for _, p := range r.List() {
		models = append(models, p.Models()...)
	}
	return models
}

// DefaultRef returns the configured default model, or the first catalog
// entry when none is configured.
func (r *Registry) DefaultRef() (types.ModelRef, error) {
	if r.config != nil && r.config.Model != "" {
		ref := types.ParseModelRef(r.config.Model)
		if _, err := r.GetModel(ref); err != nil {
			return types.ModelRef{}, err
		}
		return ref, nil
	}

	models := r.AllModels()
	if len(models) == 0 {
		return types.ModelRef{}, fmt.Errorf("no models available")
	}
	return types.ModelRef{ProviderID: models[0].ProviderID, ModelID: models[0].ID}, nil
}

// InitializeProviders builds a registry from configuration. Providers whose
// credentials are missing are skipped with a warning; when nothing else is
// available a scripted provider keeps the server usable offline.
func InitializeProviders(ctx context.Context, config *types.Config) *Registry {
	log := logging.Component("provider")
	registry := NewRegistry(config)

	if config.ProviderEnabled("anthropic") {
		pc := config.Provider["anthropic"]
		p, err := NewAnthropicProvider(ctx, &AnthropicConfig{
			APIKey:    pc.APIKey,
			BaseURL:   pc.BaseURL,
			MaxTokens: pc.MaxTokens,
		})
		if err != nil {
			log.Warn().Err(err).Msg("anthropic provider unavailable")
		} else {
			registry.Register(p)
		}
	}

	if config.ProviderEnabled("openrouter") {
		pc := config.Provider["openrouter"]
		p, err := NewOpenRouterProvider(ctx, &OpenRouterConfig{
			APIKey:    pc.APIKey,
			BaseURL:   pc.BaseURL,
			MaxTokens: pc.MaxTokens,
		})
		if err != nil {
			log.Warn().Err(err).Msg("openrouter provider unavailable")
		} else {
			registry.Register(p)
		}
	}

	if len(registry.List()) == 0 {
		log.Warn().Msg("no providers configured, registering scripted provider")
		registry.Register(&ScriptedProvider{
			Chunks: []string{"No AI provider is configured. ", "Set ANTHROPIC_API_KEY or OPENROUTER_API_KEY."},
		})
	}

	return registry
}
