package types

// Config is the application configuration, merged from config files and
// environment overrides.
type Config struct {
	// Model is the default "provider/model" used when a request omits one.
	Model string `json:"model,omitempty"`

	// Provider holds per-provider settings keyed by provider id.
	Provider map[string]ProviderConfig `json:"provider,omitempty"`

	// LogLevel is the minimum log level (debug|info|warn|error).
	LogLevel string `json:"logLevel,omitempty"`

	// DataDir overrides the storage location for sessions and messages.
	DataDir string `json:"dataDir,omitempty"`
}

// ProviderConfig configures one AI provider.
type ProviderConfig struct {
	Enabled *bool  `json:"enabled,omitempty"`
	APIKey  string `json:"apiKey,omitempty"`
	BaseURL string `json:"baseURL,omitempty"`
	// MaxTokens caps completion length for this provider's models.
	MaxTokens int `json:"maxTokens,omitempty"`
}

// ProviderEnabled reports whether the provider is enabled (default true).
func (c *Config) ProviderEnabled(id string) bool {
	if c == nil || c.Provider == nil {
		return true
	}
	pc, ok := c.Provider[id]
	if !ok || pc.Enabled == nil {
		return true
	}
	return *pc.Enabled
}
