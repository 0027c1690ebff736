// Package config loads layered application configuration.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"

	"github.com/tidwall/jsonc"

	"github.com/b08x/sift-toolbox-report-builder-sub001/pkg/types"
)

// Load loads configuration from multiple sources (priority order, later
// wins):
// 1. Global config (~/.sift/)
// 2. Project config (sift.json / sift.jsonc in the working directory)
// 3. SIFT_CONFIG file
// 4. SIFT_CONFIG_CONTENT inline JSON
// 5. Environment variables
func Load(directory string) (*types.Config, error) {
	config := &types.Config{
		Provider: make(map[string]types.ProviderConfig),
	}

	loaded := make(map[string]bool)
	loadOnce := func(path string) {
		absPath, err := filepath.Abs(path)
		if err != nil || loaded[absPath] {
			return
		}
		if loadConfigFile(path, config) == nil {
			loaded[absPath] = true
		}
	}

	// 1. Global config
	if home, err := os.UserHomeDir(); err == nil {
		globalDir := filepath.Join(home, ".sift")
		loadOnce(filepath.Join(globalDir, "sift.json"))
		loadOnce(filepath.Join(globalDir, "sift.jsonc"))
	}

	// 2. Project config
	if directory != "" {
		loadOnce(filepath.Join(directory, "sift.json"))
		loadOnce(filepath.Join(directory, "sift.jsonc"))
	}

	// 3. SIFT_CONFIG file override
	if configPath := os.Getenv("SIFT_CONFIG"); configPath != "" {
		loadOnce(configPath)
	}

	// 4. SIFT_CONFIG_CONTENT inline JSON
	if content := os.Getenv("SIFT_CONFIG_CONTENT"); content != "" {
		var inline types.Config
		if err := json.Unmarshal(jsonc.ToJSON([]byte(content)), &inline); err == nil {
			mergeConfig(config, &inline)
		}
	}

	// 5. Environment variables (highest priority)
	applyEnvOverrides(config)

	return config, nil
}

// loadConfigFile loads a single JSONC config file with env interpolation.
func loadConfigFile(path string, config *types.Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	data = jsonc.ToJSON(data)
	data = interpolate(data)

	var fileConfig types.Config
	if err := json.Unmarshal(data, &fileConfig); err != nil {
		return err
	}

	mergeConfig(config, &fileConfig)
	return nil
}

var envPattern = regexp.MustCompile(`\{env:([^}]+)\}`)

// interpolate replaces {env:VAR_NAME} placeholders with environment values.
func interpolate(data []byte) []byte {
	return envPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		name := envPattern.FindSubmatch(match)[1]
		return []byte(os.Getenv(string(name)))
	})
}

// mergeConfig overlays src onto dst. Non-empty scalar fields win; provider
// maps merge per key.
func mergeConfig(dst, src *types.Config) {
	if src.Model != "" {
		dst.Model = src.Model
	}
	if src.LogLevel != "" {
		dst.LogLevel = src.LogLevel
	}
	if src.DataDir != "" {
		dst.DataDir = src.DataDir
	}
	for id, pc := range src.Provider {
		merged := dst.Provider[id]
		if pc.Enabled != nil {
			merged.Enabled = pc.Enabled
		}
		if pc.APIKey != "" {
			merged.APIKey = pc.APIKey
		}
		if pc.BaseURL != "" {
			merged.BaseURL = pc.BaseURL
		}
		if pc.MaxTokens != 0 {
			merged.MaxTokens = pc.MaxTokens
		}
		dst.Provider[id] = merged
	}
}

// applyEnvOverrides maps well-known environment variables onto the config.
func applyEnvOverrides(config *types.Config) {
	if model := os.Getenv("SIFT_MODEL"); model != "" {
		config.Model = model
	}
	if level := os.Getenv("SIFT_LOG_LEVEL"); level != "" {
		config.LogLevel = level
	}
	if dir := os.Getenv("SIFT_DATA_DIR"); dir != "" {
		config.DataDir = dir
	}

	setKey := func(provider, key string) {
		if key == "" {
			return
		}
		pc := config.Provider[provider]
		pc.APIKey = key
		config.Provider[provider] = pc
	}
	setKey("anthropic", os.Getenv("ANTHROPIC_API_KEY"))
	setKey("openrouter", os.Getenv("OPENROUTER_API_KEY"))
}
