package types

import "strings"

// Model describes one entry of the model catalog.
type Model struct {
	ID              string           `json:"id"`
	ProviderID      string           `json:"providerID"`
	Name            string           `json:"name"`
	SupportsVision  bool             `json:"supportsVision"`
	SystemDirective string           `json:"systemDirective,omitempty"`
	Parameters      []ModelParameter `json:"parameters,omitempty"`
}

// ModelParameter is one user-configurable generation parameter.
// Order is significant: the catalog lists parameters as they should be
// presented.
type ModelParameter struct {
	Key     string `json:"key"`
	Default any    `json:"default"`
}

// ModelRef addresses a model within a provider.
type ModelRef struct {
	ProviderID string `json:"providerID"`
	ModelID    string `json:"modelID"`
}

// String renders the ref in "provider/model" form.
func (r ModelRef) String() string {
	return r.ProviderID + "/" + r.ModelID
}

// ParseModelRef parses "provider/model". A bare model id yields an empty
// provider, left for the caller to default.
func ParseModelRef(s string) ModelRef {
	parts := strings.SplitN(s, "/", 2)
	if len(parts) == 2 {
		return ModelRef{ProviderID: parts[0], ModelID: parts[1]}
	}
	return ModelRef{ModelID: s}
}
