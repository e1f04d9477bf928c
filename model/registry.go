package model

import (
	"slices"
	"sync"
)

// Registry manages model selection based on capabilities.
// It maps capabilities to preferred models with fallback chains and tracks
// endpoint health for circuit breaking.
type Registry struct {
	mu           sync.RWMutex
	capabilities map[Capability]*CapabilityConfig
	endpoints    map[string]*EndpointConfig
	defaultModel string

	health *healthState
}

// CapabilityConfig defines model preferences for a capability.
type CapabilityConfig struct {
	// Description explains what this capability is for.
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	// Preferred lists models in order of preference.
	Preferred []string `yaml:"preferred" json:"preferred"`

	// Fallback lists backup models if all preferred fail.
	Fallback []string `yaml:"fallback,omitempty" json:"fallback,omitempty"`
}

// EndpointConfig defines an available model endpoint.
type EndpointConfig struct {
	// Provider is the model provider (anthropic, ollama, openai).
	Provider string `yaml:"provider" json:"provider"`

	// URL is the API base URL. Empty uses the provider default.
	URL string `yaml:"url,omitempty" json:"url,omitempty"`

	// Model is the actual model identifier to send to the provider.
	Model string `yaml:"model" json:"model"`

	// MaxTokens is the context window size.
	MaxTokens int `yaml:"max_tokens,omitempty" json:"max_tokens,omitempty"`
}

// NewRegistry creates a registry from capability and endpoint maps.
func NewRegistry(caps map[Capability]*CapabilityConfig, endpoints map[string]*EndpointConfig) *Registry {
	if caps == nil {
		caps = make(map[Capability]*CapabilityConfig)
	}
	if endpoints == nil {
		endpoints = make(map[string]*EndpointConfig)
	}
	return &Registry{
		capabilities: caps,
		endpoints:    endpoints,
		health:       newHealthState(DefaultHealthConfig()),
	}
}

// NewDefaultRegistry creates a registry used when no configuration is
// provided: a hosted chat model first, a local Ollama model as fallback.
func NewDefaultRegistry() *Registry {
	r := NewRegistry(map[Capability]*CapabilityConfig{
		CapabilityExtraction: {
			Description: "Structured record extraction from catalog chunks",
			Preferred:   []string{"gpt"},
			Fallback:    []string{"qwen"},
		},
		CapabilityClassification: {
			Description: "Controlled vocabulary labelling",
			Preferred:   []string{"gpt"},
			Fallback:    []string{"qwen"},
		},
	}, map[string]*EndpointConfig{
		"gpt": {
			Provider:  "openai",
			Model:     "gpt-4o-mini",
			MaxTokens: 128000,
		},
		"claude-haiku": {
			Provider:  "anthropic",
			Model:     "claude-3-5-haiku-latest",
			MaxTokens: 200000,
		},
		"qwen": {
			Provider:  "ollama",
			URL:       "http://localhost:11434/v1",
			Model:     "qwen2.5:14b",
			MaxTokens: 32768,
		},
	})
	r.defaultModel = "qwen"
	return r
}

// Resolve returns the preferred model for a capability, or the default
// model when the capability has no preferences.
func (r *Registry) Resolve(c Capability) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if cfg, ok := r.capabilities[c]; ok && len(cfg.Preferred) > 0 {
		return cfg.Preferred[0]
	}
	return r.defaultModel
}

// GetFallbackChain returns all models for a capability in order of preference.
func (r *Registry) GetFallbackChain(c Capability) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if cfg, ok := r.capabilities[c]; ok {
		return slices.Concat(cfg.Preferred, cfg.Fallback)
	}
	if r.defaultModel == "" {
		return nil
	}
	return []string{r.defaultModel}
}

// GetEndpoint returns the endpoint configuration for a model name.
// Returns nil if the model is not configured.
func (r *Registry) GetEndpoint(name string) *EndpointConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.endpoints[name]
}

// SetCapability updates or adds a capability configuration.
func (r *Registry) SetCapability(c Capability, cfg *CapabilityConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.capabilities[c] = cfg
}

// SetEndpoint updates or adds an endpoint configuration.
func (r *Registry) SetEndpoint(name string, cfg *EndpointConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.endpoints[name] = cfg
}

// SetDefault sets the model used for capabilities without preferences.
func (r *Registry) SetDefault(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defaultModel = name
}

// ListCapabilities returns all configured capabilities, sorted.
func (r *Registry) ListCapabilities() []Capability {
	r.mu.RLock()
	defer r.mu.RUnlock()

	caps := make([]Capability, 0, len(r.capabilities))
	for c := range r.capabilities {
		caps = append(caps, c)
	}
	slices.Sort(caps)
	return caps
}

// ListEndpoints returns all configured endpoint names, sorted.
func (r *Registry) ListEndpoints() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.endpoints))
	for name := range r.endpoints {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
