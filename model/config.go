package model

// RegistryConfig is the serialized form of a Registry, as it appears under
// the "model" key of the configuration file.
type RegistryConfig struct {
	Capabilities map[string]*CapabilityConfig `yaml:"capabilities" json:"capabilities"`
	Endpoints    map[string]*EndpointConfig   `yaml:"endpoints" json:"endpoints"`
	Default      string                       `yaml:"default,omitempty" json:"default,omitempty"`
	Health       *HealthConfig                `yaml:"health,omitempty" json:"health,omitempty"`
}

// FromConfig builds a registry from its serialized form. Capability keys
// that are not known capabilities are kept verbatim.
func FromConfig(cfg RegistryConfig) *Registry {
	caps := make(map[Capability]*CapabilityConfig, len(cfg.Capabilities))
	for k, v := range cfg.Capabilities {
		c := ParseCapability(k)
		if c == "" {
			c = Capability(k)
		}
		caps[c] = v
	}

	endpoints := make(map[string]*EndpointConfig, len(cfg.Endpoints))
	for k, v := range cfg.Endpoints {
		endpoints[k] = v
	}

	r := NewRegistry(caps, endpoints)
	r.defaultModel = cfg.Default
	if cfg.Health != nil {
		r.SetHealthConfig(*cfg.Health)
	}
	return r
}

// ToConfig converts a Registry to its serialized form.
func (r *Registry) ToConfig() RegistryConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()

	caps := make(map[string]*CapabilityConfig, len(r.capabilities))
	for k, v := range r.capabilities {
		caps[string(k)] = v
	}
	endpoints := make(map[string]*EndpointConfig, len(r.endpoints))
	for k, v := range r.endpoints {
		endpoints[k] = v
	}

	r.health.mu.Lock()
	health := r.health.config
	r.health.mu.Unlock()

	return RegistryConfig{
		Capabilities: caps,
		Endpoints:    endpoints,
		Default:      r.defaultModel,
		Health:       &health,
	}
}

// DefaultRegistryConfig returns the serialized form of NewDefaultRegistry.
func DefaultRegistryConfig() RegistryConfig {
	return NewDefaultRegistry().ToConfig()
}
