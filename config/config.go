// Package config provides configuration loading and management for
// Scriptorium.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/c360studio/scriptorium/llm"
	"github.com/c360studio/scriptorium/model"
	"github.com/c360studio/scriptorium/source/chunker"
	"github.com/c360studio/scriptorium/watcher"
)

// Config represents the complete Scriptorium configuration
type Config struct {
	Model          model.RegistryConfig `yaml:"model"`
	Retry          llm.RetryConfig      `yaml:"retry"`
	Chunking       chunker.Config       `yaml:"chunking"`
	Extraction     ExtractionConfig     `yaml:"extraction"`
	Classification ClassificationConfig `yaml:"classification"`
	Watch          WatchConfig          `yaml:"watch"`
	NATS           NATSConfig           `yaml:"nats"`
	Metrics        MetricsConfig        `yaml:"metrics"`

	// overlapSet records an explicit chunking.overlap_percent, which may be 0.
	overlapSet bool
}

// ExtractionConfig tunes the model-backed extractor.
type ExtractionConfig struct {
	// Temperature controls randomness (0.0-1.0, default: 0)
	Temperature float64 `yaml:"temperature"`
	// MaxTokens caps the reply length; 0 uses the endpoint's limit
	MaxTokens int `yaml:"max_tokens"`
	// Timeout bounds each chunk call; 0 means no bound
	Timeout time.Duration `yaml:"timeout"`
}

// ClassificationConfig controls vocabulary classification of merged records.
type ClassificationConfig struct {
	Enabled bool `yaml:"enabled"`
}

// WatchConfig configures the watch command.
type WatchConfig struct {
	// Dir is the drop directory
	Dir string `yaml:"dir"`
	// OutputDir receives <name>.structured.json files
	OutputDir string `yaml:"output_dir"`
	// Patterns select the files to process (doublestar globs)
	Patterns []string `yaml:"patterns"`
	// Ignore excludes files from processing (doublestar globs)
	Ignore []string `yaml:"ignore"`
	// Debounce is how long to wait for more changes before processing
	Debounce time.Duration `yaml:"debounce"`
}

// NATSConfig configures the NATS connection
type NATSConfig struct {
	// URL is the NATS server URL (empty = publishing disabled)
	URL string `yaml:"url"`
	// Subject receives one message per structured document
	Subject string `yaml:"subject"`
	// Bucket is the JetStream KV bucket runs are stored in (empty = not stored)
	Bucket string `yaml:"bucket"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	// Addr is the listen address, e.g. ":9090" (empty = disabled)
	Addr string `yaml:"addr"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	w := watcher.DefaultConfig()
	return &Config{
		Model:    model.DefaultRegistryConfig(),
		Retry:    llm.DefaultRetryConfig(),
		Chunking: chunker.DefaultConfig(),
		Extraction: ExtractionConfig{
			Temperature: 0,
			Timeout:     5 * time.Minute,
		},
		Watch: WatchConfig{
			Dir:       "inbox",
			OutputDir: "structured",
			Patterns:  w.Patterns,
			Ignore:    w.Ignore,
			Debounce:  w.Debounce,
		},
		NATS: NATSConfig{
			Subject: "scriptorium.records",
		},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if len(c.Model.Endpoints) == 0 {
		return fmt.Errorf("model.endpoints is required")
	}
	for name, ep := range c.Model.Endpoints {
		if ep == nil || ep.Model == "" {
			return fmt.Errorf("model.endpoints.%s.model is required", name)
		}
		if ep.Provider == "" {
			return fmt.Errorf("model.endpoints.%s.provider is required", name)
		}
	}
	if c.Model.Default != "" {
		if _, ok := c.Model.Endpoints[c.Model.Default]; !ok {
			return fmt.Errorf("model.default %q is not a configured endpoint", c.Model.Default)
		}
	}
	if err := c.Chunking.Validate(); err != nil {
		return fmt.Errorf("chunking: %w", err)
	}
	if c.Extraction.Temperature < 0 || c.Extraction.Temperature > 1 {
		return fmt.Errorf("extraction.temperature must be between 0 and 1")
	}
	if c.Extraction.Timeout < 0 {
		return fmt.Errorf("extraction.timeout must not be negative")
	}
	if err := c.WatcherConfig().Validate(); err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	return nil
}

// Registry builds the model registry.
func (c *Config) Registry() *model.Registry {
	return model.FromConfig(c.Model)
}

// ChunkerConfig returns the chunking thresholds.
func (c *Config) ChunkerConfig() chunker.Config {
	return c.Chunking
}

// WatcherConfig returns the file watcher settings.
func (c *Config) WatcherConfig() watcher.Config {
	return watcher.Config{
		Patterns:    c.Watch.Patterns,
		Ignore:      c.Watch.Ignore,
		ExcludeDirs: watcher.DefaultConfig().ExcludeDirs,
		Debounce:    c.Watch.Debounce,
	}
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := &Config{}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	var explicit struct {
		Chunking struct {
			OverlapPercent *int `yaml:"overlap_percent"`
		} `yaml:"chunking"`
	}
	if err := yaml.Unmarshal(data, &explicit); err == nil && explicit.Chunking.OverlapPercent != nil {
		config.overlapSet = true
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for non-zero values)
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	// Model: endpoints and capabilities merge by key
	if len(other.Model.Endpoints) > 0 && c.Model.Endpoints == nil {
		c.Model.Endpoints = make(map[string]*model.EndpointConfig)
	}
	for name, ep := range other.Model.Endpoints {
		c.Model.Endpoints[name] = ep
	}
	if len(other.Model.Capabilities) > 0 && c.Model.Capabilities == nil {
		c.Model.Capabilities = make(map[string]*model.CapabilityConfig)
	}
	for name, capCfg := range other.Model.Capabilities {
		c.Model.Capabilities[name] = capCfg
	}
	if other.Model.Default != "" {
		c.Model.Default = other.Model.Default
	}
	if other.Model.Health != nil {
		c.Model.Health = other.Model.Health
	}

	// Retry
	if other.Retry.MaxAttempts != 0 {
		c.Retry.MaxAttempts = other.Retry.MaxAttempts
	}
	if other.Retry.BackoffBase != 0 {
		c.Retry.BackoffBase = other.Retry.BackoffBase
	}
	if other.Retry.BackoffMultiplier != 0 {
		c.Retry.BackoffMultiplier = other.Retry.BackoffMultiplier
	}
	if other.Retry.MaxBackoff != 0 {
		c.Retry.MaxBackoff = other.Retry.MaxBackoff
	}

	// Chunking
	if other.Chunking.Size != 0 {
		c.Chunking.Size = other.Chunking.Size
	}
	if other.Chunking.OverlapPercent != 0 || other.overlapSet {
		c.Chunking.OverlapPercent = other.Chunking.OverlapPercent
	}
	if other.Chunking.MaxRows != 0 {
		c.Chunking.MaxRows = other.Chunking.MaxRows
	}
	if other.Chunking.TEIMsDesc {
		c.Chunking.TEIMsDesc = true
	}

	// Extraction
	if other.Extraction.Temperature != 0 {
		c.Extraction.Temperature = other.Extraction.Temperature
	}
	if other.Extraction.MaxTokens != 0 {
		c.Extraction.MaxTokens = other.Extraction.MaxTokens
	}
	if other.Extraction.Timeout != 0 {
		c.Extraction.Timeout = other.Extraction.Timeout
	}

	// Classification
	if other.Classification.Enabled {
		c.Classification.Enabled = true
	}

	// Watch
	if other.Watch.Dir != "" {
		c.Watch.Dir = other.Watch.Dir
	}
	if other.Watch.OutputDir != "" {
		c.Watch.OutputDir = other.Watch.OutputDir
	}
	if len(other.Watch.Patterns) > 0 {
		c.Watch.Patterns = other.Watch.Patterns
	}
	if len(other.Watch.Ignore) > 0 {
		c.Watch.Ignore = other.Watch.Ignore
	}
	if other.Watch.Debounce != 0 {
		c.Watch.Debounce = other.Watch.Debounce
	}

	// NATS
	if other.NATS.URL != "" {
		c.NATS.URL = other.NATS.URL
	}
	if other.NATS.Subject != "" {
		c.NATS.Subject = other.NATS.Subject
	}
	if other.NATS.Bucket != "" {
		c.NATS.Bucket = other.NATS.Bucket
	}

	// Metrics
	if other.Metrics.Addr != "" {
		c.Metrics.Addr = other.Metrics.Addr
	}
}
