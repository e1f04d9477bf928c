package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"

	"github.com/c360studio/scriptorium/llm"
	"github.com/c360studio/scriptorium/model"
	"github.com/c360studio/scriptorium/source/chunker"
)

const (
	// ProjectConfigFile is the name of the project-level config file
	ProjectConfigFile = "scriptorium.yaml"
	// UserConfigDir is the directory for user-level config
	UserConfigDir = ".config/scriptorium"
	// UserConfigFile is the name of the user-level config file
	UserConfigFile = "config.yaml"
	// EnvPrefix prefixes every environment override
	EnvPrefix = "SCRIPTORIUM_"
	// DotEnvFile is loaded from the working directory when present
	DotEnvFile = ".env"
)

// Loader handles configuration loading with layered precedence
type Loader struct {
	logger     *slog.Logger
	configFile string
	envFile    string
	home       string
	cwd        string
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithConfigFile adds an explicit config file layered over the user and
// project files. The file must exist.
func WithConfigFile(path string) LoaderOption {
	return func(l *Loader) { l.configFile = path }
}

// WithEnvFile replaces the default .env path.
func WithEnvFile(path string) LoaderOption {
	return func(l *Loader) { l.envFile = path }
}

// NewLoader creates a new configuration loader
func NewLoader(logger *slog.Logger, opts ...LoaderOption) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Loader{logger: logger, envFile: DotEnvFile}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// envOverrides are the settings that can be overridden from the
// environment, each prefixed with EnvPrefix.
type envOverrides struct {
	ModelDefault    string        `env:"MODEL_DEFAULT"`
	ChunkSize       int           `env:"CHUNK_SIZE"`
	ChunkOverlap    *int          `env:"CHUNK_OVERLAP_PERCENT"`
	ChunkMaxRows    int           `env:"CHUNK_MAX_ROWS"`
	Temperature     *float64      `env:"EXTRACTION_TEMPERATURE"`
	MaxTokens       int           `env:"EXTRACTION_MAX_TOKENS"`
	Timeout         time.Duration `env:"EXTRACTION_TIMEOUT"`
	Classify        *bool         `env:"CLASSIFY"`
	WatchDir        string        `env:"WATCH_DIR"`
	OutputDir       string        `env:"OUTPUT_DIR"`
	WatchPatterns   []string      `env:"WATCH_PATTERNS" envSeparator:","`
	NATSURL         string        `env:"NATS_URL"`
	NATSSubject     string        `env:"NATS_SUBJECT"`
	NATSBucket      string        `env:"NATS_BUCKET"`
	MetricsAddr     string        `env:"METRICS_ADDR"`
	RetryAttempts   int           `env:"RETRY_MAX_ATTEMPTS"`
	RetryBackoff    time.Duration `env:"RETRY_BACKOFF_BASE"`
	RetryMaxBackoff time.Duration `env:"RETRY_MAX_BACKOFF"`
}

// Load loads configuration with layered precedence:
// 1. Default config
// 2. User config (~/.config/scriptorium/config.yaml)
// 3. Project config (scriptorium.yaml in current or parent directories)
// 4. Explicit config file
// 5. .env file
// 6. SCRIPTORIUM_* environment variables
func (l *Loader) Load() (*Config, error) {
	config := DefaultConfig()

	// Load user config
	if userConfigPath := l.userConfigPath(); userConfigPath != "" {
		if userConfig, err := LoadFromFile(userConfigPath); err == nil {
			l.logger.Debug("Loaded user config", slog.String("path", userConfigPath))
			config.Merge(userConfig)
		} else if !errors.Is(err, fs.ErrNotExist) {
			l.logger.Warn("Failed to load user config", slog.String("path", userConfigPath), slog.String("error", err.Error()))
		}
	}

	// Load project config
	projectConfigPath := l.findProjectConfig()
	if projectConfigPath != "" {
		if projectConfig, err := LoadFromFile(projectConfigPath); err == nil {
			l.logger.Debug("Loaded project config", slog.String("path", projectConfigPath))
			config.Merge(projectConfig)
		} else {
			l.logger.Warn("Failed to load project config", slog.String("path", projectConfigPath), slog.String("error", err.Error()))
		}
	} else {
		l.logger.Debug("No project config found")
	}

	// Explicit config must load
	if l.configFile != "" {
		explicit, err := LoadFromFile(l.configFile)
		if err != nil {
			return nil, err
		}
		l.logger.Debug("Loaded config file", slog.String("path", l.configFile))
		config.Merge(explicit)
	}

	if err := l.loadDotEnv(); err != nil {
		return nil, err
	}

	if err := l.applyEnv(config); err != nil {
		return nil, err
	}

	// Validate final config
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// loadDotEnv exports the variables of the .env file that are not already
// set in the environment.
func (l *Loader) loadDotEnv() error {
	path := l.envFile
	if path == "" {
		return nil
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(l.workDir(), path)
	}
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	l.logger.Debug("Loaded env file", slog.String("path", path))
	return nil
}

func (l *Loader) applyEnv(config *Config) error {
	var o envOverrides
	if err := env.ParseWithOptions(&o, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse environment: %w", err)
	}

	config.Merge(&Config{
		Model: model.RegistryConfig{Default: o.ModelDefault},
		Retry: llm.RetryConfig{
			MaxAttempts: o.RetryAttempts,
			BackoffBase: o.RetryBackoff,
			MaxBackoff:  o.RetryMaxBackoff,
		},
		Chunking: chunker.Config{
			Size:    o.ChunkSize,
			MaxRows: o.ChunkMaxRows,
		},
		Extraction: ExtractionConfig{
			MaxTokens: o.MaxTokens,
			Timeout:   o.Timeout,
		},
		Watch: WatchConfig{
			Dir:       o.WatchDir,
			OutputDir: o.OutputDir,
			Patterns:  o.WatchPatterns,
		},
		NATS: NATSConfig{
			URL:     o.NATSURL,
			Subject: o.NATSSubject,
			Bucket:  o.NATSBucket,
		},
		Metrics: MetricsConfig{Addr: o.MetricsAddr},
	})

	// Zero is a meaningful overlap or temperature and false a meaningful
	// switch, so these bypass Merge.
	if o.ChunkOverlap != nil {
		config.Chunking.OverlapPercent = *o.ChunkOverlap
	}
	if o.Temperature != nil {
		config.Extraction.Temperature = *o.Temperature
	}
	if o.Classify != nil {
		config.Classification.Enabled = *o.Classify
	}

	l.logger.Debug("Applied environment overrides", slog.String("prefix", EnvPrefix))
	return nil
}

// userConfigPath returns the path to the user config file
func (l *Loader) userConfigPath() string {
	home := l.home
	if home == "" {
		var err error
		if home, err = os.UserHomeDir(); err != nil {
			return ""
		}
	}
	return filepath.Join(home, UserConfigDir, UserConfigFile)
}

func (l *Loader) workDir() string {
	if l.cwd != "" {
		return l.cwd
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return cwd
}

// findProjectConfig searches for scriptorium.yaml in current and parent directories
func (l *Loader) findProjectConfig() string {
	dir := l.workDir()
	for {
		configPath := filepath.Join(dir, ProjectConfigFile)
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			break
		}
		dir = parent
	}

	return ""
}

// EnsureUserConfig creates the user config file with defaults if it doesn't exist
func (l *Loader) EnsureUserConfig() (string, error) {
	userConfigPath := l.userConfigPath()
	if userConfigPath == "" {
		return "", fmt.Errorf("no home directory")
	}

	if _, err := os.Stat(userConfigPath); err == nil {
		return userConfigPath, nil // Already exists
	}

	if err := DefaultConfig().SaveToFile(userConfigPath); err != nil {
		return "", err
	}

	l.logger.Info("Created default user config", slog.String("path", userConfigPath))
	return userConfigPath, nil
}
