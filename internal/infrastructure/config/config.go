// Package config provides configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigDir is the directory name for tracker configuration.
	DefaultConfigDir = ".tracker"
	// DefaultConfigFile is the default config file name.
	DefaultConfigFile = "config.yaml"
	// DefaultDatabaseFile is the default SQLite file name.
	DefaultDatabaseFile = "tracker.db"
)

// Storage providers.
const (
	StorageLocal = "local"
	StorageGCS   = "gcs"
)

// Config holds static infrastructure configuration (read-only after init).
type Config struct {
	LLM       LLMConfig       `yaml:"llm,omitempty"`
	Embedder  EmbedderConfig  `yaml:"embedder,omitempty"`
	SQLite    SQLiteConfig    `yaml:"sqlite,omitempty"`
	Portal    PortalConfig    `yaml:"portal,omitempty"`
	Storage   StorageConfig   `yaml:"storage,omitempty"`
	Reconcile ReconcileConfig `yaml:"reconcile,omitempty"`
	Submit    SubmitConfig    `yaml:"submit,omitempty"`
	Log       LogConfig       `yaml:"log,omitempty"`
}

// LLMConfig holds configuration for the LLM provider.
type LLMConfig struct {
	Provider string `yaml:"provider,omitempty"`
	Model    string `yaml:"model,omitempty"`
	APIKey   string `yaml:"api_key,omitempty"`
	// BaseURL overrides the provider endpoint (proxies, tests).
	BaseURL string `yaml:"base_url,omitempty"`
}

// EmbedderConfig holds configuration for the embedding provider. Embeddings
// are only used when suggestion scoring is set to "embedding".
type EmbedderConfig struct {
	Provider string `yaml:"provider,omitempty"`
	Model    string `yaml:"model,omitempty"`
	APIKey   string `yaml:"api_key,omitempty"`
	BaseURL  string `yaml:"base_url,omitempty"`
}

// SQLiteConfig holds configuration for the SQLite relational database.
type SQLiteConfig struct {
	// Path is the file path to the SQLite database. Relative paths are
	// resolved against the config directory.
	Path string `yaml:"path,omitempty"`
}

// PortalConfig holds the court portal session settings.
type PortalConfig struct {
	BaseURL      string        `yaml:"base_url,omitempty"`
	SessionToken string        `yaml:"session_token,omitempty"`
	Timeout      time.Duration `yaml:"timeout,omitempty"`
	UserAgent    string        `yaml:"user_agent,omitempty"`
}

// StorageConfig selects where binary originals are kept.
type StorageConfig struct {
	Provider string `yaml:"provider,omitempty"`
	Dir      string `yaml:"dir,omitempty"`
	Bucket   string `yaml:"bucket,omitempty"`
	// CredentialsFile is an optional service account key for gcs.
	CredentialsFile string `yaml:"credentials_file,omitempty"`
}

// ReconcileConfig holds reconciliation run settings.
type ReconcileConfig struct {
	Workers         int           `yaml:"workers,omitempty"`
	FetchTimeout    time.Duration `yaml:"fetch_timeout,omitempty"`
	GenerateTimeout time.Duration `yaml:"generate_timeout,omitempty"`
	CommitTimeout   time.Duration `yaml:"commit_timeout,omitempty"`
	TempDir         string        `yaml:"temp_dir,omitempty"`
	// Scoring is "weighted" or "embedding".
	Scoring string `yaml:"scoring,omitempty"`
	// Parallel bounds how many cases a directory sweep reconciles at once.
	Parallel int `yaml:"parallel,omitempty"`
}

// SubmitConfig holds suggestion submission settings.
type SubmitConfig struct {
	MaxAttempts int           `yaml:"max_attempts,omitempty"`
	Timeout     time.Duration `yaml:"timeout,omitempty"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Mode string `yaml:"mode,omitempty"`
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider: "openai",
			Model:    "gpt-4o-mini",
		},
		Embedder: EmbedderConfig{
			Provider: "openai",
			Model:    "text-embedding-3-small",
		},
		SQLite: SQLiteConfig{
			Path: DefaultDatabaseFile,
		},
		Portal: PortalConfig{
			BaseURL:   "https://oficinajudicialvirtual.pjud.cl",
			Timeout:   30 * time.Second,
			UserAgent: "pjud-tracker/1.0",
		},
		Storage: StorageConfig{
			Provider: StorageLocal,
			Dir:      "originals",
		},
		Reconcile: ReconcileConfig{
			Workers:         4,
			FetchTimeout:    45 * time.Second,
			GenerateTimeout: 90 * time.Second,
			CommitTimeout:   10 * time.Second,
			Scoring:         "weighted",
			Parallel:        4,
		},
		Submit: SubmitConfig{
			MaxAttempts: 3,
			Timeout:     30 * time.Second,
		},
		Log: LogConfig{
			Mode: "dev",
		},
	}
}

// Load loads configuration from the .tracker directory in the given path.
func Load(basePath string) (*Config, error) {
	configFile := ConfigFilePath(basePath)

	data, err := os.ReadFile(configFile)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s (run 'tracker init' first)", configFile)
	}
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Start with defaults
	cfg := Default()

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Apply environment variable overrides
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cfg.resolvePaths(basePath)

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		if c.LLM.APIKey == "" {
			c.LLM.APIKey = key
		}
		if c.Embedder.APIKey == "" {
			c.Embedder.APIKey = key
		}
	}
	if token := os.Getenv("PJUD_SESSION_TOKEN"); token != "" {
		c.Portal.SessionToken = token
	}
	if url := os.Getenv("PJUD_BASE_URL"); url != "" {
		c.Portal.BaseURL = url
	}
	if mode := os.Getenv("TRACKER_LOG_MODE"); mode != "" {
		c.Log.Mode = mode
	}
}

// Validate normalizes bounded values and rejects invalid settings.
func (c *Config) Validate() error {
	switch {
	case c.Reconcile.Workers <= 0:
		c.Reconcile.Workers = 4
	case c.Reconcile.Workers > 5:
		c.Reconcile.Workers = 5
	}
	if c.Reconcile.Parallel <= 0 {
		c.Reconcile.Parallel = 1
	}
	// Suggestion submission is capped at three attempts.
	if c.Submit.MaxAttempts <= 0 || c.Submit.MaxAttempts > 3 {
		c.Submit.MaxAttempts = 3
	}

	switch c.Storage.Provider {
	case "", StorageLocal:
		c.Storage.Provider = StorageLocal
	case StorageGCS:
		if c.Storage.Bucket == "" {
			return errors.New("storage.bucket is required for the gcs provider")
		}
	default:
		return fmt.Errorf("unknown storage provider %q", c.Storage.Provider)
	}

	switch c.Reconcile.Scoring {
	case "", "weighted":
		c.Reconcile.Scoring = "weighted"
	case "embedding":
	default:
		return fmt.Errorf("unknown scoring mode %q", c.Reconcile.Scoring)
	}
	return nil
}

func (c *Config) resolvePaths(basePath string) {
	dir := ConfigDir(basePath)
	if c.SQLite.Path != "" && c.SQLite.Path != ":memory:" && !filepath.IsAbs(c.SQLite.Path) {
		c.SQLite.Path = filepath.Join(dir, c.SQLite.Path)
	}
	if c.Storage.Dir != "" && !filepath.IsAbs(c.Storage.Dir) {
		c.Storage.Dir = filepath.Join(dir, c.Storage.Dir)
	}
}

// ConfigDir returns the path to the .tracker config directory.
func ConfigDir(basePath string) string {
	return filepath.Join(basePath, DefaultConfigDir)
}

// ConfigFilePath returns the path to the config file.
func ConfigFilePath(basePath string) string {
	return filepath.Join(basePath, DefaultConfigDir, DefaultConfigFile)
}
