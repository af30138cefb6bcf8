// Package config loads and manages hasi configuration.
// Configuration source priority (highest to lowest):
// 1. Command-line flags (applied by cmd)
// 2. Environment variables (LLM_API_KEY, GOOGLE_API_KEY, HASI_PROVIDER, PORT, etc.),
// including those read from a .env file in the working directory
// 3. Config file path specified via --config flag
// 4. ~/.config/hasi/config.yaml
package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

//go:embed providers_default.yaml
var defaultProvidersYAML []byte

// ProviderDefaults holds the default base URL and model for a provider.
type ProviderDefaults struct {
	BaseURL      string `yaml:"base_url"`
	DefaultModel string `yaml:"default_model"`
}

// LoadProviderDefaults parses the embedded defaults and merges any user
// overrides from ~/.config/hasi/providers.yaml.
func LoadProviderDefaults() map[string]ProviderDefaults {
	defs := make(map[string]ProviderDefaults)
	_ = yaml.Unmarshal(defaultProvidersYAML, &defs)

	dir, err := Dir()
	if err == nil {
		if data, err := os.ReadFile(filepath.Join(dir, "providers.yaml")); err == nil {
			userDefs := make(map[string]ProviderDefaults)
			if yaml.Unmarshal(data, &userDefs) == nil {
				for name, ud := range userDefs {
					d := defs[name]
					if ud.BaseURL != "" {
						d.BaseURL = ud.BaseURL
					}
					if ud.DefaultModel != "" {
						d.DefaultModel = ud.DefaultModel
					}
					defs[name] = d
				}
			}
		}
	}
	return defs
}

// ProviderConfig holds configuration for a single provider.
type ProviderConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// BackupConfig selects a secondary store that mirrors every save.
type BackupConfig struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
}

// StorageConfig holds conversation store settings.
type StorageConfig struct {
	// Backend: "json" (default) | "sqlite" | "bolt"
	Backend string `yaml:"backend"`

	// Path of the store file. Empty = ~/.local/share/hasi/conversations.<ext>
	Path string `yaml:"path"`

	// ResetOnCorrupt starts with an empty document when the stored one cannot
	// be parsed. The bad file is left in place and overwritten on the next save.
	ResetOnCorrupt bool `yaml:"reset_on_corrupt"`

	// Backup is optional; nil disables mirroring.
	Backup *BackupConfig `yaml:"backup"`
}

// ContextConfig controls how much history is sent to the model.
type ContextConfig struct {
	MaxMessages int `yaml:"max_messages"`
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// VideoConfig holds settings for video search suggestions.
type VideoConfig struct {
	Enabled    bool `yaml:"enabled"`
	MaxResults int  `yaml:"max_results"`
	TimeoutSec int  `yaml:"timeout_sec"`
}

// LogConfig holds structured logging settings.
type LogConfig struct {
	// Level: "debug" | "info" (default) | "warn" | "error"
	Level string `yaml:"level"`
	// Format: "text" (default) | "json"
	Format string `yaml:"format"`
}

// Config is the complete configuration structure for hasi.
type Config struct {
	// Provider is the active provider name (e.g. "gemini", "anthropic", "openai")
	Provider string `yaml:"provider"`

	// Model overrides the provider's default model.
	Model string `yaml:"model"`

	// Providers holds per-provider configuration.
	Providers map[string]*ProviderConfig `yaml:"providers"`

	// AssistantName is how the assistant refers to itself in prompts.
	AssistantName string `yaml:"assistant_name"`

	// SystemPrompt is a custom persona line (empty uses default).
	SystemPrompt string `yaml:"system_prompt"`

	// RequestTimeoutSec bounds a single model call. 0 = no timeout.
	RequestTimeoutSec int `yaml:"request_timeout_sec"`

	// MaxRetries is passed to the provider SDK client.
	MaxRetries int `yaml:"max_retries"`

	Storage StorageConfig `yaml:"storage"`
	Context ContextConfig `yaml:"context"`
	Server  ServerConfig  `yaml:"server"`
	Video   VideoConfig   `yaml:"video"`
	Log     LogConfig     `yaml:"log"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Provider:          "gemini",
		Providers:         make(map[string]*ProviderConfig),
		AssistantName:     "Hasi",
		RequestTimeoutSec: 60,
		MaxRetries:        2,
		Storage: StorageConfig{
			Backend:        "json",
			ResetOnCorrupt: true,
		},
		Context: ContextConfig{MaxMessages: 10},
		Server:  ServerConfig{Addr: ":5000"},
		Video: VideoConfig{
			Enabled:    true,
			MaxResults: 3,
			TimeoutSec: 10,
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// Dir returns the configuration directory (~/.config/hasi).
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "hasi"), nil
}

// DefaultPath returns ~/.config/hasi/config.yaml.
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load reads the config file and merges environment variable overrides.
// A .env file in the working directory is read first; variables already set
// in the process environment win over it.
func Load(configPath string) (*Config, error) {
	_ = godotenv.Load()

	cfg := DefaultConfig()

	// Determine config file path
	if configPath == "" {
		if p, err := DefaultPath(); err == nil {
			configPath = p
		}
	}

	// Read config file (use defaults if not found)
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
		}
	}

	// Initialize providers map
	if cfg.Providers == nil {
		cfg.Providers = make(map[string]*ProviderConfig)
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings no component can work with.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case "", "json", "sqlite", "bolt":
	default:
		return fmt.Errorf("storage.backend %q: want json, sqlite or bolt", c.Storage.Backend)
	}
	if b := c.Storage.Backup; b != nil {
		switch b.Backend {
		case "", "json", "sqlite", "bolt":
		default:
			return fmt.Errorf("storage.backup.backend %q: want json, sqlite or bolt", b.Backend)
		}
	}
	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level %q: want debug, info, warn or error", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("log.format %q: want text or json", c.Log.Format)
	}
	if c.Context.MaxMessages < 0 {
		return fmt.Errorf("context.max_messages must not be negative, got %d", c.Context.MaxMessages)
	}
	return nil
}

// GetProviderConfig returns the config for the named provider, or an empty config if not found.
func (c *Config) GetProviderConfig(name string) *ProviderConfig {
	if pc, ok := c.Providers[name]; ok && pc != nil {
		return pc
	}
	return &ProviderConfig{}
}

var (
	// KnownProviderBaseURLs maps well-known provider names to their base URLs.
	// Populated from providers_default.yaml (embedded) + user overrides.
	KnownProviderBaseURLs map[string]string

	// KnownProviderModels maps well-known provider names to their default models.
	// Populated from providers_default.yaml (embedded) + user overrides.
	KnownProviderModels map[string]string
)

func init() {
	defs := LoadProviderDefaults()
	KnownProviderBaseURLs = make(map[string]string, len(defs))
	KnownProviderModels = make(map[string]string, len(defs))
	for name, d := range defs {
		if d.BaseURL != "" {
			KnownProviderBaseURLs[name] = d.BaseURL
		}
		if d.DefaultModel != "" {
			KnownProviderModels[name] = d.DefaultModel
		}
	}
}

// IsKnownProvider reports whether name appears in the provider defaults.
func IsKnownProvider(name string) bool {
	_, ok := KnownProviderModels[name]
	return ok
}

// SaveProviderToFile persists a single provider's config and the active provider
// name into path (default ~/.config/hasi/config.yaml), preserving all other user settings.
func SaveProviderToFile(path, providerName string, pc ProviderConfig) error {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return fmt.Errorf("cannot determine home directory: %w", err)
		}
		path = p
	}

	// Read existing file into a generic map to preserve unknown fields.
	raw := make(map[string]any)
	if data, err := os.ReadFile(path); err == nil {
		_ = yaml.Unmarshal(data, &raw) // ignore errors; start fresh if corrupt
	}

	providers, _ := raw["providers"].(map[string]any)
	if providers == nil {
		providers = make(map[string]any)
	}

	entry := map[string]any{
		"api_key": pc.APIKey,
	}
	if pc.BaseURL != "" {
		entry["base_url"] = pc.BaseURL
	}
	if pc.Model != "" {
		entry["model"] = pc.Model
	}
	providers[providerName] = entry
	raw["providers"] = providers

	// Set active provider and clear stale global model override.
	raw["provider"] = providerName
	delete(raw, "model")

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	data, err := yaml.Marshal(raw)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) providerEntry(name string) *ProviderConfig {
	if c.Providers[name] == nil {
		c.Providers[name] = &ProviderConfig{}
	}
	return c.Providers[name]
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(cfg *Config) {
	// Provider selection first so the generic keys below land on it.
	if v := os.Getenv("HASI_PROVIDER"); v != "" {
		cfg.Provider = v
	}

	// Vendor-specific keys
	if v := os.Getenv("GOOGLE_API_KEY"); v != "" {
		cfg.providerEntry("gemini").APIKey = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.providerEntry("openai").APIKey = v
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		cfg.providerEntry("anthropic").APIKey = v
	}

	// Generic overrides
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		cfg.providerEntry(cfg.Provider).APIKey = v
	}
	if v := os.Getenv("LLM_BASE_URL"); v != "" {
		cfg.providerEntry(cfg.Provider).BaseURL = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		cfg.Model = v
	}
	if v := os.Getenv("HASI_MODEL"); v != "" {
		cfg.Model = v
	}

	// Storage
	if v := os.Getenv("HASI_STORE_BACKEND"); v != "" {
		cfg.Storage.Backend = v
	}
	if v := os.Getenv("HASI_STORE_PATH"); v != "" {
		cfg.Storage.Path = v
	}

	// Server
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Addr = ":" + strings.TrimPrefix(v, ":")
	}
}
