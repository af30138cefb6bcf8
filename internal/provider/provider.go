// Package provider adapts LLM vendor SDKs to the single-shot text generation
// the chat service needs. Each adapter (openai.go, anthropic.go) implements
// the Provider interface.
package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hasiraza/LLM-Ethicallogix/internal/config"
)

// ErrEmptyCompletion is returned when the vendor answers without any text.
var ErrEmptyCompletion = errors.New("model returned an empty completion")

// Provider is the unified interface for all LLM providers.
type Provider interface {
	// Generate sends prompt as a single user turn and returns the reply text.
	Generate(ctx context.Context, prompt string) (string, error)

	// Name returns the provider identifier, e.g. "gemini", "anthropic", "openai".
	Name() string

	// DefaultModel returns the model requests are sent to.
	DefaultModel() string
}

// Options are the transport settings shared by every adapter.
type Options struct {
	APIKey     string
	BaseURL    string
	Model      string
	Timeout    time.Duration
	MaxRetries int
	// MaxTokens caps the reply length. 0 = adapter default.
	MaxTokens int
}

// Build creates a Provider instance based on configuration.
func Build(cfg *config.Config) (Provider, error) {
	name := cfg.Provider
	pc := cfg.GetProviderConfig(name)

	apiKey := pc.APIKey
	if apiKey == "" {
		return nil, fmt.Errorf(
			"API key not configured for provider %q.\n"+
				"Set it via:\n"+
				"  - config file: providers.%s.api_key\n"+
				"  - environment: LLM_API_KEY (or GOOGLE_API_KEY for gemini)\n"+
				"  - run: hasi init",
			name, name,
		)
	}

	// Determine model: CLI flag > config file > provider defaults YAML
	model := cfg.Model
	if pc.Model != "" && model == "" {
		model = pc.Model
	}
	if model == "" {
		model = config.KnownProviderModels[name]
	}

	opts := Options{
		APIKey:     apiKey,
		BaseURL:    pc.BaseURL,
		Model:      model,
		Timeout:    time.Duration(cfg.RequestTimeoutSec) * time.Second,
		MaxRetries: cfg.MaxRetries,
	}

	switch name {
	case "anthropic":
		return NewAnthropicProvider(opts), nil
	default:
		// All other providers use OpenAI-compatible API
		if opts.BaseURL == "" {
			if u, ok := config.KnownProviderBaseURLs[name]; ok {
				opts.BaseURL = u
			} else if !config.IsKnownProvider(name) {
				return nil, fmt.Errorf("unknown provider %q; set providers.%s.base_url in config", name, name)
			}
		}
		return NewOpenAIProvider(opts), nil
	}
}
