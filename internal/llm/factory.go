// Package llm selects and constructs the configured LLM provider.
package llm

import (
	"fmt"

	"tavern/internal/config"
	"tavern/internal/llm/providers/anthropic"
	"tavern/internal/llm/providers/scripted"

	services "tavern/internal/domain/services/game"
)

// NewProvider builds the provider named by DEFAULT_PROVIDER. The scripted
// provider runs without credentials and narrates a fixed placeholder, which
// is enough for local development without an API key.
func NewProvider(cfg *config.Config) (services.LLMProvider, error) {
	switch cfg.DefaultProvider {
	case "anthropic":
		return anthropic.New(anthropic.Config{
			APIKey:       cfg.AnthropicAPIKey,
			DefaultModel: cfg.LLMModel,
		})

	case "scripted":
		return scripted.New(scripted.Response{
			Chunks: []string{"The tavern hums with low conversation as the party gathers."},
		}), nil

	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.DefaultProvider)
	}
}
