// Package contextbuild composes the LLM conversation for a turn from an
// ordered pipeline of providers, each contributing one tagged block.
package contextbuild

import (
	"fmt"

	"tavern/internal/domain"
	"tavern/internal/domain/models/game"
	"tavern/internal/prompts"

	services "tavern/internal/domain/services/game"
)

// Input is everything a provider may draw on. Builders never mutate it.
type Input struct {
	State   *game.GameState
	Actions []game.PlayerAction
	History []game.ConversationTurn
	// Notes maps characterID to free-form player notes shown to the DM.
	Notes map[string]string
}

// Provider contributes one tagged block to the composed context. An empty
// block is skipped; an error aborts the build.
type Provider interface {
	Name() string
	Provide(in *Input) (string, error)
}

// Builder runs the provider pipeline in a fixed order and returns messages
// ready for the LLM port: the system-prompt block as the system message, all
// remaining blocks joined into the opening user message. Deterministic for a
// given input.
type Builder struct {
	providers []Provider
}

// NewBuilder assembles the standard pipeline: system prompt, world context,
// module context, character profiles, player notes, game rules, recent
// history, and the current-turn user input.
func NewBuilder(set *prompts.Set, historyLimit int) *Builder {
	return &Builder{providers: []Provider{
		&systemPromptProvider{set: set},
		&worldContextProvider{},
		&moduleContextProvider{},
		&characterProfilesProvider{},
		&playerNotesProvider{},
		&gameRulesProvider{set: set},
		&historyProvider{limit: historyLimit},
		&userInputProvider{},
	}}
}

// Build runs every provider over the input and composes the messages.
func (b *Builder) Build(in *Input) ([]services.Message, error) {
	var system string
	var body string

	for i, p := range b.providers {
		block, err := p.Provide(in)
		if err != nil {
			return nil, fmt.Errorf("%w: provider %s: %v", domain.ErrContextBuild, p.Name(), err)
		}
		if block == "" {
			continue
		}
		if i == 0 {
			system = block
			continue
		}
		if body != "" {
			body += "\n\n"
		}
		body += block
	}

	messages := make([]services.Message, 0, 2)
	if system != "" {
		messages = append(messages, services.Message{Role: services.RoleSystem, Content: system})
	}
	messages = append(messages, services.Message{Role: services.RoleUser, Content: body})
	return messages, nil
}
