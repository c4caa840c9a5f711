// Package extractor distills a finished turn into world-context updates via
// a second, cheaper LLM call with the status_update prompt.
package extractor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"tavern/internal/domain/models/game"
	"tavern/internal/prompts"

	services "tavern/internal/domain/services/game"
)

// Updates are classified memory items extracted from one turn.
type Updates struct {
	WorldFacts   []string
	RecentEvents []string
	Flags        map[string]string
}

// Empty reports whether nothing was extracted.
func (u *Updates) Empty() bool {
	return len(u.WorldFacts) == 0 && len(u.RecentEvents) == 0 && len(u.Flags) == 0
}

// Extractor runs the status_update prompt over a turn's inputs and narration.
type Extractor struct {
	provider  services.LLMProvider
	set       *prompts.Set
	model     string
	maxTokens int
	timeout   time.Duration
	logger    *slog.Logger
}

func New(provider services.LLMProvider, set *prompts.Set, model string, maxTokens int, timeout time.Duration, logger *slog.Logger) *Extractor {
	if maxTokens <= 0 {
		maxTokens = 400
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Extractor{
		provider:  provider,
		set:       set,
		model:     model,
		maxTokens: maxTokens,
		timeout:   timeout,
		logger:    logger,
	}
}

// Extract asks the LLM to classify what the turn changed in the world.
func (e *Extractor) Extract(ctx context.Context, turn *game.ConversationTurn) (*Updates, error) {
	system, err := e.set.Get(prompts.StatusUpdate)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	b.WriteString("Player actions:\n")
	if len(turn.UserInputs) == 0 {
		b.WriteString("(none)\n")
	}
	for i := range turn.UserInputs {
		action := &turn.UserInputs[i]
		fmt.Fprintf(&b, "- %s: %s\n", action.CharacterName, action.ActionText)
	}
	b.WriteString("\nDungeon Master narration:\n")
	b.WriteString(turn.AssistantResponse)

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	resp, err := e.provider.Chat(callCtx, []services.Message{
		{Role: services.RoleSystem, Content: system},
		{Role: services.RoleUser, Content: b.String()},
	}, &services.ChatOptions{
		Model:      e.model,
		MaxTokens:  e.maxTokens,
		ToolChoice: services.ToolChoiceNone,
	})
	if err != nil {
		return nil, fmt.Errorf("status update call: %w", err)
	}

	updates, err := parseUpdates(resp.Content)
	if err != nil {
		return nil, fmt.Errorf("parse status update: %w", err)
	}
	return updates, nil
}

type memoryItem struct {
	Kind  string `yaml:"kind"`
	Text  string `yaml:"text"`
	Key   string `yaml:"key"`
	Value string `yaml:"value"`
}

// parseUpdates reads the YAML item list the prompt asks for. Unknown kinds
// and empty items are skipped rather than failing the whole batch.
func parseUpdates(content string) (*Updates, error) {
	body := stripCodeFence(content)
	if body == "" {
		return &Updates{}, nil
	}

	var items []memoryItem
	if err := yaml.Unmarshal([]byte(body), &items); err != nil {
		return nil, err
	}

	updates := &Updates{}
	for _, item := range items {
		switch strings.ToUpper(strings.TrimSpace(item.Kind)) {
		case "LT":
			if item.Text != "" {
				updates.WorldFacts = append(updates.WorldFacts, item.Text)
			}
		case "ST":
			if item.Text != "" {
				updates.RecentEvents = append(updates.RecentEvents, item.Text)
			}
		case "FLAG":
			if item.Key != "" {
				if updates.Flags == nil {
					updates.Flags = make(map[string]string)
				}
				updates.Flags[item.Key] = item.Value
			}
		}
	}
	return updates, nil
}

// stripCodeFence unwraps a ```yaml ... ``` fenced response, which models
// emit even when asked not to.
func stripCodeFence(content string) string {
	body := strings.TrimSpace(content)
	if !strings.HasPrefix(body, "```") {
		return body
	}
	body = strings.TrimPrefix(body, "```")
	if i := strings.Index(body, "\n"); i >= 0 {
		body = body[i+1:]
	}
	if i := strings.LastIndex(body, "```"); i >= 0 {
		body = body[:i]
	}
	return strings.TrimSpace(body)
}
