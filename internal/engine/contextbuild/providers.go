package contextbuild

import (
	"fmt"
	"sort"
	"strings"

	"tavern/internal/domain/models/game"
	"tavern/internal/prompts"
)

func block(tag, body string) string {
	body = strings.TrimSpace(body)
	if body == "" {
		return ""
	}
	return fmt.Sprintf("[%s]\n%s\n[/%s]", tag, body, tag)
}

type systemPromptProvider struct {
	set *prompts.Set
}

func (p *systemPromptProvider) Name() string { return "system_prompt" }

func (p *systemPromptProvider) Provide(_ *Input) (string, error) {
	body, err := p.set.Get(prompts.SystemPrompt)
	if err != nil {
		return "", err
	}
	return block("SYSTEM_PROMPT", body), nil
}

type worldContextProvider struct{}

func (worldContextProvider) Name() string { return "world_context" }

func (worldContextProvider) Provide(in *Input) (string, error) {
	world := in.State.World
	if world == nil {
		return "", nil
	}

	var b strings.Builder
	if len(world.WorldFacts) > 0 {
		b.WriteString("Established facts:\n")
		for _, fact := range world.WorldFacts {
			fmt.Fprintf(&b, "- %s\n", fact)
		}
	}
	if len(world.RecentEvents) > 0 {
		b.WriteString("Recent events (oldest first):\n")
		for _, ev := range world.RecentEvents {
			fmt.Fprintf(&b, "- %s\n", ev)
		}
	}
	if len(world.Flags) > 0 {
		keys := make([]string, 0, len(world.Flags))
		for k := range world.Flags {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString("Story flags:\n")
		for _, k := range keys {
			fmt.Fprintf(&b, "- %s = %s\n", k, world.Flags[k])
		}
	}
	return block("WORLD_CONTEXT", b.String()), nil
}

type moduleContextProvider struct{}

func (moduleContextProvider) Name() string { return "module_context" }

func (moduleContextProvider) Provide(in *Input) (string, error) {
	var b strings.Builder
	if in.State.ModuleName != "" {
		fmt.Fprintf(&b, "Adventure module: %s\n", in.State.ModuleName)
	}
	if in.State.Location != "" {
		fmt.Fprintf(&b, "Current location: %s\n", in.State.Location)
	}
	for _, enc := range in.State.ActiveEncounters {
		fmt.Fprintf(&b, "Active encounter: %s\n", enc)
	}
	return block("MODULE_CONTEXT", b.String()), nil
}

type characterProfilesProvider struct{}

func (characterProfilesProvider) Name() string { return "character_profiles" }

func (characterProfilesProvider) Provide(in *Input) (string, error) {
	ids := make([]string, 0, len(in.State.CharacterStates))
	for id := range in.State.CharacterStates {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var b strings.Builder
	for _, id := range ids {
		cs := in.State.CharacterStates[id]
		fmt.Fprintf(&b, "%s (id: %s)\n", cs.CharacterName, cs.CharacterID)
		fmt.Fprintf(&b, "  HP: %d (temp %d), proficiency bonus: %+d\n", cs.CurrentHP, cs.TemporaryHP, cs.ProficiencyBonus)
		if len(cs.AbilityModifiers) > 0 {
			b.WriteString("  Ability modifiers: ")
			b.WriteString(formatModifiers(cs.AbilityModifiers))
			b.WriteString("\n")
		}
		if len(cs.Conditions) > 0 {
			fmt.Fprintf(&b, "  Conditions: %s\n", strings.Join(cs.Conditions, ", "))
		}
		if len(cs.ActiveBuffs) > 0 {
			fmt.Fprintf(&b, "  Active buffs: %s\n", strings.Join(cs.ActiveBuffs, ", "))
		}
		if len(cs.KnownSpells) > 0 {
			fmt.Fprintf(&b, "  Known spells: %s\n", strings.Join(cs.KnownSpells, ", "))
		}
		for _, cond := range in.State.CharacterOverlays[id] {
			if cond.Reason != "" {
				fmt.Fprintf(&b, "  Currently %s (%s)\n", cond.Name, cond.Reason)
			} else {
				fmt.Fprintf(&b, "  Currently %s\n", cond.Name)
			}
		}
	}
	return block("CHARACTERS", b.String()), nil
}

// Modifiers print in the canonical STR..CHA order.
var abilityOrder = []game.Ability{
	game.AbilitySTR, game.AbilityDEX, game.AbilityCON,
	game.AbilityINT, game.AbilityWIS, game.AbilityCHA,
}

func formatModifiers(mods map[game.Ability]int) string {
	parts := make([]string, 0, len(mods))
	for _, a := range abilityOrder {
		if v, ok := mods[a]; ok {
			parts = append(parts, fmt.Sprintf("%s %+d", a, v))
		}
	}
	return strings.Join(parts, ", ")
}

type playerNotesProvider struct{}

func (playerNotesProvider) Name() string { return "player_notes" }

func (playerNotesProvider) Provide(in *Input) (string, error) {
	if len(in.Notes) == 0 {
		return "", nil
	}

	ids := make([]string, 0, len(in.Notes))
	for id := range in.Notes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var b strings.Builder
	for _, id := range ids {
		note := strings.TrimSpace(in.Notes[id])
		if note == "" {
			continue
		}
		fmt.Fprintf(&b, "%s: %s\n", id, note)
	}
	return block("PLAYER_NOTES", b.String()), nil
}

type gameRulesProvider struct {
	set *prompts.Set
}

func (p *gameRulesProvider) Name() string { return "game_rules" }

func (p *gameRulesProvider) Provide(_ *Input) (string, error) {
	body, err := p.set.Get(prompts.GameRules)
	if err != nil {
		return "", err
	}
	return block("GAME_RULES", body), nil
}

type historyProvider struct {
	limit int
}

func (historyProvider) Name() string { return "recent_history" }

func (p *historyProvider) Provide(in *Input) (string, error) {
	history := in.History
	if p.limit > 0 && len(history) > p.limit {
		history = history[len(history)-p.limit:]
	}
	if len(history) == 0 {
		return "", nil
	}

	var b strings.Builder
	for _, turn := range history {
		for _, action := range turn.UserInputs {
			fmt.Fprintf(&b, "%s: %s\n", actionSpeaker(&action), action.ActionText)
		}
		if turn.AssistantResponse != "" {
			fmt.Fprintf(&b, "DM: %s\n", turn.AssistantResponse)
		}
	}
	return block("RECENT_HISTORY", b.String()), nil
}

type userInputProvider struct{}

func (userInputProvider) Name() string { return "user_input" }

func (userInputProvider) Provide(in *Input) (string, error) {
	if len(in.Actions) == 0 {
		// Manual advance: the DM still narrates one beat.
		return block("PLAYER_ACTIONS", "(The party takes no action. Continue the scene.)"), nil
	}

	var b strings.Builder
	for i := range in.Actions {
		action := &in.Actions[i]
		fmt.Fprintf(&b, "%s: %s\n", actionSpeaker(action), action.ActionText)
	}
	return block("PLAYER_ACTIONS", b.String()), nil
}

func actionSpeaker(action *game.PlayerAction) string {
	if action.CharacterName != "" && action.Username != "" {
		return fmt.Sprintf("%s (%s)", action.CharacterName, action.Username)
	}
	if action.CharacterName != "" {
		return action.CharacterName
	}
	return action.Username
}
