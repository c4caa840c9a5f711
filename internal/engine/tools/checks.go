package tools

import (
	"context"
	"fmt"

	"tavern/internal/checks"
	"tavern/internal/domain"
	"tavern/internal/domain/models/game"
	services "tavern/internal/domain/services/game"
)

// AbilityCheckTool resolves request_ability_check: rolls the check against
// the session's live state and emits the dice-roll event in call order.
type AbilityCheckTool struct {
	sess     services.TurnSession
	resolver *checks.Resolver
}

func NewAbilityCheckTool(sess services.TurnSession, resolver *checks.Resolver) *AbilityCheckTool {
	return &AbilityCheckTool{sess: sess, resolver: resolver}
}

func (t *AbilityCheckTool) Execute(_ context.Context, input map[string]any) (any, error) {
	req, err := checkRequest(input)
	if err != nil {
		return nil, err
	}

	ev, err := t.resolver.AbilityCheck(t.sess.State(), req)
	if err != nil {
		return nil, err
	}
	t.sess.Emit(game.NewDiceRollEvent(ev))
	return rollPayload(ev), nil
}

// SavingThrowTool resolves request_saving_throw.
type SavingThrowTool struct {
	sess     services.TurnSession
	resolver *checks.Resolver
}

func NewSavingThrowTool(sess services.TurnSession, resolver *checks.Resolver) *SavingThrowTool {
	return &SavingThrowTool{sess: sess, resolver: resolver}
}

func (t *SavingThrowTool) Execute(_ context.Context, input map[string]any) (any, error) {
	req, err := checkRequest(input)
	if err != nil {
		return nil, err
	}

	ev, err := t.resolver.SavingThrow(t.sess.State(), req)
	if err != nil {
		return nil, err
	}
	t.sess.Emit(game.NewDiceRollEvent(ev))
	return rollPayload(ev), nil
}

// GroupCheckTool resolves request_group_check over a character list.
type GroupCheckTool struct {
	sess     services.TurnSession
	resolver *checks.Resolver
}

func NewGroupCheckTool(sess services.TurnSession, resolver *checks.Resolver) *GroupCheckTool {
	return &GroupCheckTool{sess: sess, resolver: resolver}
}

func (t *GroupCheckTool) Execute(_ context.Context, input map[string]any) (any, error) {
	ids, err := stringSliceArg(input, "characterIds")
	if err != nil {
		return nil, err
	}
	ability, err := abilityArg(input)
	if err != nil {
		return nil, err
	}
	dc, err := intArg(input, "dc")
	if err != nil {
		return nil, err
	}

	ev, err := t.resolver.GroupCheck(t.sess.State(), ids, ability, dc, stringArg(input, "reason"))
	if err != nil {
		return nil, err
	}
	t.sess.Emit(game.NewDiceRollEvent(ev))

	return map[string]any{
		"checkType":    ev.CheckType,
		"characterIds": ids,
		"ability":      ev.Ability,
		"dc":           ev.DC,
		"totals":       ev.Roll.Rolls,
		"successes":    ev.Roll.Total,
		"success":      ev.Success,
	}, nil
}

func checkRequest(input map[string]any) (checks.Request, error) {
	characterID := stringArg(input, "characterId")
	if characterID == "" {
		return checks.Request{}, fmt.Errorf("%w: characterId is required", domain.ErrInvalidToolArguments)
	}
	ability, err := abilityArg(input)
	if err != nil {
		return checks.Request{}, err
	}
	dc, err := intArg(input, "dc")
	if err != nil {
		return checks.Request{}, err
	}

	proficient, _ := input["proficient"].(bool)
	return checks.Request{
		CharacterID: characterID,
		Ability:     ability,
		DC:          dc,
		Proficient:  proficient,
		Reason:      stringArg(input, "reason"),
	}, nil
}

func rollPayload(ev *game.DiceRollEvent) map[string]any {
	return map[string]any{
		"checkType":   ev.CheckType,
		"characterId": ev.CharacterID,
		"ability":     ev.Ability,
		"dc":          ev.DC,
		"rolls":       ev.Roll.Rolls,
		"modifier":    ev.Roll.Modifier,
		"total":       ev.Roll.Total,
		"success":     ev.Success,
	}
}

// Argument extraction after schema validation. The schema guarantees types
// and required fields; these helpers just bridge JSON's decoded forms.

func stringArg(input map[string]any, key string) string {
	s, _ := input[key].(string)
	return s
}

func intArg(input map[string]any, key string) (int, error) {
	f, ok := input[key].(float64)
	if !ok {
		return 0, fmt.Errorf("%w: %s must be an integer", domain.ErrInvalidToolArguments, key)
	}
	return int(f), nil
}

func stringSliceArg(input map[string]any, key string) ([]string, error) {
	raw, ok := input[key].([]any)
	if !ok || len(raw) == 0 {
		return nil, fmt.Errorf("%w: %s must be a non-empty array", domain.ErrInvalidToolArguments, key)
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("%w: %s must contain strings", domain.ErrInvalidToolArguments, key)
		}
		out = append(out, s)
	}
	return out, nil
}

func abilityArg(input map[string]any) (game.Ability, error) {
	ability, err := game.ParseAbility(stringArg(input, "ability"))
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrInvalidToolArguments, err)
	}
	return ability, nil
}
