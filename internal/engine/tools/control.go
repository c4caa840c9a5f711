package tools

import (
	"context"
	"fmt"

	"tavern/internal/domain"
	"tavern/internal/domain/models/game"
	"tavern/internal/engine/gate"

	services "tavern/internal/domain/services/game"
)

// StartCombatTool resolves start_combat: emits a state-transition event and
// stages the variant change for turn end. The combat variant itself is not
// implemented yet; the session decides what staging to Combat means.
type StartCombatTool struct {
	sess services.TurnSession
}

func NewStartCombatTool(sess services.TurnSession) *StartCombatTool {
	return &StartCombatTool{sess: sess}
}

func (t *StartCombatTool) Execute(_ context.Context, input map[string]any) (any, error) {
	brief := stringArg(input, "encounterBrief")
	if brief == "" {
		return nil, fmt.Errorf("%w: encounterBrief is required", domain.ErrInvalidToolArguments)
	}

	state := t.sess.State()
	state.ActiveEncounters = append(state.ActiveEncounters, brief)
	state.Touch()

	t.sess.Emit(game.NewStateTransitionEvent(services.VariantExploration, services.VariantCombat))
	t.sess.StageTransition(services.VariantCombat)

	return map[string]any{
		"transition":     services.VariantCombat,
		"encounterBrief": brief,
	}, nil
}

// RestrictActionTool resolves restrict_action: emits an action-restriction
// event and installs a Restricted gate that takes effect after this turn.
type RestrictActionTool struct {
	sess services.TurnSession
}

func NewRestrictActionTool(sess services.TurnSession) *RestrictActionTool {
	return &RestrictActionTool{sess: sess}
}

func (t *RestrictActionTool) Execute(_ context.Context, input map[string]any) (any, error) {
	allowed, err := stringSliceArg(input, "allowedCharacterIds")
	if err != nil {
		return nil, err
	}
	reason := stringArg(input, "reason")

	t.sess.Emit(game.NewActionRestrictionEvent(allowed, reason))
	t.sess.InstallGate(gate.NewRestricted(allowed, reason))

	return map[string]any{
		"allowedCharacterIds": allowed,
		"reason":              reason,
	}, nil
}
