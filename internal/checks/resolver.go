// Package checks resolves ability checks, saving throws, and group checks
// against DCs using the dice engine and per-character modifiers from game
// state.
package checks

import (
	"fmt"

	"tavern/internal/dice"
	"tavern/internal/domain"
	"tavern/internal/domain/models/game"
)

// Resolver rolls checks for characters in a game state. It holds no state of
// its own beyond the random source; the GameState is passed per call so the
// resolver can be shared across turns.
type Resolver struct {
	rng dice.RNG
}

// NewResolver creates a resolver over the given random source.
func NewResolver(rng dice.RNG) *Resolver {
	return &Resolver{rng: rng}
}

// Request describes a single-character check.
type Request struct {
	CharacterID string
	Ability     game.Ability
	DC          int
	Proficient  bool
	Reason      string
}

// AbilityCheck rolls d20 + ability modifier (+ proficiency when requested)
// against the DC.
func (r *Resolver) AbilityCheck(state *game.GameState, req Request) (*game.DiceRollEvent, error) {
	return r.resolve(state, req, game.CheckTypeAbility)
}

// SavingThrow has the same mechanics as an ability check under a different
// semantic label.
func (r *Resolver) SavingThrow(state *game.GameState, req Request) (*game.DiceRollEvent, error) {
	return r.resolve(state, req, game.CheckTypeSavingThrow)
}

// GroupCheck rolls the check for every listed character; the group succeeds
// when a majority of individual checks succeed. The returned event carries
// the combined roll list and the collective outcome.
func (r *Resolver) GroupCheck(state *game.GameState, characterIDs []string, ability game.Ability, dc int, reason string) (*game.DiceRollEvent, error) {
	if len(characterIDs) == 0 {
		return nil, fmt.Errorf("%w: group check needs at least one character", domain.ErrInvalidToolArguments)
	}

	var (
		totals    []int
		successes int
	)
	for _, id := range characterIDs {
		ev, err := r.resolve(state, Request{
			CharacterID: id,
			Ability:     ability,
			DC:          dc,
			Reason:      reason,
		}, game.CheckTypeAbility)
		if err != nil {
			return nil, err
		}
		totals = append(totals, ev.Roll.Total)
		if ev.Success {
			successes++
		}
	}

	// Rolls holds the per-character totals; Total holds the success count.
	return &game.DiceRollEvent{
		CheckType:     game.CheckTypeGroup,
		CharacterID:   characterIDs[0],
		CharacterName: fmt.Sprintf("%d characters", len(characterIDs)),
		Ability:       ability,
		DC:            dc,
		Roll: game.DiceRoll{
			Formula: "d20",
			Rolls:   totals,
			Total:   successes,
		},
		Success: successes*2 > len(characterIDs),
		Reason:  reason,
	}, nil
}

func (r *Resolver) resolve(state *game.GameState, req Request, checkType string) (*game.DiceRollEvent, error) {
	cs := state.Character(req.CharacterID)
	if cs == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownCharacter, req.CharacterID)
	}

	modifier := cs.Modifier(req.Ability)
	if req.Proficient {
		modifier += cs.ProficiencyBonus
	}

	formula := fmt.Sprintf("d20%+d", modifier)
	if modifier == 0 {
		formula = "d20"
	}
	roll, err := dice.Roll(r.rng, formula)
	if err != nil {
		return nil, err
	}

	return &game.DiceRollEvent{
		CheckType:     checkType,
		CharacterID:   cs.CharacterID,
		CharacterName: cs.CharacterName,
		Ability:       req.Ability,
		DC:            req.DC,
		Roll:          *roll,
		Success:       roll.Total >= req.DC,
		Reason:        req.Reason,
	}, nil
}
