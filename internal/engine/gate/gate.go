// Package gate implements the turn-gate admission policies: AllPlayers,
// Restricted, Paused, and Initiative.
package gate

import (
	"fmt"
	"sort"
	"strings"

	"tavern/internal/domain/models/game"
	services "tavern/internal/domain/services/game"
)

// AllPlayers advances the turn once every room member has a buffered action.
type AllPlayers struct{}

func NewAllPlayers() services.TurnGate { return AllPlayers{} }

func (AllPlayers) CanAct(*game.PlayerAction) bool { return true }

func (AllPlayers) CanAdvance(buffered []game.PlayerAction, memberCount int) bool {
	users := make(map[string]struct{}, len(buffered))
	for i := range buffered {
		users[buffered[i].UserID] = struct{}{}
	}
	return memberCount > 0 && len(users) >= memberCount
}

func (AllPlayers) AllowedCharacterIDs() map[string]struct{} { return nil }

func (AllPlayers) Description() string { return "waiting for all players" }

// Restricted admits only the listed characters and advances once all of them
// have acted. Installed by the restrict_action tool.
type Restricted struct {
	allowed map[string]struct{}
	reason  string
}

func NewRestricted(allowedCharacterIDs []string, reason string) services.TurnGate {
	allowed := make(map[string]struct{}, len(allowedCharacterIDs))
	for _, id := range allowedCharacterIDs {
		allowed[id] = struct{}{}
	}
	return &Restricted{allowed: allowed, reason: reason}
}

func (g *Restricted) CanAct(action *game.PlayerAction) bool {
	_, ok := g.allowed[action.CharacterID]
	return ok
}

func (g *Restricted) CanAdvance(buffered []game.PlayerAction, _ int) bool {
	if len(g.allowed) == 0 {
		return false
	}
	acted := make(map[string]struct{}, len(buffered))
	for i := range buffered {
		acted[buffered[i].CharacterID] = struct{}{}
	}
	for id := range g.allowed {
		if _, ok := acted[id]; !ok {
			return false
		}
	}
	return true
}

func (g *Restricted) AllowedCharacterIDs() map[string]struct{} {
	out := make(map[string]struct{}, len(g.allowed))
	for id := range g.allowed {
		out[id] = struct{}{}
	}
	return out
}

func (g *Restricted) Reason() string { return g.reason }

func (g *Restricted) Description() string {
	ids := make([]string, 0, len(g.allowed))
	for id := range g.allowed {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	if g.reason != "" {
		return fmt.Sprintf("restricted to %s (%s)", strings.Join(ids, ", "), g.reason)
	}
	return fmt.Sprintf("restricted to %s", strings.Join(ids, ", "))
}

// Paused admits nothing and never advances.
type Paused struct{}

func NewPaused() services.TurnGate { return Paused{} }

func (Paused) CanAct(*game.PlayerAction) bool           { return false }
func (Paused) CanAdvance([]game.PlayerAction, int) bool { return false }
func (Paused) AllowedCharacterIDs() map[string]struct{} { return map[string]struct{}{} }
func (Paused) Description() string                      { return "paused" }

// Initiative admits only the character whose turn it is and advances as soon
// as that character has acted. Reserved for the combat variant.
type Initiative struct {
	currentCharacterID string
}

func NewInitiative(currentCharacterID string) services.TurnGate {
	return &Initiative{currentCharacterID: currentCharacterID}
}

func (g *Initiative) CanAct(action *game.PlayerAction) bool {
	return action.CharacterID == g.currentCharacterID
}

func (g *Initiative) CanAdvance(buffered []game.PlayerAction, _ int) bool {
	for i := range buffered {
		if buffered[i].CharacterID == g.currentCharacterID {
			return true
		}
	}
	return false
}

func (g *Initiative) AllowedCharacterIDs() map[string]struct{} {
	return map[string]struct{}{g.currentCharacterID: {}}
}

func (g *Initiative) Description() string {
	return fmt.Sprintf("initiative: %s to act", g.currentCharacterID)
}
