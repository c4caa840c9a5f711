package game

import "tavern/internal/domain/models/game"

// TurnGate is the admission policy deciding when buffered actions advance
// the turn and which characters may act. Gates are immutable values; the
// session replaces the whole gate when the policy changes.
type TurnGate interface {
	// CanAct reports whether the gate admits this action into the buffer.
	CanAct(action *game.PlayerAction) bool

	// CanAdvance reports whether the buffered actions satisfy the policy
	// for advancing the turn.
	CanAdvance(buffered []game.PlayerAction, memberCount int) bool

	// AllowedCharacterIDs returns the set of characters that may act, or
	// nil when all may.
	AllowedCharacterIDs() map[string]struct{}

	// Description is a human-readable summary for status views.
	Description() string
}
