package game

import (
	"context"

	"tavern/internal/domain/models/game"
)

// Variant names.
const (
	VariantExploration = "exploration"
	VariantCombat      = "combat"
)

// TurnSession is the view of a running session that state variants and tool
// executors operate on during a turn. Implementations serialize turns, so
// methods are called only from the turn executor goroutine.
type TurnSession interface {
	RoomID() string

	// State returns the live game state. Only the turn executor may mutate
	// it; other readers must take a Clone.
	State() *game.GameState

	// Emit publishes an event on the turn's outbound stream. The session
	// itself emits the terminal turn-end.
	Emit(ev game.SessionEvent)

	// InstallGate stages a turn-gate replacement that takes effect after
	// the current turn ends.
	InstallGate(gate TurnGate)

	// StageTransition stages a state-variant change applied at turn end.
	StageTransition(to string)
}

// StateVariant is a game-state variant (Exploration, Combat) that executes
// one turn over the drained player actions, emitting session events as it
// goes. It must not emit turn-end; the session owns that.
type StateVariant interface {
	Name() string
	ProcessActions(ctx context.Context, sess TurnSession, actions []game.PlayerAction) error
}
