// Package actions buffers player actions between turns. One action per user
// is kept; resubmitting replaces the previous action in place.
package actions

import (
	"fmt"
	"sync"

	"tavern/internal/domain"
	"tavern/internal/domain/models/game"
	services "tavern/internal/domain/services/game"
)

// Manager is the per-room action buffer. Add is gated by the room's current
// turn gate; Drain atomically hands the buffered batch to the turn executor.
type Manager struct {
	mu      sync.Mutex
	pending []game.PlayerAction
	index   map[string]int // userID -> position in pending
}

func NewManager() *Manager {
	return &Manager{index: make(map[string]int)}
}

// Add buffers an action after consulting the gate. A second action from the
// same user replaces the first but keeps its submission position, so turn
// ordering reflects who acted first, not who edited last.
func (m *Manager) Add(gate services.TurnGate, action game.PlayerAction) error {
	if !gate.CanAct(&action) {
		return fmt.Errorf("%w: %s may not act (%s)", domain.ErrActionNotAllowed, action.CharacterName, gate.Description())
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if pos, ok := m.index[action.UserID]; ok {
		m.pending[pos] = action
		return nil
	}
	m.index[action.UserID] = len(m.pending)
	m.pending = append(m.pending, action)
	return nil
}

// HasAllActed reports whether the buffered actions satisfy the gate's
// advance policy for a room of memberCount players.
func (m *Manager) HasAllActed(gate services.TurnGate, memberCount int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return gate.CanAdvance(m.pending, memberCount)
}

// Snapshot returns a copy of the buffered actions in submission order.
func (m *Manager) Snapshot() []game.PlayerAction {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]game.PlayerAction, len(m.pending))
	copy(out, m.pending)
	return out
}

// Len reports the number of buffered actions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// DrainIfAdvance drains the buffer only when the gate's advance policy is
// satisfied, in one critical section. Of two concurrent callers at most one
// receives the batch; the other sees the emptied buffer fail the policy and
// starts no turn.
func (m *Manager) DrainIfAdvance(gate services.TurnGate, memberCount int) ([]game.PlayerAction, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !gate.CanAdvance(m.pending, memberCount) {
		return nil, false
	}
	out := m.pending
	m.pending = nil
	m.index = make(map[string]int)
	return out, true
}

// Drain removes and returns all buffered actions. A second Drain before any
// new Add returns an empty batch, so only one caller starts a turn.
func (m *Manager) Drain() []game.PlayerAction {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := m.pending
	m.pending = nil
	m.index = make(map[string]int)
	return out
}
