// Package rooms manages room lifecycle and the coupling between player
// submissions, the turn gate, and the session's turn executor.
package rooms

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"tavern/internal/config"
	"tavern/internal/domain"
	"tavern/internal/domain/models/game"
	"tavern/internal/engine/actions"
	"tavern/internal/engine/gate"
	"tavern/internal/engine/session"
)

// Status is the room lifecycle state. Only StatusInGame permits turns.
type Status string

const (
	StatusOpen      Status = "open"
	StatusReady     Status = "ready"
	StatusInGame    Status = "in_game"
	StatusSuspended Status = "suspended"
)

// Member is a player seated in a room, bound to one character.
type Member struct {
	UserID        string `json:"user_id"`
	Username      string `json:"username"`
	CharacterID   string `json:"character_id"`
	CharacterName string `json:"character_name"`
	Notes         string `json:"notes,omitempty"`
}

// Room couples a session, an action buffer, and a member roster.
type Room struct {
	ID         string
	Name       string
	ModuleName string
	CreatedAt  time.Time

	mu         sync.Mutex
	status     Status
	members    map[string]*Member // userID -> member
	turnCancel context.CancelFunc

	session *session.Session
	actions *actions.Manager
	logger  *slog.Logger
}

func newRoom(id, name, moduleName string, sess *session.Session, logger *slog.Logger) *Room {
	return &Room{
		ID:         id,
		Name:       name,
		ModuleName: moduleName,
		CreatedAt:  time.Now(),
		status:     StatusOpen,
		members:    make(map[string]*Member),
		session:    sess,
		actions:    actions.NewManager(),
		logger:     logger.With("room_id", id),
	}
}

// Status returns the current lifecycle state.
func (r *Room) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// Members returns a copy of the roster.
func (r *Room) Members() []Member {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Member, 0, len(r.members))
	for _, m := range r.members {
		out = append(out, *m)
	}
	return out
}

// Session exposes the room's session for streaming and snapshots.
func (r *Room) Session() *session.Session { return r.session }

// Join seats a user with their character. Allowed while Open or Ready; a
// seated user may rebind their character before the game starts.
func (r *Room) Join(member Member) error {
	if member.UserID == "" || member.CharacterID == "" {
		return &domain.ValidationError{Message: "user and character are required to join"}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	switch r.status {
	case StatusOpen, StatusReady:
	default:
		return &domain.ConflictError{Message: fmt.Sprintf("cannot join a room in status %q", r.status)}
	}
	if len(r.members) >= config.MaxMembersPerRoom {
		if _, seated := r.members[member.UserID]; !seated {
			return &domain.ConflictError{Message: "room is full"}
		}
	}

	r.members[member.UserID] = &member
	r.status = StatusReady
	return nil
}

// Leave removes a user. An emptied room returns to Open.
func (r *Room) Leave(userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.members[userID]; !ok {
		return &domain.NotFoundError{Message: "user is not in the room"}
	}
	if r.status == StatusInGame {
		return &domain.ConflictError{Message: "cannot leave a running game; suspend first"}
	}
	delete(r.members, userID)
	if len(r.members) == 0 {
		r.status = StatusOpen
	}
	return nil
}

// Start moves Ready → InGame and seeds the members' characters into the
// session's game state.
func (r *Room) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.status != StatusReady {
		return &domain.ConflictError{Message: fmt.Sprintf("cannot start a room in status %q", r.status)}
	}

	members := make([]Member, 0, len(r.members))
	for _, m := range r.members {
		members = append(members, *m)
	}
	r.session.SeedState(func(gs *game.GameState) {
		gs.ModuleName = r.ModuleName
		for _, m := range members {
			gs.EnsureCharacter(m.UserID, m.CharacterID, m.CharacterName)
		}
	})

	r.status = StatusInGame
	r.logger.Info("game started", "members", len(members))
	return nil
}

// Suspend pauses a running game: in-flight turn is cancelled, the gate
// switches to Paused, and no further actions are admitted.
func (r *Room) Suspend() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.status != StatusInGame {
		return &domain.ConflictError{Message: fmt.Sprintf("cannot suspend a room in status %q", r.status)}
	}
	if r.turnCancel != nil {
		r.turnCancel()
		r.turnCancel = nil
	}
	r.session.SetGate(gate.NewPaused())
	r.status = StatusSuspended
	r.logger.Info("game suspended")
	return nil
}

// Resume moves Suspended → Ready, restoring the default gate. Start brings
// the room back into play.
func (r *Room) Resume() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.status != StatusSuspended {
		return &domain.ConflictError{Message: fmt.Sprintf("cannot resume a room in status %q", r.status)}
	}
	r.session.SetGate(gate.NewAllPlayers())
	r.status = StatusReady
	r.logger.Info("game resumed")
	return nil
}

// SubmitAction buffers a player action and starts a turn when the gate's
// advance policy is satisfied. Returns whether a turn was started.
func (r *Room) SubmitAction(action game.PlayerAction) (bool, error) {
	r.mu.Lock()
	if r.status != StatusInGame {
		r.mu.Unlock()
		return false, &domain.ConflictError{Message: "the room is not in game"}
	}
	memberCount := len(r.members)
	r.mu.Unlock()

	if action.TimestampMs == 0 {
		action.TimestampMs = time.Now().UnixMilli()
	}

	currentGate := r.session.Gate()
	if err := r.actions.Add(currentGate, action); err != nil {
		return false, err
	}
	batch, ok := r.actions.DrainIfAdvance(currentGate, memberCount)
	if !ok {
		return false, nil
	}
	r.startTurn(batch)
	return true, nil
}

// Advance forces a turn with whatever is buffered, including nothing. The
// DM narrates one beat either way.
func (r *Room) Advance() (bool, error) {
	r.mu.Lock()
	if r.status != StatusInGame {
		r.mu.Unlock()
		return false, &domain.ConflictError{Message: "the room is not in game"}
	}
	r.mu.Unlock()

	r.startTurn(r.actions.Drain())
	return true, nil
}

// startTurn hands an already-drained batch to the session on a fresh
// goroutine. Callers own the batch: the advance check and the drain happen
// atomically in the action manager, so only the caller that won the drain
// reaches here and installs the cancel func (manual Advance may still run an
// empty turn).
func (r *Room) startTurn(batch []game.PlayerAction) {
	ctx, cancel := context.WithCancel(context.Background())
	r.mu.Lock()
	r.turnCancel = cancel
	r.mu.Unlock()

	go func() {
		defer cancel()
		if err := r.session.ProcessActions(ctx, batch); err != nil {
			r.logger.Warn("turn did not complete", "error", err)
		}
		r.mu.Lock()
		if r.turnCancel != nil {
			r.turnCancel = nil
		}
		r.mu.Unlock()
	}()
}

// CancelTurn aborts the in-flight turn, if any.
func (r *Room) CancelTurn() {
	r.mu.Lock()
	cancel := r.turnCancel
	r.turnCancel = nil
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// PendingActions returns a copy of the buffered actions.
func (r *Room) PendingActions() []game.PlayerAction {
	return r.actions.Snapshot()
}

// GateDescription describes the current admission policy for status views.
func (r *Room) GateDescription() string {
	return r.session.Gate().Description()
}

// NotesByCharacter exposes member notes for the context builder.
func (r *Room) NotesByCharacter() map[string]string {
	r.mu.Lock()
	defer r.mu.Unlock()

	notes := make(map[string]string)
	for _, m := range r.members {
		if m.Notes != "" {
			notes[m.CharacterID] = m.Notes
		}
	}
	return notes
}

// SetNotes attaches player notes to a seated member.
func (r *Room) SetNotes(userID, notes string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.members[userID]
	if !ok {
		return &domain.NotFoundError{Message: "user is not in the room"}
	}
	m.Notes = notes
	return nil
}

// Close releases the room's session resources.
func (r *Room) Close() {
	r.CancelTurn()
	r.session.Close()
}
