// Package session owns the per-room turn lifecycle: the live GameState, the
// current turn gate and state variant, the event fan-out, and the post-turn
// persistence and extraction work.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"tavern/internal/checks"
	"tavern/internal/dice"
	"tavern/internal/domain"
	"tavern/internal/domain/models/game"
	"tavern/internal/engine/contextbuild"
	"tavern/internal/engine/extractor"
	"tavern/internal/engine/fanout"
	"tavern/internal/engine/gate"
	"tavern/internal/engine/state"
	"tavern/internal/engine/tools"
	"tavern/internal/prompts"

	services "tavern/internal/domain/services/game"
)

// AutosaveSlot is the snapshot slot written after every completed turn.
const AutosaveSlot = "autosave"

// Config wires a session's collaborators.
type Config struct {
	RoomID    string
	Provider  services.LLMProvider
	Store     services.GameStore
	Prompts   *prompts.Set
	RNG       dice.RNG
	Extractor *extractor.Extractor
	Notes     state.NotesFunc
	Options   state.Options

	RecentEventsCap int
	WorldFactsCap   int

	Logger *slog.Logger
}

// Session executes turns for one room. At most one ProcessActions runs at a
// time; concurrent callers block on the turn mutex.
type Session struct {
	roomID string
	store  services.GameStore
	logger *slog.Logger

	turnMu      sync.Mutex
	gameState   *game.GameState
	turnCounter int64

	// Staged by tools mid-turn, applied when the turn ends. Only the turn
	// executor touches these.
	stagedGate       services.TurnGate
	stagedTransition string

	gateMu sync.RWMutex
	gate   services.TurnGate

	variant     services.StateVariant
	broadcaster *fanout.Broadcaster
	writer      *fanout.HistoryWriter
	extractor   *extractor.Extractor

	recentEventsCap int
	worldFactsCap   int

	background sync.WaitGroup
}

// New builds a session with the exploration variant and an AllPlayers gate.
func New(cfg Config) (*Session, error) {
	if cfg.RoomID == "" {
		return nil, errors.New("session: room ID is required")
	}
	if cfg.Provider == nil {
		return nil, errors.New("session: LLM provider is required")
	}
	if cfg.Prompts == nil {
		cfg.Prompts = prompts.NewSet("")
	}
	if cfg.RNG == nil {
		cfg.RNG = dice.SystemRNG()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	s := &Session{
		roomID:          cfg.RoomID,
		store:           cfg.Store,
		logger:          cfg.Logger.With("room_id", cfg.RoomID),
		gameState:       game.NewGameState(cfg.RoomID),
		gate:            gate.NewAllPlayers(),
		broadcaster:     fanout.NewBroadcaster(cfg.Logger),
		extractor:       cfg.Extractor,
		recentEventsCap: cfg.RecentEventsCap,
		worldFactsCap:   cfg.WorldFactsCap,
	}
	s.writer = fanout.NewHistoryWriter(cfg.RoomID, cfg.Store, s.logger)

	registry, err := tools.BuildExplorationRegistry(s, checks.NewResolver(cfg.RNG))
	if err != nil {
		return nil, fmt.Errorf("session: build tool registry: %w", err)
	}
	builder := contextbuild.NewBuilder(cfg.Prompts, cfg.Options.HistoryTurns)
	s.variant = state.NewExploration(cfg.Provider, builder, registry, s.writer, cfg.Notes, cfg.Options, s.logger)

	return s, nil
}

// TurnSession interface for tools and variants.

func (s *Session) RoomID() string { return s.roomID }

// State returns the live game state. Callers run on the turn executor
// goroutine; everyone else uses Snapshot.
func (s *Session) State() *game.GameState { return s.gameState }

// Emit records the event in the history writer and fans it out to clients.
func (s *Session) Emit(ev game.SessionEvent) {
	s.writer.OnEvent(ev)
	s.broadcaster.Publish(ev)
}

// InstallGate stages a gate replacement; it becomes current at turn end.
func (s *Session) InstallGate(g services.TurnGate) {
	s.stagedGate = g
}

// StageTransition stages a variant change applied at turn end.
func (s *Session) StageTransition(to string) {
	s.stagedTransition = to
}

// ProcessActions executes one turn over the drained actions. The stream
// always terminates with exactly one turn-end; history is appended except
// when context building failed before any LLM work.
func (s *Session) ProcessActions(ctx context.Context, actions []game.PlayerAction) error {
	s.turnMu.Lock()
	defer s.turnMu.Unlock()

	s.turnCounter++
	turn := s.turnCounter
	s.logger.Info("turn started", "turn", turn, "actions", len(actions), "variant", s.variant.Name())

	s.writer.BeginTurn(actions)
	err := s.variant.ProcessActions(ctx, s, actions)

	switch {
	case errors.Is(err, domain.ErrContextBuild):
		s.Emit(game.NewTurnEndEvent())
		s.writer.Abort()
		s.applyStaged()
		s.logger.Error("turn aborted", "turn", turn, "error", err)
		return err

	case err != nil:
		// Cancellation: keep the partial narrative, skip the extractor.
		s.writer.SetCancelled()
		s.Emit(game.NewTurnEndEvent())
		completed := s.writer.EndTurn()
		s.applyStaged()
		s.postTurn(completed, false)
		s.logger.Info("turn cancelled", "turn", turn, "error", err)
		return err

	default:
		s.Emit(game.NewTurnEndEvent())
		completed := s.writer.EndTurn()
		s.applyStaged()
		s.postTurn(completed, s.extractor != nil)
		s.logger.Info("turn completed", "turn", turn)
		return nil
	}
}

// applyStaged commits gate and variant changes staged during the turn.
// Called with the turn mutex held.
func (s *Session) applyStaged() {
	if s.stagedGate != nil {
		s.setGate(s.stagedGate)
		s.logger.Info("turn gate replaced", "gate", s.stagedGate.Description())
		s.stagedGate = nil
	}
	if s.stagedTransition != "" {
		if err := s.TransitionTo(s.stagedTransition); err != nil {
			s.logger.Warn("staged transition not applied", "to", s.stagedTransition, "error", err)
		}
		s.stagedTransition = ""
	}
}

// TransitionTo switches the state variant between turns. Combat is announced
// by the start_combat tool but has no variant yet, so the session stays in
// exploration.
func (s *Session) TransitionTo(name string) error {
	switch name {
	case services.VariantExploration:
		return nil
	case services.VariantCombat:
		return &domain.ConflictError{Message: "combat variant is not available yet"}
	default:
		return &domain.ValidationError{Message: fmt.Sprintf("unknown state variant %q", name)}
	}
}

// postTurn kicks off the after-turn work: world extraction and the autosave
// snapshot. Both are fire-and-forget with respect to the turn.
func (s *Session) postTurn(turn *game.ConversationTurn, runExtractor bool) {
	snapshot := s.gameState.Clone()
	historyTurns := s.writer.Len()

	s.background.Add(1)
	go func() {
		defer s.background.Done()

		ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
		defer cancel()

		g, ctx := errgroup.WithContext(ctx)
		if runExtractor {
			g.Go(func() error {
				s.runExtractor(ctx, turn)
				return nil
			})
		}
		if s.store != nil {
			g.Go(func() error {
				snap := &game.GameSnapshot{
					RoomID:       s.roomID,
					SlotName:     AutosaveSlot,
					State:        snapshot,
					HistoryTurns: historyTurns,
					SavedAtMs:    time.Now().UnixMilli(),
				}
				if err := s.store.SaveSnapshot(ctx, snap); err != nil {
					s.logger.Error("autosave failed", "error", err)
				}
				return nil
			})
		}
		_ = g.Wait()
	}()
}

func (s *Session) runExtractor(ctx context.Context, turn *game.ConversationTurn) {
	updates, err := s.extractor.Extract(ctx, turn)
	if err != nil {
		s.logger.Error("world extraction failed", "turn_id", turn.ID, "error", err)
		return
	}
	if updates.Empty() {
		return
	}

	s.ApplyWorldUpdates(updates)
	s.logger.Info("world context updated",
		"facts", len(updates.WorldFacts), "events", len(updates.RecentEvents), "flags", len(updates.Flags))

	if s.store != nil {
		s.turnMu.Lock()
		world := s.gameState.World.Clone()
		s.turnMu.Unlock()
		if err := s.store.UpsertWorldContext(ctx, s.roomID, world); err != nil {
			s.logger.Error("world context persist failed", "error", err)
		}
	}
}

// ApplyWorldUpdates folds extractor output into the world context under the
// turn mutex, enforcing the FIFO caps.
func (s *Session) ApplyWorldUpdates(updates *extractor.Updates) {
	s.turnMu.Lock()
	defer s.turnMu.Unlock()

	for _, fact := range updates.WorldFacts {
		s.gameState.World.AddWorldFact(fact, s.worldFactsCap)
	}
	for _, ev := range updates.RecentEvents {
		s.gameState.World.AddRecentEvent(ev, s.recentEventsCap)
	}
	for k, v := range updates.Flags {
		s.gameState.World.SetFlag(k, v)
	}
	s.gameState.Touch()
}

// Gate returns the current turn gate.
func (s *Session) Gate() services.TurnGate {
	s.gateMu.RLock()
	defer s.gateMu.RUnlock()
	return s.gate
}

// SetGate replaces the gate immediately. Used by room lifecycle (pause,
// resume); tools go through InstallGate instead.
func (s *Session) SetGate(g services.TurnGate) {
	s.setGate(g)
}

func (s *Session) setGate(g services.TurnGate) {
	s.gateMu.Lock()
	s.gate = g
	s.gateMu.Unlock()
}

// Subscribe attaches a client event feed.
func (s *Session) Subscribe(clientID string) *fanout.Subscription {
	return s.broadcaster.Subscribe(clientID)
}

// Unsubscribe detaches a client.
func (s *Session) Unsubscribe(clientID string) {
	s.broadcaster.Unsubscribe(clientID)
}

// Snapshot returns a deep copy of the game state for readers outside the
// turn executor.
func (s *Session) Snapshot() *game.GameState {
	s.turnMu.Lock()
	defer s.turnMu.Unlock()
	return s.gameState.Clone()
}

// History returns the last n conversation turns.
func (s *Session) History(n int) []game.ConversationTurn {
	return s.writer.Recent(n)
}

// SaveSnapshot persists the current state under a named slot.
func (s *Session) SaveSnapshot(ctx context.Context, slotName, description string) error {
	if s.store == nil {
		return errors.New("session: no store configured")
	}
	snap := &game.GameSnapshot{
		RoomID:       s.roomID,
		SlotName:     slotName,
		Description:  description,
		State:        s.Snapshot(),
		HistoryTurns: s.writer.Len(),
		SavedAtMs:    time.Now().UnixMilli(),
	}
	return s.store.SaveSnapshot(ctx, snap)
}

// LoadSnapshot replaces the game state with a saved one. Must not be called
// while a turn is running for a predictable result; the turn mutex still
// protects state consistency.
func (s *Session) LoadSnapshot(ctx context.Context, slotName string) error {
	if s.store == nil {
		return errors.New("session: no store configured")
	}
	snap, err := s.store.LoadSnapshot(ctx, s.roomID, slotName)
	if err != nil {
		return err
	}

	s.turnMu.Lock()
	s.gameState = snap.State.Clone()
	s.gameState.RoomID = s.roomID
	s.turnMu.Unlock()

	s.logger.Info("snapshot loaded", "slot", slotName)
	return nil
}

// ListSnapshots lists the room's saved slots, newest first.
func (s *Session) ListSnapshots(ctx context.Context) ([]game.SnapshotInfo, error) {
	if s.store == nil {
		return nil, errors.New("session: no store configured")
	}
	return s.store.ListSnapshots(ctx, s.roomID)
}

// DeleteSnapshot removes a saved slot.
func (s *Session) DeleteSnapshot(ctx context.Context, slotName string) error {
	if s.store == nil {
		return errors.New("session: no store configured")
	}
	return s.store.DeleteSnapshot(ctx, s.roomID, slotName)
}

// SeedState initializes the game state before play; used by room setup.
func (s *Session) SeedState(mutate func(*game.GameState)) {
	s.turnMu.Lock()
	defer s.turnMu.Unlock()
	mutate(s.gameState)
	s.gameState.Touch()
}

// Close detaches all subscribers and waits for background work.
func (s *Session) Close() {
	s.broadcaster.Close()
	s.background.Wait()
}
