package fanout

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"tavern/internal/domain/models/game"
	services "tavern/internal/domain/services/game"
)

// HistoryWriter assembles one ConversationTurn per turn: the drained player
// inputs plus the concatenated narrative chunks. The in-memory history is
// authoritative during a session; persistence is fire-and-forget.
type HistoryWriter struct {
	roomID string
	store  services.GameStore
	logger *slog.Logger

	mu        sync.Mutex
	history   []game.ConversationTurn
	inputs    []game.PlayerAction
	chunks    []string
	cancelled atomic.Bool
}

func NewHistoryWriter(roomID string, store services.GameStore, logger *slog.Logger) *HistoryWriter {
	return &HistoryWriter{roomID: roomID, store: store, logger: logger}
}

// BeginTurn records the drained inputs for the turn being executed.
func (w *HistoryWriter) BeginTurn(actions []game.PlayerAction) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.inputs = actions
	w.chunks = w.chunks[:0]
	w.cancelled.Store(false)
}

// OnEvent accumulates narrative chunks. Other event types are not part of
// the conversation record.
func (w *HistoryWriter) OnEvent(ev game.SessionEvent) {
	if ev.Type != game.EventNarrativeChunk {
		return
	}
	w.mu.Lock()
	w.chunks = append(w.chunks, ev.Content)
	w.mu.Unlock()
}

// SetCancelled marks the in-flight turn as cancelled; the partial narrative
// is still recorded.
func (w *HistoryWriter) SetCancelled() {
	w.cancelled.Store(true)
}

// EndTurn assembles the completed turn, appends it to the in-memory history,
// and kicks off persistence. Persistence failures are logged, never
// propagated.
func (w *HistoryWriter) EndTurn() *game.ConversationTurn {
	w.mu.Lock()
	turnType := game.TurnTypeExploration
	if w.cancelled.Load() {
		turnType = game.TurnTypeCancelled
	}
	turn := game.ConversationTurn{
		ID:                uuid.NewString(),
		RoomID:            w.roomID,
		UserInputs:        w.inputs,
		AssistantResponse: strings.Join(w.chunks, ""),
		TimestampMs:       time.Now().UnixMilli(),
		Metadata: game.TurnMetadata{
			TurnType:    turnType,
			ActionCount: len(w.inputs),
		},
	}
	w.history = append(w.history, turn)
	w.inputs = nil
	w.chunks = nil
	w.mu.Unlock()

	if w.store != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := w.store.AppendTurn(ctx, w.roomID, &turn); err != nil {
				w.logger.Error("failed to persist conversation turn",
					"room_id", w.roomID, "turn_id", turn.ID, "error", err)
			}
		}()
	}
	return &turn
}

// Abort discards the in-flight turn without recording it. Used when context
// building fails and the turn produced nothing worth keeping.
func (w *HistoryWriter) Abort() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.inputs = nil
	w.chunks = nil
	w.cancelled.Store(false)
}

// Recent returns a copy of the last n turns, oldest first.
func (w *HistoryWriter) Recent(n int) []game.ConversationTurn {
	w.mu.Lock()
	defer w.mu.Unlock()

	history := w.history
	if n > 0 && len(history) > n {
		history = history[len(history)-n:]
	}
	out := make([]game.ConversationTurn, len(history))
	copy(out, history)
	return out
}

// Len reports the number of recorded turns.
func (w *HistoryWriter) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.history)
}

// Restore seeds the in-memory history, e.g. after loading a snapshot.
func (w *HistoryWriter) Restore(turns []game.ConversationTurn) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.history = append([]game.ConversationTurn(nil), turns...)
}
