package game

import (
	"context"

	"tavern/internal/domain/models/game"
)

// GameStore is the persistence port consumed by the turn engine: append-only
// conversation history, world-context upserts, and named snapshot slots.
// Implementations may be SQL-backed or in-memory; the engine is agnostic.
// All failures are reported as errors and never block event emission.
type GameStore interface {
	AppendTurn(ctx context.Context, roomID string, turn *game.ConversationTurn) error
	ListTurns(ctx context.Context, roomID string, limit int) ([]game.ConversationTurn, error)

	UpsertWorldContext(ctx context.Context, roomID string, world *game.WorldContext) error

	SaveSnapshot(ctx context.Context, snap *game.GameSnapshot) error
	LoadSnapshot(ctx context.Context, roomID, slotName string) (*game.GameSnapshot, error)
	ListSnapshots(ctx context.Context, roomID string) ([]game.SnapshotInfo, error)
	DeleteSnapshot(ctx context.Context, roomID, slotName string) error
}
