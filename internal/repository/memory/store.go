// Package memory is an in-process implementation of the game persistence
// port. Used in tests and when no database is configured.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"tavern/internal/domain"
	"tavern/internal/domain/models/game"

	services "tavern/internal/domain/services/game"
)

type snapshotKey struct {
	roomID   string
	slotName string
}

// GameStore keeps everything in maps behind one mutex.
type GameStore struct {
	mu        sync.Mutex
	turns     map[string][]game.ConversationTurn
	worlds    map[string]*game.WorldContext
	snapshots map[snapshotKey]*game.GameSnapshot
}

func NewGameStore() services.GameStore {
	return &GameStore{
		turns:     make(map[string][]game.ConversationTurn),
		worlds:    make(map[string]*game.WorldContext),
		snapshots: make(map[snapshotKey]*game.GameSnapshot),
	}
}

func (s *GameStore) AppendTurn(_ context.Context, roomID string, turn *game.ConversationTurn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns[roomID] = append(s.turns[roomID], *turn)
	return nil
}

func (s *GameStore) ListTurns(_ context.Context, roomID string, limit int) ([]game.ConversationTurn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	turns := s.turns[roomID]
	if limit > 0 && len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	out := make([]game.ConversationTurn, len(turns))
	copy(out, turns)
	return out, nil
}

func (s *GameStore) UpsertWorldContext(_ context.Context, roomID string, world *game.WorldContext) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.worlds[roomID] = world.Clone()
	return nil
}

func (s *GameStore) SaveSnapshot(_ context.Context, snap *game.GameSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := snapshotKey{roomID: snap.RoomID, slotName: snap.SlotName}
	version := 1
	if existing, ok := s.snapshots[key]; ok {
		version = existing.Version + 1
	}

	stored := *snap
	stored.State = snap.State.Clone()
	stored.Version = version
	s.snapshots[key] = &stored
	snap.Version = version
	return nil
}

func (s *GameStore) LoadSnapshot(_ context.Context, roomID, slotName string) (*game.GameSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, ok := s.snapshots[snapshotKey{roomID: roomID, slotName: slotName}]
	if !ok {
		return nil, fmt.Errorf("snapshot %s/%s: %w", roomID, slotName, domain.ErrNotFound)
	}
	out := *snap
	out.State = snap.State.Clone()
	return &out, nil
}

func (s *GameStore) ListSnapshots(_ context.Context, roomID string) ([]game.SnapshotInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var infos []game.SnapshotInfo
	for key, snap := range s.snapshots {
		if key.roomID != roomID {
			continue
		}
		infos = append(infos, game.SnapshotInfo{
			RoomID:      snap.RoomID,
			SlotName:    snap.SlotName,
			Description: snap.Description,
			SavedAtMs:   snap.SavedAtMs,
		})
	}
	// Newest first, matching the SQL store.
	sort.Slice(infos, func(i, j int) bool { return infos[i].SavedAtMs > infos[j].SavedAtMs })
	return infos, nil
}

func (s *GameStore) DeleteSnapshot(_ context.Context, roomID, slotName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := snapshotKey{roomID: roomID, slotName: slotName}
	if _, ok := s.snapshots[key]; !ok {
		return fmt.Errorf("snapshot %s/%s: %w", roomID, slotName, domain.ErrNotFound)
	}
	delete(s.snapshots, key)
	return nil
}
