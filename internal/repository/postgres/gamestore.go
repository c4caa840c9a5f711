// Package postgres implements the game persistence port on PostgreSQL with
// environment-prefixed table names.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"tavern/internal/domain"
	"tavern/internal/domain/models/game"

	services "tavern/internal/domain/services/game"
)

// snapshotRetries bounds the optimistic-concurrency retry loop on snapshot
// writes. Conflicts are rare (two saves to the same slot at once).
const snapshotRetries = 3

// GameStore implements services.GameStore.
type GameStore struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
}

func NewGameStore(config *RepositoryConfig) services.GameStore {
	return &GameStore{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// AppendTurn inserts one completed conversation turn.
func (s *GameStore) AppendTurn(ctx context.Context, roomID string, turn *game.ConversationTurn) error {
	inputs, err := json.Marshal(turn.UserInputs)
	if err != nil {
		return fmt.Errorf("encode user inputs: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, room_id, user_inputs, assistant_response, turn_type, action_count, created_at_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, s.tables.Turns)

	_, err = s.pool.Exec(ctx, query,
		turn.ID,
		roomID,
		inputs,
		turn.AssistantResponse,
		turn.Metadata.TurnType,
		turn.Metadata.ActionCount,
		turn.TimestampMs,
	)
	if err != nil {
		if IsPgDuplicateError(err) {
			return fmt.Errorf("turn %s: %w", turn.ID, domain.ErrConflict)
		}
		return fmt.Errorf("append turn: %w", err)
	}
	return nil
}

// ListTurns returns the last limit turns for a room, oldest first.
func (s *GameStore) ListTurns(ctx context.Context, roomID string, limit int) ([]game.ConversationTurn, error) {
	if limit <= 0 {
		limit = 50
	}

	query := fmt.Sprintf(`
		SELECT id, user_inputs, assistant_response, turn_type, action_count, created_at_ms
		FROM (
			SELECT id, user_inputs, assistant_response, turn_type, action_count, created_at_ms
			FROM %s
			WHERE room_id = $1
			ORDER BY created_at_ms DESC
			LIMIT $2
		) recent
		ORDER BY created_at_ms ASC
	`, s.tables.Turns)

	rows, err := s.pool.Query(ctx, query, roomID, limit)
	if err != nil {
		return nil, fmt.Errorf("list turns: %w", err)
	}
	defer rows.Close()

	var turns []game.ConversationTurn
	for rows.Next() {
		var (
			turn   game.ConversationTurn
			inputs []byte
		)
		if err := rows.Scan(&turn.ID, &inputs, &turn.AssistantResponse,
			&turn.Metadata.TurnType, &turn.Metadata.ActionCount, &turn.TimestampMs); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		if len(inputs) > 0 {
			if err := json.Unmarshal(inputs, &turn.UserInputs); err != nil {
				return nil, fmt.Errorf("decode user inputs for turn %s: %w", turn.ID, err)
			}
		}
		turn.RoomID = roomID
		turns = append(turns, turn)
	}
	return turns, rows.Err()
}

// UpsertWorldContext replaces a room's persisted world context.
func (s *GameStore) UpsertWorldContext(ctx context.Context, roomID string, world *game.WorldContext) error {
	payload, err := json.Marshal(world)
	if err != nil {
		return fmt.Errorf("encode world context: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (room_id, world, updated_at_ms)
		VALUES ($1, $2, (extract(epoch from now()) * 1000)::bigint)
		ON CONFLICT (room_id) DO UPDATE SET
			world = EXCLUDED.world,
			updated_at_ms = EXCLUDED.updated_at_ms
	`, s.tables.WorldContexts)

	if _, err := s.pool.Exec(ctx, query, roomID, payload); err != nil {
		return fmt.Errorf("upsert world context: %w", err)
	}
	return nil
}

// SaveSnapshot writes a snapshot slot with a version check: the update only
// applies when the stored version still matches the one read, retried a
// bounded number of times on conflict.
func (s *GameStore) SaveSnapshot(ctx context.Context, snap *game.GameSnapshot) error {
	payload, err := json.Marshal(snap.State)
	if err != nil {
		return fmt.Errorf("encode snapshot state: %w", err)
	}

	selectVersion := fmt.Sprintf(
		`SELECT version FROM %s WHERE room_id = $1 AND slot_name = $2`, s.tables.Snapshots)
	upsert := fmt.Sprintf(`
		INSERT INTO %s (room_id, slot_name, description, state, history_turns, saved_at_ms, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (room_id, slot_name) DO UPDATE SET
			description = EXCLUDED.description,
			state = EXCLUDED.state,
			history_turns = EXCLUDED.history_turns,
			saved_at_ms = EXCLUDED.saved_at_ms,
			version = EXCLUDED.version
		WHERE %s.version = $8
	`, s.tables.Snapshots, s.tables.Snapshots)

	for attempt := 0; attempt < snapshotRetries; attempt++ {
		var current int
		err := s.pool.QueryRow(ctx, selectVersion, snap.RoomID, snap.SlotName).Scan(&current)
		if err != nil && !IsPgNoRowsError(err) {
			return fmt.Errorf("read snapshot version: %w", err)
		}

		tag, err := s.pool.Exec(ctx, upsert,
			snap.RoomID, snap.SlotName, snap.Description, payload,
			snap.HistoryTurns, snap.SavedAtMs, current+1, current)
		if err != nil {
			if IsPgDuplicateError(err) {
				continue
			}
			return fmt.Errorf("save snapshot: %w", err)
		}
		if tag.RowsAffected() > 0 {
			snap.Version = current + 1
			return nil
		}
		// Version moved under us; re-read and retry.
		s.logger.Debug("snapshot version conflict",
			"room_id", snap.RoomID, "slot", snap.SlotName, "attempt", attempt+1)
	}
	return fmt.Errorf("save snapshot %s/%s: %w", snap.RoomID, snap.SlotName, domain.ErrConflict)
}

// LoadSnapshot reads one snapshot slot.
func (s *GameStore) LoadSnapshot(ctx context.Context, roomID, slotName string) (*game.GameSnapshot, error) {
	query := fmt.Sprintf(`
		SELECT description, state, history_turns, saved_at_ms, version
		FROM %s
		WHERE room_id = $1 AND slot_name = $2
	`, s.tables.Snapshots)

	snap := &game.GameSnapshot{RoomID: roomID, SlotName: slotName}
	var payload []byte
	err := s.pool.QueryRow(ctx, query, roomID, slotName).
		Scan(&snap.Description, &payload, &snap.HistoryTurns, &snap.SavedAtMs, &snap.Version)
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("snapshot %s/%s: %w", roomID, slotName, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	snap.State = &game.GameState{}
	if err := json.Unmarshal(payload, snap.State); err != nil {
		return nil, fmt.Errorf("decode snapshot state: %w", err)
	}
	return snap, nil
}

// ListSnapshots lists a room's snapshot slots, newest first.
func (s *GameStore) ListSnapshots(ctx context.Context, roomID string) ([]game.SnapshotInfo, error) {
	query := fmt.Sprintf(`
		SELECT slot_name, description, saved_at_ms
		FROM %s
		WHERE room_id = $1
		ORDER BY saved_at_ms DESC
	`, s.tables.Snapshots)

	rows, err := s.pool.Query(ctx, query, roomID)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var infos []game.SnapshotInfo
	for rows.Next() {
		info := game.SnapshotInfo{RoomID: roomID}
		if err := rows.Scan(&info.SlotName, &info.Description, &info.SavedAtMs); err != nil {
			return nil, fmt.Errorf("scan snapshot info: %w", err)
		}
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

// DeleteSnapshot removes a snapshot slot.
func (s *GameStore) DeleteSnapshot(ctx context.Context, roomID, slotName string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE room_id = $1 AND slot_name = $2`, s.tables.Snapshots)

	tag, err := s.pool.Exec(ctx, query, roomID, slotName)
	if err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("snapshot %s/%s: %w", roomID, slotName, domain.ErrNotFound)
	}
	return nil
}
