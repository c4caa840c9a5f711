package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EnsureSchema creates the game tables and indexes if they do not exist.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool, tables *TableNames) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS ` + tables.Turns + ` (
			id UUID PRIMARY KEY,
			room_id TEXT NOT NULL,
			user_inputs JSONB NOT NULL DEFAULT '[]',
			assistant_response TEXT NOT NULL DEFAULT '',
			turn_type TEXT NOT NULL DEFAULT 'exploration',
			action_count INTEGER NOT NULL DEFAULT 0,
			created_at_ms BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_` + tables.Turns + `_room_created
			ON ` + tables.Turns + ` (room_id, created_at_ms DESC)`,
		`CREATE TABLE IF NOT EXISTS ` + tables.WorldContexts + ` (
			room_id TEXT PRIMARY KEY,
			world JSONB NOT NULL,
			updated_at_ms BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS ` + tables.Snapshots + ` (
			room_id TEXT NOT NULL,
			slot_name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			state JSONB NOT NULL,
			history_turns INTEGER NOT NULL DEFAULT 0,
			saved_at_ms BIGINT NOT NULL,
			version INTEGER NOT NULL DEFAULT 1,
			PRIMARY KEY (room_id, slot_name)
		)`,
	}

	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
