package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RepositoryConfig holds configuration for repository implementations.
type RepositoryConfig struct {
	Pool   *pgxpool.Pool
	Tables *TableNames
	Logger *slog.Logger
}

// TableNames holds dynamically prefixed table names.
type TableNames struct {
	Turns         string
	WorldContexts string
	Snapshots     string
}

// NewTableNames creates table names with the given prefix.
func NewTableNames(prefix string) *TableNames {
	return &TableNames{
		Turns:         fmt.Sprintf("%sturns", prefix),
		WorldContexts: fmt.Sprintf("%sworld_contexts", prefix),
		Snapshots:     fmt.Sprintf("%ssnapshots", prefix),
	}
}

// CreateConnectionPool creates a pgx connection pool.
//
// Port 6543 (transaction pooler, e.g. Supabase) does not support prepared
// statements; when detected, the pool switches to QueryExecModeCacheDescribe,
// which keeps extended-protocol JSONB encoding working without prepared
// statements. An explicit default_query_exec_mode in the connection string
// takes precedence.
//
// Dynamic table prefixes interpolated via fmt.Sprintf are safe here: the SQL
// text is fixed before it reaches the database, so each environment gets its
// own statements.
func CreateConnectionPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	config.MaxConns = 25
	config.MinConns = 5

	if config.ConnConfig.Port == 6543 && config.ConnConfig.DefaultQueryExecMode == pgx.QueryExecModeCacheStatement {
		config.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeCacheDescribe
		slog.Debug("auto-configured cache_describe mode for PgBouncer compatibility", "port", 6543)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}
