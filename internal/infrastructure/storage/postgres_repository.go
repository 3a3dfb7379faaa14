package storage

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"RedditAnalyzer/internal/domain"
	"RedditAnalyzer/internal/ports"
)

const processedTable = "processed_posts"

const schema = `CREATE TABLE IF NOT EXISTS processed_posts (
	post_id    TEXT PRIMARY KEY,
	feed       TEXT NOT NULL,
	permalink  TEXT NOT NULL,
	score      INTEGER NOT NULL DEFAULT 0,
	status     TEXT NOT NULL,
	run_id     TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// PostgresRepository records analyzed post ids in Postgres so later runs
// can skip them. It stores identifiers and status only.
type PostgresRepository struct {
	db   *sql.DB
	psql sq.StatementBuilderType
}

var _ ports.ProcessedRepository = (*PostgresRepository)(nil)

// NewPostgresRepository wires a sql.DB implementation.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{
		db:   db,
		psql: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// EnsureSchema creates the ledger table when it does not exist.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if r.db == nil {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// AlreadyProcessed returns a map with IDs that already exist in storage.
func (r *PostgresRepository) AlreadyProcessed(ctx context.Context, ids []string) (map[string]bool, error) {
	if r.db == nil || len(ids) == 0 {
		return map[string]bool{}, nil
	}

	query, args, err := r.psql.
		Select("post_id").
		From(processedTable).
		Where("post_id = ANY(?)", pq.Array(ids)).
		Where(sq.Eq{"status": string(domain.StatusAnalyzed)}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query processed: %w", err)
	}

	result := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan id: %w", err)
		}
		result[id] = true
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("rows iteration: %w", rowsErr)
	}

	if closeErr := rows.Close(); closeErr != nil {
		return nil, fmt.Errorf("close rows: %w", closeErr)
	}

	return result, nil
}

// SaveProcessed upserts the ledger row for a post.
func (r *PostgresRepository) SaveProcessed(ctx context.Context, post domain.ProcessedPost) error {
	if r.db == nil {
		return nil
	}

	query, args, err := r.psql.
		Insert(processedTable).
		Columns("post_id", "feed", "permalink", "score", "status", "run_id").
		Values(post.PostID, post.Feed, post.Permalink, post.Score, string(post.Status), post.RunID).
		Suffix(`ON CONFLICT (post_id) DO UPDATE
              SET score = EXCLUDED.score,
                  status = EXCLUDED.status,
                  run_id = EXCLUDED.run_id,
                  updated_at = NOW()`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert processed: %w", err)
	}

	return nil
}
