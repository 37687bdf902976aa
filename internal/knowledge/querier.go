package knowledge

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// UpsertPassageParams holds the arguments for Querier.UpsertPassage.
type UpsertPassageParams struct {
	ID        string
	Content   string
	Source    string
	Embedding pgvector.Vector
	Metadata  []byte
	CreatedAt pgtype.Timestamptz
}

// SearchPassagesParams holds the arguments for Querier.SearchPassages.
type SearchPassagesParams struct {
	QueryEmbedding pgvector.Vector
	Source         string // empty = no source filter
	ResultLimit    int32
}

// SearchPassagesRow is a single row returned by Querier.SearchPassages.
type SearchPassagesRow struct {
	ID         string
	Content    string
	Source     string
	Metadata   []byte
	CreatedAt  pgtype.Timestamptz
	Similarity float32
}

// Querier defines the database operations Store depends on.
// The interface is defined by the consumer so tests can substitute a mock
// without a running database.
type Querier interface {
	// UpsertPassage inserts or updates a passage.
	UpsertPassage(ctx context.Context, arg UpsertPassageParams) error

	// SearchPassages performs vector similarity search, most similar first.
	SearchPassages(ctx context.Context, arg SearchPassagesParams) ([]SearchPassagesRow, error)

	// CountPassages counts stored passages.
	CountPassages(ctx context.Context) (int64, error)

	// DeletePassage deletes a passage by ID.
	DeletePassage(ctx context.Context, id string) error
}

// PGQuerier implements Querier on a pgx connection pool.
// The pool must have pgvector types registered (see app setup).
type PGQuerier struct {
	pool *pgxpool.Pool
}

// NewPGQuerier creates a Querier backed by the given pool.
func NewPGQuerier(pool *pgxpool.Pool) *PGQuerier {
	return &PGQuerier{pool: pool}
}

const upsertPassageSQL = `
INSERT INTO passages (id, content, source, embedding, metadata, created_at)
VALUES ($1, $2, $3, $4, $5, COALESCE($6, now()))
ON CONFLICT (id) DO UPDATE SET
    content = EXCLUDED.content,
    source = EXCLUDED.source,
    embedding = EXCLUDED.embedding,
    metadata = EXCLUDED.metadata`

// UpsertPassage inserts or updates a passage.
func (q *PGQuerier) UpsertPassage(ctx context.Context, arg UpsertPassageParams) error {
	var createdAt any
	if arg.CreatedAt.Valid {
		createdAt = arg.CreatedAt
	}
	_, err := q.pool.Exec(ctx, upsertPassageSQL,
		arg.ID, arg.Content, arg.Source, arg.Embedding, arg.Metadata, createdAt)
	if err != nil {
		return fmt.Errorf("upsert passage: %w", err)
	}
	return nil
}

// <=> is pgvector cosine distance; similarity = 1 - distance.
const searchPassagesSQL = `
SELECT id, content, source, metadata, created_at,
       1 - (embedding <=> $1) AS similarity
FROM passages
ORDER BY embedding <=> $1
LIMIT $2`

const searchPassagesBySourceSQL = `
SELECT id, content, source, metadata, created_at,
       1 - (embedding <=> $1) AS similarity
FROM passages
WHERE source = $3
ORDER BY embedding <=> $1
LIMIT $2`

// SearchPassages performs vector similarity search, most similar first.
func (q *PGQuerier) SearchPassages(ctx context.Context, arg SearchPassagesParams) ([]SearchPassagesRow, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if arg.Source != "" {
		rows, err = q.pool.Query(ctx, searchPassagesBySourceSQL,
			arg.QueryEmbedding, arg.ResultLimit, arg.Source)
	} else {
		rows, err = q.pool.Query(ctx, searchPassagesSQL,
			arg.QueryEmbedding, arg.ResultLimit)
	}
	if err != nil {
		return nil, fmt.Errorf("search passages: %w", err)
	}
	defer rows.Close()

	var out []SearchPassagesRow
	for rows.Next() {
		var row SearchPassagesRow
		if err := rows.Scan(&row.ID, &row.Content, &row.Source,
			&row.Metadata, &row.CreatedAt, &row.Similarity); err != nil {
			return nil, fmt.Errorf("scan passage row: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate passage rows: %w", err)
	}
	return out, nil
}

// CountPassages counts stored passages.
func (q *PGQuerier) CountPassages(ctx context.Context) (int64, error) {
	var count int64
	if err := q.pool.QueryRow(ctx, `SELECT count(*) FROM passages`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count passages: %w", err)
	}
	return count, nil
}

// DeletePassage deletes a passage by ID.
func (q *PGQuerier) DeletePassage(ctx context.Context, id string) error {
	if _, err := q.pool.Exec(ctx, `DELETE FROM passages WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete passage: %w", err)
	}
	return nil
}
